// Package normalize reshapes raw Prometheus API payloads into the stable
// form returned by the MCP tools.
//
// Sample timestamps are rewritten from Unix seconds into ISO 8601 UTC
// strings, and metadata lookups are flattened into a single ordered list
// whatever envelope the backend used. Shapes the package does not recognise
// are returned unchanged.
package normalize

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	mcperrors "github.com/tareqmamari/prometheus-mcp-server/internal/errors"
)

// TimestampLayout is the output format for every converted timestamp.
// Fractional seconds are never emitted.
const TimestampLayout = "2006-01-02T15:04:05Z"

// maxUnixSeconds bounds the seconds accepted by time.Unix without overflow
// in the formatter. Larger magnitudes are clamped.
const maxUnixSeconds = 1 << 62

// FormatTimestamp converts a Unix timestamp in seconds (integer or
// fractional) into a UTC string such as "2021-04-08T16:14:08Z".
// Fractional seconds are truncated toward the earlier second.
//
// Accepted inputs are Go numeric kinds, json.Number and numeric strings.
// Anything else, including NaN and infinities, yields *mcperrors.ConversionError.
func FormatTimestamp(v interface{}) (string, error) {
	secs, err := toSeconds(v)
	if err != nil {
		return "", err
	}
	return time.Unix(secs, 0).UTC().Format(TimestampLayout), nil
}

func toSeconds(v interface{}) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, &mcperrors.ConversionError{Value: v, Reason: "timestamp is null"}
	case bool:
		return 0, &mcperrors.ConversionError{Value: v, Reason: "not a number"}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, &mcperrors.ConversionError{Value: v, Reason: err.Error()}
		}
		return floatSeconds(v, f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, &mcperrors.ConversionError{Value: v, Reason: "not a number"}
		}
		return floatSeconds(v, f)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return floatSeconds(v, rv.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return clamp(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > maxUnixSeconds {
			return maxUnixSeconds, nil
		}
		return int64(u), nil
	default:
		return 0, &mcperrors.ConversionError{Value: v, Reason: "not a number"}
	}
}

func floatSeconds(orig interface{}, f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &mcperrors.ConversionError{Value: orig, Reason: "not a finite number"}
	}
	f = math.Floor(f)
	if f > maxUnixSeconds {
		return maxUnixSeconds, nil
	}
	if f < -maxUnixSeconds {
		return -maxUnixSeconds, nil
	}
	return int64(f), nil
}

func clamp(s int64) int64 {
	if s > maxUnixSeconds {
		return maxUnixSeconds
	}
	if s < -maxUnixSeconds {
		return -maxUnixSeconds
	}
	return s
}
