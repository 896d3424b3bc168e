package tools

import (
	"fmt"
	"strconv"
	"strings"
)

// GetStringParam safely gets a string parameter from arguments. Numbers
// are accepted and formatted, so a Unix timestamp may be passed unquoted.
// A required parameter must be present and non-blank.
func GetStringParam(arguments map[string]interface{}, key string, required bool) (string, error) {
	val, ok := arguments[key]
	if !ok || val == nil {
		if required {
			return "", fmt.Errorf("missing required argument: %s", key)
		}
		return "", nil
	}

	var s string
	switch v := val.(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	default:
		return "", fmt.Errorf("invalid type for argument %s: expected string or number, got %T", key, val)
	}

	if required && strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("missing required argument: %s", key)
	}
	return s, nil
}
