package tools

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/common/model"
)

// LinkRelPrometheusUI is the relation of links that open the Prometheus web UI.
const LinkRelPrometheusUI = "prometheus-ui"

// uiEndInputLayout is the layout the classic graph page expects for g0.end_input.
const uiEndInputLayout = "2006-01-02 15:04:05"

// Link points from a tool result to the matching Prometheus UI page.
type Link struct {
	Href  string `json:"href"`
	Rel   string `json:"rel"`
	Title string `json:"title"`
}

// ResourceLink renders the link as an MCP resource_link content block.
func (l *Link) ResourceLink() *mcp.ResourceLink {
	return &mcp.ResourceLink{
		URI:      l.Href,
		Name:     l.Rel,
		Title:    l.Title,
		MIMEType: "text/html",
	}
}

// withLinks returns a shallow copy of value with a "links" array holding
// link. Values that are not objects are returned unchanged.
func withLinks(value interface{}, link *Link) interface{} {
	m, ok := value.(map[string]interface{})
	if !ok || link == nil {
		return value
	}
	out := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out["links"] = []interface{}{link}
	return out
}

// escape percent-encodes s for a query string, with spaces as %20 so the
// UI shows the expression exactly as typed.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// QueryLink links an instant query to the graph page in table view.
func QueryLink(baseURL, query string) *Link {
	return &Link{
		Href:  baseURL + "/graph?g0.expr=" + escape(query) + "&g0.tab=0",
		Rel:   LinkRelPrometheusUI,
		Title: "View in Prometheus UI",
	}
}

// RangeQueryLink links a range query to the graph page. The
// range, end and step inputs are filled in when the request's bounds can
// be understood; the link is still produced when they cannot.
func RangeQueryLink(baseURL, query, start, end, step string) *Link {
	href := baseURL + "/graph?g0.expr=" + escape(query) + "&g0.tab=0"

	startAt, startOK := parseTime(start)
	endAt, endOK := parseTime(end)
	if startOK && endOK && endAt.After(startAt) {
		rng := model.Duration(endAt.Sub(startAt).Truncate(time.Second))
		href += "&g0.range_input=" + escape(rng.String())
		href += "&g0.end_input=" + escape(endAt.UTC().Format(uiEndInputLayout))
	}
	if seconds, ok := stepSeconds(step); ok {
		href += "&g0.step_input=" + strconv.FormatFloat(seconds, 'f', -1, 64)
	}

	return &Link{
		Href:  href,
		Rel:   LinkRelPrometheusUI,
		Title: "View graph in Prometheus UI",
	}
}

// MetricsExplorerLink links to the UI's metric name explorer.
func MetricsExplorerLink(baseURL string) *Link {
	return &Link{
		Href:  baseURL + "/graph",
		Rel:   LinkRelPrometheusUI,
		Title: "Open metrics explorer in Prometheus UI",
	}
}

// MetadataLink graphs the metric the metadata was requested for.
func MetadataLink(baseURL, metric string) *Link {
	return &Link{
		Href:  baseURL + "/graph?g0.expr=" + escape(metric) + "&g0.tab=1",
		Rel:   LinkRelPrometheusUI,
		Title: "View metric in Prometheus UI",
	}
}

// TargetsLink links to the scrape targets page.
func TargetsLink(baseURL string) *Link {
	return &Link{
		Href:  baseURL + "/targets",
		Rel:   LinkRelPrometheusUI,
		Title: "View targets in Prometheus UI",
	}
}

// parseTime accepts the two time formats the query API accepts: RFC 3339
// and Unix seconds with an optional fraction.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return time.Time{}, false
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// stepSeconds accepts a step as float seconds or a Prometheus duration.
func stepSeconds(step string) (float64, bool) {
	step = strings.TrimSpace(step)
	if step == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(step, 64); err == nil && f > 0 && !math.IsInf(f, 0) {
		return f, true
	}
	d, err := model.ParseDuration(step)
	if err != nil || d <= 0 {
		return 0, false
	}
	return time.Duration(d).Seconds(), true
}
