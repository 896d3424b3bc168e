package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryLinkEscaping(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"up", testBaseURL + "/graph?g0.expr=up&g0.tab=0"},
		{"rate(http_requests_total[5m])", testBaseURL + "/graph?g0.expr=rate%28http_requests_total%5B5m%5D%29&g0.tab=0"},
		{`sum by (job) (up{job="node"})`, testBaseURL + "/graph?g0.expr=sum%20by%20%28job%29%20%28up%7Bjob%3D%22node%22%7D%29&g0.tab=0"},
		{"a+b", testBaseURL + "/graph?g0.expr=a%2Bb&g0.tab=0"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			link := QueryLink(testBaseURL, tt.query)
			assert.Equal(t, tt.want, link.Href)
			assert.Equal(t, LinkRelPrometheusUI, link.Rel)
			assert.NotEmpty(t, link.Title)
		})
	}
}

func TestRangeQueryLink(t *testing.T) {
	tests := []struct {
		name                   string
		start, end, step, want string
	}{
		{
			name:  "rfc3339 bounds and duration step",
			start: "2021-04-08T16:00:00Z", end: "2021-04-08T17:00:00Z", step: "1m",
			want: testBaseURL + "/graph?g0.expr=up&g0.tab=0&g0.range_input=1h&g0.end_input=2021-04-08%2017%3A00%3A00&g0.step_input=60",
		},
		{
			name:  "unix bounds and float step",
			start: "1617898400", end: "1617898430.5", step: "2.5",
			want: testBaseURL + "/graph?g0.expr=up&g0.tab=0&g0.range_input=30s&g0.end_input=2021-04-08%2016%3A13%3A50&g0.step_input=2.5",
		},
		{
			name:  "unparseable bounds keep the step",
			start: "yesterday", end: "now", step: "15s",
			want: testBaseURL + "/graph?g0.expr=up&g0.tab=0&g0.step_input=15",
		},
		{
			name:  "reversed bounds",
			start: "20", end: "10", step: "bogus",
			want: testBaseURL + "/graph?g0.expr=up&g0.tab=0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RangeQueryLink(testBaseURL, "up", tt.start, tt.end, tt.step).Href)
		})
	}
}

func TestStaticLinks(t *testing.T) {
	assert.Equal(t, testBaseURL+"/graph", MetricsExplorerLink(testBaseURL).Href)
	assert.Equal(t, testBaseURL+"/targets", TargetsLink(testBaseURL).Href)
	assert.Equal(t, testBaseURL+"/graph?g0.expr=node_load1&g0.tab=1", MetadataLink(testBaseURL, "node_load1").Href)
}

func TestWithLinks(t *testing.T) {
	link := TargetsLink(testBaseURL)

	in := map[string]interface{}{"a": 1}
	out := withLinks(in, link).(map[string]interface{})
	assert.Equal(t, []interface{}{link}, out["links"])
	assert.NotContains(t, in, "links")

	list := []interface{}{"x"}
	assert.Equal(t, list, withLinks(list, link))
}

func TestResourceLink(t *testing.T) {
	rl := QueryLink(testBaseURL, "up").ResourceLink()
	assert.Equal(t, testBaseURL+"/graph?g0.expr=up&g0.tab=0", rl.URI)
	assert.Equal(t, LinkRelPrometheusUI, rl.Name)
	assert.Equal(t, "text/html", rl.MIMEType)
}
