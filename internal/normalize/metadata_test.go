package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadataEnvelopes(t *testing.T) {
	entry := map[string]interface{}{"metric": "m", "type": "gauge", "help": "h", "unit": "u"}
	list := []interface{}{
		map[string]interface{}{"metric": "up", "type": "gauge", "help": "Up status", "unit": ""},
		map[string]interface{}{"metric": "http_requests", "type": "counter", "help": "HTTP requests", "unit": ""},
	}

	tests := []struct {
		name  string
		input interface{}
		want  []interface{}
	}{
		{name: "metadata key with object", input: map[string]interface{}{"metadata": entry}, want: []interface{}{entry}},
		{name: "data key with object", input: map[string]interface{}{"data": entry}, want: []interface{}{entry}},
		{name: "raw object", input: entry, want: []interface{}{entry}},
		{name: "metadata key with list", input: map[string]interface{}{"metadata": list}, want: list},
		{name: "data key with list", input: map[string]interface{}{"data": list}, want: list},
		{name: "raw list", input: list, want: list},
		{name: "metadata wins over data", input: map[string]interface{}{"metadata": list, "data": entry}, want: list},
		{name: "nil payload", input: nil, want: []interface{}{}},
		{name: "explicit null metadata", input: map[string]interface{}{"metadata": nil}, want: []interface{}{}},
		{name: "empty list", input: []interface{}{}, want: []interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Metadata(tt.input))
		})
	}
}

func TestMetadataSameLogicalPayload(t *testing.T) {
	payloads := []interface{}{
		[]interface{}{map[string]interface{}{"metric": "cpu_usage", "type": "gauge", "help": "CPU usage", "unit": "percent"}},
		map[string]interface{}{"metric": "cpu_usage", "type": "gauge", "help": "CPU usage", "unit": "percent"},
	}

	for _, x := range payloads {
		bare := Metadata(x)
		assert.Equal(t, bare, Metadata(map[string]interface{}{"metadata": x}))
		assert.Equal(t, bare, Metadata(map[string]interface{}{"data": x}))
		assert.Len(t, bare, 1)
	}
}

func TestMetadataSingleObjectMatchesSingletonList(t *testing.T) {
	obj := map[string]interface{}{"metric": "memory_usage", "type": "gauge", "help": "Memory usage", "unit": "bytes"}
	assert.Equal(t, Metadata([]interface{}{obj}), Metadata(obj))
}

func TestMetadataUnknownFieldsPassThrough(t *testing.T) {
	obj := map[string]interface{}{"metric": "x", "target": map[string]interface{}{"job": "node"}}
	got := Metadata(map[string]interface{}{"data": obj})
	assert.Equal(t, []interface{}{obj}, got)
}
