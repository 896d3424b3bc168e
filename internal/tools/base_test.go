package tools

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatResponse(t *testing.T) {
	tool := NewBaseTool(nil, testBaseURL+"/", nil)
	assert.Equal(t, testBaseURL, tool.baseURL, "trailing slash is trimmed")

	result, err := tool.FormatResponse(map[string]interface{}{"a": 1}, nil)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Len(t, result.Content, 1)
	assert.Equal(t, "{\n  \"a\": 1\n}", resultText(t, result))

	withLink, err := tool.FormatResponse([]interface{}{"up"}, TargetsLink(testBaseURL))
	require.NoError(t, err)
	assert.Equal(t, testBaseURL+"/targets", resourceLink(t, withLink).URI)
}

func TestFormatResponseUnencodable(t *testing.T) {
	tool := NewBaseTool(nil, testBaseURL, nil)

	result, err := tool.FormatResponse(math.NaN(), nil)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Error formatting response")
}

func TestCountItems(t *testing.T) {
	assert.Equal(t, 3, countItems([]interface{}{1, 2, 3}))
	assert.Equal(t, 2, countItems(map[string]interface{}{"result": []interface{}{1, 2}}))
	assert.Equal(t, 1, countItems(map[string]interface{}{"activeTargets": []interface{}{1}}))
	assert.Equal(t, 0, countItems("scalar"))
}

func TestNewToolResultError(t *testing.T) {
	assert.Equal(t, "An unknown error occurred", resultText(t, NewToolResultError("")))
	assert.True(t, NewToolResultError("x").IsError)
}

func TestSummarize(t *testing.T) {
	tool := NewBaseTool(nil, testBaseURL, nil)

	vector, _ := tool.FormatResponse(map[string]interface{}{"resultType": "vector", "result": []interface{}{1, 2}}, nil)
	rt, n := Summarize(vector)
	assert.Equal(t, "vector", rt)
	assert.Equal(t, 2, n)

	list, _ := tool.FormatResponse([]interface{}{"a", "b", "c"}, MetricsExplorerLink(testBaseURL))
	rt, n = Summarize(list)
	assert.Equal(t, "list", rt)
	assert.Equal(t, 3, n)

	rt, n = Summarize(NewToolResultError("boom"))
	assert.Empty(t, rt)
	assert.Zero(t, n)
}
