package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/tareqmamari/prometheus-mcp-server/internal/normalize"
	"github.com/tareqmamari/prometheus-mcp-server/internal/progress"
)

// Progress messages of a range query.
const (
	msgRangeStart   = "Initiating range query..."
	msgRangeProcess = "Processing query results..."
	msgRangeDone    = "Range query completed"
)

// ExecuteQueryTool evaluates an instant PromQL query.
type ExecuteQueryTool struct {
	*BaseTool
}

// NewExecuteQueryTool creates a new tool instance
func NewExecuteQueryTool(backend Backend, baseURL string, logger *zap.Logger) *ExecuteQueryTool {
	return &ExecuteQueryTool{
		BaseTool: NewBaseTool(backend, baseURL, logger),
	}
}

// Name returns the tool name
func (t *ExecuteQueryTool) Name() string {
	return "execute_query"
}

// Annotations returns tool hints for LLMs
func (t *ExecuteQueryTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Execute PromQL Query")
}

// Description returns the tool description
func (t *ExecuteQueryTool) Description() string {
	return `Execute a PromQL instant query against Prometheus.

Returns {resultType, result, links}. Sample timestamps are rendered as ISO 8601 UTC strings
("2021-04-08T16:14:08Z"); sample values are kept as the strings Prometheus returned.

**Related tools:**
- execute_range_query: Evaluate the same expression over a time range
- list_metrics: Discover metric names to query`
}

// InputSchema returns the input schema
func (t *ExecuteQueryTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "PromQL expression to evaluate",
				"minLength":   1,
				"examples": []string{
					"up",
					"rate(http_requests_total[5m])",
					`sum by (job) (up{job="node"})`,
				},
			},
			"time": map[string]interface{}{
				"type":        "string",
				"description": "Optional evaluation time as RFC 3339 or Unix timestamp. Defaults to the server's current time.",
			},
		},
		"required": []string{"query"},
	}
}

// Execute executes the tool
func (t *ExecuteQueryTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	query, err := GetStringParam(arguments, "query", true)
	if err != nil {
		return HandleError(ctx, err), nil
	}
	at, err := GetStringParam(arguments, "time", false)
	if err != nil {
		return HandleError(ctx, err), nil
	}

	result, err := t.Run(ctx, query, at)
	if err != nil {
		return HandleError(ctx, err), nil
	}
	return t.FormatResponse(result, QueryLink(t.baseURL, query))
}

// Run evaluates query at the optional time at and returns the normalized
// result with its UI link attached.
func (t *ExecuteQueryTool) Run(ctx context.Context, query, at string) (interface{}, error) {
	params := map[string]string{"query": query}
	if at != "" {
		params["time"] = at
	}

	data, err := t.request(ctx, "query", params)
	if err != nil {
		return nil, err
	}

	result, err := normalize.QueryResult(data)
	if err != nil {
		return nil, err
	}
	return withLinks(result, QueryLink(t.baseURL, query)), nil
}

// ExecuteRangeQueryTool evaluates a PromQL expression over a time range.
type ExecuteRangeQueryTool struct {
	*BaseTool
}

// NewExecuteRangeQueryTool creates a new tool instance
func NewExecuteRangeQueryTool(backend Backend, baseURL string, logger *zap.Logger) *ExecuteRangeQueryTool {
	return &ExecuteRangeQueryTool{
		BaseTool: NewBaseTool(backend, baseURL, logger),
	}
}

// Name returns the tool name
func (t *ExecuteRangeQueryTool) Name() string {
	return "execute_range_query"
}

// Annotations returns tool hints for LLMs
func (t *ExecuteRangeQueryTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Execute PromQL Range Query")
}

// Description returns the tool description
func (t *ExecuteRangeQueryTool) Description() string {
	return `Execute a PromQL range query with start time, end time, and step interval.

Returns {resultType: "matrix", result, links}. Every [timestamp, value] pair has its timestamp
rendered as an ISO 8601 UTC string. Progress notifications are sent while the query runs.

**Tips:**
- Keep (end - start) / step under 11000 points
- Use execute_query for a single point in time`
}

// InputSchema returns the input schema
func (t *ExecuteRangeQueryTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "PromQL expression to evaluate",
				"minLength":   1,
			},
			"start": map[string]interface{}{
				"type":        "string",
				"description": "Start time as RFC 3339 or Unix timestamp",
				"examples":    []string{"2024-05-01T20:00:00Z", "1714593600"},
			},
			"end": map[string]interface{}{
				"type":        "string",
				"description": "End time as RFC 3339 or Unix timestamp",
				"examples":    []string{"2024-05-01T21:00:00Z", "1714597200"},
			},
			"step": map[string]interface{}{
				"type":        "string",
				"description": "Query resolution step width as a duration or float number of seconds",
				"examples":    []string{"15s", "1m", "30"},
			},
		},
		"required": []string{"query", "start", "end", "step"},
	}
}

// Execute executes the tool
func (t *ExecuteRangeQueryTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	var args [4]string
	for i, key := range []string{"query", "start", "end", "step"} {
		v, err := GetStringParam(arguments, key, true)
		if err != nil {
			return HandleError(ctx, err), nil
		}
		args[i] = v
	}
	query, start, end, step := args[0], args[1], args[2], args[3]

	result, err := t.Run(ctx, query, start, end, step)
	if err != nil {
		return HandleError(ctx, err), nil
	}
	return t.FormatResponse(result, RangeQueryLink(t.baseURL, query, start, end, step))
}

// Run evaluates the range query, reporting progress through the reporter
// attached to ctx.
func (t *ExecuteRangeQueryTool) Run(ctx context.Context, query, start, end, step string) (interface{}, error) {
	tracker := progress.NewTracker(ctx, t.logger)
	tracker.Step(ctx, 0, msgRangeStart)

	data, err := t.request(ctx, "query_range", map[string]string{
		"query": query,
		"start": start,
		"end":   end,
		"step":  step,
	})
	if err != nil {
		return nil, err
	}

	tracker.Step(ctx, 50, msgRangeProcess)

	result, err := normalize.QueryResult(data)
	if err != nil {
		return nil, err
	}

	tracker.Step(ctx, progress.Scale, msgRangeDone)
	return withLinks(result, RangeQueryLink(t.baseURL, query, start, end, step)), nil
}
