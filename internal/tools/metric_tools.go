package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/tareqmamari/prometheus-mcp-server/internal/normalize"
	"github.com/tareqmamari/prometheus-mcp-server/internal/progress"
)

const msgListStart = "Fetching metrics list..."

// ListMetricsTool lists every metric name known to Prometheus.
type ListMetricsTool struct {
	*BaseTool
}

// NewListMetricsTool creates a new tool instance
func NewListMetricsTool(backend Backend, baseURL string, logger *zap.Logger) *ListMetricsTool {
	return &ListMetricsTool{
		BaseTool: NewBaseTool(backend, baseURL, logger),
	}
}

// Name returns the tool name
func (t *ListMetricsTool) Name() string {
	return "list_metrics"
}

// Annotations returns tool hints for LLMs
func (t *ListMetricsTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("List Available Metrics")
}

// Description returns the tool description
func (t *ListMetricsTool) Description() string {
	return `List all metric names available in Prometheus.

Returns a JSON array of metric names. Progress notifications are sent while the list is fetched.
Use get_metric_metadata to learn a metric's type and help text.`
}

// InputSchema returns the input schema
func (t *ListMetricsTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// Execute executes the tool
func (t *ListMetricsTool) Execute(ctx context.Context, _ map[string]interface{}) (*mcp.CallToolResult, error) {
	names, err := t.Run(ctx)
	if err != nil {
		return HandleError(ctx, err), nil
	}
	return t.FormatResponse(names, MetricsExplorerLink(t.baseURL))
}

// Run fetches the metric names, reporting progress through the reporter
// attached to ctx.
func (t *ListMetricsTool) Run(ctx context.Context) ([]interface{}, error) {
	tracker := progress.NewTracker(ctx, t.logger)
	tracker.Step(ctx, 0, msgListStart)

	data, err := t.request(ctx, "label/__name__/values", nil)
	if err != nil {
		return nil, err
	}

	var names []interface{}
	switch v := data.(type) {
	case []interface{}:
		names = v
	case nil:
		names = []interface{}{}
	default:
		return nil, fmt.Errorf("unexpected label values response of type %T", data)
	}

	tracker.Step(ctx, progress.Scale, fmt.Sprintf("Retrieved %d metrics", len(names)))
	return names, nil
}

// GetMetricMetadataTool returns type, help and unit for a metric.
type GetMetricMetadataTool struct {
	*BaseTool
}

// NewGetMetricMetadataTool creates a new tool instance
func NewGetMetricMetadataTool(backend Backend, baseURL string, logger *zap.Logger) *GetMetricMetadataTool {
	return &GetMetricMetadataTool{
		BaseTool: NewBaseTool(backend, baseURL, logger),
	}
}

// Name returns the tool name
func (t *GetMetricMetadataTool) Name() string {
	return "get_metric_metadata"
}

// Annotations returns tool hints for LLMs
func (t *GetMetricMetadataTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Get Metric Metadata")
}

// Description returns the tool description
func (t *GetMetricMetadataTool) Description() string {
	return `Get metadata (type, help text, unit) for a specific metric.

Returns a JSON array of {metric, type, help, unit} entries. The array is empty when Prometheus
has no metadata for the metric.`
}

// InputSchema returns the input schema
func (t *GetMetricMetadataTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"metric": map[string]interface{}{
				"type":        "string",
				"description": "Metric name, for example http_requests_total",
				"minLength":   1,
			},
		},
		"required": []string{"metric"},
	}
}

// Execute executes the tool
func (t *GetMetricMetadataTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	metric, err := GetStringParam(arguments, "metric", true)
	if err != nil {
		return HandleError(ctx, err), nil
	}

	entries, err := t.Run(ctx, metric)
	if err != nil {
		return HandleError(ctx, err), nil
	}
	return t.FormatResponse(entries, MetadataLink(t.baseURL, metric))
}

// Run fetches the metadata entries for metric.
func (t *GetMetricMetadataTool) Run(ctx context.Context, metric string) ([]interface{}, error) {
	data, err := t.request(ctx, "metadata", map[string]string{"metric": metric})
	if err != nil {
		return nil, err
	}
	return normalize.Metadata(data), nil
}
