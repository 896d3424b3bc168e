package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// GetTargetsTool reports the scrape targets Prometheus knows about.
type GetTargetsTool struct {
	*BaseTool
}

// NewGetTargetsTool creates a new tool instance
func NewGetTargetsTool(backend Backend, baseURL string, logger *zap.Logger) *GetTargetsTool {
	return &GetTargetsTool{
		BaseTool: NewBaseTool(backend, baseURL, logger),
	}
}

// Name returns the tool name
func (t *GetTargetsTool) Name() string {
	return "get_targets"
}

// Annotations returns tool hints for LLMs
func (t *GetTargetsTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Get Scrape Targets")
}

// Description returns the tool description
func (t *GetTargetsTool) Description() string {
	return `Get information about all scrape targets.

Returns {activeTargets, droppedTargets, links} as reported by Prometheus, including each
target's health, last scrape time and last error.`
}

// InputSchema returns the input schema
func (t *GetTargetsTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// Execute executes the tool
func (t *GetTargetsTool) Execute(ctx context.Context, _ map[string]interface{}) (*mcp.CallToolResult, error) {
	targets, err := t.Run(ctx)
	if err != nil {
		return HandleError(ctx, err), nil
	}
	return t.FormatResponse(targets, TargetsLink(t.baseURL))
}

// Run fetches the targets. The payload is returned as Prometheus sent it,
// plus a links array when it is an object.
func (t *GetTargetsTool) Run(ctx context.Context) (interface{}, error) {
	data, err := t.request(ctx, "targets", nil)
	if err != nil {
		return nil, err
	}
	return withLinks(data, TargetsLink(t.baseURL)), nil
}
