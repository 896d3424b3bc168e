package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/tareqmamari/prometheus-mcp-server/internal/health"
)

// HealthCheckTool reports the health of this server and its Prometheus
// connection. Unlike the query tools it never fails: configuration and
// connectivity problems are part of the report.
type HealthCheckTool struct {
	*BaseTool
	checker *health.Checker
}

// NewHealthCheckTool creates a new tool instance
func NewHealthCheckTool(checker *health.Checker, baseURL string, logger *zap.Logger) *HealthCheckTool {
	return &HealthCheckTool{
		BaseTool: NewBaseTool(nil, baseURL, logger),
		checker:  checker,
	}
}

// Name returns the tool name
func (t *HealthCheckTool) Name() string {
	return "health_check"
}

// Annotations returns tool hints for LLMs
func (t *HealthCheckTool) Annotations() *mcp.ToolAnnotations {
	return ReadOnlyAnnotations("Health Check")
}

// Description returns the tool description
func (t *HealthCheckTool) Description() string {
	return `Health check endpoint for container monitoring and status verification.

Returns {status, service, version, timestamp, configuration, ...}. status is "healthy" when
Prometheus answers, "degraded" when it is configured but unreachable, and "unhealthy" when the
server is not configured.`
}

// InputSchema returns the input schema
func (t *HealthCheckTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// Execute executes the tool
func (t *HealthCheckTool) Execute(ctx context.Context, _ map[string]interface{}) (*mcp.CallToolResult, error) {
	return t.FormatResponse(t.Run(ctx), nil)
}

// Run evaluates health now.
func (t *HealthCheckTool) Run(ctx context.Context) health.Report {
	return t.checker.Check(ctx)
}
