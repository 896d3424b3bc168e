package tools

import (
	"go.uber.org/zap"

	"github.com/tareqmamari/prometheus-mcp-server/internal/health"
)

// GetAllTools returns every tool the server exposes, in registration order.
func GetAllTools(backend Backend, baseURL string, checker *health.Checker, logger *zap.Logger) []Tool {
	return []Tool{
		// Query tools
		NewExecuteQueryTool(backend, baseURL, logger),
		NewExecuteRangeQueryTool(backend, baseURL, logger),

		// Discovery tools
		NewListMetricsTool(backend, baseURL, logger),
		NewGetMetricMetadataTool(backend, baseURL, logger),
		NewGetTargetsTool(backend, baseURL, logger),

		// Operations
		NewHealthCheckTool(checker, baseURL, logger),
	}
}
