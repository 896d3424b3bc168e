// Package tools provides the MCP tool implementations for Prometheus.
package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool defines the interface that all MCP tools must implement.
type Tool interface {
	// Name returns the unique identifier for this tool
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// InputSchema returns the JSON Schema for the tool's input parameters
	InputSchema() interface{}

	// Annotations returns hints about tool behavior for LLMs
	Annotations() *mcp.ToolAnnotations

	// Execute runs the tool. Failures are reported as a result with
	// IsError set; a non-nil error means the call itself could not be served.
	Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error)
}

// Backend issues requests against the Prometheus HTTP API. endpoint is the
// path below /api/v1/ (for example "query" or "label/__name__/values") and
// the returned value is the decoded "data" member of the response.
type Backend interface {
	Request(ctx context.Context, endpoint string, params map[string]string) (any, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, endpoint string, params map[string]string) (any, error)

// Request calls f.
func (f BackendFunc) Request(ctx context.Context, endpoint string, params map[string]string) (any, error) {
	return f(ctx, endpoint, params)
}
