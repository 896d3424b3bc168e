package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// ErrNoBackend is returned when a tool has no backend to talk to.
var ErrNoBackend = errors.New("no Prometheus backend configured")

// BaseTool provides common functionality for all tools
type BaseTool struct {
	backend Backend
	baseURL string
	logger  *zap.Logger
}

// NewBaseTool creates a new base tool. baseURL is the Prometheus URL used
// for deep links into its web UI.
func NewBaseTool(backend Backend, baseURL string, logger *zap.Logger) *BaseTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseTool{
		backend: backend,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// request sends one API request to the backend. Errors are returned
// unwrapped so their text reaches the caller as the backend produced it.
func (t *BaseTool) request(ctx context.Context, endpoint string, params map[string]string) (any, error) {
	if t.backend == nil {
		return nil, ErrNoBackend
	}

	t.logger.Debug("Prometheus API request",
		zap.String("endpoint", endpoint),
		zap.Any("params", params),
	)
	return t.backend.Request(ctx, endpoint, params)
}

// FormatResponse renders value as indented JSON text. A non-nil link is
// appended as a resource_link block so list-shaped results, which cannot
// carry a "links" key, still point at the Prometheus UI.
func (t *BaseTool) FormatResponse(value interface{}, link *Link) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return NewToolResultError(fmt.Sprintf("Error formatting response: %v", err)), nil
	}

	t.logger.Debug("Formatted tool response",
		zap.Int("items", countItems(value)),
		zap.Int("bytes", len(jsonBytes)),
	)

	result := textResult(string(jsonBytes))
	if link != nil {
		result.Content = append(result.Content, link.ResourceLink())
	}
	return result, nil
}

// countItems reports how many series, entries or names a result holds.
func countItems(value interface{}) int {
	switch v := value.(type) {
	case []interface{}:
		return len(v)
	case map[string]interface{}:
		if items, ok := v["result"].([]interface{}); ok {
			return len(items)
		}
		if items, ok := v["activeTargets"].([]interface{}); ok {
			return len(items)
		}
	}
	return 0
}

// Summarize reports the result type and item count of a successful tool
// result, for tracing and auditing.
func Summarize(result *mcp.CallToolResult) (resultType string, count int) {
	if result == nil || result.IsError || len(result.Content) == 0 {
		return "", 0
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		return "", 0
	}

	var value interface{}
	if err := json.Unmarshal([]byte(text.Text), &value); err != nil {
		return "", 0
	}
	switch v := value.(type) {
	case []interface{}:
		return "list", countItems(v)
	case map[string]interface{}:
		if rt, ok := v["resultType"].(string); ok {
			return rt, countItems(v)
		}
		return "object", countItems(v)
	}
	return "", 0
}
