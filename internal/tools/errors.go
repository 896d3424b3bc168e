package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// textResult wraps text as the single content block of a tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// NewToolResultError reports a failed call to the client as a result, so
// the model sees the message instead of a protocol error.
func NewToolResultError(message string) *mcp.CallToolResult {
	if message == "" {
		message = "An unknown error occurred"
	}
	result := textResult(message)
	result.IsError = true
	return result
}

// HandleError turns a failed Run into an error result carrying the
// unchanged error text. The typed error is kept in the context's Failure.
func HandleError(ctx context.Context, err error) *mcp.CallToolResult {
	recordFailure(ctx, err)
	return NewToolResultError(err.Error())
}
