// Package progress delivers incremental progress updates for long-running
// tool calls.
package progress

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Scale is the total every update is reported against.
const Scale = 100

// Reporter receives progress updates for a single tool invocation.
type Reporter interface {
	Report(ctx context.Context, progress, total float64, message string) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, progress, total float64, message string) error

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, progress, total float64, message string) error {
	return f(ctx, progress, total, message)
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, float64, float64, string) error { return nil }

// Nop discards every update.
var Nop Reporter = nopReporter{}

type contextKey struct{}

// WithReporter attaches r to the context. A nil reporter attaches Nop.
func WithReporter(ctx context.Context, r Reporter) context.Context {
	if r == nil {
		r = Nop
	}
	return context.WithValue(ctx, contextKey{}, r)
}

// FromContext returns the reporter attached to ctx, or Nop.
func FromContext(ctx context.Context) Reporter {
	if r, ok := ctx.Value(contextKey{}).(Reporter); ok && r != nil {
		return r
	}
	return Nop
}

// sessionReporter sends notifications/progress to the calling MCP session.
type sessionReporter struct {
	session *mcp.ServerSession
	token   any
}

func (r *sessionReporter) Report(ctx context.Context, progress, total float64, message string) error {
	return r.session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
		ProgressToken: r.token,
		Progress:      progress,
		Total:         total,
		Message:       message,
	})
}

// ForRequest returns a reporter bound to the session that issued req.
// Clients that did not ask for progress (no progress token) get Nop.
func ForRequest(req *mcp.CallToolRequest) Reporter {
	if req == nil || req.Session == nil || req.Params == nil {
		return Nop
	}
	token := req.Params.GetProgressToken()
	if token == nil {
		return Nop
	}
	return &sessionReporter{session: req.Session, token: token}
}
