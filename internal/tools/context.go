package tools

import (
	"context"
)

type failureKey struct{}

// Failure captures the error behind an error result, so callers that only
// see the *mcp.CallToolResult can still classify what went wrong.
type Failure struct {
	err error
}

// Err returns the recorded error, or nil when the call succeeded.
func (f *Failure) Err() error {
	if f == nil {
		return nil
	}
	return f.err
}

// WithFailure attaches an empty Failure to the context. Tools executed
// with the returned context record their error into it.
func WithFailure(ctx context.Context) (context.Context, *Failure) {
	f := &Failure{}
	return context.WithValue(ctx, failureKey{}, f), f
}

func recordFailure(ctx context.Context, err error) {
	if f, ok := ctx.Value(failureKey{}).(*Failure); ok && f != nil {
		f.err = err
	}
}
