package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/tareqmamari/prometheus-mcp-server/internal/progress"
)

const testBaseURL = "http://prometheus:9090"

type backendCall struct {
	endpoint string
	params   map[string]string
}

// fakeBackend answers every request with a fixed payload or error.
type fakeBackend struct {
	mu    sync.Mutex
	data  any
	err   error
	calls []backendCall
}

func (b *fakeBackend) Request(_ context.Context, endpoint string, params map[string]string) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, backendCall{endpoint: endpoint, params: params})
	return b.data, b.err
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

type progressEvent struct {
	progress float64
	total    float64
	message  string
	calls    int // backend calls made when the event was sent
}

// recordingReporter collects progress events in order.
type recordingReporter struct {
	backend *fakeBackend
	events  []progressEvent
}

func (r *recordingReporter) Report(_ context.Context, p, total float64, message string) error {
	ev := progressEvent{progress: p, total: total, message: message}
	if r.backend != nil {
		ev.calls = r.backend.callCount()
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingReporter) progressValues() []float64 {
	values := make([]float64, 0, len(r.events))
	for _, ev := range r.events {
		values = append(values, ev.progress)
	}
	return values
}

func (r *recordingReporter) messages() []string {
	msgs := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		msgs = append(msgs, ev.message)
	}
	return msgs
}

func withRecorder(backend *fakeBackend) (context.Context, *recordingReporter) {
	rec := &recordingReporter{backend: backend}
	return progress.WithReporter(context.Background(), rec), rec
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func decodeResult(t *testing.T, result *mcp.CallToolResult, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), into))
}

func resourceLink(t *testing.T, result *mcp.CallToolResult) *mcp.ResourceLink {
	t.Helper()
	require.Len(t, result.Content, 2)
	link, ok := result.Content[1].(*mcp.ResourceLink)
	require.True(t, ok, "expected resource link, got %T", result.Content[1])
	return link
}

func vectorData() map[string]interface{} {
	return map[string]interface{}{
		"resultType": "vector",
		"result": []interface{}{
			map[string]interface{}{
				"metric": map[string]interface{}{"__name__": "up", "job": "prometheus"},
				"value":  []interface{}{float64(1617898448), "1"},
			},
		},
	}
}

func matrixData() map[string]interface{} {
	return map[string]interface{}{
		"resultType": "matrix",
		"result": []interface{}{
			map[string]interface{}{
				"metric": map[string]interface{}{"__name__": "up"},
				"values": []interface{}{
					[]interface{}{float64(1617898400), "1"},
					[]interface{}{float64(1617898415), "0"},
				},
			},
		},
	}
}

func withFailingReporter(ctx context.Context) context.Context {
	return progress.WithReporter(ctx, progress.ReporterFunc(func(context.Context, float64, float64, string) error {
		return errors.New("session closed")
	}))
}
