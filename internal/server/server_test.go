package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tareqmamari/prometheus-mcp-server/internal/config"
	mcperrors "github.com/tareqmamari/prometheus-mcp-server/internal/errors"
	"github.com/tareqmamari/prometheus-mcp-server/internal/progress"
	"github.com/tareqmamari/prometheus-mcp-server/internal/tools"
)

func newPrometheus(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/query":
			if r.URL.Query().Get("query") == "bad(" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"status":"error","errorType":"bad_data","error":"parse error"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[{"metric":{"__name__":"up"},"value":[1617898448.214,"1"]}]}}`))
		case "/api/v1/query_range":
			_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"matrix","result":[{"metric":{"__name__":"up"},"values":[[1617898400,"1"],[1617898460,"1"]]}]}}`))
		case "/api/v1/label/__name__/values":
			_, _ = w.Write([]byte(`{"status":"success","data":["up","go_goroutines"]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, url string) *Server {
	t.Helper()
	cfg := config.Defaults()
	cfg.URL = url
	cfg.EnableAuditLog = true

	s, err := New(cfg, zap.NewNop(), "test")
	require.NoError(t, err)
	return s
}

func callRequest(t *testing.T, args map[string]interface{}) *mcp.CallToolRequest {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}}
}

func toolByName(t *testing.T, s *Server, name string) tools.Tool {
	t.Helper()
	for _, tool := range tools.GetAllTools(s.apiClient, s.apiClient.BaseURL(), s.checker, zap.NewNop()) {
		if tool.Name() == name {
			return tool
		}
	}
	t.Fatalf("tool %s not registered", name)
	return nil
}

func TestToolHandlerSuccess(t *testing.T) {
	prom := newPrometheus(t)
	s := newTestServer(t, prom.URL)

	handler := s.toolHandler(toolByName(t, s, "execute_query"))
	result, err := handler(context.Background(), callRequest(t, map[string]interface{}{"query": "up"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(*mcp.TextContent).Text), &body))
	sample := body["result"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, []interface{}{"2021-04-08T16:14:08Z", "1"}, sample["value"])

	stats := s.metrics.GetStats()
	assert.Equal(t, uint64(1), stats.ToolUsage["execute_query"])
	assert.Equal(t, uint64(1), stats.TotalRequests)

	entries := s.audit.GetRecentEntries(10)
	require.Len(t, entries, 1)
	assert.Equal(t, "execute_query", entries[0].Tool)
	assert.True(t, entries[0].Success)
	assert.Equal(t, 1, entries[0].ResultCount)
}

func TestToolHandlerBackendError(t *testing.T) {
	prom := newPrometheus(t)
	s := newTestServer(t, prom.URL)

	handler := s.toolHandler(toolByName(t, s, "execute_query"))
	result, err := handler(context.Background(), callRequest(t, map[string]interface{}{"query": "bad("}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "Prometheus API error: parse error", result.Content[0].(*mcp.TextContent).Text)

	assert.Equal(t, uint64(1), s.metrics.GetStats().ToolErrors["execute_query"])
	entries := s.audit.GetRecentEntries(1)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Equal(t, string(mcperrors.CodeBackendAPI), entries[0].ErrorCode)
}

func TestToolHandlerInvalidArguments(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")

	handler := s.toolHandler(toolByName(t, s, "execute_query"))
	_, err := handler(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(`[1,2]`)},
	})
	assert.ErrorContains(t, err, "failed to unmarshal arguments")
}

func TestToolHandlerListMetrics(t *testing.T) {
	prom := newPrometheus(t)
	s := newTestServer(t, prom.URL)

	handler := s.toolHandler(toolByName(t, s, "list_metrics"))
	result, err := handler(context.Background(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{}})
	require.NoError(t, err)
	require.False(t, result.IsError)

	var names []string
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(*mcp.TextContent).Text), &names))
	assert.Equal(t, []string{"up", "go_goroutines"}, names)
	link, ok := result.Content[1].(*mcp.ResourceLink)
	require.True(t, ok)
	assert.Equal(t, prom.URL+"/graph", link.URI)
}

func TestCountingReporterKeepsNop(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	assert.Equal(t, progress.Nop, s.countingReporter(progress.Nop))

	var got []string
	r := s.countingReporter(progress.ReporterFunc(func(_ context.Context, _, _ float64, msg string) error {
		got = append(got, msg)
		return nil
	}))
	require.NoError(t, r.Report(context.Background(), 10, 100, "step"))
	assert.Equal(t, []string{"step"}, got)
}

func TestProgressNotificationsReachClient(t *testing.T) {
	prom := newPrometheus(t)
	s := newTestServer(t, prom.URL)
	ctx := context.Background()

	var (
		mu  sync.Mutex
		got []float64
	)
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, &mcp.ClientOptions{
		ProgressNotificationHandler: func(_ context.Context, req *mcp.ProgressNotificationClientRequest) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, req.Params.Progress)
		},
	})

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer func() { _ = serverSession.Close() }()

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	tests := []struct {
		tool  string
		args  map[string]any
		token any
		want  []float64
	}{
		{
			tool:  "execute_range_query",
			args:  map[string]any{"query": "up", "start": "1617898400", "end": "1617898460", "step": "60s"},
			token: "range-1",
			want:  []float64{0, 50, 100},
		},
		{
			tool:  "list_metrics",
			args:  map[string]any{},
			token: "list-1",
			want:  []float64{0, 100},
		},
		{
			tool: "list_metrics",
			args: map[string]any{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			mu.Lock()
			got = nil
			mu.Unlock()

			params := &mcp.CallToolParams{Name: tt.tool, Arguments: tt.args, Meta: mcp.Meta{}}
			if tt.token != nil {
				params.SetProgressToken(tt.token)
			}
			result, err := session.CallTool(ctx, params)
			require.NoError(t, err)
			require.False(t, result.IsError)

			if tt.want == nil {
				time.Sleep(50 * time.Millisecond)
				mu.Lock()
				defer mu.Unlock()
				assert.Empty(t, got)
				return
			}
			assert.Eventually(t, func() bool {
				mu.Lock()
				defer mu.Unlock()
				return len(got) == len(tt.want)
			}, 2*time.Second, 10*time.Millisecond)

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, tt.want, got)
		})
	}
}
