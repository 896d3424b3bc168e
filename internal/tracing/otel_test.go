package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	return rec
}

func TestToolAndBackendSpans(t *testing.T) {
	rec := newRecorder(t)

	ctx, toolSpan := ToolSpan(context.Background(), "execute_query")
	assert.NotEmpty(t, TraceID(ctx))

	_, apiSpan := BackendSpan(ctx, "query")
	SetStatusCode(apiSpan, 200)
	apiSpan.End()

	SetResult(toolSpan, "vector", 3)
	toolSpan.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "prometheus.api.query", spans[0].Name())
	assert.Equal(t, "mcp.tool.execute_query", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].Parent().TraceID())
}

func TestRecordError(t *testing.T) {
	rec := newRecorder(t)

	_, span := ToolSpan(context.Background(), "get_targets")
	RecordError(span, nil)
	RecordError(span, errors.New("connection refused"))
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "connection refused", spans[0].Status().Description)
}

func TestTraceIDWithoutSpan(t *testing.T) {
	assert.Equal(t, "", TraceID(context.Background()))
}

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
