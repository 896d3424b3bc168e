// Package tracing wires OpenTelemetry spans around tool calls and
// Prometheus API requests.
package tracing

import (
	"context"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/tareqmamari/prometheus-mcp-server"

// Config holds OpenTelemetry configuration
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
}

var (
	tracerMu sync.RWMutex
	tracer   trace.Tracer
)

// Init installs a tracer provider that writes spans to stderr. Stdout is
// reserved for the stdio transport. The returned function flushes and
// stops the provider.
func Init(cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	SetTracerProvider(tp)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}

// SetTracerProvider replaces the provider spans are created from.
func SetTracerProvider(tp trace.TracerProvider) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	tracer = tp.Tracer(instrumentationName)
}

func getTracer() trace.Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if tracer == nil {
		return otel.Tracer(instrumentationName)
	}
	return tracer
}

// ToolSpan starts a span for one MCP tool call.
func ToolSpan(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return getTracer().Start(ctx, "mcp.tool."+toolName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("mcp.tool.name", toolName)),
	)
}

// BackendSpan starts a span for a request to the Prometheus HTTP API.
func BackendSpan(ctx context.Context, endpoint string) (context.Context, trace.Span) {
	return getTracer().Start(ctx, "prometheus.api."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", "GET"),
			attribute.String("prometheus.endpoint", endpoint),
		),
	)
}

// RecordError marks the span as failed.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetStatusCode records the HTTP status of a backend response.
func SetStatusCode(span trace.Span, statusCode int) {
	span.SetAttributes(attribute.Int("http.response.status_code", statusCode))
}

// SetResult records the shape of a normalised tool result.
func SetResult(span trace.Span, resultType string, itemCount int) {
	span.SetAttributes(
		attribute.String("prometheus.result_type", resultType),
		attribute.Int("mcp.result.count", itemCount),
	)
}

// TraceID returns the hex trace id of the span in ctx, or "".
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
