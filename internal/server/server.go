// Package server provides the MCP server implementation for Prometheus.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/tareqmamari/prometheus-mcp-server/internal/audit"
	"github.com/tareqmamari/prometheus-mcp-server/internal/client"
	"github.com/tareqmamari/prometheus-mcp-server/internal/config"
	"github.com/tareqmamari/prometheus-mcp-server/internal/health"
	"github.com/tareqmamari/prometheus-mcp-server/internal/metrics"
	"github.com/tareqmamari/prometheus-mcp-server/internal/progress"
	"github.com/tareqmamari/prometheus-mcp-server/internal/tools"
	"github.com/tareqmamari/prometheus-mcp-server/internal/tracing"
)

// shutdownTimeout bounds how long HTTP listeners get to drain.
const shutdownTimeout = 5 * time.Second

// Server represents the MCP server
type Server struct {
	mcpServer    *mcp.Server
	apiClient    *client.Client
	config       *config.Config
	logger       *zap.Logger
	metrics      *metrics.Metrics
	audit        *audit.Logger
	version      string
	checker      *health.Checker
	healthServer *health.Server
}

// New creates a new MCP server instance.
func New(cfg *config.Config, logger *zap.Logger, version string) (*Server, error) {
	metricsTracker := metrics.New(logger, nil)

	apiClient, err := client.New(cfg, logger, version, metricsTracker)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "Prometheus MCP",
		Version: version,
	}, &mcp.ServerOptions{
		HasTools: true,
	})

	// The health tool and the health endpoints read the same loaded config.
	readConfig := func() (*config.Config, error) { return cfg, nil }
	checker := health.New(readConfig, apiClient, health.ServiceInfo{Version: version}, logger)

	s := &Server{
		mcpServer: mcpServer,
		apiClient: apiClient,
		config:    cfg,
		logger:    logger,
		metrics:   metricsTracker,
		audit:     audit.NewLogger(logger, cfg.EnableAuditLog),
		version:   version,
		checker:   checker,
	}

	// Create health server if port is configured (port > 0)
	if cfg.HealthPort > 0 {
		s.healthServer = health.NewServer(checker, metricsTracker.Gatherer(), logger, cfg.HealthPort, cfg.HealthBindAddr, cfg.MetricsEndpoint)
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	all := tools.GetAllTools(s.apiClient, s.apiClient.BaseURL(), s.checker, s.logger)
	for _, t := range all {
		s.registerTool(t)
	}
	s.logger.Info("Registered all MCP tools", zap.Int("count", len(all)))
}

// registerTool registers a single tool with the MCP server.
func (s *Server) registerTool(t tools.Tool) {
	mcpTool := &mcp.Tool{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
		Annotations: t.Annotations(),
	}

	s.mcpServer.AddTool(mcpTool, s.toolHandler(t))
	s.logger.Debug("Registered tool", zap.String("tool", mcpTool.Name))
}

// toolHandler wraps a tool's Execute with argument decoding, progress
// delivery, tracing, metrics and audit logging.
func (s *Server) toolHandler(t tools.Tool) mcp.ToolHandler {
	toolName := t.Name()

	return func(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		ctx, span := tracing.ToolSpan(ctx, toolName)
		defer span.End()

		ctx, recorded := tools.WithFailure(ctx)
		ctx = progress.WithReporter(ctx, s.countingReporter(progress.ForRequest(request)))

		var args map[string]interface{}
		if request != nil && request.Params != nil && len(request.Params.Arguments) > 0 {
			if err := json.Unmarshal(request.Params.Arguments, &args); err != nil {
				err = fmt.Errorf("failed to unmarshal arguments: %w", err)
				tracing.RecordError(span, err)
				s.metrics.RecordToolExecution(toolName, false, time.Since(start))
				s.audit.LogToolExecution(ctx, toolName, nil, time.Since(start), 0, err)
				return nil, err
			}
		}

		result, err := t.Execute(ctx, args)
		duration := time.Since(start)

		failure := err
		if failure == nil && result != nil && result.IsError {
			failure = recorded.Err()
			if failure == nil {
				failure = errors.New(resultText(result))
			}
		}
		resultType, count := tools.Summarize(result)
		if failure != nil {
			tracing.RecordError(span, failure)
		} else {
			tracing.SetResult(span, resultType, count)
		}

		s.metrics.RecordToolExecution(toolName, failure == nil, duration)
		s.audit.LogToolExecution(ctx, toolName, args, duration, count, failure)

		return result, err
	}
}

// countingReporter counts delivered progress notifications. Requests
// without a progress token keep the Nop reporter.
func (s *Server) countingReporter(r progress.Reporter) progress.Reporter {
	if r == progress.Nop {
		return r
	}
	return progress.ReporterFunc(func(ctx context.Context, p, total float64, message string) error {
		s.metrics.RecordProgress()
		return r.Report(ctx, p, total, message)
	})
}

func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := c.(*mcp.TextContent); ok {
			return text.Text
		}
	}
	return "tool returned an error"
}

// Start starts the MCP server on the configured transport and blocks until
// ctx is cancelled or the transport fails.
func (s *Server) Start(ctx context.Context) error {
	transport := s.config.Transport()
	s.logger.Info("Starting MCP server", zap.String("transport", transport))

	// Start health HTTP server in background if configured
	if s.healthServer != nil {
		go func() {
			if err := s.healthServer.Start(); err != nil {
				s.logger.Error("Health server error", zap.Error(err))
			}
		}()
		// Mark as ready once server is starting
		s.healthServer.SetReady(true)
	}

	defer s.shutdown()

	switch transport {
	case config.TransportHTTP:
		handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcpServer }, nil)
		return s.serveHTTP(ctx, handler)
	case config.TransportSSE:
		handler := mcp.NewSSEHandler(func(*http.Request) *mcp.Server { return s.mcpServer }, nil)
		return s.serveHTTP(ctx, handler)
	default:
		return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
	}
}

// serveHTTP serves handler on the configured bind address until ctx ends.
func (s *Server) serveHTTP(ctx context.Context, handler http.Handler) error {
	addr := s.config.Server().Address()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("MCP HTTP transport listening", zap.String("address", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("MCP HTTP transport failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down MCP HTTP transport: %w", err)
		}
		return nil
	}
}

func (s *Server) shutdown() {
	// Log final metrics on shutdown
	s.metrics.LogStats()

	if s.audit.IsEnabled() {
		stats := s.audit.GetStats()
		s.logger.Info("Audit summary",
			zap.Int("total_entries", stats.TotalEntries),
			zap.Float64("success_rate_pct", stats.SuccessRate),
		)
	}

	if s.healthServer != nil {
		s.healthServer.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.healthServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown health server", zap.Error(err))
		}
	}

	if err := s.apiClient.Close(); err != nil {
		s.logger.Error("Failed to close API client", zap.Error(err))
	}
}
