// Package main implements the Prometheus MCP (Model Context Protocol) server.
//
// This server exposes Prometheus to MCP clients: instant and range PromQL
// queries, metric discovery, metric metadata, scrape targets and a health
// check. Results are normalised so every sample timestamp is an ISO 8601
// UTC string.
//
// The server speaks MCP over stdio by default, or over streamable HTTP or
// SSE when PROMETHEUS_MCP_SERVER_TRANSPORT is set.
//
// Configuration is provided through environment variables (a .env file is
// loaded when present) and command line flags:
//   - PROMETHEUS_URL: Prometheus server URL (required)
//   - PROMETHEUS_USERNAME / PROMETHEUS_PASSWORD: basic auth (optional)
//   - PROMETHEUS_TOKEN: bearer token (optional)  // pragma: allowlist secret
//   - ORG_ID: tenant sent as X-Scope-OrgID (optional)
//   - PROMETHEUS_MCP_SERVER_TRANSPORT: stdio, http or sse (optional)
//   - ENVIRONMENT: (Optional) Set to "production" for production logging
//
// Example usage:
//
//	export PROMETHEUS_URL="http://localhost:9090"
//	./prometheus-mcp-server
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tareqmamari/prometheus-mcp-server/internal/config"
	"github.com/tareqmamari/prometheus-mcp-server/internal/server"
	"github.com/tareqmamari/prometheus-mcp-server/internal/tracing"
)

// Build information - set at build time via ldflags
// -X main.version={{.Version}} -X main.commit={{.Commit}}
var (
	version = "1.4.1"
	commit  = "unknown" // Git commit SHA
	builtBy = "manual"  // "goreleaser" or "manual"
)

// shutdownTimeout bounds graceful shutdown after a signal.
const shutdownTimeout = 10 * time.Second

// Command line overrides. They win over the environment when set.
var (
	flagURL           string
	flagTransport     string
	flagBindHost      string
	flagBindPort      int
	flagHealthPort    int
	flagLogLevel      string
	flagEnableTracing bool
)

var rootCmd = &cobra.Command{
	Use:   "prometheus-mcp-server",
	Short: "MCP server for Prometheus",
	Long: `Serve Prometheus queries, metric discovery, metadata and scrape targets
to MCP clients over stdio, streamable HTTP or SSE.

Examples:
  # stdio, for desktop MCP clients
  PROMETHEUS_URL=http://localhost:9090 prometheus-mcp-server

  # streamable HTTP on port 8080
  prometheus-mcp-server --url http://localhost:9090 --transport http --bind-port 8080
`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&flagURL, "url", "",
		"Prometheus server URL (overrides PROMETHEUS_URL)")
	rootCmd.Flags().StringVar(&flagTransport, "transport", "",
		"MCP transport: stdio, http or sse (overrides PROMETHEUS_MCP_SERVER_TRANSPORT)")
	rootCmd.Flags().StringVar(&flagBindHost, "bind-host", "",
		"Bind host for the http and sse transports")
	rootCmd.Flags().IntVar(&flagBindPort, "bind-port", 0,
		"Bind port for the http and sse transports")
	rootCmd.Flags().IntVar(&flagHealthPort, "health-port", 0,
		"Port for /health, /ready, /live and /metrics (0 disables)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "",
		"Log level: debug, info, warn or error")
	rootCmd.Flags().BoolVar(&flagEnableTracing, "enable-tracing", false,
		"Export OpenTelemetry spans to stderr")
}

// main is the entry point for the Prometheus MCP server.
func main() {
	// Load .env file if it exists (optional, for development)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Ignore error on cleanup
	}()

	shutdownTracing, err := tracing.Init(tracing.Config{
		ServiceName:    "prometheus-mcp-server",
		ServiceVersion: version,
		Environment:    os.Getenv("ENVIRONMENT"),
		Enabled:        cfg.EnableTracing,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	redacted := cfg.Redact()
	logger.Info("Starting Prometheus MCP Server",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("built_by", builtBy),
		zap.String("prometheus_url", redacted.URL),
		zap.String("transport", cfg.Transport()),
		zap.Bool("authentication", cfg.AuthConfigured()),
		zap.Bool("org_id", cfg.OrgID != ""),
	)

	mcpServer, err := server.New(cfg, logger, version)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Setup graceful shutdown with timeout
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- mcpServer.Start(ctx)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverDone:
		return err
	}

	logger.Info("Initiating graceful shutdown", zap.Duration("timeout", shutdownTimeout))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	select {
	case <-serverDone:
		logger.Info("Server shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout exceeded, forcing exit", zap.Duration("timeout", shutdownTimeout))
	}
	return nil
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.URL = flagURL
	}
	if flags.Changed("transport") || flags.Changed("bind-host") || flags.Changed("bind-port") {
		srv := cfg.Server()
		if flags.Changed("transport") {
			srv.Transport = flagTransport
		}
		if flags.Changed("bind-host") {
			srv.BindHost = flagBindHost
		}
		if flags.Changed("bind-port") {
			srv.BindPort = flagBindPort
		}
		cfg.MCPServer = &srv
	}
	if flags.Changed("health-port") {
		cfg.HealthPort = flagHealthPort
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if flags.Changed("enable-tracing") {
		cfg.EnableTracing = flagEnableTracing
	}
}

// initLogger initializes and returns a zap logger writing to stderr.
// It creates a production logger if ENVIRONMENT=production, otherwise
// a development logger with more verbose output.
func initLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if os.Getenv("ENVIRONMENT") == "production" {
		zapCfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	// stdout carries the stdio transport
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	return zapCfg.Build()
}
