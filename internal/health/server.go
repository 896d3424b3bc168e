package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// probeTimeout bounds one /health evaluation, backend probe included.
const probeTimeout = 5 * time.Second

// Server exposes the health report over HTTP for orchestrators:
//
//	GET /health   the report health_check returns (503 when unhealthy)
//	GET /ready    200 once the MCP transport is serving
//	GET /live     200 while the process runs
//	GET /metrics  self metrics, when enabled
type Server struct {
	checker    *Checker
	logger     *zap.Logger
	httpServer *http.Server
	withMetric bool
	ready      atomic.Bool
}

// NewServer creates a health server for bindAddr:port. An empty bindAddr
// means 127.0.0.1. gatherer is served on /metrics when metricsEnabled.
func NewServer(checker *Checker, gatherer prometheus.Gatherer, logger *zap.Logger, port int, bindAddr string, metricsEnabled bool) *Server {
	if bindAddr == "" {
		bindAddr = "127.0.0.1"
	}
	s := &Server{
		checker:    checker,
		logger:     logger.Named("health_server"),
		withMetric: metricsEnabled && gatherer != nil,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.serveHealth)
	mux.HandleFunc("GET /ready", s.serveReady)
	mux.HandleFunc("GET /live", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, probeBody{Status: "alive"})
	})
	if s.withMetric {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(bindAddr, strconv.Itoa(port)),
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       5 * time.Second,
		// /health may wait for the backend probe
		WriteTimeout: 2 * probeTimeout,
		IdleTimeout:  time.Minute,
	}
	return s
}

// HTTPStatus maps a report status to the /health response code. A degraded
// server still answers 200: it is running, only Prometheus is unreachable.
func HTTPStatus(status Status) int {
	if status == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

type probeBody struct {
	Status string `json:"status"`
}

// SetReady flips the /ready answer.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Start listens and serves until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("Health endpoints listening",
		zap.String("address", s.httpServer.Addr),
		zap.Bool("metrics_enabled", s.withMetric),
	)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener, waiting for in-flight checks up to ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Stopping health endpoints")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the routing handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	report := s.checker.Check(ctx)
	s.writeJSON(w, HTTPStatus(report.Status), report)
}

func (s *Server) serveReady(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		s.writeJSON(w, http.StatusServiceUnavailable, probeBody{Status: "not_ready"})
		return
	}
	s.writeJSON(w, http.StatusOK, probeBody{Status: "ready"})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug("Failed to write health response", zap.Error(err))
	}
}
