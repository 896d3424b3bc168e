// Package metrics provides self-monitoring for the MCP server: backend
// request and tool call counters exposed in Prometheus format.
package metrics

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const namespace = "prometheus_mcp"

// Prometheus metric labels
const (
	labelTool     = "tool"
	labelEndpoint = "endpoint"
	labelStatus   = "status"
	labelOutcome  = "outcome"
)

// Metrics tracks backend requests and tool calls. Each value is kept both
// as an internal counter (for the shutdown summary) and as a Prometheus
// collector registered on the registry given to New.
type Metrics struct {
	totalRequests   atomic.Uint64
	failedRequests  atomic.Uint64
	retriedRequests atomic.Uint64
	rateLimitWaits  atomic.Uint64

	totalLatency atomic.Int64 // microseconds
	maxLatency   atomic.Int64

	toolsMu    sync.RWMutex
	toolUsage  map[string]uint64
	toolErrors map[string]uint64

	logger   *zap.Logger
	gatherer prometheus.Gatherer

	promRequests       *prometheus.CounterVec
	promRequestLatency *prometheus.HistogramVec
	promRetries        prometheus.Counter
	promRateLimitWaits prometheus.Counter
	promToolCalls      *prometheus.CounterVec
	promToolLatency    *prometheus.HistogramVec
	promProgress       prometheus.Counter
}

// New creates a metrics tracker whose collectors are registered on reg.
// Passing nil uses a fresh private registry.
func New(logger *zap.Logger, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		toolUsage:  make(map[string]uint64),
		toolErrors: make(map[string]uint64),
		logger:     logger,
		gatherer:   reg,

		promRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Requests sent to the Prometheus HTTP API, by endpoint and response status",
		}, []string{labelEndpoint, labelStatus}),
		promRequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Prometheus HTTP API request latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		}, []string{labelEndpoint}),
		promRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_retries_total",
			Help:      "Retried Prometheus HTTP API requests",
		}),
		promRateLimitWaits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_waits_total",
			Help:      "Requests delayed by the client-side rate limiter",
		}),
		promToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "MCP tool calls, by tool name and outcome",
		}, []string{labelTool, labelOutcome}),
		promToolLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "MCP tool execution latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{labelTool}),
		promProgress: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_notifications_total",
			Help:      "Progress notifications sent to MCP clients",
		}),
	}
}

// Gatherer returns the registry the collectors live in, for promhttp.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}

// RecordRequest records one backend request. statusCode is 0 when no
// response was received.
func (m *Metrics) RecordRequest(endpoint string, statusCode int, latency time.Duration) {
	m.totalRequests.Add(1)
	if statusCode == 0 || statusCode >= 400 {
		m.failedRequests.Add(1)
	}

	us := latency.Microseconds()
	m.totalLatency.Add(us)
	for {
		current := m.maxLatency.Load()
		if us <= current || m.maxLatency.CompareAndSwap(current, us) {
			break
		}
	}

	status := "error"
	if statusCode != 0 {
		status = strconv.Itoa(statusCode)
	}
	m.promRequests.WithLabelValues(endpoint, status).Inc()
	m.promRequestLatency.WithLabelValues(endpoint).Observe(latency.Seconds())
}

// RecordRetry records a retry attempt
func (m *Metrics) RecordRetry() {
	m.retriedRequests.Add(1)
	m.promRetries.Inc()
}

// RecordRateLimitWait records a request that had to wait for a token.
func (m *Metrics) RecordRateLimitWait() {
	m.rateLimitWaits.Add(1)
	m.promRateLimitWaits.Inc()
}

// RecordProgress counts a delivered progress notification.
func (m *Metrics) RecordProgress() {
	m.promProgress.Inc()
}

// RecordToolExecution records one tool call.
func (m *Metrics) RecordToolExecution(toolName string, success bool, latency time.Duration) {
	m.toolsMu.Lock()
	m.toolUsage[toolName]++
	if !success {
		m.toolErrors[toolName]++
	}
	m.toolsMu.Unlock()

	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.promToolCalls.WithLabelValues(toolName, outcome).Inc()
	m.promToolLatency.WithLabelValues(toolName).Observe(latency.Seconds())
}

// Stats is a point-in-time copy of the internal counters.
type Stats struct {
	TotalRequests   uint64
	FailedRequests  uint64
	RetriedRequests uint64
	RateLimitWaits  uint64
	AverageLatency  time.Duration
	MaxLatency      time.Duration
	ToolUsage       map[string]uint64
	ToolErrors      map[string]uint64
}

// GetStats returns current statistics
func (m *Metrics) GetStats() Stats {
	m.toolsMu.RLock()
	toolUsage := make(map[string]uint64, len(m.toolUsage))
	toolErrors := make(map[string]uint64, len(m.toolErrors))
	for k, v := range m.toolUsage {
		toolUsage[k] = v
	}
	for k, v := range m.toolErrors {
		toolErrors[k] = v
	}
	m.toolsMu.RUnlock()

	total := m.totalRequests.Load()
	var avg time.Duration
	if total > 0 {
		avg = time.Duration(float64(m.totalLatency.Load())/float64(total)) * time.Microsecond
	}

	return Stats{
		TotalRequests:   total,
		FailedRequests:  m.failedRequests.Load(),
		RetriedRequests: m.retriedRequests.Load(),
		RateLimitWaits:  m.rateLimitWaits.Load(),
		AverageLatency:  avg,
		MaxLatency:      time.Duration(m.maxLatency.Load()) * time.Microsecond,
		ToolUsage:       toolUsage,
		ToolErrors:      toolErrors,
	}
}

// LogStats logs current statistics
func (m *Metrics) LogStats() {
	stats := m.GetStats()

	var errorRate float64
	if stats.TotalRequests > 0 {
		errorRate = float64(stats.FailedRequests) / float64(stats.TotalRequests) * 100
	}

	m.logger.Info("Operational metrics",
		zap.Uint64("total_requests", stats.TotalRequests),
		zap.Uint64("failed_requests", stats.FailedRequests),
		zap.Float64("error_rate_pct", errorRate),
		zap.Uint64("retried_requests", stats.RetriedRequests),
		zap.Uint64("rate_limit_waits", stats.RateLimitWaits),
		zap.Duration("avg_latency", stats.AverageLatency),
		zap.Duration("max_latency", stats.MaxLatency),
		zap.Any("tool_usage", stats.ToolUsage),
	)
}
