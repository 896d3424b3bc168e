// Package health computes the server's tri-state health report and serves
// it, together with readiness, liveness and metrics, over HTTP.
package health

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tareqmamari/prometheus-mcp-server/internal/config"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// ServiceName identifies this server in health reports.
const ServiceName = "prometheus-mcp-server"

// ErrURLNotConfigured is reported when no backend URL is set.
var ErrURLNotConfigured = errors.New("PROMETHEUS_URL not configured")

// Configuration summarises which settings are present, never their values.
type Configuration struct {
	PrometheusURLConfigured  bool `json:"prometheus_url_configured"`
	AuthenticationConfigured bool `json:"authentication_configured"`
	OrgIDConfigured          bool `json:"org_id_configured"`
}

// Report is the result of one health evaluation.
type Report struct {
	Status                 Status         `json:"status"`
	Service                string         `json:"service"`
	Version                string         `json:"version"`
	Timestamp              string         `json:"timestamp"`
	PrometheusConnectivity string         `json:"prometheus_connectivity,omitempty"`
	PrometheusURL          string         `json:"prometheus_url,omitempty"`
	PrometheusError        string         `json:"prometheus_error,omitempty"`
	Configuration          *Configuration `json:"configuration,omitempty"`
	Transport              string         `json:"transport,omitempty"`
	Error                  string         `json:"error,omitempty"`
}

// ConfigReader returns the current configuration.
type ConfigReader func() (*config.Config, error)

// Prober checks that the Prometheus backend answers queries.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) error

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// ServiceInfo identifies the running server. Now defaults to time.Now.
type ServiceInfo struct {
	Version string
	Now     func() time.Time
}

// decision inspects the configuration and either settles the report
// (returns true) or defers to the next decision.
type decision func(ctx context.Context, cfg *config.Config, probe Prober, r *Report) bool

// decisions run in order; the first one to settle the report wins.
var decisions = []decision{
	requireURL,
	probeBackend,
}

// Evaluate builds a health report. A configuration that cannot be read
// makes the server unhealthy, as does a missing URL. Otherwise the probe
// decides between healthy and degraded. Evaluate never fails; every
// problem is folded into the report.
func Evaluate(ctx context.Context, read ConfigReader, probe Prober, info ServiceInfo) Report {
	now := info.Now
	if now == nil {
		now = time.Now
	}
	r := Report{
		Service:   ServiceName,
		Version:   info.Version,
		Timestamp: now().UTC().Format(time.RFC3339),
	}

	cfg, err := read()
	if err == nil && cfg == nil {
		err = errors.New("configuration unavailable")
	}
	if err != nil {
		r.Status = StatusUnhealthy
		r.Error = err.Error()
		return r
	}

	r.Configuration = &Configuration{
		PrometheusURLConfigured:  cfg.URL != "",
		AuthenticationConfigured: cfg.AuthConfigured(),
		OrgIDConfigured:          cfg.OrgID != "",
	}
	r.Transport = cfg.Transport()

	for _, d := range decisions {
		if d(ctx, cfg, probe, &r) {
			break
		}
	}
	return r
}

func requireURL(_ context.Context, cfg *config.Config, _ Prober, r *Report) bool {
	if cfg.URL != "" {
		return false
	}
	r.Status = StatusUnhealthy
	r.Error = ErrURLNotConfigured.Error()
	return true
}

func probeBackend(ctx context.Context, cfg *config.Config, probe Prober, r *Report) bool {
	r.PrometheusURL = cfg.URL

	var err error
	if probe == nil {
		err = errors.New("no connectivity probe configured")
	} else {
		err = probe.Probe(ctx)
	}

	if err != nil {
		r.Status = StatusDegraded
		r.PrometheusConnectivity = string(StatusUnhealthy)
		r.PrometheusError = err.Error()
		return true
	}

	r.Status = StatusHealthy
	r.PrometheusConnectivity = string(StatusHealthy)
	return true
}

// Checker runs Evaluate and logs the outcome. It sets no deadline of its
// own; the probe is bounded only by the caller's context.
type Checker struct {
	read   ConfigReader
	probe  Prober
	info   ServiceInfo
	logger *zap.Logger
}

// New creates a new health checker
func New(read ConfigReader, probe Prober, info ServiceInfo, logger *zap.Logger) *Checker {
	return &Checker{
		read:   read,
		probe:  probe,
		info:   info,
		logger: logger.Named("health"),
	}
}

// Check evaluates health now.
func (c *Checker) Check(ctx context.Context) Report {
	start := time.Now()
	report := Evaluate(ctx, c.read, c.probe, c.info)

	fields := []zap.Field{
		zap.String("status", string(report.Status)),
		zap.Duration("duration", time.Since(start)),
	}
	switch report.Status {
	case StatusHealthy:
		c.logger.Debug("Health check passed", fields...)
	case StatusDegraded:
		c.logger.Warn("Health check degraded", append(fields, zap.String("prometheus_error", report.PrometheusError))...)
	default:
		c.logger.Error("Health check failed", append(fields, zap.String("error", report.Error))...)
	}
	return report
}
