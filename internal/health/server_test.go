package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tareqmamari/prometheus-mcp-server/internal/config"
)

func newTestServer(cfg *config.Config, probeErr error, metricsEnabled bool) *Server {
	checker := New(staticConfig(cfg), ProberFunc(func(context.Context) error { return probeErr }), info(), zap.NewNop())
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter_total", Help: "test"}))
	return NewServer(checker, reg, zap.NewNop(), 0, "", metricsEnabled)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthEndpointStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		cfg        *config.Config
		probeErr   error
		wantCode   int
		wantStatus Status
	}{
		{"healthy", &config.Config{URL: "http://p:9090"}, nil, http.StatusOK, StatusHealthy},
		{"degraded", &config.Config{URL: "http://p:9090"}, errors.New("Connection refused"), http.StatusOK, StatusDegraded},
		{"unhealthy", &config.Config{}, nil, http.StatusServiceUnavailable, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(tt.cfg, tt.probeErr, false)
			rec := get(t, s.Handler(), "/health")
			assert.Equal(t, tt.wantCode, rec.Code)

			var report Report
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
			assert.Equal(t, tt.wantStatus, report.Status)
		})
	}
}

func TestReadyAndLive(t *testing.T) {
	s := newTestServer(&config.Config{URL: "http://p:9090"}, nil, false)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, s.Handler(), "/ready").Code)
	s.SetReady(true)
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/ready").Code)
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/live").Code)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/live", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(&config.Config{URL: "http://p:9090"}, nil, true)
	rec := get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_counter_total"))

	s = newTestServer(&config.Config{URL: "http://p:9090"}, nil, false)
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/metrics").Code)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(StatusHealthy))
	assert.Equal(t, http.StatusOK, HTTPStatus(StatusDegraded))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(StatusUnhealthy))
}

func TestHealthEndpointBoundsProbe(t *testing.T) {
	var deadline time.Time
	probe := ProberFunc(func(ctx context.Context) error {
		d, ok := ctx.Deadline()
		if !ok {
			return errors.New("no deadline")
		}
		deadline = d
		return nil
	})
	checker := New(staticConfig(&config.Config{URL: "http://p:9090"}), probe, info(), zap.NewNop())
	s := NewServer(checker, nil, zap.NewNop(), 0, "", false)

	start := time.Now()
	rec := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.WithinDuration(t, start.Add(probeTimeout), deadline, time.Second)
}
