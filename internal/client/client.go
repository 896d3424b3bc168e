// Package client provides an HTTP client for the Prometheus query API
// (/api/v1/*).
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tareqmamari/prometheus-mcp-server/internal/auth"
	"github.com/tareqmamari/prometheus-mcp-server/internal/config"
	mcperrors "github.com/tareqmamari/prometheus-mcp-server/internal/errors"
	"github.com/tareqmamari/prometheus-mcp-server/internal/metrics"
	"github.com/tareqmamari/prometheus-mcp-server/internal/security"
	"github.com/tareqmamari/prometheus-mcp-server/internal/tracing"
)

// OrgIDHeader carries the tenant id for multi-tenant backends
// (Cortex, Mimir, Thanos receive).
const OrgIDHeader = "X-Scope-OrgID"

// maxErrorBody bounds how much of a non-JSON error body is quoted back.
const maxErrorBody = 512

// ProbeQuery is the instant query used to check connectivity.
const ProbeQuery = "up"

// Authenticator is the interface for adding authentication to requests
type Authenticator interface {
	Authenticate(req *http.Request) error
}

// Client is an HTTP client for the Prometheus API
type Client struct {
	httpClient    *http.Client
	config        *config.Config
	logger        *zap.Logger
	rateLimiter   *rate.Limiter
	authenticator Authenticator
	metrics       *metrics.Metrics
	version       string
}

// New creates a new API client. m may be nil.
func New(cfg *config.Config, logger *zap.Logger, version string, m *metrics.Metrics) (*Client, error) {
	authenticator, err := auth.New(cfg.Username, cfg.Password, cfg.Token, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	if !cfg.TLSVerify {
		tlsConfig.InsecureSkipVerify = true // #nosec G402 -- explicit opt-out via PROMETHEUS_TLS_VERIFY
		logger.Warn("TLS certificate verification is DISABLED - this is insecure and should only be used for testing",
			zap.String("url", security.MaskURL(cfg.URL)),
		)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConns,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     tlsConfig,
	}

	var rateLimiter *rate.Limiter
	if cfg.EnableRateLimit {
		rateLimiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)
	}

	if version == "" {
		version = "dev"
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config:        cfg,
		logger:        logger.Named("client"),
		rateLimiter:   rateLimiter,
		authenticator: authenticator,
		metrics:       m,
		version:       version,
	}, nil
}

// envelope is the JSON wrapper every /api/v1 endpoint answers with.
type envelope struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	ErrorType string          `json:"errorType"`
	Error     string          `json:"error"`
	Warnings  []string        `json:"warnings"`
}

// Request issues GET <url>/api/v1/<endpoint> and returns the decoded "data"
// member of a successful response. Numbers are decoded as json.Number so
// values reach the caller unchanged. Every failure is a
// *mcperrors.BackendError.
func (c *Client) Request(ctx context.Context, endpoint string, params map[string]string) (any, error) {
	ctx, span := tracing.BackendSpan(ctx, endpoint)
	defer span.End()

	start := time.Now()
	status, body, err := c.do(ctx, endpoint, params)
	if c.metrics != nil {
		c.metrics.RecordRequest(endpoint, status, time.Since(start))
	}
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	tracing.SetStatusCode(span, status)

	data, err := decode(endpoint, status, body)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return data, nil
}

// Probe checks connectivity with a trivial instant query.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.Request(ctx, "query", map[string]string{"query": ProbeQuery})
	return err
}

// BaseURL returns the configured Prometheus URL.
func (c *Client) BaseURL() string {
	return c.config.URL
}

func decode(endpoint string, status int, body []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Status == "" {
		if status >= 400 {
			return nil, mcperrors.NewHTTPError(endpoint, status, truncate(body))
		}
		if err == nil {
			err = errors.New("missing status field")
		}
		return nil, mcperrors.NewDecodeError(endpoint, err)
	}

	if env.Status != "success" {
		return nil, mcperrors.NewAPIError(endpoint, status, env.ErrorType, env.Error)
	}
	if status >= 400 {
		return nil, mcperrors.NewHTTPError(endpoint, status, truncate(body))
	}

	if len(env.Data) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(env.Data))
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, mcperrors.NewDecodeError(endpoint, err)
	}
	return data, nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}

// do executes the request with retry logic. Retries default to 0; only
// transient network failures and 429/5xx responses are retried.
func (c *Client) do(ctx context.Context, endpoint string, params map[string]string) (int, []byte, error) {
	var (
		lastStatus int
		lastBody   []byte
		lastErr    error
	)

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			shift := min(attempt-1, 30)
			waitTime := c.config.RetryWaitMin * time.Duration(1<<shift)
			if waitTime > c.config.RetryWaitMax {
				waitTime = c.config.RetryWaitMax
			}

			c.logger.Debug("Retrying request",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.Duration("wait", waitTime),
			)
			if c.metrics != nil {
				c.metrics.RecordRetry()
			}

			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return 0, nil, mcperrors.NewNetworkError(endpoint, ctx.Err())
			}
		}

		status, body, err := c.doRequest(ctx, endpoint, params)
		if err != nil {
			if isRetryable(err) {
				lastStatus, lastBody, lastErr = 0, nil, err
				continue
			}
			return 0, nil, mcperrors.NewNetworkError(endpoint, err)
		}

		if shouldRetry(status) {
			lastStatus, lastBody, lastErr = status, body, nil
			continue
		}

		return status, body, nil
	}

	if lastErr != nil {
		return 0, nil, mcperrors.NewNetworkError(endpoint, lastErr)
	}
	return lastStatus, lastBody, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params map[string]string) (int, []byte, error) {
	if c.rateLimiter != nil {
		if !c.rateLimiter.Allow() {
			if c.metrics != nil {
				c.metrics.RecordRateLimitWait()
			}
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return 0, nil, fmt.Errorf("rate limit wait failed: %w", err)
			}
		}
	}

	requestURL := c.config.URL + "/api/v1/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		requestURL += "?" + values.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", fmt.Sprintf("prometheus-mcp-server/%s", c.version))
	if c.config.OrgID != "" {
		httpReq.Header.Set(OrgIDHeader, c.config.OrgID)
	}

	if err := c.authenticator.Authenticate(httpReq); err != nil {
		return 0, nil, err
	}

	c.logger.Debug("Executing HTTP request",
		zap.String("endpoint", endpoint),
		zap.String("url", security.MaskURL(requestURL)),
		zap.Any("headers", security.MaskSensitiveHeaders(httpReq.Header)),
	)

	startTime := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Warn("HTTP request failed",
			zap.String("endpoint", endpoint),
			zap.String("error", security.SanitizeError(err)),
			zap.Duration("duration", duration),
		)
		return 0, nil, err
	}
	defer func() {
		if closeErr := httpResp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", zap.Error(closeErr))
		}
	}()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("HTTP request completed",
		zap.String("endpoint", endpoint),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("duration", duration),
		zap.Int("response_size", len(body)),
	)

	return httpResp.StatusCode, body, nil
}

// isRetryable determines if an error is retryable (transient network errors)
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) ||
			errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ENETUNREACH) ||
			errors.Is(opErr.Err, syscall.EHOSTUNREACH) ||
			errors.Is(opErr.Err, syscall.ETIMEDOUT) {
			return true
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection reset", "connection refused", "i/o timeout", "tls handshake timeout", "eof"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// shouldRetry determines if an HTTP status code should trigger a retry
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Close closes the client and releases resources
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
