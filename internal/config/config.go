// Package config provides configuration management for the Prometheus MCP server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	mcperrors "github.com/tareqmamari/prometheus-mcp-server/internal/errors"
	"github.com/tareqmamari/prometheus-mcp-server/internal/security"
)

// Transport modes the MCP server can be served over.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportSSE   = "sse"
)

// ServerConfig describes how the MCP server itself is exposed. It is nil
// unless a transport was configured explicitly.
type ServerConfig struct {
	Transport string `json:"transport"`
	BindHost  string `json:"bind_host"`
	BindPort  int    `json:"bind_port"`
}

// Address returns host:port for network transports.
func (s *ServerConfig) Address() string {
	return s.BindHost + ":" + strconv.Itoa(s.BindPort)
}

// Config holds all configuration for the MCP server
type Config struct {
	// Prometheus backend
	URL      string `json:"url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"` // env only in practice
	Token    string `json:"token,omitempty"`
	OrgID    string `json:"org_id,omitempty"` // sent as X-Scope-OrgID

	MCPServer *ServerConfig `json:"mcp_server,omitempty"`

	// HTTP Client Configuration
	Timeout         time.Duration `json:"timeout"`
	MaxRetries      int           `json:"max_retries"`
	RetryWaitMin    time.Duration `json:"retry_wait_min"`
	RetryWaitMax    time.Duration `json:"retry_wait_max"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	IdleConnTimeout time.Duration `json:"idle_conn_timeout"`

	// Rate Limiting
	RateLimit       int  `json:"rate_limit"`       // requests per second
	RateLimitBurst  int  `json:"rate_limit_burst"` // burst size
	EnableRateLimit bool `json:"enable_rate_limit"`

	// Security
	TLSVerify bool `json:"tls_verify"`

	// Observability
	EnableTracing   bool   `json:"enable_tracing"`
	EnableAuditLog  bool   `json:"enable_audit_log"`
	HealthPort      int    `json:"health_port"` // 0 disables the health server
	HealthBindAddr  string `json:"health_bind_addr"`
	MetricsEndpoint bool   `json:"metrics_endpoint"`

	// Logging
	LogLevel string `json:"log_level"`
}

// Defaults returns a configuration populated with default values only.
func Defaults() *Config {
	return &Config{
		Timeout:         30 * time.Second,
		MaxRetries:      0,
		RetryWaitMin:    500 * time.Millisecond,
		RetryWaitMax:    5 * time.Second,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
		RateLimit:       50,
		RateLimitBurst:  10,
		EnableRateLimit: false,
		TLSVerify:       true,
		EnableTracing:   false,
		EnableAuditLog:  true,
		HealthPort:      0,
		HealthBindAddr:  "127.0.0.1",
		MetricsEndpoint: false,
		LogLevel:        "info",
	}
}

// Load configuration from defaults, an optional JSON file (CONFIG_FILE) and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	cfg := Defaults()

	if configFile := os.Getenv("CONFIG_FILE"); configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("invalid file path: path traversal detected")
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 -- path is validated above
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return json.Unmarshal(data, cfg)
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("PROMETHEUS_URL"); v != "" {
		cfg.URL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("PROMETHEUS_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("PROMETHEUS_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("PROMETHEUS_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("ORG_ID"); v != "" {
		cfg.OrgID = v
	}

	if err := loadServerFromEnv(cfg); err != nil {
		return err
	}

	if v := os.Getenv("PROMETHEUS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv("PROMETHEUS_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("PROMETHEUS_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit = n
		}
	}
	if v := os.Getenv("PROMETHEUS_RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("PROMETHEUS_ENABLE_RATE_LIMIT"); v != "" {
		cfg.EnableRateLimit = parseBool(v)
	}
	if v := os.Getenv("PROMETHEUS_TLS_VERIFY"); v != "" {
		cfg.TLSVerify = parseBool(v)
	}
	if v := os.Getenv("PROMETHEUS_ENABLE_TRACING"); v != "" {
		cfg.EnableTracing = parseBool(v)
	}
	if v := os.Getenv("PROMETHEUS_ENABLE_AUDIT_LOG"); v != "" {
		cfg.EnableAuditLog = parseBool(v)
	}
	if v := os.Getenv("PROMETHEUS_HEALTH_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HealthPort = n
		}
	}
	if v := os.Getenv("PROMETHEUS_HEALTH_BIND_ADDR"); v != "" {
		cfg.HealthBindAddr = v
	}
	if v := os.Getenv("PROMETHEUS_METRICS_ENDPOINT"); v != "" {
		cfg.MetricsEndpoint = parseBool(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// loadServerFromEnv only creates a ServerConfig when one of the transport
// variables is present, so an unconfigured server keeps MCPServer nil.
func loadServerFromEnv(cfg *Config) error {
	transport := os.Getenv("PROMETHEUS_MCP_SERVER_TRANSPORT")
	host := os.Getenv("PROMETHEUS_MCP_BIND_HOST")
	port := os.Getenv("PROMETHEUS_MCP_BIND_PORT")
	if transport == "" && host == "" && port == "" {
		return nil
	}

	if cfg.MCPServer == nil {
		cfg.MCPServer = &ServerConfig{}
	}
	if transport != "" {
		cfg.MCPServer.Transport = strings.ToLower(transport)
	}
	if host != "" {
		cfg.MCPServer.BindHost = host
	}
	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return mcperrors.NewConfigurationError("PROMETHEUS_MCP_BIND_PORT", "invalid port %q", port)
		}
		cfg.MCPServer.BindPort = n
	}
	return nil
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}

// Transport returns the configured MCP transport, or stdio when none was set.
func (c *Config) Transport() string {
	if c.MCPServer == nil || c.MCPServer.Transport == "" {
		return TransportStdio
	}
	return c.MCPServer.Transport
}

// Server returns the server configuration with defaults applied.
func (c *Config) Server() ServerConfig {
	s := ServerConfig{Transport: c.Transport(), BindHost: "127.0.0.1", BindPort: 8080}
	if c.MCPServer != nil {
		if c.MCPServer.BindHost != "" {
			s.BindHost = c.MCPServer.BindHost
		}
		if c.MCPServer.BindPort != 0 {
			s.BindPort = c.MCPServer.BindPort
		}
	}
	return s
}

// AuthConfigured reports whether basic or bearer credentials are present.
func (c *Config) AuthConfigured() bool {
	return (c.Username != "" && c.Password != "") || c.Token != ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.URL == "" {
		return mcperrors.NewConfigurationError("PROMETHEUS_URL", "PROMETHEUS_URL is required")
	}
	if (c.Username == "") != (c.Password == "") {
		return mcperrors.NewConfigurationError("PROMETHEUS_USERNAME", "PROMETHEUS_USERNAME and PROMETHEUS_PASSWORD must be set together")
	}
	if c.Timeout <= 0 {
		return mcperrors.NewConfigurationError("timeout", "timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return mcperrors.NewConfigurationError("max_retries", "max_retries must be non-negative")
	}
	if c.RateLimit <= 0 && c.EnableRateLimit {
		return mcperrors.NewConfigurationError("rate_limit", "rate_limit must be positive when rate limiting is enabled")
	}

	switch c.Transport() {
	case TransportStdio, TransportHTTP, TransportSSE:
	default:
		return mcperrors.NewConfigurationError("PROMETHEUS_MCP_SERVER_TRANSPORT",
			"invalid transport %q (expected stdio, http or sse)", c.Transport())
	}
	if c.MCPServer != nil && (c.MCPServer.BindPort < 0 || c.MCPServer.BindPort > 65535) {
		return mcperrors.NewConfigurationError("PROMETHEUS_MCP_BIND_PORT", "port out of range: %d", c.MCPServer.BindPort)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return mcperrors.NewConfigurationError("LOG_LEVEL", "invalid log level: %s", c.LogLevel)
	}

	return nil
}

// Redact returns a copy of the config with secrets masked for logging.
func (c *Config) Redact() *Config {
	redacted := *c
	redacted.URL = security.MaskURL(c.URL)
	if redacted.Password != "" {
		redacted.Password = security.Redacted
	}
	if redacted.Token != "" {
		redacted.Token = security.MaskBearerToken(redacted.Token)
	}
	if c.MCPServer != nil {
		server := *c.MCPServer
		redacted.MCPServer = &server
	}
	return &redacted
}
