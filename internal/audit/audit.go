// Package audit keeps a record of MCP tool invocations: which tool ran,
// with what arguments, how long it took and how it ended.
package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	mcperrors "github.com/tareqmamari/prometheus-mcp-server/internal/errors"
	"github.com/tareqmamari/prometheus-mcp-server/internal/security"
	"github.com/tareqmamari/prometheus-mcp-server/internal/tracing"
)

// defaultCapacity is how many entries the in-memory ring keeps.
const defaultCapacity = 1000

// Entry represents a single audit log entry
type Entry struct {
	Timestamp   time.Time              `json:"timestamp"`
	TraceID     string                 `json:"trace_id,omitempty"`
	Tool        string                 `json:"tool"`
	Arguments   map[string]interface{} `json:"arguments,omitempty"`
	Success     bool                   `json:"success"`
	DurationMS  int64                  `json:"duration_ms"`
	ErrorCode   string                 `json:"error_code,omitempty"`
	Timeout     bool                   `json:"timeout,omitempty"`
	ErrorMsg    string                 `json:"error_message,omitempty"`
	ResultCount int                    `json:"result_count,omitempty"`
}

// Logger handles audit logging
type Logger struct {
	enabled bool
	logger  *zap.Logger

	mu       sync.RWMutex
	entries  []Entry
	next     int
	full     bool
	capacity int
}

// NewLogger creates a new audit logger
func NewLogger(logger *zap.Logger, enabled bool) *Logger {
	return &Logger{
		enabled:  enabled,
		logger:   logger.Named("audit"),
		entries:  make([]Entry, defaultCapacity),
		capacity: defaultCapacity,
	}
}

// Log records an audit entry. Missing timestamps and trace ids are filled
// from the clock and the span in ctx.
func (l *Logger) Log(ctx context.Context, entry Entry) {
	if !l.enabled {
		return
	}

	if entry.TraceID == "" {
		entry.TraceID = tracing.TraceID(ctx)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	fields := []zap.Field{
		zap.String("tool", entry.Tool),
		zap.Bool("success", entry.Success),
		zap.Int64("duration_ms", entry.DurationMS),
	}
	if entry.TraceID != "" {
		fields = append(fields, zap.String("trace_id", entry.TraceID))
	}
	if len(entry.Arguments) > 0 {
		fields = append(fields, zap.Any("arguments", entry.Arguments))
	}
	if entry.ErrorCode != "" {
		fields = append(fields, zap.String("error_code", entry.ErrorCode))
	}
	if entry.Timeout {
		fields = append(fields, zap.Bool("timeout", true))
	}
	if entry.ErrorMsg != "" {
		fields = append(fields, zap.String("error_message", entry.ErrorMsg))
	}
	if entry.ResultCount > 0 {
		fields = append(fields, zap.Int("result_count", entry.ResultCount))
	}
	l.logger.Info("tool invocation", fields...)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = entry
	l.next = (l.next + 1) % l.capacity
	if l.next == 0 {
		l.full = true
	}
}

// LogToolExecution records one tool call. err may be nil.
func (l *Logger) LogToolExecution(ctx context.Context, toolName string, arguments map[string]interface{}, duration time.Duration, resultCount int, err error) {
	entry := Entry{
		Tool:        toolName,
		Arguments:   sanitizeArguments(arguments),
		Success:     err == nil,
		DurationMS:  duration.Milliseconds(),
		ResultCount: resultCount,
	}
	if err != nil {
		d := mcperrors.Describe(err)
		entry.ErrorCode = string(d.Code)
		entry.ErrorMsg = security.SanitizeError(err)

		var backendErr *mcperrors.BackendError
		entry.Timeout = errors.As(err, &backendErr) && backendErr.IsTimeout()
	}
	l.Log(ctx, entry)
}

func sanitizeArguments(arguments map[string]interface{}) map[string]interface{} {
	if len(arguments) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(arguments))
	for k, v := range arguments {
		if s, ok := v.(string); ok {
			out[k] = security.MaskSensitiveData(s)
			continue
		}
		out[k] = v
	}
	return out
}

// GetRecentEntries returns up to limit entries, newest first. A limit of
// zero or less returns everything retained.
func (l *Logger) GetRecentEntries(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	size := l.next
	if l.full {
		size = l.capacity
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	result := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (l.next - i + l.capacity) % l.capacity
		result = append(result, l.entries[idx])
	}
	return result
}

// Stats contains aggregated audit statistics
type Stats struct {
	TotalEntries    int            `json:"total_entries"`
	SuccessRate     float64        `json:"success_rate_pct"`
	AverageDuration time.Duration  `json:"average_duration"`
	ToolUsage       map[string]int `json:"tool_usage"`
	ErrorCounts     map[string]int `json:"error_counts"`
}

// GetStats returns statistics about retained entries
func (l *Logger) GetStats() Stats {
	entries := l.GetRecentEntries(0)

	stats := Stats{
		TotalEntries: len(entries),
		ToolUsage:    make(map[string]int),
		ErrorCounts:  make(map[string]int),
	}

	var successCount int
	var totalMS int64
	for _, entry := range entries {
		stats.ToolUsage[entry.Tool]++
		if entry.Success {
			successCount++
		} else if entry.ErrorCode != "" {
			stats.ErrorCounts[entry.ErrorCode]++
		}
		totalMS += entry.DurationMS
	}

	if len(entries) > 0 {
		stats.SuccessRate = float64(successCount) / float64(len(entries)) * 100
		stats.AverageDuration = time.Duration(totalMS) * time.Millisecond / time.Duration(len(entries))
	}
	return stats
}

// IsEnabled returns whether audit logging is enabled
func (l *Logger) IsEnabled() bool {
	return l.enabled
}
