package progress

import (
	"context"

	"go.uber.org/zap"
)

// Tracker reports the stages of one tool invocation. Progress never goes
// backwards: an update below the last reported value is clamped up to it.
// Delivery failures are logged and otherwise ignored so a broken progress
// channel cannot fail the tool call.
type Tracker struct {
	reporter Reporter
	logger   *zap.Logger
	last     float64
}

// NewTracker creates a tracker for the reporter attached to ctx.
func NewTracker(ctx context.Context, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		reporter: FromContext(ctx),
		logger:   logger,
	}
}

// Step reports progress out of Scale.
func (t *Tracker) Step(ctx context.Context, progress float64, message string) {
	if progress < t.last {
		progress = t.last
	}
	if progress > Scale {
		progress = Scale
	}
	t.last = progress

	if err := t.reporter.Report(ctx, progress, Scale, message); err != nil {
		t.logger.Debug("Progress notification failed",
			zap.Float64("progress", progress),
			zap.String("message", message),
			zap.Error(err),
		)
	}
}

// Last returns the most recent progress value reported.
func (t *Tracker) Last() float64 {
	return t.last
}
