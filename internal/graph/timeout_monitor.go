package graph

import (
	"log/slog"
	"time"
)

// TimeoutMonitor logs graph queries that fail, time out or come close to
// their transaction timeout
type TimeoutMonitor struct {
	logger       *slog.Logger
	warningRatio float64 // Warn when execution reaches this % of timeout
}

// NewTimeoutMonitor creates a monitor with default settings
func NewTimeoutMonitor() *TimeoutMonitor {
	return &TimeoutMonitor{
		logger:       slog.Default().With("component", "timeout_monitor"),
		warningRatio: 0.8,
	}
}

// MonitorQueryExecution runs fn and logs its outcome against timeout.
// Returns how long fn took.
func (tm *TimeoutMonitor) MonitorQueryExecution(operation string, timeout time.Duration, fn func() error) (time.Duration, error) {
	start := time.Now()
	err := fn()
	duration := time.Since(start)

	warningThreshold := time.Duration(float64(timeout) * tm.warningRatio)

	switch {
	case err != nil && duration >= timeout:
		tm.logger.Error("query timed out",
			"operation", operation,
			"duration_seconds", duration.Seconds(),
			"timeout_seconds", timeout.Seconds(),
			"error", err)
	case err != nil:
		tm.logger.Warn("query failed",
			"operation", operation,
			"duration_seconds", duration.Seconds(),
			"error", err)
	case duration >= warningThreshold:
		tm.logger.Warn("query approaching timeout",
			"operation", operation,
			"duration_seconds", duration.Seconds(),
			"timeout_seconds", timeout.Seconds(),
			"percent_used", duration.Seconds()/timeout.Seconds()*100)
	default:
		tm.logger.Debug("query completed",
			"operation", operation,
			"duration_seconds", duration.Seconds())
	}

	return duration, err
}
