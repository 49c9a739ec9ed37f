package metrics

import "context"

// NoopCollector discards all measurements
type NoopCollector struct{}

// NewNoopCollector creates a no-op collector
func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (n *NoopCollector) RecordOperation(ctx context.Context, operation string, status string, durationMs int64) {
}

func (n *NoopCollector) RecordStage(ctx context.Context, operation string, stage string, durationMs int64) {
}

func (n *NoopCollector) RecordBatch(ctx context.Context, kind string, rows int, durationMs int64) {}

func (n *NoopCollector) RecordSkipped(ctx context.Context, kind string, count int) {}

func (n *NoopCollector) RecordFallback(ctx context.Context, reason string) {}

func (n *NoopCollector) RecordError(ctx context.Context, operation string, errorType string) {}

// OrNoop returns c, or a NoopCollector when c is nil
func OrNoop(c Collector) Collector {
	if c == nil {
		return NewNoopCollector()
	}
	return c
}
