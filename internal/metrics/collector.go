package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector receives materialization and resolution measurements.
// PrometheusCollector exports them; NoopCollector discards them.
type Collector interface {
	RecordOperation(ctx context.Context, operation string, status string, durationMs int64)
	RecordStage(ctx context.Context, operation string, stage string, durationMs int64)
	RecordBatch(ctx context.Context, kind string, rows int, durationMs int64)
	RecordSkipped(ctx context.Context, kind string, count int)
	RecordFallback(ctx context.Context, reason string)
	RecordError(ctx context.Context, operation string, errorType string)
}

// PrometheusCollector provides Prometheus metrics for graphbridge operations
type PrometheusCollector struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	batchesTotal      *prometheus.CounterVec
	batchDuration     *prometheus.HistogramVec
	rowsWritten       *prometheus.CounterVec
	rowsSkipped       *prometheus.CounterVec
	fallbacksTotal    *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	registry          *prometheus.Registry
}

// NewPrometheusCollector creates a collector with its own registry
func NewPrometheusCollector() *PrometheusCollector {
	registry := prometheus.NewRegistry()

	c := &PrometheusCollector{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphbridge_operations_total",
				Help: "Total number of operations by type and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graphbridge_stage_duration_seconds",
				Help:    "Duration of operations by type and stage",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"operation", "stage"},
		),
		batchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphbridge_graph_batches_total",
				Help: "Committed graph write batches by kind",
			},
			[]string{"kind"},
		),
		batchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graphbridge_graph_batch_duration_seconds",
				Help:    "Duration of graph write batches by kind",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		rowsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphbridge_graph_rows_total",
				Help: "Rows merged into the graph by kind",
			},
			[]string{"kind"},
		),
		rowsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphbridge_graph_rows_skipped_total",
				Help: "Rows skipped for a null merge key by kind",
			},
			[]string{"kind"},
		),
		fallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphbridge_reconcile_fallbacks_total",
				Help: "Reconciliations that fell back to the columnar table",
			},
			[]string{"reason"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphbridge_errors_total",
				Help: "Total number of errors by operation and error type",
			},
			[]string{"operation", "error_type"},
		),
		registry: registry,
	}

	registry.MustRegister(
		c.operationsTotal,
		c.operationDuration,
		c.batchesTotal,
		c.batchDuration,
		c.rowsWritten,
		c.rowsSkipped,
		c.fallbacksTotal,
		c.errorsTotal,
	)
	return c
}

// RecordOperation records the completion of an operation
func (m *PrometheusCollector) RecordOperation(ctx context.Context, operation string, status string, durationMs int64) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation, "total").Observe(float64(durationMs) / 1000.0)
}

// RecordStage records the duration of a specific stage within an operation
func (m *PrometheusCollector) RecordStage(ctx context.Context, operation string, stage string, durationMs int64) {
	m.operationDuration.WithLabelValues(operation, stage).Observe(float64(durationMs) / 1000.0)
}

// RecordBatch records one committed graph batch
func (m *PrometheusCollector) RecordBatch(ctx context.Context, kind string, rows int, durationMs int64) {
	m.batchesTotal.WithLabelValues(kind).Inc()
	m.rowsWritten.WithLabelValues(kind).Add(float64(rows))
	m.batchDuration.WithLabelValues(kind).Observe(float64(durationMs) / 1000.0)
}

// RecordSkipped records rows dropped before writing
func (m *PrometheusCollector) RecordSkipped(ctx context.Context, kind string, count int) {
	if count <= 0 {
		return
	}
	m.rowsSkipped.WithLabelValues(kind).Add(float64(count))
}

// RecordFallback records a reconciliation that returned the unfiltered table
func (m *PrometheusCollector) RecordFallback(ctx context.Context, reason string) {
	m.fallbacksTotal.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence
func (m *PrometheusCollector) RecordError(ctx context.Context, operation string, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// Registry returns the Prometheus registry for HTTP exposure
func (m *PrometheusCollector) Registry() *prometheus.Registry {
	return m.registry
}
