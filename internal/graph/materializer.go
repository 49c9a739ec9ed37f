package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	gberrors "github.com/rohankatakam/graphbridge/internal/errors"
	"github.com/rohankatakam/graphbridge/internal/metrics"
	"github.com/rohankatakam/graphbridge/internal/table"
	"golang.org/x/time/rate"
)

// MaterializerConfig configures graph writes
type MaterializerConfig struct {
	Database string
	Batch    BatchConfig

	// EnsureConstraints creates the title uniqueness constraint before the first batch
	EnsureConstraints bool

	// MaxBatchesPerSecond throttles batch transactions; 0 disables throttling
	MaxBatchesPerSecond float64
}

// MaterializeResult summarizes one Materialize call
type MaterializeResult struct {
	EntitiesWritten      int
	RelationshipsWritten int
	SkippedEntities      int
	SkippedRelationships int
	EntityBatches        int
	RelationshipBatches  int
	Duration             time.Duration
}

// CommittedBatches is the number of write transactions that committed
func (r *MaterializeResult) CommittedBatches() int {
	return r.EntityBatches + r.RelationshipBatches
}

// MaterializeOption overrides configuration for a single call
type MaterializeOption func(*BatchConfig)

// WithBatchSize sets both batch sizes for one call
func WithBatchSize(size int) MaterializeOption {
	return func(bc *BatchConfig) {
		if size > 0 {
			bc.EntityBatchSize = size
			bc.RelationshipBatchSize = size
		}
	}
}

// Materializer upserts entity and relationship tables into the graph.
// Nodes are merged by title, edges by (source, target); re-running the same input
// leaves the graph unchanged.
type Materializer struct {
	driver    Driver
	config    MaterializerConfig
	builder   *CypherBuilder
	limiter   *rate.Limiter
	collector metrics.Collector
	logger    *slog.Logger
}

// NewMaterializer creates a materializer writing through driver
func NewMaterializer(driver Driver, config MaterializerConfig, collector metrics.Collector) *Materializer {
	config.Batch = config.Batch.normalized()

	m := &Materializer{
		driver:    driver,
		config:    config,
		builder:   defaultBuilder,
		collector: metrics.OrNoop(collector),
		logger:    slog.Default().With("component", "materializer"),
	}
	if config.MaxBatchesPerSecond > 0 {
		m.limiter = rate.NewLimiter(rate.Limit(config.MaxBatchesPerSecond), 1)
	}
	return m
}

// Materialize writes entities then relationships in sequential batches, one transaction each.
// On a failed batch the returned error is a BackendError carrying the number of batches
// already committed; those batches are not rolled back.
func (m *Materializer) Materialize(ctx context.Context, entities, relationships *table.Table, opts ...MaterializeOption) (*MaterializeResult, error) {
	start := time.Now()

	if entities == nil || !entities.HasColumns(table.ColumnTitle) {
		return nil, gberrors.SchemaError("entities", table.ColumnTitle)
	}
	if relationships == nil || !relationships.HasColumns(table.ColumnSource, table.ColumnTarget) {
		return nil, gberrors.SchemaError("relationships", table.ColumnSource, table.ColumnTarget)
	}

	batch := m.config.Batch
	for _, opt := range opts {
		opt(&batch)
	}

	result := &MaterializeResult{}

	entityRows, entityProps, skipped := m.prepareEntities(entities)
	result.SkippedEntities = skipped
	m.collector.RecordSkipped(ctx, "entities", skipped)

	relRows, relProps, skipped := m.prepareRelationships(relationships)
	result.SkippedRelationships = skipped
	m.collector.RecordSkipped(ctx, "relationships", skipped)

	session, err := m.driver.OpenSession(ctx, m.config.Database, RoutingWrite)
	if err != nil {
		return nil, gberrors.NetworkErrorf(err, "open graph session")
	}
	defer session.Close(ctx)

	if m.config.EnsureConstraints {
		m.ensureConstraints(ctx, session)
	}

	stageStart := time.Now()
	for _, r := range partition(len(entityRows), batch.EntityBatchSize) {
		rows := entityRows[r[0]:r[1]]
		query := m.builder.EntityMerge(propertiesIn(rows, entityProps))
		if err := m.runBatch(WithBatch(ctx, result.CommittedBatches()), session, OpEntityMerge, query, rows); err != nil {
			return result, gberrors.BackendError(err, result.CommittedBatches(),
				fmt.Sprintf("entity batch rows %d-%d failed", r[0], r[1]))
		}
		result.EntityBatches++
		result.EntitiesWritten += len(rows)
	}
	m.collector.RecordStage(ctx, "materialize", "entities", time.Since(stageStart).Milliseconds())

	stageStart = time.Now()
	for _, r := range partition(len(relRows), batch.RelationshipBatchSize) {
		rows := relRows[r[0]:r[1]]
		query := m.builder.RelationshipMerge(propertiesIn(rows, relProps))
		if err := m.runBatch(WithBatch(ctx, result.CommittedBatches()), session, OpRelationshipMerge, query, rows); err != nil {
			return result, gberrors.BackendError(err, result.CommittedBatches(),
				fmt.Sprintf("relationship batch rows %d-%d failed", r[0], r[1]))
		}
		result.RelationshipBatches++
		result.RelationshipsWritten += len(rows)
	}
	m.collector.RecordStage(ctx, "materialize", "relationships", time.Since(stageStart).Milliseconds())

	result.Duration = time.Since(start)
	m.logger.Info("graph materialized",
		"entities", result.EntitiesWritten,
		"relationships", result.RelationshipsWritten,
		"skipped_entities", result.SkippedEntities,
		"skipped_relationships", result.SkippedRelationships,
		"batches", result.CommittedBatches(),
		"duration", result.Duration)
	return result, nil
}

func (m *Materializer) runBatch(ctx context.Context, session Session, op, query string, rows []map[string]any) error {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	batchStart := time.Now()
	_, err := session.Run(WithOperation(ctx, op), query, map[string]any{rowsParam: rows})
	if err != nil {
		m.collector.RecordError(ctx, "materialize", op)
		return err
	}

	kind := "entities"
	if op == OpRelationshipMerge {
		kind = "relationships"
	}
	m.collector.RecordBatch(ctx, kind, len(rows), time.Since(batchStart).Milliseconds())
	return nil
}

func (m *Materializer) ensureConstraints(ctx context.Context, session Session) {
	query := m.builder.TitleConstraint()
	if _, err := session.Run(WithOperation(ctx, OpIndexCreation), query, nil); err != nil {
		m.logger.Warn("failed to create title constraint", "error", err)
		return
	}
	m.logger.Debug("title constraint ensured", "label", EntityLabel)
}

// prepareEntities converts rows to parameter maps. Null cells are omitted so the
// template's coalesce keeps the stored property. Rows without a usable title are skipped.
func (m *Materializer) prepareEntities(t *table.Table) ([]map[string]any, []string, int) {
	props := propertyOrder(t, table.ColumnTitle)
	out := make([]map[string]any, 0, t.Len())
	skipped := 0

	for i, row := range t.Rows {
		title, ok := row.Get(table.ColumnTitle).AsString()
		if !ok || title == "" {
			m.logger.Debug("skipping entity without title", "row", i)
			skipped++
			continue
		}
		params := map[string]any{table.ColumnTitle: title}
		for _, p := range props {
			if v := row.Get(p); !v.IsNull() {
				params[p] = v.Native()
			}
		}
		out = append(out, params)
	}

	if skipped > 0 {
		m.logger.Warn("skipped entities with null or empty title", "count", skipped)
	}
	return out, props, skipped
}

// prepareRelationships coerces endpoints to strings and weight to float
func (m *Materializer) prepareRelationships(t *table.Table) ([]map[string]any, []string, int) {
	props := propertyOrder(t, table.ColumnSource, table.ColumnTarget)
	out := make([]map[string]any, 0, t.Len())
	skipped := 0

	for i, row := range t.Rows {
		source, okS := row.Get(table.ColumnSource).AsString()
		target, okT := row.Get(table.ColumnTarget).AsString()
		if !okS || !okT || source == "" || target == "" {
			m.logger.Debug("skipping relationship without endpoints", "row", i)
			skipped++
			continue
		}

		params := map[string]any{table.ColumnSource: source, table.ColumnTarget: target}
		for _, p := range props {
			v := row.Get(p)
			if v.IsNull() {
				continue
			}
			if p == table.ColumnWeight {
				w, ok := v.AsFloat()
				if !ok {
					m.logger.Warn("dropping non-numeric relationship weight",
						"source", source, "target", target, "weight", v.String())
					continue
				}
				params[p] = w
				continue
			}
			params[p] = v.Native()
		}
		out = append(out, params)
	}

	if skipped > 0 {
		m.logger.Warn("skipped relationships with null or empty endpoints", "count", skipped)
	}
	return out, props, skipped
}

// propertyOrder lists non-key columns in table order, followed by any keys
// present only in rows (sorted)
func propertyOrder(t *table.Table, keys ...string) []string {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	seen := make(map[string]bool)
	var props []string
	for _, c := range t.Columns {
		if !isKey[c] && !seen[c] {
			seen[c] = true
			props = append(props, c)
		}
	}

	var extra []string
	for _, row := range t.Rows {
		for c := range row {
			if !isKey[c] && !seen[c] {
				seen[c] = true
				extra = append(extra, c)
			}
		}
	}
	sort.Strings(extra)
	return append(props, extra...)
}

// propertiesIn keeps the properties carried by at least one row of the batch
func propertiesIn(rows []map[string]any, props []string) []string {
	var out []string
	for _, p := range props {
		for _, r := range rows {
			if _, ok := r[p]; ok {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
