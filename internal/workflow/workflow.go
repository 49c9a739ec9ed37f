// Package workflow finalizes computed graph tables, persists them to the
// columnar store and mirrors them into the graph database.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	gberrors "github.com/rohankatakam/graphbridge/internal/errors"
	"github.com/rohankatakam/graphbridge/internal/graph"
	"github.com/rohankatakam/graphbridge/internal/metrics"
	"github.com/rohankatakam/graphbridge/internal/storage"
	"github.com/rohankatakam/graphbridge/internal/table"
	"github.com/sirupsen/logrus"
)

// Table and artifact names written by the workflow
const (
	EntitiesTable      = "entities"
	RelationshipsTable = "relationships"
	GraphMLBlob        = "graph.graphml"
)

// OutputConfig is the resolved output configuration for one run
type OutputConfig struct {
	Store storage.TableStore

	// GraphOnly skips the columnar table writes
	GraphOnly bool

	GraphEnabled bool
	Connection   graph.ConnectionInfo
	Materializer graph.MaterializerConfig

	SnapshotGraphML bool
}

// DriverFactory opens a graph driver for a connection
type DriverFactory func(info graph.ConnectionInfo) (graph.Driver, error)

// Result reports what a run did. Entities and Relationships are the tables as
// passed in, before finalization.
type Result struct {
	Entities      *table.Table
	Relationships *table.Table

	FinalEntities      *table.Table
	FinalRelationships *table.Table

	TablesWritten bool
	Graph         *graph.MaterializeResult
	GraphSkipped  bool
	GraphError    error
	SnapshotError error
	Duration      time.Duration
}

// Option configures a Workflow
type Option func(*Workflow)

// WithFinalizer replaces DefaultFinalizer
func WithFinalizer(f Finalizer) Option {
	return func(w *Workflow) { w.finalizer = f }
}

// WithDriverFactory replaces the Neo4j driver constructor
func WithDriverFactory(f DriverFactory) Option {
	return func(w *Workflow) { w.newDriver = f }
}

// Workflow runs the finalize graph step
type Workflow struct {
	finalizer Finalizer
	newDriver DriverFactory
	collector metrics.Collector
	logger    *logrus.Logger
}

// New creates a workflow
func New(logger *logrus.Logger, collector metrics.Collector, opts ...Option) *Workflow {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	w := &Workflow{
		finalizer: DefaultFinalizer{},
		newDriver: func(info graph.ConnectionInfo) (graph.Driver, error) {
			return graph.NewNeo4jDriver(info)
		},
		collector: metrics.OrNoop(collector),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run finalizes the computed tables, writes them to the store unless GraphOnly,
// materializes them into the graph when enabled and optionally writes a GraphML
// snapshot. Only finalization and store writes can fail the run.
func (w *Workflow) Run(ctx context.Context, entities, relationships *table.Table, cfg OutputConfig) (*Result, error) {
	start := time.Now()
	result := &Result{Entities: entities, Relationships: relationships}

	if !cfg.GraphOnly && cfg.Store == nil {
		return nil, gberrors.ConfigErrorf("no output store configured")
	}

	finalEntities, finalRelationships, err := w.finalizer.Finalize(ctx, entities, relationships)
	if err != nil {
		w.collector.RecordOperation(ctx, "workflow", "error", time.Since(start).Milliseconds())
		return nil, err
	}
	result.FinalEntities = finalEntities
	result.FinalRelationships = finalRelationships

	if cfg.GraphOnly {
		w.logger.Info("graph-only mode, skipping table writes")
	} else {
		if err := w.writeTables(ctx, cfg.Store, finalEntities, finalRelationships); err != nil {
			w.collector.RecordOperation(ctx, "workflow", "error", time.Since(start).Milliseconds())
			return nil, err
		}
		result.TablesWritten = true
	}

	w.materialize(ctx, cfg, result)

	if cfg.SnapshotGraphML {
		result.SnapshotError = w.snapshot(ctx, cfg.Store, finalRelationships)
	}

	result.Duration = time.Since(start)
	w.collector.RecordOperation(ctx, "workflow", "success", result.Duration.Milliseconds())
	w.logger.WithFields(logrus.Fields{
		"entities":      finalEntities.Len(),
		"relationships": finalRelationships.Len(),
		"tables":        result.TablesWritten,
		"graph":         result.Graph != nil,
		"duration":      result.Duration.String(),
	}).Info("finalize graph completed")

	return result, nil
}

// RunFromStore reads the computed tables from the store and runs the workflow
func (w *Workflow) RunFromStore(ctx context.Context, cfg OutputConfig, entitiesName, relationshipsName string) (*Result, error) {
	if cfg.Store == nil {
		return nil, gberrors.ConfigErrorf("no output store configured")
	}

	entities, err := readTable(ctx, cfg.Store, entitiesName)
	if err != nil {
		return nil, err
	}
	relationships, err := readTable(ctx, cfg.Store, relationshipsName)
	if err != nil {
		return nil, err
	}

	return w.Run(ctx, entities, relationships, cfg)
}

func readTable(ctx context.Context, store storage.TableStore, name string) (*table.Table, error) {
	t, err := store.Read(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, gberrors.TableNotFoundError(name, "", err)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return t, nil
}

func (w *Workflow) writeTables(ctx context.Context, store storage.TableStore, entities, relationships *table.Table) error {
	if err := store.Write(ctx, entities, EntitiesTable); err != nil {
		return gberrors.BackendError(err, 0, fmt.Sprintf("write %s", EntitiesTable))
	}
	if err := store.Write(ctx, relationships, RelationshipsTable); err != nil {
		return gberrors.BackendError(err, 0, fmt.Sprintf("write %s", RelationshipsTable))
	}
	w.logger.WithFields(logrus.Fields{
		"entities":      entities.Len(),
		"relationships": relationships.Len(),
	}).Debug("tables written")
	return nil
}

// materialize mirrors the finalized tables into the graph. Failures are logged
// and kept on the result; the columnar output stays the source of truth.
func (w *Workflow) materialize(ctx context.Context, cfg OutputConfig, result *Result) {
	if !cfg.GraphEnabled {
		result.GraphSkipped = true
		return
	}
	if !cfg.Connection.Complete() {
		w.logger.Warn("graph writing enabled but NEO4J uri, username or password is missing; skipping graph materialization")
		result.GraphSkipped = true
		return
	}

	driver, err := w.newDriver(cfg.Connection)
	if err != nil {
		w.logger.WithError(err).Error("failed to create graph driver")
		result.GraphError = err
		return
	}
	defer driver.Close(ctx)

	m := graph.NewMaterializer(driver, cfg.Materializer, w.collector)
	res, err := m.Materialize(ctx, result.FinalEntities, result.FinalRelationships)
	if err != nil {
		fields := logrus.Fields{"uri": cfg.Connection.URI}
		if committed, ok := gberrors.CommittedBatches(err); ok {
			fields["committed_batches"] = committed
		}
		w.logger.WithFields(fields).WithError(err).Error("graph materialization failed")
		result.GraphError = err
		return
	}
	result.Graph = res
}

func (w *Workflow) snapshot(ctx context.Context, store storage.TableStore, relationships *table.Table) error {
	if store == nil {
		w.logger.Warn("graphml snapshot requested without an output store")
		return gberrors.ConfigErrorf("no output store for graphml snapshot")
	}

	data, err := BuildGraphML(relationships)
	if err != nil {
		w.logger.WithError(err).Warn("failed to build graphml snapshot")
		return err
	}
	if err := store.WriteBlob(ctx, GraphMLBlob, data); err != nil {
		w.logger.WithError(err).Warn("failed to write graphml snapshot")
		return err
	}
	w.logger.WithField("bytes", len(data)).Debug("graphml snapshot written")
	return nil
}
