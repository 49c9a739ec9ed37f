// Package resolver loads named output tables from one or many indexes and
// reconciles entities and relationships against the graph.
package resolver

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
	"golang.org/x/sync/errgroup"
)

// RoutingConfig says where to read from for one Resolve call
type RoutingConfig struct {
	// Output is the single index, used when Outputs is empty
	Output IndexDescriptor
	// Outputs switches to multi-index mode; order is preserved in the bundle
	Outputs []IndexDescriptor
	// Graph is the graph table source; nil disables reconciliation
	Graph  graph.TableSource
	Policy Policy
	// MaxParallel bounds concurrent per-index resolution; 0 means unbounded
	MaxParallel int
}

// Resolver builds bundles of named tables
type Resolver struct {
	logger    *logrus.Logger
	collector metrics.Collector
}

// New creates a resolver
func New(logger *logrus.Logger, collector metrics.Collector) *Resolver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Resolver{logger: logger, collector: metrics.OrNoop(collector)}
}

// graphTables holds the graph-origin tables, loaded once per Resolve call and
// shared read-only across indexes
type graphTables struct {
	entities      *table.Table
	relationships *table.Table
}

func (g *graphTables) get(name string) *table.Table {
	if g == nil {
		return nil
	}
	switch name {
	case TableEntities:
		return g.entities
	case TableRelationships:
		return g.relationships
	}
	return nil
}

// Resolve loads required and optional tables. A missing required table fails with a
// TableNotFoundError naming the table and index; a missing optional table is a nil
// slot (single index) or omitted from the list (multi-index). Graph failures never fail
// the call: entities and relationships then come from the columnar store alone.
func (r *Resolver) Resolve(ctx context.Context, required, optional []string, routing RoutingConfig) (*Bundle, error) {
	start := time.Now()

	bundle, err := r.resolve(ctx, required, optional, routing)

	status := "success"
	if err != nil {
		status = "error"
		r.collector.RecordError(ctx, "resolve", errorKind(err))
	}
	r.collector.RecordOperation(ctx, "resolve", status, time.Since(start).Milliseconds())
	return bundle, err
}

func (r *Resolver) resolve(ctx context.Context, required, optional []string, routing RoutingConfig) (*Bundle, error) {
	gt := r.loadGraph(ctx, append(append([]string{}, required...), optional...), routing)

	if len(routing.Outputs) == 0 {
		if routing.Output.Store == nil {
			return nil, gberrors.ConfigErrorf("no output store configured")
		}
		tables, err := r.resolveIndex(ctx, routing.Output, required, optional, gt, routing.Policy)
		if err != nil {
			return nil, err
		}

		bundle := newBundle(false, []string{routing.Output.Name})
		for _, name := range append(append([]string{}, required...), optional...) {
			bundle.Tables[name] = Slot{Table: tables[name]}
		}
		return bundle, nil
	}

	names := make([]string, len(routing.Outputs))
	for i, idx := range routing.Outputs {
		if idx.Store == nil {
			return nil, gberrors.ConfigErrorf("index %q has no store", idx.Name)
		}
		names[i] = idx.Name
	}

	results := make([]map[string]*table.Table, len(routing.Outputs))
	g, gctx := errgroup.WithContext(ctx)
	if routing.MaxParallel > 0 {
		g.SetLimit(routing.MaxParallel)
	}
	for i, idx := range routing.Outputs {
		i, idx := i, idx
		g.Go(func() error {
			tables, err := r.resolveIndex(gctx, idx, required, optional, gt, routing.Policy)
			if err != nil {
				return err
			}
			results[i] = tables
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bundle := newBundle(true, names)
	for _, name := range append(append([]string{}, required...), optional...) {
		list := make([]*table.Table, 0, len(results))
		for _, tables := range results {
			if t := tables[name]; t != nil {
				list = append(list, t)
			}
		}
		bundle.Tables[name] = Slot{Tables: list}
	}

	r.logger.WithFields(logrus.Fields{
		"indexes":  len(names),
		"required": required,
		"optional": optional,
	}).Debug("multi-index resolution complete")
	return bundle, nil
}

// loadGraph fetches the graph tables needed by names. A table that fails to load
// logs a warning and stays nil so that table alone is served from columnar
// storage. Returns nil when nothing loaded.
func (r *Resolver) loadGraph(ctx context.Context, names []string, routing RoutingConfig) *graphTables {
	if routing.Graph == nil || routing.Policy == PolicyColumnarOnly {
		return nil
	}

	var wantEntities, wantRelationships bool
	for _, n := range names {
		wantEntities = wantEntities || n == TableEntities
		wantRelationships = wantRelationships || n == TableRelationships
	}
	if !wantEntities && !wantRelationships {
		return nil
	}

	start := time.Now()
	gt := &graphTables{}
	if wantEntities {
		gt.entities = r.loadGraphTable(ctx, TableEntities, routing.Graph.LoadEntities)
	}
	if wantRelationships {
		gt.relationships = r.loadGraphTable(ctx, TableRelationships, routing.Graph.LoadRelationships)
	}
	if gt.entities == nil && gt.relationships == nil {
		return nil
	}

	r.collector.RecordStage(ctx, "resolve", "graph_load", time.Since(start).Milliseconds())
	r.logger.WithFields(logrus.Fields{
		"entities":      gt.entities.Len(),
		"relationships": gt.relationships.Len(),
		"policy":        routing.Policy.String(),
	}).Debug("graph tables loaded")
	return gt
}

func (r *Resolver) loadGraphTable(ctx context.Context, name string, load func(context.Context) (*table.Table, error)) *table.Table {
	t, err := load(ctx)
	if err != nil {
		r.logger.WithError(err).WithField("table", name).
			Warn("graph backend unavailable, serving columnar table")
		r.collector.RecordFallback(ctx, "graph_error")
		return nil
	}
	return t
}

func (r *Resolver) resolveIndex(ctx context.Context, idx IndexDescriptor, required, optional []string, gt *graphTables, policy Policy) (map[string]*table.Table, error) {
	out := make(map[string]*table.Table, len(required)+len(optional))

	for _, name := range required {
		t, err := r.loadTable(ctx, idx, name, true, gt, policy)
		if err != nil {
			return nil, err
		}
		out[name] = t
	}
	for _, name := range optional {
		t, err := r.loadTable(ctx, idx, name, false, gt, policy)
		if err != nil {
			return nil, err
		}
		if t != nil {
			out[name] = t
		}
	}
	return out, nil
}

// loadTable returns nil, nil for an absent optional table. Only PolicyGraphOnly
// serves a graph table in place of a missing columnar one.
func (r *Resolver) loadTable(ctx context.Context, idx IndexDescriptor, name string, required bool, gt *graphTables, policy Policy) (*table.Table, error) {
	graphTable := gt.get(name)

	if graphTable != nil && policy == PolicyGraphOnly {
		return graphTable.Clone(), nil
	}

	columnar, err := r.readColumnar(ctx, idx, name, required)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, gberrors.TableNotFoundError(name, idx.Name, err)
		}
		return nil, fmt.Errorf("read %s from index %q: %w", name, idx.Name, err)
	}
	if columnar == nil {
		return nil, nil
	}

	if graphTable == nil || !reconciled(name) {
		return columnar, nil
	}

	filtered, ok := filterByMembership(name, columnar, graphTable)
	if !ok {
		r.logger.WithFields(logrus.Fields{
			"table": name,
			"index": idx.Name,
			"rows":  columnar.Len(),
		}).Info("no columnar rows match the graph, serving unfiltered table")
		r.collector.RecordFallback(ctx, "empty_filter")
		return columnar, nil
	}

	r.logger.WithFields(logrus.Fields{
		"table":    name,
		"index":    idx.Name,
		"columnar": columnar.Len(),
		"kept":     filtered.Len(),
	}).Debug("reconciled with graph")
	return filtered, nil
}

// readColumnar reads required tables directly and probes optional ones with Exists.
// An absent optional table returns nil, nil.
func (r *Resolver) readColumnar(ctx context.Context, idx IndexDescriptor, name string, required bool) (*table.Table, error) {
	if !required {
		exists, err := idx.Store.Exists(ctx, name)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, nil
		}
	}
	return idx.Store.Read(ctx, name)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, gberrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, gberrors.ErrConfig):
		return "config"
	default:
		return "backend"
	}
}
