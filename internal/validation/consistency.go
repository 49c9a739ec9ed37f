package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rohankatakam/graphbridge/internal/graph"
	"github.com/rohankatakam/graphbridge/internal/resolver"
	"github.com/rohankatakam/graphbridge/internal/storage"
	"github.com/rohankatakam/graphbridge/internal/table"
)

// DefaultThreshold is the minimum overlap percentage for a table to pass
const DefaultThreshold = 95.0

// ReportBlob is the artifact name SaveReport writes
const ReportBlob = "consistency.json"

// ValidationResult compares one table of one index with the graph
type ValidationResult struct {
	Index           string  `json:"index" yaml:"index"`
	Table           string  `json:"table" yaml:"table"`
	ColumnarCount   int     `json:"columnar_count" yaml:"columnar_count"`
	GraphCount      int     `json:"graph_count" yaml:"graph_count"`
	Overlap         int     `json:"overlap" yaml:"overlap"`
	OverlapPercent  float64 `json:"overlap_percent" yaml:"overlap_percent"`
	PassedThreshold bool    `json:"passed" yaml:"passed"`
}

// ConsistencyValidator checks that the columnar output and the graph hold the same members
type ConsistencyValidator struct {
	source    graph.TableSource
	threshold float64
	logger    *slog.Logger
}

// NewConsistencyValidator creates a validator reading graph tables from source
func NewConsistencyValidator(source graph.TableSource) *ConsistencyValidator {
	return &ConsistencyValidator{
		source:    source,
		threshold: DefaultThreshold,
		logger:    slog.Default().With("component", "validation"),
	}
}

// WithThreshold overrides DefaultThreshold
func (v *ConsistencyValidator) WithThreshold(percent float64) *ConsistencyValidator {
	v.threshold = percent
	return v
}

// Validate compares entities and relationships of every index with the graph.
// The graph is read once; an absent columnar table counts as empty.
func (v *ConsistencyValidator) Validate(ctx context.Context, indexes []resolver.IndexDescriptor) ([]ValidationResult, error) {
	graphEntities, err := v.source.LoadEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph entities: %w", err)
	}
	graphRelationships, err := v.source.LoadRelationships(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph relationships: %w", err)
	}

	entityKeys := keySet(graphEntities, entityKey)
	relationshipKeys := keySet(graphRelationships, relationshipKey)

	var results []ValidationResult
	for _, idx := range indexes {
		entityResult, err := v.validateTable(ctx, idx, resolver.TableEntities, entityKeys, entityKey)
		if err != nil {
			return nil, fmt.Errorf("failed to validate entities of %s: %w", idx.Name, err)
		}
		results = append(results, entityResult)

		relationshipResult, err := v.validateTable(ctx, idx, resolver.TableRelationships, relationshipKeys, relationshipKey)
		if err != nil {
			return nil, fmt.Errorf("failed to validate relationships of %s: %w", idx.Name, err)
		}
		results = append(results, relationshipResult)
	}

	return results, nil
}

func (v *ConsistencyValidator) validateTable(ctx context.Context, idx resolver.IndexDescriptor, name string, graphKeys map[string]struct{}, key func(table.Row) (string, bool)) (ValidationResult, error) {
	columnar, err := idx.Store.Read(ctx, name)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return ValidationResult{}, err
	}

	overlap := 0
	for _, row := range columnarRows(columnar) {
		if k, ok := key(row); ok {
			if _, found := graphKeys[k]; found {
				overlap++
			}
		}
	}

	percent := 0.0
	if n := columnar.Len(); n > 0 {
		percent = float64(overlap) / float64(n) * 100.0
	}

	return ValidationResult{
		Index:           idx.Name,
		Table:           name,
		ColumnarCount:   columnar.Len(),
		GraphCount:      len(graphKeys),
		Overlap:         overlap,
		OverlapPercent:  percent,
		PassedThreshold: percent >= v.threshold,
	}, nil
}

func columnarRows(t *table.Table) []table.Row {
	if t == nil {
		return nil
	}
	return t.Rows
}

func entityKey(row table.Row) (string, bool) {
	title, ok := row.Get(table.ColumnTitle).AsString()
	return title, ok && title != ""
}

func relationshipKey(row table.Row) (string, bool) {
	source, okS := row.Get(table.ColumnSource).AsString()
	target, okT := row.Get(table.ColumnTarget).AsString()
	if !okS || !okT {
		return "", false
	}
	return source + "\x00" + target, true
}

func keySet(t *table.Table, key func(table.Row) (string, bool)) map[string]struct{} {
	out := make(map[string]struct{}, t.Len())
	for _, row := range columnarRows(t) {
		if k, ok := key(row); ok {
			out[k] = struct{}{}
		}
	}
	return out
}

// AllPassed reports whether every result met the threshold
func AllPassed(results []ValidationResult) bool {
	for _, r := range results {
		if !r.PassedThreshold {
			return false
		}
	}
	return true
}

// LogResults logs validation results in a formatted way
func LogResults(results []ValidationResult) {
	logger := slog.Default()

	logger.Info("═══ CONSISTENCY ═══")
	for _, r := range results {
		logger.Info(fmt.Sprintf("%-10s %-14s columnar=%d, graph=%d, overlap=%.1f%%",
			r.Index, r.Table+":", r.ColumnarCount, r.GraphCount, r.OverlapPercent))
	}

	if AllPassed(results) {
		logger.Info("✓ All tables within acceptable overlap")
	} else {
		logger.Warn("⚠️  WARNING: overlap below threshold - rerun materialize or review the graph")
	}
}

// SaveReport writes the results as a JSON artifact into store
func SaveReport(ctx context.Context, store storage.TableStore, results []ValidationResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return store.WriteBlob(ctx, ReportBlob, data)
}
