package workflow

import (
	"context"

	"github.com/google/uuid"
	gberrors "github.com/rohankatakam/graphbridge/internal/errors"
	"github.com/rohankatakam/graphbridge/internal/table"
)

// Finalizer turns computed entity and relationship tables into their final form.
// Implementations must not modify their inputs.
type Finalizer interface {
	Finalize(ctx context.Context, entities, relationships *table.Table) (*table.Table, *table.Table, error)
}

// DefaultFinalizer deduplicates by merge key and adds the identifier and degree
// columns search consumers read
type DefaultFinalizer struct{}

// Finalize implements Finalizer
func (DefaultFinalizer) Finalize(ctx context.Context, entities, relationships *table.Table) (*table.Table, *table.Table, error) {
	if entities == nil || !entities.HasColumns(table.ColumnTitle) {
		return nil, nil, gberrors.SchemaError("entities", table.ColumnTitle)
	}
	if relationships == nil || !relationships.HasColumns(table.ColumnSource, table.ColumnTarget) {
		return nil, nil, gberrors.SchemaError("relationships", table.ColumnSource, table.ColumnTarget)
	}

	relRows := dedupeRelationships(relationships)
	degrees := degreeByTitle(relRows)

	return finalizeEntities(entities, degrees), finalizeRelationships(relationships.Columns, relRows, degrees), nil
}

func finalizeEntities(in *table.Table, degrees map[string]int) *table.Table {
	out := table.New(append([]string{"id", "human_readable_id"}, in.Columns...)...)
	seen := make(map[string]bool, in.Len())

	for _, row := range in.Rows {
		title, ok := row.Get(table.ColumnTitle).AsString()
		if ok && title != "" {
			if seen[title] {
				continue
			}
			seen[title] = true
		}

		r := row.Clone()
		if !r.Has("id") {
			r["id"] = table.String(uuid.NewString())
		}
		r["human_readable_id"] = table.Int(int64(out.Len()))
		r["degree"] = table.Int(int64(degrees[title]))
		out.Append(r)
	}
	return out
}

// dedupeRelationships keeps the first row per (source, target)
func dedupeRelationships(in *table.Table) []table.Row {
	out := make([]table.Row, 0, in.Len())
	seen := make(map[[2]string]bool, in.Len())

	for _, row := range in.Rows {
		s, okS := row.Get(table.ColumnSource).AsString()
		t, okT := row.Get(table.ColumnTarget).AsString()
		if okS && okT {
			key := [2]string{s, t}
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, row)
	}
	return out
}

func finalizeRelationships(columns []string, rows []table.Row, degrees map[string]int) *table.Table {
	out := table.New(append([]string{"id", "human_readable_id"}, columns...)...)

	for _, row := range rows {
		r := row.Clone()
		if !r.Has("id") {
			r["id"] = table.String(uuid.NewString())
		}
		r["human_readable_id"] = table.Int(int64(out.Len()))
		if !r.Has(table.ColumnWeight) {
			r[table.ColumnWeight] = table.Float(1.0)
		}
		s, _ := r.Get(table.ColumnSource).AsString()
		t, _ := r.Get(table.ColumnTarget).AsString()
		r["combined_degree"] = table.Int(int64(degrees[s] + degrees[t]))
		out.Append(r)
	}
	return out
}

// degreeByTitle counts distinct neighbours per title, treating edges as undirected
func degreeByTitle(rows []table.Row) map[string]int {
	neighbours := make(map[string]map[string]struct{})
	add := func(a, b string) {
		if neighbours[a] == nil {
			neighbours[a] = make(map[string]struct{})
		}
		neighbours[a][b] = struct{}{}
	}

	for _, row := range rows {
		s, okS := row.Get(table.ColumnSource).AsString()
		t, okT := row.Get(table.ColumnTarget).AsString()
		if !okS || !okT {
			continue
		}
		add(s, t)
		add(t, s)
	}

	out := make(map[string]int, len(neighbours))
	for title, n := range neighbours {
		out[title] = len(n)
	}
	return out
}
