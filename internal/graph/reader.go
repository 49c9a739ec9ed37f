package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rohankatakam/graphbridge/internal/table"
)

// Reader loads graph-origin entity and relationship tables
type Reader struct {
	driver   Driver
	database string
	builder  *CypherBuilder
	logger   *slog.Logger
}

// NewReader creates a reader over driver. An empty database selects the server default.
func NewReader(driver Driver, database string) *Reader {
	return &Reader{
		driver:   driver,
		database: database,
		builder:  defaultBuilder,
		logger:   slog.Default().With("component", "graph_reader"),
	}
}

// LoadEntities returns one row per node; title leads the columns
func (r *Reader) LoadEntities(ctx context.Context) (*table.Table, error) {
	records, err := r.run(ctx, r.builder.EntitiesQuery())
	if err != nil {
		return nil, fmt.Errorf("load graph entities: %w", err)
	}

	props := make([]map[string]any, len(records))
	for i, rec := range records {
		props[i], _ = rec["props"].(map[string]any)
	}
	out := table.FromRecords(props, table.ColumnTitle)

	r.logger.Debug("graph entities loaded", "count", out.Len())
	return out, nil
}

// LoadRelationships returns one row per edge with endpoint titles, normalized
// by NormalizeRelationships
func (r *Reader) LoadRelationships(ctx context.Context) (*table.Table, error) {
	records, err := r.run(ctx, r.builder.RelationshipsQuery())
	if err != nil {
		return nil, fmt.Errorf("load graph relationships: %w", err)
	}

	out := table.New(table.ColumnSource, table.ColumnTarget)
	for _, rec := range records {
		props, _ := rec["props"].(map[string]any)
		row := make(table.Row, len(props)+3)
		for k, v := range props {
			row[k] = table.ValueOf(v)
		}
		row[table.ColumnSource] = table.ValueOf(rec["source"])
		row[table.ColumnTarget] = table.ValueOf(rec["target"])
		if typ, ok := rec["type"].(string); ok && !row.Has("type") {
			row["type"] = table.String(typ)
		}
		out.Append(row)
	}

	r.logger.Debug("graph relationships loaded", "count", out.Len())
	return NormalizeRelationships(out), nil
}

// Counts returns the number of entity nodes and relationship edges
func (r *Reader) Counts(ctx context.Context) (nodes, edges int64, err error) {
	records, err := r.run(ctx, r.builder.CountQuery())
	if err != nil {
		return 0, 0, fmt.Errorf("count graph: %w", err)
	}
	if len(records) == 0 {
		return 0, 0, nil
	}
	nodes, _ = records[0]["nodes"].(int64)
	edges, _ = records[0]["edges"].(int64)
	return nodes, edges, nil
}

func (r *Reader) run(ctx context.Context, query string) ([]map[string]any, error) {
	session, err := r.driver.OpenSession(ctx, r.database, RoutingRead)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	return session.Run(WithOperation(ctx, OpGraphRead), query, nil)
}

// Relationship columns filled by NormalizeRelationships when absent
var relationshipDefaults = []string{
	"id", "human_readable_id", table.ColumnWeight, "combined_degree", "description", "text_unit_ids",
}

// NormalizeRelationships fills the columns search consumers expect on graph-origin
// relationships. Existing non-null values are kept. Returns a new table.
func NormalizeRelationships(t *table.Table) *table.Table {
	out := table.New(append([]string{table.ColumnSource, table.ColumnTarget}, relationshipDefaults...)...)
	for i, row := range t.Rows {
		r := row.Clone()
		fill := func(col string, v table.Value) {
			if !r.Has(col) {
				r[col] = v
			}
		}
		fill("id", table.String(fmt.Sprintf("graph_rel_%d", i)))
		fill("human_readable_id", table.Int(int64(i)))
		fill(table.ColumnWeight, table.Float(1.0))
		fill("combined_degree", table.Int(1))
		fill("description", table.String(""))
		fill("text_unit_ids", table.List())
		out.Append(r)
	}
	return out
}
