package resolver

import (
	"github.com/rohankatakam/graphbridge/internal/table"
)

// Tables that take part in reconciliation
const (
	TableEntities      = "entities"
	TableRelationships = "relationships"
)

func reconciled(name string) bool {
	return name == TableEntities || name == TableRelationships
}

type edgeKey struct {
	source string
	target string
}

// filterByMembership keeps the columnar rows whose key exists in the graph table.
// The columnar table stays authoritative for columns. ok is false when nothing
// survives, in which case the caller serves the unfiltered table.
func filterByMembership(name string, columnar, graphTable *table.Table) (*table.Table, bool) {
	var keep func(table.Row) bool

	switch name {
	case TableEntities:
		titles := make(map[string]struct{}, graphTable.Len())
		for _, row := range graphTable.Rows {
			if title, ok := row.Get(table.ColumnTitle).AsString(); ok {
				titles[title] = struct{}{}
			}
		}
		keep = func(row table.Row) bool {
			title, ok := row.Get(table.ColumnTitle).AsString()
			if !ok {
				return false
			}
			_, found := titles[title]
			return found
		}

	case TableRelationships:
		edges := make(map[edgeKey]struct{}, graphTable.Len())
		for _, row := range graphTable.Rows {
			if k, ok := relationshipKey(row); ok {
				edges[k] = struct{}{}
			}
		}
		keep = func(row table.Row) bool {
			k, ok := relationshipKey(row)
			if !ok {
				return false
			}
			_, found := edges[k]
			return found
		}

	default:
		return columnar, true
	}

	filtered := columnar.Filter(keep)
	if filtered.Len() == 0 {
		return columnar, false
	}
	return filtered, true
}

func relationshipKey(row table.Row) (edgeKey, bool) {
	source, okS := row.Get(table.ColumnSource).AsString()
	target, okT := row.Get(table.ColumnTarget).AsString()
	return edgeKey{source, target}, okS && okT
}
