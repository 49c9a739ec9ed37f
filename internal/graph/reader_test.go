package graph_test

import (
	"context"
	"testing"

	"github.com/rohankatakam/graphbridge/internal/graph"
	"github.com/rohankatakam/graphbridge/internal/graph/graphtest"
	"github.com/rohankatakam/graphbridge/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderLoadEntities(t *testing.T) {
	driver := graphtest.NewDriver()
	driver.PutNode("ALICE", map[string]any{"degree": int64(2), "description": "a person"})
	driver.PutNode("BOB", nil)

	r := graph.NewReader(driver, "")
	entities, err := r.LoadEntities(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, entities.Len())
	assert.Equal(t, table.ColumnTitle, entities.Columns[0])
	assert.Equal(t, "ALICE", entities.Rows[0].Get(table.ColumnTitle).String())
	assert.Equal(t, table.KindInt, entities.Rows[0].Get("degree").Kind())
	assert.False(t, entities.Rows[1].Has("description"))

	for _, c := range driver.Calls() {
		assert.Equal(t, graph.RoutingRead, c.Mode)
		assert.Equal(t, graph.OpGraphRead, c.Operation)
	}
}

func TestReaderLoadRelationshipsFillsDefaults(t *testing.T) {
	driver := graphtest.NewDriver()
	driver.PutEdge("ALICE", "BOB", map[string]any{"weight": 3.0, "description": "knows"})
	driver.PutEdge("BOB", "CAROL", nil)

	r := graph.NewReader(driver, "neo4j")
	rels, err := r.LoadRelationships(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, rels.Len())

	first := rels.Rows[0]
	assert.Equal(t, "ALICE", first.Get(table.ColumnSource).String())
	assert.Equal(t, "BOB", first.Get(table.ColumnTarget).String())
	assert.Equal(t, 3.0, first.Get(table.ColumnWeight).Native())
	assert.Equal(t, "knows", first.Get("description").String())
	assert.Equal(t, graph.RelationshipType, first.Get("type").String())

	second := rels.Rows[1]
	assert.Equal(t, "graph_rel_1", second.Get("id").String())
	assert.Equal(t, int64(1), second.Get("human_readable_id").Native())
	assert.Equal(t, 1.0, second.Get(table.ColumnWeight).Native())
	assert.Equal(t, int64(1), second.Get("combined_degree").Native())
	assert.Equal(t, "", second.Get("description").String())
	assert.Equal(t, table.KindList, second.Get("text_unit_ids").Kind())

	assert.True(t, rels.HasColumns("id", "human_readable_id", "combined_degree", "text_unit_ids"))
}

func TestReaderCounts(t *testing.T) {
	driver := graphtest.NewDriver()
	driver.PutEdge("A", "B", nil)
	driver.PutNode("C", nil)

	nodes, edges, err := graph.NewReader(driver, "").Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), nodes)
	assert.Equal(t, int64(1), edges)
}

func TestReaderUnreachable(t *testing.T) {
	driver := graphtest.NewDriver()
	driver.Unreachable = true

	_, err := graph.NewReader(driver, "").LoadEntities(context.Background())
	assert.ErrorIs(t, err, graphtest.ErrUnreachable)
}
