package workflow

import (
	"context"
	"testing"

	"github.com/rohankatakam/graphbridge/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFinalizer(t *testing.T) {
	entities := computedEntities()
	entities.Append(table.Row{table.ColumnTitle: table.String("ALICE"), "description": table.String("duplicate")})

	relationships := computedRelationships()
	relationships.Append(table.Row{table.ColumnSource: table.String("ALICE"), table.ColumnTarget: table.String("BOB")})

	ents, rels, err := DefaultFinalizer{}.Finalize(context.Background(), entities, relationships)
	require.NoError(t, err)

	require.Equal(t, 3, ents.Len())
	assert.Equal(t, []string{"id", "human_readable_id"}, ents.Columns[:2])
	assert.Equal(t, "about ALICE", ents.Rows[0].Get("description").String())

	ids := map[string]bool{}
	for i, row := range ents.Rows {
		id := row.Get("id").String()
		assert.NotEmpty(t, id)
		ids[id] = true
		assert.True(t, row.Get("human_readable_id").Equal(table.Int(int64(i))))
	}
	assert.Len(t, ids, 3)

	degree := func(i int) table.Value { return ents.Rows[i].Get("degree") }
	assert.True(t, degree(0).Equal(table.Int(1)), "ALICE")
	assert.True(t, degree(1).Equal(table.Int(2)), "BOB")
	assert.True(t, degree(2).Equal(table.Int(1)), "CAROL")

	require.Equal(t, 2, rels.Len())
	assert.True(t, rels.Rows[0].Get(table.ColumnWeight).Equal(table.Float(2)))
	assert.True(t, rels.Rows[1].Get(table.ColumnWeight).Equal(table.Float(1)))
	assert.True(t, rels.Rows[0].Get("combined_degree").Equal(table.Int(3)))
	assert.True(t, rels.Rows[1].Get("combined_degree").Equal(table.Int(3)))

	assert.Equal(t, 4, entities.Len(), "input untouched")
	assert.False(t, relationships.Rows[1].Has(table.ColumnWeight))
}

func TestDefaultFinalizerKeepsExistingIDs(t *testing.T) {
	entities := table.New(table.ColumnTitle, "id")
	entities.Append(table.Row{table.ColumnTitle: table.String("A"), "id": table.String("e-1")})

	ents, _, err := DefaultFinalizer{}.Finalize(context.Background(), entities, table.New(table.ColumnSource, table.ColumnTarget))
	require.NoError(t, err)
	assert.Equal(t, "e-1", ents.Rows[0].Get("id").String())
	assert.True(t, ents.Rows[0].Get("degree").Equal(table.Int(0)))
}

func TestBuildGraphMLSkipsRowsWithoutEndpoints(t *testing.T) {
	rels := computedRelationships()
	rels.Append(table.Row{table.ColumnSource: table.String("DAVE")})

	data, err := BuildGraphML(rels)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "DAVE")
	assert.Contains(t, string(data), `edgedefault="undirected"`)

	_, err = BuildGraphML(table.New("from", "to"))
	assert.Error(t, err)
}
