package validation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rohankatakam/graphbridge/internal/graph"
	"github.com/rohankatakam/graphbridge/internal/graph/graphtest"
	"github.com/rohankatakam/graphbridge/internal/resolver"
	"github.com/rohankatakam/graphbridge/internal/storage"
	"github.com/rohankatakam/graphbridge/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, titles []string, edges [][2]string) *storage.MemoryStore {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	ents := table.New(table.ColumnTitle)
	for _, title := range titles {
		ents.Append(table.Row{table.ColumnTitle: table.String(title)})
	}
	rels := table.New(table.ColumnSource, table.ColumnTarget)
	for _, e := range edges {
		rels.Append(table.Row{table.ColumnSource: table.String(e[0]), table.ColumnTarget: table.String(e[1])})
	}

	require.NoError(t, store.Write(ctx, ents, resolver.TableEntities))
	require.NoError(t, store.Write(ctx, rels, resolver.TableRelationships))
	return store
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	driver := graphtest.NewDriver()
	for _, title := range []string{"A", "B", "C"} {
		driver.PutNode(title, nil)
	}
	driver.PutEdge("A", "B", nil)

	full := seed(t, []string{"A", "B", "C"}, [][2]string{{"A", "B"}})
	partial := seed(t, []string{"A", "B", "X", "Y"}, [][2]string{{"A", "B"}, {"X", "Y"}})

	v := NewConsistencyValidator(graph.NewReader(driver, ""))
	results, err := v.Validate(ctx, []resolver.IndexDescriptor{
		{Name: "full", Store: full},
		{Name: "partial", Store: partial},
		{Name: "empty", Store: storage.NewMemoryStore()},
	})
	require.NoError(t, err)
	require.Len(t, results, 6)

	assert.Equal(t, ValidationResult{
		Index: "full", Table: "entities",
		ColumnarCount: 3, GraphCount: 3, Overlap: 3, OverlapPercent: 100, PassedThreshold: true,
	}, results[0])
	assert.True(t, results[1].PassedThreshold)

	assert.Equal(t, 2, results[2].Overlap)
	assert.InDelta(t, 50.0, results[2].OverlapPercent, 0.001)
	assert.False(t, results[2].PassedThreshold)
	assert.InDelta(t, 50.0, results[3].OverlapPercent, 0.001)

	assert.Zero(t, results[4].ColumnarCount)
	assert.False(t, results[4].PassedThreshold)
	assert.False(t, AllPassed(results))

	lenient := NewConsistencyValidator(graph.NewReader(driver, "")).WithThreshold(0)
	results, err = lenient.Validate(ctx, []resolver.IndexDescriptor{{Name: "partial", Store: partial}})
	require.NoError(t, err)
	assert.True(t, AllPassed(results))
}

func TestValidateGraphUnavailable(t *testing.T) {
	driver := graphtest.NewDriver()
	driver.Unreachable = true

	v := NewConsistencyValidator(graph.NewReader(driver, ""))
	_, err := v.Validate(context.Background(), []resolver.IndexDescriptor{{Name: "x", Store: storage.NewMemoryStore()}})
	assert.Error(t, err)
}

func TestSaveReport(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	results := []ValidationResult{{Index: "main", Table: "entities", ColumnarCount: 2, GraphCount: 2, Overlap: 2, OverlapPercent: 100, PassedThreshold: true}}

	require.NoError(t, SaveReport(ctx, store, results))

	data, err := store.ReadBlob(ctx, ReportBlob)
	require.NoError(t, err)
	var decoded []ValidationResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, results, decoded)
}
