package graph_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	gberrors "github.com/rohankatakam/graphbridge/internal/errors"
	"github.com/rohankatakam/graphbridge/internal/graph"
	"github.com/rohankatakam/graphbridge/internal/graph/graphtest"
	"github.com/rohankatakam/graphbridge/internal/metrics"
	"github.com/rohankatakam/graphbridge/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entityTable(titles ...string) *table.Table {
	t := table.New(table.ColumnTitle, "description")
	for _, title := range titles {
		t.Append(table.Row{
			table.ColumnTitle: table.String(title),
			"description":     table.String("about " + title),
		})
	}
	return t
}

func relationshipTable(pairs ...[2]string) *table.Table {
	t := table.New(table.ColumnSource, table.ColumnTarget, table.ColumnWeight)
	for _, p := range pairs {
		t.Append(table.Row{
			table.ColumnSource: table.String(p[0]),
			table.ColumnTarget: table.String(p[1]),
			table.ColumnWeight: table.Float(1.5),
		})
	}
	return t
}

func newMaterializer(d graph.Driver, batchSize int) *graph.Materializer {
	return graph.NewMaterializer(d, graph.MaterializerConfig{
		Batch: graph.UniformBatchConfig(batchSize),
	}, metrics.NewNoopCollector())
}

func TestMaterializeBatchBoundaries(t *testing.T) {
	driver := graphtest.NewDriver()
	m := newMaterializer(driver, 2)

	res, err := m.Materialize(context.Background(),
		entityTable("A", "B", "C", "D", "E"),
		relationshipTable())
	require.NoError(t, err)

	writes := driver.WriteCalls()
	require.Len(t, writes, 3)
	for i, want := range []int{2, 2, 1} {
		rows := writes[i].Params["rows"].([]map[string]any)
		assert.Len(t, rows, want, "batch %d", i)
		assert.Equal(t, graph.RoutingWrite, writes[i].Mode)
		assert.Equal(t, graph.OpEntityMerge, writes[i].Operation)
	}

	assert.Equal(t, 3, res.EntityBatches)
	assert.Equal(t, 0, res.RelationshipBatches)
	assert.Equal(t, 5, res.EntitiesWritten)
	assert.Equal(t, 0, driver.OpenSessions())
}

func TestMaterializeIsIdempotent(t *testing.T) {
	driver := graphtest.NewDriver()
	m := newMaterializer(driver, 1000)
	ctx := context.Background()

	entities := entityTable("ALICE", "BOB", "CAROL")
	relationships := relationshipTable([2]string{"ALICE", "BOB"}, [2]string{"BOB", "CAROL"})

	_, err := m.Materialize(ctx, entities, relationships)
	require.NoError(t, err)
	firstNode, _ := driver.Node("ALICE")
	firstEdge, _ := driver.Edge("ALICE", "BOB")

	_, err = m.Materialize(ctx, entities, relationships)
	require.NoError(t, err)

	assert.Equal(t, 3, driver.NodeCount())
	assert.Equal(t, 2, driver.EdgeCount())

	node, _ := driver.Node("ALICE")
	edge, _ := driver.Edge("ALICE", "BOB")
	assert.Equal(t, firstNode, node)
	assert.Equal(t, firstEdge, edge)
}

func TestMaterializeNullKeepsStoredProperty(t *testing.T) {
	driver := graphtest.NewDriver()
	m := newMaterializer(driver, 1000)
	ctx := context.Background()

	_, err := m.Materialize(ctx, entityTable("ALICE"), relationshipTable())
	require.NoError(t, err)

	update := table.New(table.ColumnTitle, "description", "degree")
	update.Append(table.Row{
		table.ColumnTitle: table.String("ALICE"),
		"description":     table.Null(),
		"degree":          table.Int(4),
	})
	_, err = m.Materialize(ctx, update, relationshipTable())
	require.NoError(t, err)

	node, ok := driver.Node("ALICE")
	require.True(t, ok)
	assert.Equal(t, "about ALICE", node["description"])
	assert.Equal(t, int64(4), node["degree"])

	// the null cell never reaches the parameter map
	writes := driver.WriteCalls()
	last := writes[len(writes)-1].Params["rows"].([]map[string]any)
	assert.NotContains(t, last[0], "description")
}

func TestMaterializeSkipsRowsWithoutKeys(t *testing.T) {
	driver := graphtest.NewDriver()
	m := newMaterializer(driver, 1000)

	entities := entityTable("ALICE")
	entities.Append(table.Row{table.ColumnTitle: table.Null(), "description": table.String("orphan")})
	entities.Append(table.Row{table.ColumnTitle: table.String("")})

	relationships := relationshipTable([2]string{"ALICE", "BOB"})
	relationships.Append(table.Row{table.ColumnSource: table.String("ALICE"), table.ColumnTarget: table.Null()})

	res, err := m.Materialize(context.Background(), entities, relationships)
	require.NoError(t, err)

	assert.Equal(t, 2, res.SkippedEntities)
	assert.Equal(t, 1, res.SkippedRelationships)
	assert.Equal(t, 1, res.EntitiesWritten)
	assert.Equal(t, 1, res.RelationshipsWritten)
	assert.Equal(t, 2, driver.NodeCount())
}

func TestMaterializeCoercesRelationshipValues(t *testing.T) {
	driver := graphtest.NewDriver()
	m := newMaterializer(driver, 1000)

	relationships := table.New(table.ColumnSource, table.ColumnTarget, table.ColumnWeight)
	relationships.Append(table.Row{table.ColumnSource: table.Int(1), table.ColumnTarget: table.Int(2), table.ColumnWeight: table.String("2.5")})
	relationships.Append(table.Row{table.ColumnSource: table.String("X"), table.ColumnTarget: table.String("Y"), table.ColumnWeight: table.Int(3)})
	relationships.Append(table.Row{table.ColumnSource: table.String("Y"), table.ColumnTarget: table.String("Z"), table.ColumnWeight: table.String("heavy")})

	_, err := m.Materialize(context.Background(), entityTable(), relationships)
	require.NoError(t, err)

	e, ok := driver.Edge("1", "2")
	require.True(t, ok)
	assert.Equal(t, 2.5, e["weight"])

	e, _ = driver.Edge("X", "Y")
	assert.Equal(t, 3.0, e["weight"])

	e, ok = driver.Edge("Y", "Z")
	require.True(t, ok)
	assert.NotContains(t, e, "weight")
}

func TestMaterializeSchemaErrorBeforeSideEffects(t *testing.T) {
	driver := graphtest.NewDriver()
	m := newMaterializer(driver, 1000)

	noTitle := table.New("name")
	noTitle.Append(table.Row{"name": table.String("ALICE")})

	_, err := m.Materialize(context.Background(), noTitle, relationshipTable())
	require.Error(t, err)
	assert.True(t, errors.Is(err, gberrors.ErrSchema))
	assert.Equal(t, "entities", gberrors.TableName(err))

	noTarget := table.New(table.ColumnSource)
	_, err = m.Materialize(context.Background(), entityTable("A"), noTarget)
	assert.True(t, errors.Is(err, gberrors.ErrSchema))

	assert.Empty(t, driver.Calls())
}

func TestMaterializeReportsCommittedBatches(t *testing.T) {
	driver := graphtest.NewDriver()
	driver.FailOnWrite = 4
	m := newMaterializer(driver, 2)

	res, err := m.Materialize(context.Background(),
		entityTable("A", "B", "C", "D", "E"),
		relationshipTable([2]string{"A", "B"}, [2]string{"B", "C"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, gberrors.ErrBackend))

	committed, ok := gberrors.CommittedBatches(err)
	require.True(t, ok)
	assert.Equal(t, 3, committed)
	assert.Equal(t, 3, res.CommittedBatches())

	// committed batches stay in place
	assert.Equal(t, 5, driver.NodeCount())
	assert.Equal(t, 0, driver.EdgeCount())
	assert.Equal(t, 0, driver.OpenSessions())
}

func TestMaterializeUnreachableGraph(t *testing.T) {
	driver := graphtest.NewDriver()
	driver.Unreachable = true
	m := newMaterializer(driver, 2)

	_, err := m.Materialize(context.Background(), entityTable("A"), relationshipTable())
	require.Error(t, err)
	assert.True(t, errors.Is(err, gberrors.ErrNetwork))
}

func TestMaterializeQuotesPropertyNames(t *testing.T) {
	driver := graphtest.NewDriver()
	m := newMaterializer(driver, 1000)

	entities := table.New(table.ColumnTitle)
	entities.Append(table.Row{
		table.ColumnTitle: table.String("A"),
		"we`ird name":     table.String("x"),
	})

	_, err := m.Materialize(context.Background(), entities, relationshipTable())
	require.NoError(t, err)

	writes := driver.WriteCalls()
	require.Len(t, writes, 1)
	assert.Contains(t, writes[0].Query, "n.`we``ird name` = coalesce(row.`we``ird name`, n.`we``ird name`)")
}

func TestMaterializeEnsuresConstraintFirst(t *testing.T) {
	driver := graphtest.NewDriver()
	m := graph.NewMaterializer(driver, graph.MaterializerConfig{EnsureConstraints: true}, nil)

	_, err := m.Materialize(context.Background(), entityTable("A"), relationshipTable())
	require.NoError(t, err)

	calls := driver.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, graph.OpIndexCreation, calls[0].Operation)
	assert.Contains(t, calls[0].Query, "CREATE CONSTRAINT")
}

func TestMaterializeBatchSizeOverride(t *testing.T) {
	driver := graphtest.NewDriver()
	m := newMaterializer(driver, 1000)

	titles := make([]string, 10)
	for i := range titles {
		titles[i] = fmt.Sprintf("E%d", i)
	}
	res, err := m.Materialize(context.Background(), entityTable(titles...), relationshipTable(), graph.WithBatchSize(4))
	require.NoError(t, err)
	assert.Equal(t, 3, res.EntityBatches)
}

func TestMaterializeRecordsMetrics(t *testing.T) {
	driver := graphtest.NewDriver()
	collector := metrics.NewPrometheusCollector()
	m := graph.NewMaterializer(driver, graph.MaterializerConfig{Batch: graph.UniformBatchConfig(2)}, collector)

	_, err := m.Materialize(context.Background(), entityTable("A", "B", "C"), relationshipTable([2]string{"A", "B"}))
	require.NoError(t, err)

	families, err := collector.Registry().Gather()
	require.NoError(t, err)

	var batches float64
	for _, f := range families {
		if f.GetName() == "graphbridge_graph_batches_total" {
			for _, metric := range f.GetMetric() {
				batches += metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 3.0, batches)
}
