package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	gberrors "github.com/rohankatakam/graphbridge/internal/errors"
	"github.com/rohankatakam/graphbridge/internal/graph"
	"github.com/rohankatakam/graphbridge/internal/graph/graphtest"
	"github.com/rohankatakam/graphbridge/internal/storage"
	"github.com/rohankatakam/graphbridge/internal/table"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func computedEntities() *table.Table {
	t := table.New(table.ColumnTitle, "type", "description")
	for _, title := range []string{"ALICE", "BOB", "CAROL"} {
		t.Append(table.Row{
			table.ColumnTitle: table.String(title),
			"type":            table.String("PERSON"),
			"description":     table.String("about " + title),
		})
	}
	return t
}

func computedRelationships() *table.Table {
	t := table.New(table.ColumnSource, table.ColumnTarget, "description")
	t.Append(table.Row{table.ColumnSource: table.String("ALICE"), table.ColumnTarget: table.String("BOB"), table.ColumnWeight: table.Float(2)})
	t.Append(table.Row{table.ColumnSource: table.String("BOB"), table.ColumnTarget: table.String("CAROL")})
	return t
}

var completeConnection = graph.ConnectionInfo{
	URI:      "bolt://localhost:7687",
	Username: "neo4j",
	Password: "secret",
}

// fakeGraph returns a driver factory over d that counts constructions
func fakeGraph(d *graphtest.Driver, created *int) Option {
	return WithDriverFactory(func(info graph.ConnectionInfo) (graph.Driver, error) {
		*created++
		return d, nil
	})
}

func TestRunWritesTablesAndGraph(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	driver := graphtest.NewDriver()
	created := 0
	w := New(quietLogger(), nil, fakeGraph(driver, &created))

	entities := computedEntities()
	relationships := computedRelationships()

	res, err := w.Run(ctx, entities, relationships, OutputConfig{
		Store:        store,
		GraphEnabled: true,
		Connection:   completeConnection,
	})
	require.NoError(t, err)

	assert.Same(t, entities, res.Entities)
	assert.Same(t, relationships, res.Relationships)
	assert.False(t, res.Entities.HasColumns("degree"), "input must not be modified")
	assert.True(t, res.TablesWritten)
	require.NotNil(t, res.Graph)
	assert.NoError(t, res.GraphError)
	assert.Equal(t, 1, created)

	stored, err := store.Read(ctx, EntitiesTable)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Len())
	assert.True(t, stored.HasColumns("id", "human_readable_id", "degree"))

	storedRels, err := store.Read(ctx, RelationshipsTable)
	require.NoError(t, err)
	assert.Equal(t, 2, storedRels.Len())

	assert.Equal(t, 3, driver.NodeCount())
	assert.Equal(t, 2, driver.EdgeCount())
	node, ok := driver.Node("BOB")
	require.True(t, ok)
	assert.EqualValues(t, 2, node["degree"])
}

func TestRunSwallowsGraphFailure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	driver := graphtest.NewDriver()
	driver.FailOnWrite = 1
	created := 0
	w := New(quietLogger(), nil, fakeGraph(driver, &created))

	res, err := w.Run(ctx, computedEntities(), computedRelationships(), OutputConfig{
		Store:        store,
		GraphEnabled: true,
		Connection:   completeConnection,
	})
	require.NoError(t, err)
	require.Error(t, res.GraphError)
	assert.True(t, errors.Is(res.GraphError, gberrors.ErrBackend))
	assert.Nil(t, res.Graph)

	exists, err := store.Exists(ctx, EntitiesTable)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunUnreachableGraph(t *testing.T) {
	driver := graphtest.NewDriver()
	driver.Unreachable = true
	created := 0
	w := New(quietLogger(), nil, fakeGraph(driver, &created))

	res, err := w.Run(context.Background(), computedEntities(), computedRelationships(), OutputConfig{
		Store:        storage.NewMemoryStore(),
		GraphEnabled: true,
		Connection:   completeConnection,
	})
	require.NoError(t, err)
	assert.True(t, errors.Is(res.GraphError, gberrors.ErrNetwork))
}

func TestRunGraphOnlySkipsTableWrites(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	driver := graphtest.NewDriver()
	created := 0
	w := New(quietLogger(), nil, fakeGraph(driver, &created))

	res, err := w.Run(ctx, computedEntities(), computedRelationships(), OutputConfig{
		Store:        store,
		GraphOnly:    true,
		GraphEnabled: true,
		Connection:   completeConnection,
	})
	require.NoError(t, err)
	assert.False(t, res.TablesWritten)

	exists, err := store.Exists(ctx, EntitiesTable)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 3, driver.NodeCount())
}

func TestRunIncompleteConnectionDisablesGraph(t *testing.T) {
	driver := graphtest.NewDriver()
	created := 0
	w := New(quietLogger(), nil, fakeGraph(driver, &created))

	res, err := w.Run(context.Background(), computedEntities(), computedRelationships(), OutputConfig{
		Store:        storage.NewMemoryStore(),
		GraphEnabled: true,
		Connection:   graph.ConnectionInfo{URI: "bolt://localhost:7687", Username: "neo4j"},
	})
	require.NoError(t, err)
	assert.True(t, res.GraphSkipped)
	assert.NoError(t, res.GraphError)
	assert.Zero(t, created)
	assert.Empty(t, driver.Calls())
}

func TestRunTableWriteFailureIsFatal(t *testing.T) {
	w := New(quietLogger(), nil)

	_, err := w.Run(context.Background(), computedEntities(), computedRelationships(), OutputConfig{
		Store: failingStore{storage.NewMemoryStore()},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gberrors.ErrBackend))
}

func TestRunSchemaErrorBeforeSideEffects(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	w := New(quietLogger(), nil)

	_, err := w.Run(ctx, table.New("name"), computedRelationships(), OutputConfig{Store: store})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gberrors.ErrSchema))

	exists, err := store.Exists(ctx, EntitiesTable)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunWritesGraphMLSnapshot(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	w := New(quietLogger(), nil)

	res, err := w.Run(ctx, computedEntities(), computedRelationships(), OutputConfig{
		Store:           store,
		SnapshotGraphML: true,
	})
	require.NoError(t, err)
	assert.NoError(t, res.SnapshotError)

	data, err := store.ReadBlob(ctx, GraphMLBlob)
	require.NoError(t, err)
	doc := string(data)
	assert.Contains(t, doc, `<node id="ALICE">`)
	assert.Contains(t, doc, `<edge source="ALICE" target="BOB">`)
	assert.Contains(t, doc, `<data key="d0">2</data>`)
	assert.Equal(t, 3, strings.Count(doc, "<node "))
}

func TestRunFromStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Write(ctx, computedEntities(), "computed_entities"))
	require.NoError(t, store.Write(ctx, computedRelationships(), "computed_relationships"))

	w := New(quietLogger(), nil)
	res, err := w.RunFromStore(ctx, OutputConfig{Store: store}, "computed_entities", "computed_relationships")
	require.NoError(t, err)
	assert.Equal(t, 3, res.FinalEntities.Len())

	_, err = w.RunFromStore(ctx, OutputConfig{Store: store}, "missing", "computed_relationships")
	assert.True(t, errors.Is(err, gberrors.ErrNotFound))
}

type failingStore struct {
	*storage.MemoryStore
}

func (failingStore) Write(ctx context.Context, t *table.Table, name string) error {
	return errors.New("disk full")
}
