package graphvana

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphvana/graphvana/pkg/config"
	"github.com/graphvana/graphvana/pkg/document"
	"github.com/graphvana/graphvana/pkg/gql/planner"
	"github.com/graphvana/graphvana/pkg/graph"
)

func TestExecute(t *testing.T) {
	db := New(nil)

	res, err := db.Execute(`CREATE ({_ID: "a"})-[{_ID: "ab"}]->({_ID: "b"})`)
	require.NoError(t, err)
	assert.Nil(t, res.Result)
	assert.Equal(t, []string{"a", "b"}, res.Diff.AddedNodes)
	assert.Equal(t, []string{"ab"}, res.Diff.AddedEdges)
	assert.Equal(t, 2, db.Graph().NodeCount())

	res, err = db.Execute(`MATCH (x)-->(y) RETURN x, y`)
	require.NoError(t, err)
	require.NotNil(t, res.Result)
	assert.Len(t, res.Result.Rows, 1)
	assert.True(t, res.Diff.Empty(), "read queries change nothing")

	t.Run("failed query keeps the snapshot", func(t *testing.T) {
		before := db.Graph()
		_, err := db.Execute(`MATCH (x) DELETE x RETURN y`)
		require.Error(t, err)
		assert.True(t, graph.Equal(before, db.Graph()))
	})

	t.Run("old snapshots stay usable", func(t *testing.T) {
		before := db.Graph()
		_, err := db.Execute(`MATCH (x {_ID: "a"}) DELETE x`)
		require.NoError(t, err)
		assert.True(t, before.HasNode("a"))
		assert.False(t, db.Graph().HasNode("a"))
	})
}

func TestExecuteAppliesLimits(t *testing.T) {
	cfg := config.LoadDefaults()
	cfg.Engine.MaxRows = 2
	db := New(cfg)

	_, err := db.Execute(`CREATE (), (), ()`)
	require.NoError(t, err)
	_, err = db.Execute(`MATCH (x) RETURN x`)
	require.ErrorIs(t, err, planner.ErrRowLimit)
}

func TestOpenAndSnapshot(t *testing.T) {
	db := New(nil)
	_, err := db.Execute(`CREATE (:Person{_ID: "a", name: "ada"})`)
	require.NoError(t, err)

	doc, err := db.Snapshot()
	require.NoError(t, err)
	doc.Transformations = []document.Transformation{
		{Name: "clear", Query: "MATCH (x) DELETE x"},
	}

	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, doc.Save(path))

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	assert.True(t, graph.Equal(db.Graph(), reopened.Graph()))

	t.Run("apply a stored transformation", func(t *testing.T) {
		res, err := reopened.ApplyTransformation(doc, "clear")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, res.Diff.RemovedNodes)
		assert.Equal(t, 0, reopened.Graph().NodeCount())

		_, err = reopened.ApplyTransformation(doc, "missing")
		require.Error(t, err)
	})

	t.Run("invalid document is rejected", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, (&document.Document{}).Save(bad))
		_, err := Open(bad, nil)
		require.Error(t, err)
	})
}

func TestExplain(t *testing.T) {
	db := New(nil)
	out, err := db.Explain(`MATCH (x) RETURN x`)
	require.NoError(t, err)
	assert.Contains(t, out, "ScanGraph")
	assert.Equal(t, 0, db.Graph().NodeCount(), "explain does not execute")
}

func TestComputeDiff(t *testing.T) {
	old, err := graph.New().WithMutations(func(m *graph.Mutation) error {
		if err := m.CreateNode("a", nil, nil); err != nil {
			return err
		}
		if err := m.CreateNode("b", nil, nil); err != nil {
			return err
		}
		return m.CreateEdge("ab", "a", "b", nil, nil)
	})
	require.NoError(t, err)

	next := old.RemoveNode("b")
	next, err = next.CreateNode("c", nil, nil)
	require.NoError(t, err)

	d := ComputeDiff(old, next)
	assert.Equal(t, []string{"c"}, d.AddedNodes)
	assert.Equal(t, []string{"b"}, d.RemovedNodes)
	assert.Empty(t, d.AddedEdges)
	assert.Equal(t, []string{"ab"}, d.RemovedEdges)
	assert.False(t, d.Empty())

	assert.True(t, ComputeDiff(old, old).Empty())
}
