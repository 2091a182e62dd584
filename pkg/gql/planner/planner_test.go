package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphvana/graphvana/pkg/graph"
	"github.com/graphvana/graphvana/pkg/gql/parser"
	"github.com/graphvana/graphvana/pkg/value"
)

// runQuery parses, plans, and executes in one shot.
func runQuery(g *graph.Graph, query string, opts ...Option) (*graph.Graph, *Result, error) {
	q, err := parser.ParseQuery(query)
	if err != nil {
		return nil, nil, err
	}
	plan, err := PlanQuery(q)
	if err != nil {
		return nil, nil, err
	}
	return plan.Execute(g, opts...)
}

func run(t *testing.T, g *graph.Graph, query string, opts ...Option) (*graph.Graph, *Result) {
	t.Helper()
	g2, res, err := runQuery(g, query, opts...)
	require.NoError(t, err, query)
	return g2, res
}

func buildGraph(t *testing.T, fn func(m *graph.Mutation) error) *graph.Graph {
	t.Helper()
	g, err := graph.New().WithMutations(fn)
	require.NoError(t, err)
	return g
}

// chainGraph builds n1 -e1-> n2 -e2-> n3 -e3-> n4.
func chainGraph(t *testing.T) *graph.Graph {
	t.Helper()
	return buildGraph(t, func(m *graph.Mutation) error {
		for _, id := range []string{"n1", "n2", "n3", "n4"} {
			if err := m.CreateNode(id, nil, nil); err != nil {
				return err
			}
		}
		for _, e := range [][3]string{{"e1", "n1", "n2"}, {"e2", "n2", "n3"}, {"e3", "n3", "n4"}} {
			if err := m.CreateEdge(e[0], e[1], e[2], nil, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// renderRows flattens result rows via Value.String for order-insensitive
// comparison.
func renderRows(res *Result) []string {
	out := make([]string, len(res.Rows))
	for i, row := range res.Rows {
		parts := make([]string, len(row))
		for j, v := range row {
			parts[j] = v.String()
		}
		out[i] = strings.Join(parts, "|")
	}
	return out
}

func TestMatchReturn(t *testing.T) {
	g := chainGraph(t)

	g2, res := run(t, g, `MATCH (x)-[e]->(y) RETURN x, e, y`)
	assert.True(t, graph.Equal(g, g2), "read query leaves the graph alone")
	require.NotNil(t, res)
	assert.Equal(t, []string{"x", "e", "y"}, res.Columns)
	assert.ElementsMatch(t, []string{
		"n1|e1|n2",
		"n2|e2|n3",
		"n3|e3|n4",
	}, renderRows(res))

	t.Run("no return yields nil result", func(t *testing.T) {
		_, res := run(t, g, `MATCH (x) DELETE x`)
		assert.Nil(t, res)
	})

	t.Run("multiple patterns cross product", func(t *testing.T) {
		_, res := run(t, g, `MATCH (x), (y) RETURN x, y`)
		assert.Len(t, res.Rows, 16)
	})

	t.Run("shared variable joins", func(t *testing.T) {
		_, res := run(t, g, `MATCH (x)-->(y) MATCH (y)-->(z) RETURN x, z`)
		assert.ElementsMatch(t, []string{"n1|n3", "n2|n4"}, renderRows(res))
	})
}

func TestDeleteAll(t *testing.T) {
	g := buildGraph(t, func(m *graph.Mutation) error {
		return m.CreateNode("only", nil, nil)
	})

	g2, _ := run(t, g, `MATCH (x) DELETE x`)
	assert.Equal(t, 0, g2.NodeCount())
	assert.Equal(t, 1, g.NodeCount(), "input snapshot untouched")
}

func TestDeleteDetachesEdges(t *testing.T) {
	g := chainGraph(t)

	// Node removal always detaches; DETACH is accepted but not required.
	g2, _ := run(t, g, `MATCH (x {_ID: "n2"}) DELETE x`)
	assert.False(t, g2.HasNode("n2"))
	assert.Equal(t, 1, g2.EdgeCount())

	g3, _ := run(t, g, `MATCH (x {_ID: "n2"}) DETACH DELETE x`)
	assert.True(t, graph.Equal(g2, g3))

	t.Run("overlapping rows delete once", func(t *testing.T) {
		g2, _ := run(t, g, `MATCH (x)-->() DELETE x`)
		assert.Equal(t, 1, g2.NodeCount())
		assert.True(t, g2.HasNode("n4"))
	})

	t.Run("edges delete directly", func(t *testing.T) {
		g2, _ := run(t, g, `MATCH ()-[e]->() DELETE e`)
		assert.Equal(t, 0, g2.EdgeCount())
		assert.Equal(t, 4, g2.NodeCount())
	})

	t.Run("non-reference item fails", func(t *testing.T) {
		_, _, err := runQuery(g, `MATCH (x)-[e]->*(y) DELETE e`)
		require.ErrorIs(t, err, ErrTypeMismatch, "quantified bindings are lists, not references")
	})
}

func TestQuantifiedTraversal(t *testing.T) {
	g := chainGraph(t)

	_, res := run(t, g, `MATCH (x)-[e]->*(y) RETURN x, e, y`)
	assert.ElementsMatch(t, []string{
		"n1||n1", "n1|e1|n2", "n1|e1,e2|n3", "n1|e1,e2,e3|n4",
		"n2||n2", "n2|e2|n3", "n2|e2,e3|n4",
		"n3||n3", "n3|e3|n4",
		"n4||n4",
	}, renderRows(res))

	t.Run("length of edge list", func(t *testing.T) {
		_, res := run(t, g, `MATCH ({_ID: "n1"})-[e]->*({_ID: "n4"}) RETURN length(e)`)
		require.Len(t, res.Rows, 1)
		assert.True(t, res.Rows[0][0].Equal(value.Number(3)))
	})

	t.Run("cycle terminates by edge uniqueness", func(t *testing.T) {
		cyc := buildGraph(t, func(m *graph.Mutation) error {
			if err := m.CreateNode("a", nil, nil); err != nil {
				return err
			}
			if err := m.CreateNode("b", nil, nil); err != nil {
				return err
			}
			if err := m.CreateEdge("ab", "a", "b", nil, nil); err != nil {
				return err
			}
			return m.CreateEdge("ba", "b", "a", nil, nil)
		})
		_, res := run(t, cyc, `MATCH ({_ID: "a"})-[e]->*({_ID: "a"}) RETURN e`)
		assert.ElementsMatch(t, []string{"", "ab,ba"}, renderRows(res))
	})
}

func TestCreate(t *testing.T) {
	g, res := run(t, graph.New(), `CREATE (:Foo{foo: 123})-[:Bar{abc: "xyz"}]->(:Baz)`)
	assert.Nil(t, res)
	require.Equal(t, 2, g.NodeCount())
	require.Equal(t, 1, g.EdgeCount())

	var foo, baz *graph.Node
	for n := range g.Nodes() {
		switch {
		case n.HasLabel("Foo"):
			foo = n
		case n.HasLabel("Baz"):
			baz = n
		}
	}
	require.NotNil(t, foo)
	require.NotNil(t, baz)
	v, ok := foo.Property("foo")
	require.True(t, ok)
	assert.True(t, v.Equal(value.Number(123)))

	var edge *graph.Edge
	for e := range g.Edges() {
		edge = e
	}
	require.NotNil(t, edge)
	assert.True(t, edge.HasLabel("Bar"))
	assert.Equal(t, foo.ID(), edge.Source())
	assert.Equal(t, baz.ID(), edge.Target())
	v, ok = edge.Property("abc")
	require.True(t, ok)
	assert.True(t, v.Equal(value.String("xyz")))
}

func TestCreateSemantics(t *testing.T) {
	t.Run("minted IDs skip existing", func(t *testing.T) {
		g := buildGraph(t, func(m *graph.Mutation) error {
			return m.CreateNode("node_0", nil, nil)
		})
		g2, _ := run(t, g, `CREATE ()`)
		assert.True(t, g2.HasNode("node_1"))
	})

	t.Run("explicit ID", func(t *testing.T) {
		g, _ := run(t, graph.New(), `CREATE ({_ID: "custom"})-[{_ID: "ce"}]->()`)
		assert.True(t, g.HasNode("custom"))
		assert.True(t, g.HasEdge("ce"))
		n, _ := g.Node("custom")
		_, hasProp := n.Property("_ID")
		assert.False(t, hasProp, "the ID entry is not stored as a property")
	})

	t.Run("explicit ID collision", func(t *testing.T) {
		g := buildGraph(t, func(m *graph.Mutation) error {
			return m.CreateNode("n1", nil, nil)
		})
		_, _, err := runQuery(g, `CREATE ({_ID: "n1"})`)
		require.ErrorIs(t, err, graph.ErrDuplicateID)
		assert.True(t, g.HasNode("n1"), "failed query leaves the snapshot intact")
	})

	t.Run("explicit ID must be a string", func(t *testing.T) {
		_, _, err := runQuery(graph.New(), `CREATE ({_ID: 7})`)
		require.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("bound variable reuses the node", func(t *testing.T) {
		g := buildGraph(t, func(m *graph.Mutation) error {
			if err := m.CreateNode("a", nil, nil); err != nil {
				return err
			}
			return m.CreateNode("b", nil, nil)
		})
		g2, _ := run(t, g, `MATCH (x) CREATE (x)-[:Tag]->(:Note)`)
		assert.Equal(t, 4, g2.NodeCount(), "one fresh node per row")
		assert.Equal(t, 2, g2.EdgeCount())
		for e := range g2.Edges() {
			assert.Contains(t, []string{"a", "b"}, e.Source())
		}
	})

	t.Run("reused variable must be a node", func(t *testing.T) {
		g := chainGraph(t)
		_, _, err := runQuery(g, `MATCH ()-[e]->() CREATE (e)`)
		require.ErrorIs(t, err, ErrNotANode)
	})

	t.Run("reused edge variable must be an edge", func(t *testing.T) {
		g := chainGraph(t)
		_, _, err := runQuery(g, `MATCH (x) CREATE ()-[x]->()`)
		require.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("left direction swaps endpoints", func(t *testing.T) {
		g, _ := run(t, graph.New(), `CREATE ({_ID: "a"})<-[:R]-({_ID: "b"})`)
		for e := range g.Edges() {
			assert.Equal(t, "b", e.Source())
			assert.Equal(t, "a", e.Target())
		}
	})

	t.Run("row order is not observable", func(t *testing.T) {
		// Property expressions are evaluated against the pre-stage graph, so
		// a node created for one row is invisible to the others.
		g := buildGraph(t, func(m *graph.Mutation) error {
			if err := m.CreateNode("a", nil, nil); err != nil {
				return err
			}
			return m.CreateNode("b", nil, nil)
		})
		g2, _ := run(t, g, `MATCH (x) CREATE ({v: id(x)})`)
		assert.Equal(t, 4, g2.NodeCount())
	})
}

func TestWhereFilters(t *testing.T) {
	g := buildGraph(t, func(m *graph.Mutation) error {
		if err := m.CreateNode("n1", []string{"Admin"}, nil); err != nil {
			return err
		}
		if err := m.CreateNode("n2", []string{"User"}, nil); err != nil {
			return err
		}
		return m.CreateNode("n3", nil, nil)
	})

	t.Run("ordering on strings", func(t *testing.T) {
		_, res := run(t, g, `MATCH (x) WHERE id(x) > "n1" RETURN x`)
		assert.ElementsMatch(t, []string{"n2", "n3"}, renderRows(res))
	})

	t.Run("boolean connectives short circuit", func(t *testing.T) {
		// The right operand would fail on its own; OR never reaches it.
		_, res := run(t, g, `MATCH (x) WHERE true OR y RETURN x`)
		assert.Len(t, res.Rows, 3)
		_, _, err := runQuery(g, `MATCH (x) WHERE false OR y RETURN x`)
		require.ErrorIs(t, err, ErrUndefinedVariable)
	})

	t.Run("label function", func(t *testing.T) {
		_, res := run(t, g, `MATCH (x) WHERE length(labels(x)) = 1 RETURN x`)
		assert.ElementsMatch(t, []string{"n1", "n2"}, renderRows(res))
	})

	t.Run("cross kind comparison fails", func(t *testing.T) {
		_, _, err := runQuery(g, `MATCH (x) WHERE id(x) = 1 RETURN x`)
		require.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("ordering on references fails", func(t *testing.T) {
		_, _, err := runQuery(g, `MATCH (x), (y) WHERE x < y RETURN x`)
		require.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("non boolean predicate fails", func(t *testing.T) {
		_, _, err := runQuery(g, `MATCH (x) WHERE id(x) RETURN x`)
		require.ErrorIs(t, err, ErrTypeMismatch)
	})
}

func TestPathExistence(t *testing.T) {
	// n1 - n2 - n3, undirected questions over directed edges.
	g := buildGraph(t, func(m *graph.Mutation) error {
		for _, id := range []string{"n1", "n2", "n3"} {
			if err := m.CreateNode(id, nil, nil); err != nil {
				return err
			}
		}
		if err := m.CreateEdge("e1", "n1", "n2", nil, nil); err != nil {
			return err
		}
		return m.CreateEdge("e2", "n2", "n3", nil, nil)
	})

	_, res := run(t, g, `MATCH (x), (y) WHERE NOT (x)--(y) RETURN x, y`)
	assert.ElementsMatch(t, []string{
		"n1|n1", "n2|n2", "n3|n3",
		"n1|n3", "n3|n1",
	}, renderRows(res))

	t.Run("in return position", func(t *testing.T) {
		_, res := run(t, g, `MATCH (x) RETURN x, (x)-->()`)
		assert.ElementsMatch(t, []string{"n1|true", "n2|true", "n3|false"}, renderRows(res))
	})

	t.Run("fresh variable is rejected", func(t *testing.T) {
		_, _, err := runQuery(g, `MATCH (x) WHERE (z)--() RETURN x`)
		require.ErrorIs(t, err, ErrUnboundVariable)
	})

	t.Run("single constrained node", func(t *testing.T) {
		g := buildGraph(t, func(m *graph.Mutation) error {
			if err := m.CreateNode("a", []string{"Admin"}, nil); err != nil {
				return err
			}
			return m.CreateNode("b", nil, nil)
		})
		_, res := run(t, g, `MATCH (x) WHERE (x:Admin) RETURN x`)
		assert.Equal(t, []string{"a"}, renderRows(res))
	})
}

func TestLabelExpressions(t *testing.T) {
	g := buildGraph(t, func(m *graph.Mutation) error {
		labels := map[string][]string{
			"n1": nil,
			"n2": {"Foo"},
			"n3": {"Bar"},
			"n4": {"Foo", "Bar"},
		}
		for _, id := range []string{"n1", "n2", "n3", "n4"} {
			if err := m.CreateNode(id, labels[id], nil); err != nil {
				return err
			}
		}
		return nil
	})

	g2, _ := run(t, g, `MATCH (x:!Foo) DELETE x`)
	assert.Equal(t, 2, g2.NodeCount())
	assert.True(t, g2.HasNode("n2"))
	assert.True(t, g2.HasNode("n4"))

	t.Run("conjunction and disjunction", func(t *testing.T) {
		_, res := run(t, g, `MATCH (x:Foo&Bar) RETURN x`)
		assert.Equal(t, []string{"n4"}, renderRows(res))
		_, res = run(t, g, `MATCH (x:Foo|Bar) RETURN x`)
		assert.ElementsMatch(t, []string{"n2", "n3", "n4"}, renderRows(res))
	})

	t.Run("virtual wildcard", func(t *testing.T) {
		g := buildGraph(t, func(m *graph.Mutation) error {
			if err := m.CreateNode("v", []string{"_hidden"}, nil); err != nil {
				return err
			}
			return m.CreateNode("p", []string{"Plain"}, nil)
		})
		_, res := run(t, g, `MATCH (x:_VIRTUAL) RETURN x`)
		assert.Equal(t, []string{"v"}, renderRows(res))
	})
}

func TestSetAndRemove(t *testing.T) {
	g := buildGraph(t, func(m *graph.Mutation) error {
		if err := m.CreateNode("a", nil, nil); err != nil {
			return err
		}
		if err := m.CreateNode("b", nil, nil); err != nil {
			return err
		}
		return m.CreateEdge("ab", "a", "b", nil, nil)
	})

	g2, _ := run(t, g, `MATCH (x {_ID: "a"}) SET x.score = 10, x:Star`)
	n, _ := g2.Node("a")
	v, ok := n.Property("score")
	require.True(t, ok)
	assert.True(t, v.Equal(value.Number(10)))
	assert.True(t, n.HasLabel("Star"))

	g3, _ := run(t, g2, `MATCH (x {_ID: "a"}) REMOVE x.score, x:Star`)
	n, _ = g3.Node("a")
	_, ok = n.Property("score")
	assert.False(t, ok)
	assert.False(t, n.HasLabel("Star"))

	t.Run("edges", func(t *testing.T) {
		g2, _ := run(t, g, `MATCH ()-[e]->() SET e.weight = 2, e:Strong`)
		e, _ := g2.Edge("ab")
		v, ok := e.Property("weight")
		require.True(t, ok)
		assert.True(t, v.Equal(value.Number(2)))
		assert.True(t, e.HasLabel("Strong"))
	})

	t.Run("undefined variable", func(t *testing.T) {
		_, _, err := runQuery(g, `MATCH (x) SET y.k = 1`)
		require.ErrorIs(t, err, ErrUndefinedVariable)
	})
}

func TestUnion(t *testing.T) {
	g := buildGraph(t, func(m *graph.Mutation) error {
		if err := m.CreateNode("n1", nil, nil); err != nil {
			return err
		}
		return m.CreateNode("n2", nil, nil)
	})

	t.Run("deduplicates", func(t *testing.T) {
		_, res := run(t, g, `MATCH (x) RETURN x UNION MATCH (x) RETURN x`)
		assert.ElementsMatch(t, []string{"n1", "n2"}, renderRows(res))
	})

	t.Run("all keeps duplicates", func(t *testing.T) {
		_, res := run(t, g, `MATCH (x) RETURN x UNION ALL MATCH (x) RETURN x`)
		assert.Len(t, res.Rows, 4)
	})

	t.Run("columns come from the first segment", func(t *testing.T) {
		_, res := run(t, g, `MATCH (x {_ID: "n1"}) RETURN x UNION MATCH (y) RETURN y`)
		assert.Equal(t, []string{"x"}, res.Columns)
		assert.ElementsMatch(t, []string{"n1", "n2"}, renderRows(res))
	})

	t.Run("updates thread through segments", func(t *testing.T) {
		g2, _ := run(t, g, `CREATE ({_ID: "u1"}) UNION MATCH (x {_ID: "n2"}) DELETE x`)
		assert.True(t, g2.HasNode("u1"))
		assert.False(t, g2.HasNode("n2"))
	})
}

func TestPlanErrors(t *testing.T) {
	cases := map[string]string{
		"mixed return":       `MATCH (x) RETURN x UNION MATCH (x) DELETE x`,
		"column mismatch":    `MATCH (x) RETURN x UNION MATCH (x) RETURN x, x`,
		"undirected create":  `CREATE (a)--(b)`,
		"quantified create":  `CREATE (a)-[e]->*(b)`,
		"complex label":      `CREATE (a:Foo|Bar)`,
		"complex edge label": `CREATE (a)-[:R&S]->(b)`,
	}
	for name, query := range cases {
		t.Run(name, func(t *testing.T) {
			q, err := parser.ParseQuery(query)
			require.NoError(t, err)
			_, err = PlanQuery(q)
			require.ErrorIs(t, err, ErrInvalidPlan)
		})
	}
}

func TestExecutionErrors(t *testing.T) {
	g := chainGraph(t)

	t.Run("undefined variable in return", func(t *testing.T) {
		_, _, err := runQuery(g, `MATCH (x) RETURN y`)
		require.ErrorIs(t, err, ErrUndefinedVariable)
	})

	t.Run("labels of a dangling reference", func(t *testing.T) {
		// Delete x, then ask for its labels in the same query.
		_, _, err := runQuery(g, `MATCH (x {_ID: "n1"}) DELETE x RETURN labels(x)`)
		require.ErrorIs(t, err, graph.ErrNotFound)
	})

	t.Run("unknown function", func(t *testing.T) {
		_, _, err := runQuery(g, `MATCH (x) RETURN size(x)`)
		require.ErrorIs(t, err, ErrUnrecognizedConstruct)
	})
}

func TestLimits(t *testing.T) {
	g := chainGraph(t)

	t.Run("row limit", func(t *testing.T) {
		_, _, err := runQuery(g, `MATCH (x), (y) RETURN x, y`, WithLimits(Limits{MaxRows: 5}))
		require.ErrorIs(t, err, ErrRowLimit)
	})

	t.Run("step limit", func(t *testing.T) {
		_, _, err := runQuery(g, `MATCH (x)-->*(y) RETURN x, y`, WithLimits(Limits{MaxTraversalSteps: 2}))
		require.ErrorIs(t, err, ErrStepLimit)
	})

	t.Run("zero means unlimited", func(t *testing.T) {
		_, res := run(t, g, `MATCH (x), (y) RETURN x, y`, WithLimits(Limits{}))
		assert.Len(t, res.Rows, 16)
	})
}
