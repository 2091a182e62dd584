// Package graph implements a persistent, immutable, labeled multigraph.
//
// A Graph is a value: every mutating operation returns a new Graph that
// shares unmodified substructure with the original, and the original remains
// valid (useful for diffing against an earlier snapshot). Batched edits go
// through WithMutations, which amortizes the copy cost of many updates into
// a single new snapshot.
//
// Node IDs and edge IDs are independent namespaces. Every edge's endpoints
// are guaranteed to exist, and each node's incoming/outgoing edge-ID sets
// exactly mirror the edges referencing it. Removing a node removes all edges
// touching it.
package graph

import (
	"iter"
	"sort"

	"github.com/benbjohnson/immutable"

	"github.com/graphvana/graphvana/pkg/value"
)

// Graph is an immutable labeled multigraph. The zero value is not usable;
// construct with New or Deserialize.
type Graph struct {
	nodes *immutable.Map[string, *Node]
	edges *immutable.Map[string, *Edge]
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: immutable.NewMap[string, *Node](nil),
		edges: immutable.NewMap[string, *Edge](nil),
	}
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return g.nodes.Len() }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return g.edges.Len() }

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) { return g.nodes.Get(id) }

// Edge returns the edge with the given ID.
func (g *Graph) Edge(id string) (*Edge, bool) { return g.edges.Get(id) }

// HasNode reports whether a node with the given ID exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes.Get(id)
	return ok
}

// HasEdge reports whether an edge with the given ID exists.
func (g *Graph) HasEdge(id string) bool {
	_, ok := g.edges.Get(id)
	return ok
}

// Nodes iterates over all nodes. The sequence is finite and restartable;
// iteration order is unspecified.
func (g *Graph) Nodes() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		itr := g.nodes.Iterator()
		for !itr.Done() {
			_, n, _ := itr.Next()
			if !yield(n) {
				return
			}
		}
	}
}

// Edges iterates over all edges. The sequence is finite and restartable;
// iteration order is unspecified.
func (g *Graph) Edges() iter.Seq[*Edge] {
	return func(yield func(*Edge) bool) {
		itr := g.edges.Iterator()
		for !itr.Done() {
			_, e, _ := itr.Next()
			if !yield(e) {
				return
			}
		}
	}
}

// OutgoingNeighbors iterates over (edge, neighbor) pairs for every edge
// leaving the given node, in edge-ID-set iteration order. Callers must not
// assume a particular order beyond set equality. The sequence is finite and
// restartable. An unknown node ID yields nothing.
func (g *Graph) OutgoingNeighbors(nodeID string) iter.Seq2[*Edge, *Node] {
	return g.neighborSeq(nodeID, true)
}

// IncomingNeighbors iterates over (edge, neighbor) pairs for every edge
// arriving at the given node. See OutgoingNeighbors for ordering guarantees.
func (g *Graph) IncomingNeighbors(nodeID string) iter.Seq2[*Edge, *Node] {
	return g.neighborSeq(nodeID, false)
}

func (g *Graph) neighborSeq(nodeID string, outgoing bool) iter.Seq2[*Edge, *Node] {
	return func(yield func(*Edge, *Node) bool) {
		n, ok := g.nodes.Get(nodeID)
		if !ok {
			return
		}
		set := n.incoming
		if outgoing {
			set = n.outgoing
		}
		itr := set.Iterator()
		for !itr.Done() {
			edgeID, _ := itr.Next()
			e, ok := g.edges.Get(edgeID)
			if !ok {
				continue
			}
			far := e.target
			if !outgoing {
				far = e.source
			}
			nbr, ok := g.nodes.Get(far)
			if !ok {
				continue
			}
			if !yield(e, nbr) {
				return
			}
		}
	}
}

// CreateNode returns a new graph with an added node. It fails with
// ErrDuplicateID if the ID already denotes a node.
func (g *Graph) CreateNode(id string, labels []string, props map[string]value.Value) (*Graph, error) {
	return g.WithMutations(func(m *Mutation) error {
		return m.CreateNode(id, labels, props)
	})
}

// CreateEdge returns a new graph with an added edge from src to dst. It
// fails with ErrDuplicateID if the edge ID exists, or ErrMissingEndpoint if
// either endpoint is not a known node ID.
func (g *Graph) CreateEdge(id, src, dst string, labels []string, props map[string]value.Value) (*Graph, error) {
	return g.WithMutations(func(m *Mutation) error {
		return m.CreateEdge(id, src, dst, labels, props)
	})
}

// RemoveNode returns a new graph without the given node and without every
// edge touching it. Removing an unknown ID is a no-op.
func (g *Graph) RemoveNode(id string) *Graph {
	out, _ := g.WithMutations(func(m *Mutation) error {
		m.RemoveNode(id)
		return nil
	})
	return out
}

// RemoveEdge returns a new graph without the given edge. Removing an unknown
// ID is a no-op.
func (g *Graph) RemoveEdge(id string) *Graph {
	out, _ := g.WithMutations(func(m *Mutation) error {
		m.RemoveEdge(id)
		return nil
	})
	return out
}

// AddNodeLabels returns a new graph with labels added to a node. Fails with
// ErrNotFound for an unknown ID.
func (g *Graph) AddNodeLabels(id string, labels ...string) (*Graph, error) {
	return g.WithMutations(func(m *Mutation) error {
		return m.AddNodeLabels(id, labels...)
	})
}

// RemoveNodeLabels returns a new graph with labels removed from a node.
// Fails with ErrNotFound for an unknown ID.
func (g *Graph) RemoveNodeLabels(id string, labels ...string) (*Graph, error) {
	return g.WithMutations(func(m *Mutation) error {
		return m.RemoveNodeLabels(id, labels...)
	})
}

// SetNodeProperty returns a new graph with one node property set. Fails with
// ErrNotFound for an unknown ID.
func (g *Graph) SetNodeProperty(id, key string, v value.Value) (*Graph, error) {
	return g.WithMutations(func(m *Mutation) error {
		return m.SetNodeProperty(id, key, v)
	})
}

// RemoveNodeProperty returns a new graph with one node property removed.
// Fails with ErrNotFound for an unknown ID.
func (g *Graph) RemoveNodeProperty(id, key string) (*Graph, error) {
	return g.WithMutations(func(m *Mutation) error {
		return m.RemoveNodeProperty(id, key)
	})
}

// AddEdgeLabels returns a new graph with labels added to an edge. Fails with
// ErrNotFound for an unknown ID.
func (g *Graph) AddEdgeLabels(id string, labels ...string) (*Graph, error) {
	return g.WithMutations(func(m *Mutation) error {
		return m.AddEdgeLabels(id, labels...)
	})
}

// RemoveEdgeLabels returns a new graph with labels removed from an edge.
// Fails with ErrNotFound for an unknown ID.
func (g *Graph) RemoveEdgeLabels(id string, labels ...string) (*Graph, error) {
	return g.WithMutations(func(m *Mutation) error {
		return m.RemoveEdgeLabels(id, labels...)
	})
}

// SetEdgeProperty returns a new graph with one edge property set. Fails with
// ErrNotFound for an unknown ID.
func (g *Graph) SetEdgeProperty(id, key string, v value.Value) (*Graph, error) {
	return g.WithMutations(func(m *Mutation) error {
		return m.SetEdgeProperty(id, key, v)
	})
}

// RemoveEdgeProperty returns a new graph with one edge property removed.
// Fails with ErrNotFound for an unknown ID.
func (g *Graph) RemoveEdgeProperty(id, key string) (*Graph, error) {
	return g.WithMutations(func(m *Mutation) error {
		return m.RemoveEdgeProperty(id, key)
	})
}

// NodeIDs returns all node IDs sorted lexicographically.
func (g *Graph) NodeIDs() []string {
	out := make([]string, 0, g.nodes.Len())
	for n := range g.Nodes() {
		out = append(out, n.id)
	}
	sort.Strings(out)
	return out
}

// EdgeIDs returns all edge IDs sorted lexicographically.
func (g *Graph) EdgeIDs() []string {
	out := make([]string, 0, g.edges.Len())
	for e := range g.Edges() {
		out = append(out, e.id)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether two graphs hold the same nodes and edges with equal
// labels, properties, and endpoints. Intended for tests and debugging.
func Equal(a, b *Graph) bool {
	if a.NodeCount() != b.NodeCount() || a.EdgeCount() != b.EdgeCount() {
		return false
	}
	for an := range a.Nodes() {
		bn, ok := b.Node(an.id)
		if !ok || !labelsEqual(an.labels, bn.labels) || !propsEqual(an.props, bn.props) {
			return false
		}
	}
	for ae := range a.Edges() {
		be, ok := b.Edge(ae.id)
		if !ok || ae.source != be.source || ae.target != be.target {
			return false
		}
		if !labelsEqual(ae.labels, be.labels) || !propsEqual(ae.props, be.props) {
			return false
		}
	}
	return true
}

func labelsEqual(a, b immutable.Set[string]) bool {
	if a.Len() != b.Len() {
		return false
	}
	itr := a.Iterator()
	for !itr.Done() {
		v, _ := itr.Next()
		if !b.Has(v) {
			return false
		}
	}
	return true
}

func propsEqual(a, b *immutable.Map[string, value.Value]) bool {
	if a.Len() != b.Len() {
		return false
	}
	itr := a.Iterator()
	for !itr.Done() {
		k, av, _ := itr.Next()
		bv, ok := b.Get(k)
		if !ok || !av.Equal(bv) {
			return false
		}
	}
	return true
}
