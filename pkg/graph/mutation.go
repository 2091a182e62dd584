package graph

import (
	"fmt"

	"github.com/benbjohnson/immutable"

	"github.com/graphvana/graphvana/pkg/value"
)

// Mutation is a scoped, mutable builder over a graph snapshot. It batches
// many edits into one new persistent snapshot, sharing substructure with the
// base graph, and is only valid inside the WithMutations call that produced
// it.
type Mutation struct {
	nodes *immutable.Map[string, *Node]
	edges *immutable.Map[string, *Edge]
	done  bool
}

// WithMutations runs fn against a mutable builder for this graph and returns
// the resulting snapshot. If fn returns an error, no new graph is produced
// and the receiver is unchanged; intermediate edits are never observable.
func (g *Graph) WithMutations(fn func(m *Mutation) error) (*Graph, error) {
	m := &Mutation{nodes: g.nodes, edges: g.edges}
	err := fn(m)
	m.done = true
	if err != nil {
		return nil, err
	}
	return &Graph{nodes: m.nodes, edges: m.edges}, nil
}

func (m *Mutation) check() {
	if m.done {
		panic("graph: Mutation used outside its WithMutations scope")
	}
}

// HasNode reports whether a node exists in the pending snapshot.
func (m *Mutation) HasNode(id string) bool {
	m.check()
	_, ok := m.nodes.Get(id)
	return ok
}

// HasEdge reports whether an edge exists in the pending snapshot.
func (m *Mutation) HasEdge(id string) bool {
	m.check()
	_, ok := m.edges.Get(id)
	return ok
}

// CreateNode adds a node. Fails with ErrDuplicateID if the ID already
// denotes a node.
func (m *Mutation) CreateNode(id string, labels []string, props map[string]value.Value) error {
	m.check()
	if id == "" {
		return fmt.Errorf("%w: empty node id", ErrInvalidID)
	}
	if _, exists := m.nodes.Get(id); exists {
		return fmt.Errorf("%w: node %q", ErrDuplicateID, id)
	}
	m.nodes = m.nodes.Set(id, &Node{
		id:       id,
		labels:   newLabelSet(labels),
		props:    newPropertyMap(props),
		incoming: newLabelSet(nil),
		outgoing: newLabelSet(nil),
	})
	return nil
}

// CreateEdge adds an edge from src to dst. Fails with ErrDuplicateID if the
// edge ID exists, or ErrMissingEndpoint if either endpoint is not a known
// node ID. Edge IDs are not checked against node IDs; the namespaces are
// independent.
func (m *Mutation) CreateEdge(id, src, dst string, labels []string, props map[string]value.Value) error {
	m.check()
	if id == "" {
		return fmt.Errorf("%w: empty edge id", ErrInvalidID)
	}
	if _, exists := m.edges.Get(id); exists {
		return fmt.Errorf("%w: edge %q", ErrDuplicateID, id)
	}
	srcNode, ok := m.nodes.Get(src)
	if !ok {
		return fmt.Errorf("%w: source node %q", ErrMissingEndpoint, src)
	}
	dstNode, ok := m.nodes.Get(dst)
	if !ok {
		return fmt.Errorf("%w: destination node %q", ErrMissingEndpoint, dst)
	}

	m.edges = m.edges.Set(id, &Edge{
		id:     id,
		source: src,
		target: dst,
		labels: newLabelSet(labels),
		props:  newPropertyMap(props),
	})

	srcOut := srcNode.outgoing.Add(id)
	m.nodes = m.nodes.Set(src, srcNode.withAdjacency(srcNode.incoming, srcOut))
	// Refetch in case src == dst; the first update replaced the stored node.
	dstNode, _ = m.nodes.Get(dst)
	dstIn := dstNode.incoming.Add(id)
	m.nodes = m.nodes.Set(dst, dstNode.withAdjacency(dstIn, dstNode.outgoing))
	return nil
}

// RemoveNode removes a node together with every edge touching it and fixes
// the far endpoints' adjacency sets. Removing an unknown ID is a no-op.
func (m *Mutation) RemoveNode(id string) {
	m.check()
	n, ok := m.nodes.Get(id)
	if !ok {
		return
	}
	for _, edgeID := range setItems(n.outgoing) {
		m.RemoveEdge(edgeID)
	}
	// Refetch: removing outgoing edges may have replaced the stored node
	// (self-loops update both adjacency sets).
	if n, ok = m.nodes.Get(id); ok {
		for _, edgeID := range setItems(n.incoming) {
			m.RemoveEdge(edgeID)
		}
	}
	m.nodes = m.nodes.Delete(id)
}

// RemoveEdge removes an edge and updates both endpoints' adjacency sets.
// Removing an unknown ID is a no-op.
func (m *Mutation) RemoveEdge(id string) {
	m.check()
	e, ok := m.edges.Get(id)
	if !ok {
		return
	}
	m.edges = m.edges.Delete(id)
	if src, ok := m.nodes.Get(e.source); ok {
		m.nodes = m.nodes.Set(e.source, src.withAdjacency(src.incoming, src.outgoing.Delete(id)))
	}
	if dst, ok := m.nodes.Get(e.target); ok {
		m.nodes = m.nodes.Set(e.target, dst.withAdjacency(dst.incoming.Delete(id), dst.outgoing))
	}
}

// AddNodeLabels adds labels to an existing node. Fails with ErrNotFound for
// an unknown ID.
func (m *Mutation) AddNodeLabels(id string, labels ...string) error {
	m.check()
	n, ok := m.nodes.Get(id)
	if !ok {
		return fmt.Errorf("%w: node %q", ErrNotFound, id)
	}
	set := n.labels
	for _, l := range labels {
		set = set.Add(l)
	}
	m.nodes = m.nodes.Set(id, n.withLabels(set))
	return nil
}

// RemoveNodeLabels removes labels from an existing node. Fails with
// ErrNotFound for an unknown ID.
func (m *Mutation) RemoveNodeLabels(id string, labels ...string) error {
	m.check()
	n, ok := m.nodes.Get(id)
	if !ok {
		return fmt.Errorf("%w: node %q", ErrNotFound, id)
	}
	set := n.labels
	for _, l := range labels {
		set = set.Delete(l)
	}
	m.nodes = m.nodes.Set(id, n.withLabels(set))
	return nil
}

// SetNodeProperty sets one property on an existing node. Fails with
// ErrNotFound for an unknown ID.
func (m *Mutation) SetNodeProperty(id, key string, v value.Value) error {
	m.check()
	n, ok := m.nodes.Get(id)
	if !ok {
		return fmt.Errorf("%w: node %q", ErrNotFound, id)
	}
	m.nodes = m.nodes.Set(id, n.withProps(n.props.Set(key, v)))
	return nil
}

// RemoveNodeProperty removes one property from an existing node. Fails with
// ErrNotFound for an unknown ID.
func (m *Mutation) RemoveNodeProperty(id, key string) error {
	m.check()
	n, ok := m.nodes.Get(id)
	if !ok {
		return fmt.Errorf("%w: node %q", ErrNotFound, id)
	}
	m.nodes = m.nodes.Set(id, n.withProps(n.props.Delete(key)))
	return nil
}

// AddEdgeLabels adds labels to an existing edge. Fails with ErrNotFound for
// an unknown ID.
func (m *Mutation) AddEdgeLabels(id string, labels ...string) error {
	m.check()
	e, ok := m.edges.Get(id)
	if !ok {
		return fmt.Errorf("%w: edge %q", ErrNotFound, id)
	}
	set := e.labels
	for _, l := range labels {
		set = set.Add(l)
	}
	m.edges = m.edges.Set(id, e.withLabels(set))
	return nil
}

// RemoveEdgeLabels removes labels from an existing edge. Fails with
// ErrNotFound for an unknown ID.
func (m *Mutation) RemoveEdgeLabels(id string, labels ...string) error {
	m.check()
	e, ok := m.edges.Get(id)
	if !ok {
		return fmt.Errorf("%w: edge %q", ErrNotFound, id)
	}
	set := e.labels
	for _, l := range labels {
		set = set.Delete(l)
	}
	m.edges = m.edges.Set(id, e.withLabels(set))
	return nil
}

// SetEdgeProperty sets one property on an existing edge. Fails with
// ErrNotFound for an unknown ID.
func (m *Mutation) SetEdgeProperty(id, key string, v value.Value) error {
	m.check()
	e, ok := m.edges.Get(id)
	if !ok {
		return fmt.Errorf("%w: edge %q", ErrNotFound, id)
	}
	m.edges = m.edges.Set(id, e.withProps(e.props.Set(key, v)))
	return nil
}

// RemoveEdgeProperty removes one property from an existing edge. Fails with
// ErrNotFound for an unknown ID.
func (m *Mutation) RemoveEdgeProperty(id, key string) error {
	m.check()
	e, ok := m.edges.Get(id)
	if !ok {
		return fmt.Errorf("%w: edge %q", ErrNotFound, id)
	}
	m.edges = m.edges.Set(id, e.withProps(e.props.Delete(key)))
	return nil
}

func (n *Node) withAdjacency(incoming, outgoing immutable.Set[string]) *Node {
	return &Node{id: n.id, labels: n.labels, props: n.props, incoming: incoming, outgoing: outgoing}
}

func (n *Node) withLabels(labels immutable.Set[string]) *Node {
	return &Node{id: n.id, labels: labels, props: n.props, incoming: n.incoming, outgoing: n.outgoing}
}

func (n *Node) withProps(props *immutable.Map[string, value.Value]) *Node {
	return &Node{id: n.id, labels: n.labels, props: props, incoming: n.incoming, outgoing: n.outgoing}
}

func (e *Edge) withLabels(labels immutable.Set[string]) *Edge {
	return &Edge{id: e.id, source: e.source, target: e.target, labels: labels, props: e.props}
}

func (e *Edge) withProps(props *immutable.Map[string, value.Value]) *Edge {
	return &Edge{id: e.id, source: e.source, target: e.target, labels: e.labels, props: props}
}

func setItems(s immutable.Set[string]) []string {
	out := make([]string, 0, s.Len())
	itr := s.Iterator()
	for !itr.Done() {
		v, _ := itr.Next()
		out = append(out, v)
	}
	return out
}
