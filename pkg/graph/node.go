package graph

import (
	"iter"
	"sort"

	"github.com/benbjohnson/immutable"

	"github.com/graphvana/graphvana/pkg/value"
)

// Node is one node of a graph: an ID, a label set, a property map, and the
// IDs of the edges arriving at and leaving it. Nodes are immutable; every
// update produces a new Node shared structurally with the old one.
type Node struct {
	id       string
	labels   immutable.Set[string]
	props    *immutable.Map[string, value.Value]
	incoming immutable.Set[string]
	outgoing immutable.Set[string]
}

// ID returns the node's unique ID.
func (n *Node) ID() string { return n.id }

// Labels returns the node's labels sorted lexicographically.
func (n *Node) Labels() []string { return sortedItems(n.labels) }

// HasLabel reports whether the node carries the given label.
func (n *Node) HasLabel(label string) bool { return n.labels.Has(label) }

// LabelCount returns the number of labels.
func (n *Node) LabelCount() int { return n.labels.Len() }

// Property returns the named property value.
func (n *Node) Property(key string) (value.Value, bool) { return n.props.Get(key) }

// Properties iterates over the node's properties in unspecified order.
func (n *Node) Properties() iter.Seq2[string, value.Value] { return mapSeq(n.props) }

// PropertyCount returns the number of properties.
func (n *Node) PropertyCount() int { return n.props.Len() }

// IncomingEdgeIDs returns the IDs of edges whose destination is this node,
// sorted lexicographically.
func (n *Node) IncomingEdgeIDs() []string { return sortedItems(n.incoming) }

// OutgoingEdgeIDs returns the IDs of edges whose source is this node, sorted
// lexicographically.
func (n *Node) OutgoingEdgeIDs() []string { return sortedItems(n.outgoing) }

// Edge is one directed edge of a graph, from a source node to a destination
// node, with a label set and property map. Edges are immutable.
type Edge struct {
	id     string
	source string
	target string
	labels immutable.Set[string]
	props  *immutable.Map[string, value.Value]
}

// ID returns the edge's unique ID. Edge IDs live in their own namespace,
// independent of node IDs.
func (e *Edge) ID() string { return e.id }

// Source returns the source node ID.
func (e *Edge) Source() string { return e.source }

// Target returns the destination node ID.
func (e *Edge) Target() string { return e.target }

// Labels returns the edge's labels sorted lexicographically.
func (e *Edge) Labels() []string { return sortedItems(e.labels) }

// HasLabel reports whether the edge carries the given label.
func (e *Edge) HasLabel(label string) bool { return e.labels.Has(label) }

// LabelCount returns the number of labels.
func (e *Edge) LabelCount() int { return e.labels.Len() }

// Property returns the named property value.
func (e *Edge) Property(key string) (value.Value, bool) { return e.props.Get(key) }

// Properties iterates over the edge's properties in unspecified order.
func (e *Edge) Properties() iter.Seq2[string, value.Value] { return mapSeq(e.props) }

// PropertyCount returns the number of properties.
func (e *Edge) PropertyCount() int { return e.props.Len() }

func sortedItems(s immutable.Set[string]) []string {
	out := make([]string, 0, s.Len())
	itr := s.Iterator()
	for !itr.Done() {
		v, _ := itr.Next()
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func mapSeq(m *immutable.Map[string, value.Value]) iter.Seq2[string, value.Value] {
	return func(yield func(string, value.Value) bool) {
		itr := m.Iterator()
		for !itr.Done() {
			k, v, _ := itr.Next()
			if !yield(k, v) {
				return
			}
		}
	}
}

func newLabelSet(labels []string) immutable.Set[string] {
	return immutable.NewSet[string](nil, labels...)
}

func newPropertyMap(props map[string]value.Value) *immutable.Map[string, value.Value] {
	b := immutable.NewMapBuilder[string, value.Value](nil)
	for k, v := range props {
		b.Set(k, v)
	}
	return b.Map()
}
