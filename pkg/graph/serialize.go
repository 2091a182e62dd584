package graph

import (
	"fmt"
	"iter"

	"github.com/graphvana/graphvana/pkg/value"
)

// SerializedNode is the storage shape of one node.
type SerializedNode struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// SerializedEdge is the storage shape of one edge.
type SerializedEdge struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// SerializedGraph is the storage shape of a graph, shared with the
// visualization layer. Nodes and edges are emitted sorted by ID so the
// output is deterministic.
type SerializedGraph struct {
	Nodes []SerializedNode `json:"nodes"`
	Edges []SerializedEdge `json:"edges"`
}

// Serialize converts the graph to its storage shape. encode converts each
// property value; pass nil for the default JSON bridging (primitives as
// themselves, lists as arrays, references rejected).
func (g *Graph) Serialize(encode func(value.Value) (any, error)) (*SerializedGraph, error) {
	if encode == nil {
		encode = value.ToJSON
	}
	out := &SerializedGraph{
		Nodes: make([]SerializedNode, 0, g.NodeCount()),
		Edges: make([]SerializedEdge, 0, g.EdgeCount()),
	}
	for _, id := range g.NodeIDs() {
		n, _ := g.Node(id)
		props, err := encodeProps(n.Properties(), encode)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}
		out.Nodes = append(out.Nodes, SerializedNode{
			ID:         n.id,
			Labels:     n.Labels(),
			Properties: props,
		})
	}
	for _, id := range g.EdgeIDs() {
		e, _ := g.Edge(id)
		props, err := encodeProps(e.Properties(), encode)
		if err != nil {
			return nil, fmt.Errorf("edge %q: %w", id, err)
		}
		out.Edges = append(out.Edges, SerializedEdge{
			ID:         e.id,
			Source:     e.source,
			Target:     e.target,
			Labels:     e.Labels(),
			Properties: props,
		})
	}
	return out, nil
}

// Deserialize builds a graph from its storage shape. decode converts each
// property value; pass nil for the default JSON bridging. Nodes are created
// before edges so edge endpoint validation applies as usual.
func Deserialize(raw *SerializedGraph, decode func(any) (value.Value, error)) (*Graph, error) {
	if decode == nil {
		decode = value.FromJSON
	}
	return New().WithMutations(func(m *Mutation) error {
		for _, sn := range raw.Nodes {
			props, err := decodeProps(sn.Properties, decode)
			if err != nil {
				return fmt.Errorf("node %q: %w", sn.ID, err)
			}
			if err := m.CreateNode(sn.ID, sn.Labels, props); err != nil {
				return err
			}
		}
		for _, se := range raw.Edges {
			props, err := decodeProps(se.Properties, decode)
			if err != nil {
				return fmt.Errorf("edge %q: %w", se.ID, err)
			}
			if err := m.CreateEdge(se.ID, se.Source, se.Target, se.Labels, props); err != nil {
				return err
			}
		}
		return nil
	})
}

func encodeProps(props iter.Seq2[string, value.Value], encode func(value.Value) (any, error)) (map[string]any, error) {
	out := make(map[string]any)
	var err error
	props(func(k string, v value.Value) bool {
		var enc any
		enc, err = encode(v)
		if err != nil {
			err = fmt.Errorf("property %q: %w", k, err)
			return false
		}
		out[k] = enc
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeProps(raw map[string]any, decode func(any) (value.Value, error)) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(raw))
	for k, v := range raw {
		dec, err := decode(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = dec
	}
	return out, nil
}
