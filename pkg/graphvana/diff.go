package graphvana

import "github.com/graphvana/graphvana/pkg/graph"

// Diff lists the node and edge IDs that differ between two snapshots, so a
// caller can re-render only what changed. IDs are sorted.
type Diff struct {
	AddedNodes   []string
	RemovedNodes []string
	AddedEdges   []string
	RemovedEdges []string
}

// Empty reports whether the two snapshots had identical ID sets.
func (d *Diff) Empty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0
}

// ComputeDiff compares two graph snapshots by ID.
func ComputeDiff(old, new *graph.Graph) *Diff {
	d := &Diff{}
	for _, id := range new.NodeIDs() {
		if !old.HasNode(id) {
			d.AddedNodes = append(d.AddedNodes, id)
		}
	}
	for _, id := range old.NodeIDs() {
		if !new.HasNode(id) {
			d.RemovedNodes = append(d.RemovedNodes, id)
		}
	}
	for _, id := range new.EdgeIDs() {
		if !old.HasEdge(id) {
			d.AddedEdges = append(d.AddedEdges, id)
		}
	}
	for _, id := range old.EdgeIDs() {
		if !new.HasEdge(id) {
			d.RemovedEdges = append(d.RemovedEdges, id)
		}
	}
	return d
}
