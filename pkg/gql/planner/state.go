package planner

import (
	"fmt"

	"github.com/graphvana/graphvana/pkg/graph"
	"github.com/graphvana/graphvana/pkg/value"
)

// Limits bounds query execution. Zero values mean unlimited. The step limit
// is the caller-side guard the engine itself does not provide: unbounded
// quantifiers on cyclic graphs can enumerate rows without end (see the
// package documentation).
type Limits struct {
	MaxRows           int
	MaxTraversalSteps int
}

// Result is the tabular output of a RETURN clause. Rows are in engine
// order, neither deduplicated nor sorted; callers sort for display.
type Result struct {
	Columns []string
	Rows    [][]value.Value
}

// State is the execution state threaded through a query's stages: the
// working graph snapshot, the current match rows, the terminal result, the
// per-execution ID allocators, and per-execution caches.
type State struct {
	Graph   *graph.Graph
	Matches []*Scope
	Result  *Result

	nodeIDs *idAllocator
	edgeIDs *idAllocator
	limits  Limits
	steps   int
	reach   map[*reachPlan]map[string]bool
}

func newState(g *graph.Graph, limits Limits, nodeIDs, edgeIDs *idAllocator) *State {
	return &State{
		Graph:   g,
		Matches: []*Scope{newScope()},
		nodeIDs: nodeIDs,
		edgeIDs: edgeIDs,
		limits:  limits,
		reach:   make(map[*reachPlan]map[string]bool),
	}
}

func (st *State) countStep() error {
	st.steps++
	if st.limits.MaxTraversalSteps > 0 && st.steps > st.limits.MaxTraversalSteps {
		return fmt.Errorf("%w (%d)", ErrStepLimit, st.limits.MaxTraversalSteps)
	}
	return nil
}

func (st *State) checkRowCount(n int) error {
	if st.limits.MaxRows > 0 && n > st.limits.MaxRows {
		return fmt.Errorf("%w (%d)", ErrRowLimit, st.limits.MaxRows)
	}
	return nil
}

// idAllocator mints monotonically increasing IDs of the form <prefix>_<n>,
// skipping IDs already in use. It is local to one execution so Execute stays
// referentially transparent given its input graph.
type idAllocator struct {
	prefix string
	next   int
}

func (a *idAllocator) allocate(inUse func(string) bool) string {
	for {
		id := fmt.Sprintf("%s_%d", a.prefix, a.next)
		a.next++
		if !inUse(id) {
			return id
		}
	}
}
