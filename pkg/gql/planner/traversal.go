package planner

import (
	"fmt"
	"sort"

	"github.com/benbjohnson/immutable"

	"github.com/graphvana/graphvana/pkg/graph"
	"github.com/graphvana/graphvana/pkg/gql/ast"
	"github.com/graphvana/graphvana/pkg/value"
)

// expandQuantified matches a quantified edge pattern: bounded traversal by
// repetition count, binding the pattern's name (if any) to the list of edge
// references seen at each repetition step, in traversal order.
//
// Edges may not repeat within one path instance, but nodes may be revisited
// through distinct edges. With an unbounded quantifier on a cyclic graph
// this can enumerate very many rows; the configured step limit is the only
// guard.
func (cp *compiledPath) expandQuantified(st *State, idx int, head *graph.Node, row *Scope, used immutable.Set[string], bindAllowed bool, out func(*Scope) error) error {
	edge := cp.path.Edges[idx]
	q := edge.Quantifier

	var walk func(node *graph.Node, depth int, used immutable.Set[string], acc value.List) error
	walk = func(node *graph.Node, depth int, used immutable.Set[string], acc value.List) error {
		if depth >= q.Min {
			emitRow := row
			emit := true
			if edge.Name != "" {
				if existing, bound := row.Lookup(edge.Name); bound {
					emit = existing.Equal(acc)
				} else if !bindAllowed {
					return fmt.Errorf("%w: %q", ErrUnboundVariable, edge.Name)
				} else {
					emitRow = row.Bind(edge.Name, acc)
				}
			}
			if emit {
				if err := cp.matchFrom(st, idx+1, node, emitRow, used, bindAllowed, out); err != nil {
					return err
				}
			}
		}
		if !q.Unbounded() && depth >= q.Max {
			return nil
		}
		for e, nbr := range neighbors(st.Graph, node.ID(), edge.Direction) {
			if used.Has(e.ID()) {
				continue
			}
			if err := st.countStep(); err != nil {
				return err
			}
			ok, err := st.edgeConstraintsMatch(edge, e, row)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			next := make(value.List, len(acc)+1)
			copy(next, acc)
			next[len(acc)] = value.EdgeRef(e.ID())
			if err := walk(nbr, depth+1, used.Add(e.ID()), next); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(head, 0, used, value.List{})
}

// reachPlan is the rewritten form of a two-node path joined by a single
// unbounded, unnamed edge, anchored at a literal node ID on one side and a
// bare variable on the other. The full reachable-node set is computed once
// per query execution by BFS from the anchor and rows are answered by set
// membership, avoiding recomputation of the same transitive closure per
// candidate binding.
type reachPlan struct {
	anchorID  string
	variable  string
	direction ast.Direction
	labels    ast.LabelExpression
}

func (rp *reachPlan) describe() *StageDescription {
	data := map[string]string{"anchor": rp.anchorID, "variable": rp.variable}
	if rp.labels != nil {
		data["labels"] = rp.labels.String()
	}
	return &StageDescription{Name: "ReachableNodes", Data: data}
}

// reachableSet computes (or returns the cached) set of node IDs reachable
// from the plan's anchor, respecting direction and edge label filters. The
// anchor itself is a member (zero-length traversal).
func (st *State) reachableSet(rp *reachPlan) (map[string]bool, error) {
	if cached, ok := st.reach[rp]; ok {
		return cached, nil
	}
	set := make(map[string]bool)
	if _, ok := st.Graph.Node(rp.anchorID); ok {
		set[rp.anchorID] = true
		queue := []string{rp.anchorID}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for e, nbr := range neighbors(st.Graph, cur, rp.direction) {
				if err := st.countStep(); err != nil {
					return nil, err
				}
				if rp.labels != nil && !labelExprMatches(rp.labels, e) {
					continue
				}
				if !set[nbr.ID()] {
					set[nbr.ID()] = true
					queue = append(queue, nbr.ID())
				}
			}
		}
	}
	st.reach[rp] = set
	return set, nil
}

func (cp *compiledPath) expandReach(st *State, row *Scope, bindAllowed bool, out func(*Scope) error) error {
	set, err := st.reachableSet(cp.reach)
	if err != nil {
		return err
	}
	if v, bound := row.Lookup(cp.reach.variable); bound {
		ref, ok := v.(value.NodeRef)
		if ok && set[string(ref)] {
			return out(row)
		}
		return nil
	}
	if !bindAllowed {
		return fmt.Errorf("%w: %q", ErrUnboundVariable, cp.reach.variable)
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := out(row.Bind(cp.reach.variable, value.NodeRef(id))); err != nil {
			return err
		}
	}
	return nil
}
