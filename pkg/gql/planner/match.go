package planner

import (
	"fmt"
	"iter"
	"strings"

	"github.com/benbjohnson/immutable"

	"github.com/graphvana/graphvana/pkg/graph"
	"github.com/graphvana/graphvana/pkg/gql/ast"
	"github.com/graphvana/graphvana/pkg/value"
)

// virtualLabel is the wildcard matching any label that starts with an
// underscore.
const virtualLabel = "_VIRTUAL"

// idProperty is the pseudo-property comparing against the node/edge ID.
const idProperty = "_ID"

// initializer seeds a path scan: either the whole node table, a single node
// by literal ID, or the node a bound variable points at.
type initializer interface {
	describe() *StageDescription
}

type scanGraph struct{}

type moveHeadToID struct {
	id string
}

type moveHeadToVariable struct {
	name string
}

// compiledPath is one path pattern ready for execution. The stored pattern
// may be the reverse of the source pattern when seeding from the far end
// was cheaper. When reach is set, the whole path is answered from a
// precomputed reachability set instead of stepwise matching.
type compiledPath struct {
	path  *ast.Path
	init  initializer
	reach *reachPlan
}

// expand enumerates every embedding of the path rooted at row's bindings,
// calling out once per produced row. With bindAllowed false, patterns may
// only join against existing bindings.
func (cp *compiledPath) expand(st *State, row *Scope, bindAllowed bool, out func(*Scope) error) error {
	if cp.reach != nil {
		return cp.expandReach(st, row, bindAllowed, out)
	}

	used := immutable.NewSet[string](nil)
	switch init := cp.init.(type) {
	case *scanGraph:
		for n := range st.Graph.Nodes() {
			if err := cp.matchFrom(st, 0, n, row, used, bindAllowed, out); err != nil {
				return err
			}
		}
		return nil
	case *moveHeadToID:
		n, ok := st.Graph.Node(init.id)
		if !ok {
			return nil
		}
		return cp.matchFrom(st, 0, n, row, used, bindAllowed, out)
	case *moveHeadToVariable:
		v, ok := row.Lookup(init.name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUndefinedVariable, init.name)
		}
		ref, ok := v.(value.NodeRef)
		if !ok {
			return fmt.Errorf("%w: %q is not a node", ErrTypeMismatch, init.name)
		}
		n, ok := st.Graph.Node(string(ref))
		if !ok {
			return nil
		}
		return cp.matchFrom(st, 0, n, row, used, bindAllowed, out)
	default:
		return fmt.Errorf("%w: initializer %T", ErrUnrecognizedConstruct, cp.init)
	}
}

// matchFrom matches the path suffix starting at node pattern idx against
// head, with used holding the edge IDs already traversed in this path
// instance (edges may not be reused within one path).
func (cp *compiledPath) matchFrom(st *State, idx int, head *graph.Node, row *Scope, used immutable.Set[string], bindAllowed bool, out func(*Scope) error) error {
	row, ok, err := st.matchNodePattern(cp.path.Nodes[idx], head, row, bindAllowed)
	if err != nil || !ok {
		return err
	}
	if idx == len(cp.path.Nodes)-1 {
		return out(row)
	}

	edge := cp.path.Edges[idx]
	if edge.Quantifier != nil {
		return cp.expandQuantified(st, idx, head, row, used, bindAllowed, out)
	}

	for e, nbr := range neighbors(st.Graph, head.ID(), edge.Direction) {
		if used.Has(e.ID()) {
			continue
		}
		if err := st.countStep(); err != nil {
			return err
		}
		next, ok, err := st.matchEdgePattern(edge, e, row, bindAllowed)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := cp.matchFrom(st, idx+1, nbr, next, used.Add(e.ID()), bindAllowed, out); err != nil {
			return err
		}
	}
	return nil
}

// matchNodePattern tests a node against a pattern and returns the row
// extended with the pattern's binding. A name already bound in the row must
// equal the candidate (join semantics); binding a new name with bindAllowed
// false raises ErrUnboundVariable.
func (st *State) matchNodePattern(pat *ast.NodePattern, node *graph.Node, row *Scope, bindAllowed bool) (*Scope, bool, error) {
	ok, err := st.nodeConstraintsMatch(pat, node, row)
	if err != nil || !ok {
		return nil, false, err
	}
	if pat.Name == "" {
		return row, true, nil
	}
	ref := value.NodeRef(node.ID())
	if existing, bound := row.Lookup(pat.Name); bound {
		if !existing.Equal(ref) {
			return nil, false, nil
		}
		return row, true, nil
	}
	if !bindAllowed {
		return nil, false, fmt.Errorf("%w: %q", ErrUnboundVariable, pat.Name)
	}
	return row.Bind(pat.Name, ref), true, nil
}

// matchEdgePattern is the edge counterpart of matchNodePattern.
func (st *State) matchEdgePattern(pat *ast.EdgePattern, edge *graph.Edge, row *Scope, bindAllowed bool) (*Scope, bool, error) {
	ok, err := st.edgeConstraintsMatch(pat, edge, row)
	if err != nil || !ok {
		return nil, false, err
	}
	if pat.Name == "" {
		return row, true, nil
	}
	ref := value.EdgeRef(edge.ID())
	if existing, bound := row.Lookup(pat.Name); bound {
		if !existing.Equal(ref) {
			return nil, false, nil
		}
		return row, true, nil
	}
	if !bindAllowed {
		return nil, false, fmt.Errorf("%w: %q", ErrUnboundVariable, pat.Name)
	}
	return row.Bind(pat.Name, ref), true, nil
}

func (st *State) nodeConstraintsMatch(pat *ast.NodePattern, node *graph.Node, row *Scope) (bool, error) {
	if pat.Labels != nil && !labelExprMatches(pat.Labels, node) {
		return false, nil
	}
	return st.propertiesMatch(pat.Properties, node.ID(), node.Property, row)
}

func (st *State) edgeConstraintsMatch(pat *ast.EdgePattern, edge *graph.Edge, row *Scope) (bool, error) {
	if pat.Labels != nil && !labelExprMatches(pat.Labels, edge) {
		return false, nil
	}
	return st.propertiesMatch(pat.Properties, edge.ID(), edge.Property, row)
}

func (st *State) propertiesMatch(pat *ast.MapPattern, id string, property func(string) (value.Value, bool), row *Scope) (bool, error) {
	if pat == nil {
		return true, nil
	}
	for _, entry := range pat.Entries {
		want, err := st.evalExpr(nil, entry.Value, row)
		if err != nil {
			return false, err
		}
		if entry.Key == idProperty {
			if !want.Equal(value.String(id)) {
				return false, nil
			}
			continue
		}
		got, ok := property(entry.Key)
		if !ok || !got.Equal(want) {
			return false, nil
		}
	}
	return true, nil
}

// labeled is satisfied by graph nodes and edges.
type labeled interface {
	HasLabel(string) bool
	Labels() []string
}

func labelExprMatches(expr ast.LabelExpression, item labeled) bool {
	switch expr := expr.(type) {
	case *ast.LabelName:
		if expr.Name == virtualLabel {
			for _, l := range item.Labels() {
				if strings.HasPrefix(l, "_") {
					return true
				}
			}
			return false
		}
		return item.HasLabel(expr.Name)
	case *ast.LabelNegation:
		return !labelExprMatches(expr.Inner, item)
	case *ast.LabelConjunction:
		for _, t := range expr.Terms {
			if !labelExprMatches(t, item) {
				return false
			}
		}
		return true
	case *ast.LabelDisjunction:
		for _, t := range expr.Terms {
			if labelExprMatches(t, item) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// neighbors iterates (edge, far node) pairs reachable from nodeID under the
// pattern direction: RIGHT follows outgoing edges, LEFT incoming, NONE
// both.
func neighbors(g *graph.Graph, nodeID string, dir ast.Direction) iter.Seq2[*graph.Edge, *graph.Node] {
	switch dir {
	case ast.DirectionRight:
		return g.OutgoingNeighbors(nodeID)
	case ast.DirectionLeft:
		return g.IncomingNeighbors(nodeID)
	default:
		return func(yield func(*graph.Edge, *graph.Node) bool) {
			for e, n := range g.OutgoingNeighbors(nodeID) {
				if !yield(e, n) {
					return
				}
			}
			for e, n := range g.IncomingNeighbors(nodeID) {
				if !yield(e, n) {
					return
				}
			}
		}
	}
}

func (*scanGraph) describe() *StageDescription {
	return &StageDescription{Name: "ScanGraph"}
}

func (i *moveHeadToID) describe() *StageDescription {
	return &StageDescription{Name: "MoveHeadToID", Data: map[string]string{"id": i.id}}
}

func (i *moveHeadToVariable) describe() *StageDescription {
	return &StageDescription{Name: "MoveHeadToVariable", Data: map[string]string{"variable": i.name}}
}
