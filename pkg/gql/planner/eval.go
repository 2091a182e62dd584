package planner

import (
	"fmt"

	"github.com/graphvana/graphvana/pkg/graph"
	"github.com/graphvana/graphvana/pkg/gql/ast"
	"github.com/graphvana/graphvana/pkg/value"
)

// compiledExprs carries the sub-plans for path-existence predicates inside
// an expression. Sub-patterns are compiled at plan time; evaluation only
// looks them up.
type compiledExprs struct {
	sub map[*ast.PathExistence]*compiledPath
}

// errStopExpansion aborts path expansion after the first embedding; used
// for existence tests.
var errStopExpansion = fmt.Errorf("stop expansion")

// evalExpr evaluates a scalar expression against one row. ce may be nil in
// positions where path-existence predicates are not supported (property-map
// patterns).
func (st *State) evalExpr(ce *compiledExprs, e ast.Expression, row *Scope) (value.Value, error) {
	switch e := e.(type) {
	case *ast.StringLiteral:
		return value.String(e.Value), nil
	case *ast.NumberLiteral:
		return value.Number(e.Value), nil
	case *ast.BooleanLiteral:
		return value.Boolean(e.Value), nil
	case *ast.Identifier:
		v, ok := row.Lookup(e.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUndefinedVariable, e.Name)
		}
		return v, nil
	case *ast.Not:
		b, err := st.evalBool(ce, e.Inner, row)
		if err != nil {
			return nil, err
		}
		return value.Boolean(!b), nil
	case *ast.And:
		left, err := st.evalBool(ce, e.Left, row)
		if err != nil {
			return nil, err
		}
		if !left {
			return value.Boolean(false), nil
		}
		right, err := st.evalBool(ce, e.Right, row)
		if err != nil {
			return nil, err
		}
		return value.Boolean(right), nil
	case *ast.Or:
		left, err := st.evalBool(ce, e.Left, row)
		if err != nil {
			return nil, err
		}
		if left {
			return value.Boolean(true), nil
		}
		right, err := st.evalBool(ce, e.Right, row)
		if err != nil {
			return nil, err
		}
		return value.Boolean(right), nil
	case *ast.Comparison:
		return st.evalComparison(ce, e, row)
	case *ast.FunctionCall:
		return st.evalFunction(ce, e, row)
	case *ast.PathExistence:
		if ce == nil || ce.sub[e] == nil {
			return nil, fmt.Errorf("%w: path pattern not allowed in this position", ErrUnrecognizedConstruct)
		}
		return st.evalPathExistence(ce.sub[e], row)
	default:
		return nil, fmt.Errorf("%w: expression %T", ErrUnrecognizedConstruct, e)
	}
}

func (st *State) evalBool(ce *compiledExprs, e ast.Expression, row *Scope) (bool, error) {
	v, err := st.evalExpr(ce, e, row)
	if err != nil {
		return false, err
	}
	b, ok := v.(value.Boolean)
	if !ok {
		return false, fmt.Errorf("%w: expected BOOLEAN, got %s", ErrTypeMismatch, v.Type())
	}
	return bool(b), nil
}

// evalPathExistence reports whether at least one embedding of the
// sub-pattern exists rooted at the row's bindings. The sub-match runs in a
// child scope so nothing leaks into the row.
func (st *State) evalPathExistence(cp *compiledPath, row *Scope) (value.Value, error) {
	found := false
	err := cp.expand(st, row.Child(), false, func(*Scope) error {
		found = true
		return errStopExpansion
	})
	if err != nil && err != errStopExpansion {
		return nil, err
	}
	return value.Boolean(found), nil
}

func (st *State) evalComparison(ce *compiledExprs, e *ast.Comparison, row *Scope) (value.Value, error) {
	left, err := st.evalExpr(ce, e.Left, row)
	if err != nil {
		return nil, err
	}
	right, err := st.evalExpr(ce, e.Right, row)
	if err != nil {
		return nil, err
	}
	if left.Type().Kind() != right.Type().Kind() {
		return nil, fmt.Errorf("%w: cannot compare %s with %s", ErrTypeMismatch, left.Type(), right.Type())
	}
	switch e.Op {
	case ast.CompareEqual:
		return value.Boolean(left.Equal(right)), nil
	case ast.CompareNotEqual:
		return value.Boolean(!left.Equal(right)), nil
	}

	// Ordering is defined for numbers and strings only.
	var cmp int
	switch l := left.(type) {
	case value.Number:
		r := right.(value.Number)
		switch {
		case l < r:
			cmp = -1
		case l > r:
			cmp = 1
		}
	case value.String:
		r := right.(value.String)
		switch {
		case l < r:
			cmp = -1
		case l > r:
			cmp = 1
		}
	default:
		return nil, fmt.Errorf("%w: %s values are not ordered", ErrTypeMismatch, left.Type())
	}
	switch e.Op {
	case ast.CompareLess:
		return value.Boolean(cmp < 0), nil
	case ast.CompareLessEqual:
		return value.Boolean(cmp <= 0), nil
	case ast.CompareGreater:
		return value.Boolean(cmp > 0), nil
	case ast.CompareGreaterEqual:
		return value.Boolean(cmp >= 0), nil
	default:
		return nil, fmt.Errorf("%w: comparison %v", ErrUnrecognizedConstruct, e.Op)
	}
}

// Built-in scalar functions.
func (st *State) evalFunction(ce *compiledExprs, e *ast.FunctionCall, row *Scope) (value.Value, error) {
	args := make([]value.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := st.evalExpr(ce, a, row)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	switch e.Name {
	case "id":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: id() takes one argument", ErrTypeMismatch)
		}
		switch ref := args[0].(type) {
		case value.NodeRef:
			return value.String(ref), nil
		case value.EdgeRef:
			return value.String(ref), nil
		default:
			return nil, fmt.Errorf("%w: id() expects a reference, got %s", ErrTypeMismatch, args[0].Type())
		}
	case "labels":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: labels() takes one argument", ErrTypeMismatch)
		}
		var labels []string
		switch ref := args[0].(type) {
		case value.NodeRef:
			n, ok := st.Graph.Node(string(ref))
			if !ok {
				return nil, fmt.Errorf("%w: node %q", graph.ErrNotFound, string(ref))
			}
			labels = n.Labels()
		case value.EdgeRef:
			ed, ok := st.Graph.Edge(string(ref))
			if !ok {
				return nil, fmt.Errorf("%w: edge %q", graph.ErrNotFound, string(ref))
			}
			labels = ed.Labels()
		default:
			return nil, fmt.Errorf("%w: labels() expects a reference, got %s", ErrTypeMismatch, args[0].Type())
		}
		out := make(value.List, len(labels))
		for i, l := range labels {
			out[i] = value.String(l)
		}
		return out, nil
	case "length":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: length() takes one argument", ErrTypeMismatch)
		}
		list, ok := args[0].(value.List)
		if !ok {
			return nil, fmt.Errorf("%w: length() expects a list, got %s", ErrTypeMismatch, args[0].Type())
		}
		return value.Number(len(list)), nil
	default:
		return nil, fmt.Errorf("%w: unknown function %q", ErrUnrecognizedConstruct, e.Name)
	}
}
