// Package planner compiles parsed queries into stage pipelines and executes
// them against immutable graph snapshots.
//
// Execution is pure given the input graph: a run returns a new graph plus
// result rows and never mutates its input, so a failed query cannot leave a
// partially updated graph behind. Each execution carries its own monotonic
// ID allocators and caches; independent executions against independently
// held snapshots are safe to run concurrently.
package planner

import (
	"fmt"
	"strings"

	"github.com/graphvana/graphvana/pkg/graph"
	"github.com/graphvana/graphvana/pkg/gql/ast"
	"github.com/graphvana/graphvana/pkg/value"
)

// QueryPlan is a compiled query: one stage pipeline per UNION segment.
type QueryPlan struct {
	segments []*segment
	returns  bool
}

type segment struct {
	unionAll bool
	stages   []stage
}

// PlanQuery compiles a parsed query into an executable plan. Structural
// problems a parser cannot see (malformed CREATE patterns, UNION segments
// with mismatched result shapes) surface here as ErrInvalidPlan.
func PlanQuery(q *ast.Query) (*QueryPlan, error) {
	plan := &QueryPlan{}
	columns := -1
	unionAll := false
	for cur := q; cur != nil; {
		seg, err := planSegment(cur)
		if err != nil {
			return nil, err
		}
		seg.unionAll = unionAll
		hasReturn := cur.Return != nil
		if len(plan.segments) == 0 {
			plan.returns = hasReturn
		} else if hasReturn != plan.returns {
			return nil, fmt.Errorf("%w: union segments must all return or none return", ErrInvalidPlan)
		}
		if hasReturn {
			if columns >= 0 && columns != len(cur.Return.Items) {
				return nil, fmt.Errorf("%w: union segments return %d and %d columns", ErrInvalidPlan, columns, len(cur.Return.Items))
			}
			columns = len(cur.Return.Items)
		}
		plan.segments = append(plan.segments, seg)
		if cur.Union == nil {
			break
		}
		unionAll = cur.Union.All
		cur = cur.Union.Query
	}
	return plan, nil
}

func planSegment(q *ast.Query) (*segment, error) {
	seg := &segment{}
	bound := make(map[string]bool)

	for _, mc := range q.Reads {
		ms := &matchStage{}
		for _, p := range mc.Paths {
			ms.paths = append(ms.paths, compilePath(p, bound))
			bindPathNames(p, bound)
		}
		if mc.Where != nil {
			ms.where = mc.Where
			ms.exprs = compileExprs([]ast.Expression{mc.Where}, bound)
		}
		seg.stages = append(seg.stages, ms)
	}

	for _, uc := range q.Updates {
		st, err := planUpdate(uc, bound)
		if err != nil {
			return nil, err
		}
		seg.stages = append(seg.stages, st)
	}

	if q.Return != nil {
		seg.stages = append(seg.stages, &returnStage{
			items: q.Return.Items,
			exprs: compileExprs(q.Return.Items, bound),
		})
	}
	return seg, nil
}

func planUpdate(uc ast.UpdateClause, bound map[string]bool) (stage, error) {
	switch uc := uc.(type) {
	case *ast.CreateClause:
		for _, p := range uc.Paths {
			if err := validateCreatePath(p); err != nil {
				return nil, err
			}
			bindPathNames(p, bound)
		}
		return &createStage{paths: uc.Paths}, nil
	case *ast.DeleteClause:
		items := make([]string, len(uc.Items))
		for i, e := range uc.Items {
			ident, ok := e.(*ast.Identifier)
			if !ok {
				return nil, fmt.Errorf("%w: delete items must be variables", ErrInvalidPlan)
			}
			items[i] = ident.Name
		}
		return &deleteStage{detach: uc.Detach, items: items}, nil
	case *ast.SetClause:
		return &setStage{items: uc.Items}, nil
	case *ast.RemoveClause:
		return &removeStage{items: uc.Items}, nil
	default:
		return nil, fmt.Errorf("%w: update clause %T", ErrUnrecognizedConstruct, uc)
	}
}

func validateCreatePath(p *ast.Path) error {
	for _, n := range p.Nodes {
		if n.Labels != nil {
			if _, ok := n.Labels.(*ast.LabelName); !ok {
				return fmt.Errorf("%w: create patterns take a single plain label", ErrInvalidPlan)
			}
		}
	}
	for _, e := range p.Edges {
		if e.Direction == ast.DirectionNone {
			return fmt.Errorf("%w: edges must specify a direction in create clauses", ErrInvalidPlan)
		}
		if e.Quantifier != nil {
			return fmt.Errorf("%w: quantifiers are not allowed in create clauses", ErrInvalidPlan)
		}
		if e.Labels != nil {
			if _, ok := e.Labels.(*ast.LabelName); !ok {
				return fmt.Errorf("%w: create patterns take a single plain label", ErrInvalidPlan)
			}
		}
	}
	return nil
}

func bindPathNames(p *ast.Path, bound map[string]bool) {
	for _, n := range p.Nodes {
		if n.Name != "" {
			bound[n.Name] = true
		}
	}
	for _, e := range p.Edges {
		if e.Name != "" {
			bound[e.Name] = true
		}
	}
}

// compileExprs collects the path-existence predicates of a set of
// expressions and compiles each into a sub-plan, seeded from whatever outer
// bindings are known at this point.
func compileExprs(items []ast.Expression, bound map[string]bool) *compiledExprs {
	ce := &compiledExprs{sub: make(map[*ast.PathExistence]*compiledPath)}
	var walk func(e ast.Expression)
	walk = func(e ast.Expression) {
		switch e := e.(type) {
		case *ast.Not:
			walk(e.Inner)
		case *ast.And:
			walk(e.Left)
			walk(e.Right)
		case *ast.Or:
			walk(e.Left)
			walk(e.Right)
		case *ast.Comparison:
			walk(e.Left)
			walk(e.Right)
		case *ast.FunctionCall:
			for _, a := range e.Args {
				walk(a)
			}
		case *ast.PathExistence:
			ce.sub[e] = compilePath(e.Path, bound)
		}
	}
	for _, item := range items {
		walk(item)
	}
	return ce
}

// compilePath picks the cheapest entry point for a path pattern: the
// reachability rewrite when the whole path is a transitive-closure question,
// a direct seek when an endpoint pins a literal ID or an already-bound
// variable (reversing the pattern when the pinned endpoint is the far one),
// and a full scan otherwise.
func compilePath(p *ast.Path, bound map[string]bool) *compiledPath {
	if rp := reachRewrite(p); rp != nil {
		return &compiledPath{path: p, reach: rp}
	}
	if id, ok := literalID(p.Nodes[0]); ok {
		return &compiledPath{path: p, init: &moveHeadToID{id: id}}
	}
	if len(p.Nodes) > 1 {
		if id, ok := literalID(p.Nodes[len(p.Nodes)-1]); ok {
			return &compiledPath{path: reversePath(p), init: &moveHeadToID{id: id}}
		}
	}
	if name := p.Nodes[0].Name; name != "" && bound[name] {
		return &compiledPath{path: p, init: &moveHeadToVariable{name: name}}
	}
	if len(p.Nodes) > 1 {
		if name := p.Nodes[len(p.Nodes)-1].Name; name != "" && bound[name] {
			return &compiledPath{path: reversePath(p), init: &moveHeadToVariable{name: name}}
		}
	}
	return &compiledPath{path: p, init: &scanGraph{}}
}

// literalID reports whether a node pattern is pinned to a literal ID: no
// labels and a property map holding exactly an _ID string literal.
func literalID(n *ast.NodePattern) (string, bool) {
	if n.Labels != nil || n.Properties.Len() != 1 {
		return "", false
	}
	entry := n.Properties.Entries[0]
	if entry.Key != idProperty {
		return "", false
	}
	lit, ok := entry.Value.(*ast.StringLiteral)
	if !ok {
		return "", false
	}
	return lit.Value, true
}

// reachRewrite recognizes a two-node path joined by one unnamed, unbounded,
// property-free edge, anchored at a bare literal ID on one side and a bare
// variable on the other.
func reachRewrite(p *ast.Path) *reachPlan {
	if len(p.Nodes) != 2 || len(p.Edges) != 1 {
		return nil
	}
	e := p.Edges[0]
	if e.Name != "" || e.Quantifier == nil || e.Quantifier.Min != 0 || !e.Quantifier.Unbounded() || e.Properties.Len() != 0 {
		return nil
	}
	bareVariable := func(n *ast.NodePattern) bool {
		return n.Name != "" && n.Labels == nil && n.Properties.Len() == 0
	}
	bareAnchor := func(n *ast.NodePattern) (string, bool) {
		if n.Name != "" {
			return "", false
		}
		return literalID(n)
	}
	if id, ok := bareAnchor(p.Nodes[0]); ok && bareVariable(p.Nodes[1]) {
		return &reachPlan{anchorID: id, variable: p.Nodes[1].Name, direction: e.Direction, labels: e.Labels}
	}
	if id, ok := bareAnchor(p.Nodes[1]); ok && bareVariable(p.Nodes[0]) {
		return &reachPlan{anchorID: id, variable: p.Nodes[0].Name, direction: flipDirection(e.Direction), labels: e.Labels}
	}
	return nil
}

// reversePath returns the pattern walked from the far end. The source AST is
// shared elsewhere, so edges are copied rather than flipped in place.
func reversePath(p *ast.Path) *ast.Path {
	out := &ast.Path{
		Nodes: make([]*ast.NodePattern, len(p.Nodes)),
		Edges: make([]*ast.EdgePattern, len(p.Edges)),
	}
	for i, n := range p.Nodes {
		out.Nodes[len(p.Nodes)-1-i] = n
	}
	for i, e := range p.Edges {
		flipped := *e
		flipped.Direction = flipDirection(e.Direction)
		out.Edges[len(p.Edges)-1-i] = &flipped
	}
	return out
}

func flipDirection(d ast.Direction) ast.Direction {
	switch d {
	case ast.DirectionLeft:
		return ast.DirectionRight
	case ast.DirectionRight:
		return ast.DirectionLeft
	default:
		return ast.DirectionNone
	}
}

// Option configures one plan execution.
type Option func(*execOptions)

type execOptions struct {
	limits Limits
}

// WithLimits caps row counts and traversal steps for this execution.
func WithLimits(l Limits) Option {
	return func(o *execOptions) { o.limits = l }
}

// Execute runs the plan against a graph snapshot, returning the resulting
// graph and the RETURN table (nil when the query has no RETURN clause). The
// input graph is never modified; on error no graph is returned.
func (p *QueryPlan) Execute(g *graph.Graph, opts ...Option) (*graph.Graph, *Result, error) {
	var eo execOptions
	for _, opt := range opts {
		opt(&eo)
	}
	nodeIDs := &idAllocator{prefix: "node"}
	edgeIDs := &idAllocator{prefix: "edge"}

	var result *Result
	for _, seg := range p.segments {
		st := newState(g, eo.limits, nodeIDs, edgeIDs)
		for _, stg := range seg.stages {
			if err := stg.run(st); err != nil {
				return nil, nil, err
			}
		}
		g = st.Graph
		if st.Result == nil {
			continue
		}
		if result == nil {
			result = st.Result
		} else {
			result.Rows = append(result.Rows, st.Result.Rows...)
			if !seg.unionAll {
				result.Rows = dedupRows(result.Rows)
			}
		}
	}
	return g, result, nil
}

// dedupRows removes duplicate rows, keeping first occurrences in order.
func dedupRows(rows [][]value.Value) [][]value.Value {
	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, row := range rows {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = value.Key(v)
		}
		key := strings.Join(parts, "\x00")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out
}
