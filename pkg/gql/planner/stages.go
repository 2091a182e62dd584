package planner

import (
	"fmt"
	"strings"

	"github.com/graphvana/graphvana/pkg/graph"
	"github.com/graphvana/graphvana/pkg/gql/ast"
	"github.com/graphvana/graphvana/pkg/value"
)

// stage is one step of a compiled query pipeline.
type stage interface {
	run(st *State) error
	describe() *StageDescription
}

// matchStage expands each current row by the cross-product of its path
// patterns' embeddings, then filters through the WHERE predicate.
type matchStage struct {
	paths []*compiledPath
	where ast.Expression
	exprs *compiledExprs
}

func (s *matchStage) run(st *State) error {
	var next []*Scope
	for _, row := range st.Matches {
		if err := s.expandRow(st, 0, row, &next); err != nil {
			return err
		}
	}
	st.Matches = next
	return nil
}

func (s *matchStage) expandRow(st *State, i int, row *Scope, next *[]*Scope) error {
	if i == len(s.paths) {
		if s.where != nil {
			ok, err := st.evalBool(s.exprs, s.where, row)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		*next = append(*next, row)
		return st.checkRowCount(len(*next))
	}
	return s.paths[i].expand(st, row, true, func(r *Scope) error {
		return s.expandRow(st, i+1, r, next)
	})
}

func (s *matchStage) describe() *StageDescription {
	d := &StageDescription{Name: "Match"}
	for _, cp := range s.paths {
		d.Children = append(d.Children, cp.describe())
	}
	if s.where != nil {
		d.Data = map[string]string{"where": s.where.String()}
	}
	return d
}

func (cp *compiledPath) describe() *StageDescription {
	if cp.reach != nil {
		return cp.reach.describe()
	}
	d := cp.init.describe()
	if d.Data == nil {
		d.Data = map[string]string{}
	}
	d.Data["path"] = cp.path.String()
	return d
}

// createStage instantiates path patterns as new nodes and edges. All
// per-row property expressions and IDs are resolved against the pre-stage
// graph before any mutation is applied, so a failure leaves the state
// untouched and row processing order cannot be observed.
type createStage struct {
	paths []*ast.Path
}

type createNodeOp struct {
	id     string
	labels []string
	props  map[string]value.Value
}

type createEdgeOp struct {
	id, src, dst string
	labels       []string
	props        map[string]value.Value
}

func (s *createStage) run(st *State) error {
	var nodeOps []createNodeOp
	var edgeOps []createEdgeOp
	pendingNodes := make(map[string]bool)
	pendingEdges := make(map[string]bool)

	nodeInUse := func(id string) bool { return st.Graph.HasNode(id) || pendingNodes[id] }
	edgeInUse := func(id string) bool { return st.Graph.HasEdge(id) || pendingEdges[id] }

	rows := make([]*Scope, len(st.Matches))
	for ri, row := range st.Matches {
		for _, p := range s.paths {
			heads := make([]string, len(p.Nodes))
			for i, pat := range p.Nodes {
				id, next, err := s.resolveNode(st, pat, row, nodeInUse, pendingNodes, &nodeOps)
				if err != nil {
					return err
				}
				heads[i] = id
				row = next
			}
			for i, pat := range p.Edges {
				next, err := s.resolveEdge(st, pat, row, heads[i], heads[i+1], edgeInUse, pendingEdges, &edgeOps)
				if err != nil {
					return err
				}
				row = next
			}
		}
		rows[ri] = row
	}

	g, err := st.Graph.WithMutations(func(m *graph.Mutation) error {
		for _, op := range nodeOps {
			if err := m.CreateNode(op.id, op.labels, op.props); err != nil {
				return err
			}
		}
		for _, op := range edgeOps {
			if err := m.CreateEdge(op.id, op.src, op.dst, op.labels, op.props); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	st.Graph = g
	st.Matches = rows
	return nil
}

// resolveNode reuses the node a bound variable refers to, or stages a new
// node, and returns its ID plus the row extended with any fresh binding.
func (s *createStage) resolveNode(st *State, pat *ast.NodePattern, row *Scope, inUse func(string) bool, pending map[string]bool, ops *[]createNodeOp) (string, *Scope, error) {
	if pat.Name != "" {
		if existing, bound := row.Lookup(pat.Name); bound {
			ref, ok := existing.(value.NodeRef)
			if !ok || !inUse(string(ref)) {
				return "", nil, fmt.Errorf("%w: %q", ErrNotANode, pat.Name)
			}
			return string(ref), row, nil
		}
	}
	id, props, err := st.evalCreateProperties(pat.Properties, row, inUse)
	if err != nil {
		return "", nil, err
	}
	if id == "" {
		id = st.nodeIDs.allocate(inUse)
	}
	pending[id] = true
	*ops = append(*ops, createNodeOp{id: id, labels: createLabels(pat.Labels), props: props})
	if pat.Name != "" {
		row = row.Bind(pat.Name, value.NodeRef(id))
	}
	return id, row, nil
}

func (s *createStage) resolveEdge(st *State, pat *ast.EdgePattern, row *Scope, left, right string, inUse func(string) bool, pending map[string]bool, ops *[]createEdgeOp) (*Scope, error) {
	if pat.Name != "" {
		if existing, bound := row.Lookup(pat.Name); bound {
			ref, ok := existing.(value.EdgeRef)
			if !ok || !inUse(string(ref)) {
				return nil, fmt.Errorf("%w: %q is not an edge", ErrTypeMismatch, pat.Name)
			}
			return row, nil
		}
	}
	id, props, err := st.evalCreateProperties(pat.Properties, row, inUse)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = st.edgeIDs.allocate(inUse)
	}
	src, dst := left, right
	if pat.Direction == ast.DirectionLeft {
		src, dst = right, left
	}
	pending[id] = true
	*ops = append(*ops, createEdgeOp{id: id, src: src, dst: dst, labels: createLabels(pat.Labels), props: props})
	if pat.Name != "" {
		row = row.Bind(pat.Name, value.EdgeRef(id))
	}
	return row, nil
}

// evalCreateProperties evaluates a pattern's property expressions against
// the pre-mutation row. An _ID entry names the new item's ID explicitly and
// is not stored as a property.
func (st *State) evalCreateProperties(pat *ast.MapPattern, row *Scope, inUse func(string) bool) (string, map[string]value.Value, error) {
	if pat.Len() == 0 {
		return "", nil, nil
	}
	id := ""
	props := make(map[string]value.Value, len(pat.Entries))
	for _, entry := range pat.Entries {
		v, err := st.evalExpr(nil, entry.Value, row)
		if err != nil {
			return "", nil, err
		}
		if entry.Key == idProperty {
			s, ok := v.(value.String)
			if !ok {
				return "", nil, fmt.Errorf("%w: %s value must be a string", ErrTypeMismatch, idProperty)
			}
			if inUse(string(s)) {
				return "", nil, fmt.Errorf("%w: %q", graph.ErrDuplicateID, string(s))
			}
			id = string(s)
			continue
		}
		props[entry.Key] = v
	}
	if len(props) == 0 {
		props = nil
	}
	return id, props, nil
}

// createLabels extracts the pattern's single plain label; validated at plan
// time.
func createLabels(expr ast.LabelExpression) []string {
	if name, ok := expr.(*ast.LabelName); ok {
		return []string{name.Name}
	}
	return nil
}

func (s *createStage) describe() *StageDescription {
	parts := make([]string, len(s.paths))
	for i, p := range s.paths {
		parts[i] = p.String()
	}
	return &StageDescription{Name: "Create", Data: map[string]string{"paths": strings.Join(parts, ", ")}}
}

// deleteStage removes the nodes or edges its variables resolve to. Removal
// of an already-removed ID is a no-op, so overlapping rows may delete the
// same item twice.
type deleteStage struct {
	detach bool
	items  []string
}

func (s *deleteStage) run(st *State) error {
	g, err := st.Graph.WithMutations(func(m *graph.Mutation) error {
		for _, row := range st.Matches {
			for _, name := range s.items {
				v, ok := row.Lookup(name)
				if !ok {
					return fmt.Errorf("%w: %q", ErrUndefinedVariable, name)
				}
				switch ref := v.(type) {
				case value.NodeRef:
					m.RemoveNode(string(ref))
				case value.EdgeRef:
					m.RemoveEdge(string(ref))
				default:
					return fmt.Errorf("%w: cannot delete %s value %q", ErrTypeMismatch, v.Type(), name)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	st.Graph = g
	return nil
}

func (s *deleteStage) describe() *StageDescription {
	data := map[string]string{"items": strings.Join(s.items, ", ")}
	if s.detach {
		data["detach"] = "true"
	}
	return &StageDescription{Name: "Delete", Data: data}
}

// setStage applies property assignments and label additions per row.
type setStage struct {
	items []ast.UpdateItem
}

func (s *setStage) run(st *State) error {
	g, err := st.Graph.WithMutations(func(m *graph.Mutation) error {
		for _, row := range st.Matches {
			for _, item := range s.items {
				ref, isNode, err := st.resolveUpdateTarget(row, item.Variable)
				if err != nil {
					return err
				}
				if item.Property != "" {
					v, err := st.evalExpr(nil, item.Value, row)
					if err != nil {
						return err
					}
					if isNode {
						err = m.SetNodeProperty(ref, item.Property, v)
					} else {
						err = m.SetEdgeProperty(ref, item.Property, v)
					}
					if err != nil {
						return err
					}
					continue
				}
				var err2 error
				if isNode {
					err2 = m.AddNodeLabels(ref, item.Labels...)
				} else {
					err2 = m.AddEdgeLabels(ref, item.Labels...)
				}
				if err2 != nil {
					return err2
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	st.Graph = g
	return nil
}

func (s *setStage) describe() *StageDescription {
	return &StageDescription{Name: "Set", Data: map[string]string{"items": formatUpdateItems(s.items, true)}}
}

// removeStage removes properties and subtracts labels per row.
type removeStage struct {
	items []ast.UpdateItem
}

func (s *removeStage) run(st *State) error {
	g, err := st.Graph.WithMutations(func(m *graph.Mutation) error {
		for _, row := range st.Matches {
			for _, item := range s.items {
				ref, isNode, err := st.resolveUpdateTarget(row, item.Variable)
				if err != nil {
					return err
				}
				if item.Property != "" {
					if isNode {
						err = m.RemoveNodeProperty(ref, item.Property)
					} else {
						err = m.RemoveEdgeProperty(ref, item.Property)
					}
					if err != nil {
						return err
					}
					continue
				}
				var err2 error
				if isNode {
					err2 = m.RemoveNodeLabels(ref, item.Labels...)
				} else {
					err2 = m.RemoveEdgeLabels(ref, item.Labels...)
				}
				if err2 != nil {
					return err2
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	st.Graph = g
	return nil
}

func (s *removeStage) describe() *StageDescription {
	return &StageDescription{Name: "Remove", Data: map[string]string{"items": formatUpdateItems(s.items, false)}}
}

// resolveUpdateTarget maps a variable to the node or edge ID it refers to.
func (st *State) resolveUpdateTarget(row *Scope, name string) (string, bool, error) {
	v, ok := row.Lookup(name)
	if !ok {
		return "", false, fmt.Errorf("%w: %q", ErrUndefinedVariable, name)
	}
	switch ref := v.(type) {
	case value.NodeRef:
		return string(ref), true, nil
	case value.EdgeRef:
		return string(ref), false, nil
	default:
		return "", false, fmt.Errorf("%w: cannot update %s value %q", ErrTypeMismatch, v.Type(), name)
	}
}

func formatUpdateItems(items []ast.UpdateItem, withValue bool) string {
	parts := make([]string, len(items))
	for i, item := range items {
		var b strings.Builder
		b.WriteString(ast.FormatIdentifier(item.Variable))
		if item.Property != "" {
			b.WriteByte('.')
			b.WriteString(ast.FormatIdentifier(item.Property))
			if withValue && item.Value != nil {
				b.WriteString(" = ")
				b.WriteString(item.Value.String())
			}
		}
		for _, l := range item.Labels {
			b.WriteByte(':')
			b.WriteString(ast.FormatIdentifier(l))
		}
		parts[i] = b.String()
	}
	return strings.Join(parts, ", ")
}

// returnStage is terminal: it evaluates the return expressions against every
// row into a result table, leaving the rows themselves untouched.
type returnStage struct {
	items []ast.Expression
	exprs *compiledExprs
}

func (s *returnStage) run(st *State) error {
	cols := make([]string, len(s.items))
	for i, item := range s.items {
		cols[i] = item.String()
	}
	rows := make([][]value.Value, len(st.Matches))
	for ri, row := range st.Matches {
		out := make([]value.Value, len(s.items))
		for i, item := range s.items {
			v, err := st.evalExpr(s.exprs, item, row)
			if err != nil {
				return err
			}
			out[i] = v
		}
		rows[ri] = out
	}
	st.Result = &Result{Columns: cols, Rows: rows}
	return nil
}

func (s *returnStage) describe() *StageDescription {
	parts := make([]string, len(s.items))
	for i, item := range s.items {
		parts[i] = item.String()
	}
	return &StageDescription{Name: "Return", Data: map[string]string{"items": strings.Join(parts, ", ")}}
}
