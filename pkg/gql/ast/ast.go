// Package ast defines the abstract syntax tree for the GQL query language
// and its canonical text rendering.
//
// AST nodes are immutable once produced by the parser. Every node renders
// back to canonical query text via String, and parsing that text yields an
// equivalent tree; the planner also reuses the rendering for query-plan
// descriptions.
package ast

// Query is one parsed query: optional MATCH clauses, then either a RETURN
// clause or one or more update clauses (optionally followed by RETURN),
// optionally chained with UNION.
type Query struct {
	Reads   []*MatchClause
	Updates []UpdateClause
	Return  *ReturnClause
	Union   *Union
}

// Union chains another query onto this one. Without All, duplicate result
// rows are removed.
type Union struct {
	All   bool
	Query *Query
}

// MatchClause is one MATCH clause with an optional WHERE predicate.
type MatchClause struct {
	Paths []*Path
	Where Expression
}

// Path is an alternating node/edge/node/... pattern sequence. Edges[i]
// connects Nodes[i] to Nodes[i+1]; len(Edges) == len(Nodes)-1.
type Path struct {
	Nodes []*NodePattern
	Edges []*EdgePattern
}

// NodePattern is a node template: optional variable name, optional label
// expression, optional property-map pattern.
type NodePattern struct {
	Name       string
	Labels     LabelExpression
	Properties *MapPattern
}

// Direction is an edge pattern's direction.
type Direction int

const (
	// DirectionNone allows traversal either way.
	DirectionNone Direction = iota
	// DirectionLeft points at the earlier node in the path.
	DirectionLeft
	// DirectionRight points at the later node in the path.
	DirectionRight
)

// Quantifier is a {min,max} repetition count for variable-length edge
// matching. Max < 0 means unbounded.
type Quantifier struct {
	Min int
	Max int
}

// Unbounded reports whether the quantifier has no upper bound.
func (q *Quantifier) Unbounded() bool { return q.Max < 0 }

// EdgePattern is an edge template: optional name, label expression, and
// property-map pattern, plus a direction and an optional quantifier.
type EdgePattern struct {
	Name       string
	Labels     LabelExpression
	Properties *MapPattern
	Direction  Direction
	Quantifier *Quantifier
}

// MapPattern is an ordered property-map literal, e.g. {name: "a", age: 3}.
type MapPattern struct {
	Entries []MapEntry
}

// Get returns the expression bound to a key.
func (m *MapPattern) Get(key string) (Expression, bool) {
	if m == nil {
		return nil, false
	}
	for _, e := range m.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Len returns the number of entries; safe on a nil pattern.
func (m *MapPattern) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Entries)
}

// MapEntry is one key/value pair of a MapPattern.
type MapEntry struct {
	Key   string
	Value Expression
}

// UpdateClause is one graph-mutating clause: CREATE, DELETE, SET, or REMOVE.
type UpdateClause interface {
	String() string
	updateClause()
}

// CreateClause instantiates path patterns as new nodes and edges.
type CreateClause struct {
	Paths []*Path
}

// DeleteClause removes the nodes or edges the named variables resolve to.
// Detach is accepted for compatibility; node removal always detaches.
type DeleteClause struct {
	Detach bool
	Items  []Expression
}

// SetClause applies property assignments and label additions.
type SetClause struct {
	Items []UpdateItem
}

// RemoveClause removes properties and subtracts labels.
type RemoveClause struct {
	Items []UpdateItem
}

// UpdateItem is one item of a SET or REMOVE clause: either a property item
// (Property non-empty; Value set for SET, nil for REMOVE) or a label item
// (Labels non-empty).
type UpdateItem struct {
	Variable string
	Property string
	Value    Expression
	Labels   []string
}

func (*CreateClause) updateClause() {}
func (*DeleteClause) updateClause() {}
func (*SetClause) updateClause()    {}
func (*RemoveClause) updateClause() {}

// ReturnClause evaluates expressions per match row into a result table.
type ReturnClause struct {
	Items []Expression
}

// LabelExpression is a predicate over a label set: an identifier, a
// negation, a conjunction, or a disjunction.
type LabelExpression interface {
	String() string
	labelExpression()
}

// LabelName tests for one label. The special name _VIRTUAL matches any
// label starting with an underscore.
type LabelName struct {
	Name string
}

// LabelNegation inverts a label expression.
type LabelNegation struct {
	Inner LabelExpression
}

// LabelConjunction requires all terms to hold.
type LabelConjunction struct {
	Terms []LabelExpression
}

// LabelDisjunction requires at least one term to hold.
type LabelDisjunction struct {
	Terms []LabelExpression
}

func (*LabelName) labelExpression()        {}
func (*LabelNegation) labelExpression()    {}
func (*LabelConjunction) labelExpression() {}
func (*LabelDisjunction) labelExpression() {}

// Expression is a scalar expression.
type Expression interface {
	String() string
	expression()
}

// StringLiteral is a quoted string literal.
type StringLiteral struct {
	Value string
}

// NumberLiteral is a numeric literal.
type NumberLiteral struct {
	Value float64
}

// BooleanLiteral is true or false.
type BooleanLiteral struct {
	Value bool
}

// Identifier references a bound variable.
type Identifier struct {
	Name string
}

// Not negates a boolean expression.
type Not struct {
	Inner Expression
}

// And is short-circuiting conjunction.
type And struct {
	Left, Right Expression
}

// Or is short-circuiting disjunction.
type Or struct {
	Left, Right Expression
}

// CompareOp is a comparison operator.
type CompareOp int

const (
	CompareEqual CompareOp = iota
	CompareNotEqual
	CompareLess
	CompareLessEqual
	CompareGreater
	CompareGreaterEqual
)

// Comparison compares two scalar expressions.
type Comparison struct {
	Op          CompareOp
	Left, Right Expression
}

// FunctionCall invokes a built-in function.
type FunctionCall struct {
	Name string
	Args []Expression
}

// PathExistence uses a path pattern as a boolean: true iff at least one
// embedding exists rooted at the row's current bindings.
type PathExistence struct {
	Path *Path
}

func (*StringLiteral) expression()  {}
func (*NumberLiteral) expression()  {}
func (*BooleanLiteral) expression() {}
func (*Identifier) expression()     {}
func (*Not) expression()            {}
func (*And) expression()            {}
func (*Or) expression()             {}
func (*Comparison) expression()     {}
func (*FunctionCall) expression()   {}
func (*PathExistence) expression()  {}
