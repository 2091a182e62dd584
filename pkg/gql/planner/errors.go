package planner

import "errors"

// Execution errors. All are unrecoverable at the point raised: the query
// aborts and no partially mutated graph is surfaced to the caller.
var (
	// ErrUnboundVariable is raised when a pattern would bind a new variable
	// in a position where only existing bindings are permitted, such as a
	// WHERE sub-pattern.
	ErrUnboundVariable = errors.New("gql: unbound variable not allowed here")

	// ErrUndefinedVariable is raised when an expression references a
	// variable with no binding in the current row.
	ErrUndefinedVariable = errors.New("gql: undefined variable")

	// ErrTypeMismatch is raised when a value has the wrong kind for an
	// operation: a non-boolean in a boolean position, a comparison across
	// kinds, or a variable that is not the required reference kind.
	ErrTypeMismatch = errors.New("gql: type mismatch")

	// ErrNotANode is raised by CREATE when a bound variable reused in a
	// node position does not resolve to an existing node.
	ErrNotANode = errors.New("gql: variable does not resolve to a node")

	// ErrUnrecognizedConstruct indicates an AST node kind the planner or
	// evaluator does not implement.
	ErrUnrecognizedConstruct = errors.New("gql: unrecognized construct")

	// ErrInvalidPlan is raised at plan time for clauses that cannot be
	// compiled, e.g. an undirected edge in a CREATE clause.
	ErrInvalidPlan = errors.New("gql: invalid query")

	// ErrRowLimit is raised when match expansion exceeds the configured
	// maximum row count.
	ErrRowLimit = errors.New("gql: result row limit exceeded")

	// ErrStepLimit is raised when traversal exceeds the configured maximum
	// step count. This is the guard against unbounded quantifiers on
	// cyclic graphs.
	ErrStepLimit = errors.New("gql: traversal step limit exceeded")
)
