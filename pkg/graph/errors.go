package graph

import "errors"

// Mutation contract errors. Creation fails loudly; removal of an unknown ID
// is a tolerated no-op. Label and property updates on unknown IDs fail with
// ErrNotFound.
var (
	ErrDuplicateID     = errors.New("graph: duplicate id")
	ErrMissingEndpoint = errors.New("graph: missing endpoint")
	ErrNotFound        = errors.New("graph: not found")
	ErrInvalidID       = errors.New("graph: invalid id")
)
