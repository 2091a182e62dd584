package planner

import (
	"github.com/benbjohnson/immutable"

	"github.com/graphvana/graphvana/pkg/value"
)

// Scope is one match row: a persistent, chainable variable binding
// environment. A child scope sees its parent's bindings but writes only
// locally, so sub-matches do not leak intermediate bindings outward.
type Scope struct {
	parent *Scope
	vars   *immutable.Map[string, value.Value]
}

func newScope() *Scope {
	return &Scope{vars: immutable.NewMap[string, value.Value](nil)}
}

// Lookup returns the binding for name, consulting parents.
func (s *Scope) Lookup(name string) (value.Value, bool) {
	for c := s; c != nil; c = c.parent {
		if v, ok := c.vars.Get(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Bind returns a scope with name bound locally. The receiver is unchanged.
func (s *Scope) Bind(name string, v value.Value) *Scope {
	return &Scope{parent: s.parent, vars: s.vars.Set(name, v)}
}

// Child returns an empty scope layered over this one.
func (s *Scope) Child() *Scope {
	return &Scope{parent: s, vars: immutable.NewMap[string, value.Value](nil)}
}
