// Package value implements the runtime values and the type lattice used by
// the GQL engine.
//
// Values are a closed set of tagged variants (boolean, number, string, list,
// node reference, edge reference). Types form a lattice with NOTHING at the
// bottom, ANY at the top, covariant lists, and normalized unions. The lattice
// backs runtime type-compatibility checks during query evaluation.
package value

import (
	"sort"
	"strings"
)

// TypeKind identifies one kind of type in the lattice.
//
// The declaration order doubles as the total-order rank used when sorting
// union members into canonical form.
type TypeKind int

const (
	KindNothing TypeKind = iota
	KindBoolean
	KindString
	KindNumber
	KindNodeRef
	KindEdgeRef
	KindList
	KindUnion
	KindAny
)

// String returns the lattice name of the kind.
func (k TypeKind) String() string {
	switch k {
	case KindNothing:
		return "NOTHING"
	case KindBoolean:
		return "BOOLEAN"
	case KindString:
		return "STRING"
	case KindNumber:
		return "NUMBER"
	case KindNodeRef:
		return "NODE_REF"
	case KindEdgeRef:
		return "EDGE_REF"
	case KindList:
		return "LIST"
	case KindUnion:
		return "UNION"
	case KindAny:
		return "ANY"
	default:
		return "UNKNOWN"
	}
}

// Type is a member of the type lattice. The zero value is NOTHING.
//
// Types are immutable values; construct lists and unions with ListOf and
// UnionOf so that union members stay in canonical normalized form.
type Type struct {
	kind    TypeKind
	elem    *Type  // list element type
	members []Type // union members, normalized
}

// The primitive lattice members.
var (
	Nothing     = Type{kind: KindNothing}
	Any         = Type{kind: KindAny}
	BooleanType = Type{kind: KindBoolean}
	StringType  = Type{kind: KindString}
	NumberType  = Type{kind: KindNumber}
	NodeRefType = Type{kind: KindNodeRef}
	EdgeRefType = Type{kind: KindEdgeRef}
)

// ListOf returns the LIST type with the given element type.
func ListOf(elem Type) Type {
	e := elem
	return Type{kind: KindList, elem: &e}
}

// Kind reports the type's kind.
func (t Type) Kind() TypeKind { return t.kind }

// Elem returns a list type's element type. For non-list types it returns
// NOTHING.
func (t Type) Elem() Type {
	if t.kind != KindList || t.elem == nil {
		return Nothing
	}
	return *t.elem
}

// Members returns a union type's members in canonical order. For non-union
// types it returns nil. The returned slice must not be modified.
func (t Type) Members() []Type {
	if t.kind != KindUnion {
		return nil
	}
	return t.members
}

// Equal reports structural equality of two types.
func (t Type) Equal(other Type) bool { return compareTypes(t, other) == 0 }

// String renders the type in its canonical spelling, e.g. LIST<NUMBER> or
// UNION<BOOLEAN|STRING>.
func (t Type) String() string {
	switch t.kind {
	case KindList:
		return "LIST<" + t.Elem().String() + ">"
	case KindUnion:
		parts := make([]string, len(t.members))
		for i, m := range t.members {
			parts[i] = m.String()
		}
		return "UNION<" + strings.Join(parts, "|") + ">"
	default:
		return t.kind.String()
	}
}

// UnionOf builds the normalized union of the given types: nested unions are
// flattened, members subsumed by another member are dropped, and the result
// is sorted into the canonical total order. An empty union collapses to
// NOTHING and a singleton union collapses to its only member.
func UnionOf(types ...Type) Type {
	var flat []Type
	var flatten func(ts []Type)
	flatten = func(ts []Type) {
		for _, t := range ts {
			if t.kind == KindUnion {
				flatten(t.members)
			} else {
				flat = append(flat, t)
			}
		}
	}
	flatten(types)

	// Drop any member that is a subtype of a distinct other member.
	// Structural duplicates are subsumed too, keeping the first occurrence.
	kept := flat[:0]
	for i, t := range flat {
		subsumed := false
		for j, u := range flat {
			if i == j {
				continue
			}
			if t.Equal(u) {
				// Duplicate: keep only the earliest copy.
				if j < i {
					subsumed = true
					break
				}
				continue
			}
			if IsSubtype(t, u) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			kept = append(kept, t)
		}
	}

	switch len(kept) {
	case 0:
		return Nothing
	case 1:
		return kept[0]
	}

	members := make([]Type, len(kept))
	copy(members, kept)
	sort.Slice(members, func(i, j int) bool {
		return compareTypes(members[i], members[j]) < 0
	})
	return Type{kind: KindUnion, members: members}
}

// IsSubtype reports whether child is a subtype of parent.
//
// NOTHING is the bottom element and ANY the top. Lists are covariant in
// their element type. A union parent accepts a child matching any member;
// a union child requires every member to find a home in the parent.
// Otherwise the kinds must be identical.
func IsSubtype(child, parent Type) bool {
	if child.kind == KindNothing || parent.kind == KindAny {
		return true
	}
	if child.kind == KindAny {
		return false
	}
	if parent.kind == KindNothing {
		return false
	}
	if child.kind == KindUnion {
		for _, m := range child.members {
			if !IsSubtype(m, parent) {
				return false
			}
		}
		return true
	}
	if parent.kind == KindUnion {
		for _, m := range parent.members {
			if IsSubtype(child, m) {
				return true
			}
		}
		return false
	}
	if child.kind == KindList && parent.kind == KindList {
		return IsSubtype(child.Elem(), parent.Elem())
	}
	return child.kind == parent.kind
}

// compareTypes imposes a total order on types consistent with the union
// canonical form: first by kind rank, then structurally.
func compareTypes(a, b Type) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindList:
		return compareTypes(a.Elem(), b.Elem())
	case KindUnion:
		for i := 0; i < len(a.members) && i < len(b.members); i++ {
			if c := compareTypes(a.members[i], b.members[i]); c != 0 {
				return c
			}
		}
		switch {
		case len(a.members) < len(b.members):
			return -1
		case len(a.members) > len(b.members):
			return 1
		}
		return 0
	default:
		return 0
	}
}
