package value

import (
	"strconv"
	"strings"
)

// Value is one runtime value flowing through the engine: a boolean, number,
// string, list, node reference, or edge reference.
//
// The set of implementations is closed; consumers type-switch exhaustively.
// A value's runtime tag always matches its declared type tag.
type Value interface {
	// Type returns the value's type. List types are computed from the
	// element types via union normalization.
	Type() Type

	// Equal reports deep equality with another value. Values of different
	// kinds are never equal.
	Equal(other Value) bool

	// String renders the value for display. Lists render as their
	// comma-joined elements.
	String() string

	isValue()
}

// Boolean is a boolean value.
type Boolean bool

// Number is a numeric value. All numbers are float64.
type Number float64

// String is a string value.
type String string

// List is an ordered list of values.
type List []Value

// NodeRef references a graph node by ID.
type NodeRef string

// EdgeRef references a graph edge by ID.
type EdgeRef string

func (Boolean) isValue() {}
func (Number) isValue()  {}
func (String) isValue()  {}
func (List) isValue()    {}
func (NodeRef) isValue() {}
func (EdgeRef) isValue() {}

// Type implements Value.
func (Boolean) Type() Type { return BooleanType }

// Type implements Value.
func (Number) Type() Type { return NumberType }

// Type implements Value.
func (String) Type() Type { return StringType }

// Type implements Value. An empty list has type LIST<NOTHING>.
func (l List) Type() Type {
	elems := make([]Type, len(l))
	for i, v := range l {
		elems[i] = v.Type()
	}
	return ListOf(UnionOf(elems...))
}

// Type implements Value.
func (NodeRef) Type() Type { return NodeRefType }

// Type implements Value.
func (EdgeRef) Type() Type { return EdgeRefType }

// Equal implements Value.
func (b Boolean) Equal(other Value) bool {
	o, ok := other.(Boolean)
	return ok && b == o
}

// Equal implements Value.
func (n Number) Equal(other Value) bool {
	o, ok := other.(Number)
	return ok && n == o
}

// Equal implements Value.
func (s String) Equal(other Value) bool {
	o, ok := other.(String)
	return ok && s == o
}

// Equal implements Value.
func (l List) Equal(other Value) bool {
	o, ok := other.(List)
	if !ok || len(l) != len(o) {
		return false
	}
	for i, v := range l {
		if !v.Equal(o[i]) {
			return false
		}
	}
	return true
}

// Equal implements Value.
func (r NodeRef) Equal(other Value) bool {
	o, ok := other.(NodeRef)
	return ok && r == o
}

// Equal implements Value.
func (r EdgeRef) Equal(other Value) bool {
	o, ok := other.(EdgeRef)
	return ok && r == o
}

// String implements Value.
func (b Boolean) String() string {
	if b {
		return "true"
	}
	return "false"
}

// String implements Value. Integral numbers render without a decimal point.
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// String implements Value.
func (s String) String() string { return string(s) }

// String implements Value.
func (l List) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}

// String implements Value.
func (r NodeRef) String() string { return string(r) }

// String implements Value.
func (r EdgeRef) String() string { return string(r) }

// Key returns a string that distinguishes values of different kinds with the
// same rendering, e.g. the string "n1" and a node reference to "n1". Used for
// row deduplication.
func Key(v Value) string {
	switch v := v.(type) {
	case Boolean:
		return "b:" + v.String()
	case Number:
		return "n:" + v.String()
	case String:
		return "s:" + string(v)
	case NodeRef:
		return "N:" + string(v)
	case EdgeRef:
		return "E:" + string(v)
	case List:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = Key(e)
		}
		return "l:[" + strings.Join(parts, "\x00") + "]"
	default:
		return "?"
	}
}
