package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Canonical text rendering. Parsing the rendering of any parsed fragment
// yields an equivalent tree.

// FormatIdentifier renders an identifier, back-tick quoting it when it is
// not a plain identifier.
func FormatIdentifier(name string) string {
	if isPlainIdentifier(name) {
		return name
	}
	var b strings.Builder
	b.WriteByte('`')
	for _, r := range name {
		switch r {
		case '`':
			b.WriteString("\\`")
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('`')
	return b.String()
}

func isPlainIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// FormatString renders a double-quoted string literal with escapes.
func FormatString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// FormatNumber renders a numeric literal; integral values render without a
// decimal point.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (q *Query) String() string {
	var parts []string
	for _, m := range q.Reads {
		parts = append(parts, m.String())
	}
	for _, u := range q.Updates {
		parts = append(parts, u.String())
	}
	if q.Return != nil {
		parts = append(parts, q.Return.String())
	}
	out := strings.Join(parts, " ")
	if q.Union != nil {
		kw := "UNION"
		if q.Union.All {
			kw = "UNION ALL"
		}
		out = out + " " + kw + " " + q.Union.Query.String()
	}
	return out
}

func (m *MatchClause) String() string {
	paths := make([]string, len(m.Paths))
	for i, p := range m.Paths {
		paths[i] = p.String()
	}
	out := "MATCH " + strings.Join(paths, ", ")
	if m.Where != nil {
		out += " WHERE " + m.Where.String()
	}
	return out
}

func (p *Path) String() string {
	var b strings.Builder
	for i, n := range p.Nodes {
		if i > 0 {
			b.WriteString(p.Edges[i-1].String())
		}
		b.WriteString(n.String())
	}
	return b.String()
}

func (n *NodePattern) String() string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(patternBody(n.Name, n.Labels, n.Properties))
	b.WriteByte(')')
	return b.String()
}

func (e *EdgePattern) String() string {
	body := patternBody(e.Name, e.Labels, e.Properties)
	var b strings.Builder
	if e.Direction == DirectionLeft {
		b.WriteByte('<')
	}
	b.WriteByte('-')
	if body != "" {
		b.WriteByte('[')
		b.WriteString(body)
		b.WriteByte(']')
	}
	b.WriteByte('-')
	if e.Direction == DirectionRight {
		b.WriteByte('>')
	}
	if e.Quantifier != nil {
		b.WriteByte('*')
	}
	return b.String()
}

func patternBody(name string, labels LabelExpression, props *MapPattern) string {
	var b strings.Builder
	if name != "" {
		b.WriteString(FormatIdentifier(name))
	}
	if labels != nil {
		b.WriteByte(':')
		b.WriteString(labels.String())
	}
	if props.Len() > 0 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(props.String())
	}
	return b.String()
}

func (m *MapPattern) String() string {
	entries := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		entries[i] = FormatIdentifier(e.Key) + ": " + e.Value.String()
	}
	return "{" + strings.Join(entries, ", ") + "}"
}

func (c *CreateClause) String() string {
	paths := make([]string, len(c.Paths))
	for i, p := range c.Paths {
		paths[i] = p.String()
	}
	return "CREATE " + strings.Join(paths, ", ")
}

func (d *DeleteClause) String() string {
	items := make([]string, len(d.Items))
	for i, it := range d.Items {
		items[i] = it.String()
	}
	kw := "DELETE"
	if d.Detach {
		kw = "DETACH DELETE"
	}
	return kw + " " + strings.Join(items, ", ")
}

func (s *SetClause) String() string {
	items := make([]string, len(s.Items))
	for i, it := range s.Items {
		items[i] = it.format(true)
	}
	return "SET " + strings.Join(items, ", ")
}

func (r *RemoveClause) String() string {
	items := make([]string, len(r.Items))
	for i, it := range r.Items {
		items[i] = it.format(false)
	}
	return "REMOVE " + strings.Join(items, ", ")
}

func (it UpdateItem) format(withValue bool) string {
	if it.Property != "" {
		out := FormatIdentifier(it.Variable) + "." + FormatIdentifier(it.Property)
		if withValue && it.Value != nil {
			out += " = " + it.Value.String()
		}
		return out
	}
	labels := make([]string, len(it.Labels))
	for i, l := range it.Labels {
		labels[i] = FormatIdentifier(l)
	}
	return FormatIdentifier(it.Variable) + ":" + strings.Join(labels, ":")
}

func (r *ReturnClause) String() string {
	items := make([]string, len(r.Items))
	for i, it := range r.Items {
		items[i] = it.String()
	}
	return "RETURN " + strings.Join(items, ", ")
}

// Label expressions. Conjunction binds tighter than disjunction; nested
// disjunctions under conjunctions are parenthesized.

func (l *LabelName) String() string { return FormatIdentifier(l.Name) }

func (l *LabelNegation) String() string {
	inner := l.Inner.String()
	if _, ok := l.Inner.(*LabelName); !ok {
		inner = "(" + inner + ")"
	}
	return "!" + inner
}

func (l *LabelConjunction) String() string {
	terms := make([]string, len(l.Terms))
	for i, t := range l.Terms {
		s := t.String()
		if _, ok := t.(*LabelDisjunction); ok {
			s = "(" + s + ")"
		}
		terms[i] = s
	}
	return strings.Join(terms, "&")
}

func (l *LabelDisjunction) String() string {
	terms := make([]string, len(l.Terms))
	for i, t := range l.Terms {
		terms[i] = t.String()
	}
	return strings.Join(terms, "|")
}

// Expression precedence, loosest to tightest: OR, AND, NOT, comparison,
// primary. Children at looser precedence than their context get parens.
const (
	precOr = iota + 1
	precAnd
	precNot
	precCompare
	precPrimary
)

func exprPrecedence(e Expression) int {
	switch e.(type) {
	case *Or:
		return precOr
	case *And:
		return precAnd
	case *Not:
		return precNot
	case *Comparison:
		return precCompare
	default:
		return precPrimary
	}
}

func formatChild(e Expression, contextPrec int) string {
	s := e.String()
	if exprPrecedence(e) < contextPrec {
		return "(" + s + ")"
	}
	return s
}

func (e *StringLiteral) String() string  { return FormatString(e.Value) }
func (e *NumberLiteral) String() string  { return FormatNumber(e.Value) }
func (e *BooleanLiteral) String() string { return strconv.FormatBool(e.Value) }
func (e *Identifier) String() string     { return FormatIdentifier(e.Name) }

func (e *Not) String() string {
	return "NOT " + formatChild(e.Inner, precNot)
}

func (e *And) String() string {
	return formatChild(e.Left, precAnd) + " AND " + formatChild(e.Right, precAnd)
}

func (e *Or) String() string {
	return formatChild(e.Left, precOr) + " OR " + formatChild(e.Right, precOr)
}

func (op CompareOp) String() string {
	switch op {
	case CompareEqual:
		return "="
	case CompareNotEqual:
		return "!="
	case CompareLess:
		return "<"
	case CompareLessEqual:
		return "<="
	case CompareGreater:
		return ">"
	case CompareGreaterEqual:
		return ">="
	default:
		return "?"
	}
}

func (e *Comparison) String() string {
	return fmt.Sprintf("%s %s %s",
		formatChild(e.Left, precCompare+1), e.Op, formatChild(e.Right, precCompare+1))
}

func (e *FunctionCall) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return FormatIdentifier(e.Name) + "(" + strings.Join(args, ", ") + ")"
}

func (e *PathExistence) String() string { return e.Path.String() }
