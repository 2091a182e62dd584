// Package parser turns GQL query text into the AST defined in pkg/gql/ast.
//
// The grammar is parsed by hand with recursive descent plus bounded
// backtracking (PEG style) for the one ambiguous spot: a '(' in expression
// position may open either a parenthesized expression or a path-existence
// pattern. Layout is whitespace-insensitive and keywords are matched
// case-insensitively.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/graphvana/graphvana/pkg/gql/ast"
)

// reservedWords may not be used as bare variable names in expressions.
var reservedWords = map[string]bool{
	"MATCH": true, "WHERE": true, "RETURN": true, "CREATE": true,
	"DELETE": true, "DETACH": true, "SET": true, "REMOVE": true,
	"UNION": true, "ALL": true, "AND": true, "OR": true, "NOT": true,
	"TRUE": true, "FALSE": true,
}

// ParseQuery parses a complete query.
func ParseQuery(text string) (*ast.Query, error) {
	p, err := newParser(text)
	if err != nil {
		return nil, err
	}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return q, nil
}

// ParseNodePattern parses a single node pattern fragment, e.g. (x:Foo{a: 1}).
func ParseNodePattern(text string) (*ast.NodePattern, error) {
	p, err := newParser(text)
	if err != nil {
		return nil, err
	}
	n, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return n, nil
}

// ParseEdgePattern parses a single edge pattern fragment, e.g. -[e:Bar]->*.
func ParseEdgePattern(text string) (*ast.EdgePattern, error) {
	p, err := newParser(text)
	if err != nil {
		return nil, err
	}
	e, err := p.parseEdgePattern()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return e, nil
}

// ParseExpression parses a scalar expression fragment.
func ParseExpression(text string) (ast.Expression, error) {
	p, err := newParser(text)
	if err != nil {
		return nil, err
	}
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return e, nil
}

type parser struct {
	tokens []token
	pos    int
}

func newParser(text string) (*parser, error) {
	tokens, err := lex(text)
	if err != nil {
		return nil, err
	}
	return &parser{tokens: tokens}, nil
}

func (p *parser) cur() token { return p.tokens[p.pos] }

func (p *parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

func (p *parser) errorf(format string, args ...any) *ParseError {
	return &ParseError{Pos: p.cur().pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) atSymbol(s string) bool {
	t := p.cur()
	return t.kind == tokenSymbol && t.text == s
}

func (p *parser) acceptSymbol(s string) bool {
	if p.atSymbol(s) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectSymbol(s string) error {
	if !p.acceptSymbol(s) {
		return p.errorf("expected %q", s)
	}
	return nil
}

func (p *parser) atKeyword(kw string) bool {
	t := p.cur()
	return t.kind == tokenIdent && strings.EqualFold(t.text, kw)
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.atKeyword(kw) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return p.errorf("expected %s", kw)
	}
	return nil
}

func (p *parser) expectEOF() error {
	if p.cur().kind != tokenEOF {
		return p.errorf("unexpected input after query")
	}
	return nil
}

// parseIdent consumes any identifier token, including quoted ones.
func (p *parser) parseIdent() (string, error) {
	t := p.cur()
	if t.kind != tokenIdent {
		return "", p.errorf("expected identifier")
	}
	p.advance()
	return t.text, nil
}

func (p *parser) parseQuery() (*ast.Query, error) {
	q := &ast.Query{}
	for p.atKeyword("MATCH") {
		m, err := p.parseMatchClause()
		if err != nil {
			return nil, err
		}
		q.Reads = append(q.Reads, m)
	}

	if p.atKeyword("RETURN") {
		r, err := p.parseReturnClause()
		if err != nil {
			return nil, err
		}
		q.Return = r
	} else {
		for {
			u, err := p.parseUpdateClause()
			if err != nil {
				return nil, err
			}
			if u == nil {
				break
			}
			q.Updates = append(q.Updates, u)
		}
		if len(q.Updates) == 0 {
			return nil, p.errorf("expected RETURN or an update clause")
		}
		if p.atKeyword("RETURN") {
			r, err := p.parseReturnClause()
			if err != nil {
				return nil, err
			}
			q.Return = r
		}
	}

	if p.acceptKeyword("UNION") {
		all := p.acceptKeyword("ALL")
		sub, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		q.Union = &ast.Union{All: all, Query: sub}
	}
	return q, nil
}

func (p *parser) parseMatchClause() (*ast.MatchClause, error) {
	if err := p.expectKeyword("MATCH"); err != nil {
		return nil, err
	}
	m := &ast.MatchClause{}
	for {
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		m.Paths = append(m.Paths, path)
		if !p.acceptSymbol(",") {
			break
		}
	}
	if p.acceptKeyword("WHERE") {
		where, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		m.Where = where
	}
	return m, nil
}

func (p *parser) parseReturnClause() (*ast.ReturnClause, error) {
	if err := p.expectKeyword("RETURN"); err != nil {
		return nil, err
	}
	r := &ast.ReturnClause{}
	for {
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		r.Items = append(r.Items, item)
		if !p.acceptSymbol(",") {
			break
		}
	}
	return r, nil
}

// parseUpdateClause parses one CREATE / DETACH DELETE / DELETE / SET /
// REMOVE clause, or returns nil when the next token starts none of them.
func (p *parser) parseUpdateClause() (ast.UpdateClause, error) {
	switch {
	case p.acceptKeyword("CREATE"):
		c := &ast.CreateClause{}
		for {
			path, err := p.parsePath()
			if err != nil {
				return nil, err
			}
			c.Paths = append(c.Paths, path)
			if !p.acceptSymbol(",") {
				break
			}
		}
		return c, nil
	case p.atKeyword("DETACH"), p.atKeyword("DELETE"):
		detach := p.acceptKeyword("DETACH")
		if err := p.expectKeyword("DELETE"); err != nil {
			return nil, err
		}
		d := &ast.DeleteClause{Detach: detach}
		for {
			name, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			d.Items = append(d.Items, &ast.Identifier{Name: name})
			if !p.acceptSymbol(",") {
				break
			}
		}
		return d, nil
	case p.acceptKeyword("SET"):
		items, err := p.parseUpdateItems(true)
		if err != nil {
			return nil, err
		}
		return &ast.SetClause{Items: items}, nil
	case p.acceptKeyword("REMOVE"):
		items, err := p.parseUpdateItems(false)
		if err != nil {
			return nil, err
		}
		return &ast.RemoveClause{Items: items}, nil
	default:
		return nil, nil
	}
}

// parseUpdateItems parses SET/REMOVE items: var.prop [= expr] or
// var:Label1:Label2. Property chains deeper than one level are rejected.
func (p *parser) parseUpdateItems(withValue bool) ([]ast.UpdateItem, error) {
	var items []ast.UpdateItem
	for {
		variable, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		item := ast.UpdateItem{Variable: variable}
		switch {
		case p.acceptSymbol("."):
			prop, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			if p.atSymbol(".") {
				return nil, p.errorf("nested property paths are not supported")
			}
			item.Property = prop
			if withValue {
				if err := p.expectSymbol("="); err != nil {
					return nil, err
				}
				val, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				item.Value = val
			}
		case p.acceptSymbol(":"):
			for {
				label, err := p.parseIdent()
				if err != nil {
					return nil, err
				}
				item.Labels = append(item.Labels, label)
				if !p.acceptSymbol(":") {
					break
				}
			}
		default:
			return nil, p.errorf("expected '.' or ':' after variable")
		}
		items = append(items, item)
		if !p.acceptSymbol(",") {
			break
		}
	}
	return items, nil
}

func (p *parser) parsePath() (*ast.Path, error) {
	path := &ast.Path{}
	node, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	path.Nodes = append(path.Nodes, node)
	for p.atSymbol("<") || p.atSymbol("-") {
		edge, err := p.parseEdgePattern()
		if err != nil {
			return nil, err
		}
		node, err := p.parseNodePattern()
		if err != nil {
			return nil, err
		}
		path.Edges = append(path.Edges, edge)
		path.Nodes = append(path.Nodes, node)
	}
	return path, nil
}

func (p *parser) parseNodePattern() (*ast.NodePattern, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	n := &ast.NodePattern{}
	if p.cur().kind == tokenIdent {
		n.Name = p.cur().text
		p.advance()
	}
	if p.acceptSymbol(":") {
		labels, err := p.parseLabelExpression()
		if err != nil {
			return nil, err
		}
		n.Labels = labels
	}
	if p.atSymbol("{") {
		props, err := p.parseMapPattern()
		if err != nil {
			return nil, err
		}
		n.Properties = props
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *parser) parseEdgePattern() (*ast.EdgePattern, error) {
	e := &ast.EdgePattern{Direction: ast.DirectionNone}
	arrowPos := p.cur().pos
	left := p.acceptSymbol("<")
	if err := p.expectSymbol("-"); err != nil {
		return nil, err
	}
	if p.acceptSymbol("[") {
		if p.cur().kind == tokenIdent {
			e.Name = p.cur().text
			p.advance()
		}
		if p.acceptSymbol(":") {
			labels, err := p.parseLabelExpression()
			if err != nil {
				return nil, err
			}
			e.Labels = labels
		}
		if p.atSymbol("{") {
			props, err := p.parseMapPattern()
			if err != nil {
				return nil, err
			}
			e.Properties = props
		}
		if err := p.expectSymbol("]"); err != nil {
			return nil, err
		}
	}
	if err := p.expectSymbol("-"); err != nil {
		return nil, err
	}
	right := p.acceptSymbol(">")
	if left && right {
		return nil, &ParseError{Pos: arrowPos, Message: "edge pattern cannot point in both directions"}
	}
	switch {
	case left:
		e.Direction = ast.DirectionLeft
	case right:
		e.Direction = ast.DirectionRight
	}
	if p.acceptSymbol("*") {
		e.Quantifier = &ast.Quantifier{Min: 0, Max: -1}
	}
	return e, nil
}

// Label expressions: '!' binds tightest, then '&', then '|'.

func (p *parser) parseLabelExpression() (ast.LabelExpression, error) {
	return p.parseLabelDisjunction()
}

func (p *parser) parseLabelDisjunction() (ast.LabelExpression, error) {
	first, err := p.parseLabelConjunction()
	if err != nil {
		return nil, err
	}
	terms := []ast.LabelExpression{first}
	for p.acceptSymbol("|") {
		next, err := p.parseLabelConjunction()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return &ast.LabelDisjunction{Terms: terms}, nil
}

func (p *parser) parseLabelConjunction() (ast.LabelExpression, error) {
	first, err := p.parseLabelUnary()
	if err != nil {
		return nil, err
	}
	terms := []ast.LabelExpression{first}
	for p.acceptSymbol("&") {
		next, err := p.parseLabelUnary()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return &ast.LabelConjunction{Terms: terms}, nil
}

func (p *parser) parseLabelUnary() (ast.LabelExpression, error) {
	switch {
	case p.acceptSymbol("!"):
		inner, err := p.parseLabelUnary()
		if err != nil {
			return nil, err
		}
		return &ast.LabelNegation{Inner: inner}, nil
	case p.acceptSymbol("("):
		inner, err := p.parseLabelDisjunction()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		name, err := p.parseIdent()
		if err != nil {
			return nil, p.errorf("expected label")
		}
		return &ast.LabelName{Name: name}, nil
	}
}

func (p *parser) parseMapPattern() (*ast.MapPattern, error) {
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	m := &ast.MapPattern{}
	if p.acceptSymbol("}") {
		return m, nil
	}
	for {
		key, err := p.parseIdent()
		if err != nil {
			return nil, p.errorf("expected property key")
		}
		if err := p.expectSymbol(":"); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, ast.MapEntry{Key: key, Value: val})
		if !p.acceptSymbol(",") {
			break
		}
	}
	if err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return m, nil
}

// Expressions: OR < AND < NOT < comparison < primary.

func (p *parser) parseExpression() (ast.Expression, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (ast.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expression, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("AND") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (ast.Expression, error) {
	if p.acceptKeyword("NOT") {
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Not{Inner: inner}, nil
	}
	return p.parseComparison()
}

var compareOps = map[string]ast.CompareOp{
	"=":  ast.CompareEqual,
	"!=": ast.CompareNotEqual,
	"<":  ast.CompareLess,
	"<=": ast.CompareLessEqual,
	">":  ast.CompareGreater,
	">=": ast.CompareGreaterEqual,
}

func (p *parser) parseComparison() (ast.Expression, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	t := p.cur()
	if t.kind == tokenSymbol {
		if op, ok := compareOps[t.text]; ok {
			p.advance()
			right, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			return &ast.Comparison{Op: op, Left: left, Right: right}, nil
		}
	}
	return left, nil
}

func (p *parser) parsePrimary() (ast.Expression, error) {
	t := p.cur()
	switch t.kind {
	case tokenNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf("malformed number %q", t.text)
		}
		p.advance()
		return &ast.NumberLiteral{Value: f}, nil
	case tokenString:
		p.advance()
		return &ast.StringLiteral{Value: t.text}, nil
	case tokenIdent:
		switch {
		case strings.EqualFold(t.text, "TRUE"):
			p.advance()
			return &ast.BooleanLiteral{Value: true}, nil
		case strings.EqualFold(t.text, "FALSE"):
			p.advance()
			return &ast.BooleanLiteral{Value: false}, nil
		case reservedWords[strings.ToUpper(t.text)]:
			return nil, p.errorf("unexpected keyword %s", t.text)
		}
		p.advance()
		if p.atSymbol("(") {
			return p.parseCallArgs(t.text)
		}
		return &ast.Identifier{Name: t.text}, nil
	case tokenSymbol:
		if t.text == "(" {
			return p.parseParenOrPath()
		}
	}
	return nil, p.errorf("expected expression")
}

func (p *parser) parseCallArgs(name string) (ast.Expression, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	call := &ast.FunctionCall{Name: name}
	if p.acceptSymbol(")") {
		return call, nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if !p.acceptSymbol(",") {
			break
		}
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return call, nil
}

// parseParenOrPath disambiguates '(' in expression position: first try a
// path pattern (path-existence predicate); if that fails, or it parses as a
// bare single-node pattern with no constraints, backtrack and parse a
// parenthesized expression.
func (p *parser) parseParenOrPath() (ast.Expression, error) {
	save := p.pos
	path, err := p.parsePath()
	if err == nil && pathIsPredicate(path) {
		return &ast.PathExistence{Path: path}, nil
	}
	p.pos = save

	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	inner, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return inner, nil
}

// pathIsPredicate reports whether a parsed path is meaningful as a
// path-existence test rather than a parenthesized variable reference.
func pathIsPredicate(path *ast.Path) bool {
	if len(path.Edges) > 0 {
		return true
	}
	n := path.Nodes[0]
	return n.Labels != nil || n.Properties.Len() > 0
}
