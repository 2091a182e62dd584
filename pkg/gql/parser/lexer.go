package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenSymbol
)

type token struct {
	kind tokenKind
	text string // identifier text, decoded string value, number text, or symbol
	pos  int    // byte offset into the input
}

// symbols longer than one character; matched greedily.
var multiCharSymbols = []string{"<=", ">=", "!="}

// lex tokenizes the whole input up front. Layout is whitespace-insensitive.
func lex(input string) ([]token, error) {
	var tokens []token
	pos := 0
	for pos < len(input) {
		r, size := utf8.DecodeRuneInString(input[pos:])
		switch {
		case unicode.IsSpace(r):
			pos += size
		case r == '_' || unicode.IsLetter(r):
			start := pos
			for pos < len(input) {
				r, size := utf8.DecodeRuneInString(input[pos:])
				if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
					pos += size
				} else {
					break
				}
			}
			tokens = append(tokens, token{kind: tokenIdent, text: input[start:pos], pos: start})
		case r == '`':
			text, next, err := lexQuoted(input, pos, '`')
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenIdent, text: text, pos: pos})
			pos = next
		case r == '\'' || r == '"':
			text, next, err := lexQuoted(input, pos, byte(r))
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenString, text: text, pos: pos})
			pos = next
		case unicode.IsDigit(r):
			start := pos
			next, err := lexNumber(input, pos)
			if err != nil {
				return nil, err
			}
			pos = next
			tokens = append(tokens, token{kind: tokenNumber, text: input[start:pos], pos: start})
		default:
			matched := false
			for _, sym := range multiCharSymbols {
				if strings.HasPrefix(input[pos:], sym) {
					tokens = append(tokens, token{kind: tokenSymbol, text: sym, pos: pos})
					pos += len(sym)
					matched = true
					break
				}
			}
			if matched {
				break
			}
			switch r {
			case '(', ')', '[', ']', '{', '}', ':', ',', '.', '|', '&', '!', '<', '>', '-', '*', '=':
				tokens = append(tokens, token{kind: tokenSymbol, text: string(r), pos: pos})
				pos += size
			default:
				return nil, &ParseError{Pos: pos, Message: fmt.Sprintf("unexpected character %q", r)}
			}
		}
	}
	tokens = append(tokens, token{kind: tokenEOF, pos: len(input)})
	return tokens, nil
}

// lexNumber scans digits, an optional fraction, and an optional exponent,
// and validates the result parses as a float.
func lexNumber(input string, pos int) (int, error) {
	start := pos
	for pos < len(input) && isDigit(input[pos]) {
		pos++
	}
	if pos < len(input) && input[pos] == '.' && pos+1 < len(input) && isDigit(input[pos+1]) {
		pos++
		for pos < len(input) && isDigit(input[pos]) {
			pos++
		}
	}
	if pos < len(input) && (input[pos] == 'e' || input[pos] == 'E') {
		exp := pos + 1
		if exp < len(input) && (input[exp] == '+' || input[exp] == '-') {
			exp++
		}
		if exp < len(input) && isDigit(input[exp]) {
			pos = exp
			for pos < len(input) && isDigit(input[pos]) {
				pos++
			}
		}
	}
	if _, err := strconv.ParseFloat(input[start:pos], 64); err != nil {
		return 0, &ParseError{Pos: start, Message: fmt.Sprintf("malformed number %q", input[start:pos])}
	}
	return pos, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// lexQuoted scans a quoted region starting at the opening quote and decodes
// the escape sequences \n \t \r \b \f \\ \' \" \` \uXXXX \UXXXXXXXX.
func lexQuoted(input string, pos int, quote byte) (string, int, error) {
	start := pos
	pos++ // opening quote
	var b strings.Builder
	for pos < len(input) {
		c := input[pos]
		if c == quote {
			return b.String(), pos + 1, nil
		}
		if c != '\\' {
			r, size := utf8.DecodeRuneInString(input[pos:])
			b.WriteRune(r)
			pos += size
			continue
		}
		pos++
		if pos >= len(input) {
			break
		}
		esc := input[pos]
		pos++
		switch esc {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '\\':
			b.WriteByte('\\')
		case '\'':
			b.WriteByte('\'')
		case '"':
			b.WriteByte('"')
		case '`':
			b.WriteByte('`')
		case 'u', 'U':
			n := 4
			if esc == 'U' {
				n = 8
			}
			if pos+n > len(input) {
				return "", 0, &ParseError{Pos: pos - 2, Message: "truncated unicode escape"}
			}
			code, err := strconv.ParseUint(input[pos:pos+n], 16, 32)
			if err != nil {
				return "", 0, &ParseError{Pos: pos - 2, Message: "malformed unicode escape"}
			}
			b.WriteRune(rune(code))
			pos += n
		default:
			return "", 0, &ParseError{Pos: pos - 2, Message: fmt.Sprintf("unknown escape \\%c", esc)}
		}
	}
	return "", 0, &ParseError{Pos: start, Message: "unterminated quoted literal"}
}
