package parser

import "fmt"

// ParseError reports a malformed query. Pos is a byte offset into the input;
// the parser does not attempt recovery, so the first error aborts the parse.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Message)
}
