package basil

import (
	"fmt"
	"strings"
)

// Error taxonomy:
//
//   - LexError (lexer.go) and ParseError abort parsing of a source unit.
//   - BindError is a runtime binding failure: unresolved names, arity
//     mismatches, bad indices, coercion failures, duplicate collection keys.
//   - RaisedError is an explicitly thrown error (Throw, Err.Raise, or a
//     builtin signaling failure) carrying a number and a type name that
//     structured Catch clauses match against.
//
// BindError and RaisedError both travel as control-flow signals through the
// evaluator; they never escape as Go panics.

// ParseError is a syntax failure with a 1-based line and 0-based column.
// Incomplete marks errors caused by premature end of input, which lets the
// REPL keep reading continuation lines instead of reporting.
type ParseError struct {
	Line       int
	Col        int
	Msg        string
	Incomplete bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// IsIncomplete reports whether err is a ParseError caused by truncated input.
func IsIncomplete(err error) bool {
	pe, ok := err.(*ParseError)
	return ok && pe.Incomplete
}

// BindError is a runtime binding/coercion failure.
type BindError struct {
	Msg  string
	Line int
	Col  int
}

func (e *BindError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("runtime error at %d:%d: %s", e.Line, e.Col+1, e.Msg)
	}
	return "runtime error: " + e.Msg
}

// RaisedError is a thrown exception value.
type RaisedError struct {
	Number   int
	TypeName string
	Message  string
	Source   string
	Line     int
	Col      int
}

func (e *RaisedError) Error() string {
	name := e.TypeName
	if name == "" {
		name = "Exception"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s at %d:%d: %s", name, e.Line, e.Col+1, e.Message)
	}
	return fmt.Sprintf("%s: %s", name, e.Message)
}

// errorLocation extracts a 1-based line and 0-based column if the error
// carries one.
func errorLocation(err error) (line, col int, ok bool) {
	switch e := err.(type) {
	case *LexError:
		return e.Line, e.Col, true
	case *ParseError:
		return e.Line, e.Col, true
	case *BindError:
		return e.Line, e.Col, e.Line > 0
	case *RaisedError:
		return e.Line, e.Col, e.Line > 0
	}
	return 0, 0, false
}

// WrapErrorWithSource augments lex/parse/runtime errors with a caret-annotated
// snippet of the offending source. Other errors pass through unchanged.
func WrapErrorWithSource(err error, src string) error {
	return WrapErrorWithName(err, "", src)
}

// WrapErrorWithName is WrapErrorWithSource with a source label (file name,
// "<repl>", ...) included in the header line.
func WrapErrorWithName(err error, srcName, src string) error {
	if err == nil {
		return nil
	}
	line, col, ok := errorLocation(err)
	if !ok {
		return err
	}
	var header string
	switch err.(type) {
	case *LexError:
		header = "LEXICAL ERROR"
	case *ParseError:
		header = "SYNTAX ERROR"
	default:
		header = "RUNTIME ERROR"
	}
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	return fmt.Errorf("%s", prettySnippet(src, header, srcName, line, col+1, msg))
}

// prettySnippet builds a caret snippet with one line of context either side.
// Coordinates are 1-based and clamped to the source bounds.
func prettySnippet(src, header, name string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	if line > len(lines) {
		line = len(lines)
	}

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "%s in %s at %d:%d: %s\n\n", header, name, line, col, msg)
	} else {
		fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	}
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
