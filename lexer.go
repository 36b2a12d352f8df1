package basil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TokenType represents the kind of token.
type TokenType int

const (
	// Special
	EOF TokenType = iota
	ILLEGAL
	NEWLINE // statement terminator (line break; ':' separators also map here)

	// Punctuation
	LPAREN // "("
	RPAREN // ")"
	LBRACE // "{" (array initializer)
	RBRACE // "}"
	COMMA  // ","
	DOT    // "."
	COLON  // ":" (label marker or statement separator; the parser decides)

	// Operators
	PLUS      // "+"
	MINUS     // "-"
	STAR      // "*"
	SLASH     // "/"
	BACKSLASH // "\" integer division
	CARET     // "^"
	AMP       // "&"
	ASSIGN    // "=" (also equality; the parser decides by position)
	LESS      // "<"
	LESS_EQ   // "<="
	GREATER   // ">"
	GREATER_EQ
	NOT_EQ // "<>"
	LSHIFT // "<<"
	RSHIFT // ">>"

	// Compound assignment
	PLUS_EQ   // "+="
	MINUS_EQ  // "-="
	STAR_EQ   // "*="
	SLASH_EQ  // "/="
	BSLASH_EQ // "\="
	AMP_EQ    // "&="
	CARET_EQ  // "^="

	// Literals & identifiers
	IDENT
	STRING       // decoded string literal
	INTERPSTRING // raw body of $"..." (decoded by the parser)
	INTLIT       // Integer literal (int64 payload)
	LONGLIT      // Long literal (int64 payload)
	FLOATLIT     // Double literal (float64 payload)
	DATELIT      // #...# date literal (OLE serial float64 payload)

	// Keywords
	KwIf
	KwThen
	KwElse
	KwElseIf
	KwEnd
	KwSub
	KwFunction
	KwDim
	KwConst
	KwStatic
	KwAs
	KwNew
	KwClass
	KwModule
	KwInherits
	KwImplements
	KwPartial
	KwInterface
	KwStructure
	KwDelegate
	KwEvent
	KwEnum
	KwPublic
	KwPrivate
	KwProtected
	KwFriend
	KwShared
	KwReadOnly
	KwOverrides
	KwOverridable
	KwOptional
	KwByVal
	KwByRef
	KwParamArray
	KwReturn
	KwExit
	KwContinue
	KwFor
	KwTo
	KwStep
	KwNext
	KwEach
	KwIn
	KwWhile
	KwWend
	KwDo
	KwLoop
	KwUntil
	KwSelect
	KwCase
	KwIs
	KwIsNot
	KwNot
	KwAnd
	KwOr
	KwXor
	KwAndAlso
	KwOrElse
	KwMod
	KwLike
	KwTrue
	KwFalse
	KwNothing
	KwMe
	KwMyBase
	KwTry
	KwCatch
	KwFinally
	KwThrow
	KwWhen
	KwOn
	KwError
	KwResume
	KwGoTo
	KwWith
	KwReDim
	KwPreserve
	KwErase
	KwUsing
	KwCall
	KwProperty
	KwGet
	KwSet
	KwAddHandler
	KwRemoveHandler
	KwRaiseEvent
	KwAddressOf
	KwTypeOf
	KwImports
	KwOption
	KwStop
	KwAsync
	KwAwait
	KwOf
	KwHandles
	KwLet
)

// Token is a lexical token with optional literal value.
type Token struct {
	Type    TokenType
	Lexeme  string      // raw text (casing preserved)
	Literal interface{} // parsed value for literals
	Line    int         // 1-based
	Col     int         // 0-based
}

// keywords maps folded identifier text to keyword tokens.
var keywords = map[string]TokenType{
	"if": KwIf, "then": KwThen, "else": KwElse, "elseif": KwElseIf,
	"end": KwEnd, "sub": KwSub, "function": KwFunction,
	"dim": KwDim, "const": KwConst, "static": KwStatic, "as": KwAs, "new": KwNew,
	"class": KwClass, "module": KwModule, "inherits": KwInherits,
	"implements": KwImplements, "partial": KwPartial, "interface": KwInterface,
	"structure": KwStructure, "delegate": KwDelegate, "event": KwEvent, "enum": KwEnum,
	"public": KwPublic, "private": KwPrivate, "protected": KwProtected,
	"friend": KwFriend, "shared": KwShared, "readonly": KwReadOnly,
	"overrides": KwOverrides, "overridable": KwOverridable,
	"optional": KwOptional, "byval": KwByVal, "byref": KwByRef, "paramarray": KwParamArray,
	"return": KwReturn, "exit": KwExit, "continue": KwContinue,
	"for": KwFor, "to": KwTo, "step": KwStep, "next": KwNext, "each": KwEach, "in": KwIn,
	"while": KwWhile, "wend": KwWend, "do": KwDo, "loop": KwLoop, "until": KwUntil,
	"select": KwSelect, "case": KwCase,
	"is": KwIs, "isnot": KwIsNot, "not": KwNot,
	"and": KwAnd, "or": KwOr, "xor": KwXor, "andalso": KwAndAlso, "orelse": KwOrElse,
	"mod": KwMod, "like": KwLike,
	"true": KwTrue, "false": KwFalse, "nothing": KwNothing,
	"me": KwMe, "mybase": KwMyBase,
	"try": KwTry, "catch": KwCatch, "finally": KwFinally, "throw": KwThrow, "when": KwWhen,
	"on": KwOn, "error": KwError, "resume": KwResume, "goto": KwGoTo,
	"with": KwWith, "redim": KwReDim, "preserve": KwPreserve, "erase": KwErase,
	"using": KwUsing, "call": KwCall,
	"property": KwProperty, "get": KwGet, "set": KwSet,
	"addhandler": KwAddHandler, "removehandler": KwRemoveHandler, "raiseevent": KwRaiseEvent,
	"addressof": KwAddressOf, "typeof": KwTypeOf,
	"imports": KwImports, "option": KwOption, "stop": KwStop,
	"async": KwAsync, "await": KwAwait, "of": KwOf, "handles": KwHandles, "let": KwLet,
}

// Lexer scans a Basil source string into tokens.
type Lexer struct {
	src    string
	start  int // start index of current token
	cur    int // current index
	line   int // 1-based
	col    int // 0-based column within line
	tokens []Token

	// precise token start position
	tokStartLine int
	tokStartCol  int
}

// NewLexer creates a new lexer for the given source.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	return l.src[l.cur], true
}

func (l *Lexer) peekN(n int) (byte, bool) {
	idx := l.cur + n
	if idx >= len(l.src) {
		return 0, false
	}
	return l.src[idx], true
}

func (l *Lexer) advance() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return ch, true
}

func (l *Lexer) addToken(tt TokenType, lit interface{}) Token {
	tok := Token{
		Type:    tt,
		Lexeme:  l.src[l.start:l.cur],
		Literal: lit,
		Line:    l.tokStartLine,
		Col:     l.tokStartCol,
	}
	l.tokens = append(l.tokens, tok)
	l.start = l.cur
	return tok
}

func (l *Lexer) previousToken() *Token {
	if len(l.tokens) == 0 {
		return nil
	}
	return &l.tokens[len(l.tokens)-1]
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
func isOctDigit(b byte) bool { return b >= '0' && b <= '7' }
func isAlpha(b byte) bool    { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' }
func isAlphaNum(b byte) bool { return isAlpha(b) || isDigit(b) }

// ----- errors -----

// LexError is a scan-time failure with a 1-based line and 0-based column.
type LexError struct {
	Line int
	Col  int
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexical error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

func (l *Lexer) err(msg string) error {
	return &LexError{Line: l.line, Col: l.col, Msg: msg}
}

// atLineStart reports whether the next token would be the first on its
// statement (used to recognize Rem comments).
func (l *Lexer) atLineStart() bool {
	p := l.previousToken()
	return p == nil || p.Type == NEWLINE || p.Type == COLON
}

// skipBlanks consumes spaces, tabs and carriage returns, plus "_"
// line continuations, without emitting tokens. Newlines stop it.
func (l *Lexer) skipBlanks() {
	for !l.isAtEnd() {
		ch, _ := l.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.advance()
			l.start = l.cur
		case ch == '_' && l.continuationAhead():
			// "_" at end of line joins the next line to this statement
			l.advance() // "_"
			for {
				b, ok := l.peek()
				if !ok {
					break
				}
				l.advance()
				if b == '\n' {
					break
				}
			}
			l.start = l.cur
		default:
			return
		}
	}
}

// continuationAhead reports whether the "_" at l.cur is a line continuation:
// only whitespace (or a comment-free line end) may follow it.
func (l *Lexer) continuationAhead() bool {
	for i := 1; ; i++ {
		b, ok := l.peekN(i)
		if !ok || b == '\n' {
			return true
		}
		if b != ' ' && b != '\t' && b != '\r' {
			return false
		}
	}
}

func (l *Lexer) ignoreUntilNewline() {
	for {
		b, ok := l.peek()
		if !ok || b == '\n' {
			return
		}
		l.advance()
	}
}

// ----- scanners -----

// scanString parses a double-quoted literal; "" embeds one quote.
// A trailing c suffix (char literal) is consumed and ignored.
func (l *Lexer) scanString() (string, error) {
	var out strings.Builder
	for {
		ch, ok := l.advance()
		if !ok {
			return "", l.err("string was not terminated")
		}
		if ch == '"' {
			if b, ok := l.peek(); ok && b == '"' {
				l.advance()
				out.WriteByte('"')
				continue
			}
			break
		}
		out.WriteByte(ch)
	}
	if b, ok := l.peek(); ok && (b == 'c' || b == 'C') {
		if b2, ok2 := l.peekN(1); !ok2 || !isAlphaNum(b2) {
			l.advance()
		}
	}
	return out.String(), nil
}

// scanInterpolated captures the raw body of $"..." for the parser to split.
// Quote doubling applies outside embedded {expr} holes; inside a hole a
// balanced-brace scan tracks string state so "}" in literals is not an end.
func (l *Lexer) scanInterpolated() (string, error) {
	var out strings.Builder
	depth := 0
	inStr := false
	for {
		ch, ok := l.advance()
		if !ok {
			return "", l.err("interpolated string was not terminated")
		}
		if depth == 0 {
			switch ch {
			case '"':
				if b, ok := l.peek(); ok && b == '"' {
					l.advance()
					out.WriteString(`""`)
					continue
				}
				return out.String(), nil
			case '{':
				if b, ok := l.peek(); ok && b == '{' {
					l.advance()
					out.WriteString("{{")
					continue
				}
				depth = 1
			case '}':
				if b, ok := l.peek(); ok && b == '}' {
					l.advance()
					out.WriteString("}}")
					continue
				}
			}
			out.WriteByte(ch)
			continue
		}
		// inside an expression hole
		switch {
		case inStr:
			if ch == '"' {
				inStr = false
			}
		case ch == '"':
			inStr = true
		case ch == '{':
			depth++
		case ch == '}':
			depth--
		}
		out.WriteByte(ch)
	}
}

// scanNumber parses integer/float literals with VB type suffixes.
func (l *Lexer) scanNumber() (TokenType, interface{}, error) {
	for {
		b, ok := l.peek()
		if !ok || !isDigit(b) {
			break
		}
		l.advance()
	}
	isFloat := false
	if b, ok := l.peek(); ok && b == '.' {
		if b2, ok2 := l.peekN(1); ok2 && isDigit(b2) {
			isFloat = true
			l.advance()
			for {
				b, ok := l.peek()
				if !ok || !isDigit(b) {
					break
				}
				l.advance()
			}
		}
	}
	if b, ok := l.peek(); ok && (b == 'e' || b == 'E') {
		save, saveCol := l.cur, l.col
		l.advance()
		if b2, ok := l.peek(); ok && (b2 == '+' || b2 == '-') {
			l.advance()
		}
		if b3, ok := l.peek(); ok && isDigit(b3) {
			isFloat = true
			for {
				b4, ok := l.peek()
				if !ok || !isDigit(b4) {
					break
				}
				l.advance()
			}
		} else {
			l.cur, l.col = save, saveCol
		}
	}
	digits := l.src[l.start:l.cur]

	// type suffix
	tt := TokenType(-1)
	if b, ok := l.peek(); ok {
		switch b {
		case 'L', 'l', '&':
			tt = LONGLIT
			l.advance()
		case 'I', 'i', 'S', 's', '%':
			tt = INTLIT
			l.advance()
		case 'F', 'f', 'R', 'r', 'D', 'd', '!', '#':
			tt = FLOATLIT
			l.advance()
		}
	}

	if isFloat || tt == FLOATLIT {
		f, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return ILLEGAL, nil, l.err("invalid number literal")
		}
		return FLOATLIT, f, nil
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		// too large for Long; fall back to Double like the dialect does
		f, ferr := strconv.ParseFloat(digits, 64)
		if ferr != nil {
			return ILLEGAL, nil, l.err("invalid number literal")
		}
		return FLOATLIT, f, nil
	}
	if tt == -1 {
		if n >= -2147483648 && n <= 2147483647 {
			tt = INTLIT
		} else {
			tt = LONGLIT
		}
	}
	return tt, n, nil
}

// scanRadixNumber handles &H (hex) and &O (octal) prefixed integers.
func (l *Lexer) scanRadixNumber(hex bool) (TokenType, interface{}, error) {
	digitStart := l.cur
	pred := isOctDigit
	base := 8
	if hex {
		pred = isHexDigit
		base = 16
	}
	for {
		b, ok := l.peek()
		if !ok || !pred(b) {
			break
		}
		l.advance()
	}
	digits := l.src[digitStart:l.cur]
	if digits == "" {
		return ILLEGAL, nil, l.err("malformed radix literal")
	}
	long := false
	if b, ok := l.peek(); ok && (b == 'L' || b == 'l' || b == '&') {
		long = true
		l.advance()
	}
	n, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return ILLEGAL, nil, l.err("invalid radix literal")
	}
	if long || int64(n) < -2147483648 || int64(n) > 2147483647 {
		return LONGLIT, int64(n), nil
	}
	return INTLIT, int64(int32(uint32(n))), nil
}

// dateLiteralLayouts are tried in order for #...# literals.
var dateLiteralLayouts = []string{
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"3:04:05 PM",
	"15:04:05",
	"3:04 PM",
	"15:04",
}

// scanDate parses a #...# date literal into an OLE serial.
func (l *Lexer) scanDate() (float64, error) {
	bodyStart := l.cur
	for {
		b, ok := l.peek()
		if !ok || b == '\n' {
			return 0, l.err("date literal was not terminated")
		}
		if b == '#' {
			break
		}
		l.advance()
	}
	body := strings.TrimSpace(l.src[bodyStart:l.cur])
	l.advance() // closing '#'
	for _, layout := range dateLiteralLayouts {
		if t, err := time.Parse(layout, body); err == nil {
			return timeToOADate(t), nil
		}
	}
	return 0, l.err(fmt.Sprintf("invalid date literal: #%s#", body))
}

// ----- main scanner -----

func (l *Lexer) scanToken() (Token, error) {
	for {
		l.skipBlanks()
		l.tokStartLine = l.line
		l.tokStartCol = l.col
		l.start = l.cur

		if l.isAtEnd() {
			return l.addToken(EOF, nil), nil
		}

		ch, _ := l.advance()

		switch ch {
		case '\n':
			// collapse runs of blank lines into one terminator
			if p := l.previousToken(); p != nil && p.Type == NEWLINE {
				l.start = l.cur
				continue
			}
			return l.addToken(NEWLINE, nil), nil
		case '\'':
			l.ignoreUntilNewline()
			l.start = l.cur
			continue
		case '(':
			return l.addToken(LPAREN, nil), nil
		case ')':
			return l.addToken(RPAREN, nil), nil
		case '{':
			return l.addToken(LBRACE, nil), nil
		case '}':
			return l.addToken(RBRACE, nil), nil
		case ',':
			return l.addToken(COMMA, nil), nil
		case ':':
			if b, ok := l.peek(); ok && b == '=' {
				// ":=" named argument; not supported, surfaced as parse error
				l.advance()
				return l.addToken(ILLEGAL, nil), nil
			}
			return l.addToken(COLON, nil), nil
		case '.':
			if b, ok := l.peek(); ok && isDigit(b) {
				l.cur = l.start // re-scan as .5 style float
				tt, lit, err := l.scanFractionOnly()
				if err != nil {
					return Token{}, err
				}
				return l.addToken(tt, lit), nil
			}
			return l.addToken(DOT, nil), nil
		case '+':
			if b, ok := l.peek(); ok && b == '=' {
				l.advance()
				return l.addToken(PLUS_EQ, nil), nil
			}
			return l.addToken(PLUS, nil), nil
		case '-':
			if b, ok := l.peek(); ok && b == '=' {
				l.advance()
				return l.addToken(MINUS_EQ, nil), nil
			}
			return l.addToken(MINUS, nil), nil
		case '*':
			if b, ok := l.peek(); ok && b == '=' {
				l.advance()
				return l.addToken(STAR_EQ, nil), nil
			}
			return l.addToken(STAR, nil), nil
		case '/':
			if b, ok := l.peek(); ok && b == '=' {
				l.advance()
				return l.addToken(SLASH_EQ, nil), nil
			}
			return l.addToken(SLASH, nil), nil
		case '\\':
			if b, ok := l.peek(); ok && b == '=' {
				l.advance()
				return l.addToken(BSLASH_EQ, nil), nil
			}
			return l.addToken(BACKSLASH, nil), nil
		case '^':
			if b, ok := l.peek(); ok && b == '=' {
				l.advance()
				return l.addToken(CARET_EQ, nil), nil
			}
			return l.addToken(CARET, nil), nil
		case '=':
			return l.addToken(ASSIGN, nil), nil
		case '<':
			if b, ok := l.peek(); ok {
				switch b {
				case '=':
					l.advance()
					return l.addToken(LESS_EQ, nil), nil
				case '>':
					l.advance()
					return l.addToken(NOT_EQ, nil), nil
				case '<':
					l.advance()
					return l.addToken(LSHIFT, nil), nil
				}
			}
			return l.addToken(LESS, nil), nil
		case '>':
			if b, ok := l.peek(); ok {
				switch b {
				case '=':
					l.advance()
					return l.addToken(GREATER_EQ, nil), nil
				case '>':
					l.advance()
					return l.addToken(RSHIFT, nil), nil
				}
			}
			return l.addToken(GREATER, nil), nil
		case '&':
			if b, ok := l.peek(); ok {
				switch {
				case b == '=':
					l.advance()
					return l.addToken(AMP_EQ, nil), nil
				case b == 'H' || b == 'h':
					l.advance()
					tt, lit, err := l.scanRadixNumber(true)
					if err != nil {
						return Token{}, err
					}
					return l.addToken(tt, lit), nil
				case b == 'O' || b == 'o':
					l.advance()
					tt, lit, err := l.scanRadixNumber(false)
					if err != nil {
						return Token{}, err
					}
					return l.addToken(tt, lit), nil
				}
			}
			return l.addToken(AMP, nil), nil
		case '#':
			d, err := l.scanDate()
			if err != nil {
				return Token{}, err
			}
			return l.addToken(DATELIT, d), nil
		case '$':
			if b, ok := l.peek(); ok && b == '"' {
				l.advance()
				raw, err := l.scanInterpolated()
				if err != nil {
					return Token{}, err
				}
				return l.addToken(INTERPSTRING, raw), nil
			}
			return Token{}, l.err("unexpected character: '$'")
		case '"':
			s, err := l.scanString()
			if err != nil {
				return Token{}, err
			}
			return l.addToken(STRING, s), nil
		}

		if isDigit(ch) {
			l.cur = l.start
			tt, lit, err := l.scanNumber()
			if err != nil {
				return Token{}, err
			}
			return l.addToken(tt, lit), nil
		}

		if isAlpha(ch) {
			for {
				b, ok := l.peek()
				if !ok || !isAlphaNum(b) {
					break
				}
				l.advance()
			}
			lex := l.src[l.start:l.cur]
			folded := strings.ToLower(lex)
			if folded == "rem" && l.atLineStart() {
				l.ignoreUntilNewline()
				l.start = l.cur
				continue
			}
			// after "." every word is a member name, never a keyword
			if p := l.previousToken(); p != nil && p.Type == DOT {
				return l.addToken(IDENT, nil), nil
			}
			if tt, ok := keywords[folded]; ok {
				return l.addToken(tt, nil), nil
			}
			return l.addToken(IDENT, nil), nil
		}

		return Token{}, l.err(fmt.Sprintf("unexpected character: %q", ch))
	}
}

// scanFractionOnly handles ".5" style floats (cur has been reset to start).
func (l *Lexer) scanFractionOnly() (TokenType, interface{}, error) {
	l.advance() // "."
	for {
		b, ok := l.peek()
		if !ok || !isDigit(b) {
			break
		}
		l.advance()
	}
	f, err := strconv.ParseFloat(l.src[l.start:l.cur], 64)
	if err != nil {
		return ILLEGAL, nil, l.err("invalid number literal")
	}
	return FLOATLIT, f, nil
}

// Scan tokenizes the entire source and returns tokens (EOF included).
func (l *Lexer) Scan() ([]Token, error) {
	for {
		tok, err := l.scanToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == EOF {
			return l.tokens, nil
		}
	}
}
