package basil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func scanTypes(t *testing.T, src string) []TokenType {
	t.Helper()
	toks, err := NewLexer(src).Scan()
	if err != nil {
		t.Fatalf("scan error for %q: %v", src, err)
	}
	out := make([]TokenType, 0, len(toks))
	for _, tok := range toks {
		if tok.Type == EOF {
			break
		}
		out = append(out, tok.Type)
	}
	return out
}

func TestScanOperators(t *testing.T) {
	got := scanTypes(t, `a <> b <= c >= d << 2 >> 1 \ 3 ^ 4 &= e`)
	want := []TokenType{
		IDENT, NOT_EQ, IDENT, LESS_EQ, IDENT, GREATER_EQ, IDENT,
		LSHIFT, INTLIT, RSHIFT, INTLIT, BACKSLASH, INTLIT,
		CARET, INTLIT, AMP_EQ, IDENT,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestKeywordsAreCaseInsensitive(t *testing.T) {
	got := scanTypes(t, "IF a THEN\nEnD iF")
	want := []TokenType{KwIf, IDENT, KwThen, NEWLINE, KwEnd, KwIf}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestStringLiteralDoubledQuote(t *testing.T) {
	toks, err := NewLexer(`"say ""hi"""`).Scan()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Type != STRING || toks[0].Literal.(string) != `say "hi"` {
		t.Fatalf("got %#v", toks[0])
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	// blank-line runs (the REM line vanishes) collapse into one terminator
	got := scanTypes(t, "x = 1 ' trailing comment\nREM whole line\ny = 2")
	want := []TokenType{
		IDENT, ASSIGN, INTLIT, NEWLINE, IDENT, ASSIGN, INTLIT,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestLineContinuation(t *testing.T) {
	got := scanTypes(t, "x = 1 + _\n    2")
	want := []TokenType{IDENT, ASSIGN, INTLIT, PLUS, INTLIT}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestNumericLiterals(t *testing.T) {
	toks, err := NewLexer("42 3.14 1e3 &HFF &O17").Scan()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Type != INTLIT || toks[0].Literal.(int64) != 42 {
		t.Fatalf("int literal: %#v", toks[0])
	}
	if toks[1].Type != FLOATLIT || toks[1].Literal.(float64) != 3.14 {
		t.Fatalf("float literal: %#v", toks[1])
	}
	if toks[2].Type != FLOATLIT || toks[2].Literal.(float64) != 1000 {
		t.Fatalf("exponent literal: %#v", toks[2])
	}
	if toks[3].Literal.(int64) != 255 {
		t.Fatalf("hex literal: %#v", toks[3])
	}
	if toks[4].Literal.(int64) != 15 {
		t.Fatalf("octal literal: %#v", toks[4])
	}
}

func TestDateLiteral(t *testing.T) {
	toks, err := NewLexer("#1/1/2000#").Scan()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Type != DATELIT {
		t.Fatalf("want date literal, got %#v", toks[0])
	}
}

func TestInterpolatedStringToken(t *testing.T) {
	toks, err := NewLexer(`$"a{b}c"`).Scan()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Type != INTERPSTRING {
		t.Fatalf("want interpolated string, got %#v", toks[0])
	}
}

func TestUnterminatedString(t *testing.T) {
	if _, err := NewLexer(`"oops`).Scan(); err == nil {
		t.Fatal("want error for unterminated string")
	}
}

func TestTokenPositions(t *testing.T) {
	toks, err := NewLexer("a\nbb").Scan()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Line != 1 || toks[2].Line != 2 {
		t.Fatalf("line tracking wrong: %#v %#v", toks[0], toks[2])
	}
}
