package basil

import (
	"fmt"
	"strconv"
	"strings"
)

// The parser is a precedence-climbing expression parser over the token
// stream, with recursive descent for statements and declarations. It is a
// pure transformation: source text in, typed syntax tree or ParseError out.

// ParseProgram parses a complete source unit into a statement list.
func ParseProgram(src string) ([]Statement, error) {
	return parseWith(src, false)
}

// ParseInteractive parses REPL input. Errors caused by truncated input carry
// ParseError.Incomplete so the caller can keep reading continuation lines.
func ParseInteractive(src string) ([]Statement, error) {
	return parseWith(src, true)
}

// CheckInteractive parses without evaluating. REPLs use it with IsIncomplete
// to decide whether to keep reading continuation lines.
func CheckInteractive(src string) error {
	_, err := parseWith(src, true)
	return err
}

func parseWith(src string, interactive bool) ([]Statement, error) {
	toks, err := NewLexer(src).Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, interactive: interactive}
	return p.program()
}

// parseExpressionString parses a single expression (interpolation holes,
// eval snippets).
func parseExpressionString(src string) (Expression, error) {
	toks, err := NewLexer(src).Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	p.skipTerminators()
	if !p.atEnd() {
		return nil, p.errAt(p.peek(), "unexpected token after expression")
	}
	return e, nil
}

type parser struct {
	toks        []Token
	i           int
	interactive bool
}

func (p *parser) atEnd() bool { return p.peek().Type == EOF }

func (p *parser) peek() Token {
	if p.i >= len(p.toks) {
		return Token{Type: EOF}
	}
	return p.toks[p.i]
}

func (p *parser) peekN(n int) Token {
	if p.i+n >= len(p.toks) {
		return Token{Type: EOF}
	}
	return p.toks[p.i+n]
}

func (p *parser) advance() Token {
	t := p.peek()
	if p.i < len(p.toks) {
		p.i++
	}
	return t
}

func (p *parser) match(tts ...TokenType) bool {
	for _, tt := range tts {
		if p.peek().Type == tt {
			p.i++
			return true
		}
	}
	return false
}

func (p *parser) need(tt TokenType, msg string) (Token, error) {
	if p.peek().Type == tt {
		return p.advance(), nil
	}
	return Token{}, p.errAt(p.peek(), msg)
}

func (p *parser) errAt(t Token, msg string) error {
	return &ParseError{
		Line:       t.Line,
		Col:        t.Col,
		Msg:        msg,
		Incomplete: p.interactive && t.Type == EOF,
	}
}

// skipTerminators eats statement separators (newlines and separator colons).
func (p *parser) skipTerminators() {
	for {
		switch p.peek().Type {
		case NEWLINE, COLON:
			p.i++
		default:
			return
		}
	}
}

// endOfStatement consumes the terminator after a statement.
func (p *parser) endOfStatement() error {
	switch p.peek().Type {
	case NEWLINE, COLON:
		p.i++
		return nil
	case EOF:
		return nil
	}
	return p.errAt(p.peek(), fmt.Sprintf("unexpected token %q after statement", p.peek().Lexeme))
}

func (p *parser) needIdent(what string) (Token, error) {
	if p.peek().Type == IDENT {
		return p.advance(), nil
	}
	return Token{}, p.errAt(p.peek(), "expected "+what)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// lbp returns the left binding power of an infix operator, lowest to
// highest: Xor < Or/OrElse < And/AndAlso < relational < & < additive <
// multiplicative/shift < ^.
func lbp(tt TokenType) (int, bool) {
	switch tt {
	case KwXor:
		return 1, true
	case KwOr, KwOrElse:
		return 2, true
	case KwAnd, KwAndAlso:
		return 3, true
	case ASSIGN, NOT_EQ, LESS, LESS_EQ, GREATER, GREATER_EQ, KwIs, KwIsNot, KwLike:
		return 5, true
	case AMP:
		return 6, true
	case PLUS, MINUS:
		return 7, true
	case STAR, SLASH, BACKSLASH, KwMod, LSHIFT, RSHIFT:
		return 8, true
	case CARET:
		return 10, true
	}
	return 0, false
}

const (
	bpNot = 4 // prefix Not binds tighter than And, looser than relational
	bpNeg = 9 // unary minus sits between multiplicative and ^
)

func isRightAssoc(tt TokenType) bool { return tt == CARET }

func (p *parser) expr(minBP int) (Expression, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	return p.exprContinue(left, minBP)
}

// exprContinue folds infix operators onto an already-parsed left operand.
func (p *parser) exprContinue(left Expression, minBP int) (Expression, error) {
	for {
		op := p.peek()
		bp, ok := lbp(op.Type)
		if !ok || bp < minBP {
			return left, nil
		}
		p.advance()
		nextBP := bp + 1
		if isRightAssoc(op.Type) {
			nextBP = bp
		}
		right, err := p.expr(nextBP)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{node: node{op}, Op: op.Type, Left: left, Right: right}
	}
}

func (p *parser) unary() (Expression, error) {
	t := p.peek()
	switch t.Type {
	case KwNot:
		p.advance()
		operand, err := p.expr(bpNot)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{node: node{t}, Op: KwNot, Operand: operand}, nil
	case MINUS, PLUS:
		p.advance()
		operand, err := p.expr(bpNeg)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{node: node{t}, Op: t.Type, Operand: operand}, nil
	case KwAddressOf:
		p.advance()
		target, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &AddressOfExpr{node: node{t}, Target: target}, nil
	case KwAwait:
		p.advance()
		operand, err := p.expr(bpNot)
		if err != nil {
			return nil, err
		}
		return &AwaitExpr{node: node{t}, Operand: operand}, nil
	case KwTypeOf:
		p.advance()
		operand, err := p.expr(6) // binds tighter than Is / IsNot
		if err != nil {
			return nil, err
		}
		negated := false
		if p.match(KwIsNot) {
			negated = true
		} else if _, err := p.need(KwIs, "expected Is after TypeOf operand"); err != nil {
			return nil, err
		}
		typeName, err := p.typeName()
		if err != nil {
			return nil, err
		}
		return &TypeOfExpr{node: node{t}, Operand: operand, TypeName: typeName, Negated: negated}, nil
	}
	prim, err := p.primary()
	if err != nil {
		return nil, err
	}
	return p.postfix(prim)
}

func (p *parser) primary() (Expression, error) {
	t := p.advance()
	switch t.Type {
	case INTLIT:
		return &LiteralExpr{node: node{t}, Val: IntVal(t.Literal.(int64))}, nil
	case LONGLIT:
		return &LiteralExpr{node: node{t}, Val: LngVal(t.Literal.(int64))}, nil
	case FLOATLIT:
		return &LiteralExpr{node: node{t}, Val: DblVal(t.Literal.(float64))}, nil
	case STRING:
		return &LiteralExpr{node: node{t}, Val: StrVal(t.Literal.(string))}, nil
	case DATELIT:
		return &LiteralExpr{node: node{t}, Val: DateVal(t.Literal.(float64))}, nil
	case INTERPSTRING:
		return p.interpolated(t)
	case KwTrue:
		return &LiteralExpr{node: node{t}, Val: BoolVal(true)}, nil
	case KwFalse:
		return &LiteralExpr{node: node{t}, Val: BoolVal(false)}, nil
	case KwNothing:
		return &LiteralExpr{node: node{t}, Val: Nothing}, nil
	case IDENT:
		return &IdentExpr{node: node{t}, Name: t.Lexeme}, nil
	case KwMe:
		return &MeExpr{node: node{t}}, nil
	case KwMyBase:
		return &MyBaseExpr{node: node{t}}, nil
	case DOT:
		// leading-dot member access inside a With block
		name, err := p.needIdent("member name after '.'")
		if err != nil {
			return nil, err
		}
		return &MemberExpr{node: node{t}, Target: nil, Name: name.Lexeme}, nil
	case LPAREN:
		p.skipNewlinesInParens()
		e, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		p.skipNewlinesInParens()
		if _, err := p.need(RPAREN, "expected ')'"); err != nil {
			return nil, err
		}
		return e, nil
	case LBRACE:
		return p.arrayLiteral(t)
	case KwNew:
		return p.newExpr(t)
	case KwFunction, KwSub:
		return p.lambda(t, t.Type == KwSub)
	case KwIf:
		// If(cond, whenTrue, whenFalse) in expression position
		if p.peek().Type == LPAREN {
			return p.iifExpr(t)
		}
	}
	return nil, p.errAt(t, fmt.Sprintf("unexpected %s in expression", tokenDesc(t)))
}

func tokenDesc(t Token) string {
	switch t.Type {
	case EOF:
		return "end of input"
	case NEWLINE:
		return "end of line"
	}
	return fmt.Sprintf("%q", t.Lexeme)
}

// skipNewlinesInParens lets argument lists and grouped expressions span lines
// without explicit continuations.
func (p *parser) skipNewlinesInParens() {
	for p.peek().Type == NEWLINE {
		p.i++
	}
}

func (p *parser) postfix(left Expression) (Expression, error) {
	for {
		switch p.peek().Type {
		case DOT:
			dot := p.advance()
			name, err := p.needIdent("member name after '.'")
			if err != nil {
				return nil, err
			}
			left = &MemberExpr{node: node{dot}, Target: left, Name: name.Lexeme}
		case LPAREN:
			open := p.advance()
			args, err := p.argList()
			if err != nil {
				return nil, err
			}
			left = &CallOrIndexExpr{node: node{open}, Target: left, Args: args}
		default:
			return left, nil
		}
	}
}

func (p *parser) argList() ([]Expression, error) {
	var args []Expression
	p.skipNewlinesInParens()
	if p.match(RPAREN) {
		return args, nil
	}
	for {
		e, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		p.skipNewlinesInParens()
		if p.match(COMMA) {
			p.skipNewlinesInParens()
			continue
		}
		if _, err := p.need(RPAREN, "expected ')' or ',' in argument list"); err != nil {
			return nil, err
		}
		return args, nil
	}
}

func (p *parser) arrayLiteral(open Token) (Expression, error) {
	var elems []Expression
	p.skipNewlinesInParens()
	if p.match(RBRACE) {
		return &ArrayLit{node: node{open}}, nil
	}
	for {
		e, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		p.skipNewlinesInParens()
		if p.match(COMMA) {
			p.skipNewlinesInParens()
			continue
		}
		if _, err := p.need(RBRACE, "expected '}' or ',' in array initializer"); err != nil {
			return nil, err
		}
		return &ArrayLit{node: node{open}, Elems: elems}, nil
	}
}

func (p *parser) newExpr(t Token) (Expression, error) {
	typeName, err := p.typeName()
	if err != nil {
		return nil, err
	}
	var args []Expression
	if p.peek().Type == LPAREN {
		p.advance()
		args, err = p.argList()
		if err != nil {
			return nil, err
		}
	}
	return &NewExpr{node: node{t}, TypeName: typeName, Args: args}, nil
}

// typeName reads a (possibly dotted) type reference, swallowing generic
// arguments like (Of String) and a trailing () array marker.
func (p *parser) typeName() (string, error) {
	name, err := p.needIdent("type name")
	if err != nil {
		return "", err
	}
	full := name.Lexeme
	for p.peek().Type == DOT {
		p.advance()
		part, err := p.needIdent("type name after '.'")
		if err != nil {
			return "", err
		}
		full += "." + part.Lexeme
	}
	if p.peek().Type == LPAREN && p.peekN(1).Type == KwOf {
		p.advance() // (
		p.advance() // Of
		depth := 1
		for depth > 0 {
			switch p.advance().Type {
			case LPAREN:
				depth++
			case RPAREN:
				depth--
			case EOF:
				return "", p.errAt(p.peek(), "unterminated generic type arguments")
			}
		}
	}
	if p.peek().Type == LPAREN && p.peekN(1).Type == RPAREN {
		p.advance()
		p.advance()
		full += "()"
	}
	return full, nil
}

// iifExpr keeps If(c, a, b) as a dedicated call so the evaluator can skip
// the untaken branch.
func (p *parser) iifExpr(t Token) (Expression, error) {
	p.advance() // (
	cond, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.need(COMMA, "expected ',' in If(...)"); err != nil {
		return nil, err
	}
	whenTrue, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.need(COMMA, "expected ',' in If(...)"); err != nil {
		return nil, err
	}
	whenFalse, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.need(RPAREN, "expected ')'"); err != nil {
		return nil, err
	}
	return &IifExpr{node: node{t}, Cond: cond, WhenTrue: whenTrue, WhenFalse: whenFalse}, nil
}

func (p *parser) lambda(t Token, isSub bool) (Expression, error) {
	if _, err := p.need(LPAREN, "expected '(' after lambda keyword"); err != nil {
		return nil, err
	}
	params, err := p.paramList()
	if err != nil {
		return nil, err
	}
	if p.match(KwAs) {
		if _, err := p.typeName(); err != nil {
			return nil, err
		}
	}
	if p.peek().Type == NEWLINE {
		p.advance()
		closer := KwFunction
		if isSub {
			closer = KwSub
		}
		body, err := p.block(func() bool {
			return p.peek().Type == KwEnd && p.peekN(1).Type == closer
		}, "expected End to close lambda")
		if err != nil {
			return nil, err
		}
		p.advance() // End
		p.advance() // Function / Sub
		return &LambdaExpr{node: node{t}, IsSub: isSub, Params: params, Body: body}, nil
	}
	if isSub {
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		return &LambdaExpr{node: node{t}, IsSub: true, Params: params, Body: []Statement{st}}, nil
	}
	e, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	return &LambdaExpr{node: node{t}, Params: params, Expr: e}, nil
}

func (p *parser) interpolated(t Token) (Expression, error) {
	raw := t.Literal.(string)
	var parts []InterpPart
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, InterpPart{Text: text.String()})
			text.Reset()
		}
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '"' && i+1 < len(raw) && raw[i+1] == '"':
			text.WriteByte('"')
			i++
		case c == '{' && i+1 < len(raw) && raw[i+1] == '{':
			text.WriteByte('{')
			i++
		case c == '}' && i+1 < len(raw) && raw[i+1] == '}':
			text.WriteByte('}')
			i++
		case c == '{':
			flush()
			end, ok := findHoleEnd(raw, i+1)
			if !ok {
				return nil, p.errAt(t, "unterminated interpolation expression")
			}
			part, err := p.parseHole(t, raw[i+1:end])
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
			i = end
		default:
			text.WriteByte(c)
		}
	}
	flush()
	return &InterpExpr{node: node{t}, Parts: parts}, nil
}

// findHoleEnd locates the "}" closing the hole opened just before start.
func findHoleEnd(raw string, start int) (int, bool) {
	depth := 1
	inStr := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		switch {
		case inStr:
			if c == '"' {
				inStr = false
			}
		case c == '"':
			inStr = true
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// parseHole splits "expr[,align][:format]" and parses the expression.
func (p *parser) parseHole(t Token, body string) (InterpPart, error) {
	exprText := body
	align := 0
	format := ""
	if idx := topLevelIndex(exprText, ':'); idx >= 0 {
		format = exprText[idx+1:]
		exprText = exprText[:idx]
	}
	if idx := topLevelIndex(exprText, ','); idx >= 0 {
		a, err := strconv.Atoi(strings.TrimSpace(exprText[idx+1:]))
		if err != nil {
			return InterpPart{}, p.errAt(t, "invalid interpolation alignment")
		}
		align = a
		exprText = exprText[:idx]
	}
	e, err := parseExpressionString(exprText)
	if err != nil {
		return InterpPart{}, p.errAt(t, "invalid interpolation expression: "+strings.TrimSpace(exprText))
	}
	return InterpPart{Expr: e, Align: align, Format: format}, nil
}

// topLevelIndex finds sep outside quotes, parens and nested braces.
func topLevelIndex(s string, sep byte) int {
	depth := 0
	inStr := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inStr:
			if c == '"' {
				inStr = false
			}
		case c == '"':
			inStr = true
		case c == '(' || c == '{':
			depth++
		case c == ')' || c == '}':
			depth--
		case c == sep && depth == 0:
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *parser) program() ([]Statement, error) {
	var out []Statement
	p.skipTerminators()
	for !p.atEnd() {
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		if st != nil {
			out = append(out, st)
		}
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
		p.skipTerminators()
	}
	return out, nil
}

// block parses statements until stop() reports the closer is next. The
// closer tokens themselves are left for the caller.
func (p *parser) block(stop func() bool, incompleteMsg string) ([]Statement, error) {
	var out []Statement
	p.skipTerminators()
	for {
		if stop() {
			return out, nil
		}
		if p.atEnd() {
			return nil, p.errAt(p.peek(), incompleteMsg)
		}
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		if st != nil {
			out = append(out, st)
		}
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
		p.skipTerminators()
	}
}

// blockUntilEnd parses a body closed by "End <closer>", consuming the closer.
func (p *parser) blockUntilEnd(closer TokenType, what string) ([]Statement, error) {
	body, err := p.block(func() bool {
		return p.peek().Type == KwEnd && p.peekN(1).Type == closer
	}, "expected End "+what)
	if err != nil {
		return nil, err
	}
	p.advance()
	p.advance()
	return body, nil
}

var modifierTokens = map[TokenType]bool{
	KwPublic: true, KwPrivate: true, KwProtected: true, KwFriend: true,
	KwShared: true, KwReadOnly: true, KwPartial: true,
	KwOverrides: true, KwOverridable: true, KwAsync: true,
}

type modifiers struct {
	shared  bool
	public  bool
	partial bool
	async   bool
	static  bool
	any     bool
}

func (p *parser) collectModifiers() modifiers {
	var m modifiers
	for modifierTokens[p.peek().Type] {
		t := p.advance()
		m.any = true
		switch t.Type {
		case KwShared:
			m.shared = true
		case KwPublic, KwFriend:
			m.public = true
		case KwPartial:
			m.partial = true
		case KwAsync:
			m.async = true
		}
	}
	return m
}

func (p *parser) statement() (Statement, error) {
	mods := p.collectModifiers()
	t := p.peek()

	if mods.any {
		switch t.Type {
		case KwDim, KwConst, KwStatic, KwSub, KwFunction, KwClass, KwModule,
			KwStructure, KwInterface, KwEnum, KwDelegate, KwEvent, KwProperty:
			// declaration keyword follows, handled below
		case IDENT:
			// bare "Public x As Integer" at module level
			return p.dimStmt(t, false, mods)
		default:
			return nil, p.errAt(t, "expected declaration after modifier")
		}
	}

	switch t.Type {
	case KwDim:
		p.advance()
		return p.dimStmt(t, false, mods)
	case KwConst:
		p.advance()
		return p.dimStmt(t, true, mods)
	case KwStatic:
		p.advance()
		mods.static = true
		return p.dimStmt(t, false, mods)
	case KwLet:
		p.advance()
		return p.simpleStatement()
	case KwReDim:
		return p.redimStmt()
	case KwErase:
		return p.eraseStmt()
	case KwIf:
		return p.ifStmt()
	case KwSelect:
		return p.selectStmt()
	case KwFor:
		return p.forStmt()
	case KwWhile:
		return p.whileStmt()
	case KwDo:
		return p.doStmt()
	case KwExit:
		return p.exitStmt()
	case KwContinue:
		return p.continueStmt()
	case KwReturn:
		p.advance()
		var val Expression
		if !p.statementDone() {
			e, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			val = e
		}
		return &ReturnStmt{node: node{t}, Value: val}, nil
	case KwGoTo:
		p.advance()
		label, err := p.labelName()
		if err != nil {
			return nil, err
		}
		return &GotoStmt{node: node{t}, Label: label}, nil
	case KwOn:
		return p.onErrorStmt()
	case KwResume:
		return p.resumeStmt()
	case KwTry:
		return p.tryStmt()
	case KwThrow:
		p.advance()
		var val Expression
		if !p.statementDone() {
			e, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			val = e
		}
		return &ThrowStmt{node: node{t}, Value: val}, nil
	case KwWith:
		return p.withStmt()
	case KwUsing:
		return p.usingStmt()
	case KwCall:
		p.advance()
		e, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{node: node{t}, X: e}, nil
	case KwAddHandler, KwRemoveHandler:
		return p.handlerStmt()
	case KwRaiseEvent:
		return p.raiseEventStmt()
	case KwStop:
		p.advance()
		return &StopStmt{node: node{t}}, nil
	case KwEnd:
		switch p.peekN(1).Type {
		case NEWLINE, COLON, EOF:
			p.advance()
			return &StopStmt{node: node{t}}, nil
		}
		return nil, p.errAt(t, fmt.Sprintf("End %s without a matching block", p.peekN(1).Lexeme))
	case KwOption:
		p.advance()
		var words []string
		for !p.statementDone() {
			words = append(words, p.advance().Lexeme)
		}
		return &OptionStmt{node: node{t}, Text: strings.Join(words, " ")}, nil
	case KwImports:
		p.advance()
		var path strings.Builder
		for !p.statementDone() {
			path.WriteString(p.advance().Lexeme)
		}
		return &ImportsStmt{node: node{t}, Path: path.String()}, nil
	case KwSub, KwFunction:
		// declaration when a name follows; lambda expression otherwise
		if p.peekN(1).Type == IDENT {
			return p.procDecl(mods)
		}
		return p.simpleStatement()
	case KwClass, KwStructure:
		return p.classDecl(mods, t.Type == KwStructure)
	case KwModule:
		return p.moduleDecl()
	case KwInterface:
		return p.interfaceDecl()
	case KwEnum:
		return p.enumDecl()
	case KwDelegate:
		return p.delegateDecl()
	case KwEvent:
		return p.eventDecl()
	case KwProperty:
		return p.propertyDecl(mods)
	case IDENT:
		if p.peekN(1).Type == COLON {
			p.advance()
			p.advance()
			return &LabelStmt{node: node{t}, Name: foldName(t.Lexeme)}, nil
		}
		return p.simpleStatement()
	case INTLIT:
		// numeric label, e.g. "10:"
		if p.peekN(1).Type == COLON {
			p.advance()
			p.advance()
			return &LabelStmt{node: node{t}, Name: t.Lexeme}, nil
		}
		return p.simpleStatement()
	}
	return p.simpleStatement()
}

func (p *parser) statementDone() bool {
	switch p.peek().Type {
	case NEWLINE, COLON, EOF:
		return true
	}
	return false
}

func (p *parser) labelName() (string, error) {
	t := p.peek()
	switch t.Type {
	case IDENT:
		p.advance()
		return foldName(t.Lexeme), nil
	case INTLIT:
		p.advance()
		return t.Lexeme, nil
	}
	return "", p.errAt(t, "expected label")
}

// simpleStatement parses assignments and expression statements. The target
// is parsed above '=' so a top-level '=' reads as assignment, not equality.
func (p *parser) simpleStatement() (Statement, error) {
	t := p.peek()
	target, err := p.unary()
	if err != nil {
		return nil, err
	}
	switch p.peek().Type {
	case ASSIGN, PLUS_EQ, MINUS_EQ, STAR_EQ, SLASH_EQ, BSLASH_EQ, AMP_EQ, CARET_EQ:
		if !isAssignable(target) {
			return nil, p.errAt(t, "left side of assignment is not a variable, element or member")
		}
		op := p.advance()
		val, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return &AssignStmt{node: node{op}, Op: op.Type, Target: target, Value: val}, nil
	}
	// paren-less call arguments: "Err.Raise 5", "list.Add 1, 2"
	if startsArgument(p.peek().Type) {
		switch target.(type) {
		case *IdentExpr, *MemberExpr:
			var args []Expression
			for {
				a, err := p.expr(0)
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if !p.match(COMMA) {
					break
				}
			}
			call := &CallOrIndexExpr{node: node{t}, Target: target, Args: args}
			return &ExprStmt{node: node{t}, X: call}, nil
		}
	}
	// anything else continues as a plain expression statement
	full, err := p.exprContinue(target, 0)
	if err != nil {
		return nil, err
	}
	return &ExprStmt{node: node{t}, X: full}, nil
}

// startsArgument reports whether a token can only begin a new expression,
// never continue the current one, which is what makes the paren-less call
// statement unambiguous.
func startsArgument(tt TokenType) bool {
	switch tt {
	case IDENT, STRING, INTERPSTRING, INTLIT, LONGLIT, FLOATLIT, DATELIT,
		KwTrue, KwFalse, KwNothing, KwMe, KwNew, KwNot, KwAddressOf, LBRACE:
		return true
	}
	return false
}

func isAssignable(e Expression) bool {
	switch e.(type) {
	case *IdentExpr, *MemberExpr, *CallOrIndexExpr:
		return true
	}
	return false
}

func (p *parser) dimStmt(t Token, isConst bool, mods modifiers) (Statement, error) {
	st := &DimStmt{
		node:   node{t},
		Const:  isConst,
		Static: mods.static,
		Shared: mods.shared,
		Public: mods.public,
	}
	for {
		name, err := p.needIdent("variable name")
		if err != nil {
			return nil, err
		}
		d := &VarDecl{Name: name.Lexeme}
		if p.peek().Type == LPAREN {
			p.advance()
			if p.match(RPAREN) {
				// "Dim a()" declares an empty dynamic array
				d.Bounds = []Expression{}
			} else {
				for {
					b, err := p.expr(0)
					if err != nil {
						return nil, err
					}
					d.Bounds = append(d.Bounds, b)
					if p.match(COMMA) {
						continue
					}
					if _, err := p.need(RPAREN, "expected ')' in array bounds"); err != nil {
						return nil, err
					}
					break
				}
			}
		}
		if p.match(KwAs) {
			if p.peek().Type == KwNew {
				// Dim x As New T(args) initializes inline
				newTok := p.advance()
				ne, err := p.newExpr(newTok)
				if err != nil {
					return nil, err
				}
				d.Init = ne
				d.TypeName = ne.(*NewExpr).TypeName
			} else {
				tn, err := p.typeName()
				if err != nil {
					return nil, err
				}
				d.TypeName = tn
			}
		}
		if p.match(ASSIGN) {
			e, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			d.Init = e
		}
		st.Decls = append(st.Decls, d)
		if p.match(COMMA) {
			continue
		}
		return st, nil
	}
}

func (p *parser) redimStmt() (Statement, error) {
	t := p.advance()
	preserve := p.match(KwPreserve)
	target, err := p.unary()
	if err != nil {
		return nil, err
	}
	if _, ok := target.(*CallOrIndexExpr); !ok {
		return nil, p.errAt(t, "ReDim requires array bounds, e.g. ReDim a(10)")
	}
	return &ReDimStmt{node: node{t}, Preserve: preserve, Target: target}, nil
}

func (p *parser) eraseStmt() (Statement, error) {
	t := p.advance()
	st := &EraseStmt{node: node{t}}
	for {
		e, err := p.unary()
		if err != nil {
			return nil, err
		}
		st.Targets = append(st.Targets, e)
		if p.match(COMMA) {
			continue
		}
		return st, nil
	}
}

func (p *parser) ifStmt() (Statement, error) {
	t := p.advance()
	cond, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.need(KwThen, "expected Then after If condition"); err != nil {
		return nil, err
	}
	if p.peek().Type != NEWLINE {
		return p.singleLineIf(t, cond)
	}
	st := &IfStmt{node: node{t}, Cond: cond}
	stop := func() bool {
		switch p.peek().Type {
		case KwElseIf, KwElse:
			return true
		case KwEnd:
			return p.peekN(1).Type == KwIf
		}
		return false
	}
	body, err := p.block(stop, "expected End If")
	if err != nil {
		return nil, err
	}
	st.Then = body
	for p.peek().Type == KwElseIf {
		p.advance()
		c, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.need(KwThen, "expected Then after ElseIf condition"); err != nil {
			return nil, err
		}
		b, err := p.block(stop, "expected End If")
		if err != nil {
			return nil, err
		}
		st.ElseIfs = append(st.ElseIfs, &ElseIfClause{Cond: c, Body: b})
	}
	if p.peek().Type == KwElse {
		p.advance()
		b, err := p.block(func() bool {
			return p.peek().Type == KwEnd && p.peekN(1).Type == KwIf
		}, "expected End If")
		if err != nil {
			return nil, err
		}
		st.Else = b
	}
	p.advance() // End
	p.advance() // If
	return st, nil
}

// singleLineIf parses "If c Then s1 [: s2] [Else s3 [: s4]]".
func (p *parser) singleLineIf(t Token, cond Expression) (Statement, error) {
	st := &IfStmt{node: node{t}, Cond: cond}
	for {
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		st.Then = append(st.Then, s)
		if p.peek().Type == COLON && p.peekN(1).Type != KwElse {
			p.advance()
			continue
		}
		break
	}
	p.match(COLON)
	if p.match(KwElse) {
		for {
			s, err := p.statement()
			if err != nil {
				return nil, err
			}
			st.Else = append(st.Else, s)
			if p.peek().Type == COLON && !p.statementTerminatorNext() {
				p.advance()
				continue
			}
			break
		}
	}
	return st, nil
}

func (p *parser) statementTerminatorNext() bool {
	switch p.peekN(1).Type {
	case NEWLINE, EOF:
		return true
	}
	return false
}

func (p *parser) selectStmt() (Statement, error) {
	t := p.advance()
	p.match(KwCase) // "Select Case" or plain "Select"
	subject, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	st := &SelectStmt{node: node{t}, Subject: subject}
	p.skipTerminators()
	stop := func() bool {
		switch p.peek().Type {
		case KwCase:
			return true
		case KwEnd:
			return p.peekN(1).Type == KwSelect
		}
		return false
	}
	for p.peek().Type == KwCase {
		p.advance()
		blk := &CaseBlock{}
		if !p.match(KwElse) {
			for {
				cl, err := p.caseClause()
				if err != nil {
					return nil, err
				}
				blk.Clauses = append(blk.Clauses, cl)
				if p.match(COMMA) {
					continue
				}
				break
			}
		}
		body, err := p.block(stop, "expected End Select")
		if err != nil {
			return nil, err
		}
		blk.Body = body
		st.Cases = append(st.Cases, blk)
	}
	if p.peek().Type != KwEnd || p.peekN(1).Type != KwSelect {
		return nil, p.errAt(p.peek(), "expected End Select")
	}
	p.advance()
	p.advance()
	return st, nil
}

func (p *parser) caseClause() (*CaseClause, error) {
	if p.match(KwIs) {
		op := p.peek()
		switch op.Type {
		case ASSIGN, NOT_EQ, LESS, LESS_EQ, GREATER, GREATER_EQ:
			p.advance()
		default:
			return nil, p.errAt(op, "expected comparison operator after Case Is")
		}
		e, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return &CaseClause{Kind: CaseIs, Op: op.Type, X: e}, nil
	}
	e, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if p.match(KwTo) {
		hi, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return &CaseClause{Kind: CaseRange, X: e, Hi: hi}, nil
	}
	return &CaseClause{Kind: CaseValue, X: e}, nil
}

func (p *parser) forStmt() (Statement, error) {
	t := p.advance()
	if p.match(KwEach) {
		name, err := p.needIdent("loop variable after For Each")
		if err != nil {
			return nil, err
		}
		if p.match(KwAs) {
			if _, err := p.typeName(); err != nil {
				return nil, err
			}
		}
		if _, err := p.need(KwIn, "expected In"); err != nil {
			return nil, err
		}
		iter, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		body, err := p.forBody()
		if err != nil {
			return nil, err
		}
		return &ForEachStmt{node: node{t}, Var: name.Lexeme, Iter: iter, Body: body}, nil
	}
	name, err := p.needIdent("loop variable after For")
	if err != nil {
		return nil, err
	}
	if p.match(KwAs) {
		if _, err := p.typeName(); err != nil {
			return nil, err
		}
	}
	if _, err := p.need(ASSIGN, "expected '=' in For statement"); err != nil {
		return nil, err
	}
	from, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.need(KwTo, "expected To"); err != nil {
		return nil, err
	}
	to, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	var step Expression
	if p.match(KwStep) {
		step, err = p.expr(0)
		if err != nil {
			return nil, err
		}
	}
	body, err := p.forBody()
	if err != nil {
		return nil, err
	}
	return &ForStmt{node: node{t}, Var: name.Lexeme, From: from, To: to, Step: step, Body: body}, nil
}

func (p *parser) forBody() ([]Statement, error) {
	body, err := p.block(func() bool { return p.peek().Type == KwNext }, "expected Next")
	if err != nil {
		return nil, err
	}
	p.advance() // Next
	if p.peek().Type == IDENT {
		p.advance() // optional counter name after Next
	}
	return body, nil
}

func (p *parser) whileStmt() (Statement, error) {
	t := p.advance()
	cond, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	body, err := p.block(func() bool {
		if p.peek().Type == KwWend {
			return true
		}
		return p.peek().Type == KwEnd && p.peekN(1).Type == KwWhile
	}, "expected End While")
	if err != nil {
		return nil, err
	}
	if !p.match(KwWend) {
		p.advance()
		p.advance()
	}
	return &WhileStmt{node: node{t}, Cond: cond, Body: body}, nil
}

func (p *parser) doStmt() (Statement, error) {
	t := p.advance()
	st := &DoStmt{node: node{t}}
	switch p.peek().Type {
	case KwWhile:
		p.advance()
		c, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		st.PreTest, st.Cond = true, c
	case KwUntil:
		p.advance()
		c, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		st.PreTest, st.Until, st.Cond = true, true, c
	}
	body, err := p.block(func() bool { return p.peek().Type == KwLoop }, "expected Loop")
	if err != nil {
		return nil, err
	}
	st.Body = body
	p.advance() // Loop
	if !st.PreTest {
		switch p.peek().Type {
		case KwWhile:
			p.advance()
			c, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			st.Cond = c
		case KwUntil:
			p.advance()
			c, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			st.Until, st.Cond = true, c
		}
	}
	return st, nil
}

func (p *parser) exitStmt() (Statement, error) {
	t := p.advance()
	var kind ExitKind
	switch p.peek().Type {
	case KwFor:
		kind = ExitFor
	case KwDo:
		kind = ExitDo
	case KwWhile:
		kind = ExitWhile
	case KwSelect:
		kind = ExitSelect
	case KwSub:
		kind = ExitSub
	case KwFunction:
		kind = ExitFunction
	case KwProperty:
		kind = ExitProperty
	case KwTry:
		kind = ExitTry
	default:
		return nil, p.errAt(p.peek(), "expected For, Do, While, Select, Sub, Function, Property or Try after Exit")
	}
	p.advance()
	return &ExitStmt{node: node{t}, Kind: kind}, nil
}

func (p *parser) continueStmt() (Statement, error) {
	t := p.advance()
	var kind ExitKind
	switch p.peek().Type {
	case KwFor:
		kind = ExitFor
	case KwDo:
		kind = ExitDo
	case KwWhile:
		kind = ExitWhile
	default:
		return nil, p.errAt(p.peek(), "expected For, Do or While after Continue")
	}
	p.advance()
	return &ContinueStmt{node: node{t}, Kind: kind}, nil
}

func (p *parser) onErrorStmt() (Statement, error) {
	t := p.advance() // On
	if _, err := p.need(KwError, "expected Error after On"); err != nil {
		return nil, err
	}
	switch p.peek().Type {
	case KwResume:
		p.advance()
		if _, err := p.need(KwNext, "expected Next after On Error Resume"); err != nil {
			return nil, err
		}
		return &OnErrorStmt{node: node{t}, Mode: OnErrorResumeNext}, nil
	case KwGoTo:
		p.advance()
		nt := p.peek()
		if nt.Type == INTLIT && nt.Literal.(int64) == 0 {
			p.advance()
			return &OnErrorStmt{node: node{t}, Mode: OnErrorGotoZero}, nil
		}
		label, err := p.labelName()
		if err != nil {
			return nil, err
		}
		return &OnErrorStmt{node: node{t}, Mode: OnErrorGotoLabel, Label: label}, nil
	}
	return nil, p.errAt(p.peek(), "expected Resume Next or GoTo after On Error")
}

func (p *parser) resumeStmt() (Statement, error) {
	t := p.advance()
	switch p.peek().Type {
	case KwNext:
		p.advance()
		return &ResumeStmt{node: node{t}, Mode: ResumeNext}, nil
	case IDENT, INTLIT:
		label, err := p.labelName()
		if err != nil {
			return nil, err
		}
		return &ResumeStmt{node: node{t}, Mode: ResumeLabel, Label: label}, nil
	}
	return &ResumeStmt{node: node{t}, Mode: ResumeRetry}, nil
}

func (p *parser) tryStmt() (Statement, error) {
	t := p.advance()
	st := &TryStmt{node: node{t}}
	stop := func() bool {
		switch p.peek().Type {
		case KwCatch, KwFinally:
			return true
		case KwEnd:
			return p.peekN(1).Type == KwTry
		}
		return false
	}
	body, err := p.block(stop, "expected End Try")
	if err != nil {
		return nil, err
	}
	st.Body = body
	for p.peek().Type == KwCatch {
		p.advance()
		cc := &CatchClause{}
		if p.peek().Type == IDENT {
			cc.Var = p.advance().Lexeme
			if p.match(KwAs) {
				tn, err := p.typeName()
				if err != nil {
					return nil, err
				}
				cc.TypeName = tn
			}
		}
		if p.match(KwWhen) {
			g, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			cc.When = g
		}
		b, err := p.block(stop, "expected End Try")
		if err != nil {
			return nil, err
		}
		cc.Body = b
		st.Catches = append(st.Catches, cc)
	}
	if p.peek().Type == KwFinally {
		p.advance()
		b, err := p.block(func() bool {
			return p.peek().Type == KwEnd && p.peekN(1).Type == KwTry
		}, "expected End Try")
		if err != nil {
			return nil, err
		}
		st.Finally = b
	}
	if p.peek().Type != KwEnd || p.peekN(1).Type != KwTry {
		return nil, p.errAt(p.peek(), "expected End Try")
	}
	p.advance()
	p.advance()
	return st, nil
}

func (p *parser) withStmt() (Statement, error) {
	t := p.advance()
	subject, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	body, err := p.blockUntilEnd(KwWith, "With")
	if err != nil {
		return nil, err
	}
	return &WithStmt{node: node{t}, Subject: subject, Body: body}, nil
}

func (p *parser) usingStmt() (Statement, error) {
	t := p.advance()
	name, err := p.needIdent("variable name after Using")
	if err != nil {
		return nil, err
	}
	if p.match(KwAs) {
		if p.peek().Type == KwNew {
			newTok := p.advance()
			init, err := p.newExpr(newTok)
			if err != nil {
				return nil, err
			}
			body, err := p.blockUntilEnd(KwUsing, "Using")
			if err != nil {
				return nil, err
			}
			return &UsingStmt{node: node{t}, Var: name.Lexeme, Init: init, Body: body}, nil
		}
		if _, err := p.typeName(); err != nil {
			return nil, err
		}
	}
	if _, err := p.need(ASSIGN, "expected '=' in Using statement"); err != nil {
		return nil, err
	}
	init, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	body, err := p.blockUntilEnd(KwUsing, "Using")
	if err != nil {
		return nil, err
	}
	return &UsingStmt{node: node{t}, Var: name.Lexeme, Init: init, Body: body}, nil
}

func (p *parser) handlerStmt() (Statement, error) {
	t := p.advance()
	remove := t.Type == KwRemoveHandler
	ev, err := p.unary()
	if err != nil {
		return nil, err
	}
	if _, ok := ev.(*MemberExpr); !ok {
		return nil, p.errAt(t, "expected object.EventName")
	}
	if _, err := p.need(COMMA, "expected ',' between event and handler"); err != nil {
		return nil, err
	}
	handler, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	return &AddHandlerStmt{node: node{t}, Event: ev, Handler: handler, Remove: remove}, nil
}

func (p *parser) raiseEventStmt() (Statement, error) {
	t := p.advance()
	name, err := p.needIdent("event name after RaiseEvent")
	if err != nil {
		return nil, err
	}
	var args []Expression
	if p.peek().Type == LPAREN {
		p.advance()
		args, err = p.argList()
		if err != nil {
			return nil, err
		}
	}
	return &RaiseEventStmt{node: node{t}, Name: name.Lexeme, Args: args}, nil
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

func (p *parser) paramList() ([]*Param, error) {
	var params []*Param
	if p.match(RPAREN) {
		return params, nil
	}
	for {
		prm := &Param{}
	mods:
		for {
			switch p.peek().Type {
			case KwOptional:
				p.advance()
				prm.Optional = true
			case KwByVal:
				p.advance()
			case KwByRef:
				p.advance()
				prm.ByRef = true
			case KwParamArray:
				p.advance()
				prm.ParamArray = true
			default:
				break mods
			}
		}
		name, err := p.needIdent("parameter name")
		if err != nil {
			return nil, err
		}
		prm.Name = name.Lexeme
		if p.peek().Type == LPAREN && p.peekN(1).Type == RPAREN {
			p.advance()
			p.advance()
		}
		if p.match(KwAs) {
			tn, err := p.typeName()
			if err != nil {
				return nil, err
			}
			prm.TypeName = tn
		}
		if p.match(ASSIGN) {
			d, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			prm.Default = d
		}
		if prm.ParamArray {
			for _, earlier := range params {
				if earlier.Optional {
					return nil, p.errAt(name, "ParamArray cannot be used with Optional parameters")
				}
			}
		}
		params = append(params, prm)
		if p.match(COMMA) {
			continue
		}
		if _, err := p.need(RPAREN, "expected ')' in parameter list"); err != nil {
			return nil, err
		}
		return params, nil
	}
}

func (p *parser) procDecl(mods modifiers) (Statement, error) {
	t := p.advance() // Sub / Function
	isSub := t.Type == KwSub
	name, err := p.needIdent("procedure name")
	if err != nil {
		return nil, err
	}
	var params []*Param
	if p.peek().Type == LPAREN {
		p.advance()
		params, err = p.paramList()
		if err != nil {
			return nil, err
		}
	}
	retType := ""
	if p.match(KwAs) {
		retType, err = p.typeName()
		if err != nil {
			return nil, err
		}
	}
	if p.match(KwHandles) {
		// Handles clauses belong to the form designer; accepted, ignored
		for !p.statementDone() {
			p.advance()
		}
	}
	closer, what := KwFunction, "Function"
	if isSub {
		closer, what = KwSub, "Sub"
	}
	body, err := p.blockUntilEnd(closer, what)
	if err != nil {
		return nil, err
	}
	return &ProcDecl{
		node: node{t}, Name: name.Lexeme,
		IsSub: isSub, Params: params, RetType: retType,
		Body: body, Shared: mods.shared, Async: mods.async,
	}, nil
}

func (p *parser) classDecl(mods modifiers, isStructure bool) (Statement, error) {
	t := p.advance()
	name, err := p.needIdent("class name")
	if err != nil {
		return nil, err
	}
	closer, what := KwClass, "Class"
	if isStructure {
		closer, what = KwStructure, "Structure"
	}
	cd := &ClassDecl{
		node: node{t}, Name: name.Lexeme,
		Partial: mods.partial, IsStructure: isStructure,
	}
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	p.skipTerminators()
	if p.match(KwInherits) {
		base, err := p.typeName()
		if err != nil {
			return nil, err
		}
		cd.Inherits = base
		p.skipTerminators()
	}
	for p.match(KwImplements) {
		for {
			in, err := p.typeName()
			if err != nil {
				return nil, err
			}
			cd.Implements = append(cd.Implements, in)
			if p.match(COMMA) {
				continue
			}
			break
		}
		p.skipTerminators()
	}
	for {
		p.skipTerminators()
		if p.peek().Type == KwEnd && p.peekN(1).Type == closer {
			p.advance()
			p.advance()
			return cd, nil
		}
		if p.atEnd() {
			return nil, p.errAt(p.peek(), "expected End "+what)
		}
		m := p.collectModifiers()
		switch p.peek().Type {
		case KwDim, KwConst:
			dt := p.advance()
			d, err := p.dimStmt(dt, dt.Type == KwConst, m)
			if err != nil {
				return nil, err
			}
			cd.Fields = append(cd.Fields, d.(*DimStmt))
		case IDENT:
			// bare "Public x As Integer" field
			d, err := p.dimStmt(p.peek(), false, m)
			if err != nil {
				return nil, err
			}
			cd.Fields = append(cd.Fields, d.(*DimStmt))
		case KwSub, KwFunction:
			d, err := p.procDecl(m)
			if err != nil {
				return nil, err
			}
			cd.Methods = append(cd.Methods, d.(*ProcDecl))
		case KwProperty:
			d, err := p.propertyDecl(m)
			if err != nil {
				return nil, err
			}
			cd.Props = append(cd.Props, d.(*PropertyDecl))
		case KwEvent:
			d, err := p.eventDecl()
			if err != nil {
				return nil, err
			}
			cd.Events = append(cd.Events, d.(*EventDecl))
		default:
			return nil, p.errAt(p.peek(), fmt.Sprintf("unexpected %s in %s body", tokenDesc(p.peek()), what))
		}
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
	}
}

func (p *parser) moduleDecl() (Statement, error) {
	t := p.advance()
	name, err := p.needIdent("module name")
	if err != nil {
		return nil, err
	}
	body, err := p.blockUntilEnd(KwModule, "Module")
	if err != nil {
		return nil, err
	}
	return &ModuleDecl{node: node{t}, Name: name.Lexeme, Members: body}, nil
}

func (p *parser) interfaceDecl() (Statement, error) {
	t := p.advance()
	name, err := p.needIdent("interface name")
	if err != nil {
		return nil, err
	}
	id := &InterfaceDecl{node: node{t}, Name: name.Lexeme}
	for {
		p.skipTerminators()
		if p.peek().Type == KwEnd && p.peekN(1).Type == KwInterface {
			p.advance()
			p.advance()
			return id, nil
		}
		if p.atEnd() {
			return nil, p.errAt(p.peek(), "expected End Interface")
		}
		switch p.peek().Type {
		case KwSub, KwFunction, KwProperty:
			p.advance()
			mn, err := p.needIdent("member name")
			if err != nil {
				return nil, err
			}
			id.Methods = append(id.Methods, mn.Lexeme)
			for !p.statementDone() {
				p.advance()
			}
		default:
			return nil, p.errAt(p.peek(), "expected member signature in interface")
		}
	}
}

func (p *parser) enumDecl() (Statement, error) {
	t := p.advance()
	name, err := p.needIdent("enum name")
	if err != nil {
		return nil, err
	}
	if p.match(KwAs) {
		if _, err := p.typeName(); err != nil {
			return nil, err
		}
	}
	ed := &EnumDecl{node: node{t}, Name: name.Lexeme}
	for {
		p.skipTerminators()
		if p.peek().Type == KwEnd && p.peekN(1).Type == KwEnum {
			p.advance()
			p.advance()
			return ed, nil
		}
		if p.atEnd() {
			return nil, p.errAt(p.peek(), "expected End Enum")
		}
		mn, err := p.needIdent("enum member name")
		if err != nil {
			return nil, err
		}
		m := &EnumMember{Name: mn.Lexeme}
		if p.match(ASSIGN) {
			e, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			m.Value = e
		}
		ed.Members = append(ed.Members, m)
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
	}
}

func (p *parser) delegateDecl() (Statement, error) {
	t := p.advance()
	isSub := true
	switch p.peek().Type {
	case KwSub:
		p.advance()
	case KwFunction:
		isSub = false
		p.advance()
	default:
		return nil, p.errAt(p.peek(), "expected Sub or Function after Delegate")
	}
	name, err := p.needIdent("delegate name")
	if err != nil {
		return nil, err
	}
	var params []*Param
	if p.peek().Type == LPAREN {
		p.advance()
		params, err = p.paramList()
		if err != nil {
			return nil, err
		}
	}
	if p.match(KwAs) {
		if _, err := p.typeName(); err != nil {
			return nil, err
		}
	}
	return &DelegateDecl{node: node{t}, Name: name.Lexeme, IsSub: isSub, Params: params}, nil
}

func (p *parser) eventDecl() (Statement, error) {
	t := p.advance()
	name, err := p.needIdent("event name")
	if err != nil {
		return nil, err
	}
	ed := &EventDecl{node: node{t}, Name: name.Lexeme}
	if p.peek().Type == LPAREN {
		p.advance()
		params, err := p.paramList()
		if err != nil {
			return nil, err
		}
		ed.Params = params
	}
	return ed, nil
}

func (p *parser) propertyDecl(mods modifiers) (Statement, error) {
	t := p.advance()
	name, err := p.needIdent("property name")
	if err != nil {
		return nil, err
	}
	pd := &PropertyDecl{node: node{t}, Name: name.Lexeme, Shared: mods.shared}
	if p.peek().Type == LPAREN {
		p.advance()
		if _, err := p.paramList(); err != nil {
			return nil, err
		}
	}
	if p.match(KwAs) {
		tn, err := p.typeName()
		if err != nil {
			return nil, err
		}
		pd.TypeName = tn
	}
	if p.match(ASSIGN) {
		d, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		pd.Auto = true
		pd.Default = d
		return pd, nil
	}
	if !p.statementDone() {
		return nil, p.errAt(p.peek(), "unexpected token in property declaration")
	}
	// block property or auto-property: decide by the next keyword
	save := p.i
	p.skipTerminators()
	if p.peek().Type != KwGet && p.peek().Type != KwSet {
		p.i = save
		pd.Auto = true
		return pd, nil
	}
	for p.peek().Type == KwGet || p.peek().Type == KwSet {
		if p.match(KwGet) {
			body, err := p.blockUntilEnd(KwGet, "Get")
			if err != nil {
				return nil, err
			}
			pd.GetBody = body
		} else {
			p.advance() // Set
			pd.SetParam = "value"
			if p.peek().Type == LPAREN {
				p.advance()
				params, err := p.paramList()
				if err != nil {
					return nil, err
				}
				if len(params) > 0 {
					pd.SetParam = params[0].Name
				}
			}
			body, err := p.blockUntilEnd(KwSet, "Set")
			if err != nil {
				return nil, err
			}
			pd.SetBody = body
		}
		p.skipTerminators()
	}
	if p.peek().Type != KwEnd || p.peekN(1).Type != KwProperty {
		return nil, p.errAt(p.peek(), "expected End Property")
	}
	p.advance()
	p.advance()
	return pd, nil
}
