// interpreter_ops.go — expression evaluation: operators, coercion, member
// access, calls and lvalue assignment.
package basil

import (
	"fmt"
	"math"
	"strings"
)

func (ip *Interpreter) eval(act *activation, e Expression) (Value, error) {
	switch x := e.(type) {
	case *LiteralExpr:
		return x.Val, nil
	case *IdentExpr:
		if cell, ok := act.env.Lookup(x.Name); ok {
			return cell.V, nil
		}
		if act.recv != nil {
			if v, found, err := ip.recvMember(act, x.Name, x.Pos()); found {
				return v, err
			}
		}
		return Nothing, ip.unknownName(act, x.Name, x.Pos())
	case *MeExpr:
		if act.recv == nil {
			return Nothing, &BindError{Msg: "Me is only valid inside a class", Line: x.Pos().Line, Col: x.Pos().Col}
		}
		return ObjVal(act.recv), nil
	case *MyBaseExpr:
		if act.recv == nil || act.recv.Class.Base == nil {
			return Nothing, &BindError{Msg: "MyBase requires an inherited class", Line: x.Pos().Line, Col: x.Pos().Col}
		}
		return ObjVal(act.recv), nil
	case *BinaryExpr:
		return ip.evalBinary(act, x)
	case *UnaryExpr:
		return ip.evalUnary(act, x)
	case *CallOrIndexExpr:
		return ip.evalCallOrIndex(act, x)
	case *MemberExpr:
		return ip.evalMember(act, x)
	case *LambdaExpr:
		return FuncVal(&Closure{
			IsSub: x.IsSub, Params: x.Params, Expr: x.Expr, Body: x.Body,
			Env: act.env, Recv: act.recv, Statics: map[string]*Cell{},
		}), nil
	case *NewExpr:
		return ip.evalNew(act, x)
	case *ArrayLit:
		arr := NewArray([]int{len(x.Elems)})
		for i, el := range x.Elems {
			v, err := ip.eval(act, el)
			if err != nil {
				return Nothing, err
			}
			arr.Elems[i] = v
		}
		return ArrVal(arr), nil
	case *InterpExpr:
		return ip.evalInterp(act, x)
	case *IifExpr:
		cond, err := ip.eval(act, x.Cond)
		if err != nil {
			return Nothing, err
		}
		b, err := truthy(cond)
		if err != nil {
			return Nothing, wrapAt(err, x.Pos())
		}
		if b {
			return ip.eval(act, x.WhenTrue)
		}
		return ip.eval(act, x.WhenFalse)
	case *TypeOfExpr:
		v, err := ip.eval(act, x.Operand)
		if err != nil {
			return Nothing, err
		}
		hit := typeMatches(v, x.TypeName)
		if x.Negated {
			hit = !hit
		}
		return BoolVal(hit), nil
	case *AddressOfExpr:
		return ip.evalAddressOf(act, x)
	case *AwaitExpr:
		v, err := ip.eval(act, x.Operand)
		if err != nil {
			return Nothing, err
		}
		if t, ok := taskOf(v); ok {
			return t.Await()
		}
		return v, nil
	}
	return Nothing, &BindError{Msg: fmt.Sprintf("expression %T is not evaluable", e)}
}

// typeMatches implements TypeOf ... Is: class hierarchies match through
// their bases and "Object" matches any reference value.
func typeMatches(v Value, typeName string) bool {
	want := foldName(typeName)
	if want == "object" {
		return v.Kind == KindObject || v.Kind == KindArray || v.Kind == KindCallable
	}
	if inst, ok := asInstance(v); ok {
		return inst.Class.isOrInherits(typeName)
	}
	got := foldName(TypeNameOf(v))
	if got == want {
		return true
	}
	// common aliases
	switch want {
	case "arraylist", "collection":
		return got == "list"
	}
	return false
}

func (ip *Interpreter) evalAddressOf(act *activation, x *AddressOfExpr) (Value, error) {
	switch t := x.Target.(type) {
	case *IdentExpr:
		if cell, ok := act.env.Lookup(t.Name); ok {
			if cell.V.Kind != KindCallable {
				return Nothing, &BindError{
					Msg: fmt.Sprintf("'%s' is not a procedure", t.Name),
					Line: x.Pos().Line, Col: x.Pos().Col,
				}
			}
			return cell.V, nil
		}
		return Nothing, ip.unknownName(act, t.Name, x.Pos())
	case *MemberExpr:
		return ip.boundMember(act, t)
	}
	return Nothing, &BindError{
		Msg: "AddressOf requires a procedure name",
		Line: x.Pos().Line, Col: x.Pos().Col,
	}
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

func (ip *Interpreter) evalBinary(act *activation, x *BinaryExpr) (Value, error) {
	// short-circuit forms evaluate the right side conditionally
	switch x.Op {
	case KwAndAlso, KwOrElse:
		l, err := ip.eval(act, x.Left)
		if err != nil {
			return Nothing, err
		}
		lb, err := truthy(l)
		if err != nil {
			return Nothing, wrapAt(err, x.Pos())
		}
		if x.Op == KwAndAlso && !lb {
			return BoolVal(false), nil
		}
		if x.Op == KwOrElse && lb {
			return BoolVal(true), nil
		}
		r, err := ip.eval(act, x.Right)
		if err != nil {
			return Nothing, err
		}
		rb, err := truthy(r)
		if err != nil {
			return Nothing, wrapAt(err, x.Pos())
		}
		return BoolVal(rb), nil
	}
	l, err := ip.eval(act, x.Left)
	if err != nil {
		return Nothing, err
	}
	r, err := ip.eval(act, x.Right)
	if err != nil {
		return Nothing, err
	}
	return ip.binaryOp(x.Op, l, r, x.Pos())
}

func (ip *Interpreter) binaryOp(op TokenType, l, r Value, tok Token) (Value, error) {
	switch op {
	case PLUS:
		// + concatenates when both sides are strings, else adds
		if l.Kind == KindString && r.Kind == KindString {
			return StrVal(l.Data.(string) + r.Data.(string)), nil
		}
		return arith(l, r, tok, func(a, b int64) (int64, bool) {
			s := a + b
			return s, (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0)
		}, func(a, b float64) float64 { return a + b })
	case MINUS:
		return arith(l, r, tok, func(a, b int64) (int64, bool) {
			s := a - b
			return s, (a >= 0 && b < 0 && s < 0) || (a < 0 && b > 0 && s >= 0)
		}, func(a, b float64) float64 { return a - b })
	case STAR:
		return arith(l, r, tok, func(a, b int64) (int64, bool) {
			if a == 0 || b == 0 {
				return 0, false
			}
			s := a * b
			return s, s/b != a
		}, func(a, b float64) float64 { return a * b })
	case SLASH:
		fa, err := asDouble(l)
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		fb, err := asDouble(r)
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		if fb == 0 {
			return Nothing, &RaisedError{
				TypeName: "DivideByZeroException", Number: 11,
				Message: "Attempted to divide by zero.",
				Line:    tok.Line, Col: tok.Col,
			}
		}
		return DblVal(fa / fb), nil
	case BACKSLASH:
		a, err := asLong(l)
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		b, err := asLong(r)
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		if b == 0 {
			return Nothing, &RaisedError{
				TypeName: "DivideByZeroException", Number: 11,
				Message: "Attempted to divide by zero.",
				Line:    tok.Line, Col: tok.Col,
			}
		}
		return LngVal(a / b).normalizeInt(), nil
	case KwMod:
		if l.isIntegral() && r.isIntegral() {
			a, _ := asLong(l)
			b, _ := asLong(r)
			if b == 0 {
				return Nothing, &RaisedError{
					TypeName: "DivideByZeroException", Number: 11,
					Message: "Attempted to divide by zero.",
					Line:    tok.Line, Col: tok.Col,
				}
			}
			// result takes the dividend's sign
			return LngVal(a % b).normalizeInt(), nil
		}
		fa, err := asDouble(l)
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		fb, err := asDouble(r)
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		return DblVal(math.Mod(fa, fb)), nil
	case CARET:
		fa, err := asDouble(l)
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		fb, err := asDouble(r)
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		return DblVal(math.Pow(fa, fb)), nil
	case AMP:
		return StrVal(displayString(l) + displayString(r)), nil
	case LSHIFT, RSHIFT:
		a, err := asLong(l)
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		b, err := asLong(r)
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		sh := uint64(b) & 63
		if op == LSHIFT {
			return LngVal(a << sh).normalizeInt(), nil
		}
		return LngVal(a >> sh).normalizeInt(), nil
	case ASSIGN:
		return BoolVal(valuesEqual(l, r)), nil
	case NOT_EQ:
		return BoolVal(!valuesEqual(l, r)), nil
	case LESS, LESS_EQ, GREATER, GREATER_EQ:
		cmp, err := compareValues(l, r)
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		switch op {
		case LESS:
			return BoolVal(cmp < 0), nil
		case LESS_EQ:
			return BoolVal(cmp <= 0), nil
		case GREATER:
			return BoolVal(cmp > 0), nil
		default:
			return BoolVal(cmp >= 0), nil
		}
	case KwIs:
		return BoolVal(sameReference(l, r)), nil
	case KwIsNot:
		return BoolVal(!sameReference(l, r)), nil
	case KwLike:
		return BoolVal(likeMatch(displayString(l), displayString(r))), nil
	case KwAnd, KwOr, KwXor:
		// boolean operands stay logical; anything else goes bitwise
		if l.Kind == KindBoolean && r.Kind == KindBoolean {
			a, b := l.Data.(bool), r.Data.(bool)
			switch op {
			case KwAnd:
				return BoolVal(a && b), nil
			case KwOr:
				return BoolVal(a || b), nil
			default:
				return BoolVal(a != b), nil
			}
		}
		a, err := asLong(l)
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		b, err := asLong(r)
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		switch op {
		case KwAnd:
			return LngVal(a & b).normalizeInt(), nil
		case KwOr:
			return LngVal(a | b).normalizeInt(), nil
		default:
			return LngVal(a ^ b).normalizeInt(), nil
		}
	}
	return Nothing, &BindError{Msg: "unsupported operator", Line: tok.Line, Col: tok.Col}
}

// arith adds/subtracts/multiplies with kind widening: two integral
// operands stay integral unless the operation overflows int64, in which
// case (or for any Double operand) the math happens in float64.
func arith(l, r Value, tok Token, iop func(a, b int64) (int64, bool), fop func(a, b float64) float64) (Value, error) {
	if l.isIntegral() && r.isIntegral() {
		a, _ := asLong(l)
		b, _ := asLong(r)
		if s, overflow := iop(a, b); !overflow {
			if l.Kind == KindInteger && r.Kind == KindInteger {
				return LngVal(s).normalizeInt(), nil
			}
			return LngVal(s), nil
		}
	}
	fa, err := asDouble(l)
	if err != nil {
		return Nothing, wrapAt(err, tok)
	}
	fb, err := asDouble(r)
	if err != nil {
		return Nothing, wrapAt(err, tok)
	}
	if l.Kind == KindDate || r.Kind == KindDate {
		return DateVal(fop(fa, fb)), nil
	}
	return DblVal(fop(fa, fb)), nil
}

// likeMatch implements the Like operator: '*' any run, '?' one character,
// '#' one digit, '[set]' one of a character class (with '!' negation and
// '-' ranges). Matching is case-insensitive like the rest of the dialect.
func likeMatch(s, pattern string) bool {
	return likeMatchFold(strings.ToLower(s), strings.ToLower(pattern))
}

func likeMatchFold(s, p string) bool {
	if p == "" {
		return s == ""
	}
	switch p[0] {
	case '*':
		for i := 0; i <= len(s); i++ {
			if likeMatchFold(s[i:], p[1:]) {
				return true
			}
		}
		return false
	case '?':
		return s != "" && likeMatchFold(s[1:], p[1:])
	case '#':
		return s != "" && s[0] >= '0' && s[0] <= '9' && likeMatchFold(s[1:], p[1:])
	case '[':
		end := strings.IndexByte(p, ']')
		if end < 0 {
			return s != "" && s[0] == '[' && likeMatchFold(s[1:], p[1:])
		}
		if s == "" {
			return false
		}
		set := p[1:end]
		negate := false
		if strings.HasPrefix(set, "!") {
			negate = true
			set = set[1:]
		}
		hit := classContains(set, s[0])
		if hit == negate {
			return false
		}
		return likeMatchFold(s[1:], p[end+1:])
	default:
		return s != "" && s[0] == p[0] && likeMatchFold(s[1:], p[1:])
	}
}

func classContains(set string, c byte) bool {
	for i := 0; i < len(set); i++ {
		if i+2 < len(set) && set[i+1] == '-' {
			if c >= set[i] && c <= set[i+2] {
				return true
			}
			i += 2
			continue
		}
		if set[i] == c {
			return true
		}
	}
	return false
}

func (ip *Interpreter) evalUnary(act *activation, x *UnaryExpr) (Value, error) {
	v, err := ip.eval(act, x.Operand)
	if err != nil {
		return Nothing, err
	}
	switch x.Op {
	case MINUS:
		switch v.Kind {
		case KindInteger:
			return IntVal(-v.Data.(int64)), nil
		case KindLong:
			return LngVal(-v.Data.(int64)), nil
		case KindDouble:
			return DblVal(-v.Data.(float64)), nil
		}
		f, err := asDouble(v)
		if err != nil {
			return Nothing, wrapAt(err, x.Pos())
		}
		return DblVal(-f), nil
	case PLUS:
		if v.isNumeric() {
			return v, nil
		}
		f, err := asDouble(v)
		if err != nil {
			return Nothing, wrapAt(err, x.Pos())
		}
		return DblVal(f), nil
	case KwNot:
		if v.Kind == KindBoolean {
			return BoolVal(!v.Data.(bool)), nil
		}
		n, err := asLong(v)
		if err != nil {
			b, berr := truthy(v)
			if berr != nil {
				return Nothing, wrapAt(err, x.Pos())
			}
			return BoolVal(!b), nil
		}
		return LngVal(^n).normalizeInt(), nil
	}
	return Nothing, &BindError{Msg: "unsupported unary operator", Line: x.Pos().Line, Col: x.Pos().Col}
}

// ---------------------------------------------------------------------------
// Interpolated strings
// ---------------------------------------------------------------------------

func (ip *Interpreter) evalInterp(act *activation, x *InterpExpr) (Value, error) {
	var b strings.Builder
	for _, part := range x.Parts {
		if part.Expr == nil {
			b.WriteString(part.Text)
			continue
		}
		v, err := ip.eval(act, part.Expr)
		if err != nil {
			return Nothing, err
		}
		s := displayString(v)
		if part.Format != "" {
			s = formatValue(v, part.Format)
		}
		if part.Align != 0 {
			s = alignText(s, part.Align)
		}
		b.WriteString(s)
	}
	return StrVal(b.String()), nil
}

// alignText pads to |align| columns: positive aligns right, negative left.
func alignText(s string, align int) string {
	width := align
	if width < 0 {
		width = -width
	}
	if len(s) >= width {
		return s
	}
	pad := strings.Repeat(" ", width-len(s))
	if align > 0 {
		return pad + s
	}
	return s + pad
}

// ---------------------------------------------------------------------------
// Calls and indexing
// ---------------------------------------------------------------------------

func (ip *Interpreter) evalCallOrIndex(act *activation, x *CallOrIndexExpr) (Value, error) {
	switch target := x.Target.(type) {
	case *IdentExpr:
		cell, ok := act.env.Lookup(target.Name)
		if !ok {
			if act.recv != nil {
				if v, found, err := ip.recvMember(act, target.Name, x.Pos()); found {
					if err != nil {
						return Nothing, err
					}
					return ip.applyValue(act, v, x.Args, x.Pos())
				}
			}
			return Nothing, ip.unknownName(act, target.Name, x.Pos())
		}
		return ip.applyValue(act, cell.V, x.Args, x.Pos())
	case *MemberExpr:
		return ip.callMember(act, target, x.Args, x.Pos())
	}
	v, err := ip.eval(act, x.Target)
	if err != nil {
		return Nothing, err
	}
	return ip.applyValue(act, v, x.Args, x.Pos())
}

// applyValue calls a callable or indexes an indexable value.
func (ip *Interpreter) applyValue(act *activation, v Value, argExprs []Expression, tok Token) (Value, error) {
	switch v.Kind {
	case KindCallable:
		fn := v.Data.(*Closure)
		args, err := ip.prepareArgs(act, fn, argExprs)
		if err != nil {
			return Nothing, err
		}
		return ip.callClosure(fn, args, tok)
	case KindArray:
		idx, err := ip.evalIndices(act, argExprs)
		if err != nil {
			return Nothing, err
		}
		out, err := v.Data.(*Array).At(idx)
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		return out, nil
	case KindString:
		idx, err := ip.evalIndices(act, argExprs)
		if err != nil {
			return Nothing, err
		}
		s := v.Data.(string)
		if len(idx) != 1 || idx[0] < 0 || idx[0] >= len(s) {
			return Nothing, &BindError{Msg: "string index out of range", Line: tok.Line, Col: tok.Col}
		}
		return StrVal(string(s[idx[0]])), nil
	case KindObject:
		return ip.indexObject(act, v, argExprs, tok)
	}
	return Nothing, &BindError{
		Msg:  fmt.Sprintf("%s is not callable or indexable", TypeNameOf(v)),
		Line: tok.Line, Col: tok.Col,
	}
}

// indexObject applies the default indexer of a collection.
func (ip *Interpreter) indexObject(act *activation, v Value, argExprs []Expression, tok Token) (Value, error) {
	args := make([]Value, len(argExprs))
	for i, a := range argExprs {
		av, err := ip.eval(act, a)
		if err != nil {
			return Nothing, err
		}
		args[i] = av
	}
	switch o := v.Data.(type) {
	case *List:
		if len(args) != 1 {
			return Nothing, &BindError{Msg: "List takes one index", Line: tok.Line, Col: tok.Col}
		}
		if args[0].Kind == KindString {
			out, err := o.ByKey(args[0].Data.(string))
			if err != nil {
				return Nothing, wrapAt(err, tok)
			}
			return out, nil
		}
		n, err := asLong(args[0])
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		out, err := o.At(int(n))
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		return out, nil
	case *Dictionary:
		if len(args) != 1 {
			return Nothing, &BindError{Msg: "Dictionary takes one key", Line: tok.Line, Col: tok.Col}
		}
		out, err := o.Get(displayString(args[0]))
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		return out, nil
	}
	return Nothing, &BindError{
		Msg:  fmt.Sprintf("%s is not callable or indexable", TypeNameOf(v)),
		Line: tok.Line, Col: tok.Col,
	}
}

func (ip *Interpreter) evalIndices(act *activation, argExprs []Expression) ([]int, error) {
	idx := make([]int, len(argExprs))
	for i, a := range argExprs {
		v, err := ip.eval(act, a)
		if err != nil {
			return nil, err
		}
		n, err := asLong(v)
		if err != nil {
			return nil, wrapAt(err, a.Pos())
		}
		idx[i] = int(n)
	}
	return idx, nil
}

// prepareArgs evaluates call arguments against the callee's parameter
// list. A ByRef parameter fed a simple variable aliases the variable's
// cell; fed an element or member lvalue it copies in and writes back.
func (ip *Interpreter) prepareArgs(act *activation, fn *Closure, argExprs []Expression) ([]argVal, error) {
	args := make([]argVal, len(argExprs))
	for i, ae := range argExprs {
		byRef := fn.Native == nil && i < len(fn.Params) && fn.Params[i].ByRef
		if byRef {
			if id, ok := ae.(*IdentExpr); ok {
				cell, found := act.env.Lookup(id.Name)
				if !found {
					cell = act.env.Define(id.Name, Nothing)
				}
				args[i] = argVal{v: cell.V, cell: cell}
				continue
			}
			if isAssignable(ae) {
				v, err := ip.eval(act, ae)
				if err != nil {
					return nil, err
				}
				target := ae
				args[i] = argVal{v: v, writeBack: func(nv Value) error {
					return ip.assign(act, target, nv)
				}}
				continue
			}
		}
		v, err := ip.eval(act, ae)
		if err != nil {
			return nil, err
		}
		args[i] = argVal{v: v}
	}
	return args, nil
}

// ---------------------------------------------------------------------------
// Member access
// ---------------------------------------------------------------------------

// evalMemberTarget resolves the receiver of a member expression; a nil
// target takes the innermost With subject.
func (ip *Interpreter) evalMemberTarget(act *activation, x *MemberExpr) (Value, error) {
	if x.Target == nil {
		if len(act.withStack) == 0 {
			return Nothing, &BindError{
				Msg: "leading '.' is only valid inside a With block",
				Line: x.Pos().Line, Col: x.Pos().Col,
			}
		}
		return act.withStack[len(act.withStack)-1], nil
	}
	return ip.eval(act, x.Target)
}

/// evalMember reads a member in value position: fields, properties, enum
// members, Err members and method values.
func (ip *Interpreter) evalMember(act *activation, x *MemberExpr) (Value, error) {
	// Class.SharedMember and Enum.Member resolve through the name first
	if id, ok := x.Target.(*IdentExpr); ok {
		if _, found := act.env.Lookup(id.Name); !found {
			if v, handled, err := ip.staticMember(act, id.Name, x.Name, x.Pos()); handled {
				return v, err
			}
		}
	}
	recv, err := ip.evalMemberTarget(act, x)
	if err != nil {
		return Nothing, err
	}
	return ip.memberValue(act, recv, x.Name, x.Pos())
}

// staticMember resolves Type.Member for class shared members and dotted
// enum constants.
func (ip *Interpreter) staticMember(act *activation, typeName, member string, tok Token) (Value, bool, error) {
	if cell, ok := act.env.Lookup(typeName + "." + member); ok {
		return cell.V, true, nil
	}
	if ci, ok := ip.classes[foldName(typeName)]; ok {
		if cell, found := ci.Shared.Lookup(member); found && ci.Shared.definedHere(member) {
			return cell.V, true, nil
		}
		if m, found := ci.findMethod(member); found {
			return FuncVal(m), true, nil
		}
		return Nothing, true, &BindError{
			Msg:  fmt.Sprintf("'%s' is not a shared member of '%s'", member, typeName),
			Line: tok.Line, Col: tok.Col,
		}
	}
	return Nothing, false, nil
}

func (ip *Interpreter) memberValue(act *activation, recv Value, name string, tok Token) (Value, error) {
	switch recv.Kind {
	case KindNothing:
		return Nothing, &RaisedError{
			TypeName: "NullReferenceException", Number: 91,
			Message: "Object reference not set to an instance of an object.",
			Line:    tok.Line, Col: tok.Col,
		}
	case KindObject:
		switch o := recv.Data.(type) {
		case *Instance:
			return ip.instanceMember(act, o, name, tok)
		case *enumObject:
			if v, ok := o.member(name); ok {
				return v, nil
			}
		case *ErrState:
			switch foldName(name) {
			case "number":
				return IntVal(int64(o.Number)), nil
			case "description", "message":
				return StrVal(o.Description), nil
			case "source":
				return StrVal(o.Source), nil
			}
		case *exceptionObject:
			switch foldName(name) {
			case "message":
				return StrVal(o.message), nil
			case "number", "hresult":
				return IntVal(int64(o.number)), nil
			}
		case *Pair:
			switch foldName(name) {
			case "key":
				return o.Key, nil
			case "value":
				return o.Value, nil
			}
		case *Group:
			switch foldName(name) {
			case "key":
				return o.Key, nil
			case "items":
				return ObjVal(o.Items), nil
			}
		}
	}
	// registered properties (Count, Length, Keys, ...)
	if impl, ok := ip.lookupProp(TypeNameOf(recv), name); ok {
		return impl(&CallCtx{Ip: ip, Name: name, Recv: recv, tok: tok})
	}
	// registered methods read as bound callables
	if impl, ok := ip.lookupMethod(TypeNameOf(recv), name); ok {
		bound := recv
		boundImpl := impl
		return FuncVal(&Closure{
			Name: name, MinArgs: -1, MaxArgs: -1,
			Native: func(c *CallCtx) (Value, error) {
				c.Recv = bound
				return boundImpl(c)
			},
		}), nil
	}
	return Nothing, &BindError{
		Msg:  fmt.Sprintf("'%s' is not a member of '%s'", name, TypeNameOf(recv)),
		Line: tok.Line, Col: tok.Col,
	}
}

func (ip *Interpreter) instanceMember(act *activation, inst *Instance, name string, tok Token) (Value, error) {
	if pi, ok := inst.Class.findProp(name); ok {
		if pi.Auto {
			if cell, found := inst.field(name); found {
				return cell.V, nil
			}
			return Nothing, nil
		}
		if pi.Get == nil {
			return Nothing, &BindError{
				Msg:  fmt.Sprintf("property '%s' is write-only", name),
				Line: tok.Line, Col: tok.Col,
			}
		}
		return ip.callClosure(pi.Get.bind(inst), nil, tok)
	}
	if cell, ok := inst.field(name); ok {
		return cell.V, nil
	}
	if m, ok := inst.Class.findMethod(name); ok {
		return FuncVal(m.bind(inst)), nil
	}
	if cell, ok := inst.Class.Shared.Lookup(name); ok && inst.Class.Shared.definedHere(name) {
		return cell.V, nil
	}
	return Nothing, &BindError{
		Msg:  fmt.Sprintf("'%s' is not a member of '%s'", name, inst.Class.Name),
		Line: tok.Line, Col: tok.Col,
	}
}

// recvMember resolves a bare name inside a method body against the
// receiver: properties, fields, sibling methods, then shared members up
// the inheritance chain. The bool reports whether the name belongs to
// the receiver at all.
func (ip *Interpreter) recvMember(act *activation, name string, tok Token) (Value, bool, error) {
	inst := act.recv
	if pi, ok := inst.Class.findProp(name); ok {
		if pi.Auto {
			if cell, found := inst.field(name); found {
				return cell.V, true, nil
			}
			return Nothing, true, nil
		}
		if pi.Get == nil {
			return Nothing, true, &BindError{
				Msg:  fmt.Sprintf("property '%s' is write-only", name),
				Line: tok.Line, Col: tok.Col,
			}
		}
		v, err := ip.callClosure(pi.Get.bind(inst), nil, tok)
		return v, true, err
	}
	if cell, ok := inst.field(name); ok {
		return cell.V, true, nil
	}
	if m, ok := inst.Class.findMethod(name); ok {
		return FuncVal(m.bind(inst)), true, nil
	}
	for c := inst.Class; c != nil; c = c.Base {
		if cell, ok := c.Shared.Lookup(name); ok && c.Shared.definedHere(name) {
			return cell.V, true, nil
		}
	}
	return Nothing, false, nil
}

// recvAssign writes a bare name through the receiver when it names a
// field, a settable property or a shared member.
func (ip *Interpreter) recvAssign(act *activation, name string, v Value, tok Token) (bool, error) {
	inst := act.recv
	if pi, ok := inst.Class.findProp(name); ok && !pi.Auto {
		if pi.Set == nil {
			return true, &BindError{
				Msg:  fmt.Sprintf("property '%s' is read-only", name),
				Line: tok.Line, Col: tok.Col,
			}
		}
		_, err := ip.callClosure(pi.Set.bind(inst), []argVal{{v: v}}, tok)
		return true, err
	}
	if cell, ok := inst.field(name); ok {
		cell.V = v
		return true, nil
	}
	for c := inst.Class; c != nil; c = c.Base {
		if cell, ok := c.Shared.Lookup(name); ok && c.Shared.definedHere(name) {
			cell.V = v
			return true, nil
		}
	}
	return false, nil
}

// boundMember returns a method value without invoking it (AddressOf).
func (ip *Interpreter) boundMember(act *activation, x *MemberExpr) (Value, error) {
	recv, err := ip.evalMemberTarget(act, x)
	if err != nil {
		return Nothing, err
	}
	if inst, ok := asInstance(recv); ok {
		if m, found := inst.Class.findMethod(x.Name); found {
			return FuncVal(m.bind(inst)), nil
		}
	}
	return ip.memberValue(act, recv, x.Name, x.Pos())
}

// callMember invokes target.Name(args): script methods, native methods,
// then indexed property reads.
func (ip *Interpreter) callMember(act *activation, member *MemberExpr, argExprs []Expression, tok Token) (Value, error) {
	// Class.SharedMethod(...) without an instance
	if id, ok := member.Target.(*IdentExpr); ok {
		if _, found := act.env.Lookup(id.Name); !found {
			if v, handled, err := ip.staticMember(act, id.Name, member.Name, tok); handled {
				if err != nil {
					return Nothing, err
				}
				return ip.applyValue(act, v, argExprs, tok)
			}
		}
	}
	// MyBase.Method dispatches from the base class
	if _, isBase := member.Target.(*MyBaseExpr); isBase {
		if act.recv == nil || act.recv.Class.Base == nil {
			return Nothing, &BindError{
				Msg: "MyBase requires an inherited class", Line: tok.Line, Col: tok.Col,
			}
		}
		if m, ok := act.recv.Class.Base.findMethod(member.Name); ok {
			args, err := ip.prepareArgs(act, m, argExprs)
			if err != nil {
				return Nothing, err
			}
			return ip.callClosure(m.bind(act.recv), args, tok)
		}
		return Nothing, &BindError{
			Msg:  fmt.Sprintf("'%s' is not a member of '%s'", member.Name, act.recv.Class.Base.Name),
			Line: tok.Line, Col: tok.Col,
		}
	}
	recv, err := ip.evalMemberTarget(act, member)
	if err != nil {
		return Nothing, err
	}
	if recv.Kind == KindNothing {
		return Nothing, &RaisedError{
			TypeName: "NullReferenceException", Number: 91,
			Message: "Object reference not set to an instance of an object.",
			Line:    tok.Line, Col: tok.Col,
		}
	}
	if inst, ok := asInstance(recv); ok {
		if m, found := inst.Class.findMethod(member.Name); found {
			args, err := ip.prepareArgs(act, m, argExprs)
			if err != nil {
				return Nothing, err
			}
			return ip.callClosure(m.bind(inst), args, tok)
		}
	}
	if impl, ok := ip.lookupMethod(TypeNameOf(recv), member.Name); ok {
		args := make([]Value, len(argExprs))
		for i, a := range argExprs {
			v, err := ip.eval(act, a)
			if err != nil {
				return Nothing, err
			}
			args[i] = v
		}
		out, err := impl(&CallCtx{Ip: ip, Name: member.Name, Args: args, Recv: recv, tok: tok})
		if err != nil {
			return Nothing, wrapAt(err, tok)
		}
		return out, nil
	}
	// fall back to reading the member and applying the result
	v, err := ip.memberValue(act, recv, member.Name, tok)
	if err != nil {
		return Nothing, err
	}
	if len(argExprs) == 0 {
		if v.Kind == KindCallable {
			return ip.callClosure(v.Data.(*Closure), nil, tok)
		}
		return v, nil
	}
	return ip.applyValue(act, v, argExprs, tok)
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func (ip *Interpreter) evalNew(act *activation, x *NewExpr) (Value, error) {
	args := make([]argVal, len(x.Args))
	vals := make([]Value, len(x.Args))
	for i, a := range x.Args {
		v, err := ip.eval(act, a)
		if err != nil {
			return Nothing, err
		}
		args[i] = argVal{v: v}
		vals[i] = v
	}
	base := foldName(x.TypeName)
	base = strings.TrimSuffix(base, "()")
	switch base {
	case "list", "arraylist", "collection":
		l := NewList()
		for _, v := range vals {
			l.Add(v)
		}
		return ObjVal(l), nil
	case "dictionary":
		return ObjVal(NewDictionary()), nil
	case "queue":
		q := NewQueue()
		for _, v := range vals {
			q.Enqueue(v)
		}
		return ObjVal(q), nil
	case "stack":
		s := NewStack()
		for _, v := range vals {
			s.Push(v)
		}
		return ObjVal(s), nil
	case "hashset":
		h := NewHashSet()
		for _, v := range vals {
			h.Add(v)
		}
		return ObjVal(h), nil
	case "stringbuilder":
		sb := NewStringBuilder()
		if len(vals) > 0 {
			sb.Append(displayString(vals[0]))
		}
		return ObjVal(sb), nil
	}
	if ci, ok := ip.classes[base]; ok {
		return ip.newInstance(ci, args, x.Pos())
	}
	if strings.HasSuffix(base, "exception") {
		msg := ""
		if len(vals) > 0 {
			msg = displayString(vals[0])
		}
		return ObjVal(&exceptionObject{typeName: x.TypeName, message: msg}), nil
	}
	return Nothing, &BindError{
		Msg:  fmt.Sprintf("type '%s' is not defined", x.TypeName),
		Line: x.Pos().Line, Col: x.Pos().Col,
	}
}

// ---------------------------------------------------------------------------
// Assignment
// ---------------------------------------------------------------------------

// assign stores v into an lvalue: a variable, an array element, a
// collection slot or an object member.
func (ip *Interpreter) assign(act *activation, target Expression, v Value) error {
	switch t := target.(type) {
	case *IdentExpr:
		if act.env.isConst(t.Name) {
			return &BindError{
				Msg:  fmt.Sprintf("constant '%s' cannot be the target of an assignment", t.Name),
				Line: t.Pos().Line, Col: t.Pos().Col,
			}
		}
		if cell, ok := act.env.Lookup(t.Name); ok {
			cell.V = v
			return nil
		}
		if act.recv != nil {
			if done, err := ip.recvAssign(act, t.Name, v, t.Pos()); done {
				return err
			}
		}
		// assignment to an undeclared name binds it in the current scope
		act.env.Define(t.Name, v)
		return nil
	case *MemberExpr:
		return ip.assignMember(act, t, v)
	case *CallOrIndexExpr:
		return ip.assignIndexed(act, t, v)
	}
	return &BindError{Msg: "invalid assignment target", Line: target.Pos().Line, Col: target.Pos().Col}
}

func (ip *Interpreter) assignMember(act *activation, t *MemberExpr, v Value) error {
	// Class.SharedField = v
	if id, ok := t.Target.(*IdentExpr); ok {
		if _, found := act.env.Lookup(id.Name); !found {
			if ci, isClass := ip.classes[foldName(id.Name)]; isClass {
				if cell, defined := ci.Shared.Lookup(t.Name); defined && ci.Shared.definedHere(t.Name) {
					cell.V = v
					return nil
				}
				return &BindError{
					Msg:  fmt.Sprintf("'%s' is not a shared member of '%s'", t.Name, id.Name),
					Line: t.Pos().Line, Col: t.Pos().Col,
				}
			}
		}
	}
	recv, err := ip.evalMemberTarget(act, t)
	if err != nil {
		return err
	}
	if recv.Kind == KindNothing {
		return &RaisedError{
			TypeName: "NullReferenceException", Number: 91,
			Message: "Object reference not set to an instance of an object.",
			Line:    t.Pos().Line, Col: t.Pos().Col,
		}
	}
	if inst, ok := asInstance(recv); ok {
		if pi, found := inst.Class.findProp(t.Name); found && !pi.Auto {
			if pi.Set == nil {
				return &BindError{
					Msg:  fmt.Sprintf("property '%s' is read-only", t.Name),
					Line: t.Pos().Line, Col: t.Pos().Col,
				}
			}
			_, err := ip.callClosure(pi.Set.bind(inst), []argVal{{v: v}}, t.Pos())
			return err
		}
		if cell, found := inst.field(t.Name); found {
			cell.V = v
			return nil
		}
		// new fields attach dynamically only through Dim; reject here
		return &BindError{
			Msg:  fmt.Sprintf("'%s' is not a member of '%s'", t.Name, inst.Class.Name),
			Line: t.Pos().Line, Col: t.Pos().Col,
		}
	}
	if errState, ok := recv.Data.(*ErrState); ok {
		switch foldName(t.Name) {
		case "number":
			n, err := asLong(v)
			if err != nil {
				return err
			}
			errState.Number = int(n)
			return nil
		case "description":
			errState.Description = displayString(v)
			return nil
		case "source":
			errState.Source = displayString(v)
			return nil
		}
	}
	return &BindError{
		Msg:  fmt.Sprintf("member '%s' of '%s' cannot be assigned", t.Name, TypeNameOf(recv)),
		Line: t.Pos().Line, Col: t.Pos().Col,
	}
}

func (ip *Interpreter) assignIndexed(act *activation, t *CallOrIndexExpr, v Value) error {
	recv, err := ip.eval(act, t.Target)
	if err != nil {
		return err
	}
	tok := t.Pos()
	switch recv.Kind {
	case KindArray:
		idx, err := ip.evalIndices(act, t.Args)
		if err != nil {
			return err
		}
		if err := recv.Data.(*Array).Set(idx, v); err != nil {
			return wrapAt(err, tok)
		}
		return nil
	case KindObject:
		switch o := recv.Data.(type) {
		case *List:
			if len(t.Args) != 1 {
				return &BindError{Msg: "List takes one index", Line: tok.Line, Col: tok.Col}
			}
			iv, err := ip.eval(act, t.Args[0])
			if err != nil {
				return err
			}
			n, err := asLong(iv)
			if err != nil {
				return wrapAt(err, tok)
			}
			if err := o.SetAt(int(n), v); err != nil {
				return wrapAt(err, tok)
			}
			return nil
		case *Dictionary:
			if len(t.Args) != 1 {
				return &BindError{Msg: "Dictionary takes one key", Line: tok.Line, Col: tok.Col}
			}
			kv, err := ip.eval(act, t.Args[0])
			if err != nil {
				return err
			}
			o.Set(displayString(kv), v)
			return nil
		}
	}
	return &BindError{
		Msg:  fmt.Sprintf("%s cannot be assigned by index", TypeNameOf(recv)),
		Line: tok.Line, Col: tok.Col,
	}
}
