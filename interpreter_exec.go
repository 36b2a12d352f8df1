// interpreter_exec.go — statement execution and the call engine.
//
// Control flow travels as a ctrl signal returned from every exec function.
// Return, Exit, Continue, GoTo, Resume, Stop and runtime errors are all
// plain values bubbling up the block tree; nothing here panics. A block
// consumes the signals it can satisfy (a label for GoTo, the loop for
// Exit For) and propagates the rest.
package basil

import (
	"fmt"
	"math"
	"strings"
)

type sigKind int

const (
	sigNone sigKind = iota
	sigReturn
	sigExit
	sigContinue
	sigGoto
	sigError
	sigResume
	sigStop
)

type ctrl struct {
	sig        sigKind
	exitKind   ExitKind
	label      string
	err        error
	resumeMode ResumeMode
}

var ctrlNone = ctrl{}

func ctrlErr(err error) ctrl { return ctrl{sig: sigError, err: err} }

// onErrorState is the unstructured error handling state of one activation.
// Every scope frame of the activation shares the same instance, so a Catch
// body or a handler running in a child frame sees and mutates it.
type onErrorState struct {
	mode       OnErrorMode
	label      string
	armed      bool
	inHandler  bool
	tryDepth   int
	currentExc error
}

// activation is the per-procedure (or per-unit) execution state.
type activation struct {
	ip   *Interpreter
	env  *Env
	fn   *Closure  // nil at module level
	recv *Instance // Me
	eh   *onErrorState
	// the activation's top statement list and its labels, recorded by the
	// first execBlock so On Error handlers and Resume can reach them
	body   []Statement
	labels map[string]int
	// expression context
	withStack []Value
	result    *Cell // function result
	lastValue Value // REPL echo of the last expression statement
}

func newActivation(ip *Interpreter, env *Env) *activation {
	return &activation{ip: ip, env: env, eh: &onErrorState{}, lastValue: Nothing}
}

// inEnv clones the activation for a nested scope frame. The error-handling
// state stays shared through the eh pointer; only the environment changes.
func (act *activation) inEnv(env *Env) *activation {
	dup := *act
	dup.env = env
	return &dup
}

// ---------------------------------------------------------------------------
// Blocks
// ---------------------------------------------------------------------------

// execBlock runs a statement list, resolving GoTo against its own labels
// and applying the activation's unstructured error handling.
func (ip *Interpreter) execBlock(act *activation, stmts []Statement) ctrl {
	labels := blockLabels(stmts)
	if act.body == nil {
		act.body = stmts
		act.labels = labels
	}
	i := 0
	for i < len(stmts) {
		c := ip.execStmt(act, stmts[i])
		switch c.sig {
		case sigNone:
			i++
		case sigGoto:
			if idx, ok := labels[c.label]; ok {
				i = idx + 1
				continue
			}
			return c
		case sigError:
			c = ip.handleError(act, c)
			switch c.sig {
			case sigNone:
				// On Error Resume Next swallows the error
				i++
			case sigResume:
				// the handler ran inline at the error site, so Resume
				// lands back here even inside a nested block
				if c.resumeMode != ResumeRetry {
					i++
				}
			default:
				return c
			}
		default:
			return c
		}
	}
	return ctrlNone
}

func blockLabels(stmts []Statement) map[string]int {
	labels := map[string]int{}
	for i, s := range stmts {
		if l, ok := s.(*LabelStmt); ok {
			labels[l.Name] = i
		}
	}
	return labels
}

// handleError applies On Error state to a failing statement. Inside a Try
// or inside a running handler the error always propagates. In GoTo-label
// mode the handler executes right here rather than unwinding, so a
// subsequent Resume continues at the failing statement wherever it sits.
func (ip *Interpreter) handleError(act *activation, c ctrl) ctrl {
	eh := act.eh
	if !eh.armed || eh.tryDepth > 0 || eh.inHandler {
		return c
	}
	ip.Err.set(c.err)
	eh.currentExc = c.err
	switch eh.mode {
	case OnErrorResumeNext:
		return ctrlNone
	case OnErrorGotoLabel:
		eh.inHandler = true
		hc := ip.runHandler(act)
		if hc.sig == sigResume {
			eh.inHandler = false
			ip.Err.clear()
			eh.currentExc = nil
		}
		return hc
	}
	return c
}

// runHandler executes the activation's handler from its label until a
// Resume, a Return-like exit, an error, or the end of the procedure body
// (which ends the procedure, as falling off End Sub would).
func (ip *Interpreter) runHandler(act *activation) ctrl {
	idx, ok := act.labels[act.eh.label]
	if !ok {
		return ctrlErr(&BindError{
			Msg: fmt.Sprintf("label '%s' is not defined", act.eh.label),
		})
	}
	i := idx + 1
	for i < len(act.body) {
		c := ip.execStmt(act, act.body[i])
		switch c.sig {
		case sigNone:
			i++
		case sigGoto:
			if j, found := act.labels[c.label]; found {
				i = j + 1
				continue
			}
			return c
		default:
			return c
		}
	}
	return ctrl{sig: sigReturn}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (ip *Interpreter) execStmt(act *activation, st Statement) ctrl {
	switch s := st.(type) {
	case *DimStmt:
		return ip.execDim(act, s)
	case *ReDimStmt:
		return ip.execRedim(act, s)
	case *EraseStmt:
		for _, t := range s.Targets {
			if err := ip.assign(act, t, ArrVal(NewArray([]int{0}))); err != nil {
				return ctrlErr(err)
			}
		}
		return ctrlNone
	case *AssignStmt:
		return ip.execAssign(act, s)
	case *ExprStmt:
		v, err := ip.eval(act, s.X)
		if err != nil {
			return ctrlErr(err)
		}
		act.lastValue = v
		return ctrlNone
	case *IfStmt:
		return ip.execIf(act, s)
	case *SelectStmt:
		return ip.execSelect(act, s)
	case *ForStmt:
		return ip.execFor(act, s)
	case *ForEachStmt:
		return ip.execForEach(act, s)
	case *WhileStmt:
		return ip.execWhile(act, s)
	case *DoStmt:
		return ip.execDo(act, s)
	case *ExitStmt:
		if !s.IsReturnLike() {
			return ctrl{sig: sigExit, exitKind: s.Kind}
		}
		return ctrl{sig: sigReturn}
	case *ContinueStmt:
		return ctrl{sig: sigContinue, exitKind: s.Kind}
	case *ReturnStmt:
		if s.Value != nil {
			v, err := ip.eval(act, s.Value)
			if err != nil {
				return ctrlErr(err)
			}
			if act.result != nil {
				act.result.V = v
			}
			act.lastValue = v
		}
		return ctrl{sig: sigReturn}
	case *GotoStmt:
		return ctrl{sig: sigGoto, label: s.Label}
	case *LabelStmt:
		return ctrlNone
	case *OnErrorStmt:
		switch s.Mode {
		case OnErrorGotoZero:
			act.eh.armed = false
			act.eh.label = ""
		default:
			act.eh.armed = true
			act.eh.mode = s.Mode
			act.eh.label = s.Label
		}
		return ctrlNone
	case *ResumeStmt:
		if !act.eh.inHandler {
			return ctrlErr(&BindError{
				Msg: "Resume without error", Line: s.Pos().Line, Col: s.Pos().Col,
			})
		}
		if s.Mode == ResumeLabel {
			act.eh.inHandler = false
			ip.Err.clear()
			act.eh.currentExc = nil
			return ctrl{sig: sigGoto, label: s.Label}
		}
		return ctrl{sig: sigResume, resumeMode: s.Mode}
	case *TryStmt:
		return ip.execTry(act, s)
	case *ThrowStmt:
		return ip.execThrow(act, s)
	case *WithStmt:
		subject, err := ip.eval(act, s.Subject)
		if err != nil {
			return ctrlErr(err)
		}
		act.withStack = append(act.withStack, subject)
		c := ip.execBlock(act, s.Body)
		act.withStack = act.withStack[:len(act.withStack)-1]
		return c
	case *UsingStmt:
		return ip.execUsing(act, s)
	case *AddHandlerStmt:
		return ip.execAddHandler(act, s)
	case *RaiseEventStmt:
		return ip.execRaiseEvent(act, s)
	case *StopStmt:
		ip.halted = true
		return ctrl{sig: sigStop}
	case *OptionStmt, *ImportsStmt:
		return ctrlNone
	case *ProcDecl:
		act.env.Define(s.Name, FuncVal(&Closure{
			Name: s.Name, IsSub: s.IsSub, Params: s.Params,
			Body: s.Body, Env: act.env, Statics: map[string]*Cell{},
		}))
		return ctrlNone
	case *ClassDecl:
		if err := ip.defineClass(s, act.env); err != nil {
			return ctrlErr(err)
		}
		return ctrlNone
	case *ModuleDecl:
		rest, err := ip.bindDeclarations(s.Members, act.env)
		if err != nil {
			return ctrlErr(err)
		}
		return ip.execBlock(act, rest)
	case *EnumDecl:
		if err := ip.defineEnum(s, act.env); err != nil {
			return ctrlErr(err)
		}
		return ctrlNone
	case *InterfaceDecl, *DelegateDecl, *EventDecl, *PropertyDecl:
		return ctrlNone
	}
	return ctrlErr(&BindError{Msg: fmt.Sprintf("statement %T is not executable", st)})
}

// IsReturnLike reports whether the Exit kind leaves the whole procedure.
func (s *ExitStmt) IsReturnLike() bool {
	switch s.Kind {
	case ExitSub, ExitFunction, ExitProperty:
		return true
	}
	return false
}

func (ip *Interpreter) execDim(act *activation, s *DimStmt) ctrl {
	for _, d := range s.Decls {
		if s.Static && act.fn != nil {
			key := foldName(d.Name)
			if cell, ok := act.fn.Statics[key]; ok {
				act.env.DefineCell(d.Name, cell)
				continue
			}
			v, err := ip.initialFieldValue(act, d)
			if err != nil {
				return ctrlErr(err)
			}
			cell := act.env.Define(d.Name, v)
			act.fn.Statics[key] = cell
			continue
		}
		v, err := ip.initialFieldValue(act, d)
		if err != nil {
			return ctrlErr(err)
		}
		if s.Const {
			act.env.DefineConst(d.Name, v)
		} else {
			act.env.Define(d.Name, v)
		}
	}
	return ctrlNone
}

// allocArray sizes a new array from upper-bound expressions; each dimension
// holds indices 0..bound.
func (ip *Interpreter) allocArray(act *activation, bounds []Expression) (Value, error) {
	if len(bounds) == 0 {
		return ArrVal(NewArray([]int{0})), nil
	}
	dims := make([]int, len(bounds))
	for i, b := range bounds {
		v, err := ip.eval(act, b)
		if err != nil {
			return Nothing, err
		}
		n, err := asLong(v)
		if err != nil {
			return Nothing, err
		}
		if n < -1 {
			return Nothing, &BindError{Msg: fmt.Sprintf("array bound must not be negative: %d", n)}
		}
		dims[i] = int(n) + 1
	}
	return ArrVal(NewArray(dims)), nil
}

func (ip *Interpreter) execRedim(act *activation, s *ReDimStmt) ctrl {
	call := s.Target.(*CallOrIndexExpr)
	next, err := ip.allocArray(act, call.Args)
	if err != nil {
		return ctrlErr(err)
	}
	if s.Preserve {
		old, evalErr := ip.eval(act, call.Target)
		if evalErr == nil && old.Kind == KindArray {
			copyArrayInto(old.Data.(*Array), next.Data.(*Array))
		}
	}
	if err := ip.assign(act, call.Target, next); err != nil {
		return ctrlErr(err)
	}
	return ctrlNone
}

// copyArrayInto moves the overlapping region of src into dst, index by
// index, so Preserve keeps element positions across a reshape.
func copyArrayInto(src, dst *Array) {
	if len(src.Dims) != len(dst.Dims) {
		return
	}
	min := make([]int, len(src.Dims))
	for i := range min {
		min[i] = src.Dims[i]
		if dst.Dims[i] < min[i] {
			min[i] = dst.Dims[i]
		}
	}
	idx := make([]int, len(min))
	for {
		v, _ := src.At(idx)
		_ = dst.Set(idx, v)
		d := len(idx) - 1
		for d >= 0 {
			idx[d]++
			if idx[d] < min[d] {
				break
			}
			idx[d] = 0
			d--
		}
		if d < 0 {
			return
		}
	}
}

func (ip *Interpreter) execAssign(act *activation, s *AssignStmt) ctrl {
	v, err := ip.eval(act, s.Value)
	if err != nil {
		return ctrlErr(err)
	}
	if s.Op != ASSIGN {
		cur, err := ip.eval(act, s.Target)
		if err != nil {
			return ctrlErr(err)
		}
		v, err = ip.binaryOp(compoundBase(s.Op), cur, v, s.Pos())
		if err != nil {
			return ctrlErr(err)
		}
	}
	// structures copy on assignment
	if inst, ok := asInstance(v); ok && inst.Class.IsStructure {
		v = ObjVal(inst.clone())
	}
	if err := ip.assign(act, s.Target, v); err != nil {
		return ctrlErr(err)
	}
	return ctrlNone
}

func compoundBase(op TokenType) TokenType {
	switch op {
	case PLUS_EQ:
		return PLUS
	case MINUS_EQ:
		return MINUS
	case STAR_EQ:
		return STAR
	case SLASH_EQ:
		return SLASH
	case BSLASH_EQ:
		return BACKSLASH
	case AMP_EQ:
		return AMP
	case CARET_EQ:
		return CARET
	}
	return op
}

func asInstance(v Value) (*Instance, bool) {
	if v.Kind != KindObject {
		return nil, false
	}
	inst, ok := v.Data.(*Instance)
	return inst, ok
}

func (ip *Interpreter) execIf(act *activation, s *IfStmt) ctrl {
	cond, err := ip.eval(act, s.Cond)
	if err != nil {
		return ctrlErr(err)
	}
	b, err := truthy(cond)
	if err != nil {
		return ctrlErr(wrapAt(err, s.Pos()))
	}
	if b {
		return ip.execBlock(act, s.Then)
	}
	for _, ei := range s.ElseIfs {
		cond, err := ip.eval(act, ei.Cond)
		if err != nil {
			return ctrlErr(err)
		}
		b, err := truthy(cond)
		if err != nil {
			return ctrlErr(wrapAt(err, s.Pos()))
		}
		if b {
			return ip.execBlock(act, ei.Body)
		}
	}
	if s.Else != nil {
		return ip.execBlock(act, s.Else)
	}
	return ctrlNone
}

func (ip *Interpreter) execSelect(act *activation, s *SelectStmt) ctrl {
	subject, err := ip.eval(act, s.Subject)
	if err != nil {
		return ctrlErr(err)
	}
	var elseBlock *CaseBlock
	for _, blk := range s.Cases {
		if len(blk.Clauses) == 0 {
			elseBlock = blk
			continue
		}
		for _, cl := range blk.Clauses {
			hit, err := ip.caseMatches(act, subject, cl)
			if err != nil {
				return ctrlErr(err)
			}
			if hit {
				c := ip.execBlock(act, blk.Body)
				if c.sig == sigExit && c.exitKind == ExitSelect {
					return ctrlNone
				}
				return c
			}
		}
	}
	if elseBlock != nil {
		c := ip.execBlock(act, elseBlock.Body)
		if c.sig == sigExit && c.exitKind == ExitSelect {
			return ctrlNone
		}
		return c
	}
	return ctrlNone
}

func (ip *Interpreter) caseMatches(act *activation, subject Value, cl *CaseClause) (bool, error) {
	x, err := ip.eval(act, cl.X)
	if err != nil {
		return false, err
	}
	switch cl.Kind {
	case CaseValue:
		return valuesEqual(subject, x), nil
	case CaseRange:
		hi, err := ip.eval(act, cl.Hi)
		if err != nil {
			return false, err
		}
		lo, err := compareValues(subject, x)
		if err != nil {
			return false, err
		}
		up, err := compareValues(subject, hi)
		if err != nil {
			return false, err
		}
		return lo >= 0 && up <= 0, nil
	case CaseIs:
		cmp, err := compareValues(subject, x)
		if err != nil {
			return false, err
		}
		switch cl.Op {
		case ASSIGN:
			return cmp == 0, nil
		case NOT_EQ:
			return cmp != 0, nil
		case LESS:
			return cmp < 0, nil
		case LESS_EQ:
			return cmp <= 0, nil
		case GREATER:
			return cmp > 0, nil
		case GREATER_EQ:
			return cmp >= 0, nil
		}
	}
	return false, nil
}

// loopSignal folds a body signal for loop statements: Exit of the matching
// kind ends the loop, Continue advances, everything else propagates.
func loopSignal(c ctrl, kind ExitKind) (stop bool, out ctrl, propagate bool) {
	switch c.sig {
	case sigNone:
		return false, ctrlNone, false
	case sigExit:
		if c.exitKind == kind {
			return true, ctrlNone, false
		}
	case sigContinue:
		if c.exitKind == kind {
			return false, ctrlNone, false
		}
	}
	return true, c, true
}

func (ip *Interpreter) execFor(act *activation, s *ForStmt) ctrl {
	fromV, err := ip.eval(act, s.From)
	if err != nil {
		return ctrlErr(err)
	}
	toV, err := ip.eval(act, s.To)
	if err != nil {
		return ctrlErr(err)
	}
	step := 1.0
	integral := fromV.isIntegral() && toV.isIntegral()
	if s.Step != nil {
		stepV, err := ip.eval(act, s.Step)
		if err != nil {
			return ctrlErr(err)
		}
		integral = integral && stepV.isIntegral()
		step, err = asDouble(stepV)
		if err != nil {
			return ctrlErr(wrapAt(err, s.Pos()))
		}
	}
	from, err := asDouble(fromV)
	if err != nil {
		return ctrlErr(wrapAt(err, s.Pos()))
	}
	to, err := asDouble(toV)
	if err != nil {
		return ctrlErr(wrapAt(err, s.Pos()))
	}

	cell, ok := act.env.Lookup(s.Var)
	if !ok {
		cell = act.env.Define(s.Var, Nothing)
	}
	store := func(f float64) {
		if integral {
			cell.V = LngVal(int64(f)).normalizeInt()
		} else {
			cell.V = DblVal(f)
		}
	}
	for v := from; (step >= 0 && v <= to) || (step < 0 && v >= to); v += step {
		store(v)
		c := ip.execBlock(act, s.Body)
		if stop, out, prop := loopSignal(c, ExitFor); stop {
			if prop {
				return out
			}
			return ctrlNone
		}
		// the body may write the counter; pick the change up
		cur, convErr := asDouble(cell.V)
		if convErr == nil {
			v = cur
		}
	}
	return ctrlNone
}

// normalizeInt narrows a Long back to Integer when it fits, keeping literal
// arithmetic in the smaller kind.
func (v Value) normalizeInt() Value {
	if v.Kind != KindLong {
		return v
	}
	n := v.Data.(int64)
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		return IntVal(n)
	}
	return v
}

func (ip *Interpreter) execForEach(act *activation, s *ForEachStmt) ctrl {
	iter, err := ip.eval(act, s.Iter)
	if err != nil {
		return ctrlErr(err)
	}
	items, err := iterableItems(iter)
	if err != nil {
		return ctrlErr(wrapAt(err, s.Pos()))
	}
	cell, ok := act.env.Lookup(s.Var)
	if !ok {
		cell = act.env.Define(s.Var, Nothing)
	}
	for _, item := range items {
		cell.V = item
		c := ip.execBlock(act, s.Body)
		if stop, out, prop := loopSignal(c, ExitFor); stop {
			if prop {
				return out
			}
			return ctrlNone
		}
	}
	return ctrlNone
}

// iterableItems snapshots an enumerable value into a slice, so mutation
// during the loop cannot shift the walk.
func iterableItems(v Value) ([]Value, error) {
	switch v.Kind {
	case KindArray:
		a := v.Data.(*Array)
		out := make([]Value, len(a.Elems))
		copy(out, a.Elems)
		return out, nil
	case KindString:
		s := v.Data.(string)
		out := make([]Value, 0, len(s))
		for _, r := range s {
			out = append(out, StrVal(string(r)))
		}
		return out, nil
	case KindObject:
		switch o := v.Data.(type) {
		case *List:
			out := make([]Value, len(o.Items))
			copy(out, o.Items)
			return out, nil
		case *Dictionary:
			return o.Pairs(), nil
		case *Queue:
			out := make([]Value, len(o.Items))
			copy(out, o.Items)
			return out, nil
		case *Stack:
			out := make([]Value, len(o.Items))
			copy(out, o.Items)
			return out, nil
		case *HashSet:
			out := make([]Value, len(o.Items))
			copy(out, o.Items)
			return out, nil
		case *Group:
			out := make([]Value, len(o.Items.Items))
			copy(out, o.Items.Items)
			return out, nil
		}
	}
	return nil, fmt.Errorf("%s is not enumerable", TypeNameOf(v))
}

func (ip *Interpreter) execWhile(act *activation, s *WhileStmt) ctrl {
	for {
		cond, err := ip.eval(act, s.Cond)
		if err != nil {
			return ctrlErr(err)
		}
		b, err := truthy(cond)
		if err != nil {
			return ctrlErr(wrapAt(err, s.Pos()))
		}
		if !b {
			return ctrlNone
		}
		c := ip.execBlock(act, s.Body)
		if stop, out, prop := loopSignal(c, ExitWhile); stop {
			if prop {
				return out
			}
			return ctrlNone
		}
	}
}

func (ip *Interpreter) execDo(act *activation, s *DoStmt) ctrl {
	test := func() (bool, error) {
		if s.Cond == nil {
			return true, nil
		}
		cond, err := ip.eval(act, s.Cond)
		if err != nil {
			return false, err
		}
		b, err := truthy(cond)
		if err != nil {
			return false, wrapAt(err, s.Pos())
		}
		if s.Until {
			return !b, nil
		}
		return b, nil
	}
	for {
		if s.PreTest {
			ok, err := test()
			if err != nil {
				return ctrlErr(err)
			}
			if !ok {
				return ctrlNone
			}
		}
		c := ip.execBlock(act, s.Body)
		if stop, out, prop := loopSignal(c, ExitDo); stop {
			if prop {
				return out
			}
			return ctrlNone
		}
		if !s.PreTest {
			ok, err := test()
			if err != nil {
				return ctrlErr(err)
			}
			if !ok {
				return ctrlNone
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Structured exceptions
// ---------------------------------------------------------------------------

// exceptionObject is the script-visible view of a caught error.
type exceptionObject struct {
	typeName string
	message  string
	number   int
}

func (e *exceptionObject) TypeName() string      { return e.typeName }
func (e *exceptionObject) DisplayString() string { return e.typeName + ": " + e.message }

func exceptionFromError(err error) *exceptionObject {
	switch e := err.(type) {
	case *RaisedError:
		name := e.TypeName
		if name == "" {
			name = "Exception"
		}
		return &exceptionObject{typeName: name, message: e.Message, number: e.Number}
	case *BindError:
		return &exceptionObject{typeName: "Exception", message: e.Msg, number: 5}
	}
	return &exceptionObject{typeName: "Exception", message: err.Error(), number: 51}
}

// catchMatches checks the clause's type filter against an exception.
func catchMatches(cl *CatchClause, exc *exceptionObject) bool {
	if cl.TypeName == "" {
		return true
	}
	want := foldName(cl.TypeName)
	if want == "exception" || want == "system.exception" {
		return true
	}
	return foldName(exc.typeName) == want
}

func (ip *Interpreter) execTry(act *activation, s *TryStmt) ctrl {
	act.eh.tryDepth++
	c := ip.execBlock(act, s.Body)
	act.eh.tryDepth--

	if c.sig == sigError {
		exc := exceptionFromError(c.err)
		for _, cl := range s.Catches {
			if !catchMatches(cl, exc) {
				continue
			}
			catchEnv := NewEnv(act.env)
			if cl.Var != "" {
				catchEnv.Define(cl.Var, ObjVal(exc))
			}
			// the caught exception must be visible before the When guard
			// and the body run, so a bare Throw can re-raise it
			prevExc := act.eh.currentExc
			act.eh.currentExc = c.err
			ip.Err.set(c.err)
			catchAct := act.inEnv(catchEnv)
			if cl.When != nil {
				g, err := ip.eval(catchAct, cl.When)
				if err != nil {
					act.eh.currentExc = prevExc
					c = ctrlErr(err)
					break
				}
				hit, err := truthy(g)
				if err != nil || !hit {
					act.eh.currentExc = prevExc
					continue
				}
			}
			c = ip.execBlock(catchAct, cl.Body)
			if c.sig == sigExit && c.exitKind == ExitTry {
				c = ctrlNone
			}
			act.eh.currentExc = prevExc
			break
		}
	} else if c.sig == sigExit && c.exitKind == ExitTry {
		c = ctrlNone
	}

	if s.Finally != nil {
		fc := ip.execBlock(act, s.Finally)
		if fc.sig != sigNone {
			// a signal out of Finally wins over the pending one
			return fc
		}
	}
	return c
}

func (ip *Interpreter) execThrow(act *activation, s *ThrowStmt) ctrl {
	if s.Value == nil {
		if act.eh.currentExc == nil {
			return ctrlErr(&BindError{
				Msg: "Throw without an operand is only valid inside Catch",
				Line: s.Pos().Line, Col: s.Pos().Col,
			})
		}
		return ctrlErr(act.eh.currentExc)
	}
	v, err := ip.eval(act, s.Value)
	if err != nil {
		return ctrlErr(err)
	}
	pos := s.Pos()
	switch v.Kind {
	case KindString:
		return ctrlErr(&RaisedError{
			TypeName: "Exception", Message: v.Data.(string),
			Line: pos.Line, Col: pos.Col,
		})
	case KindObject:
		if exc, ok := v.Data.(*exceptionObject); ok {
			return ctrlErr(&RaisedError{
				TypeName: exc.typeName, Message: exc.message, Number: exc.number,
				Line: pos.Line, Col: pos.Col,
			})
		}
	}
	n, convErr := asLong(v)
	if convErr == nil {
		return ctrlErr(&RaisedError{
			TypeName: "Exception", Number: int(n),
			Message: fmt.Sprintf("error %d", n),
			Line:    pos.Line, Col: pos.Col,
		})
	}
	return ctrlErr(&BindError{
		Msg: fmt.Sprintf("cannot throw a %s", TypeNameOf(v)),
		Line: pos.Line, Col: pos.Col,
	})
}

func (ip *Interpreter) execUsing(act *activation, s *UsingStmt) ctrl {
	v, err := ip.eval(act, s.Init)
	if err != nil {
		return ctrlErr(err)
	}
	env := NewEnv(act.env)
	env.Define(s.Var, v)
	c := ip.execBlock(act.inEnv(env), s.Body)
	// Dispose runs on the way out regardless of how the block ended
	if inst, ok := asInstance(v); ok {
		if m, found := inst.Class.findMethod("dispose"); found {
			if _, derr := ip.callClosure(m.bind(inst), nil, s.Pos()); derr != nil && c.sig == sigNone {
				return ctrlErr(derr)
			}
		}
	}
	return c
}

func (ip *Interpreter) execAddHandler(act *activation, s *AddHandlerStmt) ctrl {
	member := s.Event.(*MemberExpr)
	targetV, err := ip.evalMemberTarget(act, member)
	if err != nil {
		return ctrlErr(err)
	}
	inst, ok := asInstance(targetV)
	if !ok {
		return ctrlErr(&BindError{
			Msg: fmt.Sprintf("%s has no events", TypeNameOf(targetV)),
			Line: s.Pos().Line, Col: s.Pos().Col,
		})
	}
	if _, found := inst.Class.findEvent(member.Name); !found {
		return ctrlErr(&BindError{
			Msg: fmt.Sprintf("'%s' is not an event of '%s'", member.Name, inst.Class.Name),
			Line: s.Pos().Line, Col: s.Pos().Col,
		})
	}
	hv, err := ip.eval(act, s.Handler)
	if err != nil {
		return ctrlErr(err)
	}
	if hv.Kind != KindCallable {
		return ctrlErr(&BindError{
			Msg: "handler must be a Sub or Function reference",
			Line: s.Pos().Line, Col: s.Pos().Col,
		})
	}
	h := hv.Data.(*Closure)
	key := foldName(member.Name)
	if s.Remove {
		list := inst.Handlers[key]
		for i, existing := range list {
			if existing == h || (existing.Name != "" && foldName(existing.Name) == foldName(h.Name)) {
				inst.Handlers[key] = append(list[:i], list[i+1:]...)
				break
			}
		}
		return ctrlNone
	}
	inst.Handlers[key] = append(inst.Handlers[key], h)
	return ctrlNone
}

func (ip *Interpreter) execRaiseEvent(act *activation, s *RaiseEventStmt) ctrl {
	if act.recv == nil {
		return ctrlErr(&BindError{
			Msg: "RaiseEvent is only valid inside a class",
			Line: s.Pos().Line, Col: s.Pos().Col,
		})
	}
	if _, found := act.recv.Class.findEvent(s.Name); !found {
		return ctrlErr(&BindError{
			Msg: fmt.Sprintf("'%s' is not an event of '%s'", s.Name, act.recv.Class.Name),
			Line: s.Pos().Line, Col: s.Pos().Col,
		})
	}
	args := make([]Value, len(s.Args))
	for i, a := range s.Args {
		v, err := ip.eval(act, a)
		if err != nil {
			return ctrlErr(err)
		}
		args[i] = v
	}
	if err := ip.CallHandler(act.recv, s.Name, args); err != nil {
		return ctrlErr(err)
	}
	return ctrlNone
}

// ---------------------------------------------------------------------------
// Procedure calls
// ---------------------------------------------------------------------------

// argVal is one prepared call argument. cell aliases the caller's slot for
// ByRef simple variables; writeBack copies an element/member lvalue back.
type argVal struct {
	v         Value
	cell      *Cell
	writeBack func(Value) error
}

func (ip *Interpreter) callClosure(fn *Closure, args []argVal, tok Token) (Value, error) {
	if ip.callDepth >= maxCallDepth {
		return Nothing, &BindError{
			Msg: "call stack overflow", Line: tok.Line, Col: tok.Col,
		}
	}
	ip.callDepth++
	defer func() { ip.callDepth-- }()

	if fn.Native != nil {
		return ip.callNative(fn, args, tok)
	}

	env := NewEnv(fn.Env)
	if err := ip.bindParams(fn, env, args, tok); err != nil {
		return Nothing, err
	}
	act := newActivation(ip, env)
	act.fn = fn
	act.recv = fn.Recv

	if fn.Expr != nil { // single-line lambda
		v, err := ip.eval(act, fn.Expr)
		if err != nil {
			return Nothing, err
		}
		writeBackRefs(fn, env, args)
		return v, nil
	}

	if !fn.IsSub && fn.Name != "" {
		act.result = env.Define(fn.Name, defaultForType(""))
	} else {
		act.result = &Cell{V: Nothing}
	}

	c := ip.execBlock(act, fn.Body)
	switch c.sig {
	case sigNone, sigReturn, sigStop:
	case sigExit:
		// Exit Sub / Exit Function arrive as sigReturn; a loose loop Exit
		// at procedure level is a structure error
		return Nothing, &BindError{
			Msg: "Exit statement has no enclosing block", Line: tok.Line, Col: tok.Col,
		}
	case sigGoto:
		return Nothing, &BindError{
			Msg: fmt.Sprintf("label '%s' is not defined", c.label), Line: tok.Line, Col: tok.Col,
		}
	case sigError:
		return Nothing, c.err
	case sigResume:
		return Nothing, &BindError{Msg: "Resume without error", Line: tok.Line, Col: tok.Col}
	}
	writeBackRefs(fn, env, args)
	return act.result.V, nil
}

// writeBackRefs copies ByRef element/member arguments back to the caller
// after a successful call.
func writeBackRefs(fn *Closure, env *Env, args []argVal) {
	for i, p := range fn.Params {
		if !p.ByRef || i >= len(args) || args[i].writeBack == nil {
			continue
		}
		if cell, ok := env.Lookup(p.Name); ok {
			_ = args[i].writeBack(cell.V)
		}
	}
}

func (ip *Interpreter) callNative(fn *Closure, args []argVal, tok Token) (Value, error) {
	vals := make([]Value, len(args))
	for i, a := range args {
		vals[i] = a.v
	}
	if fn.MinArgs >= 0 && len(vals) < fn.MinArgs {
		return Nothing, arityError(fn, len(vals), tok)
	}
	if fn.MaxArgs >= 0 && len(vals) > fn.MaxArgs {
		return Nothing, arityError(fn, len(vals), tok)
	}
	c := &CallCtx{Ip: ip, Name: fn.Name, Args: vals, tok: tok}
	v, err := fn.Native(c)
	if err != nil {
		return Nothing, wrapAt(err, tok)
	}
	return v, nil
}

func arityError(fn *Closure, got int, tok Token) error {
	return &BindError{
		Msg:  fmt.Sprintf("wrong number of arguments to '%s': got %d", fn.Name, got),
		Line: tok.Line, Col: tok.Col,
	}
}

// bindParams installs arguments into a fresh call frame. ByVal copies,
// ByRef aliases the caller's cell when one was captured, Optional fills
// defaults and ParamArray collects the tail into an array.
func (ip *Interpreter) bindParams(fn *Closure, env *Env, args []argVal, tok Token) error {
	n := len(fn.Params)
	for i, p := range fn.Params {
		if p.ParamArray {
			if i != n-1 {
				return &BindError{Msg: "ParamArray must be the last parameter", Line: tok.Line, Col: tok.Col}
			}
			tail := len(args) - i
			if tail < 0 {
				tail = 0
			}
			rest := NewArray([]int{tail})
			for j := i; j < len(args); j++ {
				rest.Elems[j-i] = args[j].v
			}
			env.Define(p.Name, ArrVal(rest))
			return nil
		}
		if i < len(args) {
			if p.ByRef && args[i].cell != nil {
				env.DefineCell(p.Name, args[i].cell)
			} else {
				env.Define(p.Name, args[i].v)
			}
			continue
		}
		if !p.Optional {
			return &BindError{
				Msg:  fmt.Sprintf("argument not specified for parameter '%s' of '%s'", p.Name, fn.Name),
				Line: tok.Line, Col: tok.Col,
			}
		}
		if p.Default != nil {
			// defaults evaluate in the call frame, so they can refer to
			// parameters bound before them
			defAct := newActivation(ip, env)
			defAct.fn = fn
			defAct.recv = fn.Recv
			v, err := ip.eval(defAct, p.Default)
			if err != nil {
				return err
			}
			env.Define(p.Name, v)
		} else {
			env.Define(p.Name, defaultForType(p.TypeName))
		}
	}
	if len(args) > n {
		return &BindError{
			Msg:  fmt.Sprintf("too many arguments to '%s': got %d, expected %d", fn.Name, len(args), n),
			Line: tok.Line, Col: tok.Col,
		}
	}
	return nil
}

// wrapAt attaches a source position to position-less runtime errors.
func wrapAt(err error, tok Token) error {
	switch e := err.(type) {
	case *BindError:
		if e.Line == 0 {
			e.Line, e.Col = tok.Line, tok.Col
		}
		return e
	case *RaisedError:
		if e.Line == 0 {
			e.Line, e.Col = tok.Line, tok.Col
		}
		return e
	case *LexError, *ParseError:
		return e
	}
	return &BindError{Msg: strings.TrimPrefix(err.Error(), "runtime error: "), Line: tok.Line, Col: tok.Col}
}
