// interpreter.go — public API surface of the Basil runtime.
//
// The Interpreter owns two well-known scope frames:
//   - Core:   builtin functions and constants (read-only to user code).
//   - Global: user program state (module-level variables, procedures, REPL
//     bindings).
//
// Entry points:
//   - EvalSource parses and runs a source unit in a throwaway child of
//     Global, so the persistent state is untouched unless the program
//     explicitly writes to an outer name.
//   - EvalPersistentSource runs in Global itself (REPL semantics).
//   - LoadProgram binds a unit's declarations into Global without running
//     statements; Run then invokes Main (or the unit's top-level code).
//   - Apply calls a callable value with prepared arguments.
//   - RegisterNative installs a host function under a case-insensitive name.
//
// All entry points return explicit errors; user-level failures are
// *BindError or *RaisedError and never escape as panics.
package basil

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

// maxCallDepth bounds script recursion before the evaluator reports a
// stack overflow error.
const maxCallDepth = 4000

// NativeImpl is the host implementation of a builtin function.
type NativeImpl func(c *CallCtx) (Value, error)

// CallCtx carries one native invocation: positional arguments (already
// evaluated), the receiver for method-style dispatch, and the interpreter
// for natives that call back into script code.
type CallCtx struct {
	Ip   *Interpreter
	Name string
	Args []Value
	Recv Value
	tok  Token
}

// Arg returns the i-th argument or Nothing when absent.
func (c *CallCtx) Arg(i int) Value {
	if i < 0 || i >= len(c.Args) {
		return Nothing
	}
	return c.Args[i]
}

// Str coerces the i-th argument to its display string.
func (c *CallCtx) Str(i int) string { return displayString(c.Arg(i)) }

// Int coerces the i-th argument to int64.
func (c *CallCtx) Int(i int) (int64, error) { return asLong(c.Arg(i)) }

// Float coerces the i-th argument to float64.
func (c *CallCtx) Float(i int) (float64, error) { return asDouble(c.Arg(i)) }

/// Closure is a callable value: a user procedure, a lambda, a bound method
// or a registered native.
type Closure struct {
	Name    string
	IsSub   bool
	Params  []*Param
	Expr    Expression  // single-line lambda body
	Body    []Statement // block body
	Env     *Env        // defining scope, captured by reference
	Recv    *Instance   // bound receiver for methods
	Statics map[string]*Cell
	Native  NativeImpl
	MinArgs int // natives: required arity (-1 disables the check)
	MaxArgs int // natives: maximum arity (-1 means variadic)
}

// bind returns a copy of the closure bound to a receiver. Statics stay
// shared: they belong to the declaration, not the instance.
func (f *Closure) bind(recv *Instance) *Closure {
	b := *f
	b.Recv = recv
	return &b
}

// ErrState is the mutable Err object visible to scripts.
type ErrState struct {
	Number      int
	Description string
	Source      string
	Line        int
	Col         int
}

func (e *ErrState) TypeName() string { return "ErrObject" }

func (e *ErrState) clear() { *e = ErrState{} }

func (e *ErrState) set(err error) {
	e.clear()
	switch re := err.(type) {
	case *RaisedError:
		e.Number = re.Number
		e.Description = re.Message
		e.Source = re.Source
		e.Line, e.Col = re.Line, re.Col
	case *BindError:
		e.Number = 5 // invalid procedure call or argument
		e.Description = re.Msg
		e.Line, e.Col = re.Line, re.Col
	default:
		e.Number = 51 // internal error
		e.Description = err.Error()
	}
}

// Interpreter is the tree-walking evaluator plus its registries.
type Interpreter struct {
	Core   *Env
	Global *Env

	classes map[string]*ClassInfo
	methods map[string]map[string]NativeImpl // receiver type -> member -> impl
	props   map[string]map[string]NativeImpl // receiver type -> property -> impl

	Err *ErrState

	Stdout io.Writer
	Stderr io.Writer
	stdin  *bufio.Reader

	rng       *rand.Rand
	callDepth int
	halted    bool
}

// NewInterpreter builds a runtime with the full builtin surface installed.
func NewInterpreter() *Interpreter {
	ip := &Interpreter{
		classes: map[string]*ClassInfo{},
		methods: map[string]map[string]NativeImpl{},
		props:   map[string]map[string]NativeImpl{},
		Err:     &ErrState{},
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		stdin:   bufio.NewReader(os.Stdin),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	ip.Core = NewEnv(nil)
	ip.Global = NewEnv(ip.Core)

	registerCoreBuiltins(ip)
	registerStringBuiltins(ip)
	registerMathBuiltins(ip)
	registerConvBuiltins(ip)
	registerDateTimeBuiltins(ip)
	registerInfoBuiltins(ip)
	registerConsoleBuiltins(ip)
	registerFileBuiltins(ip)
	registerMiscBuiltins(ip)
	registerCollectionMethods(ip)
	registerQueryMethods(ip)
	return ip
}

// SetStdin replaces the reader behind Input/ReadLine.
func (ip *Interpreter) SetStdin(r io.Reader) { ip.stdin = bufio.NewReader(r) }

// reseed replaces the Rnd stream with a deterministic sequence.
func (ip *Interpreter) reseed(seed int64) { ip.rng = rand.New(rand.NewSource(seed)) }

// Seed is the public form of reseed, for embedders that need reproducible
// Rnd output.
func (ip *Interpreter) Seed(seed int64) { ip.reseed(seed) }

// SetScriptArgs exposes the entry script path and its arguments to scripts
// as ScriptPath and CommandArgs.
func (ip *Interpreter) SetScriptArgs(path string, args []string) {
	ip.Global.DefineConst("ScriptPath", StrVal(path))
	arr := NewArray([]int{len(args)})
	for i, a := range args {
		arr.Elems[i] = StrVal(a)
	}
	ip.Global.DefineConst("CommandArgs", ArrVal(arr))
}

// RegisterNative installs impl as a callable named name. minArgs/maxArgs
// bound the accepted positional arity; maxArgs -1 means variadic.
func (ip *Interpreter) RegisterNative(name string, minArgs, maxArgs int, impl NativeImpl) {
	fn := &Closure{Name: name, Native: impl, MinArgs: minArgs, MaxArgs: maxArgs}
	ip.Core.Define(name, FuncVal(fn))
}

// RegisterMethod installs a member implementation for values whose type
// name is typeName (List, Dictionary, String, ...).
func (ip *Interpreter) RegisterMethod(typeName, member string, impl NativeImpl) {
	key := foldName(typeName)
	tbl := ip.methods[key]
	if tbl == nil {
		tbl = map[string]NativeImpl{}
		ip.methods[key] = tbl
	}
	tbl[foldName(member)] = impl
}

// RegisterProp installs a parameterless member read for a receiver type
// (Count, Length, Keys, ...).
func (ip *Interpreter) RegisterProp(typeName, member string, impl NativeImpl) {
	key := foldName(typeName)
	tbl := ip.props[key]
	if tbl == nil {
		tbl = map[string]NativeImpl{}
		ip.props[key] = tbl
	}
	tbl[foldName(member)] = impl
}

func (ip *Interpreter) lookupProp(typeName, member string) (NativeImpl, bool) {
	tbl, ok := ip.props[foldName(typeName)]
	if !ok {
		return nil, false
	}
	impl, ok := tbl[foldName(member)]
	return impl, ok
}

// lookupMethod resolves a member implementation for a receiver type.
func (ip *Interpreter) lookupMethod(typeName, member string) (NativeImpl, bool) {
	tbl, ok := ip.methods[foldName(typeName)]
	if !ok {
		return nil, false
	}
	impl, ok := tbl[foldName(member)]
	return impl, ok
}

// ---------------------------------------------------------------------------
// Evaluation entry points
// ---------------------------------------------------------------------------

// EvalSource parses and executes src in a fresh child of Global, returning
// the value of the last expression statement.
func (ip *Interpreter) EvalSource(src string) (Value, error) {
	stmts, err := ParseProgram(src)
	if err != nil {
		return Nothing, err
	}
	return ip.evalUnit(stmts, NewEnv(ip.Global))
}

// EvalPersistentSource parses and executes src directly in Global, so
// bindings persist across calls (REPL semantics).
func (ip *Interpreter) EvalPersistentSource(src string) (Value, error) {
	stmts, err := ParseInteractive(src)
	if err != nil {
		return Nothing, err
	}
	return ip.evalUnit(stmts, ip.Global)
}

// evalUnit hoists declarations, then executes the remaining statements.
func (ip *Interpreter) evalUnit(stmts []Statement, env *Env) (Value, error) {
	rest, err := ip.bindDeclarations(stmts, env)
	if err != nil {
		return Nothing, err
	}
	act := newActivation(ip, env)
	c := ip.execBlock(act, rest)
	switch c.sig {
	case sigError:
		return Nothing, c.err
	case sigGoto:
		return Nothing, &BindError{Msg: fmt.Sprintf("label '%s' is not defined", c.label)}
	case sigResume:
		return Nothing, &BindError{Msg: "Resume without error"}
	case sigStop, sigNone, sigReturn:
		return act.lastValue, nil
	}
	return act.lastValue, nil
}

// LoadProgram binds the declarations of a source unit into Global and runs
// its module-level statements.
func (ip *Interpreter) LoadProgram(src string) error {
	_, err := ip.EvalPersistentSourceStrict(src)
	return err
}

// EvalPersistentSourceStrict is EvalPersistentSource without the REPL's
// incomplete-input probing.
func (ip *Interpreter) EvalPersistentSourceStrict(src string) (Value, error) {
	stmts, err := ParseProgram(src)
	if err != nil {
		return Nothing, err
	}
	return ip.evalUnit(stmts, ip.Global)
}

// LoadModules parses every source unit concurrently (parsing is pure), then
// binds and runs them in argument order so partial classes merge
// deterministically.
func (ip *Interpreter) LoadModules(sources ...string) error {
	parsed := make([][]Statement, len(sources))
	var eg errgroup.Group
	for i, src := range sources {
		i, src := i, src
		eg.Go(func() error {
			stmts, err := ParseProgram(src)
			if err != nil {
				return err
			}
			parsed[i] = stmts
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	for _, stmts := range parsed {
		if _, err := ip.evalUnit(stmts, ip.Global); err != nil {
			return err
		}
	}
	return nil
}

// Run loads src and invokes its Main procedure when one is defined.
func (ip *Interpreter) Run(src string) error {
	if err := ip.LoadProgram(src); err != nil {
		return err
	}
	if ip.halted {
		return nil
	}
	cell, ok := ip.Global.Lookup("main")
	if !ok || cell.V.Kind != KindCallable {
		return nil
	}
	_, err := ip.Apply(cell.V, nil)
	return err
}

// Apply calls a callable value with already-evaluated arguments.
func (ip *Interpreter) Apply(fn Value, args []Value) (Value, error) {
	if fn.Kind != KindCallable {
		return Nothing, &BindError{Msg: fmt.Sprintf("%s is not callable", TypeNameOf(fn))}
	}
	prepared := make([]argVal, len(args))
	for i, a := range args {
		prepared[i] = argVal{v: a}
	}
	return ip.callClosure(fn.Data.(*Closure), prepared, Token{})
}

// bindDeclarations installs procedures, classes, modules and enums from a
// statement list, returning the statements that remain to execute. Partial
// classes merge into a previously seen declaration of the same name.
func (ip *Interpreter) bindDeclarations(stmts []Statement, env *Env) ([]Statement, error) {
	var rest []Statement
	for _, st := range stmts {
		switch d := st.(type) {
		case *ProcDecl:
			env.Define(d.Name, FuncVal(&Closure{
				Name: d.Name, IsSub: d.IsSub, Params: d.Params,
				Body: d.Body, Env: env, Statics: map[string]*Cell{},
			}))
		case *ClassDecl:
			if err := ip.defineClass(d, env); err != nil {
				return nil, err
			}
		case *ModuleDecl:
			// module members live flat in the defining scope
			inner, err := ip.bindDeclarations(d.Members, env)
			if err != nil {
				return nil, err
			}
			rest = append(rest, inner...)
		case *EnumDecl:
			if err := ip.defineEnum(d, env); err != nil {
				return nil, err
			}
		case *InterfaceDecl, *DelegateDecl:
			// dynamic dispatch needs no binding for these
		default:
			rest = append(rest, st)
		}
	}
	return rest, nil
}

// defineEnum evaluates member expressions eagerly; members without a value
// continue from the previous one.
func (ip *Interpreter) defineEnum(d *EnumDecl, env *Env) error {
	act := newActivation(ip, env)
	obj := NewDictionary()
	next := int64(0)
	for _, m := range d.Members {
		val := next
		if m.Value != nil {
			v, err := ip.eval(act, m.Value)
			if err != nil {
				return err
			}
			n, err := asLong(v)
			if err != nil {
				return err
			}
			val = n
		}
		obj.Set(m.Name, IntVal(val))
		env.DefineConst(d.Name+"."+m.Name, IntVal(val))
		next = val + 1
	}
	env.DefineConst(d.Name, ObjVal(&enumObject{name: d.Name, members: obj}))
	return nil
}

// enumObject exposes enum members through member access.
type enumObject struct {
	name    string
	members *Dictionary
}

func (e *enumObject) TypeName() string { return e.name }

func (e *enumObject) member(name string) (Value, bool) {
	if !e.members.ContainsKey(name) {
		return Nothing, false
	}
	v, _ := e.members.Get(name)
	return v, true
}

// ---------------------------------------------------------------------------
// Classes
// ---------------------------------------------------------------------------

// propInfo is a resolved property: either auto (backed by a field) or a
// getter/setter pair.
type propInfo struct {
	Name     string
	Auto     bool
	Default  Expression
	Get      *Closure
	Set      *Closure
	SetParam string
	Shared   bool
}

// ClassInfo is a merged, resolved class: partial declarations of the same
// name fold into one.
type ClassInfo struct {
	Name        string
	IsStructure bool
	BaseName    string
	Base        *ClassInfo
	Fields      []*DimStmt
	Methods     map[string]*Closure
	Props       map[string]*propInfo
	Events      map[string]*EventDecl
	Shared      *Env // shared fields and method statics
	env         *Env // defining scope for field initializers
	partialSeen bool
}

func (ci *ClassInfo) findMethod(name string) (*Closure, bool) {
	for c := ci; c != nil; c = c.Base {
		if m, ok := c.Methods[foldName(name)]; ok {
			return m, true
		}
	}
	return nil, false
}

func (ci *ClassInfo) findProp(name string) (*propInfo, bool) {
	for c := ci; c != nil; c = c.Base {
		if p, ok := c.Props[foldName(name)]; ok {
			return p, true
		}
	}
	return nil, false
}

func (ci *ClassInfo) findEvent(name string) (*EventDecl, bool) {
	for c := ci; c != nil; c = c.Base {
		if e, ok := c.Events[foldName(name)]; ok {
			return e, true
		}
	}
	return nil, false
}

// isOrInherits reports whether the class or one of its bases is named name.
func (ci *ClassInfo) isOrInherits(name string) bool {
	folded := foldName(name)
	for c := ci; c != nil; c = c.Base {
		if foldName(c.Name) == folded {
			return true
		}
	}
	return false
}

// defineClass registers (or extends, for Partial) a class declaration.
func (ip *Interpreter) defineClass(d *ClassDecl, env *Env) error {
	key := foldName(d.Name)
	ci, exists := ip.classes[key]
	if exists && !d.Partial && !ci.partialSeen {
		return &BindError{Msg: fmt.Sprintf("type '%s' is already declared", d.Name)}
	}
	if !exists {
		ci = &ClassInfo{
			Name:        d.Name,
			IsStructure: d.IsStructure,
			Methods:     map[string]*Closure{},
			Props:       map[string]*propInfo{},
			Events:      map[string]*EventDecl{},
			Shared:      NewEnv(env),
			env:         env,
		}
		ip.classes[key] = ci
	}
	ci.partialSeen = ci.partialSeen || d.Partial
	if d.Inherits != "" {
		ci.BaseName = d.Inherits
		if base, ok := ip.classes[foldName(d.Inherits)]; ok {
			ci.Base = base
		} else {
			return &BindError{Msg: fmt.Sprintf("type '%s' is not defined", d.Inherits)}
		}
	}
	ci.Fields = append(ci.Fields, d.Fields...)
	for _, m := range d.Methods {
		ci.Methods[foldName(m.Name)] = &Closure{
			Name: m.Name, IsSub: m.IsSub, Params: m.Params,
			Body: m.Body, Env: env, Statics: map[string]*Cell{},
		}
	}
	for _, pr := range d.Props {
		pi := &propInfo{Name: pr.Name, Auto: pr.Auto, Default: pr.Default, Shared: pr.Shared}
		if pr.GetBody != nil {
			pi.Get = &Closure{Name: pr.Name, Body: pr.GetBody, Env: env, Statics: map[string]*Cell{}}
		}
		if pr.SetBody != nil {
			pi.Set = &Closure{
				Name: pr.Name, IsSub: true, Body: pr.SetBody, Env: env,
				Params:  []*Param{{Name: pr.SetParam}},
				Statics: map[string]*Cell{},
			}
			pi.SetParam = pr.SetParam
		}
		ci.Props[foldName(pr.Name)] = pi
	}
	for _, ev := range d.Events {
		ci.Events[foldName(ev.Name)] = ev
	}
	// shared fields initialize once, at declaration time
	for _, f := range d.Fields {
		if !f.Shared {
			continue
		}
		act := newActivation(ip, ci.Shared)
		for _, decl := range f.Decls {
			v, err := ip.initialFieldValue(act, decl)
			if err != nil {
				return err
			}
			ci.Shared.Define(decl.Name, v)
		}
	}
	return nil
}

// Instance is one object of a script-defined class. Fields are cells so
// ByRef can alias them.
type Instance struct {
	Class    *ClassInfo
	Fields   map[string]*Cell
	Handlers map[string][]*Closure
}

func (in *Instance) TypeName() string { return in.Class.Name }

func (in *Instance) field(name string) (*Cell, bool) {
	c, ok := in.Fields[foldName(name)]
	return c, ok
}

// clone shallow-copies the instance; structures copy on assignment.
func (in *Instance) clone() *Instance {
	dup := &Instance{
		Class:    in.Class,
		Fields:   make(map[string]*Cell, len(in.Fields)),
		Handlers: map[string][]*Closure{},
	}
	for k, c := range in.Fields {
		dup.Fields[k] = &Cell{V: c.V}
	}
	return dup
}

// newInstance allocates an instance, runs field initializers, then the
// constructor (Sub New) when one exists.
func (ip *Interpreter) newInstance(ci *ClassInfo, args []argVal, tok Token) (Value, error) {
	inst := &Instance{Class: ci, Fields: map[string]*Cell{}, Handlers: map[string][]*Closure{}}
	for c := ci; c != nil; c = c.Base {
		act := newActivation(ip, c.env)
		act.recv = inst
		for _, f := range c.Fields {
			if f.Shared {
				continue
			}
			for _, decl := range f.Decls {
				v, err := ip.initialFieldValue(act, decl)
				if err != nil {
					return Nothing, err
				}
				inst.Fields[foldName(decl.Name)] = &Cell{V: v}
			}
		}
		// auto-property backing fields
		for _, pi := range c.Props {
			if !pi.Auto {
				continue
			}
			v := Nothing
			if pi.Default != nil {
				dv, err := ip.eval(act, pi.Default)
				if err != nil {
					return Nothing, err
				}
				v = dv
			}
			inst.Fields[foldName(pi.Name)] = &Cell{V: v}
		}
	}
	if ctor, ok := ci.findMethod("new"); ok {
		if _, err := ip.callClosure(ctor.bind(inst), args, tok); err != nil {
			return Nothing, err
		}
	} else if len(args) > 0 {
		return Nothing, &BindError{
			Msg:  fmt.Sprintf("type '%s' has no constructor taking %d argument(s)", ci.Name, len(args)),
			Line: tok.Line, Col: tok.Col,
		}
	}
	return ObjVal(inst), nil
}

func (ip *Interpreter) initialFieldValue(act *activation, decl *VarDecl) (Value, error) {
	if decl.Init != nil {
		v, err := ip.eval(act, decl.Init)
		if err != nil {
			return Nothing, err
		}
		// structures copy on initialization, same as on assignment
		if inst, ok := asInstance(v); ok && inst.Class.IsStructure {
			v = ObjVal(inst.clone())
		}
		return v, nil
	}
	if len(decl.Bounds) > 0 {
		return ip.allocArray(act, decl.Bounds)
	}
	return defaultForType(decl.TypeName), nil
}

// defaultForType yields the zero value of a declared type; untyped slots
// start as Nothing.
func defaultForType(typeName string) Value {
	switch foldName(typeName) {
	case "integer", "short", "byte":
		return IntVal(0)
	case "long":
		return LngVal(0)
	case "double", "single", "decimal":
		return DblVal(0)
	case "string":
		return StrVal("")
	case "boolean":
		return BoolVal(false)
	case "date":
		return DateVal(0)
	}
	return Nothing
}

// CallHandler invokes every handler attached to an instance event.
func (ip *Interpreter) CallHandler(inst *Instance, event string, args []Value) error {
	for _, h := range inst.Handlers[foldName(event)] {
		prepared := make([]argVal, len(args))
		for i, a := range args {
			prepared[i] = argVal{v: a}
		}
		if _, err := ip.callClosure(h, prepared, Token{}); err != nil {
			return err
		}
	}
	return nil
}
