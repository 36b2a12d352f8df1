package basil

// The syntax tree is immutable once built. Every node keeps the token that
// introduced it so runtime errors can point back into the source.

// Node is the common interface of all syntax-tree nodes.
type Node interface {
	Pos() Token
}

// Statement nodes execute for effect; Expression nodes produce a Value.
type Statement interface {
	Node
	stmtNode()
}

type Expression interface {
	Node
	exprNode()
}

type node struct{ Tok Token }

func (n node) Pos() Token { return n.Tok }

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// LiteralExpr carries an already-built runtime Value (numbers, strings,
// booleans, dates, Nothing).
type LiteralExpr struct {
	node
	Val Value
}

type IdentExpr struct {
	node
	Name string
}

// MeExpr / MyBaseExpr refer to the receiver inside class members.
type MeExpr struct{ node }
type MyBaseExpr struct{ node }

type BinaryExpr struct {
	node
	Op    TokenType
	Left  Expression
	Right Expression
}

type UnaryExpr struct {
	node
	Op      TokenType // MINUS, PLUS or KwNot
	Operand Expression
}

// CallOrIndexExpr is `target(args...)`. VB syntax cannot distinguish a call
// from an array index at parse time; the evaluator decides by target kind.
type CallOrIndexExpr struct {
	node
	Target Expression
	Args   []Expression
}

// MemberExpr is `target.Name`. A nil Target is the leading-dot form inside a
// With block.
type MemberExpr struct {
	node
	Target Expression
	Name   string
}

type Param struct {
	Name       string
	TypeName   string
	ByRef      bool
	Optional   bool
	Default    Expression
	ParamArray bool
}

// LambdaExpr covers both single-line (Expr set) and block bodies (Body set).
type LambdaExpr struct {
	node
	IsSub  bool
	Params []*Param
	Expr   Expression
	Body   []Statement
}

// NewExpr instantiates a class or a built-in collection type. Generic
// arguments like (Of String) are parsed and ignored; the runtime is dynamic.
type NewExpr struct {
	node
	TypeName string
	Args     []Expression
}

// ArrayLit is a brace initializer: {1, 2, 3}.
type ArrayLit struct {
	node
	Elems []Expression
}

// InterpPart is one segment of an interpolated string: either literal Text or
// an embedded expression with optional alignment and format.
type InterpPart struct {
	Text   string
	Expr   Expression
	Align  int
	Format string
}

type InterpExpr struct {
	node
	Parts []InterpPart
}

// IifExpr is the If(cond, a, b) operator; only the taken branch evaluates.
type IifExpr struct {
	node
	Cond      Expression
	WhenTrue  Expression
	WhenFalse Expression
}

// TypeOfExpr is `TypeOf x Is T` (or IsNot with Negated).
type TypeOfExpr struct {
	node
	Operand  Expression
	TypeName string
	Negated  bool
}

type AddressOfExpr struct {
	node
	Target Expression
}

type AwaitExpr struct {
	node
	Operand Expression
}

func (*LiteralExpr) exprNode()     {}
func (*IdentExpr) exprNode()       {}
func (*MeExpr) exprNode()          {}
func (*MyBaseExpr) exprNode()      {}
func (*BinaryExpr) exprNode()      {}
func (*UnaryExpr) exprNode()       {}
func (*CallOrIndexExpr) exprNode() {}
func (*MemberExpr) exprNode()      {}
func (*LambdaExpr) exprNode()      {}
func (*NewExpr) exprNode()         {}
func (*ArrayLit) exprNode()        {}
func (*InterpExpr) exprNode()      {}
func (*IifExpr) exprNode()         {}
func (*TypeOfExpr) exprNode()      {}
func (*AddressOfExpr) exprNode()   {}
func (*AwaitExpr) exprNode()       {}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// VarDecl is one declarator of a Dim/Const/Static statement.
type VarDecl struct {
	Name     string
	TypeName string
	Bounds   []Expression // array upper bounds, e.g. Dim a(2, 3)
	Init     Expression
}

type DimStmt struct {
	node
	Static bool
	Const  bool
	Shared bool // field context only
	Public bool // field context only
	Decls  []*VarDecl
}

type ReDimStmt struct {
	node
	Preserve bool
	Target   Expression // CallOrIndexExpr carrying the new bounds
}

type EraseStmt struct {
	node
	Targets []Expression
}

// AssignStmt covers "=" and the compound forms (+=, &=, ...).
type AssignStmt struct {
	node
	Op     TokenType
	Target Expression
	Value  Expression
}

// ExprStmt is a call (or any expression in REPL position) used as a statement.
type ExprStmt struct {
	node
	X Expression
}

type ElseIfClause struct {
	Cond Expression
	Body []Statement
}

type IfStmt struct {
	node
	Cond    Expression
	Then    []Statement
	ElseIfs []*ElseIfClause
	Else    []Statement
}

type CaseClauseKind int

const (
	CaseValue CaseClauseKind = iota // Case expr
	CaseRange                       // Case a To b
	CaseIs                          // Case Is <op> expr
)

type CaseClause struct {
	Kind CaseClauseKind
	X    Expression
	Hi   Expression // CaseRange upper bound
	Op   TokenType  // CaseIs comparison operator
}

type CaseBlock struct {
	Clauses []*CaseClause // empty means Case Else
	Body    []Statement
}

type SelectStmt struct {
	node
	Subject Expression
	Cases   []*CaseBlock
}

type ForStmt struct {
	node
	Var  string
	From Expression
	To   Expression
	Step Expression // nil means 1
	Body []Statement
}

type ForEachStmt struct {
	node
	Var  string
	Iter Expression
	Body []Statement
}

type WhileStmt struct {
	node
	Cond Expression
	Body []Statement
}

// DoStmt: PreTest selects Do While/Until ... Loop versus Do ... Loop
// While/Until; a nil Cond is the unconditional Do ... Loop.
type DoStmt struct {
	node
	PreTest bool
	Until   bool
	Cond    Expression
	Body    []Statement
}

type ExitKind int

const (
	ExitFor ExitKind = iota
	ExitDo
	ExitWhile
	ExitSelect
	ExitSub
	ExitFunction
	ExitProperty
	ExitTry
)

type ExitStmt struct {
	node
	Kind ExitKind
}

type ContinueStmt struct {
	node
	Kind ExitKind // ExitFor, ExitDo or ExitWhile
}

type ReturnStmt struct {
	node
	Value Expression
}

type GotoStmt struct {
	node
	Label string
}

type LabelStmt struct {
	node
	Name string
}

type OnErrorMode int

const (
	OnErrorResumeNext OnErrorMode = iota
	OnErrorGotoLabel
	OnErrorGotoZero
)

type OnErrorStmt struct {
	node
	Mode  OnErrorMode
	Label string
}

type ResumeMode int

const (
	ResumeRetry ResumeMode = iota // Resume
	ResumeNext                    // Resume Next
	ResumeLabel                   // Resume label
)

type ResumeStmt struct {
	node
	Mode  ResumeMode
	Label string
}

type CatchClause struct {
	Var      string
	TypeName string
	When     Expression
	Body     []Statement
}

type TryStmt struct {
	node
	Body    []Statement
	Catches []*CatchClause
	Finally []Statement
}

type ThrowStmt struct {
	node
	Value Expression // nil rethrows inside a Catch
}

type WithStmt struct {
	node
	Subject Expression
	Body    []Statement
}

type UsingStmt struct {
	node
	Var  string
	Init Expression
	Body []Statement
}

type AddHandlerStmt struct {
	node
	Event   Expression // MemberExpr naming the event
	Handler Expression
	Remove  bool
}

type RaiseEventStmt struct {
	node
	Name string
	Args []Expression
}

// StopStmt halts the program (both Stop and End statements).
type StopStmt struct{ node }

// OptionStmt and ImportsStmt are accepted and ignored by the evaluator.
type OptionStmt struct {
	node
	Text string
}

type ImportsStmt struct {
	node
	Path string
}

func (*DimStmt) stmtNode()        {}
func (*ReDimStmt) stmtNode()      {}
func (*EraseStmt) stmtNode()      {}
func (*AssignStmt) stmtNode()     {}
func (*ExprStmt) stmtNode()       {}
func (*IfStmt) stmtNode()         {}
func (*SelectStmt) stmtNode()     {}
func (*ForStmt) stmtNode()        {}
func (*ForEachStmt) stmtNode()    {}
func (*WhileStmt) stmtNode()      {}
func (*DoStmt) stmtNode()         {}
func (*ExitStmt) stmtNode()       {}
func (*ContinueStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode()     {}
func (*GotoStmt) stmtNode()       {}
func (*LabelStmt) stmtNode()      {}
func (*OnErrorStmt) stmtNode()    {}
func (*ResumeStmt) stmtNode()     {}
func (*TryStmt) stmtNode()        {}
func (*ThrowStmt) stmtNode()      {}
func (*WithStmt) stmtNode()       {}
func (*UsingStmt) stmtNode()      {}
func (*AddHandlerStmt) stmtNode() {}
func (*RaiseEventStmt) stmtNode() {}
func (*StopStmt) stmtNode()       {}
func (*OptionStmt) stmtNode()     {}
func (*ImportsStmt) stmtNode()    {}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// ProcDecl is a Sub or Function, at module level or as a class member.
type ProcDecl struct {
	node
	Name    string
	IsSub   bool
	Params  []*Param
	RetType string
	Body    []Statement
	Shared  bool
	Async   bool
}

type PropertyDecl struct {
	node
	Name     string
	TypeName string
	Auto     bool
	Default  Expression // auto-property initializer
	GetBody  []Statement
	SetParam string
	SetBody  []Statement
	Shared   bool
}

type EventDecl struct {
	node
	Name   string
	Params []*Param
}

type EnumMember struct {
	Name  string
	Value Expression // nil: previous + 1
}

type EnumDecl struct {
	node
	Name    string
	Members []*EnumMember
}

type InterfaceDecl struct {
	node
	Name    string
	Methods []string
}

type DelegateDecl struct {
	node
	Name   string
	IsSub  bool
	Params []*Param
}

type ClassDecl struct {
	node
	Name        string
	Partial     bool
	IsStructure bool
	Inherits    string
	Implements  []string
	Fields      []*DimStmt
	Methods     []*ProcDecl
	Props       []*PropertyDecl
	Events      []*EventDecl
}

type ModuleDecl struct {
	node
	Name    string
	Members []Statement // field DimStmts plus nested declarations
}

// Declarations are statements so a file is one statement list.
func (*ProcDecl) stmtNode()      {}
func (*PropertyDecl) stmtNode()  {}
func (*EventDecl) stmtNode()     {}
func (*EnumDecl) stmtNode()      {}
func (*InterfaceDecl) stmtNode() {}
func (*DelegateDecl) stmtNode()  {}
func (*ClassDecl) stmtNode()     {}
func (*ModuleDecl) stmtNode()    {}
