package basil

import "strings"

// Cell is a single mutable value slot. Closures and ByRef parameters alias
// the cell itself, so a write through one name is visible through every
// other name bound to the same cell.
type Cell struct {
	V Value
}

// Env is a lexical scope frame: a case-insensitive name table over shared
// cells, linked to its defining (enclosing) scope. Scopes form a tree; a
// frame never references its children.
type Env struct {
	parent *Env
	table  map[string]*Cell
	consts map[string]bool
}

// NewEnv creates a new frame with the given parent (which may be nil).
func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, table: make(map[string]*Cell)}
}

func foldName(name string) string { return strings.ToLower(name) }

// Define binds name to a fresh cell in this frame, shadowing outer bindings.
func (e *Env) Define(name string, v Value) *Cell {
	c := &Cell{V: v}
	e.table[foldName(name)] = c
	return c
}

// DefineCell installs an existing cell under name (ByRef binding).
func (e *Env) DefineCell(name string, c *Cell) {
	e.table[foldName(name)] = c
}

// DefineConst binds name and marks it read-only in this frame.
func (e *Env) DefineConst(name string, v Value) {
	key := foldName(name)
	e.table[key] = &Cell{V: v}
	if e.consts == nil {
		e.consts = make(map[string]bool)
	}
	e.consts[key] = true
}

// Lookup walks parent-ward and returns the nearest cell for name.
func (e *Env) Lookup(name string) (*Cell, bool) {
	key := foldName(name)
	for s := e; s != nil; s = s.parent {
		if c, ok := s.table[key]; ok {
			return c, true
		}
	}
	return nil, false
}

// definedHere reports whether this frame itself binds name.
func (e *Env) definedHere(name string) bool {
	_, ok := e.table[foldName(name)]
	return ok
}

// isConst reports whether the nearest binding of name is a constant.
func (e *Env) isConst(name string) bool {
	key := foldName(name)
	for s := e; s != nil; s = s.parent {
		if _, ok := s.table[key]; ok {
			return s.consts[key]
		}
	}
	return false
}
