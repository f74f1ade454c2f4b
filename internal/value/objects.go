package value

import (
	"capsule/internal/ast"
)

// Cell is a shared variable slot. Closures hold cells, not values, so later
// assignments in the defining scope stay visible.
type Cell struct {
	V   Value
	Set bool
}

func NewCell(v Value) *Cell { return &Cell{V: v, Set: true} }

// Function is a def or lambda together with its environment.
type Function struct {
	Name string
	// File and Line locate the defining source text.
	File string
	Line int
	// Node is *ast.FuncDef, *ast.Lambda or, for a rebuilt scoped block, *ast.With.
	Node     ast.Node
	Params   []string
	Defaults []Value
	Globals  *Module
	Closure  map[string]*Cell
	// Chains holds pre-resolved free member-access chains keyed by their
	// dotted form. It is set on functions rebuilt from a capture.
	Chains map[string]Value
	// Generator is set when the body yields; such functions cannot be called.
	Generator bool
}

func (*Function) Kind() Kind          { return KindFunction }
func (*Function) TypeName() string    { return KindFunction.String() }
func (f *Function) IsLambda() bool    { _, ok := f.Node.(*ast.Lambda); return ok }
func (f *Function) IsBlock() bool     { _, ok := f.Node.(*ast.With); return ok }
func (f *Function) Arity() (int, int) { return len(f.Params) - len(f.Defaults), len(f.Params) }

// Class is a user class. Bases are searched depth first, left to right.
type Class struct {
	Name    string
	File    string
	Line    int
	Node    *ast.ClassDef
	Bases   []*Class
	Dict    *Namespace
	Globals *Module
	Closure map[string]*Cell
	Chains  map[string]Value
	// Exception is the builtin exception type this class derives from, if any.
	Exception *ExceptionType
}

func (*Class) Kind() Kind       { return KindClass }
func (*Class) TypeName() string { return KindClass.String() }

// Lookup finds name on c or its bases.
func (c *Class) Lookup(name string) (Value, bool) {
	if v, ok := c.Dict.Get(name); ok {
		return v, true
	}
	for _, b := range c.Bases {
		if v, ok := b.Lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}

// IsSubclass reports whether c is other or derives from it.
func (c *Class) IsSubclass(other *Class) bool {
	if c == other {
		return true
	}
	for _, b := range c.Bases {
		if b.IsSubclass(other) {
			return true
		}
	}
	return false
}

type Instance struct {
	Class *Class
	Attrs *Namespace
}

func NewInstance(c *Class) *Instance { return &Instance{Class: c, Attrs: NewNamespace()} }

func (*Instance) Kind() Kind         { return KindInstance }
func (i *Instance) TypeName() string { return i.Class.Name }

// BoundMethod is Fn with Self bound as its first argument.
type BoundMethod struct {
	Self *Instance
	Name string
	Fn   *Function
}

func (*BoundMethod) Kind() Kind       { return KindBoundMethod }
func (*BoundMethod) TypeName() string { return KindBoundMethod.String() }

// Module is the namespace produced by running one file.
type Module struct {
	Name  string
	Path  string
	Attrs *Namespace
}

func NewModule(name, path string) *Module {
	return &Module{Name: name, Path: path, Attrs: NewNamespace()}
}

func (*Module) Kind() Kind       { return KindModule }
func (*Module) TypeName() string { return KindModule.String() }
