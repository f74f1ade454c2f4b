package freevars

import (
	"capsule/internal/ast"
)

// ScopeInfo describes the names one function, lambda, class or block binds.
type ScopeInfo struct {
	// Locals lists bound names in first-binding order, excluding names
	// declared global or nonlocal.
	Locals    []string
	Globals   map[string]bool
	Nonlocals map[string]bool
	// Generator is set when the scope itself yields.
	Generator bool
}

// IsLocal reports whether name is local to the scope.
func (s *ScopeInfo) IsLocal(name string) bool {
	for _, n := range s.Locals {
		if n == name {
			return true
		}
	}
	return false
}

// Analyze computes the ScopeInfo of a scope-introducing node. For a
// *ast.With the block body is treated as the body of a zero-argument function.
func Analyze(node ast.Node) *ScopeInfo {
	c := newCollector()
	switch n := node.(type) {
	case *ast.FuncDef:
		c.params(n.Params)
		c.stmts(n.Body)
	case *ast.Lambda:
		c.params(n.Params)
		c.expr(n.Body)
	case *ast.ClassDef:
		c.stmts(n.Body)
	case *ast.With:
		c.stmts(n.Body)
	case *ast.ListComp:
		c.target(n.Target)
	case *ast.Module:
		c.stmts(n.Body)
	}
	info := &ScopeInfo{Globals: c.globals, Nonlocals: c.nonlocals, Generator: c.yields}
	for _, name := range c.order {
		if !c.globals[name] && !c.nonlocals[name] {
			info.Locals = append(info.Locals, name)
		}
	}
	return info
}

// BoundInScope returns the names node's own scope binds.
func BoundInScope(node ast.Node) []string {
	return Analyze(node).Locals
}

type collector struct {
	seen      map[string]bool
	order     []string
	globals   map[string]bool
	nonlocals map[string]bool
	yields    bool
	declared  []ast.Stmt
}

// FindBinding returns the first name bound by node or any scope nested in
// it for which match is true, together with the scope that binds it. A def
// or class also binds its own name.
func FindBinding(node ast.Node, match func(string) bool) (string, ast.Node) {
	var (
		name string
		at   ast.Node
	)
	ast.Inspect(node, func(n ast.Node) bool {
		if at != nil {
			return false
		}
		var names []string
		switch x := n.(type) {
		case *ast.FuncDef:
			names = append([]string{x.Name}, BoundInScope(x)...)
		case *ast.ClassDef:
			names = append([]string{x.Name}, BoundInScope(x)...)
		case *ast.Lambda, *ast.With, *ast.ListComp:
			names = BoundInScope(x)
		default:
			return true
		}
		for _, nm := range names {
			if match(nm) {
				name, at = nm, n
				return false
			}
		}
		return true
	})
	return name, at
}

func newCollector() *collector {
	return &collector{seen: map[string]bool{}, globals: map[string]bool{}, nonlocals: map[string]bool{}}
}

func (c *collector) bind(name string) {
	if !c.seen[name] {
		c.seen[name] = true
		c.order = append(c.order, name)
	}
}

func (c *collector) params(p *ast.Params) {
	for _, name := range p.Names() {
		c.bind(name)
	}
}

func (c *collector) target(e ast.Expr) {
	switch t := e.(type) {
	case *ast.Name:
		c.bind(t.ID)
	case *ast.TupleExpr:
		for _, el := range t.Elts {
			c.target(el)
		}
	case *ast.ListExpr:
		for _, el := range t.Elts {
			c.target(el)
		}
	}
}

func (c *collector) stmts(body []ast.Stmt) {
	for _, s := range body {
		c.stmt(s)
	}
}

// stmt records bindings without entering nested scopes.
func (c *collector) stmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.FuncDef:
		c.bind(n.Name)
	case *ast.ClassDef:
		c.bind(n.Name)
	case *ast.Assign:
		c.expr(n.Value)
		for _, t := range n.Targets {
			c.target(t)
		}
	case *ast.AugAssign:
		c.expr(n.Value)
		c.target(n.Target)
	case *ast.For:
		c.target(n.Target)
		c.expr(n.Iter)
		c.stmts(n.Body)
	case *ast.With:
		c.expr(n.Ctx)
		if n.Var != nil {
			c.target(n.Var)
		}
		c.stmts(n.Body)
	case *ast.If:
		c.expr(n.Cond)
		c.stmts(n.Body)
		c.stmts(n.Else)
	case *ast.While:
		c.expr(n.Cond)
		c.stmts(n.Body)
	case *ast.Import:
		c.bind(n.Binding())
	case *ast.Global:
		for _, name := range n.Names {
			c.globals[name] = true
		}
		c.declared = append(c.declared, n)
	case *ast.Nonlocal:
		for _, name := range n.Names {
			c.nonlocals[name] = true
		}
		c.declared = append(c.declared, n)
	case *ast.Return:
		c.expr(n.Value)
	case *ast.ExprStmt:
		c.expr(n.X)
	case *ast.Raise:
		c.expr(n.Exc)
	}
}

// expr only looks for yields that belong to the current scope.
func (c *collector) expr(e ast.Expr) {
	if e == nil {
		return
	}
	ast.Inspect(e, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.Lambda, *ast.ListComp:
			return false
		case *ast.Yield:
			c.yields = true
		}
		return true
	})
}

// OuterScopeReturnOrYield returns the first return statement or yield
// expression in the block's own scope, ignoring nested functions, lambdas and
// classes.
func OuterScopeReturnOrYield(w *ast.With) ast.Node {
	var found ast.Node
	for _, s := range w.Body {
		ast.Inspect(s, func(n ast.Node) bool {
			if found != nil {
				return false
			}
			switch n.(type) {
			case *ast.FuncDef, *ast.ClassDef, *ast.Lambda:
				return false
			case *ast.Return, *ast.Yield:
				found = n
				return false
			}
			return true
		})
		if found != nil {
			break
		}
	}
	return found
}

// DataMembers returns the attributes __init__ assigns on its first
// parameter, in assignment order.
func DataMembers(cls *ast.ClassDef) []string {
	var init *ast.FuncDef
	for _, s := range cls.Body {
		if fn, ok := s.(*ast.FuncDef); ok && fn.Name == "__init__" {
			init = fn
		}
	}
	if init == nil || len(init.Params.List) == 0 {
		return nil
	}
	self := init.Params.List[0].Name
	seen := map[string]bool{}
	var out []string
	addTarget := func(t ast.Expr) {
		attr, ok := t.(*ast.Attribute)
		if !ok {
			return
		}
		if n, ok := attr.X.(*ast.Name); ok && n.ID == self && !seen[attr.Attr] {
			seen[attr.Attr] = true
			out = append(out, attr.Attr)
		}
	}
	for _, s := range init.Body {
		ast.Inspect(s, func(n ast.Node) bool {
			switch x := n.(type) {
			case *ast.FuncDef, *ast.ClassDef, *ast.Lambda:
				return false
			case *ast.Assign:
				for _, t := range x.Targets {
					addTarget(t)
				}
			case *ast.AugAssign:
				addTarget(x.Target)
			}
			return true
		})
	}
	return out
}
