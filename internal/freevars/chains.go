package freevars

import (
	"strings"

	"capsule/internal/ast"
	"capsule/internal/diag"
	"capsule/internal/source"
)

// Chain is one free member-access chain such as a.b.c.
type Chain struct {
	Names []string
	Span  source.Span
	Line  int
	// Callee is set when the chain is exactly the function of a call.
	Callee bool
}

// Key returns the dotted form used to key resolved chains.
func (c Chain) Key() string { return strings.Join(c.Names, ".") }

// Root returns the free identifier the chain starts at.
func (c Chain) Root() string { return c.Names[0] }

// scope is one level of the lexical scope stack during chain extraction.
type scope struct {
	info    *ScopeInfo
	parent  *scope
	isClass bool
}

func (s *scope) binds(name string) bool {
	if s.info.IsLocal(name) {
		return true
	}
	// class scopes are invisible to the scopes nested in them
	for p := s.parent; p != nil; p = p.parent {
		if p.isClass {
			continue
		}
		if p.info.IsLocal(name) {
			return true
		}
	}
	return false
}

type extractor struct {
	chains []Chain
	index  map[string]int
	err    error
}

// Chains returns the free member-access chains of a def, lambda, class or
// with-block in order of first occurrence. For a def or class the node's own
// name is not bound: a recursive reference is a free reference to the
// definition itself. A with-block is analyzed as the body of a zero-argument
// function. global and nonlocal statements are rejected.
func Chains(node ast.Node) ([]Chain, error) {
	x := &extractor{index: map[string]int{}}
	switch n := node.(type) {
	case *ast.FuncDef:
		x.defaults(n.Params, nil)
		x.function(n, nil)
	case *ast.Lambda:
		x.defaults(n.Params, nil)
		x.lambda(n, nil)
	case *ast.ClassDef:
		for _, b := range n.Bases {
			x.expr(b, nil)
		}
		x.class(n, nil)
	case *ast.With:
		s := &scope{info: Analyze(n)}
		x.checkDeclared(n)
		x.stmts(n.Body, s)
	default:
		return nil, diag.Errorf(diag.SynUnsupported, source.Position{Line: node.Line()}, "cannot compute free variables of %T", node)
	}
	if x.err != nil {
		return nil, x.err
	}
	return x.chains, nil
}

func (x *extractor) add(c Chain) {
	key := c.Key()
	if i, ok := x.index[key]; ok {
		x.chains[i].Callee = x.chains[i].Callee && c.Callee
		return
	}
	x.index[key] = len(x.chains)
	x.chains = append(x.chains, c)
}

func (x *extractor) checkDeclared(node ast.Node) {
	info := Analyze(node)
	if len(info.Globals) == 0 && len(info.Nonlocals) == 0 {
		return
	}
	var body []ast.Stmt
	switch n := node.(type) {
	case *ast.FuncDef:
		body = n.Body
	case *ast.ClassDef:
		body = n.Body
	case *ast.With:
		body = n.Body
	}
	for _, s := range body {
		ast.Inspect(s, func(n ast.Node) bool {
			if x.err != nil {
				return false
			}
			switch d := n.(type) {
			case *ast.FuncDef, *ast.ClassDef, *ast.Lambda:
				return false
			case *ast.Global:
				x.err = diag.Errorf(diag.SynUnsupported, source.Position{Line: d.Line()}, "global statements cannot be captured")
			case *ast.Nonlocal:
				x.err = diag.Errorf(diag.SynUnsupported, source.Position{Line: d.Line()}, "nonlocal statements cannot be captured")
			}
			return true
		})
	}
}

func (x *extractor) defaults(p *ast.Params, s *scope) {
	for _, prm := range p.List {
		if prm.Default != nil {
			x.expr(prm.Default, s)
		}
	}
}

func (x *extractor) function(fn *ast.FuncDef, parent *scope) {
	x.checkDeclared(fn)
	x.stmts(fn.Body, &scope{info: Analyze(fn), parent: parent})
}

func (x *extractor) lambda(l *ast.Lambda, parent *scope) {
	x.expr(l.Body, &scope{info: Analyze(l), parent: parent})
}

func (x *extractor) class(c *ast.ClassDef, parent *scope) {
	x.checkDeclared(c)
	x.stmts(c.Body, &scope{info: Analyze(c), parent: parent, isClass: true})
}

func (x *extractor) stmts(body []ast.Stmt, s *scope) {
	for _, st := range body {
		x.stmt(st, s)
	}
}

func (x *extractor) stmt(st ast.Stmt, s *scope) {
	switch n := st.(type) {
	case *ast.FuncDef:
		x.defaults(n.Params, s)
		x.function(n, s)
	case *ast.ClassDef:
		for _, b := range n.Bases {
			x.expr(b, s)
		}
		x.class(n, s)
	case *ast.Assign:
		x.expr(n.Value, s)
		for _, t := range n.Targets {
			x.store(t, s)
		}
	case *ast.AugAssign:
		x.expr(n.Value, s)
		x.expr(n.Target, s)
	case *ast.For:
		x.expr(n.Iter, s)
		x.store(n.Target, s)
		x.stmts(n.Body, s)
	case *ast.With:
		x.expr(n.Ctx, s)
		if n.Var != nil {
			x.store(n.Var, s)
		}
		x.stmts(n.Body, s)
	case *ast.If:
		x.expr(n.Cond, s)
		x.stmts(n.Body, s)
		x.stmts(n.Else, s)
	case *ast.While:
		x.expr(n.Cond, s)
		x.stmts(n.Body, s)
	case *ast.Return:
		x.expr(n.Value, s)
	case *ast.ExprStmt:
		x.expr(n.X, s)
	case *ast.Raise:
		x.expr(n.Exc, s)
	}
}

// store visits an assignment target: plain names bind, while attribute and
// subscript targets read the object they mutate.
func (x *extractor) store(t ast.Expr, s *scope) {
	switch n := t.(type) {
	case *ast.Name:
	case *ast.TupleExpr:
		for _, el := range n.Elts {
			x.store(el, s)
		}
	case *ast.ListExpr:
		for _, el := range n.Elts {
			x.store(el, s)
		}
	case *ast.Attribute:
		x.expr(n.X, s)
	case *ast.Subscript:
		x.expr(n.X, s)
		x.expr(n.Index, s)
	}
}

func (x *extractor) expr(e ast.Expr, s *scope) {
	x.exprCallee(e, s, false)
}

func (x *extractor) exprCallee(e ast.Expr, s *scope, callee bool) {
	if e == nil {
		return
	}
	if path := ast.DottedPath(e); path != nil {
		if s == nil || !s.binds(path[0]) {
			x.add(Chain{Names: path, Span: e.Span(), Line: e.Line(), Callee: callee})
		}
		return
	}
	switch n := e.(type) {
	case *ast.Call:
		x.exprCallee(n.Fn, s, true)
		for _, a := range n.Args {
			x.expr(a, s)
		}
		for _, kw := range n.Keywords {
			x.expr(kw.Value, s)
		}
	case *ast.Lambda:
		x.defaults(n.Params, s)
		x.lambda(n, s)
	case *ast.ListComp:
		// the first iterable belongs to the enclosing scope
		x.expr(n.Iter, s)
		inner := &scope{info: Analyze(n), parent: s}
		x.expr(n.Elt, inner)
		for _, cond := range n.Ifs {
			x.expr(cond, inner)
		}
	default:
		for _, c := range ast.Children(e) {
			if ce, ok := c.(ast.Expr); ok {
				x.expr(ce, s)
			}
		}
	}
}
