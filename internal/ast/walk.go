package ast

// Inspect traverses n depth-first in source order, calling f for each node.
// Children are skipped when f returns false.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
}

// Children returns the direct child nodes of n in source order.
func Children(n Node) []Node {
	var out []Node
	addE := func(es ...Expr) {
		for _, e := range es {
			if e != nil {
				out = append(out, e)
			}
		}
	}
	addS := func(ss []Stmt) {
		for _, s := range ss {
			out = append(out, s)
		}
	}
	addP := func(p *Params) {
		if p == nil {
			return
		}
		for _, prm := range p.List {
			out = append(out, prm)
		}
	}

	switch x := n.(type) {
	case *Module:
		addS(x.Body)
	case *Param:
		addE(x.Default)
	case *Keyword:
		addE(x.Value)
	case *Name, *Constant, *Pass, *Break, *Continue, *Global, *Nonlocal, *Import:
	case *Attribute:
		addE(x.X)
	case *Call:
		addE(x.Fn)
		addE(x.Args...)
		for _, kw := range x.Keywords {
			out = append(out, kw)
		}
	case *Subscript:
		addE(x.X, x.Index)
	case *Slice:
		addE(x.Lo, x.Hi)
	case *BinOp:
		addE(x.L, x.R)
	case *BoolOp:
		addE(x.Values...)
	case *UnaryOp:
		addE(x.X)
	case *Compare:
		addE(x.L)
		addE(x.Rights...)
	case *IfExp:
		addE(x.Cond, x.Then, x.Else)
	case *Lambda:
		addP(x.Params)
		addE(x.Body)
	case *ListExpr:
		addE(x.Elts...)
	case *TupleExpr:
		addE(x.Elts...)
	case *DictExpr:
		for i := range x.Keys {
			addE(x.Keys[i], x.Values[i])
		}
	case *ListComp:
		addE(x.Elt, x.Target, x.Iter)
		addE(x.Ifs...)
	case *Yield:
		addE(x.Value)
	case *FuncDef:
		addP(x.Params)
		addS(x.Body)
	case *ClassDef:
		addE(x.Bases...)
		addS(x.Body)
	case *Return:
		addE(x.Value)
	case *Assign:
		addE(x.Targets...)
		addE(x.Value)
	case *AugAssign:
		addE(x.Target, x.Value)
	case *ExprStmt:
		addE(x.X)
	case *If:
		addE(x.Cond)
		addS(x.Body)
		addS(x.Else)
	case *While:
		addE(x.Cond)
		addS(x.Body)
	case *For:
		addE(x.Target, x.Iter)
		addS(x.Body)
	case *With:
		addE(x.Ctx, x.Var)
		addS(x.Body)
	case *Raise:
		addE(x.Exc)
	}
	return out
}

// FindAll returns every def, class, lambda or with statement starting on
// line, outermost first. A non-empty name restricts defs and classes to that
// name; "<lambda>" selects lambdas and "<with>" with statements.
func FindAll(root Node, line int, name string) []Node {
	var found []Node
	Inspect(root, func(n Node) bool {
		if n.Line() > line {
			if _, isStmt := n.(Stmt); isStmt {
				return false
			}
		}
		if n.Line() != line {
			return true
		}
		switch x := n.(type) {
		case *FuncDef:
			if name == "" || name == x.Name {
				found = append(found, x)
			}
		case *ClassDef:
			if name == "" || name == x.Name {
				found = append(found, x)
			}
		case *Lambda:
			if name == "" || name == "<lambda>" {
				found = append(found, x)
			}
		case *With:
			if name == "" || name == "<with>" {
				found = append(found, x)
			}
		}
		return true
	})
	return found
}
