package interp

import (
	"strconv"

	"capsule/internal/ast"
	"capsule/internal/token"
	"capsule/internal/value"
)

func (in *Interp) eval(fr *frame, e ast.Expr) (value.Value, error) {
	switch n := e.(type) {
	case *ast.Name:
		return in.lookup(fr, n.ID)
	case *ast.Constant:
		return constant(n)
	case *ast.Attribute:
		return in.evalAttribute(fr, n)
	case *ast.Call:
		return in.evalCall(fr, n)
	case *ast.Subscript:
		obj, err := in.eval(fr, n.X)
		if err != nil {
			return nil, err
		}
		if sl, ok := n.Index.(*ast.Slice); ok {
			lo, hi, err := in.evalBounds(fr, sl)
			if err != nil {
				return nil, err
			}
			return in.slice(obj, lo, hi)
		}
		idx, err := in.eval(fr, n.Index)
		if err != nil {
			return nil, err
		}
		return in.getItem(obj, idx)
	case *ast.BinOp:
		l, err := in.eval(fr, n.L)
		if err != nil {
			return nil, err
		}
		r, err := in.eval(fr, n.R)
		if err != nil {
			return nil, err
		}
		return in.binary(n.Op, l, r)
	case *ast.BoolOp:
		var v value.Value
		for _, x := range n.Values {
			var err error
			if v, err = in.eval(fr, x); err != nil {
				return nil, err
			}
			t := value.Truthy(v)
			if (n.Op == token.KwAnd && !t) || (n.Op == token.KwOr && t) {
				return v, nil
			}
		}
		return v, nil
	case *ast.UnaryOp:
		x, err := in.eval(fr, n.X)
		if err != nil {
			return nil, err
		}
		return in.unary(n.Op, x)
	case *ast.Compare:
		return in.evalCompare(fr, n)
	case *ast.IfExp:
		c, err := in.eval(fr, n.Cond)
		if err != nil {
			return nil, err
		}
		if value.Truthy(c) {
			return in.eval(fr, n.Then)
		}
		return in.eval(fr, n.Else)
	case *ast.Lambda:
		return in.makeFunction(fr, n, "<lambda>")
	case *ast.ListExpr:
		elems, err := in.evalAll(fr, n.Elts)
		if err != nil {
			return nil, err
		}
		return value.NewList(elems...), nil
	case *ast.TupleExpr:
		elems, err := in.evalAll(fr, n.Elts)
		if err != nil {
			return nil, err
		}
		return value.NewTuple(elems...), nil
	case *ast.DictExpr:
		d := value.NewDict()
		for i := range n.Keys {
			k, err := in.eval(fr, n.Keys[i])
			if err != nil {
				return nil, err
			}
			v, err := in.eval(fr, n.Values[i])
			if err != nil {
				return nil, err
			}
			if err := d.Set(k, v); err != nil {
				return nil, throw(TypeError, "%v", err)
			}
		}
		return d, nil
	case *ast.ListComp:
		return in.evalListComp(fr, n)
	case *ast.Yield:
		return nil, throw(RuntimeError, "yield outside a running generator")
	}
	return nil, throw(NotImplementedError, "expression %T", e)
}

func constant(n *ast.Constant) (value.Value, error) {
	switch n.Kind {
	case ast.ConstNone:
		return value.None, nil
	case ast.ConstTrue:
		return value.True, nil
	case ast.ConstFalse:
		return value.False, nil
	case ast.ConstStr:
		return value.Str(n.Value), nil
	case ast.ConstBytes:
		return value.Bytes(n.Value), nil
	case ast.ConstInt:
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, throw(ValueError, "integer literal %s out of range", n.Value)
		}
		return value.Int(i), nil
	case ast.ConstFloat:
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, throw(ValueError, "bad float literal %s", n.Value)
		}
		return value.Float(f), nil
	}
	return nil, throw(ValueError, "unknown constant")
}

func (in *Interp) evalAll(fr *frame, es []ast.Expr) ([]value.Value, error) {
	out := make([]value.Value, len(es))
	for i, e := range es {
		v, err := in.eval(fr, e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// evalAttribute consults captured chains first: a chain captured as a.b is
// used as is and only the rest of the path is looked up at run time.
func (in *Interp) evalAttribute(fr *frame, n *ast.Attribute) (value.Value, error) {
	if path := ast.DottedPath(n); path != nil {
		if v, used, ok := fr.chainPrefix(path); ok {
			var err error
			for _, attr := range path[used:] {
				if v, err = in.getAttr(v, attr); err != nil {
					return nil, err
				}
			}
			return v, nil
		}
	}
	obj, err := in.eval(fr, n.X)
	if err != nil {
		return nil, err
	}
	return in.getAttr(obj, n.Attr)
}

func (in *Interp) evalCall(fr *frame, n *ast.Call) (value.Value, error) {
	fn, err := in.eval(fr, n.Fn)
	if err != nil {
		return nil, err
	}
	args, err := in.evalAll(fr, n.Args)
	if err != nil {
		return nil, err
	}
	var kwargs map[string]value.Value
	if len(n.Keywords) > 0 {
		kwargs = make(map[string]value.Value, len(n.Keywords))
		for _, kw := range n.Keywords {
			if _, dup := kwargs[kw.Name]; dup {
				return nil, throw(TypeError, "keyword argument repeated: %s", kw.Name)
			}
			v, err := in.eval(fr, kw.Value)
			if err != nil {
				return nil, err
			}
			kwargs[kw.Name] = v
		}
	}
	return in.Call(fn, args, kwargs)
}

func (in *Interp) evalBounds(fr *frame, sl *ast.Slice) (lo, hi value.Value, err error) {
	lo, hi = value.None, value.None
	if sl.Lo != nil {
		if lo, err = in.eval(fr, sl.Lo); err != nil {
			return nil, nil, err
		}
	}
	if sl.Hi != nil {
		if hi, err = in.eval(fr, sl.Hi); err != nil {
			return nil, nil, err
		}
	}
	return lo, hi, nil
}

func (in *Interp) evalCompare(fr *frame, n *ast.Compare) (value.Value, error) {
	left, err := in.eval(fr, n.L)
	if err != nil {
		return nil, err
	}
	for i, op := range n.Ops {
		right, err := in.eval(fr, n.Rights[i])
		if err != nil {
			return nil, err
		}
		ok, err := in.compare(op, left, right)
		if err != nil {
			return nil, err
		}
		if !ok {
			return value.False, nil
		}
		left = right
	}
	return value.True, nil
}

// evalListComp runs the comprehension in its own function-like scope.
func (in *Interp) evalListComp(fr *frame, n *ast.ListComp) (value.Value, error) {
	seq, err := in.eval(fr, n.Iter)
	if err != nil {
		return nil, err
	}
	items, err := in.iterate(seq)
	if err != nil {
		return nil, err
	}
	info := in.scopeOf(n)
	inner := &frame{
		kind:    functionFrame,
		name:    "<listcomp>",
		path:    fr.path,
		info:    info,
		locals:  make(map[string]*value.Cell, len(info.Locals)),
		closure: fr.captureCells(),
		chains:  fr.chains,
		globals: fr.globals,
	}
	for _, name := range info.Locals {
		inner.locals[name] = &value.Cell{}
	}
	out := value.NewList()
outer:
	for _, item := range items {
		if err := in.assign(inner, n.Target, item); err != nil {
			return nil, err
		}
		for _, cond := range n.Ifs {
			c, err := in.eval(inner, cond)
			if err != nil {
				return nil, err
			}
			if !value.Truthy(c) {
				continue outer
			}
		}
		v, err := in.eval(inner, n.Elt)
		if err != nil {
			return nil, err
		}
		out.Elems = append(out.Elems, v)
	}
	return out, nil
}
