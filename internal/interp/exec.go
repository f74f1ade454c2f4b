package interp

import (
	"capsule/internal/ast"
	"capsule/internal/token"
	"capsule/internal/value"
)

type ctrl uint8

const (
	ctrlNone ctrl = iota
	ctrlReturn
	ctrlBreak
	ctrlContinue
)

func (in *Interp) execBlock(fr *frame, body []ast.Stmt) (ctrl, value.Value, error) {
	for _, st := range body {
		c, v, err := in.exec(fr, st)
		if err != nil {
			return ctrlNone, nil, locate(err, fr.pos(st.Line()))
		}
		if c != ctrlNone {
			return c, v, nil
		}
	}
	return ctrlNone, nil, nil
}

func (in *Interp) exec(fr *frame, st ast.Stmt) (ctrl, value.Value, error) {
	switch n := st.(type) {
	case *ast.ExprStmt:
		_, err := in.eval(fr, n.X)
		return ctrlNone, nil, err
	case *ast.Assign:
		v, err := in.eval(fr, n.Value)
		if err != nil {
			return ctrlNone, nil, err
		}
		for _, t := range n.Targets {
			if err := in.assign(fr, t, v); err != nil {
				return ctrlNone, nil, err
			}
		}
	case *ast.AugAssign:
		return ctrlNone, nil, in.execAugAssign(fr, n)
	case *ast.Return:
		if n.Value == nil {
			return ctrlReturn, value.None, nil
		}
		v, err := in.eval(fr, n.Value)
		return ctrlReturn, v, err
	case *ast.Pass, *ast.Global, *ast.Nonlocal:
	case *ast.Break:
		return ctrlBreak, nil, nil
	case *ast.Continue:
		return ctrlContinue, nil, nil
	case *ast.If:
		cond, err := in.eval(fr, n.Cond)
		if err != nil {
			return ctrlNone, nil, err
		}
		if value.Truthy(cond) {
			return in.execBlock(fr, n.Body)
		}
		return in.execBlock(fr, n.Else)
	case *ast.While:
		return in.execWhile(fr, n)
	case *ast.For:
		return in.execFor(fr, n)
	case *ast.FuncDef:
		fn, err := in.makeFunction(fr, n, n.Name)
		if err != nil {
			return ctrlNone, nil, err
		}
		return ctrlNone, nil, in.store(fr, n.Name, fn)
	case *ast.ClassDef:
		cls, err := in.execClassDef(fr, n)
		if err != nil {
			return ctrlNone, nil, err
		}
		return ctrlNone, nil, in.store(fr, n.Name, cls)
	case *ast.Raise:
		return ctrlNone, nil, in.execRaise(fr, n)
	case *ast.With:
		return in.execWith(fr, n)
	case *ast.Import:
		mod, err := in.importModule(n.Name, fr.path)
		if err != nil {
			return ctrlNone, nil, err
		}
		return ctrlNone, nil, in.store(fr, n.Binding(), mod)
	default:
		return ctrlNone, nil, throw(NotImplementedError, "statement %T", st)
	}
	return ctrlNone, nil, nil
}

func (in *Interp) execAugAssign(fr *frame, n *ast.AugAssign) error {
	cur, err := in.eval(fr, n.Target)
	if err != nil {
		return err
	}
	rhs, err := in.eval(fr, n.Value)
	if err != nil {
		return err
	}
	// lists extend in place
	if l, ok := cur.(*value.List); ok && n.Op == token.Plus {
		items, err := in.iterate(rhs)
		if err != nil {
			return err
		}
		l.Elems = append(l.Elems, items...)
		return nil
	}
	v, err := in.binary(n.Op, cur, rhs)
	if err != nil {
		return err
	}
	return in.assign(fr, n.Target, v)
}

func (in *Interp) execWhile(fr *frame, n *ast.While) (ctrl, value.Value, error) {
	for {
		cond, err := in.eval(fr, n.Cond)
		if err != nil {
			return ctrlNone, nil, err
		}
		if !value.Truthy(cond) {
			return ctrlNone, nil, nil
		}
		c, v, err := in.execBlock(fr, n.Body)
		if err != nil {
			return ctrlNone, nil, err
		}
		switch c {
		case ctrlReturn:
			return c, v, nil
		case ctrlBreak:
			return ctrlNone, nil, nil
		}
	}
}

func (in *Interp) execFor(fr *frame, n *ast.For) (ctrl, value.Value, error) {
	seq, err := in.eval(fr, n.Iter)
	if err != nil {
		return ctrlNone, nil, err
	}
	items, err := in.iterate(seq)
	if err != nil {
		return ctrlNone, nil, err
	}
	for _, item := range items {
		if err := in.assign(fr, n.Target, item); err != nil {
			return ctrlNone, nil, err
		}
		c, v, err := in.execBlock(fr, n.Body)
		if err != nil {
			return ctrlNone, nil, err
		}
		switch c {
		case ctrlReturn:
			return c, v, nil
		case ctrlBreak:
			return ctrlNone, nil, nil
		}
	}
	return ctrlNone, nil, nil
}

func (in *Interp) execRaise(fr *frame, n *ast.Raise) error {
	if n.Exc == nil {
		return throw(RuntimeError, "no active exception to reraise")
	}
	v, err := in.eval(fr, n.Exc)
	if err != nil {
		return err
	}
	switch x := v.(type) {
	case *value.Exception:
		return raiseExc(x)
	case *value.ExceptionType:
		return raiseExc(&value.Exception{Type: x})
	case *value.Class:
		inst, err := in.Call(x, nil, nil)
		if err != nil {
			return err
		}
		v = inst
	}
	if inst, ok := v.(*value.Instance); ok && inst.Class.Exception != nil {
		return raiseExc(exceptionFromInstance(inst))
	}
	return throw(TypeError, "exceptions must derive from Exception, not %s", v.TypeName())
}

func exceptionFromInstance(inst *value.Instance) *value.Exception {
	exc := &value.Exception{Type: inst.Class.Exception, Instance: inst}
	if args, ok := inst.Attrs.Get("args"); ok {
		if t, ok := args.(*value.Tuple); ok {
			exc.Args = t.Elems
		}
	}
	return exc
}

func (in *Interp) execClassDef(fr *frame, n *ast.ClassDef) (*value.Class, error) {
	cls := &value.Class{
		Name:    n.Name,
		File:    fr.path,
		Line:    n.Line(),
		Node:    n,
		Dict:    value.NewNamespace(),
		Globals: fr.globals,
		Closure: fr.captureCells(),
		Chains:  fr.chains,
	}
	for _, b := range n.Bases {
		bv, err := in.eval(fr, b)
		if err != nil {
			return nil, err
		}
		if err := addBase(cls, bv); err != nil {
			return nil, err
		}
	}
	if err := in.runClassBody(cls); err != nil {
		return nil, err
	}
	return cls, nil
}

func addBase(cls *value.Class, b value.Value) error {
	switch x := b.(type) {
	case *value.Class:
		cls.Bases = append(cls.Bases, x)
		if cls.Exception == nil {
			cls.Exception = x.Exception
		}
	case *value.ExceptionType:
		if cls.Exception == nil {
			cls.Exception = x
		}
	default:
		return throw(TypeError, "cannot inherit from %s", b.TypeName())
	}
	return nil
}

func (in *Interp) runClassBody(cls *value.Class) error {
	fr := &frame{
		kind:    classFrame,
		name:    cls.Name,
		path:    cls.File,
		info:    in.scopeOf(cls.Node),
		ns:      cls.Dict,
		closure: cls.Closure,
		chains:  cls.Chains,
		globals: cls.Globals,
	}
	_, _, err := in.execBlock(fr, cls.Node.Body)
	return err
}

// execWith hands the block to a BlockCapturer context. Other contexts run
// the body in place.
func (in *Interp) execWith(fr *frame, n *ast.With) (ctrl, value.Value, error) {
	ctx, err := in.eval(fr, n.Ctx)
	if err != nil {
		return ctrlNone, nil, err
	}
	if n.Var != nil {
		if err := in.assign(fr, n.Var, ctx); err != nil {
			return ctrlNone, nil, err
		}
	}
	capturer, ok := ctx.(value.BlockCapturer)
	if !ok {
		return in.execBlock(fr, n.Body)
	}
	bound, unbound := fr.visible()
	block := &value.ScopedBlock{
		File:    fr.path,
		Line:    n.Line(),
		Node:    n,
		Bound:   bound,
		Unbound: unbound,
		Globals: fr.globals,
	}
	in.log.Debug().Str("file", fr.path).Int("line", n.Line()).Msg("capture with-block")
	out, err := capturer.CaptureBlock(block)
	if err != nil {
		return ctrlNone, nil, err
	}
	for _, name := range in.scopeOf(n).Locals {
		if v, ok := out[name]; ok {
			if err := in.store(fr, name, v); err != nil {
				return ctrlNone, nil, err
			}
		}
	}
	return ctrlNone, nil, nil
}

// assign binds v to a target expression.
func (in *Interp) assign(fr *frame, target ast.Expr, v value.Value) error {
	switch t := target.(type) {
	case *ast.Name:
		return in.store(fr, t.ID, v)
	case *ast.TupleExpr:
		return in.unpack(fr, t.Elts, v)
	case *ast.ListExpr:
		return in.unpack(fr, t.Elts, v)
	case *ast.Attribute:
		obj, err := in.eval(fr, t.X)
		if err != nil {
			return err
		}
		return in.setAttr(obj, t.Attr, v)
	case *ast.Subscript:
		obj, err := in.eval(fr, t.X)
		if err != nil {
			return err
		}
		idx, err := in.eval(fr, t.Index)
		if err != nil {
			return err
		}
		return in.setItem(obj, idx, v)
	}
	return throw(TypeError, "cannot assign to %T", target)
}

func (in *Interp) unpack(fr *frame, targets []ast.Expr, v value.Value) error {
	items, err := in.iterate(v)
	if err != nil {
		return err
	}
	if len(items) != len(targets) {
		return throw(ValueError, "expected %d values to unpack, got %d", len(targets), len(items))
	}
	for i, t := range targets {
		if err := in.assign(fr, t, items[i]); err != nil {
			return err
		}
	}
	return nil
}
