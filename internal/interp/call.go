package interp

import (
	"capsule/internal/ast"
	"capsule/internal/diag"
	"capsule/internal/value"
)

// Call invokes any callable value. It implements value.Caller.
func (in *Interp) Call(fn value.Value, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	switch f := fn.(type) {
	case *value.Function:
		return in.callFunction(f, args, kwargs)
	case *value.BoundMethod:
		return in.callFunction(f.Fn, append([]value.Value{f.Self}, args...), kwargs)
	case *value.Builtin:
		return f.Fn(in, args, kwargs)
	case *value.Class:
		return in.instantiate(f, args, kwargs)
	case *value.ExceptionType:
		if len(kwargs) > 0 {
			return nil, throw(TypeError, "%s takes no keyword arguments", f.Name)
		}
		return &value.Exception{Type: f, Args: args}, nil
	case *value.Instance:
		if call, ok := f.Class.Lookup("__call__"); ok {
			if m, ok := call.(*value.Function); ok {
				return in.callFunction(m, append([]value.Value{f}, args...), kwargs)
			}
		}
	case *value.Unconvertible:
		return nil, unconvertibleUse(f, "call")
	}
	return nil, throw(TypeError, "'%s' object is not callable", fn.TypeName())
}

func (in *Interp) callFunction(fn *value.Function, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if fn.Generator {
		return nil, throw(TypeError, "generator function %s cannot be called", fn.Name)
	}
	if in.depth >= in.opts.MaxDepth {
		return nil, throw(RecursionError, "maximum recursion depth exceeded")
	}
	in.depth++
	defer func() { in.depth-- }()

	if fn.IsBlock() {
		if len(args) > 0 || len(kwargs) > 0 {
			return nil, throw(TypeError, "scoped block takes no arguments")
		}
		return in.runBlock(fn)
	}

	info := in.scopeOf(fn.Node)
	fr := newFunctionFrame(fn, info)
	if err := bindArgs(fn, fr, args, kwargs); err != nil {
		return nil, err
	}
	var (
		result value.Value
		err    error
	)
	switch n := fn.Node.(type) {
	case *ast.FuncDef:
		var c ctrl
		c, result, err = in.execBlock(fr, n.Body)
		if c != ctrlReturn {
			result = value.None
		}
	case *ast.Lambda:
		result, err = in.eval(fr, n.Body)
		if err != nil {
			err = locate(err, fr.pos(n.Line()))
		}
	}
	if err != nil {
		return nil, addFrame(err, diag.Frame{Path: fn.File, Line: fn.Line, Name: fn.Name})
	}
	return result, nil
}

func bindArgs(fn *value.Function, fr *frame, args []value.Value, kwargs map[string]value.Value) error {
	if len(args) > len(fn.Params) {
		return throw(TypeError, "%s() takes %d positional arguments but %d were given", fn.Name, len(fn.Params), len(args))
	}
	set := make([]bool, len(fn.Params))
	for i, a := range args {
		fr.locals[fn.Params[i]].V, fr.locals[fn.Params[i]].Set = a, true
		set[i] = true
	}
	for name, v := range kwargs {
		i := indexOf(fn.Params, name)
		if i < 0 {
			return throw(TypeError, "%s() got an unexpected keyword argument '%s'", fn.Name, name)
		}
		if set[i] {
			return throw(TypeError, "%s() got multiple values for argument '%s'", fn.Name, name)
		}
		fr.locals[name].V, fr.locals[name].Set = v, true
		set[i] = true
	}
	firstDefault := len(fn.Params) - len(fn.Defaults)
	for i, ok := range set {
		if ok {
			continue
		}
		if i < firstDefault {
			return throw(TypeError, "%s() missing required argument '%s'", fn.Name, fn.Params[i])
		}
		c := fr.locals[fn.Params[i]]
		c.V, c.Set = fn.Defaults[i-firstDefault], true
	}
	return nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// runBlock executes a rebuilt scoped block and returns its variables as a dict.
func (in *Interp) runBlock(fn *value.Function) (value.Value, error) {
	w := fn.Node.(*ast.With)
	info := in.scopeOf(w)
	fr := newFunctionFrame(fn, info)
	for _, name := range info.Locals {
		if v, ok := fn.Chains[name]; ok {
			fr.locals[name].V, fr.locals[name].Set = v, true
		}
	}
	if _, _, err := in.execBlock(fr, w.Body); err != nil {
		return nil, addFrame(err, diag.Frame{Path: fn.File, Line: fn.Line, Name: fn.Name})
	}
	out := value.NewDict()
	for _, name := range info.Locals {
		if c := fr.locals[name]; c.Set {
			_ = out.Set(value.Str(name), c.V)
		}
	}
	return out, nil
}

func (in *Interp) instantiate(cls *value.Class, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	inst := value.NewInstance(cls)
	init, ok := cls.Lookup("__init__")
	if !ok {
		if cls.Exception != nil {
			inst.Attrs.Set("args", value.NewTuple(args...))
			return inst, nil
		}
		if len(args) > 0 || len(kwargs) > 0 {
			return nil, throw(TypeError, "%s() takes no arguments", cls.Name)
		}
		return inst, nil
	}
	fn, ok := init.(*value.Function)
	if !ok {
		return nil, throw(TypeError, "__init__ of %s is not a function", cls.Name)
	}
	res, err := in.callFunction(fn, append([]value.Value{inst}, args...), kwargs)
	if err != nil {
		return nil, err
	}
	if res != value.None {
		return nil, throw(TypeError, "__init__() should return None, not '%s'", res.TypeName())
	}
	return inst, nil
}

// makeFunction creates a closure for a def or lambda evaluated in fr.
func (in *Interp) makeFunction(fr *frame, node ast.Node, name string) (*value.Function, error) {
	fn := &value.Function{
		Name:    name,
		File:    fr.path,
		Line:    node.Line(),
		Node:    node,
		Globals: fr.globals,
		Closure: fr.captureCells(),
		Chains:  fr.chains,
	}
	if err := in.initFunction(fr, fn); err != nil {
		return nil, err
	}
	return fn, nil
}

// initFunction fills parameters and evaluates defaults in fr.
func (in *Interp) initFunction(fr *frame, fn *value.Function) error {
	var params *ast.Params
	switch n := fn.Node.(type) {
	case *ast.FuncDef:
		params = n.Params
	case *ast.Lambda:
		params = n.Params
	case *ast.With:
		return nil
	default:
		return throw(TypeError, "cannot build a function from %T", fn.Node)
	}
	fn.Params = params.Names()
	fn.Defaults = fn.Defaults[:0]
	for _, p := range params.List {
		if p.Default == nil {
			continue
		}
		v, err := in.eval(fr, p.Default)
		if err != nil {
			return locate(err, fr.pos(p.Line()))
		}
		fn.Defaults = append(fn.Defaults, v)
	}
	fn.Generator = in.scopeOf(fn.Node).Generator
	return nil
}

// BuildFunction completes a function shell rebuilt from a capture. Node,
// File, Line, Chains and Globals must be set; defaults are evaluated against
// the chains.
func (in *Interp) BuildFunction(fn *value.Function) error {
	switch n := fn.Node.(type) {
	case *ast.FuncDef:
		fn.Name = n.Name
	case *ast.Lambda:
		fn.Name = "<lambda>"
	case *ast.With:
		fn.Name = "<with>"
	}
	fr := &frame{kind: classFrame, name: fn.Name, path: fn.File, ns: value.NewNamespace(), chains: fn.Chains, globals: fn.Globals}
	return in.initFunction(fr, fn)
}

// BuildClass completes a class shell rebuilt from a capture by resolving its
// bases and running its body. Node, File, Line, Chains and Globals must be set.
func (in *Interp) BuildClass(cls *value.Class, bases []value.Value) error {
	cls.Name = cls.Node.Name
	if cls.Dict == nil {
		cls.Dict = value.NewNamespace()
	}
	for _, b := range bases {
		if err := addBase(cls, b); err != nil {
			return err
		}
	}
	return in.runClassBody(cls)
}
