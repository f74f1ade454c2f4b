package interp

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"capsule/internal/token"
	"capsule/internal/value"
)

const maxRange = 10_000_000

func builtin(name string, fn value.BuiltinFunc) *value.Builtin {
	return &value.Builtin{Name: name, Fn: fn}
}

func noKwargs(name string, kwargs map[string]value.Value) error {
	if len(kwargs) > 0 {
		return throw(TypeError, "%s() takes no keyword arguments", name)
	}
	return nil
}

func arity(name string, args []value.Value, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return throw(TypeError, "%s() takes exactly %d argument(s) (%d given)", name, lo, len(args))
		}
		return throw(TypeError, "%s() takes from %d to %d arguments (%d given)", name, lo, hi, len(args))
	}
	return nil
}

// simple wraps a positional-only builtin with an argument count check.
func simple(name string, lo, hi int, fn func(c value.Caller, args []value.Value) (value.Value, error)) *value.Builtin {
	return builtin(name, func(c value.Caller, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if err := noKwargs(name, kwargs); err != nil {
			return nil, err
		}
		if err := arity(name, args, lo, hi); err != nil {
			return nil, err
		}
		return fn(c, args)
	})
}

func (in *Interp) newBuiltins() *value.Module {
	mod := value.NewModule("builtins", "")
	add := func(b *value.Builtin) { mod.Attrs.Set(b.Name, b) }

	add(simple("len", 1, 1, func(_ value.Caller, args []value.Value) (value.Value, error) {
		switch x := args[0].(type) {
		case value.Str:
			return value.Int(len([]rune(string(x)))), nil
		case value.Bytes:
			return value.Int(len(x)), nil
		case *value.List:
			return value.Int(len(x.Elems)), nil
		case *value.Tuple:
			return value.Int(len(x.Elems)), nil
		case *value.Dict:
			return value.Int(x.Len()), nil
		}
		return nil, throw(TypeError, "object of type '%s' has no len()", args[0].TypeName())
	}))
	add(simple("range", 1, 3, builtinRange))
	add(builtin("print", func(_ value.Caller, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		sep, end := " ", "\n"
		if v, ok := kwargs["sep"]; ok {
			sep = value.ToStr(v)
		}
		if v, ok := kwargs["end"]; ok {
			end = value.ToStr(v)
		}
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = value.ToStr(a)
		}
		fmt.Fprint(in.opts.Stdout, strings.Join(parts, sep)+end)
		return value.None, nil
	}))
	add(simple("str", 0, 1, func(_ value.Caller, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Str(""), nil
		}
		return value.Str(value.ToStr(args[0])), nil
	}))
	add(simple("repr", 1, 1, func(_ value.Caller, args []value.Value) (value.Value, error) {
		return value.Str(value.Repr(args[0])), nil
	}))
	add(simple("int", 0, 1, builtinInt))
	add(simple("float", 0, 1, builtinFloat))
	add(simple("bool", 0, 1, func(_ value.Caller, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.False, nil
		}
		return value.Bool(value.Truthy(args[0])), nil
	}))
	add(simple("abs", 1, 1, func(_ value.Caller, args []value.Value) (value.Value, error) {
		switch x := args[0].(type) {
		case value.Int:
			if x < 0 {
				return -x, nil
			}
			return x, nil
		case value.Float:
			return value.Float(math.Abs(float64(x))), nil
		case value.Bool:
			i, _ := asInt(x)
			return value.Int(i), nil
		}
		return nil, throw(TypeError, "bad operand type for abs(): '%s'", args[0].TypeName())
	}))
	add(builtin("min", in.extremum("min", -1)))
	add(builtin("max", in.extremum("max", 1)))
	add(simple("sum", 1, 2, func(_ value.Caller, args []value.Value) (value.Value, error) {
		items, err := in.iterate(args[0])
		if err != nil {
			return nil, err
		}
		var acc value.Value = value.Int(0)
		if len(args) == 2 {
			acc = args[1]
		}
		for _, it := range items {
			if acc, err = in.binary(token.Plus, acc, it); err != nil {
				return nil, err
			}
		}
		return acc, nil
	}))
	add(simple("isinstance", 2, 2, func(_ value.Caller, args []value.Value) (value.Value, error) {
		ok, err := isInstance(args[0], args[1])
		return value.Bool(ok), err
	}))
	add(simple("list", 0, 1, func(_ value.Caller, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.NewList(), nil
		}
		items, err := in.iterate(args[0])
		if err != nil {
			return nil, err
		}
		return value.NewList(append([]value.Value(nil), items...)...), nil
	}))
	add(simple("tuple", 0, 1, func(_ value.Caller, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.NewTuple(), nil
		}
		items, err := in.iterate(args[0])
		if err != nil {
			return nil, err
		}
		return value.NewTuple(append([]value.Value(nil), items...)...), nil
	}))
	add(builtin("dict", func(_ value.Caller, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if err := arity("dict", args, 0, 1); err != nil {
			return nil, err
		}
		d := value.NewDict()
		if len(args) == 1 {
			if src, ok := args[0].(*value.Dict); ok {
				var err error
				src.Items(func(k, v value.Value) bool {
					err = d.Set(k, v)
					return err == nil
				})
				if err != nil {
					return nil, throw(TypeError, "%v", err)
				}
			} else {
				pairs, err := in.iterate(args[0])
				if err != nil {
					return nil, err
				}
				for _, p := range pairs {
					kv, err := in.iterate(p)
					if err != nil || len(kv) != 2 {
						return nil, throw(ValueError, "dictionary update sequence element has wrong length")
					}
					if err := d.Set(kv[0], kv[1]); err != nil {
						return nil, throw(TypeError, "%v", err)
					}
				}
			}
		}
		for _, k := range sortedKeys(kwargs) {
			_ = d.Set(value.Str(k), kwargs[k])
		}
		return d, nil
	}))
	add(builtin("sorted", func(c value.Caller, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if err := arity("sorted", args, 1, 1); err != nil {
			return nil, err
		}
		items, err := in.iterate(args[0])
		if err != nil {
			return nil, err
		}
		out := append([]value.Value(nil), items...)
		if err := in.sortValues(c, out, kwargs["key"], value.Truthy(orNone(kwargs["reverse"]))); err != nil {
			return nil, err
		}
		return value.NewList(out...), nil
	}))
	add(simple("enumerate", 1, 2, func(_ value.Caller, args []value.Value) (value.Value, error) {
		items, err := in.iterate(args[0])
		if err != nil {
			return nil, err
		}
		start := int64(0)
		if len(args) == 2 {
			start, _ = asInt(args[1])
		}
		out := value.NewList()
		for i, it := range items {
			out.Elems = append(out.Elems, value.NewTuple(value.Int(start+int64(i)), it))
		}
		return out, nil
	}))
	add(builtin("zip", func(_ value.Caller, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if err := noKwargs("zip", kwargs); err != nil {
			return nil, err
		}
		seqs := make([][]value.Value, len(args))
		n := -1
		for i, a := range args {
			items, err := in.iterate(a)
			if err != nil {
				return nil, err
			}
			seqs[i] = items
			if n < 0 || len(items) < n {
				n = len(items)
			}
		}
		out := value.NewList()
		for i := 0; i < n; i++ {
			row := make([]value.Value, len(seqs))
			for j := range seqs {
				row[j] = seqs[j][i]
			}
			out.Elems = append(out.Elems, value.NewTuple(row...))
		}
		return out, nil
	}))
	add(simple("getattr", 2, 3, func(_ value.Caller, args []value.Value) (value.Value, error) {
		name, ok := args[1].(value.Str)
		if !ok {
			return nil, throw(TypeError, "attribute name must be string")
		}
		v, err := in.getAttr(args[0], string(name))
		if err != nil && len(args) == 3 {
			if exc, ok := ExceptionOf(err); ok && exc.Type == AttributeError {
				return args[2], nil
			}
		}
		return v, err
	}))
	add(simple("hasattr", 2, 2, func(_ value.Caller, args []value.Value) (value.Value, error) {
		name, ok := args[1].(value.Str)
		if !ok {
			return nil, throw(TypeError, "attribute name must be string")
		}
		_, err := in.getAttr(args[0], string(name))
		return value.Bool(err == nil), nil
	}))
	add(simple("array", 1, 1, func(_ value.Caller, args []value.Value) (value.Value, error) {
		items, err := in.iterate(args[0])
		if err != nil {
			return nil, err
		}
		data := make([]float64, len(items))
		for i, it := range items {
			f, ok := toFloat(it)
			if !ok {
				return nil, throw(TypeError, "array elements must be numbers, not %s", it.TypeName())
			}
			data[i] = f
		}
		return &value.Native{Type: "array", Data: data}, nil
	}))
	add(simple("remote", 1, 1, func(_ value.Caller, args []value.Value) (value.Value, error) {
		path, ok := args[0].(value.Str)
		if !ok {
			return nil, throw(TypeError, "remote() expects a path string")
		}
		return &value.RemoteRef{Path: string(path)}, nil
	}))
	add(builtin(InlineRemote, in.inlineRemote))
	for _, t := range ExceptionTypes {
		mod.Attrs.Set(t.Name, t)
	}
	return mod
}

func orNone(v value.Value) value.Value {
	if v == nil {
		return value.None
	}
	return v
}

func sortedKeys(m map[string]value.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func builtinRange(_ value.Caller, args []value.Value) (value.Value, error) {
	var bounds [3]int64
	for i, a := range args {
		v, ok := asInt(a)
		if !ok {
			return nil, throw(TypeError, "range() arguments must be integers, not %s", a.TypeName())
		}
		bounds[i] = v
	}
	start, stop, step := int64(0), bounds[0], int64(1)
	if len(args) >= 2 {
		start, stop = bounds[0], bounds[1]
	}
	if len(args) == 3 {
		step = bounds[2]
	}
	if step == 0 {
		return nil, throw(ValueError, "range() arg 3 must not be zero")
	}
	out := value.NewList()
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		if len(out.Elems) >= maxRange {
			return nil, throw(ValueError, "range() longer than %d elements", maxRange)
		}
		out.Elems = append(out.Elems, value.Int(i))
	}
	return out, nil
}

func builtinInt(_ value.Caller, args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Int(0), nil
	}
	switch x := args[0].(type) {
	case value.Int:
		return x, nil
	case value.Bool:
		i, _ := asInt(x)
		return value.Int(i), nil
	case value.Float:
		return value.Int(int64(math.Trunc(float64(x)))), nil
	case value.Str:
		i, err := strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
		if err != nil {
			return nil, throw(ValueError, "invalid literal for int(): %s", value.Repr(x))
		}
		return value.Int(i), nil
	}
	return nil, throw(TypeError, "int() argument must be a string or a number, not '%s'", args[0].TypeName())
}

func builtinFloat(_ value.Caller, args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Float(0), nil
	}
	if f, ok := toFloat(args[0]); ok {
		return value.Float(f), nil
	}
	if s, ok := args[0].(value.Str); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
		if err != nil {
			return nil, throw(ValueError, "could not convert string to float: %s", value.Repr(s))
		}
		return value.Float(f), nil
	}
	return nil, throw(TypeError, "float() argument must be a string or a number, not '%s'", args[0].TypeName())
}

// builtinKinds maps the type builtins to the kinds isinstance accepts for them.
var builtinKinds = map[string][]value.Kind{
	"int":   {value.KindInt, value.KindBool},
	"float": {value.KindFloat},
	"bool":  {value.KindBool},
	"str":   {value.KindStr},
	"list":  {value.KindList},
	"tuple": {value.KindTuple},
	"dict":  {value.KindDict},
}

func isInstance(v, typ value.Value) (bool, error) {
	switch t := typ.(type) {
	case *value.Class:
		inst, ok := v.(*value.Instance)
		return ok && inst.Class.IsSubclass(t), nil
	case *value.ExceptionType:
		switch x := v.(type) {
		case *value.Exception:
			return x.Type.IsSubtype(t), nil
		case *value.Instance:
			return x.Class.Exception != nil && x.Class.Exception.IsSubtype(t), nil
		}
		return false, nil
	case *value.Builtin:
		if kinds, ok := builtinKinds[t.Name]; ok {
			return slices.Contains(kinds, v.Kind()), nil
		}
	case *value.Tuple:
		for _, e := range t.Elems {
			ok, err := isInstance(v, e)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	return false, throw(TypeError, "isinstance() arg 2 must be a type or tuple of types")
}

func (in *Interp) extremum(name string, sign int) value.BuiltinFunc {
	return func(c value.Caller, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		items := args
		if len(args) == 1 {
			var err error
			if items, err = in.iterate(args[0]); err != nil {
				return nil, err
			}
		}
		if len(items) == 0 {
			return nil, throw(ValueError, "%s() arg is an empty sequence", name)
		}
		key := kwargs["key"]
		best, bestKey := items[0], items[0]
		if key != nil {
			var err error
			if bestKey, err = c.Call(key, []value.Value{best}, nil); err != nil {
				return nil, err
			}
		}
		for _, it := range items[1:] {
			k := it
			if key != nil {
				var err error
				if k, err = c.Call(key, []value.Value{it}, nil); err != nil {
					return nil, err
				}
			}
			o, err := order(k, bestKey)
			if err != nil {
				return nil, err
			}
			if o*sign > 0 {
				best, bestKey = it, k
			}
		}
		return best, nil
	}
}

func (in *Interp) sortValues(c value.Caller, items []value.Value, key value.Value, reverse bool) error {
	keys := items
	if key != nil && key != value.None {
		keys = make([]value.Value, len(items))
		for i, it := range items {
			k, err := c.Call(key, []value.Value{it}, nil)
			if err != nil {
				return err
			}
			keys[i] = k
		}
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	var sortErr error
	slices.SortStableFunc(idx, func(a, b int) int {
		o, err := order(keys[a], keys[b])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		if reverse {
			return -o
		}
		return o
	})
	if sortErr != nil {
		return sortErr
	}
	sorted := make([]value.Value, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
	return nil
}

func mathModule() *value.Module {
	mod := value.NewModule("math", "")
	mod.Attrs.Set("pi", value.Float(math.Pi))
	mod.Attrs.Set("e", value.Float(math.E))
	mod.Attrs.Set("inf", value.Float(math.Inf(1)))
	unary := func(name string, f func(float64) float64) {
		mod.Attrs.Set(name, simple("math."+name, 1, 1, func(_ value.Caller, args []value.Value) (value.Value, error) {
			x, ok := toFloat(args[0])
			if !ok {
				return nil, throw(TypeError, "must be real number, not %s", args[0].TypeName())
			}
			return value.Float(f(x)), nil
		}))
	}
	unary("sqrt", math.Sqrt)
	unary("exp", math.Exp)
	unary("log", math.Log)
	unary("fabs", math.Abs)
	unary("sin", math.Sin)
	unary("cos", math.Cos)
	floorCeil := func(name string, f func(float64) float64) {
		mod.Attrs.Set(name, simple("math."+name, 1, 1, func(_ value.Caller, args []value.Value) (value.Value, error) {
			x, ok := toFloat(args[0])
			if !ok {
				return nil, throw(TypeError, "must be real number, not %s", args[0].TypeName())
			}
			return value.Int(int64(f(x))), nil
		}))
	}
	floorCeil("floor", math.Floor)
	floorCeil("ceil", math.Ceil)
	return mod
}
