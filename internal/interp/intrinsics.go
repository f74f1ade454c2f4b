package interp

import (
	"math"
	"slices"

	"capsule/internal/value"
)

// inlineRemote dispatches __inline_remote("name", args...) to a registered intrinsic.
func (in *Interp) inlineRemote(c value.Caller, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) == 0 {
		return nil, throw(TypeError, "%s() needs an intrinsic name", InlineRemote)
	}
	name, ok := args[0].(value.Str)
	if !ok {
		return nil, throw(TypeError, "%s() intrinsic name must be a string", InlineRemote)
	}
	fn, ok := in.intrinsics[string(name)]
	if !ok {
		return nil, throw(NameError, "unknown intrinsic '%s'", name)
	}
	return fn(c, args[1:], kwargs)
}

// Intrinsics returns the names of the registered intrinsics in sorted order.
func (in *Interp) Intrinsics() []string {
	names := make([]string, 0, len(in.intrinsics))
	for n := range in.intrinsics {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func defaultIntrinsics() map[string]value.BuiltinFunc {
	return map[string]value.BuiltinFunc{
		"dot": func(_ value.Caller, args []value.Value, _ map[string]value.Value) (value.Value, error) {
			if err := arity("dot", args, 2, 2); err != nil {
				return nil, err
			}
			a, err := floats(args[0])
			if err != nil {
				return nil, err
			}
			b, err := floats(args[1])
			if err != nil {
				return nil, err
			}
			if len(a) != len(b) {
				return nil, throw(ValueError, "dot: length mismatch %d != %d", len(a), len(b))
			}
			var s float64
			for i := range a {
				s += a[i] * b[i]
			}
			return value.Float(s), nil
		},
		"norm": func(_ value.Caller, args []value.Value, _ map[string]value.Value) (value.Value, error) {
			if err := arity("norm", args, 1, 1); err != nil {
				return nil, err
			}
			a, err := floats(args[0])
			if err != nil {
				return nil, err
			}
			var s float64
			for _, x := range a {
				s += x * x
			}
			return value.Float(math.Sqrt(s)), nil
		},
	}
}

// floats reads a numeric sequence or an array native.
func floats(v value.Value) ([]float64, error) {
	if n, ok := v.(*value.Native); ok {
		if data, ok := n.Data.([]float64); ok {
			return data, nil
		}
	}
	var elems []value.Value
	switch x := v.(type) {
	case *value.List:
		elems = x.Elems
	case *value.Tuple:
		elems = x.Elems
	default:
		return nil, throw(TypeError, "expected a numeric sequence, not %s", v.TypeName())
	}
	out := make([]float64, len(elems))
	for i, e := range elems {
		f, ok := toFloat(e)
		if !ok {
			return nil, throw(TypeError, "expected a number, not %s", e.TypeName())
		}
		out[i] = f
	}
	return out, nil
}
