package interp

import (
	"math"
	"strings"

	"capsule/internal/ast"
	"capsule/internal/token"
	"capsule/internal/value"
)

func (in *Interp) getAttr(obj value.Value, name string) (value.Value, error) {
	switch o := obj.(type) {
	case *value.Module:
		if v, ok := o.Attrs.Get(name); ok {
			return v, nil
		}
		return nil, throw(AttributeError, "module '%s' has no attribute '%s'", o.Name, name)
	case *value.Instance:
		if v, ok := o.Attrs.Get(name); ok {
			return v, nil
		}
		if v, ok := o.Class.Lookup(name); ok {
			if fn, ok := v.(*value.Function); ok {
				return &value.BoundMethod{Self: o, Name: name, Fn: fn}, nil
			}
			return v, nil
		}
	case *value.Class:
		if name == "__name__" {
			return value.Str(o.Name), nil
		}
		if v, ok := o.Lookup(name); ok {
			return v, nil
		}
	case *value.Exception:
		if name == "args" {
			return value.NewTuple(o.Args...), nil
		}
		if o.Instance != nil {
			return in.getAttr(o.Instance, name)
		}
	case *value.Function:
		if name == "__name__" {
			return value.Str(o.Name), nil
		}
	case *value.ExceptionType:
		if name == "__name__" {
			return value.Str(o.Name), nil
		}
	case *value.Unconvertible:
		return nil, unconvertibleUse(o, "read attribute '"+name+"' of")
	}
	if m, ok := methodOf(obj, name); ok {
		return m, nil
	}
	return nil, throw(AttributeError, "'%s' object has no attribute '%s'", obj.TypeName(), name)
}

func (in *Interp) setAttr(obj value.Value, name string, v value.Value) error {
	switch o := obj.(type) {
	case *value.Instance:
		o.Attrs.Set(name, v)
		return nil
	case *value.Class:
		o.Dict.Set(name, v)
		return nil
	case *value.Module:
		o.Attrs.Set(name, v)
		return nil
	case *value.Unconvertible:
		return unconvertibleUse(o, "set attribute on")
	}
	return throw(AttributeError, "'%s' object attribute '%s' is read-only", obj.TypeName(), name)
}

func normIndex(i value.Value, n int) (int, error) {
	iv, ok := asInt(i)
	if !ok {
		return 0, throw(TypeError, "indices must be integers, not %s", i.TypeName())
	}
	idx := int(iv)
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return 0, throw(IndexError, "index out of range")
	}
	return idx, nil
}

func asInt(v value.Value) (int64, bool) {
	switch x := v.(type) {
	case value.Int:
		return int64(x), true
	case value.Bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (in *Interp) getItem(obj, idx value.Value) (value.Value, error) {
	switch o := obj.(type) {
	case *value.List:
		i, err := normIndex(idx, len(o.Elems))
		if err != nil {
			return nil, err
		}
		return o.Elems[i], nil
	case *value.Tuple:
		i, err := normIndex(idx, len(o.Elems))
		if err != nil {
			return nil, err
		}
		return o.Elems[i], nil
	case value.Str:
		r := []rune(string(o))
		i, err := normIndex(idx, len(r))
		if err != nil {
			return nil, err
		}
		return value.Str(string(r[i])), nil
	case value.Bytes:
		i, err := normIndex(idx, len(o))
		if err != nil {
			return nil, err
		}
		return value.Int(o[i]), nil
	case *value.Dict:
		v, ok, err := o.Get(idx)
		if err != nil {
			return nil, throw(TypeError, "%v", err)
		}
		if !ok {
			return nil, raiseExc(&value.Exception{Type: KeyError, Args: []value.Value{idx}})
		}
		return v, nil
	case *value.Unconvertible:
		return nil, unconvertibleUse(o, "index")
	}
	return nil, throw(TypeError, "'%s' object is not subscriptable", obj.TypeName())
}

func (in *Interp) setItem(obj, idx, v value.Value) error {
	switch o := obj.(type) {
	case *value.List:
		i, err := normIndex(idx, len(o.Elems))
		if err != nil {
			return err
		}
		o.Elems[i] = v
		return nil
	case *value.Dict:
		if err := o.Set(idx, v); err != nil {
			return throw(TypeError, "%v", err)
		}
		return nil
	case *value.Unconvertible:
		return unconvertibleUse(o, "assign into")
	}
	return throw(TypeError, "'%s' object does not support item assignment", obj.TypeName())
}

func sliceBounds(lo, hi value.Value, n int) (int, int, error) {
	clamp := func(v value.Value, def int) (int, error) {
		if v == value.None {
			return def, nil
		}
		iv, ok := asInt(v)
		if !ok {
			return 0, throw(TypeError, "slice indices must be integers")
		}
		i := int(iv)
		if i < 0 {
			i += n
		}
		return min(max(i, 0), n), nil
	}
	a, err := clamp(lo, 0)
	if err != nil {
		return 0, 0, err
	}
	b, err := clamp(hi, n)
	if err != nil {
		return 0, 0, err
	}
	if b < a {
		b = a
	}
	return a, b, nil
}

func (in *Interp) slice(obj, lo, hi value.Value) (value.Value, error) {
	switch o := obj.(type) {
	case *value.List:
		a, b, err := sliceBounds(lo, hi, len(o.Elems))
		if err != nil {
			return nil, err
		}
		return value.NewList(append([]value.Value(nil), o.Elems[a:b]...)...), nil
	case *value.Tuple:
		a, b, err := sliceBounds(lo, hi, len(o.Elems))
		if err != nil {
			return nil, err
		}
		return value.NewTuple(append([]value.Value(nil), o.Elems[a:b]...)...), nil
	case value.Str:
		r := []rune(string(o))
		a, b, err := sliceBounds(lo, hi, len(r))
		if err != nil {
			return nil, err
		}
		return value.Str(string(r[a:b])), nil
	case value.Bytes:
		a, b, err := sliceBounds(lo, hi, len(o))
		if err != nil {
			return nil, err
		}
		return o[a:b], nil
	case *value.Unconvertible:
		return nil, unconvertibleUse(o, "slice")
	}
	return nil, throw(TypeError, "'%s' object is not sliceable", obj.TypeName())
}

// iterate snapshots the elements of an iterable.
func (in *Interp) iterate(v value.Value) ([]value.Value, error) {
	switch o := v.(type) {
	case *value.List:
		return append([]value.Value(nil), o.Elems...), nil
	case *value.Tuple:
		return o.Elems, nil
	case *value.Dict:
		return o.Keys(), nil
	case value.Str:
		var out []value.Value
		for _, r := range string(o) {
			out = append(out, value.Str(string(r)))
		}
		return out, nil
	case value.Bytes:
		out := make([]value.Value, len(o))
		for i := range len(o) {
			out[i] = value.Int(o[i])
		}
		return out, nil
	case *value.Unconvertible:
		return nil, unconvertibleUse(o, "iterate")
	}
	return nil, throw(TypeError, "'%s' object is not iterable", v.TypeName())
}

func (in *Interp) unary(op token.Kind, x value.Value) (value.Value, error) {
	switch op {
	case token.KwNot:
		return value.Bool(!value.Truthy(x)), nil
	case token.Minus:
		switch v := x.(type) {
		case value.Int:
			return -v, nil
		case value.Bool:
			i, _ := asInt(v)
			return value.Int(-i), nil
		case value.Float:
			return -v, nil
		}
	case token.Plus:
		switch v := x.(type) {
		case value.Int, value.Float:
			return v, nil
		case value.Bool:
			i, _ := asInt(v)
			return value.Int(i), nil
		}
	}
	if u, ok := x.(*value.Unconvertible); ok {
		return nil, unconvertibleUse(u, "operate on")
	}
	return nil, throw(TypeError, "bad operand type for unary %s: '%s'", op, x.TypeName())
}

func toFloat(v value.Value) (float64, bool) {
	switch x := v.(type) {
	case value.Int:
		return float64(x), true
	case value.Float:
		return float64(x), true
	case value.Bool:
		i, _ := asInt(x)
		return float64(i), true
	}
	return 0, false
}

func (in *Interp) binary(op token.Kind, l, r value.Value) (value.Value, error) {
	if li, lok := asInt(l); lok {
		if ri, rok := asInt(r); rok {
			return intOp(op, li, ri)
		}
	}
	if lf, lok := toFloat(l); lok {
		if rf, rok := toFloat(r); rok {
			return floatOp(op, lf, rf)
		}
	}
	switch a := l.(type) {
	case value.Str:
		switch b := r.(type) {
		case value.Str:
			if op == token.Plus {
				return a + b, nil
			}
		case value.Int:
			if op == token.Star {
				return value.Str(strings.Repeat(string(a), max(int(b), 0))), nil
			}
		}
	case value.Bytes:
		if b, ok := r.(value.Bytes); ok && op == token.Plus {
			return a + b, nil
		}
	case *value.List:
		switch b := r.(type) {
		case *value.List:
			if op == token.Plus {
				return value.NewList(append(append([]value.Value(nil), a.Elems...), b.Elems...)...), nil
			}
		case value.Int:
			if op == token.Star {
				return value.NewList(repeat(a.Elems, int(b))...), nil
			}
		}
	case *value.Tuple:
		switch b := r.(type) {
		case *value.Tuple:
			if op == token.Plus {
				return value.NewTuple(append(append([]value.Value(nil), a.Elems...), b.Elems...)...), nil
			}
		case value.Int:
			if op == token.Star {
				return value.NewTuple(repeat(a.Elems, int(b))...), nil
			}
		}
	case *value.Unconvertible:
		return nil, unconvertibleUse(a, "operate on")
	}
	if u, ok := r.(*value.Unconvertible); ok {
		return nil, unconvertibleUse(u, "operate on")
	}
	return nil, throw(TypeError, "unsupported operand type(s) for %s: '%s' and '%s'", op, l.TypeName(), r.TypeName())
}

func repeat(elems []value.Value, n int) []value.Value {
	var out []value.Value
	for range max(n, 0) {
		out = append(out, elems...)
	}
	return out
}

func intOp(op token.Kind, a, b int64) (value.Value, error) {
	switch op {
	case token.Plus:
		return value.Int(a + b), nil
	case token.Minus:
		return value.Int(a - b), nil
	case token.Star:
		return value.Int(a * b), nil
	case token.Slash:
		if b == 0 {
			return nil, throw(ZeroDivisionError, "division by zero")
		}
		return value.Float(float64(a) / float64(b)), nil
	case token.DoubleSlash:
		if b == 0 {
			return nil, throw(ZeroDivisionError, "integer division or modulo by zero")
		}
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return value.Int(q), nil
	case token.Percent:
		if b == 0 {
			return nil, throw(ZeroDivisionError, "integer division or modulo by zero")
		}
		m := a % b
		if m != 0 && ((m < 0) != (b < 0)) {
			m += b
		}
		return value.Int(m), nil
	case token.DoubleStar:
		if b < 0 {
			return value.Float(math.Pow(float64(a), float64(b))), nil
		}
		res := int64(1)
		for range b {
			res *= a
		}
		return value.Int(res), nil
	}
	return nil, throw(TypeError, "unsupported operator %s", op)
}

func floatOp(op token.Kind, a, b float64) (value.Value, error) {
	switch op {
	case token.Plus:
		return value.Float(a + b), nil
	case token.Minus:
		return value.Float(a - b), nil
	case token.Star:
		return value.Float(a * b), nil
	case token.Slash:
		if b == 0 {
			return nil, throw(ZeroDivisionError, "float division by zero")
		}
		return value.Float(a / b), nil
	case token.DoubleSlash:
		if b == 0 {
			return nil, throw(ZeroDivisionError, "float floor division by zero")
		}
		return value.Float(math.Floor(a / b)), nil
	case token.Percent:
		if b == 0 {
			return nil, throw(ZeroDivisionError, "float modulo")
		}
		return value.Float(a - math.Floor(a/b)*b), nil
	case token.DoubleStar:
		return value.Float(math.Pow(a, b)), nil
	}
	return nil, throw(TypeError, "unsupported operator %s", op)
}

func (in *Interp) compare(op ast.CmpOp, l, r value.Value) (bool, error) {
	switch op {
	case ast.CmpEq:
		return value.Equal(l, r), nil
	case ast.CmpNotEq:
		return !value.Equal(l, r), nil
	case ast.CmpIs:
		return l == r, nil
	case ast.CmpIsNot:
		return l != r, nil
	case ast.CmpIn, ast.CmpNotIn:
		found, err := in.contains(r, l)
		if err != nil {
			return false, err
		}
		return found == (op == ast.CmpIn), nil
	}
	c, err := order(l, r)
	if err != nil {
		return false, err
	}
	switch op {
	case ast.CmpLt:
		return c < 0, nil
	case ast.CmpLtEq:
		return c <= 0, nil
	case ast.CmpGt:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

func (in *Interp) contains(container, item value.Value) (bool, error) {
	switch c := container.(type) {
	case value.Str:
		s, ok := item.(value.Str)
		if !ok {
			return false, throw(TypeError, "'in <string>' requires string as left operand")
		}
		return strings.Contains(string(c), string(s)), nil
	case *value.Dict:
		_, ok, err := c.Get(item)
		if err != nil {
			return false, throw(TypeError, "%v", err)
		}
		return ok, nil
	}
	items, err := in.iterate(container)
	if err != nil {
		return false, err
	}
	for _, x := range items {
		if value.Equal(x, item) {
			return true, nil
		}
	}
	return false, nil
}

// order compares numbers, strings, bytes and sequences.
func order(l, r value.Value) (int, error) {
	if a, ok := toFloat(l); ok {
		if b, ok := toFloat(r); ok {
			li, lInt := asInt(l)
			ri, rInt := asInt(r)
			if lInt && rInt {
				return cmp3(li, ri), nil
			}
			return cmp3(a, b), nil
		}
	}
	switch a := l.(type) {
	case value.Str:
		if b, ok := r.(value.Str); ok {
			return strings.Compare(string(a), string(b)), nil
		}
	case value.Bytes:
		if b, ok := r.(value.Bytes); ok {
			return strings.Compare(string(a), string(b)), nil
		}
	case *value.List:
		if b, ok := r.(*value.List); ok {
			return orderSeq(a.Elems, b.Elems)
		}
	case *value.Tuple:
		if b, ok := r.(*value.Tuple); ok {
			return orderSeq(a.Elems, b.Elems)
		}
	}
	return 0, throw(TypeError, "'<' not supported between instances of '%s' and '%s'", l.TypeName(), r.TypeName())
}

func orderSeq(a, b []value.Value) (int, error) {
	for i := range min(len(a), len(b)) {
		if value.Equal(a[i], b[i]) {
			continue
		}
		return order(a[i], b[i])
	}
	return cmp3(len(a), len(b)), nil
}

func cmp3[T int | int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
