package interp

import (
	"strings"

	"capsule/internal/value"
)

// methodOf returns a builtin method of a str, list or dict bound to obj.
func methodOf(obj value.Value, name string) (value.Value, bool) {
	switch o := obj.(type) {
	case value.Str:
		return strMethod(o, name)
	case *value.List:
		return listMethod(o, name)
	case *value.Dict:
		return dictMethod(o, name)
	}
	return nil, false
}

func strMethod(s value.Str, name string) (value.Value, bool) {
	str := string(s)
	switch name {
	case "upper":
		return simple(name, 0, 0, func(value.Caller, []value.Value) (value.Value, error) {
			return value.Str(strings.ToUpper(str)), nil
		}), true
	case "lower":
		return simple(name, 0, 0, func(value.Caller, []value.Value) (value.Value, error) {
			return value.Str(strings.ToLower(str)), nil
		}), true
	case "strip":
		return simple(name, 0, 0, func(value.Caller, []value.Value) (value.Value, error) {
			return value.Str(strings.TrimSpace(str)), nil
		}), true
	case "startswith", "endswith":
		return simple(name, 1, 1, func(_ value.Caller, args []value.Value) (value.Value, error) {
			p, ok := args[0].(value.Str)
			if !ok {
				return nil, throw(TypeError, "%s arg must be str", name)
			}
			if name == "startswith" {
				return value.Bool(strings.HasPrefix(str, string(p))), nil
			}
			return value.Bool(strings.HasSuffix(str, string(p))), nil
		}), true
	case "split":
		return simple(name, 0, 1, func(_ value.Caller, args []value.Value) (value.Value, error) {
			var parts []string
			if len(args) == 0 || args[0] == value.None {
				parts = strings.Fields(str)
			} else {
				sep, ok := args[0].(value.Str)
				if !ok || sep == "" {
					return nil, throw(ValueError, "empty or invalid separator")
				}
				parts = strings.Split(str, string(sep))
			}
			out := value.NewList()
			for _, p := range parts {
				out.Elems = append(out.Elems, value.Str(p))
			}
			return out, nil
		}), true
	case "join":
		return builtin(name, func(c value.Caller, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
			if err := arity(name, args, 1, 1); err != nil {
				return nil, err
			}
			in := c.(*Interp)
			items, err := in.iterate(args[0])
			if err != nil {
				return nil, err
			}
			parts := make([]string, len(items))
			for i, it := range items {
				p, ok := it.(value.Str)
				if !ok {
					return nil, throw(TypeError, "sequence item %d: expected str instance, %s found", i, it.TypeName())
				}
				parts[i] = string(p)
			}
			return value.Str(strings.Join(parts, str)), nil
		}), true
	case "replace":
		return simple(name, 2, 2, func(_ value.Caller, args []value.Value) (value.Value, error) {
			old, ok1 := args[0].(value.Str)
			repl, ok2 := args[1].(value.Str)
			if !ok1 || !ok2 {
				return nil, throw(TypeError, "replace() arguments must be str")
			}
			return value.Str(strings.ReplaceAll(str, string(old), string(repl))), nil
		}), true
	}
	return nil, false
}

func listMethod(l *value.List, name string) (value.Value, bool) {
	switch name {
	case "append":
		return simple(name, 1, 1, func(_ value.Caller, args []value.Value) (value.Value, error) {
			l.Elems = append(l.Elems, args[0])
			return value.None, nil
		}), true
	case "extend":
		return simple(name, 1, 1, func(c value.Caller, args []value.Value) (value.Value, error) {
			items, err := c.(*Interp).iterate(args[0])
			if err != nil {
				return nil, err
			}
			l.Elems = append(l.Elems, items...)
			return value.None, nil
		}), true
	case "pop":
		return simple(name, 0, 1, func(_ value.Caller, args []value.Value) (value.Value, error) {
			if len(l.Elems) == 0 {
				return nil, throw(IndexError, "pop from empty list")
			}
			i := len(l.Elems) - 1
			if len(args) == 1 {
				var err error
				if i, err = normIndex(args[0], len(l.Elems)); err != nil {
					return nil, err
				}
			}
			v := l.Elems[i]
			l.Elems = append(l.Elems[:i], l.Elems[i+1:]...)
			return v, nil
		}), true
	case "index":
		return simple(name, 1, 1, func(_ value.Caller, args []value.Value) (value.Value, error) {
			for i, e := range l.Elems {
				if value.Equal(e, args[0]) {
					return value.Int(i), nil
				}
			}
			return nil, throw(ValueError, "%s is not in list", value.Repr(args[0]))
		}), true
	}
	return nil, false
}

func dictMethod(d *value.Dict, name string) (value.Value, bool) {
	switch name {
	case "keys":
		return simple(name, 0, 0, func(value.Caller, []value.Value) (value.Value, error) {
			return value.NewList(d.Keys()...), nil
		}), true
	case "values":
		return simple(name, 0, 0, func(value.Caller, []value.Value) (value.Value, error) {
			return value.NewList(d.Values()...), nil
		}), true
	case "items":
		return simple(name, 0, 0, func(value.Caller, []value.Value) (value.Value, error) {
			out := value.NewList()
			d.Items(func(k, v value.Value) bool {
				out.Elems = append(out.Elems, value.NewTuple(k, v))
				return true
			})
			return out, nil
		}), true
	case "get":
		return simple(name, 1, 2, func(_ value.Caller, args []value.Value) (value.Value, error) {
			v, ok, err := d.Get(args[0])
			if err != nil {
				return nil, throw(TypeError, "%v", err)
			}
			if ok {
				return v, nil
			}
			if len(args) == 2 {
				return args[1], nil
			}
			return value.None, nil
		}), true
	}
	return nil, false
}
