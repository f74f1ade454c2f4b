package walker

import (
	"capsule/internal/defs"
	"capsule/internal/freevars"
	"capsule/internal/value"
)

func (w *Walker) sequence(v value.Value, elems []value.Value, tuple bool) (defs.ObjectID, error) {
	if p, ok := defs.PrimitiveOf(v, !w.opts.NoPacking); ok {
		return w.simple(v, func(id defs.ObjectID) error { return w.reg.DefinePrimitive(id, p) })
	}
	id, err := w.begin(v, true)
	if err != nil {
		return defs.NoID, err
	}
	defer w.end(id)

	members, err := w.walkAll(elems)
	if err != nil {
		return defs.NoID, err
	}
	if tuple {
		return id, w.reg.DefineTuple(id, members)
	}
	return id, w.reg.DefineList(id, members)
}

func (w *Walker) dict(d *value.Dict) (defs.ObjectID, error) {
	id, err := w.begin(d, true)
	if err != nil {
		return defs.NoID, err
	}
	defer w.end(id)

	keys, err := w.walkAll(d.Keys())
	if err != nil {
		return defs.NoID, err
	}
	vals, err := w.walkAll(d.Values())
	if err != nil {
		return defs.NoID, err
	}
	return id, w.reg.DefineDict(id, keys, vals)
}

func (w *Walker) walkAll(elems []value.Value) ([]defs.ObjectID, error) {
	out := make([]defs.ObjectID, len(elems))
	for i, e := range elems {
		id, err := w.walk(e)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

// instance walks the class first, then the data members: the attributes
// __init__ assigns, in that order, followed by any others.
func (w *Walker) instance(inst *value.Instance) (defs.ObjectID, error) {
	id, err := w.begin(inst, false)
	if err != nil {
		return defs.NoID, err
	}
	defer w.end(id)

	cls, err := w.walk(inst.Class)
	if err != nil {
		return defs.NoID, err
	}
	members := make(map[string]defs.ObjectID, inst.Attrs.Len())
	for _, name := range memberOrder(inst) {
		v, _ := inst.Attrs.Get(name)
		mid, err := w.walk(v)
		if err != nil {
			return defs.NoID, err
		}
		members[name] = mid
	}
	return id, w.reg.DefineClassInstance(id, cls, members)
}

func memberOrder(inst *value.Instance) []string {
	var out []string
	seen := make(map[string]bool)
	if inst.Class != nil && inst.Class.Node != nil {
		for _, name := range freevars.DataMembers(inst.Class.Node) {
			if _, ok := inst.Attrs.Get(name); ok && !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	for _, name := range inst.Attrs.Names() {
		if !seen[name] {
			out = append(out, name)
		}
	}
	return out
}

func (w *Walker) boundMethod(m *value.BoundMethod) (defs.ObjectID, error) {
	id, err := w.begin(m, false)
	if err != nil {
		return defs.NoID, err
	}
	defer w.end(id)

	self, err := w.walk(m.Self)
	if err != nil {
		return defs.NoID, err
	}
	return id, w.reg.DefineInstanceMethod(id, self, m.Name)
}

// exception captures a raised builtin exception by type name and arguments.
// Instances of user exception classes are captured as instances.
func (w *Walker) exception(e *value.Exception) (defs.ObjectID, error) {
	if e.Instance != nil {
		id, err := w.walk(e.Instance)
		if err == nil {
			w.remember(e, id)
		}
		return id, err
	}
	id, err := w.begin(e, false)
	if err != nil {
		return defs.NoID, err
	}
	defer w.end(id)

	args, err := w.walk(value.NewTuple(e.Args...))
	if err != nil {
		return defs.NoID, err
	}
	return id, w.reg.DefineBuiltinExceptionInstance(id, e.Type.Name, args)
}
