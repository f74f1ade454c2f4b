package convert

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"capsule/internal/ast"
	"capsule/internal/defs"
	"capsule/internal/diag"
	"capsule/internal/source"
	"capsule/internal/trace"
	"capsule/internal/value"
	"capsule/internal/wire"
)

// member is one definition being built from a shell.
type member struct {
	id   defs.ObjectID
	d    defs.Definition
	v    value.Value
	name string
}

// cyclic builds a strongly connected component jointly. Shells for every
// member are registered first so in-component references bind to them.
func (c *Converter) cyclic(comp []defs.ObjectID) error {
	span := trace.Begin(c.opts.Tracer, trace.ScopeComponent, "component", c.span)
	span.WithExtra("size", fmt.Sprint(len(comp)))
	defer span.End("")

	members := make([]*member, 0, len(comp))
	for _, id := range comp {
		d, err := c.reg.Get(id)
		if err != nil {
			return err
		}
		if defs.IsContainer(d) {
			return diag.Errorf(diag.CapSelfReferencingContainer, source.Position{}, "%s %s is part of a reference cycle", d.Kind(), id)
		}
		if !defs.MayCycle(d) {
			return diag.Errorf(diag.CnvConversion, source.Position{}, "%s %s cannot be part of a reference cycle", d.Kind(), id)
		}
		m, err := c.shell(id, d)
		if err != nil {
			return err
		}
		members = append(members, m)
	}

	used := make(map[string]bool, len(members))
	for _, m := range members {
		name, err := bundleName(m.d, used)
		if err != nil {
			return err
		}
		m.name = name
		c.values[m.id] = m.v
	}
	if err := c.complete(members); err != nil {
		for _, m := range members {
			delete(c.values, m.id)
		}
		return err
	}
	for _, m := range members {
		c.bundles[m.name] = m.v
	}
	c.log.Debug().Int("size", len(members)).Str("first", members[0].name).Msg("built cyclic component")
	return nil
}

// bundleName names a component member after the hash of its definition.
// Identical definitions get a numeric suffix.
func bundleName(d defs.Definition, used map[string]bool) (string, error) {
	kind, payload, err := wire.Encode(d)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte{byte(kind)}, payload...))
	base := fmt.Sprintf("%s_%s", kind, hex.EncodeToString(sum[:6]))
	name := base
	for i := 2; used[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	used[name] = true
	return name, nil
}

// shell allocates the value for d without binding any of its references.
func (c *Converter) shell(id defs.ObjectID, d defs.Definition) (*member, error) {
	m := &member{id: id, d: d}
	switch x := d.(type) {
	case *defs.Function:
		f, node, err := c.source(x.SourceFile, x.Site())
		if err != nil {
			return nil, err
		}
		switch node.(type) {
		case *ast.FuncDef, *ast.Lambda:
		default:
			return nil, diag.Errorf(diag.CnvConversion, source.Position{Path: f.Path, Line: x.Line}, "function %s does not start at line %d", id, x.Line)
		}
		m.v = &value.Function{Node: node, File: f.Path, Line: x.Line, Globals: c.moduleFor(x.SourceFile), Chains: map[string]value.Value{}}
	case *defs.ScopedBlock:
		f, node, err := c.source(x.SourceFile, defs.Site{Line: x.Line, Name: "<with>"})
		if err != nil {
			return nil, err
		}
		m.v = &value.Function{Node: node, File: f.Path, Line: x.Line, Globals: c.moduleFor(x.SourceFile), Chains: map[string]value.Value{}}
	case *defs.Class:
		f, node, err := c.source(x.SourceFile, x.Site())
		if err != nil {
			return nil, err
		}
		cd, ok := node.(*ast.ClassDef)
		if !ok {
			return nil, diag.Errorf(diag.CnvConversion, source.Position{Path: f.Path, Line: x.Line}, "class %s does not start at line %d", id, x.Line)
		}
		m.v = &value.Class{Name: cd.Name, Node: cd, File: f.Path, Line: x.Line, Globals: c.moduleFor(x.SourceFile), Chains: map[string]value.Value{}}
	case *defs.ClassInstance:
		m.v = &value.Instance{Attrs: value.NewNamespace()}
	case *defs.InstanceMethod:
		m.v = &value.BoundMethod{Name: x.Method}
	default:
		return nil, diag.Errorf(diag.CnvConversion, source.Position{}, "no shell for %s %s", d.Kind(), id)
	}
	return m, nil
}

// complete binds and builds shells whose references are all registered.
// Functions come first, then classes, instances and bound methods, so each
// step sees finished values from the steps before it.
func (c *Converter) complete(members []*member) error {
	inComponent := make(map[defs.ObjectID]bool, len(members))
	for _, m := range members {
		inComponent[m.id] = true
	}
	for _, m := range members {
		if err := c.bindChains(m); err != nil {
			return err
		}
	}
	for _, m := range members {
		if fn, ok := m.v.(*value.Function); ok {
			if err := c.opts.Interp.BuildFunction(fn); err != nil {
				return diag.Wrap(diag.CnvConversion, err, "rebuild %s", m.id)
			}
		}
	}
	for _, m := range members {
		if x, ok := m.d.(*defs.Class); ok {
			if err := c.buildClass(m, x, inComponent); err != nil {
				return err
			}
		}
	}
	for _, m := range members {
		if x, ok := m.d.(*defs.ClassInstance); ok {
			if err := c.fillInstance(m, x); err != nil {
				return err
			}
		}
	}
	for _, m := range members {
		if x, ok := m.d.(*defs.InstanceMethod); ok {
			if err := c.bindMethod(m, x); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Converter) bindChains(m *member) error {
	var (
		chains map[string]defs.ObjectID
		into   map[string]value.Value
	)
	switch x := m.d.(type) {
	case *defs.Function:
		chains, into = x.Chains, m.v.(*value.Function).Chains
	case *defs.ScopedBlock:
		chains, into = x.Chains, m.v.(*value.Function).Chains
	case *defs.Class:
		chains, into = x.Chains, m.v.(*value.Class).Chains
	default:
		return nil
	}
	for key, id := range chains {
		v, err := c.value(id)
		if err != nil {
			return err
		}
		into[key] = v
	}
	return nil
}

func (c *Converter) buildClass(m *member, d *defs.Class, inComponent map[defs.ObjectID]bool) error {
	cls := m.v.(*value.Class)
	bases := make([]value.Value, 0, len(d.Bases))
	for _, b := range d.Bases {
		if inComponent[b] {
			return diag.Errorf(diag.CnvConversion, source.Position{Path: cls.File, Line: cls.Line},
				"class %s inherits from %s in its own reference cycle", cls.Name, b)
		}
		v, err := c.value(b)
		if err != nil {
			return err
		}
		bases = append(bases, v)
	}
	if err := c.opts.Interp.BuildClass(cls, bases); err != nil {
		return diag.Wrap(diag.CnvConversion, err, "rebuild class %s", cls.Name)
	}
	return nil
}

func (c *Converter) fillInstance(m *member, d *defs.ClassInstance) error {
	inst := m.v.(*value.Instance)
	cv, err := c.value(d.Class)
	if err != nil {
		return err
	}
	cls, ok := cv.(*value.Class)
	if !ok {
		return diag.Errorf(diag.CnvConversion, source.Position{}, "instance %s has a %s for a class", m.id, cv.TypeName())
	}
	inst.Class = cls
	for _, name := range defs.SortedKeys(d.Members) {
		v, err := c.value(d.Members[name])
		if err != nil {
			return err
		}
		inst.Attrs.Set(name, v)
	}
	return nil
}

func (c *Converter) bindMethod(m *member, d *defs.InstanceMethod) error {
	bm := m.v.(*value.BoundMethod)
	sv, err := c.value(d.Instance)
	if err != nil {
		return err
	}
	self, ok := sv.(*value.Instance)
	if !ok || self.Class == nil {
		return diag.Errorf(diag.CnvConversion, source.Position{}, "method %s is bound to a %s", d.Method, sv.TypeName())
	}
	fv, ok := self.Class.Lookup(d.Method)
	fn, isFn := fv.(*value.Function)
	if !ok || !isFn {
		return diag.Errorf(diag.CnvConversion, source.Position{}, "class %s has no method %q", self.Class.Name, d.Method)
	}
	bm.Self, bm.Fn = self, fn
	return nil
}
