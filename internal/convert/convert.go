// Package convert rebuilds live values from a definition registry.
//
// The dependency graph below the root is split into strongly connected
// components and processed leaves first, so every external dependency of a
// component is already a value when the component is built. Acyclic nodes are
// built one at a time. Cycles are only legal between functions, classes,
// instances and bound methods; those are built jointly from shells.
package convert

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"capsule/internal/ast"
	"capsule/internal/defs"
	"capsule/internal/diag"
	"capsule/internal/graph"
	"capsule/internal/interp"
	"capsule/internal/parser"
	"capsule/internal/registry"
	"capsule/internal/source"
	"capsule/internal/trace"
	"capsule/internal/value"
)

type Options struct {
	// Interp rebuilds functions and classes and resolves named singletons.
	Interp *interp.Interp
	// Remote resolves remote object references. Without it they fail.
	Remote RemoteResolver
	Tracer trace.Tracer
	Logger zerolog.Logger
}

type Converter struct {
	reg  *registry.Registry
	opts Options

	values  map[defs.ObjectID]value.Value
	files   map[defs.ObjectID]*source.File
	globals map[defs.ObjectID]*value.Module
	bundles map[string]value.Value

	span uint64
	log  zerolog.Logger
}

func New(reg *registry.Registry, opts Options) *Converter {
	if opts.Interp == nil {
		opts.Interp = interp.New(interp.Options{Logger: opts.Logger})
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	return &Converter{
		reg:     reg,
		opts:    opts,
		values:  make(map[defs.ObjectID]value.Value),
		files:   make(map[defs.ObjectID]*source.File),
		globals: make(map[defs.ObjectID]*value.Module),
		bundles: make(map[string]value.Value),
		log:     opts.Logger.With().Str("component", "convert").Logger(),
	}
}

// Interp returns the interpreter rebuilt values run in.
func (c *Converter) Interp() *interp.Interp { return c.opts.Interp }

// Convert returns the value for root, building everything it depends on.
// Values already built by an earlier call are reused.
func (c *Converter) Convert(root defs.ObjectID) (value.Value, error) {
	if v, ok := c.values[root]; ok {
		return v, nil
	}
	span := trace.Begin(c.opts.Tracer, trace.ScopePhase, "convert", 0)
	c.span = span.ID()
	defer span.End("")

	g, err := c.reg.DependencyGraph(root)
	if err != nil {
		return nil, err
	}
	comps := graph.Components(g)
	span.WithExtra("components", fmt.Sprint(len(comps)))
	for _, comp := range comps {
		if c.built(comp[0]) {
			continue
		}
		if graph.IsCyclic(g, comp) {
			err = c.cyclic(comp)
		} else {
			err = c.single(comp[0])
		}
		if err != nil {
			return nil, err
		}
	}
	v, ok := c.values[root]
	if !ok {
		return nil, diag.Errorf(diag.CnvConversion, source.Position{}, "%s is a source file, not a value", root)
	}
	return v, nil
}

// Bundle returns a member of a jointly built component by its content name.
func (c *Converter) Bundle(name string) (value.Value, bool) {
	v, ok := c.bundles[name]
	return v, ok
}

// BundleNames lists the content names of every jointly built member.
func (c *Converter) BundleNames() []string {
	return slices.Sorted(maps.Keys(c.bundles))
}

func (c *Converter) built(id defs.ObjectID) bool {
	if _, ok := c.values[id]; ok {
		return true
	}
	_, ok := c.files[id]
	return ok
}

func (c *Converter) value(id defs.ObjectID) (value.Value, error) {
	v, ok := c.values[id]
	if !ok {
		return nil, diag.Errorf(diag.CnvUnknownID, source.Position{}, "%s referenced before it was built", id)
	}
	return v, nil
}

func (c *Converter) all(ids []defs.ObjectID) ([]value.Value, error) {
	out := make([]value.Value, len(ids))
	for i, id := range ids {
		v, err := c.value(id)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *Converter) single(id defs.ObjectID) error {
	d, err := c.reg.Get(id)
	if err != nil {
		return err
	}
	if sf, ok := d.(*defs.SourceFile); ok {
		c.files[id] = c.opts.Interp.Files().Get(c.opts.Interp.Files().AddVirtual(sf.Path, []byte(sf.Text)))
		return nil
	}
	v, err := c.leaf(id, d)
	if err != nil {
		return err
	}
	c.values[id] = v
	return nil
}

// leaf builds a definition whose dependencies are all built.
func (c *Converter) leaf(id defs.ObjectID, d defs.Definition) (value.Value, error) {
	switch x := d.(type) {
	case *defs.Primitive:
		v, err := x.Value()
		if err != nil {
			return nil, diag.Wrap(diag.CnvBadPayload, err, "primitive %s", id)
		}
		return v, nil
	case *defs.List:
		elems, err := c.all(x.Members)
		if err != nil {
			return nil, err
		}
		return value.NewList(elems...), nil
	case *defs.Tuple:
		elems, err := c.all(x.Members)
		if err != nil {
			return nil, err
		}
		return value.NewTuple(elems...), nil
	case *defs.Dict:
		return c.dict(id, x)
	case *defs.NamedSingleton:
		v, ok := c.opts.Interp.Singleton(x.Name)
		if !ok {
			return nil, diag.Errorf(diag.CnvConversion, source.Position{}, "unknown singleton %q", x.Name)
		}
		return v, nil
	case *defs.BuiltinExceptionInstance:
		return c.exception(x)
	case *defs.RemoteObjectReference:
		return c.remote(x)
	case *defs.Unconvertible:
		return &value.Unconvertible{Reason: x.Reason}, nil
	case *defs.Function, *defs.Class, *defs.ClassInstance, *defs.InstanceMethod, *defs.ScopedBlock:
		m, err := c.shell(id, d)
		if err != nil {
			return nil, err
		}
		c.values[id] = m.v
		if err := c.complete([]*member{m}); err != nil {
			delete(c.values, id)
			return nil, err
		}
		return m.v, nil
	}
	return nil, diag.Errorf(diag.StoUnknownKind, source.Position{}, "cannot convert %s of kind %s", id, d.Kind())
}

func (c *Converter) dict(id defs.ObjectID, d *defs.Dict) (value.Value, error) {
	keys, err := c.all(d.Keys)
	if err != nil {
		return nil, err
	}
	vals, err := c.all(d.Values)
	if err != nil {
		return nil, err
	}
	out := value.NewDict()
	for i := range keys {
		if err := out.Set(keys[i], vals[i]); err != nil {
			return nil, diag.Wrap(diag.CnvConversion, err, "dict %s", id)
		}
	}
	return out, nil
}

func (c *Converter) exception(d *defs.BuiltinExceptionInstance) (value.Value, error) {
	t, ok := c.opts.Interp.Singleton(d.Type)
	et, isType := t.(*value.ExceptionType)
	if !ok || !isType {
		return nil, diag.Errorf(diag.CnvConversion, source.Position{}, "unknown exception type %q", d.Type)
	}
	args, err := c.value(d.Args)
	if err != nil {
		return nil, err
	}
	tup, ok := args.(*value.Tuple)
	if !ok {
		return nil, diag.Errorf(diag.CnvBadPayload, source.Position{}, "exception %s arguments are a %s", d.Type, args.TypeName())
	}
	return &value.Exception{Type: et, Args: tup.Elems}, nil
}

// source returns the parsed definition at line of a converted source file.
func (c *Converter) source(file defs.ObjectID, at defs.Site) (*source.File, ast.Node, error) {
	f, ok := c.files[file]
	if !ok {
		return nil, nil, diag.Errorf(diag.CnvUnknownID, source.Position{}, "source file %s not loaded", file)
	}
	node, _, err := parser.ParseSite(f, at)
	if err != nil {
		return nil, nil, diag.Wrap(diag.CnvConversion, err, "reparse %s:%d", f.Path, at.Line)
	}
	return f, node, nil
}

// moduleFor returns the globals shared by everything rebuilt from one file.
func (c *Converter) moduleFor(file defs.ObjectID) *value.Module {
	if m, ok := c.globals[file]; ok {
		return m
	}
	f := c.files[file]
	name := strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path))
	m := value.NewModule(name, f.Path)
	m.Attrs.Set("__name__", value.Str(name))
	c.globals[file] = m
	return m
}
