package registry

import (
	"maps"
	"slices"

	"capsule/internal/defs"
	"capsule/internal/diag"
	"capsule/internal/graph"
	"capsule/internal/source"
)

// Registry is the typed front of a Store: one Define method per definition
// variant, plus the dependency queries the converter needs.
type Registry struct {
	store Store
	files map[string]defs.ObjectID
}

func New(store Store) *Registry {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Registry{store: store, files: make(map[string]defs.ObjectID)}
}

func (r *Registry) Store() Store { return r.store }

func (r *Registry) Allocate() (defs.ObjectID, error) { return r.store.Allocate() }

// Get returns the definition for id or a CnvUnknownID error.
func (r *Registry) Get(id defs.ObjectID) (defs.Definition, error) {
	d, ok := r.store.Get(id)
	if !ok {
		return nil, diag.Errorf(diag.CnvUnknownID, source.Position{}, "no definition for %s", id)
	}
	return d, nil
}

func (r *Registry) DefinePrimitive(id defs.ObjectID, p *defs.Primitive) error {
	return r.store.Put(id, p)
}

func (r *Registry) DefineList(id defs.ObjectID, members []defs.ObjectID) error {
	return r.store.Put(id, &defs.List{Members: members})
}

func (r *Registry) DefineTuple(id defs.ObjectID, members []defs.ObjectID) error {
	return r.store.Put(id, &defs.Tuple{Members: members})
}

func (r *Registry) DefineDict(id defs.ObjectID, keys, values []defs.ObjectID) error {
	return r.store.Put(id, &defs.Dict{Keys: keys, Values: values})
}

func (r *Registry) DefineFunction(id, file defs.ObjectID, at defs.Site, chains map[string]defs.ObjectID) error {
	return r.store.Put(id, &defs.Function{SourceFile: file, Line: at.Line, Col: at.Col, Name: at.Name, Chains: chains})
}

// DefineClass requires every base to be defined already.
func (r *Registry) DefineClass(id, file defs.ObjectID, at defs.Site, chains map[string]defs.ObjectID, bases []defs.ObjectID) error {
	for _, b := range bases {
		if _, ok := r.store.Get(b); !ok {
			return diag.Errorf(diag.CapBaseNotRegistered, source.Position{Line: at.Line}, "base %s of class %s is not defined", b, id)
		}
	}
	return r.store.Put(id, &defs.Class{SourceFile: file, Line: at.Line, Name: at.Name, Chains: chains, Bases: bases})
}

func (r *Registry) DefineClassInstance(id, class defs.ObjectID, members map[string]defs.ObjectID) error {
	return r.store.Put(id, &defs.ClassInstance{Class: class, Members: members})
}

func (r *Registry) DefineInstanceMethod(id, instance defs.ObjectID, method string) error {
	return r.store.Put(id, &defs.InstanceMethod{Instance: instance, Method: method})
}

func (r *Registry) DefineNamedSingleton(id defs.ObjectID, name string) error {
	return r.store.Put(id, &defs.NamedSingleton{Name: name})
}

func (r *Registry) DefineBuiltinExceptionInstance(id defs.ObjectID, typeName string, args defs.ObjectID) error {
	return r.store.Put(id, &defs.BuiltinExceptionInstance{Type: typeName, Args: args})
}

func (r *Registry) DefineRemoteObject(id defs.ObjectID, path string) error {
	return r.store.Put(id, &defs.RemoteObjectReference{Path: path})
}

func (r *Registry) DefineScopedBlock(id, file defs.ObjectID, line int, chains map[string]defs.ObjectID) error {
	return r.store.Put(id, &defs.ScopedBlock{SourceFile: file, Line: line, Chains: chains})
}

func (r *Registry) DefineUnconvertible(id defs.ObjectID, reason string) error {
	return r.store.Put(id, &defs.Unconvertible{Reason: reason})
}

// IDForFile returns the SourceFile id for path, defining it on first use.
func (r *Registry) IDForFile(path, text string) (defs.ObjectID, error) {
	if id, ok := r.files[path]; ok {
		return id, nil
	}
	id, err := r.store.Allocate()
	if err != nil {
		return defs.NoID, err
	}
	if err := r.store.Put(id, &defs.SourceFile{Path: path, Text: text}); err != nil {
		return defs.NoID, err
	}
	r.files[path] = id
	return id, nil
}

// DependencyGraph returns the transitive closure of root's references. It
// uses an explicit worklist so deep graphs do not grow the Go stack.
func (r *Registry) DependencyGraph(root defs.ObjectID) (graph.Graph, error) {
	g := make(graph.Graph)
	work := []defs.ObjectID{root}
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		if _, done := g[id]; done {
			continue
		}
		d, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		deps := slices.Compact(slices.Clone(d.Deps()))
		g[id] = deps
		for _, dep := range deps {
			if _, done := g[dep]; !done {
				work = append(work, dep)
			}
		}
	}
	return g, nil
}

// Files lists the source files defined so far, by path.
func (r *Registry) Files() map[string]defs.ObjectID {
	return maps.Clone(r.files)
}

func sortIDs(ids []defs.ObjectID) { slices.Sort(ids) }
