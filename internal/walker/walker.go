// Package walker captures live values into a definition registry.
//
// Walk visits a root value depth first, writes one definition per distinct
// object and returns the root's id. Functions, classes and scoped blocks are
// captured from their source text: the walker reparses the minimal subtree,
// resolves its free chains and walks every value they name.
package walker

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"capsule/internal/defs"
	"capsule/internal/diag"
	"capsule/internal/purity"
	"capsule/internal/registry"
	"capsule/internal/resolve"
	"capsule/internal/source"
	"capsule/internal/trace"
	"capsule/internal/value"
)

const defaultMaxDepth = 2000

type Options struct {
	// Files caches source text by path. Files not in the set are loaded from
	// disk on first use.
	Files *source.FileSet
	// Builtins is the namespace searched last during resolution.
	Builtins *value.Module
	Purity   *purity.Registry
	// Reserved names are refused by the resolver; empty means the default
	// inline escape marker.
	Reserved []string
	MaxDepth int
	// NoPacking disables packing all-primitive lists and tuples.
	NoPacking bool
	Reporter  diag.Reporter
	Tracer    trace.Tracer
	Logger    zerolog.Logger
}

// Walker is single-use state for one capture session. Its identity tables
// must not outlive the registry it writes to.
type Walker struct {
	reg      *registry.Registry
	opts     Options
	resolver *resolve.Resolver

	ids  map[any]defs.ObjectID
	path []frame
	on   map[defs.ObjectID]int

	depth int
	span  uint64
	log   zerolog.Logger
}

// frame is one entry of the in-progress path used to detect cycles that run
// through containers.
type frame struct {
	id        defs.ObjectID
	container bool
}

func New(reg *registry.Registry, opts Options) *Walker {
	if opts.Files == nil {
		opts.Files = source.NewFileSet()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	return &Walker{
		reg:      reg,
		opts:     opts,
		resolver: resolve.New(opts.Reserved...),
		ids:      make(map[any]defs.ObjectID),
		on:       make(map[defs.ObjectID]int),
		log:      opts.Logger.With().Str("component", "walker").Logger(),
	}
}

func (w *Walker) Registry() *registry.Registry { return w.reg }

// Walk captures v and returns its id. Walking the same object again returns
// the same id without writing anything.
func (w *Walker) Walk(v value.Value) (defs.ObjectID, error) {
	if w.depth == 0 {
		span := trace.Begin(w.opts.Tracer, trace.ScopePhase, "walk", 0)
		w.span = span.ID()
		defer func() { span.WithExtra("definitions", fmt.Sprint(w.reg.Store().Len())).End("") }()
	}
	return w.walk(v)
}

func (w *Walker) walk(v value.Value) (defs.ObjectID, error) {
	if id, ok := w.lookup(v); ok {
		if err := w.checkCycle(id); err != nil {
			return defs.NoID, err
		}
		return id, nil
	}

	w.depth++
	defer func() { w.depth-- }()
	if w.depth > w.opts.MaxDepth {
		return defs.NoID, diag.Errorf(diag.CapDepthExceeded, source.Position{}, "capture nested deeper than %d", w.opts.MaxDepth)
	}

	pure, replaced, err := w.opts.Purity.Replace(v)
	if err != nil {
		return w.unconvertible(v, err.Error())
	}
	if replaced {
		id, err := w.walk(pure)
		if err != nil {
			return defs.NoID, err
		}
		w.remember(v, id)
		return id, nil
	}
	return w.dispatch(v)
}

func (w *Walker) lookup(v value.Value) (defs.ObjectID, bool) {
	id, ok := w.ids[memoKey(v)]
	return id, ok
}

func (w *Walker) remember(v value.Value, id defs.ObjectID) {
	w.ids[memoKey(v)] = id
}

type floatBits uint64

// memoKey keys floats by their bit pattern, so -0.0 and 0.0 stay apart and
// a NaN finds itself.
func memoKey(v value.Value) any {
	if f, ok := v.(value.Float); ok {
		return floatBits(math.Float64bits(float64(f)))
	}
	return v
}

// checkCycle fails when id is in progress and the path back to it passes
// through a container.
func (w *Walker) checkCycle(id defs.ObjectID) error {
	start, active := w.on[id]
	if !active {
		return nil
	}
	for _, f := range w.path[start:] {
		if f.container {
			return diag.Errorf(diag.CapSelfReferencingContainer, source.Position{}, "container %s references itself", f.id)
		}
	}
	return nil
}

// begin allocates an id for v and marks it in progress.
func (w *Walker) begin(v value.Value, container bool) (defs.ObjectID, error) {
	id, err := w.reg.Allocate()
	if err != nil {
		return defs.NoID, err
	}
	w.remember(v, id)
	w.on[id] = len(w.path)
	w.path = append(w.path, frame{id: id, container: container})
	return id, nil
}

func (w *Walker) end(id defs.ObjectID) {
	delete(w.on, id)
	w.path = w.path[:len(w.path)-1]
}

func (w *Walker) dispatch(v value.Value) (defs.ObjectID, error) {
	switch x := v.(type) {
	case value.NoneType, value.Bool, value.Int, value.Float, value.Str, value.Bytes:
		return w.primitive(v)
	case *value.List:
		return w.sequence(v, x.Elems, false)
	case *value.Tuple:
		return w.sequence(v, x.Elems, true)
	case *value.Dict:
		return w.dict(x)
	case *value.Function:
		return w.function(x)
	case *value.Class:
		return w.class(x)
	case *value.Instance:
		return w.instance(x)
	case *value.BoundMethod:
		return w.boundMethod(x)
	case *value.Builtin:
		return w.singleton(v, x.Name)
	case *value.ExceptionType:
		return w.singleton(v, x.Name)
	case *value.Exception:
		return w.exception(x)
	case *value.RemoteRef:
		return w.simple(v, func(id defs.ObjectID) error { return w.reg.DefineRemoteObject(id, x.Path) })
	case *value.ScopedBlock:
		return w.scopedBlock(x)
	case *value.Module:
		return w.unconvertible(v, "module "+x.Name)
	case *value.Unconvertible:
		return w.simple(v, func(id defs.ObjectID) error { return w.reg.DefineUnconvertible(id, x.Reason) })
	case *value.Native:
		return w.unconvertible(v, "native "+x.Type)
	}
	return w.unconvertible(v, v.TypeName())
}

// simple defines a leaf that has no children.
func (w *Walker) simple(v value.Value, define func(defs.ObjectID) error) (defs.ObjectID, error) {
	id, err := w.reg.Allocate()
	if err != nil {
		return defs.NoID, err
	}
	if err := define(id); err != nil {
		return defs.NoID, err
	}
	w.remember(v, id)
	return id, nil
}

func (w *Walker) primitive(v value.Value) (defs.ObjectID, error) {
	p, _ := defs.PrimitiveOf(v, false)
	return w.simple(v, func(id defs.ObjectID) error { return w.reg.DefinePrimitive(id, p) })
}

func (w *Walker) singleton(v value.Value, name string) (defs.ObjectID, error) {
	return w.simple(v, func(id defs.ObjectID) error { return w.reg.DefineNamedSingleton(id, name) })
}

// unconvertible records a placeholder for v and warns. The capture goes on.
func (w *Walker) unconvertible(v value.Value, reason string) (defs.ObjectID, error) {
	diag.ReportWarning(w.opts.Reporter, diag.CapUnconvertible, source.Span{},
		fmt.Sprintf("%s cannot be captured and is replaced by a placeholder", reason)).Emit()
	w.log.Debug().Str("reason", reason).Msg("unconvertible value")
	return w.simple(v, func(id defs.ObjectID) error { return w.reg.DefineUnconvertible(id, reason) })
}
