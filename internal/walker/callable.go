package walker

import (
	"fmt"
	"maps"
	"slices"

	"capsule/internal/ast"
	"capsule/internal/defs"
	"capsule/internal/diag"
	"capsule/internal/freevars"
	"capsule/internal/parser"
	"capsule/internal/resolve"
	"capsule/internal/source"
	"capsule/internal/trace"
	"capsule/internal/value"
)

// locate loads the source of a definition and parses the subtree at site.
// When the live value still holds its syntax node, the node's keyword column
// is added to the site so same-line definitions stay apart. ok is false when
// the file cannot be read.
func (w *Walker) locate(path string, at defs.Site, node ast.Node) (*source.File, ast.Node, defs.Site, bool, error) {
	f, err := w.opts.Files.Ensure(path)
	if err != nil {
		w.log.Debug().Err(err).Str("path", path).Msg("source unavailable")
		return nil, nil, at, false, nil
	}
	if node != nil && f.LineOf(node.Span().Start) == at.Line {
		at.Col = parser.KeywordCol(f, node)
	}
	found, _, err := parser.ParseSite(f, at)
	if err != nil {
		return nil, nil, at, true, err
	}
	return f, found, at, true, nil
}

func reservedDefinition(what, name, path string, line int) error {
	return diag.Errorf(diag.CapReservedNameUsed, source.Position{Path: path, Line: line},
		"%s %s uses a reserved name", what, name)
}

// withFrame adds the enclosing definition to an error escaping it.
func withFrame(err error, path string, line int, name string) error {
	de, ok := diag.AsError(err)
	if !ok {
		return err
	}
	if de.Pos.Path == "" && de.Pos.Line != 0 {
		de.Pos.Path = path
	}
	return de.WithFrame(diag.Frame{Path: path, Line: line, Name: name})
}

// bind walks every resolved value in key order and returns the chain map.
func (w *Walker) bind(res map[string]resolve.Resolution) (map[string]defs.ObjectID, error) {
	chains := make(map[string]defs.ObjectID, len(res))
	for _, key := range slices.Sorted(maps.Keys(res)) {
		id, err := w.walk(res[key].Value)
		if err != nil {
			return nil, err
		}
		chains[key] = id
	}
	return chains, nil
}

func (w *Walker) fileID(f *source.File) (defs.ObjectID, error) {
	return w.reg.IDForFile(f.Path, string(f.Content))
}

func cellValues(cells map[string]*value.Cell) map[string]value.Value {
	out := make(map[string]value.Value, len(cells))
	for k, c := range cells {
		if c.Set {
			out[k] = c.V
		} else {
			out[k] = nil
		}
	}
	return out
}

func attrs(m *value.Module) *value.Namespace {
	if m == nil {
		return nil
	}
	return m.Attrs
}

func (w *Walker) scope(owner string, f *source.File, closure map[string]value.Value, chains map[string]value.Value, globals *value.Module) resolve.Scope {
	return resolve.Scope{
		Closure:  closure,
		Chains:   chains,
		Globals:  attrs(globals),
		Builtins: attrs(w.opts.Builtins),
		Owner:    owner,
		File:     f,
	}
}

func (w *Walker) function(fn *value.Function) (defs.ObjectID, error) {
	name := fn.Name
	switch {
	case fn.IsLambda():
		name = "<lambda>"
	case fn.IsBlock():
		name = "<with>"
	}
	if w.resolver.IsReserved(fn.Name) {
		return defs.NoID, reservedDefinition("function", fn.Name, fn.File, fn.Line)
	}
	if fn.Generator {
		return w.unconvertible(fn, "generator function "+name)
	}
	f, node, at, ok, err := w.locate(fn.File, defs.Site{Line: fn.Line, Name: name}, fn.Node)
	if !ok {
		return w.unconvertible(fn, fmt.Sprintf("function %s without source", name))
	}
	if diag.IsCode(err, diag.SynAmbiguousSite) {
		return w.unconvertible(fn, fmt.Sprintf("function %s is not the only definition at %s:%d", name, fn.File, fn.Line))
	}
	if err != nil {
		return defs.NoID, withFrame(err, fn.File, fn.Line, name)
	}

	id, err := w.begin(fn, false)
	if err != nil {
		return defs.NoID, err
	}
	defer w.end(id)
	span := trace.Begin(w.opts.Tracer, trace.ScopeComponent, "capture "+name, w.span)
	defer span.End("")
	w.log.Debug().Str("name", name).Str("file", f.Path).Int("line", fn.Line).Msg("capture function")

	res, err := w.resolver.Resolve(node, w.scope(name, f, cellValues(fn.Closure), fn.Chains, fn.Globals))
	if err != nil {
		return defs.NoID, withFrame(err, f.Path, fn.Line, name)
	}
	chains, err := w.bind(res)
	if err != nil {
		return defs.NoID, withFrame(err, f.Path, fn.Line, name)
	}
	file, err := w.fileID(f)
	if err != nil {
		return defs.NoID, err
	}
	if fn.IsBlock() {
		return id, w.reg.DefineScopedBlock(id, file, fn.Line, chains)
	}
	return id, w.reg.DefineFunction(id, file, at, chains)
}

// baseValues lists the bases a rebuilt class needs, including a builtin
// exception type inherited directly.
func baseValues(cls *value.Class) []value.Value {
	out := make([]value.Value, 0, len(cls.Bases)+1)
	inherited := false
	for _, b := range cls.Bases {
		out = append(out, b)
		if b.Exception != nil && b.Exception == cls.Exception {
			inherited = true
		}
	}
	if cls.Exception != nil && !inherited {
		out = append(out, cls.Exception)
	}
	return out
}

func (w *Walker) class(cls *value.Class) (defs.ObjectID, error) {
	if w.resolver.IsReserved(cls.Name) {
		return defs.NoID, reservedDefinition("class", cls.Name, cls.File, cls.Line)
	}
	var syntax ast.Node
	if cls.Node != nil {
		syntax = cls.Node
	}
	f, node, at, ok, err := w.locate(cls.File, defs.Site{Line: cls.Line, Name: cls.Name}, syntax)
	if !ok {
		return w.unconvertible(cls, fmt.Sprintf("class %s without source", cls.Name))
	}
	if diag.IsCode(err, diag.SynAmbiguousSite) {
		return w.unconvertible(cls, fmt.Sprintf("class %s is not the only definition at %s:%d", cls.Name, cls.File, cls.Line))
	}
	if err != nil {
		return defs.NoID, withFrame(err, cls.File, cls.Line, cls.Name)
	}

	id, err := w.begin(cls, false)
	if err != nil {
		return defs.NoID, err
	}
	defer w.end(id)
	span := trace.Begin(w.opts.Tracer, trace.ScopeComponent, "capture "+cls.Name, w.span)
	defer span.End("")

	bases, err := w.walkAll(baseValues(cls))
	if err != nil {
		return defs.NoID, withFrame(err, f.Path, cls.Line, cls.Name)
	}
	res, err := w.resolver.Resolve(node, w.scope(cls.Name, f, cellValues(cls.Closure), cls.Chains, cls.Globals))
	if err != nil {
		return defs.NoID, withFrame(err, f.Path, cls.Line, cls.Name)
	}
	chains, err := w.bind(res)
	if err != nil {
		return defs.NoID, withFrame(err, f.Path, cls.Line, cls.Name)
	}
	file, err := w.fileID(f)
	if err != nil {
		return defs.NoID, err
	}
	if err := w.reg.DefineClass(id, file, at, chains, bases); err != nil {
		return defs.NoID, withFrame(err, f.Path, cls.Line, cls.Name)
	}
	return id, nil
}

// scopedBlock captures a with-block body as a zero-argument unit. Names the
// block assigns that were already bound outside it are captured too, so the
// block starts from their current values.
func (w *Walker) scopedBlock(b *value.ScopedBlock) (defs.ObjectID, error) {
	const name = "<with>"
	f, node, _, ok, err := w.locate(b.File, defs.Site{Line: b.Line, Name: name}, nil)
	if !ok {
		return w.unconvertible(b, "scoped block without source")
	}
	if err != nil {
		return defs.NoID, withFrame(err, b.File, b.Line, name)
	}
	with, isWith := node.(*ast.With)
	if !isWith {
		return defs.NoID, diag.Errorf(diag.CapBadScopedBlock, source.Position{Path: f.Path, Line: b.Line}, "no with statement at line %d", b.Line)
	}
	if bad := freevars.OuterScopeReturnOrYield(with); bad != nil {
		what := "return"
		if _, isYield := bad.(*ast.Yield); isYield {
			what = "yield"
		}
		return defs.NoID, diag.Errorf(diag.CapBadScopedBlock, source.Position{Path: f.Path, Line: bad.Line()},
			"scoped block starting at line %d contains a %s at line %d", b.Line, what, bad.Line())
	}

	chains, err := freevars.Chains(with)
	if err != nil {
		return defs.NoID, withFrame(err, f.Path, b.Line, name)
	}
	seen := make(map[string]bool, len(chains))
	for _, c := range chains {
		seen[c.Key()] = true
	}
	for _, local := range freevars.BoundInScope(with) {
		if _, bound := b.Bound[local]; bound && !seen[local] {
			chains = append(chains, freevars.Chain{Names: []string{local}, Line: b.Line})
		}
	}
	closure := maps.Clone(b.Bound)
	if closure == nil {
		closure = make(map[string]value.Value)
	}
	for _, u := range b.Unbound {
		if _, bound := closure[u]; !bound {
			closure[u] = nil
		}
	}

	id, err := w.begin(b, false)
	if err != nil {
		return defs.NoID, err
	}
	defer w.end(id)

	sc := w.scope(name, f, closure, nil, b.Globals)
	if err := w.resolver.CheckBindings(with, sc); err != nil {
		return defs.NoID, withFrame(err, f.Path, b.Line, name)
	}
	res, err := w.resolver.ResolveChains(chains, sc)
	if err != nil {
		return defs.NoID, withFrame(err, f.Path, b.Line, name)
	}
	ids, err := w.bind(res)
	if err != nil {
		return defs.NoID, withFrame(err, f.Path, b.Line, name)
	}
	file, err := w.fileID(f)
	if err != nil {
		return defs.NoID, err
	}
	return id, w.reg.DefineScopedBlock(id, file, b.Line, ids)
}
