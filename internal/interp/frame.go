package interp

import (
	"strings"

	"capsule/internal/freevars"
	"capsule/internal/source"
	"capsule/internal/value"
)

type frameKind uint8

const (
	moduleFrame frameKind = iota
	functionFrame
	classFrame
)

// frame is one activation: a module body, a class body or a function call.
type frame struct {
	kind frameKind
	name string
	path string
	// info is nil for module frames.
	info *freevars.ScopeInfo
	// locals holds one cell per local of a function frame, created up front
	// so closures defined early see later assignments.
	locals map[string]*value.Cell
	// ns is the class namespace of a class frame.
	ns      *value.Namespace
	closure map[string]*value.Cell
	chains  map[string]value.Value
	globals *value.Module
}

func newFunctionFrame(fn *value.Function, info *freevars.ScopeInfo) *frame {
	fr := &frame{
		kind:    functionFrame,
		name:    fn.Name,
		path:    fn.File,
		info:    info,
		locals:  make(map[string]*value.Cell, len(info.Locals)),
		closure: fn.Closure,
		chains:  fn.Chains,
		globals: fn.Globals,
	}
	for _, name := range info.Locals {
		fr.locals[name] = &value.Cell{}
	}
	return fr
}

func (fr *frame) pos(line int) source.Position {
	return source.Position{Path: fr.path, Line: line}
}

// lookup resolves a bare name: locals, closure cells, captured chains,
// globals, then builtins.
func (in *Interp) lookup(fr *frame, name string) (value.Value, error) {
	switch fr.kind {
	case functionFrame:
		if c, ok := fr.locals[name]; ok {
			if !c.Set {
				return nil, throw(NameError, "local variable '%s' referenced before assignment", name)
			}
			return c.V, nil
		}
		if fr.info.Globals[name] {
			return in.lookupGlobal(fr, name)
		}
	case classFrame:
		if v, ok := fr.ns.Get(name); ok {
			return v, nil
		}
	case moduleFrame:
		return in.lookupGlobal(fr, name)
	}
	if c, ok := fr.closure[name]; ok {
		if !c.Set {
			return nil, throw(NameError, "free variable '%s' referenced before assignment", name)
		}
		return c.V, nil
	}
	if v, ok := fr.chains[name]; ok {
		return v, nil
	}
	return in.lookupGlobal(fr, name)
}

func (in *Interp) lookupGlobal(fr *frame, name string) (value.Value, error) {
	if fr.globals != nil {
		if v, ok := fr.globals.Attrs.Get(name); ok {
			return v, nil
		}
	}
	if v, ok := in.builtins.Attrs.Get(name); ok {
		return v, nil
	}
	return nil, throw(NameError, "name '%s' is not defined", name)
}

// chainPrefix finds the longest dotted prefix of path, at least two names
// long, that was captured as a chain. It returns the value and the number of
// names consumed.
func (fr *frame) chainPrefix(path []string) (value.Value, int, bool) {
	if len(fr.chains) == 0 || len(path) < 2 || fr.shadows(path[0]) {
		return nil, 0, false
	}
	key := path[0]
	best, n := value.Value(nil), 0
	for i := 1; i < len(path); i++ {
		key += "." + path[i]
		if v, ok := fr.chains[key]; ok {
			best, n = v, i+1
		}
	}
	return best, n, n > 0
}

// shadows reports whether name is bound in the frame itself, hiding any chain.
func (fr *frame) shadows(name string) bool {
	switch fr.kind {
	case functionFrame:
		if _, ok := fr.locals[name]; ok {
			return true
		}
	case classFrame:
		if _, ok := fr.ns.Get(name); ok {
			return true
		}
	}
	_, ok := fr.closure[name]
	return ok
}

func (in *Interp) store(fr *frame, name string, v value.Value) error {
	switch fr.kind {
	case functionFrame:
		if fr.info.Globals[name] {
			fr.globals.Attrs.Set(name, v)
			return nil
		}
		if fr.info.Nonlocals[name] {
			c, ok := fr.closure[name]
			if !ok {
				return throw(NameError, "no binding for nonlocal '%s' found", name)
			}
			c.V, c.Set = v, true
			return nil
		}
		c, ok := fr.locals[name]
		if !ok {
			c = &value.Cell{}
			fr.locals[name] = c
		}
		c.V, c.Set = v, true
	case classFrame:
		fr.ns.Set(name, v)
	case moduleFrame:
		fr.globals.Attrs.Set(name, v)
	}
	return nil
}

// captureCells returns the cells a function defined in fr closes over. Class
// namespaces are never captured.
func (fr *frame) captureCells() map[string]*value.Cell {
	if fr.kind == moduleFrame {
		return nil
	}
	out := make(map[string]*value.Cell, len(fr.closure)+len(fr.locals))
	for k, c := range fr.closure {
		out[k] = c
	}
	for k, c := range fr.locals {
		out[k] = c
	}
	return out
}

// visible returns the set variables a scoped block can read, and the
// function locals that are not yet assigned.
func (fr *frame) visible() (map[string]value.Value, []string) {
	bound := make(map[string]value.Value)
	var unbound []string
	for k, c := range fr.closure {
		if c.Set {
			bound[k] = c.V
		}
	}
	for k, v := range fr.chains {
		if !strings.Contains(k, ".") {
			bound[k] = v
		}
	}
	switch fr.kind {
	case functionFrame:
		for _, name := range fr.info.Locals {
			c := fr.locals[name]
			if c.Set {
				bound[name] = c.V
			} else {
				unbound = append(unbound, name)
			}
		}
	case classFrame:
		for _, name := range fr.ns.Names() {
			v, _ := fr.ns.Get(name)
			bound[name] = v
		}
	}
	return bound, unbound
}
