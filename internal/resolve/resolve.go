// Package resolve binds the free member-access chains of a definition to the
// live values they name at capture time.
//
// A chain is followed only while the value reached so far is a module. Once
// it stops being a namespace the rest of the chain is left to ordinary
// attribute lookup when the rebuilt code runs. This decides what is frozen at
// capture time and what is looked up later, so it must not be extended to
// resolve every segment eagerly.
package resolve

import (
	"strings"

	"capsule/internal/ast"
	"capsule/internal/diag"
	"capsule/internal/freevars"
	"capsule/internal/source"
	"capsule/internal/value"
)

// DefaultReserved is the marker name the inline escape uses.
const DefaultReserved = "__inline_remote"

// Scope is everything a definition can see from outside its own body.
type Scope struct {
	// Closure holds the cells the definition closes over. A nil value marks
	// a cell that is not bound yet; it hides outer bindings of the name.
	Closure map[string]value.Value
	// Chains holds chains a rebuilt definition was bound to, keyed by their
	// dotted form.
	Chains   map[string]value.Value
	Globals  *value.Namespace
	Builtins *value.Namespace

	// Owner names the enclosing definition in error messages.
	Owner string
	// File, when set, turns chain spans into columns.
	File *source.File
}

// Resolution is one resolved chain: the minimal subchain and its value.
type Resolution struct {
	Chain []string
	Value value.Value
	Span  source.Span
	Line  int
}

func (r Resolution) Key() string { return strings.Join(r.Chain, ".") }

type Resolver struct {
	reserved map[string]bool
}

// New returns a resolver that refuses the given reserved names. With no
// names it reserves DefaultReserved.
func New(reserved ...string) *Resolver {
	if len(reserved) == 0 {
		reserved = []string{DefaultReserved}
	}
	r := &Resolver{reserved: make(map[string]bool, len(reserved))}
	for _, n := range reserved {
		r.reserved[n] = true
	}
	return r
}

// IsReserved reports whether name is never resolved.
func (r *Resolver) IsReserved(name string) bool { return r.reserved[name] }

// Resolve computes the free chains of node and resolves each against sc.
// Results are keyed by the dotted minimal subchain.
func (r *Resolver) Resolve(node ast.Node, sc Scope) (map[string]Resolution, error) {
	chains, err := freevars.Chains(node)
	if err != nil {
		return nil, err
	}
	if err := r.CheckBindings(node, sc); err != nil {
		return nil, err
	}
	return r.ResolveChains(chains, sc)
}

// CheckBindings refuses node when it, or a scope nested in it, binds a
// reserved name.
func (r *Resolver) CheckBindings(node ast.Node, sc Scope) error {
	name, at := freevars.FindBinding(node, r.IsReserved)
	if at == nil {
		return nil
	}
	pos := source.Position{Line: at.Line()}
	if sc.File != nil {
		pos = sc.File.Pos(at.Span().Start)
	}
	return diag.Errorf(diag.CapReservedNameUsed, pos, "%q is reserved and cannot be bound", name)
}

// ResolveChains resolves precomputed chains. Every chain must resolve;
// partial results are never returned.
func (r *Resolver) ResolveChains(chains []freevars.Chain, sc Scope) (map[string]Resolution, error) {
	out := make(map[string]Resolution, len(chains))
	for _, c := range chains {
		if r.reserved[c.Root()] {
			if sc.shadows(c.Root()) {
				return nil, diag.Errorf(diag.CapReservedNameUsed, sc.pos(c),
					"%q is reserved but is bound in %s's scope", c.Root(), sc.owner())
			}
			if c.Callee && len(c.Names) == 1 {
				continue
			}
			return nil, diag.Errorf(diag.CapReservedNameUsed, sc.pos(c),
				"%q is reserved and can only be called directly", c.Root())
		}
		res, err := r.resolveChain(c, sc)
		if err != nil {
			return nil, err
		}
		if _, dup := out[res.Key()]; !dup {
			out[res.Key()] = res
		}
	}
	return out, nil
}

func (r *Resolver) resolveChain(c freevars.Chain, sc Scope) (Resolution, error) {
	v, used, ok := sc.lookupRoot(c.Names)
	if !ok {
		return Resolution{}, diag.Errorf(diag.CapUnresolvedFreeVariable, sc.pos(c),
			"free variable %q referenced in %s is not defined", c.Key(), sc.owner())
	}
	i := used
	for ; i < len(c.Names); i++ {
		mod, isNS := v.(*value.Module)
		if !isNS {
			break
		}
		next, found := mod.Attrs.Get(c.Names[i])
		if !found {
			return Resolution{}, diag.Errorf(diag.CapNamespaceAttributeMissing, sc.pos(c),
				"module %s has no attribute %q", mod.Name, c.Names[i])
		}
		v = next
	}
	return Resolution{Chain: c.Names[:i], Value: v, Span: c.Span, Line: c.Line}, nil
}

// lookupRoot finds the value a chain starts from and how many names it
// covers. Search order is closure, bound chains, globals, builtins.
func (sc Scope) lookupRoot(names []string) (value.Value, int, bool) {
	root := names[0]
	if v, ok := sc.Closure[root]; ok {
		return v, 1, v != nil
	}
	for n := len(names); n >= 1; n-- {
		if v, ok := sc.Chains[strings.Join(names[:n], ".")]; ok {
			return v, n, true
		}
	}
	if v, ok := sc.Globals.Get(root); ok {
		return v, 1, true
	}
	if v, ok := sc.Builtins.Get(root); ok {
		return v, 1, true
	}
	return nil, 0, false
}

func (sc Scope) owner() string {
	if sc.Owner == "" {
		return "<unknown>"
	}
	return sc.Owner
}

// shadows reports whether user code binds name where the definition can see
// it, so a call would not reach the intrinsic.
func (sc Scope) shadows(name string) bool {
	if _, ok := sc.Closure[name]; ok {
		return true
	}
	_, ok := sc.Globals.Get(name)
	return ok
}

func (sc Scope) pos(c freevars.Chain) source.Position {
	if sc.File != nil && !c.Span.Empty() {
		return sc.File.Pos(c.Span.Start)
	}
	return source.Position{Line: c.Line}
}
