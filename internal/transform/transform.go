// Package transform turns a result value into a content-addressed object
// table for sending back to the caller.
//
// Every distinct node is stored once under the hex sha256 of its canonical
// msgpack encoding. Children are referenced by that hash, so equal
// substructures collapse into one entry.
package transform

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"capsule/internal/ast"
	"capsule/internal/diag"
	"capsule/internal/freevars"
	"capsule/internal/purity"
	"capsule/internal/source"
	"capsule/internal/trace"
	"capsule/internal/value"
)

// ObjectOverhead is the size charged for every object on top of its payload.
const ObjectOverhead = 20

// ErrHalted is returned, wrapped, when a result outgrows Options.MaxBytes.
var ErrHalted = errors.New("transform halted")

// Ref is the hash of a stored node.
type Ref string

// Node is one JSON-like object. Children appear as Ref values.
type Node map[string]any

type Result struct {
	Root    Ref
	Objects map[Ref]Node
	// Bytes is the estimated encoded size, overhead included.
	Bytes int
}

type Options struct {
	// MaxBytes bounds Result.Bytes; zero means no bound.
	MaxBytes int
	Purity   *purity.Registry
	Tracer   trace.Tracer
	Logger   zerolog.Logger
}

type transformer struct {
	opts    Options
	objects map[Ref]Node
	seen    map[value.Value]Ref
	active  map[value.Value]bool
	bytes   int
}

// Transform encodes v. Values reachable through a cycle cannot be encoded.
func Transform(v value.Value, opts Options) (*Result, error) {
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	span := trace.Begin(opts.Tracer, trace.ScopePhase, "transform", 0)
	defer span.End("")

	t := &transformer{
		opts:    opts,
		objects: make(map[Ref]Node),
		seen:    make(map[value.Value]Ref),
		active:  make(map[value.Value]bool),
	}
	root, err := t.visit(v)
	if err != nil {
		return nil, err
	}
	span.WithExtra("objects", fmt.Sprint(len(t.objects)))
	opts.Logger.Debug().Int("objects", len(t.objects)).Int("bytes", t.bytes).Msg("transformed result")
	return &Result{Root: root, Objects: t.objects, Bytes: t.bytes}, nil
}

func memoizable(v value.Value) bool {
	f, ok := v.(value.Float)
	return !ok || f == f
}

func (t *transformer) visit(v value.Value) (Ref, error) {
	if !memoizable(v) {
		return t.encode(v)
	}
	if ref, ok := t.seen[v]; ok {
		return ref, nil
	}
	if t.active[v] {
		return "", diag.Errorf(diag.CnvCyclicResult, source.Position{}, "result contains a %s that references itself", v.TypeName())
	}
	t.active[v] = true
	ref, err := t.encode(v)
	delete(t.active, v)
	if err != nil {
		return "", err
	}
	t.seen[v] = ref
	return ref, nil
}

// accumulate charges count objects plus extra payload bytes.
func (t *transformer) accumulate(count, extra int) error {
	t.bytes += count*ObjectOverhead + extra
	if t.opts.MaxBytes > 0 && t.bytes > t.opts.MaxBytes {
		return diag.Wrap(diag.CnvResultTooLarge, ErrHalted, "result exceeds %d bytes", t.opts.MaxBytes)
	}
	return nil
}

// store charges and interns n.
func (t *transformer) store(n Node, extra int) (Ref, error) {
	if err := t.accumulate(1, extra); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(map[string]any(n)); err != nil {
		return "", fmt.Errorf("hash result node: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())
	ref := Ref(hex.EncodeToString(sum[:]))
	if _, ok := t.objects[ref]; !ok {
		t.objects[ref] = n
	}
	return ref, nil
}

func (t *transformer) all(vs []value.Value) ([]any, error) {
	out := make([]any, len(vs))
	for i, v := range vs {
		ref, err := t.visit(v)
		if err != nil {
			return nil, err
		}
		out[i] = ref
	}
	return out, nil
}

func (t *transformer) members(names []string, get func(string) value.Value) (map[string]any, error) {
	out := make(map[string]any, len(names))
	for _, name := range names {
		ref, err := t.visit(get(name))
		if err != nil {
			return nil, err
		}
		out[name] = ref
	}
	return out, nil
}

func (t *transformer) encode(v value.Value) (Ref, error) {
	switch x := v.(type) {
	case value.NoneType:
		return t.store(Node{"primitive": nil}, 0)
	case value.Bool:
		return t.store(Node{"primitive": bool(x)}, 0)
	case value.Int:
		return t.store(Node{"primitive": int64(x)}, 0)
	case value.Float:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return t.store(Node{"primitive": value.FormatFloat(f), "float": true}, 0)
		}
		return t.store(Node{"primitive": f}, 0)
	case value.Str:
		s := base64.StdEncoding.EncodeToString([]byte(x))
		return t.store(Node{"primitive": s}, len(s))
	case value.Bytes:
		s := base64.StdEncoding.EncodeToString([]byte(x))
		return t.store(Node{"primitive": s, "bytes": true}, len(s))
	case *value.List:
		elems, err := t.all(x.Elems)
		if err != nil {
			return "", err
		}
		return t.store(Node{"list": elems}, 0)
	case *value.Tuple:
		elems, err := t.all(x.Elems)
		if err != nil {
			return "", err
		}
		return t.store(Node{"tuple": elems}, 0)
	case *value.Dict:
		keys, err := t.all(x.Keys())
		if err != nil {
			return "", err
		}
		vals, err := t.all(x.Values())
		if err != nil {
			return "", err
		}
		return t.store(Node{"dict": map[string]any{"keys": keys, "values": vals}}, 0)
	case *value.Builtin:
		return t.store(Node{"singleton": x.Name}, 0)
	case *value.ExceptionType:
		return t.store(Node{"singleton": x.Name}, 0)
	case *value.Exception:
		if x.Instance != nil {
			return t.visit(x.Instance)
		}
		args, err := t.visit(value.NewTuple(x.Args...))
		if err != nil {
			return "", err
		}
		return t.store(Node{"builtinException": x.Type.Name, "args": args}, 0)
	case *value.Instance:
		cls, err := t.visit(x.Class)
		if err != nil {
			return "", err
		}
		members, err := t.members(x.Attrs.Names(), func(n string) value.Value { v, _ := x.Attrs.Get(n); return v })
		if err != nil {
			return "", err
		}
		return t.store(Node{"classInstance": cls, "members": members}, 0)
	case *value.BoundMethod:
		self, err := t.visit(x.Self)
		if err != nil {
			return "", err
		}
		return t.store(Node{"boundMethodOn": self, "methodName": x.Name}, 0)
	case *value.Function:
		members, err := t.free(x, x.Node, x.Closure, x.Chains)
		if err != nil {
			return "", err
		}
		return t.store(Node{"functionInstance": []any{x.File, int64(x.Line)}, "members": members}, 0)
	case *value.Class:
		var node ast.Node
		if x.Node != nil {
			node = x.Node
		}
		members, err := t.free(x, node, x.Closure, x.Chains)
		if err != nil {
			return "", err
		}
		return t.store(Node{"classObject": []any{x.File, int64(x.Line)}, "members": members}, 0)
	case *value.RemoteRef:
		return t.store(Node{"remote": x.Path}, 0)
	case *value.Unconvertible:
		return t.store(Node{"untranslatable": x.Reason}, 0)
	case *value.Native:
		pure, ok, err := t.opts.Purity.Replace(x)
		if err != nil || !ok {
			return t.store(Node{"untranslatable": "native " + x.Type}, 0)
		}
		return t.visit(pure)
	}
	return t.store(Node{"untranslatable": v.TypeName()}, 0)
}

// free encodes the values bound to the free chains of node. A rebuilt
// definition answers a chain from its resolved chains, longest prefix first;
// otherwise the chain's root is read from the closure cells. Names that
// refer back to self are left out, since the source already names them.
func (t *transformer) free(self value.Value, node ast.Node, closure map[string]*value.Cell, chains map[string]value.Value) (map[string]any, error) {
	vals := make(map[string]value.Value)
	if node != nil {
		free, err := freevars.Chains(node)
		if err != nil {
			return nil, err
		}
		for _, c := range free {
			key, v, ok := lookupChain(c, closure, chains)
			if ok && v != self {
				vals[key] = v
			}
		}
	}
	return t.members(slices.Sorted(maps.Keys(vals)), func(n string) value.Value { return vals[n] })
}

func lookupChain(c freevars.Chain, closure map[string]*value.Cell, chains map[string]value.Value) (string, value.Value, bool) {
	for i := len(c.Names); i > 0; i-- {
		key := strings.Join(c.Names[:i], ".")
		if v, ok := chains[key]; ok {
			return key, v, true
		}
	}
	if cell, ok := closure[c.Root()]; ok && cell.Set {
		return c.Root(), cell.V, true
	}
	return "", nil, false
}
