// Package purity maps native host objects to pure values that capture and
// the remote side understand.
package purity

import (
	"fmt"
	"slices"

	"capsule/internal/value"
)

// Mapping turns one native type into a pure value.
type Mapping struct {
	Type   string
	ToPure func(n *value.Native) (value.Value, error)
}

// Registry is owned by one walker or transform; it holds no global state.
type Registry struct {
	byType map[string]Mapping
}

func New(mappings ...Mapping) *Registry {
	r := &Registry{byType: make(map[string]Mapping, len(mappings))}
	for _, m := range mappings {
		r.Register(m)
	}
	return r
}

// Default returns a registry with the builtin mappings.
func Default() *Registry {
	return New(ArrayMapping)
}

func (r *Registry) Register(m Mapping) {
	r.byType[m.Type] = m
}

// Types lists the mapped native types.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.byType))
	for t := range r.byType {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Replace returns the pure substitute for v. ok is false when v has no
// mapping and should be walked as is.
func (r *Registry) Replace(v value.Value) (pure value.Value, ok bool, err error) {
	n, isNative := v.(*value.Native)
	if r == nil || !isNative {
		return nil, false, nil
	}
	m, found := r.byType[n.Type]
	if !found {
		return nil, false, nil
	}
	pure, err = m.ToPure(n)
	if err != nil {
		return nil, false, fmt.Errorf("pure replacement for %s: %w", n.Type, err)
	}
	return pure, true, nil
}

// ArrayMapping turns a float array into a list of floats.
var ArrayMapping = Mapping{
	Type: "array",
	ToPure: func(n *value.Native) (value.Value, error) {
		data, ok := n.Data.([]float64)
		if !ok {
			return nil, fmt.Errorf("array payload is %T, want []float64", n.Data)
		}
		elems := make([]value.Value, len(data))
		for i, f := range data {
			elems[i] = value.Float(f)
		}
		return value.NewList(elems...), nil
	},
}
