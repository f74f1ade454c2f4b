package transform

// Expand inlines every reference below ref, giving a plain tree. Shared
// substructures are repeated.
func (r *Result) Expand(ref Ref) any {
	n, ok := r.Objects[ref]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(n))
	for k, v := range n {
		out[k] = r.expand(v)
	}
	return out
}

func (r *Result) expand(v any) any {
	switch x := v.(type) {
	case Ref:
		return r.Expand(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = r.expand(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = r.expand(e)
		}
		return out
	}
	return v
}

// Tree expands the root.
func (r *Result) Tree() any { return r.Expand(r.Root) }
