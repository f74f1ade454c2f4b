// Package wire moves a definition graph across the hop to the remote side:
// a msgpack envelope holding every definition reachable from a root, with ids
// preserved exactly.
package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"capsule/internal/defs"
)

// Encode serializes one definition into its kind code and payload.
func Encode(d defs.Definition) (defs.Kind, []byte, error) {
	payload, err := msgpack.Marshal(d)
	if err != nil {
		return 0, nil, fmt.Errorf("encode %s: %w", d.Kind(), err)
	}
	return d.Kind(), payload, nil
}

// Decode rebuilds a definition from its kind code and payload.
func Decode(kind defs.Kind, payload []byte) (defs.Definition, error) {
	d, err := defs.Empty(kind)
	if err != nil {
		return nil, err
	}
	if err := msgpack.Unmarshal(payload, d); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return d, nil
}
