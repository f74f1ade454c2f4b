package wire

import (
	"bytes"
	"context"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	"capsule/internal/defs"
	"capsule/internal/diag"
	"capsule/internal/registry"
	"capsule/internal/source"
	"capsule/internal/trace"
)

// SchemaVersion is bumped whenever Envelope or a definition payload changes
// shape.
const SchemaVersion uint16 = 1

type Record struct {
	ID      defs.ObjectID      `msgpack:"id"`
	Kind    defs.Kind          `msgpack:"kind"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// Envelope is the transitive closure of one root, ready to ship.
type Envelope struct {
	Schema  uint16        `msgpack:"schema"`
	Session string        `msgpack:"session"`
	Root    defs.ObjectID `msgpack:"root"`
	Records []Record      `msgpack:"records"`
}

// Export collects every definition reachable from root, in ascending id
// order.
func Export(ctx context.Context, reg *registry.Registry, root defs.ObjectID) (*Envelope, error) {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "export", trace.CurrentSpan(ctx).SpanID)
	g, err := reg.DependencyGraph(root)
	if err != nil {
		span.End("failed")
		return nil, err
	}
	env := &Envelope{Schema: SchemaVersion, Root: root}
	for _, id := range g.Nodes() {
		d, err := reg.Get(id)
		if err != nil {
			span.End("failed")
			return nil, err
		}
		kind, payload, err := Encode(d)
		if err != nil {
			span.End("failed")
			return nil, err
		}
		env.Records = append(env.Records, Record{ID: id, Kind: kind, Payload: payload})
	}
	span.WithExtra("records", strconv.Itoa(len(env.Records))).End("")
	return env, nil
}

// Import rebuilds an in-memory registry from env. Ids are kept as they were
// on the capturing side.
func Import(env *Envelope) (*registry.Registry, error) {
	if env.Schema != SchemaVersion {
		return nil, diag.Errorf(diag.StoSchema, source.Position{}, "envelope schema %d, want %d", env.Schema, SchemaVersion)
	}
	store := registry.NewMemoryStore()
	for _, rec := range env.Records {
		d, err := Decode(rec.Kind, rec.Payload)
		if err != nil {
			return nil, diag.Wrap(diag.StoUnknownKind, err, "record %s", rec.ID)
		}
		if err := store.Restore(rec.ID, d); err != nil {
			return nil, err
		}
	}
	if _, ok := store.Get(env.Root); !ok {
		return nil, diag.Errorf(diag.CnvUnknownID, source.Position{}, "root %s missing from envelope", env.Root)
	}
	return registry.New(store), nil
}

func (e *Envelope) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Unmarshal(data []byte) (*Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, diag.Wrap(diag.StoSchema, err, "malformed envelope")
	}
	return &env, nil
}
