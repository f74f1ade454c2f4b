// Package registry is the definition store the walker writes into and the
// converter reads from.
package registry

import (
	"capsule/internal/defs"
	"capsule/internal/diag"
	"capsule/internal/source"
)

// Store is an append-only map from id to definition. Each id is allocated
// once and written at most once.
type Store interface {
	Allocate() (defs.ObjectID, error)
	Put(id defs.ObjectID, d defs.Definition) error
	Get(id defs.ObjectID) (defs.Definition, bool)
	// IDs lists the written ids in ascending order.
	IDs() []defs.ObjectID
	Len() int
}

// MemoryStore keeps definitions in process memory.
type MemoryStore struct {
	next defs.ObjectID
	defs map[defs.ObjectID]defs.Definition
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{defs: make(map[defs.ObjectID]defs.Definition)}
}

func (s *MemoryStore) Allocate() (defs.ObjectID, error) {
	if s.next == ^defs.ObjectID(0) {
		return defs.NoID, diag.Errorf(diag.StoIDSpace, source.Position{}, "object id space exhausted")
	}
	s.next++
	return s.next, nil
}

func (s *MemoryStore) Put(id defs.ObjectID, d defs.Definition) error {
	if id == defs.NoID || id > s.next {
		return diag.Errorf(diag.CnvUnknownID, source.Position{}, "id %s was never allocated", id)
	}
	if _, dup := s.defs[id]; dup {
		return diag.Errorf(diag.StoDuplicateID, source.Position{}, "id %s already defined", id)
	}
	s.defs[id] = d
	return nil
}

// Restore writes a definition under a foreign id, advancing the allocator
// past it. Used when importing an envelope.
func (s *MemoryStore) Restore(id defs.ObjectID, d defs.Definition) error {
	if id > s.next {
		s.next = id
	}
	return s.Put(id, d)
}

func (s *MemoryStore) Get(id defs.ObjectID) (defs.Definition, bool) {
	d, ok := s.defs[id]
	return d, ok
}

func (s *MemoryStore) IDs() []defs.ObjectID {
	out := make([]defs.ObjectID, 0, len(s.defs))
	for id := range s.defs {
		out = append(out, id)
	}
	sortIDs(out)
	return out
}

func (s *MemoryStore) Len() int { return len(s.defs) }
