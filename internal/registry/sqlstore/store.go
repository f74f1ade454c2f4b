package sqlstore

import (
	"database/sql"
	"errors"

	"fortio.org/safecast"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"capsule/internal/defs"
	"capsule/internal/diag"
	"capsule/internal/registry"
	"capsule/internal/source"
	"capsule/internal/wire"
)

var _ registry.Store = (*Store)(nil)

// Store is one session's view of the database. It is not safe for
// concurrent use; open one Store per capture.
type Store struct {
	db      *sql.DB
	session uuid.UUID
	next    defs.ObjectID
	cache   map[defs.ObjectID]defs.Definition
}

func newStore(db *sql.DB, session uuid.UUID) *Store {
	return &Store{db: db, session: session, cache: make(map[defs.ObjectID]defs.Definition)}
}

func (s *Store) Session() uuid.UUID { return s.session }

func (s *Store) setNext(n int64) error {
	id, err := safecast.Conv[defs.ObjectID](n)
	if err != nil {
		return diag.Wrap(diag.StoIDSpace, err, "stored id %d", n)
	}
	s.next = id
	return nil
}

func (s *Store) Allocate() (defs.ObjectID, error) {
	if s.next == ^defs.ObjectID(0) {
		return defs.NoID, diag.Errorf(diag.StoIDSpace, source.Position{}, "object id space exhausted")
	}
	s.next++
	return s.next, nil
}

func (s *Store) Put(id defs.ObjectID, d defs.Definition) error {
	if id == defs.NoID || id > s.next {
		return diag.Errorf(diag.CnvUnknownID, source.Position{}, "id %s was never allocated", id)
	}
	kind, payload, err := wire.Encode(d)
	if err != nil {
		return err
	}
	_, err = s.db.Exec("INSERT INTO definitions (session, id, kind, payload) VALUES (?, ?, ?, ?)",
		s.session.String(), uint32(id), uint8(kind), payload)
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
		return diag.Errorf(diag.StoDuplicateID, source.Position{}, "id %s already defined", id)
	}
	if err != nil {
		return err
	}
	s.cache[id] = d
	return nil
}

func (s *Store) Get(id defs.ObjectID) (defs.Definition, bool) {
	if d, ok := s.cache[id]; ok {
		return d, true
	}
	var (
		kind    uint8
		payload []byte
	)
	err := s.db.QueryRow("SELECT kind, payload FROM definitions WHERE session = ? AND id = ?",
		s.session.String(), uint32(id)).Scan(&kind, &payload)
	if err != nil {
		return nil, false
	}
	d, err := wire.Decode(defs.Kind(kind), payload)
	if err != nil {
		return nil, false
	}
	s.cache[id] = d
	return d, true
}

func (s *Store) IDs() []defs.ObjectID {
	rows, err := s.db.Query("SELECT id FROM definitions WHERE session = ? ORDER BY id", s.session.String())
	if err != nil {
		return nil
	}
	defer rows.Close()
	var out []defs.ObjectID
	for rows.Next() {
		var raw int64
		if err := rows.Scan(&raw); err != nil {
			return out
		}
		if id, err := safecast.Conv[defs.ObjectID](raw); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func (s *Store) Len() int {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM definitions WHERE session = ?", s.session.String()).Scan(&n); err != nil {
		return 0
	}
	return n
}
