package sqlstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"capsule/internal/defs"
	"capsule/internal/diag"
	"capsule/internal/registry"
	"capsule/internal/value"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capsule.db")
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, path
}

func TestOpenIsIdempotent(t *testing.T) {
	_, path := openTestDB(t)
	for range 3 {
		db, err := Open(path)
		require.NoError(t, err, "reopen")
		require.NoError(t, db.Close())
	}
}

func TestRegistryOverSQLite(t *testing.T) {
	db, _ := openTestDB(t)
	store, err := db.NewSession()
	require.NoError(t, err)
	require.Equal(t, byte(7), store.Session()[6]>>4, "session ids are uuid v7")

	reg := registry.New(store)
	file, err := reg.IDForFile("m.py", "def f():\n    return k\n")
	require.NoError(t, err)
	k, _ := reg.Allocate()
	p, _ := defs.PrimitiveOf(value.Str("payload"), true)
	require.NoError(t, reg.DefinePrimitive(k, p))
	f, _ := reg.Allocate()
	require.NoError(t, reg.DefineFunction(f, file, defs.Site{Line: 1}, map[string]defs.ObjectID{"k": k}))

	err = reg.DefineUnconvertible(f, "again")
	require.True(t, diag.IsCode(err, diag.StoDuplicateID), "duplicate write: %v", err)

	g, err := reg.DependencyGraph(f)
	require.NoError(t, err)
	require.ElementsMatch(t, []defs.ObjectID{file, k, f}, g.Nodes())
	require.Equal(t, 3, store.Len())
	require.Equal(t, []defs.ObjectID{file, k, f}, store.IDs())
}

func TestSessionsAreIsolated(t *testing.T) {
	db, path := openTestDB(t)
	a, err := db.NewSession()
	require.NoError(t, err)
	b, err := db.NewSession()
	require.NoError(t, err)

	idA, _ := a.Allocate()
	idB, _ := b.Allocate()
	require.Equal(t, idA, idB, "each session allocates from 1")
	require.NoError(t, a.Put(idA, &defs.NamedSingleton{Name: "None"}))
	require.NoError(t, b.Put(idB, &defs.RemoteObjectReference{Path: "x"}))

	// a fresh connection sees the persisted rows, not the write cache
	db2, err := Open(path)
	require.NoError(t, err)
	defer db2.Close()
	again, err := db2.Session(a.Session())
	require.NoError(t, err)
	d, ok := again.Get(idA)
	require.True(t, ok)
	require.Equal(t, &defs.NamedSingleton{Name: "None"}, d)

	next, err := again.Allocate()
	require.NoError(t, err)
	require.Equal(t, idA+1, next, "allocation resumes after stored ids")

	sessions, err := db2.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
}
