package session_test

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"capsule/internal/diag"
	"capsule/internal/interp"
	"capsule/internal/registry"
	"capsule/internal/registry/sqlstore"
	"capsule/internal/session"
	"capsule/internal/value"
	"capsule/internal/walker"
)

type recorder struct {
	mu     sync.Mutex
	events []session.Event
}

func (r *recorder) OnEvent(ev session.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func program(t *testing.T, src string) (*interp.Interp, *value.Module) {
	t.Helper()
	in := interp.New(interp.Options{Stdout: &bytes.Buffer{}})
	in.Builtins().Attrs.Set("ghost", &value.Native{Type: "socket"})
	mod, err := in.RunSource("main.py", []byte(src))
	require.NoError(t, err)
	return in, mod
}

func get(t *testing.T, mod *value.Module, name string) value.Value {
	t.Helper()
	v, ok := mod.Attrs.Get(name)
	require.True(t, ok, "global %s", name)
	return v
}

const src = `scale = 3
def area(r):
    return scale * r * r
def main():
    return [area(1), area(2)]
def broken():
    return 1 // 0
t = (1, ghost, 2)
`

func TestCaptureAndSubmit(t *testing.T) {
	in, mod := program(t, src)
	s, err := session.New(session.Options{Walker: walker.Options{Files: in.Files(), Builtins: in.Builtins()}})
	require.NoError(t, err)

	c, err := s.Capture(context.Background(), "main", get(t, mod, "main"))
	require.NoError(t, err)
	require.Equal(t, s.ID().String(), c.Envelope.Session)

	out, err := session.Submit(context.Background(), c.Envelope, session.SubmitOptions{Call: true})
	require.NoError(t, err)
	require.False(t, out.Raised)
	require.Equal(t, "[3, 12]", value.Repr(out.Value))
	require.Contains(t, out.Result.Objects[out.Result.Root], "list")
}

func TestSubmitReturnsClosure(t *testing.T) {
	in, mod := program(t, `def make(k):
    def inner():
        return k
    return inner
def main():
    return make(7)
`)
	s, err := session.New(session.Options{Walker: walker.Options{Files: in.Files(), Builtins: in.Builtins()}})
	require.NoError(t, err)
	c, err := s.Capture(context.Background(), "main", get(t, mod, "main"))
	require.NoError(t, err)

	out, err := session.Submit(context.Background(), c.Envelope, session.SubmitOptions{Call: true})
	require.NoError(t, err)
	require.False(t, out.Raised)
	root := out.Result.Objects[out.Result.Root]
	require.Contains(t, root, "functionInstance")
	require.Len(t, root["members"], 1)
	require.Contains(t, root["members"], "k")
}

func TestSubmitReportsRaisedException(t *testing.T) {
	in, mod := program(t, src)
	s, err := session.New(session.Options{Walker: walker.Options{Files: in.Files(), Builtins: in.Builtins()}})
	require.NoError(t, err)
	c, err := s.Capture(context.Background(), "broken", get(t, mod, "broken"))
	require.NoError(t, err)

	out, err := session.Submit(context.Background(), c.Envelope, session.SubmitOptions{Call: true})
	require.NoError(t, err)
	require.True(t, out.Raised)
	require.Equal(t, "ZeroDivisionError", out.Value.(*value.Exception).Type.Name)
	require.Contains(t, out.Result.Objects[out.Result.Root], "builtinException")
}

func TestCaptureCollectsWarnings(t *testing.T) {
	in, mod := program(t, src)
	s, err := session.New(session.Options{Walker: walker.Options{Files: in.Files(), Builtins: in.Builtins()}})
	require.NoError(t, err)

	c, err := s.Capture(context.Background(), "t", get(t, mod, "t"))
	require.NoError(t, err)
	require.Len(t, c.Diagnostics, 1)
	require.Equal(t, diag.CapUnconvertible, c.Diagnostics[0].Code)
}

func TestRepeatedWarningsCollapse(t *testing.T) {
	in, _ := program(t, src)
	s, err := session.New(session.Options{Walker: walker.Options{Files: in.Files(), Builtins: in.Builtins()}})
	require.NoError(t, err)

	root := value.NewTuple(&value.Native{Type: "socket"}, &value.Native{Type: "socket"}, &value.Native{Type: "pipe"})
	c, err := s.Capture(context.Background(), "socks", root)
	require.NoError(t, err)
	require.Len(t, c.Diagnostics, 2)
	require.Contains(t, c.Diagnostics[0].Message, "native socket")
	require.Contains(t, c.Diagnostics[1].Message, "native pipe")
}

func TestCaptureAllRunsSessionsConcurrently(t *testing.T) {
	in, mod := program(t, src)
	roots := []session.Root{
		{Name: "area", Value: get(t, mod, "area")},
		{Name: "main", Value: get(t, mod, "main")},
		{Name: "scale", Value: get(t, mod, "scale")},
	}
	rec := &recorder{}
	caps, err := session.CaptureAll(context.Background(), roots,
		session.Options{Walker: walker.Options{Files: in.Files(), Builtins: in.Builtins()}}, 2, rec)
	require.NoError(t, err)
	require.Len(t, caps, 3)

	ids := map[uuid.UUID]bool{}
	for i, c := range caps {
		require.Equal(t, roots[i].Name, c.Name)
		ids[c.ID] = true
	}
	require.Len(t, ids, 3, "sessions must not be shared")

	done := 0
	for _, ev := range rec.events {
		if ev.Root != "" && ev.Status == session.StatusDone {
			done++
		}
	}
	require.Equal(t, 3, done)
	last := rec.events[len(rec.events)-1]
	require.Equal(t, "", last.Root)
	require.Equal(t, session.StatusDone, last.Status)
}

func TestCaptureAllStopsOnError(t *testing.T) {
	in, mod := program(t, "def f():\n    return missing\nx = 1\n")
	roots := []session.Root{{Name: "f", Value: get(t, mod, "f")}, {Name: "x", Value: get(t, mod, "x")}}
	_, err := session.CaptureAll(context.Background(), roots,
		session.Options{Walker: walker.Options{Files: in.Files(), Builtins: in.Builtins()}}, 1, nil)
	require.True(t, diag.IsCode(err, diag.CapUnresolvedFreeVariable), "err = %v", err)
}

func TestSQLiteBackedSession(t *testing.T) {
	db, err := sqlstore.Open(filepath.Join(t.TempDir(), "capsule.db"))
	require.NoError(t, err)
	defer db.Close()

	in, mod := program(t, src)
	opts := session.Options{
		Walker: walker.Options{Files: in.Files(), Builtins: in.Builtins()},
		Store: func() (registry.Store, uuid.UUID, error) {
			st, err := db.NewSession()
			if err != nil {
				return nil, uuid.Nil, err
			}
			return st, st.Session(), nil
		},
	}
	s, err := session.New(opts)
	require.NoError(t, err)
	c, err := s.Capture(context.Background(), "area", get(t, mod, "area"))
	require.NoError(t, err)

	sessions, err := db.Sessions()
	require.NoError(t, err)
	require.Contains(t, sessions, s.ID())

	remote := interp.New(interp.Options{})
	out, err := session.Submit(context.Background(), c.Envelope, session.SubmitOptions{Interp: remote})
	require.NoError(t, err)
	res, err := remote.Call(out.Value, []value.Value{value.Int(2)}, nil)
	require.NoError(t, err)
	require.Equal(t, value.Int(12), res)
}
