// Package session runs captures. A Session owns one registry, one walker and
// one source cache, so sessions never share mutable state and can run in
// parallel.
package session

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"capsule/internal/defs"
	"capsule/internal/diag"
	"capsule/internal/registry"
	"capsule/internal/trace"
	"capsule/internal/value"
	"capsule/internal/walker"
	"capsule/internal/wire"
)

const maxDiagnostics = 100

// StoreFactory opens the definition store for a new session.
type StoreFactory func() (registry.Store, uuid.UUID, error)

type Options struct {
	// Walker options are copied into every session; Files is cloned.
	Walker walker.Options
	// Store opens a store per session; nil keeps definitions in memory.
	Store  StoreFactory
	Logger zerolog.Logger
}

type Session struct {
	id    uuid.UUID
	reg   *registry.Registry
	w     *walker.Walker
	bag   *diag.Bag
	dedup *diag.DedupReporter
	log   zerolog.Logger
}

// Capture is the shipped form of one root.
type Capture struct {
	ID          uuid.UUID
	Name        string
	Root        defs.ObjectID
	Envelope    *wire.Envelope
	Diagnostics []diag.Diagnostic
}

func New(opts Options) (*Session, error) {
	var (
		store registry.Store
		id    uuid.UUID
		err   error
	)
	if opts.Store != nil {
		store, id, err = opts.Store()
	} else {
		id, err = uuid.NewV7()
	}
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	bag := diag.NewBag(maxDiagnostics)
	wopts := opts.Walker
	if wopts.Files != nil {
		wopts.Files = wopts.Files.Clone()
	}
	dedup := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	wopts.Reporter = dedup
	log := opts.Logger.With().Str("session", id.String()).Logger()
	wopts.Logger = log
	reg := registry.New(store)
	return &Session{id: id, reg: reg, w: walker.New(reg, wopts), bag: bag, dedup: dedup, log: log}, nil
}

func (s *Session) ID() uuid.UUID                { return s.id }
func (s *Session) Registry() *registry.Registry { return s.reg }

// Capture walks root and exports its closure.
func (s *Session) Capture(ctx context.Context, name string, root value.Value) (*Capture, error) {
	return s.capture(ctx, name, root, nil)
}

func (s *Session) capture(ctx context.Context, name string, root value.Value, sink ProgressSink) (*Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	span, ctx := trace.Start(trace.WithLane(ctx, s.id.String()), trace.ScopeSession, "capture "+name)
	defer span.End("")

	start := time.Now()
	emit(sink, Event{Root: name, Stage: StageWalk, Status: StatusWorking})
	id, err := s.w.Walk(root)
	if err != nil {
		emit(sink, Event{Root: name, Stage: StageWalk, Status: StatusError, Err: err, Elapsed: time.Since(start)})
		return nil, err
	}
	emit(sink, Event{Root: name, Stage: StageExport, Status: StatusWorking, Definitions: s.reg.Store().Len()})
	env, err := wire.Export(ctx, s.reg, id)
	if err != nil {
		emit(sink, Event{Root: name, Stage: StageExport, Status: StatusError, Err: err, Elapsed: time.Since(start)})
		return nil, err
	}
	env.Session = s.id.String()
	s.log.Debug().Str("root", name).Stringer("id", id).Int("records", len(env.Records)).
		Int("repeated_diagnostics", s.dedup.Suppressed()).Msg("captured")
	emit(sink, Event{Root: name, Stage: StageExport, Status: StatusDone, Elapsed: time.Since(start), Definitions: len(env.Records)})
	return &Capture{ID: s.id, Name: name, Root: id, Envelope: env, Diagnostics: s.bag.Items()}, nil
}

// Root names one value to capture.
type Root struct {
	Name  string
	Value value.Value
}

// CaptureAll captures every root in its own session, at most jobs at a time.
// Results are in the order of roots. The first failure cancels the rest.
func CaptureAll(ctx context.Context, roots []Root, opts Options, jobs int, sink ProgressSink) ([]*Capture, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	for _, r := range roots {
		emit(sink, Event{Root: r.Name, Status: StatusQueued})
	}
	results := make([]*Capture, len(roots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(roots))))
	for i, r := range roots {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			s, err := New(opts)
			if err != nil {
				return err
			}
			c, err := s.capture(gctx, r.Name, r.Value, sink)
			if err != nil {
				return fmt.Errorf("capture %s: %w", r.Name, err)
			}
			results[i] = c
			return nil
		})
	}
	err := g.Wait()
	status := StatusDone
	if err != nil {
		status = StatusError
	}
	emit(sink, Event{Status: status, Err: err})
	return results, err
}
