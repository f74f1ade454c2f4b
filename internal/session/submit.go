package session

import (
	"context"

	"github.com/rs/zerolog"

	"capsule/internal/convert"
	"capsule/internal/interp"
	"capsule/internal/purity"
	"capsule/internal/trace"
	"capsule/internal/transform"
	"capsule/internal/value"
	"capsule/internal/wire"
)

type SubmitOptions struct {
	// Call invokes the rebuilt root with no arguments.
	Call bool
	// Interp runs rebuilt code; a fresh one is made when nil.
	Interp   *interp.Interp
	Remote   convert.RemoteResolver
	Purity   *purity.Registry
	MaxBytes int
	Logger   zerolog.Logger
}

// Outcome is what the receiving side sends back.
type Outcome struct {
	Value value.Value
	// Raised is set when the call ended in an exception; Value holds it.
	Raised bool
	Result *transform.Result
}

// Submit plays the receiving side in process: it imports the envelope,
// rebuilds the root, optionally calls it and transforms the result.
func Submit(ctx context.Context, env *wire.Envelope, opts SubmitOptions) (*Outcome, error) {
	span, ctx := trace.Start(trace.WithLane(ctx, env.Session), trace.ScopeSession, "submit "+env.Session)
	defer span.End("")
	tracer := trace.FromContext(ctx)

	reg, err := wire.Import(env)
	if err != nil {
		return nil, err
	}
	c := convert.New(reg, convert.Options{Interp: opts.Interp, Remote: opts.Remote, Tracer: tracer, Logger: opts.Logger})
	v, err := c.Convert(env.Root)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Value: v}
	if opts.Call {
		res, err := c.Interp().Call(v, nil, nil)
		if err != nil {
			exc, ok := interp.ExceptionOf(err)
			if !ok {
				return nil, err
			}
			res, out.Raised = exc, true
		}
		out.Value = res
	}
	out.Result, err = transform.Transform(out.Value, transform.Options{
		MaxBytes: opts.MaxBytes,
		Purity:   opts.Purity,
		Tracer:   tracer,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
