// Package trace records spans for capture and submit sessions.
//
// Walk, export, convert and transform each open a ScopePhase span; per-SCC
// and per-definition work is ScopeComponent and only shows at LevelDetail.
// Every concurrent session traces on its own lane, so interleaved sessions
// stay readable:
//
//	capsule capture --trace=- --trace-level=detail mod.py --root f
//
// Tracers travel through context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span, ctx := trace.Start(ctx, trace.ScopeSession, "capture f")
//	defer span.End("")
package trace
