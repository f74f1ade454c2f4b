package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRingTracerKeepsLastEvents(t *testing.T) {
	ring := NewRingTracer(2, LevelDetail)
	for _, name := range []string{"walk", "export", "convert"} {
		Begin(ring, ScopePhase, name, 0).End("")
	}
	events := ring.Snapshot()
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Name != "convert" || events[0].Kind != KindSpanBegin {
		t.Fatalf("oldest kept event = %+v", events[0])
	}
	if events[1].Name != "convert" || events[1].Kind != KindSpanEnd {
		t.Fatalf("newest event = %+v", events[1])
	}
}

func TestLevelFiltersScopes(t *testing.T) {
	ring := NewRingTracer(16, LevelPhase)
	Begin(ring, ScopeComponent, "scc:1", 0).End("")
	Point(ring, ScopeNode, "value", "", 0)
	Begin(ring, ScopeSession, "capture", 0).End("ok")
	if got := len(ring.Snapshot()); got != 2 {
		t.Fatalf("events = %d, want 2", got)
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Begin(st, ScopePhase, "walk", 0).WithExtra("defs", "3").End("done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	var end map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &end); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if end["kind"] != "end" || end["detail"] != "done" || end["scope"] != "phase" {
		t.Fatalf("end event = %v", end)
	}
}

func TestStreamTracerChromeIsValidJSON(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelDebug, FormatChrome)
	Begin(st, ScopePhase, "convert", 0).End("")
	Point(st, ScopeNode, "bind", "f", 0)
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	var doc struct {
		TraceEvents []map[string]any `json:"traceEvents"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid chrome trace: %v\n%s", err, buf.String())
	}
	if len(doc.TraceEvents) != 3 {
		t.Fatalf("events = %d", len(doc.TraceEvents))
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatal("empty context should yield Nop")
	}
	ring := NewRingTracer(4, LevelDebug)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatal("tracer not propagated")
	}
}

func TestMultiTracerFansOut(t *testing.T) {
	a := NewRingTracer(4, LevelDebug)
	b := NewRingTracer(4, LevelDebug)
	m := NewMultiTracer(LevelDebug, a, b)
	Point(m, ScopeSession, "submit", "", 0)
	if len(a.Snapshot()) != 1 || len(b.Snapshot()) != 1 {
		t.Fatal("event not fanned out")
	}
}

func TestStartPropagatesLane(t *testing.T) {
	ring := NewRingTracer(16, LevelDebug)
	ctx := WithLane(WithTracer(context.Background(), ring), "0190-session-a")
	outer, ctx := Start(ctx, ScopeSession, "capture f")
	inner, _ := Start(ctx, ScopePhase, "walk")
	inner.End("")
	outer.End("")

	events := ring.Snapshot()
	if len(events) != 4 {
		t.Fatalf("events = %d", len(events))
	}
	for _, ev := range events {
		if ev.Lane != "0190-session-a" {
			t.Fatalf("lane = %q", ev.Lane)
		}
	}
	if events[1].ParentID != outer.ID() {
		t.Fatalf("walk parent = %d, want %d", events[1].ParentID, outer.ID())
	}
	if !strings.Contains(string(FormatEvent(&events[1], FormatText)), "ession-a") {
		t.Fatalf("text = %q", FormatEvent(&events[1], FormatText))
	}
}

func TestDisabledSpansAreInert(t *testing.T) {
	s, ctx := Start(context.Background(), ScopeSession, "noop")
	if s.ID() != 0 || CurrentSpan(ctx).SpanID != 0 {
		t.Fatal("nop tracer opened a span")
	}
	if d := s.WithExtra("k", "v").End(""); d != 0 {
		t.Fatalf("duration = %v", d)
	}
}

func TestHeartbeatStops(t *testing.T) {
	ring := NewRingTracer(64, LevelError)
	h := StartHeartbeat(ring, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	h.Stop()
	h.Stop()
	n := len(ring.Snapshot())
	if n == 0 {
		t.Fatal("no heartbeat recorded")
	}
	time.Sleep(5 * time.Millisecond)
	if len(ring.Snapshot()) != n {
		t.Fatal("heartbeat kept running after Stop")
	}
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatal("heartbeat on Nop")
	}
}

func TestParseLevelAndMode(t *testing.T) {
	if l, err := ParseLevel("detail"); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error")
	}
	if m, err := ParseMode("both"); err != nil || m != ModeBoth {
		t.Fatalf("ParseMode = %v, %v", m, err)
	}
	if f, err := ParseFormat("chrome"); err != nil || f != FormatChrome {
		t.Fatalf("ParseFormat = %v, %v", f, err)
	}
}
