package trace

import (
	"fmt"
	"strings"
	"time"
)

type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

var kindNames = [...]string{"unknown", "begin", "end", "point", "heartbeat"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[0]
}

// Scope is the granularity of an event; smaller is coarser.
type Scope uint8

const (
	// ScopeSession covers one capture or submit session.
	ScopeSession Scope = iota + 1
	// ScopePhase covers walk, export, convert and transform.
	ScopePhase
	// ScopeComponent covers one definition or one SCC.
	ScopeComponent
	ScopeNode
)

var scopeNames = [...]string{"unknown", "session", "phase", "component", "node"}

func (s Scope) String() string {
	if int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return scopeNames[0]
}

// Level is the finest scope a tracer keeps.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // only heartbeats; failures are dumped from the ring
	LevelPhase        // sessions and phases
	LevelDetail       // plus definitions and SCCs
	LevelDebug        // everything
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// Keeps reports whether events of scope pass at this level.
func (l Level) Keeps(scope Scope) bool {
	switch l {
	case LevelPhase:
		return scope <= ScopePhase
	case LevelDetail:
		return scope <= ScopeComponent
	case LevelDebug:
		return true
	default:
		return false
	}
}

type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	// Lane names the session the event belongs to; empty is the main lane.
	Lane   string
	Name   string
	Detail string
	Extra  map[string]string
}

// passes is the shared filter of the concrete tracers. Heartbeats always
// pass so a live process is visible at every level.
func passes(l Level, ev *Event) bool {
	return ev.Kind == KindHeartbeat || l.Keeps(ev.Scope)
}
