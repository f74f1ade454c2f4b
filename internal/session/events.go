package session

import "time"

// Stage is one step of capturing a root.
type Stage string

const (
	StageWalk   Stage = "walk"
	StageExport Stage = "export"
)

// Status of a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for one root, or for the whole run when Root is
// empty.
type Event struct {
	Root    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
	// Definitions is the number written so far for Root.
	Definitions int
}

// ProgressSink consumes progress events. Implementations must be safe for
// concurrent use.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events to a channel.
type ChannelSink chan<- Event

func (c ChannelSink) OnEvent(ev Event) { c <- ev }

func emit(sink ProgressSink, ev Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}
