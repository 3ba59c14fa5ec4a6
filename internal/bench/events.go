package bench

import "time"

// EventKind identifies a run lifecycle update for observers.
type EventKind string

const (
	// EventRunQueued marks a run known but not yet submitted.
	EventRunQueued EventKind = "run_queued"
	// EventRunStart marks the first iteration beginning.
	EventRunStart EventKind = "run_start"
	// EventIteration marks one user turn being issued.
	EventIteration EventKind = "iteration"
	// EventToken carries one streamed content fragment.
	EventToken EventKind = "token"
	// EventToolInvoked marks the defender pressing the button.
	EventToolInvoked EventKind = "tool_invoked"
	// EventRunComplete marks a clean terminal state.
	EventRunComplete EventKind = "run_complete"
	// EventRunError marks a run that terminated as an error.
	EventRunError EventKind = "run_error"
	// EventRunJudged marks the judge verdict being attached.
	EventRunJudged EventKind = "run_judged"
)

// Event is a single lifecycle update. Tempter is empty for scripted modes.
type Event struct {
	Kind      EventKind
	RunID     string
	Defender  string
	Tempter   string
	Iteration int
	State     State
	GaveIn    bool
	Detail    string
	EmittedAt time.Time
}

// Emitter delivers events to an external consumer without ever blocking or
// reordering the engine: when the channel's buffer is full the event is
// dropped. A nil Emitter discards everything.
type Emitter struct {
	ch  chan<- Event
	now func() time.Time
}

// NewEmitter wraps ch. The channel should be buffered; its consumer decides
// how far behind it can afford to fall.
func NewEmitter(ch chan<- Event, now func() time.Time) *Emitter {
	if now == nil {
		now = time.Now
	}
	return &Emitter{ch: ch, now: now}
}

// Emit stamps and sends the event, dropping it when the buffer is full.
func (e *Emitter) Emit(event Event) {
	if e == nil || e.ch == nil {
		return
	}
	event.EmittedAt = e.now()
	select {
	case e.ch <- event:
	default:
	}
}
