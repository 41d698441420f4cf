package harness

// Trace event types.
const (
	EventStep     = "step"
	EventPlayer   = "player"
	EventError    = "error"
	EventUnlocked = "unlocked"
	EventLocked   = "locked"
)

// TraceEvent is one entry of a scenario trace.
type TraceEvent struct {
	Seq  int    `json:"seq"`
	Type string `json:"type"`

	// Op is the step name for step and error events.
	Op string `json:"op,omitempty"`
	// ID is the node, routine or user a step or state change refers to.
	ID string `json:"id,omitempty"`
	// Kind classifies an error event.
	Kind string `json:"kind,omitempty"`

	Player *PlayerEvent `json:"player,omitempty"`
}

// PlayerEvent is the player status after a transition.
type PlayerEvent struct {
	State      string `json:"state"`
	Index      int    `json:"index"`
	Countdown  int    `json:"countdown"`
	Percentage int    `json:"percentage"`
}

// Key renders the event as used by trace_order and trace_count:
// "step:complete", "unlocked:h2", "player:auto_advancing", "error:no_remote".
func (e TraceEvent) Key() string {
	switch e.Type {
	case EventStep:
		return e.Type + ":" + e.Op
	case EventPlayer:
		return e.Type + ":" + e.Player.State
	case EventError:
		return e.Type + ":" + e.Kind
	default:
		return e.Type + ":" + e.ID
	}
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step error was expected and every assertion
	// held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(e TraceEvent) {
	e.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, e)
}
