package harness

import (
	"github.com/ipcrm/napkin/internal/canvas"
	"github.com/ipcrm/napkin/internal/history"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq    int    `json:"seq"`
	Action string `json:"action"`

	// Tab is the tab the step acted on (-1 for snapshot steps).
	Tab int `json:"tab"`

	// Target names the shape id or tab title involved, if any.
	Target string `json:"target,omitempty"`

	// Snapshot is set for snapshot steps.
	Snapshot *SnapshotEvent `json:"snapshot,omitempty"`
}

// SnapshotEvent is the outcome of a snapshot step.
type SnapshotEvent struct {
	Changed     bool         `json:"changed"`
	ID          string       `json:"id,omitempty"`
	Kind        history.Kind `json:"kind,omitempty"`
	Summary     string       `json:"summary,omitempty"`
	ActiveIndex int          `json:"active_index"`
	Retained    int          `json:"retained"`
	Pruned      int          `json:"pruned"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace lists the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// History is the final history value.
	History *history.History `json:"-"`

	// Captured maps snapshot ids to the collection that was live when the
	// snapshot was taken.
	Captured map[string]canvas.Collection `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Captured: make(map[string]canvas.Collection),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}
