package history

import (
	"time"

	"github.com/ipcrm/napkin/internal/canvas"
)

// Defaults applied by New when a non-positive policy value is given.
const (
	DefaultMaxSnapshots     = 50
	DefaultBaselineInterval = 10
)

// Summaries used for baseline snapshots and empty delta snapshots.
const (
	SummaryInitial   = "Initial snapshot"
	SummaryBaseline  = "Baseline snapshot"
	SummaryNoChanges = "No changes"
)

// Kind names the payload a snapshot carries.
type Kind string

const (
	KindBaseline Kind = "baseline"
	KindDelta    Kind = "delta"
)

// History is the retained, ordered snapshot sequence of one session.
// Snapshots are oldest first.
type History struct {
	MaxSnapshots     int        `json:"max_snapshots"`
	BaselineInterval int        `json:"baseline_interval"`
	Snapshots        []Snapshot `json:"snapshots"`
}

// New creates an empty history. Non-positive values fall back to
// DefaultMaxSnapshots and DefaultBaselineInterval.
func New(maxSnapshots, baselineInterval int) *History {
	if maxSnapshots <= 0 {
		maxSnapshots = DefaultMaxSnapshots
	}
	if baselineInterval <= 0 {
		baselineInterval = DefaultBaselineInterval
	}
	return &History{
		MaxSnapshots:     maxSnapshots,
		BaselineInterval: baselineInterval,
		Snapshots:        []Snapshot{},
	}
}

// Len returns the number of retained snapshots. A nil history is empty.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Snapshots)
}

// Validate checks the structural invariants of the history.
// It returns an invariant-violation Error for the first problem found.
func (h *History) Validate() error {
	n := h.Len()
	if n == 0 {
		return nil
	}
	if h.MaxSnapshots > 0 && n > h.MaxSnapshots {
		return NewInvariantError(n-1, n, "history exceeds max snapshots")
	}
	for i, s := range h.Snapshots {
		if s.FullState != nil && s.Deltas != nil {
			return NewInvariantError(i, n, "snapshot carries both a baseline and deltas")
		}
	}
	if !h.Snapshots[0].IsBaseline() {
		return NewInvariantError(0, n, "oldest snapshot is not a baseline")
	}
	return nil
}

// Snapshot is one entry in the history. It holds exactly one of FullState
// (a baseline) or Deltas (changes since the previous snapshot).
type Snapshot struct {
	ID          string             `json:"id"`
	Timestamp   time.Time          `json:"timestamp"`
	Summary     string             `json:"summary"`
	FullState   *canvas.Collection `json:"full_state,omitempty"`
	Deltas      []DocumentDelta    `json:"deltas,omitempty"`
	ActiveIndex int                `json:"active_index"`
	TabTitles   []string           `json:"tab_titles"`
}

// IsBaseline reports whether the snapshot stores a full collection.
func (s Snapshot) IsBaseline() bool {
	return s.FullState != nil
}

// Kind returns KindBaseline or KindDelta.
func (s Snapshot) Kind() Kind {
	if s.IsBaseline() {
		return KindBaseline
	}
	return KindDelta
}

// DocumentDelta records the differences of one tab between two snapshots.
type DocumentDelta struct {
	TabIndex int              `json:"tab_index"`
	Added    []canvas.Shape   `json:"added,omitempty"`
	Removed  []string         `json:"removed,omitempty"`
	Modified []ShapeChange    `json:"modified,omitempty"`
	Viewport *canvas.Viewport `json:"viewport,omitempty"`
}

// IsEmpty reports whether the delta changes nothing.
func (d DocumentDelta) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0 && d.Viewport == nil
}

// ShapeChange lists the attribute changes of one surviving shape.
type ShapeChange struct {
	ID      string            `json:"id"`
	Changes map[string]Change `json:"changes"`
}

// Change is the new state of one attribute. Removed marks an attribute that
// no longer exists; otherwise Value is the new value (which may be null).
type Change struct {
	Value   any  `json:"value,omitempty"`
	Removed bool `json:"removed,omitempty"`
}

// Set returns a Change that sets an attribute to v.
func Set(v any) Change {
	return Change{Value: v}
}

// Unset returns a Change that removes an attribute.
func Unset() Change {
	return Change{Removed: true}
}
