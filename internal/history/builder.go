package history

import (
	"fmt"
	"log/slog"

	"github.com/ipcrm/napkin/internal/canvas"
)

// Builder appends snapshots to histories.
//
// A Builder holds only its collaborators (id source, clock, logger); it
// never holds a History. The same Builder may serve many sessions, but calls
// for one session must be serialized by the caller.
type Builder struct {
	ids    IDGenerator
	clock  Clock
	logger *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithIDGenerator sets the snapshot id source.
//
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) BuilderOption {
	return func(b *Builder) {
		b.ids = g
	}
}

// WithClock sets the snapshot timestamp source.
//
// Default: SystemClock.
func WithClock(c Clock) BuilderOption {
	return func(b *Builder) {
		b.clock = c
	}
}

// WithLogger sets the logger.
//
// Default: slog.Default().
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = l
	}
}

// NewBuilder creates a Builder with production defaults.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		ids:    UUIDv7Generator{},
		clock:  SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var defaultBuilder = NewBuilder()

// CreateSnapshot appends a snapshot of current to h using the default Builder.
// See Builder.CreateSnapshot.
func CreateSnapshot(current canvas.Collection, activeIndex int, h *History) (*History, error) {
	return defaultBuilder.CreateSnapshot(current, activeIndex, h)
}

// CreateSnapshot returns a new History with a snapshot of current appended.
// h is never modified.
//
// Steps:
//  1. Fingerprint current and the state at the last snapshot. If they match,
//     h itself is returned (same pointer): nothing changed.
//  2. The new snapshot is a baseline when h is empty or when
//     h.BaselineInterval snapshots have been taken since the newest retained
//     baseline; otherwise a delta. Until the cap is reached this places
//     baselines at positions that are multiples of the interval.
//  3. Baselines store a deep copy of current.
//  4. Deltas store DiffCollections(previous state, current). An empty list is
//     kept with the summary SummaryNoChanges (only tab titles changed).
//  5. The appended sequence is passed through Prune.
//
// A nil h is treated as New(0, 0). Non-positive policy values on h fall back
// to the defaults the same way.
func (b *Builder) CreateSnapshot(current canvas.Collection, activeIndex int, h *History) (*History, error) {
	if h == nil {
		h = New(0, 0)
	}

	fp, err := Fingerprint(current)
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}

	n := len(h.Snapshots)
	var prev canvas.Collection
	if n > 0 {
		prev, err = reconstruct(h.Snapshots, n-1)
		if err != nil {
			return nil, fmt.Errorf("create snapshot: reconstruct previous: %w", err)
		}
		prevFP, err := Fingerprint(prev)
		if err != nil {
			return nil, fmt.Errorf("create snapshot: %w", err)
		}
		if fp == prevFP {
			b.logger.Debug("snapshot skipped: collection unchanged",
				"fingerprint", fp,
				"snapshots", n)
			return h, nil
		}
	}

	snap := Snapshot{
		ID:          b.ids.Generate(),
		Timestamp:   b.clock.Now(),
		ActiveIndex: activeIndex,
		TabTitles:   current.Titles(),
	}

	interval := h.BaselineInterval
	if interval <= 0 {
		interval = DefaultBaselineInterval
	}
	maxSnapshots := h.MaxSnapshots
	if maxSnapshots <= 0 {
		maxSnapshots = DefaultMaxSnapshots
	}

	if n == 0 || n-newestBaseline(h.Snapshots) >= interval {
		full := current.Clone()
		full.ActiveIndex = activeIndex
		snap.FullState = &full
		snap.Summary = SummaryBaseline
		if n == 0 {
			snap.Summary = SummaryInitial
		}
	} else {
		snap.Deltas = DiffCollections(prev, current)
		snap.Summary = Summarize(snap.Deltas, snap.TabTitles)
	}

	snaps := make([]Snapshot, n, n+1)
	copy(snaps, h.Snapshots)
	snaps = append(snaps, snap)

	pruned, err := Prune(snaps, maxSnapshots)
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}
	if dropped := len(snaps) - len(pruned); dropped > 0 {
		b.logger.Debug("history pruned",
			"dropped", dropped,
			"oldest", pruned[0].ID)
	}

	b.logger.Info("snapshot appended",
		"id", snap.ID,
		"kind", snap.Kind(),
		"summary", snap.Summary,
		"fingerprint", fp,
		"snapshots", len(pruned))

	return &History{
		MaxSnapshots:     h.MaxSnapshots,
		BaselineInterval: h.BaselineInterval,
		Snapshots:        pruned,
	}, nil
}

// newestBaseline returns the index of the last baseline in snaps, or -1.
func newestBaseline(snaps []Snapshot) int {
	for i := len(snaps) - 1; i >= 0; i-- {
		if snaps[i].IsBaseline() {
			return i
		}
	}
	return -1
}
