// Package session owns the history of one named canvas session.
//
// The history engine is a set of pure functions over History values. A
// Session is the caller that threads the current value between calls,
// serializes them, and persists every new value.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ipcrm/napkin/internal/canvas"
	"github.com/ipcrm/napkin/internal/config"
	"github.com/ipcrm/napkin/internal/history"
	"github.com/ipcrm/napkin/internal/store"
)

// Store persists histories. Implemented by *store.Store.
type Store interface {
	LoadHistory(ctx context.Context, sessionID string) (*history.History, error)
	SaveHistory(ctx context.Context, sessionID string, h *history.History) error
}

// Session serializes snapshot creation for one session and persists the
// result. All methods are safe for concurrent use; calls are executed one
// at a time in arrival order of the lock.
type Session struct {
	mu      sync.Mutex
	id      string
	store   Store
	builder *history.Builder
	logger  *slog.Logger
	history *history.History
}

// Option configures a Session.
type Option func(*Session)

// WithBuilder sets the snapshot builder.
//
// Default: history.NewBuilder() with the session's logger.
func WithBuilder(b *history.Builder) Option {
	return func(s *Session) {
		s.builder = b
	}
}

// WithLogger sets the logger.
//
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// Result describes the outcome of a checkpoint.
type Result struct {
	// Changed is false when the collection matched the last snapshot and
	// nothing was appended or saved.
	Changed bool `json:"changed"`

	// Snapshot is the newest retained snapshot (zero if the history is empty).
	Snapshot history.Snapshot `json:"snapshot"`

	// Snapshots is the number of retained snapshots after the checkpoint.
	Snapshots int `json:"snapshots"`

	// Pruned is the number of snapshots dropped by retention.
	Pruned int `json:"pruned"`
}

// Info summarizes one retained snapshot for listings.
type Info struct {
	Index     int          `json:"index"`
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Summary   string       `json:"summary"`
	Kind      history.Kind `json:"kind"`
	Tabs      []string     `json:"tabs"`
}

// Open loads the session's history from st, or starts an empty one if the
// session has never been saved.
//
// The retention policy always comes from cfg. If a stored history is longer
// than cfg.MaxSnapshots it is pruned immediately (in memory; the pruned
// value is persisted by the next checkpoint).
func Open(ctx context.Context, st Store, id string, cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Session{
		id:     id,
		store:  st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.builder == nil {
		s.builder = history.NewBuilder(history.WithLogger(s.logger))
	}

	h, err := st.LoadHistory(ctx, id)
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		s.history = cfg.NewHistory()
		s.logger.Debug("session created", "session", id)
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("open session %q: %w", id, err)
	}

	h, err = applyPolicy(h, cfg)
	if err != nil {
		return nil, fmt.Errorf("open session %q: %w", id, err)
	}
	if err := h.Validate(); err != nil {
		s.logger.Error("stored history is corrupt", "session", id, "error", err)
		return nil, fmt.Errorf("open session %q: %w", id, err)
	}

	s.history = h
	s.logger.Debug("session loaded", "session", id, "snapshots", h.Len())
	return s, nil
}

// applyPolicy returns h with cfg's retention policy, pruning if needed.
func applyPolicy(h *history.History, cfg *config.Config) (*history.History, error) {
	snaps, err := history.Prune(h.Snapshots, cfg.MaxSnapshots)
	if err != nil {
		return nil, err
	}
	return &history.History{
		MaxSnapshots:     cfg.MaxSnapshots,
		BaselineInterval: cfg.BaselineInterval,
		Snapshots:        snaps,
	}, nil
}

// ID returns the session name.
func (s *Session) ID() string {
	return s.id
}

// History returns the current history value. The value is never modified
// by the session; later checkpoints replace it.
func (s *Session) History() *history.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history
}

// Checkpoint snapshots the collection and persists the new history.
//
// If nothing changed since the last snapshot the history is left as is and
// nothing is written. If saving fails the in-memory history is not
// advanced, so the next checkpoint retries the same change.
func (s *Session) Checkpoint(ctx context.Context, c canvas.Collection, activeIndex int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.history
	next, err := s.builder.CreateSnapshot(c, activeIndex, prev)
	if err != nil {
		return Result{}, fmt.Errorf("checkpoint %q: %w", s.id, err)
	}

	if next == prev {
		return Result{
			Changed:   false,
			Snapshot:  last(prev),
			Snapshots: prev.Len(),
		}, nil
	}

	if err := s.store.SaveHistory(ctx, s.id, next); err != nil {
		return Result{}, fmt.Errorf("checkpoint %q: %w", s.id, err)
	}
	s.history = next

	res := Result{
		Changed:   true,
		Snapshot:  last(next),
		Snapshots: next.Len(),
		Pruned:    prev.Len() + 1 - next.Len(),
	}
	s.logger.Info("checkpoint saved",
		"session", s.id,
		"snapshot", res.Snapshot.ID,
		"summary", res.Snapshot.Summary,
		"snapshots", res.Snapshots)
	return res, nil
}

// Restore returns the collection captured by the snapshot at index.
// The history is not modified; callers load the result into their editor
// and the next checkpoint records it as a new snapshot.
func (s *Session) Restore(index int) (canvas.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return history.Reconstruct(s.history, index)
}

// Diff returns the per-tab deltas that turn snapshot from into snapshot to.
func (s *Session) Diff(from, to int) ([]history.DocumentDelta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := history.Reconstruct(s.history, from)
	if err != nil {
		return nil, err
	}
	b, err := history.Reconstruct(s.history, to)
	if err != nil {
		return nil, err
	}
	return history.DiffCollections(a, b), nil
}

// Snapshots lists the retained snapshots, oldest first.
func (s *Session) Snapshots() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]Info, 0, s.history.Len())
	for i, snap := range s.history.Snapshots {
		infos = append(infos, Info{
			Index:     i,
			ID:        snap.ID,
			Timestamp: snap.Timestamp,
			Summary:   snap.Summary,
			Kind:      snap.Kind(),
			Tabs:      snap.TabTitles,
		})
	}
	return infos
}

func last(h *history.History) history.Snapshot {
	if h.Len() == 0 {
		return history.Snapshot{}
	}
	return h.Snapshots[h.Len()-1]
}
