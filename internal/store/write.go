package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ipcrm/napkin/internal/history"
)

// SaveHistory stores h as the complete history of a session.
//
// The session row is upserted and every existing snapshot row is replaced in
// a single transaction, so readers see either the old or the new history.
// A nil or empty history leaves the session with no snapshots.
func (s *Store) SaveHistory(ctx context.Context, sessionID string, h *history.History) error {
	if sessionID == "" {
		return fmt.Errorf("save history: empty session id")
	}
	if h == nil {
		h = history.New(0, 0)
	}

	maxSnapshots := h.MaxSnapshots
	if maxSnapshots <= 0 {
		maxSnapshots = history.DefaultMaxSnapshots
	}
	interval := h.BaselineInterval
	if interval <= 0 {
		interval = history.DefaultBaselineInterval
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save history: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, max_snapshots, baseline_interval, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			max_snapshots = excluded.max_snapshots,
			baseline_interval = excluded.baseline_interval,
			updated_at = excluded.updated_at
	`, sessionID, maxSnapshots, interval, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("save history: upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("save history: clear snapshots: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshots
		(session_id, position, id, created_at, summary, kind, active_index, tab_titles, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save history: prepare: %w", err)
	}
	defer stmt.Close()

	for i, snap := range h.Snapshots {
		payload, err := marshalPayload(snap)
		if err != nil {
			return fmt.Errorf("save history: %w", err)
		}
		titles, err := marshalTabTitles(snap.TabTitles)
		if err != nil {
			return fmt.Errorf("save history: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			sessionID,
			i,
			snap.ID,
			formatTime(snap.Timestamp),
			snap.Summary,
			string(snap.Kind()),
			snap.ActiveIndex,
			titles,
			payload,
		)
		if err != nil {
			return fmt.Errorf("save history: snapshot %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save history: commit: %w", err)
	}
	return nil
}

// DeleteSession removes a session and all of its snapshots.
// Returns ErrSessionNotFound if the session does not exist.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete session %q: %w", sessionID, ErrSessionNotFound)
	}
	return nil
}
