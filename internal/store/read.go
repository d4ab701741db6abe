package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ipcrm/napkin/internal/history"
)

// SessionInfo describes a stored session without loading its snapshots.
type SessionInfo struct {
	ID               string    `json:"id"`
	MaxSnapshots     int       `json:"max_snapshots"`
	BaselineInterval int       `json:"baseline_interval"`
	Snapshots        int       `json:"snapshots"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// LoadHistory reads the complete history of a session.
// Snapshots are returned in position order (oldest first).
//
// Returns ErrSessionNotFound if the session has never been saved.
func (s *Store) LoadHistory(ctx context.Context, sessionID string) (*history.History, error) {
	h := &history.History{}
	err := s.db.QueryRowContext(ctx, `
		SELECT max_snapshots, baseline_interval
		FROM sessions
		WHERE id = ?
	`, sessionID).Scan(&h.MaxSnapshots, &h.BaselineInterval)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load history %q: %w", sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load history: query session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, summary, kind, active_index, tab_titles, payload
		FROM snapshots
		WHERE session_id = ?
		ORDER BY position ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: query snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []history.Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load history: iterate snapshots: %w", err)
	}

	h.Snapshots = snaps
	return h, nil
}

// ListSessions returns every stored session ordered by id.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.max_snapshots, s.baseline_interval, s.updated_at, COUNT(n.position)
		FROM sessions s
		LEFT JOIN snapshots n ON n.session_id = s.id
		GROUP BY s.id
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var (
			info      SessionInfo
			updatedAt string
		)
		if err := rows.Scan(&info.ID, &info.MaxSnapshots, &info.BaselineInterval, &updatedAt, &info.Snapshots); err != nil {
			return nil, fmt.Errorf("list sessions: scan: %w", err)
		}
		if info.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: iterate: %w", err)
	}
	return sessions, nil
}

// scanSnapshot scans a snapshot row into a history.Snapshot.
func scanSnapshot(rows *sql.Rows) (history.Snapshot, error) {
	var (
		snap      history.Snapshot
		createdAt string
		kind      string
		titles    string
		payload   string
	)
	if err := rows.Scan(&snap.ID, &createdAt, &snap.Summary, &kind, &snap.ActiveIndex, &titles, &payload); err != nil {
		return history.Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}

	var err error
	if snap.Timestamp, err = parseTime(createdAt); err != nil {
		return history.Snapshot{}, err
	}
	if snap.TabTitles, err = unmarshalTabTitles(titles); err != nil {
		return history.Snapshot{}, err
	}
	if err := unmarshalPayload(history.Kind(kind), payload, &snap); err != nil {
		return history.Snapshot{}, err
	}
	return snap, nil
}
