package history

import (
	"fmt"

	"github.com/ipcrm/napkin/internal/canvas"
)

// Prune drops the oldest snapshots so that at most maxSnapshots remain.
//
// If the new oldest snapshot is a delta it is promoted to a baseline: its
// full state is reconstructed against the original, pre-pruning sequence
// (where its baseline chain is still intact) and stored in place of its
// deltas. The input slice and its snapshots are not modified.
//
// A non-positive maxSnapshots disables the cap.
func Prune(snaps []Snapshot, maxSnapshots int) ([]Snapshot, error) {
	if maxSnapshots <= 0 || len(snaps) <= maxSnapshots {
		return snaps, nil
	}

	excess := len(snaps) - maxSnapshots
	kept := make([]Snapshot, maxSnapshots)
	copy(kept, snaps[excess:])

	if kept[0].IsBaseline() {
		return kept, nil
	}

	state, err := reconstruct(snaps, excess)
	if err != nil {
		return nil, fmt.Errorf("promote snapshot %s: %w", kept[0].ID, err)
	}
	kept[0] = promote(kept[0], state)
	return kept, nil
}

// promote returns a copy of s carrying state as its baseline.
func promote(s Snapshot, state canvas.Collection) Snapshot {
	s.FullState = &state
	s.Deltas = nil
	return s
}
