package history

import (
	"log/slog"

	"github.com/ipcrm/napkin/internal/canvas"
)

// Reconstruct returns the full collection as it was when the snapshot at
// index was taken.
//
// If the target is a baseline its stored collection is copied directly.
// Otherwise the nearest preceding baseline is copied and every later snapshot
// up to and including the target is replayed onto it. The replay cost is
// bounded by the history's baseline interval.
//
// Returns a range Error if index is outside [0, h.Len()), and an invariant
// Error if no baseline exists at or before index.
func Reconstruct(h *History, index int) (canvas.Collection, error) {
	if h == nil {
		return canvas.Collection{}, NewRangeError(index, 0)
	}
	return reconstruct(h.Snapshots, index)
}

// reconstruct works on a raw snapshot sequence so retention can replay
// against the sequence as it was before pruning.
func reconstruct(snaps []Snapshot, index int) (canvas.Collection, error) {
	if index < 0 || index >= len(snaps) {
		return canvas.Collection{}, NewRangeError(index, len(snaps))
	}

	target := snaps[index]
	if target.IsBaseline() {
		return baselineState(target), nil
	}

	base := -1
	for i := index; i >= 0; i-- {
		if snaps[i].IsBaseline() {
			base = i
			break
		}
	}
	if base < 0 {
		err := NewInvariantError(index, len(snaps), "no baseline snapshot at or before index")
		slog.Error("history invariant violated",
			"error", err,
			"index", index,
			"snapshots", len(snaps))
		return canvas.Collection{}, err
	}

	working := baselineState(snaps[base])
	for i := base + 1; i <= index; i++ {
		s := snaps[i]
		if s.IsBaseline() {
			working = baselineState(s)
			continue
		}
		working = replayDeltas(working, s)
	}
	working.ActiveIndex = target.ActiveIndex
	return working, nil
}

// baselineState deep copies a baseline's stored collection and stamps the
// snapshot's active index onto it.
func baselineState(s Snapshot) canvas.Collection {
	c := s.FullState.Clone()
	c.ActiveIndex = s.ActiveIndex
	return c
}

// replayDeltas applies one delta snapshot to the working collection in place.
//
// When the snapshot recorded its tab titles, the working collection is first
// resized to that tab count: tabs opened since the previous snapshot start as
// empty documents and trailing closed tabs are dropped. Deltas whose tab index
// falls outside the resulting count are ignored.
func replayDeltas(working canvas.Collection, s Snapshot) canvas.Collection {
	if s.TabTitles != nil {
		working.Documents = resizeDocuments(working.Documents, len(s.TabTitles))
	}

	for i := range s.Deltas {
		d := &s.Deltas[i]
		if d.TabIndex < 0 || d.TabIndex >= len(working.Documents) {
			continue
		}
		working.Documents[d.TabIndex] = Apply(working.Documents[d.TabIndex], d)
	}

	for i, title := range s.TabTitles {
		if i < len(working.Documents) {
			working.Documents[i].Title = title
		}
	}
	return working
}

func resizeDocuments(docs []canvas.Document, n int) []canvas.Document {
	if len(docs) >= n {
		return docs[:n]
	}
	for len(docs) < n {
		docs = append(docs, canvas.EmptyDocument())
	}
	return docs
}
