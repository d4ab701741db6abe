package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/ipcrm/napkin/internal/canvas"
	"github.com/ipcrm/napkin/internal/history"
	"github.com/ipcrm/napkin/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// buildTestHistory runs a short editing session and returns the history
// together with the collection captured by each retained snapshot.
func buildTestHistory(t *testing.T, maxSnapshots, interval int) (*history.History, []canvas.Collection) {
	t.Helper()

	b := history.NewBuilder(
		history.WithIDGenerator(testutil.NewSequentialIDGenerator("snap")),
		history.WithClock(testutil.NewStepClock(time.Second)),
		history.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	live := testutil.Collection(testutil.Doc("Plan"))
	var states []canvas.Collection
	h := history.New(maxSnapshots, interval)

	edits := []func(){
		func() { live.Documents[0].Shapes = append(live.Documents[0].Shapes, testutil.Rect("a", 0, 0)) },
		func() { live.Documents[0].Shapes = append(live.Documents[0].Shapes, testutil.Rect("b", 10, 10)) },
		func() { live.Documents[0].Shapes[0].Attrs["label"] = "<start> & go" },
		func() { live.Documents = append(live.Documents, testutil.Doc("Sketch", testutil.Rect("c", 5, 5))) },
		func() { live.Documents[0].Title = "Plan v2" },
		func() { live.Documents[1].Viewport = canvas.Viewport{X: 20, Y: -10, Zoom: 2} },
		func() { delete(live.Documents[0].Shapes[0].Attrs, "label") },
		func() { live.Documents[0].Shapes = live.Documents[0].Shapes[1:] },
	}

	for _, edit := range edits {
		edit()
		next, err := b.CreateSnapshot(live, live.ActiveIndex, h)
		if err != nil {
			t.Fatalf("CreateSnapshot() failed: %v", err)
		}
		h = next
		states = append(states, live.Clone())
	}

	return h, states[len(states)-h.Len():]
}
