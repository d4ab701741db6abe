package history

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/ipcrm/napkin/internal/canvas"
	"github.com/ipcrm/napkin/internal/testutil"
)

// newTestBuilder creates a Builder with deterministic ids and timestamps and
// suppressed logging.
func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(
		WithIDGenerator(testutil.NewSequentialIDGenerator("snap")),
		WithClock(testutil.NewStepClock(time.Second)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// mustSnapshot appends a snapshot and fails the test on error.
func mustSnapshot(t *testing.T, b *Builder, c canvas.Collection, h *History) *History {
	t.Helper()
	next, err := b.CreateSnapshot(c, c.ActiveIndex, h)
	if err != nil {
		t.Fatalf("CreateSnapshot() failed: %v", err)
	}
	return next
}

// mustReconstruct reconstructs a snapshot and fails the test on error.
func mustReconstruct(t *testing.T, h *History, index int) canvas.Collection {
	t.Helper()
	c, err := Reconstruct(h, index)
	if err != nil {
		t.Fatalf("Reconstruct(%d) failed: %v", index, err)
	}
	return c
}

// shapeIDs returns the ids of a document's shapes in order.
func shapeIDs(d canvas.Document) []string {
	ids := make([]string, 0, len(d.Shapes))
	for _, s := range d.Shapes {
		ids = append(ids, s.ID)
	}
	return ids
}

// withAttr returns a copy of s with one attribute set.
func withAttr(s canvas.Shape, key string, value any) canvas.Shape {
	out := s.Clone()
	if out.Attrs == nil {
		out.Attrs = map[string]any{}
	}
	out.Attrs[key] = value
	return out
}

// withoutAttr returns a copy of s with one attribute removed.
func withoutAttr(s canvas.Shape, key string) canvas.Shape {
	out := s.Clone()
	delete(out.Attrs, key)
	return out
}

func posInf() float64 {
	return math.Inf(1)
}
