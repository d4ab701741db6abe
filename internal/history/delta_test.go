package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipcrm/napkin/internal/canvas"
	"github.com/ipcrm/napkin/internal/testutil"
)

func TestDiff_Identical(t *testing.T) {
	doc := testutil.Doc("Board", testutil.Rect("a", 0, 0), testutil.Rect("b", 1, 1))
	assert.Nil(t, Diff(doc, doc.Clone(), 0))
}

func TestDiff_IntAndFloatAreEqual(t *testing.T) {
	oldDoc := testutil.Doc("Board", canvas.NewShape("a", "rectangle", map[string]any{"x": 10}))
	newDoc := testutil.Doc("Board", canvas.NewShape("a", "rectangle", map[string]any{"x": 10.0}))
	assert.Nil(t, Diff(oldDoc, newDoc, 0))
}

func TestDiff_Ordering(t *testing.T) {
	a, b, c, d := testutil.Rect("a", 0, 0), testutil.Rect("b", 0, 0), testutil.Rect("c", 0, 0), testutil.Rect("d", 0, 0)

	oldDoc := testutil.Doc("Board", a, b, c)
	newDoc := testutil.Doc("Board", withAttr(c, "x", 5.0), d, withAttr(a, "x", 7.0))

	delta := Diff(oldDoc, newDoc, 3)
	require.NotNil(t, delta)
	assert.Equal(t, 3, delta.TabIndex)

	require.Len(t, delta.Added, 1)
	assert.Equal(t, "d", delta.Added[0].ID)
	assert.Equal(t, []string{"b"}, delta.Removed)

	require.Len(t, delta.Modified, 2)
	assert.Equal(t, "c", delta.Modified[0].ID)
	assert.Equal(t, "a", delta.Modified[1].ID)
	assert.Nil(t, delta.Viewport)
}

func TestDiff_AttributeChanges(t *testing.T) {
	base := canvas.NewShape("s", "rectangle", map[string]any{
		"x":     1.0,
		"label": "old",
		"fill":  "#fff",
	})
	next := canvas.NewShape("s", "ellipse", map[string]any{
		"x":      1.0,
		"label":  "new",
		"stroke": 2.0,
	})

	delta := Diff(testutil.Doc("", base), testutil.Doc("", next), 0)
	require.NotNil(t, delta)
	require.Len(t, delta.Modified, 1)

	assert.Equal(t, map[string]Change{
		"type":   Set("ellipse"),
		"label":  Set("new"),
		"fill":   Unset(),
		"stroke": Set(2.0),
	}, delta.Modified[0].Changes)
}

func TestDiff_NestedValues(t *testing.T) {
	oldShape := canvas.NewShape("p", "path", map[string]any{
		"points": []any{[]any{0.0, 0.0}, []any{1.0, 1.0}},
	})
	same := canvas.NewShape("p", "path", map[string]any{
		"points": []any{[]any{0, 0}, []any{1, 1}},
	})
	moved := canvas.NewShape("p", "path", map[string]any{
		"points": []any{[]any{0.0, 0.0}, []any{2.0, 1.0}},
	})

	assert.Nil(t, Diff(testutil.Doc("", oldShape), testutil.Doc("", same), 0))

	delta := Diff(testutil.Doc("", oldShape), testutil.Doc("", moved), 0)
	require.NotNil(t, delta)
	require.Len(t, delta.Modified, 1)
	assert.Contains(t, delta.Modified[0].Changes, "points")
}

func TestDiff_CapturedValuesAreCopies(t *testing.T) {
	pts := []any{1.0, 2.0}
	oldDoc := testutil.Doc("")
	newDoc := testutil.Doc("", canvas.Shape{ID: "p", Type: "path", Attrs: map[string]any{"points": pts}})

	delta := Diff(oldDoc, newDoc, 0)
	require.NotNil(t, delta)
	pts[0] = 99.0

	got, _ := delta.Added[0].Get("points")
	assert.Equal(t, []any{1.0, 2.0}, got)
}

func TestDiff_Viewport(t *testing.T) {
	oldDoc := testutil.Doc("Board")
	newDoc := testutil.Doc("Board")
	newDoc.Viewport.Zoom = 2

	delta := Diff(oldDoc, newDoc, 0)
	require.NotNil(t, delta)
	require.NotNil(t, delta.Viewport)
	assert.Equal(t, canvas.Viewport{Zoom: 2}, *delta.Viewport)
	assert.False(t, delta.IsEmpty())
}

func TestDiff_TitleIsNotADelta(t *testing.T) {
	oldDoc := testutil.Doc("Before", testutil.Rect("a", 0, 0))
	newDoc := testutil.Doc("After", testutil.Rect("a", 0, 0))
	assert.Nil(t, Diff(oldDoc, newDoc, 0))
}

func TestDiffCollections_TabsOpenedAndClosed(t *testing.T) {
	prev := testutil.Collection(
		testutil.Doc("A", testutil.Rect("a1", 0, 0)),
		testutil.Doc("B", testutil.Rect("b1", 0, 0)),
	)
	cur := testutil.Collection(
		testutil.Doc("A", testutil.Rect("a1", 0, 0)),
	)

	deltas := DiffCollections(prev, cur)
	require.Len(t, deltas, 1)
	assert.Equal(t, 1, deltas[0].TabIndex)
	assert.Equal(t, []string{"b1"}, deltas[0].Removed)

	deltas = DiffCollections(cur, prev)
	require.Len(t, deltas, 1)
	assert.Equal(t, 1, deltas[0].TabIndex)
	require.Len(t, deltas[0].Added, 1)
	assert.Equal(t, "b1", deltas[0].Added[0].ID)
}

func TestDiffCollections_NoChangesIsEmptyNotNil(t *testing.T) {
	c := testutil.Collection(testutil.Doc("A", testutil.Rect("a1", 0, 0)))
	deltas := DiffCollections(c, c.Clone())
	assert.NotNil(t, deltas)
	assert.Empty(t, deltas)
}

func TestDiffApply_Correctness(t *testing.T) {
	a, b, c := testutil.Rect("a", 0, 0), testutil.Rect("b", 10, 10), testutil.Rect("c", 20, 20)

	tests := []struct {
		name   string
		oldDoc canvas.Document
		newDoc canvas.Document
	}{
		{"empty to shapes", testutil.Doc(""), testutil.Doc("", a, b)},
		{"shapes to empty", testutil.Doc("", a, b), testutil.Doc("")},
		{"append", testutil.Doc("", a), testutil.Doc("", a, b)},
		{"remove middle", testutil.Doc("", a, b, c), testutil.Doc("", a, c)},
		{"modify in place", testutil.Doc("", a, b), testutil.Doc("", a, withAttr(b, "x", 99.0))},
		{"drop attribute", testutil.Doc("", a), testutil.Doc("", withoutAttr(a, "width"))},
		{"add attribute", testutil.Doc("", a), testutil.Doc("", withAttr(a, "label", "hello"))},
		{"type change", testutil.Doc("", a), testutil.Doc("", canvas.NewShape("a", "ellipse", a.Attrs))},
		{"viewport", testutil.Doc("", a), canvas.Document{Shapes: []canvas.Shape{a}, Viewport: canvas.Viewport{X: 3, Y: 4, Zoom: 0.5}}},
		{"added go on top", testutil.Doc("", a, b), testutil.Doc("", a, b, c)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(tt.oldDoc, Diff(tt.oldDoc, tt.newDoc, 0))
			assert.True(t, tt.newDoc.Equal(got), "got %v, want %v", shapeIDs(got), shapeIDs(tt.newDoc))
		})
	}
}
