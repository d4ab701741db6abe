package history

import (
	"github.com/ipcrm/napkin/internal/canvas"
)

// Diff computes the delta that turns oldDoc into newDoc.
//
// Shapes are matched by id:
//   - Added: ids only in newDoc, in newDoc order
//   - Removed: ids only in oldDoc, in oldDoc order
//   - Modified: ids on both sides whose type or any attribute differs under
//     canonical comparison, in newDoc order. Keys that disappeared are
//     recorded with Unset().
//   - Viewport: set only if pan or zoom differs
//
// Returns nil (absent) when nothing differs.
func Diff(oldDoc, newDoc canvas.Document, tabIndex int) *DocumentDelta {
	oldByID := indexShapes(oldDoc.Shapes)
	newByID := indexShapes(newDoc.Shapes)

	delta := DocumentDelta{TabIndex: tabIndex}

	for _, s := range newDoc.Shapes {
		prev, ok := oldByID[s.ID]
		if !ok {
			delta.Added = append(delta.Added, s.Clone())
			continue
		}
		if changes := diffShape(prev, s); len(changes) > 0 {
			delta.Modified = append(delta.Modified, ShapeChange{ID: s.ID, Changes: changes})
		}
	}

	for _, s := range oldDoc.Shapes {
		if _, ok := newByID[s.ID]; !ok {
			delta.Removed = append(delta.Removed, s.ID)
		}
	}

	if oldDoc.Viewport != newDoc.Viewport {
		vp := newDoc.Viewport
		delta.Viewport = &vp
	}

	if delta.IsEmpty() {
		return nil
	}
	return &delta
}

// DiffCollections diffs every tab index across the union of both tab counts.
// A tab missing on either side is compared against canvas.EmptyDocument(), so
// a new tab shows up as added shapes and a closed tab as removed shapes.
// The result is never nil; it is empty when no tab changed.
func DiffCollections(prev, cur canvas.Collection) []DocumentDelta {
	n := max(len(prev.Documents), len(cur.Documents))

	deltas := make([]DocumentDelta, 0, n)
	for i := 0; i < n; i++ {
		if d := Diff(documentAt(prev, i), documentAt(cur, i), i); d != nil {
			deltas = append(deltas, *d)
		}
	}
	return deltas
}

// documentAt returns the document at index i, or an empty placeholder.
func documentAt(c canvas.Collection, i int) canvas.Document {
	if i < len(c.Documents) {
		return c.Documents[i]
	}
	return canvas.EmptyDocument()
}

// diffShape compares two records with the same id over the union of their
// keys. Keys are visited in canonical order.
func diffShape(oldShape, newShape canvas.Shape) map[string]Change {
	keys := make(map[string]struct{})
	for _, k := range oldShape.Keys() {
		keys[k] = struct{}{}
	}
	for _, k := range newShape.Keys() {
		keys[k] = struct{}{}
	}

	var changes map[string]Change
	for _, k := range canvas.SortedKeys(keys) {
		oldVal, inOld := oldShape.Get(k)
		newVal, inNew := newShape.Get(k)

		var change Change
		switch {
		case inOld && !inNew:
			change = Unset()
		case !inOld && inNew:
			change = Set(canvas.CloneValue(newVal))
		case canvas.ValuesEqual(oldVal, newVal):
			continue
		default:
			change = Set(canvas.CloneValue(newVal))
		}

		if changes == nil {
			changes = make(map[string]Change)
		}
		changes[k] = change
	}
	return changes
}

func indexShapes(shapes []canvas.Shape) map[string]canvas.Shape {
	m := make(map[string]canvas.Shape, len(shapes))
	for _, s := range shapes {
		m[s.ID] = s
	}
	return m
}
