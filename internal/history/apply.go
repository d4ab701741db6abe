package history

import (
	"github.com/ipcrm/napkin/internal/canvas"
)

// Apply returns the document that results from applying delta to doc.
// doc is not modified.
//
// Removed ids are dropped, modified entries are merged attribute by
// attribute, and the shape order is rebuilt as surviving shapes in their prior
// order followed by delta.Added in the given order, so added shapes always end
// up on top. A modified entry whose id is no longer present is skipped, and an
// added shape whose id still survives replaces that copy.
//
// A nil delta returns a copy of doc.
func Apply(doc canvas.Document, delta *DocumentDelta) canvas.Document {
	out := doc.Clone()
	if delta == nil {
		return out
	}

	working := make(map[string]canvas.Shape, len(out.Shapes))
	for _, s := range out.Shapes {
		working[s.ID] = s
	}

	for _, id := range delta.Removed {
		delete(working, id)
	}

	for _, mod := range delta.Modified {
		s, ok := working[mod.ID]
		if !ok {
			continue
		}
		working[mod.ID] = mergeChanges(s, mod.Changes)
	}

	added := make(map[string]struct{}, len(delta.Added))
	for _, s := range delta.Added {
		added[s.ID] = struct{}{}
	}

	shapes := make([]canvas.Shape, 0, len(working)+len(delta.Added))
	for _, s := range out.Shapes {
		if _, replaced := added[s.ID]; replaced {
			continue
		}
		if cur, ok := working[s.ID]; ok {
			shapes = append(shapes, cur)
		}
	}
	for _, s := range delta.Added {
		shapes = append(shapes, s.Clone())
	}
	if len(shapes) == 0 {
		shapes = nil
	}
	out.Shapes = shapes

	if delta.Viewport != nil {
		out.Viewport = *delta.Viewport
	}
	return out
}

// mergeChanges applies attribute changes to a shape that is already a
// private copy.
func mergeChanges(s canvas.Shape, changes map[string]Change) canvas.Shape {
	for k, c := range changes {
		switch k {
		case canvas.KeyID:
			continue
		case canvas.KeyType:
			if c.Removed {
				s.Type = ""
			} else if t, ok := c.Value.(string); ok {
				s.Type = t
			}
			continue
		}

		if c.Removed {
			delete(s.Attrs, k)
			continue
		}
		if s.Attrs == nil {
			s.Attrs = make(map[string]any, len(changes))
		}
		s.Attrs[k] = canvas.CloneValue(c.Value)
	}
	return s
}
