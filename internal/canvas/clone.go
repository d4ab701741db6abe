package canvas

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{ID: s.ID, Type: s.Type, Attrs: cloneAttrs(s.Attrs)}
}

// Clone returns a deep copy of the document. Empty shape lists stay nil.
func (d Document) Clone() Document {
	out := d
	out.Shapes = nil
	if len(d.Shapes) > 0 {
		out.Shapes = make([]Shape, len(d.Shapes))
		for i, s := range d.Shapes {
			out.Shapes[i] = s.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the collection.
func (c Collection) Clone() Collection {
	out := Collection{ActiveIndex: c.ActiveIndex}
	if len(c.Documents) > 0 {
		out.Documents = make([]Document, len(c.Documents))
		for i, d := range c.Documents {
			out.Documents[i] = d.Clone()
		}
	}
	return out
}

func cloneAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep copies a JSON-like attribute value. Maps and slices
// produced by encoding/json or yaml.v3 are copied; scalars are returned as is.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneAttrs(val)
	case []any:
		if val == nil {
			return val
		}
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = CloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case []float64:
		return append([]float64(nil), val...)
	default:
		return v
	}
}

// Equal reports whether two collections hold the same versioned content:
// tab titles, shapes in order, viewports and the active index.
// Document timestamps are not versioned and are ignored.
func (c Collection) Equal(other Collection) bool {
	if c.ActiveIndex != other.ActiveIndex || len(c.Documents) != len(other.Documents) {
		return false
	}
	for i := range c.Documents {
		if !c.Documents[i].Equal(other.Documents[i]) {
			return false
		}
	}
	return true
}

// Equal reports whether two documents hold the same versioned content.
func (d Document) Equal(other Document) bool {
	if d.Title != other.Title || d.Viewport != other.Viewport || len(d.Shapes) != len(other.Shapes) {
		return false
	}
	for i := range d.Shapes {
		if !d.Shapes[i].Equal(other.Shapes[i]) {
			return false
		}
	}
	return true
}

// Equal reports whether two shapes have the same id, type and attributes
// under canonical comparison.
func (s Shape) Equal(other Shape) bool {
	if s.ID != other.ID || s.Type != other.Type {
		return false
	}
	return ValuesEqual(s.Record(), other.Record())
}
