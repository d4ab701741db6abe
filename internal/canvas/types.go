package canvas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Well-known shape keys. Every other key lives in Shape.Attrs.
const (
	KeyID   = "id"
	KeyType = "type"
)

// Shape is a single drawable record. The history engine never interprets
// Attrs; it only compares and copies them.
type Shape struct {
	ID    string
	Type  string
	Attrs map[string]any
}

// NewShape creates a shape with the given attributes.
// The attrs map is copied.
func NewShape(id, shapeType string, attrs map[string]any) Shape {
	return Shape{ID: id, Type: shapeType, Attrs: cloneAttrs(attrs)}
}

// Get returns the value of a key, including the well-known keys.
func (s Shape) Get(key string) (any, bool) {
	switch key {
	case KeyID:
		return s.ID, true
	case KeyType:
		return s.Type, true
	}
	v, ok := s.Attrs[key]
	return v, ok
}

// Keys returns every key carried by the shape except "id".
// The result is in canonical order.
func (s Shape) Keys() []string {
	obj := make(map[string]any, len(s.Attrs)+1)
	obj[KeyType] = s.Type
	for k, v := range s.Attrs {
		obj[k] = v
	}
	return SortedKeys(obj)
}

// Record returns the flat representation of the shape: attrs plus id and type.
func (s Shape) Record() map[string]any {
	rec := make(map[string]any, len(s.Attrs)+2)
	for k, v := range s.Attrs {
		rec[k] = v
	}
	rec[KeyID] = s.ID
	rec[KeyType] = s.Type
	return rec
}

// MarshalJSON encodes the shape as one flat object.
func (s Shape) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Record())
}

// UnmarshalJSON decodes a flat shape object. "id" and "type" must be strings.
func (s *Shape) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("shape: expected object")
	}

	id, ok := raw[KeyID].(string)
	if !ok {
		return fmt.Errorf("shape: missing or non-string %q", KeyID)
	}
	shapeType, _ := raw[KeyType].(string)
	delete(raw, KeyID)
	delete(raw, KeyType)

	s.ID = id
	s.Type = shapeType
	s.Attrs = nil
	if len(raw) > 0 {
		s.Attrs = raw
	}
	return nil
}

// Viewport is the pan/zoom state of a document.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DefaultViewport is the viewport of a freshly opened tab.
func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

// Document is one tab's serializable state.
type Document struct {
	Title     string    `json:"title"`
	Shapes    []Shape   `json:"shapes"`
	Viewport  Viewport  `json:"viewport"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// EmptyDocument returns the placeholder used when a tab is missing on one
// side of a comparison.
func EmptyDocument() Document {
	return Document{Viewport: DefaultViewport()}
}

// ShapeIndex returns the position of the shape with the given id, or -1.
func (d Document) ShapeIndex(id string) int {
	for i, s := range d.Shapes {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Collection is the ordered set of documents open in one session.
type Collection struct {
	Documents   []Document `json:"documents"`
	ActiveIndex int        `json:"active_index"`
}

// Titles returns the document titles in tab order.
func (c Collection) Titles() []string {
	titles := make([]string, len(c.Documents))
	for i, d := range c.Documents {
		titles[i] = d.Title
	}
	return titles
}

// ShapeCount returns the number of shapes across all documents.
func (c Collection) ShapeCount() int {
	n := 0
	for _, d := range c.Documents {
		n += len(d.Shapes)
	}
	return n
}
