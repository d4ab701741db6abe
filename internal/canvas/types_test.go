package canvas

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeJSON(t *testing.T) {
	s := NewShape("s1", "rectangle", map[string]any{"x": 10.0, "label": "box"})

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"s1","type":"rectangle","x":10,"label":"box"}`, string(data))

	var decoded Shape
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "s1", decoded.ID)
	assert.Equal(t, "rectangle", decoded.Type)
	assert.True(t, s.Equal(decoded))
}

func TestShapeUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
		check   func(t *testing.T, s Shape)
	}{
		{
			name:  "id only",
			input: `{"id":"a"}`,
			check: func(t *testing.T, s Shape) {
				assert.Equal(t, "a", s.ID)
				assert.Empty(t, s.Type)
				assert.Nil(t, s.Attrs)
			},
		},
		{
			name:  "nested attrs",
			input: `{"id":"p","type":"freedraw","points":[[0,0],[1,2]]}`,
			check: func(t *testing.T, s Shape) {
				v, ok := s.Get("points")
				require.True(t, ok)
				assert.Equal(t, []any{[]any{0.0, 0.0}, []any{1.0, 2.0}}, v)
			},
		},
		{"missing id", `{"type":"rectangle"}`, "missing or non-string", nil},
		{"numeric id", `{"id":7}`, "missing or non-string", nil},
		{"array", `[]`, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Shape
			err := json.Unmarshal([]byte(tt.input), &s)
			if tt.check == nil {
				require.Error(t, err)
				if tt.wantErr != "" {
					assert.Contains(t, err.Error(), tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestShapeKeysAndRecord(t *testing.T) {
	s := NewShape("s1", "text", map[string]any{"y": 1, "x": 2})
	assert.Equal(t, []string{"type", "x", "y"}, s.Keys())

	rec := s.Record()
	assert.Equal(t, "s1", rec[KeyID])
	assert.Equal(t, "text", rec[KeyType])
	assert.Len(t, rec, 4)

	v, ok := s.Get(KeyID)
	assert.True(t, ok)
	assert.Equal(t, "s1", v)
	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestCollectionJSON(t *testing.T) {
	c := Collection{
		Documents: []Document{{
			Title:    "Board",
			Shapes:   []Shape{NewShape("a", "rectangle", map[string]any{"x": 1.0})},
			Viewport: Viewport{X: 5, Zoom: 2},
		}},
		ActiveIndex: 0,
	}

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded Collection
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, c.Equal(decoded))
	assert.Equal(t, []string{"Board"}, decoded.Titles())
	assert.Equal(t, 1, decoded.ShapeCount())
}

func TestDocumentShapeIndex(t *testing.T) {
	d := Document{Shapes: []Shape{{ID: "a"}, {ID: "b"}}}
	assert.Equal(t, 1, d.ShapeIndex("b"))
	assert.Equal(t, -1, d.ShapeIndex("z"))
}

func TestEmptyDocument(t *testing.T) {
	d := EmptyDocument()
	assert.Empty(t, d.Title)
	assert.Nil(t, d.Shapes)
	assert.Equal(t, Viewport{Zoom: 1}, d.Viewport)
}

func TestCloneIsDeep(t *testing.T) {
	c := Collection{
		Documents: []Document{{
			Title: "Board",
			Shapes: []Shape{NewShape("p", "freedraw", map[string]any{
				"points": []any{[]any{0.0, 0.0}},
				"style":  map[string]any{"stroke": "#000"},
			})},
		}},
	}

	clone := c.Clone()
	require.True(t, c.Equal(clone))

	clone.Documents[0].Title = "Other"
	clone.Documents[0].Shapes[0].Attrs["points"].([]any)[0] = "changed"
	clone.Documents[0].Shapes[0].Attrs["style"].(map[string]any)["stroke"] = "#fff"

	assert.Equal(t, "Board", c.Documents[0].Title)
	assert.Equal(t, []any{0.0, 0.0}, c.Documents[0].Shapes[0].Attrs["points"].([]any)[0])
	assert.Equal(t, "#000", c.Documents[0].Shapes[0].Attrs["style"].(map[string]any)["stroke"])
}

func TestCloneEmptyStaysNil(t *testing.T) {
	assert.Nil(t, Collection{}.Clone().Documents)
	assert.Nil(t, Document{Shapes: []Shape{}}.Clone().Shapes)
}

func TestEqual(t *testing.T) {
	base := Document{
		Title:    "Board",
		Shapes:   []Shape{NewShape("a", "rectangle", map[string]any{"x": 1})},
		Viewport: DefaultViewport(),
	}

	same := base.Clone()
	same.Shapes[0].Attrs["x"] = 1.0
	same.UpdatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, base.Equal(same), "numeric form and timestamps are not versioned")

	moved := base.Clone()
	moved.Shapes[0].Attrs["x"] = 2.0
	assert.False(t, base.Equal(moved))

	retyped := base.Clone()
	retyped.Shapes[0].Type = "ellipse"
	assert.False(t, base.Equal(retyped))

	panned := base.Clone()
	panned.Viewport.X = 3
	assert.False(t, base.Equal(panned))

	a := Collection{Documents: []Document{base}}
	b := Collection{Documents: []Document{base.Clone()}, ActiveIndex: 1}
	assert.False(t, a.Equal(b))
}
