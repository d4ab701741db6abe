package testutil

import (
	"github.com/ipcrm/napkin/internal/canvas"
)

// Rect returns a rectangle shape at (x, y) with a fixed 100x50 size.
func Rect(id string, x, y float64) canvas.Shape {
	return canvas.NewShape(id, "rectangle", map[string]any{
		"x":      x,
		"y":      y,
		"width":  100.0,
		"height": 50.0,
	})
}

// Doc returns a titled document with the default viewport.
func Doc(title string, shapes ...canvas.Shape) canvas.Document {
	return canvas.Document{
		Title:    title,
		Shapes:   shapes,
		Viewport: canvas.DefaultViewport(),
	}
}

// Collection returns a collection of the given documents with tab 0 active.
func Collection(docs ...canvas.Document) canvas.Collection {
	return canvas.Collection{Documents: docs}
}
