package history

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/ipcrm/napkin/internal/canvas"
)

// Sentinels separating fingerprint segments. Titles, ids and records are
// written as canonical JSON, where neither byte can appear unescaped, so
// segment boundaries are unambiguous.
const (
	documentSeparator = 0x1e
	shapeSeparator    = 0x1f
)

// djb2 seed and multiplier.
const (
	djb2Seed       uint32 = 5381
	djb2Multiplier uint32 = 33
)

// Fingerprint computes a cheap change-detection digest over a collection.
//
// The digest is deterministic and order-sensitive over tabs and over shapes
// within a tab. It covers each document's title, viewport, and every shape's
// id plus its canonical record. The active-tab index is not covered.
//
// Fingerprints only gate no-op snapshots; reconstruction never depends on them.
// Returns an error if a shape attribute cannot be canonically encoded.
func Fingerprint(c canvas.Collection) (string, error) {
	var buf bytes.Buffer
	for i, doc := range c.Documents {
		if i > 0 {
			buf.WriteByte(documentSeparator)
		}
		title, err := canvas.MarshalCanonical(doc.Title)
		if err != nil {
			return "", fmt.Errorf("fingerprint: document %d title: %w", i, err)
		}
		buf.Write(title)
		buf.WriteByte(shapeSeparator)
		writeViewport(&buf, doc.Viewport)

		for _, s := range doc.Shapes {
			buf.WriteByte(shapeSeparator)
			id, err := canvas.MarshalCanonical(s.ID)
			if err != nil {
				return "", fmt.Errorf("fingerprint: document %d shape id: %w", i, err)
			}
			buf.Write(id)
			buf.WriteByte(':')
			rec, err := canvas.MarshalCanonical(s.Record())
			if err != nil {
				return "", fmt.Errorf("fingerprint: document %d shape %q: %w", i, s.ID, err)
			}
			buf.Write(rec)
		}
	}
	return fmt.Sprintf("%08x", djb2(buf.Bytes())), nil
}

func writeViewport(buf *bytes.Buffer, v canvas.Viewport) {
	buf.WriteString(strconv.FormatFloat(v.X, 'g', -1, 64))
	buf.WriteByte(',')
	buf.WriteString(strconv.FormatFloat(v.Y, 'g', -1, 64))
	buf.WriteByte(',')
	buf.WriteString(strconv.FormatFloat(v.Zoom, 'g', -1, 64))
}

// djb2 reduces data with the classic hash*33 + c accumulator.
func djb2(data []byte) uint32 {
	h := djb2Seed
	for _, c := range data {
		h = h*djb2Multiplier + uint32(c)
	}
	return h
}
