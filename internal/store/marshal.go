package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ipcrm/napkin/internal/canvas"
	"github.com/ipcrm/napkin/internal/history"
)

// timeLayout is used for every timestamp column. Fixed-width nanoseconds
// keep lexical order equal to chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// marshalJSON encodes v as compact JSON TEXT.
// HTML escaping is disabled so stored attributes match their canonical form.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return string(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})), nil
}

// marshalPayload encodes the snapshot's single payload.
func marshalPayload(s history.Snapshot) (string, error) {
	if s.IsBaseline() {
		data, err := marshalJSON(s.FullState)
		if err != nil {
			return "", fmt.Errorf("marshal baseline %s: %w", s.ID, err)
		}
		return data, nil
	}

	deltas := s.Deltas
	if deltas == nil {
		deltas = []history.DocumentDelta{}
	}
	data, err := marshalJSON(deltas)
	if err != nil {
		return "", fmt.Errorf("marshal deltas %s: %w", s.ID, err)
	}
	return data, nil
}

// marshalTabTitles encodes the tab titles. A missing list is stored as
// "null" so replay can tell it apart from a session with no tabs.
func marshalTabTitles(titles []string) (string, error) {
	data, err := marshalJSON(titles)
	if err != nil {
		return "", fmt.Errorf("marshal tab titles: %w", err)
	}
	return data, nil
}

// unmarshalPayload decodes a payload column into the snapshot.
// Delta payloads always decode to a non-nil slice so an empty delta list
// survives a round trip.
func unmarshalPayload(kind history.Kind, data string, s *history.Snapshot) error {
	switch kind {
	case history.KindBaseline:
		var full canvas.Collection
		if err := json.Unmarshal([]byte(data), &full); err != nil {
			return fmt.Errorf("unmarshal baseline %s: %w", s.ID, err)
		}
		s.FullState = &full
	case history.KindDelta:
		deltas := []history.DocumentDelta{}
		if err := json.Unmarshal([]byte(data), &deltas); err != nil {
			return fmt.Errorf("unmarshal deltas %s: %w", s.ID, err)
		}
		s.Deltas = deltas
	default:
		return fmt.Errorf("snapshot %s: unknown kind %q", s.ID, kind)
	}
	return nil
}

// unmarshalTabTitles decodes the tab titles column.
func unmarshalTabTitles(data string) ([]string, error) {
	var titles []string
	if err := json.Unmarshal([]byte(data), &titles); err != nil {
		return nil, fmt.Errorf("unmarshal tab titles: %w", err)
	}
	return titles, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
