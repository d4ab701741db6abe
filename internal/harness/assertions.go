package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ipcrm/napkin/internal/history"
)

// AssertionError is returned when an assertion fails.
// It includes the retained snapshots to help debug the failure.
type AssertionError struct {
	Type      string             // Assertion type for categorization
	Expected  string             // Human-readable expected outcome
	Actual    string             // Human-readable actual outcome
	Snapshots []history.Snapshot // Retained snapshots for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nRetained snapshots:\n")
	for i, s := range e.Snapshots {
		fmt.Fprintf(&buf, "  [%d] %s %s %q\n", i, s.ID, s.Kind(), s.Summary)
	}

	return buf.String()
}

// AssertionContext provides what assertions need beyond the trace.
type AssertionContext struct {
	Ctx context.Context

	// History is the final in-memory history.
	History *history.History

	// Reload reads the history back from the store.
	Reload func(ctx context.Context) (*history.History, error)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertSnapshotCount:
			err = assertSnapshotCount(actx.History, a)
		case AssertSnapshotKind:
			err = assertSnapshotKind(actx.History, a)
		case AssertSummaryContains:
			err = assertSummaryContains(actx.History, a)
		case AssertReconstructShapes:
			err = assertReconstructShapes(actx.History, a)
		case AssertRoundTrip:
			err = assertRoundTrip(actx, result)
		case AssertInvariants:
			err = assertInvariants(actx.History)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// resolveIndex maps a possibly negative index onto the history.
func resolveIndex(h *history.History, index int) int {
	if index < 0 {
		return h.Len() + index
	}
	return index
}

func snapshotAt(h *history.History, a Assertion) (history.Snapshot, error) {
	i := resolveIndex(h, a.Index)
	if i < 0 || i >= h.Len() {
		return history.Snapshot{}, &AssertionError{
			Type:      a.Type,
			Expected:  fmt.Sprintf("snapshot at index %d", a.Index),
			Actual:    fmt.Sprintf("%d snapshots retained", h.Len()),
			Snapshots: h.Snapshots,
		}
	}
	return h.Snapshots[i], nil
}

func assertSnapshotCount(h *history.History, a Assertion) error {
	if h.Len() != a.Count {
		return &AssertionError{
			Type:      a.Type,
			Expected:  fmt.Sprintf("%d snapshots", a.Count),
			Actual:    fmt.Sprintf("%d snapshots", h.Len()),
			Snapshots: h.Snapshots,
		}
	}
	return nil
}

func assertSnapshotKind(h *history.History, a Assertion) error {
	s, err := snapshotAt(h, a)
	if err != nil {
		return err
	}
	if string(s.Kind()) != a.Kind {
		return &AssertionError{
			Type:      a.Type,
			Expected:  fmt.Sprintf("snapshot %d is a %s", a.Index, a.Kind),
			Actual:    fmt.Sprintf("snapshot %d (%s) is a %s", a.Index, s.ID, s.Kind()),
			Snapshots: h.Snapshots,
		}
	}
	return nil
}

func assertSummaryContains(h *history.History, a Assertion) error {
	s, err := snapshotAt(h, a)
	if err != nil {
		return err
	}
	if !strings.Contains(s.Summary, a.Text) {
		return &AssertionError{
			Type:      a.Type,
			Expected:  fmt.Sprintf("summary of snapshot %d contains %q", a.Index, a.Text),
			Actual:    fmt.Sprintf("summary %q", s.Summary),
			Snapshots: h.Snapshots,
		}
	}
	return nil
}

func assertReconstructShapes(h *history.History, a Assertion) error {
	i := resolveIndex(h, a.Index)
	c, err := history.Reconstruct(h, i)
	if err != nil {
		return err
	}
	if a.Tab >= len(c.Documents) {
		return &AssertionError{
			Type:      a.Type,
			Expected:  fmt.Sprintf("tab %d at snapshot %d", a.Tab, a.Index),
			Actual:    fmt.Sprintf("%d tabs", len(c.Documents)),
			Snapshots: h.Snapshots,
		}
	}

	got := make([]string, 0, len(c.Documents[a.Tab].Shapes))
	for _, s := range c.Documents[a.Tab].Shapes {
		got = append(got, s.ID)
	}
	want := a.Shapes
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:      a.Type,
			Expected:  fmt.Sprintf("tab %d shapes %v", a.Tab, want),
			Actual:    fmt.Sprintf("tab %d shapes %v", a.Tab, got),
			Snapshots: h.Snapshots,
		}
	}
	return nil
}

// assertRoundTrip checks that every retained snapshot reconstructs to the
// collection captured when it was taken, from memory and from the store.
func assertRoundTrip(actx *AssertionContext, result *Result) error {
	h := actx.History
	if err := roundTrip(h, result, "memory"); err != nil {
		return err
	}
	if actx.Reload == nil || h.Len() == 0 {
		return nil
	}
	stored, err := actx.Reload(actx.Ctx)
	if err != nil {
		return fmt.Errorf("reload history: %w", err)
	}
	return roundTrip(stored, result, "store")
}

func roundTrip(h *history.History, result *Result, source string) error {
	for i, s := range h.Snapshots {
		want, ok := result.Captured[s.ID]
		if !ok {
			return &AssertionError{
				Type:      AssertRoundTrip,
				Expected:  fmt.Sprintf("snapshot %s was captured by a snapshot step", s.ID),
				Actual:    "unknown snapshot id",
				Snapshots: h.Snapshots,
			}
		}
		got, err := history.Reconstruct(h, i)
		if err != nil {
			return fmt.Errorf("reconstruct %d from %s: %w", i, source, err)
		}
		if !want.Equal(got) {
			return &AssertionError{
				Type:      AssertRoundTrip,
				Expected:  fmt.Sprintf("snapshot %d (%s) reconstructs to the captured collection", i, s.ID),
				Actual:    fmt.Sprintf("collection from %s differs", source),
				Snapshots: h.Snapshots,
			}
		}
	}
	return nil
}

func assertInvariants(h *history.History) error {
	if err := h.Validate(); err != nil {
		return &AssertionError{
			Type:      AssertInvariants,
			Expected:  "a structurally valid history",
			Actual:    err.Error(),
			Snapshots: h.Snapshots,
		}
	}
	return nil
}
