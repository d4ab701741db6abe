package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ipcrm/napkin/internal/canvas"
	"github.com/ipcrm/napkin/internal/config"
	"github.com/ipcrm/napkin/internal/history"
	"github.com/ipcrm/napkin/internal/session"
	"github.com/ipcrm/napkin/internal/store"
	"github.com/ipcrm/napkin/internal/testutil"
)

// sessionID is the session every scenario writes to in its private store.
const sessionID = "scenario"

// Harness is the scenario execution engine.
// It runs steps against a live collection and a persisted session with
// deterministic ids and timestamps.
type Harness struct {
	store   *store.Store
	session *session.Session
	cfg     *config.Config
	logger  *slog.Logger
	live    canvas.Collection
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Steps that cannot be applied (unknown shape, tab out of range) abort the
// run with an error: they are bugs in the scenario, not in the history.
// Failed snapshot expectations and assertions are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	cfg := config.Default()
	if scenario.Policy.MaxSnapshots > 0 {
		cfg.MaxSnapshots = scenario.Policy.MaxSnapshots
	}
	if scenario.Policy.BaselineInterval > 0 {
		cfg.BaselineInterval = scenario.Policy.BaselineInterval
	}

	h := &Harness{
		store:  st,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ctx := context.Background()
	h.session, err = h.openSession(ctx)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
	}
	result.History = h.session.History()

	actx := &AssertionContext{
		Ctx:     ctx,
		Reload:  h.reload,
		History: result.History,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func (h *Harness) openSession(ctx context.Context) (*session.Session, error) {
	s, err := session.Open(ctx, h.store, sessionID, h.cfg,
		session.WithLogger(h.logger),
		session.WithBuilder(history.NewBuilder(
			history.WithIDGenerator(testutil.NewSequentialIDGenerator("snap")),
			history.WithClock(testutil.NewStepClock(time.Second)),
			history.WithLogger(h.logger),
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	return s, nil
}

// reload reads the session's history back from the store.
func (h *Harness) reload(ctx context.Context) (*history.History, error) {
	return h.store.LoadHistory(ctx, sessionID)
}

// executeStep applies one step to the live collection, or checkpoints it.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	if step.Action == ActionSnapshot {
		return h.snapshot(ctx, index, step, result)
	}

	tab, err := h.resolveTab(step)
	if err != nil {
		return err
	}
	ev := TraceEvent{Action: step.Action, Tab: tab}

	switch step.Action {
	case ActionAddShape:
		shape := shapeFromRecord(step.Shape)
		doc := &h.live.Documents[tab]
		if doc.ShapeIndex(shape.ID) >= 0 {
			return fmt.Errorf("shape %q already exists in tab %d", shape.ID, tab)
		}
		doc.Shapes = append(doc.Shapes, shape)
		ev.Target = shape.ID

	case ActionRemoveShape:
		doc := &h.live.Documents[tab]
		i := doc.ShapeIndex(step.ID)
		if i < 0 {
			return fmt.Errorf("shape %q not found in tab %d", step.ID, tab)
		}
		doc.Shapes = append(doc.Shapes[:i:i], doc.Shapes[i+1:]...)
		ev.Target = step.ID

	case ActionUpdateShape:
		doc := &h.live.Documents[tab]
		i := doc.ShapeIndex(step.ID)
		if i < 0 {
			return fmt.Errorf("shape %q not found in tab %d", step.ID, tab)
		}
		doc.Shapes[i] = updateShape(doc.Shapes[i], step.Set, step.Unset)
		ev.Target = step.ID

	case ActionSetViewport:
		h.live.Documents[tab].Viewport = *step.Viewport

	case ActionAddTab:
		h.live.Documents = append(h.live.Documents, canvas.Document{
			Title:    step.Title,
			Viewport: canvas.DefaultViewport(),
		})
		h.live.ActiveIndex = len(h.live.Documents) - 1
		ev.Tab = h.live.ActiveIndex
		ev.Target = step.Title

	case ActionCloseTab:
		ev.Target = h.live.Documents[tab].Title
		h.live.Documents = append(h.live.Documents[:tab:tab], h.live.Documents[tab+1:]...)
		switch {
		case h.live.ActiveIndex > tab:
			h.live.ActiveIndex--
		case h.live.ActiveIndex >= len(h.live.Documents):
			h.live.ActiveIndex = max(len(h.live.Documents)-1, 0)
		}

	case ActionRenameTab:
		h.live.Documents[tab].Title = step.Title
		ev.Target = step.Title

	case ActionSwitchTab:
		h.live.ActiveIndex = tab
		ev.Target = h.live.Documents[tab].Title
	}

	result.addTrace(ev)
	return nil
}

// resolveTab returns the tab a step acts on, checking that it exists.
func (h *Harness) resolveTab(step Step) (int, error) {
	if step.Action == ActionAddTab {
		return len(h.live.Documents), nil
	}
	tab := h.live.ActiveIndex
	if step.Tab != nil {
		tab = *step.Tab
	}
	if tab < 0 || tab >= len(h.live.Documents) {
		return 0, fmt.Errorf("tab %d out of range (%d tabs open)", tab, len(h.live.Documents))
	}
	return tab, nil
}

func (h *Harness) snapshot(ctx context.Context, index int, step Step, result *Result) error {
	res, err := h.session.Checkpoint(ctx, h.live.Clone(), h.live.ActiveIndex)
	if err != nil {
		return err
	}

	ev := &SnapshotEvent{
		Changed:     res.Changed,
		ActiveIndex: h.live.ActiveIndex,
		Retained:    res.Snapshots,
		Pruned:      res.Pruned,
	}
	if res.Changed {
		ev.ID = res.Snapshot.ID
		ev.Kind = res.Snapshot.Kind()
		ev.Summary = res.Snapshot.Summary

		captured := h.live.Clone()
		result.Captured[res.Snapshot.ID] = captured
	}
	result.addTrace(TraceEvent{Action: ActionSnapshot, Tab: -1, Snapshot: ev})

	if step.Expect != nil {
		for _, msg := range checkSnapshotExpect(index, step.Expect, ev) {
			result.AddError(msg)
		}
	}
	return nil
}

func checkSnapshotExpect(index int, want *SnapshotExpect, got *SnapshotEvent) []string {
	var errs []string
	if want.Changed != nil && *want.Changed != got.Changed {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected changed=%t, got %t", index, *want.Changed, got.Changed))
	}
	if want.Kind != "" && want.Kind != string(got.Kind) {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected kind %q, got %q", index, want.Kind, got.Kind))
	}
	if want.Summary != "" && want.Summary != got.Summary {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected summary %q, got %q", index, want.Summary, got.Summary))
	}
	if want.Pruned != nil && *want.Pruned != got.Pruned {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected pruned=%d, got %d", index, *want.Pruned, got.Pruned))
	}
	return errs
}

// shapeFromRecord builds a shape from a flat record with id and type keys.
func shapeFromRecord(rec map[string]any) canvas.Shape {
	id, _ := rec[canvas.KeyID].(string)
	shapeType, _ := rec[canvas.KeyType].(string)
	attrs := make(map[string]any, len(rec))
	for k, v := range rec {
		if k != canvas.KeyID && k != canvas.KeyType {
			attrs[k] = v
		}
	}
	return canvas.NewShape(id, shapeType, attrs)
}

// updateShape returns a copy of s with set applied and unset removed.
func updateShape(s canvas.Shape, set map[string]any, unset []string) canvas.Shape {
	out := s.Clone()
	if out.Attrs == nil {
		out.Attrs = make(map[string]any, len(set))
	}
	for k, v := range set {
		out.Attrs[k] = canvas.CloneValue(v)
	}
	for _, k := range unset {
		delete(out.Attrs, k)
	}
	return out
}
