package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/ipcrm/napkin/internal/canvas"
)

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to plain maps so that
// canvas.MarshalCanonical can order its keys.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"seq":    event.Seq,
			"action": event.Action,
		}
		if event.Snapshot == nil {
			eventMap["tab"] = event.Tab
		}
		if event.Target != "" {
			eventMap["target"] = event.Target
		}
		if snap := event.Snapshot; snap != nil {
			m := map[string]any{
				"changed":      snap.Changed,
				"active_index": snap.ActiveIndex,
				"retained":     snap.Retained,
				"pruned":       snap.Pruned,
			}
			if snap.ID != "" {
				m["id"] = snap.ID
				m["kind"] = string(snap.Kind)
				m["summary"] = snap.Summary
			}
			eventMap["snapshot"] = m
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

// TraceJSON renders a scenario trace as canonical JSON. This is the golden
// file format.
func TraceJSON(scenarioName string, trace []TraceEvent) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: scenarioName, Trace: trace}
	return canvas.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check assertions.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := TraceJSON(scenarioName, result.Trace)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
