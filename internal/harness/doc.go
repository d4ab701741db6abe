// Package harness runs scripted canvas editing sessions against the history
// engine and checks the snapshots they produce.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	policy:
//	  max_snapshots: 4
//	  baseline_interval: 2
//	steps:
//	  - action: add_tab
//	    title: Board
//	  - action: add_shape
//	    shape: { id: s1, type: rectangle, x: 0, y: 0 }
//	  - action: snapshot
//	    expect: { changed: true, kind: baseline }
//	  - action: update_shape
//	    id: s1
//	    set: { x: 40 }
//	    unset: [label]
//	  - action: snapshot
//	    expect: { summary: "~1 shapes" }
//	assertions:
//	  - type: snapshot_count
//	    count: 2
//	  - type: round_trip
//
// # Step Actions
//
//   - add_shape, remove_shape, update_shape: edit shapes of a tab
//   - set_viewport: replace a tab's viewport
//   - add_tab, close_tab, rename_tab, switch_tab: edit the tab set
//   - snapshot: checkpoint the current collection
//
// Steps that take a tab default to the active tab.
//
// # Assertion Types
//
//   - snapshot_count: number of retained snapshots
//   - snapshot_kind: baseline or delta at an index
//   - summary_contains: substring of the summary at an index
//   - reconstruct_shapes: shape ids of a tab reconstructed at an index
//   - round_trip: every retained snapshot reconstructs to the collection it
//     captured, both in memory and after reloading from the store
//   - invariants: History.Validate passes
//
// Negative indices count from the newest snapshot (-1 is the newest).
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory SQLite store with
// sequential snapshot ids (snap-1, snap-2, ...) and a clock that starts at
// 2026-01-01T00:00:00Z and advances one second per snapshot, so traces are
// byte-identical across runs and suitable for golden comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/pruning.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
