package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ipcrm/napkin/internal/canvas"
)

// Scenario defines a scripted editing session.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Policy sets the retention policy. Zero values use the defaults.
	Policy Policy `yaml:"policy,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final history.
	Assertions []Assertion `yaml:"assertions"`
}

// Policy is the scenario's retention policy.
type Policy struct {
	MaxSnapshots     int `yaml:"max_snapshots,omitempty"`
	BaselineInterval int `yaml:"baseline_interval,omitempty"`
}

// Step is one edit or checkpoint.
type Step struct {
	// Action is one of the Action* constants.
	Action string `yaml:"action"`

	// Tab selects the tab to act on. Defaults to the active tab.
	// For close_tab and switch_tab it is the tab to close or activate.
	Tab *int `yaml:"tab,omitempty"`

	// ID is the shape id (remove_shape, update_shape).
	ID string `yaml:"id,omitempty"`

	// Shape is the shape record to add (add_shape). Must contain id and type.
	Shape map[string]any `yaml:"shape,omitempty"`

	// Set assigns attributes (update_shape).
	Set map[string]any `yaml:"set,omitempty"`

	// Unset removes attributes (update_shape).
	Unset []string `yaml:"unset,omitempty"`

	// Viewport is the new viewport (set_viewport).
	Viewport *canvas.Viewport `yaml:"viewport,omitempty"`

	// Title is the tab title (add_tab, rename_tab).
	Title string `yaml:"title,omitempty"`

	// Expect checks the outcome of a snapshot step.
	Expect *SnapshotExpect `yaml:"expect,omitempty"`
}

// SnapshotExpect specifies the expected outcome of a snapshot step.
// Unset fields are not checked.
type SnapshotExpect struct {
	Changed *bool  `yaml:"changed,omitempty"`
	Kind    string `yaml:"kind,omitempty"`
	Summary string `yaml:"summary,omitempty"`
	Pruned  *int   `yaml:"pruned,omitempty"`
}

// Step action constants.
const (
	ActionAddShape    = "add_shape"
	ActionRemoveShape = "remove_shape"
	ActionUpdateShape = "update_shape"
	ActionSetViewport = "set_viewport"
	ActionAddTab      = "add_tab"
	ActionCloseTab    = "close_tab"
	ActionRenameTab   = "rename_tab"
	ActionSwitchTab   = "switch_tab"
	ActionSnapshot    = "snapshot"
)

// Assertion validates the final history.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Index selects a snapshot. Negative values count from the newest.
	Index int `yaml:"index,omitempty"`

	// Tab selects a tab (reconstruct_shapes).
	Tab int `yaml:"tab,omitempty"`

	// Count is the expected snapshot count (snapshot_count).
	Count int `yaml:"count,omitempty"`

	// Kind is the expected snapshot kind (snapshot_kind).
	Kind string `yaml:"kind,omitempty"`

	// Text is the expected summary substring (summary_contains).
	Text string `yaml:"text,omitempty"`

	// Shapes are the expected shape ids in order (reconstruct_shapes).
	Shapes []string `yaml:"shapes,omitempty"`
}

// Assertion type constants.
const (
	AssertSnapshotCount     = "snapshot_count"
	AssertSnapshotKind      = "snapshot_kind"
	AssertSummaryContains   = "summary_contains"
	AssertReconstructShapes = "reconstruct_shapes"
	AssertRoundTrip         = "round_trip"
	AssertInvariants        = "invariants"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	normalizeScenario(&scenario)
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Policy.MaxSnapshots < 0 || s.Policy.BaselineInterval < 0 {
		return fmt.Errorf("policy values must be non-negative")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s *Step) error {
	switch s.Action {
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	case ActionAddShape:
		if s.Shape == nil {
			return fmt.Errorf("steps[%d]: shape is required for add_shape", index)
		}
		if id, _ := s.Shape["id"].(string); id == "" {
			return fmt.Errorf("steps[%d]: shape.id is required", index)
		}
		if typ, _ := s.Shape["type"].(string); typ == "" {
			return fmt.Errorf("steps[%d]: shape.type is required", index)
		}
	case ActionRemoveShape:
		if s.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for remove_shape", index)
		}
	case ActionUpdateShape:
		if s.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for update_shape", index)
		}
		if len(s.Set) == 0 && len(s.Unset) == 0 {
			return fmt.Errorf("steps[%d]: set or unset is required for update_shape", index)
		}
		for _, k := range []string{"id", "type"} {
			if _, ok := s.Set[k]; ok {
				return fmt.Errorf("steps[%d]: %s cannot be changed by update_shape", index, k)
			}
		}
	case ActionSetViewport:
		if s.Viewport == nil {
			return fmt.Errorf("steps[%d]: viewport is required for set_viewport", index)
		}
	case ActionCloseTab, ActionSwitchTab:
		if s.Tab == nil {
			return fmt.Errorf("steps[%d]: tab is required for %s", index, s.Action)
		}
	case ActionAddTab, ActionRenameTab, ActionSnapshot:
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, s.Action)
	}

	if s.Expect != nil && s.Action != ActionSnapshot {
		return fmt.Errorf("steps[%d]: expect is only valid on snapshot steps", index)
	}
	if s.Expect != nil && s.Expect.Kind != "" && s.Expect.Kind != "baseline" && s.Expect.Kind != "delta" {
		return fmt.Errorf("steps[%d].expect: kind must be baseline or delta", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertSnapshotCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for snapshot_count", index)
		}
	case AssertSnapshotKind:
		if a.Kind != "baseline" && a.Kind != "delta" {
			return fmt.Errorf("assertions[%d]: kind must be baseline or delta", index)
		}
	case AssertSummaryContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for summary_contains", index)
		}
	case AssertReconstructShapes:
		if a.Tab < 0 {
			return fmt.Errorf("assertions[%d]: tab must be non-negative", index)
		}
	case AssertRoundTrip, AssertInvariants:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// normalizeScenario converts YAML integers in shape attributes to float64,
// matching how the same values decode from editor JSON.
func normalizeScenario(s *Scenario) {
	for i := range s.Steps {
		step := &s.Steps[i]
		if step.Shape != nil {
			step.Shape = normalizeValue(step.Shape).(map[string]any)
		}
		if step.Set != nil {
			step.Set = normalizeValue(step.Set).(map[string]any)
		}
	}
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
