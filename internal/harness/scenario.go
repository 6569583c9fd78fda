package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultSessionID is used when a scenario does not name one.
const DefaultSessionID = "scenario-session"

// Scenario defines a scripted sorting session.
type Scenario struct {
	// Name uniquely identifies this scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Items is the input list, in input order.
	Items []string `yaml:"items"`

	// Steps are the scripted human actions, applied in order.
	Steps []Step `yaml:"steps"`

	// Preference, if set, finishes the sort after Steps by always choosing
	// the item listed earlier. Must be a permutation of Items.
	Preference []string `yaml:"preference,omitempty"`

	// Assertions validate the final trace and order.
	Assertions []Assertion `yaml:"assertions"`

	// SessionID fixes the session id. Defaults to DefaultSessionID.
	SessionID string `yaml:"session_id,omitempty"`
}

// Step is one scripted action.
type Step struct {
	// Action is one of left, right, choose, undo, restore.
	Action string `yaml:"action"`

	// Winner is the item to submit (choose only).
	Winner string `yaml:"winner,omitempty"`

	// ExpectPair, if set, must equal the pair offered before the step.
	ExpectPair []string `yaml:"expect_pair,omitempty"`

	// ExpectError, if set, is the engine error code the step must fail with.
	// A step without it must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "result": final order equals Items
	// - "offered": Pair was offered at some step
	// - "not_offered": Pair was never offered
	// - "decision_count": final decision count equals Count
	Type string `yaml:"type"`

	// Items is the expected final order (used by result).
	Items []string `yaml:"items,omitempty"`

	// Pair is a comparison as [left, right] (used by offered, not_offered).
	Pair []string `yaml:"pair,omitempty"`

	// Count is the expected number of decisions (used by decision_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertResult        = "result"
	AssertOffered       = "offered"
	AssertNotOffered    = "not_offered"
	AssertDecisionCount = "decision_count"
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

// ParseScenario parses and validates scenario YAML.
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
	if scenario.SessionID == "" {
		scenario.SessionID = DefaultSessionID
	}
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
	if s.Items == nil {
		return fmt.Errorf("items is required (use [] for an empty sort)")
	}
	if len(s.Steps) == 0 && s.Preference == nil {
		return fmt.Errorf("steps or preference is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Preference != nil {
		sorted := slices.Sorted(slices.Values(s.Preference))
		want := slices.Sorted(slices.Values(s.Items))
		if !slices.Equal(sorted, want) {
			return fmt.Errorf("preference must be a permutation of items")
		}
	}

	for i, step := range s.Steps {
		switch step.Action {
		case ActionLeft, ActionRight, ActionUndo, ActionRestore:
			if step.Winner != "" {
				return fmt.Errorf("steps[%d]: winner is only allowed with choose", i)
			}
		case ActionChoose:
			if step.Winner == "" {
				return fmt.Errorf("steps[%d]: winner is required for choose", i)
			}
		case "":
			return fmt.Errorf("steps[%d]: action is required", i)
		default:
			return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
		}
		if step.ExpectPair != nil && len(step.ExpectPair) != 2 {
			return fmt.Errorf("steps[%d]: expect_pair must have two items", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertResult:
		if a.Items == nil {
			return fmt.Errorf("assertions[%d]: items is required for result", index)
		}
	case AssertOffered, AssertNotOffered:
		if len(a.Pair) != 2 {
			return fmt.Errorf("assertions[%d]: pair must have two items for %s", index, a.Type)
		}
	case AssertDecisionCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for decision_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
