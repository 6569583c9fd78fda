package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/worked_example.yaml")
	require.NoError(t, err)

	assert.Equal(t, "worked_example", s.Name)
	assert.Equal(t, []string{"A", "B", "C", "D"}, s.Items)
	require.Len(t, s.Steps, 6)
	assert.Equal(t, ActionChoose, s.Steps[1].Action)
	assert.Equal(t, "C", s.Steps[1].Winner)
	assert.Equal(t, []string{"C", "D"}, s.Steps[1].ExpectPair)
	assert.Equal(t, DefaultSessionID, s.SessionID)
	require.Len(t, s.Assertions, 4)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	content := `
name: disk
description: "loaded from a temp dir"
items: [a, b]
session_id: fixed
steps:
  - action: right
assertions:
  - type: result
    items: [b, a]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "fixed", s.SessionID)
}

func TestParseScenario_Invalid(t *testing.T) {
	base := "name: n\ndescription: d\nitems: [a, b]\n"
	okAssert := "assertions:\n  - type: decision_count\n    count: 0\n"

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"malformed", "name: [", "failed to parse YAML"},
		{"unknown field", base + "stepz: []\n" + okAssert, "failed to parse YAML"},
		{"missing name", "description: d\nitems: [a]\nsteps:\n  - action: undo\n" + okAssert, "name is required"},
		{"missing description", "name: n\nitems: [a]\nsteps:\n  - action: undo\n" + okAssert, "description is required"},
		{"missing items", "name: n\ndescription: d\nsteps:\n  - action: undo\n" + okAssert, "items is required"},
		{"no steps or preference", base + okAssert, "steps or preference is required"},
		{"no assertions", base + "steps:\n  - action: undo\n", "assertions list is required"},
		{"bad preference", base + "preference: [a, c]\n" + okAssert, "permutation"},
		{"missing action", base + "steps:\n  - winner: a\n" + okAssert, "action is required"},
		{"unknown action", base + "steps:\n  - action: skip\n" + okAssert, `unknown action "skip"`},
		{"choose without winner", base + "steps:\n  - action: choose\n" + okAssert, "winner is required"},
		{"winner on left", base + "steps:\n  - action: left\n    winner: a\n" + okAssert, "only allowed with choose"},
		{"short expect_pair", base + "steps:\n  - action: left\n    expect_pair: [a]\n" + okAssert, "two items"},
		{"assertion without type", base + "steps:\n  - action: undo\nassertions:\n  - count: 1\n", "type is required"},
		{"unknown assertion", base + "steps:\n  - action: undo\nassertions:\n  - type: magic\n", "unknown assertion type"},
		{"result without items", base + "steps:\n  - action: undo\nassertions:\n  - type: result\n", "items is required for result"},
		{"offered without pair", base + "steps:\n  - action: undo\nassertions:\n  - type: offered\n", "pair must have two items"},
		{"negative count", base + "steps:\n  - action: undo\nassertions:\n  - type: decision_count\n    count: -1\n", "non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
