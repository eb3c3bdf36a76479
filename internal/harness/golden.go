package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/querify/internal/ir"
)

// Snapshot captures every rendering of a scenario.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string   `json:"scenario_name"`
	BuildCode    string   `json:"build_code,omitempty"`
	Outputs      []Output `json:"outputs"`
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
func (s *Snapshot) toCanonicalMap() map[string]any {
	outputs := make([]any, len(s.Outputs))
	for i, o := range s.Outputs {
		m := map[string]any{"target": string(o.Target)}
		if o.Code != "" {
			m["code"] = o.Code
		} else {
			m["text"] = o.Text
		}
		outputs[i] = m
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"outputs":       outputs,
	}
	if s.BuildCode != "" {
		result["build_code"] = s.BuildCode
	}
	return result
}

// MarshalSnapshot returns the canonical JSON golden file content for a
// scenario result.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName: scenarioName,
		BuildCode:    result.BuildCode,
		Outputs:      result.Outputs,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its renderings against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the renderings don't match.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's renderings against a golden file.
// Use it when the scenario has already been run.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
