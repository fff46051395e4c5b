package harness

import (
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/discrete/internal/ir"
)

// GoldenPrecision is the number of decimals weights are snapshotted with.
const GoldenPrecision = 6

// Snapshot captures the emitted paths of a scenario execution.
// Path IDs are left out: they are content hashes and are covered by the
// duplicate-path guard, not by review.
type Snapshot struct {
	ScenarioName string       `json:"scenario_name"`
	ModelName    string       `json:"model_name,omitempty"`
	ErrorCode    string       `json:"error_code,omitempty"`
	Paths        []PathRecord `json:"paths"`
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization. Canonical JSON forbids floats, so weights are rendered as
// fixed-precision decimal strings.
func (s *Snapshot) toCanonicalMap() map[string]any {
	paths := make([]any, len(s.Paths))
	for i, p := range s.Paths {
		weights := make([]any, len(p.Weight))
		for j, w := range p.Weight {
			weights[j] = strconv.FormatFloat(w, 'f', GoldenPrecision, 64)
		}
		assignment := p.Assignment
		if assignment == nil {
			assignment = ir.IRObject{}
		}
		paths[i] = map[string]any{
			"seq":        p.Seq,
			"assignment": assignment,
			"weight":     weights,
		}
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"paths":         paths,
	}
	if s.ModelName != "" {
		result["model_name"] = s.ModelName
	}
	if s.ErrorCode != "" {
		result["error_code"] = s.ErrorCode
	}
	return result
}

// RunWithGolden executes a scenario and compares its paths against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if scenario execution fails. Test failure (via goldie)
// occurs if the paths don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot := Snapshot{
		ScenarioName: scenario.Name,
		ModelName:    scenario.ModelName,
		ErrorCode:    result.ErrorCode,
		Paths:        result.Paths,
	}
	if err := assertSnapshot(t, scenario.Name, &snapshot); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{
		ScenarioName: scenarioName,
		ErrorCode:    result.ErrorCode,
		Paths:        result.Paths,
	}
	return assertSnapshot(t, scenarioName, &snapshot)
}

// SnapshotJSON returns the canonical JSON the golden file holds for s.
func SnapshotJSON(s *Snapshot) ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

func assertSnapshot(t *testing.T, name string, s *Snapshot) error {
	t.Helper()

	data, err := SnapshotJSON(s)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
