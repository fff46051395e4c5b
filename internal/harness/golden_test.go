package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/discrete/internal/ir"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			// Regenerate with:
			//   go test ./internal/harness -run TestRunWithGolden_Scenarios -update
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "expectations failed: %v", result.Errors)
		})
	}
}

func TestSnapshotJSON_Canonical(t *testing.T) {
	s := &Snapshot{
		ScenarioName: "demo",
		Paths: []PathRecord{
			{Seq: 1, ID: "ignored", Assignment: ir.IRObject{"b": ir.IRInt(1), "a": ir.IRString("x")}, Weight: []float64{0.25}},
			{Seq: 2, Weight: []float64{0.5, 1.0 / 3}},
		},
	}

	data, err := SnapshotJSON(s)
	require.NoError(t, err)
	assert.Equal(t,
		`{"paths":[{"assignment":{"a":"x","b":1},"seq":1,"weight":["0.250000"]},`+
			`{"assignment":{},"seq":2,"weight":["0.500000","0.333333"]}],"scenario_name":"demo"}`,
		string(data))
}

func TestSnapshotJSON_ErrorCode(t *testing.T) {
	s := &Snapshot{ScenarioName: "quota", ModelName: "m", ErrorCode: "QUOTA_EXCEEDED"}

	data, err := SnapshotJSON(s)
	require.NoError(t, err)
	assert.Equal(t, `{"error_code":"QUOTA_EXCEEDED","model_name":"m","paths":[],"scenario_name":"quota"}`, string(data))
}

func TestAssertGolden_ExistingResult(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "tree_lifo.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, "tree_lifo", result))
}
