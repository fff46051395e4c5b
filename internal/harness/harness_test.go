package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/discrete/internal/ir"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_TwoCoins(t *testing.T) {
	result, err := Run(loadTestScenario(t, "two_coins"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "two_coins", result.RunID)
	assert.Empty(t, result.ErrorCode)
	require.Len(t, result.Paths, 4)

	seen := map[string]bool{}
	for i, p := range result.Paths {
		assert.Equal(t, int64(i+1), p.Seq)
		assert.NotEmpty(t, p.ID)
		assert.False(t, seen[p.ID], "duplicate path id %s", p.ID)
		seen[p.ID] = true
		require.Len(t, p.Weight, 1)
	}
	assert.Equal(t, ir.IRObject{"a": ir.IRInt(0), "b": ir.IRInt(0)}, result.Paths[0].Assignment)
	assert.InDelta(t, 0.28, result.Paths[0].Weight[0], 1e-12)

	assert.Equal(t, int64(4), result.Stats.Paths)
	// One replay escapes at a, two escape at b, four complete.
	assert.Equal(t, int64(3), result.Stats.Escapes)
	assert.Equal(t, int64(7), result.Stats.Replays)
}

func TestRun_QuotaExceeded(t *testing.T) {
	result, err := Run(loadTestScenario(t, "two_coins_quota"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "QUOTA_EXCEEDED", result.ErrorCode)
	assert.Len(t, result.Paths, 2)
}

func TestRun_OrderDoesNotChangePathSet(t *testing.T) {
	lifo, err := Run(loadTestScenario(t, "tree_lifo"))
	require.NoError(t, err)
	fifo, err := Run(loadTestScenario(t, "tree_fifo"))
	require.NoError(t, err)

	ids := func(r *Result) []string {
		var out []string
		for _, p := range r.Paths {
			out = append(out, p.ID)
		}
		return out
	}
	assert.ElementsMatch(t, ids(lifo), ids(fifo))
	assert.NotEqual(t, ids(lifo), ids(fifo))
}

func TestRun_FailedExpectations(t *testing.T) {
	s := loadTestScenario(t, "two_coins")
	five := 5
	s.Expect = Expect{Paths: &five}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Expected: 5 paths")
}

func TestRun_ModelNotFound(t *testing.T) {
	s := loadTestScenario(t, "two_coins")
	s.ModelName = "three_coins"

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "three_coins")
}

func TestRun_InvalidModel(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "bad.cue")
	require.NoError(t, os.WriteFile(model, []byte(`package models

model: bad: sites: [{name: "a", dist: bernoulli: p: 1.5}]
`), 0o644))

	_, err := Run(&Scenario{Name: "bad", Description: "bad", Model: model})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load model")
}

func TestRun_SeedIsRecorded(t *testing.T) {
	s := loadTestScenario(t, "two_coins")
	s.Seed = 42

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, first.Paths, second.Paths)
}
