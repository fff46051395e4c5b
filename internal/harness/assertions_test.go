package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/discrete/internal/engine"
	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/logging"
	"github.com/roach88/discrete/internal/num"
	"github.com/roach88/discrete/internal/testutil"
	"github.com/roach88/discrete/internal/trace"
)

func coinPaths(t *testing.T) (*Result, []engine.Path) {
	t.Helper()
	en := engine.New(engine.WithLogger(logging.NewNop()))
	paths, err := engine.Collect(en.IterDiscreteTraces(context.Background(), trace.GraphFlat, testutil.TwoCoins(0.3, 0.6)))
	require.NoError(t, err)

	result := NewResult()
	for _, p := range paths {
		result.Paths = append(result.Paths, PathRecord{
			Seq:        p.Seq,
			ID:         p.ID,
			Assignment: p.Assignment(),
			Weight:     num.Floats(p.Weight),
		})
	}
	return result, paths
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestEvaluateExpectations_AllPass(t *testing.T) {
	result, paths := coinPaths(t)

	errs := EvaluateExpectations(result, Expect{
		Paths:     intPtr(4),
		WeightSum: floatPtr(1),
		Contains: []PathExpectation{
			{Assignment: map[string]any{"a": 1, "b": 1}, Weight: floatPtr(0.18)},
			{Assignment: map[string]any{"a": 0, "b": 0}},
		},
		Marginals: map[string]map[string]float64{
			"a": {"0": 0.7, "1": 0.3},
		},
	}, paths, nil)
	assert.Empty(t, errs)
}

func TestEvaluateExpectations_PathCount(t *testing.T) {
	result, paths := coinPaths(t)

	errs := EvaluateExpectations(result, Expect{Paths: intPtr(3)}, paths, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Assertion failed: paths")
	assert.Contains(t, errs[0], "Expected: 3 paths")
	assert.Contains(t, errs[0], "Actual: 4 paths")
	assert.Contains(t, errs[0], "[3] {a=1 b=0} weight=0.120000")
}

func TestEvaluateExpectations_WeightSum(t *testing.T) {
	result, paths := coinPaths(t)

	errs := EvaluateExpectations(result, Expect{WeightSum: floatPtr(0.9)}, paths, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "weight_sum")

	errs = EvaluateExpectations(result, Expect{WeightSum: floatPtr(0.9), Tolerance: 0.2}, paths, nil)
	assert.Empty(t, errs)
}

func TestEvaluateExpectations_Contains(t *testing.T) {
	result, paths := coinPaths(t)

	errs := EvaluateExpectations(result, Expect{
		Contains: []PathExpectation{
			{Assignment: map[string]any{"a": 2}},
			{Assignment: map[string]any{"a": 1, "b": 0}, Weight: floatPtr(0.5)},
		},
	}, paths, nil)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "not emitted")
	assert.Contains(t, errs[1], "weight 0.120000")
}

func TestEvaluateExpectations_MarginalMismatch(t *testing.T) {
	result, paths := coinPaths(t)

	errs := EvaluateExpectations(result, Expect{
		Marginals: map[string]map[string]float64{
			"b": {"0": 0.5, "1": 0.5},
		},
	}, paths, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "0: want 0.5, got 0.")
	assert.Contains(t, errs[0], "1: want 0.5, got 0.")
}

func TestEvaluateExpectations_UnexpectedError(t *testing.T) {
	result, paths := coinPaths(t)

	errs := EvaluateExpectations(result, Expect{Paths: intPtr(4)}, paths, assert.AnError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "enumeration failed")
}

func TestEvaluateExpectations_ExpectedError(t *testing.T) {
	result, paths := coinPaths(t)

	errs := EvaluateExpectations(result, Expect{Error: "QUOTA_EXCEEDED"}, paths, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "enumeration succeeded with 4 paths")

	result.ErrorCode = "MODEL_ERROR"
	errs = EvaluateExpectations(result, Expect{Error: "QUOTA_EXCEEDED"}, paths, assert.AnError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "MODEL_ERROR")

	result.ErrorCode = "QUOTA_EXCEEDED"
	errs = EvaluateExpectations(result, Expect{Error: "QUOTA_EXCEEDED", Paths: intPtr(4)}, paths, assert.AnError)
	assert.Empty(t, errs)
}

func TestFormatAssignment(t *testing.T) {
	got := formatAssignment(ir.IRObject{"b": ir.IRString("X"), "a": ir.IRInt(1)})
	assert.Equal(t, `{a=1 b="X"}`, got)
}

func TestFormatWeights(t *testing.T) {
	assert.Equal(t, "0.500000", formatWeights([]float64{0.5}))
	assert.Equal(t, "[0.250000 0.750000]", formatWeights([]float64{0.25, 0.75}))
}
