package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/discrete/internal/dist"
	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/num"
	"github.com/roach88/discrete/internal/trace"
)

func TestCreateRunAssignsSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r1 := createTestRun(t, s, "run-b")
	r2 := createTestRun(t, s, "run-a")
	assert.Equal(t, int64(1), r1.Seq)
	assert.Equal(t, int64(2), r2.Seq)
	assert.Equal(t, RunRunning, r1.Status)
	assert.Equal(t, ir.EngineVersion, r1.EngineVersion)
	assert.Equal(t, ir.IRVersion, r1.IRVersion)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID, "runs list in seq order, not id order")
	assert.Equal(t, "run-a", runs[1].ID)

	_, err = s.CreateRun(ctx, Run{ID: "run-a", ModelName: "m", ModelHash: "h", GraphType: "flat", Order: "lifo"})
	assert.Error(t, err, "run IDs are unique")
}

func TestListRunsEmpty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestReadRunRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.CreateRun(ctx, Run{
		ID:        "run-1",
		ModelName: "weather",
		ModelHash: "abc",
		GraphType: "dense",
		Order:     "fifo",
		Seed:      math.MaxUint64,
		MaxPaths:  10,
	})
	require.NoError(t, err)

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "weather", run.ModelName)
	assert.Equal(t, "abc", run.ModelHash)
	assert.Equal(t, "dense", run.GraphType)
	assert.Equal(t, "fifo", run.Order)
	assert.Equal(t, uint64(math.MaxUint64), run.Seed, "seeds above MaxInt64 survive")
	assert.Equal(t, 10, run.MaxPaths)

	_, err = s.ReadRun(ctx, "nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "ok")
	createTestRun(t, s, "bad")

	require.NoError(t, s.FinishRun(ctx, "ok", 4, nil))
	require.NoError(t, s.FinishRun(ctx, "bad", 1, errors.New("boom")))

	ok, err := s.ReadRun(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, ok.Status)
	assert.Equal(t, int64(4), ok.PathCount)
	assert.Empty(t, ok.Error)

	bad, err := s.ReadRun(ctx, "bad")
	require.NoError(t, err)
	assert.Equal(t, RunFailed, bad.Status)
	assert.Equal(t, "boom", bad.Error)

	err = s.FinishRun(ctx, "missing", 0, nil)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestWritePathRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	inserted, err := s.WritePath(ctx, createTestPath("run-1", "p1", 1, 1, 0.3))
	require.NoError(t, err)
	assert.True(t, inserted)

	paths, err := s.ReadPaths(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, paths, 1)

	p := paths[0]
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, int64(1), p.Seq)
	require.NotNil(t, p.Weight)
	assert.InDelta(t, 0.3, *p.Weight, 1e-15)
	assert.Nil(t, p.BatchWeight)
	assert.Equal(t, ir.IRObject{"a": ir.IRInt(1)}, p.Assignment)
	require.Len(t, p.Sites, 1)
	assert.Equal(t, Site{Seq: 0, Name: "a", Type: "sample", DistKind: ir.KindBernoulli, Value: ir.IRInt(1)}, p.Sites[0])
	assert.Equal(t, []float64{0.3}, p.Weights())
}

func TestWritePathIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	first := createTestPath("run-1", "p1", 1, 1, 0.3)
	inserted, err := s.WritePath(ctx, first)
	require.NoError(t, err)
	require.True(t, inserted)

	second := createTestPath("run-1", "p1", 7, 0, 0.9)
	inserted, err = s.WritePath(ctx, second)
	require.NoError(t, err)
	assert.False(t, inserted, "second write of the same (run_id, id) is a no-op")

	paths, err := s.ReadPaths(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, int64(1), paths[0].Seq, "first copy wins")
	assert.Len(t, paths[0].Sites, 1)

	// the same path ID in another run is a different row
	createTestRun(t, s, "run-2")
	inserted, err = s.WritePath(ctx, createTestPath("run-2", "p1", 1, 1, 0.3))
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestWritePathRequiresExactlyOneWeight(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	p := createTestPath("run-1", "p1", 1, 1, 0.3)
	p.BatchWeight = []float64{0.1}
	_, err := s.WritePath(ctx, p)
	assert.Error(t, err)

	p.Weight, p.BatchWeight = nil, nil
	_, err = s.WritePath(ctx, p)
	assert.Error(t, err)
}

func TestWritePathUnknownRun(t *testing.T) {
	s := createTestStore(t)

	_, err := s.WritePath(context.Background(), createTestPath("missing", "p1", 1, 1, 0.3))
	assert.Error(t, err, "foreign key on run_id")
}

func TestWritePathBatchWeight(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	p := createTestPath("run-1", "p1", 1, 1, 0)
	p.Weight = nil
	p.BatchWeight = []float64{0.25, 1, math.Inf(1)}
	_, err := s.WritePath(ctx, p)
	require.NoError(t, err)

	var weightIsNull bool
	require.NoError(t, s.db.QueryRow(`SELECT weight IS NULL FROM paths WHERE id = 'p1'`).Scan(&weightIsNull))
	assert.True(t, weightIsNull)

	paths, err := s.ReadPaths(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Nil(t, paths[0].Weight)
	assert.Equal(t, []float64{0.25, 1, math.Inf(1)}, paths[0].BatchWeight)
}

func TestReadPathsDeterministicOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	for _, p := range []Path{
		createTestPath("run-1", "c", 2, 0, 0.1),
		createTestPath("run-1", "b", 1, 1, 0.2),
		createTestPath("run-1", "a", 2, 2, 0.3),
	} {
		_, err := s.WritePath(ctx, p)
		require.NoError(t, err)
	}

	paths, err := s.ReadPaths(ctx, "run-1")
	require.NoError(t, err)
	ids := make([]string, len(paths))
	for i, p := range paths {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids, "seq first, then id")

	empty, err := s.ReadPaths(ctx, "other")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestNewPathFromTrace(t *testing.T) {
	coin, err := dist.NewBernoulli(0.5)
	require.NoError(t, err)
	noise, err := dist.NewNormal(0, 1)
	require.NoError(t, err)

	tr := trace.New(trace.GraphFlat)
	require.NoError(t, tr.Add(trace.Site{Type: trace.SiteSample, Name: "noise", Fn: noise, Value: ir.IRFloat(0.25)}))
	require.NoError(t, tr.Add(trace.Site{Type: trace.SiteSample, Name: "c", Fn: coin, Value: ir.IRInt(1)}))
	require.NoError(t, tr.Add(trace.Site{Type: trace.SiteDeterministic, Name: "d", Value: ir.IRString("x")}))

	p, err := NewPath("run-1", "p1", 3, num.Scalar(0.5), tr, ir.IRObject{"c": ir.IRInt(1)})
	require.NoError(t, err)
	require.NotNil(t, p.Weight)
	assert.Equal(t, 0.5, *p.Weight)
	require.Len(t, p.Sites, 3)
	assert.Equal(t, ir.KindNormal, p.Sites[0].DistKind)
	assert.Equal(t, ir.IRFloat(0.25), p.Sites[0].Value)
	assert.Equal(t, "", p.Sites[2].DistKind)
	assert.Equal(t, "deterministic", p.Sites[2].Type)

	batched, err := NewPath("run-1", "p1", 3, num.NewBatch(0.1, 0.2), tr, nil)
	require.NoError(t, err)
	assert.Nil(t, batched.Weight)
	assert.Equal(t, []float64{0.1, 0.2}, batched.BatchWeight)

	// continuous site values round trip through the store
	s := createTestStore(t)
	createTestRun(t, s, "run-1")
	_, err = s.WritePath(context.Background(), p)
	require.NoError(t, err)
	paths, err := s.ReadPaths(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, p.Sites, paths[0].Sites)
}
