package model

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/discrete/internal/engine"
	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/trace"
)

func collect(t *testing.T, p *Program) []engine.Path {
	t.Helper()
	e := engine.New(
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithModelHash(p.Hash),
	)
	paths, err := engine.Collect(e.IterDiscreteTraces(context.Background(), trace.GraphFlat, p.Model()))
	require.NoError(t, err)
	return paths
}

func TestBuildConditionalModel(t *testing.T) {
	spec := ir.ModelSpec{
		Name: "tree",
		Sites: []ir.SiteSpec{
			{Name: "first", Dist: &ir.DistSpec{Kind: ir.KindCategorical, Values: ir.IRArray{ir.IRString("A"), ir.IRString("B")}, Probs: []float64{0.3, 0.7}}},
			{Name: "second", When: &ir.Condition{Site: "first", Equals: ir.IRString("A")},
				Dist: &ir.DistSpec{Kind: ir.KindCategorical, Values: ir.IRArray{ir.IRString("X"), ir.IRString("Y")}, Probs: []float64{0.5, 0.5}}},
		},
	}
	p, err := Build(spec)
	require.NoError(t, err)
	assert.Len(t, p.Hash, 64)

	paths := collect(t, p)
	require.Len(t, paths, 3)
	ret, ok := paths[0].Trace.Return().(ir.IRObject)
	require.True(t, ok)
	assert.Equal(t, ir.IRObject{"first": ir.IRString("A"), "second": ir.IRString("X")}, ret)
	assert.Equal(t, ir.MustPathID(p.Hash, ret), paths[0].ID)
}

func TestBuildTableWithObservation(t *testing.T) {
	spec := ir.ModelSpec{
		Name: "sprinkler",
		Sites: []ir.SiteSpec{
			{Name: "rain", Dist: &ir.DistSpec{Kind: ir.KindBernoulli, P: 0.2}},
			{Name: "wet", Given: []string{"rain"}, Observed: ir.IRInt(1), Table: map[string]ir.DistSpec{
				"1": {Kind: ir.KindBernoulli, P: 0.9},
				"0": {Kind: ir.KindBernoulli, P: 0.1},
			}},
		},
	}
	p, err := Build(spec)
	require.NoError(t, err)

	paths := collect(t, p)
	require.Len(t, paths, 2)
	post, err := engine.Posterior(paths, "rain")
	require.NoError(t, err)
	assert.InDelta(t, 0.18/0.26, post.Prob(ir.IRInt(1)), 1e-12)
}

func TestTableSkippedWhenGivenUnreached(t *testing.T) {
	spec := ir.ModelSpec{
		Name: "gated",
		Sites: []ir.SiteSpec{
			{Name: "a", Dist: &ir.DistSpec{Kind: ir.KindBernoulli, P: 0.5}},
			{Name: "b", When: &ir.Condition{Site: "a", Equals: ir.IRInt(1)}, Dist: &ir.DistSpec{Kind: ir.KindBernoulli, P: 0.5}},
			{Name: "c", Given: []string{"b"}, Table: map[string]ir.DistSpec{
				"0": {Kind: ir.KindBernoulli, P: 0.5},
				"1": {Kind: ir.KindBernoulli, P: 0.5},
			}},
		},
	}
	p, err := Build(spec)
	require.NoError(t, err)

	paths := collect(t, p)
	assert.Len(t, paths, 5, "a=0 stops; a=1 branches over b and c")
}

func TestMissingTableRowFailsAtRuntime(t *testing.T) {
	spec := ir.ModelSpec{
		Name: "holes",
		Sites: []ir.SiteSpec{
			{Name: "a", Dist: &ir.DistSpec{Kind: ir.KindUniformInt, Low: 0, High: 2}},
			{Name: "b", Given: []string{"a"}, Table: map[string]ir.DistSpec{
				"0": {Kind: ir.KindBernoulli, P: 0.5},
			}},
		},
	}
	p, err := Build(spec)
	require.NoError(t, err)

	_, err = engine.Collect(engine.New(engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).
		IterDiscreteTraces(context.Background(), trace.GraphFlat, p.Model()))
	assert.ErrorContains(t, err, "no table row for a=1")
}

func TestEnumerateNoneIsSampled(t *testing.T) {
	spec := ir.ModelSpec{
		Name: "opt_out",
		Sites: []ir.SiteSpec{
			{Name: "k", Enumerate: "none", Dist: &ir.DistSpec{Kind: ir.KindUniformInt, Low: 1, High: 3}},
		},
	}
	p, err := Build(spec)
	require.NoError(t, err)
	assert.Len(t, collect(t, p), 1)
}

func TestBuildRejectsBadSites(t *testing.T) {
	tests := []struct {
		name string
		site ir.SiteSpec
	}{
		{"no distribution", ir.SiteSpec{Name: "x"}},
		{"bad mode", ir.SiteSpec{Name: "x", Enumerate: "often", Dist: &ir.DistSpec{Kind: ir.KindBernoulli, P: 0.5}}},
		{"bad parameter", ir.SiteSpec{Name: "x", Dist: &ir.DistSpec{Kind: ir.KindBernoulli, P: 2}}},
		{"bad row", ir.SiteSpec{Name: "x", Table: map[string]ir.DistSpec{"0": {Kind: "nope"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(ir.ModelSpec{Name: "m", Sites: []ir.SiteSpec{tt.site}})
			assert.Error(t, err)
		})
	}
}

func TestTableKey(t *testing.T) {
	assert.Equal(t, "1,A,true", TableKey([]ir.IRValue{ir.IRInt(1), ir.IRString("A"), ir.IRBool(true)}))
	assert.Equal(t, "", TableKey(nil))
}
