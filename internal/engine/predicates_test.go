package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/discrete/internal/dist"
	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/testutil"
	"github.com/roach88/discrete/internal/trace"
)

func TestIsDiscreteSite(t *testing.T) {
	coin := testutil.Must(dist.NewBernoulli(0.5))
	normal := testutil.Must(dist.NewNormal(0, 1))
	poisson := testutil.Must(dist.NewPoisson(3))

	tests := []struct {
		name string
		site trace.Site
		want bool
	}{
		{"enumerable sample", trace.Site{Type: trace.SiteSample, Fn: coin}, true},
		{"explicit sequential", trace.Site{Type: trace.SiteSample, Fn: coin, Infer: trace.InferOptions{Enumerate: trace.EnumerateSequential}}, true},
		{"observed", trace.Site{Type: trace.SiteSample, Fn: coin, IsObserved: true}, false},
		{"opted out", trace.Site{Type: trace.SiteSample, Fn: coin, Infer: trace.InferOptions{Enumerate: trace.EnumerateNone}}, false},
		{"parallel is reserved", trace.Site{Type: trace.SiteSample, Fn: coin, Infer: trace.InferOptions{Enumerate: trace.EnumerateParallel}}, false},
		{"continuous", trace.Site{Type: trace.SiteSample, Fn: normal}, false},
		{"infinite support", trace.Site{Type: trace.SiteSample, Fn: poisson}, false},
		{"deterministic", trace.Site{Type: trace.SiteDeterministic, Fn: coin}, false},
		{"no distribution", trace.Site{Type: trace.SiteSample}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.site.Name = "s"
			assert.Equal(t, tt.want, IsDiscreteSite(&tt.site))
		})
	}
}

func TestEscapeDiscreteIsPathAware(t *testing.T) {
	coin := testutil.Must(dist.NewBernoulli(0.5))
	site := trace.Site{Type: trace.SiteSample, Name: "a", Fn: coin}

	empty := trace.New(trace.GraphFlat)
	assert.True(t, EscapeDiscrete(empty, &site))

	fixed, err := empty.Extend(trace.Site{Type: trace.SiteSample, Name: "a", Fn: coin, Value: ir.IRInt(1)})
	require.NoError(t, err)
	assert.False(t, EscapeDiscrete(fixed, &site), "a site the prefix fixes never re-escapes")
}

func TestIsObservedSite(t *testing.T) {
	assert.True(t, IsObservedSite(&trace.Site{Type: trace.SiteSample, IsObserved: true}))
	assert.False(t, IsObservedSite(&trace.Site{Type: trace.SiteSample}))
}
