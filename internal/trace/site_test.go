package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnumerateMode(t *testing.T) {
	tests := []struct {
		in   string
		want EnumerateMode
	}{
		{"", EnumerateUnset},
		{"sequential", EnumerateSequential},
		{"none", EnumerateNone},
		{"parallel", EnumerateParallel},
	}
	for _, tt := range tests {
		got, err := ParseEnumerateMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.in, got.String())
	}

	_, err := ParseEnumerateMode("sequentail")
	assert.Error(t, err)
}

func TestEnumerateModeResolve(t *testing.T) {
	assert.Equal(t, EnumerateSequential, EnumerateUnset.Resolve())
	assert.Equal(t, EnumerateNone, EnumerateNone.Resolve())
	assert.Equal(t, "EnumerateMode(9)", EnumerateMode(9).String())
}

func TestInferOptionsGet(t *testing.T) {
	var unset InferOptions
	assert.Equal(t, "sequential", unset.Get(InferOptionEnumerate, "sequential"))

	none := InferOptions{Enumerate: EnumerateNone}
	assert.Equal(t, "none", none.Get(InferOptionEnumerate, "sequential"))
	assert.Equal(t, "x", none.Get("other", "x"))
}
