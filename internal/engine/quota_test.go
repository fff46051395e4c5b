package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaEnforcer(t *testing.T) {
	q := NewQuotaEnforcer(2)
	require.NoError(t, q.Check())
	require.NoError(t, q.Check())

	err := q.Check()
	require.Error(t, err)
	assert.True(t, IsPathsExceededError(err))
	assert.True(t, IsQuotaError(err))
	assert.True(t, IsPathsExceededError(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, 3, q.Current())
	assert.Equal(t, 2, q.MaxPaths())
	assert.Contains(t, err.Error(), "QUOTA_EXCEEDED")
}

func TestQuotaEnforcerUnlimited(t *testing.T) {
	for _, limit := range []int{0, -5} {
		q := NewQuotaEnforcer(limit)
		for range 1000 {
			require.NoError(t, q.Check())
		}
		assert.Equal(t, 0, q.MaxPaths())
	}
}
