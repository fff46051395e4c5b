package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDuplicateGuard(t *testing.T) {
	g := NewDuplicateGuard()

	_, ok := g.Seen("p1")
	assert.False(t, ok)

	g.Record("p1", 3)
	seq, ok := g.Seen("p1")
	assert.True(t, ok)
	assert.Equal(t, int64(3), seq)
	assert.Equal(t, 1, g.Size())

	_, ok = g.Seen("p2")
	assert.False(t, ok)
}
