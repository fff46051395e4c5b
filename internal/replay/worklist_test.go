package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/trace"
)

func labelled(t *testing.T, names ...string) []*trace.Trace {
	t.Helper()
	out := make([]*trace.Trace, len(names))
	for i, n := range names {
		tr := trace.New(trace.GraphFlat)
		require.NoError(t, tr.Add(trace.Site{Type: trace.SiteDeterministic, Name: n, Value: ir.IRInt(i)}))
		out[i] = tr
	}
	return out
}

func drain(w Worklist) []string {
	var names []string
	for {
		tr, ok := w.Pop()
		if !ok {
			return names
		}
		names = append(names, tr.Names()[0])
	}
}

func TestStackPopsBranchesInSupportOrder(t *testing.T) {
	s := NewStack()
	s.Push(labelled(t, "root")[0])
	s.PushBranches(labelled(t, "a", "b", "c"))
	assert.Equal(t, 4, s.Len())

	assert.Equal(t, []string{"a", "b", "c", "root"}, drain(s))
	assert.Equal(t, 0, s.Len())

	_, ok := s.Pop()
	assert.False(t, ok)
}

func TestQueuePopsInArrivalOrder(t *testing.T) {
	q := NewQueue()
	q.Push(labelled(t, "root")[0])
	q.PushBranches(labelled(t, "a", "b", "c"))

	assert.Equal(t, []string{"root", "a", "b", "c"}, drain(q))
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestPopClearsSlot(t *testing.T) {
	s := NewStack()
	s.PushBranches(labelled(t, "a", "b"))
	_, _ = s.Pop()
	assert.Nil(t, s.items[:2][1], "stack slot cleared")

	q := NewQueue()
	q.PushBranches(labelled(t, "a", "b"))
	backing := q.items
	_, _ = q.Pop()
	assert.Nil(t, backing[0], "queue slot cleared")
}
