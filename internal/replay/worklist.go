package replay

import "github.com/roach88/discrete/internal/trace"

// Worklist holds the prefixes still to be replayed.
//
// PushBranches adds the prefixes created by one escape, given in support
// order. Implementations push them so that Pop returns them in that order
// relative to each other.
type Worklist interface {
	Push(t *trace.Trace)
	PushBranches(ts []*trace.Trace)
	Pop() (*trace.Trace, bool)
	Len() int
}

// Stack is a LIFO worklist: depth-first expansion.
type Stack struct {
	items []*trace.Trace
}

// NewStack creates an empty LIFO worklist.
func NewStack() *Stack {
	return &Stack{items: make([]*trace.Trace, 0, 16)}
}

func (s *Stack) Push(t *trace.Trace) {
	s.items = append(s.items, t)
}

// PushBranches pushes ts in reverse so the first branch is popped first.
func (s *Stack) PushBranches(ts []*trace.Trace) {
	for i := len(ts) - 1; i >= 0; i-- {
		s.items = append(s.items, ts[i])
	}
}

func (s *Stack) Pop() (*trace.Trace, bool) {
	n := len(s.items)
	if n == 0 {
		return nil, false
	}
	t := s.items[n-1]
	// Clear the slot so the popped prefix can be collected once consumed.
	s.items[n-1] = nil
	s.items = s.items[:n-1]
	return t, true
}

func (s *Stack) Len() int { return len(s.items) }

// Queue is a FIFO worklist: breadth-first expansion.
type Queue struct {
	items []*trace.Trace
}

// NewQueue creates an empty FIFO worklist.
func NewQueue() *Queue {
	return &Queue{items: make([]*trace.Trace, 0, 16)}
}

func (q *Queue) Push(t *trace.Trace) {
	q.items = append(q.items, t)
}

func (q *Queue) PushBranches(ts []*trace.Trace) {
	q.items = append(q.items, ts...)
}

func (q *Queue) Pop() (*trace.Trace, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	t := q.items[0]
	q.items[0] = nil
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return t, true
}

func (q *Queue) Len() int { return len(q.items) }
