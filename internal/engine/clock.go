package engine

import "sync/atomic"

// Clock stamps emitted paths with a strictly increasing sequence number.
//
// Sequence numbers are logical: they record emission order within one
// enumeration and never depend on wall-clock time, so a re-invocation with
// the same arguments stamps the same paths with the same numbers.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start. Used when appending to
// a persisted run.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last number handed out, 0 before the first Next.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
