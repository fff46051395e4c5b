package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer caps the number of paths one enumeration may emit.
//
// The tree of discrete choices can grow exponentially with the number of
// choice points. The quota turns an unexpectedly large tree into a
// QUOTA_EXCEEDED error instead of an enumeration that never finishes.
type QuotaEnforcer struct {
	maxPaths int // 0 means unlimited
	current  int
}

// NewQuotaEnforcer creates an enforcer allowing maxPaths paths. Zero or a
// negative value disables the limit.
func NewQuotaEnforcer(maxPaths int) *QuotaEnforcer {
	return &QuotaEnforcer{maxPaths: max(maxPaths, 0)}
}

// Check counts one more path and fails once the limit is passed.
func (q *QuotaEnforcer) Check() error {
	q.current++
	if q.maxPaths > 0 && q.current > q.maxPaths {
		return &PathsExceededError{Paths: q.current, Limit: q.maxPaths}
	}
	return nil
}

// Current returns the number of paths counted so far.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxPaths returns the limit, 0 if unlimited.
func (q *QuotaEnforcer) MaxPaths() int {
	return q.maxPaths
}

// PathsExceededError is returned when an enumeration would emit more
// paths than allowed. The paths already emitted stay valid; the sequence
// ends with this error.
type PathsExceededError struct {
	Paths int
	Limit int
}

func (e *PathsExceededError) Error() string {
	return fmt.Sprintf("%s: enumeration reached path %d, limit %d", ErrCodeQuotaExceeded, e.Paths, e.Limit)
}

// IsPathsExceededError returns true if the error is a PathsExceededError.
func IsPathsExceededError(err error) bool {
	var pe *PathsExceededError
	return errors.As(err, &pe)
}
