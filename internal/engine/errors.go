package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/discrete/internal/replay"
)

// RuntimeError is an error raised by the enumeration driver itself, as
// opposed to an error returned by the model, which is passed through
// unwrapped.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Site names the sampling statement involved, if any.
	Site string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeDuplicatePath indicates the same discrete assignment was
	// completed twice.
	ErrCodeDuplicatePath RuntimeErrorCode = "DUPLICATE_PATH"

	// ErrCodeQuotaExceeded indicates the enumeration exceeded max paths.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeInvalidWeight indicates a weight could not be computed.
	ErrCodeInvalidWeight RuntimeErrorCode = "INVALID_WEIGHT"

	// ErrCodeInvalidPath indicates a path's discrete assignment holds a
	// value that cannot be content-addressed.
	ErrCodeInvalidPath RuntimeErrorCode = "INVALID_PATH"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Site != "" {
		return fmt.Sprintf("%s: %s (site=%s)", e.Code, e.Message, e.Site)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsDuplicatePathError returns true if the error is a duplicate path error.
func IsDuplicatePathError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeDuplicatePath
	}
	return false
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and PathsExceededError.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	return IsPathsExceededError(err)
}

// ErrorCode classifies err for metrics, spans and scenario expectations.
func ErrorCode(err error) string {
	var re *RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	if IsPathsExceededError(err) {
		return string(ErrCodeQuotaExceeded)
	}
	var se *replay.SupportError
	if errors.As(err, &se) {
		return string(se.Code)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "CANCELED"
	}
	return "MODEL_ERROR"
}
