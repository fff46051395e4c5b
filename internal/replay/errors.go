package replay

import (
	"errors"
	"fmt"
	"math"

	"github.com/roach88/discrete/internal/trace"
)

// EscapeError interrupts a run at an unresolved choice point. Site carries
// the statement without a value.
type EscapeError struct {
	Site trace.Site
}

func (e *EscapeError) Error() string {
	return fmt.Sprintf("escaped at site %q", e.Site.Name)
}

// IsEscape reports whether err is, or wraps, an *EscapeError.
func IsEscape(err error) bool {
	var ee *EscapeError
	return errors.As(err, &ee)
}

// DuplicateSiteError is returned when a model records two statements with
// the same name in one run.
type DuplicateSiteError struct {
	Name string
}

func (e *DuplicateSiteError) Error() string {
	return fmt.Sprintf("site %q recorded twice in one run", e.Name)
}

// SupportErrorCode categorizes support errors.
type SupportErrorCode string

const (
	// ErrCodeEmptySupport: an enumerable distribution produced no values.
	ErrCodeEmptySupport SupportErrorCode = "EMPTY_SUPPORT"
	// ErrCodeSupportTooLarge: the support exceeds the configured maximum.
	ErrCodeSupportTooLarge SupportErrorCode = "SUPPORT_TOO_LARGE"
	// ErrCodeNotEnumerable: the escape predicate selected a site whose
	// distribution cannot be enumerated.
	ErrCodeNotEnumerable SupportErrorCode = "NOT_ENUMERABLE"
)

// SupportError is returned when an escaping site cannot be branched.
type SupportError struct {
	Code  SupportErrorCode
	Site  string
	Size  int64 // math.MaxInt64 when the count overflows
	Limit int
}

func (e *SupportError) Error() string {
	switch e.Code {
	case ErrCodeSupportTooLarge:
		if e.Size == math.MaxInt64 {
			return fmt.Sprintf("%s: site %q has more than %d support values, limit %d", e.Code, e.Site, e.Size, e.Limit)
		}
		return fmt.Sprintf("%s: site %q has %d support values, limit %d", e.Code, e.Site, e.Size, e.Limit)
	case ErrCodeNotEnumerable:
		return fmt.Sprintf("%s: site %q has no enumerable support", e.Code, e.Site)
	default:
		return fmt.Sprintf("%s: site %q has an empty support", e.Code, e.Site)
	}
}

// IsSupportError reports whether err is a *SupportError with the given code.
func IsSupportError(err error, code SupportErrorCode) bool {
	var se *SupportError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
