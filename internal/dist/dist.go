// Package dist defines the distribution abstraction sampling statements are
// drawn from.
//
// Every Distribution declares a Capability. Only distributions that declare
// EnumerableDiscrete, and implement Enumerable, expose their finite support;
// AsEnumerable is the single place that capability is tested.
//
// Support values are float-free IR values. LogProb of a value outside the
// support is -Inf, not an error.
package dist

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/num"
)

// Capability classifies a distribution for enumeration purposes.
type Capability uint8

const (
	// NonEnumerable distributions are sampled, never expanded.
	NonEnumerable Capability = iota
	// EnumerableDiscrete distributions have a finite support that can be
	// expanded value by value.
	EnumerableDiscrete
)

// String implements fmt.Stringer.
func (c Capability) String() string {
	switch c {
	case EnumerableDiscrete:
		return "enumerable"
	default:
		return "non_enumerable"
	}
}

// Distribution is a probability distribution over IR values.
type Distribution interface {
	// Kind names the family, e.g. "categorical".
	Kind() string
	// Capability reports whether the distribution can be enumerated.
	Capability() Capability
	// LogProb returns the log-density of v: a num.Scalar, or a *num.Batch
	// for vectorized distributions.
	LogProb(v ir.IRValue) (num.Value, error)
	// Sample draws one value.
	Sample(r *rand.Rand) (ir.IRValue, error)
}

// Enumerable is a distribution with a finite support.
type Enumerable interface {
	Distribution
	// Support returns every value with non-zero probability, in a stable
	// order. The returned slice is owned by the caller.
	Support() []ir.IRValue
	// SupportSize returns the number of support values without building
	// them. ok is false when the count does not fit in an int64.
	SupportSize() (n int64, ok bool)
}

// AsEnumerable returns d as an Enumerable when it declares the
// EnumerableDiscrete capability. A nil distribution is not enumerable.
func AsEnumerable(d Distribution) (Enumerable, bool) {
	if d == nil || d.Capability() != EnumerableDiscrete {
		return nil, false
	}
	e, ok := d.(Enumerable)
	return e, ok
}

// IsEnumerable reports whether d can be enumerated.
func IsEnumerable(d Distribution) bool {
	_, ok := AsEnumerable(d)
	return ok
}

// Parameter errors returned by constructors.
var (
	ErrEmptySupport   = errors.New("empty support")
	ErrBadParameter   = errors.New("invalid distribution parameter")
	ErrFloatSupport   = errors.New("support values must be float-free")
	ErrDuplicateValue = errors.New("duplicate support value")
	ErrUnknownKind    = errors.New("unknown distribution kind")
)

// FromSpec builds a distribution from its compiled description.
func FromSpec(spec ir.DistSpec) (Distribution, error) {
	switch spec.Kind {
	case ir.KindCategorical:
		return NewCategorical(spec.Values, spec.Probs)
	case ir.KindCategoricalBatch:
		return NewBatchCategorical(spec.Values, spec.BatchProbs)
	case ir.KindBernoulli:
		return NewBernoulli(spec.P)
	case ir.KindUniformInt:
		return NewUniformInt(spec.Low, spec.High)
	case ir.KindPoisson:
		return NewPoisson(spec.Rate)
	case ir.KindNormal:
		return NewNormal(spec.Loc, spec.Scale)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
}

// validateSupport checks that values are non-empty, float-free and unique.
func validateSupport(values []ir.IRValue) error {
	if len(values) == 0 {
		return ErrEmptySupport
	}
	for i, v := range values {
		if !ir.IsFloatFree(v) {
			return fmt.Errorf("%w: values[%d] = %v", ErrFloatSupport, i, v)
		}
		for j := 0; j < i; j++ {
			if ir.Equal(values[j], v) {
				return fmt.Errorf("%w: %s", ErrDuplicateValue, ir.Format(v))
			}
		}
	}
	return nil
}
