// Package num holds the numeric values log-densities and weights are
// computed in: a plain Scalar, or a Batch of scalars produced by a
// vectorized distribution. A Batch may be marked Tracked, meaning it would
// take part in gradient computation; Exp always detaches before
// exponentiating because a weight is a reported quantity.
package num

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Value is a sealed interface implemented by Scalar and *Batch.
type Value interface {
	numValue()
}

// Scalar is a single float64.
type Scalar float64

func (Scalar) numValue() {}

// Batch is an element-wise vector of float64 values.
type Batch struct {
	Data    []float64
	Tracked bool
}

func (*Batch) numValue() {}

// NewBatch copies data into a new untracked Batch.
func NewBatch(data ...float64) *Batch {
	return &Batch{Data: slices.Clone(data)}
}

// Len returns the number of elements.
func (b *Batch) Len() int {
	return len(b.Data)
}

// Detach returns a copy of b with Tracked cleared.
func (b *Batch) Detach() *Batch {
	return &Batch{Data: slices.Clone(b.Data)}
}

// Zero is the additive identity, the log-density of an empty site set.
func Zero() Value {
	return Scalar(0)
}

// Add sums two values. A Scalar is broadcast over a Batch; two batches
// must have the same length. The result is tracked if either operand is.
func Add(a, b Value) (Value, error) {
	switch x := a.(type) {
	case Scalar:
		switch y := b.(type) {
		case Scalar:
			return x + y, nil
		case *Batch:
			return broadcast(y, float64(x)), nil
		}
	case *Batch:
		switch y := b.(type) {
		case Scalar:
			return broadcast(x, float64(y)), nil
		case *Batch:
			if x.Len() != y.Len() {
				return nil, fmt.Errorf("batch length mismatch: %d vs %d", x.Len(), y.Len())
			}
			out := &Batch{Data: make([]float64, x.Len()), Tracked: x.Tracked || y.Tracked}
			for i := range x.Data {
				out.Data[i] = x.Data[i] + y.Data[i]
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("unsupported operands %T + %T", a, b)
}

func broadcast(b *Batch, s float64) *Batch {
	out := &Batch{Data: make([]float64, b.Len()), Tracked: b.Tracked}
	for i, v := range b.Data {
		out.Data[i] = v + s
	}
	return out
}

// Exp exponentiates v. Scalars use math.Exp directly; batches are detached
// and exponentiated element-wise. Overflow yields +Inf and is not trapped.
func Exp(v Value) Value {
	switch x := v.(type) {
	case Scalar:
		return Scalar(math.Exp(float64(x)))
	case *Batch:
		out := x.Detach()
		for i, f := range out.Data {
			out.Data[i] = math.Exp(f)
		}
		return out
	default:
		return nil
	}
}

// Float returns the scalar value of v. ok is false for batches.
func Float(v Value) (f float64, ok bool) {
	s, ok := v.(Scalar)
	return float64(s), ok
}

// Floats returns v as a slice: one element for a Scalar, the data of a
// Batch otherwise.
func Floats(v Value) []float64 {
	switch x := v.(type) {
	case Scalar:
		return []float64{float64(x)}
	case *Batch:
		return slices.Clone(x.Data)
	default:
		return nil
	}
}

// NonNegative reports whether every element of v is >= 0 (NaN fails).
func NonNegative(v Value) bool {
	for _, f := range Floats(v) {
		if !(f >= 0) {
			return false
		}
	}
	return true
}

// Finite reports whether every element of v is finite.
func Finite(v Value) bool {
	for _, f := range Floats(v) {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Format renders v with the given number of decimals; batches render as
// a bracketed list.
func Format(v Value, prec int) string {
	switch x := v.(type) {
	case Scalar:
		return strconv.FormatFloat(float64(x), 'f', prec, 64)
	case *Batch:
		parts := make([]string, len(x.Data))
		for i, f := range x.Data {
			parts[i] = strconv.FormatFloat(f, 'f', prec, 64)
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return "<nil>"
	}
}
