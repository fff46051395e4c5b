package dist

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/num"
)

// Categorical is a finite distribution over explicit values.
type Categorical struct {
	values []ir.IRValue
	probs  []float64 // normalized
}

// NewCategorical builds a categorical distribution. probs are normalized to
// sum to one; they must be non-negative, finite and not all zero.
func NewCategorical(values []ir.IRValue, probs []float64) (*Categorical, error) {
	if err := validateSupport(values); err != nil {
		return nil, err
	}
	norm, err := normalize(probs, len(values))
	if err != nil {
		return nil, err
	}
	return &Categorical{values: slices.Clone(values), probs: norm}, nil
}

func normalize(probs []float64, n int) ([]float64, error) {
	if len(probs) != n {
		return nil, fmt.Errorf("%w: %d probs for %d values", ErrBadParameter, len(probs), n)
	}
	var total float64
	for i, p := range probs {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%w: probs[%d] = %v", ErrBadParameter, i, p)
		}
		total += p
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: probs sum to zero", ErrBadParameter)
	}
	out := make([]float64, n)
	for i, p := range probs {
		out[i] = p / total
	}
	return out, nil
}

func (c *Categorical) Kind() string           { return ir.KindCategorical }
func (c *Categorical) Capability() Capability { return EnumerableDiscrete }

// Support returns the values in declaration order.
func (c *Categorical) Support() []ir.IRValue { return slices.Clone(c.values) }

func (c *Categorical) SupportSize() (int64, bool) { return int64(len(c.values)), true }

// Probs returns the normalized probabilities.
func (c *Categorical) Probs() []float64 { return slices.Clone(c.probs) }

func (c *Categorical) LogProb(v ir.IRValue) (num.Value, error) {
	if i := indexOf(c.values, v); i >= 0 {
		return num.Scalar(math.Log(c.probs[i])), nil
	}
	return num.Scalar(math.Inf(-1)), nil
}

func (c *Categorical) Sample(r *rand.Rand) (ir.IRValue, error) {
	return c.values[pick(r, c.probs)], nil
}

func indexOf(values []ir.IRValue, v ir.IRValue) int {
	return slices.IndexFunc(values, func(x ir.IRValue) bool { return ir.Equal(x, v) })
}

// pick draws an index from a normalized probability vector.
func pick(r *rand.Rand, probs []float64) int {
	u := r.Float64()
	var acc float64
	for i, p := range probs {
		acc += p
		if u < acc {
			return i
		}
	}
	// rounding left u beyond the last cumulative sum
	for i := len(probs) - 1; i >= 0; i-- {
		if probs[i] > 0 {
			return i
		}
	}
	return 0
}

// Bernoulli is a coin with support {0, 1}.
type Bernoulli struct {
	p float64
}

// NewBernoulli builds a Bernoulli distribution with success probability p.
func NewBernoulli(p float64) (*Bernoulli, error) {
	if p < 0 || p > 1 || math.IsNaN(p) {
		return nil, fmt.Errorf("%w: p = %v", ErrBadParameter, p)
	}
	return &Bernoulli{p: p}, nil
}

func (b *Bernoulli) Kind() string           { return ir.KindBernoulli }
func (b *Bernoulli) Capability() Capability { return EnumerableDiscrete }

// Support returns {0, 1}.
func (b *Bernoulli) Support() []ir.IRValue { return []ir.IRValue{ir.IRInt(0), ir.IRInt(1)} }

func (b *Bernoulli) SupportSize() (int64, bool) { return 2, true }

func (b *Bernoulli) LogProb(v ir.IRValue) (num.Value, error) {
	switch v {
	case ir.IRInt(1):
		return num.Scalar(math.Log(b.p)), nil
	case ir.IRInt(0):
		return num.Scalar(math.Log1p(-b.p)), nil
	default:
		return num.Scalar(math.Inf(-1)), nil
	}
}

func (b *Bernoulli) Sample(r *rand.Rand) (ir.IRValue, error) {
	if r.Float64() < b.p {
		return ir.IRInt(1), nil
	}
	return ir.IRInt(0), nil
}

// UniformInt is uniform over the integers Low..High inclusive.
type UniformInt struct {
	low, high int64
}

// NewUniformInt builds a discrete uniform distribution. low must not
// exceed high.
func NewUniformInt(low, high int64) (*UniformInt, error) {
	if low > high {
		return nil, fmt.Errorf("%w: low %d > high %d", ErrEmptySupport, low, high)
	}
	return &UniformInt{low: low, high: high}, nil
}

func (u *UniformInt) Kind() string           { return ir.KindUniformInt }
func (u *UniformInt) Capability() Capability { return EnumerableDiscrete }

// span is High-Low, computed without overflow.
func (u *UniformInt) span() uint64 { return uint64(u.high) - uint64(u.low) }

// SupportSize returns High-Low+1. ok is false when the range holds more
// than math.MaxInt64 values.
func (u *UniformInt) SupportSize() (int64, bool) {
	s := u.span()
	if s >= math.MaxInt64 {
		return 0, false
	}
	return int64(s) + 1, true
}

// Support returns Low..High in increasing order. Callers check SupportSize
// first; a range too large to hold in memory is not materialized safely.
func (u *UniformInt) Support() []ir.IRValue {
	var out []ir.IRValue
	if n, ok := u.SupportSize(); ok && n <= maxPrealloc {
		out = make([]ir.IRValue, 0, n)
	}
	for k := u.low; ; k++ {
		out = append(out, ir.IRInt(k))
		if k == u.high {
			return out
		}
	}
}

// maxPrealloc caps the capacity Support reserves up front.
const maxPrealloc = 1 << 20

func (u *UniformInt) LogProb(v ir.IRValue) (num.Value, error) {
	k, ok := v.(ir.IRInt)
	if !ok || int64(k) < u.low || int64(k) > u.high {
		return num.Scalar(math.Inf(-1)), nil
	}
	return num.Scalar(-math.Log(float64(u.span()) + 1)), nil
}

func (u *UniformInt) Sample(r *rand.Rand) (ir.IRValue, error) {
	s := u.span()
	if s == math.MaxUint64 {
		return ir.IRInt(int64(r.Uint64())), nil
	}
	return ir.IRInt(int64(uint64(u.low) + r.Uint64N(s+1))), nil
}

// BatchCategorical scores each value under a batch of probability rows
// sharing one support. LogProb returns a *num.Batch with one element per
// row, flagged Tracked when the distribution is.
type BatchCategorical struct {
	values  []ir.IRValue
	rows    [][]float64
	tracked bool
}

// NewBatchCategorical builds a batched categorical. Every row is validated
// and normalized like NewCategorical's probs.
func NewBatchCategorical(values []ir.IRValue, rows [][]float64) (*BatchCategorical, error) {
	if err := validateSupport(values); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no probability rows", ErrBadParameter)
	}
	norm := make([][]float64, len(rows))
	for i, row := range rows {
		n, err := normalize(row, len(values))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		norm[i] = n
	}
	return &BatchCategorical{values: slices.Clone(values), rows: norm}, nil
}

// Tracked returns a copy whose log-probabilities are marked as taking part
// in gradient computation.
func (b *BatchCategorical) Tracked() *BatchCategorical {
	out := *b
	out.tracked = true
	return &out
}

func (b *BatchCategorical) Kind() string           { return ir.KindCategoricalBatch }
func (b *BatchCategorical) Capability() Capability { return EnumerableDiscrete }

// BatchSize returns the number of probability rows.
func (b *BatchCategorical) BatchSize() int { return len(b.rows) }

// Support returns the shared values in declaration order.
func (b *BatchCategorical) Support() []ir.IRValue { return slices.Clone(b.values) }

func (b *BatchCategorical) SupportSize() (int64, bool) { return int64(len(b.values)), true }

func (b *BatchCategorical) LogProb(v ir.IRValue) (num.Value, error) {
	out := &num.Batch{Data: make([]float64, len(b.rows)), Tracked: b.tracked}
	i := indexOf(b.values, v)
	for r, row := range b.rows {
		if i < 0 {
			out.Data[r] = math.Inf(-1)
			continue
		}
		out.Data[r] = math.Log(row[i])
	}
	return out, nil
}

// Sample draws from the first row.
func (b *BatchCategorical) Sample(r *rand.Rand) (ir.IRValue, error) {
	return b.values[pick(r, b.rows[0])], nil
}
