package dist

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/num"
)

// Poisson counts events at a fixed rate. Its support is unbounded, so it
// is never enumerated.
type Poisson struct {
	rate float64
}

// NewPoisson builds a Poisson distribution. rate must be positive and finite.
func NewPoisson(rate float64) (*Poisson, error) {
	if !(rate > 0) || math.IsInf(rate, 0) {
		return nil, fmt.Errorf("%w: rate = %v", ErrBadParameter, rate)
	}
	return &Poisson{rate: rate}, nil
}

func (p *Poisson) Kind() string           { return ir.KindPoisson }
func (p *Poisson) Capability() Capability { return NonEnumerable }

func (p *Poisson) LogProb(v ir.IRValue) (num.Value, error) {
	k, ok := v.(ir.IRInt)
	if !ok || k < 0 {
		return num.Scalar(math.Inf(-1)), nil
	}
	lg, _ := math.Lgamma(float64(k) + 1)
	return num.Scalar(float64(k)*math.Log(p.rate) - p.rate - lg), nil
}

// poissonKnuthLimit bounds the rate at which Knuth's product method is used;
// above it exp(-rate) loses too much precision.
const poissonKnuthLimit = 30

func (p *Poisson) Sample(r *rand.Rand) (ir.IRValue, error) {
	if p.rate > poissonKnuthLimit {
		k := math.Round(p.rate + math.Sqrt(p.rate)*r.NormFloat64())
		return ir.IRInt(max(0, int64(k))), nil
	}
	limit := math.Exp(-p.rate)
	var k int64
	for prod := r.Float64(); prod > limit; prod *= r.Float64() {
		k++
	}
	return ir.IRInt(k), nil
}

// Normal is the Gaussian distribution. Draws are IRFloat values.
type Normal struct {
	loc, scale float64
}

// NewNormal builds a normal distribution. scale must be positive and finite.
func NewNormal(loc, scale float64) (*Normal, error) {
	if math.IsNaN(loc) || math.IsInf(loc, 0) {
		return nil, fmt.Errorf("%w: loc = %v", ErrBadParameter, loc)
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("%w: scale = %v", ErrBadParameter, scale)
	}
	return &Normal{loc: loc, scale: scale}, nil
}

func (n *Normal) Kind() string           { return ir.KindNormal }
func (n *Normal) Capability() Capability { return NonEnumerable }

var logSqrt2Pi = 0.5 * math.Log(2*math.Pi)

// LogProb accepts IRFloat and IRInt values.
func (n *Normal) LogProb(v ir.IRValue) (num.Value, error) {
	var x float64
	switch t := v.(type) {
	case ir.IRFloat:
		x = float64(t)
	case ir.IRInt:
		x = float64(t)
	default:
		return nil, fmt.Errorf("normal: cannot score %T", v)
	}
	z := (x - n.loc) / n.scale
	return num.Scalar(-0.5*z*z - math.Log(n.scale) - logSqrt2Pi), nil
}

func (n *Normal) Sample(r *rand.Rand) (ir.IRValue, error) {
	return ir.IRFloat(n.loc + n.scale*r.NormFloat64()), nil
}
