// Package testutil provides fixture models and helpers shared by tests.
package testutil

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/roach88/discrete/internal/dist"
	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/num"
	"github.com/roach88/discrete/internal/replay"
	"github.com/roach88/discrete/internal/trace"
)

// Must panics on err. For fixture construction only.
func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// Strings returns values as IRString values.
func Strings(values ...string) []ir.IRValue {
	out := make([]ir.IRValue, len(values))
	for i, v := range values {
		out[i] = ir.IRString(v)
	}
	return out
}

// Categorical builds a categorical over string values.
func Categorical(values []string, probs []float64) *dist.Categorical {
	return Must(dist.NewCategorical(Strings(values...), probs))
}

// TwoCoins flips two independent coins "a" and "b".
func TwoCoins(pa, pb float64) replay.Model {
	a := Must(dist.NewBernoulli(pa))
	b := Must(dist.NewBernoulli(pb))
	return func(rt *replay.Runtime, args ...any) (any, error) {
		x, err := rt.Sample("a", a)
		if err != nil {
			return nil, err
		}
		y, err := rt.Sample("b", b)
		if err != nil {
			return nil, err
		}
		return int64(x.(ir.IRInt) + y.(ir.IRInt)), nil
	}
}

// ConditionalTree draws "first" from {A, B} and, only when it is A,
// "second" from {X, Y}.
func ConditionalTree(pA, pX float64) replay.Model {
	first := Categorical([]string{"A", "B"}, []float64{pA, 1 - pA})
	second := Categorical([]string{"X", "Y"}, []float64{pX, 1 - pX})
	return func(rt *replay.Runtime, args ...any) (any, error) {
		v, err := rt.Sample("first", first)
		if err != nil {
			return nil, err
		}
		if v != ir.IRString("A") {
			return v, nil
		}
		return rt.Sample("second", second)
	}
}

// ObservedAndFree observes a coin "evidence" at 1 and draws a free
// three-valued "z".
func ObservedAndFree() replay.Model {
	evidence := Must(dist.NewBernoulli(0.8))
	z := Must(dist.NewUniformInt(0, 2))
	return func(rt *replay.Runtime, args ...any) (any, error) {
		if err := rt.Observe("evidence", evidence, ir.IRInt(1)); err != nil {
			return nil, err
		}
		return rt.Sample("z", z)
	}
}

// OptedOut draws an enumerable "k" with enumeration switched off.
func OptedOut() replay.Model {
	k := Must(dist.NewUniformInt(1, 4))
	return func(rt *replay.Runtime, args ...any) (any, error) {
		return rt.Sample("k", k, replay.WithEnumerate(trace.EnumerateNone))
	}
}

// SingleSite samples "x" from d.
func SingleSite(d dist.Distribution) replay.Model {
	return func(rt *replay.Runtime, args ...any) (any, error) {
		return rt.Sample("x", d)
	}
}

// Mixed draws continuous "noise", then a coin "c" whose success
// probability is args[0].(float64), then observes "y" under a normal
// centred on the coin.
func Mixed() replay.Model {
	noise := Must(dist.NewNormal(0, 1))
	return func(rt *replay.Runtime, args ...any) (any, error) {
		if _, err := rt.Sample("noise", noise); err != nil {
			return nil, err
		}
		coin, err := dist.NewBernoulli(args[0].(float64))
		if err != nil {
			return nil, err
		}
		c, err := rt.Sample("c", coin)
		if err != nil {
			return nil, err
		}
		lik := Must(dist.NewNormal(float64(c.(ir.IRInt)), 1))
		return c, rt.Observe("y", lik, ir.IRFloat(0.9))
	}
}

// ErrFixture is returned by Failing.
var ErrFixture = errors.New("fixture model failure")

// Failing draws "a" from {A, B, C} and returns ErrFixture when it is B.
func Failing() replay.Model {
	a := Categorical([]string{"A", "B", "C"}, []float64{1, 1, 1})
	return func(rt *replay.Runtime, args ...any) (any, error) {
		v, err := rt.Sample("a", a)
		if err != nil {
			return nil, err
		}
		if v == ir.IRString("B") {
			return nil, ErrFixture
		}
		return v, nil
	}
}

// Batched draws a coin "a" and a batched categorical "b" whose rows are
// rows.
func Batched(rows [][]float64, tracked bool) replay.Model {
	a := Must(dist.NewBernoulli(0.5))
	b := Must(dist.NewBatchCategorical([]ir.IRValue{ir.IRInt(0), ir.IRInt(1)}, rows))
	if tracked {
		b = b.Tracked()
	}
	return func(rt *replay.Runtime, args ...any) (any, error) {
		if _, err := rt.Sample("a", a); err != nil {
			return nil, err
		}
		return rt.Sample("b", b)
	}
}

// EmptySupport declares itself enumerable but has no support values.
type EmptySupport struct{}

func (EmptySupport) Kind() string                { return "empty" }
func (EmptySupport) Capability() dist.Capability { return dist.EnumerableDiscrete }
func (EmptySupport) Support() []ir.IRValue       { return nil }
func (EmptySupport) SupportSize() (int64, bool)  { return 0, true }

func (EmptySupport) LogProb(ir.IRValue) (num.Value, error) {
	return num.Scalar(math.Inf(-1)), nil
}

func (EmptySupport) Sample(*rand.Rand) (ir.IRValue, error) {
	return nil, errors.New("empty support")
}
