package testutil

import (
	"github.com/roach88/discrete/internal/num"
)

// DefaultTolerance is the tolerance weight sums are checked against.
const DefaultTolerance = 1e-6

// SumScalars adds scalar values. It panics on a batch.
func SumScalars(values ...num.Value) float64 {
	var total float64
	for _, v := range values {
		f, ok := num.Float(v)
		if !ok {
			panic("testutil: SumScalars on a batch")
		}
		total += f
	}
	return total
}
