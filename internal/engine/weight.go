package engine

import (
	"github.com/roach88/discrete/internal/num"
	"github.com/roach88/discrete/internal/trace"
)

// Weight returns the probability mass of a completed trace's discrete
// decisions: the exponential of the summed log-density of every site
// IsDiscreteSite selects. Batched log-densities are detached and
// exponentiated element-wise. Overflow is not trapped.
func Weight(tr *trace.Trace) (num.Value, error) {
	lp, err := tr.LogProbSum(IsDiscreteSite)
	if err != nil {
		return nil, err
	}
	return num.Exp(lp), nil
}

// LogLikelihood sums the log-density of the observed sites of tr.
func LogLikelihood(tr *trace.Trace) (num.Value, error) {
	return tr.LogProbSum(IsObservedSite)
}
