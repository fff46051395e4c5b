package engine

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/num"
)

// ErrBatchedWeight is returned by Marginal and Posterior for paths whose
// weight is a batch.
var ErrBatchedWeight = errors.New("marginals need scalar weights")

// MarginalEntry is the mass of one value of a site.
type MarginalEntry struct {
	Value ir.IRValue
	Prob  float64
}

// MarginalTable is the distribution of one site's value over a set of
// paths. Entries are ordered by ir.Key of their value.
type MarginalTable struct {
	Site    string
	Entries []MarginalEntry
	// Unreached is the mass of the paths that never visited Site.
	Unreached float64
}

// Prob returns the mass of v, 0 if v never occurred.
func (m *MarginalTable) Prob(v ir.IRValue) float64 {
	for _, e := range m.Entries {
		if ir.Equal(e.Value, v) {
			return e.Prob
		}
	}
	return 0
}

// Total returns the mass of all entries plus Unreached.
func (m *MarginalTable) Total() float64 {
	total := m.Unreached
	for _, e := range m.Entries {
		total += e.Prob
	}
	return total
}

// String renders the table as "site: A=0.300000 B=0.700000".
func (m *MarginalTable) String() string {
	var b strings.Builder
	b.WriteString(m.Site)
	b.WriteString(":")
	for _, e := range m.Entries {
		fmt.Fprintf(&b, " %s=%.6f", ir.Format(e.Value), e.Prob)
	}
	if m.Unreached > 0 {
		fmt.Fprintf(&b, " <unreached>=%.6f", m.Unreached)
	}
	return b.String()
}

// Marginal sums path weights per value of site.
func Marginal(paths []Path, site string) (*MarginalTable, error) {
	return marginal(paths, site, func(Path) (float64, error) { return 0, nil })
}

// Posterior weights each path by the likelihood of its observed sites,
// then normalizes so the table sums to one.
func Posterior(paths []Path, site string) (*MarginalTable, error) {
	m, err := marginal(paths, site, func(p Path) (float64, error) {
		ll, err := LogLikelihood(p.Trace)
		if err != nil {
			return 0, err
		}
		f, ok := num.Float(ll)
		if !ok {
			return 0, ErrBatchedWeight
		}
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	total := m.Total()
	if total == 0 || math.IsInf(total, 0) || math.IsNaN(total) {
		return nil, fmt.Errorf("posterior of %q: evidence is %v", site, total)
	}
	for i := range m.Entries {
		m.Entries[i].Prob /= total
	}
	m.Unreached /= total
	return m, nil
}

func marginal(paths []Path, site string, logFactor func(Path) (float64, error)) (*MarginalTable, error) {
	m := &MarginalTable{Site: site}
	for _, p := range paths {
		w, ok := num.Float(p.Weight)
		if !ok {
			return nil, fmt.Errorf("path %d: %w", p.Seq, ErrBatchedWeight)
		}
		lf, err := logFactor(p)
		if err != nil {
			return nil, fmt.Errorf("path %d: %w", p.Seq, err)
		}
		// A zero-mass path stays zero even when its likelihood overflows.
		if w != 0 {
			w *= math.Exp(lf)
		}

		s, ok := p.Trace.Site(site)
		if !ok {
			m.Unreached += w
			continue
		}
		i := slices.IndexFunc(m.Entries, func(e MarginalEntry) bool { return ir.Equal(e.Value, s.Value) })
		if i < 0 {
			i = len(m.Entries)
			m.Entries = append(m.Entries, MarginalEntry{Value: s.Value})
		}
		m.Entries[i].Prob += w
	}
	slices.SortStableFunc(m.Entries, func(a, b MarginalEntry) int {
		return strings.Compare(ir.Key(a.Value), ir.Key(b.Value))
	})
	return m, nil
}
