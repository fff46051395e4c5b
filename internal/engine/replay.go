package engine

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/roach88/discrete/internal/num"
)

// Re-invocation
//
// An enumeration is reproducible: the same model, arguments, graph type
// and seed yield the same multiset of (assignment, weight) pairs, whatever
// the worklist order. Path IDs are content-addressed from the discrete
// assignment under the model hash (RFC 8785 canonical JSON, SHA-256), so
// two runs can be compared by ID without relying on emission order.
//
// CompareRuns is what `discrete replay` uses to check a stored run against
// a fresh enumeration.

// PathSummary is the order-independent identity of an emitted path.
type PathSummary struct {
	ID     string
	Weight []float64
}

// Summarize reduces paths to summaries sorted by ID.
func Summarize(paths []Path) []PathSummary {
	out := make([]PathSummary, len(paths))
	for i, p := range paths {
		out[i] = PathSummary{ID: p.ID, Weight: num.Floats(p.Weight)}
	}
	sortSummaries(out)
	return out
}

func sortSummaries(s []PathSummary) {
	slices.SortFunc(s, func(a, b PathSummary) int { return cmp.Compare(a.ID, b.ID) })
}

// Mismatch describes one difference between two runs.
type Mismatch struct {
	ID     string
	Reason string
}

func (m Mismatch) String() string {
	return m.ID + ": " + m.Reason
}

// CompareRuns reports every path present in only one of want and got, and
// every shared path whose weights differ by more than tol. Inputs need not
// be sorted.
func CompareRuns(want, got []PathSummary, tol float64) []Mismatch {
	want, got = slices.Clone(want), slices.Clone(got)
	sortSummaries(want)
	sortSummaries(got)

	var out []Mismatch
	i, j := 0, 0
	for i < len(want) || j < len(got) {
		switch {
		case j >= len(got) || (i < len(want) && want[i].ID < got[j].ID):
			out = append(out, Mismatch{ID: want[i].ID, Reason: "missing from new run"})
			i++
		case i >= len(want) || got[j].ID < want[i].ID:
			out = append(out, Mismatch{ID: got[j].ID, Reason: "not in stored run"})
			j++
		default:
			if reason := weightDiff(want[i].Weight, got[j].Weight, tol); reason != "" {
				out = append(out, Mismatch{ID: want[i].ID, Reason: reason})
			}
			i++
			j++
		}
	}
	return out
}

func weightDiff(a, b []float64, tol float64) string {
	if len(a) != len(b) {
		return fmt.Sprintf("weight has %d elements, want %d", len(b), len(a))
	}
	for k := range a {
		if math.Abs(a[k]-b[k]) > tol {
			return fmt.Sprintf("weight[%d] = %g, want %g", k, b[k], a[k])
		}
	}
	return ""
}
