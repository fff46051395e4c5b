package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/discrete/internal/engine"
	"github.com/roach88/discrete/internal/ir"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Expectation kind for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Paths    []PathRecord // Emitted paths for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Paths) > 0 {
		fmt.Fprintf(&buf, "\nEmitted paths:\n")
		for _, p := range e.Paths {
			fmt.Fprintf(&buf, "  [%d] %s weight=%s\n", p.Seq, formatAssignment(p.Assignment), formatWeights(p.Weight))
		}
	}

	return buf.String()
}

// EvaluateExpectations checks every expectation of e against the result
// of an enumeration. paths are the engine's paths (with traces, for
// marginals); runErr is the error the enumeration ended with.
// Returns one message per failed expectation.
func EvaluateExpectations(result *Result, e Expect, paths []engine.Path, runErr error) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if e.Error != "" {
		add(assertError(result, e.Error, runErr))
		if e.Paths != nil {
			add(assertPathCount(result.Paths, *e.Paths))
		}
		return errs
	}
	if runErr != nil {
		return []string{fmt.Sprintf("enumeration failed: %v", runErr)}
	}

	tol := e.tolerance()
	if e.Paths != nil {
		add(assertPathCount(result.Paths, *e.Paths))
	}
	if e.WeightSum != nil {
		add(assertWeightSum(result.Paths, *e.WeightSum, tol))
	}
	for _, c := range e.Contains {
		add(assertContains(result.Paths, c, tol))
	}
	for _, site := range sortedSites(e.Marginals) {
		add(assertTable("marginal", result.Paths, paths, site, e.Marginals[site], tol, engine.Marginal))
	}
	for _, site := range sortedSites(e.Posteriors) {
		add(assertTable("posterior", result.Paths, paths, site, e.Posteriors[site], tol, engine.Posterior))
	}
	return errs
}

func assertError(result *Result, want string, runErr error) error {
	if runErr == nil {
		return &AssertionError{
			Type:     "error",
			Expected: want,
			Actual:   fmt.Sprintf("enumeration succeeded with %d paths", len(result.Paths)),
			Paths:    result.Paths,
		}
	}
	if result.ErrorCode != want {
		return &AssertionError{
			Type:     "error",
			Expected: want,
			Actual:   fmt.Sprintf("%s (%v)", result.ErrorCode, runErr),
		}
	}
	return nil
}

func assertPathCount(paths []PathRecord, want int) error {
	if len(paths) == want {
		return nil
	}
	return &AssertionError{
		Type:     "paths",
		Expected: fmt.Sprintf("%d paths", want),
		Actual:   fmt.Sprintf("%d paths", len(paths)),
		Paths:    paths,
	}
}

func assertWeightSum(paths []PathRecord, want, tol float64) error {
	var sum float64
	for _, p := range paths {
		if len(p.Weight) != 1 {
			return &AssertionError{
				Type:     "weight_sum",
				Expected: "scalar weights",
				Actual:   fmt.Sprintf("path %d has a batched weight %s", p.Seq, formatWeights(p.Weight)),
			}
		}
		sum += p.Weight[0]
	}
	if math.Abs(sum-want) <= tol {
		return nil
	}
	return &AssertionError{
		Type:     "weight_sum",
		Expected: fmt.Sprintf("%g ± %g", want, tol),
		Actual:   fmt.Sprintf("%g", sum),
		Paths:    paths,
	}
}

func assertContains(paths []PathRecord, want PathExpectation, tol float64) error {
	expected, err := ir.FromGo(want.Assignment)
	if err != nil {
		return fmt.Errorf("contains: invalid assignment: %w", err)
	}
	for _, p := range paths {
		if !ir.Equal(p.Assignment, expected) {
			continue
		}
		if want.Weight == nil {
			return nil
		}
		if len(p.Weight) == 1 && math.Abs(p.Weight[0]-*want.Weight) <= tol {
			return nil
		}
		return &AssertionError{
			Type:     "contains",
			Expected: fmt.Sprintf("%s with weight %g", ir.Format(expected), *want.Weight),
			Actual:   fmt.Sprintf("weight %s", formatWeights(p.Weight)),
		}
	}
	return &AssertionError{
		Type:     "contains",
		Expected: ir.Format(expected),
		Actual:   "not emitted",
		Paths:    paths,
	}
}

type tableFunc func([]engine.Path, string) (*engine.MarginalTable, error)

func assertTable(kind string, records []PathRecord, paths []engine.Path, site string, want map[string]float64, tol float64, compute tableFunc) error {
	table, err := compute(paths, site)
	if err != nil {
		return fmt.Errorf("%s of %s: %w", kind, site, err)
	}

	got := map[string]float64{}
	for _, entry := range table.Entries {
		got[ir.Key(entry.Value)] += entry.Prob
	}
	if table.Unreached > 0 {
		got[UnreachedKey] = table.Unreached
	}

	var diffs []string
	for _, key := range sortedKeys(want, got) {
		w, g := want[key], got[key]
		if math.Abs(w-g) > tol {
			diffs = append(diffs, fmt.Sprintf("%s: want %g, got %g", key, w, g))
		}
	}
	if len(diffs) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%s of %s within %g", kind, site, tol),
		Actual:   strings.Join(diffs, "; "),
		Paths:    records,
	}
}

func sortedSites(m map[string]map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func sortedKeys(a, b map[string]float64) []string {
	var out []string
	for k := range a {
		out = append(out, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

func formatAssignment(a ir.IRObject) string {
	parts := make([]string, 0, len(a))
	for _, k := range a.SortedKeys() {
		parts = append(parts, k+"="+ir.Format(a[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func formatWeights(ws []float64) string {
	if len(ws) == 1 {
		return fmt.Sprintf("%.6f", ws[0])
	}
	parts := make([]string, len(ws))
	for i, w := range ws {
		parts[i] = fmt.Sprintf("%.6f", w)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
