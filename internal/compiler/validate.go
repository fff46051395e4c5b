package compiler

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/model"
	"github.com/roach88/discrete/internal/trace"
)

// Validation error codes (E200-E299)
const (
	ErrUnsupportedIRType = "E200" // unsupported IR type for validation

	ErrDuplicateSite     = "E201" // duplicate or empty site name
	ErrUnknownReference  = "E202" // when/given names an unknown, later or same site
	ErrFloatSupport      = "E203" // support values must be float-free
	ErrEmptySupport      = "E204" // no support values, or low > high
	ErrProbsLength       = "E205" // probs do not match values
	ErrBadParameter      = "E206" // negative, non-finite or out-of-range parameter
	ErrInvalidEnumerate  = "E207" // unknown or reserved enumerate mode
	ErrMissingDist       = "E208" // no distribution, or both dist and table
	ErrMissingTableRow   = "E209" // a reachable given combination has no row
	ErrDuplicateValue    = "E210" // repeated support value
	ErrObservedEnumerate = "E211" // enumerate set on an observed site
)

// maxTableCombinations bounds the row-coverage check.
const maxTableCombinations = 4096

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is a non-empty list of validation errors.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// Validate validates a compiled model. It returns every error found.
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.ModelSpec:
		return validateModel(spec)
	case ir.ModelSpec:
		return validateModel(&spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateModel(spec *ir.ModelSpec) []ValidationError {
	var errs []ValidationError
	prefix := "model." + spec.Name

	// index of each site name; only earlier sites may be referenced
	index := make(map[string]int, len(spec.Sites))
	for i, site := range spec.Sites {
		field := fmt.Sprintf("%s.sites[%d]", prefix, i)

		switch {
		case strings.TrimSpace(site.Name) == "":
			errs = append(errs, ValidationError{Field: field + ".name", Message: "site name is required", Code: ErrDuplicateSite})
		case hasKey(index, site.Name):
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate site name %q (first declared at sites[%d])", site.Name, index[site.Name]),
				Code:    ErrDuplicateSite,
			})
		}

		if site.When != nil {
			errs = append(errs, checkReference(field+".when.site", site.When.Site, site.Name, index)...)
			if site.When.Equals == nil && len(site.When.In) == 0 {
				errs = append(errs, ValidationError{Field: field + ".when", Message: "when needs equals or in", Code: ErrUnknownReference})
			}
		}

		errs = append(errs, validateEnumerate(field, site)...)
		errs = append(errs, validateSource(field, site, index, spec.Sites)...)

		if _, seen := index[site.Name]; !seen && site.Name != "" {
			index[site.Name] = i
		}
	}
	return errs
}

func hasKey(m map[string]int, k string) bool {
	_, ok := m[k]
	return ok
}

func checkReference(field, ref, self string, index map[string]int) []ValidationError {
	switch {
	case ref == self:
		return []ValidationError{{Field: field, Message: fmt.Sprintf("site %q references itself", ref), Code: ErrUnknownReference}}
	case !hasKey(index, ref):
		return []ValidationError{{Field: field, Message: fmt.Sprintf("site %q is not declared before this site", ref), Code: ErrUnknownReference}}
	}
	return nil
}

func validateEnumerate(field string, site ir.SiteSpec) []ValidationError {
	if site.Enumerate == "" {
		return nil
	}
	mode, err := trace.ParseEnumerateMode(site.Enumerate)
	if err != nil {
		return []ValidationError{{Field: field + ".enumerate", Message: err.Error(), Code: ErrInvalidEnumerate}}
	}
	if mode == trace.EnumerateParallel {
		return []ValidationError{{Field: field + ".enumerate", Message: "parallel enumeration is reserved and not supported", Code: ErrInvalidEnumerate}}
	}
	if site.IsObserved() {
		return []ValidationError{{Field: field + ".enumerate", Message: "observed sites are never enumerated", Code: ErrObservedEnumerate}}
	}
	return nil
}

// validateSource checks the site's dist, or its given/table pair.
func validateSource(field string, site ir.SiteSpec, index map[string]int, sites []ir.SiteSpec) []ValidationError {
	hasTable := len(site.Table) > 0
	switch {
	case site.Dist != nil && hasTable:
		return []ValidationError{{Field: field, Message: "dist and table are mutually exclusive", Code: ErrMissingDist}}
	case site.Dist != nil:
		if len(site.Given) > 0 {
			return []ValidationError{{Field: field + ".given", Message: "given requires a table", Code: ErrMissingDist}}
		}
		return validateDist(field+".dist", *site.Dist)
	case hasTable:
		if len(site.Given) == 0 {
			return []ValidationError{{Field: field + ".given", Message: "table requires given", Code: ErrMissingDist}}
		}
		var errs []ValidationError
		for _, g := range site.Given {
			errs = append(errs, checkReference(field+".given", g, site.Name, index)...)
		}
		for _, key := range sortedKeys(site.Table) {
			errs = append(errs, validateDist(fmt.Sprintf("%s.table[%q]", field, key), site.Table[key])...)
		}
		if len(errs) == 0 {
			errs = append(errs, validateRows(field, site, index, sites)...)
		}
		return errs
	default:
		return []ValidationError{{Field: field, Message: "a dist or a table is required", Code: ErrMissingDist}}
	}
}

func validateDist(field string, d ir.DistSpec) []ValidationError {
	var errs []ValidationError
	add := func(suffix, code, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field + suffix, Message: fmt.Sprintf(format, args...), Code: code})
	}

	switch d.Kind {
	case ir.KindCategorical, ir.KindCategoricalBatch:
		errs = append(errs, validateValues(field+".values", d.Values)...)
		if len(d.Values) == 0 {
			break
		}
		rows := d.BatchProbs
		if d.Kind == ir.KindCategorical {
			rows = [][]float64{d.Probs}
		} else if len(rows) == 0 {
			add(".probs", ErrProbsLength, "at least one probability row is required")
		}
		for r, row := range rows {
			suffix := ".probs"
			if d.Kind == ir.KindCategoricalBatch {
				suffix = fmt.Sprintf(".probs[%d]", r)
			}
			if len(row) != len(d.Values) {
				add(suffix, ErrProbsLength, "%d probs for %d values", len(row), len(d.Values))
				continue
			}
			errs = append(errs, validateProbs(field+suffix, row)...)
		}
	case ir.KindBernoulli:
		if !(d.P >= 0 && d.P <= 1) {
			add(".p", ErrBadParameter, "p must be in [0, 1], got %v", d.P)
		}
	case ir.KindUniformInt:
		if d.Low > d.High {
			add("", ErrEmptySupport, "low %d exceeds high %d", d.Low, d.High)
		} else if uint64(d.High)-uint64(d.Low) >= math.MaxInt64 {
			add("", ErrBadParameter, "range %d..%d holds more than %d values", d.Low, d.High, int64(math.MaxInt64))
		}
	case ir.KindPoisson:
		if !(d.Rate > 0) || math.IsInf(d.Rate, 0) {
			add(".rate", ErrBadParameter, "rate must be positive and finite, got %v", d.Rate)
		}
	case ir.KindNormal:
		if math.IsNaN(d.Loc) || math.IsInf(d.Loc, 0) {
			add(".loc", ErrBadParameter, "loc must be finite, got %v", d.Loc)
		}
		if !(d.Scale > 0) || math.IsInf(d.Scale, 0) {
			add(".scale", ErrBadParameter, "scale must be positive and finite, got %v", d.Scale)
		}
	default:
		add("", ErrMissingDist, "unknown distribution kind %q", d.Kind)
	}
	return errs
}

func validateValues(field string, values ir.IRArray) []ValidationError {
	if len(values) == 0 {
		return []ValidationError{{Field: field, Message: "at least one value is required", Code: ErrEmptySupport}}
	}
	var errs []ValidationError
	for i, v := range values {
		if !ir.IsFloatFree(v) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: fmt.Sprintf("float value %s not allowed in a support", ir.Format(v)),
				Code:    ErrFloatSupport,
			})
			continue
		}
		for j := 0; j < i; j++ {
			if ir.Equal(values[j], v) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s[%d]", field, i),
					Message: fmt.Sprintf("value %s repeats values[%d]", ir.Format(v), j),
					Code:    ErrDuplicateValue,
				})
				break
			}
		}
	}
	return errs
}

func validateProbs(field string, probs []float64) []ValidationError {
	var errs []ValidationError
	var total float64
	for i, p := range probs {
		if !(p >= 0) || math.IsInf(p, 0) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: fmt.Sprintf("probability must be non-negative and finite, got %v", p),
				Code:    ErrBadParameter,
			})
			continue
		}
		total += p
	}
	if len(errs) == 0 && total == 0 {
		errs = append(errs, ValidationError{Field: field, Message: "probabilities sum to zero", Code: ErrBadParameter})
	}
	return errs
}

// validateRows checks that every combination of the given sites' static
// supports has a table row. Given sites without a finite static support
// (continuous draws, nested tables) are not checked.
func validateRows(field string, site ir.SiteSpec, index map[string]int, sites []ir.SiteSpec) []ValidationError {
	supports := make([][]ir.IRValue, len(site.Given))
	combos := 1
	for i, g := range site.Given {
		values, ok := staticSupport(sites[index[g]])
		if !ok {
			return nil
		}
		supports[i] = values
		combos *= len(values)
		if combos > maxTableCombinations {
			return nil
		}
	}

	var errs []ValidationError
	row := make([]ir.IRValue, len(supports))
	var walk func(int)
	walk = func(depth int) {
		if depth == len(supports) {
			key := model.TableKey(row)
			if _, ok := site.Table[key]; !ok {
				errs = append(errs, ValidationError{
					Field:   field + ".table",
					Message: fmt.Sprintf("no table row for %s=%s", strings.Join(site.Given, ","), key),
					Code:    ErrMissingTableRow,
				})
			}
			return
		}
		for _, v := range supports[depth] {
			row[depth] = v
			walk(depth + 1)
		}
	}
	walk(0)
	return errs
}

// staticSupport returns the values a site can take, when known without
// running the model.
func staticSupport(site ir.SiteSpec) ([]ir.IRValue, bool) {
	if site.IsObserved() {
		return []ir.IRValue{site.Observed}, true
	}
	if site.Dist == nil {
		return nil, false
	}
	switch site.Dist.Kind {
	case ir.KindCategorical, ir.KindCategoricalBatch:
		return site.Dist.Values, true
	case ir.KindBernoulli:
		return []ir.IRValue{ir.IRInt(0), ir.IRInt(1)}, true
	case ir.KindUniformInt:
		low, high := site.Dist.Low, site.Dist.High
		if low > high || uint64(high)-uint64(low) >= maxTableCombinations {
			return nil, false
		}
		var out []ir.IRValue
		for k := low; ; k++ {
			out = append(out, ir.IRInt(k))
			if k == high {
				return out, true
			}
		}
	default:
		return nil, false
	}
}

func sortedKeys(table map[string]ir.DistSpec) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
