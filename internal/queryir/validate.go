package queryir

import (
	"fmt"

	"github.com/roach88/discrete/internal/ir"
)

// ValidationError describes one problem in a query.
type ValidationError struct {
	Path    string // location in the predicate tree, e.g. "and[1].values[0]"
	Message string
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate checks a query and returns every problem found.
//
// Rules:
//  1. A Select names a run
//  2. Every predicate names a site
//  3. Values are scalars: strings, ints or bools (no floats, nulls or
//     composites, which never match a stored support value)
//
// Validate is a pure function with no side effects.
func Validate(q Query) []ValidationError {
	v := &validator{}
	switch query := q.(type) {
	case Select:
		if query.RunID == "" {
			v.add("", "run ID is required")
		}
		v.predicate("filter", query.Filter)
	case nil:
		v.add("", "nil query")
	default:
		v.add("", "unknown query type %T", q)
	}
	return v.errs
}

// ValidatePredicate checks a predicate on its own.
func ValidatePredicate(p Predicate) []ValidationError {
	v := &validator{}
	v.predicate("", p)
	return v.errs
}

// validator accumulates errors during traversal.
type validator struct {
	errs []ValidationError
}

func (v *validator) add(path, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) predicate(path string, p Predicate) {
	switch pred := p.(type) {
	case nil:
		// no filter
	case SiteEquals:
		v.site(path, pred.Site)
		v.value(join(path, "value"), pred.Value)
	case SiteIn:
		v.site(path, pred.Site)
		for i, val := range pred.Values {
			v.value(join(path, fmt.Sprintf("values[%d]", i)), val)
		}
	case Unreached:
		v.site(path, pred.Site)
	case And:
		for i, sub := range pred.Predicates {
			v.predicate(join(path, fmt.Sprintf("and[%d]", i)), sub)
		}
	default:
		v.add(path, "unknown predicate type %T", p)
	}
}

func (v *validator) site(path, site string) {
	if site == "" {
		v.add(path, "site name is required")
	}
}

func (v *validator) value(path string, val ir.IRValue) {
	switch val.(type) {
	case ir.IRString, ir.IRInt, ir.IRBool:
	case ir.IRFloat:
		v.add(path, "float value %s cannot match an enumerated site", ir.Format(val))
	case nil, ir.IRNull:
		v.add(path, "value is required")
	default:
		v.add(path, "unsupported value type %T", val)
	}
}

func join(path, elem string) string {
	if path == "" {
		return elem
	}
	return path + "." + elem
}
