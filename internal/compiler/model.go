// Package compiler turns CUE model definitions into ir.ModelSpec values.
//
// A model file declares one or more models under the top-level "model"
// field:
//
//	model: weather: {
//	    purpose: "rain and a wet lawn"
//	    sites: [
//	        {name: "rain", dist: bernoulli: p: 0.2},
//	        {name: "wet", given: ["rain"], table: {
//	            "1": {bernoulli: p: 0.9}
//	            "0": {bernoulli: p: 0.1}
//	        }, observed: 1},
//	    ]
//	}
//
// CompileModel performs structural extraction only. Semantic checks
// (duplicate names, dangling references, bad parameters) are reported by
// Validate so that every problem in a file surfaces at once.
package compiler

import (
	"fmt"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/discrete/internal/ir"
)

// CompileModels compiles every model under root's "model" field, sorted by
// name. A root without a "model" field yields no models.
func CompileModels(root cue.Value) ([]ir.ModelSpec, error) {
	if err := root.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	modelsVal := root.LookupPath(cue.ParsePath("model"))
	if !modelsVal.Exists() {
		return nil, nil
	}
	iter, err := modelsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var specs []ir.ModelSpec
	for iter.Next() {
		spec, err := CompileModel(iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}
	slices.SortFunc(specs, func(a, b ir.ModelSpec) int {
		return strings.Compare(a.Name, b.Name)
	})
	return specs, nil
}

// CompileModel compiles a single model struct. The model name is taken from
// the struct's label.
func CompileModel(v cue.Value) (*ir.ModelSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ModelSpec{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	if purposeVal := v.LookupPath(cue.ParsePath("purpose")); purposeVal.Exists() {
		purpose, err := purposeVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Purpose = purpose
	}

	sitesVal := v.LookupPath(cue.ParsePath("sites"))
	if !sitesVal.Exists() {
		return nil, &CompileError{Field: "sites", Message: "sites is required", Pos: v.Pos()}
	}
	iter, err := sitesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		site, err := parseSite(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("model %s: sites[%d]: %w", spec.Name, i, err)
		}
		spec.Sites = append(spec.Sites, site)
	}
	if len(spec.Sites) == 0 {
		return nil, &CompileError{Field: "sites", Message: "at least one site is required", Pos: sitesVal.Pos()}
	}
	return spec, nil
}

func parseSite(v cue.Value) (ir.SiteSpec, error) {
	var site ir.SiteSpec

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return site, &CompileError{Field: "name", Message: "site name is required", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return site, formatCUEError(err)
	}
	site.Name = name

	if distVal := v.LookupPath(cue.ParsePath("dist")); distVal.Exists() {
		d, err := parseDist(distVal)
		if err != nil {
			return site, err
		}
		site.Dist = &d
	}

	if givenVal := v.LookupPath(cue.ParsePath("given")); givenVal.Exists() {
		if err := givenVal.Decode(&site.Given); err != nil {
			return site, formatCUEError(err)
		}
	}

	if tableVal := v.LookupPath(cue.ParsePath("table")); tableVal.Exists() {
		iter, err := tableVal.Fields()
		if err != nil {
			return site, formatCUEError(err)
		}
		site.Table = make(map[string]ir.DistSpec)
		for iter.Next() {
			d, err := parseDist(iter.Value())
			if err != nil {
				return site, fmt.Errorf("table row %q: %w", iter.Label(), err)
			}
			site.Table[iter.Label()] = d
		}
	}

	if obsVal := v.LookupPath(cue.ParsePath("observed")); obsVal.Exists() {
		obs, err := cueToIR(obsVal)
		if err != nil {
			return site, err
		}
		site.Observed = obs
	}

	if enumVal := v.LookupPath(cue.ParsePath("enumerate")); enumVal.Exists() {
		mode, err := enumVal.String()
		if err != nil {
			return site, formatCUEError(err)
		}
		site.Enumerate = mode
	}

	if whenVal := v.LookupPath(cue.ParsePath("when")); whenVal.Exists() {
		cond, err := parseCondition(whenVal)
		if err != nil {
			return site, err
		}
		site.When = cond
	}

	return site, nil
}

func parseCondition(v cue.Value) (*ir.Condition, error) {
	cond := &ir.Condition{}
	siteVal := v.LookupPath(cue.ParsePath("site"))
	if !siteVal.Exists() {
		return nil, &CompileError{Field: "when.site", Message: "when requires a site", Pos: v.Pos()}
	}
	name, err := siteVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	cond.Site = name

	if eqVal := v.LookupPath(cue.ParsePath("equals")); eqVal.Exists() {
		if cond.Equals, err = cueToIR(eqVal); err != nil {
			return nil, err
		}
	}
	if inVal := v.LookupPath(cue.ParsePath("in")); inVal.Exists() {
		in, err := cueToIR(inVal)
		if err != nil {
			return nil, err
		}
		arr, ok := in.(ir.IRArray)
		if !ok {
			return nil, &CompileError{Field: "when.in", Message: "in must be a list", Pos: inVal.Pos()}
		}
		cond.In = arr
	}
	return cond, nil
}

// parseDist parses a one-field struct keyed by distribution kind.
func parseDist(v cue.Value) (ir.DistSpec, error) {
	var d ir.DistSpec
	iter, err := v.Fields()
	if err != nil {
		return d, formatCUEError(err)
	}
	if !iter.Next() {
		return d, &CompileError{Field: "dist", Message: "distribution kind is required", Pos: v.Pos()}
	}
	d.Kind = iter.Label()
	body := iter.Value()
	if iter.Next() {
		return d, &CompileError{Field: "dist", Message: "exactly one distribution kind is allowed", Pos: v.Pos()}
	}

	switch d.Kind {
	case ir.KindCategorical:
		if d.Values, err = lookupArray(body, "values"); err != nil {
			return d, err
		}
		err = lookupDecode(body, "probs", &d.Probs)
	case ir.KindCategoricalBatch:
		if d.Values, err = lookupArray(body, "values"); err != nil {
			return d, err
		}
		err = lookupDecode(body, "probs", &d.BatchProbs)
	case ir.KindBernoulli:
		d.P, err = lookupFloat(body, "p")
	case ir.KindUniformInt:
		if d.Low, err = lookupInt(body, "low"); err != nil {
			return d, err
		}
		d.High, err = lookupInt(body, "high")
	case ir.KindPoisson:
		d.Rate, err = lookupFloat(body, "rate")
	case ir.KindNormal:
		if d.Loc, err = lookupFloat(body, "loc"); err != nil {
			return d, err
		}
		d.Scale, err = lookupFloat(body, "scale")
	default:
		return d, &CompileError{
			Field:   "dist",
			Message: fmt.Sprintf("unknown distribution kind %q", d.Kind),
			Pos:     body.Pos(),
		}
	}
	return d, err
}

func lookupRequired(v cue.Value, field string) (cue.Value, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return fv, &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	return fv, nil
}

func lookupFloat(v cue.Value, field string) (float64, error) {
	fv, err := lookupRequired(v, field)
	if err != nil {
		return 0, err
	}
	f, err := fv.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return f, nil
}

func lookupInt(v cue.Value, field string) (int64, error) {
	fv, err := lookupRequired(v, field)
	if err != nil {
		return 0, err
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func lookupDecode(v cue.Value, field string, out any) error {
	fv, err := lookupRequired(v, field)
	if err != nil {
		return err
	}
	if err := fv.Decode(out); err != nil {
		return formatCUEError(err)
	}
	return nil
}

func lookupArray(v cue.Value, field string) (ir.IRArray, error) {
	fv, err := lookupRequired(v, field)
	if err != nil {
		return nil, err
	}
	val, err := cueToIR(fv)
	if err != nil {
		return nil, err
	}
	arr, ok := val.(ir.IRArray)
	if !ok {
		return nil, &CompileError{Field: field, Message: field + " must be a list", Pos: fv.Pos()}
	}
	return arr, nil
}

// cueToIR converts a concrete CUE value to an IR value.
func cueToIR(v cue.Value) (ir.IRValue, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRFloat(f), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.IRArray{}
		for iter.Next() {
			elem, err := cueToIR(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			elem, err := cueToIR(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	default:
		return nil, &CompileError{Field: "value", Message: "value must be concrete", Pos: v.Pos()}
	}
}

// CompileError is a structural error with the CUE position it came from.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
