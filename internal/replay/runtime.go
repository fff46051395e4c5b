package replay

import (
	"context"

	"github.com/roach88/discrete/internal/dist"
	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/trace"
)

// Model is a stochastic function. It records its statements through rt and
// must return any error rt hands back, escapes included.
type Model func(rt *Runtime, args ...any) (any, error)

// SiteOption configures the inference options of one statement.
type SiteOption func(*trace.InferOptions)

// WithEnumerate sets the enumerate mode of a statement.
func WithEnumerate(mode trace.EnumerateMode) SiteOption {
	return func(o *trace.InferOptions) { o.Enumerate = mode }
}

// WithInfer replaces the inference options of a statement.
func WithInfer(opts trace.InferOptions) SiteOption {
	return func(o *trace.InferOptions) { *o = opts }
}

// Runtime is handed to a Model for one run. It is not safe for concurrent
// use and must not be retained after the model returns.
type Runtime struct {
	ctx     context.Context
	r       *Replayer
	prefix  *trace.Trace
	partial *trace.Trace
	escaped *EscapeError
}

// Context returns the context of the run.
func (rt *Runtime) Context() context.Context { return rt.ctx }

// Trace returns a copy of the statements recorded so far.
func (rt *Runtime) Trace() *trace.Trace { return rt.partial.Clone() }

// Sample records a sampling statement and returns its value: the prefix
// value when the prefix fixes name, a fresh draw from d otherwise. It
// returns an *EscapeError when the statement is an unresolved choice point.
func (rt *Runtime) Sample(name string, d dist.Distribution, opts ...SiteOption) (ir.IRValue, error) {
	site := trace.Site{Type: trace.SiteSample, Name: name, Fn: d}
	for _, opt := range opts {
		opt(&site.Infer)
	}
	if err := rt.enter(&site); err != nil {
		return nil, err
	}
	if fixed, ok := rt.prefix.Site(name); ok {
		site.Value = fixed.Value
	} else {
		v, err := d.Sample(rt.r.rng)
		if err != nil {
			return nil, err
		}
		site.Value = v
	}
	if err := rt.partial.Add(site); err != nil {
		return nil, err
	}
	return site.Value, nil
}

// Observe records a sampling statement whose value is fixed to value.
func (rt *Runtime) Observe(name string, d dist.Distribution, value ir.IRValue, opts ...SiteOption) error {
	site := trace.Site{Type: trace.SiteSample, Name: name, Fn: d, Value: value, IsObserved: true}
	for _, opt := range opts {
		opt(&site.Infer)
	}
	if err := rt.enter(&site); err != nil {
		return err
	}
	return rt.partial.Add(site)
}

// Deterministic records a non-random bookkeeping statement.
func (rt *Runtime) Deterministic(name string, value ir.IRValue) error {
	site := trace.Site{Type: trace.SiteDeterministic, Name: name, Value: value}
	if err := rt.enter(&site); err != nil {
		return err
	}
	return rt.partial.Add(site)
}

// enter runs the checks shared by every statement and evaluates the escape
// predicate against the prefix.
func (rt *Runtime) enter(site *trace.Site) error {
	if rt.escaped != nil {
		return rt.escaped
	}
	if err := rt.ctx.Err(); err != nil {
		return err
	}
	if rt.partial.Contains(site.Name) {
		return &DuplicateSiteError{Name: site.Name}
	}
	if rt.r.escape != nil && rt.r.escape(rt.prefix, site) {
		rt.escaped = &EscapeError{Site: *site}
		return rt.escaped
	}
	return nil
}
