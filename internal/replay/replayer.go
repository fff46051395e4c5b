package replay

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"

	"github.com/roach88/discrete/internal/dist"
	"github.com/roach88/discrete/internal/trace"
)

// EscapeFunc decides whether a statement interrupts the run. prefix is the
// trace being replayed; site has no value yet.
type EscapeFunc func(prefix *trace.Trace, site *trace.Site) bool

// EmptySupportPolicy decides what an escape at a site with no support
// values does.
type EmptySupportPolicy uint8

const (
	// EmptySupportError fails the run with an EMPTY_SUPPORT SupportError.
	EmptySupportError EmptySupportPolicy = iota
	// EmptySupportPrune contributes zero branches: the path is dropped.
	EmptySupportPrune
)

// Outcome is the result of one run.
type Outcome struct {
	// Trace is the full trace of a completed run; nil if the run escaped.
	Trace *trace.Trace
	// Escaped is the site the run stopped at; nil if it completed.
	Escaped *trace.Site
	// Partial is what was recorded before the escape.
	Partial *trace.Trace
	// Branches is the number of prefixes pushed.
	Branches int
}

// Completed reports whether the run produced a full trace.
func (o Outcome) Completed() bool { return o.Trace != nil }

// Replayer runs a model against prefixes popped from a shared worklist.
type Replayer struct {
	model        Model
	work         Worklist
	escape       EscapeFunc
	graph        trace.GraphType
	rng          *rand.Rand
	maxSupport   int
	emptySupport EmptySupportPolicy
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithEscape sets the escape predicate. Without one no statement escapes.
func WithEscape(fn EscapeFunc) Option {
	return func(r *Replayer) { r.escape = fn }
}

// WithGraphType sets the graph type of the traces the Replayer records.
func WithGraphType(g trace.GraphType) Option {
	return func(r *Replayer) { r.graph = g }
}

// WithSeed seeds the generator used for fresh draws.
func WithSeed(seed uint64) Option {
	return func(r *Replayer) { r.rng = newRand(seed) }
}

// DefaultMaxSupport bounds the support of a single choice point when no
// maximum is configured. Every value becomes a prefix on the worklist.
const DefaultMaxSupport = 1 << 24

// WithMaxSupport fails an escape whose support has more than n values.
// Zero or less means DefaultMaxSupport.
func WithMaxSupport(n int) Option {
	return func(r *Replayer) { r.maxSupport = n }
}

// WithEmptySupport sets the empty-support policy.
func WithEmptySupport(p EmptySupportPolicy) Option {
	return func(r *Replayer) { r.emptySupport = p }
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// New creates a Replayer for model that pushes branches onto work.
func New(model Model, work Worklist, opts ...Option) *Replayer {
	r := &Replayer{
		model: model,
		work:  work,
		graph: trace.GraphFlat,
		rng:   newRand(0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Worklist returns the worklist branches are pushed onto.
func (r *Replayer) Worklist() Worklist { return r.work }

// Run executes the model once against prefix (nil means empty).
//
// A model error other than the escape is returned as is, and nothing is
// pushed. On escape the branches are pushed before Run returns.
func (r *Replayer) Run(ctx context.Context, prefix *trace.Trace, args ...any) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if prefix == nil {
		prefix = trace.New(r.graph)
	}
	rt := &Runtime{
		ctx:     ctx,
		r:       r,
		prefix:  prefix,
		partial: trace.New(r.graph),
	}

	ret, err := r.model(rt, args...)
	if err != nil && (rt.escaped == nil || !errors.Is(err, rt.escaped)) {
		return Outcome{}, err
	}
	if rt.escaped != nil {
		n, err := r.branch(rt.partial, rt.escaped.Site)
		site := rt.escaped.Site
		return Outcome{Escaped: &site, Partial: rt.partial, Branches: n}, err
	}

	rt.partial.SetReturn(ret)
	return Outcome{Trace: rt.partial}, nil
}

// branch pushes partial extended with each support value of site. The
// support size is checked before any value is built.
func (r *Replayer) branch(partial *trace.Trace, site trace.Site) (int, error) {
	e, ok := dist.AsEnumerable(site.Fn)
	if !ok {
		return 0, &SupportError{Code: ErrCodeNotEnumerable, Site: site.Name}
	}

	n, countable := e.SupportSize()
	if !countable {
		n = math.MaxInt64
	}
	if n == 0 {
		return r.empty(site)
	}
	if limit := r.supportLimit(); n > int64(limit) {
		return 0, &SupportError{Code: ErrCodeSupportTooLarge, Site: site.Name, Size: n, Limit: limit}
	}

	support := e.Support()
	if len(support) == 0 {
		return r.empty(site)
	}

	branches := make([]*trace.Trace, len(support))
	for i, v := range support {
		site.Value = v
		next, err := partial.Extend(site)
		if err != nil {
			return 0, err
		}
		branches[i] = next
	}
	r.work.PushBranches(branches)
	return len(branches), nil
}

func (r *Replayer) empty(site trace.Site) (int, error) {
	if r.emptySupport == EmptySupportPrune {
		return 0, nil
	}
	return 0, &SupportError{Code: ErrCodeEmptySupport, Site: site.Name}
}

// supportLimit is the configured maximum, or DefaultMaxSupport when unset.
func (r *Replayer) supportLimit() int {
	if r.maxSupport > 0 {
		return r.maxSupport
	}
	return DefaultMaxSupport
}
