package engine

import (
	"context"
	"fmt"
	"log/slog"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/num"
	"github.com/roach88/discrete/internal/replay"
	"github.com/roach88/discrete/internal/trace"
)

// Order selects the worklist discipline.
type Order uint8

const (
	// OrderLIFO expands depth-first. This is the default.
	OrderLIFO Order = iota
	// OrderFIFO expands breadth-first.
	OrderFIFO
)

// String returns "lifo" or "fifo".
func (o Order) String() string {
	if o == OrderFIFO {
		return "fifo"
	}
	return "lifo"
}

// ParseOrder parses "lifo" or "fifo". The empty string means lifo.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "lifo":
		return OrderLIFO, nil
	case "fifo":
		return OrderFIFO, nil
	default:
		return OrderLIFO, fmt.Errorf("unknown order %q (want lifo or fifo)", s)
	}
}

// Enumerator holds the configuration shared by enumerations. It is
// immutable after New and safe to share between goroutines; each
// IterDiscreteTraces call owns its own worklist.
type Enumerator struct {
	logger       *slog.Logger
	order        Order
	seed         uint64
	maxSupport   int
	emptySupport replay.EmptySupportPolicy
	maxPaths     int
	modelHash    string
	metrics      *Metrics
	tracer       oteltrace.Tracer
}

// Option configures an Enumerator.
type Option func(*Enumerator)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Enumerator) { e.logger = l }
}

// WithOrder sets the worklist discipline. Order changes emission order
// only, never the set of emitted paths.
func WithOrder(o Order) Option {
	return func(e *Enumerator) { e.order = o }
}

// WithSeed seeds the generator used for sites that are sampled rather
// than enumerated.
func WithSeed(seed uint64) Option {
	return func(e *Enumerator) { e.seed = seed }
}

// WithMaxSupport fails an enumeration at the first choice point with more
// than n support values. Zero means unlimited.
func WithMaxSupport(n int) Option {
	return func(e *Enumerator) { e.maxSupport = n }
}

// WithEmptySupport sets what a choice point with no support values does.
// Default: replay.EmptySupportError.
func WithEmptySupport(p replay.EmptySupportPolicy) Option {
	return func(e *Enumerator) { e.emptySupport = p }
}

// WithMaxPaths ends an enumeration with a QUOTA_EXCEEDED error instead of
// emitting more than n paths. Zero means unlimited.
func WithMaxPaths(n int) Option {
	return func(e *Enumerator) { e.maxPaths = n }
}

// WithModelHash sets the model hash path IDs are derived under.
func WithModelHash(hash string) Option {
	return func(e *Enumerator) { e.modelHash = hash }
}

// WithMetrics reports enumeration counters to m.
func WithMetrics(m *Metrics) Option {
	return func(e *Enumerator) { e.metrics = m }
}

// WithTracer sets the OpenTelemetry tracer. Default: the global provider's.
func WithTracer(t oteltrace.Tracer) Option {
	return func(e *Enumerator) { e.tracer = t }
}

// New creates an Enumerator.
func New(opts ...Option) *Enumerator {
	e := &Enumerator{
		logger: slog.Default(),
		tracer: defaultTracer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IterDiscreteTraces enumerates every path through the discrete choice
// points of model called with args, using a default Enumerator.
func IterDiscreteTraces(ctx context.Context, graph trace.GraphType, model replay.Model, args ...any) *Iterator {
	return New().IterDiscreteTraces(ctx, graph, model, args...)
}

// IterDiscreteTraces returns a lazy iterator over the completed paths of
// model. No model code runs until the first Next.
func (e *Enumerator) IterDiscreteTraces(ctx context.Context, graph trace.GraphType, model replay.Model, args ...any) *Iterator {
	if graph == "" {
		graph = trace.GraphFlat
	}
	var work replay.Worklist = replay.NewStack()
	if e.order == OrderFIFO {
		work = replay.NewQueue()
	}
	work.Push(trace.New(graph))

	return &Iterator{
		ctx:   ctx,
		e:     e,
		graph: graph,
		args:  args,
		work:  work,
		replayer: replay.New(model, work,
			replay.WithEscape(EscapeDiscrete),
			replay.WithGraphType(graph),
			replay.WithSeed(e.seed),
			replay.WithMaxSupport(e.maxSupport),
			replay.WithEmptySupport(e.emptySupport),
		),
		clock: NewClock(),
		quota: NewQuotaEnforcer(e.maxPaths),
		seen:  NewDuplicateGuard(),
	}
}

// Path is one completed execution: a full assignment of the discrete
// choice points it visited, and the probability of those decisions.
type Path struct {
	// Seq is the 1-based emission number.
	Seq int64
	// ID content-addresses the discrete assignment under the model hash.
	ID     string
	Weight num.Value
	Trace  *trace.Trace
}

// Assignment returns the values of the path's discrete sites.
func (p Path) Assignment() ir.IRObject {
	return p.Trace.Assignment(IsDiscreteSite)
}
