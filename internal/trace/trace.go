package trace

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/num"
)

// GraphType selects how much dependency structure a trace records.
type GraphType string

const (
	GraphFlat  GraphType = "flat"
	GraphDense GraphType = "dense"
)

// ParseGraphType parses "flat" or "dense". The empty string means flat.
func ParseGraphType(s string) (GraphType, error) {
	switch GraphType(s) {
	case "", GraphFlat:
		return GraphFlat, nil
	case GraphDense:
		return GraphDense, nil
	default:
		return "", fmt.Errorf("unknown graph type %q (want flat or dense)", s)
	}
}

// Edge records that the site named To was drawn after, and may depend on,
// the site named From.
type Edge struct {
	From string
	To   string
}

// SiteFilter selects sites for LogProbSum and Assignment.
type SiteFilter func(s *Site) bool

// ErrDuplicateName is returned by Add when a site name is already present.
var ErrDuplicateName = errors.New("duplicate site name")

// Trace is an ordered log of sites keyed by name.
type Trace struct {
	graph GraphType
	sites []Site
	index map[string]int
	edges []Edge
	ret   any
}

// New creates an empty trace. An empty graph type means GraphFlat.
func New(graph GraphType) *Trace {
	if graph == "" {
		graph = GraphFlat
	}
	return &Trace{graph: graph, index: make(map[string]int)}
}

// GraphType returns the graph type the trace was created with.
func (t *Trace) GraphType() GraphType { return t.graph }

// Len returns the number of sites.
func (t *Trace) Len() int { return len(t.sites) }

// Contains reports whether a site with the given name is recorded.
func (t *Trace) Contains(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Site returns the site with the given name.
func (t *Trace) Site(name string) (Site, bool) {
	i, ok := t.index[name]
	if !ok {
		return Site{}, false
	}
	return t.sites[i], true
}

// Sites returns a copy of the sites in recording order.
func (t *Trace) Sites() []Site { return slices.Clone(t.sites) }

// Names returns the site names in recording order.
func (t *Trace) Names() []string {
	out := make([]string, len(t.sites))
	for i, s := range t.sites {
		out[i] = s.Name
	}
	return out
}

// Add appends s, stamping its Seq.
func (t *Trace) Add(s Site) error {
	if s.Name == "" {
		return errors.New("site name is empty")
	}
	if t.Contains(s.Name) {
		return fmt.Errorf("%w: %q", ErrDuplicateName, s.Name)
	}
	s.Seq = len(t.sites)
	if t.graph == GraphDense {
		for _, prev := range t.sites {
			t.edges = append(t.edges, Edge{From: prev.Name, To: s.Name})
		}
	}
	t.index[s.Name] = s.Seq
	t.sites = append(t.sites, s)
	return nil
}

// Extend returns a copy of t with s appended. t is not modified.
func (t *Trace) Extend(s Site) (*Trace, error) {
	out := t.Clone()
	if err := out.Add(s); err != nil {
		return nil, err
	}
	return out, nil
}

// Clone returns an independent copy of t. Site values are shared; they
// are immutable.
func (t *Trace) Clone() *Trace {
	out := &Trace{
		graph: t.graph,
		sites: slices.Clone(t.sites),
		index: make(map[string]int, len(t.index)),
		edges: slices.Clone(t.edges),
		ret:   t.ret,
	}
	for k, v := range t.index {
		out.index[k] = v
	}
	return out
}

// Edges returns a copy of the recorded dependency edges.
func (t *Trace) Edges() []Edge { return slices.Clone(t.edges) }

// SetReturn records the model's return value.
func (t *Trace) SetReturn(v any) { t.ret = v }

// Return returns the model's return value, nil for partial traces.
func (t *Trace) Return() any { return t.ret }

// LogProbSum sums the log-density of every site selected by filter. Sites
// without a distribution are skipped. The result is a num.Scalar unless a
// selected site scored to a batch.
func (t *Trace) LogProbSum(filter SiteFilter) (num.Value, error) {
	sum := num.Zero()
	for i := range t.sites {
		s := &t.sites[i]
		if s.Fn == nil || (filter != nil && !filter(s)) {
			continue
		}
		lp, err := s.Fn.LogProb(s.Value)
		if err != nil {
			return nil, fmt.Errorf("site %q: %w", s.Name, err)
		}
		if sum, err = num.Add(sum, lp); err != nil {
			return nil, fmt.Errorf("site %q: %w", s.Name, err)
		}
	}
	return sum, nil
}

// Assignment maps the names of the sites selected by filter to their
// values. A nil filter selects every site.
func (t *Trace) Assignment(filter SiteFilter) ir.IRObject {
	out := ir.IRObject{}
	for i := range t.sites {
		s := &t.sites[i]
		if filter == nil || filter(s) {
			out[s.Name] = s.Value
		}
	}
	return out
}

// String renders the trace as "[a=1 b=\"X\"]".
func (t *Trace) String() string {
	parts := make([]byte, 0, 16*len(t.sites))
	parts = append(parts, '[')
	for i, s := range t.sites {
		if i > 0 {
			parts = append(parts, ' ')
		}
		parts = append(parts, s.String()...)
	}
	return string(append(parts, ']'))
}
