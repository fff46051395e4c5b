package queryir

import "github.com/roach88/discrete/internal/ir"

// Query is a query over stored paths.
//
// This is a sealed interface: only Select implements it.
type Query interface {
	queryNode()
}

// Predicate is a filter over the sites of one path.
//
// This is a sealed interface. Predicate types:
//   - SiteEquals: site = value
//   - SiteIn: site in (v1, v2, ...)
//   - Unreached: the path has no such site
//   - And: all predicates must be true
type Predicate interface {
	predicateNode()
}

// Select selects the paths of one run, in emission order.
//
// Semantics:
//
//	SELECT paths FROM run WHERE <filter> ORDER BY seq
//
// Example:
//
//	Select{
//	  RunID: "0190f3d6-...",
//	  Filter: And{Predicates: []Predicate{
//	    SiteEquals{Site: "rain", Value: ir.IRInt(1)},
//	    SiteIn{Site: "sprinkler", Values: []ir.IRValue{ir.IRString("on")}},
//	  }},
//	}
type Select struct {
	RunID  string
	Filter Predicate // nil = every path
}

func (Select) queryNode() {}

// SiteEquals holds when the path reached Site and it took Value.
//
// Example:
//
//	SiteEquals{Site: "sprinkler", Value: ir.IRString("on")}
type SiteEquals struct {
	Site  string
	Value ir.IRValue
}

func (SiteEquals) predicateNode() {}

// SiteIn holds when the path reached Site and it took one of Values.
// An empty Values never holds.
type SiteIn struct {
	Site   string
	Values []ir.IRValue
}

func (SiteIn) predicateNode() {}

// Unreached holds when the path never visited Site, for example a site
// gated by a when clause on another branch.
type Unreached struct {
	Site string
}

func (Unreached) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Sites returns the site names p refers to, in order of appearance.
func Sites(p Predicate) []string {
	var out []string
	var walk func(Predicate)
	walk = func(p Predicate) {
		switch pred := p.(type) {
		case SiteEquals:
			out = append(out, pred.Site)
		case SiteIn:
			out = append(out, pred.Site)
		case Unreached:
			out = append(out, pred.Site)
		case And:
			for _, sub := range pred.Predicates {
				walk(sub)
			}
		}
	}
	walk(p)
	return out
}
