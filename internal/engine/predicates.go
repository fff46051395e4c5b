package engine

import (
	"github.com/roach88/discrete/internal/dist"
	"github.com/roach88/discrete/internal/trace"
)

// IsDiscreteSite is the site filter: it selects the sampling statements
// whose log-density makes up a path's weight. A site qualifies when it is
// a sample, not observed, drawn from an enumerable distribution, and in
// sequential enumerate mode (the default).
func IsDiscreteSite(s *trace.Site) bool {
	return s.Type == trace.SiteSample &&
		!s.IsObserved &&
		dist.IsEnumerable(s.Fn) &&
		s.Infer.Enumerate.Resolve() == trace.EnumerateSequential
}

// EscapeDiscrete is the escape predicate: a discrete site the prefix has
// not fixed yet is an unresolved choice point.
func EscapeDiscrete(prefix *trace.Trace, s *trace.Site) bool {
	return IsDiscreteSite(s) && !prefix.Contains(s.Name)
}

// IsObservedSite selects observed sampling statements.
func IsObservedSite(s *trace.Site) bool {
	return s.Type == trace.SiteSample && s.IsObserved
}
