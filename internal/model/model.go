// Package model turns a compiled ir.ModelSpec into an executable model.
//
// Sites run in declaration order. A site with a when condition runs only
// if the condition's site was reached and holds; a site with a table picks
// its distribution from the values of its given sites, and is skipped if
// any of them was not reached. The model returns the values of every
// reached site as an ir.IRObject.
package model

import (
	"fmt"
	"strings"

	"github.com/roach88/discrete/internal/dist"
	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/replay"
	"github.com/roach88/discrete/internal/trace"
)

// Program is an executable compiled model.
type Program struct {
	Spec  ir.ModelSpec
	Hash  string
	sites []site
}

type site struct {
	name     string
	fn       dist.Distribution
	table    map[string]dist.Distribution
	given    []string
	when     *ir.Condition
	observed ir.IRValue
	mode     trace.EnumerateMode
}

// TableKey joins the keys of values with "," to form a table row key.
func TableKey(values []ir.IRValue) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = ir.Key(v)
	}
	return strings.Join(parts, ",")
}

// Build prepares spec for execution. Distributions are constructed once,
// here, so parameter errors surface before enumeration starts.
func Build(spec ir.ModelSpec) (*Program, error) {
	hash, err := ir.ModelHash(spec)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", spec.Name, err)
	}
	p := &Program{Spec: spec, Hash: hash, sites: make([]site, 0, len(spec.Sites))}
	for _, s := range spec.Sites {
		mode, err := trace.ParseEnumerateMode(s.Enumerate)
		if err != nil {
			return nil, fmt.Errorf("model %s: site %s: %w", spec.Name, s.Name, err)
		}
		compiled := site{
			name:     s.Name,
			given:    s.Given,
			when:     s.When,
			observed: s.Observed,
			mode:     mode,
		}
		switch {
		case s.Dist != nil:
			if compiled.fn, err = dist.FromSpec(*s.Dist); err != nil {
				return nil, fmt.Errorf("model %s: site %s: %w", spec.Name, s.Name, err)
			}
		case len(s.Table) > 0:
			compiled.table = make(map[string]dist.Distribution, len(s.Table))
			for key, row := range s.Table {
				d, err := dist.FromSpec(row)
				if err != nil {
					return nil, fmt.Errorf("model %s: site %s: row %q: %w", spec.Name, s.Name, key, err)
				}
				compiled.table[key] = d
			}
		default:
			return nil, fmt.Errorf("model %s: site %s: no distribution", spec.Name, s.Name)
		}
		p.sites = append(p.sites, compiled)
	}
	return p, nil
}

// Model returns the program as a replay.Model. Arguments are ignored.
func (p *Program) Model() replay.Model {
	return p.run
}

func (p *Program) run(rt *replay.Runtime, _ ...any) (any, error) {
	values := ir.IRObject{}
	for i := range p.sites {
		s := &p.sites[i]
		if s.when != nil {
			v, ok := values[s.when.Site]
			if !ok || !s.when.Holds(v) {
				continue
			}
		}
		d, reached, err := s.distribution(values)
		if err != nil {
			return nil, err
		}
		if !reached {
			continue
		}

		opts := []replay.SiteOption{replay.WithEnumerate(s.mode)}
		if s.observed != nil {
			if err := rt.Observe(s.name, d, s.observed, opts...); err != nil {
				return nil, err
			}
			values[s.name] = s.observed
			continue
		}
		v, err := rt.Sample(s.name, d, opts...)
		if err != nil {
			return nil, err
		}
		values[s.name] = v
	}
	return values, nil
}

// distribution selects the site's distribution. reached is false when a
// given site was not visited on this path.
func (s *site) distribution(values ir.IRObject) (dist.Distribution, bool, error) {
	if s.table == nil {
		return s.fn, true, nil
	}
	row := make([]ir.IRValue, len(s.given))
	for i, g := range s.given {
		v, ok := values[g]
		if !ok {
			return nil, false, nil
		}
		row[i] = v
	}
	key := TableKey(row)
	d, ok := s.table[key]
	if !ok {
		return nil, false, fmt.Errorf("site %s: no table row for %s=%s", s.name, strings.Join(s.given, ","), key)
	}
	return d, true, nil
}
