package trace

import (
	"fmt"

	"github.com/roach88/discrete/internal/dist"
	"github.com/roach88/discrete/internal/ir"
)

// SiteType tags the effect a site records.
type SiteType string

const (
	// SiteSample is a random draw, observed or not.
	SiteSample SiteType = "sample"
	// SiteDeterministic is a bookkeeping effect with no distribution.
	SiteDeterministic SiteType = "deterministic"
)

// EnumerateMode controls whether an enumerable site is expanded.
type EnumerateMode uint8

const (
	// EnumerateUnset is the zero value and resolves to EnumerateSequential.
	EnumerateUnset EnumerateMode = iota
	// EnumerateSequential expands the site value by value.
	EnumerateSequential
	// EnumerateNone opts the site out: it is sampled like a continuous site.
	EnumerateNone
	// EnumerateParallel is reserved. It is parsed but never expanded.
	EnumerateParallel
)

var enumerateNames = [...]string{
	EnumerateUnset:      "",
	EnumerateSequential: "sequential",
	EnumerateNone:       "none",
	EnumerateParallel:   "parallel",
}

// String returns the option spelling, "" for EnumerateUnset.
func (m EnumerateMode) String() string {
	if int(m) < len(enumerateNames) {
		return enumerateNames[m]
	}
	return fmt.Sprintf("EnumerateMode(%d)", m)
}

// Resolve applies the default: EnumerateUnset becomes EnumerateSequential.
func (m EnumerateMode) Resolve() EnumerateMode {
	if m == EnumerateUnset {
		return EnumerateSequential
	}
	return m
}

// ParseEnumerateMode parses an option spelling. The empty string parses to
// EnumerateUnset; anything unrecognised is an error.
func ParseEnumerateMode(s string) (EnumerateMode, error) {
	for m, name := range enumerateNames {
		if name == s {
			return EnumerateMode(m), nil
		}
	}
	return EnumerateUnset, fmt.Errorf("unknown enumerate mode %q (want sequential, none or parallel)", s)
}

// InferOptionEnumerate is the inference option key for EnumerateMode.
const InferOptionEnumerate = "enumerate"

// InferOptions holds per-site inference-control options.
type InferOptions struct {
	Enumerate EnumerateMode
}

// Get looks up an option by key, returning def when the option is unset
// or unknown.
func (o InferOptions) Get(key, def string) string {
	if key == InferOptionEnumerate && o.Enumerate != EnumerateUnset {
		return o.Enumerate.String()
	}
	return def
}

// Site is one statement recorded in a trace.
type Site struct {
	// Seq is the 0-based position of the site in its trace, set by Add.
	Seq        int
	Type       SiteType
	Name       string
	Fn         dist.Distribution // nil for deterministic sites
	Value      ir.IRValue
	IsObserved bool
	Infer      InferOptions
}

// String renders the site as name=value.
func (s Site) String() string {
	if s.Value == nil {
		return s.Name
	}
	return s.Name + "=" + ir.Format(s.Value)
}
