// Package trace records what one run of a model did: an ordered log of
// sites (sampling statements and deterministic effects) keyed by name.
//
// A Trace is append-only. Branching never mutates a trace in place:
// Extend copies the receiver and appends to the copy, so sibling prefixes
// pushed onto a worklist never observe each other's extensions.
//
// The graph type only affects the dependency edges a trace records. With
// GraphFlat no edges are kept; with GraphDense every site depends on every
// site recorded before it.
package trace
