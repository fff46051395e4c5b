// Package queryir provides the query intermediate representation used to
// select stored paths by their site values.
//
// ARCHITECTURE:
//
// The IR sits between the --where expression syntax and the store:
//
//	[where expression] → [Query IR] → [SQL backend (querysql)]
//
// A Select names one run and an optional filter over the sites of each
// path. Predicates compare the value a site took along a path:
//
//   - SiteEquals: the site took exactly this value
//   - SiteIn: the site took one of these values
//   - Unreached: the path never visited the site
//   - And: every predicate holds
//
// A path that never reached a site satisfies neither SiteEquals nor SiteIn
// for it. Unreached selects those paths.
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed with marker methods. Only types in this
// package implement them, so backends can switch exhaustively.
//
// VALUES:
//
// Literal values are ir.IRValue scalars. Floats are rejected by Validate:
// enumerated supports are float-free, and float equality on stored JSON
// text is not meaningful.
package queryir
