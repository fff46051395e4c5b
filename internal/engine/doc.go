// Package engine implements exhaustive enumeration of the discrete choice
// points of a model.
//
// ARCHITECTURE:
//
// Enumeration Driver:
// An Iterator owns a worklist of trace prefixes, seeded with one empty
// prefix. Each Next pops a prefix and replays the model against it. A run
// that reaches an unresolved choice point escapes; the replayer pushes one
// extended prefix per support value and the driver moves on. A run that
// completes is weighted and emitted as a Path.
//
// Escape Predicate:
// EscapeDiscrete interrupts a run at a sample site that is not observed,
// has an enumerable distribution, is in sequential enumerate mode, and is
// not fixed by the prefix being replayed.
//
// Site Filter:
// IsDiscreteSite is the same test without the prefix clause. Weight is the
// exponential of the summed log-density of the sites it selects.
//
// GUARANTEES:
//
// Every full assignment of the choice points reachable from the empty
// prefix is emitted exactly once. The worklist discipline (OrderLIFO,
// depth-first, by default; OrderFIFO, breadth-first) changes the emission
// order only. A DuplicateGuard turns a repeated assignment into a
// DUPLICATE_PATH error.
//
// Enumeration is single-threaded and pull-based: no model code runs
// between calls to Next, and Close (or breaking out of All) abandons the
// worklist without leaving anything behind. Model errors end the sequence
// and are returned by Err exactly as the model returned them.
//
// Paths are stamped with a logical Clock, so re-invoking with the same
// arguments and seed reproduces the same sequence.
package engine
