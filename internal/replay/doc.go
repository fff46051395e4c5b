// Package replay runs a model against a prefix of already-fixed decisions
// and stops at the first statement the escape predicate selects.
//
// A run either completes, producing a full trace, or escapes. On escape the
// Replayer pushes one new prefix per support value of the escaping site onto
// the shared Worklist: the partial trace recorded so far, copied and
// extended with that value. Continuous draws made before the escape are part
// of the partial trace, so they are replayed and never redrawn on the
// branches.
//
// Escape is reported to the model as an *EscapeError returned from
// Runtime.Sample. Models propagate it like any other error.
package replay
