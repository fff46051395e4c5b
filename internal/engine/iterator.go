package engine

import (
	"context"
	"iter"
	"log/slog"
	"strconv"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/num"
	"github.com/roach88/discrete/internal/replay"
	"github.com/roach88/discrete/internal/trace"
)

// Stats counts the work one enumeration has done so far.
type Stats struct {
	Replays int64 `json:"replays"`
	Escapes int64 `json:"escapes"`
	Paths   int64 `json:"paths"`
}

// Iterator pulls completed paths one at a time.
//
//	it := engine.IterDiscreteTraces(ctx, trace.GraphFlat, model)
//	defer it.Close()
//	for it.Next() {
//	    p := it.Path()
//	    ...
//	}
//	if err := it.Err(); err != nil {
//	    ...
//	}
//
// An Iterator is not safe for concurrent use. Once Next returns false it
// keeps returning false; enumerating again needs a new Iterator.
type Iterator struct {
	ctx      context.Context
	e        *Enumerator
	graph    trace.GraphType
	args     []any
	work     replay.Worklist
	replayer *replay.Replayer
	clock    *Clock
	quota    *QuotaEnforcer
	seen     *DuplicateGuard
	span     oteltrace.Span
	started  bool
	done     bool
	cur      Path
	err      error
	stats    Stats
}

// Next advances to the next completed path, replaying the model as many
// times as needed. It returns false when the worklist is exhausted, the
// iterator was closed, or an error occurred.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	if !it.started {
		it.started = true
		it.startSpan()
		it.e.logger.Info("enumeration started",
			"graph_type", string(it.graph),
			"order", it.e.order.String(),
			"max_paths", it.e.maxPaths,
		)
	}

	for {
		if err := it.ctx.Err(); err != nil {
			return it.fail(err)
		}
		prefix, ok := it.work.Pop()
		if !ok {
			it.finish()
			return false
		}

		out, err := it.replayer.Run(it.ctx, prefix, it.args...)
		it.stats.Replays++
		it.e.metrics.replay(it.work.Len())
		if err != nil {
			return it.fail(err)
		}
		if !out.Completed() {
			it.stats.Escapes++
			it.e.metrics.escape(out.Branches)
			it.spanEscape(out.Escaped.Name, out.Branches)
			it.e.logger.Debug("replay escaped",
				"prefix_len", prefix.Len(),
				"escaped_site", out.Escaped.Name,
				"branches", out.Branches,
				"worklist", it.work.Len(),
			)
			continue
		}

		path, err := it.complete(out.Trace)
		if err != nil {
			return it.fail(err)
		}
		it.cur = path
		it.stats.Paths++
		it.e.metrics.path()
		it.e.logger.Debug("path completed",
			"seq", path.Seq,
			"prefix_len", prefix.Len(),
			"weight", num.Format(path.Weight, 6),
		)
		return true
	}
}

// complete turns a full trace into a Path, enforcing the quota and the
// exactly-once guarantee.
func (it *Iterator) complete(tr *trace.Trace) (Path, error) {
	w, err := Weight(tr)
	if err != nil {
		return Path{}, &RuntimeError{
			Code:    ErrCodeInvalidWeight,
			Message: err.Error(),
		}
	}
	id, err := ir.PathID(it.e.modelHash, tr.Assignment(IsDiscreteSite))
	if err != nil {
		return Path{}, &RuntimeError{
			Code:    ErrCodeInvalidPath,
			Message: "path assignment is not content-addressable: " + err.Error(),
		}
	}
	if first, dup := it.seen.Seen(id); dup {
		return Path{}, &RuntimeError{
			Code:    ErrCodeDuplicatePath,
			Message: "discrete assignment completed twice",
			Details: map[string]string{
				"path_id":    id,
				"first_seq":  strconv.FormatInt(first, 10),
				"assignment": tr.String(),
			},
		}
	}
	if err := it.quota.Check(); err != nil {
		return Path{}, err
	}
	seq := it.clock.Next()
	it.seen.Record(id, seq)
	return Path{Seq: seq, ID: id, Weight: w, Trace: tr}, nil
}

// Path returns the current path. It is valid after Next returned true.
func (it *Iterator) Path() Path { return it.cur }

// Err returns the error that ended the iteration, nil if it ended by
// exhaustion or Close. Model errors are returned exactly as the model
// returned them.
func (it *Iterator) Err() error { return it.err }

// Stats returns the work done so far.
func (it *Iterator) Stats() Stats { return it.stats }

// Close abandons the remaining worklist. It is safe to call more than once
// and after exhaustion.
func (it *Iterator) Close() {
	if it.done {
		return
	}
	it.done = true
	it.release()
	it.endSpan(nil)
	if it.started {
		it.e.logger.Info("enumeration closed early", it.statAttrs()...)
	}
}

// All adapts the iterator to a range-over-func sequence. Breaking out of
// the loop closes the iterator. A terminal error is yielded once with a
// zero Path.
func (it *Iterator) All() iter.Seq2[Path, error] {
	return func(yield func(Path, error) bool) {
		for it.Next() {
			if !yield(it.cur, nil) {
				it.Close()
				return
			}
		}
		if it.err != nil {
			yield(Path{}, it.err)
		}
	}
}

// Collect drains it and returns every path. On error the paths emitted
// before the error are returned with it.
func Collect(it *Iterator) ([]Path, error) {
	defer it.Close()
	var paths []Path
	for it.Next() {
		paths = append(paths, it.Path())
	}
	return paths, it.Err()
}

func (it *Iterator) finish() {
	it.done = true
	it.release()
	it.endSpan(nil)
	it.e.logger.Info("enumeration finished", it.statAttrs()...)
}

func (it *Iterator) fail(err error) bool {
	it.done = true
	it.err = err
	it.cur = Path{}
	it.release()
	it.endSpan(err)
	it.e.metrics.failure(err)
	it.e.logger.Error("enumeration failed", append(it.statAttrs(), "error", err)...)
	return false
}

// release drops the worklist so abandoned prefixes can be collected.
func (it *Iterator) release() {
	it.work = nil
	it.replayer = nil
}

func (it *Iterator) statAttrs() []any {
	return []any{
		slog.Int64("paths", it.stats.Paths),
		slog.Int64("replays", it.stats.Replays),
		slog.Int64("escapes", it.stats.Escapes),
	}
}
