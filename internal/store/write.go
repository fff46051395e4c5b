package store

import (
	"context"
	"fmt"

	"github.com/roach88/discrete/internal/ir"
)

// CreateRun inserts a run in the running state and assigns its Seq, one
// past the highest existing run. Run IDs are unique; reusing one is an
// error.
func (s *Store) CreateRun(ctx context.Context, run Run) (Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("create run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("create run: next seq: %w", err)
	}
	run.Status = RunRunning
	if run.EngineVersion == "" {
		run.EngineVersion = ir.EngineVersion
	}
	if run.IRVersion == "" {
		run.IRVersion = ir.IRVersion
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, model_name, model_hash, graph_type, path_order, seed, max_paths, status, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.ModelName,
		run.ModelHash,
		run.GraphType,
		run.Order,
		int64(run.Seed),
		run.MaxPaths,
		string(run.Status),
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("create run: commit: %w", err)
	}
	return run, nil
}

// WritePath inserts a path and its sites in one transaction.
// Uses ON CONFLICT(run_id, id) DO NOTHING for idempotency: rewriting a
// path already stored for the run leaves the first copy and its sites
// untouched. inserted reports whether a new row was written.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WritePath(ctx context.Context, p Path) (inserted bool, err error) {
	assignment, err := marshalAssignment(p.Assignment)
	if err != nil {
		return false, fmt.Errorf("write path: %w", err)
	}

	var weight, batch any
	switch {
	case p.Weight != nil && p.BatchWeight == nil:
		weight = *p.Weight
	case p.Weight == nil && p.BatchWeight != nil:
		if batch, err = marshalBatch(p.BatchWeight); err != nil {
			return false, fmt.Errorf("write path: %w", err)
		}
	default:
		return false, fmt.Errorf("write path %s: exactly one of weight and batch weight must be set", p.ID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write path: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO paths
		(run_id, id, seq, weight, weight_batch, assignment)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, id) DO NOTHING
	`,
		p.RunID,
		p.ID,
		p.Seq,
		weight,
		batch,
		assignment,
	)
	if err != nil {
		return false, fmt.Errorf("write path: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write path: rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	for _, site := range p.Sites {
		value, err := marshalValue(site.Value)
		if err != nil {
			return false, fmt.Errorf("write path: site %s: %w", site.Name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sites
			(run_id, path_id, seq, name, site_type, dist_kind, value, is_observed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			p.RunID,
			p.ID,
			site.Seq,
			site.Name,
			site.Type,
			site.DistKind,
			value,
			site.IsObserved,
		)
		if err != nil {
			return false, fmt.Errorf("write path: site %s: %w", site.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write path: commit: %w", err)
	}
	return true, nil
}

// FinishRun marks a run completed, or failed when runErr is non-nil, and
// records its path count.
func (s *Store) FinishRun(ctx context.Context, runID string, pathCount int64, runErr error) error {
	status, msg := RunCompleted, ""
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, path_count = ?, error = ?
		WHERE id = ?
	`, string(status), pathCount, msg, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("finish run: %w: %s", ErrRunNotFound, runID)
	}
	return nil
}
