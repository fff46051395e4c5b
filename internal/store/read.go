package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/discrete/internal/queryir"
	"github.com/roach88/discrete/internal/querysql"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, seq, model_name, model_hash, graph_type, path_order, seed, max_paths, status, path_count, error, engine_version, ir_version`

// ReadRun returns the run with the given ID.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns every run, oldest first.
// Results are ordered deterministically: ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadPaths returns the paths of a run with their sites.
// Results are ordered deterministically: ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if the run has no paths.
func (s *Store) ReadPaths(ctx context.Context, runID string) ([]Path, error) {
	return s.QueryPaths(ctx, queryir.Select{RunID: runID})
}

// QueryPaths returns the paths of q.RunID matching q.Filter, with their
// sites, in the same order as ReadPaths.
func (s *Store) QueryPaths(ctx context.Context, q queryir.Select) ([]Path, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query paths: %w", err)
	}
	defer rows.Close()

	paths := []Path{}
	index := map[string]int{}
	for rows.Next() {
		p, err := scanPath(rows)
		if err != nil {
			return nil, err
		}
		index[p.ID] = len(paths)
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate paths: %w", err)
	}
	if len(paths) == 0 {
		return paths, nil
	}

	if err := s.readSites(ctx, q.RunID, paths, index); err != nil {
		return nil, err
	}
	return paths, nil
}

// readSites attaches the sites of every path of a run, in execution order.
func (s *Store) readSites(ctx context.Context, runID string, paths []Path, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path_id, seq, name, site_type, dist_kind, value, is_observed
		FROM sites
		WHERE run_id = ?
		ORDER BY path_id COLLATE BINARY ASC, seq ASC
	`, runID)
	if err != nil {
		return fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pathID, value string
			site          Site
		)
		if err := rows.Scan(&pathID, &site.Seq, &site.Name, &site.Type, &site.DistKind, &value, &site.IsObserved); err != nil {
			return fmt.Errorf("scan site: %w", err)
		}
		if site.Value, err = unmarshalValue(value); err != nil {
			return fmt.Errorf("path %s: site %s: %w", pathID, site.Name, err)
		}
		i, ok := index[pathID]
		if !ok {
			continue
		}
		paths[i].Sites = append(paths[i].Sites, site)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate sites: %w", err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run    Run
		seed   int64
		status string
	)
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.ModelName,
		&run.ModelHash,
		&run.GraphType,
		&run.Order,
		&seed,
		&run.MaxPaths,
		&status,
		&run.PathCount,
		&run.Error,
		&run.EngineVersion,
		&run.IRVersion,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Seed = uint64(seed)
	run.Status = RunStatus(status)
	return run, nil
}

func scanPath(row scanner) (Path, error) {
	var (
		p          Path
		weight     sql.NullFloat64
		batch      sql.NullString
		assignment string
	)
	if err := row.Scan(&p.RunID, &p.ID, &p.Seq, &weight, &batch, &assignment); err != nil {
		return Path{}, fmt.Errorf("scan path: %w", err)
	}
	if weight.Valid {
		w := weight.Float64
		p.Weight = &w
	}
	if batch.Valid {
		ws, err := unmarshalBatch(batch.String)
		if err != nil {
			return Path{}, fmt.Errorf("path %s: %w", p.ID, err)
		}
		p.BatchWeight = ws
	}
	a, err := unmarshalAssignment(assignment)
	if err != nil {
		return Path{}, fmt.Errorf("path %s: %w", p.ID, err)
	}
	p.Assignment = a
	return p, nil
}
