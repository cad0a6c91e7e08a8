package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rogersf/strips-engine/internal/domain"
)

// RunRepo handles persistence for RunRecord entries.
type RunRepo struct{}

const runColumns = `run_id, problem_name, direction, strategy, heuristic, bound, status, cost, steps, expanded, pruned, error_message, started_at_unix, duration_ms`

// Create inserts a new run.
func (r *RunRepo) Create(ctx context.Context, db *sql.DB, run domain.RunRecord) error {
	const q = `INSERT INTO runs (` + runColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, q,
		run.RunID,
		run.ProblemName,
		string(run.Direction),
		string(run.Strategy),
		run.Heuristic,
		run.Bound,
		string(run.Status),
		run.Cost,
		run.Steps,
		run.Expanded,
		run.Pruned,
		run.ErrorMessage,
		run.StartedAtUnix,
		run.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("%w: create run: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

// FinishTx records a run's outcome within an existing transaction.
func (r *RunRepo) FinishTx(ctx context.Context, tx *sql.Tx, run domain.RunRecord) error {
	const q = `UPDATE runs SET
		status = ?,
		cost = ?,
		steps = ?,
		expanded = ?,
		pruned = ?,
		error_message = ?,
		duration_ms = ?
	WHERE run_id = ?`

	res, err := tx.ExecContext(ctx, q,
		string(run.Status),
		run.Cost,
		run.Steps,
		run.Expanded,
		run.Pruned,
		run.ErrorMessage,
		run.DurationMS,
		run.RunID,
	)
	if err != nil {
		return fmt.Errorf("%w: finish run: %w", domain.ErrStoreWrite, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrRunNotFound.Detail("%s", run.RunID)
	}
	return nil
}

// GetByID retrieves a run by its ID.
func (r *RunRepo) GetByID(ctx context.Context, db *sql.DB, runID string) (*domain.RunRecord, error) {
	const q = `SELECT ` + runColumns + ` FROM runs WHERE run_id = ?`

	run, err := scanRun(db.QueryRowContext(ctx, q, runID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("%w: get run: %w", domain.ErrStoreQuery, err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. A limit <= 0 returns all.
func (r *RunRepo) List(ctx context.Context, db *sql.DB, limit int) ([]domain.RunRecord, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at_unix DESC, rowid DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list runs: %w", domain.ErrStoreQuery, err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*domain.RunRecord, error) {
	var run domain.RunRecord
	var direction, strategy, status string
	err := s.Scan(&run.RunID, &run.ProblemName, &direction, &strategy, &run.Heuristic, &run.Bound,
		&status, &run.Cost, &run.Steps, &run.Expanded, &run.Pruned, &run.ErrorMessage,
		&run.StartedAtUnix, &run.DurationMS)
	if err != nil {
		return nil, err
	}
	run.Direction = domain.Direction(direction)
	run.Strategy = domain.Strategy(strategy)
	run.Status = domain.RunStatus(status)
	return &run, nil
}
