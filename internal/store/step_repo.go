package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rogersf/strips-engine/internal/domain"
)

// StepRepo handles persistence for the plan steps of a run.
type StepRepo struct{}

// AppendTx inserts the steps of a plan within an existing transaction.
func (r *StepRepo) AppendTx(ctx context.Context, tx *sql.Tx, steps []domain.PlanStep) error {
	const q = `INSERT INTO plan_steps (run_id, seq_no, action, cost) VALUES (?, ?, ?, ?)`
	for _, s := range steps {
		if _, err := tx.ExecContext(ctx, q, s.RunID, s.SeqNo, s.Action, s.Cost); err != nil {
			return fmt.Errorf("%w: append step %d: %w", domain.ErrStoreWrite, s.SeqNo, err)
		}
	}
	return nil
}

// ListByRun returns the steps of a run in execution order.
func (r *StepRepo) ListByRun(ctx context.Context, db *sql.DB, runID string) ([]domain.PlanStep, error) {
	const q = `SELECT run_id, seq_no, action, cost FROM plan_steps WHERE run_id = ? ORDER BY seq_no ASC`

	rows, err := db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("%w: list steps: %w", domain.ErrStoreQuery, err)
	}
	defer rows.Close()

	var steps []domain.PlanStep
	for rows.Next() {
		var s domain.PlanStep
		if err := rows.Scan(&s.RunID, &s.SeqNo, &s.Action, &s.Cost); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}
