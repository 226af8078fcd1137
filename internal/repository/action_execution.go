package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/pkg/errors"
)

// ActionExecutionRepository stores one row per action attempt.
type ActionExecutionRepository struct {
	db *sql.DB
}

func NewActionExecutionRepository(db *sql.DB) *ActionExecutionRepository {
	return &ActionExecutionRepository{db: db}
}

func (r *ActionExecutionRepository) Save(ctx context.Context, e *domain.ActionExecution) (int64, error) {
	logs, err := encodeLogs(e.Logs)
	if err != nil {
		return 0, err
	}
	base := `INSERT INTO workflow_action_executions (
		workflow_id, workflow_action_id, action_id, executor_id, trigger_ref, status, logs, created
	) VALUES (` + placeholders(1, 8) + `)`
	id, err := insertReturningID(ctx, r.db, base, e.WorkflowID, e.WorkflowActionID, e.ActionID, e.ExecutorID,
		e.TriggerRef, string(e.Status), logs, formatDateInDatabase(e.Created))
	if err != nil {
		return 0, errors.WithMessagef(err, "save execution of action %s", e.ActionID)
	}
	e.ID = id
	return id, nil
}

// CountByWorkflowID backs the run-once check.
func (r *ActionExecutionRepository) CountByWorkflowID(ctx context.Context, workflowID int64) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM workflow_action_executions WHERE workflow_id = ` + placeholder(1)
	if err := r.db.QueryRowContext(ctx, query, workflowID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// FindByWorkflowID returns the newest executions first.
func (r *ActionExecutionRepository) FindByWorkflowID(ctx context.Context, workflowID int64, limit int) ([]domain.ActionExecution, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, workflow_id, workflow_action_id, action_id, executor_id, trigger_ref, status, logs, created
		FROM workflow_action_executions
		WHERE workflow_id = ` + placeholder(1) + `
		ORDER BY id DESC
		LIMIT ` + placeholder(2)
	rows, err := r.db.QueryContext(ctx, query, workflowID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ActionExecution
	for rows.Next() {
		var e domain.ActionExecution
		var logs string
		if err := rows.Scan(&e.ID, &e.WorkflowID, &e.WorkflowActionID, &e.ActionID, &e.ExecutorID,
			&e.TriggerRef, &e.Status, &logs, &e.Created); err != nil {
			return nil, err
		}
		if logs != "" {
			if err := json.Unmarshal([]byte(logs), &e.Logs); err != nil {
				return nil, errors.WithMessagef(err, "decode logs of execution %d", e.ID)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
