package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/pkg/errors"
)

type WorkflowRepository struct {
	db    *sql.DB
	clock core.Clock
}

const ALL_COLUMNS = ` id, name, description, trigger_kind, model_type, model_event, model_comparison,
		       model_attribute, custom_event, schedule_id, condition_type, active, run_once,
		       logs, created, modified `

func NewWorkflowRepository(db *sql.DB, clock core.Clock) *WorkflowRepository {
	return &WorkflowRepository{db: db, clock: clock}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*domain.Workflow, error) {
	var wf domain.Workflow
	var logs string
	err := row.Scan(
		&wf.ID,
		&wf.Name,
		&wf.Description,
		&wf.TriggerKind,
		&wf.ModelType,
		&wf.ModelEvent,
		&wf.ModelComparison,
		&wf.ModelAttribute,
		&wf.CustomEvent,
		&wf.ScheduleID,
		&wf.ConditionType,
		&wf.Active,
		&wf.RunOnce,
		&logs,
		&wf.Created,
		&wf.Modified,
	)
	if err != nil {
		return nil, err
	}
	if wf.Logs, err = decodeLogs(logs); err != nil {
		return nil, errors.WithMessagef(err, "decode logs of workflow %d", wf.ID)
	}
	return &wf, nil
}

func decodeLogs(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var logs []string
	if err := json.Unmarshal([]byte(raw), &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func encodeLogs(logs []string) (string, error) {
	if logs == nil {
		logs = []string{}
	}
	b, err := json.Marshal(logs)
	return string(b), err
}

// FindByID returns the workflow with its conditions and actions, or nil when it does not exist.
func (r *WorkflowRepository) FindByID(ctx context.Context, id int64) (*domain.Workflow, error) {
	query := `SELECT ` + ALL_COLUMNS + ` FROM workflows WHERE id = ` + placeholder(1)
	wf, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// FindByModelTypeAndEvent returns the model event workflows listening to type and event.
func (r *WorkflowRepository) FindByModelTypeAndEvent(ctx context.Context, modelType string, event domain.ModelEvent) ([]domain.Workflow, error) {
	query := `SELECT ` + ALL_COLUMNS + ` FROM workflows
		WHERE trigger_kind = ` + placeholder(1) + ` AND model_type = ` + placeholder(2) + ` AND model_event = ` + placeholder(3) + `
		ORDER BY id`
	return r.query(ctx, query, string(domain.TriggerModelEvent), modelType, string(event))
}

// FindByTrigger returns the workflows of kind keyed by key: the event type for custom
// events, the schedule id for ticks and the model type for model events.
func (r *WorkflowRepository) FindByTrigger(ctx context.Context, kind domain.TriggerKind, key string) ([]domain.Workflow, error) {
	var column string
	switch kind {
	case domain.TriggerCustomEvent:
		column = "custom_event"
	case domain.TriggerScheduled:
		column = "schedule_id"
	case domain.TriggerModelEvent:
		column = "model_type"
	default:
		return nil, errors.Errorf("unknown trigger kind %q", kind)
	}
	query := `SELECT ` + ALL_COLUMNS + ` FROM workflows
		WHERE trigger_kind = ` + placeholder(1) + ` AND ` + column + ` = ` + placeholder(2) + `
		ORDER BY id`
	return r.query(ctx, query, string(kind), key)
}

func (r *WorkflowRepository) FindAll(ctx context.Context) ([]domain.Workflow, error) {
	return r.query(ctx, `SELECT `+ALL_COLUMNS+` FROM workflows ORDER BY id`)
}

func (r *WorkflowRepository) query(ctx context.Context, query string, args ...any) ([]domain.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var workflows []domain.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range workflows {
		if err := r.loadChildren(ctx, &workflows[i]); err != nil {
			return nil, err
		}
	}
	return workflows, nil
}

func (r *WorkflowRepository) loadChildren(ctx context.Context, wf *domain.Workflow) error {
	conditions, err := r.findConditions(ctx, wf.ID)
	if err != nil {
		return errors.WithMessagef(err, "load conditions of workflow %d", wf.ID)
	}
	actions, err := r.findActions(ctx, wf.ID)
	if err != nil {
		return errors.WithMessagef(err, "load actions of workflow %d", wf.ID)
	}
	wf.Conditions = conditions
	wf.Actions = actions
	return nil
}

func (r *WorkflowRepository) findConditions(ctx context.Context, workflowID int64) ([]domain.Condition, error) {
	query := `SELECT id, workflow_id, model_attribute, operator, compare_value, position
		FROM workflow_conditions WHERE workflow_id = ` + placeholder(1) + ` ORDER BY position, id`
	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Condition
	for rows.Next() {
		var c domain.Condition
		if err := rows.Scan(&c.ID, &c.WorkflowID, &c.ModelAttribute, &c.Operator, &c.CompareValue, &c.Position); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *WorkflowRepository) findActions(ctx context.Context, workflowID int64) ([]domain.ActionSpec, error) {
	query := `SELECT id, workflow_id, action_id, data, position
		FROM workflow_actions WHERE workflow_id = ` + placeholder(1) + ` ORDER BY position, id`
	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ActionSpec
	for rows.Next() {
		var a domain.ActionSpec
		var data string
		if err := rows.Scan(&a.ID, &a.WorkflowID, &a.ActionID, &data, &a.Position); err != nil {
			return nil, err
		}
		if data != "" {
			if err := json.Unmarshal([]byte(data), &a.Data); err != nil {
				return nil, errors.WithMessagef(err, "decode data of action %d", a.ID)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Save inserts the workflow, or replaces it with its children when ID is set. The stored
// log is left untouched on update.
func (r *WorkflowRepository) Save(ctx context.Context, wf *domain.Workflow) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := r.clock.Now()
	if wf.Created.IsZero() {
		wf.Created = now
	}
	wf.Modified = now

	if wf.ID == 0 {
		logs, err := encodeLogs(wf.Logs)
		if err != nil {
			return 0, err
		}
		vals := []any{wf.Name, wf.Description, string(wf.TriggerKind), wf.ModelType, string(wf.ModelEvent), string(wf.ModelComparison),
			wf.ModelAttribute, wf.CustomEvent, wf.ScheduleID, string(wf.ConditionType), wf.Active, wf.RunOnce, logs,
			formatDateInDatabase(wf.Created), formatDateInDatabase(wf.Modified)}
		base := `INSERT INTO workflows (
			name, description, trigger_kind, model_type, model_event, model_comparison,
			model_attribute, custom_event, schedule_id, condition_type, active, run_once,
			logs, created, modified
		) VALUES (` + placeholders(1, len(vals)) + `)`
		id, err := insertReturningID(ctx, tx, base, vals...)
		if err != nil {
			return 0, err
		}
		wf.ID = id
	} else {
		query := `UPDATE workflows SET name = ` + placeholder(1) + `, description = ` + placeholder(2) +
			`, trigger_kind = ` + placeholder(3) + `, model_type = ` + placeholder(4) + `, model_event = ` + placeholder(5) +
			`, model_comparison = ` + placeholder(6) + `, model_attribute = ` + placeholder(7) + `, custom_event = ` + placeholder(8) +
			`, schedule_id = ` + placeholder(9) + `, condition_type = ` + placeholder(10) + `, active = ` + placeholder(11) +
			`, run_once = ` + placeholder(12) + `, modified = ` + placeholder(13) + ` WHERE id = ` + placeholder(14)
		_, err := tx.ExecContext(ctx, query, wf.Name, wf.Description, string(wf.TriggerKind), wf.ModelType, string(wf.ModelEvent),
			string(wf.ModelComparison), wf.ModelAttribute, wf.CustomEvent, wf.ScheduleID, string(wf.ConditionType), wf.Active,
			wf.RunOnce, formatDateInDatabase(wf.Modified), wf.ID)
		if err != nil {
			return 0, err
		}
		if err := deleteChildren(ctx, tx, wf.ID); err != nil {
			return 0, err
		}
	}

	for i := range wf.Conditions {
		c := &wf.Conditions[i]
		c.WorkflowID = wf.ID
		base := `INSERT INTO workflow_conditions (workflow_id, model_attribute, operator, compare_value, position) VALUES (` + placeholders(1, 5) + `)`
		if c.ID, err = insertReturningID(ctx, tx, base, wf.ID, c.ModelAttribute, string(c.Operator), c.CompareValue, c.Position); err != nil {
			return 0, err
		}
	}
	for i := range wf.Actions {
		a := &wf.Actions[i]
		a.WorkflowID = wf.ID
		data, err := json.Marshal(a.Data)
		if err != nil {
			return 0, errors.WithMessagef(err, "encode data of action %s", a.ActionID)
		}
		base := `INSERT INTO workflow_actions (workflow_id, action_id, data, position) VALUES (` + placeholders(1, 4) + `)`
		if a.ID, err = insertReturningID(ctx, tx, base, wf.ID, a.ActionID, string(data), a.Position); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Saved workflow", "workflow_id", wf.ID, "name", wf.Name)
	return wf.ID, nil
}

func deleteChildren(ctx context.Context, tx *sql.Tx, workflowID int64) error {
	for _, table := range []string{"workflow_conditions", "workflow_actions"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE workflow_id = `+placeholder(1), workflowID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the workflow together with its conditions, actions and executions.
func (r *WorkflowRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteChildren(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM workflow_action_executions WHERE workflow_id = `+placeholder(1), id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM workflows WHERE id = `+placeholder(1), id); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendLog adds line to the workflow log and trims it to the newest max entries, in
// one transaction. max <= 0 keeps every entry.
func (r *WorkflowRepository) AppendLog(ctx context.Context, workflowID int64, line string, max int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var raw string
	query := `SELECT logs FROM workflows WHERE id = ` + placeholder(1) + forUpdate()
	if err := tx.QueryRowContext(ctx, query, workflowID).Scan(&raw); err != nil {
		return errors.WithMessagef(err, "read logs of workflow %d", workflowID)
	}
	logs, err := decodeLogs(raw)
	if err != nil {
		return errors.WithMessagef(err, "decode logs of workflow %d", workflowID)
	}
	encoded, err := encodeLogs(domain.TrimLogs(append(logs, line), max))
	if err != nil {
		return err
	}
	update := `UPDATE workflows SET logs = ` + placeholder(1) + ` WHERE id = ` + placeholder(2)
	if _, err := tx.ExecContext(ctx, update, encoded, workflowID); err != nil {
		return err
	}
	return tx.Commit()
}

// GetLogs returns the stored log lines, oldest first.
func (r *WorkflowRepository) GetLogs(ctx context.Context, workflowID int64) ([]string, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT logs FROM workflows WHERE id = `+placeholder(1), workflowID).Scan(&raw)
	if err != nil {
		return nil, err
	}
	return decodeLogs(raw)
}
