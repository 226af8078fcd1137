package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/RealZimboGuy/gophertrigger/internal/templating"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/pkg/errors"
)

const actionLogPrefix = "Workflow action: "

// ActionOutcome describes one action attempt of a pipeline run.
type ActionOutcome struct {
	WorkflowActionID int64                  `json:"workflowActionId"`
	ActionID         string                 `json:"actionId"`
	Position         int                    `json:"position"`
	ExecutionID      int64                  `json:"executionId"`
	Status           domain.ExecutionStatus `json:"status"`
	Message          string                 `json:"message,omitempty"`
	Logs             []string               `json:"logs"`
	LogError         string                 `json:"logError,omitempty"`
	Err              error                  `json:"-"`
}

// Pipeline runs the actions of a matched workflow.
type Pipeline struct {
	actions    *ActionRegistry
	executions ExecutionRepo
	log        *ExecutionLog
	clock      core.Clock
}

func NewPipeline(actions *ActionRegistry, executions ExecutionRepo, log *ExecutionLog, clock core.Clock) *Pipeline {
	return &Pipeline{actions: actions, executions: executions, log: log, clock: clock}
}

// Execute runs the workflow's actions one after another in position order. A failing
// action is recorded and the next one still runs. The shared map lives for this run only
// and is handed to every action in turn.
func (p *Pipeline) Execute(ctx context.Context, wf *domain.Workflow, tc *core.TriggeringContext) []ActionOutcome {
	specs := slices.Clone(wf.Actions)
	slices.SortStableFunc(specs, func(a, b domain.ActionSpec) int { return a.Position - b.Position })

	shared := make(map[string]any)
	outcomes := make([]ActionOutcome, 0, len(specs))
	failed, lostLogs := 0, 0
	for _, spec := range specs {
		outcome := p.run(ctx, wf, spec, tc, shared)
		if outcome.Status == domain.ExecutionFailed {
			failed++
		}
		if outcome.LogError != "" {
			lostLogs++
		}
		outcomes = append(outcomes, outcome)
	}
	if lostLogs > 0 {
		slog.ErrorContext(ctx, "Workflow log incomplete", "workflow_id", wf.ID, "trigger", tc.Ref(), "actions", lostLogs)
	}
	slog.InfoContext(ctx, "Workflow pipeline finished", "workflow_id", wf.ID, "trigger", tc.Ref(), "actions", len(outcomes), "failed", failed)
	return outcomes
}

func (p *Pipeline) run(ctx context.Context, wf *domain.Workflow, spec domain.ActionSpec, tc *core.TriggeringContext, shared map[string]any) ActionOutcome {
	rec := &executionRecord{
		ctx: ctx,
		log: p.log,
		row: domain.ActionExecution{
			WorkflowID:       wf.ID,
			WorkflowActionID: spec.ID,
			ActionID:         spec.ActionID,
			ExecutorID:       executorID(ctx),
			TriggerRef:       tc.Ref(),
			Created:          p.clock.Now(),
		},
	}

	outcome := ActionOutcome{WorkflowActionID: spec.ID, ActionID: spec.ActionID, Position: spec.Position}
	name := spec.ActionID
	if err := p.invoke(ctx, rec, spec, tc, shared, &name); err != nil {
		outcome.Err = errors.WithMessagef(ErrActionExecution, "%s (#%d): %v", spec.ActionID, spec.ID, err)
		outcome.Message = err.Error()
		rec.row.Status = domain.ExecutionFailed
		rec.row.Logs = append(rec.row.Logs, err.Error())
		rec.appendLog(fmt.Sprintf("%s%s (#%d) FAILED with error: %v", actionLogPrefix, name, spec.ID, err))
		slog.ErrorContext(ctx, "Action failed", "workflow_id", wf.ID, "action_id", spec.ActionID, "error", err)
	} else if rec.failure != "" {
		outcome.Err = errors.WithMessagef(ErrActionExecution, "%s (#%d): %s", spec.ActionID, spec.ID, rec.failure)
		outcome.Message = rec.failure
		rec.row.Status = domain.ExecutionFailed
		rec.appendLog(fmt.Sprintf("%s%s (#%d) reported failure: %s", actionLogPrefix, name, spec.ID, rec.failure))
		slog.WarnContext(ctx, "Action reported failure", "workflow_id", wf.ID, "action_id", spec.ActionID, "message", rec.failure)
	} else {
		rec.row.Status = domain.ExecutionSucceeded
		rec.appendLog(fmt.Sprintf("%s%s (#%d) succeeded", actionLogPrefix, name, spec.ID))
	}

	id, err := p.executions.Save(ctx, &rec.row)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to save action execution", "workflow_id", wf.ID, "action_id", spec.ActionID, "error", err)
	}
	outcome.ExecutionID = id
	outcome.Status = rec.row.Status
	outcome.Logs = rec.row.Logs
	if rec.logErr != nil {
		outcome.LogError = rec.logErr.Error()
	}
	return outcome
}

// invoke resolves the action and its data, then calls it. Panics are turned into errors.
func (p *Pipeline) invoke(ctx context.Context, rec *executionRecord, spec domain.ActionSpec, tc *core.TriggeringContext, shared map[string]any, name *string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()

	action, ok := p.actions.Get(spec.ActionID)
	if !ok {
		return errors.WithMessagef(ErrActionNotFound, "action %s", spec.ActionID)
	}
	*name = action.Name()

	data, err := templating.ResolveData(action.MagicAttributeFields(), tc.Source(), withDefaults(action.Fields(), spec.Data))
	if err != nil {
		return err
	}
	return action.Execute(ctx, data, rec, tc.Entity, tc.EventData, shared)
}

// withDefaults fills fields missing from data with their declared defaults.
func withDefaults(fields []core.Field, data map[string]any) map[string]any {
	out := make(map[string]any, len(data)+len(fields))
	for k, v := range data {
		out[k] = v
	}
	for _, f := range fields {
		if _, ok := out[f.Name]; !ok && f.Default != nil {
			out[f.Name] = f.Default
		}
	}
	return out
}

func executorID(ctx context.Context) int64 {
	if id, ok := ctx.Value(core.CtxKeyExecutorId).(int64); ok {
		return id
	}
	return 0
}

// executionRecord is the core.Execution handed to an action.
type executionRecord struct {
	ctx     context.Context
	log     *ExecutionLog
	row     domain.ActionExecution
	failure string
	logErr  error
}

func (r *executionRecord) WorkflowID() int64 { return r.row.WorkflowID }
func (r *executionRecord) ActionID() string  { return r.row.ActionID }

func (r *executionRecord) Log(message string) {
	r.row.Logs = append(r.row.Logs, message)
	r.appendLog(message)
}

// appendLog writes to the workflow log. A failed write is kept on the outcome; the
// action has already run, so the job is not redelivered for it.
func (r *executionRecord) appendLog(message string) {
	if err := r.log.Append(r.ctx, r.row.WorkflowID, message); err != nil && r.logErr == nil {
		r.logErr = err
	}
}

func (r *executionRecord) Fail(message string) {
	r.failure = message
	r.Log(message)
}
