package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/RealZimboGuy/gophertrigger/internal/conditions"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/pkg/errors"
)

const logPrefix = "Workflow evaluator: "

// ConditionResult is the outcome of one condition during a pass.
type ConditionResult struct {
	ConditionID  int64           `json:"conditionId"`
	Attribute    string          `json:"attribute"`
	Operator     domain.Operator `json:"operator"`
	CompareValue string          `json:"compareValue"`
	Value        any             `json:"value"`
	Passed       bool            `json:"passed"`
	Error        string          `json:"error,omitempty"`
}

// TestReport is returned by manual test runs instead of an error.
type TestReport struct {
	WorkflowID      int64             `json:"workflowId"`
	Matched         bool              `json:"matched"`
	Logs            []string          `json:"logs"`
	Conditions      []ConditionResult `json:"conditions"`
	FailedCondition *ConditionResult  `json:"failedCondition,omitempty"`
	Outcomes        []ActionOutcome   `json:"outcomes,omitempty"`
}

// Matcher selects the workflows a trigger should run.
type Matcher struct {
	workflows  WorkflowRepo
	executions ExecutionRepo
	log        *ExecutionLog
}

func NewMatcher(workflows WorkflowRepo, executions ExecutionRepo, log *ExecutionLog) *Matcher {
	return &Matcher{workflows: workflows, executions: executions, log: log}
}

// Match loads the candidates for tc and returns those passing every gate. Candidates are
// evaluated in order and each decision is written to the candidate's own log. Failing to
// load candidates, to count executions for a run-once workflow or to write a log line
// aborts the pass.
func (m *Matcher) Match(ctx context.Context, tc *core.TriggeringContext) ([]domain.Workflow, error) {
	candidates, err := m.candidates(ctx, tc)
	if err != nil {
		return nil, errors.WithMessagef(ErrRepositoryUnavailable, "load workflows for %s: %v", tc.Ref(), err)
	}
	slog.InfoContext(ctx, "Matching trigger", "trigger", tc.Ref(), "candidates", len(candidates))

	var matched []domain.Workflow
	var logErr error
	for i := range candidates {
		wf := &candidates[i]
		logf := func(msg string) {
			if err := m.log.Append(ctx, wf.ID, msg); err != nil && logErr == nil {
				logErr = errors.WithMessagef(ErrRepositoryUnavailable, "append log of workflow %d: %v", wf.ID, err)
			}
		}

		ok, err := m.gate(ctx, wf, logf)
		if err != nil {
			return nil, err
		}
		if ok {
			if accepted, _ := evaluate(wf, tc, logf); accepted {
				matched = append(matched, *wf)
			}
		}
		if logErr != nil {
			return nil, logErr
		}
	}
	slog.InfoContext(ctx, "Matched trigger", "trigger", tc.Ref(), "matched", len(matched))
	return matched, nil
}

// Test runs the same evaluation as Match for a single workflow, skipping the activation
// and run-once gates, and reports every condition result instead of writing the log.
func (m *Matcher) Test(ctx context.Context, wf *domain.Workflow, tc *core.TriggeringContext) TestReport {
	report := TestReport{WorkflowID: wf.ID}
	logf := func(msg string) { report.Logs = append(report.Logs, msg) }

	if err := ValidateWorkflowShape(wf); err != nil {
		logf(logPrefix + "skipped due to invalid configuration: " + err.Error())
		return report
	}
	report.Matched, report.Conditions = evaluate(wf, tc, logf)
	for i := range report.Conditions {
		if !report.Conditions[i].Passed {
			report.FailedCondition = &report.Conditions[i]
			break
		}
	}
	slog.InfoContext(ctx, "Tested workflow", "workflow_id", wf.ID, "trigger", tc.Ref(), "matched", report.Matched)
	return report
}

func (m *Matcher) candidates(ctx context.Context, tc *core.TriggeringContext) ([]domain.Workflow, error) {
	switch tc.Kind {
	case domain.TriggerModelEvent:
		return m.workflows.FindByModelTypeAndEvent(ctx, tc.EntityType, tc.ModelEvent)
	case domain.TriggerCustomEvent:
		return m.workflows.FindByTrigger(ctx, tc.Kind, tc.EventType)
	case domain.TriggerScheduled:
		return m.workflows.FindByTrigger(ctx, tc.Kind, tc.ScheduleID)
	}
	return nil, errors.WithMessagef(ErrInvalidTrigger, "trigger kind %q", tc.Kind)
}

// gate applies the configuration, active and run-once gates.
func (m *Matcher) gate(ctx context.Context, wf *domain.Workflow, logf func(string)) (bool, error) {
	if err := ValidateWorkflowShape(wf); err != nil {
		logf(logPrefix + "skipped due to invalid configuration: " + err.Error())
		return false, nil
	}
	if !wf.Active {
		logf(logPrefix + "skipped due to being inactive.")
		return false, nil
	}
	if wf.RunOnce {
		count, err := m.executions.CountByWorkflowID(ctx, wf.ID)
		if err != nil {
			return false, errors.WithMessagef(ErrRepositoryUnavailable, "count executions of workflow %d: %v", wf.ID, err)
		}
		if count > 0 {
			logf(logPrefix + "workflow already ran, skipping.")
			return false, nil
		}
	}
	return true, nil
}

// evaluate applies the attribute-changed gate and the conditions. Every condition is
// evaluated even when the outcome is already decided.
func evaluate(wf *domain.Workflow, tc *core.TriggeringContext, logf func(string)) (bool, []ConditionResult) {
	specified := wf.IsModelEvent() && wf.ModelComparison == domain.ComparisonSpecified
	if specified {
		event := strings.ToUpper(string(tc.ModelEvent))
		if !tc.HasChanged(wf.ModelAttribute) {
			logf(fmt.Sprintf("%smodel attribute (%s) was NOT %s", logPrefix, wf.ModelAttribute, event))
			return false, nil
		}
		logf(fmt.Sprintf("%smodel attribute (%s) was %s", logPrefix, wf.ModelAttribute, event))
	}

	if wf.ConditionType == domain.ConditionTypeNoConditionIsRequired {
		logf(logPrefix + "no conditions were required")
		finished(wf, tc, logf)
		return true, nil
	}

	results := make([]ConditionResult, 0, len(wf.Conditions))
	for _, c := range wf.Conditions {
		results = append(results, evaluateCondition(c, tc, logf))
	}

	var accepted bool
	switch wf.ConditionType {
	case domain.ConditionTypeAllConditionsAreTrue:
		accepted = true
		for _, r := range results {
			if !r.Passed {
				accepted = false
			}
		}
		if !accepted {
			logf(logPrefix + "some or all conditions were NOT met")
		} else {
			logf(logPrefix + "all conditions were met")
		}
	case domain.ConditionTypeAnyConditionIsTrue:
		for _, r := range results {
			if r.Passed {
				accepted = true
			}
		}
		if !accepted {
			logf(logPrefix + "NONE of the conditions were met")
		} else {
			logf(logPrefix + "at least one condition was met")
		}
	default:
		logf(fmt.Sprintf("%scondition type (%s) is not supported, skipping", logPrefix, wf.ConditionType))
	}

	if accepted {
		finished(wf, tc, logf)
	}
	return accepted, results
}

func evaluateCondition(c domain.Condition, tc *core.TriggeringContext, logf func(string)) ConditionResult {
	res := ConditionResult{
		ConditionID:  c.ID,
		Attribute:    c.ModelAttribute,
		Operator:     c.Operator,
		CompareValue: c.CompareValue,
	}
	desc := fmt.Sprintf("(%s %s %s)", c.ModelAttribute, c.Operator, c.CompareValue)

	value, err := core.Resolve(tc.Source(), c.ModelAttribute)
	if err != nil {
		res.Error = err.Error()
		logf(fmt.Sprintf("%scondition %s could not be resolved, treated as not met: %v", logPrefix, desc, err))
		return res
	}
	res.Value = value

	ok, err := conditions.Evaluate(value, c.Operator, c.CompareValue)
	if err != nil {
		res.Error = err.Error()
		logf(fmt.Sprintf("%scondition %s could not be compared, treated as not met: %v", logPrefix, desc, err))
		return res
	}
	res.Passed = ok
	if ok {
		logf(fmt.Sprintf("%scondition %s was met", logPrefix, desc))
	} else {
		logf(fmt.Sprintf("%scondition %s was NOT met", logPrefix, desc))
	}
	return res
}

func finished(wf *domain.Workflow, tc *core.TriggeringContext, logf func(string)) {
	logf(fmt.Sprintf("%sfinished, workflow #%d on trigger %s", logPrefix, wf.ID, tc.Ref()))
}
