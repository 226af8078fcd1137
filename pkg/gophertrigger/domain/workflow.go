package domain

import "time"

type TriggerKind string

const (
	TriggerScheduled   TriggerKind = "scheduled"
	TriggerModelEvent  TriggerKind = "model-event"
	TriggerCustomEvent TriggerKind = "custom-event"
)

type ModelEvent string

const (
	ModelEventCreated ModelEvent = "created"
	ModelEventUpdated ModelEvent = "updated"
	ModelEventDeleted ModelEvent = "deleted"
)

type ModelComparison string

const (
	ComparisonAnyAttribute ModelComparison = "any-attribute"
	ComparisonSpecified    ModelComparison = "specified"
)

type ConditionType string

const (
	ConditionTypeNoConditionIsRequired ConditionType = "no-condition-is-required"
	ConditionTypeAllConditionsAreTrue  ConditionType = "all-conditions-are-true"
	ConditionTypeAnyConditionIsTrue    ConditionType = "any-condition-is-true"
)

type Operator string

const (
	OperatorEqual          Operator = "is-equal-to"
	OperatorNotEqual       Operator = "is-not-equal-to"
	OperatorGreaterOrEqual Operator = "equals-or-greater-than"
	OperatorLessOrEqual    Operator = "equals-or-less-than"
	OperatorGreater        Operator = "greater-than"
	OperatorLess           Operator = "less-than"
)

// Workflow is a rule definition. The engine only reads it, except for Logs.
type Workflow struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name" validate:"required"`
	Description     string          `json:"description"`
	TriggerKind     TriggerKind     `json:"triggerKind" validate:"required,oneof=scheduled model-event custom-event"`
	ModelType       string          `json:"modelType" validate:"required_if=TriggerKind model-event"`
	ModelEvent      ModelEvent      `json:"modelEvent" validate:"required_if=TriggerKind model-event"`
	ModelComparison ModelComparison `json:"modelComparison" validate:"omitempty,oneof=any-attribute specified"`
	ModelAttribute  string          `json:"modelAttribute" validate:"required_if=ModelComparison specified"`
	CustomEvent     string          `json:"customEvent" validate:"required_if=TriggerKind custom-event"`
	ScheduleID      string          `json:"scheduleId" validate:"required_if=TriggerKind scheduled"`
	ConditionType   ConditionType   `json:"conditionType" validate:"omitempty,oneof=no-condition-is-required all-conditions-are-true any-condition-is-true"`
	Active          bool            `json:"active"`
	RunOnce         bool            `json:"runOnce"`
	Conditions      []Condition     `json:"conditions" validate:"dive"`
	Actions         []ActionSpec    `json:"actions" validate:"dive"`
	Logs            []string        `json:"logs"`
	Created         time.Time       `json:"created"`
	Modified        time.Time       `json:"modified"`
}

// Condition belongs to exactly one workflow.
type Condition struct {
	ID             int64    `json:"id"`
	WorkflowID     int64    `json:"workflowId"`
	ModelAttribute string   `json:"modelAttribute" validate:"required"`
	Operator       Operator `json:"operator" validate:"required,oneof=is-equal-to is-not-equal-to equals-or-greater-than equals-or-less-than greater-than less-than"`
	CompareValue   string   `json:"compareValue"`
	Position       int      `json:"position"`
}

// ActionSpec is one configured step. Position orders execution.
type ActionSpec struct {
	ID         int64          `json:"id"`
	WorkflowID int64          `json:"workflowId"`
	ActionID   string         `json:"actionId" validate:"required"`
	Data       map[string]any `json:"data"`
	Position   int            `json:"position"`
}

// IsModelEvent reports whether the workflow listens to entity lifecycle events.
func (w *Workflow) IsModelEvent() bool {
	return w.TriggerKind == TriggerModelEvent
}

// TrimLogs keeps the newest max entries in chronological order. A max of zero or less
// disables the bound.
func TrimLogs(logs []string, max int) []string {
	if max <= 0 || len(logs) <= max {
		return logs
	}
	trimmed := make([]string, max)
	copy(trimmed, logs[len(logs)-max:])
	return trimmed
}
