package domain

import "time"

type ExecutionStatus string

const (
	ExecutionSucceeded ExecutionStatus = "SUCCEEDED"
	ExecutionFailed    ExecutionStatus = "FAILED"
)

// ActionExecution is the audit row for one action attempt. Rows are never updated
// after they are saved.
type ActionExecution struct {
	ID               int64           `json:"id"`
	WorkflowID       int64           `json:"workflowId"`
	WorkflowActionID int64           `json:"workflowActionId"`
	ActionID         string          `json:"actionId"`
	ExecutorID       int64           `json:"executorId"`
	TriggerRef       string          `json:"triggerRef"`
	Status           ExecutionStatus `json:"status"`
	Logs             []string        `json:"logs"`
	Created          time.Time       `json:"created"`
}

type Executor struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Started    time.Time `json:"started"`
	LastActive time.Time `json:"lastActive"`
}
