package models

import (
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
)

// TestWorkflowRequest runs a workflow by hand against a sample entity or payload.
type TestWorkflowRequest struct {
	EntityID                 string         `json:"entityId"`
	Attributes               map[string]any `json:"attributes"`
	SimulateAttributeChanges []string       `json:"simulateAttributeChanges"`
	ExecuteActions           bool           `json:"executeActions"`
}

type SaveWorkflowResponse struct {
	ID int64 `json:"id"`
}

// ValidationResponse reports authoring problems of a workflow definition.
type ValidationResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

type LogsResponse struct {
	WorkflowID int64    `json:"workflowId"`
	Logs       []string `json:"logs"`
}

// ActionDescriptor describes a registered action for authoring tools.
type ActionDescriptor struct {
	ID                    string       `json:"id"`
	Name                  string       `json:"name"`
	Fields                []core.Field `json:"fields"`
	MagicAttributeFields  []string     `json:"magicAttributeFields"`
	UsableWithScheduled   bool         `json:"usableWithScheduled"`
	UsableWithModelEvent  bool         `json:"usableWithModelEvent"`
	UsableWithCustomEvent bool         `json:"usableWithCustomEvent"`
	RequiredPackages      []string     `json:"requiredPackages"`
}

// SuggestionsResponse lists magic attribute tokens usable in action parameters.
type SuggestionsResponse struct {
	EntityType  string            `json:"entityType,omitempty"`
	Attributes  []string          `json:"attributes,omitempty"`
	EventTokens map[string]string `json:"eventTokens,omitempty"`
}

type ExecutorsResponse struct {
	ExecutorID  int64              `json:"executorId"`
	PendingJobs int                `json:"pendingJobs"`
	Executors   []*domain.Executor `json:"executors"`
}
