package engine

import (
	"context"
	"time"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
)

// WorkflowRepo defines the workflow lookups the engine needs, matching repository.WorkflowRepository.
// Returned workflows carry their conditions and actions.
type WorkflowRepo interface {
	FindByModelTypeAndEvent(ctx context.Context, modelType string, event domain.ModelEvent) ([]domain.Workflow, error)
	FindByTrigger(ctx context.Context, kind domain.TriggerKind, key string) ([]domain.Workflow, error)
	FindByID(ctx context.Context, id int64) (*domain.Workflow, error)
	FindAll(ctx context.Context) ([]domain.Workflow, error)
	Save(ctx context.Context, wf *domain.Workflow) (int64, error)
}

// LogStore persists the bounded per workflow log.
type LogStore interface {
	AppendLog(ctx context.Context, workflowID int64, line string, max int) error
}

// ExecutionRepo defines persistence for action execution rows.
type ExecutionRepo interface {
	Save(ctx context.Context, e *domain.ActionExecution) (int64, error)
	CountByWorkflowID(ctx context.Context, workflowID int64) (int, error)
	FindByWorkflowID(ctx context.Context, workflowID int64, limit int) ([]domain.ActionExecution, error)
}

// ExecutorRepo defines the interface for executor persistence.
type ExecutorRepo interface {
	Save(ctx context.Context, e *domain.Executor) (int64, error)
	UpdateLastActive(ctx context.Context, id int64, ts time.Time) error
	GetExecutorsByLastActive(ctx context.Context, limit int) ([]*domain.Executor, error)
}

// ApiClientRepo defines the interface for API client persistence.
type ApiClientRepo interface {
	FindByKeyID(ctx context.Context, keyID string) (*domain.ApiClient, error)
	Save(ctx context.Context, c *domain.ApiClient) (int64, error)
	Issue(ctx context.Context, name string) (*domain.ApiClient, string, error)
}
