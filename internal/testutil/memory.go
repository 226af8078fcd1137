package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
)

// MemoryLogStore keeps workflow logs in memory with the same trimming as the SQL store.
type MemoryLogStore struct {
	mu   sync.Mutex
	logs map[int64][]string
	Err  error // returned by AppendLog when set, nothing is stored
}

func NewMemoryLogStore() *MemoryLogStore {
	return &MemoryLogStore{logs: make(map[int64][]string)}
}

func (s *MemoryLogStore) AppendLog(_ context.Context, workflowID int64, line string, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.logs[workflowID] = domain.TrimLogs(append(s.logs[workflowID], line), max)
	return nil
}

func (s *MemoryLogStore) Logs(workflowID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.logs[workflowID])
}

// MemoryExecutionRepo stores action executions in memory.
type MemoryExecutionRepo struct {
	mu     sync.Mutex
	rows   []domain.ActionExecution
	Counts map[int64]int // preset counts added to the stored rows
}

func NewMemoryExecutionRepo() *MemoryExecutionRepo {
	return &MemoryExecutionRepo{Counts: make(map[int64]int)}
}

func (r *MemoryExecutionRepo) Save(_ context.Context, e *domain.ActionExecution) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = int64(len(r.rows) + 1)
	r.rows = append(r.rows, *e)
	return e.ID, nil
}

func (r *MemoryExecutionRepo) CountByWorkflowID(_ context.Context, workflowID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.Counts[workflowID]
	for _, row := range r.rows {
		if row.WorkflowID == workflowID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryExecutionRepo) FindByWorkflowID(_ context.Context, workflowID int64, limit int) ([]domain.ActionExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ActionExecution
	for i := len(r.rows) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.rows[i].WorkflowID == workflowID {
			out = append(out, r.rows[i])
		}
	}
	return out, nil
}

func (r *MemoryExecutionRepo) All() []domain.ActionExecution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.rows)
}

// FuncAction is a core.Action whose behaviour is supplied by the test.
type FuncAction struct {
	core.BaseAction
	ActionID     string
	Magic        []string
	FieldList    []core.Field
	NoScheduled  bool
	NoModelEvent bool
	NoCustom     bool
	Packages     []string
	ExecuteFunc  func(ctx context.Context, data map[string]any, exec core.Execution, entity core.AttributeSource, eventData map[string]any, shared map[string]any) error
}

func (a *FuncAction) ID() string                     { return a.ActionID }
func (a *FuncAction) Name() string                   { return "Test " + a.ActionID }
func (a *FuncAction) Fields() []core.Field           { return a.FieldList }
func (a *FuncAction) MagicAttributeFields() []string { return a.Magic }
func (a *FuncAction) UsableWithScheduled() bool      { return !a.NoScheduled }
func (a *FuncAction) UsableWithModelEvent() bool     { return !a.NoModelEvent }
func (a *FuncAction) UsableWithCustomEvent() bool    { return !a.NoCustom }
func (a *FuncAction) RequiredPackages() []string     { return a.Packages }

func (a *FuncAction) Execute(ctx context.Context, data map[string]any, exec core.Execution, entity core.AttributeSource, eventData map[string]any, shared map[string]any) error {
	if a.ExecuteFunc == nil {
		return nil
	}
	return a.ExecuteFunc(ctx, data, exec, entity, eventData, shared)
}
