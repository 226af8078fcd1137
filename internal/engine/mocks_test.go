package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/RealZimboGuy/gophertrigger/internal/testutil"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
)

// MockWorkflowRepo implements WorkflowRepo for testing
type MockWorkflowRepo struct {
	FindByModelTypeAndEventFunc func(modelType string, event domain.ModelEvent) ([]domain.Workflow, error)
	FindByTriggerFunc           func(kind domain.TriggerKind, key string) ([]domain.Workflow, error)
	FindByIDFunc                func(id int64) (*domain.Workflow, error)
	FindAllFunc                 func() ([]domain.Workflow, error)
	SaveFunc                    func(wf *domain.Workflow) (int64, error)
}

func (m *MockWorkflowRepo) FindByModelTypeAndEvent(_ context.Context, modelType string, event domain.ModelEvent) ([]domain.Workflow, error) {
	if m.FindByModelTypeAndEventFunc != nil {
		return m.FindByModelTypeAndEventFunc(modelType, event)
	}
	return nil, nil
}
func (m *MockWorkflowRepo) FindByTrigger(_ context.Context, kind domain.TriggerKind, key string) ([]domain.Workflow, error) {
	if m.FindByTriggerFunc != nil {
		return m.FindByTriggerFunc(kind, key)
	}
	return nil, nil
}
func (m *MockWorkflowRepo) FindByID(_ context.Context, id int64) (*domain.Workflow, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(id)
	}
	return nil, nil
}
func (m *MockWorkflowRepo) FindAll(_ context.Context) ([]domain.Workflow, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc()
	}
	return nil, nil
}
func (m *MockWorkflowRepo) Save(_ context.Context, wf *domain.Workflow) (int64, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(wf)
	}
	return 1, nil
}

// fixedWorkflows serves the same workflows for every lookup.
func fixedWorkflows(wfs ...domain.Workflow) *MockWorkflowRepo {
	return &MockWorkflowRepo{
		FindByModelTypeAndEventFunc: func(string, domain.ModelEvent) ([]domain.Workflow, error) { return wfs, nil },
		FindByTriggerFunc:           func(domain.TriggerKind, string) ([]domain.Workflow, error) { return wfs, nil },
		FindByIDFunc: func(id int64) (*domain.Workflow, error) {
			for i := range wfs {
				if wfs[i].ID == id {
					wf := wfs[i]
					return &wf, nil
				}
			}
			return nil, nil
		},
	}
}

// MockExecutorRepo implements ExecutorRepo for testing
type MockExecutorRepo struct {
	SaveFunc             func(e *domain.Executor) (int64, error)
	UpdateLastActiveFunc func(id int64, ts time.Time) error
}

func (m *MockExecutorRepo) Save(_ context.Context, e *domain.Executor) (int64, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(e)
	}
	return 1, nil
}
func (m *MockExecutorRepo) UpdateLastActive(_ context.Context, id int64, ts time.Time) error {
	if m.UpdateLastActiveFunc != nil {
		return m.UpdateLastActiveFunc(id, ts)
	}
	return nil
}
func (m *MockExecutorRepo) GetExecutorsByLastActive(_ context.Context, limit int) ([]*domain.Executor, error) {
	return nil, nil
}

type fixture struct {
	clock      *testutil.FakeClock
	logs       *testutil.MemoryLogStore
	executions *testutil.MemoryExecutionRepo
	log        *ExecutionLog
	actions    *ActionRegistry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := testutil.NewFakeClock(time.Date(2024, 1, 2, 15, 4, 0, 0, time.UTC))
	logs := testutil.NewMemoryLogStore()
	return &fixture{
		clock:      clock,
		logs:       logs,
		executions: testutil.NewMemoryExecutionRepo(),
		log:        NewExecutionLog(logs, clock, 100),
		actions:    NewActionRegistry(nil),
	}
}

func (f *fixture) matcher(repo WorkflowRepo) *Matcher {
	return NewMatcher(repo, f.executions, f.log)
}

func (f *fixture) pipeline() *Pipeline {
	return NewPipeline(f.actions, f.executions, f.log, f.clock)
}

func containsLine(lines []string, fragment string) bool {
	for _, l := range lines {
		if strings.Contains(l, fragment) {
			return true
		}
	}
	return false
}
