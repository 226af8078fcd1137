package controllers

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/RealZimboGuy/gophertrigger/internal/engine"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"golang.org/x/crypto/bcrypt"
)

// MockApiClientRepo implements engine.ApiClientRepo for testing
type MockApiClientRepo struct {
	FindByKeyIDFunc func(keyID string) (*domain.ApiClient, error)
	SaveFunc        func(c *domain.ApiClient) (int64, error)
	IssueFunc       func(name string) (*domain.ApiClient, string, error)
}

func (m *MockApiClientRepo) FindByKeyID(_ context.Context, keyID string) (*domain.ApiClient, error) {
	if m.FindByKeyIDFunc != nil {
		return m.FindByKeyIDFunc(keyID)
	}
	return nil, nil
}
func (m *MockApiClientRepo) Save(_ context.Context, c *domain.ApiClient) (int64, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(c)
	}
	return 0, nil
}
func (m *MockApiClientRepo) Issue(_ context.Context, name string) (*domain.ApiClient, string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(name)
	}
	return nil, "", nil
}

const testKey = "key1.secret"

// authorizedRepo accepts testKey.
func authorizedRepo(t *testing.T) *MockApiClientRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &MockApiClientRepo{FindByKeyIDFunc: func(keyID string) (*domain.ApiClient, error) {
		if keyID != "key1" {
			return nil, nil
		}
		return &domain.ApiClient{ID: 1, Name: "shop", KeyID: "key1", KeyHash: string(hash),
			Enabled: sql.NullBool{Bool: true, Valid: true}}, nil
	}}
}

func withKey(r *http.Request) *http.Request {
	r.Header.Set("X-API-Key", testKey)
	return r
}

// MockWorkflowStore implements WorkflowStore for testing
type MockWorkflowStore struct {
	FindByIDFunc func(id int64) (*domain.Workflow, error)
	FindAllFunc  func() ([]domain.Workflow, error)
	SaveFunc     func(wf *domain.Workflow) (int64, error)
	GetLogsFunc  func(id int64) ([]string, error)
	DeleteFunc   func(id int64) error
}

func (m *MockWorkflowStore) FindByModelTypeAndEvent(context.Context, string, domain.ModelEvent) ([]domain.Workflow, error) {
	return nil, nil
}
func (m *MockWorkflowStore) FindByTrigger(context.Context, domain.TriggerKind, string) ([]domain.Workflow, error) {
	return nil, nil
}
func (m *MockWorkflowStore) FindByID(_ context.Context, id int64) (*domain.Workflow, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(id)
	}
	return nil, nil
}
func (m *MockWorkflowStore) FindAll(context.Context) ([]domain.Workflow, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc()
	}
	return nil, nil
}
func (m *MockWorkflowStore) Save(_ context.Context, wf *domain.Workflow) (int64, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(wf)
	}
	return 1, nil
}
func (m *MockWorkflowStore) GetLogs(_ context.Context, id int64) ([]string, error) {
	if m.GetLogsFunc != nil {
		return m.GetLogsFunc(id)
	}
	return nil, nil
}
func (m *MockWorkflowStore) Delete(_ context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(id)
	}
	return nil
}

// MockExecutionRepo implements engine.ExecutionRepo for testing
type MockExecutionRepo struct {
	FindByWorkflowIDFunc func(id int64, limit int) ([]domain.ActionExecution, error)
}

func (m *MockExecutionRepo) Save(context.Context, *domain.ActionExecution) (int64, error) { return 1, nil }
func (m *MockExecutionRepo) CountByWorkflowID(context.Context, int64) (int, error)       { return 0, nil }
func (m *MockExecutionRepo) FindByWorkflowID(_ context.Context, id int64, limit int) ([]domain.ActionExecution, error) {
	if m.FindByWorkflowIDFunc != nil {
		return m.FindByWorkflowIDFunc(id, limit)
	}
	return nil, nil
}

type MockTester struct {
	TestWorkflowFunc func(id int64, req engine.TestRequest) (engine.TestReport, error)
}

func (m *MockTester) TestWorkflow(_ context.Context, id int64, req engine.TestRequest) (engine.TestReport, error) {
	return m.TestWorkflowFunc(id, req)
}

type MockRaiser struct {
	RaiseModelEventFunc   func(entityType, entityID string, event domain.ModelEvent, changed []string, attributes map[string]any) (string, error)
	RaiseCustomEventFunc  func(eventType string, payload map[string]any) (string, error)
	RaiseScheduleTickFunc func(scheduleID string) (string, error)
}

func (m *MockRaiser) RaiseModelEvent(_ context.Context, entityType, entityID string, event domain.ModelEvent, changed []string, attributes map[string]any) (string, error) {
	return m.RaiseModelEventFunc(entityType, entityID, event, changed, attributes)
}
func (m *MockRaiser) RaiseCustomEvent(_ context.Context, eventType string, payload map[string]any) (string, error) {
	return m.RaiseCustomEventFunc(eventType, payload)
}
func (m *MockRaiser) RaiseScheduleTick(_ context.Context, scheduleID string) (string, error) {
	return m.RaiseScheduleTickFunc(scheduleID)
}

type MockEngineStatus struct {
	ListExecutorsFunc func(limit int) ([]*domain.Executor, error)
}

func (m *MockEngineStatus) ExecutorID() int64 { return 3 }
func (m *MockEngineStatus) PendingJobs() int  { return 2 }
func (m *MockEngineStatus) ListExecutors(_ context.Context, limit int) ([]*domain.Executor, error) {
	return m.ListExecutorsFunc(limit)
}
