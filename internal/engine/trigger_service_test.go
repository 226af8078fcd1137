package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RealZimboGuy/gophertrigger/internal/testutil"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []Job
}

func (d *recordingDispatcher) Submit(_ context.Context, job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return nil
}
func (d *recordingDispatcher) Start(context.Context, int, JobHandler) {}
func (d *recordingDispatcher) Pending() int                           { return len(d.jobs) }

func newService(t *testing.T, f *fixture, repo WorkflowRepo, d Dispatcher) *TriggerService {
	t.Helper()
	entities := NewEntityRegistry()
	_ = entities.Register(core.EntityType{Name: "user", Fields: []string{"email", "status"}})
	return NewTriggerService(d, f.matcher(repo), f.pipeline(), repo, entities, f.clock)
}

func TestRaiseModelEvent_OnlyEnqueues(t *testing.T) {
	f := newFixture(t)
	called := false
	repo := &MockWorkflowRepo{FindByModelTypeAndEventFunc: func(string, domain.ModelEvent) ([]domain.Workflow, error) {
		called = true
		return nil, nil
	}}
	d := &recordingDispatcher{}
	s := newService(t, f, repo, d)

	id, err := s.RaiseModelEvent(context.Background(), "user", "7", domain.ModelEventUpdated, []string{"email"}, map[string]any{"email": "a@b.com"})
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	if called {
		t.Errorf("matching must not happen in the raising call")
	}
	if len(d.jobs) != 1 || d.jobs[0].ID != id || d.jobs[0].Kind != JobMatch {
		t.Fatalf("expected one match job, got %+v", d.jobs)
	}
}

func TestRaise_Rejections(t *testing.T) {
	f := newFixture(t)
	s := newService(t, f, &MockWorkflowRepo{}, &recordingDispatcher{})
	ctx := context.Background()

	if _, err := s.RaiseModelEvent(ctx, "order", "1", domain.ModelEventCreated, nil, nil); !errors.Is(err, ErrEntityTypeNotFound) {
		t.Errorf("expected ErrEntityTypeNotFound, got %v", err)
	}
	if _, err := s.RaiseModelEvent(ctx, "user", "1", "archived", nil, nil); !errors.Is(err, ErrInvalidTrigger) {
		t.Errorf("expected ErrInvalidTrigger, got %v", err)
	}
	if _, err := s.RaiseCustomEvent(ctx, "", nil); !errors.Is(err, ErrInvalidTrigger) {
		t.Errorf("expected ErrInvalidTrigger, got %v", err)
	}
	if _, err := s.RaiseScheduleTick(ctx, ""); !errors.Is(err, ErrInvalidTrigger) {
		t.Errorf("expected ErrInvalidTrigger, got %v", err)
	}
}

func TestHandleMatch_DispatchesExecutePerWorkflow(t *testing.T) {
	f := newFixture(t)
	repo := fixedWorkflows(
		userWorkflow(1, domain.ConditionTypeNoConditionIsRequired),
		userWorkflow(2, domain.ConditionTypeAllConditionsAreTrue, cond("status", domain.OperatorEqual, "banned")),
		userWorkflow(3, domain.ConditionTypeAllConditionsAreTrue, cond("status", domain.OperatorEqual, "pending")),
	)
	d := &recordingDispatcher{}
	s := newService(t, f, repo, d)

	job := Job{ID: "m1", Kind: JobMatch, Trigger: domain.TriggerModelEvent, EntityType: "user", EntityID: "7",
		ModelEvent: domain.ModelEventUpdated, Attributes: map[string]any{"status": "pending"}}
	if err := s.HandleJob(context.Background(), job); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(d.jobs) != 2 || d.jobs[0].WorkflowID != 1 || d.jobs[1].WorkflowID != 3 {
		t.Fatalf("expected execute jobs for workflows 1 and 3, got %+v", d.jobs)
	}
	for _, j := range d.jobs {
		if j.Kind != JobExecute || j.ID == "m1" || j.EntityID != "7" {
			t.Errorf("unexpected execute job %+v", j)
		}
	}
}

func TestHandleMatch_RepositoryFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	repo := &MockWorkflowRepo{FindByTriggerFunc: func(domain.TriggerKind, string) ([]domain.Workflow, error) {
		return nil, errors.New("db down")
	}}
	s := newService(t, f, repo, &recordingDispatcher{})
	err := s.HandleJob(context.Background(), Job{Kind: JobMatch, Trigger: domain.TriggerScheduled, ScheduleID: "nightly"})
	if !errors.Is(err, ErrRepositoryUnavailable) {
		t.Fatalf("expected ErrRepositoryUnavailable, got %v", err)
	}
}

func TestContext_ReloadsEntityThroughLoader(t *testing.T) {
	f := newFixture(t)
	entities := NewEntityRegistry()
	_ = entities.Register(core.EntityType{Name: "user", Loader: func(_ context.Context, id string) (core.AttributeSource, error) {
		return core.MapSource{"id": id, "status": "fresh"}, nil
	}})
	s := NewTriggerService(&recordingDispatcher{}, nil, nil, &MockWorkflowRepo{}, entities, f.clock)

	tc := s.context(context.Background(), Job{Trigger: domain.TriggerModelEvent, EntityType: "user", EntityID: "7",
		ModelEvent: domain.ModelEventUpdated, Attributes: map[string]any{"status": "stale"}})
	if v, _ := tc.Entity.Get("status"); v != "fresh" {
		t.Errorf("expected reloaded entity, got %v", v)
	}

	tc = s.context(context.Background(), Job{Trigger: domain.TriggerModelEvent, EntityType: "user", EntityID: "7",
		ModelEvent: domain.ModelEventDeleted, Attributes: map[string]any{"status": "stale"}})
	if v, _ := tc.Entity.Get("status"); v != "stale" {
		t.Errorf("expected snapshot for deleted entity, got %v", v)
	}
}

func TestEndToEnd_MemoryDispatcher(t *testing.T) {
	f := newFixture(t)
	done := make(chan map[string]any, 1)
	register(t, f.actions, &testutil.FuncAction{ActionID: "notify", Magic: []string{"body"}, ExecuteFunc: func(_ context.Context, data map[string]any, _ core.Execution, _ core.AttributeSource, _ map[string]any, _ map[string]any) error {
		done <- data
		return nil
	}})

	wf := domain.Workflow{ID: 5, Name: "paid", TriggerKind: domain.TriggerCustomEvent, CustomEvent: "order.paid", Active: true,
		ConditionType: domain.ConditionTypeNoConditionIsRequired,
		Actions:       []domain.ActionSpec{{ID: 1, ActionID: "notify", Data: map[string]any{"body": "Order @event->id@ paid"}}}}
	d := NewMemoryDispatcher(10)
	s := newService(t, f, fixedWorkflows(wf), d)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx, 2, s.HandleJob)

	if _, err := s.RaiseCustomEvent(ctx, "order.paid", map[string]any{"id": "A-9"}); err != nil {
		t.Fatalf("raise: %v", err)
	}
	select {
	case data := <-done:
		if data["body"] != "Order A-9 paid" {
			t.Errorf("unexpected body %v", data["body"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("action did not run")
	}
}

func TestWorker_RedeliversFailedJobs(t *testing.T) {
	d := NewMemoryDispatcher(10)
	var mu sync.Mutex
	attempts := 0
	finished := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx, 1, func(_ context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < MaxAttempts {
			return errors.New("transient")
		}
		close(finished)
		return nil
	})
	_ = d.Submit(ctx, Job{ID: "j1", Kind: JobMatch})

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not redelivered")
	}
	mu.Lock()
	defer mu.Unlock()
	if attempts != MaxAttempts {
		t.Errorf("expected %d attempts, got %d", MaxAttempts, attempts)
	}
}

func TestTestWorkflow_ExecutesWhenRequested(t *testing.T) {
	f := newFixture(t)
	ran := false
	register(t, f.actions, &testutil.FuncAction{ActionID: "notify", ExecuteFunc: func(context.Context, map[string]any, core.Execution, core.AttributeSource, map[string]any, map[string]any) error {
		ran = true
		return nil
	}})
	wf := userWorkflow(1, domain.ConditionTypeAllConditionsAreTrue, cond("status", domain.OperatorEqual, "active"))
	wf.ModelComparison = domain.ComparisonSpecified
	wf.ModelAttribute = "status"
	wf.Actions = []domain.ActionSpec{{ID: 1, ActionID: "notify"}}
	s := newService(t, f, fixedWorkflows(wf), &recordingDispatcher{})

	report, err := s.TestWorkflow(context.Background(), 1, TestRequest{
		EntityID:                 "7",
		Attributes:               map[string]any{"status": "active"},
		SimulateAttributeChanges: []string{"status"},
		ExecuteActions:           true,
	})
	if err != nil {
		t.Fatalf("test workflow: %v", err)
	}
	if !report.Matched || !ran || len(report.Outcomes) != 1 {
		t.Fatalf("expected match and execution, got %+v (ran=%v)", report, ran)
	}

	if _, err := s.TestWorkflow(context.Background(), 99, TestRequest{}); !errors.Is(err, ErrWorkflowNotFound) {
		t.Errorf("expected ErrWorkflowNotFound, got %v", err)
	}
}

func TestMemoryDispatcher_FullQueueDoesNotStallMatching(t *testing.T) {
	f := newFixture(t)
	ran := make(chan string, 4)
	register(t, f.actions, &testutil.FuncAction{ActionID: "notify", ExecuteFunc: func(_ context.Context, _ map[string]any, _ core.Execution, _ core.AttributeSource, eventData map[string]any, _ map[string]any) error {
		ran <- eventData["id"].(string)
		return nil
	}})

	wf := domain.Workflow{ID: 5, Name: "paid", TriggerKind: domain.TriggerCustomEvent, CustomEvent: "order.paid", Active: true,
		ConditionType: domain.ConditionTypeNoConditionIsRequired,
		Actions:       []domain.ActionSpec{{ID: 1, ActionID: "notify"}}}
	repo := fixedWorkflows(wf)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	repo.FindByTriggerFunc = func(domain.TriggerKind, string) ([]domain.Workflow, error) {
		once.Do(func() {
			close(entered)
			<-release
		})
		return []domain.Workflow{wf}, nil
	}

	d := NewMemoryDispatcher(1)
	s := newService(t, f, repo, d)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx, 1, s.HandleJob)

	if _, err := s.RaiseCustomEvent(ctx, "order.paid", map[string]any{"id": "A-1"}); err != nil {
		t.Fatalf("raise: %v", err)
	}
	<-entered
	// the only worker is busy, this fills the queue
	if _, err := s.RaiseCustomEvent(ctx, "order.paid", map[string]any{"id": "A-2"}); err != nil {
		t.Fatalf("raise: %v", err)
	}
	close(release)

	got := map[string]bool{}
	for len(got) < 2 {
		select {
		case id := <-ran:
			got[id] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("actions stalled with %d pending jobs, ran %v", d.Pending(), got)
		}
	}
}

func TestMemoryDispatcher_RedeliversWhileQueueIsFull(t *testing.T) {
	d := NewMemoryDispatcher(1)
	entered := make(chan struct{})
	release := make(chan struct{})
	handled := make(chan Job, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx, 1, func(_ context.Context, job Job) error {
		if job.ID == "a" && job.Attempt == 0 {
			close(entered)
			<-release
			return errors.New("repository down")
		}
		handled <- job
		return nil
	})

	_ = d.Submit(ctx, Job{ID: "a", Kind: JobMatch})
	<-entered
	_ = d.Submit(ctx, Job{ID: "b", Kind: JobMatch})
	close(release)

	seen := map[string]int{}
	for len(seen) < 2 {
		select {
		case job := <-handled:
			seen[job.ID] = job.Attempt
		case <-time.After(2 * time.Second):
			t.Fatalf("redelivery was lost, handled %v, pending %d", seen, d.Pending())
		}
	}
	if seen["a"] != 1 {
		t.Errorf("expected job a on its second attempt, got attempt %d", seen["a"])
	}
}
