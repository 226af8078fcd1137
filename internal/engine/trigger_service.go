package engine

import (
	"context"
	"log/slog"
	"slices"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TestRequest drives a manual evaluation of one workflow.
type TestRequest struct {
	EntityID                 string
	Attributes               map[string]any
	SimulateAttributeChanges []string
	ExecuteActions           bool
}

// TriggerService is the boundary the surrounding system raises triggers through. Raising
// only enqueues a match job; matching and executing happen on the workers.
type TriggerService struct {
	dispatcher Dispatcher
	matcher    *Matcher
	pipeline   *Pipeline
	workflows  WorkflowRepo
	entities   *EntityRegistry
	clock      core.Clock
}

func NewTriggerService(dispatcher Dispatcher, matcher *Matcher, pipeline *Pipeline, workflows WorkflowRepo,
	entities *EntityRegistry, clock core.Clock) *TriggerService {
	return &TriggerService{
		dispatcher: dispatcher,
		matcher:    matcher,
		pipeline:   pipeline,
		workflows:  workflows,
		entities:   entities,
		clock:      clock,
	}
}

// RaiseModelEvent enqueues matching for an entity lifecycle event and returns the job id.
// attributes is the entity snapshot, used when its type has no loader or was deleted.
func (s *TriggerService) RaiseModelEvent(ctx context.Context, entityType, entityID string, event domain.ModelEvent,
	changed []string, attributes map[string]any) (string, error) {
	switch event {
	case domain.ModelEventCreated, domain.ModelEventUpdated, domain.ModelEventDeleted:
	default:
		return "", errors.WithMessagef(ErrInvalidTrigger, "unknown model event %q", event)
	}
	if _, err := s.entities.Get(entityType); err != nil {
		return "", err
	}
	if entityID == "" {
		return "", errors.WithMessage(ErrInvalidTrigger, "entity id is required")
	}
	return s.submit(ctx, Job{
		Trigger:           domain.TriggerModelEvent,
		EntityType:        entityType,
		EntityID:          entityID,
		ModelEvent:        event,
		ChangedAttributes: changed,
		Attributes:        attributes,
	})
}

func (s *TriggerService) RaiseCustomEvent(ctx context.Context, eventType string, payload map[string]any) (string, error) {
	if eventType == "" {
		return "", errors.WithMessage(ErrInvalidTrigger, "event type is required")
	}
	return s.submit(ctx, Job{Trigger: domain.TriggerCustomEvent, EventType: eventType, Payload: payload})
}

func (s *TriggerService) RaiseScheduleTick(ctx context.Context, scheduleID string) (string, error) {
	if scheduleID == "" {
		return "", errors.WithMessage(ErrInvalidTrigger, "schedule id is required")
	}
	return s.submit(ctx, Job{Trigger: domain.TriggerScheduled, ScheduleID: scheduleID})
}

func (s *TriggerService) submit(ctx context.Context, job Job) (string, error) {
	job.ID = uuid.NewString()
	job.Kind = JobMatch
	job.Created = s.clock.Now()
	if err := s.dispatcher.Submit(ctx, job); err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Trigger raised", "job_id", job.ID, "trigger", job.Trigger, "entity_type", job.EntityType,
		"event_type", job.EventType, "schedule_id", job.ScheduleID)
	return job.ID, nil
}

// HandleJob is the JobHandler workers run. A returned error asks the dispatcher to
// redeliver the job.
func (s *TriggerService) HandleJob(ctx context.Context, job Job) error {
	switch job.Kind {
	case JobMatch:
		return s.handleMatch(ctx, job)
	case JobExecute:
		return s.handleExecute(ctx, job)
	}
	slog.ErrorContext(ctx, "Dropping job of unknown kind", "job_id", job.ID, "kind", job.Kind)
	return nil
}

func (s *TriggerService) handleMatch(ctx context.Context, job Job) error {
	tc := s.context(ctx, job)
	matched, err := s.matcher.Match(ctx, tc)
	if err != nil {
		return err
	}
	for _, wf := range matched {
		next := job.ForWorkflow(wf.ID)
		next.Created = s.clock.Now()
		if err := s.dispatcher.Submit(ctx, next); err != nil {
			return errors.WithMessagef(err, "dispatch workflow %d", wf.ID)
		}
	}
	return nil
}

func (s *TriggerService) handleExecute(ctx context.Context, job Job) error {
	wf, err := s.workflows.FindByID(ctx, job.WorkflowID)
	if err != nil {
		return errors.WithMessagef(ErrRepositoryUnavailable, "load workflow %d: %v", job.WorkflowID, err)
	}
	if wf == nil {
		slog.WarnContext(ctx, "Workflow removed before execution", "workflow_id", job.WorkflowID, "job_id", job.ID)
		return nil
	}
	s.pipeline.Execute(ctx, wf, s.context(ctx, job))
	return nil
}

// context rebuilds the triggering context of a job. Model event entities are reloaded
// through their type's loader; the snapshot is used for deletes, for types without a
// loader and when the reload fails.
func (s *TriggerService) context(ctx context.Context, job Job) *core.TriggeringContext {
	tc := &core.TriggeringContext{
		Kind:              job.Trigger,
		EntityType:        job.EntityType,
		EntityID:          job.EntityID,
		ModelEvent:        job.ModelEvent,
		ChangedAttributes: slices.Clone(job.ChangedAttributes),
		EventType:         job.EventType,
		EventData:         job.Payload,
		ScheduleID:        job.ScheduleID,
	}
	if job.Trigger != domain.TriggerModelEvent {
		return tc
	}
	tc.Entity = core.MapSource(job.Attributes)
	if job.ModelEvent == domain.ModelEventDeleted {
		return tc
	}
	et, err := s.entities.Get(job.EntityType)
	if err != nil || et.Loader == nil {
		return tc
	}
	entity, err := et.Loader(ctx, job.EntityID)
	if err != nil {
		slog.WarnContext(ctx, "Entity reload failed, using snapshot", "entity_type", job.EntityType, "entity_id", job.EntityID, "error", err)
		return tc
	}
	tc.Entity = entity
	return tc
}

// TestWorkflow evaluates one workflow against a chosen entity or payload without
// dispatching. Actions only run when requested and when the workflow matched.
func (s *TriggerService) TestWorkflow(ctx context.Context, workflowID int64, req TestRequest) (TestReport, error) {
	wf, err := s.workflows.FindByID(ctx, workflowID)
	if err != nil {
		return TestReport{}, errors.WithMessagef(ErrRepositoryUnavailable, "load workflow %d: %v", workflowID, err)
	}
	if wf == nil {
		return TestReport{}, errors.WithMessagef(ErrWorkflowNotFound, "workflow %d", workflowID)
	}

	job := Job{Trigger: wf.TriggerKind}
	switch wf.TriggerKind {
	case domain.TriggerModelEvent:
		job.EntityType = wf.ModelType
		job.EntityID = req.EntityID
		job.ModelEvent = wf.ModelEvent
		job.ChangedAttributes = req.SimulateAttributeChanges
		job.Attributes = req.Attributes
	case domain.TriggerCustomEvent:
		job.EventType = wf.CustomEvent
		job.Payload = req.Attributes
	case domain.TriggerScheduled:
		job.ScheduleID = wf.ScheduleID
	}
	tc := s.context(ctx, job)

	report := s.matcher.Test(ctx, wf, tc)
	if req.ExecuteActions && report.Matched {
		report.Outcomes = s.pipeline.Execute(ctx, wf, tc)
	}
	return report, nil
}
