package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type JobKind string

const (
	JobMatch   JobKind = "match"
	JobExecute JobKind = "execute"
)

// MaxAttempts bounds redelivery of a job whose handler returned an error.
const MaxAttempts = 3

// Job is the unit of work crossing the dispatch boundary. It only carries plain data so
// it can be serialised; the entity is reloaded by id when its type has a loader.
type Job struct {
	ID                string             `json:"id"`
	Kind              JobKind            `json:"kind"`
	Trigger           domain.TriggerKind `json:"trigger"`
	EntityType        string             `json:"entityType,omitempty"`
	EntityID          string             `json:"entityId,omitempty"`
	ModelEvent        domain.ModelEvent  `json:"modelEvent,omitempty"`
	ChangedAttributes []string           `json:"changedAttributes,omitempty"`
	Attributes        map[string]any     `json:"attributes,omitempty"`
	EventType         string             `json:"eventType,omitempty"`
	Payload           map[string]any     `json:"payload,omitempty"`
	ScheduleID        string             `json:"scheduleId,omitempty"`
	WorkflowID        int64              `json:"workflowId,omitempty"`
	Attempt           int                `json:"attempt"`
	Created           time.Time          `json:"created"`
}

// ForWorkflow derives the execute job for a workflow matched by this match job.
func (j Job) ForWorkflow(workflowID int64) Job {
	next := j
	next.ID = uuid.NewString()
	next.Kind = JobExecute
	next.WorkflowID = workflowID
	next.Attempt = 0
	return next
}

type JobHandler func(ctx context.Context, job Job) error

// Dispatcher delivers jobs to workers at least once. No ordering is promised between jobs.
type Dispatcher interface {
	Submit(ctx context.Context, job Job) error
	Start(ctx context.Context, workers int, handle JobHandler)
	Pending() int
}

// MemoryDispatcher is a buffered channel consumed by a pool of Worker goroutines.
// Submits from outside the pool block while the channel is full. Jobs submitted by a
// worker, and redeliveries, never block: they wait in an unbounded overflow that a pump
// goroutine feeds into the channel, so a full queue cannot stall the workers draining it.
type MemoryDispatcher struct {
	queue    chan Job
	mu       sync.Mutex
	overflow []Job
	wake     chan struct{}
}

func NewMemoryDispatcher(size int) *MemoryDispatcher {
	if size <= 0 {
		size = 100 // fallback default
	}
	return &MemoryDispatcher{queue: make(chan Job, size), wake: make(chan struct{}, 1)}
}

func (d *MemoryDispatcher) Submit(ctx context.Context, job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if inWorker(ctx) {
		d.enqueue(job)
		return nil
	}
	select {
	case d.queue <- job:
		return nil
	case <-ctx.Done():
		return errors.WithMessagef(ctx.Err(), "submit job %s", job.ID)
	}
}

func (d *MemoryDispatcher) Start(ctx context.Context, workers int, handle JobHandler) {
	slog.InfoContext(ctx, "Starting memory dispatcher", "workers", workers, "queue_size", cap(d.queue))
	go d.pump(ctx)
	for i := 0; i < workers; i++ {
		go Worker(ctx, i, d.queue, handle, d.redeliver)
	}
}

func (d *MemoryDispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue) + len(d.overflow)
}

func (d *MemoryDispatcher) redeliver(_ context.Context, job Job) {
	d.enqueue(job)
}

// enqueue hands job to the channel when it has room and nothing is waiting ahead of
// it, and parks it in the overflow otherwise.
func (d *MemoryDispatcher) enqueue(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.overflow) == 0 {
		select {
		case d.queue <- job:
			return
		default:
		}
	}
	d.overflow = append(d.overflow, job)
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// pump moves overflow jobs into the channel, oldest first, until ctx is cancelled.
func (d *MemoryDispatcher) pump(ctx context.Context) {
	for {
		d.mu.Lock()
		if len(d.overflow) == 0 {
			d.mu.Unlock()
			select {
			case <-d.wake:
				continue
			case <-ctx.Done():
				return
			}
		}
		job := d.overflow[0]
		d.mu.Unlock()

		select {
		case d.queue <- job:
			d.mu.Lock()
			d.overflow = d.overflow[1:]
			d.mu.Unlock()
		case <-ctx.Done():
			if n := d.Pending(); n > 0 {
				slog.Warn("Memory dispatcher stopped with pending jobs", "pending", n)
			}
			return
		}
	}
}

// inWorker reports whether ctx belongs to a job running on a worker.
func inWorker(ctx context.Context) bool {
	_, ok := ctx.Value(core.CtxKeyWorkerId).(int)
	return ok
}
