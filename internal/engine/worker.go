package engine

import (
	"context"
	"log/slog"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/pkg/errors"
)

// Worker function that processes jobs from the queue
func Worker(ctx context.Context, id int, queue <-chan Job, handle JobHandler, redeliver func(context.Context, Job)) {
	ctx = context.WithValue(ctx, core.CtxKeyWorkerId, id)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Worker stopping due to context cancel", "worker_id", id)
			return
		case job := <-queue: // blocks until a job arrives
			if err := process(ctx, id, job, handle); err != nil && job.Attempt+1 < MaxAttempts {
				job.Attempt++
				redeliver(ctx, job)
			}
		}
	}
}

// process runs one job, recovering a panicking handler.
func process(ctx context.Context, workerID int, job Job, handle JobHandler) (err error) {
	ctx = context.WithValue(ctx, core.CtxKeyJobId, job.ID)
	slog.InfoContext(ctx, "Worker starting job", "worker_id", workerID, "job_id", job.ID, "kind", job.Kind, "attempt", job.Attempt)
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("job %s panicked: %v", job.ID, r)
		}
		if err != nil {
			slog.ErrorContext(ctx, "Worker job failed", "worker_id", workerID, "job_id", job.ID, "attempt", job.Attempt, "error", err)
			return
		}
		slog.InfoContext(ctx, "Worker finished job", "worker_id", workerID, "job_id", job.ID)
	}()
	return handle(ctx, job)
}
