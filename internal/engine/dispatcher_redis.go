package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisPollTimeout = 5 * time.Second

// RedisDispatcher keeps jobs in a Redis list. A job is moved to this executor's
// processing list while it runs and removed once handled, so jobs interrupted by a
// crash are pushed back to the queue on the next start.
type RedisDispatcher struct {
	client     redis.Cmdable
	queue      string
	processing string
}

// NewRedisDispatcher creates a dispatcher on queue. executorName must be stable across
// restarts of the same executor for interrupted jobs to be recovered.
func NewRedisDispatcher(client redis.Cmdable, queue, executorName string) *RedisDispatcher {
	return &RedisDispatcher{
		client:     client,
		queue:      queue,
		processing: queue + ":processing:" + executorName,
	}
}

func (d *RedisDispatcher) Submit(ctx context.Context, job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return errors.WithMessagef(err, "encode job %s", job.ID)
	}
	if err := d.client.LPush(ctx, d.queue, body).Err(); err != nil {
		return errors.WithMessagef(err, "push job %s to %s", job.ID, d.queue)
	}
	return nil
}

func (d *RedisDispatcher) Start(ctx context.Context, workers int, handle JobHandler) {
	recovered := d.requeueInterrupted(ctx)
	slog.InfoContext(ctx, "Starting redis dispatcher", "workers", workers, "queue", d.queue, "recovered", recovered)
	for i := 0; i < workers; i++ {
		go d.consume(ctx, i, handle)
	}
}

func (d *RedisDispatcher) Pending() int {
	n, err := d.client.LLen(context.Background(), d.queue).Result()
	if err != nil {
		slog.Error("Failed to read redis queue length", "queue", d.queue, "error", err)
		return 0
	}
	return int(n)
}

// requeueInterrupted moves jobs left in the processing list back onto the queue.
func (d *RedisDispatcher) requeueInterrupted(ctx context.Context) int {
	count := 0
	for {
		err := d.client.RPopLPush(ctx, d.processing, d.queue).Err()
		if errors.Is(err, redis.Nil) {
			return count
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to recover interrupted jobs", "processing", d.processing, "error", err)
			return count
		}
		count++
	}
}

func (d *RedisDispatcher) consume(ctx context.Context, id int, handle JobHandler) {
	for {
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Redis worker stopping due to context cancel", "worker_id", id)
			return
		}
		raw, err := d.client.BLMove(ctx, d.queue, d.processing, "RIGHT", "LEFT", redisPollTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() == nil {
				slog.ErrorContext(ctx, "Failed to read from redis queue", "queue", d.queue, "error", err)
				time.Sleep(time.Second)
			}
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			slog.ErrorContext(ctx, "Dropping undecodable job", "queue", d.queue, "error", err)
			d.ack(raw)
			continue
		}

		if err := process(ctx, id, job, handle); err != nil && job.Attempt+1 < MaxAttempts {
			job.Attempt++
			if err := d.Submit(context.Background(), job); err != nil {
				slog.Error("Failed to redeliver job", "job_id", job.ID, "error", err)
				continue // stays in processing, recovered on restart
			}
		}
		d.ack(raw)
	}
}

// ack removes a handled job from the processing list. It uses its own context so a
// cancelled worker still acknowledges the job it just finished.
func (d *RedisDispatcher) ack(raw string) {
	if err := d.client.LRem(context.Background(), d.processing, 1, raw).Err(); err != nil {
		slog.Error("Failed to acknowledge job", "processing", d.processing, "error", err)
	}
}
