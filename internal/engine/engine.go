package engine

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/RealZimboGuy/gophertrigger/internal/config"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
)

// Engine wires the matcher, pipeline and dispatcher together and owns the executor
// registration of this process.
type Engine struct {
	Triggers   *TriggerService
	Actions    *ActionRegistry
	Entities   *EntityRegistry
	Workflows  WorkflowRepo
	Executions ExecutionRepo
	executors  ExecutorRepo
	dispatcher Dispatcher
	clock      core.Clock
	executorID int64
}

type Options struct {
	Workflows  WorkflowRepo
	Logs       LogStore
	Executions ExecutionRepo
	Executors  ExecutorRepo
	Dispatcher Dispatcher
	Actions    *ActionRegistry
	Entities   *EntityRegistry
	Clock      core.Clock
	MaxLogs    int
}

func NewEngine(opts Options) *Engine {
	log := NewExecutionLog(opts.Logs, opts.Clock, opts.MaxLogs)
	matcher := NewMatcher(opts.Workflows, opts.Executions, log)
	pipeline := NewPipeline(opts.Actions, opts.Executions, log, opts.Clock)
	return &Engine{
		Triggers:   NewTriggerService(opts.Dispatcher, matcher, pipeline, opts.Workflows, opts.Entities, opts.Clock),
		Actions:    opts.Actions,
		Entities:   opts.Entities,
		Workflows:  opts.Workflows,
		Executions: opts.Executions,
		executors:  opts.Executors,
		dispatcher: opts.Dispatcher,
		clock:      opts.Clock,
	}
}

// Start registers the executor and starts the workers. It returns once the workers run.
func (e *Engine) Start(ctx context.Context) {
	e.registerExecutorInstance(ctx)
	ctx = context.WithValue(ctx, core.CtxKeyExecutorId, e.executorID)

	workers := config.GetSystemSettingInteger(config.ENGINE_EXECUTOR_SIZE)
	if workers <= 0 {
		workers = 5 // fallback default
	}
	e.dispatcher.Start(ctx, workers, e.Triggers.HandleJob)
	slog.InfoContext(ctx, "Trigger engine started", "workers", workers, "executor_id", e.executorID)
}

func (e *Engine) ExecutorID() int64 { return e.executorID }

// ListExecutors returns recent executors ordered by last_active desc.
func (e *Engine) ListExecutors(ctx context.Context, limit int) ([]*domain.Executor, error) {
	return e.executors.GetExecutorsByLastActive(ctx, limit)
}

func (e *Engine) PendingJobs() int { return e.dispatcher.Pending() }

// ExecutorName is the configured executor name, or the hostname.
func ExecutorName() string {
	name := config.GetSystemSettingString(config.EXECUTOR_NAME)
	if name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			name = "trigger-engine"
		} else {
			name = hostname
		}
	}
	return name
}

func (e *Engine) registerExecutorInstance(ctx context.Context) {
	name := ExecutorName()
	now := e.clock.Now()
	exec := &domain.Executor{Name: name, Started: now, LastActive: now}
	id, err := e.executors.Save(ctx, exec)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to register executor", "error", err)
		return
	}
	e.executorID = id
	slog.InfoContext(ctx, "Registered executor", "executor_id", id, "name", name)

	interval, err := time.ParseDuration(config.GetSystemSettingString(config.ENGINE_HEARTBEAT_INTERVAL))
	if err != nil || interval <= 0 {
		interval = 30 * time.Second
	}
	go e.heartbeat(ctx, id, interval)
}

// heartbeat updates last_active until ctx is cancelled.
func (e *Engine) heartbeat(ctx context.Context, executorID int64, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.clock.After(interval):
			if err := e.executors.UpdateLastActive(ctx, executorID, e.clock.Now()); err != nil {
				slog.ErrorContext(ctx, "Failed to update executor last_active", "executor_id", executorID, "error", err)
			} else {
				slog.DebugContext(ctx, "Updated executor last_active", "executor_id", executorID)
			}
		}
	}
}
