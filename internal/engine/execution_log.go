package engine

import (
	"context"
	"log/slog"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
)

const logDateFormat = "2006, 2 January, 3:04 pm"

// ExecutionLog appends timestamped lines to a workflow's bounded log.
type ExecutionLog struct {
	store LogStore
	clock core.Clock
	max   int
}

// NewExecutionLog creates a log bounded to max entries per workflow; max <= 0 keeps everything.
func NewExecutionLog(store LogStore, clock core.Clock, max int) *ExecutionLog {
	return &ExecutionLog{store: store, clock: clock, max: max}
}

func (l *ExecutionLog) Max() int { return l.max }

// Append stores the line before returning. A failed write is reported but does not stop
// the caller; the decision it describes has already been taken.
func (l *ExecutionLog) Append(ctx context.Context, workflowID int64, message string) error {
	line := l.clock.Now().Format(logDateFormat) + " - " + message
	if err := l.store.AppendLog(ctx, workflowID, line, l.max); err != nil {
		slog.ErrorContext(ctx, "Failed to append workflow log", "workflow_id", workflowID, "error", err)
		return err
	}
	slog.DebugContext(ctx, "Workflow log", "workflow_id", workflowID, "message", message)
	return nil
}
