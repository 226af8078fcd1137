package actions

import (
	"context"
	"log/slog"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
)

// LogMessage writes a templated message to the workflow log and the process log.
type LogMessage struct {
	core.BaseAction
}

func NewLogMessage() *LogMessage { return &LogMessage{} }

func (a *LogMessage) ID() string   { return "log-message" }
func (a *LogMessage) Name() string { return "Log message" }

func (a *LogMessage) Fields() []core.Field {
	return []core.Field{
		{Name: "message", Type: core.FieldTextarea, Label: "Message", Required: true, HelperText: "Supports magic attributes"},
	}
}

func (a *LogMessage) MagicAttributeFields() []string { return []string{"message"} }

func (a *LogMessage) Execute(ctx context.Context, data map[string]any, exec core.Execution, _ core.AttributeSource, _ map[string]any, _ map[string]any) error {
	msg := stringValue(data, "message")
	slog.InfoContext(ctx, "Workflow message", "workflow_id", exec.WorkflowID(), "message", msg)
	exec.Log(msg)
	return nil
}

// SetSharedData copies its values into the data shared with the following actions.
type SetSharedData struct {
	core.BaseAction
}

func NewSetSharedData() *SetSharedData { return &SetSharedData{} }

func (a *SetSharedData) ID() string   { return "set-shared-data" }
func (a *SetSharedData) Name() string { return "Set shared data" }

func (a *SetSharedData) Fields() []core.Field {
	return []core.Field{
		{Name: "values", Type: core.FieldKeyValue, Label: "Values", Required: true, HelperText: "Supports magic attributes"},
	}
}

func (a *SetSharedData) MagicAttributeFields() []string { return []string{"values"} }

func (a *SetSharedData) Execute(_ context.Context, data map[string]any, exec core.Execution, _ core.AttributeSource, _ map[string]any, shared map[string]any) error {
	values := stringMap(data, "values")
	for k, v := range values {
		shared[k] = v
	}
	exec.Log("shared data updated")
	return nil
}
