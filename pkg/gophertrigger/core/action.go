package core

import "context"

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldURL      FieldType = "url"
	FieldToggle   FieldType = "toggle"
	FieldList     FieldType = "list"
	FieldKeyValue FieldType = "key-value"
)

// Field describes one action parameter for authoring tools.
type Field struct {
	Name       string    `json:"name"`
	Type       FieldType `json:"type"`
	Label      string    `json:"label,omitempty"`
	Required   bool      `json:"required"`
	Default    any       `json:"default,omitempty"`
	HelperText string    `json:"helperText,omitempty"`
}

// Execution is the record handed to a running action. Lines passed to Log end up on
// the execution row and on the owning workflow's log. Fail marks the attempt as failed
// without returning an error, for remote calls that answered with a failure payload.
type Execution interface {
	WorkflowID() int64
	ActionID() string
	Log(message string)
	Fail(message string)
}

// Action is a pluggable side effect. Execute receives parameters with magic attributes
// already resolved, the entity (nil for non-model triggers), the custom event payload and
// the data map shared with the following actions of the same run.
type Action interface {
	ID() string
	Name() string
	Fields() []Field
	MagicAttributeFields() []string
	UsableWithScheduled() bool
	UsableWithModelEvent() bool
	UsableWithCustomEvent() bool
	RequiredPackages() []string
	Execute(ctx context.Context, data map[string]any, exec Execution, entity AttributeSource, eventData map[string]any, shared map[string]any) error
}

// BaseAction supplies the common defaults: usable with every trigger kind, no magic
// fields, no required packages.
type BaseAction struct{}

func (BaseAction) Fields() []Field                { return nil }
func (BaseAction) MagicAttributeFields() []string { return nil }
func (BaseAction) UsableWithScheduled() bool      { return true }
func (BaseAction) UsableWithModelEvent() bool     { return true }
func (BaseAction) UsableWithCustomEvent() bool    { return true }
func (BaseAction) RequiredPackages() []string     { return nil }
