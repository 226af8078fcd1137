package core

import (
	"context"
	"fmt"
	"slices"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/pkg/errors"
)

// TriggeringContext lives for one match pass and one pipeline run.
type TriggeringContext struct {
	Kind              domain.TriggerKind
	EntityType        string
	EntityID          string
	Entity            AttributeSource
	ModelEvent        domain.ModelEvent
	ChangedAttributes []string
	EventType         string
	EventData         map[string]any
	ScheduleID        string
}

func (tc *TriggeringContext) HasChanged(attribute string) bool {
	return slices.Contains(tc.ChangedAttributes, attribute)
}

// Ref identifies the trigger in log lines and execution rows.
func (tc *TriggeringContext) Ref() string {
	switch tc.Kind {
	case domain.TriggerModelEvent:
		return fmt.Sprintf("%s #%s", tc.EntityType, tc.EntityID)
	case domain.TriggerCustomEvent:
		return "event " + tc.EventType
	case domain.TriggerScheduled:
		return "schedule " + tc.ScheduleID
	}
	return string(tc.Kind)
}

// Source is what templates and conditions resolve against: the entity's attributes, the
// payload through `event->name`, and for entity-less triggers the payload keys directly.
func (tc *TriggeringContext) Source() AttributeSource {
	return contextSource{tc: tc}
}

type contextSource struct {
	tc *TriggeringContext
}

// Get reads the entity first. The payload answers to "event" only when the entity has
// no attribute of that name.
func (s contextSource) Get(name string) (any, error) {
	if s.tc.Entity != nil {
		v, err := s.tc.Entity.Get(name)
		if name != "event" || s.tc.EventData == nil || !errors.Is(err, ErrAttributeNotFound) {
			return v, err
		}
	}
	if name == "event" && s.tc.EventData != nil {
		return MapSource(s.tc.EventData), nil
	}
	return MapSource(s.tc.EventData).Get(name)
}

func (s contextSource) Call(name string) (any, error) {
	if ms, ok := s.tc.Entity.(MethodSource); ok {
		return ms.Call(name)
	}
	return s.Get(name)
}

// EntityLoader fetches a fresh snapshot of an entity by id.
type EntityLoader func(ctx context.Context, id string) (AttributeSource, error)

// EntityType describes an entity kind that can raise model events. Without a Loader the
// attribute snapshot sent with the event is used.
type EntityType struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"displayName"`
	Fields      []string          `json:"fields"`
	FieldLabels map[string]string `json:"fieldLabels,omitempty"`
	Loader      EntityLoader      `json:"-"`
}

// Suggestions lists the magic attribute tokens for every declared field.
func (e EntityType) Suggestions() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, "@"+f+"@")
	}
	return out
}

// CustomEventSuggestions maps payload variables to their `@event->name@` tokens.
func CustomEventSuggestions(variables []string) map[string]string {
	out := make(map[string]string, len(variables))
	for _, v := range variables {
		out[v] = "@event->" + v + "@"
	}
	return out
}
