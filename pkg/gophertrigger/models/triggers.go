package models

// RaiseModelEventRequest is the payload for reporting an entity lifecycle event.
type RaiseModelEventRequest struct {
	EntityType        string         `json:"entityType" validate:"required"`
	EntityID          string         `json:"entityId" validate:"required"`
	Event             string         `json:"event" validate:"required,oneof=created updated deleted"`
	ChangedAttributes []string       `json:"changedAttributes"`
	Attributes        map[string]any `json:"attributes"`
}

// RaiseCustomEventRequest is the payload for raising an application event.
type RaiseCustomEventRequest struct {
	EventType string         `json:"eventType" validate:"required"`
	Payload   map[string]any `json:"payload"`
}

// RaiseResponse is returned once the trigger is queued.
type RaiseResponse struct {
	JobID string `json:"jobId"`
}
