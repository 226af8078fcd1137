package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/RealZimboGuy/gophertrigger/internal/engine"
	"github.com/RealZimboGuy/gophertrigger/internal/util"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/models"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// TriggerRaiser is the part of engine.TriggerService the HTTP layer raises through.
type TriggerRaiser interface {
	RaiseModelEvent(ctx context.Context, entityType, entityID string, event domain.ModelEvent, changed []string, attributes map[string]any) (string, error)
	RaiseCustomEvent(ctx context.Context, eventType string, payload map[string]any) (string, error)
	RaiseScheduleTick(ctx context.Context, scheduleID string) (string, error)
}

type TriggersController struct {
	AuthController
	Triggers TriggerRaiser
}

func NewTriggersController(triggers TriggerRaiser, apiClientRepo engine.ApiClientRepo) *TriggersController {
	return &TriggersController{Triggers: triggers, AuthController: AuthController{ApiClientRepo: apiClientRepo}}
}

func (c *TriggersController) handleModelEvent(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[models.RaiseModelEventRequest](r)
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	jobID, err := c.Triggers.RaiseModelEvent(r.Context(), req.EntityType, req.EntityID, domain.ModelEvent(req.Event),
		req.ChangedAttributes, req.Attributes)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	slog.InfoContext(r.Context(), "Model event raised", "entity_type", req.EntityType, "entity_id", req.EntityID,
		"event", req.Event, "job_id", jobID, "client", r.Context().Value(core.CtxKeyApiClient))
	util.WriteJSONResponse(w, http.StatusAccepted, models.RaiseResponse{JobID: jobID})
}

func (c *TriggersController) handleCustomEvent(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[models.RaiseCustomEventRequest](r)
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	jobID, err := c.Triggers.RaiseCustomEvent(r.Context(), req.EventType, req.Payload)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	slog.InfoContext(r.Context(), "Custom event raised", "event_type", req.EventType, "job_id", jobID)
	util.WriteJSONResponse(w, http.StatusAccepted, models.RaiseResponse{JobID: jobID})
}

func (c *TriggersController) handleScheduleTick(w http.ResponseWriter, r *http.Request) {
	jobID, err := c.Triggers.RaiseScheduleTick(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	slog.InfoContext(r.Context(), "Schedule tick raised", "schedule_id", r.PathValue("id"), "job_id", jobID)
	util.WriteJSONResponse(w, http.StatusAccepted, models.RaiseResponse{JobID: jobID})
}
