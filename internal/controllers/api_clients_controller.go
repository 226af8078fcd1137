package controllers

import (
	"log/slog"
	"net/http"

	"github.com/RealZimboGuy/gophertrigger/internal/engine"
	"github.com/RealZimboGuy/gophertrigger/internal/util"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
)

type CreateApiClientRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateApiClientResponse carries the plain key. It is only ever shown once.
type CreateApiClientResponse struct {
	Client *domain.ApiClient `json:"client"`
	Key    string            `json:"key"`
}

type ApiClientsController struct {
	AuthController
}

func NewApiClientsController(apiClientRepo engine.ApiClientRepo) *ApiClientsController {
	return &ApiClientsController{AuthController: AuthController{ApiClientRepo: apiClientRepo}}
}

// handleCreateApiClient issues a new key for another caller raising triggers.
func (c *ApiClientsController) handleCreateApiClient(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[CreateApiClientRequest](r)
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	client, key, err := c.ApiClientRepo.Issue(r.Context(), req.Name)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create api client", "error", err)
		util.WriteError(w, http.StatusInternalServerError, "failed to create api client")
		return
	}
	slog.InfoContext(r.Context(), "Api client created", "name", client.Name, "key_id", client.KeyID,
		"created_by", r.Context().Value(core.CtxKeyApiClient))
	util.WriteJSONResponse(w, http.StatusCreated, CreateApiClientResponse{Client: client, Key: key})
}
