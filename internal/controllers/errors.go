package controllers

import (
	"log/slog"
	"net/http"

	"github.com/RealZimboGuy/gophertrigger/internal/engine"
	"github.com/RealZimboGuy/gophertrigger/internal/util"
	"github.com/pkg/errors"
)

// writeEngineError maps engine sentinels to HTTP statuses.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidTrigger), errors.Is(err, engine.ErrConfiguration):
		util.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrEntityTypeNotFound), errors.Is(err, engine.ErrWorkflowNotFound),
		errors.Is(err, engine.ErrActionNotFound):
		util.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrRepositoryUnavailable):
		slog.ErrorContext(r.Context(), "Repository unavailable", "path", r.URL.Path, "error", err)
		util.WriteError(w, http.StatusServiceUnavailable, "repository unavailable")
	default:
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		util.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
