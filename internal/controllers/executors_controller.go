package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/RealZimboGuy/gophertrigger/internal/engine"
	"github.com/RealZimboGuy/gophertrigger/internal/util"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/models"
)

// EngineStatus is the part of engine.Engine reported by the executors endpoint.
type EngineStatus interface {
	ExecutorID() int64
	PendingJobs() int
	ListExecutors(ctx context.Context, limit int) ([]*domain.Executor, error)
}

type ExecutorsController struct {
	AuthController
	Engine EngineStatus
}

func NewExecutorsController(status EngineStatus, apiClientRepo engine.ApiClientRepo) *ExecutorsController {
	return &ExecutorsController{
		Engine: status,
		AuthController: AuthController{
			ApiClientRepo: apiClientRepo,
		},
	}
}

func (c *ExecutorsController) handleGetExecutors(w http.ResponseWriter, r *http.Request) {
	slog.DebugContext(r.Context(), "GetExecutors called")

	results, err := c.Engine.ListExecutors(r.Context(), util.QueryInt(r, "limit", 20))
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to search executors", "error", err)
		util.WriteError(w, http.StatusInternalServerError, "failed to search executors")
		return
	}
	if results == nil {
		results = []*domain.Executor{}
	}
	util.WriteJSONResponse(w, http.StatusOK, models.ExecutorsResponse{
		ExecutorID:  c.Engine.ExecutorID(),
		PendingJobs: c.Engine.PendingJobs(),
		Executors:   results,
	})
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
