package controllers

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/RealZimboGuy/gophertrigger/internal/engine"
	"github.com/RealZimboGuy/gophertrigger/internal/util"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/models"
	"github.com/pkg/errors"
)

// WorkflowStore is the workflow persistence used by the HTTP layer, matching
// repository.WorkflowRepository.
type WorkflowStore interface {
	engine.WorkflowRepo
	GetLogs(ctx context.Context, workflowID int64) ([]string, error)
	Delete(ctx context.Context, id int64) error
}

type WorkflowTester interface {
	TestWorkflow(ctx context.Context, workflowID int64, req engine.TestRequest) (engine.TestReport, error)
}

// WorkflowsController holds dependencies for workflow HTTP endpoints.
type WorkflowsController struct {
	AuthController
	WorkflowRepo  WorkflowStore
	ExecutionRepo engine.ExecutionRepo
	Tester        WorkflowTester
	Actions       *engine.ActionRegistry
}

func NewWorkflowsController(workflowRepo WorkflowStore, executionRepo engine.ExecutionRepo, tester WorkflowTester,
	actions *engine.ActionRegistry, apiClientRepo engine.ApiClientRepo) *WorkflowsController {
	return &WorkflowsController{WorkflowRepo: workflowRepo, ExecutionRepo: executionRepo, Tester: tester, Actions: actions,
		AuthController: AuthController{ApiClientRepo: apiClientRepo}}
}

func (c *WorkflowsController) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	results, err := c.WorkflowRepo.FindAll(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list workflows", "error", err)
		util.WriteError(w, http.StatusInternalServerError, "failed to list workflows")
		return
	}
	if results == nil {
		results = []domain.Workflow{}
	}
	util.WriteJSONResponse(w, http.StatusOK, results)
}

func (c *WorkflowsController) handleGetWorkflowById(w http.ResponseWriter, r *http.Request) {
	wf, ok := c.loadWorkflow(w, r)
	if !ok {
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, wf)
}

func (c *WorkflowsController) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := util.DecodeJSONBody[domain.Workflow](r)
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	wf.ID = 0
	wf.Logs = nil
	c.saveWorkflow(w, r, &wf, http.StatusCreated)
}

func (c *WorkflowsController) handleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	existing, ok := c.loadWorkflow(w, r)
	if !ok {
		return
	}
	wf, err := util.DecodeJSONBody[domain.Workflow](r)
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	wf.ID = existing.ID
	wf.Created = existing.Created
	c.saveWorkflow(w, r, &wf, http.StatusOK)
}

func (c *WorkflowsController) saveWorkflow(w http.ResponseWriter, r *http.Request, wf *domain.Workflow, status int) {
	if err := engine.ValidateWorkflow(wf, c.Actions); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := c.WorkflowRepo.Save(r.Context(), wf)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to save workflow", "error", err)
		util.WriteError(w, http.StatusInternalServerError, "failed to save workflow")
		return
	}
	util.WriteJSONResponse(w, status, models.SaveWorkflowResponse{ID: id})
}

func (c *WorkflowsController) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, ok := c.loadWorkflow(w, r)
	if !ok {
		return
	}
	if err := c.WorkflowRepo.Delete(r.Context(), wf.ID); err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete workflow", "workflow_id", wf.ID, "error", err)
		util.WriteError(w, http.StatusInternalServerError, "failed to delete workflow")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleValidateWorkflow checks a definition without storing it.
func (c *WorkflowsController) handleValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := util.DecodeJSONBody[domain.Workflow](r)
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := engine.ValidateWorkflow(&wf, c.Actions); err != nil {
		util.WriteJSONResponse(w, http.StatusOK, models.ValidationResponse{Valid: false, Reason: err.Error()})
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, models.ValidationResponse{Valid: true})
}

func (c *WorkflowsController) handleTestWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := util.PathInt64(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := util.DecodeJSONBody[models.TestWorkflowRequest](r)
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	report, err := c.Tester.TestWorkflow(r.Context(), id, engine.TestRequest{
		EntityID:                 req.EntityID,
		Attributes:               req.Attributes,
		SimulateAttributeChanges: req.SimulateAttributeChanges,
		ExecuteActions:           req.ExecuteActions,
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, report)
}

func (c *WorkflowsController) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	id, err := util.PathInt64(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	logs, err := c.WorkflowRepo.GetLogs(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		util.WriteError(w, http.StatusNotFound, "workflow not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to read workflow logs", "workflow_id", id, "error", err)
		util.WriteError(w, http.StatusInternalServerError, "failed to read logs")
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, models.LogsResponse{WorkflowID: id, Logs: logs})
}

func (c *WorkflowsController) handleGetExecutions(w http.ResponseWriter, r *http.Request) {
	id, err := util.PathInt64(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	results, err := c.ExecutionRepo.FindByWorkflowID(r.Context(), id, util.QueryInt(r, "limit", 50))
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to read executions", "workflow_id", id, "error", err)
		util.WriteError(w, http.StatusInternalServerError, "failed to read executions")
		return
	}
	if results == nil {
		results = []domain.ActionExecution{}
	}
	util.WriteJSONResponse(w, http.StatusOK, results)
}

func (c *WorkflowsController) loadWorkflow(w http.ResponseWriter, r *http.Request) (*domain.Workflow, bool) {
	id, err := util.PathInt64(r, "id")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	wf, err := c.WorkflowRepo.FindByID(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load workflow", "workflow_id", id, "error", err)
		util.WriteError(w, http.StatusInternalServerError, "failed to load workflow")
		return nil, false
	}
	if wf == nil {
		util.WriteError(w, http.StatusNotFound, "workflow not found")
		return nil, false
	}
	return wf, true
}
