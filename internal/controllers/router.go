package controllers

import "net/http"

// RegisterRoutes wires the HTTP routes for this controller.
func (c *TriggersController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/triggers/model-events", c.RequireAuth(c.handleModelEvent))
	mux.HandleFunc("POST /api/triggers/custom-events", c.RequireAuth(c.handleCustomEvent))
	mux.HandleFunc("POST /api/triggers/schedules/{id}/tick", c.RequireAuth(c.handleScheduleTick))
}
func (c *WorkflowsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/workflows", c.RequireAuth(c.handleListWorkflows))
	mux.HandleFunc("POST /api/workflows", c.RequireAuth(c.handleCreateWorkflow))
	mux.HandleFunc("POST /api/workflows/validate", c.RequireAuth(c.handleValidateWorkflow))
	mux.HandleFunc("GET /api/workflows/{id}", c.RequireAuth(c.handleGetWorkflowById))
	mux.HandleFunc("PUT /api/workflows/{id}", c.RequireAuth(c.handleUpdateWorkflow))
	mux.HandleFunc("DELETE /api/workflows/{id}", c.RequireAuth(c.handleDeleteWorkflow))
	mux.HandleFunc("POST /api/workflows/{id}/test", c.RequireAuth(c.handleTestWorkflow))
	mux.HandleFunc("GET /api/workflows/{id}/logs", c.RequireAuth(c.handleGetLogs))
	mux.HandleFunc("GET /api/workflows/{id}/executions", c.RequireAuth(c.handleGetExecutions))
}
func (c *ActionsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/actions", c.RequireAuth(c.handleGetActions))
	mux.HandleFunc("GET /api/entity-types", c.RequireAuth(c.handleGetEntityTypes))
	mux.HandleFunc("GET /api/suggestions", c.RequireAuth(c.handleGetEventSuggestions))
	mux.HandleFunc("GET /api/suggestions/{entityType}", c.RequireAuth(c.handleGetSuggestions))
}
func (c *ExecutorsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/executors", c.RequireAuth(c.handleGetExecutors))
}
func (c *ApiClientsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/clients", c.RequireAuth(c.handleCreateApiClient))
}
