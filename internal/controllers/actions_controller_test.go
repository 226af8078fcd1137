package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/RealZimboGuy/gophertrigger/internal/engine"
	"github.com/RealZimboGuy/gophertrigger/internal/testutil"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/models"
)

func catalogMux(t *testing.T) *http.ServeMux {
	t.Helper()
	actions := engine.NewActionRegistry(nil)
	_ = actions.Register(&testutil.FuncAction{ActionID: "notify", Magic: []string{"body"}, NoScheduled: true})
	entities := engine.NewEntityRegistry()
	_ = entities.Register(core.EntityType{Name: "user", Fields: []string{"email", "status"}})
	mux := http.NewServeMux()
	NewActionsController(actions, entities, authorizedRepo(t)).RegisterRoutes(mux)
	return mux
}

func TestActionsController_GetActions(t *testing.T) {
	w := httptest.NewRecorder()
	catalogMux(t).ServeHTTP(w, withKey(httptest.NewRequest("GET", "/api/actions", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var actions []models.ActionDescriptor
	if err := json.NewDecoder(w.Body).Decode(&actions); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(actions) != 1 || actions[0].ID != "notify" || actions[0].UsableWithScheduled || !actions[0].UsableWithModelEvent {
		t.Errorf("unexpected actions %+v", actions)
	}
}

func TestActionsController_Suggestions(t *testing.T) {
	mux := catalogMux(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, withKey(httptest.NewRequest("GET", "/api/suggestions/user", nil)))
	var resp models.SuggestionsResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if w.Code != http.StatusOK || strings.Join(resp.Attributes, ",") != "@email@,@status@" {
		t.Errorf("unexpected suggestions %d %+v", w.Code, resp)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, withKey(httptest.NewRequest("GET", "/api/suggestions/order", nil)))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, withKey(httptest.NewRequest("GET", "/api/suggestions?variables=orderId,total", nil)))
	resp = models.SuggestionsResponse{}
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.EventTokens["orderId"] != "@event->orderId@" || len(resp.EventTokens) != 2 {
		t.Errorf("unexpected event tokens %+v", resp.EventTokens)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, withKey(httptest.NewRequest("GET", "/api/entity-types", nil)))
	var types []core.EntityType
	_ = json.NewDecoder(w.Body).Decode(&types)
	if len(types) != 1 || types[0].Name != "user" {
		t.Errorf("unexpected entity types %+v", types)
	}
}

func TestExecutorsController_GetExecutors(t *testing.T) {
	status := &MockEngineStatus{ListExecutorsFunc: func(limit int) ([]*domain.Executor, error) {
		return []*domain.Executor{
			{ID: 1, Name: "executor1"},
		}, nil
	}}
	mux := http.NewServeMux()
	NewExecutorsController(status, authorizedRepo(t)).RegisterRoutes(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, withKey(httptest.NewRequest("GET", "/api/executors", nil)))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	var resp models.ExecutorsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Executors) != 1 || resp.ExecutorID != 3 || resp.PendingJobs != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestApiClientsController_Create(t *testing.T) {
	repo := authorizedRepo(t)
	repo.IssueFunc = func(name string) (*domain.ApiClient, string, error) {
		return &domain.ApiClient{ID: 2, Name: name, KeyID: "key2"}, "key2.plain", nil
	}
	mux := http.NewServeMux()
	NewApiClientsController(repo).RegisterRoutes(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, withKey(httptest.NewRequest("POST", "/api/clients", strings.NewReader(`{"name":"crm"}`))))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp CreateApiClientResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.Key != "key2.plain" || resp.Client.Name != "crm" {
		t.Errorf("unexpected response %+v", resp)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, withKey(httptest.NewRequest("POST", "/api/clients", strings.NewReader(`{}`))))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing name, got %d", w.Code)
	}
}
