package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/RealZimboGuy/gophertrigger/internal/engine"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/models"
	"github.com/pkg/errors"
)

func triggersMux(t *testing.T, raiser *MockRaiser) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewTriggersController(raiser, authorizedRepo(t)).RegisterRoutes(mux)
	return mux
}

func TestTriggersController_ModelEvent(t *testing.T) {
	var gotType, gotID string
	var gotEvent domain.ModelEvent
	var gotChanged []string
	raiser := &MockRaiser{RaiseModelEventFunc: func(entityType, entityID string, event domain.ModelEvent, changed []string, attributes map[string]any) (string, error) {
		gotType, gotID, gotEvent, gotChanged = entityType, entityID, event, changed
		return "job-1", nil
	}}
	body := `{"entityType":"user","entityId":"7","event":"updated","changedAttributes":["email"],"attributes":{"email":"a@b.com"}}`
	req := withKey(httptest.NewRequest("POST", "/api/triggers/model-events", strings.NewReader(body)))
	w := httptest.NewRecorder()
	triggersMux(t, raiser).ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.RaiseResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.JobID != "job-1" {
		t.Fatalf("unexpected response %+v, %v", resp, err)
	}
	if gotType != "user" || gotID != "7" || gotEvent != domain.ModelEventUpdated || len(gotChanged) != 1 {
		t.Errorf("unexpected raise %s %s %s %v", gotType, gotID, gotEvent, gotChanged)
	}
}

func TestTriggersController_ModelEventValidation(t *testing.T) {
	raiser := &MockRaiser{RaiseModelEventFunc: func(string, string, domain.ModelEvent, []string, map[string]any) (string, error) {
		t.Error("raise should not be called")
		return "", nil
	}}
	for _, body := range []string{`{`, `{"entityType":"user","entityId":"7","event":"archived"}`, `{"entityId":"7","event":"created"}`} {
		w := httptest.NewRecorder()
		triggersMux(t, raiser).ServeHTTP(w, withKey(httptest.NewRequest("POST", "/api/triggers/model-events", strings.NewReader(body))))
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestTriggersController_UnknownEntityType(t *testing.T) {
	raiser := &MockRaiser{RaiseModelEventFunc: func(string, string, domain.ModelEvent, []string, map[string]any) (string, error) {
		return "", errors.WithMessage(engine.ErrEntityTypeNotFound, "order")
	}}
	body := `{"entityType":"order","entityId":"1","event":"created"}`
	w := httptest.NewRecorder()
	triggersMux(t, raiser).ServeHTTP(w, withKey(httptest.NewRequest("POST", "/api/triggers/model-events", strings.NewReader(body))))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestTriggersController_CustomEventAndTick(t *testing.T) {
	var payload map[string]any
	var schedule string
	raiser := &MockRaiser{
		RaiseCustomEventFunc: func(eventType string, p map[string]any) (string, error) {
			payload = p
			return "job-2", nil
		},
		RaiseScheduleTickFunc: func(id string) (string, error) {
			schedule = id
			return "job-3", nil
		},
	}
	mux := triggersMux(t, raiser)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, withKey(httptest.NewRequest("POST", "/api/triggers/custom-events", strings.NewReader(`{"eventType":"order.paid","payload":{"id":"A-9"}}`))))
	if w.Code != http.StatusAccepted || payload["id"] != "A-9" {
		t.Errorf("custom event: %d %v", w.Code, payload)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, withKey(httptest.NewRequest("POST", "/api/triggers/schedules/nightly/tick", nil)))
	if w.Code != http.StatusAccepted || schedule != "nightly" {
		t.Errorf("tick: %d %q", w.Code, schedule)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/triggers/schedules/nightly/tick", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected unauthenticated tick to be rejected, got %d", w.Code)
	}
}
