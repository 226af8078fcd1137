package controllers

import (
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
)

func TestAuthController_RequireAuth_ApiKey(t *testing.T) {
	ac := NewBaseController(authorizedRepo(t))

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := r.Context().Value(core.CtxKeyApiClient)
		if client != "shop" {
			t.Errorf("Expected client in context, got %v", client)
		}
		w.WriteHeader(http.StatusOK)
	})

	req := withKey(httptest.NewRequest("GET", "/protected", nil))
	w := httptest.NewRecorder()

	ac.RequireAuth(nextHandler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestAuthController_RequireAuth_Unauthorized(t *testing.T) {
	ac := NewBaseController(authorizedRepo(t))

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Next handler should not be called")
	})

	for _, key := range []string{"", "malformed", "key1.wrong", "unknown.secret"} {
		req := httptest.NewRequest("GET", "/protected", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		w := httptest.NewRecorder()
		ac.RequireAuth(nextHandler).ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("key %q: expected unauthorized 401, got %d", key, w.Code)
		}
	}
}

func TestAuthController_RequireAuth_DisabledClient(t *testing.T) {
	repo := authorizedRepo(t)
	find := repo.FindByKeyIDFunc
	repo.FindByKeyIDFunc = func(keyID string) (*domain.ApiClient, error) {
		c, err := find(keyID)
		if c != nil {
			c.Enabled = sql.NullBool{Bool: false, Valid: true}
		}
		return c, err
	}
	ac := NewBaseController(repo)

	w := httptest.NewRecorder()
	ac.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Next handler should not be called")
	}).ServeHTTP(w, withKey(httptest.NewRequest("GET", "/protected", nil)))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected unauthorized 401, got %d", w.Code)
	}
}

func TestAuthController_RequireAuth_RepositoryError(t *testing.T) {
	ac := NewBaseController(&MockApiClientRepo{FindByKeyIDFunc: func(string) (*domain.ApiClient, error) {
		return nil, errors.New("db down")
	}})
	w := httptest.NewRecorder()
	ac.RequireAuth(func(w http.ResponseWriter, r *http.Request) {}).ServeHTTP(w, withKey(httptest.NewRequest("GET", "/protected", nil)))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}
