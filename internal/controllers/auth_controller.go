package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/RealZimboGuy/gophertrigger/internal/engine"
	"github.com/RealZimboGuy/gophertrigger/internal/repository"
	"github.com/RealZimboGuy/gophertrigger/internal/util"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"golang.org/x/crypto/bcrypt"
)

type AuthController struct {
	ApiClientRepo engine.ApiClientRepo
}

func NewBaseController(apiClientRepo engine.ApiClientRepo) *AuthController {
	return &AuthController{ApiClientRepo: apiClientRepo}
}

// RequireAuth accepts requests carrying a valid X-API-Key of the form <keyId>.<secret>
// and stores the client name in the request context.
func (wc *AuthController) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyID, secret, ok := repository.SplitApiKey(r.Header.Get("X-API-Key"))
		if !ok {
			util.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c, err := wc.ApiClientRepo.FindByKeyID(r.Context(), keyID)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to load api client", "key_id", keyID, "error", err)
			util.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if c == nil || (c.Enabled.Valid && !c.Enabled.Bool) ||
			bcrypt.CompareHashAndPassword([]byte(c.KeyHash), []byte(secret)) != nil {
			util.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), core.CtxKeyApiClient, c.Name)
		next(w, r.WithContext(ctx))
	}
}
