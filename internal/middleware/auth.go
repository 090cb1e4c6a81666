// Package middleware carries the HTTP-layer concerns that wrap every route:
// request authentication, request logging and panic recovery.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/campusmint/backend/internal/apperr"
)

// Verifier checks presented credentials. Satisfied by services.AuthService.
type Verifier interface {
	VerifyUserToken(token string) (uuid.UUID, error)
	VerifyProjectKey(ctx context.Context, presented string) (uuid.UUID, error)
}

type contextKey int

const (
	userIDKey contextKey = iota
	projectIDKey
)

// UserID returns the authenticated user from the request context.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// ProjectID returns the authenticated project from the request context.
func ProjectID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(projectIDKey).(uuid.UUID)
	return id, ok
}

// UserAuth requires a valid bearer token and stores the user in the context.
func UserAuth(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, apperr.Unauthorized("authorization header required"))
				return
			}

			userID, err := verifier.VerifyUserToken(token)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProjectAuth requires a valid X-API-Key header and stores the project in
// the context.
func ProjectAuth(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-API-Key")
			if presented == "" {
				writeAuthError(w, apperr.Unauthorized("api key required"))
				return
			}

			projectID, err := verifier.VerifyProjectKey(r.Context(), presented)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), projectIDKey, projectID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(err))
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
