package middleware

import (
	"context"
	"net/http"

	apiContext "gifable/internal/api/context"
	"gifable/internal/engine/apikeys"
	"gifable/internal/pkg/errors"
	"gifable/internal/platform/auth"
	"gifable/internal/platform/models"
)

// AuthMiddleware resolves the request's principal from the session cookie or
// an API key. RequireUser rejects anonymous requests; OptionalUser just
// attaches the principal when one exists.
type AuthMiddleware struct {
	sessions *auth.Sessions
	apiKeys  *apikeys.Service
}

func NewAuthMiddleware(sessions *auth.Sessions, apiKeys *apikeys.Service) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions, apiKeys: apiKeys}
}

func (m *AuthMiddleware) resolve(r *http.Request) *models.User {
	return m.apiKeys.ResolvePrincipal(r, func() *models.User { return m.sessions.CurrentUser(r) })
}

func (m *AuthMiddleware) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := m.resolve(r)
		if user == nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Authentication required", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.User, user)
		next(w, r.WithContext(ctx))
	}
}

func (m *AuthMiddleware) OptionalUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if user := m.resolve(r); user != nil {
			r = r.WithContext(context.WithValue(r.Context(), apiContext.User, user))
		}
		next(w, r)
	}
}

// UserFrom extracts the principal attached by RequireUser/OptionalUser.
func UserFrom(r *http.Request) *models.User {
	user, _ := r.Context().Value(apiContext.User).(*models.User)
	return user
}
