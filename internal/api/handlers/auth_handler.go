package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"gifable/internal/api/middleware"
	"gifable/internal/pkg/errors"
	"gifable/internal/platform/auth"
	"gifable/internal/platform/models"
	"gifable/internal/platform/repositories"
)

type AuthHandler struct {
	sessions *auth.Sessions
	users    *repositories.UserRepository
}

func NewAuthHandler(sessions *auth.Sessions, users *repositories.UserRepository) *AuthHandler {
	return &AuthHandler{sessions: sessions, users: users}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	IsAdmin         bool   `json:"is_admin"`
	HasGiphyKey     bool   `json:"has_giphy_key"`
	PreferredLabels string `json:"preferred_labels,omitempty"`
	Theme           string `json:"theme,omitempty"`
}

// Login implements POST /api/v1/auth/login. A bad username and a bad
// password produce the same response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid JSON body", nil)
		return
	}
	if req.Username == "" || req.Password == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Username and password are required", nil)
		return
	}

	user, err := h.users.GetByUsername(req.Username)
	if err != nil {
		log.Error().Err(err).Msg("user lookup failed during login")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Login failed", nil)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid username or password", nil)
		return
	}

	token, err := h.sessions.Issue(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to issue session")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Login failed", nil)
		return
	}
	h.sessions.SetCookie(w, token)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Msg("recovered in last-login update")
			}
		}()
		if err := h.users.UpdateLastLogin(user.ID); err != nil {
			log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
		}
	}()

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": toUserResponse(user)})
}

// Logout implements POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me implements GET /api/v1/auth/me for the authenticated principal.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r)
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": toUserResponse(user)})
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:              user.ID,
		Username:        user.Username,
		IsAdmin:         user.IsAdmin,
		HasGiphyKey:     user.GiphyAPIKey != "",
		PreferredLabels: user.PreferredLabels,
		Theme:           user.Theme,
	}
}
