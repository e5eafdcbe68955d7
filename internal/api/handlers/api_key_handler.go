package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	apiContext "gifable/internal/api/context"
	"gifable/internal/api/middleware"
	"gifable/internal/engine/apikeys"
	"gifable/internal/pkg/errors"
	"gifable/internal/platform/models"
)

// APIKeyHandler is the key management surface under /api/v1/keys.
// The plaintext token appears exactly once, in the Create response.
type APIKeyHandler struct {
	keys *apikeys.Service
}

func NewAPIKeyHandler(keys *apikeys.Service) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

type createKeyRequest struct {
	Name string `json:"name"`
}

type updateKeyRequest struct {
	Enabled *bool `json:"enabled"`
}

type apiKeyResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	KeyPrefix  string `json:"key_prefix"`
	Enabled    bool   `json:"enabled"`
	LastUsedAt *int64 `json:"last_used_at,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// Create implements POST /api/v1/keys.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r)

	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid JSON body", nil)
		return
	}
	if req.Name == "" || len(req.Name) > 100 {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Name must be 1-100 characters", nil)
		return
	}

	record, token, err := h.keys.Create(user.ID, req.Name)
	if err != nil {
		h.writeServiceError(w, err, user.ID)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"key":   toKeyResponse(record),
		"token": token,
	})
}

// List implements GET /api/v1/keys.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r)

	records, err := h.keys.List(user.ID)
	if err != nil {
		h.writeServiceError(w, err, user.ID)
		return
	}

	out := make([]apiKeyResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toKeyResponse(record))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"keys": out, "count": len(out)})
}

// Update implements PATCH /api/v1/keys/{keyId}: enable or revoke.
func (h *APIKeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r)
	keyID := keyIDFrom(r)

	var req updateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid JSON body", nil)
		return
	}
	if req.Enabled == nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Field 'enabled' is required", nil)
		return
	}

	if err := h.keys.SetEnabled(keyID, user.ID, *req.Enabled); err != nil {
		h.writeServiceError(w, err, user.ID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": keyID, "enabled": *req.Enabled})
}

// Delete implements DELETE /api/v1/keys/{keyId}.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r)
	keyID := keyIDFrom(r)

	if err := h.keys.Delete(keyID, user.ID); err != nil {
		h.writeServiceError(w, err, user.ID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": keyID})
}

func (h *APIKeyHandler) writeServiceError(w http.ResponseWriter, err error, userID string) {
	switch {
	case stderrors.Is(err, apikeys.ErrDisabled):
		// Feature off looks identical to a route that doesn't exist.
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Not found", nil)
	case stderrors.Is(err, apikeys.ErrNotOwned):
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "API key not found", nil)
	default:
		log.Error().Err(err).Str("user_id", userID).Msg("api key operation failed")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "API key operation failed", nil)
	}
}

func keyIDFrom(r *http.Request) string {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	return params.ByName("key_id")
}

func toKeyResponse(record *models.APIKey) apiKeyResponse {
	return apiKeyResponse{
		ID:         record.ID,
		Name:       record.Name,
		KeyPrefix:  record.KeyPrefix,
		Enabled:    record.Enabled,
		LastUsedAt: record.LastUsedAt,
		CreatedAt:  record.CreatedAt,
	}
}
