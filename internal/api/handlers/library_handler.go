package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"

	apiContext "gifable/internal/api/context"
	"gifable/internal/api/middleware"
	"gifable/internal/engine/analytics"
	mediaengine "gifable/internal/engine/media"
	"gifable/internal/pkg/errors"
	"gifable/internal/platform/models"
	"gifable/internal/platform/repositories"
	"gifable/internal/platform/storage"
)

// LibraryHandler is the authenticated media management API: the CRUD
// surface behind the app UI, plus per-media stats and QR sharing.
type LibraryHandler struct {
	appURL    string
	media     *repositories.MediaRepository
	store     storage.ObjectStore
	analytics *analytics.Service
	validate  *validator.Validate
}

func NewLibraryHandler(appURL string, media *repositories.MediaRepository,
	store storage.ObjectStore, analyticsSvc *analytics.Service) *LibraryHandler {
	return &LibraryHandler{
		appURL:    appURL,
		media:     media,
		store:     store,
		analytics: analyticsSvc,
		validate:  validator.New(),
	}
}

type createMediaRequest struct {
	URL          string `json:"url" validate:"required,url"`
	ThumbnailURL string `json:"thumbnail_url" validate:"omitempty,url"`
	Labels       string `json:"labels"`
	AltText      string `json:"alt_text" validate:"max=1024"`
	Width        int    `json:"width" validate:"gte=0"`
	Height       int    `json:"height" validate:"gte=0"`
	Color        string `json:"color" validate:"omitempty,hexcolor"`
	Size         int64  `json:"size" validate:"gte=0"`
	FileHash     string `json:"file_hash"`
	IsPublic     bool   `json:"is_public"`
}

type updateMediaRequest struct {
	Labels   *string `json:"labels"`
	AltText  *string `json:"alt_text" validate:"omitempty,max=1024"`
	Color    *string `json:"color" validate:"omitempty,hexcolor"`
	IsPublic *bool   `json:"is_public"`
}

type mediaResponse struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Labels       string `json:"labels"`
	AltText      string `json:"alt_text,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Color        string `json:"color,omitempty"`
	Size         int64  `json:"size,omitempty"`
	IsPublic     bool   `json:"is_public"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// List implements GET /api/v1/media?search=. Returns the caller's own
// library, newest first.
func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r)
	search := r.URL.Query().Get("search")

	items, err := h.media.ListByUser(user.ID, search)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to list media")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list media", nil)
		return
	}

	out := make([]mediaResponse, 0, len(items))
	for _, m := range items {
		out = append(out, h.toResponse(m))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"media": out, "count": len(out)})
}

// Create implements POST /api/v1/media.
func (h *LibraryHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r)

	var req createMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid JSON body", nil)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Validation failed", validationDetails(err))
		return
	}

	m := &models.Media{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		URL:          req.URL,
		ThumbnailURL: req.ThumbnailURL,
		FileHash:     req.FileHash,
		Labels:       req.Labels,
		AltText:      req.AltText,
		Width:        req.Width,
		Height:       req.Height,
		Color:        req.Color,
		Size:         req.Size,
		IsPublic:     req.IsPublic,
	}
	if err := h.media.Create(m); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to create media")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create media", nil)
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(m))
}

// Get implements GET /api/v1/media/{mediaId}.
func (h *LibraryHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lookup(w, r, false)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(m))
}

// Update implements PATCH /api/v1/media/{mediaId}. Owner or admin only.
func (h *LibraryHandler) Update(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lookup(w, r, true)
	if !ok {
		return
	}

	var req updateMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid JSON body", nil)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Validation failed", validationDetails(err))
		return
	}

	if req.Labels != nil {
		m.Labels = *req.Labels
	}
	if req.AltText != nil {
		m.AltText = *req.AltText
	}
	if req.Color != nil {
		m.Color = *req.Color
	}
	if req.IsPublic != nil {
		m.IsPublic = *req.IsPublic
	}

	if err := h.media.Update(m); err != nil {
		log.Error().Err(err).Str("media_id", m.ID).Msg("failed to update media")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to update media", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(m))
}

// Delete implements DELETE /api/v1/media/{mediaId}. Deletes the record
// first, then the backing objects best-effort.
func (h *LibraryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lookup(w, r, true)
	if !ok {
		return
	}

	if err := h.media.Delete(m.ID); err != nil {
		log.Error().Err(err).Str("media_id", m.ID).Msg("failed to delete media")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to delete media", nil)
		return
	}

	go h.deleteObjects(m)

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": m.ID})
}

// Random implements GET /api/v1/media/random: one random public media.
func (h *LibraryHandler) Random(w http.ResponseWriter, r *http.Request) {
	m, err := h.media.RandomPublic()
	if err != nil {
		log.Error().Err(err).Msg("failed to pick random media")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to fetch media", nil)
		return
	}
	if m == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "No public media available", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(m))
}

// Stats implements GET /api/v1/media/{mediaId}/stats. Owner or admin only.
func (h *LibraryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lookup(w, r, true)
	if !ok {
		return
	}

	stats, err := h.analytics.StatsForMedia(m.ID)
	if err != nil {
		log.Error().Err(err).Str("media_id", m.ID).Msg("failed to load view stats")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load stats", nil)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// QR implements GET /api/v1/media/{mediaId}/qr?size=: a PNG QR code
// pointing at the media's share URL.
func (h *LibraryHandler) QR(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lookup(w, r, false)
	if !ok {
		return
	}

	size := 256
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 64 || n > 1024 {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Size must be between 64 and 1024", nil)
			return
		}
		size = n
	}

	shareURL := fmt.Sprintf("%s/media/%s/image", h.appURL, m.ID)
	png, err := qrcode.Encode(shareURL, qrcode.Medium, size)
	if err != nil {
		log.Error().Err(err).Str("media_id", m.ID).Msg("failed to encode qr code")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to generate QR code", nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(png)
}

// lookup fetches the media record and applies the access policy. With
// ownerOnly the caller must be the owner or an admin; otherwise the
// standard read policy from the media engine applies.
func (h *LibraryHandler) lookup(w http.ResponseWriter, r *http.Request, ownerOnly bool) (*models.Media, bool) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	mediaID := params.ByName("media_id")
	user := middleware.UserFrom(r)

	m, err := h.media.GetByID(mediaID)
	if err != nil {
		log.Error().Err(err).Str("media_id", mediaID).Msg("media lookup failed")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to fetch media", nil)
		return nil, false
	}
	if m == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Media not found", nil)
		return nil, false
	}

	if ownerOnly {
		if user == nil || (m.UserID != user.ID && !user.IsAdmin) {
			// Same body as a miss so ownership cannot be probed.
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Media not found", nil)
			return nil, false
		}
	} else if !mediaengine.CanAccess(m, user) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Media not found", nil)
		return nil, false
	}

	return m, true
}

func (h *LibraryHandler) deleteObjects(m *models.Media) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("recovered in media object cleanup")
		}
	}()

	ctx := context.Background()
	for _, raw := range []string{m.URL, m.ThumbnailURL} {
		if raw == "" {
			continue
		}
		filename := h.store.FilenameFromURL(raw)
		if filename == "" {
			continue // external URL, nothing to clean up
		}
		if err := h.store.DeleteObject(ctx, filename); err != nil {
			log.Warn().Err(err).Str("filename", filename).Msg("failed to delete media object")
		}
	}
}

func (h *LibraryHandler) toResponse(m *models.Media) mediaResponse {
	resp := mediaResponse{
		ID:        m.ID,
		URL:       fmt.Sprintf("%s/media/%s/image", h.appURL, m.ID),
		Labels:    m.Labels,
		AltText:   m.AltText,
		Width:     m.Width,
		Height:    m.Height,
		Color:     m.Color,
		Size:      m.Size,
		IsPublic:  m.IsPublic,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.ThumbnailURL != "" {
		resp.ThumbnailURL = fmt.Sprintf("%s/media/%s/thumbnail", h.appURL, m.ID)
	}
	return resp
}

func validationDetails(err error) interface{} {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
