package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	apiContext "gifable/internal/api/context"
	"gifable/internal/api/middleware"
	"gifable/internal/engine/analytics"
	"gifable/internal/engine/giphy"
	mediaengine "gifable/internal/engine/media"
	"gifable/internal/pkg/errors"
	"gifable/internal/pkg/parser"
	"gifable/internal/platform/models"
	"gifable/internal/platform/repositories"
	"gifable/internal/platform/storage"
)

// MediaHandler serves media bytes to Matrix clients and to the app's own
// proxy URLs. Unlike federation, these endpoints resolve an optional
// principal, so owners and admins can fetch their private media.
type MediaHandler struct {
	serverName string
	appURL     string
	media      *repositories.MediaRepository
	resolver   *mediaengine.Resolver
	store      storage.ObjectStore
	giphy      *giphy.Client
	views      *analytics.ViewLogger
}

func NewMediaHandler(serverName, appURL string, media *repositories.MediaRepository,
	resolver *mediaengine.Resolver, store storage.ObjectStore, giphyClient *giphy.Client,
	views *analytics.ViewLogger) *MediaHandler {
	return &MediaHandler{
		serverName: serverName,
		appURL:     appURL,
		media:      media,
		resolver:   resolver,
		store:      store,
		giphy:      giphyClient,
		views:      views,
	}
}

// ClientDownload implements
// GET /_matrix/client/v1/media/download/{serverName}/{mediaId}.
// Client-facing shape: raw bytes, no multipart wrapping.
func (h *MediaHandler) ClientDownload(w http.ResponseWriter, r *http.Request) {
	m, resolved, ok := h.lookupForClient(w, r, false)
	if !ok {
		return
	}

	data, err := h.store.GetObject(r.Context(), resolved.Filename)
	if err != nil {
		log.Error().Err(err).Str("media_id", m.ID).Msg("storage fetch failed")
		errors.WriteMatrixError(w, http.StatusInternalServerError, errors.MatrixUnknown, "Failed to fetch media")
		return
	}

	go h.views.LogView(m.ID, viewerID(r), r.UserAgent(), models.ViewFederation)

	w.Header().Set("Content-Type", resolved.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(data)
}

// ClientThumbnail implements
// GET /_matrix/media/v3/thumbnail/{serverName}/{mediaId}?allow_redirect=.
// With allow_redirect (the default) the caller gets a 308 to the backing
// object; otherwise the bytes are proxied through this server.
func (h *MediaHandler) ClientThumbnail(w http.ResponseWriter, r *http.Request) {
	m, resolved, ok := h.lookupForClient(w, r, true)
	if !ok {
		return
	}

	go h.views.LogView(m.ID, viewerID(r), r.UserAgent(), models.ViewFederation)

	if allowRedirect(r) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		http.Redirect(w, r, resolved.URL, http.StatusPermanentRedirect)
		return
	}

	data, err := h.store.GetObject(r.Context(), resolved.Filename)
	if err != nil {
		log.Error().Err(err).Str("media_id", m.ID).Msg("storage fetch failed")
		errors.WriteMatrixError(w, http.StatusInternalServerError, errors.MatrixUnknown, "Failed to fetch thumbnail")
		return
	}

	w.Header().Set("Content-Type", resolved.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(data)
}

// ProxyImage implements GET /media/{mediaId}/image, the app's own direct
// image URL. Handles Giphy passthrough ids as well as local media.
func (h *MediaHandler) ProxyImage(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, false)
}

// ProxyThumbnail implements GET /media/{mediaId}/thumbnail.
func (h *MediaHandler) ProxyThumbnail(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, true)
}

func (h *MediaHandler) proxy(w http.ResponseWriter, r *http.Request, thumbnail bool) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	mediaID := params.ByName("media_id")

	user := middleware.UserFrom(r)
	viewType := analytics.ClassifyView(r.Referer(), h.appURL)
	// Homeservers sometimes fetch through the plain proxy URLs; count those
	// as federation traffic, not embeds.
	if parser.IsHomeserver(r.UserAgent()) {
		viewType = models.ViewFederation
	}
	go h.views.LogView(mediaID, viewerID(r), r.UserAgent(), viewType)

	if mediaengine.SourceOf(mediaID) == mediaengine.SourceGiphy {
		h.proxyGiphy(w, r, user, mediaID, thumbnail)
		return
	}

	m, err := h.media.GetByID(mediaID)
	if err != nil {
		log.Error().Err(err).Str("media_id", mediaID).Msg("media lookup failed")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to fetch media", nil)
		return
	}
	if m == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Media not found", nil)
		return
	}
	if !mediaengine.CanAccess(m, user) {
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "This media is private", nil)
		return
	}

	var resolved *mediaengine.Resolved
	if thumbnail {
		resolved, err = h.resolver.ResolveThumbnail(m)
	} else {
		resolved, err = h.resolver.Resolve(m)
	}
	if err != nil {
		log.Error().Err(err).Str("media_id", mediaID).Msg("stored media url is invalid")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Invalid media URL", nil)
		return
	}

	data, err := h.store.GetObject(r.Context(), resolved.Filename)
	if err != nil {
		log.Error().Err(err).Str("media_id", mediaID).Msg("storage fetch failed")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to fetch media", nil)
		return
	}

	w.Header().Set("Content-Type", resolved.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(data)
}

func (h *MediaHandler) proxyGiphy(w http.ResponseWriter, r *http.Request, user *models.User, mediaID string, thumbnail bool) {
	// Giphy passthrough needs the viewer's own API key.
	if user == nil {
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Authentication required for Giphy images", nil)
		return
	}
	if user.GiphyAPIKey == "" {
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Giphy API key required to view Giphy images", nil)
		return
	}

	variant := giphy.VariantOriginal
	if thumbnail {
		variant = giphy.VariantThumbnail
	}

	data, contentType, err := h.giphy.FetchImage(r.Context(), user.GiphyAPIKey, mediaID, variant)
	if err != nil {
		log.Error().Err(err).Str("media_id", mediaID).Msg("giphy fetch failed")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to fetch media", nil)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Content-Source", "giphy")
	w.Write(data)
}

// lookupForClient performs the server-name check, record lookup, access
// decision and URL resolution shared by the Matrix client endpoints.
func (h *MediaHandler) lookupForClient(w http.ResponseWriter, r *http.Request, thumbnail bool) (*models.Media, *mediaengine.Resolved, bool) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	serverName := params.ByName("server_name")
	mediaID := params.ByName("media_id")

	// The server-name mismatch is a routing fact, not a privacy boundary,
	// so the message may name the actual server.
	if serverName != h.serverName {
		errors.WriteMatrixError(w, http.StatusNotFound, errors.MatrixNotFound,
			fmt.Sprintf("This server (%s) does not serve media for %s", h.serverName, serverName))
		return nil, nil, false
	}

	if mediaID == "" {
		errors.WriteMatrixError(w, http.StatusNotFound, errors.MatrixNotFound, "Media ID is required")
		return nil, nil, false
	}

	m, err := h.media.GetByID(mediaID)
	if err != nil {
		log.Error().Err(err).Str("media_id", mediaID).Msg("media lookup failed")
		errors.WriteMatrixError(w, http.StatusInternalServerError, errors.MatrixUnknown, "Failed to fetch media")
		return nil, nil, false
	}
	if m == nil || !mediaengine.CanAccess(m, middleware.UserFrom(r)) {
		errors.WriteMatrixNotFound(w)
		return nil, nil, false
	}

	var resolved *mediaengine.Resolved
	if thumbnail {
		resolved, err = h.resolver.ResolveThumbnail(m)
	} else {
		resolved, err = h.resolver.Resolve(m)
	}
	if err != nil {
		log.Error().Err(err).Str("media_id", mediaID).Msg("stored media url is invalid")
		errors.WriteMatrixError(w, http.StatusInternalServerError, errors.MatrixUnknown, "Invalid media URL")
		return nil, nil, false
	}

	return m, resolved, true
}

func allowRedirect(r *http.Request) bool {
	// allow_redirect defaults to true; only an explicit false disables it.
	v := r.URL.Query().Get("allow_redirect")
	return v != "false"
}

func viewerID(r *http.Request) string {
	if user := middleware.UserFrom(r); user != nil {
		return user.ID
	}
	return ""
}
