package handlers

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	apiContext "gifable/internal/api/context"
	"gifable/internal/engine/analytics"
	mediaengine "gifable/internal/engine/media"
	"gifable/internal/engine/matrix"
	"gifable/internal/pkg/errors"
	"gifable/internal/platform/models"
	"gifable/internal/platform/repositories"
	"gifable/internal/platform/storage"
)

const serverVersion = "1.0.0"

// keyValidityPeriod is how far in the future published keys claim to be
// valid. Keys regenerate on restart, so peers refetch after a deploy anyway.
const keyValidityPeriod = 365 * 24 * time.Hour

// FederationHandler serves the Matrix server-to-server surface: discovery,
// key publishing, version, and federation media download/thumbnail.
// Federation only ever sees public media.
type FederationHandler struct {
	serverName string
	signer     *matrix.Signer
	media      *repositories.MediaRepository
	resolver   *mediaengine.Resolver
	store      storage.ObjectStore
	views      *analytics.ViewLogger
}

func NewFederationHandler(serverName string, signer *matrix.Signer, media *repositories.MediaRepository,
	resolver *mediaengine.Resolver, store storage.ObjectStore, views *analytics.ViewLogger) *FederationHandler {
	return &FederationHandler{
		serverName: serverName,
		signer:     signer,
		media:      media,
		resolver:   resolver,
		store:      store,
		views:      views,
	}
}

// WellKnown implements GET /.well-known/matrix/server.
func (h *FederationHandler) WellKnown(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "public, max-age=86400")

	json.NewEncoder(w).Encode(map[string]string{
		"m.server": h.serverName + ":443",
	})
}

// ServerKeys implements GET /_matrix/key/v2/server, publishing this server's
// signing key with a signature over the canonical response.
func (h *FederationHandler) ServerKeys(w http.ResponseWriter, r *http.Request) {
	pubKey, err := h.signer.PublicKey(h.serverName)
	if err != nil {
		log.Error().Err(err).Msg("failed to get signing key")
		errors.WriteMatrixError(w, http.StatusInternalServerError, errors.MatrixUnknown, "Failed to generate server keys")
		return
	}

	response := map[string]interface{}{
		"server_name":     h.serverName,
		"old_verify_keys": map[string]interface{}{},
		"valid_until_ts":  time.Now().Add(keyValidityPeriod).UnixMilli(),
		"verify_keys": map[string]interface{}{
			matrix.KeyID: map[string]interface{}{
				"key": pubKey,
			},
		},
	}

	signed, err := h.signer.SignServerKeys(h.serverName, response)
	if err != nil {
		log.Error().Err(err).Msg("failed to sign server keys response")
		errors.WriteMatrixError(w, http.StatusInternalServerError, errors.MatrixUnknown, "Failed to sign server keys")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(signed)
}

// Version implements GET /_matrix/federation/v1/version.
func (h *FederationHandler) Version(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	json.NewEncoder(w).Encode(map[string]interface{}{
		"server": map[string]string{
			"name":    "Gifable Media Proxy",
			"version": serverVersion,
		},
	})
}

// Download implements GET /_matrix/federation/v1/media/download/{mediaId}.
// No server-name segment: federation requests are already routed at this
// server. The response is multipart/mixed with an empty JSON metadata part
// followed by the media bytes; a bare binary body is a protocol violation
// here even though naive clients accept it.
func (h *FederationHandler) Download(w http.ResponseWriter, r *http.Request) {
	m, resolved, ok := h.lookupPublic(w, r, false)
	if !ok {
		return
	}

	data, err := h.store.GetObject(r.Context(), resolved.Filename)
	if err != nil {
		log.Error().Err(err).Str("media_id", m.ID).Msg("storage fetch failed")
		errors.WriteMatrixError(w, http.StatusInternalServerError, errors.MatrixUnknown, "Failed to fetch media")
		return
	}

	go h.views.LogView(m.ID, "", r.UserAgent(), models.ViewFederation)

	h.writeMultipart(w, data, resolved.ContentType)
}

// Thumbnail implements GET /_matrix/federation/v1/media/thumbnail/{mediaId}.
// Federation framing forbids redirecting to non-federation URLs, so the
// thumbnail is always proxied, inside the same multipart envelope as
// Download.
func (h *FederationHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	m, resolved, ok := h.lookupPublic(w, r, true)
	if !ok {
		return
	}

	data, err := h.store.GetObject(r.Context(), resolved.Filename)
	if err != nil {
		log.Error().Err(err).Str("media_id", m.ID).Msg("storage fetch failed")
		errors.WriteMatrixError(w, http.StatusInternalServerError, errors.MatrixUnknown, "Failed to fetch thumbnail")
		return
	}

	go h.views.LogView(m.ID, "", r.UserAgent(), models.ViewFederation)

	h.writeMultipart(w, data, resolved.ContentType)
}

// lookupPublic handles the shared id-validation, record-lookup, visibility
// and URL-resolution steps, writing the error response itself when a step
// fails.
func (h *FederationHandler) lookupPublic(w http.ResponseWriter, r *http.Request, thumbnail bool) (*models.Media, *mediaengine.Resolved, bool) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	mediaID := params.ByName("media_id")
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
	// Private media is indistinguishable from absent media over federation.
	if m == nil || !m.IsPublic {
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
		// Server-issued URL that doesn't map to storage: data corruption,
		// not caller error.
		log.Error().Err(err).Str("media_id", mediaID).Msg("stored media url is invalid")
		errors.WriteMatrixError(w, http.StatusInternalServerError, errors.MatrixUnknown, "Invalid media URL")
		return nil, nil, false
	}

	return m, resolved, true
}

func (h *FederationHandler) writeMultipart(w http.ResponseWriter, data []byte, contentType string) {
	mw := multipart.NewWriter(w)
	defer mw.Close()

	w.Header().Set("Content-Type", "multipart/mixed; boundary="+mw.Boundary())
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json")
	meta, err := mw.CreatePart(metaHeader)
	if err != nil {
		log.Error().Err(err).Msg("failed to write multipart metadata part")
		return
	}
	fmt.Fprint(meta, "{}")

	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Type", contentType)
	file, err := mw.CreatePart(fileHeader)
	if err != nil {
		log.Error().Err(err).Msg("failed to write multipart media part")
		return
	}
	file.Write(data)
}
