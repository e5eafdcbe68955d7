package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"gifable/internal/api/middleware"
	mediaengine "gifable/internal/engine/media"
	"gifable/internal/pkg/errors"
	"gifable/internal/platform/models"
)

const searchCacheTTL = 60 * time.Second

type cachedSearch struct {
	response  *mediaengine.SearchResponse
	expiresAt time.Time
}

// SearchHandler serves the public search API at /search and its Matrix
// alias /_matrix/media/search. Responses are cached briefly per
// query+viewer so widget polling doesn't hammer the database.
type SearchHandler struct {
	search *mediaengine.SearchService
	cache  sync.Map // cache key -> cachedSearch
}

func NewSearchHandler(search *mediaengine.SearchService) *SearchHandler {
	h := &SearchHandler{search: search}
	go h.cleanupLoop()
	return h
}

// Search implements GET /search?query=&limit=&external=.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		query = r.URL.Query().Get("q")
	}
	limit := h.search.ClampLimit(r.URL.Query().Get("limit"))
	external := r.URL.Query().Get("external") == "true"
	user := middleware.UserFrom(r)

	key := cacheKey(query, limit, external, user)
	if cached, ok := h.cache.Load(key); ok {
		entry := cached.(cachedSearch)
		if time.Now().Before(entry.expiresAt) {
			writeSearchResponse(w, entry.response, true)
			return
		}
		h.cache.Delete(key)
	}

	resp, err := h.search.Search(r.Context(), query, limit, user, external)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("search failed")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Search failed", nil)
		return
	}

	h.cache.Store(key, cachedSearch{response: resp, expiresAt: time.Now().Add(searchCacheTTL)})
	writeSearchResponse(w, resp, false)
}

func writeSearchResponse(w http.ResponseWriter, resp *mediaengine.SearchResponse, cached bool) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "public, max-age=60")
	if cached {
		w.Header().Set("X-Cache", "HIT")
	}
	writeJSON(w, http.StatusOK, resp)
}

func cacheKey(query string, limit int, external bool, user *models.User) string {
	viewer := ""
	if user != nil {
		viewer = user.ID
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%t|%s", query, limit, external, viewer)))
	return hex.EncodeToString(sum[:8])
}

func (h *SearchHandler) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		h.cache.Range(func(key, value interface{}) bool {
			if now.After(value.(cachedSearch).expiresAt) {
				h.cache.Delete(key)
			}
			return true
		})
	}
}
