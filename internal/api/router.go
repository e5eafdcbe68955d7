package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "gifable/internal/api/context"
	"gifable/internal/api/handlers"
	"gifable/internal/api/middleware"
	"gifable/internal/platform/config"
)

type Dependencies struct {
	AuthHandler       *handlers.AuthHandler
	LibraryHandler    *handlers.LibraryHandler
	MediaHandler      *handlers.MediaHandler
	SearchHandler     *handlers.SearchHandler
	APIKeyHandler     *handlers.APIKeyHandler
	FederationHandler *handlers.FederationHandler
	HealthHandler     *handlers.HealthHandler
	MetricsHandler    *handlers.MetricsHandler
	AuthMiddleware    *middleware.AuthMiddleware
	RateLimiter       *middleware.RateLimiter
	RateLimits        config.RateLimitConfig
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	authMid := deps.AuthMiddleware
	searchLimit := middleware.RateLimit(deps.RateLimiter, "search", deps.RateLimits.SearchPerMinute)
	mediaLimit := middleware.RateLimit(deps.RateLimiter, "media", deps.RateLimits.MediaPerMinute)

	// Matrix federation surface. Anonymous by design: homeservers don't
	// hold Gifable credentials.
	router.GET("/.well-known/matrix/server", wrap(deps.FederationHandler.WellKnown))
	router.GET("/_matrix/key/v2/server", wrap(deps.FederationHandler.ServerKeys))
	router.GET("/_matrix/federation/v1/version", wrap(deps.FederationHandler.Version))
	router.GET("/_matrix/federation/v1/media/download/:media_id",
		chain(deps.FederationHandler.Download, mediaLimit))
	router.GET("/_matrix/federation/v1/media/thumbnail/:media_id",
		chain(deps.FederationHandler.Thumbnail, mediaLimit))

	// Matrix client media endpoints. Optional principal so owners can see
	// their private media through Matrix clients.
	router.GET("/_matrix/client/v1/media/download/:server_name/:media_id",
		chain(deps.MediaHandler.ClientDownload, authMid.OptionalUser, mediaLimit))
	router.GET("/_matrix/media/v3/thumbnail/:server_name/:media_id",
		chain(deps.MediaHandler.ClientThumbnail, authMid.OptionalUser, mediaLimit))

	// App media proxy URLs (share links, widget embeds, Giphy passthrough).
	router.GET("/media/:media_id/image",
		chain(deps.MediaHandler.ProxyImage, authMid.OptionalUser, mediaLimit))
	router.GET("/media/:media_id/thumbnail",
		chain(deps.MediaHandler.ProxyThumbnail, authMid.OptionalUser, mediaLimit))

	// Search, both the app path and its Matrix alias.
	router.GET("/search", chain(deps.SearchHandler.Search, authMid.OptionalUser, searchLimit))
	router.GET("/_matrix/media/search", chain(deps.SearchHandler.Search, authMid.OptionalUser, searchLimit))

	// Authentication
	router.POST("/api/v1/auth/login", wrap(deps.AuthHandler.Login))
	router.POST("/api/v1/auth/logout", wrap(deps.AuthHandler.Logout))
	router.GET("/api/v1/auth/me", chain(deps.AuthHandler.Me, authMid.RequireUser))

	// Library management
	router.GET("/api/v1/media", chain(deps.LibraryHandler.List, authMid.RequireUser))
	router.POST("/api/v1/media", chain(deps.LibraryHandler.Create, authMid.RequireUser))
	// httprouter can't mix a static segment with :media_id, so random gets
	// its own path.
	router.GET("/api/v1/random", wrap(deps.LibraryHandler.Random))
	router.GET("/api/v1/media/:media_id", chain(deps.LibraryHandler.Get, authMid.OptionalUser))
	router.PATCH("/api/v1/media/:media_id", chain(deps.LibraryHandler.Update, authMid.RequireUser))
	router.DELETE("/api/v1/media/:media_id", chain(deps.LibraryHandler.Delete, authMid.RequireUser))
	router.GET("/api/v1/media/:media_id/stats", chain(deps.LibraryHandler.Stats, authMid.RequireUser))
	router.GET("/api/v1/media/:media_id/qr", chain(deps.LibraryHandler.QR, authMid.OptionalUser))

	// API key management
	router.POST("/api/v1/keys", chain(deps.APIKeyHandler.Create, authMid.RequireUser))
	router.GET("/api/v1/keys", chain(deps.APIKeyHandler.List, authMid.RequireUser))
	router.PATCH("/api/v1/keys/:key_id", chain(deps.APIKeyHandler.Update, authMid.RequireUser))
	router.DELETE("/api/v1/keys/:key_id", chain(deps.APIKeyHandler.Delete, authMid.RequireUser))

	// Operational endpoints
	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Serve))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
