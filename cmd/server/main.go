package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"gifable/internal/api"
	"gifable/internal/api/handlers"
	"gifable/internal/api/middleware"
	"gifable/internal/engine/analytics"
	"gifable/internal/engine/apikeys"
	"gifable/internal/engine/giphy"
	"gifable/internal/engine/matrix"
	mediaengine "gifable/internal/engine/media"
	"gifable/internal/pkg/logger"
	"gifable/internal/platform/auth"
	"gifable/internal/platform/config"
	"gifable/internal/platform/database"
	"gifable/internal/platform/repositories"
	"gifable/internal/platform/storage"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	serverName, err := cfg.App.ServerName()
	if err != nil {
		log.Fatalf("Invalid app url: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	store, err := storage.NewS3Store(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to configure storage: %v", err)
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	mediaRepo := repositories.NewMediaRepository(db)
	apiKeyRepo := repositories.NewAPIKeyRepository(db)
	viewRepo := repositories.NewMediaViewRepository(db)

	// Services
	sessions := auth.NewSessions(cfg.Session, userRepo)
	apiKeySvc := apikeys.NewService(apiKeyRepo, userRepo, cfg.APIKeys.Enabled)
	signer := matrix.NewSigner(matrix.NewKeyStore())
	giphyClient := giphy.NewClient(cfg.Giphy)
	resolver := mediaengine.NewResolver(store)
	searchSvc := mediaengine.NewSearchService(mediaRepo, giphyClient, serverName, cfg.App.URL,
		cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	viewLogger := analytics.NewViewLogger(viewRepo)
	analyticsSvc := analytics.NewService(viewRepo, mediaRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(sessions, userRepo)
	libraryHandler := handlers.NewLibraryHandler(cfg.App.URL, mediaRepo, store, analyticsSvc)
	mediaHandler := handlers.NewMediaHandler(serverName, cfg.App.URL, mediaRepo, resolver, store, giphyClient, viewLogger)
	searchHandler := handlers.NewSearchHandler(searchSvc)
	apiKeyHandler := handlers.NewAPIKeyHandler(apiKeySvc)
	federationHandler := handlers.NewFederationHandler(serverName, signer, mediaRepo, resolver, store, viewLogger)
	healthHandler := handlers.NewHealthHandler(db, store)
	metricsHandler := handlers.NewMetricsHandler(analyticsSvc)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(sessions, apiKeySvc)
	rateLimiter := middleware.NewRateLimiter()

	deps := &api.Dependencies{
		AuthHandler:       authHandler,
		LibraryHandler:    libraryHandler,
		MediaHandler:      mediaHandler,
		SearchHandler:     searchHandler,
		APIKeyHandler:     apiKeyHandler,
		FederationHandler: federationHandler,
		HealthHandler:     healthHandler,
		MetricsHandler:    metricsHandler,
		AuthMiddleware:    authMiddleware,
		RateLimiter:       rateLimiter,
		RateLimits:        cfg.RateLimit,
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Printf("Server starting on %s (server_name=%s)", addr, serverName)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
