package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/folio-api/internal/api"
	"github.com/isdelr/folio-api/internal/auth"
	"github.com/isdelr/folio-api/internal/config"
	"github.com/isdelr/folio-api/internal/database"
	"github.com/isdelr/folio-api/internal/jobs"
	"github.com/isdelr/folio-api/internal/logger"
	"github.com/isdelr/folio-api/internal/services"
	"github.com/isdelr/folio-api/internal/storage"
	"github.com/isdelr/folio-api/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogPretty)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up profile image storage
	var (
		store     storage.Storage
		uploadDir string
	)
	switch cfg.StorageBackend {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), storage.S3Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			PublicBaseURL:   cfg.S3.PublicBaseURL,
		})
	default:
		var local *storage.LocalStorage
		local, err = storage.NewLocalStorage(cfg.UploadDir, "uploads")
		if err == nil {
			store, uploadDir = local, local.Dir()
		}
	}
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("Failed to initialize storage")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	hasher := auth.NewPasswordHasher(auth.DefaultCost)
	tokens := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.TokenTTL)
	eventService := services.NewEventService(db, hub)
	userService := services.NewUserService(db, hasher, cfg.DefaultProfileImage)
	portfolioService := services.NewPortfolioService(db, userService, eventService)
	authService, err := services.NewAuthService(userService, hasher, tokens, eventService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize auth service")
	}

	// Set up and run the background janitor
	janitor, err := jobs.NewJanitor(eventService, cfg.JanitorSchedule, cfg.EventRetention)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize janitor")
	}
	janitor.Start()

	// Set up router
	router := api.NewRouter(api.Deps{
		Auth:           authService,
		Users:          userService,
		Portfolio:      portfolioService,
		Events:         eventService,
		Verifier:       tokens,
		Storage:        store,
		Hub:            hub,
		UploadDir:      uploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		CORSOrigins:    cfg.CORSOrigins,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	janitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}
