package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/pengajuan-konten-api/internal/api"
	"github.com/pengajuan-konten-api/internal/auth"
	"github.com/pengajuan-konten-api/internal/config"
	"github.com/pengajuan-konten-api/internal/database"
	"github.com/pengajuan-konten-api/internal/notify"
	"github.com/pengajuan-konten-api/internal/repository"
	"github.com/pengajuan-konten-api/internal/service"
	"github.com/pengajuan-konten-api/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	// Initialize logger
	log := logger.New()
	log.Info().Msg("Starting Pengajuan Konten API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Log.Level != "" || cfg.Log.Format != "" {
		log = logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	}
	gin.SetMode(gin.ReleaseMode)

	repos, closeStore := openStore(cfg, log)
	defer closeStore()

	notifier := notify.New(&cfg.Mail, log)
	services := service.NewServices(repos, cfg, notifier, log)

	// Start background job processor
	go services.Job.StartProcessor(context.Background())
	log.Info().Msg("Background job processor started")

	sessions := auth.NewManager(cfg.Auth.Username, cfg.Auth.PasswordHash, cfg.Auth.Secret, cfg.Auth.SessionTTL)
	router := api.NewRouter(services, sessions, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("store", cfg.Store.Driver).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job processor and flush pending notifications
	if err := services.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Pending notifications were not delivered")
	}

	log.Info().Msg("Server exited gracefully")
}

// openStore selects the submission store named by STORE_DRIVER
func openStore(cfg *config.Config, log zerolog.Logger) (*repository.Repositories, func()) {
	if cfg.Store.Driver == "file" {
		repos, err := repository.NewFileStore(cfg.Store.SnapshotPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Store.SnapshotPath).Msg("Failed to open snapshot store")
		}
		log.Info().Str("path", cfg.Store.SnapshotPath).Msg("Using file snapshot store")
		return repos, func() {}
	}

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		db.Close()
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}
	return repository.New(db), func() { db.Close() }
}
