package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerylCAtieno/transcript-redactor/internal/config"
	"github.com/BerylCAtieno/transcript-redactor/internal/db"
	"github.com/BerylCAtieno/transcript-redactor/internal/detector"
	"github.com/BerylCAtieno/transcript-redactor/internal/redactor"
	"github.com/BerylCAtieno/transcript-redactor/internal/repository"
	"github.com/BerylCAtieno/transcript-redactor/internal/router"
	"github.com/BerylCAtieno/transcript-redactor/internal/services"
	"github.com/BerylCAtieno/transcript-redactor/internal/storage"
	"github.com/BerylCAtieno/transcript-redactor/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	// Run migrations
	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// Initialize database
	database, err := db.NewSQLiteDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	policyRepo := repository.NewRepository(database)

	if cfg.PolicyFile != "" {
		presets, err := config.LoadPresets(cfg.PolicyFile)
		if err != nil {
			logger.Fatal("Failed to load policy file", "error", err, "path", cfg.PolicyFile)
		}
		for i := range presets {
			if err := policyRepo.Upsert(context.Background(), &presets[i]); err != nil {
				logger.Fatal("Failed to store policy preset", "error", err, "preset", presets[i].Name)
			}
		}
		logger.Info("Policy presets loaded", "path", cfg.PolicyFile, "count", len(presets))
	}

	preset, err := policyRepo.GetByName(context.Background(), cfg.DefaultPreset)
	if err != nil {
		logger.Fatal("Failed to read default preset", "error", err)
	}
	if preset == nil {
		logger.Fatal("Default policy preset does not exist", "preset", cfg.DefaultPreset)
	}

	// Initialize detector
	det, err := detector.New(detector.Config{
		Backends:        cfg.DetectorBackends,
		URL:             cfg.DetectorURL,
		Timeout:         cfg.DetectorTimeout,
		ProseConfidence: cfg.ProseConfidence,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize detector", "error", err)
	}

	// Artifact archive is opt-in
	var store storage.Storage
	if cfg.ArtifactStoreEnabled {
		store, err = storage.NewS3Storage(cfg)
		if err != nil {
			logger.Fatal("Failed to initialize artifact storage", "error", err)
		}
		logger.Info("Artifact archive enabled", "bucket", cfg.S3BucketName)
	}

	overlap, err := redactor.ParseOverlapPolicy(cfg.OverlapPolicy)
	if err != nil {
		logger.Fatal("Invalid overlap policy", "error", err)
	}

	redactionService := services.NewService(policyRepo, det, store, services.Options{
		Overlap:       overlap,
		DefaultPreset: cfg.DefaultPreset,
		Language:      cfg.DetectorLanguage,
	}, logger)

	// Setup HTTP router
	handler := router.NewRouter(redactionService, cfg.MaxFileSize, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.DetectorTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("Starting server",
			"port", cfg.Port,
			"detector", det.Name(),
			"policy", cfg.DefaultPreset,
			"overlap", overlap)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
