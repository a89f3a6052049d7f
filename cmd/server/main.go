package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"speakwall/internal/api"
	"speakwall/internal/auth"
	"speakwall/internal/coach"
	"speakwall/internal/config"
	"speakwall/internal/logger"
	"speakwall/internal/observe"
	"speakwall/internal/pipeline"
	"speakwall/internal/repository"
	"speakwall/internal/storage"
	"speakwall/internal/transcribe"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	// Set Gin mode (default to release mode)
	if os.Getenv("GIN_MODE") == "" && cfg.Environment != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		log.WithError(err).Fatal("failed to initialize metrics provider")
	}
	defer func() {
		if err := shutdownMetrics(ctx); err != nil {
			log.WithError(err).Warn("metrics shutdown failed")
		}
	}()
	met := observe.DefaultMetrics()

	store, err := repository.CreateStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize session store")
	}
	defer store.Close()
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, sessions are kept in memory only")
	}

	objects, err := storage.CreateStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize object storage")
	}
	log.WithField("backend", objects.Name()).Info("object storage initialized")

	if cfg.OpenAIKey == "" {
		log.Warn("OPENAI_API_KEY not set, analyze and recommendations will fail until configured")
	}
	transcriber := transcribe.CreateProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	coachProvider := coach.CreateProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL)

	pipe := pipeline.New(pipeline.Config{
		Store:       store,
		Objects:     objects,
		Transcriber: transcriber,
		Coach:       coachProvider,
		Metrics:     met,
		TrialLimit:  cfg.TrialSessionLimit,
		CallTimeout: cfg.ExternalTimeout,
	})

	signer := auth.NewSigner(cfg.AuthSecret, auth.DefaultTTL)
	srv := api.NewServer(cfg, pipe, store, objects, signer)

	r := gin.Default()
	srv.RegisterRoutes(r)

	log.WithField("port", cfg.Port).Info("speakwall backend running")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
