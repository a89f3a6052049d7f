package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string

	// OpenAI (transcription + recommendations)
	OpenAIKey     string
	OpenAIBaseURL string

	// Object storage
	StorageBackend  string // "supabase" or "local"
	SupabaseURL     string
	SupabaseKey     string
	StorageBucket   string
	LocalStorageDir string
	PresignMode     string // "deprecated" or "signed"

	// Relational store. Empty means in-memory, "sqlite:<path>" selects the
	// SQLite backend, anything else is a Postgres connection string.
	DatabaseURL string

	// Auth token signing secret
	AuthSecret string

	TrialSessionLimit int
	ExternalTimeout   time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "local"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		StorageBackend:  getEnv("STORAGE_BACKEND", "supabase"),
		SupabaseURL:     os.Getenv("SUPABASE_URL"),
		SupabaseKey:     os.Getenv("SUPABASE_SERVICE_KEY"),
		StorageBucket:   getEnv("STORAGE_BUCKET", "speakwall-recordings"),
		LocalStorageDir: getEnv("LOCAL_STORAGE_DIR", "uploads"),
		PresignMode:     getEnv("PRESIGN_MODE", "deprecated"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		AuthSecret:      os.Getenv("AUTH_SECRET"),
	}

	limit, err := getEnvInt("TRIAL_SESSION_LIMIT", 3)
	if err != nil {
		return nil, err
	}
	cfg.TrialSessionLimit = limit

	timeoutSec, err := getEnvInt("EXTERNAL_CALL_TIMEOUT_SEC", 90)
	if err != nil {
		return nil, err
	}
	cfg.ExternalTimeout = time.Duration(timeoutSec) * time.Second

	// OPENAI_API_KEY is validated lazily: it is only needed once the analyze
	// or recommendations stage actually runs.

	if cfg.StorageBackend == "supabase" {
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required when STORAGE_BACKEND=supabase. Set STORAGE_BACKEND=local for filesystem storage")
		}
	}

	if cfg.AuthSecret == "" {
		return nil, fmt.Errorf("AUTH_SECRET is required. Generate one with: openssl rand -hex 32")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}
