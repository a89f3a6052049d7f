package storage

import (
	"fmt"

	"speakwall/internal/config"
	"speakwall/internal/logger"
)

// CreateStore creates the object-storage backend selected by configuration.
func CreateStore(cfg *config.Config) (Store, error) {
	log := logger.New().WithField("component", "storage.factory")

	switch cfg.StorageBackend {
	case "supabase":
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for the supabase backend")
		}
		log.WithField("bucket", cfg.StorageBucket).Info("using supabase storage backend")
		return NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.StorageBucket), nil
	case "local":
		log.WithField("dir", cfg.LocalStorageDir).Info("using local storage backend")
		return NewLocalStore(cfg.LocalStorageDir)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s. Supported: supabase, local", cfg.StorageBackend)
	}
}
