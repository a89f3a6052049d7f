package repository

import (
	"context"
	"strings"

	"speakwall/internal/logger"
)

// CreateStore creates the relational store selected by DATABASE_URL:
// empty selects the in-memory store, a "sqlite:" prefix selects the SQLite
// backend, anything else is treated as a Postgres connection string.
func CreateStore(ctx context.Context, databaseURL string) (Store, error) {
	log := logger.New().WithField("component", "repository.factory")

	switch {
	case databaseURL == "":
		log.Warn("DATABASE_URL not set, using in-memory store (data is lost on restart)")
		return NewMemoryStore(), nil
	case strings.HasPrefix(databaseURL, "sqlite:"):
		path := strings.TrimPrefix(databaseURL, "sqlite:")
		log.WithField("path", path).Info("using sqlite store")
		return OpenSQLite(path)
	default:
		log.Info("using postgres store")
		return Connect(ctx, databaseURL)
	}
}
