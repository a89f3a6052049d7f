// Package storage holds the recording bytes behind a small adapter
// interface. Two interchangeable backends exist: Supabase Storage over its
// REST API (what production uses) and a local filesystem directory for
// development and tests. The pipeline only ever sees opaque storage keys.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no object exists under the requested key.
var ErrNotFound = errors.New("object not found")

// Store is the object-storage adapter used by the pipeline.
type Store interface {
	// Download retrieves the raw bytes stored under key.
	Download(ctx context.Context, key string) ([]byte, error)

	// Upload stores data under key, overwriting any existing object.
	Upload(ctx context.Context, key string, data []byte, contentType string) error

	// Name returns the backend name (e.g. "supabase", "local")
	Name() string
}

// SignedUpload describes a short-lived, pre-authorized upload location a
// client can PUT/POST to without holding service credentials.
type SignedUpload struct {
	URL       string    `json:"url"`
	Token     string    `json:"token,omitempty"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Presigner is implemented by backends that can issue signed upload
// locations. The local backend does not.
type Presigner interface {
	SignUpload(ctx context.Context, key string, expiresIn time.Duration) (*SignedUpload, error)
}
