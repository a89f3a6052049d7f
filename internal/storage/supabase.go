package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"speakwall/internal/logger"
)

// SupabaseStore talks to the Supabase Storage REST API with a service key.
type SupabaseStore struct {
	baseURL string
	apiKey  string
	bucket  string
	client  *http.Client
	log     *logger.Logger
}

// NewSupabaseStore creates a Supabase storage backend for the given project
// URL, service key and bucket.
func NewSupabaseStore(baseURL, apiKey, bucket string) *SupabaseStore {
	return &SupabaseStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		bucket:  bucket,
		client:  &http.Client{Timeout: 90 * time.Second},
		log:     logger.New(),
	}
}

// Name returns the backend name
func (s *SupabaseStore) Name() string {
	return "supabase"
}

func (s *SupabaseStore) objectURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, key)
}

func (s *SupabaseStore) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("apikey", s.apiKey)
}

// Download retrieves an object from the bucket.
func (s *SupabaseStore) Download(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download recording: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if resp.StatusCode != http.StatusOK {
		s.log.WithField("status", resp.StatusCode).WithField("key", key).
			Warn("storage download failed")
		return nil, fmt.Errorf("storage returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	return body, nil
}

// Upload stores an object in the bucket, overwriting any previous version.
func (s *SupabaseStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL(key), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	s.authorize(req)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("storage upload returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return nil
}

// SignUpload issues a short-lived signed upload location for key, so clients
// can upload without holding the service key.
func (s *SupabaseStore) SignUpload(ctx context.Context, key string, expiresIn time.Duration) (*SignedUpload, error) {
	url := fmt.Sprintf("%s/storage/v1/object/upload/sign/%s/%s", s.baseURL, s.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to sign upload: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read sign response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storage sign returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var signed struct {
		URL   string `json:"url"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &signed); err != nil {
		return nil, fmt.Errorf("failed to parse sign response: %w", err)
	}
	if signed.URL == "" {
		return nil, fmt.Errorf("storage sign returned no url")
	}

	uploadURL := signed.URL
	if strings.HasPrefix(uploadURL, "/") {
		uploadURL = s.baseURL + "/storage/v1" + uploadURL
	}

	return &SignedUpload{
		URL:       uploadURL,
		Token:     signed.Token,
		Key:       key,
		ExpiresAt: time.Now().Add(expiresIn),
	}, nil
}

func truncate(b []byte, max int) string {
	s := string(b)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
