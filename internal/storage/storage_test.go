package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	ctx := context.Background()
	payload := []byte("webm-bytes")

	if err := store.Upload(ctx, "u1/rec1.webm", payload, "video/webm"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	got, err := store.Download(ctx, "u1/rec1.webm")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Download() = %q, want %q", got, payload)
	}
}

func TestLocalStore_NotFound(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	_, err = store.Download(context.Background(), "missing.webm")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Download() error = %v, want ErrNotFound", err)
	}
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	for _, key := range []string{"../outside", "/etc/passwd", "."} {
		if _, err := store.Download(context.Background(), key); err == nil {
			t.Errorf("Download(%q) should fail", key)
		}
		if err := store.Upload(context.Background(), key, []byte("x"), ""); err == nil {
			t.Errorf("Upload(%q) should fail", key)
		}
	}
}

func TestSupabaseStore_Download(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer service-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/storage/v1/object/recordings/u1/rec1.webm":
			w.Write([]byte("recording-bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	store := NewSupabaseStore(srv.URL, "service-key", "recordings")

	got, err := store.Download(context.Background(), "u1/rec1.webm")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if string(got) != "recording-bytes" {
		t.Errorf("Download() = %q, want recording-bytes", got)
	}

	_, err = store.Download(context.Background(), "u1/missing.webm")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Download(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSupabaseStore_Upload(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"Key":"recordings/u1/rec1.webm"}`))
	}))
	defer srv.Close()

	store := NewSupabaseStore(srv.URL, "service-key", "recordings")
	if err := store.Upload(context.Background(), "u1/rec1.webm", []byte("abc"), "video/webm"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if string(gotBody) != "abc" {
		t.Errorf("server received body %q, want abc", gotBody)
	}
	if gotContentType != "video/webm" {
		t.Errorf("Content-Type = %q, want video/webm", gotContentType)
	}
}

func TestSupabaseStore_SignUpload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/object/upload/sign/recordings/u1/rec1.webm" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"url":"/object/upload/sign/recordings/u1/rec1.webm?token=tok123","token":"tok123"}`))
	}))
	defer srv.Close()

	store := NewSupabaseStore(srv.URL, "service-key", "recordings")
	signed, err := store.SignUpload(context.Background(), "u1/rec1.webm", 5*time.Minute)
	if err != nil {
		t.Fatalf("SignUpload() error = %v", err)
	}
	if signed.Token != "tok123" {
		t.Errorf("Token = %q, want tok123", signed.Token)
	}
	if signed.Key != "u1/rec1.webm" {
		t.Errorf("Key = %q", signed.Key)
	}
	want := srv.URL + "/storage/v1/object/upload/sign/recordings/u1/rec1.webm?token=tok123"
	if signed.URL != want {
		t.Errorf("URL = %q, want %q", signed.URL, want)
	}
	if time.Until(signed.ExpiresAt) <= 0 {
		t.Error("ExpiresAt should be in the future")
	}
}
