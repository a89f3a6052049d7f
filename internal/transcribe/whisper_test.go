package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewWhisperProvider_RequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewWhisperProvider("", ""); err == nil {
		t.Fatal("NewWhisperProvider with empty key should fail")
	}
}

func TestWhisperProvider_Transcribe(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q, want verbose_json", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"task":"transcribe","text":"um so I think uh this is great","duration":150.0}`))
	}))
	defer srv.Close()

	p, err := NewWhisperProvider("test-key", srv.URL+"/v1")
	if err != nil {
		t.Fatalf("NewWhisperProvider() error = %v", err)
	}

	res, err := p.Transcribe(context.Background(), []byte("fake-webm"), "recording.webm")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if res.Transcript != "um so I think uh this is great" {
		t.Errorf("Transcript = %q", res.Transcript)
	}
	if res.DurationSec != 150 {
		t.Errorf("DurationSec = %v, want 150", res.DurationSec)
	}
}

func TestWhisperProvider_EmptyPayload(t *testing.T) {
	t.Parallel()

	p, err := NewWhisperProvider("test-key", "")
	if err != nil {
		t.Fatalf("NewWhisperProvider() error = %v", err)
	}
	if _, err := p.Transcribe(context.Background(), nil, ""); err == nil {
		t.Fatal("Transcribe(empty) should fail")
	}
}

func TestWhisperProvider_EmptyTranscript(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"task":"transcribe","text":"   ","duration":3.0}`))
	}))
	defer srv.Close()

	p, err := NewWhisperProvider("test-key", srv.URL+"/v1")
	if err != nil {
		t.Fatalf("NewWhisperProvider() error = %v", err)
	}
	if _, err := p.Transcribe(context.Background(), []byte("x"), ""); err == nil {
		t.Fatal("Transcribe with blank text should fail")
	}
}
