package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"speakwall/internal/logger"
)

// WhisperProvider implements STT using the OpenAI Whisper API. Verbose
// output is requested so the response carries the spoken duration alongside
// the text.
type WhisperProvider struct {
	client *openai.Client
	log    *logger.Logger
}

// NewWhisperProvider creates a Whisper provider. baseURL overrides the API
// endpoint when non-empty (used by tests and proxies).
func NewWhisperProvider(apiKey, baseURL string) (*WhisperProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &WhisperProvider{
		client: openai.NewClientWithConfig(cfg),
		log:    logger.New(),
	}, nil
}

// Name returns the provider name
func (p *WhisperProvider) Name() string {
	return "whisper"
}

// Transcribe sends recording bytes to Whisper and returns transcript plus
// duration. An empty payload or an empty transcript is an error.
func (p *WhisperProvider) Transcribe(ctx context.Context, data []byte, filename string) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("recording payload is empty")
	}
	if filename == "" {
		filename = "recording.webm"
	}

	log := p.log.WithField("provider", p.Name()).WithField("size_bytes", len(data))
	log.Info("starting transcription")

	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filename,
		Reader:   bytes.NewReader(data),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w", err)
	}

	transcript := strings.TrimSpace(resp.Text)
	if transcript == "" {
		return nil, fmt.Errorf("no speech detected in recording")
	}

	log.WithField("duration_sec", resp.Duration).
		WithField("transcript_len", len(transcript)).
		Info("transcription successful")

	return &Result{
		Transcript:  transcript,
		DurationSec: resp.Duration,
	}, nil
}
