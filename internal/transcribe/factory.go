package transcribe

import (
	"context"
	"fmt"
)

// CreateProvider returns the Whisper provider. Without an API key it falls
// back to a disabled provider whose calls fail, so the server still boots
// and serves uploads and reads.
func CreateProvider(apiKey, baseURL string) Provider {
	p, err := NewWhisperProvider(apiKey, baseURL)
	if err != nil {
		return disabledProvider{}
	}
	return p
}

type disabledProvider struct{}

func (disabledProvider) Transcribe(context.Context, []byte, string) (*Result, error) {
	return nil, fmt.Errorf("transcription unavailable: OPENAI_API_KEY is not set")
}

func (disabledProvider) Name() string { return "disabled" }
