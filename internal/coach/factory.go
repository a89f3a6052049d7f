package coach

import (
	"context"
	"fmt"

	"speakwall/internal/model"
)

// CreateProvider returns the OpenAI coaching provider. Without an API key
// it falls back to a disabled provider whose calls fail, so the server
// still boots and serves uploads and reads.
func CreateProvider(apiKey, baseURL string) Provider {
	p, err := NewOpenAIProvider(apiKey, baseURL)
	if err != nil {
		return disabledProvider{}
	}
	return p
}

type disabledProvider struct{}

func (disabledProvider) Recommend(context.Context, string, *int, []model.FillerCount) (string, error) {
	return "", fmt.Errorf("recommendations unavailable: OPENAI_API_KEY is not set")
}

func (disabledProvider) Name() string { return "disabled" }
