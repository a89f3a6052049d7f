// Package coach turns a transcript and its speech metrics into coaching
// tips via a chat-completion model. The prompt, sampling temperature and
// output cap are fixed so runs are comparable across sessions.
package coach

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"speakwall/internal/logger"
	"speakwall/internal/model"
)

const (
	coachModel       = openai.GPT4Turbo
	coachTemperature = 0.7
	coachMaxTokens   = 600
)

// Provider generates coaching suggestions for a transcript.
type Provider interface {
	Recommend(ctx context.Context, transcript string, wpm *int, filler []model.FillerCount) (string, error)
	Name() string
}

// OpenAIProvider is a [Provider] backed by the OpenAI chat completions API.
type OpenAIProvider struct {
	client *openai.Client
	log    *logger.Logger
}

// Compile-time interface check.
var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a coaching provider. baseURL overrides the API
// endpoint when non-empty (used by tests and proxies).
func NewOpenAIProvider(apiKey, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		log:    logger.New(),
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Recommend requests five coaching tips for the transcript and metrics.
func (p *OpenAIProvider) Recommend(ctx context.Context, transcript string, wpm *int, filler []model.FillerCount) (string, error) {
	system, user := BuildPrompt(transcript, wpm, filler)

	log := p.log.WithField("provider", p.Name()).WithField("transcript_len", len(transcript))
	log.Info("requesting coaching tips")

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: coachModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: coachTemperature,
		MaxTokens:   coachMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("recommendations request failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "Unable to generate recommendations.", nil
	}

	log.WithField("completion_tokens", resp.Usage.CompletionTokens).Info("coaching tips received")
	return resp.Choices[0].Message.Content, nil
}
