package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const openAIProvider = "openai"

// OpenAIConfig configures the chat completion client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIGenerator generates replies through the chat completions API.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	enabled bool
}

// NewOpenAIGenerator builds a generator. A missing API key yields a generator
// whose calls fail with ErrNotConfigured.
func NewOpenAIGenerator(cfg OpenAIConfig) *OpenAIGenerator {
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		enabled: cfg.APIKey != "",
	}
}

// Generate sends prompt as the user message, preceded by system when set.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	if !g.enabled {
		return "", NewProviderError(openAIProvider, 0, ErrNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		status := 0
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.HTTPStatusCode
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			status = reqErr.HTTPStatusCode
		}
		return "", NewProviderError(openAIProvider, status, err)
	}

	if len(resp.Choices) == 0 {
		return "", NewProviderError(openAIProvider, 0, ErrEmptyResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", NewProviderError(openAIProvider, 0, ErrEmptyResponse)
	}

	return content, nil
}
