// Package genai provides the language-model and embedding backends.
// This file contains the OpenAI-compatible generator used for Groq,
// Cerebras and OpenAI via a custom BaseURL.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIGenerator implements Generator over the Chat Completions API.
type OpenAIGenerator struct {
	client   openai.Client
	provider Provider
}

// NewOpenAIGenerator creates a generator for an OpenAI-compatible provider.
// An empty baseURL selects the provider's public endpoint.
// Returns nil if apiKey is empty (provider disabled).
func NewOpenAIGenerator(provider Provider, apiKey, baseURL string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: provider disabled when no API key
	}

	if baseURL == "" {
		endpoint, ok := ProviderEndpoint[provider]
		if !ok {
			return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
		}
		baseURL = endpoint
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	return &OpenAIGenerator{
		client:   client,
		provider: provider,
	}, nil
}

// Generate sends one chat completion request and returns the raw content.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       req.Options.Model,
		Messages:    messages,
		Temperature: openai.Float(req.Options.Temperature),
	}
	if req.Options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.Options.MaxTokens))
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "chat completion failed",
			"provider", g.provider,
			"model", req.Options.Model,
			"role", req.Options.Role,
			"prompt_length", len(req.Prompt),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return "", wrapError(fmt.Errorf("chat completion: %w", err), g.provider, req.Options.Model)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", wrapError(ErrEmptyCompletion, g.provider, req.Options.Model)
	}

	if resp.Usage.TotalTokens > 0 {
		slog.DebugContext(ctx, "chat completion completed",
			"provider", g.provider,
			"model", req.Options.Model,
			"role", req.Options.Role,
			"input_tokens", resp.Usage.PromptTokens,
			"output_tokens", resp.Usage.CompletionTokens,
			"total_tokens", resp.Usage.TotalTokens,
			"duration_ms", duration.Milliseconds())
	}

	return resp.Choices[0].Message.Content, nil
}

// Provider returns the provider type for this generator.
func (g *OpenAIGenerator) Provider() Provider {
	if g == nil {
		return ""
	}
	return g.provider
}
