// Package genai provides the language-model and embedding backends.
// This file contains the Gemini generator.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiGenerator implements Generator over the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
}

// NewGeminiGenerator creates a Gemini-backed generator.
// Returns nil if apiKey is empty (provider disabled).
func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: provider disabled when no API key
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiGenerator{client: client}, nil
}

// Generate sends one GenerateContent request and returns the joined text parts.
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Options.Temperature)),
	}
	if req.Options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.Options.MaxTokens) //nolint:gosec // small preset values
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, req.Options.Model, genai.Text(req.Prompt), config)
	duration := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "generate content failed",
			"provider", ProviderGemini,
			"model", req.Options.Model,
			"role", req.Options.Role,
			"prompt_length", len(req.Prompt),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return "", wrapError(fmt.Errorf("generate content: %w", err), ProviderGemini, req.Options.Model)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", wrapError(ErrEmptyCompletion, ProviderGemini, req.Options.Model)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", wrapError(ErrEmptyCompletion, ProviderGemini, req.Options.Model)
	}

	if resp.UsageMetadata != nil {
		slog.DebugContext(ctx, "generate content completed",
			"provider", ProviderGemini,
			"model", req.Options.Model,
			"role", req.Options.Role,
			"input_tokens", resp.UsageMetadata.PromptTokenCount,
			"output_tokens", resp.UsageMetadata.CandidatesTokenCount,
			"total_tokens", resp.UsageMetadata.TotalTokenCount,
			"duration_ms", duration.Milliseconds())
	}

	return text.String(), nil
}

// Provider returns ProviderGemini.
func (g *GeminiGenerator) Provider() Provider {
	return ProviderGemini
}
