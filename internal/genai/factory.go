// Package genai provides the language-model and embedding backends.
// This file contains factory functions for creating backends from config.
package genai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/garyellow/uni-assistant-go/internal/metrics"
)

// Config selects the generation backend.
type Config struct {
	Provider Provider
	APIKey   string
	BaseURL  string // Overrides the OpenAI-compatible endpoint
	Models   Models // Empty fields use DefaultModels(Provider)
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	Provider  Provider // gemini or openai
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	CacheSize int // Query cache entries; zero disables caching
}

// ResolvedModels returns the effective models for cfg.
func (c Config) ResolvedModels() Models {
	return DefaultModels(c.Provider).WithOverrides(c.Models)
}

// NewGenerator creates the Generator for cfg, instrumented with m.
// Returns nil if the provider's API key is empty.
func NewGenerator(ctx context.Context, cfg Config, m *metrics.Metrics) (Generator, error) {
	var (
		gen Generator
		err error
	)

	switch {
	case cfg.Provider == ProviderGemini:
		var g *GeminiGenerator
		g, err = NewGeminiGenerator(ctx, cfg.APIKey)
		if g != nil {
			gen = g
		}
	case cfg.Provider.IsOpenAICompatible():
		var g *OpenAIGenerator
		g, err = NewOpenAIGenerator(cfg.Provider, cfg.APIKey, cfg.BaseURL)
		if g != nil {
			gen = g
		}
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}

	if err != nil {
		return nil, err
	}
	if gen == nil {
		slog.InfoContext(ctx, "no API key for LLM provider", "provider", cfg.Provider)
		return nil, nil
	}

	models := cfg.ResolvedModels()
	slog.InfoContext(ctx, "language model configured",
		"provider", cfg.Provider,
		"classifier", models.Classifier,
		"answer", models.Answer)

	return Instrument(gen, m), nil
}

// NewEmbedder creates the Embedder for cfg, wrapped in a query cache when
// CacheSize is positive. Returns nil if the API key is empty.
func NewEmbedder(ctx context.Context, cfg EmbeddingConfig, m *metrics.Metrics) (Embedder, error) {
	var emb Embedder

	switch cfg.Provider {
	case ProviderGemini:
		g, err := NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model, cfg.Dimension)
		if err != nil {
			return nil, err
		}
		if g != nil {
			emb = g
		}
	case ProviderOpenAI:
		o, err := NewOpenAIEmbedder(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Dimension)
		if err != nil {
			return nil, err
		}
		if o != nil {
			emb = o
		}
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Provider)
	}

	if emb == nil {
		return nil, nil
	}
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(emb, cfg.CacheSize, m)
	}
	return emb, nil
}
