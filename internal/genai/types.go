// Package genai provides the language-model and embedding backends.
// This file contains shared types and interfaces.
//
// Architecture:
//   - Gemini: uses google.golang.org/genai (official SDK)
//   - Groq/Cerebras/OpenAI: uses github.com/openai/openai-go/v3 with a custom BaseURL
//
// Backends are black boxes: one call per request, no retry and no backoff.
// Callers decide what a failure means.
package genai

import (
	"context"
)

// Provider represents an LLM provider.
type Provider string

const (
	// ProviderGemini represents Google's Gemini API (non-OpenAI-compatible).
	ProviderGemini Provider = "gemini"
	// ProviderGroq represents Groq's API (OpenAI-compatible, fast inference).
	ProviderGroq Provider = "groq"
	// ProviderCerebras represents Cerebras's API (OpenAI-compatible).
	ProviderCerebras Provider = "cerebras"
	// ProviderOpenAI represents the OpenAI API or any compatible endpoint.
	ProviderOpenAI Provider = "openai"
)

// ProviderEndpoint defines the base URL for OpenAI-compatible providers.
// Gemini is not included as it uses a different SDK.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq:     "https://api.groq.com/openai/v1/",
	ProviderCerebras: "https://api.cerebras.ai/v1/",
	ProviderOpenAI:   "https://api.openai.com/v1/",
}

// IsOpenAICompatible returns true if the provider uses OpenAI-compatible API.
func (p Provider) IsOpenAICompatible() bool {
	_, ok := ProviderEndpoint[p]
	return ok
}

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// Role labels a call for metrics and logs.
type Role string

const (
	RoleClassify Role = "classify"
	RoleExpand   Role = "expand"
	RoleAnswer   Role = "answer"
)

// Options are the per-call generation settings.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Role        Role
}

// Request is one completion call: an optional system instruction plus the
// user prompt.
type Request struct {
	System  string
	Prompt  string
	Options Options
}

// Generator sends a prompt to a language model and returns the raw text,
// which may include a reasoning section.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Provider() Provider
}

// Embedder turns text into fixed-length vectors.
type Embedder interface {
	// Embed returns the vector for a search query.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedDocuments returns vectors for passages, in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the vector length.
	Dimension() int
}
