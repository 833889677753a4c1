// Package genai provides the language-model and embedding backends.
// This file contains the embedding clients for semantic search.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"google.golang.org/genai"
)

const (
	// DefaultGeminiEmbeddingModel is the Gemini embedding model.
	DefaultGeminiEmbeddingModel = "gemini-embedding-001"
	// DefaultOpenAIEmbeddingModel is the OpenAI embedding model.
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
	// DefaultEmbeddingDimension matches the knowledge base index.
	DefaultEmbeddingDimension = 768
)

var errEmptyText = errors.New("empty or whitespace-only text cannot be embedded")

// GeminiEmbedder generates embeddings with the Gemini API.
// Gemini separates query and document task types, which improves recall.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
}

// NewGeminiEmbedder creates a Gemini embedder.
// Returns nil if apiKey is empty (embedding disabled).
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimension int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: embedding disabled when no API key
	}
	if model == "" {
		model = DefaultGeminiEmbeddingModel
	}
	if dimension <= 0 {
		dimension = DefaultEmbeddingDimension
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiEmbedder{client: client, model: model, dimension: dimension}, nil
}

// Embed returns the query vector for text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errEmptyText
	}
	vecs, err := e.embed(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedDocuments returns passage vectors in input order.
func (e *GeminiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, texts, "RETRIEVAL_DOCUMENT")
}

func (e *GeminiEmbedder) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: genai.Ptr(int32(e.dimension)), //nolint:gosec // dimension is validated config
	})
	if err != nil {
		return nil, wrapError(fmt.Errorf("embed content: %w", err), ProviderGemini, e.model)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, wrapError(fmt.Errorf("expected %d embeddings, got %d", len(texts), embeddingCount(resp)), ProviderGemini, e.model)
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, wrapError(fmt.Errorf("empty embedding at index %d", i), ProviderGemini, e.model)
		}
		out[i] = emb.Values
	}
	return out, nil
}

func embeddingCount(resp *genai.EmbedContentResponse) int {
	if resp == nil {
		return 0
	}
	return len(resp.Embeddings)
}

// Dimension returns the configured vector length.
func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

// OpenAIEmbedder generates embeddings with the OpenAI embeddings endpoint
// or a compatible server.
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
}

// NewOpenAIEmbedder creates an OpenAI embedder. An empty baseURL selects
// the public OpenAI endpoint.
// Returns nil if apiKey is empty (embedding disabled).
func NewOpenAIEmbedder(apiKey, baseURL, model string, dimension int) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: embedding disabled when no API key
	}
	if baseURL == "" {
		baseURL = ProviderEndpoint[ProviderOpenAI]
	}
	if model == "" {
		model = DefaultOpenAIEmbeddingModel
	}
	if dimension <= 0 {
		dimension = DefaultEmbeddingDimension
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)
	return &OpenAIEmbedder{client: client, model: model, dimension: dimension}, nil
}

// Embed returns the vector for text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errEmptyText
	}
	vecs, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedDocuments returns vectors in input order. The response is reordered
// by index because the API does not guarantee ordering.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: openai.Int(int64(e.dimension)),
	})
	if err != nil {
		return nil, wrapError(fmt.Errorf("create embeddings: %w", err), ProviderOpenAI, e.model)
	}
	if len(resp.Data) != len(texts) {
		return nil, wrapError(fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)), ProviderOpenAI, e.model)
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(out) {
			return nil, wrapError(fmt.Errorf("embedding index %d out of range", idx), ProviderOpenAI, e.model)
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[idx] = vec
	}
	return out, nil
}

// Dimension returns the configured vector length.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}
