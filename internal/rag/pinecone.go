package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	apperrors "github.com/garyellow/uni-assistant-go/internal/errors"
	"github.com/garyellow/uni-assistant-go/internal/genai"
)

const pineconeAPIVersion = "2025-04"

// PineconeStore searches and populates a Pinecone index over its REST
// data-plane API. Query vectors come from the injected embedder.
type PineconeStore struct {
	client    *resty.Client
	embedder  genai.Embedder
	namespace string
}

// PineconeConfig configures a PineconeStore.
type PineconeConfig struct {
	APIKey    string
	Host      string // Index host, with or without scheme
	Namespace string
	Timeout   time.Duration
	// RetryCount applies to every call; leave zero on the answer path.
	RetryCount int
}

// Vector is one upsert record.
type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata VectorMetadata `json:"metadata"`
}

// VectorMetadata is stored next to each vector.
type VectorMetadata struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Title  string `json:"title,omitempty"`
}

type pineconeQueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata VectorMetadata `json:"metadata"`
	} `json:"matches"`
}

type pineconeUpsertRequest struct {
	Vectors   []Vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type pineconeUpsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

type pineconeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewPineconeStore creates a store. Returns nil when the key or host is
// missing (knowledge base not configured).
func NewPineconeStore(cfg PineconeConfig, embedder genai.Embedder) (*PineconeStore, error) {
	if cfg.APIKey == "" || cfg.Host == "" {
		return nil, nil //nolint:nilnil // Intentional: store disabled when not configured
	}
	if embedder == nil {
		return nil, fmt.Errorf("pinecone store requires an embedder: %w", apperrors.ErrNotConfigured)
	}

	host := cfg.Host
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(host, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("Api-Key", cfg.APIKey).
		SetHeader("X-Pinecone-API-Version", pineconeAPIVersion).
		SetRetryCount(cfg.RetryCount)

	if cfg.RetryCount > 0 {
		client.
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(5 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				return r != nil && (r.StatusCode() == 429 || r.StatusCode() >= 500)
			})
	}

	return &PineconeStore{client: client, embedder: embedder, namespace: cfg.Namespace}, nil
}

// Search embeds query and returns up to k matches scoring at least threshold.
func (s *PineconeStore) Search(ctx context.Context, query string, k int, threshold float64) ([]Passage, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var (
		result  pineconeQueryResponse
		errBody pineconeError
	)
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(pineconeQueryRequest{Vector: vec, TopK: k, Namespace: s.namespace, IncludeMetadata: true}).
		SetResult(&result).
		SetError(&errBody).
		Post("/query")
	if err != nil {
		return nil, apperrors.NewProviderError("pinecone", "query", 0, err)
	}
	if resp.IsError() {
		return nil, apperrors.NewProviderError("pinecone", "query", resp.StatusCode(), errors.New(errMessage(errBody.Message, resp)))
	}

	passages := make([]Passage, 0, len(result.Matches))
	for _, m := range result.Matches {
		if m.Score < threshold || strings.TrimSpace(m.Metadata.Text) == "" {
			continue
		}
		source := m.Metadata.Source
		if source == "" {
			source = m.ID
		}
		passages = append(passages, Passage{Source: source, Text: m.Metadata.Text, Score: ScorePtr(m.Score)})
	}
	return passages, nil
}

// Upsert writes vectors and returns the number the index accepted.
func (s *PineconeStore) Upsert(ctx context.Context, vectors []Vector) (int, error) {
	if len(vectors) == 0 {
		return 0, nil
	}

	var (
		result  pineconeUpsertResponse
		errBody pineconeError
	)
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(pineconeUpsertRequest{Vectors: vectors, Namespace: s.namespace}).
		SetResult(&result).
		SetError(&errBody).
		Post("/vectors/upsert")
	if err != nil {
		return 0, apperrors.NewProviderError("pinecone", "upsert", 0, err)
	}
	if resp.IsError() {
		return 0, apperrors.NewProviderError("pinecone", "upsert", resp.StatusCode(), errors.New(errMessage(errBody.Message, resp)))
	}
	return result.UpsertedCount, nil
}

func errMessage(msg string, resp *resty.Response) string {
	if msg != "" {
		return msg
	}
	body := strings.TrimSpace(resp.String())
	if body == "" {
		return resp.Status()
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return body
}
