package genai

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/garyellow/uni-assistant-go/internal/metrics"
)

// CachedEmbedder memoizes query vectors. Paraphrase variants repeat often
// across questions, and concurrent identical lookups share one backend call.
// Document embeddings bypass the cache.
type CachedEmbedder struct {
	inner   Embedder
	cache   *lru.Cache[string, []float32]
	group   singleflight.Group
	metrics *metrics.Metrics
}

// NewCachedEmbedder wraps inner with an LRU cache of the given size.
// m may be nil.
func NewCachedEmbedder(inner Embedder, size int, m *metrics.Metrics) (*CachedEmbedder, error) {
	if inner == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be greater than zero, got %d", size)
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache, metrics: m}, nil
}

// Embed returns the cached vector for text or computes it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := strings.TrimSpace(text)
	if vec, ok := c.cache.Get(key); ok {
		c.metrics.RecordEmbeddingCache("hit")
		return vec, nil
	}
	c.metrics.RecordEmbeddingCache("miss")

	v, err, _ := c.group.Do(key, func() (any, error) {
		vec, err := c.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// EmbedDocuments delegates to the wrapped embedder.
func (c *CachedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedDocuments(ctx, texts)
}

// Dimension returns the wrapped embedder's dimension.
func (c *CachedEmbedder) Dimension() int {
	return c.inner.Dimension()
}

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}
