package rag

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultKeywordWeight is the weight for keyword results in RRF fusion.
	// 0.4 means BM25 contributes 40% and vector search contributes 60%.
	DefaultKeywordWeight = 0.4
)

// Searcher runs one similarity search.
type Searcher interface {
	Search(ctx context.Context, query string, k int, threshold float64) ([]Passage, error)
}

// HybridStore combines vector and keyword search using Reciprocal Rank
// Fusion. Either side may be nil; with one side it behaves as that side.
type HybridStore struct {
	vector        Searcher
	keyword       Searcher
	keywordWeight float64
}

// NewHybridStore creates a hybrid store.
func NewHybridStore(vector, keyword Searcher) *HybridStore {
	return &HybridStore{vector: vector, keyword: keyword, keywordWeight: DefaultKeywordWeight}
}

// Search runs both searches in parallel and fuses them, returning at
// most k passages. Any side failing fails the search.
func (h *HybridStore) Search(ctx context.Context, query string, k int, threshold float64) ([]Passage, error) {
	switch {
	case h.vector == nil && h.keyword == nil:
		return nil, nil
	case h.keyword == nil:
		return h.vector.Search(ctx, query, k, threshold)
	case h.vector == nil:
		return h.keyword.Search(ctx, query, k, threshold)
	}

	var vectorResults, keywordResults []Passage
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vectorResults, err = h.vector.Search(gctx, query, k, threshold)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		keywordResults, err = h.keyword.Search(gctx, query, k, threshold)
		if err != nil {
			return fmt.Errorf("keyword search: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return FuseRRF([][]Passage{vectorResults, keywordResults},
		[]float64{1 - h.keywordWeight, h.keywordWeight}, k), nil
}
