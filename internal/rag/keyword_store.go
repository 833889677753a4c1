package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	bm25 "github.com/iwilltry42/bm25-go/bm25"

	"github.com/garyellow/uni-assistant-go/internal/logger"
	"github.com/garyellow/uni-assistant-go/internal/storage"
)

// ChunkLister supplies the corpus for the keyword index.
type ChunkLister interface {
	ListChunks(ctx context.Context) ([]storage.Chunk, error)
}

// KeywordStore provides keyword-based search over the ingested chunks using
// the BM25 algorithm. It serves as the local knowledge base when no vector
// store is configured, and as the keyword half of hybrid search.
type KeywordStore struct {
	bm25Okapi *bm25.BM25Okapi
	chunks    []storage.Chunk
	logger    *logger.Logger
	mu        sync.RWMutex
}

// NewKeywordStore creates an empty keyword store.
func NewKeywordStore(log *logger.Logger) *KeywordStore {
	return &KeywordStore{logger: log}
}

// Load rebuilds the index from src. BM25 needs the whole corpus for IDF,
// so there is no incremental update.
func (s *KeywordStore) Load(ctx context.Context, src ChunkLister) error {
	chunks, err := src.ListChunks(ctx)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}
	return s.Build(chunks)
}

// Build replaces the index with chunks.
func (s *KeywordStore) Build(chunks []storage.Chunk) error {
	kept := make([]storage.Chunk, 0, len(chunks))
	corpus := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		kept = append(kept, c)
		corpus = append(corpus, c.Text)
	}

	var okapi *bm25.BM25Okapi
	if len(corpus) > 0 {
		// k1=1.5, b=0.75 are standard BM25 parameters
		var err error
		okapi, err = bm25.NewBM25Okapi(corpus, tokenize, 1.5, 0.75, nil)
		if err != nil {
			return fmt.Errorf("failed to create BM25 index: %w", err)
		}
	}

	s.mu.Lock()
	s.bm25Okapi = okapi
	s.chunks = kept
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.WithField("docs", len(kept)).Info("BM25 index initialized")
	}
	return nil
}

// Search returns up to k chunks for query. BM25 scores are unbounded, so
// each score is divided by the best score of the query before the
// threshold is applied.
func (s *KeywordStore) Search(_ context.Context, query string, k int, threshold float64) ([]Passage, error) {
	if s == nil {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.bm25Okapi == nil {
		return nil, nil
	}
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	scores, err := s.bm25Okapi.GetScores(tokens)
	if err != nil {
		return nil, fmt.Errorf("BM25 scoring failed: %w", err)
	}

	type scoredDoc struct {
		docID int
		score float64
	}
	var scored []scoredDoc
	maxScore := 0.0
	for docID, score := range scores {
		if score > 0 {
			scored = append(scored, scoredDoc{docID: docID, score: score})
			maxScore = max(maxScore, score)
		}
	}

	// Sort by score descending, then corpus order for ties
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].docID < scored[j].docID
	})

	var results []Passage
	for _, sd := range scored {
		if k > 0 && len(results) >= k {
			break
		}
		norm := sd.score / maxScore
		if norm < threshold {
			break
		}
		c := s.chunks[sd.docID]
		results = append(results, Passage{Source: c.Source, Text: c.Text, Score: ScorePtr(norm)})
	}
	return results, nil
}

// Count returns the number of indexed chunks.
func (s *KeywordStore) Count() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// stopwords are dropped so that question scaffolding does not dominate.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"can": {}, "do": {}, "does": {}, "for": {}, "from": {}, "how": {}, "i": {}, "in": {},
	"is": {}, "it": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "the": {},
	"to": {}, "what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "with": {},
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if _, skip := stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
