package rag

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garyellow/uni-assistant-go/internal/metrics"
)

const (
	// KBErrorText replaces the context when retrieval fails.
	KBErrorText = "Error retrieving information from the university knowledge base. The system may be experiencing technical difficulties."
	// KBNotConfiguredText replaces the context when no store is configured.
	KBNotConfiguredText = "Error: the university knowledge base is not configured."

	// ReasonNotConfigured marks the missing-store outcome.
	ReasonNotConfigured = "knowledge base not configured"

	kbProvider         = "university"
	maxParallelQueries = 4
)

// KnowledgeBaseConfig tunes retrieval.
type KnowledgeBaseConfig struct {
	TopK           int     // Results per query variant
	ScoreThreshold float64 // Minimum relevance
}

// KnowledgeBase answers university questions from indexed site content.
// The question is expanded into paraphrases and every variant is searched;
// results are pooled and de-duplicated.
type KnowledgeBase struct {
	store    Searcher
	expander *Expander
	cfg      KnowledgeBaseConfig
	metrics  *metrics.Metrics
}

// NewKnowledgeBase creates a knowledge base. A nil store means not
// configured; a nil expander searches the original query only.
func NewKnowledgeBase(store Searcher, expander *Expander, cfg KnowledgeBaseConfig, m *metrics.Metrics) *KnowledgeBase {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &KnowledgeBase{store: store, expander: expander, cfg: cfg, metrics: m}
}

// Fetch never fails: errors become a single placeholder passage.
func (kb *KnowledgeBase) Fetch(ctx context.Context, query string) Outcome {
	if kb == nil || kb.store == nil {
		kb.record(StatusDegraded)
		return Degraded(ReasonNotConfigured, Passage{Source: kbProvider, Text: KBNotConfiguredText})
	}

	start := time.Now()
	passages, err := kb.retrieve(ctx, query)
	if err != nil {
		slog.WarnContext(ctx, "knowledge base retrieval failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		kb.record(StatusDegraded)
		return Degraded(err.Error(), Passage{Source: kbProvider, Text: KBErrorText})
	}

	slog.DebugContext(ctx, "knowledge base retrieval completed",
		"passages", len(passages),
		"duration_ms", time.Since(start).Milliseconds())
	kb.record(StatusOK)
	return OK(passages)
}

// NotConfigured reports whether out is the missing-store result.
func NotConfigured(out Outcome) bool {
	return out.Status == StatusDegraded && out.Reason == ReasonNotConfigured
}

func (kb *KnowledgeBase) retrieve(ctx context.Context, query string) (Blob, error) {
	variants, err := kb.expander.Expand(ctx, query)
	if err != nil {
		return nil, err
	}
	queries := append([]string{query}, variants...)

	results := make([][]Passage, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelQueries)
	for i, q := range queries {
		g.Go(func() error {
			found, err := kb.store.Search(gctx, q, kb.cfg.TopK, kb.cfg.ScoreThreshold)
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return FuseRRF(results, nil, 0), nil
}

func (kb *KnowledgeBase) record(s Status) {
	if kb == nil {
		return
	}
	kb.metrics.RecordContext(kbProvider, s.String())
}
