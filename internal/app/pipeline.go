package app

import (
	"context"
	"fmt"

	"github.com/garyellow/uni-assistant-go/internal/config"
	"github.com/garyellow/uni-assistant-go/internal/document"
	"github.com/garyellow/uni-assistant-go/internal/genai"
	"github.com/garyellow/uni-assistant-go/internal/logger"
	"github.com/garyellow/uni-assistant-go/internal/metrics"
	"github.com/garyellow/uni-assistant-go/internal/pipeline"
	"github.com/garyellow/uni-assistant-go/internal/rag"
	"github.com/garyellow/uni-assistant-go/internal/router"
	"github.com/garyellow/uni-assistant-go/internal/websearch"
)

// Components is the answering pipeline plus the pieces the server and
// the CLI report on.
type Components struct {
	Generator    genai.Generator
	Embedder     genai.Embedder
	Pinecone     *rag.PineconeStore
	Keyword      *rag.KeywordStore // Nil unless the local index is enabled
	Orchestrator *pipeline.Orchestrator
	features     map[string]bool
}

// Features reports which optional backends are configured.
func (c *Components) Features() map[string]bool {
	return c.features
}

// BuildPipeline wires the router, context providers and generator from
// cfg. Missing credentials leave the matching backend unconfigured; only
// malformed settings fail. src may be nil when no local corpus exists.
func BuildPipeline(ctx context.Context, cfg *config.Config, src rag.ChunkLister, log *logger.Logger, m *metrics.Metrics) (*Components, error) {
	genCfg := genai.Config{
		Provider: genai.Provider(cfg.LLM.Provider),
		APIKey:   cfg.LLM.APIKey(),
		BaseURL:  cfg.LLM.BaseURL,
		Models: genai.Models{
			Classifier: cfg.LLM.ClassifierModel,
			Expander:   cfg.LLM.ExpanderModel,
			Answer:     cfg.LLM.AnswerModel,
		},
	}
	gen, err := genai.NewGenerator(ctx, genCfg, m)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	presets := genai.NewPresets(genCfg.ResolvedModels())

	embedder, err := NewEmbedder(ctx, cfg, m)
	if err != nil {
		return nil, err
	}

	pinecone, err := rag.NewPineconeStore(rag.PineconeConfig{
		APIKey:    cfg.KnowledgeBase.PineconeAPIKey,
		Host:      cfg.KnowledgeBase.PineconeHost,
		Namespace: cfg.KnowledgeBase.PineconeNamespace,
		Timeout:   config.SearchRequest,
	}, embedder)
	if err != nil {
		return nil, fmt.Errorf("pinecone: %w", err)
	}

	var keyword *rag.KeywordStore
	if cfg.KnowledgeBase.LocalIndex && src != nil {
		keyword = rag.NewKeywordStore(log)
		if err := keyword.Load(ctx, src); err != nil {
			log.WithError(err).Warn("Keyword index load failed")
		}
	}

	// Typed nils must not leak into the Searcher interface.
	var store rag.Searcher
	switch {
	case pinecone != nil && keyword != nil:
		store = rag.NewHybridStore(pinecone, keyword)
	case pinecone != nil:
		store = pinecone
	case keyword != nil:
		store = keyword
	}

	kb := rag.NewKnowledgeBase(
		store,
		rag.NewExpander(gen, presets.Expand, cfg.KnowledgeBase.QueryVariants),
		rag.KnowledgeBaseConfig{
			TopK:           cfg.KnowledgeBase.TopK,
			ScoreThreshold: cfg.KnowledgeBase.ScoreThreshold,
		},
		m,
	)

	var backend websearch.Backend
	if tavily := websearch.NewTavilyClient(cfg.WebSearch.TavilyAPIKey, cfg.WebSearch.BaseURL, config.SearchRequest); tavily != nil {
		backend = tavily
	}
	web := websearch.NewProvider(backend, searchOptions(cfg.WebSearch), m)

	loader := document.NewLoader(document.Config{
		ChunkSize:    cfg.Document.ChunkSize,
		ChunkOverlap: cfg.Document.ChunkOverlap,
		MaxChars:     cfg.Document.MaxChars,
		MaxFileBytes: cfg.Document.MaxFileBytes,
	})

	orch := pipeline.New(pipeline.Config{
		Router:        router.New(gen, presets.Classify, m),
		KnowledgeBase: kb,
		WebSearch:     web,
		Documents:     loader,
		Generator:     gen,
		Presets:       presets,
		Logger:        log,
		Metrics:       m,
		Timeout:       cfg.ChatTimeout,
	})

	return &Components{
		Generator:    gen,
		Embedder:     embedder,
		Pinecone:     pinecone,
		Keyword:      keyword,
		Orchestrator: orch,
		features: map[string]bool{
			"llm":           gen != nil,
			"vector_search": pinecone != nil,
			"keyword_index": keyword != nil,
			"web_search":    backend != nil,
		},
	}, nil
}

// NewEmbedder creates the embedder selected by cfg, or nil when no
// embedding key is configured.
func NewEmbedder(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (genai.Embedder, error) {
	provider := cfg.EmbeddingProvider()
	var key string
	switch provider {
	case config.ProviderGemini:
		key = cfg.LLM.GeminiAPIKey
	case config.ProviderOpenAI:
		key = cfg.LLM.OpenAIAPIKey
	}
	emb, err := genai.NewEmbedder(ctx, genai.EmbeddingConfig{
		Provider:  genai.Provider(provider),
		APIKey:    key,
		Model:     cfg.LLM.EmbeddingModel,
		Dimension: cfg.LLM.EmbeddingDimension,
		CacheSize: cfg.KnowledgeBase.EmbeddingCacheSize,
	}, m)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	return emb, nil
}

func searchOptions(w config.WebSearchConfig) websearch.Options {
	opts := websearch.DefaultOptions()
	if w.MaxResults > 0 {
		opts.MaxResults = w.MaxResults
	}
	if w.SearchDepth != "" {
		opts.SearchDepth = w.SearchDepth
	}
	if w.TimeRange != "" {
		opts.TimeRange = w.TimeRange
	}
	opts.IncludeDomains = w.IncludeDomains
	opts.ExcludeDomains = w.ExcludeDomains
	opts.IncludeRawContent = w.IncludeRawContent
	return opts
}
