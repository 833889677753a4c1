// Package ingest turns crawled pages into indexed chunks: SQLite rows for
// the local keyword store and embedded vectors in Pinecone.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/garyellow/uni-assistant-go/internal/genai"
	"github.com/garyellow/uni-assistant-go/internal/logger"
	"github.com/garyellow/uni-assistant-go/internal/metrics"
	"github.com/garyellow/uni-assistant-go/internal/rag"
	"github.com/garyellow/uni-assistant-go/internal/storage"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
	DefaultBatchSize    = 64
)

// PageSource lists crawled pages.
type PageSource interface {
	ListPages(ctx context.Context) ([]storage.Page, error)
}

// ChunkStore replaces the chunks of one page.
type ChunkStore interface {
	ReplaceChunks(ctx context.Context, source string, chunks []storage.Chunk) error
}

// Upserter writes vectors to the remote index.
type Upserter interface {
	Upsert(ctx context.Context, vectors []rag.Vector) (int, error)
}

// Config tunes chunking and batching.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int // Chunks per embedding and upsert call
}

// Stats summarises one run.
type Stats struct {
	Pages    int
	Chunks   int
	Upserted int
	Duration time.Duration
}

// Ingester runs the chunk, embed and upsert job.
type Ingester struct {
	pages    PageSource
	chunks   ChunkStore
	embedder genai.Embedder
	upserter Upserter
	splitter textsplitter.RecursiveCharacter
	cfg      Config
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// New creates an ingester. With a nil embedder or upserter only the local
// chunk table is written.
func New(pages PageSource, chunks ChunkStore, embedder genai.Embedder, upserter Upserter, cfg Config, log *logger.Logger, m *metrics.Metrics) *Ingester {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = min(DefaultChunkOverlap, cfg.ChunkSize/10)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if log == nil {
		log = logger.New("info")
	}
	return &Ingester{
		pages:    pages,
		chunks:   chunks,
		embedder: embedder,
		upserter: upserter,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
		cfg:     cfg,
		logger:  log.WithModule("ingest"),
		metrics: m,
	}
}

// ChunkID is stable per source and position so re-ingesting a page
// overwrites its vectors.
func ChunkID(source string, position int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "%s#%d", source, position)).String()
}

// Split cuts one page into chunks.
func (in *Ingester) Split(p storage.Page) ([]storage.Chunk, error) {
	if strings.TrimSpace(p.Content) == "" {
		return nil, nil
	}
	texts, err := in.splitter.SplitText(p.Content)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", p.URL, err)
	}
	chunks := make([]storage.Chunk, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		pos := len(chunks)
		chunks = append(chunks, storage.Chunk{
			ID:       ChunkID(p.URL, pos),
			Source:   p.URL,
			Title:    p.Title,
			Position: pos,
			Text:     t,
		})
	}
	return chunks, nil
}

// Run ingests every stored page.
func (in *Ingester) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats

	pages, err := in.pages.ListPages(ctx)
	if err != nil {
		return stats, fmt.Errorf("list pages: %w", err)
	}

	var pending []storage.Chunk
	for _, p := range pages {
		chunks, err := in.Split(p)
		if err != nil {
			return stats, err
		}
		if err := in.chunks.ReplaceChunks(ctx, p.URL, chunks); err != nil {
			return stats, fmt.Errorf("store chunks for %s: %w", p.URL, err)
		}
		stats.Pages++
		stats.Chunks += len(chunks)

		pending = append(pending, chunks...)
		for len(pending) >= in.cfg.BatchSize {
			n, err := in.flush(ctx, pending[:in.cfg.BatchSize])
			stats.Upserted += n
			if err != nil {
				return stats, err
			}
			pending = pending[in.cfg.BatchSize:]
		}
	}
	n, err := in.flush(ctx, pending)
	stats.Upserted += n
	if err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	in.logger.InfoContext(ctx, "Ingest finished",
		"pages", stats.Pages,
		"chunks", stats.Chunks,
		"upserted", stats.Upserted,
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return stats, nil
}

// flush embeds and upserts one batch.
func (in *Ingester) flush(ctx context.Context, batch []storage.Chunk) (int, error) {
	if len(batch) == 0 || in.embedder == nil || in.upserter == nil {
		return 0, nil
	}

	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}
	embeddings, err := in.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed batch: %w", err)
	}
	if len(embeddings) != len(batch) {
		return 0, fmt.Errorf("embed batch: got %d vectors for %d chunks", len(embeddings), len(batch))
	}

	vectors := make([]rag.Vector, len(batch))
	for i, c := range batch {
		vectors[i] = rag.Vector{
			ID:       c.ID,
			Values:   embeddings[i],
			Metadata: rag.VectorMetadata{Text: c.Text, Source: c.Source, Title: c.Title},
		}
	}
	n, err := in.upserter.Upsert(ctx, vectors)
	if err != nil {
		return 0, fmt.Errorf("upsert batch: %w", err)
	}
	in.metrics.RecordIngestChunks(n)
	in.logger.DebugContext(ctx, "Batch upserted", "chunks", len(batch), "upserted", n)
	return n, nil
}
