// Package crawler walks a university website breadth-first and stores
// the readable text of each page.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/garyellow/uni-assistant-go/internal/logger"
	"github.com/garyellow/uni-assistant-go/internal/metrics"
	"github.com/garyellow/uni-assistant-go/internal/scraper"
	"github.com/garyellow/uni-assistant-go/internal/storage"
)

// DefaultMaxPages bounds a crawl when Config.MaxPages is unset.
const DefaultMaxPages = 200

// Fetcher retrieves and parses one page.
type Fetcher interface {
	GetDocument(ctx context.Context, url string) (*scraper.Page, error)
}

// PageStore persists crawled pages.
type PageStore interface {
	SavePage(ctx context.Context, p *storage.Page) error
}

// Config bounds a crawl.
type Config struct {
	SeedURL  string
	MaxPages int
}

// Stats summarises a crawl.
type Stats struct {
	Saved    int
	Skipped  int // Non-HTML or off-scope after redirect
	Failed   int
	Duration time.Duration
}

// Crawler performs a breadth-first crawl restricted to the seed's host.
// Pacing and retries live in the Fetcher.
type Crawler struct {
	fetcher Fetcher
	store   PageStore
	cfg     Config
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// New creates a crawler.
func New(fetcher Fetcher, store PageStore, cfg Config, log *logger.Logger, m *metrics.Metrics) *Crawler {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if log == nil {
		log = logger.New("info")
	}
	return &Crawler{fetcher: fetcher, store: store, cfg: cfg, logger: log.WithModule("crawler"), metrics: m}
}

// Run crawls until MaxPages pages are saved, the frontier is empty or ctx
// is done. Per-page failures are logged and skipped; only a bad seed,
// a storage failure or cancellation end the crawl with an error.
func (c *Crawler) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats

	seed, err := url.Parse(c.cfg.SeedURL)
	if err != nil || seed.Host == "" {
		return stats, fmt.Errorf("invalid seed URL %q", c.cfg.SeedURL)
	}
	scope := NewScope(seed)
	seedURL := Normalize(seed, seed.String())

	queue := []string{seedURL.String()}
	seen := map[string]struct{}{seedURL.String(): {}}

	for len(queue) > 0 && stats.Saved < c.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}
		current := queue[0]
		queue = queue[1:]

		links, err := c.visit(ctx, current, scope)
		switch {
		case err == nil:
			stats.Saved++
			c.metrics.RecordCrawlerPage("saved")
		case errors.Is(err, errStore):
			stats.Duration = time.Since(start)
			return stats, err
		case errors.Is(err, scraper.ErrNotHTML), errors.Is(err, errOffScope):
			stats.Skipped++
			c.metrics.RecordCrawlerPage("skipped")
			continue
		case ctx.Err() != nil:
			stats.Duration = time.Since(start)
			return stats, ctx.Err()
		default:
			stats.Failed++
			c.metrics.RecordCrawlerPage("error")
			c.logger.WithError(err).WarnContext(ctx, "Page failed", "url", current)
			continue
		}

		for _, l := range links {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			queue = append(queue, l)
		}
	}

	stats.Duration = time.Since(start)
	c.logger.InfoContext(ctx, "Crawl finished",
		"saved", stats.Saved,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"frontier", len(queue),
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return stats, nil
}

var (
	errStore    = errors.New("store page")
	errOffScope = errors.New("redirected off scope")
)

// visit fetches, extracts and stores one page and returns its links.
func (c *Crawler) visit(ctx context.Context, pageURL string, scope Scope) ([]string, error) {
	page, err := c.fetcher.GetDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	final, err := url.Parse(page.URL)
	if err != nil || !scope.Allows(final) {
		return nil, errOffScope
	}

	// Links come first; BodyText strips nav and footer from the document.
	links := Links(page.Doc, final, scope)
	p := &storage.Page{
		URL:       pageURL,
		Title:     Title(page.Doc),
		Content:   BodyText(page.Doc),
		FetchedAt: time.Now().UTC(),
	}
	if err := c.store.SavePage(ctx, p); err != nil {
		return nil, fmt.Errorf("%w %s: %w", errStore, pageURL, err)
	}
	c.logger.DebugContext(ctx, "Page saved", "url", pageURL, "chars", len(p.Content), "links", len(links))
	return links, nil
}
