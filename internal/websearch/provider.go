package websearch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/garyellow/uni-assistant-go/internal/metrics"
	"github.com/garyellow/uni-assistant-go/internal/rag"
)

const (
	// UnavailableText is returned when no search credential is configured.
	UnavailableText = "Error: Web search capabilities are currently unavailable. Please ask a different type of question."
	// ErrorSource is the placeholder source of a failed search.
	ErrorSource = "https://example.com/error"

	providerName = "web_search"
)

// ReasonUnavailable marks the missing-credential outcome.
const ReasonUnavailable = "web search not configured"

// Provider turns search results into context.
type Provider struct {
	backend Backend
	opts    Options
	metrics *metrics.Metrics
}

// NewProvider creates a provider. A nil backend means no credential.
func NewProvider(backend Backend, opts Options, m *metrics.Metrics) *Provider {
	return &Provider{backend: backend, opts: opts, metrics: m}
}

// Fetch never fails: a missing credential or a runtime error becomes a
// degraded outcome. The backend is not called without a credential.
func (p *Provider) Fetch(ctx context.Context, query string) rag.Outcome {
	if p == nil || p.backend == nil || isNilBackend(p.backend) {
		p.record(rag.StatusDegraded)
		return rag.Degraded(ReasonUnavailable, rag.Passage{Source: providerName, Text: UnavailableText})
	}

	results, err := p.backend.Search(ctx, query, p.opts)
	if err != nil {
		slog.WarnContext(ctx, "web search failed", "error", err)
		p.record(rag.StatusDegraded)
		return rag.Degraded(err.Error(), rag.Passage{
			Source: ErrorSource,
			Text:   fmt.Sprintf("Error performing web search: %s. The search service may be unavailable.", err),
		})
	}

	blob := make(rag.Blob, 0, len(results))
	for _, r := range results {
		text := r.Content
		if strings.TrimSpace(r.RawContent) != "" {
			text = r.RawContent
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		var score *float64
		if r.Score > 0 {
			score = rag.ScorePtr(r.Score)
		}
		blob = append(blob, rag.Passage{Source: r.URL, Text: text, Score: score})
	}

	p.record(rag.StatusOK)
	return rag.OK(blob)
}

// Unavailable reports whether out is the missing-credential result.
func Unavailable(out rag.Outcome) bool {
	return out.Status == rag.StatusDegraded && out.Reason == ReasonUnavailable
}

func (p *Provider) record(s rag.Status) {
	if p == nil {
		return
	}
	p.metrics.RecordContext(providerName, s.String())
}

// isNilBackend catches a typed nil *TavilyClient stored in the interface.
func isNilBackend(b Backend) bool {
	c, ok := b.(*TavilyClient)
	return ok && c == nil
}
