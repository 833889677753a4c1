// Package router picks the answering strategy for a query.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/garyellow/uni-assistant-go/internal/genai"
	"github.com/garyellow/uni-assistant-go/internal/metrics"
	"github.com/garyellow/uni-assistant-go/internal/strategy"
)

const classifyTemplate = `You are a specialized classifier determining which AI system should handle a user query.

Analyze the query and return EXACTLY ONE of these three classifications:
- "university" - for questions about specific university programs, policies, campus resources, student services, administrative procedures, etc.
- "web search" - for questions requiring current information, news, events, prices, weather, or other frequently changing data
- "general" - for academic concept explanations, theoretical questions, study advice, career guidance, and other general knowledge questions

IMPORTANT: Return ONLY the classification word without any additional text or explanation.

User query: %s
Classification:`

// ClassifyPrompt builds the constrained classification prompt.
func ClassifyPrompt(query string) string {
	return fmt.Sprintf(classifyTemplate, query)
}

// Router classifies queries with one small generation call.
type Router struct {
	gen     genai.Generator
	opts    genai.Options
	metrics *metrics.Metrics
}

// New creates a router. A nil gen yields a router that always answers General.
func New(gen genai.Generator, opts genai.Options, m *metrics.Metrics) *Router {
	return &Router{gen: gen, opts: opts, metrics: m}
}

// Classify returns the strategy for query. It never fails: backend errors,
// empty output and unrecognised labels all fall back to General.
func (r *Router) Classify(ctx context.Context, query string) strategy.Label {
	label := r.classify(ctx, query)
	if r != nil {
		r.metrics.RecordRoute(label.String())
	}
	return label
}

func (r *Router) classify(ctx context.Context, query string) strategy.Label {
	if r == nil || r.gen == nil {
		return strategy.General
	}

	start := time.Now()
	out, err := r.gen.Generate(ctx, genai.Request{
		Prompt:  ClassifyPrompt(query),
		Options: r.opts,
	})
	if err != nil {
		slog.WarnContext(ctx, "Classification failed, falling back to general",
			"error", err,
			"kind", genai.ClassifyError(err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return strategy.General
	}

	label := strategy.Normalize(genai.StripReasoning(out))
	slog.DebugContext(ctx, "Query classified",
		"label", label.String(),
		"raw", out,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return label
}
