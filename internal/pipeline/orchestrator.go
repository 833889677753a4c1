// Package pipeline routes a query to a context provider, assembles the
// prompt and generates the final answer.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/garyellow/uni-assistant-go/internal/config"
	"github.com/garyellow/uni-assistant-go/internal/document"
	apperrors "github.com/garyellow/uni-assistant-go/internal/errors"
	"github.com/garyellow/uni-assistant-go/internal/genai"
	"github.com/garyellow/uni-assistant-go/internal/logger"
	"github.com/garyellow/uni-assistant-go/internal/metrics"
	"github.com/garyellow/uni-assistant-go/internal/prompt"
	"github.com/garyellow/uni-assistant-go/internal/rag"
	"github.com/garyellow/uni-assistant-go/internal/router"
	"github.com/garyellow/uni-assistant-go/internal/sentry"
	"github.com/garyellow/uni-assistant-go/internal/strategy"
	"github.com/garyellow/uni-assistant-go/internal/websearch"
)

// User-facing fallback messages.
const (
	GenerationErrorText = "I'm having trouble generating a response right now. The language model service may be temporarily unavailable. Please try again later."
	TimeoutText         = "The request took too long to process. Please try a simpler question or try again later."
)

// Trace steps shown to the user while an answer is produced.
const (
	TraceAnalyzingDocuments = "Analyzing documents..."
	TraceRouting            = "Determining the best agent for your question..."
	TraceUniversity         = "Searching university knowledge base..."
	TraceWeb                = "Searching the web for current information..."
	TraceTutor              = "Analyzing your academic question..."
)

// ModeDocument labels document-mode answers in metrics and logs.
const ModeDocument = "document"

// Status is the overall result of one RouteAndAnswer call.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
	StatusTimeout  Status = "timeout"
)

// Classifier picks a strategy for a query.
type Classifier interface {
	Classify(ctx context.Context, query string) strategy.Label
}

// ContextFetcher gathers context for a query.
type ContextFetcher interface {
	Fetch(ctx context.Context, query string) rag.Outcome
}

// DocumentLoader turns uploaded files into context.
type DocumentLoader interface {
	Load(ctx context.Context, files []document.File) rag.Outcome
}

// Answer is what the caller shows to the user.
type Answer struct {
	Text   string
	Trace  []string
	Mode   string         // Label name, or ModeDocument
	Label  strategy.Label // General in document mode
	Status Status
}

// Config wires the orchestrator's collaborators. A nil collaborator
// behaves like an unconfigured backend.
type Config struct {
	Router        Classifier
	KnowledgeBase ContextFetcher
	WebSearch     ContextFetcher
	Documents     DocumentLoader
	Generator     genai.Generator
	Presets       genai.Presets
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
	Timeout       time.Duration // Used by Answer; defaults to config.ChatProcessing
}

// Orchestrator runs the routing pipeline.
type Orchestrator struct {
	router    Classifier
	kb        ContextFetcher
	web       ContextFetcher
	documents DocumentLoader
	gen       genai.Generator
	presets   genai.Presets
	logger    *logger.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.ChatProcessing
	}
	log := cfg.Logger
	if log == nil {
		log = logger.New("info")
	}
	o := &Orchestrator{
		router:    cfg.Router,
		kb:        cfg.KnowledgeBase,
		web:       cfg.WebSearch,
		documents: cfg.Documents,
		gen:       cfg.Generator,
		presets:   cfg.Presets,
		logger:    log.WithModule("pipeline"),
		metrics:   cfg.Metrics,
		timeout:   timeout,
	}
	if o.router == nil {
		o.router = router.New(nil, cfg.Presets.Classify, cfg.Metrics)
	}
	if o.kb == nil {
		o.kb = rag.NewKnowledgeBase(nil, nil, rag.KnowledgeBaseConfig{}, cfg.Metrics)
	}
	if o.web == nil {
		o.web = websearch.NewProvider(nil, websearch.DefaultOptions(), cfg.Metrics)
	}
	if o.documents == nil {
		o.documents = document.NewLoader(document.Config{})
	}
	return o
}

// Answer runs RouteAndAnswer under the processing timeout.
func (o *Orchestrator) Answer(ctx context.Context, query string, files []document.File) Answer {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.RouteAndAnswer(ctx, query, files)
}

// RouteAndAnswer produces the answer for query. Files switch to document
// mode and skip routing. Every sub-call shares ctx; once it expires the
// partial work is dropped and TimeoutText is returned.
func (o *Orchestrator) RouteAndAnswer(ctx context.Context, query string, files []document.File) Answer {
	start := time.Now()
	run := &run{}

	ans := o.routeAndAnswer(ctx, query, files, run)
	if ctx.Err() != nil && ans.Status != StatusOK && ans.Status != StatusDegraded {
		ans.Text = TimeoutText
		ans.Status = StatusTimeout
	}
	ans.Trace = run.trace

	o.metrics.RecordPipeline(ans.Mode, string(ans.Status), time.Since(start).Seconds())
	o.logger.InfoContext(ctx, "Answer produced",
		"mode", ans.Mode,
		"status", string(ans.Status),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ans
}

type run struct {
	trace []string
}

func (r *run) step(s string) {
	r.trace = append(r.trace, s)
}

func (o *Orchestrator) routeAndAnswer(ctx context.Context, query string, files []document.File, r *run) Answer {
	if len(files) > 0 {
		return o.answerDocuments(ctx, query, files, r)
	}

	r.step(TraceRouting)
	label := o.router.Classify(ctx, query)
	r.step("Selected agent: " + label.String())
	ans := Answer{Label: label, Mode: label.String()}
	if err := ctx.Err(); err != nil {
		ans.Status = StatusTimeout
		return ans
	}

	var (
		out  rag.Outcome
		kind prompt.Kind
		opts genai.Options
	)
	switch label {
	case strategy.University:
		r.step(TraceUniversity)
		out = o.kb.Fetch(ctx, query)
		if rag.NotConfigured(out) {
			ans.Text = rag.KBNotConfiguredText
			ans.Status = StatusDegraded
			return ans
		}
		kind, opts = prompt.KindUniversity, o.presets.University
	case strategy.WebSearch:
		r.step(TraceWeb)
		out = o.web.Fetch(ctx, query)
		if websearch.Unavailable(out) {
			ans.Text = websearch.UnavailableText
			ans.Status = StatusDegraded
			return ans
		}
		kind, opts = prompt.KindWeb, o.presets.Web
	default:
		r.step(TraceTutor)
		out = rag.OK(nil)
		kind, opts = prompt.KindTutor, o.presets.Tutor
	}

	return o.generate(ctx, ans, out, kind, opts, query)
}

func (o *Orchestrator) answerDocuments(ctx context.Context, query string, files []document.File, r *run) Answer {
	for _, f := range files {
		r.step("Processing file: " + f.DisplayName())
	}
	r.step(TraceAnalyzingDocuments)

	ans := Answer{Label: strategy.General, Mode: ModeDocument}
	out := o.documents.Load(ctx, files)
	ans = o.generate(ctx, ans, out, prompt.KindDocument, o.presets.Document, query)
	if ans.Status == StatusOK || ans.Status == StatusDegraded {
		ans.Text += document.Footer(files)
	}
	return ans
}

// generate turns a provider outcome into the final answer text.
func (o *Orchestrator) generate(ctx context.Context, ans Answer, out rag.Outcome, kind prompt.Kind, opts genai.Options, query string) Answer {
	if err := ctx.Err(); err != nil {
		ans.Status = StatusTimeout
		return ans
	}
	if out.Status == rag.StatusFatal {
		ans.Text = out.Reason
		ans.Status = StatusFailed
		return ans
	}
	if out.Status == rag.StatusDegraded {
		o.logger.WarnContext(ctx, "Context provider degraded",
			"mode", ans.Mode,
			"reason", out.Reason,
		)
	}

	p := prompt.Assemble(kind, out.Blob, query)
	text, err := o.invoke(ctx, genai.Request{System: p.System, Prompt: p.User, Options: opts})
	if err != nil {
		if ctx.Err() != nil {
			ans.Status = StatusTimeout
			return ans
		}
		o.logger.WithError(err).ErrorContext(ctx, "Generation failed", "mode", ans.Mode)
		sentry.CaptureException(ctx, err, map[string]string{"module": "pipeline", "mode": ans.Mode})
		ans.Text = GenerationErrorText
		ans.Status = StatusFailed
		return ans
	}

	ans.Text = genai.StripReasoning(text)
	ans.Status = StatusOK
	if out.Status == rag.StatusDegraded {
		ans.Status = StatusDegraded
	}
	return ans
}

func (o *Orchestrator) invoke(ctx context.Context, req genai.Request) (string, error) {
	if o.gen == nil {
		return "", errNoGenerator
	}
	return o.gen.Generate(ctx, req)
}

var errNoGenerator = fmt.Errorf("language model: %w", apperrors.ErrNotConfigured)
