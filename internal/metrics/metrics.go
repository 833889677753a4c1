// Package metrics defines the Prometheus instruments for the assistant.
// All Record* helpers are safe to call on a nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Pipeline metrics
	RouteTotal       *prometheus.CounterVec
	ContextTotal     *prometheus.CounterVec
	PipelineDuration *prometheus.HistogramVec

	// LLM metrics
	LLMRequestsTotal *prometheus.CounterVec
	LLMDuration      *prometheus.HistogramVec

	// Embedding cache metrics
	EmbeddingCacheTotal *prometheus.CounterVec

	// Chat surface metrics
	ChatRequestsTotal  *prometheus.CounterVec
	RateLimiterDropped *prometheus.CounterVec
	RateLimiterActive  *prometheus.GaugeVec

	// Offline job metrics
	CrawlerPagesTotal  *prometheus.CounterVec
	IngestChunksTotal  prometheus.Counter
	SnapshotSyncsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		RouteTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uniassist_route_total",
				Help: "Total router decisions by strategy label",
			},
			[]string{"label"}, // label: university, web_search, general, document
		),

		ContextTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uniassist_context_total",
				Help: "Context provider outcomes by provider and status",
			},
			[]string{"provider", "status"}, // status: ok, degraded, fatal
		),

		PipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "uniassist_pipeline_duration_seconds",
				Help:    "End-to-end answer latency by mode and final status",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60}, // Up to the 60s chat budget
			},
			[]string{"mode", "status"},
		),

		LLMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uniassist_llm_requests_total",
				Help: "LLM calls by provider, role and status",
			},
			[]string{"provider", "role", "status"}, // role: classify, expand, answer
		),

		LLMDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "uniassist_llm_duration_seconds",
				Help:    "LLM call latency by provider and role",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40},
			},
			[]string{"provider", "role"},
		),

		EmbeddingCacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uniassist_embedding_cache_total",
				Help: "Query embedding cache lookups by result",
			},
			[]string{"result"}, // result: hit, miss, shared
		),

		ChatRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uniassist_chat_requests_total",
				Help: "Chat requests by channel and status",
			},
			[]string{"channel", "status"}, // channel: api, line
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uniassist_rate_limiter_dropped_total",
				Help: "Requests dropped by rate limiter",
			},
			[]string{"limiter"}, // limiter: user, global
		),

		RateLimiterActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "uniassist_rate_limiter_active_keys",
				Help: "Keys currently tracked by a keyed rate limiter",
			},
			[]string{"limiter"},
		),

		CrawlerPagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uniassist_crawler_pages_total",
				Help: "Crawled pages by status",
			},
			[]string{"status"}, // status: saved, skipped, error
		),

		IngestChunksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "uniassist_ingest_chunks_total",
				Help: "Chunks embedded and upserted",
			},
		),

		SnapshotSyncsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uniassist_snapshot_syncs_total",
				Help: "Corpus snapshot transfers by direction and status",
			},
			[]string{"direction", "status"}, // direction: upload, download
		),
	}
}

// RecordRoute records a routing decision.
func (m *Metrics) RecordRoute(label string) {
	if m == nil {
		return
	}
	m.RouteTotal.WithLabelValues(label).Inc()
}

// RecordContext records a context provider outcome.
func (m *Metrics) RecordContext(provider, status string) {
	if m == nil {
		return
	}
	m.ContextTotal.WithLabelValues(provider, status).Inc()
}

// RecordPipeline records one end-to-end answer.
func (m *Metrics) RecordPipeline(mode, status string, seconds float64) {
	if m == nil {
		return
	}
	m.PipelineDuration.WithLabelValues(mode, status).Observe(seconds)
}

// RecordLLM records one LLM call.
func (m *Metrics) RecordLLM(provider, role, status string, seconds float64) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(provider, role, status).Inc()
	m.LLMDuration.WithLabelValues(provider, role).Observe(seconds)
}

// RecordEmbeddingCache records a cache lookup result.
func (m *Metrics) RecordEmbeddingCache(result string) {
	if m == nil {
		return
	}
	m.EmbeddingCacheTotal.WithLabelValues(result).Inc()
}

// RecordChat records a chat request outcome.
func (m *Metrics) RecordChat(channel, status string) {
	if m == nil {
		return
	}
	m.ChatRequestsTotal.WithLabelValues(channel, status).Inc()
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiter).Inc()
}

// SetRateLimiterActive sets the number of keys a limiter tracks.
func (m *Metrics) SetRateLimiterActive(limiter string, n int) {
	if m == nil {
		return
	}
	m.RateLimiterActive.WithLabelValues(limiter).Set(float64(n))
}

// RecordCrawlerPage records a crawled page.
func (m *Metrics) RecordCrawlerPage(status string) {
	if m == nil {
		return
	}
	m.CrawlerPagesTotal.WithLabelValues(status).Inc()
}

// RecordIngestChunks adds n upserted chunks.
func (m *Metrics) RecordIngestChunks(n int) {
	if m == nil {
		return
	}
	m.IngestChunksTotal.Add(float64(n))
}

// RecordSnapshotSync records a snapshot transfer.
func (m *Metrics) RecordSnapshotSync(direction, status string) {
	if m == nil {
		return
	}
	m.SnapshotSyncsTotal.WithLabelValues(direction, status).Inc()
}
