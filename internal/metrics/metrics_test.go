package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())
	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.RouteTotal == nil || m.ContextTotal == nil || m.PipelineDuration == nil {
		t.Error("pipeline metrics not initialized")
	}
	if m.LLMRequestsTotal == nil || m.LLMDuration == nil {
		t.Error("LLM metrics not initialized")
	}
	if m.IngestChunksTotal == nil || m.CrawlerPagesTotal == nil || m.SnapshotSyncsTotal == nil {
		t.Error("offline metrics not initialized")
	}
}

func TestRecordCounters(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())

	m.RecordRoute("university")
	m.RecordRoute("university")
	m.RecordContext("web", "degraded")
	m.RecordChat("api", "ok")
	m.RecordRateLimiterDrop("user")
	m.RecordEmbeddingCache("hit")
	m.RecordCrawlerPage("saved")
	m.RecordIngestChunks(7)
	m.RecordSnapshotSync("upload", "ok")

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"route", m.RouteTotal.WithLabelValues("university"), 2},
		{"context", m.ContextTotal.WithLabelValues("web", "degraded"), 1},
		{"chat", m.ChatRequestsTotal.WithLabelValues("api", "ok"), 1},
		{"rate limiter", m.RateLimiterDropped.WithLabelValues("user"), 1},
		{"embedding cache", m.EmbeddingCacheTotal.WithLabelValues("hit"), 1},
		{"crawler", m.CrawlerPagesTotal.WithLabelValues("saved"), 1},
		{"ingest", m.IngestChunksTotal, 7},
		{"snapshot", m.SnapshotSyncsTotal.WithLabelValues("upload", "ok"), 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.c); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRecordHistograms(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordLLM("groq", "answer", "ok", 1.2)
	m.RecordPipeline("route", "ok", 3.4)

	if got := testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("groq", "answer", "ok")); got != 1 {
		t.Errorf("llm requests = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.PipelineDuration); n != 1 {
		t.Errorf("pipeline series = %d, want 1", n)
	}
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *Metrics
	// Should not panic
	m.RecordRoute("general")
	m.RecordContext("kb", "ok")
	m.RecordPipeline("document", "ok", 1)
	m.RecordLLM("gemini", "classify", "error", 0.1)
	m.RecordEmbeddingCache("miss")
	m.RecordChat("line", "ok")
	m.RecordRateLimiterDrop("global")
	m.RecordCrawlerPage("error")
	m.RecordIngestChunks(1)
	m.RecordSnapshotSync("download", "error")
}
