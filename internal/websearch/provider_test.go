package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/uni-assistant-go/internal/rag"
)

type stubBackend struct {
	calls   int
	results []Result
	err     error
}

func (s *stubBackend) Search(context.Context, string, Options) ([]Result, error) {
	s.calls++
	return s.results, s.err
}

func TestProvider_MissingCredential(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		backend Backend
	}{
		{"nil interface", nil},
		{"typed nil client", NewTavilyClient("", "", 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := NewProvider(tt.backend, DefaultOptions(), nil).Fetch(context.Background(), "weather")
			assert.True(t, Unavailable(out))
			require.Len(t, out.Blob, 1)
			assert.Equal(t, UnavailableText, out.Blob[0].Text)
		})
	}
}

func TestProvider_RuntimeError(t *testing.T) {
	t.Parallel()

	b := &stubBackend{err: errors.New("connection reset")}
	out := NewProvider(b, DefaultOptions(), nil).Fetch(context.Background(), "weather")

	assert.Equal(t, rag.StatusDegraded, out.Status)
	assert.False(t, Unavailable(out))
	require.Len(t, out.Blob, 1)
	assert.Equal(t, ErrorSource, out.Blob[0].Source)
	assert.Equal(t, "Error performing web search: connection reset. The search service may be unavailable.", out.Blob[0].Text)
	assert.Equal(t, 1, b.calls)
}

func TestProvider_Results(t *testing.T) {
	t.Parallel()

	b := &stubBackend{results: []Result{
		{URL: "https://example.com", Content: "Sunny, 21C", RawContent: "Paris weather today: sunny, 21C.", Score: 0.9},
		{URL: "https://example.org", Content: "Cloudy"},
		{URL: "https://empty.example", Content: "  "},
	}}
	out := NewProvider(b, DefaultOptions(), nil).Fetch(context.Background(), "weather in Paris")

	assert.Equal(t, rag.StatusOK, out.Status)
	require.Len(t, out.Blob, 2)
	assert.Equal(t, "https://example.com", out.Blob[0].Source)
	assert.Equal(t, "Paris weather today: sunny, 21C.", out.Blob[0].Text, "raw content preferred")
	assert.Nil(t, out.Blob[1].Score)
}

func TestTavilyClient_Search(t *testing.T) {
	t.Parallel()

	var got tavilyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-key", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":"q","results":[{"title":"T","url":"https://example.com","content":"c","raw_content":"rc","score":0.5}]}`))
	}))
	t.Cleanup(srv.Close)

	c := NewTavilyClient("tvly-key", srv.URL, 0)
	opts := DefaultOptions()
	opts.ExcludeDomains = []string{"spam.example"}

	results, err := c.Search(context.Background(), "q", opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rc", results[0].RawContent)

	assert.Equal(t, 1, got.MaxResults)
	assert.Equal(t, "advanced", got.SearchDepth)
	assert.Equal(t, "year", got.TimeRange)
	assert.True(t, got.IncludeRawContent)
	assert.Equal(t, []string{"spam.example"}, got.ExcludeDomains)
}

func TestTavilyClient_Error(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":{"error":"Unauthorized: missing or invalid API key."}}`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewTavilyClient("bad", srv.URL, 0).Search(context.Background(), "q", DefaultOptions())
	require.ErrorContains(t, err, "invalid API key")
}
