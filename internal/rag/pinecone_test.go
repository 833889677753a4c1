package rag

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/garyellow/uni-assistant-go/internal/errors"
)

type fixedEmbedder struct {
	err error
}

func (f fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

func (f fixedEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (fixedEmbedder) Dimension() int { return 2 }

func TestNewPineconeStore_NotConfigured(t *testing.T) {
	t.Parallel()

	s, err := NewPineconeStore(PineconeConfig{Host: "idx.pinecone.io"}, fixedEmbedder{})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = NewPineconeStore(PineconeConfig{APIKey: "k", Host: "idx.pinecone.io"}, nil)
	require.Error(t, err)
}

func TestPineconeStore_Search(t *testing.T) {
	t.Parallel()

	var got pineconeQueryRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Api-Key"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matches":[
			{"id":"1","score":0.82,"metadata":{"text":"Admissions open in June.","source":"https://www.aup.edu.pk/admissions"}},
			{"id":"2","score":0.41,"metadata":{"text":"Entry test is mandatory.","source":"https://www.aup.edu.pk/test"}},
			{"id":"3","score":0.12,"metadata":{"text":"Unrelated.","source":"https://www.aup.edu.pk/x"}}
		]}`))
	}))
	t.Cleanup(srv.Close)

	s, err := NewPineconeStore(PineconeConfig{APIKey: "test-key", Host: srv.URL, Namespace: "site"}, fixedEmbedder{})
	require.NoError(t, err)

	passages, err := s.Search(context.Background(), "admissions", 3, 0.4)
	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, "https://www.aup.edu.pk/admissions", passages[0].Source)
	assert.InDelta(t, 0.82, *passages[0].Score, 1e-9)

	assert.Equal(t, 3, got.TopK)
	assert.Equal(t, "site", got.Namespace)
	assert.True(t, got.IncludeMetadata)
}

func TestPineconeStore_SearchErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":16,"message":"invalid api key"}`))
	}))
	t.Cleanup(srv.Close)

	s, err := NewPineconeStore(PineconeConfig{APIKey: "bad", Host: srv.URL}, fixedEmbedder{})
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "q", 3, 0.4)
	var pErr *apperrors.ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, http.StatusUnauthorized, pErr.StatusCode)
	assert.Contains(t, err.Error(), "invalid api key")

	s2, err := NewPineconeStore(PineconeConfig{APIKey: "k", Host: srv.URL}, fixedEmbedder{err: errors.New("quota")})
	require.NoError(t, err)
	_, err = s2.Search(context.Background(), "q", 3, 0.4)
	require.ErrorContains(t, err, "embed query")
}

func TestPineconeStore_Upsert(t *testing.T) {
	t.Parallel()

	var got pineconeUpsertRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vectors/upsert", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"upsertedCount":2}`))
	}))
	t.Cleanup(srv.Close)

	s, err := NewPineconeStore(PineconeConfig{APIKey: "k", Host: srv.URL, RetryCount: 2}, fixedEmbedder{})
	require.NoError(t, err)

	n, err := s.Upsert(context.Background(), []Vector{
		{ID: "a", Values: []float32{1}, Metadata: VectorMetadata{Text: "t1", Source: "s"}},
		{ID: "b", Values: []float32{2}, Metadata: VectorMetadata{Text: "t2", Source: "s"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, got.Vectors, 2)
	assert.Equal(t, "t1", got.Vectors[0].Metadata.Text)

	n, err = s.Upsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
