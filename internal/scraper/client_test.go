package scraper

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/garyellow/uni-assistant-go/internal/errors"
)

func testClient() *Client {
	return NewClient(ClientConfig{Timeout: 5 * time.Second, MaxRetries: 2, InitialDelay: time.Millisecond})
}

func TestGetDocument(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Admissions</title></head><body><p>Apply by August.</p></body></html>`))
	}))
	defer srv.Close()

	page, err := testClient().GetDocument(context.Background(), srv.URL+"/admissions")
	require.NoError(t, err)
	assert.Equal(t, "Admissions", page.Doc.Find("title").Text())
	assert.Equal(t, srv.URL+"/admissions", page.URL)
}

func TestGetDocument_Gzip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write([]byte(`<html><body><h1>Fees</h1></body></html>`))
	require.NoError(t, gz.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	page, err := testClient().GetDocument(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Fees", page.Doc.Find("h1").Text())
}

func TestGetDocument_Latin1(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<html><body><p>caf\xe9</p></body></html>"))
	}))
	defer srv.Close()

	page, err := testClient().GetDocument(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "café", page.Doc.Find("p").Text())
}

func TestGetDocument_NotHTML(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	_, err := testClient().GetDocument(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrNotHTML)
}

func TestGet_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()

	_, err := testClient().GetDocument(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_NotFoundIsPermanent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient().Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var scraperErr *apperrors.ScraperError
	require.True(t, errors.As(err, &scraperErr))
	assert.Equal(t, http.StatusNotFound, scraperErr.StatusCode)
}
