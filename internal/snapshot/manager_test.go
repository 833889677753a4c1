package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/uni-assistant-go/internal/logger"
	"github.com/garyellow/uni-assistant-go/internal/metrics"
	"github.com/garyellow/uni-assistant-go/internal/r2client"
	"github.com/garyellow/uni-assistant-go/internal/storage"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	seq     int
	etags   map[string]string
	failGet bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, etags: map[string]string{}}
}

func (s *memStore) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.objects[key] = data
	s.etags[key] = fmt.Sprintf("v%d", s.seq)
	return s.etags[key], nil
}

func (s *memStore) Download(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return nil, "", errors.New("connection reset")
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, "", r2client.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), s.etags[key], nil
}

func (s *memStore) HeadObject(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return "", r2client.ErrNotFound
	}
	return s.etags[key], nil
}

const key = "snapshots/corpus.db.zst"

func newManager(t *testing.T, store ObjectStore) (*Manager, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	return New(store, Config{Key: key, TempDir: t.TempDir()}, logger.New("error"), m), m
}

func seedDB(t *testing.T, path string, pages ...string) *storage.DB {
	t.Helper()
	db, err := storage.New(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	for _, u := range pages {
		require.NoError(t, db.SavePage(context.Background(), &storage.Page{URL: u, Title: u, Content: "body of " + u}))
	}
	return db
}

func TestPublishRestore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	store := newMemStore()
	mgr, m := newManager(t, store)

	src := seedDB(t, filepath.Join(dir, "ingest.db"), "https://a", "https://b")
	etag, err := mgr.Publish(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "v1", etag)
	assert.Equal(t, "v1", mgr.ETag())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotSyncsTotal.WithLabelValues("upload", "success")))

	reader, _ := newManager(t, store)
	dest := filepath.Join(dir, "serve", "corpus.db")
	etag, err = reader.Restore(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, "v1", etag)

	restored, err := storage.New(ctx, dest)
	require.NoError(t, err)
	defer restored.Close()
	n, err := restored.CountPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRestore_NotFound(t *testing.T) {
	t.Parallel()
	mgr, m := newManager(t, newMemStore())
	_, err := mgr.Restore(context.Background(), filepath.Join(t.TempDir(), "corpus.db"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SnapshotSyncsTotal.WithLabelValues("download", "error")))
}

func TestRestore_DownloadError(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	store.objects[key] = []byte("x")
	store.failGet = true
	mgr, m := newManager(t, store)

	_, err := mgr.Restore(context.Background(), filepath.Join(t.TempDir(), "corpus.db"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotSyncsTotal.WithLabelValues("download", "error")))
}

func TestRefresh_SwapsOnNewETag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	store := newMemStore()

	publisher, _ := newManager(t, store)
	_, err := publisher.Publish(ctx, seedDB(t, filepath.Join(dir, "v1.db"), "https://a"))
	require.NoError(t, err)

	server, _ := newManager(t, store)
	live := filepath.Join(dir, "live", "corpus.db")
	_, err = server.Restore(ctx, live)
	require.NoError(t, err)
	db, err := storage.New(ctx, live)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	swapped, err := server.Refresh(ctx, db)
	require.NoError(t, err)
	assert.False(t, swapped, "same ETag")

	_, err = publisher.Publish(ctx, seedDB(t, filepath.Join(dir, "v2.db"), "https://a", "https://b", "https://c"))
	require.NoError(t, err)

	swapped, err = server.Refresh(ctx, db)
	require.NoError(t, err)
	assert.True(t, swapped)
	assert.Equal(t, "v2", server.ETag())
	assert.NotEqual(t, live, db.Path())

	n, err := db.CountPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRefresh_NothingPublished(t *testing.T) {
	t.Parallel()
	mgr, _ := newManager(t, newMemStore())
	db, err := storage.NewTestDB()
	require.NoError(t, err)
	defer db.Close()

	swapped, err := mgr.Refresh(context.Background(), db)
	require.NoError(t, err)
	assert.False(t, swapped)
}

func TestPoll_DisabledReturns(t *testing.T) {
	t.Parallel()
	mgr, _ := newManager(t, newMemStore())
	mgr.Poll(context.Background(), nil, nil)
}
