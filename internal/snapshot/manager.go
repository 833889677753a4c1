// Package snapshot distributes the corpus database through object storage.
// The ingest job publishes a zstd-compressed copy; chat servers restore it
// at startup and optionally poll for newer copies, hot-swapping the live
// connection when the ETag changes.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/garyellow/uni-assistant-go/internal/errors"
	"github.com/garyellow/uni-assistant-go/internal/logger"
	"github.com/garyellow/uni-assistant-go/internal/metrics"
	"github.com/garyellow/uni-assistant-go/internal/r2client"
	"github.com/garyellow/uni-assistant-go/internal/storage"
)

// ErrNotFound indicates no snapshot has been published yet.
var ErrNotFound = fmt.Errorf("snapshot: %w", apperrors.ErrNotFound)

// ObjectStore is the subset of the R2 client the manager uses.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	HeadObject(ctx context.Context, key string) (string, error)
}

// Config holds snapshot manager configuration.
type Config struct {
	Key          string        // Object key, e.g. snapshots/corpus.db.zst
	PollInterval time.Duration // Zero disables polling
	TempDir      string
}

// Manager moves corpus snapshots between SQLite and object storage.
type Manager struct {
	store   ObjectStore
	cfg     Config
	logger  *logger.Logger
	metrics *metrics.Metrics

	mu   sync.RWMutex
	etag string
}

// New creates a snapshot manager.
func New(store ObjectStore, cfg Config, log *logger.Logger, m *metrics.Metrics) *Manager {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if log == nil {
		log = logger.New("info")
	}
	return &Manager{store: store, cfg: cfg, logger: log.WithModule("snapshot"), metrics: m}
}

// ETag returns the ETag of the snapshot last published or restored.
func (m *Manager) ETag() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.etag
}

func (m *Manager) setETag(etag string) {
	m.mu.Lock()
	m.etag = etag
	m.mu.Unlock()
}

// Publish compresses a consistent copy of db and uploads it.
func (m *Manager) Publish(ctx context.Context, db *storage.DB) (etag string, err error) {
	defer func() { m.metrics.RecordSnapshotSync("upload", status(err)) }()

	raw := filepath.Join(m.cfg.TempDir, fmt.Sprintf("corpus_%d.db", time.Now().UnixNano()))
	if err := db.CreateSnapshot(ctx, raw); err != nil {
		return "", err
	}
	defer os.Remove(raw)

	packed := raw + ".zst"
	if err := r2client.CompressFile(raw, packed); err != nil {
		return "", err
	}
	defer os.Remove(packed)

	f, err := os.Open(packed)
	if err != nil {
		return "", fmt.Errorf("snapshot: open compressed: %w", err)
	}
	defer f.Close()

	etag, err = m.store.Upload(ctx, m.cfg.Key, f, "application/zstd")
	if err != nil {
		return "", fmt.Errorf("snapshot: upload: %w", err)
	}
	m.setETag(etag)
	m.logger.InfoContext(ctx, "Snapshot published", "key", m.cfg.Key, "etag", etag)
	return etag, nil
}

// Restore downloads the latest snapshot into destPath. It returns
// ErrNotFound when nothing has been published.
func (m *Manager) Restore(ctx context.Context, destPath string) (etag string, err error) {
	defer func() {
		if !errors.Is(err, ErrNotFound) {
			m.metrics.RecordSnapshotSync("download", status(err))
		}
	}()

	body, etag, err := m.store.Download(ctx, m.cfg.Key)
	if errors.Is(err, r2client.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("snapshot: download: %w", err)
	}
	defer body.Close()

	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("snapshot: create dir: %w", err)
		}
	}
	if err := r2client.DecompressStream(body, destPath); err != nil {
		return "", err
	}
	m.setETag(etag)
	m.logger.InfoContext(ctx, "Snapshot restored", "path", destPath, "etag", etag)
	return etag, nil
}

// Poll checks for a newer snapshot every PollInterval and swaps it into
// db, calling onSwap (if set) after each swap. It returns when ctx is done.
func (m *Manager) Poll(ctx context.Context, db *storage.DB, onSwap func(context.Context)) {
	if m.cfg.PollInterval <= 0 {
		return
	}
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swapped, err := m.Refresh(ctx, db)
			if err != nil {
				m.logger.WithError(err).WarnContext(ctx, "Snapshot refresh failed")
				continue
			}
			if swapped && onSwap != nil {
				onSwap(ctx)
			}
		}
	}
}

// Refresh swaps in the remote snapshot when its ETag differs from the one
// loaded. It reports whether a swap happened.
func (m *Manager) Refresh(ctx context.Context, db *storage.DB) (bool, error) {
	remote, err := m.store.HeadObject(ctx, m.cfg.Key)
	if errors.Is(err, r2client.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("snapshot: head: %w", err)
	}
	if remote == m.ETag() {
		return false, nil
	}

	dir := filepath.Dir(db.Path())
	if db.Path() == storage.MemoryPath {
		dir = m.cfg.TempDir
	}
	next := filepath.Join(dir, fmt.Sprintf("corpus_%d.db", time.Now().UnixNano()))
	if _, err := m.Restore(ctx, next); err != nil {
		return false, err
	}
	if err := db.Swap(ctx, next); err != nil {
		_ = os.Remove(next)
		return false, err
	}
	m.logger.InfoContext(ctx, "Corpus hot-swapped", "etag", remote)
	return true, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
