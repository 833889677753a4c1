package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultRemoteBuffer       = 1024
	defaultRemoteFlushTimeout = 5 * time.Second
)

type remoteRecord struct {
	ctx     context.Context
	record  slog.Record
	handler slog.Handler
}

// remoteQueue is shared by every handler derived through WithAttrs/WithGroup.
type remoteQueue struct {
	mu      sync.RWMutex // guards close(ch) against concurrent sends
	ch      chan remoteRecord
	closed  atomic.Bool
	dropped atomic.Uint64
	wg      sync.WaitGroup
}

// RemoteHandler hands records to a single background goroutine so a slow
// log shipping endpoint never blocks a chat request. When the buffer is full
// the record is dropped and counted.
type RemoteHandler struct {
	queue   *remoteQueue
	handler slog.Handler
}

// NewRemoteHandler wraps handler with an async queue of the given size
// (<= 0 uses the default).
func NewRemoteHandler(handler slog.Handler, buffer int) *RemoteHandler {
	if buffer <= 0 {
		buffer = defaultRemoteBuffer
	}
	q := &remoteQueue{ch: make(chan remoteRecord, buffer)}
	q.wg.Go(func() {
		for rec := range q.ch {
			_ = rec.handler.Handle(rec.ctx, rec.record)
		}
	})
	return &RemoteHandler{queue: q, handler: handler}
}

// Enabled reports whether the wrapped handler accepts the level.
func (h *RemoteHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle enqueues a clone of the record without blocking.
func (h *RemoteHandler) Handle(ctx context.Context, r slog.Record) error {
	h.queue.mu.RLock()
	defer h.queue.mu.RUnlock()
	if h.queue.closed.Load() {
		return nil
	}
	select {
	case h.queue.ch <- remoteRecord{ctx: context.WithoutCancel(ctx), record: r.Clone(), handler: h.handler}:
	default:
		h.queue.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler sharing the same queue.
func (h *RemoteHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RemoteHandler{queue: h.queue, handler: h.handler.WithAttrs(attrs)}
}

// WithGroup returns a handler sharing the same queue.
func (h *RemoteHandler) WithGroup(name string) slog.Handler {
	return &RemoteHandler{queue: h.queue, handler: h.handler.WithGroup(name)}
}

// Dropped returns how many records were discarded because the queue was full.
func (h *RemoteHandler) Dropped() uint64 {
	if h == nil {
		return 0
	}
	return h.queue.dropped.Load()
}

// Shutdown stops accepting records and waits for the queue to drain.
// Safe on a nil receiver.
func (h *RemoteHandler) Shutdown(ctx context.Context) error {
	if h == nil {
		return nil
	}
	h.queue.mu.Lock()
	if h.queue.closed.Swap(true) {
		h.queue.mu.Unlock()
		return nil
	}
	close(h.queue.ch)
	h.queue.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultRemoteFlushTimeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		h.queue.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
