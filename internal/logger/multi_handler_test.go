package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("ship failed") }

// recordingHandler collects messages for assertions.
type recordingHandler struct {
	mu   sync.Mutex
	msgs []string
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, r.Message)
	return nil
}
func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }
func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

func TestMultiHandler_SkipsNil(t *testing.T) {
	t.Parallel()

	mh := NewMultiHandler(nil, slog.NewJSONHandler(&bytes.Buffer{}, nil), nil)
	if len(mh.handlers) != 1 {
		t.Errorf("expected 1 handler, got %d", len(mh.handlers))
	}
}

func TestMultiHandler_FanOutRespectsLevels(t *testing.T) {
	t.Parallel()

	var debugBuf, errorBuf bytes.Buffer
	mh := NewMultiHandler(
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(mh)

	log.Info("info only")
	log.Error("both")

	if strings.Count(debugBuf.String(), "\n") != 2 {
		t.Errorf("debug handler should receive 2 records: %s", debugBuf.String())
	}
	if strings.Count(errorBuf.String(), "\n") != 1 {
		t.Errorf("error handler should receive 1 record: %s", errorBuf.String())
	}
	if !mh.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected Enabled(debug) to be true")
	}
}

func TestMultiHandler_JoinsErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	mh := NewMultiHandler(slog.NewJSONHandler(&buf, nil), failingHandler{slog.NewJSONHandler(&bytes.Buffer{}, nil)})
	err := mh.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "x", 0))
	if err == nil || !strings.Contains(err.Error(), "ship failed") {
		t.Errorf("expected joined error, got %v", err)
	}
	if buf.Len() == 0 {
		t.Error("healthy handler should still receive the record")
	}
}

func TestRemoteHandler_DrainsOnShutdown(t *testing.T) {
	t.Parallel()

	rec := &recordingHandler{}
	rh := NewRemoteHandler(rec, 16)
	log := slog.New(rh.WithAttrs([]slog.Attr{slog.String("k", "v")}))

	for range 5 {
		log.Info("queued")
	}
	if err := rh.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}
	if rec.count() != 5 {
		t.Errorf("expected 5 shipped records, got %d", rec.count())
	}

	log.Info("after shutdown")
	if rec.count() != 5 {
		t.Error("records after shutdown must be ignored")
	}
	if err := rh.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() = %v", err)
	}
}

func TestRemoteHandler_NilShutdown(t *testing.T) {
	t.Parallel()

	var rh *RemoteHandler
	if err := rh.Shutdown(context.Background()); err != nil {
		t.Errorf("nil Shutdown() = %v", err)
	}
	if rh.Dropped() != 0 {
		t.Error("nil Dropped() should be 0")
	}
}
