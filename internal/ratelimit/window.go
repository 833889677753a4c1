package ratelimit

import (
	"sync"
	"time"
)

// WindowCounter approximates a rolling window quota with two fixed
// windows: effective = current + previous * (unelapsed share of window).
// A nil *WindowCounter is unlimited.
type WindowCounter struct {
	mu          sync.Mutex
	curr, prev  int
	start       time.Time
	window      time.Duration
	maxRequests int
}

// NewWindowCounter returns nil when maxRequests <= 0.
func NewWindowCounter(maxRequests int, window time.Duration) *WindowCounter {
	if maxRequests <= 0 {
		return nil
	}
	return &WindowCounter{start: time.Now(), window: window, maxRequests: maxRequests}
}

// Allow counts a request if the quota permits.
func (w *WindowCounter) Allow() bool {
	if w == nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.effective() >= float64(w.maxRequests) {
		return false
	}
	w.curr++
	return true
}

// Check reports whether a request would be allowed.
func (w *WindowCounter) Check() bool {
	if w == nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.effective() < float64(w.maxRequests)
}

// Consume counts a request that already passed Check.
func (w *WindowCounter) Consume() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.effective() < float64(w.maxRequests) {
		w.curr++
	}
}

// Remaining returns the approximate quota left, or -1 when unlimited.
func (w *WindowCounter) Remaining() int {
	if w == nil {
		return -1
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return max(0, int(float64(w.maxRequests)-w.effective()))
}

// effective rotates expired windows and returns the weighted count.
// Must be called with mu held.
func (w *WindowCounter) effective() float64 {
	elapsed := time.Since(w.start)
	if elapsed >= w.window {
		passed := int(elapsed / w.window)
		w.prev = 0
		if passed == 1 {
			w.prev = w.curr
		}
		w.curr = 0
		w.start = w.start.Add(time.Duration(passed) * w.window)
		elapsed = time.Since(w.start)
	}

	overlap := float64(w.window-elapsed) / float64(w.window)
	overlap = min(1, max(0, overlap))
	return float64(w.curr) + float64(w.prev)*overlap
}
