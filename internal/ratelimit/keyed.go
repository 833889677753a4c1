package ratelimit

import (
	"sync"
	"time"

	"github.com/garyellow/uni-assistant-go/internal/metrics"
)

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	Name string // Metrics label, e.g. "user"

	Burst      float64 // Bucket capacity per key
	RefillRate float64 // Tokens per second per key

	// DailyLimit adds a rolling 24h quota per key when positive.
	DailyLimit int

	CleanupPeriod time.Duration // Defaults to 5 minutes
	Metrics       *metrics.Metrics
}

// KeyedLimiter keeps one bucket per key (session id, LINE user, client IP)
// and drops idle buckets periodically. Call Stop when done.
type KeyedLimiter struct {
	mu      sync.RWMutex
	entries map[string]*keyedEntry
	cfg     KeyedConfig
	stopCh  chan struct{}
	once    sync.Once
}

// keyedEntry's mutex makes the bucket and daily checks one atomic step.
type keyedEntry struct {
	mu     sync.Mutex
	bucket *Limiter
	daily  *WindowCounter
}

// NewKeyedLimiter starts the cleanup loop.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}
	kl := &KeyedLimiter{
		entries: make(map[string]*keyedEntry),
		cfg:     cfg,
		stopCh:  make(chan struct{}),
	}
	go kl.cleanupLoop()
	return kl
}

// Allow reports whether key may proceed, consuming quota if so.
// An empty key is always allowed.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	e := kl.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.daily.Check() || !e.bucket.Check() {
		kl.cfg.Metrics.RecordRateLimiterDrop(kl.cfg.Name)
		return false
	}
	e.daily.Consume()
	e.bucket.Consume()
	return true
}

// DailyRemaining returns the key's remaining daily quota, or -1 when
// no daily limit is configured.
func (kl *KeyedLimiter) DailyRemaining(key string) int {
	if kl.cfg.DailyLimit <= 0 {
		return -1
	}
	kl.mu.RLock()
	e, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return kl.cfg.DailyLimit
	}
	return e.daily.Remaining()
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.entries)
}

func (kl *KeyedLimiter) entry(key string) *keyedEntry {
	kl.mu.RLock()
	e, ok := kl.entries[key]
	kl.mu.RUnlock()
	if ok {
		return e
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if e, ok = kl.entries[key]; ok {
		return e
	}
	e = &keyedEntry{
		bucket: New(kl.cfg.Burst, kl.cfg.RefillRate),
		daily:  NewWindowCounter(kl.cfg.DailyLimit, 24*time.Hour),
	}
	kl.entries[key] = e
	return e
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.cfg.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.sweep()
		}
	}
}

// sweep drops keys whose bucket has refilled. Keys with daily usage are
// kept so the quota survives idle periods.
func (kl *KeyedLimiter) sweep() {
	kl.mu.Lock()
	for key, e := range kl.entries {
		if e.bucket.IsFull() && (e.daily == nil || e.daily.Remaining() == kl.cfg.DailyLimit) {
			delete(kl.entries, key)
		}
	}
	n := len(kl.entries)
	kl.mu.Unlock()

	kl.cfg.Metrics.SetRateLimiterActive(kl.cfg.Name, n)
}

// Stop ends the cleanup loop. Safe to call more than once.
func (kl *KeyedLimiter) Stop() {
	kl.once.Do(func() { close(kl.stopCh) })
}
