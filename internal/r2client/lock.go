package r2client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// ConditionalStore is the subset of Client a Lock needs.
type ConditionalStore interface {
	PutIfAbsent(ctx context.Context, key string, body []byte) (bool, string, error)
	PutIfMatch(ctx context.Context, key string, body []byte, etag string) (bool, string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	DeleteObject(ctx context.Context, key string) error
}

var _ ConditionalStore = (*Client)(nil)

// Lease is the JSON body stored under the lock key.
type Lease struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Lock is a lease held in an object. Expired leases can be taken over
// with a conditional write against the observed ETag.
type Lock struct {
	store ConditionalStore
	key   string
	ttl   time.Duration
	owner string
	etag  string
	now   func() time.Time
}

// NewLock creates a lock on key with a fresh owner id.
func NewLock(store ConditionalStore, key string, ttl time.Duration) *Lock {
	return &Lock{
		store: store,
		key:   key,
		ttl:   ttl,
		owner: uuid.NewString(),
		now:   time.Now,
	}
}

// Owner returns this instance's owner id.
func (l *Lock) Owner() string { return l.owner }

// Acquire takes the lock. It returns false without error while another
// owner holds an unexpired lease.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	body, err := l.lease()
	if err != nil {
		return false, err
	}

	created, etag, err := l.store.PutIfAbsent(ctx, l.key, body)
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if created {
		l.etag = etag
		return true, nil
	}

	current, etag, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		// Released between the two calls.
		created, etag, err = l.store.PutIfAbsent(ctx, l.key, body)
		if err != nil || !created {
			return false, err
		}
		l.etag = etag
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if current != nil && l.now().Before(current.ExpiresAt) {
		return false, nil
	}

	taken, newETag, err := l.store.PutIfMatch(ctx, l.key, body, etag)
	if err != nil {
		return false, fmt.Errorf("acquire lock: take over: %w", err)
	}
	if taken {
		l.etag = newETag
	}
	return taken, nil
}

// Renew extends the lease. It returns false once the lock has been lost.
func (l *Lock) Renew(ctx context.Context) (bool, error) {
	if l.etag == "" {
		return false, nil
	}
	body, err := l.lease()
	if err != nil {
		return false, err
	}
	ok, etag, err := l.store.PutIfMatch(ctx, l.key, body, l.etag)
	if err != nil {
		return false, fmt.Errorf("renew lock: %w", err)
	}
	if !ok {
		l.etag = ""
		return false, nil
	}
	l.etag = etag
	return true, nil
}

// Release deletes the lease if this instance still owns it.
func (l *Lock) Release(ctx context.Context) error {
	defer func() { l.etag = "" }()

	current, _, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if current != nil && current.Owner != l.owner {
		return nil
	}
	return l.store.DeleteObject(ctx, l.key)
}

func (l *Lock) lease() ([]byte, error) {
	body, err := json.Marshal(Lease{Owner: l.owner, ExpiresAt: l.now().Add(l.ttl)})
	if err != nil {
		return nil, fmt.Errorf("lock: marshal lease: %w", err)
	}
	return body, nil
}

// read returns the stored lease and its ETag. A body that does not parse
// yields a nil lease, which callers treat as expired.
func (l *Lock) read(ctx context.Context) (*Lease, string, error) {
	body, etag, err := l.store.Download(ctx, l.key)
	if err != nil {
		return nil, "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read lease: %w", err)
	}
	var lease Lease
	if err := json.Unmarshal(data, &lease); err != nil {
		return nil, etag, nil
	}
	return &lease, etag, nil
}
