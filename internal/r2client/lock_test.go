package r2client

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lockKey = "locks/ingest.json"

func TestLock_AcquireExclusive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemStore()

	a := NewLock(store, lockKey, time.Minute)
	b := NewLock(store, lockKey, time.Minute)
	assert.NotEqual(t, a.Owner(), b.Owner())

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second owner must wait for the lease")

	require.NoError(t, a.Release(ctx))
	assert.False(t, store.has(lockKey))

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_TakesOverExpiredLease(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemStore()

	stale := NewLock(store, lockKey, time.Minute)
	stale.now = func() time.Time { return time.Now().Add(-time.Hour) }
	ok, err := stale.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	fresh := NewLock(store, lockKey, time.Minute)
	ok, err = fresh.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	body, _, err := store.Download(ctx, lockKey)
	require.NoError(t, err)
	var lease Lease
	require.NoError(t, json.NewDecoder(body).Decode(&lease))
	assert.Equal(t, fresh.Owner(), lease.Owner)

	// The stale owner has lost the lease and must not delete it.
	renewed, err := stale.Renew(ctx)
	require.NoError(t, err)
	assert.False(t, renewed)
	require.NoError(t, stale.Release(ctx))
	assert.True(t, store.has(lockKey))
}

func TestLock_CorruptLeaseIsExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemStore()
	_, _, err := store.PutIfAbsent(ctx, lockKey, []byte("not json"))
	require.NoError(t, err)

	l := NewLock(store, lockKey, time.Minute)
	ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_Renew(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemStore()
	l := NewLock(store, lockKey, time.Minute)

	renewed, err := l.Renew(ctx)
	require.NoError(t, err)
	assert.False(t, renewed, "renew without acquire")

	ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	renewed, err = l.Renew(ctx)
	require.NoError(t, err)
	assert.True(t, renewed)
	renewed, err = l.Renew(ctx)
	require.NoError(t, err)
	assert.True(t, renewed, "renew tracks the new ETag")
}

func TestLock_ReleaseMissing(t *testing.T) {
	t.Parallel()
	l := NewLock(newMemStore(), lockKey, time.Minute)
	assert.NoError(t, l.Release(context.Background()))
}
