package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow(t *testing.T) {
	t.Parallel()

	l := New(3, 0.001)
	for i := range 3 {
		assert.True(t, l.Allow(), "request %d", i)
	}
	assert.False(t, l.Allow())
	assert.False(t, l.IsFull())
}

func TestLimiter_Refill(t *testing.T) {
	t.Parallel()

	l := New(1, 100)
	require.True(t, l.Allow())
	require.False(t, l.Allow())

	time.Sleep(30 * time.Millisecond)
	assert.True(t, l.Allow())
}

func TestLimiter_CheckDoesNotConsume(t *testing.T) {
	t.Parallel()

	l := New(1, 0.001)
	assert.True(t, l.Check())
	assert.True(t, l.Check())
	l.Consume()
	assert.False(t, l.Check())
}

func TestLimiter_Wait(t *testing.T) {
	t.Parallel()

	l := NewInterval(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestLimiter_WaitCanceled(t *testing.T) {
	t.Parallel()

	l := NewInterval(time.Hour)
	require.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}

func TestLimiter_Concurrent(t *testing.T) {
	t.Parallel()

	l := New(50, 0.001)
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 200 {
		wg.Go(func() {
			if l.Allow() {
				allowed.Add(1)
			}
		})
	}
	wg.Wait()
	assert.Equal(t, int32(50), allowed.Load())
}

func TestWindowCounter(t *testing.T) {
	t.Parallel()

	var unlimited *WindowCounter
	assert.True(t, unlimited.Allow())
	assert.Equal(t, -1, unlimited.Remaining())
	assert.Nil(t, NewWindowCounter(0, time.Hour))

	w := NewWindowCounter(2, time.Hour)
	assert.True(t, w.Allow())
	assert.Equal(t, 1, w.Remaining())
	assert.True(t, w.Check())
	w.Consume()
	assert.False(t, w.Allow())
	assert.Equal(t, 0, w.Remaining())
}

func TestWindowCounter_Rotates(t *testing.T) {
	t.Parallel()

	w := NewWindowCounter(1, 20*time.Millisecond)
	require.True(t, w.Allow())
	require.False(t, w.Allow())

	time.Sleep(50 * time.Millisecond)
	assert.True(t, w.Allow())
}
