package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inboxpilot-backend/internal/kv"
)

func TestWindowBoundary(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.SetNow(func() time.Time { return now })

	l := New(store)

	// Exactly MaxRequests calls inside the window are all allowed.
	for i := 1; i <= DefaultMaxRequests; i++ {
		res, err := l.Check(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d should be allowed", i)
		assert.Equal(t, DefaultMaxRequests-i, res.Remaining)
	}

	// The (MaxRequests+1)-th inside the same window is rejected.
	res, err := l.Check(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	// After the window elapses the counter resets.
	now = now.Add(DefaultWindowSeconds*time.Second + time.Second)
	res, err = l.Check(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, DefaultMaxRequests-1, res.Remaining)
}

func TestTenantsAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := New(kv.NewMemory())

	for i := 0; i <= DefaultMaxRequests; i++ {
		_, err := l.Check(ctx, "noisy")
		require.NoError(t, err)
	}

	res, err := l.Check(ctx, "noisy")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = l.Check(ctx, "quiet")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "another tenant's burst must not affect this one")
}

func TestFixedWindowBoundaryBurst(t *testing.T) {
	// Documented property of the fixed window: a burst at the end of one
	// window plus a burst at the start of the next admits up to 2x the
	// nominal rate. Pinned here so nobody "fixes" it into a sliding window.
	ctx := context.Background()
	store := kv.NewMemory()
	now := time.Date(2025, 6, 1, 12, 0, 59, 0, time.UTC)
	store.SetNow(func() time.Time { return now })

	l := New(store)

	admitted := 0
	for i := 0; i < DefaultMaxRequests; i++ {
		res, err := l.Check(ctx, "bursty")
		require.NoError(t, err)
		if res.Allowed {
			admitted++
		}
	}

	now = now.Add(2 * time.Second) // crosses the window boundary
	for i := 0; i < DefaultMaxRequests; i++ {
		res, err := l.Check(ctx, "bursty")
		require.NoError(t, err)
		if res.Allowed {
			admitted++
		}
	}

	assert.Equal(t, 2*DefaultMaxRequests, admitted)
}
