package ratelimiter

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowExhaustsBurst(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 1, MaxBurst: 3})

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("client-1"), "request %d should be allowed", i)
	}

	assert.False(t, rl.Allow("client-1"))
}

func TestBucketsAreIsolatedPerSource(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 1, MaxBurst: 1})

	require.True(t, rl.Allow("client-1"))
	assert.False(t, rl.Allow("client-1"))

	assert.True(t, rl.Allow("client-2"))
}

func TestTokensRefillOverTime(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 100, MaxBurst: 2})

	require.True(t, rl.Allow("client-1"))
	require.True(t, rl.Allow("client-1"))
	require.False(t, rl.Allow("client-1"))

	time.Sleep(30 * time.Millisecond) // 100/s refills one token well within this

	assert.True(t, rl.Allow("client-1"))
}

func TestSteadyRetriesRecoverAfterBurst(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 100, MaxBurst: 1})

	require.True(t, rl.Allow("client-1"))

	// Retrying faster than one token interval must not starve the client:
	// fractional accrual has to carry across calls. At 100/s a 500ms window
	// of 5ms retries should land roughly 50 grants.
	start := time.Now()
	allowed := 0
	for i := 0; i < 100; i++ {
		if rl.Allow("client-1") {
			allowed++
		}
		time.Sleep(5 * time.Millisecond)
	}

	assert.GreaterOrEqual(t, allowed, 30)
	// Never more than the configured rate over the wall-clock window.
	assert.LessOrEqual(t, allowed, int(time.Since(start).Seconds()*100)+1)
}

func TestRemainingTracksSpending(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 1, MaxBurst: 5})

	assert.Equal(t, 5, rl.Remaining("client-1"))

	require.True(t, rl.Allow("client-1"))
	assert.Equal(t, 4, rl.Remaining("client-1"))
}

func TestGetSourceKey(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 1, SourceHeaderKey: "X-Forwarded-For"})

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.1.2.3:54321"
	assert.Equal(t, "10.1.2.3", rl.GetSourceKey(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", rl.GetSourceKey(r))
}

func TestInMemoryStoreExpiration(t *testing.T) {
	store := NewInMemory()
	t.Cleanup(func() { _ = store.Close() })

	snap := Snapshot{Tokens: 3, LastRefill: time.Now().UnixMilli()}
	require.NoError(t, store.Set("k", snap, 10*time.Millisecond))

	got, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	time.Sleep(20 * time.Millisecond)

	_, err = store.Get("k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestStoreMissYieldsFullBucket(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 1, MaxBurst: 4})

	// First contact with an unknown source starts from a full bucket.
	assert.Equal(t, 4, rl.Remaining("fresh-client"))
}
