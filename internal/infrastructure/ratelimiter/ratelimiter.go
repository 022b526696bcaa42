package ratelimiter

import (
	"math"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	bucketKeyPrefix  = "rl:bucket:"
	defaultSourceKey = "X-RateLimit-Key"
)

type Limiter interface {
	Allow(sourceKey string) bool
	GetSourceKey(r *http.Request) string
	Remaining(sourceKey string) int
	GetMaxBurst() int
}

// RateLimiter is a token bucket limiter with one bucket per source key.
type RateLimiter struct {
	ratePerMillisecond float64
	maxBurst           int
	store              Store
	storeTTL           time.Duration
	sourceHeaderKey    string
	// Per-key locks so refill and spend are atomic for each source
	locks sync.Map // map[string]*sync.Mutex
}

func (rl *RateLimiter) getLock(sourceKey string) *sync.Mutex {
	lock, _ := rl.locks.LoadOrStore(sourceKey, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (rl *RateLimiter) getSnapshot(sourceKey string) Snapshot {
	snap, err := rl.store.Get(bucketKeyPrefix + sourceKey)
	if err != nil {
		// Miss or store error: fail open with a full bucket
		return Snapshot{
			Tokens:     rl.maxBurst,
			LastRefill: time.Now().UnixMilli(),
		}
	}

	return snap
}

func (rl *RateLimiter) setSnapshot(sourceKey string, snap Snapshot) {
	_ = rl.store.Set(bucketKeyPrefix+sourceKey, snap, rl.storeTTL)
}

func (rl *RateLimiter) refill(snap Snapshot, now int64) Snapshot {
	elapsed := now - snap.LastRefill
	if elapsed <= 0 {
		return snap
	}

	accrued := math.Floor(float64(elapsed) * rl.ratePerMillisecond)
	if accrued < 1 {
		// Less than one whole token accrued. Keep LastRefill where it is so
		// the partial interval still counts toward the next call.
		return snap
	}

	tokens := snap.Tokens + int(accrued)
	// Advance LastRefill only by the time the accrued tokens cost, so the
	// fractional remainder of elapsed carries into the next refill.
	last := snap.LastRefill + int64(accrued/rl.ratePerMillisecond)
	if tokens >= rl.maxBurst {
		tokens = rl.maxBurst
		last = now
	}

	return Snapshot{
		Tokens:     tokens,
		LastRefill: last,
	}
}

func (rl *RateLimiter) Allow(sourceKey string) bool {
	lock := rl.getLock(sourceKey)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UnixMilli()
	snap := rl.refill(rl.getSnapshot(sourceKey), now)

	if snap.Tokens > 0 {
		snap.Tokens--
		rl.setSnapshot(sourceKey, snap)
		return true
	}

	rl.setSnapshot(sourceKey, snap)

	return false
}

func (rl *RateLimiter) Remaining(sourceKey string) int {
	lock := rl.getLock(sourceKey)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UnixMilli()
	snap := rl.refill(rl.getSnapshot(sourceKey), now)
	rl.setSnapshot(sourceKey, snap)

	return snap.Tokens
}

func (rl *RateLimiter) GetMaxBurst() int {
	return rl.maxBurst
}

func (rl *RateLimiter) GetSourceKey(r *http.Request) string {
	if key := r.Header.Get(rl.sourceHeaderKey); key != "" {
		return key
	}

	// Fall back to the network origin, without the ephemeral port
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}

type Options struct {
	MaxRatePerSecond int
	MaxBurst         int
	Store            Store
	StoreTTL         time.Duration
	SourceHeaderKey  string
}

func New(options Options) Limiter {
	if options.Store == nil {
		options.Store = NewInMemory()
	}

	if options.StoreTTL == 0 {
		options.StoreTTL = 10 * time.Second
	}

	if options.MaxBurst <= 0 {
		options.MaxBurst = options.MaxRatePerSecond
	}

	if options.SourceHeaderKey == "" {
		options.SourceHeaderKey = defaultSourceKey
	}

	return &RateLimiter{
		ratePerMillisecond: float64(options.MaxRatePerSecond) / 1000.0,
		maxBurst:           options.MaxBurst,
		store:              options.Store,
		storeTTL:           options.StoreTTL,
		sourceHeaderKey:    options.SourceHeaderKey,
	}
}
