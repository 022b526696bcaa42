package ratelimiter

import (
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// Snapshot is the persisted state of one token bucket.
type Snapshot struct {
	Tokens     int
	LastRefill int64 // Unix milliseconds
}

type Store interface {
	Get(key string) (Snapshot, error)
	Set(key string, snap Snapshot, expiration time.Duration) error
	Close() error
}
