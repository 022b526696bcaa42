package ratelimiter

import (
	"sync"
	"time"
)

type inMemoryEntry struct {
	snap      Snapshot
	expiresAt time.Time
}

type InMemory struct {
	buckets   map[string]inMemoryEntry
	mu        sync.RWMutex
	stopClean chan struct{}
	cleanOnce sync.Once
}

func NewInMemory() Store {
	im := &InMemory{
		buckets:   make(map[string]inMemoryEntry),
		stopClean: make(chan struct{}),
	}

	go im.cleanupExpired()

	return im
}

func (i *InMemory) Get(key string) (Snapshot, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	entry, ok := i.buckets[key]
	if !ok {
		return Snapshot{}, ErrCacheMiss
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return Snapshot{}, ErrCacheMiss
	}

	return entry.snap, nil
}

func (i *InMemory) Set(key string, snap Snapshot, expiration time.Duration) error {
	var expiresAt time.Time
	if expiration > 0 {
		expiresAt = time.Now().Add(expiration)
	}

	i.mu.Lock()

	i.buckets[key] = inMemoryEntry{
		snap:      snap,
		expiresAt: expiresAt,
	}

	i.mu.Unlock()

	return nil
}

func (i *InMemory) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			i.removeExpired()
		case <-i.stopClean:
			return
		}
	}
}

func (i *InMemory) removeExpired() {
	now := time.Now()

	i.mu.Lock()
	defer i.mu.Unlock()

	for key, entry := range i.buckets {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(i.buckets, key)
		}
	}
}

func (i *InMemory) Close() error {
	i.cleanOnce.Do(func() {
		close(i.stopClean)
	})
	return nil
}
