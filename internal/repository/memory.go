package repository

import (
	"context"
	"sync"
	"time"
)

type MemoryProcessedStore struct {
	processed  sync.Map
	rateLimits sync.Map
}

func NewMemoryProcessedStore() *MemoryProcessedStore {
	return &MemoryProcessedStore{}
}

func (r *MemoryProcessedStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()
	val, loaded := r.processed.LoadOrStore(key, now.Add(ttl))
	if !loaded {
		return true, nil
	}

	// Expired entries are replaced in place.
	if now.After(val.(time.Time)) {
		r.processed.Store(key, now.Add(ttl))
		return true, nil
	}
	return false, nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryProcessedStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}
