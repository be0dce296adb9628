package cache

import (
	"context"
	"time"
)

// Cache stores short-lived lookups such as resolved thumbnail URLs.
// MemoryCache serves single-instance deployments, RedisCache shares entries
// between replicas.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// GetOrSet retrieves a value or computes and stores it if missing.
	// Errors from fn are returned and nothing is stored.
	GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error)

	// Clear removes all entries owned by this cache.
	Clear(ctx context.Context) error

	// Stats reports hit and miss counters since startup.
	Stats() Stats

	// Close releases background resources.
	Close() error
}

// Stats are cache counters for the admin dashboard.
type Stats struct {
	Backend string `json:"backend"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int64  `json:"entries"`

	// Evictions counts entries dropped to make room (memory backend only).
	Evictions uint64 `json:"evictions,omitempty"`
}

// CacheError is a sentinel cache error.
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)
