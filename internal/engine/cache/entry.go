package cache

import (
	"time"
)

// Entry is a single cached value with TTL metadata.
type Entry[V any] struct {
	// Key is the cache key (typically a SHA256 hash of request parameters).
	Key string

	// Data is the cached value.
	Data V

	// CreatedAt is when the entry was written.
	CreatedAt time.Time

	// ExpiresAt is the instant after which the entry is no longer served.
	ExpiresAt time.Time

	// TTL is the time-to-live the entry was written with.
	TTL time.Duration
}

func newEntry[V any](key string, data V, ttl time.Duration, now time.Time) *Entry[V] {
	return &Entry[V]{
		Key:       key,
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		TTL:       ttl,
	}
}

// IsExpired reports whether now is past the expiration time.
// An entry is still valid at exactly ExpiresAt.
func (e *Entry[V]) IsExpired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Age returns the duration since the entry was created.
func (e *Entry[V]) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// TimeUntilExpiration returns the duration until the entry expires.
// Returns 0 if already expired.
func (e *Entry[V]) TimeUntilExpiration(now time.Time) time.Duration {
	remaining := e.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
