package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Common cache errors.
var (
	ErrInvalidCacheKey   = errors.New("cache key cannot be empty")
	ErrInvalidMaxEntries = errors.New("cache max entries must be at least 1")
	ErrStoreClosed       = errors.New("cache store is closed")
)

// Stats is a point-in-time view of store counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
	Entries     int
}

// HitRatio returns hits / (hits + misses), or 0 with no lookups.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type storeConfig struct {
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	clock           clockwork.Clock
	logger          zerolog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*storeConfig)

// WithTTL sets the default entry lifetime.
func WithTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) { c.ttl = ttl }
}

// WithMaxEntries bounds the number of entries; the least recently used entry
// is evicted when a new key is added at capacity.
func WithMaxEntries(n int) StoreOption {
	return func(c *storeConfig) { c.maxEntries = n }
}

// WithCleanupInterval sets the janitor period. Zero disables the janitor;
// expired entries are then only dropped on read or by CleanupExpired.
func WithCleanupInterval(d time.Duration) StoreOption {
	return func(c *storeConfig) { c.cleanupInterval = d }
}

// WithClock injects the time source.
func WithClock(clock clockwork.Clock) StoreOption {
	return func(c *storeConfig) { c.clock = clock }
}

// WithLogger sets the logger used for janitor and eviction events.
func WithLogger(l zerolog.Logger) StoreOption {
	return func(c *storeConfig) { c.logger = l }
}

// Store is an in-memory TTL cache bounded by LRU eviction.
// Safe for concurrent use.
type Store[V any] struct {
	mu sync.Mutex

	lru    *simplelru.LRU[string, *Entry[V]]
	ttl    time.Duration
	clock  clockwork.Clock
	logger zerolog.Logger

	cleanupInterval time.Duration
	stop            chan struct{}
	done            chan struct{}
	started         bool
	closed          bool

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64
}

// NewStore creates a store. The janitor is not running until Start is called.
func NewStore[V any](opts ...StoreOption) (*Store[V], error) {
	cfg := storeConfig{
		ttl:             DefaultTTL,
		maxEntries:      DefaultMaxEntries,
		cleanupInterval: DefaultCleanupInterval,
		clock:           clockwork.NewRealClock(),
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.ttl <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidTTL, cfg.ttl)
	}
	if cfg.maxEntries < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxEntries, cfg.maxEntries)
	}
	if cfg.cleanupInterval < 0 {
		return nil, fmt.Errorf("cache cleanup interval cannot be negative: got %s", cfg.cleanupInterval)
	}

	lru, err := simplelru.NewLRU[string, *Entry[V]](cfg.maxEntries, nil)
	if err != nil {
		return nil, fmt.Errorf("creating LRU: %w", err)
	}

	return &Store[V]{
		lru:             lru,
		ttl:             cfg.ttl,
		clock:           cfg.clock,
		logger:          cfg.logger.With().Str("component", "cache").Logger(),
		cleanupInterval: cfg.cleanupInterval,
	}, nil
}

// TTL returns the default entry lifetime.
func (s *Store[V]) TTL() time.Duration {
	return s.ttl
}

// Get returns the live value for key. An expired entry is removed and
// reported as a miss.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lru.Get(key)
	if !ok {
		s.misses++
		return zero, false
	}

	if entry.IsExpired(s.clock.Now()) {
		s.lru.Remove(key)
		s.expirations++
		s.misses++
		return zero, false
	}

	s.hits++
	return entry.Data, true
}

// Peek returns the live entry for key without touching recency or counters.
func (s *Store[V]) Peek(key string) (*Entry[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lru.Peek(key)
	if !ok || entry.IsExpired(s.clock.Now()) {
		return nil, false
	}
	e := *entry
	return &e, true
}

// Set stores value under key with the default TTL.
func (s *Store[V]) Set(key string, value V) error {
	return s.SetWithTTL(key, value, s.ttl)
}

// SetWithTTL stores value under key with an explicit TTL, overwriting any
// existing entry.
func (s *Store[V]) SetWithTTL(key string, value V, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidCacheKey
	}
	if ttl <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidTTL, ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lru.Add(key, newEntry(key, value, ttl, s.clock.Now())) {
		s.evictions++
		s.logger.Debug().Str("key", key).Msg("evicted least recently used entry")
	}
	return nil
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Remove(key)
}

// Clear removes every entry.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Purge()
}

// Len returns the number of stored entries, including expired ones not yet
// purged.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// CleanupExpired removes every expired entry and returns how many were removed.
func (s *Store[V]) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for _, key := range s.lru.Keys() {
		entry, ok := s.lru.Peek(key)
		if ok && entry.IsExpired(now) {
			s.lru.Remove(key)
			removed++
		}
	}
	s.expirations += uint64(removed)
	return removed
}

// Stats returns a snapshot of the store counters.
func (s *Store[V]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Hits:        s.hits,
		Misses:      s.misses,
		Evictions:   s.evictions,
		Expirations: s.expirations,
		Entries:     s.lru.Len(),
	}
}

// Start launches the janitor goroutine. It is a no-op when the cleanup
// interval is zero or the janitor is already running.
func (s *Store[V]) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if s.started || s.cleanupInterval == 0 {
		return nil
	}

	s.started = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	ticker := s.clock.NewTicker(s.cleanupInterval)

	go s.janitor(ticker, s.stop, s.done)
	return nil
}

func (s *Store[V]) janitor(ticker clockwork.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if removed := s.CleanupExpired(); removed > 0 {
				s.logger.Debug().Int("removed", removed).Msg("purged expired entries")
			}
		}
	}
}

// Close stops the janitor and drops every entry. Safe to call more than once.
func (s *Store[V]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stop, done := s.stop, s.done
	s.lru.Purge()
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}
