package batch

import (
	"errors"
	"fmt"
	"time"

	"github.com/cloudseek/cloudseek/internal/engine/cache"
	"github.com/cloudseek/cloudseek/internal/validate"
)

// Default scheduler configuration.
const (
	// DefaultMaxBatchSize is the default number of requests per process call.
	DefaultMaxBatchSize = 50

	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1

	// MaxBatchSizeLimit is the maximum allowed batch size.
	MaxBatchSizeLimit = 1000

	// DefaultMaxWaitTime is the default debounce window before a batch fires.
	DefaultMaxWaitTime = 50 * time.Millisecond

	// DefaultCacheTTL is the default lifetime of cached results.
	DefaultCacheTTL = cache.DefaultTTL
)

// ErrInvalidConfig is returned by NewScheduler when Config fails validation.
var ErrInvalidConfig = errors.New("invalid batch scheduler config")

// PriorityWeights maps each priority to its sort weight. Higher weights are
// processed first within a batch.
type PriorityWeights struct {
	High   int `yaml:"high"   json:"high"   validate:"gte=0"`
	Medium int `yaml:"medium" json:"medium" validate:"gte=0"`
	Low    int `yaml:"low"    json:"low"    validate:"gte=0"`
}

// DefaultPriorityWeights returns 3/2/1.
func DefaultPriorityWeights() PriorityWeights {
	return PriorityWeights{High: 3, Medium: 2, Low: 1}
}

// Weight returns the weight of p. Unknown priorities weigh as medium.
func (w PriorityWeights) Weight(p Priority) int {
	switch p {
	case PriorityHigh:
		return w.High
	case PriorityLow:
		return w.Low
	case PriorityMedium:
		return w.Medium
	default:
		return w.Medium
	}
}

// Config controls batching, deduplication and caching. Start from
// DefaultConfig; zero values are taken literally (MaxWaitTime == 0 means
// "fire on the next clock tick").
type Config struct {
	// MaxBatchSize caps the number of params passed to one process call.
	MaxBatchSize int `yaml:"max_batch_size" json:"max_batch_size" validate:"min=1,max=1000"`

	// MaxWaitTime is the debounce window. Every new request arriving while no
	// batch is executing restarts it.
	MaxWaitTime time.Duration `yaml:"max_wait" json:"max_wait"`

	// CacheTTL is how long a result stays servable from the cache.
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`

	// Deduplicate joins requests sharing a cache key onto one pending or
	// in-flight request.
	Deduplicate bool `yaml:"deduplicate" json:"deduplicate"`

	// PriorityWeights orders requests inside a batch.
	PriorityWeights PriorityWeights `yaml:"priority_weights" json:"priority_weights"`

	// CacheCleanupInterval is the janitor period of a scheduler-owned cache.
	// Zero disables the janitor.
	CacheCleanupInterval time.Duration `yaml:"cache_cleanup_interval" json:"cache_cleanup_interval"`

	// CacheMaxEntries bounds a scheduler-owned cache.
	CacheMaxEntries int `yaml:"cache_max_entries" json:"cache_max_entries" validate:"min=1"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:         DefaultMaxBatchSize,
		MaxWaitTime:          DefaultMaxWaitTime,
		CacheTTL:             DefaultCacheTTL,
		Deduplicate:          true,
		PriorityWeights:      DefaultPriorityWeights(),
		CacheCleanupInterval: cache.DefaultCleanupInterval,
		CacheMaxEntries:      cache.DefaultMaxEntries,
	}
}

// Validate checks every field, wrapping failures in ErrInvalidConfig.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.MaxWaitTime < 0 {
		return fmt.Errorf("%w: max wait time cannot be negative, got %s", ErrInvalidConfig, c.MaxWaitTime)
	}
	if err := validate.PositiveDuration(c.CacheTTL, "cache TTL"); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.CacheCleanupInterval < 0 {
		return fmt.Errorf("%w: cache cleanup interval cannot be negative, got %s",
			ErrInvalidConfig, c.CacheCleanupInterval)
	}
	return nil
}
