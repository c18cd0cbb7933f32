package content

import (
	"errors"
	"fmt"
	"time"

	"github.com/cloudseek/cloudseek/internal/validate"
)

// Content defaults.
const (
	DefaultArticleCount = 240
	DefaultPageSize     = 20
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = 100 * time.Millisecond

	// ListOperation is the cache key operation for article list pages.
	ListOperation = "articles.list"
)

// ErrInvalidConfig is returned when Config fails validation.
var ErrInvalidConfig = errors.New("invalid content configuration")

// Config controls the article catalogue, its simulated upstream and the
// feed's retry policy.
type Config struct {
	// Articles is the number of generated catalogue entries.
	Articles int `yaml:"articles" json:"articles" validate:"min=0,max=100000"`

	// PageSize is the page size used by callers that do not choose one.
	PageSize int `yaml:"page_size" json:"page_size" validate:"min=1,max=1000"`

	// MaxAttempts bounds how often the feed submits one request.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" validate:"min=1,max=10"`

	// RetryBackoff is the wait before the first retry; it doubles per retry.
	RetryBackoff time.Duration `yaml:"retry_backoff" json:"retry_backoff"`

	// Latency simulates upstream response time per batch.
	Latency time.Duration `yaml:"latency" json:"latency"`

	// FailEvery makes every Nth upstream call fail; 0 disables.
	FailEvery int `yaml:"fail_every" json:"fail_every" validate:"min=0"`
}

// DefaultConfig returns the default content configuration.
func DefaultConfig() Config {
	return Config{
		Articles:     DefaultArticleCount,
		PageSize:     DefaultPageSize,
		MaxAttempts:  DefaultMaxAttempts,
		RetryBackoff: DefaultRetryBackoff,
	}
}

// Validate checks ranges and rejects negative durations.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("%w: retry_backoff cannot be negative, got %s", ErrInvalidConfig, c.RetryBackoff)
	}
	if c.Latency < 0 {
		return fmt.Errorf("%w: latency cannot be negative, got %s", ErrInvalidConfig, c.Latency)
	}
	return nil
}
