package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/cloudseek/cloudseek/internal/cli/pagination"
	"github.com/cloudseek/cloudseek/internal/engine/batch"
	"github.com/cloudseek/cloudseek/internal/logging"
)

// Feed requests article pages through a batch scheduler and retries failed
// batches with exponential backoff.
type Feed struct {
	src    *Source
	sched  *batch.Scheduler[pagination.Params, Page]
	cfg    Config
	clock  clockwork.Clock
	logger zerolog.Logger
}

// NewFeed builds a feed over src. The scheduler is created from schedCfg and
// keys its cache by Params.CacheKey.
func NewFeed(src *Source, cfg Config, schedCfg batch.Config, opts ...Option) (*Feed, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.ComponentLogger(o.logger, "content_feed")

	sched, err := batch.NewScheduler[pagination.Params, Page](
		src.FetchPages,
		schedCfg,
		batch.WithCacheKey[pagination.Params, Page](PageKey),
		batch.WithClock[pagination.Params, Page](o.clock),
		batch.WithLogger[pagination.Params, Page](o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating feed scheduler: %w", err)
	}

	return &Feed{
		src:    src,
		sched:  sched,
		cfg:    cfg,
		clock:  o.clock,
		logger: logger,
	}, nil
}

// PageKey is the scheduler cache key for p. Params that cannot be keyed get
// an empty key, which bypasses caching and deduplication.
func PageKey(p pagination.Params) string {
	key, err := p.CacheKey(ListOperation)
	if err != nil {
		return ""
	}
	return key
}

// Page fetches one page. Invalid params fail immediately. Batch failures are
// retried up to MaxAttempts in total; cancellation and scheduler shutdown are
// not retried.
func (f *Feed) Page(ctx context.Context, p pagination.Params, prio batch.Priority) (Page, error) {
	if err := f.src.Repository().CheckParams(p); err != nil {
		return Page{}, err
	}

	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		page, err := f.sched.Add(ctx, p, prio)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) || attempt == f.cfg.MaxAttempts {
			break
		}

		wait := f.backoff(attempt)
		f.logger.Debug().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("retrying page fetch")

		if wait > 0 {
			select {
			case <-ctx.Done():
				return Page{}, ctx.Err()
			case <-f.clock.After(wait):
			}
		}
	}

	if ctx.Err() != nil {
		return Page{}, ctx.Err()
	}
	return Page{}, fmt.Errorf("fetching page: %w", lastErr)
}

func (f *Feed) backoff(attempt int) time.Duration {
	return f.cfg.RetryBackoff << (attempt - 1)
}

func retryable(err error) bool {
	var batchErr *batch.BatchProcessingError
	return errors.As(err, &batchErr) && !errors.Is(err, context.Canceled)
}

// Invalidate drops cached pages: the given params only, or everything.
func (f *Feed) Invalidate(params ...pagination.Params) {
	if len(params) == 0 {
		f.sched.ClearCache()
		return
	}
	keys := make([]string, 0, len(params))
	for _, p := range params {
		if k := PageKey(p); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		f.sched.ClearCache(keys...)
	}
}

// Stats returns the scheduler counters.
func (f *Feed) Stats() batch.Stats {
	return f.sched.Stats()
}

// Close shuts the scheduler down.
func (f *Feed) Close() {
	f.sched.Close()
}
