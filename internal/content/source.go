package content

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/cloudseek/cloudseek/internal/cli/pagination"
	"github.com/cloudseek/cloudseek/internal/logging"
)

// ErrUpstreamUnavailable is the error injected by failure simulation.
var ErrUpstreamUnavailable = errors.New("content upstream unavailable")

// Option customizes a Source or a Feed.
type Option func(*options)

type options struct {
	clock  clockwork.Clock
	logger zerolog.Logger
}

func defaultOptions() options {
	return options{clock: clockwork.NewRealClock(), logger: zerolog.Nop()}
}

// WithClock injects the time source for latency, backoff and scheduling.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Source answers batches of page requests against a Repository, optionally
// with simulated latency and failures.
type Source struct {
	repo      *Repository
	latency   time.Duration
	failEvery int
	clock     clockwork.Clock
	logger    zerolog.Logger

	mu       sync.Mutex
	calls    int
	injected []error
}

// NewSource builds a source over repo. Latency and FailEvery come from cfg.
func NewSource(repo *Repository, cfg Config, opts ...Option) *Source {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Source{
		repo:      repo,
		latency:   cfg.Latency,
		failEvery: cfg.FailEvery,
		clock:     o.clock,
		logger:    logging.ComponentLogger(o.logger, "content_source"),
	}
}

// Repository returns the underlying catalogue.
func (s *Source) Repository() *Repository {
	return s.repo
}

// FailNext queues err to be returned by an upcoming FetchPages call. Queued
// errors are consumed one per call in order.
func (s *Source) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injected = append(s.injected, err)
}

// Calls returns how many times FetchPages has been invoked.
func (s *Source) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// FetchPages answers every params in one call, positionally. Any invalid
// params or injected failure fails the whole call.
func (s *Source) FetchPages(ctx context.Context, params []pagination.Params) ([]Page, error) {
	log := logging.FromContext(ctx)

	if err := s.nextFailure(); err != nil {
		log.Debug().Err(err).Int("batch_size", len(params)).Msg("injected fetch failure")
		return nil, err
	}

	if s.latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.clock.After(s.latency):
		}
	}

	pages := make([]Page, len(params))
	for i, p := range params {
		page, err := s.repo.Query(p)
		if err != nil {
			return nil, fmt.Errorf("query %d of %d: %w", i+1, len(params), err)
		}
		pages[i] = page
	}

	log.Debug().
		Str("trace_id", logging.TraceIDFromContext(ctx)).
		Int("pages", len(pages)).
		Msg("fetched pages")
	return pages, nil
}

func (s *Source) nextFailure() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if len(s.injected) > 0 {
		err := s.injected[0]
		s.injected = s.injected[1:]
		return err
	}
	if s.failEvery > 0 && s.calls%s.failEvery == 0 {
		return fmt.Errorf("%w: call %d", ErrUpstreamUnavailable, s.calls)
	}
	return nil
}
