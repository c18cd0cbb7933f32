package batch

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/cloudseek/cloudseek/internal/engine/cache"
	"github.com/cloudseek/cloudseek/internal/logging"
)

// ProcessFunc handles one batch. results[i] must answer params[i]; returning
// a different number of results fails the whole batch.
type ProcessFunc[P, R any] func(ctx context.Context, params []P) ([]R, error)

// Option customizes a Scheduler.
type Option[P, R any] func(*Scheduler[P, R])

// WithCacheKey sets the function deriving a cache key from params. Without it
// caching and deduplication are disabled. An empty key disables both for
// that request.
func WithCacheKey[P, R any](fn func(P) string) Option[P, R] {
	return func(s *Scheduler[P, R]) { s.keyFn = fn }
}

// WithTransform sets a per-item transform applied to each result before it is
// cached and delivered.
func WithTransform[P, R any](fn func(R, P) R) Option[P, R] {
	return func(s *Scheduler[P, R]) { s.transform = fn }
}

// WithClock injects the time source used for timestamps, the debounce timer
// and the owned cache.
func WithClock[P, R any](clock clockwork.Clock) Option[P, R] {
	return func(s *Scheduler[P, R]) { s.clock = clock }
}

// WithLogger sets the scheduler logger.
func WithLogger[P, R any](l zerolog.Logger) Option[P, R] {
	return func(s *Scheduler[P, R]) { s.logger = l }
}

// WithCache injects a result cache. The caller keeps ownership: Close does
// not close an injected cache.
func WithCache[P, R any](store *cache.Store[R]) Option[P, R] {
	return func(s *Scheduler[P, R]) { s.cache = store }
}

// WithDeduplicationDisabled turns deduplication off regardless of Config.
func WithDeduplicationDisabled[P, R any]() Option[P, R] {
	return func(s *Scheduler[P, R]) { s.forceNoDedupe = true }
}

type request[P, R any] struct {
	id        string
	params    P
	priority  Priority
	weight    int
	timestamp time.Time
	seq       uint64
	key       string
	future    *Future[R]
}

// Scheduler collects requests submitted within a short window and hands them
// to a process function in batches. Requests sharing a cache key are merged,
// results are cached with a TTL, and at most one batch executes at a time.
type Scheduler[P, R any] struct {
	process   ProcessFunc[P, R]
	cfg       Config
	keyFn     func(P) string
	transform func(R, P) R
	clock     clockwork.Clock
	logger    zerolog.Logger

	cache     *cache.Store[R]
	ownsCache bool
	dedupe    bool

	forceNoDedupe bool

	mu         sync.Mutex
	pending    []*request[P, R]
	inFlight   map[string]*request[P, R]
	processing bool
	timer      clockwork.Timer
	timerGen   uint64
	seq        uint64
	closed     bool
	stats      Stats
}

// NewScheduler validates cfg and builds a scheduler. When a cache key function
// is configured and no cache was injected, the scheduler creates and owns one.
func NewScheduler[P, R any](process ProcessFunc[P, R], cfg Config, opts ...Option[P, R]) (*Scheduler[P, R], error) {
	if process == nil {
		return nil, ErrNilProcess
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler[P, R]{
		process:  process,
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
		logger:   zerolog.Nop(),
		inFlight: make(map[string]*request[P, R]),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = logging.ComponentLogger(s.logger, "batch_scheduler")
	s.dedupe = cfg.Deduplicate && !s.forceNoDedupe && s.keyFn != nil

	if s.keyFn != nil && s.cache == nil {
		store, err := cache.NewStore[R](
			cache.WithTTL(cfg.CacheTTL),
			cache.WithMaxEntries(cfg.CacheMaxEntries),
			cache.WithCleanupInterval(cfg.CacheCleanupInterval),
			cache.WithClock(s.clock),
			cache.WithLogger(s.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("creating result cache: %w", err)
		}
		if err := store.Start(); err != nil {
			return nil, fmt.Errorf("starting result cache: %w", err)
		}
		s.cache = store
		s.ownsCache = true
	}

	return s, nil
}

// Submit queues params and returns a future for the result.
//
// A live cache entry resolves the future immediately. Otherwise, with
// deduplication on, a request whose key is already pending or in flight
// shares that request's future. New requests restart the debounce timer
// unless a batch is executing; in that case the running batch loop picks
// them up when it finishes.
func (s *Scheduler[P, R]) Submit(params P, priority Priority) *Future[R] {
	var key string
	if s.keyFn != nil {
		key = s.keyFn(params)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Submitted++

	if s.closed {
		s.stats.Rejected++
		return rejectedFuture[R](ulid.Make().String(), ErrSchedulerClosed)
	}

	if key != "" && s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			s.stats.CacheHits++
			s.logger.Trace().Str("key", key).Msg("cache hit")
			return resolvedFuture(ulid.Make().String(), v)
		}
	}

	if key != "" && s.dedupe {
		if existing, ok := s.inFlight[key]; ok {
			s.stats.DedupJoins++
			s.logger.Trace().Str("key", key).Str("request_id", existing.id).Msg("joined existing request")
			return existing.future
		}
	}

	s.seq++
	id := ulid.Make().String()
	req := &request[P, R]{
		id:        id,
		params:    params,
		priority:  priority,
		weight:    s.cfg.PriorityWeights.Weight(priority),
		timestamp: s.clock.Now(),
		seq:       s.seq,
		key:       key,
		future:    newFuture[R](id),
	}
	s.pending = append(s.pending, req)
	if key != "" && s.dedupe {
		s.inFlight[key] = req
	}

	if !s.processing {
		s.armTimerLocked(s.cfg.MaxWaitTime)
	}

	return req.future
}

// Add submits params and waits for the result. Cancelling ctx abandons the
// wait only; the request stays queued and will still be processed.
func (s *Scheduler[P, R]) Add(ctx context.Context, params P, priority Priority) (R, error) {
	return s.Submit(params, priority).Wait(ctx)
}

// ClearCache removes the given keys from the cache, or every entry when no
// key is given.
func (s *Scheduler[P, R]) ClearCache(keys ...string) {
	if s.cache == nil {
		return
	}
	if len(keys) == 0 {
		s.cache.Clear()
		return
	}
	for _, k := range keys {
		s.cache.Delete(k)
	}
}

// Flush runs batch cycles on the calling goroutine until the queue is empty,
// skipping the wait window. It returns immediately when another goroutine is
// already executing a batch; that goroutine drains the queue instead.
func (s *Scheduler[P, R]) Flush() {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()

	s.run()
}

// Pending returns the number of queued requests not yet handed to process.
func (s *Scheduler[P, R]) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler[P, R]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.stats
	snap.Pending = len(s.pending)
	snap.Processing = s.processing
	return snap
}

// Close stops the debounce timer and rejects every queued request with
// ErrSchedulerClosed. A batch already executing completes normally. A cache
// created by the scheduler is closed; an injected one is left alone.
func (s *Scheduler[P, R]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopTimerLocked()

	dropped := s.pending
	s.pending = nil
	for _, req := range dropped {
		s.releaseKeyLocked(req)
	}
	s.stats.Rejected += uint64(len(dropped))
	s.mu.Unlock()

	for _, req := range dropped {
		req.future.reject(ErrSchedulerClosed)
	}
	if len(dropped) > 0 {
		s.logger.Debug().Int("rejected", len(dropped)).Msg("scheduler closed with pending requests")
	}

	if s.ownsCache {
		s.cache.Close()
	}
}

func (s *Scheduler[P, R]) armTimerLocked(d time.Duration) {
	s.stopTimerLocked()
	s.timerGen++
	gen := s.timerGen
	s.timer = s.clock.AfterFunc(d, func() { s.onTimer(gen) })
}

func (s *Scheduler[P, R]) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// Invalidate a callback that already fired but has not run yet.
	s.timerGen++
}

func (s *Scheduler[P, R]) onTimer(gen uint64) {
	s.mu.Lock()
	if gen != s.timerGen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	s.run()
}

// run executes batches back to back until the queue is empty. Only one run
// loop executes batches at a time.
func (s *Scheduler[P, R]) run() {
	for {
		s.mu.Lock()
		if s.processing || s.closed || len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		s.processing = true
		s.stopTimerLocked()
		batch := s.takeBatchLocked()
		s.mu.Unlock()

		s.execute(batch)

		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
	}
}

// takeBatchLocked orders the queue by descending weight, then timestamp, then
// arrival, and removes up to MaxBatchSize requests from its head.
func (s *Scheduler[P, R]) takeBatchLocked() []*request[P, R] {
	slices.SortStableFunc(s.pending, func(a, b *request[P, R]) int {
		if c := cmp.Compare(b.weight, a.weight); c != 0 {
			return c
		}
		if c := a.timestamp.Compare(b.timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	n := min(len(s.pending), s.cfg.MaxBatchSize)
	batch := slices.Clone(s.pending[:n])
	s.pending = slices.Clone(s.pending[n:])
	return batch
}

func (s *Scheduler[P, R]) execute(batch []*request[P, R]) {
	batchID := ulid.Make().String()
	logger := s.logger.With().
		Str("operation", "processBatch").
		Str("batch_id", batchID).
		Int("batch_size", len(batch)).
		Logger()

	params := make([]P, len(batch))
	for i, req := range batch {
		params[i] = req.params
	}

	ctx := logging.ContextWithTraceID(logger.WithContext(context.Background()), batchID)

	logger.Debug().Msg("processing batch")
	start := s.clock.Now()
	results, err := s.callProcess(ctx, params)
	elapsed := s.clock.Since(start)

	if err == nil && len(results) != len(batch) {
		err = fmt.Errorf("%w: sent %d params, got %d results", ErrResultCountMismatch, len(batch), len(results))
	}

	if err != nil {
		s.fail(batch, batchID, elapsed, err)
		logger.Warn().Err(err).Dur("duration", elapsed).Msg("batch failed")
		return
	}

	values := make([]R, len(batch))
	for i, req := range batch {
		v := results[i]
		if s.transform != nil {
			v = s.transform(v, req.params)
		}
		values[i] = v
		if req.key != "" && s.cache != nil {
			if setErr := s.cache.Set(req.key, v); setErr != nil {
				logger.Warn().Err(setErr).Str("key", req.key).Msg("caching result failed")
			}
		}
	}

	// The cache is written before keys leave the in-flight map, so a
	// concurrent Submit for the same key either joins or hits the cache.
	s.mu.Lock()
	for _, req := range batch {
		s.releaseKeyLocked(req)
	}
	s.stats.recordBatch(len(batch), elapsed, false)
	s.mu.Unlock()

	for i, req := range batch {
		req.future.resolve(values[i])
	}
	logger.Debug().Dur("duration", elapsed).Msg("batch resolved")
}

func (s *Scheduler[P, R]) fail(batch []*request[P, R], batchID string, elapsed time.Duration, err error) {
	batchErr := &BatchProcessingError{BatchID: batchID, Size: len(batch), Err: err}

	s.mu.Lock()
	for _, req := range batch {
		s.releaseKeyLocked(req)
	}
	s.stats.recordBatch(len(batch), elapsed, true)
	s.mu.Unlock()

	for _, req := range batch {
		req.future.reject(batchErr)
	}
}

func (s *Scheduler[P, R]) callProcess(ctx context.Context, params []P) (results []R, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = fmt.Errorf("%w: %v", ErrProcessPanicked, r)
		}
	}()
	return s.process(ctx, params)
}

func (s *Scheduler[P, R]) releaseKeyLocked(req *request[P, R]) {
	if req.key == "" {
		return
	}
	if cur, ok := s.inFlight[req.key]; ok && cur == req {
		delete(s.inFlight, req.key)
	}
}
