package batch

import (
	"time"
)

// Stats is an immutable snapshot of scheduler counters.
//
// Every submission lands in exactly one of CacheHits, DedupJoins, Resolved,
// Rejected, Pending, or the batch currently executing. Once the scheduler is
// idle, Submitted equals Accounted() + Pending.
type Stats struct {
	// Submitted counts every Submit call, including cache hits and joins.
	Submitted uint64

	// CacheHits counts requests answered from the cache.
	CacheHits uint64

	// DedupJoins counts requests attached to an existing pending or in-flight
	// request with the same key.
	DedupJoins uint64

	// Batches is the number of process calls.
	Batches uint64

	// FailedBatches is the number of process calls that failed.
	FailedBatches uint64

	// Resolved and Rejected count requests completed by a batch, or rejected
	// by Close. Cache hits and joins are counted only in their own fields.
	Resolved uint64
	Rejected uint64

	// MinBatchSize and MaxBatchSize are the smallest and largest batches seen.
	MinBatchSize int
	MaxBatchSize int

	// LastBatchSize and LastBatchDuration describe the most recent batch.
	LastBatchSize     int
	LastBatchDuration time.Duration

	// TotalBatchedRequests is the sum of all batch sizes.
	TotalBatchedRequests uint64

	// Pending is the number of queued requests at snapshot time.
	Pending int

	// Processing is true while a batch is executing.
	Processing bool
}

// Accounted returns the submissions that no longer wait for a batch: cache
// hits, dedup joins, and requests resolved or rejected by a batch or by Close.
func (s Stats) Accounted() uint64 {
	return s.CacheHits + s.DedupJoins + s.Resolved + s.Rejected
}

// AverageBatchSize returns the mean batch size, or 0 before the first batch.
func (s Stats) AverageBatchSize() float64 {
	if s.Batches == 0 {
		return 0
	}
	return float64(s.TotalBatchedRequests) / float64(s.Batches)
}

// CacheHitRatio returns the share of submissions answered from the cache.
func (s Stats) CacheHitRatio() float64 {
	if s.Submitted == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.Submitted)
}

// recordBatch updates the batch counters. Callers hold the scheduler lock.
func (s *Stats) recordBatch(size int, elapsed time.Duration, failed bool) {
	s.Batches++
	s.TotalBatchedRequests += uint64(size)
	s.LastBatchSize = size
	s.LastBatchDuration = elapsed

	if s.MinBatchSize == 0 || size < s.MinBatchSize {
		s.MinBatchSize = size
	}
	if size > s.MaxBatchSize {
		s.MaxBatchSize = size
	}

	if failed {
		s.FailedBatches++
		s.Rejected += uint64(size)
		return
	}
	s.Resolved += uint64(size)
}
