// Package batch merges individually submitted requests into batched calls.
//
// A Scheduler collects requests issued within a short debounce window and
// passes them to a caller-supplied process function in one call. Key features:
//   - Configurable batch size (default 50) and wait window (default 50ms)
//   - Deduplication of requests sharing a cache key, pending or in flight
//   - Priority ordering (high, medium, low) within each batch
//   - TTL result cache backed by engine/cache
//   - All-or-nothing failure: every request of a failed batch gets the same error
//
// Batches run strictly one at a time per scheduler. Timers come from an
// injected clockwork.Clock so scheduling is deterministic in tests.
package batch
