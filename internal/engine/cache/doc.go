// Package cache provides an in-memory response cache with TTL expiration and an
// LRU size bound.
//
// A Store is constructed explicitly and owned by one component (typically a
// batch.Scheduler); there is no package-level cache state. Key features:
//   - Per-entry expiry; an entry is never returned once the clock is past ExpiresAt
//   - Lazy purge on read plus an optional janitor goroutine (Start/Close)
//   - LRU eviction once MaxEntries is reached (hashicorp/golang-lru simplelru)
//   - SHA256-based keys for structured request parameters (GenerateKey)
//
// Time comes from an injected clockwork.Clock so expiry is deterministic in tests.
package cache
