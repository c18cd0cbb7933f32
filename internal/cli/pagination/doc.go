// Package pagination provides the structured page, sort and filter parameters
// callers submit to the batch scheduler, and the metadata describing a page
// of results.
//
// This package contains:
//   - Params: page- or offset-based paging, sort and filters, with validation
//   - Meta: response metadata for paginated results
//   - FieldSorter: generic stable sorting by a named field
//
// Params.CacheKey derives the scheduler cache and deduplication key, so two
// requests for the same page share one fetch.
package pagination
