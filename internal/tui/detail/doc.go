// Package detail provides lazy loading and error recovery for TUI detail views.
//
// The article detail view shows the selected article immediately and loads
// related articles on demand. Key features:
//   - Lazy loading: related articles are fetched only when the view opens
//   - Async loading with an immediate loading state
//   - Inline error recovery with a keyboard retry ('r' key)
//   - Results for a different article are ignored, so fast navigation never
//     shows stale data
package detail
