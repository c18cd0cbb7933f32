package pagination

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cloudseek/cloudseek/internal/engine/cache"
)

// Pagination defaults and validation limits.
const (
	DefaultLimit     = 100
	MaxLimit         = 10000
	DefaultPageSize  = 10
	MaxPageSize      = 1000
	DefaultPage      = 1
	DefaultSortField = ""
	DefaultSortOrder = "asc"
	SortOrderAsc     = "asc"
	SortOrderDesc    = "desc"
)

// Common validation errors.
var (
	ErrNegativeValue        = errors.New("pagination values cannot be negative")
	ErrInvalidLimit         = fmt.Errorf("limit must be at most %d", MaxLimit)
	ErrInvalidPageSize      = fmt.Errorf("page-size must be at most %d", MaxPageSize)
	ErrMixedPaginationModes = errors.New("page and offset parameters are mutually exclusive")
	ErrPageSizeWithoutPage  = errors.New("page must be specified when using page-size")
	ErrPageWithoutPageSize  = errors.New("page-size must be specified when using page")
	ErrInvalidSortOrder     = errors.New("sort order must be 'asc' or 'desc'")
	ErrInvalidSortFormat    = errors.New("invalid sort format: use 'field' or 'field:order' (e.g., 'published:desc')")
	ErrEmptySortField       = errors.New("sort field cannot be empty")
	ErrEmptyFilterKey       = errors.New("filter key cannot be empty")
)

// Params describes one paginated request. Two modes are supported and are
// mutually exclusive:
//   - Offset-based: Limit and Offset
//   - Page-based: Page and PageSize
type Params struct {
	// Page is the 1-based page number (page-based mode).
	Page int

	// PageSize is the number of results per page (page-based mode).
	PageSize int

	// Limit is the maximum number of results (offset-based mode). Zero means
	// no limit.
	Limit int

	// Offset is the number of results to skip (offset-based mode).
	Offset int

	// SortField names the field to sort by; empty keeps source order.
	SortField string

	// SortOrder is "asc" or "desc".
	SortOrder string

	// Filters narrow the result set (e.g. "category" -> "engineering").
	Filters map[string]string
}

// NewPageParams returns page-based params for page with the given size.
func NewPageParams(page, pageSize int) Params {
	return Params{
		Page:      page,
		PageSize:  pageSize,
		SortOrder: DefaultSortOrder,
	}
}

// WithFilter returns a copy of p with filter key set to value.
func (p Params) WithFilter(key, value string) Params {
	filters := make(map[string]string, len(p.Filters)+1)
	for k, v := range p.Filters {
		filters[k] = v
	}
	filters[key] = value
	p.Filters = filters
	return p
}

// WithSort returns a copy of p sorted by field in order.
func (p Params) WithSort(field, order string) Params {
	p.SortField = field
	p.SortOrder = order
	return p
}

// Validate checks that the params are in range and use a single mode.
func (p Params) Validate() error {
	if p.Limit < 0 || p.Offset < 0 || p.Page < 0 || p.PageSize < 0 {
		return ErrNegativeValue
	}
	if p.Limit > MaxLimit {
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, p.Limit)
	}
	if p.PageSize > MaxPageSize {
		return fmt.Errorf("%w: got %d", ErrInvalidPageSize, p.PageSize)
	}
	if p.Page > 0 && p.Offset > 0 {
		return ErrMixedPaginationModes
	}
	if p.Page == 0 && p.PageSize > 0 {
		return ErrPageSizeWithoutPage
	}
	if p.PageSize == 0 && p.Page > 0 {
		return ErrPageWithoutPageSize
	}
	if p.SortOrder != "" && p.SortOrder != SortOrderAsc && p.SortOrder != SortOrderDesc {
		return fmt.Errorf("%w: got %q", ErrInvalidSortOrder, p.SortOrder)
	}
	for k := range p.Filters {
		if strings.TrimSpace(k) == "" {
			return ErrEmptyFilterKey
		}
	}
	return nil
}

// sortPartsMax is the maximum number of parts in a sort string (field:order).
const sortPartsMax = 2

// ParseSort parses a sort string in the format "field" or "field:order".
// Examples: "published", "title:desc".
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func ParseSort(sortStr string) (field, order string, err error) {
	if sortStr == "" {
		return DefaultSortField, DefaultSortOrder, nil
	}

	parts := strings.Split(sortStr, ":")
	switch len(parts) {
	case 1:
		field = strings.TrimSpace(parts[0])
		order = DefaultSortOrder
	case sortPartsMax:
		field = strings.TrimSpace(parts[0])
		order = strings.ToLower(strings.TrimSpace(parts[1]))
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSortFormat, sortStr)
	}

	if field == "" {
		return "", "", ErrEmptySortField
	}

	if order != SortOrderAsc && order != SortOrderDesc {
		return "", "", fmt.Errorf("%w: got %q", ErrInvalidSortOrder, order)
	}

	return field, order, nil
}

// IsPageBased returns true if page-based pagination is active.
func (p Params) IsPageBased() bool {
	return p.Page > 0
}

// CalculateOffsetLimit returns the effective offset and limit for either mode.
// A zero limit means "until the end".
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func (p Params) CalculateOffsetLimit() (offset, limit int) {
	if p.IsPageBased() {
		return (p.Page - 1) * p.PageSize, p.PageSize
	}
	return p.Offset, p.Limit
}

// Apply returns the window of items selected by p. Out-of-range offsets yield
// an empty slice.
func Apply[T any](p Params, items []T) []T {
	offset, limit := p.CalculateOffsetLimit()
	if offset >= len(items) {
		return []T{}
	}

	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// CacheKey derives a stable cache key for operation and these params.
// Filter and sort spellings that differ only in case or surrounding space
// map to the same key.
func (p Params) CacheKey(operation string) (string, error) {
	offset, limit := p.CalculateOffsetLimit()
	b := cache.NewKeyParamsBuilder(operation, "").
		WithPagination(cache.PaginationKeyParams{
			Page:      p.Page,
			PageSize:  p.PageSize,
			Limit:     limit,
			Offset:    offset,
			SortField: p.SortField,
			SortOrder: p.effectiveSortOrder(),
		})
	for k, v := range p.Filters {
		b.WithFilter(k, v)
	}
	return b.Build()
}

func (p Params) effectiveSortOrder() string {
	if p.SortField == "" {
		return ""
	}
	if p.SortOrder == "" {
		return DefaultSortOrder
	}
	return strings.ToLower(p.SortOrder)
}
