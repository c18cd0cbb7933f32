package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidKeyParams is returned when key parameters lack an operation.
var ErrInvalidKeyParams = errors.New("cache key params require an operation")

// KeyParams are the structured request parameters a cache key is derived from.
// Two params that differ only in case, surrounding whitespace, or ordering of
// tags and filters produce the same key.
type KeyParams struct {
	Operation  string
	Resource   string
	Tags       []string
	Filters    map[string]string
	Pagination *PaginationKeyParams
}

// PaginationKeyParams carries the paging part of a request.
type PaginationKeyParams struct {
	Page      int
	PageSize  int
	Limit     int
	Offset    int
	SortField string
	SortOrder string
}

type normalizedKey struct {
	Operation  string               `json:"op"`
	Resource   string               `json:"res,omitempty"`
	Tags       []string             `json:"tags,omitempty"`
	Filters    [][2]string          `json:"filters,omitempty"`
	Pagination *PaginationKeyParams `json:"page,omitempty"`
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// GenerateKey returns the hex SHA256 of the normalized params.
func GenerateKey(p KeyParams) (string, error) {
	op := normalize(p.Operation)
	if op == "" {
		return "", ErrInvalidKeyParams
	}

	n := normalizedKey{
		Operation: op,
		Resource:  normalize(p.Resource),
	}

	if len(p.Tags) > 0 {
		n.Tags = make([]string, 0, len(p.Tags))
		for _, t := range p.Tags {
			n.Tags = append(n.Tags, normalize(t))
		}
		sort.Strings(n.Tags)
	}

	if len(p.Filters) > 0 {
		n.Filters = make([][2]string, 0, len(p.Filters))
		for k, v := range p.Filters {
			n.Filters = append(n.Filters, [2]string{normalize(k), strings.TrimSpace(v)})
		}
		sort.Slice(n.Filters, func(i, j int) bool {
			return n.Filters[i][0] < n.Filters[j][0]
		})
	}

	if p.Pagination != nil {
		pg := *p.Pagination
		pg.SortField = normalize(pg.SortField)
		pg.SortOrder = normalize(pg.SortOrder)
		n.Pagination = &pg
	}

	data, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("encoding cache key params: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// GenerateSimpleKey joins parts with ':' and hashes the result.
func GenerateSimpleKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(sum[:])
}

// KeyParamsBuilder assembles KeyParams fluently.
type KeyParamsBuilder struct {
	params KeyParams
}

// NewKeyParamsBuilder starts a builder for the given operation and resource.
func NewKeyParamsBuilder(operation, resource string) *KeyParamsBuilder {
	return &KeyParamsBuilder{params: KeyParams{Operation: operation, Resource: resource}}
}

// WithTags appends tags.
func (b *KeyParamsBuilder) WithTags(tags ...string) *KeyParamsBuilder {
	b.params.Tags = append(b.params.Tags, tags...)
	return b
}

// WithFilter sets one filter.
func (b *KeyParamsBuilder) WithFilter(key, value string) *KeyParamsBuilder {
	if b.params.Filters == nil {
		b.params.Filters = make(map[string]string)
	}
	b.params.Filters[key] = value
	return b
}

// WithPagination sets the paging parameters.
func (b *KeyParamsBuilder) WithPagination(p PaginationKeyParams) *KeyParamsBuilder {
	b.params.Pagination = &p
	return b
}

// BuildParams returns the assembled params.
func (b *KeyParamsBuilder) BuildParams() KeyParams {
	return b.params
}

// Build generates the cache key.
func (b *KeyParamsBuilder) Build() (string, error) {
	return GenerateKey(b.params)
}
