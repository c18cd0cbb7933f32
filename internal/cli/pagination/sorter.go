package pagination

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrInvalidSortField is returned for a field the sorter does not know.
var ErrInvalidSortField = errors.New("invalid sort field")

// LessFunc reports whether a sorts before b in ascending order.
type LessFunc[T any] func(a, b T) bool

// FieldSorter sorts items by a named field.
type FieldSorter[T any] struct {
	fields map[string]LessFunc[T]
}

// NewFieldSorter creates a sorter with the given field comparators.
func NewFieldSorter[T any](fields map[string]LessFunc[T]) *FieldSorter[T] {
	return &FieldSorter[T]{fields: fields}
}

// IsValidField checks if the field is valid for sorting.
func (s *FieldSorter[T]) IsValidField(field string) bool {
	_, ok := s.fields[field]
	return ok
}

// ValidFields returns all valid sort fields in alphabetical order.
func (s *FieldSorter[T]) ValidFields() []string {
	fields := make([]string, 0, len(s.fields))
	for field := range s.fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Sort returns a sorted copy of items. The sort is stable in both orders. An
// empty field returns an unchanged copy; an unknown field is an error.
func (s *FieldSorter[T]) Sort(items []T, field, order string) ([]T, error) {
	sorted := slices.Clone(items)
	if field == "" {
		return sorted, nil
	}

	less, ok := s.fields[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: %v)", ErrInvalidSortField, field, s.ValidFields())
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if order == SortOrderDesc {
			return less(sorted[j], sorted[i])
		}
		return less(sorted[i], sorted[j])
	})
	return sorted, nil
}
