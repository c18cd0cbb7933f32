package content

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/cloudseek/cloudseek/internal/cli/pagination"
)

// ErrUnknownFilter is returned for a filter key the repository cannot apply.
var ErrUnknownFilter = errors.New("unknown filter")

// Repository is a read-only, in-memory article catalogue.
type Repository struct {
	articles []Article
	sorter   *pagination.FieldSorter[Article]
}

// NewRepository wraps articles. The slice is copied.
func NewRepository(articles []Article) *Repository {
	return &Repository{
		articles: slices.Clone(articles),
		sorter:   newArticleSorter(),
	}
}

func newArticleSorter() *pagination.FieldSorter[Article] {
	return pagination.NewFieldSorter(map[string]pagination.LessFunc[Article]{
		"title":     func(a, b Article) bool { return a.Title < b.Title },
		"author":    func(a, b Article) bool { return a.Author < b.Author },
		"category":  func(a, b Article) bool { return a.Category < b.Category },
		"published": func(a, b Article) bool { return a.PublishedAt.Before(b.PublishedAt) },
		"read_time": func(a, b Article) bool { return a.ReadMinutes < b.ReadMinutes },
	})
}

// Len returns the catalogue size.
func (r *Repository) Len() int {
	return len(r.articles)
}

// SortFields lists the fields a query may sort by.
func (r *Repository) SortFields() []string {
	return r.sorter.ValidFields()
}

// CheckParams validates params and rejects filters or sort fields the
// repository does not understand.
func (r *Repository) CheckParams(p pagination.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	for k := range p.Filters {
		switch strings.ToLower(strings.TrimSpace(k)) {
		case FilterCategory, FilterAuthor, FilterQuery:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownFilter, k)
		}
	}
	if p.SortField != "" && !r.sorter.IsValidField(p.SortField) {
		return fmt.Errorf("%w: %q (valid: %v)", pagination.ErrInvalidSortField, p.SortField, r.SortFields())
	}
	return nil
}

// Query filters, sorts and pages the catalogue.
func (r *Repository) Query(p pagination.Params) (Page, error) {
	if err := r.CheckParams(p); err != nil {
		return Page{}, err
	}

	matched := make([]Article, 0, len(r.articles))
	for _, a := range r.articles {
		if matches(a, p.Filters) {
			matched = append(matched, a)
		}
	}

	sorted, err := r.sorter.Sort(matched, p.SortField, strings.ToLower(p.SortOrder))
	if err != nil {
		return Page{}, err
	}

	return Page{
		Items: slices.Clone(pagination.Apply(p, sorted)),
		Meta:  pagination.NewMeta(p, len(sorted)),
	}, nil
}

func matches(a Article, filters map[string]string) bool {
	for k, v := range filters {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(k)) {
		case FilterCategory:
			if !strings.EqualFold(a.Category, v) {
				return false
			}
		case FilterAuthor:
			if !strings.EqualFold(a.Author, v) {
				return false
			}
		case FilterQuery:
			q := strings.ToLower(v)
			if !strings.Contains(strings.ToLower(a.Title), q) && !strings.Contains(strings.ToLower(a.Summary), q) {
				return false
			}
		}
	}
	return true
}
