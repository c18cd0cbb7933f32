// Package content serves the CloudSeek article catalogue in pages.
//
// A Source answers batches of pagination.Params and is the process function
// behind the feed's batch scheduler. Feed adds caller-side retry on top of the
// scheduler, which never retries on its own.
package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloudseek/cloudseek/internal/cli/pagination"
)

// Article categories.
const (
	CategoryEngineering = "engineering"
	CategorySecurity    = "security"
	CategoryFinOps      = "finops"
	CategoryProduct     = "product"
	CategoryCompany     = "company"
)

// Filter keys understood by the repository.
const (
	FilterCategory = "category"
	FilterAuthor   = "author"
	FilterQuery    = "q"
)

// Article is one blog post.
type Article struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Author      string    `json:"author"`
	Summary     string    `json:"summary"`
	PublishedAt time.Time `json:"published_at"`
	ReadMinutes int       `json:"read_minutes"`
}

// Page is one page of articles plus its pagination metadata.
type Page struct {
	Items []Article       `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

// Categories returns the known categories in display order.
func Categories() []string {
	return []string{CategoryEngineering, CategorySecurity, CategoryFinOps, CategoryProduct, CategoryCompany}
}

var (
	authors = []string{"Ana Ruiz", "Kofi Mensah", "Li Wei", "Priya Nair", "Sam Okafor", "Tomas Berg"}

	topics = map[string][]string{
		CategoryEngineering: {"Kubernetes", "Terraform", "service meshes", "edge caching", "event pipelines", "Postgres"},
		CategorySecurity:    {"IAM drift", "secret rotation", "zero trust", "SBOMs", "audit trails", "key management"},
		CategoryFinOps:      {"rightsizing", "spot capacity", "commitment plans", "egress costs", "tag hygiene", "showback"},
		CategoryProduct:     {"the CloudSeek console", "saved views", "the graph explorer", "alert routing", "team spaces", "the API"},
		CategoryCompany:     {"our roadmap", "remote onboarding", "the support rotation", "hiring", "open source", "customer week"},
	}

	patterns = []string{
		"A practical guide to %s",
		"What we learned running %s at scale",
		"%s without the headaches",
		"Five mistakes teams make with %s",
		"Inside %s",
	}
)

// catalogueEpoch anchors generated publish dates.
var catalogueEpoch = time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC)

// GenerateArticles returns n deterministic articles, newest first.
func GenerateArticles(n int) []Article {
	cats := Categories()
	out := make([]Article, 0, max(n, 0))
	for i := range n {
		cat := cats[i%len(cats)]
		topic := topics[cat][(i/len(cats))%len(topics[cat])]
		pattern := patterns[(i/7)%len(patterns)]
		title := fmt.Sprintf(pattern, topic)
		title = strings.ToUpper(title[:1]) + title[1:]

		out = append(out, Article{
			Slug:        fmt.Sprintf("%s-%03d", cat, i),
			Title:       title,
			Category:    cat,
			Author:      authors[(i*5+i/3)%len(authors)],
			Summary:     fmt.Sprintf("Notes from the CloudSeek %s team on %s.", cat, topic),
			PublishedAt: catalogueEpoch.Add(-time.Duration(i) * 36 * time.Hour),
			ReadMinutes: 3 + (i*7)%12,
		})
	}
	return out
}
