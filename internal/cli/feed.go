package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/cloudseek/cloudseek/internal/cli/pagination"
	"github.com/cloudseek/cloudseek/internal/config"
	"github.com/cloudseek/cloudseek/internal/content"
	"github.com/cloudseek/cloudseek/internal/engine/batch"
	"github.com/cloudseek/cloudseek/internal/logging"
)

// Output formats.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// tabPadding is the column padding of tabular output.
const tabPadding = 2

// partialFailureExitCode is returned when some, but not all, page requests fail.
const partialFailureExitCode = 2

var (
	errInvalidFlag  = errors.New("invalid flag value")
	errAllPagesFail = errors.New("all page requests failed")
)

type feedFlags struct {
	pages    int
	pageSize int
	repeat   int
	category string
	author   string
	query    string
	sort     string
	priority string
	output   string
	noStats  bool
}

// pageResult is the outcome of one page request.
type pageResult struct {
	Params pagination.Params
	Page   content.Page
	Err    error
}

// NewFeedCmd creates the feed command. It requests several pages at once so
// the scheduler can batch, deduplicate and cache them, then prints the pages
// and the scheduler counters.
func NewFeedCmd() *cobra.Command {
	var flags feedFlags

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Fetch article pages through the batch scheduler",
		Long: `Requests pages 1..N of an article query concurrently. Requests arriving
within the scheduler's max_wait window are sent upstream as one batch,
identical requests share one upstream slot, and answered pages are cached
for cache_ttl.

Use --repeat to run the same requests again and watch them hit the cache.`,
		Example: `  # First three pages, newest first
  cloudseek feed --pages 3

  # FinOps articles sorted by title, as JSON
  cloudseek feed --category finops --sort title:asc --output json

  # Search, twice, to show cache hits
  cloudseek feed --query kubernetes --repeat 2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFeed(cmd, flags)
		},
	}

	cmd.Flags().IntVar(&flags.pages, "pages", 3, "number of pages to request concurrently")
	cmd.Flags().IntVar(&flags.pageSize, "page-size", 0, "articles per page (0 = content.page_size from config)")
	cmd.Flags().IntVar(&flags.repeat, "repeat", 1, "number of times to issue the same requests")
	cmd.Flags().StringVar(&flags.category, "category", "",
		"filter by category: "+strings.Join(content.Categories(), ", "))
	cmd.Flags().StringVar(&flags.author, "author", "", "filter by author")
	cmd.Flags().StringVar(&flags.query, "query", "", "search titles and summaries")
	cmd.Flags().StringVar(&flags.sort, "sort", "published:desc", "sort as field:order (published, title, author, category, read_time)")
	cmd.Flags().StringVar(&flags.priority, "priority", "medium", "request priority: high, medium, low")
	cmd.Flags().StringVarP(&flags.output, "output", "o", outputTable, "output format: table, json, yaml")
	cmd.Flags().BoolVar(&flags.noStats, "no-stats", false, "do not print scheduler statistics")

	return cmd
}

// buildPageParams returns the requests for pages 1..flags.pages.
func buildPageParams(flags feedFlags, defaultPageSize int) ([]pagination.Params, error) {
	if flags.pages < 1 {
		return nil, fmt.Errorf("%w: --pages must be >= 1, got %d", errInvalidFlag, flags.pages)
	}
	size := flags.pageSize
	if size == 0 {
		size = defaultPageSize
	}

	var field, order string
	if flags.sort != "" {
		var err error
		field, order, err = pagination.ParseSort(flags.sort)
		if err != nil {
			return nil, fmt.Errorf("--sort: %w", err)
		}
	}

	params := make([]pagination.Params, flags.pages)
	for i := range params {
		p := pagination.NewPageParams(i+1, size)
		if field != "" {
			p = p.WithSort(field, order)
		}
		if flags.category != "" {
			p = p.WithFilter(content.FilterCategory, flags.category)
		}
		if flags.author != "" {
			p = p.WithFilter(content.FilterAuthor, flags.author)
		}
		if flags.query != "" {
			p = p.WithFilter(content.FilterQuery, flags.query)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidFlag, err)
		}
		params[i] = p
	}
	return params, nil
}

func validateFeedFlags(flags feedFlags) (batch.Priority, error) {
	if flags.repeat < 1 {
		return 0, fmt.Errorf("%w: --repeat must be >= 1, got %d", errInvalidFlag, flags.repeat)
	}
	switch flags.output {
	case outputTable, outputJSON, outputYAML:
	default:
		return 0, fmt.Errorf("%w: --output must be table, json or yaml, got %q", errInvalidFlag, flags.output)
	}
	prio, err := batch.ParsePriority(flags.priority)
	if err != nil {
		return 0, fmt.Errorf("--priority: %w", err)
	}
	return prio, nil
}

func runFeed(cmd *cobra.Command, flags feedFlags) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)
	cfg := config.GetGlobalConfig()

	prio, err := validateFeedFlags(flags)
	if err != nil {
		return err
	}
	params, err := buildPageParams(flags, cfg.Content.PageSize)
	if err != nil {
		return err
	}

	feed, _, err := newFeed(ctx, cfg)
	if err != nil {
		return err
	}
	defer feed.Close()

	var results []pageResult
	for round := 1; round <= flags.repeat; round++ {
		results = fetchPages(ctx, feed, params, prio)
		log.Debug().Int("round", round).Int("pages", len(results)).Msg("feed round complete")
	}

	var errs []error
	var ok []pageResult
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("page %d: %w", r.Params.Page, r.Err))
			continue
		}
		ok = append(ok, r)
	}
	if len(ok) == 0 {
		return fmt.Errorf("%w: %w", errAllPagesFail, errors.Join(errs...))
	}

	out := cmd.OutOrStdout()
	if err := renderPages(out, flags.output, ok); err != nil {
		return err
	}

	if !flags.noStats {
		statsOut := out
		if flags.output != outputTable {
			statsOut = cmd.ErrOrStderr()
		}
		renderStats(statsOut, feed.Stats())
	}

	if len(errs) > 0 {
		for _, e := range errs {
			cmd.PrintErrf("Error: %v\n", e)
		}
		return &ExitError{
			Code: partialFailureExitCode,
			Err:  fmt.Errorf("%d of %d page requests failed", len(errs), len(results)),
		}
	}
	return nil
}

// fetchPages requests all params concurrently through feed. Failures are
// recorded per page and never cancel the other requests.
func fetchPages(ctx context.Context, feed *content.Feed, params []pagination.Params, prio batch.Priority) []pageResult {
	results := make([]pageResult, len(params))

	g, gCtx := errgroup.WithContext(ctx)
	for i, p := range params {
		g.Go(func() error {
			page, err := feed.Page(gCtx, p, prio)
			results[i] = pageResult{Params: p, Page: page, Err: err}
			// Always return nil - one failed page must not cancel the others
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func renderPages(w io.Writer, format string, results []pageResult) error {
	pages := make([]content.Page, len(results))
	for i, r := range results {
		pages[i] = r.Page
	}

	switch format {
	case outputJSON:
		data, err := json.MarshalIndent(pages, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(tabPadding)
		if err := enc.Encode(pages); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		return enc.Close()
	default:
		return renderPageTable(w, results)
	}
}

func renderPageTable(w io.Writer, results []pageResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tSLUG\tTITLE\tAUTHOR\tPUBLISHED\tMIN")
	for _, r := range results {
		for _, a := range r.Page.Items {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n",
				r.Params.Page, a.Slug, a.Title, a.Author, a.PublishedAt.Format("2006-01-02"), a.ReadMinutes)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(results) > 0 {
		meta := results[len(results)-1].Page.Meta
		fmt.Fprintf(w, "\nPages %d-%d of %d (%d articles)\n",
			results[0].Params.Page, results[len(results)-1].Params.Page, meta.TotalPages, meta.TotalItems)
	}
	return nil
}

// renderStats prints scheduler counters with locale-aware number formatting.
func renderStats(w io.Writer, s batch.Stats) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "Scheduler: %d requests, %d batches (avg %.1f, max %d), %d failed\n",
		s.Submitted, s.Batches, s.AverageBatchSize(), s.MaxBatchSize, s.FailedBatches)
	p.Fprintf(w, "Cache: %d hits (%.0f%%), %d dedup joins\n",
		s.CacheHits, s.CacheHitRatio()*100, s.DedupJoins) //nolint:mnd // Percentage.
}
