package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudseek/cloudseek/internal/cli/pagination"
	"github.com/cloudseek/cloudseek/internal/engine/batch"
)

func TestGenerateArticles(t *testing.T) {
	a := GenerateArticles(50)
	b := GenerateArticles(50)
	require.Len(t, a, 50)
	assert.Equal(t, a, b, "generation is deterministic")
	assert.Empty(t, GenerateArticles(0))

	slugs := make(map[string]bool)
	for i, art := range a {
		assert.False(t, slugs[art.Slug], "duplicate slug %s", art.Slug)
		slugs[art.Slug] = true
		assert.Equal(t, Categories()[i%5], art.Category)
		assert.NotEmpty(t, art.Title)
		assert.GreaterOrEqual(t, art.ReadMinutes, 3)
		if i > 0 {
			assert.True(t, art.PublishedAt.Before(a[i-1].PublishedAt), "newest first")
		}
	}
}

func TestRepository_Query(t *testing.T) {
	repo := NewRepository(GenerateArticles(100))

	tests := []struct {
		name      string
		params    pagination.Params
		wantItems int
		wantTotal int
		wantErr   error
	}{
		{name: "first page", params: pagination.NewPageParams(1, 10), wantItems: 10, wantTotal: 100},
		{name: "last page", params: pagination.NewPageParams(10, 10), wantItems: 10, wantTotal: 100},
		{name: "past the end", params: pagination.NewPageParams(11, 10), wantItems: 0, wantTotal: 100},
		{
			name:      "category filter",
			params:    pagination.NewPageParams(1, 50).WithFilter(FilterCategory, "Security"),
			wantItems: 20,
			wantTotal: 20,
		},
		{
			name:      "query filter",
			params:    pagination.NewPageParams(1, 100).WithFilter(FilterQuery, "KUBERNETES"),
			wantItems: 4,
			wantTotal: 4,
		},
		{
			name:      "blank filter value ignored",
			params:    pagination.Params{Limit: 5, Filters: map[string]string{FilterAuthor: " "}},
			wantItems: 5,
			wantTotal: 100,
		},
		{
			name:    "unknown filter",
			params:  pagination.NewPageParams(1, 10).WithFilter("color", "red"),
			wantErr: ErrUnknownFilter,
		},
		{
			name:    "unknown sort field",
			params:  pagination.NewPageParams(1, 10).WithSort("likes", "desc"),
			wantErr: pagination.ErrInvalidSortField,
		},
		{
			name:    "invalid paging",
			params:  pagination.Params{Page: 1},
			wantErr: pagination.ErrPageWithoutPageSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.Query(tt.params)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, page.Items, tt.wantItems)
			assert.Equal(t, tt.wantTotal, page.Meta.TotalItems)
		})
	}
}

func TestRepository_QuerySorts(t *testing.T) {
	repo := NewRepository(GenerateArticles(30))

	page, err := repo.Query(pagination.Params{}.WithSort("published", "asc"))
	require.NoError(t, err)
	require.Len(t, page.Items, 30)
	assert.Equal(t, "company-029", page.Items[0].Slug)

	page, err = repo.Query(pagination.Params{}.WithSort("read_time", "desc"))
	require.NoError(t, err)
	for i := 1; i < len(page.Items); i++ {
		assert.GreaterOrEqual(t, page.Items[i-1].ReadMinutes, page.Items[i].ReadMinutes)
	}

	assert.Contains(t, repo.SortFields(), "title")
}

func TestSource_FetchPages(t *testing.T) {
	src := NewSource(NewRepository(GenerateArticles(40)), DefaultConfig())
	ctx := context.Background()

	pages, err := src.FetchPages(ctx, []pagination.Params{
		pagination.NewPageParams(2, 5),
		pagination.NewPageParams(1, 5),
	})
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 2, pages[0].Meta.CurrentPage)
	assert.Equal(t, 1, pages[1].Meta.CurrentPage)
	assert.Equal(t, 1, src.Calls())

	t.Run("injected failure fails the call", func(t *testing.T) {
		boom := errors.New("boom")
		src.FailNext(boom)
		_, err := src.FetchPages(ctx, []pagination.Params{pagination.NewPageParams(1, 5)})
		require.ErrorIs(t, err, boom)

		_, err = src.FetchPages(ctx, []pagination.Params{pagination.NewPageParams(1, 5)})
		require.NoError(t, err, "injected errors are consumed")
	})

	t.Run("one bad params fails the call", func(t *testing.T) {
		_, err := src.FetchPages(ctx, []pagination.Params{
			pagination.NewPageParams(1, 5),
			pagination.NewPageParams(1, 5).WithFilter("color", "red"),
		})
		require.ErrorIs(t, err, ErrUnknownFilter)
	})
}

func TestSource_FailEvery(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FailEvery = 2
	src := NewSource(NewRepository(GenerateArticles(10)), cfg)
	params := []pagination.Params{pagination.NewPageParams(1, 5)}

	_, err := src.FetchPages(context.Background(), params)
	require.NoError(t, err)
	_, err = src.FetchPages(context.Background(), params)
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	_, err = src.FetchPages(context.Background(), params)
	require.NoError(t, err)
}

func TestSource_Latency(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cfg := DefaultConfig()
	cfg.Latency = 200 * time.Millisecond
	src := NewSource(NewRepository(GenerateArticles(10)), cfg, WithClock(clock))

	done := make(chan error, 1)
	go func() {
		_, err := src.FetchPages(context.Background(), []pagination.Params{pagination.NewPageParams(1, 5)})
		done <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	select {
	case <-done:
		t.Fatal("returned before the simulated latency elapsed")
	default:
	}

	clock.Advance(200 * time.Millisecond)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not complete")
	}
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero page size", mutate: func(c *Config) { c.PageSize = 0 }},
		{name: "zero attempts", mutate: func(c *Config) { c.MaxAttempts = 0 }},
		{name: "negative backoff", mutate: func(c *Config) { c.RetryBackoff = -time.Second }},
		{name: "negative latency", mutate: func(c *Config) { c.Latency = -time.Second }},
		{name: "negative fail every", mutate: func(c *Config) { c.FailEvery = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func immediateSchedulerConfig() batch.Config {
	cfg := batch.DefaultConfig()
	cfg.MaxWaitTime = 0
	cfg.CacheCleanupInterval = 0
	return cfg
}

func newTestFeed(t *testing.T, cfg Config) (*Feed, *Source, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	src := NewSource(NewRepository(GenerateArticles(60)), cfg, WithClock(clock))
	feed, err := NewFeed(src, cfg, immediateSchedulerConfig(), WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(feed.Close)
	return feed, src, clock
}

func TestFeed_PageAndCache(t *testing.T) {
	feed, src, _ := newTestFeed(t, DefaultConfig())
	ctx := context.Background()
	params := pagination.NewPageParams(1, 10).WithFilter(FilterCategory, CategoryFinOps)

	page, err := feed.Page(ctx, params, batch.PriorityHigh)
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, 12, page.Meta.TotalItems)

	again, err := feed.Page(ctx, params, batch.PriorityLow)
	require.NoError(t, err)
	assert.Equal(t, page, again)
	assert.Equal(t, 1, src.Calls(), "second request served from cache")
	assert.Equal(t, uint64(1), feed.Stats().CacheHits)

	feed.Invalidate(params)
	_, err = feed.Page(ctx, params, batch.PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, 2, src.Calls())
}

func TestFeed_RetriesFailedBatches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryBackoff = 0
	feed, src, _ := newTestFeed(t, cfg)

	src.FailNext(ErrUpstreamUnavailable)
	page, err := feed.Page(context.Background(), pagination.NewPageParams(1, 5), batch.PriorityMedium)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 2, src.Calls())
	assert.Equal(t, uint64(1), feed.Stats().FailedBatches)
}

func TestFeed_GivesUpAfterMaxAttempts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryBackoff = 0
	cfg.MaxAttempts = 2
	feed, src, _ := newTestFeed(t, cfg)

	src.FailNext(ErrUpstreamUnavailable)
	src.FailNext(ErrUpstreamUnavailable)
	_, err := feed.Page(context.Background(), pagination.NewPageParams(1, 5), batch.PriorityMedium)
	require.ErrorIs(t, err, ErrUpstreamUnavailable)

	var batchErr *batch.BatchProcessingError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 2, src.Calls())
}

func TestFeed_BackoffUsesClock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryBackoff = time.Second
	feed, src, clock := newTestFeed(t, cfg)

	src.FailNext(ErrUpstreamUnavailable)
	done := make(chan error, 1)
	go func() {
		_, err := feed.Page(context.Background(), pagination.NewPageParams(2, 5), batch.PriorityMedium)
		done <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1), "feed waits for the backoff")
	assert.Equal(t, 1, src.Calls())

	clock.Advance(time.Second)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not complete")
	}
	assert.Equal(t, 2, src.Calls())
}

func TestFeed_InvalidParamsNeverReachUpstream(t *testing.T) {
	feed, src, _ := newTestFeed(t, DefaultConfig())

	_, err := feed.Page(context.Background(), pagination.NewPageParams(1, 5).WithFilter("color", "red"), batch.PriorityMedium)
	require.ErrorIs(t, err, ErrUnknownFilter)
	assert.Equal(t, 0, src.Calls())
}

func TestFeed_ClosedIsNotRetried(t *testing.T) {
	feed, src, _ := newTestFeed(t, DefaultConfig())
	feed.Close()

	_, err := feed.Page(context.Background(), pagination.NewPageParams(1, 5), batch.PriorityMedium)
	require.ErrorIs(t, err, batch.ErrSchedulerClosed)
	assert.Equal(t, 0, src.Calls())
}

func TestPageKey(t *testing.T) {
	a := PageKey(pagination.NewPageParams(1, 10))
	b := PageKey(pagination.NewPageParams(1, 10))
	c := PageKey(pagination.NewPageParams(2, 10))
	assert.NotEmpty(t, a)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
