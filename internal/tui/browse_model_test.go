package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudseek/cloudseek/internal/content"
	"github.com/cloudseek/cloudseek/internal/engine/batch"
	"github.com/cloudseek/cloudseek/internal/logging"
	"github.com/cloudseek/cloudseek/internal/tui/detail"
	listview "github.com/cloudseek/cloudseek/internal/tui/list"
)

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// newTestBrowser returns a browser over 60 articles with single-attempt,
// immediately dispatched page requests.
func newTestBrowser(t *testing.T) (BrowseModel, *content.Source) {
	t.Helper()
	clock := clockwork.NewFakeClock()

	cfg := content.DefaultConfig()
	cfg.MaxAttempts = 1
	src := content.NewSource(content.NewRepository(content.GenerateArticles(60)), cfg, content.WithClock(clock))

	schedCfg := batch.DefaultConfig()
	schedCfg.MaxWaitTime = 0
	schedCfg.CacheCleanupInterval = 0
	feed, err := content.NewFeed(src, cfg, schedCfg, content.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(feed.Close)

	opts := DefaultBrowseOptions()
	opts.Clock = clock
	m, err := NewBrowseModel(context.Background(), feed, opts)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, src
}

func update(t *testing.T, m BrowseModel, msg tea.Msg) (BrowseModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	bm, ok := updated.(BrowseModel)
	require.True(t, ok)
	return bm, cmd
}

// loadFirstPage delivers page one of the current query.
func loadFirstPage(t *testing.T, m BrowseModel) BrowseModel {
	t.Helper()
	m, _ = update(t, m, m.fetch(1, batch.PriorityHigh)())
	return m
}

func TestNewBrowseModel(t *testing.T) {
	m, _ := newTestBrowser(t)

	assert.Equal(t, ViewStateLoading, m.State())
	assert.True(t, m.loading)
	assert.NotNil(t, m.Init())
	assert.Contains(t, m.View(), "Loading articles...")

	_, err := NewBrowseModel(context.Background(), nil, DefaultBrowseOptions())
	require.ErrorIs(t, err, ErrNilSource)
}

func TestNewBrowseModel_UsesContextLogger(t *testing.T) {
	var buf strings.Builder
	ctx := logging.WithTrace(context.Background(), zerolog.New(&buf))

	feed, err := content.NewFeed(
		content.NewSource(content.NewRepository(content.GenerateArticles(5)), content.DefaultConfig()),
		content.DefaultConfig(), batch.DefaultConfig(),
	)
	require.NoError(t, err)
	t.Cleanup(feed.Close)

	m, err := NewBrowseModel(ctx, feed, DefaultBrowseOptions())
	require.NoError(t, err)
	t.Cleanup(m.Close)
	assert.Equal(t, ViewStateLoading, m.State())
}

func TestBrowseModel_QueryKeysWhileLoading(t *testing.T) {
	tests := []struct {
		name  string
		key   tea.KeyMsg
		check func(t *testing.T, m BrowseModel)
	}{
		{
			name: "category",
			key:  runeKey("c"),
			check: func(t *testing.T, m BrowseModel) {
				assert.Equal(t, 2, m.category)
			},
		},
		{
			name: "sort",
			key:  runeKey("s"),
			check: func(t *testing.T, m BrowseModel) {
				assert.Equal(t, 1, m.sortIdx)
			},
		},
		{
			name: "refresh",
			key:  runeKey("r"),
			check: func(t *testing.T, m BrowseModel) {
				assert.Equal(t, 1, m.category)
				assert.Equal(t, 0, m.sortIdx)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, src := newTestBrowser(t)
			m = loadFirstPage(t, m)
			m, _ = update(t, m, runeKey("c"))
			require.Equal(t, ViewStateLoading, m.State())
			gen := m.gen
			stale := m.fetch(1, batch.PriorityHigh)()
			calls := src.Calls()

			m, cmd := update(t, m, tt.key)
			require.NotNil(t, cmd)
			assert.Equal(t, gen+1, m.gen)
			tt.check(t, m)

			m, _ = update(t, m, stale)
			assert.Equal(t, ViewStateLoading, m.State(), "page of the previous query is dropped")

			// Each key leaves a query that is not cached, so it goes upstream.
			_ = loadFirstPage(t, m)
			assert.Equal(t, calls+1, src.Calls())
		})
	}
}

func TestBrowseModel_FirstPage(t *testing.T) {
	m, _ := newTestBrowser(t)
	m = loadFirstPage(t, m)

	assert.Equal(t, ViewStateList, m.State())
	assert.False(t, m.loading)
	assert.Len(t, m.Articles(), 20)
	assert.Equal(t, 60, m.Meta().TotalItems)
	assert.True(t, m.Meta().HasNext)

	view := m.View()
	assert.Contains(t, view, "CloudSeek articles")
	assert.Contains(t, view, m.Articles()[0].Title)
	assert.Contains(t, view, "20 of 60")
}

func TestBrowseModel_StalePagesAreDropped(t *testing.T) {
	m, _ := newTestBrowser(t)
	stale := m.fetch(1, batch.PriorityHigh)()

	m, _ = update(t, m, runeKey("c"))
	m, _ = update(t, m, stale)

	assert.Equal(t, ViewStateLoading, m.State())
	assert.Empty(t, m.Articles())
}

func TestBrowseModel_CategoryCycle(t *testing.T) {
	m, _ := newTestBrowser(t)
	m = loadFirstPage(t, m)

	m, cmd := update(t, m, runeKey("c"))
	require.NotNil(t, cmd)
	assert.Equal(t, ViewStateLoading, m.State())
	assert.Empty(t, m.Articles())

	m = loadFirstPage(t, m)
	require.Len(t, m.Articles(), 12)
	for _, a := range m.Articles() {
		assert.Equal(t, content.CategoryEngineering, a.Category)
	}
	assert.Contains(t, m.View(), "category: engineering")
}

func TestBrowseModel_NeedMoreAppendsPages(t *testing.T) {
	m, _ := newTestBrowser(t)
	m = loadFirstPage(t, m)

	m, cmd := update(t, m, listview.NeedMoreMsg{ItemCount: 20})
	require.NotNil(t, cmd)
	assert.True(t, m.loading)

	_, cmd = update(t, m, listview.NeedMoreMsg{ItemCount: 20})
	assert.Nil(t, cmd, "one page load at a time")

	m, _ = update(t, m, m.fetch(2, batch.PriorityMedium)())
	assert.Len(t, m.Articles(), 40)
	assert.Equal(t, 2, m.Meta().CurrentPage)

	m, _ = update(t, m, m.fetch(3, batch.PriorityMedium)())
	assert.Len(t, m.Articles(), 60)
	assert.False(t, m.Meta().HasNext)

	_, cmd = update(t, m, listview.NeedMoreMsg{ItemCount: 60})
	assert.Nil(t, cmd, "nothing left to load")
}

func TestBrowseModel_DetailView(t *testing.T) {
	m, _ := newTestBrowser(t)
	m = loadFirstPage(t, m)
	first := m.Articles()[0]

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewStateDetail, m.State())
	require.NotNil(t, cmd)

	msg := cmd()
	loaded, ok := msg.(detail.RelatedLoadedMsg)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	assert.Len(t, loaded.Related, relatedCount)
	for _, r := range loaded.Related {
		assert.NotEqual(t, first.Slug, r.Slug)
		assert.Equal(t, first.Category, r.Category)
	}

	m, _ = update(t, m, msg)
	assert.Equal(t, detail.StateReady, m.detail.State())
	assert.Contains(t, m.View(), first.Title)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewStateList, m.State())
}

func TestBrowseModel_ErrorAndRetry(t *testing.T) {
	m, src := newTestBrowser(t)
	src.FailNext(errors.New("upstream exploded"))

	m = loadFirstPage(t, m)
	require.Equal(t, ViewStateError, m.State())
	require.Error(t, m.Err())
	assert.Contains(t, m.View(), "upstream exploded")

	m, cmd := update(t, m, runeKey("r"))
	require.NotNil(t, cmd)
	assert.Equal(t, ViewStateLoading, m.State())

	m = loadFirstPage(t, m)
	assert.Equal(t, ViewStateList, m.State())
	assert.NoError(t, m.Err())
}

func TestBrowseModel_SearchFilter(t *testing.T) {
	m, _ := newTestBrowser(t)
	m = loadFirstPage(t, m)

	m, _ = update(t, m, runeKey("/"))
	require.True(t, m.showFilter)
	m, _ = update(t, m, runeKey("kubernetes"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, m.showFilter)
	assert.Equal(t, "kubernetes", m.query)

	m = loadFirstPage(t, m)
	require.NotEmpty(t, m.Articles())
	for _, a := range m.Articles() {
		assert.Contains(t, strings.ToLower(a.Title+a.Summary), "kubernetes")
	}

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd, "esc clears the search")
	assert.Empty(t, m.query)
}

func TestBrowseModel_RefreshInvalidatesCache(t *testing.T) {
	m, src := newTestBrowser(t)
	m = loadFirstPage(t, m)
	calls := src.Calls()

	m, _ = update(t, m, runeKey("s"))
	m, _ = update(t, m, runeKey("s"))
	m, _ = update(t, m, runeKey("s"))
	m, _ = update(t, m, runeKey("s"))
	m = loadFirstPage(t, m)
	assert.Equal(t, calls, src.Calls(), "same query served from cache")

	m, _ = update(t, m, runeKey("r"))
	_ = loadFirstPage(t, m)
	assert.Equal(t, calls+1, src.Calls())
}

func TestBrowseModel_Resize(t *testing.T) {
	m, _ := newTestBrowser(t)
	m = loadFirstPage(t, m)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Equal(t, 24-chromeLines, m.list.Height())
	assert.Equal(t, 80, m.rows.width)
	assert.Len(t, strings.Split(m.View(), "\n"), 24)
}

func TestBrowseModel_Quit(t *testing.T) {
	m, _ := newTestBrowser(t)
	m = loadFirstPage(t, m)

	m, cmd := update(t, m, runeKey("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, ViewStateQuitting, m.State())
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestArticleRenderer(t *testing.T) {
	r := &articleRenderer{width: 40}
	a := content.GenerateArticles(1)[0]

	plain := r.render(a, false)
	assert.Equal(t, articleRowHeight, strings.Count(plain, "\n")+1)
	assert.Contains(t, plain, a.Title)

	selected := r.render(a, true)
	assert.Greater(t, strings.Count(selected, "\n")+1, articleRowHeight, "selected row shows the summary")
	assert.Contains(t, selected, "> "+a.Title)
}
