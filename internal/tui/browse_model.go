package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	"github.com/cloudseek/cloudseek/internal/cli/pagination"
	"github.com/cloudseek/cloudseek/internal/content"
	"github.com/cloudseek/cloudseek/internal/engine/batch"
	"github.com/cloudseek/cloudseek/internal/engine/window"
	"github.com/cloudseek/cloudseek/internal/logging"
	"github.com/cloudseek/cloudseek/internal/tui/detail"
	listview "github.com/cloudseek/cloudseek/internal/tui/list"
)

const (
	// chromeLines is the number of lines around the list: header, status
	// and help.
	chromeLines = 3

	// relatedCount is the number of related articles shown in the detail view.
	relatedCount = 3

	// filterCharLimit caps the search input.
	filterCharLimit = 64
)

// ErrNilSource is returned when no page source is given.
var ErrNilSource = errors.New("tui: page source is required")

// PageSource serves article pages. content.Feed implements it.
type PageSource interface {
	Page(ctx context.Context, p pagination.Params, prio batch.Priority) (content.Page, error)
	Invalidate(params ...pagination.Params)
	Stats() batch.Stats
}

// PageLoadedMsg delivers one fetched page. Gen identifies the query the page
// was requested for; pages of older queries are dropped.
type PageLoadedMsg struct {
	Gen    int
	Params pagination.Params
	Page   content.Page
	Err    error
}

// BrowseOptions configures a BrowseModel.
type BrowseOptions struct {
	// PageSize is the number of articles per request.
	PageSize int

	// Window is the list layout configuration, in terminal lines.
	Window window.Config

	// Clock drives the list layout timers. Nil means the real clock.
	Clock clockwork.Clock
}

// DefaultBrowseOptions returns options for a list of two- to four-line rows.
func DefaultBrowseOptions() BrowseOptions {
	cfg := window.DefaultConfig()
	cfg.EstimatedItemHeight = articleRowHeight
	return BrowseOptions{
		PageSize: content.DefaultPageSize,
		Window:   cfg,
	}
}

type sortOption struct {
	field string
	order string
}

//nolint:gochecknoglobals // Compile-time constant lookup table.
var sortOptions = []sortOption{
	{field: "published", order: pagination.SortOrderDesc},
	{field: "title", order: pagination.SortOrderAsc},
	{field: "read_time", order: pagination.SortOrderAsc},
	{field: "author", order: pagination.SortOrderAsc},
}

// BrowseModel is the Bubble Tea model for the interactive article browser.
// Pages are requested through a PageSource as the list scrolls; the page after
// the last loaded one is prefetched at low priority.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type BrowseModel struct {
	ctx    context.Context
	source PageSource

	// View state
	state  ViewState
	list   *listview.VirtualListModel[content.Article]
	rows   *articleRenderer
	detail detail.Model

	// Interactive components
	textInput  textinput.Model
	showFilter bool
	help       help.Model
	keys       browseKeyMap

	// Query
	pageSize   int
	categories []string
	category   int
	sortIdx    int
	query      string

	// Loading state
	gen          int
	loading      bool
	nextPage     int
	meta         pagination.Meta
	loadingState *LoadingState

	// Display configuration
	width  int
	height int

	// Error state
	err error
}

// NewBrowseModel creates the article browser. Init issues the first request.
func NewBrowseModel(ctx context.Context, source PageSource, opts BrowseOptions) (BrowseModel, error) {
	if source == nil {
		return BrowseModel{}, ErrNilSource
	}
	if opts.PageSize <= 0 {
		opts.PageSize = content.DefaultPageSize
	}
	if opts.Window.EstimatedItemHeight <= 0 {
		opts.Window.EstimatedItemHeight = articleRowHeight
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	rows := &articleRenderer{width: defaultWidth}
	list, err := listview.NewVirtualListModel[content.Article](
		nil,
		defaultHeight-chromeLines,
		defaultWidth,
		articleKey,
		rows.render,
		listview.WithWindowConfig(opts.Window),
		listview.WithClock(opts.Clock),
		listview.WithLogger(*logging.FromContext(ctx)),
		listview.WithEmptyText(InfoStyle.Render("No articles match.")),
	)
	if err != nil {
		return BrowseModel{}, err
	}

	m := BrowseModel{
		ctx:          ctx,
		source:       source,
		state:        ViewStateLoading,
		list:         list,
		rows:         rows,
		textInput:    newTextInput(),
		help:         help.New(),
		keys:         newBrowseKeyMap(list.KeyMap()),
		pageSize:     opts.PageSize,
		categories:   append([]string{""}, content.Categories()...),
		gen:          1,
		loading:      true,
		nextPage:     1,
		loadingState: NewLoadingState(),
		width:        defaultWidth,
		height:       defaultHeight,
	}
	m.loadingState.SetMessage("Loading articles...")
	return m, nil
}

func articleKey(a content.Article) string {
	return a.Slug
}

// newTextInput creates the search input.
func newTextInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "search titles and summaries"
	ti.Prompt = "/ "
	ti.CharLimit = filterCharLimit
	return ti
}

// Init starts the spinner, the list layout listener and the first page load.
func (m BrowseModel) Init() tea.Cmd {
	return tea.Batch(
		m.loadingState.Init(),
		m.list.Init(),
		m.fetch(1, batch.PriorityHigh),
	)
}

// params builds the request for page under the current query.
func (m BrowseModel) params(page int) pagination.Params {
	sort := sortOptions[m.sortIdx]
	p := pagination.NewPageParams(page, m.pageSize).WithSort(sort.field, sort.order)
	if cat := m.categories[m.category]; cat != "" {
		p = p.WithFilter(content.FilterCategory, cat)
	}
	if m.query != "" {
		p = p.WithFilter(content.FilterQuery, m.query)
	}
	return p
}

// fetch requests page and reports the result as a PageLoadedMsg.
func (m BrowseModel) fetch(page int, prio batch.Priority) tea.Cmd {
	ctx, source, gen := m.ctx, m.source, m.gen
	params := m.params(page)
	return func() tea.Msg {
		p, err := source.Page(ctx, params, prio)
		return PageLoadedMsg{Gen: gen, Params: params, Page: p, Err: err}
	}
}

// prefetch warms the scheduler cache with page. A later fetch of the same
// page joins the request or hits the cache.
func (m BrowseModel) prefetch(page int) tea.Cmd {
	ctx, source := m.ctx, m.source
	params := m.params(page)
	return func() tea.Msg {
		if _, err := source.Page(ctx, params, batch.PriorityLow); err != nil {
			logging.FromContext(ctx).Debug().
				Err(err).
				Int("page", params.Page).
				Msg("prefetch failed")
		}
		return nil
	}
}

// loadRelated returns the newest articles in the same category.
func (m BrowseModel) loadRelated() detail.Loader {
	source, pageSize := m.source, relatedCount+1
	return func(ctx context.Context, a content.Article) ([]content.Article, error) {
		params := pagination.NewPageParams(1, pageSize).
			WithSort("published", pagination.SortOrderDesc).
			WithFilter(content.FilterCategory, a.Category)
		page, err := source.Page(ctx, params, batch.PriorityLow)
		if err != nil {
			return nil, err
		}
		related := make([]content.Article, 0, relatedCount)
		for _, r := range page.Items {
			if r.Slug != a.Slug && len(related) < relatedCount {
				related = append(related, r)
			}
		}
		return related, nil
	}
}

// Update handles messages and updates the model state (Bubble Tea interface).
func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case PageLoadedMsg:
		return m.handlePageLoaded(msg)
	case listview.NeedMoreMsg:
		return m.handleNeedMore()
	case listview.LayoutMsg:
		_, cmd := m.list.Update(msg)
		return m, cmd
	case detail.RelatedLoadedMsg:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		return m, m.loadingState.Update(msg)
	}

	if m.showFilter {
		return m.handleFilterInput(msg)
	}

	switch m.state {
	case ViewStateList:
		return m.handleListUpdate(msg)
	case ViewStateDetail:
		return m.handleDetailUpdate(msg)
	case ViewStateLoading, ViewStateError:
		return m.handleWaitingUpdate(msg)
	case ViewStateQuitting:
		return m, nil
	default:
		return m, nil
	}
}

func (m *BrowseModel) resize(width, height int) {
	m.width = width
	m.height = height
	m.rows.width = width
	m.help.Width = width
	m.detail.SetWidth(width)
	m.list.SetSize(width, max(height-chromeLines, 1))
}

func (m BrowseModel) handlePageLoaded(msg PageLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Gen != m.gen {
		return m, nil
	}
	m.loading = false

	if msg.Err != nil {
		m.err = msg.Err
		logging.FromContext(m.ctx).Warn().Err(msg.Err).Int("page", msg.Params.Page).Msg("page load failed")
		if m.list.ItemCount() == 0 {
			m.state = ViewStateError
		}
		return m, nil
	}

	m.err = nil
	m.meta = msg.Page.Meta
	m.nextPage = msg.Page.Meta.CurrentPage + 1
	if msg.Params.Page <= 1 {
		m.list.SetItems(msg.Page.Items)
	} else {
		m.list.AppendItems(msg.Page.Items...)
	}
	m.list.SetHasMore(msg.Page.Meta.HasNext)
	if m.state == ViewStateLoading || m.state == ViewStateError {
		m.state = ViewStateList
	}

	var cmds []tea.Cmd
	if msg.Page.Meta.HasNext {
		cmds = append(cmds, m.prefetch(m.nextPage))
	}
	cmds = append(cmds, m.list.NeedMore())
	return m, tea.Batch(cmds...)
}

func (m BrowseModel) handleNeedMore() (tea.Model, tea.Cmd) {
	if m.loading || !m.meta.HasNext {
		return m, nil
	}
	m.loading = true
	return m, tea.Batch(m.fetch(m.nextPage, batch.PriorityMedium), m.loadingState.Init())
}

// reload restarts the query from page one.
func (m *BrowseModel) reload() tea.Cmd {
	m.gen++
	m.loading = true
	m.nextPage = 1
	m.meta = pagination.Meta{}
	m.err = nil
	m.state = ViewStateLoading
	m.list.SetHasMore(false)
	m.list.SetItems(nil)
	return tea.Batch(m.fetch(1, batch.PriorityHigh), m.loadingState.Init())
}

func (m BrowseModel) handleFilterInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			m.showFilter = false
			m.textInput.Blur()
			if m.textInput.Value() != m.query {
				m.query = m.textInput.Value()
				return m, m.reload()
			}
			return m, nil
		case "esc":
			m.showFilter = false
			m.textInput.Blur()
			m.textInput.SetValue(m.query)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m BrowseModel) handleListUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		_, cmd := m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		m.state = ViewStateQuitting
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Open):
		article, found := m.list.GetSelectedItem()
		if !found {
			return m, nil
		}
		m.detail = detail.New(m.ctx, article, m.loadRelated(), m.width, detailStyles())
		m.state = ViewStateDetail
		return m, m.detail.Init()
	case key.Matches(keyMsg, m.keys.Filter):
		m.showFilter = true
		m.textInput.SetValue(m.query)
		m.textInput.Focus()
		return m, textinput.Blink
	case key.Matches(keyMsg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if cmd, handled := m.handleQueryKey(keyMsg); handled {
		return m, cmd
	}
	_, cmd := m.list.Update(keyMsg)
	return m, cmd
}

// handleQueryKey applies the keys that change the query. Each change starts a
// new generation, so pages still in flight for the old query are dropped.
func (m *BrowseModel) handleQueryKey(keyMsg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(keyMsg, m.keys.Category):
		m.category = (m.category + 1) % len(m.categories)
		return m.reload(), true
	case key.Matches(keyMsg, m.keys.Sort):
		m.sortIdx = (m.sortIdx + 1) % len(sortOptions)
		return m.reload(), true
	case key.Matches(keyMsg, m.keys.Refresh):
		m.source.Invalidate()
		return m.reload(), true
	case key.Matches(keyMsg, m.keys.Back):
		if m.query == "" {
			return nil, true
		}
		m.query = ""
		m.textInput.SetValue("")
		return m.reload(), true
	}
	return nil, false
}

func (m BrowseModel) handleDetailUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Quit):
			m.state = ViewStateQuitting
			return m, tea.Quit
		case key.Matches(keyMsg, m.keys.Back):
			m.state = ViewStateList
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

// handleWaitingUpdate handles keys while there is nothing to browse. Quitting
// and query changes work while a page is loading or after a failed load.
func (m BrowseModel) handleWaitingUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if key.Matches(keyMsg, m.keys.Quit) {
		m.state = ViewStateQuitting
		return m, tea.Quit
	}
	cmd, _ := m.handleQueryKey(keyMsg)
	return m, cmd
}

// State returns the current view state.
func (m BrowseModel) State() ViewState {
	return m.state
}

// Articles returns the loaded articles in display order.
func (m BrowseModel) Articles() []content.Article {
	return m.list.Items()
}

// Meta returns the pagination metadata of the last loaded page.
func (m BrowseModel) Meta() pagination.Meta {
	return m.meta
}

// Err returns the last load error, if any.
func (m BrowseModel) Err() error {
	return m.err
}

// Close releases the list layout timers.
func (m BrowseModel) Close() {
	m.list.Close()
}
