package listview

import (
	"errors"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/cloudseek/cloudseek/internal/engine/window"
)

// Defaults for list models.
const (
	// DefaultRowHeight is the estimated height, in lines, of a row that has
	// not been rendered yet.
	DefaultRowHeight = 1

	// DefaultPrefetch is how close to the last item the visible range may get
	// before NeedMoreMsg is emitted.
	DefaultPrefetch = 5

	// wheelStep is the number of lines one mouse wheel notch scrolls.
	wheelStep = 3

	// maxMeasurePasses bounds the render/measure loop after a layout change.
	maxMeasurePasses = 3
)

// ErrNilFunc is returned when the key or render function is missing.
var ErrNilFunc = errors.New("listview: key and render functions are required")

// RenderFunc renders one item. The selected parameter indicates whether this
// item is currently selected. The result may span several lines.
type RenderFunc[T any] func(item T, selected bool) string

// KeyFunc returns the stable identity of an item.
type KeyFunc[T any] func(item T) string

// NeedMoreMsg asks the owner of the list to load more items. It is emitted
// once per SetItems/AppendItems/SetHasMore call while HasMore is true.
type NeedMoreMsg struct {
	ItemCount int
}

// LayoutMsg carries a layout change that happened outside Update, such as a
// scroll debounce expiring.
type LayoutMsg struct {
	State window.State
}

// Option customizes a VirtualListModel.
type Option func(*options)

type options struct {
	window   window.Config
	clock    clockwork.Clock
	logger   zerolog.Logger
	prefetch int
	keys     KeyMap
	empty    string
}

// WithWindowConfig sets the layout configuration. Heights are in lines.
func WithWindowConfig(cfg window.Config) Option {
	return func(o *options) { o.window = cfg }
}

// WithClock injects the time source used by the layout debounce timers.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithLogger sets the logger handed to the layout calculator.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPrefetch sets how many items before the end NeedMoreMsg is emitted.
func WithPrefetch(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.prefetch = n
		}
	}
}

// WithKeyMap replaces the navigation bindings.
func WithKeyMap(k KeyMap) Option {
	return func(o *options) { o.keys = k }
}

// WithEmptyText sets the text shown when the list has no items.
func WithEmptyText(s string) Option {
	return func(o *options) { o.empty = s }
}

func defaultOptions() options {
	cfg := window.DefaultConfig()
	cfg.EstimatedItemHeight = DefaultRowHeight
	return options{
		window:   cfg,
		clock:    clockwork.NewRealClock(),
		logger:   zerolog.Nop(),
		prefetch: DefaultPrefetch,
		keys:     DefaultKeyMap(),
	}
}

// VirtualListModel implements virtual scrolling for large lists with rows of
// varying height.
type VirtualListModel[T any] struct {
	items      []T
	keyFn      KeyFunc[T]
	renderFunc RenderFunc[T]
	calc       *window.Calculator[T]
	keys       KeyMap
	prefetch   int
	empty      string

	// selected is the currently selected item index (0-based)
	selected int

	// height is the viewport height in rows
	height int

	// width is the viewport width in columns
	width int

	hasMore   bool
	requested bool

	changes   chan window.State
	done      chan struct{}
	closeOnce sync.Once
}

// NewVirtualListModel creates a new virtual list model.
// items: the initial items to display.
// height: viewport height in rows.
// width: viewport width in columns.
func NewVirtualListModel[T any](
	items []T,
	height, width int,
	keyFn KeyFunc[T],
	renderFunc RenderFunc[T],
	opts ...Option,
) (*VirtualListModel[T], error) {
	if keyFn == nil || renderFunc == nil {
		return nil, ErrNilFunc
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	m := &VirtualListModel[T]{
		keyFn:      keyFn,
		renderFunc: renderFunc,
		keys:       o.keys,
		prefetch:   o.prefetch,
		empty:      o.empty,
		height:     max(height, 0),
		width:      width,
		changes:    make(chan window.State, 1),
		done:       make(chan struct{}),
	}

	calc, err := window.New[T](o.window, keyFn,
		window.WithClock[T](o.clock),
		window.WithLogger[T](o.logger),
		window.WithOnChange[T](m.publish),
	)
	if err != nil {
		return nil, err
	}
	m.calc = calc

	m.calc.SetViewport(float64(m.height))
	m.SetItems(items)
	return m, nil
}

// publish forwards calculator changes to the waiting command. A pending
// message is enough to trigger a repaint, so extra states are dropped.
func (m *VirtualListModel[T]) publish(s window.State) {
	select {
	case m.changes <- s:
	default:
	}
}

// waitForLayout blocks until the calculator reports a change.
func (m *VirtualListModel[T]) waitForLayout() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-m.changes:
			return LayoutMsg{State: s}
		case <-m.done:
			return nil
		}
	}
}

// Init starts listening for asynchronous layout changes.
func (m *VirtualListModel[T]) Init() tea.Cmd {
	return m.waitForLayout()
}

// Update handles keyboard, mouse, resize and layout messages.
func (m *VirtualListModel[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.handleKeyMsg(msg)
		return m, m.NeedMore()
	case tea.MouseMsg:
		m.handleMouseMsg(msg)
		return m, m.NeedMore()
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, m.NeedMore()
	case LayoutMsg:
		m.measure()
		return m, tea.Batch(m.waitForLayout(), m.NeedMore())
	}

	return m, nil
}

// handleKeyMsg processes keyboard input for navigation.
func (m *VirtualListModel[T]) handleKeyMsg(msg tea.KeyMsg) {
	if len(m.items) == 0 {
		return
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveTo(m.selected - 1)
	case key.Matches(msg, m.keys.Down):
		m.moveTo(m.selected + 1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveTo(m.selected - m.pageItems())
	case key.Matches(msg, m.keys.PageDown):
		m.moveTo(m.selected + m.pageItems())
	case key.Matches(msg, m.keys.Home):
		m.moveTo(0)
	case key.Matches(msg, m.keys.End):
		m.moveTo(len(m.items) - 1)
	}
}

// handleMouseMsg scrolls the viewport without moving the selection.
//
//nolint:exhaustive // Only wheel events scroll the list.
func (m *VirtualListModel[T]) handleMouseMsg(msg tea.MouseMsg) {
	if msg.Action != tea.MouseActionPress || len(m.items) == 0 {
		return
	}

	st := m.calc.State()
	top := st.ScrollTop
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		top -= wheelStep
	case tea.MouseButtonWheelDown:
		top += wheelStep
	default:
		return
	}
	top = math.Min(math.Max(0, top), math.Max(0, st.TotalHeight-st.ClientHeight))

	m.calc.Scroll(top)
	m.measure()
}

// pageItems is the number of items currently intersecting the viewport.
func (m *VirtualListModel[T]) pageItems() int {
	st := m.calc.State()
	ms := m.calc.Measurements()
	bottom := st.ScrollTop + st.ClientHeight

	n := 0
	for i := st.StartIndex; i <= st.EndIndex && i < len(ms); i++ {
		if ms[i].Bottom > st.ScrollTop && ms[i].Top < bottom {
			n++
		}
	}
	return max(n, 1)
}

// moveTo selects index, clamped to the list, and scrolls it into view.
func (m *VirtualListModel[T]) moveTo(index int) {
	m.selected = min(max(index, 0), len(m.items)-1)
	m.follow()
}

// follow keeps the selected item inside the viewport. The second scroll
// corrects for heights learned while rendering after the first.
func (m *VirtualListModel[T]) follow() {
	if len(m.items) == 0 {
		return
	}
	m.calc.ScrollToIndex(m.selected, window.AlignAuto)
	m.measure()
	m.calc.ScrollToIndex(m.selected, window.AlignAuto)
	m.measure()
}

// measure renders the rows in the visible range, reports their heights and
// settles the layout once the rendered heights match it.
func (m *VirtualListModel[T]) measure() {
	if len(m.items) == 0 {
		return
	}

	for range maxMeasurePasses {
		st := m.calc.State()
		ms := m.calc.Measurements()
		if len(ms) != len(m.items) {
			return
		}

		changed := false
		for i := st.StartIndex; i <= st.EndIndex; i++ {
			h := float64(lipgloss.Height(m.render(i)))
			if ms[i].Height != h {
				changed = true
			}
			m.calc.ObserveResize(ms[i].Key, h)
		}

		if !changed {
			if st.Phase != window.PhaseSettled {
				m.calc.Flush()
			}
			return
		}
		m.calc.Flush()
	}
}

// NeedMore returns a command emitting NeedMoreMsg when the visible range is
// within the prefetch distance of the end, or nil. Update calls it after
// every navigation; owners call it after changing items outside Update.
func (m *VirtualListModel[T]) NeedMore() tea.Cmd {
	if !m.hasMore || m.requested || len(m.items) == 0 {
		return nil
	}
	st := m.calc.State()
	if st.EndIndex < len(m.items)-1-m.prefetch {
		return nil
	}

	m.requested = true
	n := len(m.items)
	return func() tea.Msg { return NeedMoreMsg{ItemCount: n} }
}

func (m *VirtualListModel[T]) render(i int) string {
	return m.renderFunc(m.items[i], i == m.selected)
}

// View renders the rows covering the viewport, exactly Height lines.
func (m *VirtualListModel[T]) View() string {
	if m.height == 0 {
		return ""
	}

	lines := make([]string, 0, m.height)
	if len(m.items) == 0 {
		if m.empty != "" {
			lines = append(lines, strings.Split(m.empty, "\n")...)
		}
	} else {
		lines = m.visibleLines()
	}

	if len(lines) > m.height {
		lines = lines[:m.height]
	}
	for len(lines) < m.height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m *VirtualListModel[T]) visibleLines() []string {
	st := m.calc.State()
	ms := m.calc.Measurements()
	if st.StartIndex >= len(ms) {
		return nil
	}

	skip := max(int(math.Round(st.ScrollTop-ms[st.StartIndex].Top)), 0)

	var lines []string
	for i := st.StartIndex; i <= st.EndIndex && len(lines) < skip+m.height; i++ {
		lines = append(lines, strings.Split(m.render(i), "\n")...)
	}

	skip = min(skip, len(lines))
	return lines[skip:]
}

// SetItems replaces the list. The selection is kept by key when the selected
// item is still present, otherwise clamped to the new list.
func (m *VirtualListModel[T]) SetItems(items []T) {
	var selKey string
	hadSelection := m.selected < len(m.items)
	if hadSelection {
		selKey = m.keyFn(m.items[m.selected])
	}

	m.items = slices.Clone(items)
	m.requested = false
	m.calc.SetItems(m.items)

	sel := m.selected
	if hadSelection {
		if i := slices.IndexFunc(m.items, func(it T) bool { return m.keyFn(it) == selKey }); i >= 0 {
			sel = i
		}
	}
	m.selected = min(max(sel, 0), max(len(m.items)-1, 0))
	m.measure()
}

// AppendItems adds items to the end of the list, keeping the scroll position
// and selection.
func (m *VirtualListModel[T]) AppendItems(items ...T) {
	m.items = append(m.items, items...)
	m.requested = false
	m.calc.SetItems(m.items)
	m.measure()
}

// SetHasMore records whether more items can be loaded upstream.
func (m *VirtualListModel[T]) SetHasMore(more bool) {
	m.hasMore = more
	m.requested = false
}

// HasMore reports whether more items can be loaded upstream.
func (m *VirtualListModel[T]) HasMore() bool {
	return m.hasMore
}

// SetSize resizes the viewport.
func (m *VirtualListModel[T]) SetSize(width, height int) {
	m.width = width
	m.height = max(height, 0)
	m.calc.SetViewport(float64(m.height))
	m.follow()
}

// ItemCount returns the total number of items in the list.
func (m *VirtualListModel[T]) ItemCount() int {
	return len(m.items)
}

// Items returns a copy of the items.
func (m *VirtualListModel[T]) Items() []T {
	return slices.Clone(m.items)
}

// Selected returns the currently selected item index.
func (m *VirtualListModel[T]) Selected() int {
	return m.selected
}

// SetSelected sets the selected item index, capping to valid bounds, and
// scrolls it into view.
func (m *VirtualListModel[T]) SetSelected(index int) {
	if len(m.items) == 0 {
		m.selected = 0
		return
	}
	m.moveTo(index)
}

// VisibleFrom returns the first rendered item index (inclusive).
func (m *VirtualListModel[T]) VisibleFrom() int {
	return m.calc.State().StartIndex
}

// VisibleTo returns the last rendered item index (exclusive).
func (m *VirtualListModel[T]) VisibleTo() int {
	if len(m.items) == 0 {
		return 0
	}
	return m.calc.State().EndIndex + 1
}

// Layout returns the current layout snapshot.
func (m *VirtualListModel[T]) Layout() window.State {
	return m.calc.State()
}

// Height returns the viewport height.
func (m *VirtualListModel[T]) Height() int {
	return m.height
}

// Width returns the viewport width.
func (m *VirtualListModel[T]) Width() int {
	return m.width
}

// KeyMap returns the navigation bindings, for help rendering.
func (m *VirtualListModel[T]) KeyMap() KeyMap {
	return m.keys
}

// GetSelectedItem returns the currently selected item.
// Returns false if the list is empty.
func (m *VirtualListModel[T]) GetSelectedItem() (T, bool) {
	if len(m.items) == 0 || m.selected < 0 || m.selected >= len(m.items) {
		var zero T
		return zero, false
	}
	return m.items[m.selected], true
}

// Close stops the layout timers and the pending layout command.
func (m *VirtualListModel[T]) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.calc.Close()
	})
}
