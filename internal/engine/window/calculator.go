package window

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/cloudseek/cloudseek/internal/logging"
	"github.com/cloudseek/cloudseek/internal/validate"
)

// Default calculator configuration.
const (
	DefaultEstimatedItemHeight = 50
	DefaultOverscanCount       = 5
	DefaultMeasurementDebounce = 100 * time.Millisecond
	DefaultScrollDebounce      = 50 * time.Millisecond
)

// Calculator errors.
var (
	ErrInvalidConfig = errors.New("invalid window config")
	ErrNilKeyFunc    = errors.New("window key function cannot be nil")
)

// Config controls a Calculator. Start from DefaultConfig.
type Config struct {
	// EstimatedItemHeight is used for items that have not been measured.
	EstimatedItemHeight float64 `yaml:"estimated_item_height" json:"estimated_item_height" validate:"gt=0"`

	// OverscanCount extra items are rendered above and below the viewport.
	OverscanCount int `yaml:"overscan" json:"overscan" validate:"gte=0"`

	// MeasurementDebounce is the quiet period after the last resize
	// observation before positions are recomputed.
	MeasurementDebounce time.Duration `yaml:"measurement_debounce" json:"measurement_debounce"`

	// ScrollDebounce is how long after the last scroll IsScrolling stays true.
	ScrollDebounce time.Duration `yaml:"scroll_debounce" json:"scroll_debounce"`

	// InitialScrollOffset is the scroll position before the first Scroll.
	InitialScrollOffset float64 `yaml:"initial_scroll_offset" json:"initial_scroll_offset" validate:"gte=0"`

	// PreserveScrollPosition keeps the raw scroll offset when the item count
	// changes. When false the offset is clamped to the new content height.
	PreserveScrollPosition bool `yaml:"preserve_scroll_position" json:"preserve_scroll_position"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		EstimatedItemHeight:    DefaultEstimatedItemHeight,
		OverscanCount:          DefaultOverscanCount,
		MeasurementDebounce:    DefaultMeasurementDebounce,
		ScrollDebounce:         DefaultScrollDebounce,
		PreserveScrollPosition: true,
	}
}

// Validate checks the config, wrapping failures in ErrInvalidConfig.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.MeasurementDebounce < 0 || c.ScrollDebounce < 0 {
		return fmt.Errorf("%w: debounce intervals cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// Phase is the layout lifecycle of a Calculator.
type Phase int

// Calculator phases. Settled re-enters Measuring on resize observations and
// item count changes.
const (
	PhaseUninitialized Phase = iota
	PhaseMeasuring
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseMeasuring:
		return "measuring"
	case PhaseSettled:
		return "settled"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Align selects where ScrollToIndex places the target item.
type Align int

// Alignment modes. AlignAuto scrolls only as far as needed to show the item.
const (
	AlignAuto Align = iota
	AlignStart
	AlignCenter
	AlignEnd
)

// State is a snapshot of a Calculator.
type State struct {
	StartIndex   int
	EndIndex     int
	ItemCount    int
	ScrollTop    float64
	ClientHeight float64
	TotalHeight  float64
	IsScrolling  bool
	Phase        Phase
}

// Range returns the visible index range of the snapshot.
func (s State) Range() Range {
	return Range{StartIndex: s.StartIndex, EndIndex: s.EndIndex}
}

// Option customizes a Calculator.
type Option[T any] func(*Calculator[T])

// WithClock injects the time source for debounce timers.
func WithClock[T any](clock clockwork.Clock) Option[T] {
	return func(c *Calculator[T]) { c.clock = clock }
}

// WithLogger sets the calculator logger.
func WithLogger[T any](l zerolog.Logger) Option[T] {
	return func(c *Calculator[T]) { c.logger = l }
}

// WithOnChange registers a callback receiving a State after every change.
// It is called without internal locks held, possibly from a timer goroutine.
func WithOnChange[T any](fn func(State)) Option[T] {
	return func(c *Calculator[T]) { c.onChange = fn }
}

// Calculator tracks items, measurements and scroll position for one list and
// keeps the visible range current. Safe for concurrent use.
type Calculator[T any] struct {
	cfg      Config
	keyFn    func(T) string
	clock    clockwork.Clock
	logger   zerolog.Logger
	onChange func(State)

	mu              sync.Mutex
	items           []T
	keys            []string
	layout          Layout
	measured        Heights
	pendingMeasured Heights
	scrollTop       float64
	clientHeight    float64
	isScrolling     bool
	phase           Phase
	rng             Range

	scrollTimer  clockwork.Timer
	scrollGen    uint64
	measureTimer clockwork.Timer
	measureGen   uint64
	closed       bool
}

// New validates cfg and returns a calculator with no items.
func New[T any](cfg Config, keyFn func(T) string, opts ...Option[T]) (*Calculator[T], error) {
	if keyFn == nil {
		return nil, ErrNilKeyFunc
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Calculator[T]{
		cfg:             cfg,
		keyFn:           keyFn,
		clock:           clockwork.NewRealClock(),
		logger:          zerolog.Nop(),
		measured:        make(Heights),
		pendingMeasured: make(Heights),
		scrollTop:       cfg.InitialScrollOffset,
		layout:          Layout{ByKey: map[string]Measurement{}},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.ComponentLogger(c.logger, "window")

	return c, nil
}

// SetItems replaces the list. Positions are recomputed with known
// measurements. When the item count changes the calculator re-enters
// PhaseMeasuring and, with PreserveScrollPosition, reapplies the scroll
// offset captured before the change.
func (c *Calculator[T]) SetItems(items []T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	captured := c.scrollTop
	countChanged := len(items) != len(c.items) || c.phase == PhaseUninitialized

	c.items = slices.Clone(items)
	c.keys = make([]string, len(items))
	live := make(map[string]struct{}, len(items))
	for i, it := range c.items {
		k := c.keyFn(it)
		c.keys[i] = k
		live[k] = struct{}{}
	}
	for k := range c.measured {
		if _, ok := live[k]; !ok {
			delete(c.measured, k)
		}
	}

	c.relayoutLocked()

	if countChanged {
		if c.cfg.PreserveScrollPosition {
			c.scrollTop = captured
		} else {
			c.scrollTop = c.clampScrollLocked(captured)
		}
		c.setPhaseLocked(PhaseMeasuring)
		c.armMeasureTimerLocked()
	}

	c.recalcRangeLocked()
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
}

// SetViewport records the viewport height.
func (c *Calculator[T]) SetViewport(clientHeight float64) {
	if math.IsNaN(clientHeight) || clientHeight < 0 {
		clientHeight = 0
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.clientHeight = clientHeight
	c.recalcRangeLocked()
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
}

// Scroll records a scroll event. The visible range is recomputed
// immediately; IsScrolling stays true until ScrollDebounce passes without
// another scroll.
func (c *Calculator[T]) Scroll(scrollTop float64) {
	if math.IsNaN(scrollTop) || scrollTop < 0 {
		scrollTop = 0
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.scrollTop = scrollTop
	c.isScrolling = true
	c.armScrollTimerLocked()
	c.recalcRangeLocked()
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
}

// ObserveResize records a rendered height for key. Observations are applied
// together once MeasurementDebounce passes without another one, or on Flush.
func (c *Calculator[T]) ObserveResize(key string, height float64) {
	if !usableHeight(height) {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	cur, ok := c.layout.ByKey[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	if _, queued := c.pendingMeasured[key]; !queued && cur.Height == height {
		c.measured[key] = height
		c.mu.Unlock()
		return
	}

	c.pendingMeasured[key] = height
	changed := c.setPhaseLocked(PhaseMeasuring)
	c.armMeasureTimerLocked()
	state := c.stateLocked()
	c.mu.Unlock()

	if changed {
		c.notify(state)
	}
}

// Flush applies pending measurements now and settles the layout.
func (c *Calculator[T]) Flush() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopMeasureTimerLocked()
	c.settleLocked()
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
}

// ScrollToIndex moves the scroll offset so item index is placed per align and
// returns the new offset. The index is clamped to the list.
func (c *Calculator[T]) ScrollToIndex(index int, align Align) float64 {
	c.mu.Lock()
	if c.closed || len(c.layout.Items) == 0 {
		top := c.scrollTop
		c.mu.Unlock()
		return top
	}

	m := c.layout.Items[clamp(index, 0, len(c.layout.Items)-1)]
	target := c.scrollTop
	switch align {
	case AlignStart:
		target = m.Top
	case AlignEnd:
		target = m.Bottom - c.clientHeight
	case AlignCenter:
		target = m.Top - (c.clientHeight-m.Height)/2
	case AlignAuto:
		switch {
		case m.Top < c.scrollTop:
			target = m.Top
		case m.Bottom > c.scrollTop+c.clientHeight:
			target = m.Bottom - c.clientHeight
		}
	}

	c.scrollTop = c.clampScrollLocked(target)
	c.recalcRangeLocked()
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
	return state.ScrollTop
}

// State returns a snapshot.
func (c *Calculator[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Measurements returns a copy of the current layout in index order.
func (c *Calculator[T]) Measurements() []Measurement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.layout.Items)
}

// VisibleItems returns the items in the current range, overscan included.
func (c *Calculator[T]) VisibleItems() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return nil
	}
	return slices.Clone(c.items[c.rng.StartIndex : c.rng.EndIndex+1])
}

// Close stops the debounce timers. Later calls are ignored.
func (c *Calculator[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopMeasureTimerLocked()
	if c.scrollTimer != nil {
		c.scrollTimer.Stop()
		c.scrollTimer = nil
	}
	c.scrollGen++
}

func (c *Calculator[T]) relayoutLocked() {
	c.layout = CalculatePositions(c.keys, c.measured, c.layout.ByKey, c.cfg.EstimatedItemHeight)
}

func (c *Calculator[T]) recalcRangeLocked() {
	c.rng = CalculateVisibleRange(c.scrollTop, c.clientHeight, len(c.items), c.layout.Items, c.cfg.OverscanCount)
}

func (c *Calculator[T]) clampScrollLocked(v float64) float64 {
	maxTop := math.Max(0, c.layout.TotalHeight-c.clientHeight)
	return math.Min(math.Max(0, v), maxTop)
}

func (c *Calculator[T]) settleLocked() {
	for k, h := range c.pendingMeasured {
		c.measured[k] = h
	}
	applied := len(c.pendingMeasured)
	clear(c.pendingMeasured)

	c.relayoutLocked()
	c.recalcRangeLocked()
	if c.phase != PhaseUninitialized {
		c.setPhaseLocked(PhaseSettled)
	}
	c.logger.Trace().
		Int("applied", applied).
		Float64("total_height", c.layout.TotalHeight).
		Msg("layout settled")
}

func (c *Calculator[T]) setPhaseLocked(p Phase) bool {
	if c.phase == p || (c.phase == PhaseUninitialized && p == PhaseSettled) {
		return false
	}
	c.logger.Trace().Stringer("from", c.phase).Stringer("to", p).Msg("phase change")
	c.phase = p
	return true
}

func (c *Calculator[T]) armMeasureTimerLocked() {
	c.stopMeasureTimerLocked()
	gen := c.measureGen
	c.measureTimer = c.clock.AfterFunc(c.cfg.MeasurementDebounce, func() {
		c.mu.Lock()
		if c.closed || gen != c.measureGen {
			c.mu.Unlock()
			return
		}
		c.measureTimer = nil
		c.settleLocked()
		state := c.stateLocked()
		c.mu.Unlock()
		c.notify(state)
	})
}

func (c *Calculator[T]) stopMeasureTimerLocked() {
	if c.measureTimer != nil {
		c.measureTimer.Stop()
		c.measureTimer = nil
	}
	c.measureGen++
}

func (c *Calculator[T]) armScrollTimerLocked() {
	if c.scrollTimer != nil {
		c.scrollTimer.Stop()
	}
	c.scrollGen++
	gen := c.scrollGen
	c.scrollTimer = c.clock.AfterFunc(c.cfg.ScrollDebounce, func() {
		c.mu.Lock()
		if c.closed || gen != c.scrollGen {
			c.mu.Unlock()
			return
		}
		c.scrollTimer = nil
		c.isScrolling = false
		state := c.stateLocked()
		c.mu.Unlock()
		c.notify(state)
	})
}

func (c *Calculator[T]) stateLocked() State {
	return State{
		StartIndex:   c.rng.StartIndex,
		EndIndex:     c.rng.EndIndex,
		ItemCount:    len(c.items),
		ScrollTop:    c.scrollTop,
		ClientHeight: c.clientHeight,
		TotalHeight:  c.layout.TotalHeight,
		IsScrolling:  c.isScrolling,
		Phase:        c.phase,
	}
}

func (c *Calculator[T]) notify(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
