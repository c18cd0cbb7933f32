package window

import (
	"math"
)

// Range is an inclusive index window. For an empty list both bounds are 0;
// otherwise 0 <= StartIndex <= EndIndex < itemCount.
type Range struct {
	StartIndex int
	EndIndex   int
}

// Len returns the number of indices in the range for a list of itemCount items.
func (r Range) Len(itemCount int) int {
	if itemCount <= 0 {
		return 0
	}
	return r.EndIndex - r.StartIndex + 1
}

// Contains reports whether i lies in the range.
func (r Range) Contains(i int) bool {
	return i >= r.StartIndex && i <= r.EndIndex
}

// CalculateVisibleRange returns the items covering [scrollTop,
// scrollTop+clientHeight), widened by overscan on both sides and clamped to
// [0, itemCount-1].
//
// ms is ordered by index with monotonic offsets. It may hold fewer than
// itemCount entries while a layout is being built; indices without an entry
// make the searches narrow toward lower indices and never fail, so the range
// may end before the viewport does until the layout is complete. When
// clientHeight or the total height is not positive the raw range is the single
// item at scrollTop.
func CalculateVisibleRange(scrollTop, clientHeight float64, itemCount int, ms []Measurement, overscan int) Range {
	if itemCount <= 0 {
		return Range{}
	}
	if overscan < 0 {
		overscan = 0
	}
	if len(ms) > itemCount {
		ms = ms[:itemCount]
	}
	if math.IsNaN(scrollTop) || scrollTop < 0 {
		scrollTop = 0
	}

	var total float64
	if len(ms) > 0 {
		total = ms[len(ms)-1].Bottom
	}

	start := search(itemCount, ms, func(m Measurement) bool { return m.Bottom >= scrollTop })
	start = clamp(start, 0, itemCount-1)

	end := start
	if clientHeight > 0 && total > 0 {
		viewportEnd := scrollTop + clientHeight
		end = search(itemCount, ms, func(m Measurement) bool { return m.Top > viewportEnd }) - 1
		end = clamp(end, start, itemCount-1)
	}

	return Range{
		StartIndex: clamp(start-overscan, 0, itemCount-1),
		EndIndex:   clamp(end+overscan, 0, itemCount-1),
	}
}

// search returns the smallest index in [0, n) for which pred holds, or n.
// Indices past the end of ms count as satisfying pred.
func search(n int, ms []Measurement, pred func(Measurement) bool) int {
	lo, hi := 0, n
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if mid >= len(ms) || pred(ms[mid]) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
