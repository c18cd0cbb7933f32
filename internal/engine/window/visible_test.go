package window

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformLayout(n int, height float64) Layout {
	return CalculatePositions(keysN(n), nil, nil, height)
}

func TestCalculateVisibleRange(t *testing.T) {
	ms := uniformLayout(100, 50).Items

	tests := []struct {
		name      string
		scrollTop float64
		client    float64
		count     int
		ms        []Measurement
		overscan  int
		want      Range
	}{
		{name: "top of list", scrollTop: 0, client: 200, count: 100, ms: ms, want: Range{0, 4}},
		{name: "middle", scrollTop: 1000, client: 200, count: 100, ms: ms, want: Range{19, 24}},
		{name: "overscan", scrollTop: 1000, client: 200, count: 100, ms: ms, overscan: 3, want: Range{16, 27}},
		{name: "overscan clamped", scrollTop: 0, client: 200, count: 100, ms: ms, overscan: 10, want: Range{0, 14}},
		{name: "past the end", scrollTop: 99999, client: 200, count: 100, ms: ms, overscan: 2, want: Range{97, 99}},
		{name: "negative scroll", scrollTop: -40, client: 100, count: 100, ms: ms, want: Range{0, 2}},
		{name: "empty list", scrollTop: 10, client: 200, count: 0, want: Range{0, 0}},
		{name: "zero viewport", scrollTop: 1000, client: 0, count: 100, ms: ms, want: Range{19, 19}},
		{name: "zero viewport overscan", scrollTop: 1000, client: 0, count: 100, ms: ms, overscan: 1, want: Range{18, 20}},
		{name: "no measurements", scrollTop: 0, client: 200, count: 10, want: Range{0, 0}},
		{name: "partial measurements", scrollTop: 0, client: 1000, count: 100, ms: ms[:3], want: Range{0, 2}},
		{name: "negative overscan", scrollTop: 0, client: 100, count: 100, ms: ms, overscan: -4, want: Range{0, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateVisibleRange(tt.scrollTop, tt.client, tt.count, tt.ms, tt.overscan)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateVisibleRange_ZeroHeightItems(t *testing.T) {
	ms := CalculatePositions(keysN(5), nil, nil, 0).Items
	got := CalculateVisibleRange(0, 100, 5, ms, 1)
	assert.Equal(t, Range{0, 1}, got)
}

func TestCalculateVisibleRange_MoreMeasurementsThanItems(t *testing.T) {
	ms := uniformLayout(10, 50).Items
	got := CalculateVisibleRange(0, 1000, 4, ms, 0)
	assert.Equal(t, Range{0, 3}, got)
}

// Every item intersecting the viewport is inside the range, widened by the
// overscan and clamped to the list.
func TestCalculateVisibleRange_Coverage(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))

	for round := range 200 {
		n := rng.IntN(60) + 1
		heights := Heights{}
		keys := keysN(n)
		for _, k := range keys {
			heights[k] = float64(rng.IntN(120))
		}
		layout := CalculatePositions(keys, heights, nil, 0)
		scrollTop := rng.Float64() * (layout.TotalHeight + 100)
		client := rng.Float64() * 400
		overscan := rng.IntN(4)

		r := CalculateVisibleRange(scrollTop, client, n, layout.Items, overscan)

		name := fmt.Sprintf("round-%d s=%.1f h=%.1f", round, scrollTop, client)
		require.GreaterOrEqual(t, r.StartIndex, 0, name)
		require.LessOrEqual(t, r.StartIndex, r.EndIndex, name)
		require.Less(t, r.EndIndex, n, name)

		for _, m := range layout.Items {
			intersects := m.Top < scrollTop+client && m.Bottom > scrollTop
			if !intersects {
				continue
			}
			assert.LessOrEqual(t, r.StartIndex, max(0, m.Index-overscan), name)
			assert.GreaterOrEqual(t, r.EndIndex, min(n-1, m.Index+overscan), name)
		}
	}
}

func TestRange_Helpers(t *testing.T) {
	r := Range{StartIndex: 2, EndIndex: 4}
	assert.Equal(t, 3, r.Len(10))
	assert.Equal(t, 0, Range{}.Len(0))
	assert.True(t, r.Contains(2))
	assert.True(t, r.Contains(4))
	assert.False(t, r.Contains(5))
}
