package window

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keysN(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("item-%d", i)
	}
	return keys
}

func TestCalculatePositions_HeightPrecedence(t *testing.T) {
	keys := []string{"a", "b", "c"}
	measured := Heights{"a": 120}
	existing := map[string]Measurement{
		"a": {Key: "a", Height: 10},
		"b": {Key: "b", Height: 80},
	}

	layout := CalculatePositions(keys, measured, existing, 50)

	require.Len(t, layout.Items, 3)
	assert.InDelta(t, 120, layout.Items[0].Height, 0, "measured wins over existing")
	assert.InDelta(t, 80, layout.Items[1].Height, 0, "existing wins over estimate")
	assert.InDelta(t, 50, layout.Items[2].Height, 0, "estimate as fallback")
	assert.InDelta(t, 250, layout.TotalHeight, 0)
	assert.Equal(t, layout.Items[1], layout.ByKey["b"])
	assert.Equal(t, 2, layout.ByKey["c"].Index)
}

func TestCalculatePositions_IgnoresUnusableHeights(t *testing.T) {
	measured := MeasurerFunc(func(key string) (float64, bool) {
		switch key {
		case "neg":
			return -5, true
		case "nan":
			return math.NaN(), true
		default:
			return 0, false
		}
	})

	layout := CalculatePositions([]string{"neg", "nan"}, measured, nil, 30)
	assert.InDelta(t, 30, layout.Items[0].Height, 0)
	assert.InDelta(t, 30, layout.Items[1].Height, 0)

	layout = CalculatePositions([]string{"x"}, nil, nil, -1)
	assert.InDelta(t, 0, layout.TotalHeight, 0)
}

func TestCalculatePositions_Empty(t *testing.T) {
	layout := CalculatePositions(nil, nil, nil, 50)
	assert.Empty(t, layout.Items)
	assert.InDelta(t, 0, layout.TotalHeight, 0)
}

func TestCalculatePositions_Monotonic(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for round := range 50 {
		t.Run(fmt.Sprintf("round-%d", round), func(t *testing.T) {
			keys := keysN(rng.IntN(200) + 1)
			rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

			measured := Heights{}
			for _, k := range keys {
				if rng.IntN(2) == 0 {
					measured[k] = float64(rng.IntN(300))
				}
			}

			layout := CalculatePositions(keys, measured, nil, 40)

			assert.InDelta(t, 0, layout.Items[0].Top, 0)
			for i, m := range layout.Items {
				assert.InDelta(t, m.Top+m.Height, m.Bottom, 1e-9)
				if i > 0 {
					assert.InDelta(t, layout.Items[i-1].Bottom, m.Top, 1e-9)
				}
			}
			assert.InDelta(t, layout.Items[len(layout.Items)-1].Bottom, layout.TotalHeight, 1e-9)
		})
	}
}
