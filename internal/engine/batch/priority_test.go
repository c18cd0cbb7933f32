package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		input   string
		want    Priority
		wantErr bool
	}{
		{input: "high", want: PriorityHigh},
		{input: " HIGH ", want: PriorityHigh},
		{input: "medium", want: PriorityMedium},
		{input: "", want: PriorityMedium},
		{input: "Low", want: PriorityLow},
		{input: "urgent", want: PriorityMedium, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePriority(tt.input)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriority_String(t *testing.T) {
	assert.Equal(t, "high", PriorityHigh.String())
	assert.Equal(t, "medium", PriorityMedium.String())
	assert.Equal(t, "low", PriorityLow.String())
	assert.Equal(t, "priority(9)", Priority(9).String())
}

func TestPriorityWeights_Weight(t *testing.T) {
	w := DefaultPriorityWeights()
	assert.Equal(t, 3, w.Weight(PriorityHigh))
	assert.Equal(t, 2, w.Weight(PriorityMedium))
	assert.Equal(t, 1, w.Weight(PriorityLow))
	assert.Equal(t, 2, w.Weight(Priority(42)))
}

func TestFuture(t *testing.T) {
	t.Run("ResolvesOnce", func(t *testing.T) {
		f := newFuture[int]("id-1")
		assert.False(t, f.Resolved())

		_, err := f.Result()
		require.ErrorIs(t, err, ErrNotResolved)

		f.resolve(1)
		f.resolve(2)
		f.reject(errBoom)

		v, err := f.Result()
		require.NoError(t, err)
		assert.Equal(t, 1, v)
		assert.Equal(t, "id-1", f.ID())
	})

	t.Run("Rejected", func(t *testing.T) {
		f := rejectedFuture[int]("id-2", errBoom)
		select {
		case <-f.Done():
		default:
			t.Fatal("rejected future should be done")
		}
		_, err := f.Wait(context.Background())
		require.ErrorIs(t, err, errBoom)
	})

	t.Run("WaitTimeout", func(t *testing.T) {
		f := newFuture[int]("id-3")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := f.Wait(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
