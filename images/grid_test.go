package images

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridResizeNearest(t *testing.T) {
	src := NewGrid(2, 2)
	src.Set(0, 0, 1)
	src.Set(1, 0, 2)
	src.Set(0, 1, 3)
	src.Set(1, 1, 4)

	t.Run("upscale repeats cells", func(t *testing.T) {
		out := src.ResizeNearest(4, 4)
		require.Equal(t, 4, out.Width)
		assert.Equal(t, []float32{1, 1, 2, 2}, out.Row(0))
		assert.Equal(t, []float32{1, 1, 2, 2}, out.Row(1))
		assert.Equal(t, []float32{3, 3, 4, 4}, out.Row(3))
	})

	t.Run("non integer ratio", func(t *testing.T) {
		out := src.ResizeNearest(3, 1)
		// dst 0 -> 0, dst 1 -> floor(2/3)=0, dst 2 -> floor(4/3)=1
		assert.Equal(t, []float32{1, 1, 2}, out.Row(0))
	})

	t.Run("downscale", func(t *testing.T) {
		out := src.ResizeNearest(1, 1)
		assert.Equal(t, []float32{1}, out.Data)
	})

	t.Run("empty source yields zero grid", func(t *testing.T) {
		out := Grid{}.ResizeNearest(3, 2)
		assert.Len(t, out.Data, 6)
		for _, v := range out.Data {
			assert.Zero(t, v)
		}
	})
}

func TestGridGray(t *testing.T) {
	g := NewGrid(3, 1)
	g.Data[0] = -1
	g.Data[1] = 0.5
	g.Data[2] = 2
	img := g.Gray()
	assert.Equal(t, []uint8{0, 127, 255}, img.Pix)
}

func TestBitmapScaleGray(t *testing.T) {
	b := NewBitmap(2, 2)
	b.Set(1, 1, 1)
	assert.Equal(t, 1, b.Count())

	scaled := ScaleGray(b.Gray(), 4, 4)
	assert.Equal(t, 4, scaled.Bounds().Dx())
	assert.Equal(t, uint8(255), scaled.GrayAt(3, 3).Y)
	assert.Equal(t, uint8(0), scaled.GrayAt(0, 0).Y)
}

func TestPartitions(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		workers  int
		expected [][2]int
	}{
		{name: "empty", size: 0, workers: 4, expected: nil},
		{name: "serial", size: 10, workers: 1, expected: [][2]int{{0, 10}}},
		{name: "too small", size: 5, workers: 4, expected: [][2]int{{0, 5}}},
		{name: "remainder on last", size: 10, workers: 3, expected: [][2]int{{0, 3}, {3, 6}, {6, 10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Partitions(tt.size, tt.workers))
		})
	}
}

func TestParallelNCoversEveryIndex(t *testing.T) {
	var mu sync.Mutex
	var seen []int

	ParallelN(101, 4, func(start, end int) {
		mu.Lock()
		defer mu.Unlock()
		for i := start; i < end; i++ {
			seen = append(seen, i)
		}
	})

	sort.Ints(seen)
	require.Len(t, seen, 101)
	for i, v := range seen {
		assert.Equal(t, i, v)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-3, 0, 9))
	assert.Equal(t, 9, Clamp(12, 0, 9))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
}
