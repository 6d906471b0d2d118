package images

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

// TestCalculateIoU validates the integer IoU implementation against known test cases.
func TestCalculateIoU(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
	}{
		{name: "Identical rectangles", r1: Rect{0, 0, 100, 100}, r2: Rect{0, 0, 100, 100}, expected: 1.0},
		{name: "No overlap", r1: Rect{0, 0, 100, 100}, r2: Rect{200, 200, 300, 300}, expected: 0.0},
		{name: "Touching edges", r1: Rect{0, 0, 100, 100}, r2: Rect{100, 0, 200, 100}, expected: 0.0},
		// intersection=2500, union=17500
		{name: "Half overlap", r1: Rect{0, 0, 100, 100}, r2: Rect{50, 50, 150, 150}, expected: 0.142857},
		{name: "One inside other", r1: Rect{0, 0, 100, 100}, r2: Rect{25, 25, 75, 75}, expected: 0.25},
		{name: "Degenerate pair", r1: Rect{5, 5, 5, 5}, r2: Rect{5, 5, 5, 5}, expected: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CalculateIoU(tt.r1, tt.r2), 0.001)
			assert.InDelta(t, tt.expected, CalculateIoU(tt.r2, tt.r1), 0.001, "IoU must be symmetric")
		})
	}
}

func TestBoxIoU(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Box
		expected float32
	}{
		{
			name:     "identical",
			a:        NewBoxFromCorners(0.2, 0.2, 0.4, 0.4),
			b:        NewBoxFromCorners(0.2, 0.2, 0.4, 0.4),
			expected: 1,
		},
		{
			name:     "disjoint",
			a:        NewBoxFromCorners(0, 0, 0.1, 0.1),
			b:        NewBoxFromCorners(0.5, 0.5, 0.6, 0.6),
			expected: 0,
		},
		{
			// inter = 0.8*1, union = 1 + 0.8 - 0.8 = 1
			name:     "contained strip",
			a:        NewBoxFromCorners(0, 0, 1, 1),
			b:        NewBoxFromCorners(0, 0, 0.8, 1),
			expected: 0.8,
		},
		{
			name:     "zero area boxes",
			a:        NewBoxFromCorners(0.3, 0.3, 0.3, 0.3),
			b:        NewBoxFromCorners(0.3, 0.3, 0.3, 0.3),
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iou := tt.a.IoU(tt.b)
			assert.False(t, math32.IsNaN(iou))
			assert.InDelta(t, tt.expected, iou, 1e-6)
		})
	}
}

func TestBoxConstructors(t *testing.T) {
	c := NewBoxFromCenter(0.3, 0.3, 0.2, 0.2)
	assert.InDelta(t, 0.2, c.X1, 1e-6)
	assert.InDelta(t, 0.4, c.Y2, 1e-6)

	k := NewBoxFromCorners(0.2, 0.2, 0.4, 0.4)
	assert.InDelta(t, 0.3, k.CX, 1e-6)
	assert.InDelta(t, 0.2, k.W, 1e-6)
}

func TestBoxNormalized(t *testing.T) {
	assert.True(t, NewBoxFromCorners(0, 0, 1, 1).Normalized())
	assert.False(t, NewBoxFromCorners(-0.01, 0, 1, 1).Normalized())
	assert.False(t, NewBoxFromCorners(0, 0, 1.01, 1).Normalized())
	assert.False(t, NewBoxFromCorners(math32.NaN(), 0, 1, 1).Normalized())
}

func TestBoxClamp(t *testing.T) {
	b := NewBoxFromCorners(-0.1, 0.2, 1.3, 0.9).Clamp()
	assert.Equal(t, float32(0), b.X1)
	assert.Equal(t, float32(1), b.X2)
	assert.InDelta(t, 0.5, b.CX, 1e-6)
	assert.True(t, b.Normalized())
}

func TestBoxGridRect(t *testing.T) {
	tests := []struct {
		name     string
		box      Box
		w, h     int
		expected Rect
	}{
		{name: "inside", box: NewBoxFromCorners(0.2, 0.2, 0.4, 0.4), w: 10, h: 10, expected: Rect{2, 2, 4, 4}},
		{name: "full", box: NewBoxFromCorners(0, 0, 1, 1), w: 160, h: 120, expected: Rect{0, 0, 160, 120}},
		{name: "clamped", box: NewBoxFromCorners(-0.5, 0.5, 1.5, 2), w: 10, h: 10, expected: Rect{0, 5, 10, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.box.GridRect(tt.w, tt.h))
		})
	}
}
