package images

import (
	"math/rand"
	"testing"
)

// BenchmarkIoU_NonOverlapping takes the early return for disjoint boxes.
func BenchmarkIoU_NonOverlapping(b *testing.B) {
	a := NewBoxFromCorners(0, 0, 0.1, 0.1)
	o := NewBoxFromCorners(0.5, 0.5, 0.6, 0.6)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = a.IoU(o)
	}
}

// BenchmarkIoU_PartialOverlap exercises the full intersection path.
func BenchmarkIoU_PartialOverlap(b *testing.B) {
	a := NewBoxFromCorners(0.1, 0.1, 0.5, 0.5)
	o := NewBoxFromCorners(0.3, 0.3, 0.7, 0.7)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = a.IoU(o)
	}
}

// BenchmarkIoU_RandomPairs mixes overlapping and disjoint pairs the way a crowded frame does.
func BenchmarkIoU_RandomPairs(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	boxes := make([]Box, 1024)
	for i := range boxes {
		cx, cy := rng.Float32(), rng.Float32()
		boxes[i] = NewBoxFromCenter(cx, cy, 0.05+rng.Float32()*0.2, 0.05+rng.Float32()*0.2).Clamp()
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = boxes[i%len(boxes)].IoU(boxes[(i*7+3)%len(boxes)])
	}
}

// BenchmarkCalculateIoU_GridRects compares the integer path used on mask grids.
func BenchmarkCalculateIoU_GridRects(b *testing.B) {
	r := Rect{X1: 10, Y1: 10, X2: 300, Y2: 200}
	o := Rect{X1: 150, Y1: 100, X2: 400, Y2: 380}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(r, o)
	}
}
