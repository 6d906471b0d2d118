// Package images - Geometry, grid and raster helpers for detection postprocessing.
package images

import "github.com/chewxy/math32"

// Rect is an integer rectangle on a pixel or prototype grid.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 int
}

// Empty reports whether the rectangle covers no cells.
func (r Rect) Empty() bool {
	return r.X2 <= r.X1 || r.Y2 <= r.Y1
}

// Contains reports whether the cell (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X1 && x < r.X2 && y >= r.Y1 && y < r.Y2
}

// CalculateIoU returns the Intersection over Union of two integer rectangles.
//
//	IoU = Area of Intersection / Area of Union
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0, 0.0 when the rectangles do not overlap.
//
// Example Usage:
//
//	rect1 := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	rect2 := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	CalculateIoU(rect1, rect2) // 25 / 175 = 0.142857
func CalculateIoU(r, o Rect) float32 {
	interW := min(r.X2, o.X2) - max(r.X1, o.X1)
	interH := min(r.Y2, o.Y2) - max(r.Y1, o.Y1)
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	areaR := (r.X2 - r.X1) * (r.Y2 - r.Y1)
	areaO := (o.X2 - o.X1) * (o.Y2 - o.Y1)
	unionArea := areaR + areaO - interArea
	if unionArea <= 0 {
		return 0.0
	}

	return float32(interArea) / float32(unionArea)
}

// Box is an axis-aligned box in normalized coordinates.
//
// The corner form (X1,Y1,X2,Y2) and the center form (CX,CY,W,H) describe the same box and are
// kept consistent by the constructors.
type Box struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
	CX float32 `json:"cx"`
	CY float32 `json:"cy"`
	W  float32 `json:"w"`
	H  float32 `json:"h"`
}

// NewBoxFromCorners builds a Box from its top-left and bottom-right corners.
func NewBoxFromCorners(x1, y1, x2, y2 float32) Box {
	return Box{
		X1: x1, Y1: y1, X2: x2, Y2: y2,
		CX: (x1 + x2) / 2,
		CY: (y1 + y2) / 2,
		W:  x2 - x1,
		H:  y2 - y1,
	}
}

// NewBoxFromCenter builds a Box from its center point and size.
func NewBoxFromCenter(cx, cy, w, h float32) Box {
	return Box{
		X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2,
		CX: cx, CY: cy, W: w, H: h,
	}
}

// Area returns the area of the box, 0 for inverted or degenerate boxes.
func (b Box) Area() float32 {
	w := b.X2 - b.X1
	h := b.Y2 - b.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU returns the Intersection over Union of two boxes.
//
// Arguments:
//   - o: The other box.
//
// Returns:
//   - float32: The overlap ratio in [0, 1]. A zero union (two degenerate boxes) yields 0, never NaN.
func (b Box) IoU(o Box) float32 {
	interW := math32.Min(b.X2, o.X2) - math32.Max(b.X1, o.X1)
	interH := math32.Min(b.Y2, o.Y2) - math32.Max(b.Y1, o.Y1)
	if interW <= 0 || interH <= 0 {
		return 0
	}
	inter := interW * interH

	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}

	return inter / union
}

// Normalized reports whether all four corners lie in [0, 1]. NaN corners are never normalized.
func (b Box) Normalized() bool {
	return inUnit(b.X1) && inUnit(b.Y1) && inUnit(b.X2) && inUnit(b.Y2)
}

// Clamp returns the box with its corners clamped into [0, 1] and ordered so that X1 <= X2 and
// Y1 <= Y2.
func (b Box) Clamp() Box {
	x1 := Clamp(b.X1, 0, 1)
	y1 := Clamp(b.Y1, 0, 1)
	x2 := Clamp(b.X2, 0, 1)
	y2 := Clamp(b.Y2, 0, 1)
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return NewBoxFromCorners(x1, y1, x2, y2)
}

// GridRect converts the box into integer cell coordinates on a width x height grid.
//
// Corners are truncated toward the origin and the result is clamped to [0,width) x [0,height), so
// the rectangle is safe to index with. X2 and Y2 are exclusive.
//
// Arguments:
//   - width: The number of grid columns.
//   - height: The number of grid rows.
//
// Returns:
//   - Rect: The clamped cell rectangle, possibly empty.
func (b Box) GridRect(width, height int) Rect {
	return Rect{
		X1: Clamp(int(math32.Floor(b.X1*float32(width))), 0, width),
		Y1: Clamp(int(math32.Floor(b.Y1*float32(height))), 0, height),
		X2: Clamp(int(math32.Floor(b.X2*float32(width))), 0, width),
		Y2: Clamp(int(math32.Floor(b.Y2*float32(height))), 0, height),
	}
}

func inUnit(v float32) bool {
	return v >= 0 && v <= 1
}
