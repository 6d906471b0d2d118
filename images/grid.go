package images

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// Grid is a row-major 2D array of float32 values, such as a probability mask.
type Grid struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Data   []float32 `json:"-"`
}

// NewGrid allocates a zero-filled grid.
func NewGrid(width, height int) Grid {
	if width <= 0 || height <= 0 {
		return Grid{}
	}
	return Grid{Width: width, Height: height, Data: make([]float32, width*height)}
}

// At returns the value at column x, row y.
func (g Grid) At(x, y int) float32 {
	return g.Data[y*g.Width+x]
}

// Set stores v at column x, row y.
func (g Grid) Set(x, y int, v float32) {
	g.Data[y*g.Width+x] = v
}

// Row returns the backing slice for row y.
func (g Grid) Row(y int) []float32 {
	return g.Data[y*g.Width : (y+1)*g.Width]
}

// Empty reports whether the grid has no cells.
func (g Grid) Empty() bool {
	return g.Width <= 0 || g.Height <= 0
}

// ResizeNearest resamples the grid to width x height with nearest-neighbor lookup.
//
// Each destination index maps to src = clamp(floor(dst * srcDim / dstDim), 0, srcDim-1), computed
// per axis in integer arithmetic so the mapping is exact and never reads outside the source.
//
// Arguments:
//   - width: Target width.
//   - height: Target height.
//
// Returns:
//   - Grid: A new grid; all zero when the source is empty.
func (g Grid) ResizeNearest(width, height int) Grid {
	out := NewGrid(width, height)
	if out.Empty() || g.Empty() {
		return out
	}

	// Column lookups are shared by every row.
	cols := make([]int, width)
	for dx := range cols {
		cols[dx] = Clamp(dx*g.Width/width, 0, g.Width-1)
	}

	for dy := 0; dy < height; dy++ {
		src := g.Row(Clamp(dy*g.Height/height, 0, g.Height-1))
		dst := out.Row(dy)
		for dx, sx := range cols {
			dst[dx] = src[sx]
		}
	}

	return out
}

// Gray renders the grid as an 8-bit grayscale image, mapping [0, 1] to [0, 255] and clamping
// values outside that range.
func (g Grid) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	for i, v := range g.Data {
		img.Pix[i] = uint8(Clamp(v, 0, 1) * 255)
	}
	return img
}

// Bitmap is a row-major binary grid holding 0 or 1 per cell.
type Bitmap struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Data   []uint8 `json:"-"`
}

// NewBitmap allocates an all-zero bitmap.
func NewBitmap(width, height int) Bitmap {
	if width <= 0 || height <= 0 {
		return Bitmap{}
	}
	return Bitmap{Width: width, Height: height, Data: make([]uint8, width*height)}
}

// At returns the cell at column x, row y.
func (b Bitmap) At(x, y int) uint8 {
	return b.Data[y*b.Width+x]
}

// Set stores v at column x, row y.
func (b Bitmap) Set(x, y int, v uint8) {
	b.Data[y*b.Width+x] = v
}

// Count returns the number of set cells.
func (b Bitmap) Count() int {
	n := 0
	for _, v := range b.Data {
		if v != 0 {
			n++
		}
	}
	return n
}

// Gray renders set cells as white on black.
func (b Bitmap) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, b.Width, b.Height))
	for i, v := range b.Data {
		if v != 0 {
			img.Pix[i] = 255
		}
	}
	return img
}

// ScaleGray resizes a grayscale raster to width x height with nearest-neighbor sampling, which
// keeps binary outlines binary.
//
// Arguments:
//   - img: The source raster.
//   - width: Target width.
//   - height: Target height.
//
// Returns:
//   - *image.Gray: The resized raster.
func ScaleGray(img *image.Gray, width, height int) *image.Gray {
	if img.Bounds().Dx() == width && img.Bounds().Dy() == height {
		return img
	}

	scaled := resize.Resize(uint(width), uint(height), img, resize.NearestNeighbor)
	if gray, ok := scaled.(*image.Gray); ok {
		return gray
	}

	out := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.SetGray(x, y, color.GrayModel.Convert(scaled.At(x, y)).(color.Gray))
		}
	}
	return out
}
