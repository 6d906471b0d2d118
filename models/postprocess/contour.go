package postprocess

import "github.com/nvr-ai/go-seg/images"

// ContourConfig controls outline extraction for the renderer.
type ContourConfig struct {
	// BinarizationThreshold marks mask cells strictly above it as foreground.
	BinarizationThreshold float32 `json:"binarization_threshold" yaml:"binarization_threshold"`
	// Thickness is the outline width in pixels; 0 or less draws nothing.
	Thickness int `json:"thickness" yaml:"thickness" validate:"gte=0"`
}

// Apply runs ExtractContour with this configuration.
func (c ContourConfig) Apply(mask images.Grid) images.Bitmap {
	return ExtractContour(mask, c.BinarizationThreshold, c.Thickness)
}

// ExtractContour derives the outer outline of a probability mask.
//
// The mask is binarized (value > threshold), dilated by one pixel with an 8-connected
// neighbourhood, and the outline is the ring of newly covered pixels: dilated AND NOT original.
// A thickness above 1 widens the ring with a square structuring element of radius
// (thickness-1)/2.
//
// Arguments:
//   - mask: The probability grid.
//   - threshold: The binarization threshold.
//   - thickness: The outline thickness in pixels.
//
// Returns:
//   - images.Bitmap: The outline, the same size as mask; all zero when thickness <= 0.
//
// Example:
//
//	outline := ExtractContour(result.Masks[0], 0.5, 2)
func ExtractContour(mask images.Grid, threshold float32, thickness int) images.Bitmap {
	if thickness <= 0 || mask.Empty() {
		return images.NewBitmap(mask.Width, mask.Height)
	}

	original := Binarize(mask, threshold)
	dilated := Dilate(original, 1)

	outline := images.NewBitmap(mask.Width, mask.Height)
	for i, v := range dilated.Data {
		if v != 0 && original.Data[i] == 0 {
			outline.Data[i] = 1
		}
	}

	if radius := (thickness - 1) / 2; radius > 0 {
		return Dilate(outline, radius)
	}
	return outline
}

// Binarize sets every cell whose value is strictly greater than threshold.
func Binarize(mask images.Grid, threshold float32) images.Bitmap {
	out := images.NewBitmap(mask.Width, mask.Height)
	for i, v := range mask.Data {
		if v > threshold {
			out.Data[i] = 1
		}
	}
	return out
}

// Dilate grows set cells by a square structuring element of the given radius, clipped at the
// bitmap edges. Radius 1 is the 8-connected one-pixel dilation.
//
// The square element is separable, so rows are dilated first and columns second.
func Dilate(b images.Bitmap, radius int) images.Bitmap {
	if radius <= 0 || b.Width <= 0 || b.Height <= 0 {
		out := images.NewBitmap(b.Width, b.Height)
		copy(out.Data, b.Data)
		return out
	}

	rows := images.NewBitmap(b.Width, b.Height)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if b.At(x, y) == 0 {
				continue
			}
			lo := max(x-radius, 0)
			hi := min(x+radius, b.Width-1)
			for nx := lo; nx <= hi; nx++ {
				rows.Set(nx, y, 1)
			}
		}
	}

	out := images.NewBitmap(b.Width, b.Height)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if rows.At(x, y) == 0 {
				continue
			}
			lo := max(y-radius, 0)
			hi := min(y+radius, b.Height-1)
			for ny := lo; ny <= hi; ny++ {
				out.Set(x, ny, 1)
			}
		}
	}

	return out
}
