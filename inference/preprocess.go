package inference

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-seg/images"
	"github.com/nvr-ai/go-seg/models/postprocess"
)

// Normalization maps 8-bit channel values into model input values: (v - Mean) / Std.
type Normalization struct {
	Mean float32 `json:"mean" yaml:"mean"`
	Std  float32 `json:"std"  yaml:"std"  validate:"gt=0"`
}

// DefaultNormalization scales channels into [0, 1].
func DefaultNormalization() Normalization {
	return Normalization{Mean: 0, Std: 255}
}

// PadColor fills the letterbox borders.
var PadColor = color.NRGBA{A: 255}

// Letterbox fits img into a width x height canvas, keeping its aspect ratio and centering it
// between equal borders.
//
// The returned postprocess.Letterbox describes the same geometry, so boxes predicted on the
// canvas map back onto img.
//
// Arguments:
//   - img: The original frame.
//   - width, height: The model input size.
//
// Returns:
//   - *image.NRGBA: The padded canvas.
//   - postprocess.Letterbox: The scale and padding applied.
//   - error: ErrConfiguration for an empty frame or a degenerate letterbox.
func Letterbox(img image.Image, width, height int) (*image.NRGBA, postprocess.Letterbox, error) {
	bounds := img.Bounds()
	lb, err := postprocess.NewLetterbox(bounds.Dx(), bounds.Dy(), width, height)
	if err != nil {
		return nil, postprocess.Letterbox{}, err
	}

	w := max(1, int(math32.Round(float32(bounds.Dx())*lb.Scale)))
	h := max(1, int(math32.Round(float32(bounds.Dy())*lb.Scale)))

	canvas := imaging.New(width, height, PadColor)
	if w == bounds.Dx() && h == bounds.Dy() {
		return imaging.PasteCenter(canvas, img), lb, nil
	}
	return imaging.PasteCenter(canvas, imaging.Resize(img, w, h, imaging.Linear)), lb, nil
}

// FillTensor writes an RGB image into a float32 tensor buffer.
//
// Rows are split across one goroutine per CPU.
//
// Arguments:
//   - img: The letterboxed input image.
//   - dst: The tensor buffer, at least 3 * width * height values.
//   - order: NCHW (planar) or NHWC (interleaved).
//   - norm: The per-channel normalization.
//
// Returns:
//   - error: When dst is too small or the normalization divides by zero.
func FillTensor(img *image.NRGBA, dst []float32, order ImageLayout, norm Normalization) error {
	width := img.Rect.Dx()
	height := img.Rect.Dy()
	plane := width * height

	if len(dst) < plane*3 {
		return errors.Errorf("tensor holds %d floats, a %dx%d RGB image needs %d", len(dst), width, height, plane*3)
	}
	if norm.Std == 0 {
		return errors.New("normalization std must not be zero")
	}

	images.Parallel(height, func(start, end int) {
		for y := start; y < end; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+width*4]
			for x := 0; x < width; x++ {
				r := (float32(row[x*4]) - norm.Mean) / norm.Std
				g := (float32(row[x*4+1]) - norm.Mean) / norm.Std
				b := (float32(row[x*4+2]) - norm.Mean) / norm.Std

				i := y*width + x
				if order == ImageNHWC {
					dst[i*3], dst[i*3+1], dst[i*3+2] = r, g, b
					continue
				}
				dst[i], dst[plane+i], dst[2*plane+i] = r, g, b
			}
		}
	})

	return nil
}
