// Package overlay - Draws frame results onto images: boxes, class labels and mask outlines.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-seg/images"
	"github.com/nvr-ai/go-seg/models/postprocess"
)

// Palette is indexed by class id modulo its length.
var Palette = []color.RGBA{
	{R: 255, A: 255},         // red
	{G: 255, A: 255},         // green
	{B: 255, A: 255},         // blue
	{R: 255, G: 255, A: 255}, // yellow
	{R: 128, B: 128, A: 255}, // purple
	{R: 255, G: 165, A: 255}, // orange
}

// ClassColor returns the drawing color for a class id.
func ClassColor(classID int) color.RGBA {
	i := classID % len(Palette)
	if i < 0 {
		i += len(Palette)
	}
	return Palette[i]
}

// Label formats a detection as "<name> <confidence>".
func Label(det postprocess.Detection) string {
	return fmt.Sprintf("%s %.2f", det.ClassName, det.Confidence)
}

// Renderer draws frame results with a fixed style.
type Renderer struct {
	// InputWidth and InputHeight are the model input size the masks were composed in. When set,
	// mask letterbox borders are cropped before scaling to the frame; when zero, a mask covers
	// the whole frame.
	InputWidth  int
	InputHeight int
	// Contour binarizes masks and sets the outline width.
	Contour postprocess.ContourConfig
	// BoxThickness is the rectangle line width in pixels.
	BoxThickness int
	// FontScale scales the Hershey label font.
	FontScale float64
}

// NewRenderer creates a renderer for masks composed at inputWidth x inputHeight.
func NewRenderer(inputWidth, inputHeight int, contour postprocess.ContourConfig) *Renderer {
	return &Renderer{
		InputWidth:   inputWidth,
		InputHeight:  inputHeight,
		Contour:      contour,
		BoxThickness: 2,
		FontScale:    0.6,
	}
}

// Draw renders result onto frame in place.
//
// Arguments:
//   - frame: A BGR frame of the size the detections were mapped to.
//   - result: The frame result; masks are optional.
//
// Returns:
//   - error: When the frame is empty or a mask cannot be converted.
func (r *Renderer) Draw(frame *gocv.Mat, result postprocess.FrameResult) error {
	if frame.Empty() {
		return errors.New("cannot draw on an empty frame")
	}
	width, height := frame.Cols(), frame.Rows()

	for i, det := range result.Detections {
		c := ClassColor(det.ClassID)

		if i < len(result.Masks) {
			if err := r.drawOutline(frame, result.Masks[i], c); err != nil {
				return errors.Wrapf(err, "drawing outline of detection %d", i)
			}
		}

		rect := PixelRect(det.Box, width, height)
		gocv.Rectangle(frame, rect, c, r.BoxThickness)

		text := Label(det)
		size, baseline := gocv.GetTextSizeWithBaseline(text, gocv.FontHersheySimplex, r.FontScale, 1)
		origin := LabelOrigin(rect, size.Y, baseline, height)
		gocv.PutText(frame, text, origin, gocv.FontHersheySimplex, r.FontScale, c, 1)
	}
	return nil
}

func (r *Renderer) drawOutline(frame *gocv.Mat, mask images.Grid, c color.RGBA) error {
	outline := r.Outline(mask, frame.Cols(), frame.Rows())
	if outline == nil {
		return nil
	}

	maskMat, err := gocv.ImageGrayToMatGray(outline)
	if err != nil {
		return err
	}
	defer maskMat.Close()

	solid := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0),
		frame.Rows(), frame.Cols(), frame.Type(),
	)
	defer solid.Close()

	solid.CopyToWithMask(frame, maskMat)
	return nil
}

// Outline extracts the contour of mask and scales it onto a width x height frame.
//
// Returns:
//   - *image.Gray: 255 on outline pixels; nil when the outline is empty.
func (r *Renderer) Outline(mask images.Grid, width, height int) *image.Gray {
	bitmap := r.Contour.Apply(mask)
	if bitmap.Count() == 0 {
		return nil
	}

	gray := bitmap.Gray()
	if crop := r.contentRect(mask.Width, mask.Height, width, height); crop != gray.Rect {
		gray = cropGray(gray, crop)
	}
	return images.ScaleGray(gray, width, height)
}

// contentRect is the part of a maskW x maskH mask that shows the frame, without letterbox
// borders.
func (r *Renderer) contentRect(maskW, maskH, frameW, frameH int) image.Rectangle {
	full := image.Rect(0, 0, maskW, maskH)
	if r.InputWidth <= 0 || r.InputHeight <= 0 {
		return full
	}

	lb, err := postprocess.NewLetterbox(frameW, frameH, r.InputWidth, r.InputHeight)
	if err != nil {
		return full
	}

	x := int(math32.Round(lb.PadX * float32(maskW)))
	y := int(math32.Round(lb.PadY * float32(maskH)))
	crop := image.Rect(x, y, maskW-x, maskH-y)
	if crop.Empty() {
		return full
	}
	return crop
}

func cropGray(img *image.Gray, rect image.Rectangle) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		src := img.Pix[(rect.Min.Y+y)*img.Stride+rect.Min.X:]
		copy(out.Pix[y*out.Stride:y*out.Stride+rect.Dx()], src[:rect.Dx()])
	}
	return out
}

// PixelRect converts a normalized box to a pixel rectangle on a width x height frame.
func PixelRect(box images.Box, width, height int) image.Rectangle {
	px := func(v float32, size int) int {
		return images.Clamp(int(math32.Round(v*float32(size))), 0, size)
	}
	return image.Rect(px(box.X1, width), px(box.Y1, height), px(box.X2, width), px(box.Y2, height))
}

// LabelOrigin places a label's baseline just above box, or just inside the frame below the
// box's top edge when the text would leave the top of the frame.
//
// Arguments:
//   - box: The detection rectangle in pixels.
//   - textHeight: The text height above the baseline.
//   - baseline: The descent below the baseline.
//   - frameHeight: The frame height in pixels.
//
// Returns:
//   - image.Point: The text origin for gocv.PutText.
func LabelOrigin(box image.Rectangle, textHeight, baseline, frameHeight int) image.Point {
	const gap = 4

	y := box.Min.Y - gap - baseline
	if y-textHeight < 0 {
		y = box.Max.Y + gap + textHeight
	}
	if y+baseline > frameHeight {
		y = box.Min.Y + gap + textHeight
	}
	return image.Pt(box.Min.X, y)
}
