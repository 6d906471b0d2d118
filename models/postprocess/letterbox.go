package postprocess

import (
	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-seg/images"
)

// Letterbox describes how an original frame was fit into the model input: scaled uniformly and
// padded symmetrically on each axis.
type Letterbox struct {
	// Scale is the uniform resize factor from original pixels to input pixels.
	Scale float32
	// PadX is the padding on each of the left and right sides, as a fraction of input width.
	PadX float32
	// PadY is the padding on each of the top and bottom sides, as a fraction of input height.
	PadY float32
}

// NewLetterbox computes the letterbox of an origW x origH frame in an inputW x inputH model input.
//
//	scale = min(inputW/origW, inputH/origH)
//	padX  = (inputW - origW*scale) / 2 / inputW
//	padY  = (inputH - origH*scale) / 2 / inputH
//
// Arguments:
//   - origW, origH: The original frame size in pixels.
//   - inputW, inputH: The model input size in pixels.
//
// Returns:
//   - Letterbox: The padding description.
//   - error: ErrConfiguration for non-positive sizes or when padding leaves no content on an axis.
func NewLetterbox(origW, origH, inputW, inputH int) (Letterbox, error) {
	if origW <= 0 || origH <= 0 {
		return Letterbox{}, configErrorf("original size must be positive, got %dx%d", origW, origH)
	}
	if inputW <= 0 || inputH <= 0 {
		return Letterbox{}, configErrorf("model input size must be positive, got %dx%d", inputW, inputH)
	}

	inW := float32(inputW)
	inH := float32(inputH)
	scale := math32.Min(inW/float32(origW), inH/float32(origH))

	lb := Letterbox{
		Scale: scale,
		PadX:  (inW - float32(origW)*scale) / 2 / inW,
		PadY:  (inH - float32(origH)*scale) / 2 / inH,
	}
	if lb.PadX >= 0.5 || lb.PadY >= 0.5 {
		return Letterbox{}, configErrorf(
			"degenerate letterbox for %dx%d in %dx%d: padding %.4f/%.4f leaves no content",
			origW, origH, inputW, inputH, lb.PadX, lb.PadY)
	}

	return lb, nil
}

// Map converts a box from model-input normalized space to original-image normalized space.
//
// Each axis is corrected independently, x' = (x - padX) / (1 - 2*padX). Boxes that reach into
// the padding are clamped to the image so the result always satisfies 0 <= x1 <= x2 <= 1.
func (l Letterbox) Map(b images.Box) images.Box {
	sx := 1 - 2*l.PadX
	sy := 1 - 2*l.PadY
	return images.NewBoxFromCorners(
		(b.X1-l.PadX)/sx,
		(b.Y1-l.PadY)/sy,
		(b.X2-l.PadX)/sx,
		(b.Y2-l.PadY)/sy,
	).Clamp()
}

// MapDetections maps every raw detection's box and returns detections that keep the model-space
// box for mask compositing.
func (l Letterbox) MapDetections(raw []RawDetection) []Detection {
	detections := make([]Detection, len(raw))
	for i, r := range raw {
		detections[i] = Detection{RawDetection: r, ModelBox: r.Box}
		detections[i].Box = l.Map(r.Box)
	}
	return detections
}

// MapBox maps one box for a square model input of modelInputSize pixels.
//
// Arguments:
//   - box: The box in model-input normalized space.
//   - originalWidth, originalHeight: The original frame size in pixels.
//   - modelInputSize: The square model input size in pixels.
//
// Returns:
//   - images.Box: The box in original-image normalized space.
//   - error: ErrConfiguration for a degenerate letterbox.
func MapBox(box images.Box, originalWidth, originalHeight, modelInputSize int) (images.Box, error) {
	lb, err := NewLetterbox(originalWidth, originalHeight, modelInputSize, modelInputSize)
	if err != nil {
		return images.Box{}, err
	}
	return lb.Map(box), nil
}
