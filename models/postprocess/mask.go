package postprocess

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-seg/images"
	"github.com/nvr-ai/go-seg/models/model"
)

// PrototypeMaskSet is the shared, read-only mask basis produced by one inference call.
type PrototypeMaskSet struct {
	channels int
	width    int
	height   int
	layout   model.ProtoLayout
	data     []float32
}

// NewPrototypeMaskSet wraps a prototype buffer without copying it.
//
// Arguments:
//   - data: The prototype tensor, channels*height*width values.
//   - channels: M, the number of prototype channels.
//   - width, height: The prototype grid size.
//   - layout: Memory order of data, NCHW or NHWC.
//
// Returns:
//   - *PrototypeMaskSet: The prototype set.
//   - error: ErrConfiguration for non-positive dimensions, ErrDecode when data is too short.
func NewPrototypeMaskSet(data []float32, channels, width, height int, layout model.ProtoLayout) (*PrototypeMaskSet, error) {
	if channels <= 0 || width <= 0 || height <= 0 {
		return nil, configErrorf("prototype dimensions must be positive, got %dx%dx%d", channels, height, width)
	}
	if layout != model.ProtoNCHW && layout != model.ProtoNHWC {
		return nil, configErrorf("unknown prototype layout %q", layout)
	}
	if need := channels * width * height; len(data) < need {
		return nil, decodeErrorf("prototype buffer holds %d values, %dx%dx%d needs %d", len(data), channels, height, width, need)
	}

	return &PrototypeMaskSet{
		channels: channels,
		width:    width,
		height:   height,
		layout:   layout,
		data:     data,
	}, nil
}

// NewPrototypeMaskSetForLayout wraps the prototype buffer described by a model layout.
func NewPrototypeMaskSetForLayout(data []float32, layout model.Layout) (*PrototypeMaskSet, error) {
	return NewPrototypeMaskSet(data, layout.MaskChannels(), layout.ProtoWidth(), layout.ProtoHeight(), layout.ProtoLayout())
}

// Channels is M.
func (p *PrototypeMaskSet) Channels() int { return p.channels }

// Width is the prototype grid width.
func (p *PrototypeMaskSet) Width() int { return p.width }

// Height is the prototype grid height.
func (p *PrototypeMaskSet) Height() int { return p.height }

// At returns channel m at cell (x, y).
func (p *PrototypeMaskSet) At(m, x, y int) float32 {
	if p.layout == model.ProtoNHWC {
		return p.data[(y*p.width+x)*p.channels+m]
	}
	return p.data[(m*p.height+y)*p.width+x]
}

// MaskCompositor builds per-detection instance masks from a prototype set.
type MaskCompositor struct {
	width   int
	height  int
	workers int
}

// NewMaskCompositor creates a compositor that outputs width x height masks.
//
// Arguments:
//   - width, height: The target mask resolution.
//   - workers: Goroutines used to split the accumulation rows; values below 2 run serially.
//
// Returns:
//   - *MaskCompositor: The compositor.
//   - error: ErrConfiguration for a non-positive target size.
func NewMaskCompositor(width, height, workers int) (*MaskCompositor, error) {
	if width <= 0 || height <= 0 {
		return nil, configErrorf("mask size must be positive, got %dx%d", width, height)
	}
	return &MaskCompositor{width: width, height: height, workers: workers}, nil
}

// Zero returns an all-zero mask at the target resolution.
func (c *MaskCompositor) Zero() images.Grid {
	return images.NewGrid(c.width, c.height)
}

// Compose combines the prototype channels with one detection's coefficients.
//
// The detection's model-space box is converted to a rectangle on the prototype grid. Inside it
// each cell accumulates proto[m][y][x] * coeff[m] over all channels; every cell outside it stays
// exactly 0. The result is resized to the target resolution with nearest-neighbor sampling.
//
// A panic while compositing is recovered and returned as an error so the caller can substitute
// Zero() for this detection only.
//
// Arguments:
//   - det: The detection, with ModelBox in model-input space and one coefficient per channel.
//   - protos: The prototype set of the same inference call.
//
// Returns:
//   - images.Grid: The instance mask at the target resolution.
//   - error: A mismatch between coefficients and channels, or a recovered panic.
func (c *MaskCompositor) Compose(det Detection, protos *PrototypeMaskSet) (mask images.Grid, err error) {
	defer func() {
		if r := recover(); r != nil {
			mask = images.Grid{}
			err = errors.Errorf("panic while compositing: %v", r)
		}
	}()

	if protos == nil {
		return images.Grid{}, errors.New("no prototype set")
	}
	if len(det.Coefficients) != protos.channels {
		return images.Grid{}, errors.Errorf(
			"detection has %d mask coefficients, prototype set has %d channels",
			len(det.Coefficients), protos.channels)
	}

	grid := images.NewGrid(protos.width, protos.height)
	rect := det.ModelBox.GridRect(protos.width, protos.height)

	if !rect.Empty() {
		parts := images.Partitions(rect.Y2-rect.Y1, c.workers)
		failures := make([]error, len(parts))

		images.ForEachPartition(parts, func(part, start, end int) {
			defer func() {
				if r := recover(); r != nil {
					failures[part] = errors.Errorf("panic while compositing rows %d-%d: %v", rect.Y1+start, rect.Y1+end, r)
				}
			}()

			for y := rect.Y1 + start; y < rect.Y1+end; y++ {
				row := grid.Row(y)
				for x := rect.X1; x < rect.X2; x++ {
					var sum float32
					for m, coeff := range det.Coefficients {
						sum += protos.At(m, x, y) * coeff
					}
					row[x] = sum
				}
			}
		})

		for _, failure := range failures {
			if failure != nil {
				return images.Grid{}, failure
			}
		}
	}

	return grid.ResizeNearest(c.width, c.height), nil
}
