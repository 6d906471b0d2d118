package inference

import (
	"context"
	"image"

	"github.com/nvr-ai/go-seg/models/model"
	"github.com/nvr-ai/go-seg/models/postprocess"
)

// Replay is a Source that returns recorded model outputs for every image, for debugging a
// layout or postprocess settings without a runtime.
type Replay struct {
	layout  model.Layout
	outputs postprocess.Outputs
}

// NewReplay creates a source that replays outputs under layout.
func NewReplay(layout model.Layout, outputs postprocess.Outputs) *Replay {
	return &Replay{layout: layout, outputs: outputs}
}

// Run returns the recorded outputs with img's size as the original frame size.
func (r *Replay) Run(ctx context.Context, img image.Image) (postprocess.Frame, error) {
	if err := ctx.Err(); err != nil {
		return postprocess.Frame{}, err
	}
	bounds := img.Bounds()
	return postprocess.Frame{
		Outputs:        r.outputs,
		OriginalWidth:  bounds.Dx(),
		OriginalHeight: bounds.Dy(),
	}, nil
}

// Layout returns the replayed model layout.
func (r *Replay) Layout() model.Layout { return r.layout }

// Close is a no-op.
func (r *Replay) Close() error { return nil }
