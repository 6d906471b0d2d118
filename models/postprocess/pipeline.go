package postprocess

import (
	"io"
	"runtime"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-seg/images"
	"github.com/nvr-ai/go-seg/models/model"
)

// Frame is one inference call's outputs plus the size of the frame that produced them.
type Frame struct {
	// ID identifies the frame in results and logs; a random UUID is used when empty.
	ID string
	// Outputs are the raw model outputs.
	Outputs Outputs
	// OriginalWidth and OriginalHeight are the frame size before letterboxing.
	OriginalWidth  int
	OriginalHeight int
}

// Pipeline runs decode, coordinate mapping, suppression and mask compositing for one model.
//
// A Pipeline keeps no per-frame state; every Run allocates its own buffers. Concurrent Runs are
// safe as long as callers do not mutate the output buffers of a frame while it is running.
type Pipeline struct {
	layout     model.Layout
	config     Config
	decoder    *Decoder
	compositor maskComposer
	log        logrus.FieldLogger
}

// maskComposer builds instance masks; MaskCompositor is the only production implementation.
type maskComposer interface {
	Compose(det Detection, protos *PrototypeMaskSet) (images.Grid, error)
	Zero() images.Grid
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for per-frame diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

// withMaskComposer replaces the mask compositor of a mask layout.
func withMaskComposer(c maskComposer) Option {
	return func(p *Pipeline) {
		p.compositor = c
	}
}

// NewPipeline validates the configuration and prepares a pipeline for a layout.
//
// Arguments:
//   - layout: The model layout resolved at load time.
//   - config: Thresholds and output sizes.
//   - opts: Optional settings such as WithLogger.
//
// Returns:
//   - *Pipeline: The pipeline.
//   - error: ErrConfiguration for an invalid config or an uninitialized layout.
func NewPipeline(layout model.Layout, config Config, opts ...Option) (*Pipeline, error) {
	if layout.Candidates() <= 0 || layout.Channels() <= 0 {
		return nil, configErrorf("layout is not initialized: %s", layout)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Workers == 0 {
		config.Workers = runtime.NumCPU()
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	p := &Pipeline{
		layout:  layout,
		config:  config,
		decoder: NewDecoder(layout, config.Workers),
		log:     discard,
	}
	if layout.HasMasks() {
		compositor, err := NewMaskCompositor(config.MaskWidth, config.MaskHeight, config.Workers)
		if err != nil {
			return nil, err
		}
		p.compositor = compositor
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Layout returns the pipeline's model layout.
func (p *Pipeline) Layout() model.Layout { return p.layout }

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() Config { return p.config }

// Run processes one frame.
//
// The outcome is one of:
//   - Status StatusDetected with confidence-descending detections and, for mask models, one mask
//     per detection. Masks that failed to composite are all zero and listed in MaskErrors.
//   - Status StatusEmpty and a nil error when no candidate cleared the threshold.
//   - An ErrConfiguration error, before any decode work, for a degenerate letterbox.
//   - An ErrDecode error with an empty result when the frame's buffers are malformed.
//
// Arguments:
//   - frame: The frame's outputs and original size.
//
// Returns:
//   - FrameResult: The frame result; always carries the frame ID.
//   - error: A configuration or decode error.
func (p *Pipeline) Run(frame Frame) (FrameResult, error) {
	id := frame.ID
	if id == "" {
		id = uuid.NewString()
	}
	log := p.log.WithField("frame_id", id)
	result := FrameResult{ID: id, Status: StatusEmpty}

	letterbox, err := NewLetterbox(frame.OriginalWidth, frame.OriginalHeight, p.layout.InputWidth(), p.layout.InputHeight())
	if err != nil {
		return result, err
	}

	var protos *PrototypeMaskSet
	if p.layout.HasMasks() {
		protos, err = NewPrototypeMaskSetForLayout(frame.Outputs.Prototypes, p.layout)
		if err != nil {
			log.WithError(err).Warn("dropping frame with unusable prototype masks")
			return result, err
		}
	}

	raw, err := p.decoder.Decode(frame.Outputs, p.config.ConfidenceThreshold)
	if err != nil {
		log.WithError(err).Warn("dropping frame that failed to decode")
		return result, err
	}
	if len(raw) == 0 {
		log.Debug("no candidates above threshold")
		return result, nil
	}

	detections, err := Suppress(letterbox.MapDetections(raw), p.config.NMS)
	if err != nil {
		return result, err
	}

	result.Status = StatusDetected
	result.Detections = detections

	if protos != nil {
		result.Masks = make([]images.Grid, len(detections))
		for i, det := range detections {
			mask, err := p.compositor.Compose(det, protos)
			if err != nil {
				maskErr := &MaskError{Index: i, Err: err}
				log.WithError(maskErr).WithField("class", det.ClassName).Warn("substituting empty mask")
				result.MaskErrors = append(result.MaskErrors, maskErr)
				mask = p.compositor.Zero()
			}
			result.Masks[i] = mask
		}
	}

	log.WithFields(logrus.Fields{
		"candidates": len(raw),
		"kept":       len(detections),
	}).Debug("frame processed")

	return result, nil
}
