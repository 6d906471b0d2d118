package postprocess

import (
	"runtime"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds the per-pipeline thresholds and output sizes.
type Config struct {
	// ConfidenceThreshold drops candidates below this confidence.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold" validate:"gte=0,lte=1"`
	// NMS configures suppression of overlapping detections.
	NMS NMSConfig `json:"nms" yaml:"nms"`
	// MaskWidth and MaskHeight are the instance mask resolution.
	MaskWidth  int `json:"mask_width"  yaml:"mask_width"  validate:"gt=0"`
	MaskHeight int `json:"mask_height" yaml:"mask_height" validate:"gt=0"`
	// Contour configures outline extraction for the renderer.
	Contour ContourConfig `json:"contour" yaml:"contour"`
	// Workers splits decode and mask accumulation; 0 uses one per CPU core.
	Workers int `json:"workers" yaml:"workers" validate:"gte=0"`
}

// DefaultConfig returns a production-ready configuration with sensible defaults
//
// Returns:
//   - Config: Confidence 0.45, class-agnostic NMS at IoU 0.5, 1024x1024 masks, 2 pixel contours
//     binarized at 0.2.
//
// Example:
//
//	config := DefaultConfig()
//	config.ConfidenceThreshold = 0.6
//	pipeline, err := NewPipeline(layout, config)
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.45,
		NMS:                 DefaultNMSConfig(),
		MaskWidth:           1024,
		MaskHeight:          1024,
		Contour: ContourConfig{
			BinarizationThreshold: 0.2,
			Thickness:             2,
		},
		Workers: runtime.NumCPU(),
	}
}

// Validate checks every field against its constraints.
//
// Returns:
//   - error: An error wrapping ErrConfiguration that lists the failing fields.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(ErrConfiguration, err.Error())
	}
	return nil
}
