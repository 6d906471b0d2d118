package inference

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-seg/inference/providers"
	"github.com/nvr-ai/go-seg/models"
	"github.com/nvr-ai/go-seg/models/model"
)

// Config describes how to load a model and run it.
type Config struct {
	// ModelPath specifies the path to the ONNX model file.
	ModelPath string `json:"model_path" yaml:"model_path"`

	// LibraryPath is the ONNX Runtime shared library; empty uses providers.SharedLibPath.
	LibraryPath string `json:"library_path" yaml:"library_path"`

	// Preset names a known export whose layout seeds the layout hints.
	Preset models.PresetName `json:"preset" yaml:"preset"`

	// Layout overrides preset fields and fills what the model's tensor shapes cannot tell.
	Layout model.LayoutArgs `json:"layout" yaml:"layout"`

	// Labels is a built-in label set ("coco", "yolo") or a label file path.
	Labels string `json:"labels" yaml:"labels"`

	// Providers are the execution providers to try, ranked by priority.
	Providers []providers.Provider `json:"providers" yaml:"providers" validate:"dive"`

	// Optimization applies to every provider attempt.
	Optimization providers.OptimizationConfig `json:"optimization" yaml:"optimization"`

	// Normalization maps pixel values into the model's input range.
	Normalization Normalization `json:"normalization" yaml:"normalization"`

	// Warmup defines how many inference runs to perform during initialization.
	Warmup int `json:"warmup" yaml:"warmup" validate:"gte=0"`
}

// DefaultConfig returns a production-ready configuration with sensible defaults
//
// Returns:
//   - Config: Platform default providers, extended graph optimization, [0, 1] pixel scaling and
//     one warmup run. ModelPath is left empty.
//
// Example:
//
//	config := DefaultConfig()
//	config.ModelPath = "path/to/model.onnx"
//	session, err := NewSession(config, log)
func DefaultConfig() Config {
	return Config{
		Providers:     providers.DefaultProviders(),
		Optimization:  providers.DefaultOptimizationConfig(),
		Normalization: DefaultNormalization(),
		Warmup:        1,
	}
}

// Hints combines the preset, the layout overrides and the label source into layout hints for
// ResolveLayout.
//
// Returns:
//   - model.LayoutArgs: The merged hints.
//   - error: An unknown preset or an unreadable label file.
func (c Config) Hints() (model.LayoutArgs, error) {
	var args model.LayoutArgs
	if c.Preset != "" {
		preset, err := models.Preset(c.Preset)
		if err != nil {
			return model.LayoutArgs{}, err
		}
		args = preset
	}
	args = args.With(c.Layout)

	if c.Labels != "" {
		labels, err := models.ResolveLabels(c.Labels)
		if err != nil {
			return model.LayoutArgs{}, errors.Wrap(err, "resolving labels")
		}
		args.Labels = labels
	}

	return args, nil
}
