package providers

import (
	"strconv"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// CoreML flag bits accepted by the legacy CoreML provider API.
const (
	CoreMLUseCPUOnly           uint32 = 0x001
	CoreMLEnableOnSubgraph     uint32 = 0x002
	CoreMLOnlyEnableDeviceANE  uint32 = 0x004
	CoreMLOnlyAllowStaticShape uint32 = 0x008
	CoreMLCreateMLProgram      uint32 = 0x010
)

// CoreMLOptions contains arguments for the CoreML provider.
// See: https://onnxruntime.ai/docs/execution-providers/CoreML-ExecutionProvider.html
type CoreMLOptions struct {
	// Limit CoreML to running on CPU only.
	UseCPUOnly bool `json:"use_cpu_only" yaml:"use_cpu_only"`
	// Enable CoreML EP to run on a subgraph in the body of a control flow operator.
	EnableOnSubgraph bool `json:"enable_on_subgraph" yaml:"enable_on_subgraph"`
	// Only allow the CoreML EP to take nodes with inputs that have static shapes.
	RequireStaticInputShapes bool `json:"require_static_input_shapes" yaml:"require_static_input_shapes"`
	// Create an MLProgram format model. Requires Core ML 5 or later.
	CreateMLProgram bool `json:"create_ml_program" yaml:"create_ml_program"`
}

// Flags packs the options into the CoreML flag word.
func (o CoreMLOptions) Flags() uint32 {
	var flags uint32
	if o.UseCPUOnly {
		flags |= CoreMLUseCPUOnly
	}
	if o.EnableOnSubgraph {
		flags |= CoreMLEnableOnSubgraph
	}
	if o.RequireStaticInputShapes {
		flags |= CoreMLOnlyAllowStaticShape
	}
	if o.CreateMLProgram {
		flags |= CoreMLCreateMLProgram
	}
	return flags
}

// Map converts the options to the provider option map.
func (o CoreMLOptions) Map() map[string]string {
	return map[string]string{"flags": strconv.FormatUint(uint64(o.Flags()), 10)}
}

func appendCoreML(options *ort.SessionOptions, values map[string]string) error {
	var flags uint64
	if s, ok := values["flags"]; ok && s != "" {
		var err error
		if flags, err = strconv.ParseUint(s, 10, 32); err != nil {
			return errors.Wrapf(err, "parsing CoreML flags %q", s)
		}
	}
	return errors.Wrap(options.AppendExecutionProviderCoreML(uint32(flags)), "enabling CoreML")
}
