package providers

import (
	"strconv"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// OpenVINOOptions contains arguments for the OpenVINO provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type OpenVINOOptions struct {
	// Overrides the accelerator hardware type, e.g. CPU, GPU or NPU.
	DeviceType string `json:"device_type" yaml:"device_type"`
	// FP32, FP16 or ACCURACY.
	Precision string `json:"precision" yaml:"precision"`
	// Overrides the accelerator default number of threads.
	NumOfThreads int `json:"num_of_threads" yaml:"num_of_threads"`
	// Overrides the accelerator default streams.
	NumStreams int `json:"num_streams" yaml:"num_streams"`
	// Rewrites dynamic shaped models to static shape at runtime.
	DisableDynamicShapes bool `json:"disable_dynamic_shapes" yaml:"disable_dynamic_shapes"`
}

// DefaultOpenVINOOptions targets the CPU plugin at FP32.
func DefaultOpenVINOOptions() OpenVINOOptions {
	return OpenVINOOptions{
		DeviceType:   "CPU",
		Precision:    "FP32",
		NumOfThreads: 0,
		NumStreams:   1,
	}
}

// Map converts the options to the key/value form ONNX Runtime expects. Zero counts are left out
// so the plugin defaults apply.
func (o OpenVINOOptions) Map() map[string]string {
	values := map[string]string{
		"device_type":            o.DeviceType,
		"precision":              o.Precision,
		"disable_dynamic_shapes": strconv.FormatBool(o.DisableDynamicShapes),
	}
	if o.NumOfThreads > 0 {
		values["num_of_threads"] = strconv.Itoa(o.NumOfThreads)
	}
	if o.NumStreams > 0 {
		values["num_streams"] = strconv.Itoa(o.NumStreams)
	}
	return values
}

func appendOpenVINO(options *ort.SessionOptions, values map[string]string) error {
	return errors.Wrap(options.AppendExecutionProviderOpenVINO(values), "enabling OpenVINO")
}
