package providers

import (
	"strconv"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// CUDAOptions contains arguments for the CUDA provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/CUDA-ExecutionProvider.html#configuration-options
type CUDAOptions struct {
	// The device ID.
	DeviceID int `json:"device_id" yaml:"device_id"`
	// The size limit of the device memory arena in bytes.
	GPUMemLimit int64 `json:"gpu_mem_limit" yaml:"gpu_mem_limit"`
	// kNextPowerOfTwo or kSameAsRequested.
	ArenaExtendStrategy string `json:"arena_extend_strategy" yaml:"arena_extend_strategy"`
	// EXHAUSTIVE, HEURISTIC or DEFAULT.
	CudnnConvAlgoSearch string `json:"cudnn_conv_algo_search" yaml:"cudnn_conv_algo_search"`
	// Whether to do copies in the default stream or use separate streams.
	DoCopyInDefaultStream bool `json:"do_copy_in_default_stream" yaml:"do_copy_in_default_stream"`
	// If this option is enabled, the execution provider prefers NHWC operators over NCHW.
	PreferNHWC bool `json:"prefer_nhwc" yaml:"prefer_nhwc"`
}

// DefaultCUDAOptions uses device 0 with a 2GB arena.
func DefaultCUDAOptions() CUDAOptions {
	return CUDAOptions{
		DeviceID:              0,
		GPUMemLimit:           2 << 30,
		ArenaExtendStrategy:   "kSameAsRequested",
		CudnnConvAlgoSearch:   "HEURISTIC",
		DoCopyInDefaultStream: true,
	}
}

// Map converts the options to the key/value form ONNX Runtime expects.
func (o CUDAOptions) Map() map[string]string {
	return map[string]string{
		"device_id":                 strconv.Itoa(o.DeviceID),
		"gpu_mem_limit":             strconv.FormatInt(o.GPUMemLimit, 10),
		"arena_extend_strategy":     o.ArenaExtendStrategy,
		"cudnn_conv_algo_search":    o.CudnnConvAlgoSearch,
		"do_copy_in_default_stream": boolFlag(o.DoCopyInDefaultStream),
		"prefer_nhwc":               boolFlag(o.PreferNHWC),
	}
}

// TensorRTOptions contains arguments for the TensorRT provider.
// See: https://onnxruntime.ai/docs/execution-providers/TensorRT-ExecutionProvider.html
type TensorRTOptions struct {
	DeviceID          int   `json:"device_id"               yaml:"device_id"`
	MaxWorkspaceSize  int64 `json:"trt_max_workspace_size"  yaml:"trt_max_workspace_size"`
	FP16Enable        bool  `json:"trt_fp16_enable"         yaml:"trt_fp16_enable"`
	EngineCacheEnable bool  `json:"trt_engine_cache_enable" yaml:"trt_engine_cache_enable"`
}

// DefaultTensorRTOptions uses device 0, a 1GB workspace, FP16 and the engine cache.
func DefaultTensorRTOptions() TensorRTOptions {
	return TensorRTOptions{
		DeviceID:          0,
		MaxWorkspaceSize:  1 << 30,
		FP16Enable:        true,
		EngineCacheEnable: true,
	}
}

// Map converts the options to the key/value form ONNX Runtime expects.
func (o TensorRTOptions) Map() map[string]string {
	return map[string]string{
		"device_id":               strconv.Itoa(o.DeviceID),
		"trt_max_workspace_size":  strconv.FormatInt(o.MaxWorkspaceSize, 10),
		"trt_fp16_enable":         boolFlag(o.FP16Enable),
		"trt_engine_cache_enable": boolFlag(o.EngineCacheEnable),
	}
}

func appendCUDA(options *ort.SessionOptions, values map[string]string) error {
	cuda, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return errors.Wrap(err, "creating CUDA provider options")
	}
	defer cuda.Destroy()

	if err := cuda.Update(values); err != nil {
		return errors.Wrap(err, "updating CUDA provider options")
	}
	return errors.Wrap(options.AppendExecutionProviderCUDA(cuda), "enabling CUDA")
}

func appendTensorRT(options *ort.SessionOptions, values map[string]string) error {
	trt, err := ort.NewTensorRTProviderOptions()
	if err != nil {
		return errors.Wrap(err, "creating TensorRT provider options")
	}
	defer trt.Destroy()

	if err := trt.Update(values); err != nil {
		return errors.Wrap(err, "updating TensorRT provider options")
	}
	return errors.Wrap(options.AppendExecutionProviderTensorRT(trt), "enabling TensorRT")
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
