package providers

import (
	"runtime"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// GraphOptimization names an ONNX Runtime graph optimization level.
type GraphOptimization string

const (
	GraphOptimizationDisabled GraphOptimization = "disabled"
	GraphOptimizationBasic    GraphOptimization = "basic"
	GraphOptimizationExtended GraphOptimization = "extended"
	GraphOptimizationAll      GraphOptimization = "all"
)

// OptimizationConfig contains the ONNX Runtime session settings shared by every provider.
type OptimizationConfig struct {
	// GraphOptimization controls the level of graph optimization.
	GraphOptimization GraphOptimization `json:"graph_optimization" yaml:"graph_optimization" validate:"omitempty,oneof=disabled basic extended all"`

	// ParallelExecution runs independent graph nodes concurrently.
	ParallelExecution bool `json:"parallel_execution" yaml:"parallel_execution"`

	// IntraOpNumThreads sets threads for parallelizing ops; 0 lets the runtime decide.
	IntraOpNumThreads int `json:"intra_op_num_threads" yaml:"intra_op_num_threads" validate:"gte=0"`

	// InterOpNumThreads sets threads for parallelizing independent ops; 0 lets the runtime decide.
	InterOpNumThreads int `json:"inter_op_num_threads" yaml:"inter_op_num_threads" validate:"gte=0"`

	// EnableMemoryPattern enables memory pattern optimization.
	EnableMemoryPattern bool `json:"enable_memory_pattern" yaml:"enable_memory_pattern"`

	// EnableCPUMemArena enables the CPU memory arena.
	EnableCPUMemArena bool `json:"enable_cpu_mem_arena" yaml:"enable_cpu_mem_arena"`
}

// DefaultOptimizationConfig returns a production-ready optimization configuration
//
// Returns:
//   - OptimizationConfig: Extended graph optimization with half the cores for intra-op work.
func DefaultOptimizationConfig() OptimizationConfig {
	numCPU := runtime.NumCPU()

	return OptimizationConfig{
		GraphOptimization:   GraphOptimizationExtended,
		ParallelExecution:   false,
		IntraOpNumThreads:   max(1, numCPU/2),
		InterOpNumThreads:   max(1, numCPU/4),
		EnableMemoryPattern: true,
		EnableCPUMemArena:   true,
	}
}

func (c OptimizationConfig) level() ort.GraphOptimizationLevel {
	switch c.GraphOptimization {
	case GraphOptimizationDisabled:
		return ort.GraphOptimizationLevelDisableAll
	case GraphOptimizationBasic:
		return ort.GraphOptimizationLevelEnableBasic
	case GraphOptimizationAll:
		return ort.GraphOptimizationLevelEnableAll
	default:
		return ort.GraphOptimizationLevelEnableExtended
	}
}

// NewSessionOptions builds session options for one provider.
//
// The caller owns the returned options and must Destroy them.
//
// Arguments:
//   - config: Settings shared by every provider.
//   - provider: The execution provider to enable; CPU needs no extra setup.
//
// Returns:
//   - *ort.SessionOptions: Configured session options.
//   - error: When the runtime rejects a setting or the provider.
func NewSessionOptions(config OptimizationConfig, provider Provider) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "creating session options")
	}

	var mode ort.ExecutionMode = ort.ExecutionModeSequential
	if config.ParallelExecution {
		mode = ort.ExecutionModeParallel
	}

	steps := []func() error{
		func() error { return options.SetGraphOptimizationLevel(config.level()) },
		func() error { return options.SetExecutionMode(mode) },
		func() error { return options.SetIntraOpNumThreads(config.IntraOpNumThreads) },
		func() error { return options.SetInterOpNumThreads(config.InterOpNumThreads) },
		func() error { return options.SetMemPattern(config.EnableMemoryPattern) },
		func() error { return options.SetCpuMemArena(config.EnableCPUMemArena) },
		func() error { return appendProvider(options, provider) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			options.Destroy()
			return nil, err
		}
	}

	return options, nil
}

func appendProvider(options *ort.SessionOptions, provider Provider) error {
	switch provider.Backend {
	case CPU:
		return nil
	case CUDA:
		return appendCUDA(options, provider.Options)
	case TensorRT:
		return appendTensorRT(options, provider.Options)
	case CoreML:
		return appendCoreML(options, provider.Options)
	case OpenVINO:
		return appendOpenVINO(options, provider.Options)
	default:
		return errors.Errorf("unsupported execution provider: %s", provider.Backend)
	}
}
