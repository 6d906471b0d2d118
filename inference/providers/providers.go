// Package providers - Ranked ONNX Runtime execution providers.
package providers

import (
	"runtime"
	"sort"
)

// Backend names an ONNX Runtime execution provider.
type Backend string

const (
	// CPU is the default provider and always available.
	CPU Backend = "cpu"

	// CUDA uses NVIDIA CUDA for GPU acceleration.
	CUDA Backend = "cuda"

	// TensorRT uses NVIDIA TensorRT for optimized inference.
	TensorRT Backend = "tensorrt"

	// CoreML uses Apple CoreML for macOS/iOS acceleration.
	CoreML Backend = "coreml"

	// OpenVINO uses Intel OpenVINO for inference optimization.
	OpenVINO Backend = "openvino"
)

// Provider is one entry of the ranked backend list.
type Provider struct {
	// Backend specifies which execution provider to use.
	Backend Backend `json:"backend" yaml:"backend" validate:"oneof=cpu cuda tensorrt coreml openvino"`

	// Options contains provider-specific configuration options.
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`

	// Priority determines the order in which providers are tried (higher = first).
	Priority int `json:"priority" yaml:"priority"`

	// Enabled toggles whether this provider should be tried.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Rank returns the enabled providers in the order they should be tried.
//
// Providers are sorted by priority, highest first, keeping the configured order for equal
// priorities. CPU is always tried last, and is appended when the list does not name it, so a
// session can always be created.
//
// Arguments:
//   - providers: The configured providers.
//
// Returns:
//   - []Provider: The ranked providers, never empty, ending with CPU.
func Rank(providers []Provider) []Provider {
	ranked := make([]Provider, 0, len(providers)+1)
	cpu := Provider{Backend: CPU, Options: map[string]string{}, Enabled: true}

	for _, p := range providers {
		if !p.Enabled {
			continue
		}
		if p.Backend == CPU {
			cpu = p
			continue
		}
		ranked = append(ranked, p)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Priority > ranked[j].Priority
	})

	return append(ranked, cpu)
}

// DefaultProviders returns platform-appropriate execution providers.
//
// Returns:
//   - []Provider: CoreML on Apple Silicon, CUDA on Linux and Windows, CPU everywhere. TensorRT
//     and OpenVINO are listed but disabled; enable them where the runtime was built with them.
func DefaultProviders() []Provider {
	providers := []Provider{
		{Backend: CPU, Options: map[string]string{}, Priority: 1, Enabled: true},
	}

	switch runtime.GOOS {
	case "darwin":
		if runtime.GOARCH == "arm64" {
			providers = append(providers, Provider{
				Backend:  CoreML,
				Options:  CoreMLOptions{}.Map(),
				Priority: 10,
				Enabled:  true,
			})
		}
	case "linux", "windows":
		providers = append(providers,
			Provider{
				Backend:  CUDA,
				Options:  DefaultCUDAOptions().Map(),
				Priority: 20,
				Enabled:  true,
			},
			Provider{
				Backend:  TensorRT,
				Options:  DefaultTensorRTOptions().Map(),
				Priority: 30,
				Enabled:  false,
			},
			Provider{
				Backend:  OpenVINO,
				Options:  DefaultOpenVINOOptions().Map(),
				Priority: 5,
				Enabled:  false,
			},
		)
	}

	return providers
}
