package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
)

func backends(ps []Provider) []Backend {
	out := make([]Backend, len(ps))
	for i, p := range ps {
		out[i] = p.Backend
	}
	return out
}

func TestRank(t *testing.T) {
	tests := []struct {
		name      string
		providers []Provider
		want      []Backend
	}{
		{
			name: "empty falls back to cpu",
			want: []Backend{CPU},
		},
		{
			name: "priority order with cpu last",
			providers: []Provider{
				{Backend: CPU, Priority: 100, Enabled: true},
				{Backend: OpenVINO, Priority: 5, Enabled: true},
				{Backend: CUDA, Priority: 20, Enabled: true},
			},
			want: []Backend{CUDA, OpenVINO, CPU},
		},
		{
			name: "disabled providers skipped",
			providers: []Provider{
				{Backend: TensorRT, Priority: 30, Enabled: false},
				{Backend: CUDA, Priority: 20, Enabled: true},
			},
			want: []Backend{CUDA, CPU},
		},
		{
			name: "equal priority keeps configured order",
			providers: []Provider{
				{Backend: OpenVINO, Priority: 1, Enabled: true},
				{Backend: CoreML, Priority: 1, Enabled: true},
			},
			want: []Backend{OpenVINO, CoreML, CPU},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, backends(Rank(tt.providers)))
		})
	}
}

func TestRankKeepsConfiguredCPUOptions(t *testing.T) {
	ranked := Rank([]Provider{{Backend: CPU, Options: map[string]string{"k": "v"}, Enabled: true}})
	require.Len(t, ranked, 1)
	assert.Equal(t, "v", ranked[0].Options["k"])
}

func TestDefaultProviders(t *testing.T) {
	ranked := Rank(DefaultProviders())
	require.NotEmpty(t, ranked)
	assert.Equal(t, CPU, ranked[len(ranked)-1].Backend)
	for _, p := range ranked {
		assert.True(t, p.Enabled)
	}
}

func TestProviderOptionMaps(t *testing.T) {
	cuda := DefaultCUDAOptions().Map()
	assert.Equal(t, "0", cuda["device_id"])
	assert.Equal(t, "2147483648", cuda["gpu_mem_limit"])
	assert.Equal(t, "1", cuda["do_copy_in_default_stream"])
	assert.Equal(t, "0", cuda["prefer_nhwc"])

	trt := DefaultTensorRTOptions().Map()
	assert.Equal(t, "1073741824", trt["trt_max_workspace_size"])
	assert.Equal(t, "1", trt["trt_fp16_enable"])

	ov := DefaultOpenVINOOptions().Map()
	assert.Equal(t, "CPU", ov["device_type"])
	assert.Equal(t, "1", ov["num_streams"])
	assert.NotContains(t, ov, "num_of_threads")

	coreml := CoreMLOptions{UseCPUOnly: true, CreateMLProgram: true}
	assert.Equal(t, CoreMLUseCPUOnly|CoreMLCreateMLProgram, coreml.Flags())
	assert.Equal(t, "17", coreml.Map()["flags"])
}

func TestSharedLibPath(t *testing.T) {
	path, err := SharedLibPath("/opt/ort/libonnxruntime.so")
	require.NoError(t, err)
	assert.Equal(t, "/opt/ort/libonnxruntime.so", path)

	t.Setenv(LibraryEnv, "/from/env.so")
	path, err = SharedLibPath("")
	require.NoError(t, err)
	assert.Equal(t, "/from/env.so", path)

	t.Setenv(LibraryEnv, "")
	path, err = SharedLibPath("")
	if err == nil {
		assert.Contains(t, path, "third_party")
	}
}

func TestInitializeEnvironmentMissingLibrary(t *testing.T) {
	if ort.IsInitialized() {
		t.Skip("runtime already initialized by another test")
	}
	err := InitializeEnvironment("/nonexistent/libonnxruntime.so")
	assert.Error(t, err)
}
