package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-seg/inference/providers"
	"github.com/nvr-ai/go-seg/models"
	"github.com/nvr-ai/go-seg/models/postprocess"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	config := Default()

	assert.InDelta(t, 0.45, config.Postprocess.ConfidenceThreshold, 1e-6)
	assert.InDelta(t, 0.5, config.Postprocess.NMS.IoUThreshold, 1e-6)
	assert.False(t, config.Postprocess.NMS.ClassAware)
	assert.Equal(t, 1024, config.Postprocess.MaskWidth)
	assert.Equal(t, 1024, config.Postprocess.MaskHeight)
	assert.Equal(t, 2, config.Postprocess.Contour.Thickness)
	assert.InDelta(t, 0.2, config.Postprocess.Contour.BinarizationThreshold, 1e-6)
	assert.Equal(t, runtime.NumCPU(), config.Postprocess.Workers)
	assert.Equal(t, "info", config.Log.Level)
	assert.NoError(t, config.Validate())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "segpipe.yaml", `
postprocess:
  confidence_threshold: 0.6
  nms:
    iou_threshold: 0.7
    class_aware: true
  mask_width: 512
inference:
  model_path: models/yolov8n-seg.onnx
  preset: yolov8-seg
  labels: coco
  providers:
    - backend: cpu
      enabled: true
  layout:
    box_units: normalized
log:
  level: debug
`)

	config, err := Load(path, writeFile(t, "empty.env", ""))
	require.NoError(t, err)

	assert.InDelta(t, 0.6, config.Postprocess.ConfidenceThreshold, 1e-6)
	assert.InDelta(t, 0.7, config.Postprocess.NMS.IoUThreshold, 1e-6)
	assert.True(t, config.Postprocess.NMS.ClassAware)
	assert.Equal(t, 512, config.Postprocess.MaskWidth)
	assert.Equal(t, 1024, config.Postprocess.MaskHeight, "unset fields keep their defaults")
	assert.Equal(t, "models/yolov8n-seg.onnx", config.Inference.ModelPath)
	assert.Equal(t, models.PresetYOLOv8Seg, config.Inference.Preset)
	assert.Equal(t, []providers.Provider{{Backend: providers.CPU, Enabled: true}}, config.Inference.Providers)
	assert.Equal(t, "debug", config.Log.Level)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeFile(t, "segpipe.yaml", "postprocess:\n  confidence_threshold: 0.6\n")
	env := writeFile(t, "test.env", "SEGPIPE_MASK_WIDTH=256\nSEGPIPE_IOU=0.3\n")

	t.Setenv("SEGPIPE_CONFIDENCE", "0.25")
	t.Setenv("SEGPIPE_IOU", "0.4")
	t.Setenv("SEGPIPE_MODEL", "/models/ssd.onnx")
	t.Setenv("SEGPIPE_CLASS_AWARE", "true")
	t.Cleanup(func() { os.Unsetenv("SEGPIPE_MASK_WIDTH") })

	config, err := Load(path, env)
	require.NoError(t, err)

	assert.InDelta(t, 0.25, config.Postprocess.ConfidenceThreshold, 1e-6, "environment beats the file")
	assert.InDelta(t, 0.4, config.Postprocess.NMS.IoUThreshold, 1e-6, "environment beats .env")
	assert.Equal(t, 256, config.Postprocess.MaskWidth, ".env fills unset variables")
	assert.Equal(t, "/models/ssd.onnx", config.Inference.ModelPath)
	assert.True(t, config.Postprocess.NMS.ClassAware)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "confidence above one", yaml: "postprocess:\n  confidence_threshold: 1.5\n"},
		{name: "zero iou", yaml: "postprocess:\n  nms:\n    iou_threshold: 0\n"},
		{name: "zero mask width", yaml: "postprocess:\n  mask_width: 0\n"},
		{name: "negative workers", yaml: "postprocess:\n  workers: -1\n"},
		{name: "unknown backend", yaml: "inference:\n  providers:\n    - backend: tpu\n"},
		{name: "unknown log level", yaml: "log:\n  level: loud\n"},
		{name: "malformed yaml", yaml: "postprocess: [\n"},
		{name: "malformed override", env: map[string]string{"SEGPIPE_CONFIDENCE": "high"}},
		{name: "override out of range", env: map[string]string{"SEGPIPE_MASK_HEIGHT": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeFile(t, "segpipe.yaml", tt.yaml), writeFile(t, "empty.env", ""))
			require.Error(t, err)
			assert.True(t, postprocess.IsConfiguration(err), err.Error())
		})
	}
}

func TestLoadMissingFiles(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, postprocess.IsConfiguration(err))

	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.True(t, postprocess.IsConfiguration(err))
}
