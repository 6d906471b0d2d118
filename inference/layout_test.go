package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-seg/models/model"
	"github.com/nvr-ai/go-seg/models/postprocess"
)

func tensor(name string, shape ...int64) TensorInfo {
	return TensorInfo{Name: name, Shape: shape}
}

func TestTensorInfoSize(t *testing.T) {
	assert.Equal(t, 116*8400, tensor("out", 1, 116, 8400).Size())
	assert.Equal(t, -1, tensor("out", -1, 116, 8400).Size())
	assert.Equal(t, 1, tensor("count", 1).Size())
}

func TestResolveLayoutYOLOv8Seg(t *testing.T) {
	binding, err := ResolveLayout(
		tensor("images", 1, 3, 640, 640),
		[]TensorInfo{tensor("output0", 1, 116, 8400), tensor("output1", 1, 32, 160, 160)},
		model.LayoutArgs{BoxUnits: model.Pixels, Labels: []string{"person"}},
	)
	require.NoError(t, err)

	layout := binding.Layout
	assert.Equal(t, ImageNCHW, binding.ImageLayout)
	assert.Equal(t, []OutputRole{RoleDetections, RolePrototypes}, binding.Roles)
	assert.Equal(t, []string{"output0", "output1"}, binding.OutputNames())
	assert.Equal(t, model.ChannelMajor, layout.Arrangement())
	assert.Equal(t, 640, layout.InputWidth())
	assert.Equal(t, 640, layout.InputHeight())
	assert.Equal(t, 8400, layout.Candidates())
	assert.Equal(t, 116, layout.Channels())
	assert.Equal(t, 32, layout.MaskChannels())
	assert.Equal(t, 80, layout.ClassChannels())
	assert.Equal(t, 160, layout.ProtoWidth())
	assert.Equal(t, model.ProtoNCHW, layout.ProtoLayout())
	assert.Equal(t, model.Pixels, layout.BoxUnits())
	assert.Equal(t, []string{"person"}, layout.Labels())
}

func TestResolveLayoutChannelLastPrototypes(t *testing.T) {
	binding, err := ResolveLayout(
		tensor("input", 1, 640, 640, 3),
		[]TensorInfo{tensor("protos", 1, 160, 160, 32), tensor("boxes", 1, 116, 8400)},
		model.LayoutArgs{},
	)
	require.NoError(t, err)

	assert.Equal(t, ImageNHWC, binding.ImageLayout)
	assert.Equal(t, []OutputRole{RolePrototypes, RoleDetections}, binding.Roles)
	assert.Equal(t, model.ProtoNHWC, binding.Layout.ProtoLayout())
	assert.Equal(t, 32, binding.Layout.MaskChannels())
	assert.Equal(t, 160, binding.Layout.ProtoHeight())
}

func TestResolveLayoutInterleaved(t *testing.T) {
	binding, err := ResolveLayout(
		tensor("input", 1, 3, 320, 320),
		[]TensorInfo{tensor("detections", 1, 25, 6)},
		model.LayoutArgs{ScoreMode: model.ScoreExplicit, BoxEncoding: model.CornersYX},
	)
	require.NoError(t, err)

	layout := binding.Layout
	assert.Equal(t, model.PerBoxInterleaved, layout.Arrangement())
	assert.Equal(t, 25, layout.Candidates())
	assert.Equal(t, 6, layout.Channels())
	assert.Equal(t, model.ScoreExplicit, layout.ScoreMode())
	assert.Equal(t, model.CornersYX, layout.BoxEncoding())
	assert.False(t, layout.HasMasks())
}

func TestResolveLayoutSSD(t *testing.T) {
	tests := []struct {
		name    string
		outputs []TensorInfo
		roles   []OutputRole
	}{
		{
			name: "positional",
			outputs: []TensorInfo{
				tensor("TFLite_Detection_PostProcess", 1, 10, 4),
				tensor("TFLite_Detection_PostProcess:1", 1, 10),
				tensor("TFLite_Detection_PostProcess:2", 1, 10),
				tensor("TFLite_Detection_PostProcess:3", 1),
			},
			roles: []OutputRole{RoleLocations, RoleClasses, RoleScores, RoleCount},
		},
		{
			name: "named",
			outputs: []TensorInfo{
				tensor("detection_scores", 1, 10),
				tensor("num_detections", 1),
				tensor("detection_boxes", 1, 10, 4),
				tensor("detection_classes", 1, 10),
			},
			roles: []OutputRole{RoleScores, RoleCount, RoleLocations, RoleClasses},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binding, err := ResolveLayout(tensor("input", 1, 300, 300, 3), tt.outputs, model.LayoutArgs{})
			require.NoError(t, err)

			assert.Equal(t, tt.roles, binding.Roles)
			assert.Equal(t, model.MultiOutputSSD, binding.Layout.Arrangement())
			assert.Equal(t, model.ScoreExplicit, binding.Layout.ScoreMode())
			assert.Equal(t, model.CornersYX, binding.Layout.BoxEncoding())
			assert.Equal(t, 10, binding.Layout.Candidates())
			assert.Equal(t, 300, binding.Layout.InputWidth())
		})
	}
}

func TestResolveLayoutDynamicDimensionsUseHints(t *testing.T) {
	binding, err := ResolveLayout(
		tensor("images", -1, 3, -1, -1),
		[]TensorInfo{tensor("output0", -1, 84, -1)},
		model.LayoutArgs{
			InputWidth: 320, InputHeight: 320,
			Candidates: 2100, Channels: 84,
			Arrangement: model.ChannelMajor,
		},
	)
	require.NoError(t, err)

	assert.Equal(t, 320, binding.Layout.InputWidth())
	assert.Equal(t, 320, binding.Layout.InputHeight())
	assert.Equal(t, 2100, binding.Layout.Candidates())
	assert.Equal(t, 84, binding.Layout.Channels())
	assert.Equal(t, model.ChannelMajor, binding.Layout.Arrangement())
}

func TestResolveLayoutStaticShapeWinsOverHints(t *testing.T) {
	binding, err := ResolveLayout(
		tensor("images", 1, 3, 640, 640),
		[]TensorInfo{tensor("output0", 1, 84, 8400)},
		model.LayoutArgs{InputWidth: 320, Candidates: 2100},
	)
	require.NoError(t, err)

	assert.Equal(t, 640, binding.Layout.InputWidth())
	assert.Equal(t, 8400, binding.Layout.Candidates())
}

func TestResolveLayoutErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   TensorInfo
		outputs []TensorInfo
		hints   model.LayoutArgs
	}{
		{
			name:    "three outputs",
			input:   tensor("images", 1, 3, 640, 640),
			outputs: []TensorInfo{tensor("a", 1, 84, 8400), tensor("b", 1, 10), tensor("c", 1)},
		},
		{
			name:    "mask channels without prototypes",
			input:   tensor("images", 1, 3, 640, 640),
			outputs: []TensorInfo{tensor("output0", 1, 116, 8400)},
			hints:   model.LayoutArgs{MaskChannels: 32, ProtoWidth: 160, ProtoHeight: 160},
		},
		{
			name:    "dynamic candidates without a hint",
			input:   tensor("images", 1, 3, 640, 640),
			outputs: []TensorInfo{tensor("output0", 1, 84, -1)},
		},
		{
			name:    "grayscale input",
			input:   tensor("images", 1, 1, 640, 640),
			outputs: []TensorInfo{tensor("output0", 1, 84, 8400)},
		},
		{
			name:    "rank-2 input",
			input:   tensor("images", 640, 640),
			outputs: []TensorInfo{tensor("output0", 1, 84, 8400)},
		},
		{
			name:    "two detection heads",
			input:   tensor("images", 1, 3, 640, 640),
			outputs: []TensorInfo{tensor("a", 1, 84, 8400), tensor("b", 1, 84, 8400)},
		},
		{
			name:  "ssd without a count",
			input: tensor("input", 1, 300, 300, 3),
			outputs: []TensorInfo{
				tensor("boxes", 1, 10, 4), tensor("classes", 1, 10), tensor("scores", 1, 10), tensor("extra", 1, 10),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveLayout(tt.input, tt.outputs, tt.hints)
			require.Error(t, err)
			assert.True(t, postprocess.IsConfiguration(err), err.Error())
		})
	}
}

func TestBindingRoute(t *testing.T) {
	binding := Binding{Roles: []OutputRole{RoleScores, RoleCount, RoleLocations, RoleClasses}}

	out, err := binding.Route([][]float32{{0.9}, {1}, {0, 0, 1, 1}, {3}})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.9}, out.Scores)
	assert.Equal(t, []float32{1}, out.Count)
	assert.Equal(t, []float32{0, 0, 1, 1}, out.Locations)
	assert.Equal(t, []float32{3}, out.Classes)
	assert.Nil(t, out.Detections)

	_, err = binding.Route([][]float32{{0.9}})
	require.Error(t, err)
	assert.True(t, postprocess.IsDecode(err))
}
