package models

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-seg/models/model"
)

// PresetName identifies a known model export.
type PresetName string

const (
	// PresetYOLOv8Seg is an ONNX YOLOv8 segmentation export: [1,116,8400] + [1,32,160,160].
	PresetYOLOv8Seg PresetName = "yolov8-seg"
	// PresetYOLOv8SegTFLite is a TFLite YOLOv8 segmentation export with channel-last prototypes.
	PresetYOLOv8SegTFLite PresetName = "yolov8-seg-tflite"
	// PresetYOLOv8Det is an ONNX YOLOv8 detection export: [1,84,8400].
	PresetYOLOv8Det PresetName = "yolov8-det"
	// PresetYOLOv8Presence is a single-class YOLOv8 head: [1,5,8400].
	PresetYOLOv8Presence PresetName = "yolov8-presence"
	// PresetSSDMobileNet is a TFLite SSD with locations/classes/scores/count outputs.
	PresetSSDMobileNet PresetName = "ssd-mobilenet"
	// PresetSSDSingle is an SSD head packed as [ymin,xmin,ymax,xmax,score,class] per box.
	PresetSSDSingle PresetName = "ssd-single"
)

var presets = map[PresetName]func() model.LayoutArgs{
	PresetYOLOv8Seg: func() model.LayoutArgs {
		return model.LayoutArgs{
			InputWidth: 640, InputHeight: 640,
			Candidates: 8400, Channels: 116, MaskChannels: 32,
			Arrangement: model.ChannelMajor, ScoreMode: model.ScoreArgmax,
			BoxEncoding: model.CenterSize, BoxUnits: model.Pixels,
			ProtoWidth: 160, ProtoHeight: 160, ProtoLayout: model.ProtoNCHW,
			Labels: YOLOClasses.Names(),
		}
	},
	PresetYOLOv8SegTFLite: func() model.LayoutArgs {
		return model.LayoutArgs{
			InputWidth: 640, InputHeight: 640,
			Candidates: 8400, Channels: 116, MaskChannels: 32,
			Arrangement: model.ChannelMajor, ScoreMode: model.ScoreArgmax,
			BoxEncoding: model.CenterSize, BoxUnits: model.Normalized,
			ProtoWidth: 160, ProtoHeight: 160, ProtoLayout: model.ProtoNHWC,
			Labels: YOLOClasses.Names(),
		}
	},
	PresetYOLOv8Det: func() model.LayoutArgs {
		return model.LayoutArgs{
			InputWidth: 640, InputHeight: 640,
			Candidates: 8400, Channels: 84,
			Arrangement: model.ChannelMajor, ScoreMode: model.ScoreArgmax,
			BoxEncoding: model.CenterSize, BoxUnits: model.Pixels,
			Labels: YOLOClasses.Names(),
		}
	},
	PresetYOLOv8Presence: func() model.LayoutArgs {
		return model.LayoutArgs{
			InputWidth: 640, InputHeight: 640,
			Candidates: 8400, Channels: 5,
			Arrangement: model.ChannelMajor, ScoreMode: model.ScoreImplicit,
			BoxEncoding: model.CenterSize, BoxUnits: model.Normalized,
		}
	},
	PresetSSDMobileNet: func() model.LayoutArgs {
		return model.LayoutArgs{
			InputWidth: 300, InputHeight: 300,
			Candidates: 10, Channels: 4,
			Arrangement: model.MultiOutputSSD, ScoreMode: model.ScoreExplicit,
			BoxEncoding: model.CornersYX, BoxUnits: model.Normalized,
			Labels: COCOClasses.Names(),
		}
	},
	PresetSSDSingle: func() model.LayoutArgs {
		return model.LayoutArgs{
			InputWidth: 320, InputHeight: 320,
			Candidates: 25, Channels: 6,
			Arrangement: model.PerBoxInterleaved, ScoreMode: model.ScoreExplicit,
			BoxEncoding: model.CornersYX, BoxUnits: model.Normalized,
			Labels: COCOClasses.Names(),
		}
	},
}

// Preset returns the layout description of a known model export.
//
// The returned args are a fresh copy; callers may override fields (for example Candidates for a
// different input size) before passing them to model.NewLayout.
//
// Arguments:
//   - name: The preset to look up.
//
// Returns:
//   - model.LayoutArgs: The preset's layout description.
//   - error: An error if the preset is unknown.
func Preset(name PresetName) (model.LayoutArgs, error) {
	build, ok := presets[name]
	if !ok {
		return model.LayoutArgs{}, errors.Errorf("unknown layout preset %q (known: %v)", name, PresetNames())
	}
	return build(), nil
}

// PresetNames lists the registered presets in sorted order.
func PresetNames() []PresetName {
	names := make([]PresetName, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
