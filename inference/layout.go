// Package inference - Inference-engine side of the pipeline: layout resolution, frame
// preprocessing and ONNX Runtime sessions.
package inference

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-seg/models/model"
	"github.com/nvr-ai/go-seg/models/postprocess"
)

// TensorInfo is the name and shape of one model input or output.
//
// Dynamic dimensions are reported as -1 by ONNX Runtime.
type TensorInfo struct {
	Name  string  `json:"name"  yaml:"name"`
	Shape []int64 `json:"shape" yaml:"shape"`
}

// Size is the number of elements, or -1 when any dimension is dynamic.
func (t TensorInfo) Size() int {
	size := 1
	for _, d := range t.Shape {
		if d <= 0 {
			return -1
		}
		size *= int(d)
	}
	return size
}

func (t TensorInfo) dim(i int) int {
	if i < 0 || i >= len(t.Shape) || t.Shape[i] <= 0 {
		return 0
	}
	return int(t.Shape[i])
}

// ImageLayout is the memory order of the image input tensor.
type ImageLayout string

const (
	// ImageNCHW is [1, 3, H, W].
	ImageNCHW ImageLayout = "nchw"
	// ImageNHWC is [1, H, W, 3].
	ImageNHWC ImageLayout = "nhwc"
)

// OutputRole tells which postprocess buffer a model output feeds.
type OutputRole string

const (
	RoleDetections OutputRole = "detections"
	RolePrototypes OutputRole = "prototypes"
	RoleLocations  OutputRole = "locations"
	RoleClasses    OutputRole = "classes"
	RoleScores     OutputRole = "scores"
	RoleCount      OutputRole = "count"
)

// Binding is a model layout together with how the model's tensors map onto it.
type Binding struct {
	// Layout is the validated output layout.
	Layout model.Layout
	// Input is the image input tensor.
	Input TensorInfo
	// ImageLayout is the memory order of Input.
	ImageLayout ImageLayout
	// Outputs are the model outputs in session order.
	Outputs []TensorInfo
	// Roles[i] is the role of Outputs[i].
	Roles []OutputRole
}

// ResolveLayout derives the model layout from its tensor shapes. It runs once, when the model is
// loaded; the result is never re-derived per frame.
//
// Shape rules:
//   - input [1,3,H,W] is NCHW, [1,H,W,3] is NHWC.
//   - four outputs are a multi-output SSD head: the [1,N,4] tensor holds locations, the
//     single-element tensor holds the valid count, and the remaining two are classes then scores
//     (by name when the names say so, by position otherwise).
//   - otherwise the rank-3 output is the detection head, [1,C,N] with C < N channel-major and
//     [1,N,C] per-box interleaved, and an optional rank-4 output holds the prototypes, [1,M,H,W]
//     NCHW or [1,H,W,M] NHWC.
//
// Hints fill in what shapes cannot tell: encoding, units, score mode, labels, and any dimension
// that is dynamic in the model. Non-empty hint enums override the derived ones; a static shape
// dimension always wins over a hinted one.
//
// Arguments:
//   - input: The image input tensor.
//   - outputs: The output tensors in session order.
//   - hints: Layout fields from configuration or a preset.
//
// Returns:
//   - Binding: The resolved layout and output roles.
//   - error: An error wrapping postprocess.ErrConfiguration or model.ErrInvalidLayout.
func ResolveLayout(input TensorInfo, outputs []TensorInfo, hints model.LayoutArgs) (Binding, error) {
	derived := model.LayoutArgs{}

	imageLayout, err := resolveInput(input, &derived)
	if err != nil {
		return Binding{}, err
	}

	var roles []OutputRole
	switch len(outputs) {
	case 4:
		roles, err = resolveSSD(outputs, &derived)
	case 1, 2:
		roles, err = resolveSingle(outputs, &derived)
	default:
		err = errors.Wrapf(postprocess.ErrConfiguration, "cannot resolve a layout from %d outputs", len(outputs))
	}
	if err != nil {
		return Binding{}, err
	}

	args := mergeHints(derived, hints)
	if args.MaskChannels > 0 && !hasRole(roles, RolePrototypes) {
		return Binding{}, errors.Wrapf(postprocess.ErrConfiguration,
			"layout declares %d mask channels but the model has no prototype output", args.MaskChannels)
	}

	layout, err := model.NewLayout(args)
	if err != nil {
		return Binding{}, err
	}

	return Binding{
		Layout:      layout,
		Input:       input,
		ImageLayout: imageLayout,
		Outputs:     outputs,
		Roles:       roles,
	}, nil
}

// Route sends per-output buffers, in session order, into postprocess outputs.
//
// Arguments:
//   - buffers: One flat buffer per model output.
//
// Returns:
//   - postprocess.Outputs: The buffers keyed by role.
//   - error: An error wrapping postprocess.ErrDecode when the buffer count does not match.
func (b Binding) Route(buffers [][]float32) (postprocess.Outputs, error) {
	if len(buffers) != len(b.Roles) {
		return postprocess.Outputs{}, errors.Wrapf(postprocess.ErrDecode,
			"got %d output buffers, model has %d outputs", len(buffers), len(b.Roles))
	}

	var out postprocess.Outputs
	for i, role := range b.Roles {
		switch role {
		case RoleDetections:
			out.Detections = buffers[i]
		case RolePrototypes:
			out.Prototypes = buffers[i]
		case RoleLocations:
			out.Locations = buffers[i]
		case RoleClasses:
			out.Classes = buffers[i]
		case RoleScores:
			out.Scores = buffers[i]
		case RoleCount:
			out.Count = buffers[i]
		}
	}
	return out, nil
}

// OutputNames returns the output tensor names in session order.
func (b Binding) OutputNames() []string {
	names := make([]string, len(b.Outputs))
	for i, o := range b.Outputs {
		names[i] = o.Name
	}
	return names
}

func resolveInput(input TensorInfo, args *model.LayoutArgs) (ImageLayout, error) {
	if len(input.Shape) != 4 {
		return "", errors.Wrapf(postprocess.ErrConfiguration,
			"image input %q has shape %v, want rank 4", input.Name, input.Shape)
	}

	switch {
	case input.Shape[1] == 3:
		args.InputHeight = input.dim(2)
		args.InputWidth = input.dim(3)
		return ImageNCHW, nil
	case input.Shape[3] == 3:
		args.InputHeight = input.dim(1)
		args.InputWidth = input.dim(2)
		return ImageNHWC, nil
	default:
		return "", errors.Wrapf(postprocess.ErrConfiguration,
			"image input %q has shape %v, want 3 color channels", input.Name, input.Shape)
	}
}

func resolveSingle(outputs []TensorInfo, args *model.LayoutArgs) ([]OutputRole, error) {
	roles := make([]OutputRole, len(outputs))
	var det, proto *TensorInfo

	for i := range outputs {
		switch len(outputs[i].Shape) {
		case 3:
			if det != nil {
				return nil, errors.Wrapf(postprocess.ErrConfiguration, "more than one rank-3 output")
			}
			det = &outputs[i]
			roles[i] = RoleDetections
		case 4:
			if proto != nil {
				return nil, errors.Wrapf(postprocess.ErrConfiguration, "more than one rank-4 output")
			}
			proto = &outputs[i]
			roles[i] = RolePrototypes
		default:
			return nil, errors.Wrapf(postprocess.ErrConfiguration,
				"output %q has unsupported shape %v", outputs[i].Name, outputs[i].Shape)
		}
	}
	if det == nil {
		return nil, errors.Wrapf(postprocess.ErrConfiguration, "no rank-3 detection output")
	}

	a, b := det.dim(1), det.dim(2)
	switch {
	case a > 0 && b > 0 && a < b:
		args.Arrangement = model.ChannelMajor
		args.Channels, args.Candidates = a, b
	case a > 0 && b > 0:
		args.Arrangement = model.PerBoxInterleaved
		args.Candidates, args.Channels = a, b
	}

	if proto != nil {
		d1, d2, d3 := proto.dim(1), proto.dim(2), proto.dim(3)
		if d1 == d2 && d3 != d1 {
			args.ProtoLayout = model.ProtoNHWC
			args.ProtoHeight, args.ProtoWidth, args.MaskChannels = d1, d2, d3
		} else {
			args.ProtoLayout = model.ProtoNCHW
			args.MaskChannels, args.ProtoHeight, args.ProtoWidth = d1, d2, d3
		}
	}

	return roles, nil
}

func resolveSSD(outputs []TensorInfo, args *model.LayoutArgs) ([]OutputRole, error) {
	roles := make([]OutputRole, len(outputs))
	var rest []int

	for i, o := range outputs {
		switch {
		case len(o.Shape) == 3 && o.Shape[2] == 4:
			roles[i] = RoleLocations
			args.Candidates = o.dim(1)
			args.Channels = 4
		case o.Size() == 1:
			roles[i] = RoleCount
		default:
			rest = append(rest, i)
		}
	}
	if len(rest) != 2 || !hasRole(roles, RoleLocations) || !hasRole(roles, RoleCount) {
		return nil, errors.Wrapf(postprocess.ErrConfiguration,
			"cannot identify SSD locations, classes, scores and count outputs in %v", outputs)
	}

	first, second := rest[0], rest[1]
	nameOf := func(i int) string { return strings.ToLower(outputs[i].Name) }
	if strings.Contains(nameOf(first), "score") || strings.Contains(nameOf(second), "class") {
		first, second = second, first
	}
	roles[first] = RoleClasses
	roles[second] = RoleScores

	args.Arrangement = model.MultiOutputSSD
	return roles, nil
}

// mergeHints lays hints over the shape-derived arguments.
func mergeHints(derived, hints model.LayoutArgs) model.LayoutArgs {
	dim := func(d, h int) int {
		if d > 0 {
			return d
		}
		return h
	}
	text := func(d, h string) string {
		if h != "" {
			return h
		}
		return d
	}

	out := derived
	out.InputWidth = dim(derived.InputWidth, hints.InputWidth)
	out.InputHeight = dim(derived.InputHeight, hints.InputHeight)
	out.Candidates = dim(derived.Candidates, hints.Candidates)
	out.Channels = dim(derived.Channels, hints.Channels)
	out.MaskChannels = dim(derived.MaskChannels, hints.MaskChannels)
	out.ProtoWidth = dim(derived.ProtoWidth, hints.ProtoWidth)
	out.ProtoHeight = dim(derived.ProtoHeight, hints.ProtoHeight)

	out.Arrangement = model.Arrangement(text(string(derived.Arrangement), string(hints.Arrangement)))
	out.ScoreMode = model.ScoreMode(text(string(derived.ScoreMode), string(hints.ScoreMode)))
	out.BoxEncoding = model.BoxEncoding(text(string(derived.BoxEncoding), string(hints.BoxEncoding)))
	out.BoxUnits = model.BoxUnits(text(string(derived.BoxUnits), string(hints.BoxUnits)))
	out.ProtoLayout = model.ProtoLayout(text(string(derived.ProtoLayout), string(hints.ProtoLayout)))

	if hints.ImplicitClassID != 0 {
		out.ImplicitClassID = hints.ImplicitClassID
	}
	if len(hints.Labels) > 0 {
		out.Labels = hints.Labels
	}
	return out
}

func hasRole(roles []OutputRole, role OutputRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
