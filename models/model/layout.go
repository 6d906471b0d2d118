// Package model - Model output layout resolved once at load time.
package model

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidLayout is the root cause of every layout validation failure.
var ErrInvalidLayout = errors.New("invalid model layout")

// Arrangement is how candidate values are laid out in the detection output buffer.
type Arrangement string

const (
	// PerBoxInterleaved stores all C values of candidate i contiguously: buf[i*C + k].
	PerBoxInterleaved Arrangement = "per_box_interleaved"
	// ChannelMajor stores value k of every candidate contiguously: buf[k*N + i].
	ChannelMajor Arrangement = "channel_major"
	// MultiOutputSSD splits locations, classes, scores and a valid count into separate tensors.
	MultiOutputSSD Arrangement = "multi_output_ssd"
)

// ScoreMode selects how class id and confidence are extracted per candidate.
type ScoreMode string

const (
	// ScoreArgmax takes the maximum over the trailing class-score sub-vector.
	ScoreArgmax ScoreMode = "argmax"
	// ScoreExplicit reads score and class id from fixed fields.
	ScoreExplicit ScoreMode = "explicit"
	// ScoreImplicit reads a single presence score; the class id is fixed.
	ScoreImplicit ScoreMode = "implicit"
)

// BoxEncoding is the order and meaning of the four box values.
type BoxEncoding string

const (
	// CenterSize is (cx, cy, w, h).
	CenterSize BoxEncoding = "center_size"
	// Corners is (x1, y1, x2, y2).
	Corners BoxEncoding = "corners"
	// CornersYX is (ymin, xmin, ymax, xmax).
	CornersYX BoxEncoding = "corners_yx"
)

// BoxUnits tells whether box values are already normalized or in input pixels.
type BoxUnits string

const (
	// Normalized box values are in [0, 1] of the model input.
	Normalized BoxUnits = "normalized"
	// Pixels box values are in model input pixels.
	Pixels BoxUnits = "pixels"
)

// ProtoLayout is the memory order of the prototype mask tensor.
type ProtoLayout string

const (
	// ProtoNCHW is channel-first: buf[m*H*W + y*W + x].
	ProtoNCHW ProtoLayout = "nchw"
	// ProtoNHWC is channel-last: buf[(y*W + x)*M + m].
	ProtoNHWC ProtoLayout = "nhwc"
)

// Field offsets within a single-output candidate.
const (
	// BoxFields is the number of box values leading every candidate.
	BoxFields = 4
	// ScoreField is the offset of the score in explicit and implicit modes.
	ScoreField = 4
	// ClassField is the offset of the class id in explicit mode.
	ClassField = 5
)

// LayoutArgs is the serializable description of a model's outputs.
type LayoutArgs struct {
	InputWidth      int         `json:"input_width"       yaml:"input_width"`
	InputHeight     int         `json:"input_height"      yaml:"input_height"`
	Candidates      int         `json:"candidates"        yaml:"candidates"`
	Channels        int         `json:"channels"          yaml:"channels"`
	MaskChannels    int         `json:"mask_channels"     yaml:"mask_channels"`
	Arrangement     Arrangement `json:"arrangement"       yaml:"arrangement"`
	ScoreMode       ScoreMode   `json:"score_mode"        yaml:"score_mode"`
	BoxEncoding     BoxEncoding `json:"box_encoding"      yaml:"box_encoding"`
	BoxUnits        BoxUnits    `json:"box_units"         yaml:"box_units"`
	ImplicitClassID int         `json:"implicit_class_id" yaml:"implicit_class_id"`
	ProtoWidth      int         `json:"proto_width"       yaml:"proto_width"`
	ProtoHeight     int         `json:"proto_height"      yaml:"proto_height"`
	ProtoLayout     ProtoLayout `json:"proto_layout"      yaml:"proto_layout"`
	Labels          []string    `json:"labels"            yaml:"labels"`
}

// With returns a copy of a where every non-zero field of over replaces a's value.
func (a LayoutArgs) With(over LayoutArgs) LayoutArgs {
	pick := func(base, o int) int {
		if o != 0 {
			return o
		}
		return base
	}

	out := a
	out.InputWidth = pick(a.InputWidth, over.InputWidth)
	out.InputHeight = pick(a.InputHeight, over.InputHeight)
	out.Candidates = pick(a.Candidates, over.Candidates)
	out.Channels = pick(a.Channels, over.Channels)
	out.MaskChannels = pick(a.MaskChannels, over.MaskChannels)
	out.ImplicitClassID = pick(a.ImplicitClassID, over.ImplicitClassID)
	out.ProtoWidth = pick(a.ProtoWidth, over.ProtoWidth)
	out.ProtoHeight = pick(a.ProtoHeight, over.ProtoHeight)

	if over.Arrangement != "" {
		out.Arrangement = over.Arrangement
	}
	if over.ScoreMode != "" {
		out.ScoreMode = over.ScoreMode
	}
	if over.BoxEncoding != "" {
		out.BoxEncoding = over.BoxEncoding
	}
	if over.BoxUnits != "" {
		out.BoxUnits = over.BoxUnits
	}
	if over.ProtoLayout != "" {
		out.ProtoLayout = over.ProtoLayout
	}
	if len(over.Labels) > 0 {
		out.Labels = append([]string(nil), over.Labels...)
	}
	return out
}

// Layout is the immutable output description of a loaded model.
//
// It is built once by NewLayout and passed by value; nothing in it changes for the model's
// lifetime.
type Layout struct {
	inputWidth      int
	inputHeight     int
	candidates      int
	channels        int
	maskChannels    int
	arrangement     Arrangement
	scoreMode       ScoreMode
	boxEncoding     BoxEncoding
	boxUnits        BoxUnits
	implicitClassID int
	protoWidth      int
	protoHeight     int
	protoLayout     ProtoLayout
	labels          []string
}

// NewLayout validates args, fills arrangement-specific defaults and returns the layout.
//
// Arguments:
//   - args: The layout description, usually from LoadLayout or inference.ResolveLayout.
//
// Returns:
//   - Layout: The validated layout.
//   - error: An error wrapping ErrInvalidLayout when args cannot describe a decodable output.
func NewLayout(args LayoutArgs) (Layout, error) {
	if args.Arrangement == "" {
		args.Arrangement = ChannelMajor
	}
	if args.ScoreMode == "" {
		args.ScoreMode = ScoreArgmax
		if args.Arrangement == MultiOutputSSD {
			args.ScoreMode = ScoreExplicit
		}
	}
	if args.BoxEncoding == "" {
		args.BoxEncoding = CenterSize
		if args.Arrangement == MultiOutputSSD {
			args.BoxEncoding = CornersYX
		}
	}
	if args.BoxUnits == "" {
		args.BoxUnits = Normalized
	}
	if args.ProtoLayout == "" {
		args.ProtoLayout = ProtoNCHW
	}

	if err := validate(args); err != nil {
		return Layout{}, err
	}

	return Layout{
		inputWidth:      args.InputWidth,
		inputHeight:     args.InputHeight,
		candidates:      args.Candidates,
		channels:        args.Channels,
		maskChannels:    args.MaskChannels,
		arrangement:     args.Arrangement,
		scoreMode:       args.ScoreMode,
		boxEncoding:     args.BoxEncoding,
		boxUnits:        args.BoxUnits,
		implicitClassID: args.ImplicitClassID,
		protoWidth:      args.ProtoWidth,
		protoHeight:     args.ProtoHeight,
		protoLayout:     args.ProtoLayout,
		labels:          append([]string(nil), args.Labels...),
	}, nil
}

func validate(args LayoutArgs) error {
	if args.Candidates <= 0 {
		return errors.Wrapf(ErrInvalidLayout, "candidate count must be positive, got %d", args.Candidates)
	}
	if args.Channels <= 0 {
		return errors.Wrapf(ErrInvalidLayout, "channel count must be positive, got %d", args.Channels)
	}
	if args.InputWidth <= 0 || args.InputHeight <= 0 {
		return errors.Wrapf(ErrInvalidLayout, "input size must be positive, got %dx%d", args.InputWidth, args.InputHeight)
	}
	if args.MaskChannels < 0 {
		return errors.Wrapf(ErrInvalidLayout, "mask channel count must not be negative, got %d", args.MaskChannels)
	}

	switch args.Arrangement {
	case PerBoxInterleaved, ChannelMajor:
	case MultiOutputSSD:
		if args.MaskChannels != 0 {
			return errors.Wrap(ErrInvalidLayout, "multi-output SSD layouts have no mask head")
		}
		if args.ScoreMode != ScoreExplicit {
			return errors.Wrapf(ErrInvalidLayout, "multi-output SSD requires explicit scores, got %q", args.ScoreMode)
		}
		if args.Channels < BoxFields {
			return errors.Wrapf(ErrInvalidLayout, "multi-output SSD location stride must be >= %d, got %d", BoxFields, args.Channels)
		}
	default:
		return errors.Wrapf(ErrInvalidLayout, "unknown arrangement %q", args.Arrangement)
	}

	if args.Arrangement != MultiOutputSSD {
		var need int
		switch args.ScoreMode {
		case ScoreArgmax:
			need = BoxFields + 1 + args.MaskChannels
		case ScoreExplicit:
			need = ClassField + 1 + args.MaskChannels
		case ScoreImplicit:
			need = ScoreField + 1 + args.MaskChannels
		default:
			return errors.Wrapf(ErrInvalidLayout, "unknown score mode %q", args.ScoreMode)
		}
		if args.Channels < need {
			return errors.Wrapf(ErrInvalidLayout,
				"%s scores with %d mask channels need at least %d channels, got %d",
				args.ScoreMode, args.MaskChannels, need, args.Channels)
		}
	}

	switch args.BoxEncoding {
	case CenterSize, Corners, CornersYX:
	default:
		return errors.Wrapf(ErrInvalidLayout, "unknown box encoding %q", args.BoxEncoding)
	}
	switch args.BoxUnits {
	case Normalized, Pixels:
	default:
		return errors.Wrapf(ErrInvalidLayout, "unknown box units %q", args.BoxUnits)
	}

	if args.MaskChannels > 0 {
		if args.ProtoWidth <= 0 || args.ProtoHeight <= 0 {
			return errors.Wrapf(ErrInvalidLayout,
				"prototype size must be positive with %d mask channels, got %dx%d",
				args.MaskChannels, args.ProtoWidth, args.ProtoHeight)
		}
		switch args.ProtoLayout {
		case ProtoNCHW, ProtoNHWC:
		default:
			return errors.Wrapf(ErrInvalidLayout, "unknown prototype layout %q", args.ProtoLayout)
		}
	}

	return nil
}

// LoadLayout reads a YAML layout description from disk and validates it.
//
// Arguments:
//   - path: Path to a YAML file with LayoutArgs fields.
//
// Returns:
//   - Layout: The validated layout.
//   - error: An error if the file cannot be read or parsed, or the layout is invalid.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, errors.Wrapf(err, "reading layout %s", path)
	}

	var args LayoutArgs
	if err := yaml.Unmarshal(data, &args); err != nil {
		return Layout{}, errors.Wrapf(err, "parsing layout %s", path)
	}

	return NewLayout(args)
}

// InputWidth is the model input width in pixels.
func (l Layout) InputWidth() int { return l.inputWidth }

// InputHeight is the model input height in pixels.
func (l Layout) InputHeight() int { return l.inputHeight }

// Candidates is N, the number of candidate boxes per inference.
func (l Layout) Candidates() int { return l.candidates }

// Channels is C, the number of values per candidate.
func (l Layout) Channels() int { return l.channels }

// MaskChannels is M, the number of prototype mask channels; 0 without a mask head.
func (l Layout) MaskChannels() int { return l.maskChannels }

// ClassChannels is the length of the argmax score sub-vector, C-4-M.
func (l Layout) ClassChannels() int { return l.channels - BoxFields - l.maskChannels }

// Arrangement is the detection buffer arrangement.
func (l Layout) Arrangement() Arrangement { return l.arrangement }

// ScoreMode is the class/score extraction strategy.
func (l Layout) ScoreMode() ScoreMode { return l.scoreMode }

// BoxEncoding is the order of box values.
func (l Layout) BoxEncoding() BoxEncoding { return l.boxEncoding }

// BoxUnits is the unit of box values.
func (l Layout) BoxUnits() BoxUnits { return l.boxUnits }

// ImplicitClassID is the class id reported by presence-only heads.
func (l Layout) ImplicitClassID() int { return l.implicitClassID }

// ProtoWidth is the prototype grid width.
func (l Layout) ProtoWidth() int { return l.protoWidth }

// ProtoHeight is the prototype grid height.
func (l Layout) ProtoHeight() int { return l.protoHeight }

// ProtoLayout is the prototype tensor memory order.
func (l Layout) ProtoLayout() ProtoLayout { return l.protoLayout }

// HasMasks reports whether the model has a mask head.
func (l Layout) HasMasks() bool { return l.maskChannels > 0 }

// Labels returns a copy of the class names.
func (l Layout) Labels() []string { return append([]string(nil), l.labels...) }

// DetectionSize is the minimum length of the single detection buffer, N*C.
func (l Layout) DetectionSize() int { return l.candidates * l.channels }

// ProtoSize is the minimum length of the prototype buffer, M*H*W.
func (l Layout) ProtoSize() int { return l.maskChannels * l.protoHeight * l.protoWidth }

// Args returns the LayoutArgs that rebuild this layout.
func (l Layout) Args() LayoutArgs {
	return LayoutArgs{
		InputWidth:      l.inputWidth,
		InputHeight:     l.inputHeight,
		Candidates:      l.candidates,
		Channels:        l.channels,
		MaskChannels:    l.maskChannels,
		Arrangement:     l.arrangement,
		ScoreMode:       l.scoreMode,
		BoxEncoding:     l.boxEncoding,
		BoxUnits:        l.boxUnits,
		ImplicitClassID: l.implicitClassID,
		ProtoWidth:      l.protoWidth,
		ProtoHeight:     l.protoHeight,
		ProtoLayout:     l.protoLayout,
		Labels:          l.Labels(),
	}
}

// String implements fmt.Stringer for log fields.
func (l Layout) String() string {
	return fmt.Sprintf("%s/%s N=%d C=%d M=%d in=%dx%d",
		l.arrangement, l.scoreMode, l.candidates, l.channels, l.maskChannels, l.inputWidth, l.inputHeight)
}
