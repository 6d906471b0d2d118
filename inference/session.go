package inference

import (
	"context"
	"image"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-seg/inference/providers"
	"github.com/nvr-ai/go-seg/models/model"
	"github.com/nvr-ai/go-seg/models/postprocess"
)

// LoadBinding reads a model's tensor shapes and resolves its layout.
//
// Arguments:
//   - modelPath: The ONNX model file.
//   - hints: Layout fields the shapes cannot tell.
//
// Returns:
//   - Binding: The resolved layout and output roles.
//   - error: When the model cannot be read or the layout cannot be resolved.
func LoadBinding(modelPath string, hints model.LayoutArgs) (Binding, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return Binding{}, errors.Wrapf(err, "reading tensor info from %s", modelPath)
	}
	if len(inputs) != 1 {
		return Binding{}, errors.Wrapf(postprocess.ErrConfiguration,
			"model %s has %d inputs, want one image input", modelPath, len(inputs))
	}

	outs := make([]TensorInfo, len(outputs))
	for i, o := range outputs {
		outs[i] = TensorInfo{Name: o.Name, Shape: append([]int64(nil), o.Dimensions...)}
	}
	input := TensorInfo{Name: inputs[0].Name, Shape: append([]int64(nil), inputs[0].Dimensions...)}

	return ResolveLayout(input, outs, hints)
}

// Session runs one model on one execution provider with preallocated tensors.
//
// Run is safe for concurrent use; calls are serialized on the session.
type Session struct {
	mu       sync.Mutex
	session  *ort.AdvancedSession
	input    *ort.Tensor[float32]
	outputs  []*ort.Tensor[float32]
	binding  Binding
	provider providers.Provider
	norm     Normalization
	log      logrus.FieldLogger
}

// NewSession loads the runtime, resolves the model layout and creates a session on the best
// available provider.
//
// Arguments:
//   - config: The model, providers and preprocessing settings.
//   - log: Receives provider selection and warmup messages.
//
// Returns:
//   - *Session: The ready session.
//   - error: ErrConfiguration for an unusable model layout; runtime errors otherwise.
func NewSession(config Config, log logrus.FieldLogger) (*Session, error) {
	if config.ModelPath == "" {
		return nil, errors.Wrap(postprocess.ErrConfiguration, "model path is required")
	}
	if config.Normalization.Std == 0 {
		return nil, errors.Wrap(postprocess.ErrConfiguration, "normalization std must not be zero")
	}

	libPath, err := providers.SharedLibPath(config.LibraryPath)
	if err != nil {
		return nil, err
	}
	if err := providers.InitializeEnvironment(libPath); err != nil {
		return nil, err
	}

	hints, err := config.Hints()
	if err != nil {
		return nil, err
	}
	binding, err := LoadBinding(config.ModelPath, hints)
	if err != nil {
		return nil, err
	}

	s := &Session{
		binding: binding,
		norm:    config.Normalization,
		log:     log.WithField("model", config.ModelPath),
	}
	if err := s.allocate(); err != nil {
		s.destroyTensors()
		return nil, err
	}

	outputs := make([]ort.Value, len(s.outputs))
	for i, t := range s.outputs {
		outputs[i] = t
	}

	session, provider, err := providers.NewSession(providers.SessionArgs{
		ModelPath:    config.ModelPath,
		InputNames:   []string{binding.Input.Name},
		OutputNames:  binding.OutputNames(),
		Inputs:       []ort.Value{s.input},
		Outputs:      outputs,
		Optimization: config.Optimization,
		Providers:    config.Providers,
	}, s.log)
	if err != nil {
		s.destroyTensors()
		return nil, err
	}
	s.session = session
	s.provider = provider

	for i := 0; i < config.Warmup; i++ {
		if err := s.session.Run(); err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "warmup run %d", i+1)
		}
	}

	s.log.WithFields(logrus.Fields{
		"provider": provider.Backend,
		"layout":   binding.Layout.String(),
	}).Info("model loaded")

	return s, nil
}

// allocate creates the input and output tensors. Dynamic input dimensions take the layout's
// input size; dynamic output dimensions are rejected.
func (s *Session) allocate() error {
	layout := s.binding.Layout

	shape := append([]int64(nil), s.binding.Input.Shape...)
	shape[0] = 1
	if s.binding.ImageLayout == ImageNHWC {
		shape[1], shape[2] = int64(layout.InputHeight()), int64(layout.InputWidth())
	} else {
		shape[2], shape[3] = int64(layout.InputHeight()), int64(layout.InputWidth())
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(shape...))
	if err != nil {
		return errors.Wrap(err, "allocating input tensor")
	}
	s.input = input

	for _, out := range s.binding.Outputs {
		if out.Size() < 0 {
			return errors.Wrapf(postprocess.ErrConfiguration,
				"output %q has dynamic shape %v", out.Name, out.Shape)
		}
		tensor, err := ort.NewEmptyTensor[float32](ort.NewShape(out.Shape...))
		if err != nil {
			return errors.Wrapf(err, "allocating output tensor %q", out.Name)
		}
		s.outputs = append(s.outputs, tensor)
	}
	return nil
}

// Run letterboxes img, runs the model and returns the frame for the postprocess pipeline.
//
// Output buffers are copied out of the session tensors, so the frame stays valid after the next
// Run.
//
// Arguments:
//   - ctx: Cancels the call before inference starts.
//   - img: The original frame.
//
// Returns:
//   - postprocess.Frame: The routed outputs and the original frame size.
//   - error: A context, preprocessing or runtime error.
func (s *Session) Run(ctx context.Context, img image.Image) (postprocess.Frame, error) {
	if err := ctx.Err(); err != nil {
		return postprocess.Frame{}, err
	}

	layout := s.binding.Layout
	canvas, _, err := Letterbox(img, layout.InputWidth(), layout.InputHeight())
	if err != nil {
		return postprocess.Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return postprocess.Frame{}, errors.New("session is closed")
	}
	if err := FillTensor(canvas, s.input.GetData(), s.binding.ImageLayout, s.norm); err != nil {
		return postprocess.Frame{}, err
	}
	if err := s.session.Run(); err != nil {
		return postprocess.Frame{}, errors.Wrap(err, "running inference")
	}

	buffers := make([][]float32, len(s.outputs))
	for i, t := range s.outputs {
		buffers[i] = append([]float32(nil), t.GetData()...)
	}

	outputs, err := s.binding.Route(buffers)
	if err != nil {
		return postprocess.Frame{}, err
	}

	bounds := img.Bounds()
	return postprocess.Frame{
		ID:             uuid.NewString(),
		Outputs:        outputs,
		OriginalWidth:  bounds.Dx(),
		OriginalHeight: bounds.Dy(),
	}, nil
}

// Layout returns the resolved model layout.
func (s *Session) Layout() model.Layout { return s.binding.Layout }

// Binding returns the resolved layout and output roles.
func (s *Session) Binding() Binding { return s.binding }

// Provider returns the execution provider the session runs on.
func (s *Session) Provider() providers.Provider { return s.provider }

// Close releases the session and its tensors. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.session != nil {
		err = s.session.Destroy()
		s.session = nil
	}
	s.destroyTensors()
	return errors.Wrap(err, "destroying session")
}

func (s *Session) destroyTensors() {
	if s.input != nil {
		s.input.Destroy()
		s.input = nil
	}
	for _, t := range s.outputs {
		t.Destroy()
	}
	s.outputs = nil
}
