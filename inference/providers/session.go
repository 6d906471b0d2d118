package providers

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// SessionArgs describes the session to create.
type SessionArgs struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string
	// InputNames and OutputNames are the tensor names bound to Inputs and Outputs.
	InputNames  []string
	OutputNames []string
	// Inputs and Outputs are preallocated tensors; the session reads and writes them on Run.
	Inputs  []ort.Value
	Outputs []ort.Value
	// Optimization applies to every attempt.
	Optimization OptimizationConfig
	// Providers are tried in Rank order.
	Providers []Provider
}

// NewSession creates an ONNX Runtime session on the best available provider.
//
// Each ranked provider is tried in turn. A provider that cannot be enabled, or whose session
// fails to load the model, is logged and skipped. CPU is always the last attempt, so the only
// failure left is one that CPU shares, such as a missing or invalid model.
//
// Arguments:
//   - args: The model, tensors and providers.
//   - log: Receives one warning per skipped provider.
//
// Returns:
//   - *ort.AdvancedSession: The session.
//   - Provider: The provider the session runs on.
//   - error: The CPU attempt's error when every provider failed.
func NewSession(args SessionArgs, log logrus.FieldLogger) (*ort.AdvancedSession, Provider, error) {
	ranked := Rank(args.Providers)

	var lastErr error
	for _, provider := range ranked {
		session, err := tryProvider(args, provider)
		if err == nil {
			log.WithField("provider", provider.Backend).Info("created inference session")
			return session, provider, nil
		}

		log.WithError(err).WithField("provider", provider.Backend).Warn("execution provider unavailable, trying next")
		lastErr = err
	}

	return nil, Provider{}, errors.Wrapf(lastErr, "no execution provider could load %s", args.ModelPath)
}

func tryProvider(args SessionArgs, provider Provider) (*ort.AdvancedSession, error) {
	options, err := NewSessionOptions(args.Optimization, provider)
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		args.ModelPath,
		args.InputNames,
		args.OutputNames,
		args.Inputs,
		args.Outputs,
		options,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s session", provider.Backend)
	}
	return session, nil
}
