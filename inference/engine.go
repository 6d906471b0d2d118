package inference

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-seg/models/model"
	"github.com/nvr-ai/go-seg/models/postprocess"
)

// Source produces raw model outputs for an image.
type Source interface {
	Run(ctx context.Context, img image.Image) (postprocess.Frame, error)
	Layout() model.Layout
	Close() error
}

// Engine turns images into frame results.
type Engine interface {
	Predict(ctx context.Context, img image.Image) (postprocess.FrameResult, error)
	Layout() model.Layout
	Close() error
}

// EngineBuilder assembles an Engine with a fluent API. The first error stops the chain and is
// returned by Build.
type EngineBuilder struct {
	log      logrus.FieldLogger
	source   Source
	pipeline *postprocess.Pipeline
	err      error
}

// NewEngineBuilder creates a new engine builder.
//
// Returns:
//   - *EngineBuilder: The engine builder, logging to the standard logrus logger.
func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{log: logrus.StandardLogger()}
}

// WithLogger sets the logger handed to the session and the pipeline. Call it first.
func (b *EngineBuilder) WithLogger(log logrus.FieldLogger) *EngineBuilder {
	b.log = log
	return b
}

// WithSession opens an ONNX Runtime session for the engine.
//
// Arguments:
//   - config: The model and provider configuration.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithSession(config Config) *EngineBuilder {
	if b.HasError() {
		return b
	}

	session, err := NewSession(config, b.log)
	if err != nil {
		b.err = err
		return b
	}
	b.source = session
	return b
}

// WithSource uses an already open source, such as a recorded-output replayer.
func (b *EngineBuilder) WithSource(source Source) *EngineBuilder {
	if b.HasError() {
		return b
	}
	b.source = source
	return b
}

// WithPipeline builds the postprocess pipeline for the source's layout. Call it after the
// source is set.
//
// Arguments:
//   - config: The postprocess thresholds and sizes.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithPipeline(config postprocess.Config) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if b.source == nil {
		b.err = errors.New("pipeline needs a source; call WithSession or WithSource first")
		return b
	}

	pipeline, err := postprocess.NewPipeline(b.source.Layout(), config, postprocess.WithLogger(b.log))
	if err != nil {
		b.err = err
		return b
	}
	b.pipeline = pipeline
	return b
}

// HasError checks if the engine builder has errors.
//
// Returns:
//   - bool: True if there are errors, false otherwise.
func (b *EngineBuilder) HasError() bool {
	return b.err != nil
}

// Build builds the engine. On error, an opened source is closed.
//
// Returns:
//   - Engine: The engine.
//   - error: The first error of the chain.
func (b *EngineBuilder) Build() (Engine, error) {
	if b.HasError() {
		b.closeSource()
		return nil, b.err
	}
	if b.source == nil {
		return nil, errors.New("source not configured")
	}
	if b.pipeline == nil {
		b.closeSource()
		return nil, errors.New("pipeline not configured")
	}

	return &engine{source: b.source, pipeline: b.pipeline}, nil
}

// MustBuild builds the engine and panics if there is an error.
func (b *EngineBuilder) MustBuild() Engine {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}

func (b *EngineBuilder) closeSource() {
	if b.source != nil {
		_ = b.source.Close()
		b.source = nil
	}
}

type engine struct {
	source   Source
	pipeline *postprocess.Pipeline
}

// Predict runs the model on img and postprocesses its outputs.
func (e *engine) Predict(ctx context.Context, img image.Image) (postprocess.FrameResult, error) {
	frame, err := e.source.Run(ctx, img)
	if err != nil {
		return postprocess.FrameResult{}, err
	}
	return e.pipeline.Run(frame)
}

func (e *engine) Layout() model.Layout {
	return e.source.Layout()
}

func (e *engine) Close() error {
	return e.source.Close()
}
