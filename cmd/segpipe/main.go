// Command segpipe runs a detection or segmentation model on images, or replays recorded model
// outputs, and prints the postprocessed results.
//
// Usage:
//
//	segpipe -config segpipe.yaml -model yolov8n-seg.onnx -image frames/ -out overlays/ -json
//	segpipe -layout layout.yaml -detections output0.bin -prototypes output1.bin -image frame.jpg
//
// The exit code is 1 for configuration errors and 2 for any other failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-seg/config"
	"github.com/nvr-ai/go-seg/inference"
	"github.com/nvr-ai/go-seg/logger"
	"github.com/nvr-ai/go-seg/models/model"
	"github.com/nvr-ai/go-seg/models/postprocess"
	"github.com/nvr-ai/go-seg/overlay"
	"github.com/nvr-ai/go-seg/util"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var errUnreadableImage = errors.New("unreadable image")

type options struct {
	config     string
	model      string
	layout     string
	detections string
	prototypes string
	image      string
	out        string
	json       bool
}

func main() {
	var opts options
	flag.StringVar(&opts.config, "config", "", "YAML configuration file")
	flag.StringVar(&opts.model, "model", "", "ONNX model file, overrides the configuration")
	flag.StringVar(&opts.layout, "layout", "", "YAML layout for replaying recorded outputs instead of running a model")
	flag.StringVar(&opts.detections, "detections", "", "raw little-endian float32 detection output (replay)")
	flag.StringVar(&opts.prototypes, "prototypes", "", "raw little-endian float32 prototype output (replay)")
	flag.StringVar(&opts.image, "image", "", "image file or directory of frames")
	flag.StringVar(&opts.out, "out", "", "directory for overlay images")
	flag.BoolVar(&opts.json, "json", false, "print one JSON document per frame")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "segpipe:", err)
		if postprocess.IsConfiguration(err) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	cfg, err := config.Load(opts.config)
	if err != nil {
		return err
	}
	if opts.model != "" {
		cfg.Inference.ModelPath = opts.model
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return errors.Wrap(postprocess.ErrConfiguration, err.Error())
	}

	frames, err := loadFrames(opts.image)
	if err != nil {
		return err
	}

	builder := inference.NewEngineBuilder().WithLogger(log)
	if opts.layout != "" {
		source, err := replaySource(opts)
		if err != nil {
			return err
		}
		builder = builder.WithSource(source)
	} else {
		builder = builder.WithSession(cfg.Inference)
	}

	engine, err := builder.WithPipeline(cfg.Postprocess).Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	if opts.out != "" {
		if err := os.MkdirAll(opts.out, 0o755); err != nil {
			return errors.Wrapf(err, "creating %s", opts.out)
		}
	}
	layout := engine.Layout()
	renderer := overlay.NewRenderer(layout.InputWidth(), layout.InputHeight(), cfg.Postprocess.Contour)

	for _, frame := range frames {
		if err := processFrame(ctx, engine, renderer, frame, opts, stdout, log); err != nil {
			if postprocess.IsDecode(err) || errors.Is(err, errUnreadableImage) {
				log.WithError(err).WithField("image", frame.Path).Warn("skipping frame")
				continue
			}
			return err
		}
	}
	return nil
}

func processFrame(
	ctx context.Context,
	engine inference.Engine,
	renderer *overlay.Renderer,
	frame util.ImageFile,
	opts options,
	stdout io.Writer,
	log logrus.FieldLogger,
) error {
	mat, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil || mat.Empty() {
		mat.Close()
		return errors.Wrap(errUnreadableImage, frame.Path)
	}
	defer mat.Close()

	img, err := mat.ToImage()
	if err != nil {
		return errors.Wrapf(err, "converting %s", frame.Path)
	}

	result, err := engine.Predict(ctx, img)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"image":      frame.Path,
		"frame_id":   result.ID,
		"detections": len(result.Detections),
	}).Info("frame done")

	if opts.json {
		if err := writeJSON(stdout, frame.Path, result); err != nil {
			return err
		}
	} else {
		writeText(stdout, frame.Path, result)
	}

	if opts.out == "" {
		return nil
	}
	if err := renderer.Draw(&mat, result); err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(frame.Path), filepath.Ext(frame.Path)) + ".png"
	if !gocv.IMWrite(filepath.Join(opts.out, name), mat) {
		return errors.Errorf("writing overlay %s", name)
	}
	return nil
}

type frameDocument struct {
	ID         string                  `json:"id"`
	Image      string                  `json:"image"`
	Status     postprocess.Status      `json:"status"`
	Detections []postprocess.Detection `json:"detections"`
	MaskErrors []string                `json:"mask_errors,omitempty"`
}

func writeJSON(w io.Writer, path string, result postprocess.FrameResult) error {
	doc := frameDocument{
		ID:         result.ID,
		Image:      path,
		Status:     result.Status,
		Detections: result.Detections,
	}
	if doc.Detections == nil {
		doc.Detections = []postprocess.Detection{}
	}
	for _, err := range result.MaskErrors {
		doc.MaskErrors = append(doc.MaskErrors, err.Error())
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encoding result")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeText(w io.Writer, path string, result postprocess.FrameResult) {
	fmt.Fprintf(w, "%s: %s, %d detections\n", path, result.Status, len(result.Detections))
	for _, det := range result.Detections {
		fmt.Fprintf(w, "  %s [%.3f %.3f %.3f %.3f]\n", overlay.Label(det), det.Box.X1, det.Box.Y1, det.Box.X2, det.Box.Y2)
	}
}

func loadFrames(path string) ([]util.ImageFile, error) {
	if path == "" {
		return nil, errors.Wrap(postprocess.ErrConfiguration, "-image is required")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(postprocess.ErrConfiguration, err.Error())
	}
	if info.IsDir() {
		frames, err := util.LoadDirectoryImageFiles(path)
		if err != nil {
			return nil, err
		}
		if len(frames) == 0 {
			return nil, errors.Wrapf(postprocess.ErrConfiguration, "no images in %s", path)
		}
		return frames, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return []util.ImageFile{{Path: path, Data: data}}, nil
}

func replaySource(opts options) (*inference.Replay, error) {
	layout, err := model.LoadLayout(opts.layout)
	if err != nil {
		return nil, errors.Wrap(postprocess.ErrConfiguration, err.Error())
	}
	if layout.Arrangement() == model.MultiOutputSSD {
		return nil, errors.Wrap(postprocess.ErrConfiguration, "replay supports single-output layouts only")
	}
	if opts.detections == "" {
		return nil, errors.Wrap(postprocess.ErrConfiguration, "-detections is required with -layout")
	}

	var outputs postprocess.Outputs
	if outputs.Detections, err = util.LoadTensorFile(opts.detections); err != nil {
		return nil, err
	}
	if layout.HasMasks() {
		if opts.prototypes == "" {
			return nil, errors.Wrap(postprocess.ErrConfiguration, "-prototypes is required for a mask layout")
		}
		if outputs.Prototypes, err = util.LoadTensorFile(opts.prototypes); err != nil {
			return nil, err
		}
	}
	return inference.NewReplay(layout, outputs), nil
}
