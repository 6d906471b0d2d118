// Package postprocess - Turns raw model outputs into detections and instance masks.
package postprocess

import "github.com/nvr-ai/go-seg/images"

// RawDetection is one candidate that passed the confidence filter, in model-input space.
type RawDetection struct {
	// Box is normalized to [0, 1] of the model input.
	Box images.Box `json:"box"`
	// Confidence is in [0, 1].
	Confidence float32 `json:"confidence"`
	// ClassID is the predicted class index.
	ClassID int `json:"class_id"`
	// ClassName is the label for ClassID, "unknown" when no label exists.
	ClassName string `json:"class_name"`
	// Coefficients are the mask coefficients, one per prototype channel; empty without masks.
	Coefficients []float32 `json:"-"`
	// Index is the candidate's position in the output buffer and breaks confidence ties.
	Index int `json:"index"`
}

// Detection is a RawDetection whose box has been mapped back to the original image.
type Detection struct {
	RawDetection
	// ModelBox is the box in model-input space, used for mask compositing.
	ModelBox images.Box `json:"-"`
}

// Outputs holds one inference call's raw output buffers. They are read-only while a run uses
// them.
type Outputs struct {
	// Detections is the single detection head for interleaved and channel-major layouts.
	Detections []float32
	// Locations, Classes, Scores and Count are the four multi-output SSD tensors.
	Locations []float32
	Classes   []float32
	Scores    []float32
	Count     []float32
	// Prototypes is the shared mask basis when the model has a mask head.
	Prototypes []float32
}

// Status tells a frame result with detections apart from an empty one.
type Status string

const (
	// StatusDetected means at least one detection survived filtering.
	StatusDetected Status = "detected"
	// StatusEmpty means no candidate cleared the confidence threshold.
	StatusEmpty Status = "empty"
)

// FrameResult is the per-frame output handed to the renderer.
type FrameResult struct {
	// ID identifies the frame in logs.
	ID string `json:"id"`
	// Status is StatusEmpty when Detections is empty.
	Status Status `json:"status"`
	// Detections are confidence-descending.
	Detections []Detection `json:"detections"`
	// Masks[i] belongs to Detections[i]; nil when the model has no mask head.
	Masks []images.Grid `json:"-"`
	// MaskErrors lists recovered per-detection compositing failures.
	MaskErrors []error `json:"-"`
}

// Empty reports whether the frame produced no detections.
func (r FrameResult) Empty() bool {
	return r.Status == StatusEmpty
}
