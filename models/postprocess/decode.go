package postprocess

import (
	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-seg/images"
	"github.com/nvr-ai/go-seg/models"
	"github.com/nvr-ai/go-seg/models/model"
)

// Decoder turns the raw output buffers of one model into RawDetections.
//
// A Decoder holds only the immutable layout and is safe for concurrent use.
type Decoder struct {
	layout  model.Layout
	labels  []string
	workers int
}

// NewDecoder creates a decoder for a layout.
//
// Arguments:
//   - layout: The model layout resolved at load time.
//   - workers: Goroutines used to split the candidate loop; values below 2 decode serially.
//
// Returns:
//   - *Decoder: The decoder.
func NewDecoder(layout model.Layout, workers int) *Decoder {
	return &Decoder{
		layout:  layout,
		labels:  layout.Labels(),
		workers: workers,
	}
}

// Decode extracts every candidate whose confidence reaches threshold and whose box lies inside
// the model input.
//
// Candidates are returned in buffer order regardless of how many workers decode them.
//
// Arguments:
//   - out: The raw output buffers of one inference call.
//   - threshold: Minimum confidence in [0, 1]; candidates below it are dropped.
//
// Returns:
//   - []RawDetection: The surviving candidates, possibly empty.
//   - error: ErrConfiguration for an invalid threshold or an uninitialized layout, ErrDecode for a
//     short or malformed buffer.
//
// Example:
//
//	decoder := NewDecoder(layout, runtime.NumCPU())
//	raw, err := decoder.Decode(Outputs{Detections: output0}, 0.45)
func (d *Decoder) Decode(out Outputs, threshold float32) ([]RawDetection, error) {
	if d.layout.Candidates() <= 0 || d.layout.Channels() <= 0 {
		return nil, configErrorf("layout is not initialized: %s", d.layout)
	}
	if !(threshold >= 0 && threshold <= 1) {
		return nil, configErrorf("confidence threshold must be in [0, 1], got %v", threshold)
	}

	if d.layout.Arrangement() == model.MultiOutputSSD {
		return d.decodeSSD(out, threshold)
	}

	n := d.layout.Candidates()
	c := d.layout.Channels()
	buf := out.Detections
	if len(buf) < n*c {
		return nil, decodeErrorf("detection buffer holds %d values, layout %s needs %d", len(buf), d.layout, n*c)
	}

	var at func(i, k int) float32
	switch d.layout.Arrangement() {
	case model.PerBoxInterleaved:
		at = func(i, k int) float32 { return buf[i*c+k] }
	default:
		at = func(i, k int) float32 { return buf[k*n+i] }
	}

	return d.collect(n, func(i int) (RawDetection, bool) {
		return d.candidate(i, at, threshold)
	}), nil
}

// candidate decodes one single-output candidate through the accessor at.
func (d *Decoder) candidate(i int, at func(i, k int) float32, threshold float32) (RawDetection, bool) {
	var (
		confidence float32
		classID    int
	)

	switch d.layout.ScoreMode() {
	case model.ScoreArgmax:
		confidence = at(i, model.BoxFields)
		for k := 1; k < d.layout.ClassChannels(); k++ {
			if s := at(i, model.BoxFields+k); s > confidence {
				confidence = s
				classID = k
			}
		}
	case model.ScoreExplicit:
		confidence = at(i, model.ScoreField)
		id, ok := classIndex(at(i, model.ClassField))
		if !ok {
			return RawDetection{}, false
		}
		classID = id
	case model.ScoreImplicit:
		confidence = at(i, model.ScoreField)
		classID = d.layout.ImplicitClassID()
	}

	confidence, ok := accept(confidence, threshold)
	if !ok {
		return RawDetection{}, false
	}

	box, ok := d.box(at(i, 0), at(i, 1), at(i, 2), at(i, 3))
	if !ok {
		return RawDetection{}, false
	}

	var coeffs []float32
	if m := d.layout.MaskChannels(); m > 0 {
		coeffs = make([]float32, m)
		base := d.layout.Channels() - m
		for k := range coeffs {
			coeffs[k] = at(i, base+k)
		}
	}

	return RawDetection{
		Box:          box,
		Confidence:   confidence,
		ClassID:      classID,
		ClassName:    models.LookupName(d.labels, classID),
		Coefficients: coeffs,
		Index:        i,
	}, true
}

// decodeSSD walks the multi-output SSD tensors up to the valid count.
func (d *Decoder) decodeSSD(out Outputs, threshold float32) ([]RawDetection, error) {
	n := d.layout.Candidates()
	stride := d.layout.Channels()

	if len(out.Count) == 0 {
		return nil, decodeErrorf("multi-output SSD result has no valid count tensor")
	}
	count := out.Count[0]
	if math32.IsNaN(count) || count < 0 || count > float32(n) {
		return nil, decodeErrorf("valid count %v outside [0, %d]", count, n)
	}
	valid := int(count)

	switch {
	case len(out.Locations) < valid*stride:
		return nil, decodeErrorf("locations tensor holds %d values, %d detections need %d", len(out.Locations), valid, valid*stride)
	case len(out.Classes) < valid:
		return nil, decodeErrorf("classes tensor holds %d values, %d detections need %d", len(out.Classes), valid, valid)
	case len(out.Scores) < valid:
		return nil, decodeErrorf("scores tensor holds %d values, %d detections need %d", len(out.Scores), valid, valid)
	}

	return d.collect(valid, func(i int) (RawDetection, bool) {
		confidence, ok := accept(out.Scores[i], threshold)
		if !ok {
			return RawDetection{}, false
		}
		classID, ok := classIndex(out.Classes[i])
		if !ok {
			return RawDetection{}, false
		}
		loc := out.Locations[i*stride : i*stride+model.BoxFields]
		box, ok := d.box(loc[0], loc[1], loc[2], loc[3])
		if !ok {
			return RawDetection{}, false
		}

		return RawDetection{
			Box:        box,
			Confidence: confidence,
			ClassID:    classID,
			ClassName:  models.LookupName(d.labels, classID),
			Index:      i,
		}, true
	}), nil
}

// collect runs decode over [0, n) in partitions and concatenates the survivors in index order.
func (d *Decoder) collect(n int, decode func(i int) (RawDetection, bool)) []RawDetection {
	parts := images.Partitions(n, d.workers)
	found := make([][]RawDetection, len(parts))

	images.ForEachPartition(parts, func(part, start, end int) {
		var local []RawDetection
		for i := start; i < end; i++ {
			if det, ok := decode(i); ok {
				local = append(local, det)
			}
		}
		found[part] = local
	})

	total := 0
	for _, f := range found {
		total += len(f)
	}
	detections := make([]RawDetection, 0, total)
	for _, f := range found {
		detections = append(detections, f...)
	}

	return detections
}

// box builds a normalized box from four raw values and rejects boxes outside [0, 1].
func (d *Decoder) box(v0, v1, v2, v3 float32) (images.Box, bool) {
	var b images.Box
	switch d.layout.BoxEncoding() {
	case model.Corners:
		b = images.NewBoxFromCorners(v0, v1, v2, v3)
	case model.CornersYX:
		b = images.NewBoxFromCorners(v1, v0, v3, v2)
	default:
		b = images.NewBoxFromCenter(v0, v1, v2, v3)
	}

	if d.layout.BoxUnits() == model.Pixels {
		w := float32(d.layout.InputWidth())
		h := float32(d.layout.InputHeight())
		b = images.NewBoxFromCorners(b.X1/w, b.Y1/h, b.X2/w, b.Y2/h)
	}

	if !b.Normalized() {
		return images.Box{}, false
	}
	return b, true
}

// accept clamps a raw confidence into [0, 1] and applies the threshold. NaN never passes.
func accept(confidence, threshold float32) (float32, bool) {
	if math32.IsNaN(confidence) {
		return 0, false
	}
	confidence = images.Clamp(confidence, 0, 1)
	if confidence < threshold {
		return 0, false
	}
	return confidence, true
}

// classIndex converts a float class field into an index, rejecting NaN and negative values.
func classIndex(v float32) (int, bool) {
	if math32.IsNaN(v) || v < 0 {
		return 0, false
	}
	return int(v), true
}

// Decode is a convenience wrapper that decodes serially with a one-off Decoder.
func Decode(layout model.Layout, out Outputs, threshold float32) ([]RawDetection, error) {
	return NewDecoder(layout, 1).Decode(out, threshold)
}
