package benchmark

import (
	"math/rand"

	"github.com/nvr-ai/go-seg/models/model"
	"github.com/nvr-ai/go-seg/models/postprocess"
)

// Synthetic generates deterministic model outputs for a layout.
//
// The first Hits candidates score in [0.5, 1) and are packed around Clusters centers so
// suppression has overlapping boxes to remove; the rest score below 0.3.
type Synthetic struct {
	Layout   model.Layout
	Hits     int
	Clusters int
	Seed     int64
}

type candidate struct {
	cx, cy, w, h float32
	score        float32
	class        int
	coeffs       []float32
}

// Outputs builds one frame's output buffers.
func (s Synthetic) Outputs() postprocess.Outputs {
	rng := rand.New(rand.NewSource(s.Seed))
	layout := s.Layout
	n := layout.Candidates()

	clusters := max(1, s.Clusters)
	centers := make([][2]float32, clusters)
	for i := range centers {
		centers[i] = [2]float32{0.25 + rng.Float32()*0.5, 0.25 + rng.Float32()*0.5}
	}

	classes := max(1, layout.ClassChannels())
	if layout.ScoreMode() != model.ScoreArgmax {
		classes = max(1, len(layout.Labels()))
	}

	cands := make([]candidate, n)
	for i := range cands {
		c := candidate{
			w:      0.1 + rng.Float32()*0.2,
			h:      0.1 + rng.Float32()*0.2,
			class:  rng.Intn(classes),
			coeffs: make([]float32, layout.MaskChannels()),
		}
		if i < s.Hits {
			center := centers[i%clusters]
			c.cx = center[0] + (rng.Float32()-0.5)*0.04
			c.cy = center[1] + (rng.Float32()-0.5)*0.04
			c.score = 0.5 + rng.Float32()*0.5
		} else {
			c.cx = 0.25 + rng.Float32()*0.5
			c.cy = 0.25 + rng.Float32()*0.5
			c.score = rng.Float32() * 0.3
		}
		if layout.ScoreMode() == model.ScoreImplicit {
			c.class = layout.ImplicitClassID()
		}
		for m := range c.coeffs {
			c.coeffs[m] = rng.Float32()*2 - 1
		}
		cands[i] = c
	}

	var out postprocess.Outputs
	if layout.Arrangement() == model.MultiOutputSSD {
		out = s.packSSD(cands)
	} else {
		out.Detections = s.pack(cands)
	}

	if layout.HasMasks() {
		out.Prototypes = make([]float32, layout.ProtoSize())
		for i := range out.Prototypes {
			out.Prototypes[i] = rng.Float32()
		}
	}
	return out
}

func (s Synthetic) box(c candidate) [4]float32 {
	x1, y1, x2, y2 := c.cx-c.w/2, c.cy-c.h/2, c.cx+c.w/2, c.cy+c.h/2

	var b [4]float32
	switch s.Layout.BoxEncoding() {
	case model.Corners:
		b = [4]float32{x1, y1, x2, y2}
	case model.CornersYX:
		b = [4]float32{y1, x1, y2, x2}
	default:
		b = [4]float32{c.cx, c.cy, c.w, c.h}
	}

	if s.Layout.BoxUnits() == model.Pixels {
		w, h := float32(s.Layout.InputWidth()), float32(s.Layout.InputHeight())
		if s.Layout.BoxEncoding() == model.CornersYX {
			w, h = h, w
		}
		b[0], b[1], b[2], b[3] = b[0]*w, b[1]*h, b[2]*w, b[3]*h
	}
	return b
}

func (s Synthetic) pack(cands []candidate) []float32 {
	layout := s.Layout
	n, channels := layout.Candidates(), layout.Channels()
	buf := make([]float32, n*channels)

	put := func(i, k int, v float32) {
		if layout.Arrangement() == model.ChannelMajor {
			buf[k*n+i] = v
			return
		}
		buf[i*channels+k] = v
	}

	for i, c := range cands {
		b := s.box(c)
		for k := range b {
			put(i, k, b[k])
		}

		switch layout.ScoreMode() {
		case model.ScoreArgmax:
			put(i, model.BoxFields+c.class, c.score)
		case model.ScoreExplicit:
			put(i, model.ScoreField, c.score)
			put(i, model.ClassField, float32(c.class))
		case model.ScoreImplicit:
			put(i, model.ScoreField, c.score)
		}

		first := channels - layout.MaskChannels()
		for m, v := range c.coeffs {
			put(i, first+m, v)
		}
	}
	return buf
}

func (s Synthetic) packSSD(cands []candidate) postprocess.Outputs {
	stride := s.Layout.Channels()
	out := postprocess.Outputs{
		Locations: make([]float32, len(cands)*stride),
		Classes:   make([]float32, len(cands)),
		Scores:    make([]float32, len(cands)),
		Count:     []float32{float32(len(cands))},
	}
	for i, c := range cands {
		b := s.box(c)
		copy(out.Locations[i*stride:], b[:])
		out.Classes[i] = float32(c.class)
		out.Scores[i] = c.score
	}
	return out
}
