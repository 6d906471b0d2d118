package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-seg/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold suppresses candidates whose overlap with a kept box is >= this value, in (0, 1].
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold" validate:"gt=0,lte=1"`
	// ClassAware limits suppression to boxes of the same class. Off by default: boxes suppress
	// each other regardless of class.
	ClassAware bool `json:"class_aware" yaml:"class_aware"`
	// NumWorkers splits the IoU scan against each kept box across goroutines.
	NumWorkers int `json:"num_workers" yaml:"num_workers" validate:"gte=0"`
}

// DefaultNMSConfig returns class-agnostic suppression at IoU 0.5.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{
		IoUThreshold: 0.5,
		ClassAware:   false,
		NumWorkers:   1,
	}
}

// Suppress filters overlapping detections using greedy Non-Maximum Suppression.
//
// Detections are stably sorted by confidence, highest first, so equal confidences keep their
// decode order. The best remaining detection is kept and every remaining detection overlapping
// it with IoU >= threshold is dropped, until none remain. The input slice is not modified.
//
// Arguments:
//   - detections: Detections in any order.
//   - config: NMS configuration.
//
// Returns:
//   - []Detection: Confidence-descending survivors; nil for empty input.
//   - error: ErrConfiguration when the threshold is outside (0, 1].
func Suppress(detections []Detection, config NMSConfig) ([]Detection, error) {
	if !(config.IoUThreshold > 0 && config.IoUThreshold <= 1) {
		return nil, configErrorf("IoU threshold must be in (0, 1], got %v", config.IoUThreshold)
	}

	n := len(detections)
	if n == 0 {
		return nil, nil
	}

	sorted := make([]Detection, n)
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	used := make([]bool, n)
	filtered := make([]Detection, 0, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := sorted[i]
		filtered = append(filtered, anchor)
		used[i] = true

		// Each partition owns a disjoint range of used, so no locking is needed.
		images.ParallelN(n-i-1, config.NumWorkers, func(start, end int) {
			for j := i + 1 + start; j < i+1+end; j++ {
				if used[j] {
					continue
				}
				if config.ClassAware && sorted[j].ClassID != anchor.ClassID {
					continue
				}
				if anchor.Box.IoU(sorted[j].Box) >= config.IoUThreshold {
					used[j] = true
				}
			}
		})
	}

	return filtered, nil
}
