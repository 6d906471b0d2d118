package images

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// AspectRatio names a frame aspect ratio, such as "16:9".
type AspectRatio string

const (
	AspectRatio169 AspectRatio = "16:9"
	AspectRatio43  AspectRatio = "4:3"
	AspectRatio54  AspectRatio = "5:4"
	AspectRatio32  AspectRatio = "3:2"
)

// ResolutionType identifies a camera resolution standard.
type ResolutionType string

const (
	ResolutionNHD      ResolutionType = "nHD"
	ResolutionHD720p   ResolutionType = "HD 720p"
	ResolutionSXGA     ResolutionType = "1MP (5:4)"
	ResolutionFHD1080p ResolutionType = "Full HD 1080p"
	ResolutionUXGA     ResolutionType = "2MP (4:3)"
	ResolutionQHD1440p ResolutionType = "QHD 1440p"
	Resolution4MP      ResolutionType = "4MP (16:9)"
	Resolution6MP      ResolutionType = "6MP (3:2)"
	Resolution4KUHD    ResolutionType = "4K UHD"
	Resolution12MP     ResolutionType = "12MP (4:3)"
)

// Resolution is a camera frame size. Frames of every aspect ratio reach the model through a
// letterbox, so these double as letterbox test and benchmark inputs.
type Resolution struct {
	Name        ResolutionType `json:"name"         yaml:"name"`
	AspectRatio AspectRatio    `json:"aspect_ratio" yaml:"aspect_ratio"`
	Width       int            `json:"width"        yaml:"width"`
	Height      int            `json:"height"       yaml:"height"`
}

// MegaPixels returns the pixel count in millions, rounded to two decimals.
func (r Resolution) MegaPixels() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return math.Round(float64(r.Width*r.Height)/10_000) / 100
}

// String returns the resolution in a human-readable form: "HD 720p (1280x720, 0.92MP)".
func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Width, r.Height, r.MegaPixels())
}

var resolutions = []Resolution{
	{Name: ResolutionNHD, AspectRatio: AspectRatio169, Width: 640, Height: 360},
	{Name: ResolutionHD720p, AspectRatio: AspectRatio169, Width: 1280, Height: 720},
	{Name: ResolutionSXGA, AspectRatio: AspectRatio54, Width: 1280, Height: 1024},
	{Name: ResolutionFHD1080p, AspectRatio: AspectRatio169, Width: 1920, Height: 1080},
	{Name: ResolutionUXGA, AspectRatio: AspectRatio43, Width: 1600, Height: 1200},
	{Name: ResolutionQHD1440p, AspectRatio: AspectRatio169, Width: 2560, Height: 1440},
	{Name: Resolution4MP, AspectRatio: AspectRatio169, Width: 2688, Height: 1520},
	{Name: Resolution6MP, AspectRatio: AspectRatio32, Width: 3072, Height: 2048},
	{Name: Resolution4KUHD, AspectRatio: AspectRatio169, Width: 3840, Height: 2160},
	{Name: Resolution12MP, AspectRatio: AspectRatio43, Width: 4000, Height: 3000},
}

// Resolutions returns the known camera resolutions ordered by pixel count.
func Resolutions() []Resolution {
	out := append([]Resolution(nil), resolutions...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Width*out[i].Height < out[j].Width*out[j].Height
	})
	return out
}

// ResolutionByType looks up a resolution by name.
//
// Arguments:
//   - name: The resolution standard.
//
// Returns:
//   - Resolution: The matching resolution.
//   - error: When the name is unknown.
func ResolutionByType(name ResolutionType) (Resolution, error) {
	for _, r := range resolutions {
		if r.Name == name {
			return r, nil
		}
	}
	return Resolution{}, errors.Errorf("unknown resolution %q", name)
}

// LargestWithin returns the resolution with the most pixels that fits in maxWidth x maxHeight.
//
// Returns:
//   - Resolution: The largest fitting resolution.
//   - bool: False when none fits.
func LargestWithin(maxWidth, maxHeight int) (Resolution, bool) {
	var best Resolution
	found := false
	for _, r := range resolutions {
		if r.Width > maxWidth || r.Height > maxHeight {
			continue
		}
		if !found || r.Width*r.Height > best.Width*best.Height {
			best, found = r, true
		}
	}
	return best, found
}
