package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolutionMegaPixels(t *testing.T) {
	tests := []struct {
		name string
		res  Resolution
		want float64
	}{
		{name: "720p", res: Resolution{Width: 1280, Height: 720}, want: 0.92},
		{name: "1080p", res: Resolution{Width: 1920, Height: 1080}, want: 2.07},
		{name: "4K", res: Resolution{Width: 3840, Height: 2160}, want: 8.29},
		{name: "zero", res: Resolution{}, want: 0},
		{name: "negative", res: Resolution{Width: -1, Height: 10}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.res.MegaPixels(), 1e-9)
		})
	}
}

func TestResolutionString(t *testing.T) {
	r, err := ResolutionByType(ResolutionHD720p)
	require.NoError(t, err)
	assert.Equal(t, "HD 720p (1280x720, 0.92MP)", r.String())
}

func TestResolutionByType(t *testing.T) {
	r, err := ResolutionByType(Resolution4KUHD)
	require.NoError(t, err)
	assert.Equal(t, 3840, r.Width)
	assert.Equal(t, AspectRatio169, r.AspectRatio)

	_, err = ResolutionByType("VGA 9000")
	assert.Error(t, err)
}

func TestResolutionsOrdered(t *testing.T) {
	all := Resolutions()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Width*all[i-1].Height, all[i].Width*all[i].Height)
	}
	assert.Equal(t, ResolutionNHD, all[0].Name)

	all[0].Width = 1
	assert.Equal(t, 640, Resolutions()[0].Width, "callers get a copy")
}

func TestLargestWithin(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          ResolutionType
		found         bool
	}{
		{name: "exact 1080p", width: 1920, height: 1080, want: ResolutionFHD1080p, found: true},
		{name: "between", width: 1700, height: 1300, want: ResolutionUXGA, found: true},
		{name: "portrait bound", width: 1300, height: 5000, want: ResolutionSXGA, found: true},
		{name: "too small", width: 320, height: 240},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := LargestWithin(tt.width, tt.height)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, r.Name)
			}
		})
	}
}
