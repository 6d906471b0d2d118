package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-seg/images"
	"github.com/nvr-ai/go-seg/models/model"
)

// uniformProtos returns an NCHW prototype buffer where channel m holds values[m] everywhere.
func uniformProtos(width, height int, values ...float32) []float32 {
	data := make([]float32, 0, len(values)*width*height)
	for _, v := range values {
		for i := 0; i < width*height; i++ {
			data = append(data, v)
		}
	}
	return data
}

func maskDetection(box images.Box, coeffs ...float32) Detection {
	return Detection{
		RawDetection: RawDetection{Box: box, Confidence: 0.9, Coefficients: coeffs},
		ModelBox:     box,
	}
}

func TestNewPrototypeMaskSet(t *testing.T) {
	tests := []struct {
		name       string
		data       []float32
		channels   int
		width      int
		height     int
		layout     model.ProtoLayout
		wantConfig bool
		wantDecode bool
	}{
		{name: "valid", data: make([]float32, 2*4*3), channels: 2, width: 4, height: 3, layout: model.ProtoNCHW},
		{name: "zero channels", data: nil, channels: 0, width: 4, height: 3, layout: model.ProtoNCHW, wantConfig: true},
		{name: "unknown layout", data: make([]float32, 24), channels: 2, width: 4, height: 3, layout: "hwc", wantConfig: true},
		{name: "short buffer", data: make([]float32, 23), channels: 2, width: 4, height: 3, layout: model.ProtoNHWC, wantDecode: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NewPrototypeMaskSet(tt.data, tt.channels, tt.width, tt.height, tt.layout)
			switch {
			case tt.wantConfig:
				assert.True(t, IsConfiguration(err), "got %v", err)
			case tt.wantDecode:
				assert.True(t, IsDecode(err), "got %v", err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.channels, set.Channels())
				assert.Equal(t, tt.width, set.Width())
				assert.Equal(t, tt.height, set.Height())
			}
		})
	}
}

func TestPrototypeMaskSetLayouts(t *testing.T) {
	const channels, width, height = 3, 4, 2

	nchw := make([]float32, channels*width*height)
	nhwc := make([]float32, channels*width*height)
	for m := 0; m < channels; m++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := float32(m*100 + y*10 + x)
				nchw[(m*height+y)*width+x] = v
				nhwc[(y*width+x)*channels+m] = v
			}
		}
	}

	a, err := NewPrototypeMaskSet(nchw, channels, width, height, model.ProtoNCHW)
	require.NoError(t, err)
	b, err := NewPrototypeMaskSet(nhwc, channels, width, height, model.ProtoNHWC)
	require.NoError(t, err)

	for m := 0; m < channels; m++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				want := float32(m*100 + y*10 + x)
				assert.Equal(t, want, a.At(m, x, y))
				assert.Equal(t, want, b.At(m, x, y))
			}
		}
	}
}

func TestComposeCancellingCoefficients(t *testing.T) {
	protos, err := NewPrototypeMaskSet(uniformProtos(16, 16, 1, 1), 2, 16, 16, model.ProtoNCHW)
	require.NoError(t, err)
	compositor, err := NewMaskCompositor(32, 32, 1)
	require.NoError(t, err)

	mask, err := compositor.Compose(maskDetection(images.NewBoxFromCorners(0.25, 0.25, 0.75, 0.75), 1, -1), protos)
	require.NoError(t, err)
	require.Equal(t, 32, mask.Width)
	require.Equal(t, 32, mask.Height)
	for i, v := range mask.Data {
		assert.Equal(t, float32(0), v, "cell %d", i)
	}
}

func TestComposeZeroOutsideBox(t *testing.T) {
	const size = 20
	protos, err := NewPrototypeMaskSet(uniformProtos(size, size, 0.5, 2), 2, size, size, model.ProtoNCHW)
	require.NoError(t, err)

	boxes := []images.Box{
		images.NewBoxFromCorners(0.1, 0.2, 0.5, 0.6),
		images.NewBoxFromCorners(0.0, 0.0, 1.0, 0.05),
		images.NewBoxFromCorners(0.73, 0.11, 0.99, 0.97),
	}

	for _, workers := range []int{1, 3} {
		compositor, err := NewMaskCompositor(size, size, workers)
		require.NoError(t, err)

		for _, box := range boxes {
			mask, err := compositor.Compose(maskDetection(box, 1, 0.25), protos)
			require.NoError(t, err)

			rect := box.GridRect(size, size)
			for y := 0; y < size; y++ {
				for x := 0; x < size; x++ {
					if rect.Contains(x, y) {
						assert.InDelta(t, 1.0, mask.At(x, y), 1e-6, "inside (%d,%d)", x, y)
					} else {
						assert.Equal(t, float32(0), mask.At(x, y), "outside (%d,%d)", x, y)
					}
				}
			}
		}
	}
}

func TestComposeNHWCMatchesNCHW(t *testing.T) {
	const channels, width, height = 2, 8, 8
	nchw := make([]float32, channels*width*height)
	nhwc := make([]float32, channels*width*height)
	for m := 0; m < channels; m++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := float32(x+y) * float32(m+1) / 10
				nchw[(m*height+y)*width+x] = v
				nhwc[(y*width+x)*channels+m] = v
			}
		}
	}

	a, err := NewPrototypeMaskSet(nchw, channels, width, height, model.ProtoNCHW)
	require.NoError(t, err)
	b, err := NewPrototypeMaskSet(nhwc, channels, width, height, model.ProtoNHWC)
	require.NoError(t, err)
	compositor, err := NewMaskCompositor(16, 16, 2)
	require.NoError(t, err)

	det := maskDetection(images.NewBoxFromCorners(0.2, 0.2, 0.9, 0.7), 0.5, -0.25)
	ma, err := compositor.Compose(det, a)
	require.NoError(t, err)
	mb, err := compositor.Compose(det, b)
	require.NoError(t, err)
	assert.Equal(t, ma, mb)
}

func TestComposeErrors(t *testing.T) {
	protos, err := NewPrototypeMaskSet(uniformProtos(4, 4, 1, 1), 2, 4, 4, model.ProtoNCHW)
	require.NoError(t, err)
	compositor, err := NewMaskCompositor(8, 8, 1)
	require.NoError(t, err)

	_, err = compositor.Compose(maskDetection(images.NewBoxFromCorners(0, 0, 1, 1), 1), protos)
	assert.Error(t, err, "coefficient count mismatch")

	_, err = compositor.Compose(maskDetection(images.NewBoxFromCorners(0, 0, 1, 1), 1, 1), nil)
	assert.Error(t, err, "missing prototypes")

	// A prototype set whose backing buffer was truncated after validation panics on access.
	broken := &PrototypeMaskSet{channels: 2, width: 4, height: 4, layout: model.ProtoNCHW, data: make([]float32, 3)}
	mask, err := compositor.Compose(maskDetection(images.NewBoxFromCorners(0, 0, 1, 1), 1, 1), broken)
	assert.Error(t, err)
	assert.True(t, mask.Empty())

	zero := compositor.Zero()
	assert.Equal(t, 8, zero.Width)
	assert.Equal(t, 8, zero.Height)
	assert.Len(t, zero.Data, 64)

	_, err = NewMaskCompositor(0, 8, 1)
	assert.True(t, IsConfiguration(err))
}

func TestComposeEmptyRect(t *testing.T) {
	protos, err := NewPrototypeMaskSet(uniformProtos(4, 4, 1), 1, 4, 4, model.ProtoNCHW)
	require.NoError(t, err)
	compositor, err := NewMaskCompositor(8, 8, 1)
	require.NoError(t, err)

	mask, err := compositor.Compose(maskDetection(images.NewBoxFromCorners(0.5, 0.5, 0.5, 0.5), 3), protos)
	require.NoError(t, err)
	for _, v := range mask.Data {
		assert.Equal(t, float32(0), v)
	}
}
