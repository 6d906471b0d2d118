package postprocess

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-seg/models/model"
)

var (
	// ErrConfiguration marks failures caused by a bad layout or bad run parameters. The run is
	// aborted before any decode work.
	ErrConfiguration = errors.New("configuration error")

	// ErrDecode marks a malformed or undersized output buffer. Only the current frame is lost.
	ErrDecode = errors.New("decode error")
)

func configErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrConfiguration, format, args...)
}

func decodeErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrDecode, format, args...)
}

// IsConfiguration reports whether err is a configuration failure, including layout validation
// errors from model.NewLayout.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, model.ErrInvalidLayout)
}

// IsDecode reports whether err is a per-frame decode failure.
func IsDecode(err error) bool {
	return errors.Is(err, ErrDecode)
}

// MaskError records a failure while compositing one detection's mask. The detection keeps an
// all-zero mask and the frame continues.
type MaskError struct {
	// Index is the position of the detection in the frame result.
	Index int
	// Err is the underlying failure, or the recovered panic value wrapped as an error.
	Err error
}

// Error implements error.
func (e *MaskError) Error() string {
	return fmt.Sprintf("mask %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying failure.
func (e *MaskError) Unwrap() error {
	return e.Err
}
