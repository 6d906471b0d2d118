// Package util - Offline replay inputs: raw tensor dumps and frame image directories.
package util

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the frame number parsed from the name, or the file's position when the name has
	// no number.
	Frame int
}

// imageExtensions are the formats the CLI can decode.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// IsImageFile reports whether path has a supported image extension.
func IsImageFile(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Files named "frame-<n>.<ext>" or "<n>.<ext>" are ordered by n; other names follow in
// lexical order.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: Slice of ImageFile, each containing the raw bytes of an image file.
// - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading directory %s", dir)
	}

	var numbered, named []ImageFile
	for _, entry := range entries {
		if entry.IsDir() || !IsImageFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading image %s", path)
		}

		base := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		frame, err := strconv.Atoi(strings.TrimPrefix(base, "frame-"))
		if err != nil {
			named = append(named, ImageFile{Path: path, Data: data})
			continue
		}
		numbered = append(numbered, ImageFile{Path: path, Data: data, Frame: frame})
	}

	sort.SliceStable(numbered, func(i, j int) bool {
		return numbered[i].Frame < numbered[j].Frame
	})

	files := append(numbered, named...)
	for i := len(numbered); i < len(files); i++ {
		files[i].Frame = i
	}
	return files, nil
}

// LoadTensorFile reads a raw little-endian float32 tensor dump, as written by numpy's
// ndarray.astype('<f4').tofile.
//
// Arguments:
//   - path: The dump file.
//
// Returns:
//   - []float32: The values in file order.
//   - error: When the file cannot be read or its size is not a multiple of 4 bytes.
func LoadTensorFile(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading tensor %s", path)
	}
	if len(data)%4 != 0 {
		return nil, errors.Errorf("tensor %s has %d bytes, not a whole number of float32 values", path, len(data))
	}

	values := make([]float32, len(data)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return values, nil
}

// WriteTensorFile writes values as a raw little-endian float32 dump.
func WriteTensorFile(path string, values []float32) error {
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "writing tensor %s", path)
}
