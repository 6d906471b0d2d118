package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDirectoryImageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame-10.jpg", "frame-2.png", "3.JPEG", "cover.bmp", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "frame-1.jpg"), 0o700))

	files, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 4)

	var names []string
	var frames []int
	for _, f := range files {
		names = append(names, filepath.Base(f.Path))
		frames = append(frames, f.Frame)
		assert.Equal(t, filepath.Base(f.Path), string(f.Data))
	}
	assert.Equal(t, []string{"frame-2.png", "3.JPEG", "frame-10.jpg", "cover.bmp"}, names)
	assert.Equal(t, []int{2, 3, 10, 3}, frames)

	_, err = LoadDirectoryImageFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestTensorFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output0.bin")
	values := []float32{0, 1.5, -2.25, 3e-8}

	require.NoError(t, WriteTensorFile(path, values))
	got, err := LoadTensorFile(path)
	require.NoError(t, err)
	assert.Equal(t, values, got)
}

func TestLoadTensorFileLittleEndian(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x00, 0x80, 0x3f}, 0o600))

	got, err := LoadTensorFile(path)
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, got)
}

func TestLoadTensorFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o600))

	_, err := LoadTensorFile(path)
	assert.Error(t, err)

	_, err = LoadTensorFile(filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err)
}
