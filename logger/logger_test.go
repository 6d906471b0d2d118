package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		want    logrus.Level
		wantErr bool
	}{
		{level: "", want: logrus.InfoLevel},
		{level: "debug", want: logrus.DebugLevel},
		{level: "warn", want: logrus.WarnLevel},
		{level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := New(Config{Level: tt.level, Output: &bytes.Buffer{}})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestNewWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "debug", NoColors: true, Output: &buf})
	require.NoError(t, err)

	log.WithField("frame_id", "f-1").Debug("frame processed")

	out := buf.String()
	assert.Contains(t, out, "frame processed")
	assert.Contains(t, out, "[frame_id:f-1]")
	assert.Contains(t, out, "[DEBU]")
}

func TestNewTeesToFile(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "segpipe.log")

	config := DefaultConfig()
	config.File = file
	config.NoColors = true
	config.Output = &buf

	log, err := New(config)
	require.NoError(t, err)
	log.Info("model loaded")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "model loaded")
	assert.Contains(t, buf.String(), "model loaded")
}
