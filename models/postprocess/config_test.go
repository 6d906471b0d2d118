package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NoError(t, config.Validate())
	assert.Equal(t, float32(0.45), config.ConfidenceThreshold)
	assert.Equal(t, float32(0.5), config.NMS.IoUThreshold)
	assert.False(t, config.NMS.ClassAware)
	assert.Equal(t, 1024, config.MaskWidth)
	assert.Equal(t, 1024, config.MaskHeight)
	assert.Equal(t, 2, config.Contour.Thickness)
	assert.Equal(t, float32(0.2), config.Contour.BinarizationThreshold)
	assert.Positive(t, config.Workers)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "confidence above one", mutate: func(c *Config) { c.ConfidenceThreshold = 1.1 }},
		{name: "negative confidence", mutate: func(c *Config) { c.ConfidenceThreshold = -0.1 }},
		{name: "zero IoU", mutate: func(c *Config) { c.NMS.IoUThreshold = 0 }},
		{name: "IoU above one", mutate: func(c *Config) { c.NMS.IoUThreshold = 1.2 }},
		{name: "zero mask width", mutate: func(c *Config) { c.MaskWidth = 0 }},
		{name: "negative mask height", mutate: func(c *Config) { c.MaskHeight = -1 }},
		{name: "negative thickness", mutate: func(c *Config) { c.Contour.Thickness = -1 }},
		{name: "negative workers", mutate: func(c *Config) { c.Workers = -2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			err := config.Validate()
			assert.True(t, IsConfiguration(err), "got %v", err)
		})
	}
}
