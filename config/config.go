// Package config - Application configuration: defaults, YAML file, .env and SEGPIPE_*
// environment overrides, validated before use.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-seg/inference"
	"github.com/nvr-ai/go-seg/logger"
	"github.com/nvr-ai/go-seg/models"
	"github.com/nvr-ai/go-seg/models/postprocess"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SEGPIPE_"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the complete application configuration.
type Config struct {
	// Postprocess holds thresholds and mask sizes.
	Postprocess postprocess.Config `json:"postprocess" yaml:"postprocess"`
	// Inference holds the model, runtime and provider settings.
	Inference inference.Config `json:"inference" yaml:"inference"`
	// Log holds logging settings.
	Log logger.Config `json:"log" yaml:"log"`
}

// Default returns the built-in configuration: confidence 0.45, IoU 0.5, 1024x1024 masks,
// 2 pixel outlines binarized at 0.2 and one worker per CPU core.
func Default() Config {
	return Config{
		Postprocess: postprocess.DefaultConfig(),
		Inference:   inference.DefaultConfig(),
		Log:         logger.DefaultConfig(),
	}
}

// Load builds the configuration in layers: Default, then the YAML file at path (skipped when
// path is empty), then variables from envFiles (".env" when none are given and it exists), then
// SEGPIPE_* environment overrides. The result is validated.
//
// Variables already set in the environment are not replaced by .env files.
//
// Arguments:
//   - path: Optional YAML configuration file.
//   - envFiles: Optional dotenv files.
//
// Returns:
//   - Config: The validated configuration.
//   - error: An error wrapping postprocess.ErrConfiguration for unreadable or invalid settings.
func Load(path string, envFiles ...string) (Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(postprocess.ErrConfiguration, "reading %s: %v", path, err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, errors.Wrapf(postprocess.ErrConfiguration, "parsing %s: %v", path, err)
		}
	}

	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			envFiles = []string{".env"}
		}
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return Config{}, errors.Wrapf(postprocess.ErrConfiguration, "loading %v: %v", envFiles, err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(postprocess.ErrConfiguration, err.Error())
	}
	return nil
}

type override struct {
	name  string
	apply func(c *Config, value string) error
}

var overrides = []override{
	{"MODEL", func(c *Config, v string) error { c.Inference.ModelPath = v; return nil }},
	{"ORT_LIB", func(c *Config, v string) error { c.Inference.LibraryPath = v; return nil }},
	{"PRESET", func(c *Config, v string) error { c.Inference.Preset = models.PresetName(v); return nil }},
	{"LABELS", func(c *Config, v string) error { c.Inference.Labels = v; return nil }},
	{"CONFIDENCE", func(c *Config, v string) error { return parseFloat(v, &c.Postprocess.ConfidenceThreshold) }},
	{"IOU", func(c *Config, v string) error { return parseFloat(v, &c.Postprocess.NMS.IoUThreshold) }},
	{"CLASS_AWARE", func(c *Config, v string) error { return parseBool(v, &c.Postprocess.NMS.ClassAware) }},
	{"MASK_WIDTH", func(c *Config, v string) error { return parseInt(v, &c.Postprocess.MaskWidth) }},
	{"MASK_HEIGHT", func(c *Config, v string) error { return parseInt(v, &c.Postprocess.MaskHeight) }},
	{"WORKERS", func(c *Config, v string) error { return parseInt(v, &c.Postprocess.Workers) }},
	{"LOG_LEVEL", func(c *Config, v string) error { c.Log.Level = v; return nil }},
	{"LOG_FILE", func(c *Config, v string) error { c.Log.File = v; return nil }},
	{"LOG_NO_COLORS", func(c *Config, v string) error { return parseBool(v, &c.Log.NoColors) }},
}

func (c *Config) applyEnv() error {
	for _, o := range overrides {
		value, ok := os.LookupEnv(EnvPrefix + o.name)
		if !ok {
			continue
		}
		if err := o.apply(c, strings.TrimSpace(value)); err != nil {
			return errors.Wrapf(postprocess.ErrConfiguration, "%s%s=%q: %v", EnvPrefix, o.name, value, err)
		}
	}
	return nil
}

func parseFloat(v string, dst *float32) error {
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return err
	}
	*dst = float32(f)
	return nil
}

func parseInt(v string, dst *int) error {
	i, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = i
	return nil
}

func parseBool(v string, dst *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}
