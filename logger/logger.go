// Package logger - Structured logging setup shared by the CLI and long-running services.
package logger

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log level, formatting and optional file rotation.
type Config struct {
	// Level is a logrus level name: trace, debug, info, warn, error, fatal or panic.
	Level string `json:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`

	// File is the rotated log file; empty logs to Output only.
	File string `json:"file" yaml:"file"`

	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int `json:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`

	// MaxBackups is the number of rotated files kept.
	MaxBackups int `json:"max_backups" yaml:"max_backups" validate:"gte=0"`

	// MaxAgeDays is how long rotated files are kept.
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days" validate:"gte=0"`

	// Compress gzips rotated files.
	Compress bool `json:"compress" yaml:"compress"`

	// NoColors disables ANSI colors, for pipes and CI logs.
	NoColors bool `json:"no_colors" yaml:"no_colors"`

	// ReportCaller prefixes entries with file, line and function.
	ReportCaller bool `json:"report_caller" yaml:"report_caller"`

	// Output receives log lines alongside File. Defaults to os.Stderr.
	Output io.Writer `json:"-" yaml:"-"`
}

// DefaultConfig logs at info level to stderr, rotating at 100MB with 3 backups kept for 7 days
// when a file is set.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Compress:   true,
	}
}

// New builds a logger from config.
//
// Arguments:
//   - config: Level, formatting and rotation settings.
//
// Returns:
//   - *logrus.Logger: The logger, writing to Output and, when set, File.
//   - error: An unknown level.
//
// Example:
//
//	log, err := logger.New(logger.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	log.WithField("model", path).Info("model loaded")
func New(config Config) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if config.Level != "" {
		parsed, err := logrus.ParseLevel(config.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing log level %q", config.Level)
		}
		level = parsed
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetReportCaller(config.ReportCaller)
	log.SetFormatter(&formatter.Formatter{
		NoColors:        config.NoColors,
		TimestampFormat: "02 Jan 06 - 15:04:05",
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, s[len(s)-1])
		},
	})

	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	writers := []io.Writer{out}
	if config.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.File,
			LocalTime:  true,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
			Compress:   config.Compress,
		})
	}
	log.SetOutput(io.MultiWriter(writers...))

	return log, nil
}
