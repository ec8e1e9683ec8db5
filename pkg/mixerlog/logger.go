// Package mixerlog implements mixer.Logger on top of zerolog.
package mixerlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zapdos26/client-node/pkg/mixer"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Field names added to every entry.
const (
	FieldService   = "service"
	FieldComponent = "component"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid logging configuration")

// Config contains logging configuration.
type Config struct {
	Level     string `yaml:"level"     mapstructure:"level"`
	Format    string `yaml:"format"    mapstructure:"format"`
	NoColor   bool   `yaml:"no_color"  mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
}

// ApplyDefaults applies default values to logging configuration.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}

	if c.Format == "" {
		c.Format = FormatConsole
	}
}

// Validate validates logging configuration.
func (c *Config) Validate() error {
	validLevels := []string{"trace", "debug", "info", "warn", "error", "disabled"}
	if !slices.Contains(validLevels, strings.ToLower(c.Level)) {
		return fmt.Errorf("%w: level must be one of %v (got: %s)", ErrInvalidConfig, validLevels, c.Level)
	}

	validFormats := []string{FormatJSON, FormatConsole}
	if !slices.Contains(validFormats, strings.ToLower(c.Format)) {
		return fmt.Errorf("%w: format must be one of %v (got: %s)", ErrInvalidConfig, validFormats, c.Format)
	}

	return nil
}

// Logger wraps zerolog.Logger.
type Logger struct {
	logger zerolog.Logger
}

var _ mixer.Logger = (*Logger)(nil)

// New creates a logger writing to out, stderr when nil.
func New(cfg Config, service string, out io.Writer) *Logger {
	cfg.ApplyDefaults()

	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	if strings.ToLower(cfg.Format) == FormatConsole {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.Kitchen,
		}
	}

	ctx := zerolog.New(out).Level(level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}

	if service != "" {
		ctx = ctx.Str(FieldService, service)
	}

	return &Logger{logger: ctx.Logger()}
}

// Wrap adapts an existing zerolog logger.
func Wrap(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger}
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{logger: l.logger.With().Str(FieldComponent, name).Logger()}
}

// Zerolog returns the underlying zerolog.Logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.logger
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug().Fields(fields).Msg(msg)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info().Fields(fields).Msg(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn().Fields(fields).Msg(msg)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error().Fields(fields).Msg(msg)
}
