// Package config loads ddgroups settings from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Sumatoshi-tech/ddgroups/pkg/diagram"
)

// Config is the top-level configuration struct for ddgroups.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Allocator AllocatorConfig `mapstructure:"allocator"`
	Diagram   DiagramConfig   `mapstructure:"diagram"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AllocatorConfig holds group allocator knobs.
type AllocatorConfig struct {
	MinBlockSize int `mapstructure:"min_block_size"`
}

// DiagramConfig holds settings of the in-memory diagram package.
type DiagramConfig struct {
	MaxIndex          int    `mapstructure:"max_index"`
	ReorderMethod     string `mapstructure:"reorder_method"`
	ReorderingEnabled bool   `mapstructure:"reordering_enabled"`
	AutoReorderEvery  int    `mapstructure:"auto_reorder_every"`
	Seed              uint64 `mapstructure:"seed"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings. An empty endpoint
// keeps tracing and metrics export disabled. SuppressSpans names spans
// replaced by no-op spans, e.g. "scenario.check".
type TelemetryConfig struct {
	OTLPEndpoint  string   `mapstructure:"otlp_endpoint"`
	OTLPInsecure  bool     `mapstructure:"otlp_insecure"`
	Environment   string   `mapstructure:"environment"`
	SuppressSpans []string `mapstructure:"suppress_spans"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidMinBlockSize indicates the block threshold is not positive.
	ErrInvalidMinBlockSize = errors.New("allocator.min_block_size must be positive")
	// ErrInvalidMaxIndex indicates the index space is empty.
	ErrInvalidMaxIndex = errors.New("diagram.max_index must be positive")
	// ErrInvalidReorderMethod indicates an unknown reordering method name.
	ErrInvalidReorderMethod = errors.New("diagram.reorder_method is not a known method")
	// ErrInvalidAutoReorder indicates a negative auto-reorder period.
	ErrInvalidAutoReorder = errors.New("diagram.auto_reorder_every must be non-negative")
	// ErrInvalidLogLevel indicates an unparsable log level.
	ErrInvalidLogLevel = errors.New("logging.level must be debug, info, warn or error")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Allocator.MinBlockSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMinBlockSize, c.Allocator.MinBlockSize)
	}

	diagramErr := c.validateDiagram()
	if diagramErr != nil {
		return diagramErr
	}

	_, levelErr := c.LogLevel()

	return levelErr
}

func (c *Config) validateDiagram() error {
	if c.Diagram.MaxIndex <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxIndex, c.Diagram.MaxIndex)
	}

	if c.Diagram.AutoReorderEvery < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAutoReorder, c.Diagram.AutoReorderEvery)
	}

	_, methodErr := diagram.ParseMethod(c.Diagram.ReorderMethod)
	if methodErr != nil {
		return fmt.Errorf("%w: %q", ErrInvalidReorderMethod, c.Diagram.ReorderMethod)
	}

	return nil
}

// LogLevel parses the configured logging level. An empty level means info.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level

	name := strings.TrimSpace(c.Logging.Level)
	if name == "" {
		return slog.LevelInfo, nil
	}

	err := level.UnmarshalText([]byte(name))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return level, nil
}
