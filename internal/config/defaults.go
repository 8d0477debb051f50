package config

import (
	"github.com/Sumatoshi-tech/ddgroups/pkg/diagram"
	"github.com/Sumatoshi-tech/ddgroups/pkg/vgroup"
)

// Allocator defaults.
const (
	DefaultMinBlockSize = vgroup.DefaultMinBlockSize
)

// Diagram defaults.
const (
	DefaultMaxIndex          = diagram.DefaultMaxIndex
	DefaultReorderMethod     = "reverse"
	DefaultReorderingEnabled = false
	DefaultAutoReorderEvery  = 0
	DefaultSeed              = diagram.DefaultSeed
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Telemetry defaults.
const (
	DefaultOTLPEndpoint = ""
	DefaultOTLPInsecure = false
	DefaultEnvironment  = ""
)

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Allocator: AllocatorConfig{MinBlockSize: DefaultMinBlockSize},
		Diagram: DiagramConfig{
			MaxIndex:          DefaultMaxIndex,
			ReorderMethod:     DefaultReorderMethod,
			ReorderingEnabled: DefaultReorderingEnabled,
			AutoReorderEvery:  DefaultAutoReorderEvery,
			Seed:              DefaultSeed,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel, JSON: DefaultLogJSON},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: DefaultOTLPEndpoint,
			OTLPInsecure: DefaultOTLPInsecure,
			Environment:  DefaultEnvironment,
		},
	}
}
