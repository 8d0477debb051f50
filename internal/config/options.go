package config

import (
	"log/slog"

	"github.com/Sumatoshi-tech/ddgroups/pkg/diagram"
	"github.com/Sumatoshi-tech/ddgroups/pkg/vgroup"
)

// Overrides are per-run adjustments of the allocator and diagram sections.
// Nil fields keep the loaded value.
type Overrides struct {
	MinBlockSize      *int    `yaml:"min_block_size"`
	MaxIndex          *int    `yaml:"max_index"`
	ReorderMethod     *string `yaml:"reorder_method"`
	ReorderingEnabled *bool   `yaml:"reordering_enabled"`
	AutoReorderEvery  *int    `yaml:"auto_reorder_every"`
	Seed              *uint64 `yaml:"seed"`
}

// Apply returns a copy of c with the non-nil overrides merged in. The result
// is validated.
func (c *Config) Apply(o Overrides) (Config, error) {
	out := *c

	applyValue(&out.Allocator.MinBlockSize, o.MinBlockSize)
	applyValue(&out.Diagram.MaxIndex, o.MaxIndex)
	applyValue(&out.Diagram.ReorderMethod, o.ReorderMethod)
	applyValue(&out.Diagram.ReorderingEnabled, o.ReorderingEnabled)
	applyValue(&out.Diagram.AutoReorderEvery, o.AutoReorderEvery)
	applyValue(&out.Diagram.Seed, o.Seed)

	validateErr := out.Validate()
	if validateErr != nil {
		return Config{}, validateErr
	}

	return out, nil
}

// applyValue sets *dst = *src when src is set.
func applyValue[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// AllocatorOptions translates the allocator section into vgroup options.
// The logger and observer are passed through when non-nil.
func (c *Config) AllocatorOptions(logger *slog.Logger, observer vgroup.Observer) []vgroup.Option {
	opts := []vgroup.Option{vgroup.WithMinBlockSize(c.Allocator.MinBlockSize)}

	if logger != nil {
		opts = append(opts, vgroup.WithLogger(logger))
	}

	if observer != nil {
		opts = append(opts, vgroup.WithObserver(observer))
	}

	return opts
}

// MemoryOptions translates the diagram section into diagram.Memory options.
// An unparsable method falls back to MethodNone; Validate rejects it earlier.
func (c *Config) MemoryOptions(logger *slog.Logger) []diagram.Option {
	method, err := diagram.ParseMethod(c.Diagram.ReorderMethod)
	if err != nil {
		method = diagram.MethodNone
	}

	opts := []diagram.Option{
		diagram.WithMaxIndex(c.Diagram.MaxIndex),
		diagram.WithReordering(c.Diagram.ReorderingEnabled, method),
		diagram.WithAutoReorder(c.Diagram.AutoReorderEvery),
		diagram.WithSeed(c.Diagram.Seed),
	}

	if logger != nil {
		opts = append(opts, diagram.WithLogger(logger))
	}

	return opts
}
