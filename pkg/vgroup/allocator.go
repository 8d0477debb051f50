// Package vgroup allocates groups of contiguous decision-diagram levels for
// encoders that need their variables to stay adjacent.
//
// Groups form a forest of non-overlapping, nested level intervals. Only forest
// roots may own a physical reservation (a block registered with the diagram
// package so reordering keeps it contiguous); nested groups are logical and
// live inside their root's block. Encoders holding compatible requests share
// a group through separate handles, and a group lives for as long as one of
// its handles does.
//
// The allocator is single-threaded. After the diagram package reorders its
// variables, callers must invoke Resync before trusting any handle range.
package vgroup

import (
	"errors"
	"log/slog"

	"github.com/Sumatoshi-tech/ddgroups/pkg/alg/interval"
	"github.com/Sumatoshi-tech/ddgroups/pkg/diagram"
)

// DefaultMinBlockSize is the smallest root size that receives a physical reservation.
const DefaultMinBlockSize = 2

// firstFreeLevel is where the free-range search starts. Level 0 is never
// chosen by the search; callers may still request it explicitly.
const firstFreeLevel = 1

// Handle is a caller's share of a group. Handles are issued in increasing order.
type Handle uint64

// Range is a closed level interval. The zero-value is not valid; see InvalidRange.
type Range struct {
	Low  int
	High int
}

// InvalidRange is the cached range of a handle whose group was destroyed
// under it by another caller's Dissolve.
var InvalidRange = Range{Low: -1, High: -1}

// Valid reports whether the range refers to real levels.
func (r Range) Valid() bool {
	return r.Low >= 0 && r.High >= r.Low
}

// Size returns the number of levels in the range.
func (r Range) Size() int {
	if !r.Valid() {
		return 0
	}

	return r.High - r.Low + 1
}

// Stats summarises the current forest.
type Stats struct {
	Roots    int
	Groups   int
	Handles  int
	Physical int
}

// Allocator owns the group forest. Construct it once with New and pass it to
// every encoder that reserves levels.
type Allocator struct {
	pkg          diagram.Package
	logger       *slog.Logger
	observer     Observer
	minBlockSize int

	groups    []group
	freeSlots []groupID
	roots     []groupID
	rootIndex *interval.Tree[int, groupID]

	handles    map[Handle]*handleRecord
	nextHandle Handle

	closed bool
}

// handleRecord is the allocator-side state of a Handle.
type handleRecord struct {
	cached Range
	group  groupID
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithMinBlockSize sets the smallest root size that receives a physical
// reservation. Values below one are ignored.
func WithMinBlockSize(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.minBlockSize = n
		}
	}
}

// WithLogger sets the logger for structural events.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithObserver installs an event observer.
func WithObserver(observer Observer) Option {
	return func(a *Allocator) {
		if observer != nil {
			a.observer = observer
		}
	}
}

// New creates an allocator on top of a diagram package.
func New(pkg diagram.Package, opts ...Option) *Allocator {
	alloc := &Allocator{
		pkg:          pkg,
		logger:       slog.Default(),
		observer:     NopObserver{},
		minBlockSize: DefaultMinBlockSize,
		rootIndex:    interval.New[int, groupID](),
		handles:      make(map[Handle]*handleRecord),
		nextHandle:   1,
	}

	for _, opt := range opts {
		opt(alloc)
	}

	return alloc
}

// Range returns the cached range of a live handle. The range is InvalidRange
// when the handle's group was dissolved. ok is false for handles that were
// never issued or were already released.
func (a *Allocator) Range(h Handle) (Range, bool) {
	rec, ok := a.handles[h]
	if !ok {
		return InvalidRange, false
	}

	return rec.cached, true
}

// Stats returns a summary of the forest.
func (a *Allocator) Stats() Stats {
	stats := Stats{Roots: len(a.roots), Handles: len(a.handles)}

	for id := range a.groups {
		g := &a.groups[id]
		if !g.live {
			continue
		}

		stats.Groups++

		if g.physical {
			stats.Physical++
		}
	}

	return stats
}

// Close tears the allocator down: every physical reservation is freed, every
// group destroyed and every outstanding handle invalidated. Later reservations
// fail with ErrClosed; releasing or dissolving an outstanding handle is a no-op.
func (a *Allocator) Close() error {
	if a.closed {
		return nil
	}

	var errs []error

	for _, id := range a.roots {
		if a.groups[id].physical {
			errs = append(errs, a.pkg.FreeBlock(a.groups[id].block))
		}
	}

	for _, rec := range a.handles {
		rec.cached = InvalidRange
		rec.group = noGroup
	}

	a.observer.GroupsChanged(-a.Stats().Groups)

	a.groups = nil
	a.freeSlots = nil
	a.roots = nil
	a.rootIndex.Clear()
	a.closed = true

	return fatal("close", errors.Join(errs...))
}
