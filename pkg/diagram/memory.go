package diagram

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
)

// Default Memory settings.
const (
	DefaultMaxIndex = 1 << 16
	DefaultSeed     = 1
)

// Block describes a registered block at its current position.
type Block struct {
	ID   BlockID
	Low  int
	Size int
}

// High returns the last level covered by the block.
func (b Block) High() int {
	return b.Low + b.Size - 1
}

// Stats counts calls made against a Memory package.
type Stats struct {
	VariablesCreated int
	BlocksReserved   int
	BlocksFreed      int
	Reorders         int
	AutoReorders     int
}

// Memory is an in-process variable order. Levels are tracked with a pair of
// permutation tables; blocks are tracked by their current lowest level and are
// moved as a unit by Reorder.
//
// Memory is not safe for concurrent use.
type Memory struct {
	logger *slog.Logger
	rng    *rand.Rand

	level2index []int
	index2level []int

	blocks    map[BlockID]*Block
	nextBlock BlockID

	maxIndex int

	reorderEnabled bool
	method         Method
	autoEvery      int
	sinceReorder   int

	stats Stats
}

type memoryConfig struct {
	logger    *slog.Logger
	variables int
	maxIndex  int
	enabled   bool
	method    Method
	autoEvery int
	seed      uint64
}

// Option configures a Memory package.
type Option func(*memoryConfig)

// WithVariables pre-allocates n variables at indices 0..n-1 in identity order.
func WithVariables(n int) Option {
	return func(c *memoryConfig) {
		if n > 0 {
			c.variables = n
		}
	}
}

// WithMaxIndex bounds the index space. Values below one are ignored.
func WithMaxIndex(n int) Option {
	return func(c *memoryConfig) {
		if n > 0 {
			c.maxIndex = n
		}
	}
}

// WithReordering sets the initial automatic reordering state.
func WithReordering(enabled bool, method Method) Option {
	return func(c *memoryConfig) {
		c.enabled = enabled
		c.method = method
	}
}

// WithAutoReorder triggers a reorder every n created variables while
// automatic reordering is enabled. Zero disables the trigger.
func WithAutoReorder(every int) Option {
	return func(c *memoryConfig) {
		c.autoEvery = max(every, 0)
	}
}

// WithSeed seeds the generator used by MethodShuffle.
func WithSeed(seed uint64) Option {
	return func(c *memoryConfig) {
		c.seed = seed
	}
}

// WithLogger sets the logger used for reorder and block events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *memoryConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewMemory creates an empty variable order.
func NewMemory(opts ...Option) *Memory {
	cfg := memoryConfig{
		logger:   slog.Default(),
		maxIndex: DefaultMaxIndex,
		method:   MethodNone,
		seed:     DefaultSeed,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	mem := &Memory{
		logger:         cfg.logger,
		rng:            rand.New(rand.NewPCG(cfg.seed, cfg.seed)), //nolint:gosec // reordering is not security sensitive.
		blocks:         make(map[BlockID]*Block),
		nextBlock:      1,
		maxIndex:       cfg.maxIndex,
		reorderEnabled: cfg.enabled,
		method:         cfg.method,
		autoEvery:      cfg.autoEvery,
	}

	for idx := range min(cfg.variables, cfg.maxIndex) {
		mem.appendVar(idx)
	}

	return mem
}

// LevelOfIndex returns the current level of the variable with the given index,
// or -1 if no such variable exists.
func (m *Memory) LevelOfIndex(index int) int {
	if index < 0 || index >= len(m.index2level) {
		return -1
	}

	return m.index2level[index]
}

// IndexOfLevel returns the index of the variable at level, or -1 if the level is empty.
func (m *Memory) IndexOfLevel(level int) int {
	if level < 0 || level >= len(m.level2index) {
		return -1
	}

	return m.level2index[level]
}

// Size returns the number of allocated variables.
func (m *Memory) Size() int {
	return len(m.level2index)
}

// MaxIndex returns the exclusive upper bound of the index space.
func (m *Memory) MaxIndex() int {
	return m.maxIndex
}

// CreateVarAtIndex appends the variable with the given index at the bottom
// level. Only the next consecutive index is accepted.
func (m *Memory) CreateVarAtIndex(index int) error {
	if index >= m.maxIndex {
		return fmt.Errorf("%w: index %d, limit %d", ErrIndexExhausted, index, m.maxIndex)
	}

	if index != len(m.index2level) {
		return fmt.Errorf("%w: got %d, next is %d", ErrIndexOutOfOrder, index, len(m.index2level))
	}

	m.appendVar(index)
	m.stats.VariablesCreated++

	if m.reorderEnabled && m.autoEvery > 0 {
		m.sinceReorder++

		if m.sinceReorder >= m.autoEvery {
			m.sinceReorder = 0
			m.stats.AutoReorders++
			m.Reorder(m.method)
		}
	}

	return nil
}

// ReserveBlock registers the size levels starting at the level of startIndex
// as a block.
func (m *Memory) ReserveBlock(startIndex, size int) (BlockID, error) {
	low := m.LevelOfIndex(startIndex)
	if low < 0 || size <= 0 || low+size > m.Size() {
		return 0, fmt.Errorf("%w: index %d, size %d", ErrBlockRange, startIndex, size)
	}

	for _, blk := range m.blocks {
		if blk.Low <= low+size-1 && blk.High() >= low {
			return 0, fmt.Errorf("%w: [%d,%d] vs block %d [%d,%d]",
				ErrBlockOverlap, low, low+size-1, blk.ID, blk.Low, blk.High())
		}
	}

	id := m.nextBlock
	m.nextBlock++
	m.blocks[id] = &Block{ID: id, Low: low, Size: size}
	m.stats.BlocksReserved++

	m.logger.Debug("block reserved", "block", id, "low", low, "size", size)

	return id, nil
}

// FreeBlock withdraws a registered block.
func (m *Memory) FreeBlock(id BlockID) error {
	if _, ok := m.blocks[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBlock, id)
	}

	delete(m.blocks, id)
	m.stats.BlocksFreed++

	m.logger.Debug("block freed", "block", id)

	return nil
}

// Blocks returns the registered blocks sorted by level.
func (m *Memory) Blocks() []Block {
	out := make([]Block, 0, len(m.blocks))

	for _, blk := range m.blocks {
		out = append(out, *blk)
	}

	slices.SortFunc(out, func(a, b Block) int { return a.Low - b.Low })

	return out
}

// ReorderingStatus reports whether automatic reordering is enabled and with which method.
func (m *Memory) ReorderingStatus() (bool, Method) {
	return m.reorderEnabled, m.method
}

// DisableReordering turns automatic reordering off.
func (m *Memory) DisableReordering() {
	m.reorderEnabled = false
}

// EnableReordering turns automatic reordering on with the given method.
func (m *Memory) EnableReordering(method Method) {
	m.reorderEnabled = true
	m.method = method
}

// Stats returns call counters.
func (m *Memory) Stats() Stats {
	return m.stats
}

// Order returns a copy of the level-to-index table.
func (m *Memory) Order() []int {
	return slices.Clone(m.level2index)
}

func (m *Memory) appendVar(index int) {
	m.index2level = append(m.index2level, len(m.level2index))
	m.level2index = append(m.level2index, index)
}
