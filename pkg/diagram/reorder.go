package diagram

import (
	"fmt"
	"slices"
)

// unit is a run of levels that reordering moves as a whole: either a
// registered block or a single free variable.
type unit struct {
	block   *Block
	indices []int
}

// Reorder permutes the order with the given method. Blocks move as a unit
// and keep their internal order; free variables move individually.
// Reorder runs whether or not automatic reordering is enabled.
func (m *Memory) Reorder(method Method) {
	if method == MethodNone || m.Size() < 2 {
		return
	}

	units := m.units()

	switch method {
	case MethodReverse:
		slices.Reverse(units)
	case MethodRotate:
		units = append(units[1:], units[0])
	case MethodShuffle:
		m.rng.Shuffle(len(units), func(i, j int) { units[i], units[j] = units[j], units[i] })
	case MethodNone:
		return
	}

	level := 0

	for _, u := range units {
		if u.block != nil {
			u.block.Low = level
		}

		for _, idx := range u.indices {
			m.level2index[level] = idx
			m.index2level[idx] = level
			level++
		}
	}

	m.stats.Reorders++

	m.logger.Debug("variables reordered", "method", method.String(), "units", len(units))
}

// Permute installs an explicit order: order[level] is the index placed at level.
// The order must be a permutation of the allocated indices and must keep every
// registered block contiguous, with its variables in their current order.
func (m *Memory) Permute(order []int) error {
	if len(order) != m.Size() {
		return fmt.Errorf("%w: got %d entries for %d variables", ErrBadPermutation, len(order), m.Size())
	}

	index2level := make([]int, len(order))
	for i := range index2level {
		index2level[i] = -1
	}

	for level, idx := range order {
		if idx < 0 || idx >= len(order) || index2level[idx] >= 0 {
			return fmt.Errorf("%w: bad index %d at level %d", ErrBadPermutation, idx, level)
		}

		index2level[idx] = level
	}

	newLows := make(map[BlockID]int, len(m.blocks))

	for id, blk := range m.blocks {
		low := index2level[m.level2index[blk.Low]]

		for level := blk.Low; level <= blk.High(); level++ {
			if index2level[m.level2index[level]] != low+level-blk.Low {
				return fmt.Errorf("%w: block %d", ErrBlockSplit, id)
			}
		}

		newLows[id] = low
	}

	for id, low := range newLows {
		m.blocks[id].Low = low
	}

	m.level2index = slices.Clone(order)
	m.index2level = index2level
	m.stats.Reorders++

	return nil
}

// units splits the current order into reorderable units, top to bottom.
func (m *Memory) units() []unit {
	byLow := make(map[int]*Block, len(m.blocks))
	for _, blk := range m.blocks {
		byLow[blk.Low] = blk
	}

	units := make([]unit, 0, m.Size())

	for level := 0; level < m.Size(); {
		if blk, ok := byLow[level]; ok {
			units = append(units, unit{
				block:   blk,
				indices: slices.Clone(m.level2index[level : level+blk.Size]),
			})
			level += blk.Size

			continue
		}

		units = append(units, unit{indices: []int{m.level2index[level]}})
		level++
	}

	return units
}
