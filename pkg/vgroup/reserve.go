package vgroup

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/ddgroups/pkg/diagram"
)

// matchKind is the result class of a share search.
type matchKind int

const (
	// matchNone: the request overlaps nothing at this depth.
	matchNone matchKind = iota
	// matchExact: a group with identical bounds and chunk exists.
	matchExact
	// matchContained: the request nests strictly inside the reported group.
	matchContained
	// matchConflict: the request partially overlaps a group, swallows one, or has the wrong chunk.
	matchConflict
)

type match struct {
	kind  matchKind
	group groupID
}

// Reserve obtains a handle on a group of size levels with the given chunk.
//
// With canShare set and fromLevel >= 0, an existing group with the same
// bounds and chunk is shared, and a request nested inside a compatible group
// becomes a logical child of the tightest such group. Otherwise, or when the
// requested position conflicts with existing groups, a new forest root is
// allocated: at fromLevel when that range is free, else at the first free
// range, extending the variable space as needed.
//
// It returns the handle and the low level of its group. Every error is a
// *FatalError.
func (a *Allocator) Reserve(fromLevel, size, chunk int, canShare bool) (Handle, int, error) {
	const op = "reserve"

	if a.closed {
		return 0, -1, fatal(op, ErrClosed)
	}

	if size <= 0 || chunk <= 0 || fromLevel < -1 {
		return 0, -1, fatal(op, fmt.Errorf("%w: level %d, size %d, chunk %d", ErrInvalidArgument, fromLevel, size, chunk))
	}

	target := noGroup
	outcome := OutcomeNewRoot

	if canShare && fromLevel >= 0 {
		found := a.search(fromLevel, fromLevel+size-1, chunk)

		switch found.kind {
		case matchExact:
			target = found.group
			outcome = OutcomeShared
		case matchContained:
			target = a.attachChild(found.group, fromLevel, size, chunk)
			outcome = OutcomeNewChild
		case matchConflict:
			a.observer.Conflict()
			a.logger.Debug("share conflict, allocating elsewhere", "level", fromLevel, "size", size, "chunk", chunk)
		case matchNone:
		}
	}

	if target == noGroup {
		id, err := a.newRoot(fromLevel, size, chunk)
		if err != nil {
			return 0, -1, fatal(op, err)
		}

		target = id
	}

	h := a.issueHandle(target)
	a.observer.Reserved(outcome, size)

	return h, a.groups[target].low, nil
}

// CanShare reports whether reserving [fromLevel, fromLevel+size-1] with the
// given chunk would avoid a conflict. A request for any level (fromLevel -1)
// never searches the forest and so never conflicts. It does not modify the
// forest.
func (a *Allocator) CanShare(fromLevel, size, chunk int) bool {
	if a.closed || size <= 0 || chunk <= 0 || fromLevel < -1 {
		return false
	}

	if fromLevel == -1 {
		return true
	}

	return a.search(fromLevel, fromLevel+size-1, chunk).kind != matchConflict
}

// search classifies [low, high] against the forest. Roots are probed through
// the interval index; nested levels are scanned.
func (a *Allocator) search(low, high, chunk int) match {
	hits := a.rootIndex.QueryOverlap(low, high)

	switch len(hits) {
	case 0:
		return match{kind: matchNone, group: noGroup}
	case 1:
		return a.classify(hits[0].Value, low, high, chunk)
	default:
		return match{kind: matchConflict, group: noGroup}
	}
}

// searchChildren looks for the tightest match among the children of parent.
func (a *Allocator) searchChildren(parent groupID, low, high, chunk int) match {
	for _, child := range a.groups[parent].children {
		g := &a.groups[child]

		if high < g.low {
			break
		}

		if low > g.high {
			continue
		}

		return a.classify(child, low, high, chunk)
	}

	return match{kind: matchNone, group: noGroup}
}

// classify compares the request against a group it is known to overlap.
func (a *Allocator) classify(id groupID, low, high, chunk int) match {
	g := &a.groups[id]

	switch {
	case low == g.low && high == g.high:
		if g.chunk != chunk {
			return match{kind: matchConflict, group: id}
		}

		return match{kind: matchExact, group: id}
	case low >= g.low && high <= g.high:
		if g.chunk != chunk {
			return match{kind: matchConflict, group: id}
		}

		inner := a.searchChildren(id, low, high, chunk)
		if inner.kind == matchNone {
			return match{kind: matchContained, group: id}
		}

		return inner
	default:
		return match{kind: matchConflict, group: id}
	}
}

// attachChild nests a new logical group under parent.
func (a *Allocator) attachChild(parent groupID, low, size, chunk int) groupID {
	id := a.newGroup(group{
		low:    low,
		high:   low + size - 1,
		idxLow: a.pkg.IndexOfLevel(low),
		chunk:  chunk,
		parent: noGroup,
	})

	a.insertSibling(parent, id)

	a.logger.Debug("logical group attached", "parent", parent, "low", low, "size", size, "chunk", chunk)

	return id
}

// newRoot allocates a fresh forest root. Automatic reordering is suspended
// while levels are chosen, variables created and the block registered.
func (a *Allocator) newRoot(fromLevel, size, chunk int) (groupID, error) {
	restore := a.suspendReordering()
	defer restore()

	low := a.freeRange(fromLevel, size)
	high := low + size - 1

	extendErr := a.ensureLevels(high)
	if extendErr != nil {
		return noGroup, extendErr
	}

	id := a.newGroup(group{
		low:    low,
		high:   high,
		idxLow: a.pkg.IndexOfLevel(low),
		chunk:  chunk,
		parent: noGroup,
	})

	blockErr := a.reserveBlock(id)
	if blockErr != nil {
		a.dropGroup(id)

		return noGroup, blockErr
	}

	a.insertSibling(noGroup, id)

	a.logger.Debug("root group allocated", "low", low, "high", high, "chunk", chunk, "physical", a.groups[id].physical)

	return id, nil
}

// freeRange picks the low level of a new root of the given size.
func (a *Allocator) freeRange(fromLevel, size int) int {
	if fromLevel >= 0 && len(a.rootIndex.QueryOverlap(fromLevel, fromLevel+size-1)) == 0 {
		return fromLevel
	}

	start := firstFreeLevel

	for _, id := range a.roots {
		g := &a.groups[id]

		if g.high < start {
			continue
		}

		if start+size-1 < g.low {
			break
		}

		start = g.high + 1
	}

	return start
}

// ensureLevels creates variables until level high exists.
func (a *Allocator) ensureLevels(high int) error {
	if high >= a.pkg.MaxIndex() {
		return fmt.Errorf("%w: need %d variables, limit %d", ErrIndexExhausted, high+1, a.pkg.MaxIndex())
	}

	for a.pkg.Size() <= high {
		createErr := a.pkg.CreateVarAtIndex(a.pkg.Size())
		if createErr != nil {
			if errors.Is(createErr, diagram.ErrIndexExhausted) {
				return errors.Join(ErrIndexExhausted, createErr)
			}

			return fmt.Errorf("create variable: %w", createErr)
		}
	}

	return nil
}

// reserveBlock registers a physical reservation for a root when it is large enough.
func (a *Allocator) reserveBlock(id groupID) error {
	g := &a.groups[id]
	if g.size() < a.minBlockSize {
		return nil
	}

	block, err := a.pkg.ReserveBlock(g.idxLow, g.size())
	if err != nil {
		return fmt.Errorf("reserve block [%d,%d]: %w", g.low, g.high, err)
	}

	g.block = block
	g.physical = true

	return nil
}

// freeBlock withdraws the physical reservation of id, if any.
func (a *Allocator) freeBlock(id groupID) error {
	g := &a.groups[id]
	if !g.physical {
		return nil
	}

	g.physical = false

	err := a.pkg.FreeBlock(g.block)
	if err != nil {
		return fmt.Errorf("free block [%d,%d]: %w", g.low, g.high, err)
	}

	return nil
}

// suspendReordering disables automatic reordering and returns a function
// restoring the previous state and method.
func (a *Allocator) suspendReordering() func() {
	enabled, method := a.pkg.ReorderingStatus()
	if !enabled {
		return func() {}
	}

	a.pkg.DisableReordering()

	return func() { a.pkg.EnableReordering(method) }
}

// issueHandle mints a handle on id. Handle ids only grow, so appending keeps
// the group's handle list sorted.
func (a *Allocator) issueHandle(id groupID) Handle {
	h := a.nextHandle
	a.nextHandle++

	g := &a.groups[id]
	g.handles = append(g.handles, h)
	a.handles[h] = &handleRecord{cached: g.bounds(), group: id}

	return h
}
