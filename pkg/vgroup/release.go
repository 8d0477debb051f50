package vgroup

import (
	"errors"
	"fmt"
	"slices"
)

// Release gives a handle back. It reports whether the handle's group was
// destroyed, which happens when the handle was the group's last share.
//
// Releasing a handle invalidated by another caller's Dissolve, or by Close,
// is a no-op that returns false. In every case the handle is consumed; releasing it again
// fails with ErrUnknownHandle.
func (a *Allocator) Release(h Handle) (bool, error) {
	const op = "release"

	rec, ok := a.handles[h]
	if !ok {
		return false, fatal(op, fmt.Errorf("%w: %d", ErrUnknownHandle, h))
	}

	delete(a.handles, h)

	if rec.group == noGroup || !rec.cached.Valid() {
		a.observer.Released(false)

		return false, nil
	}

	id := rec.group
	g := &a.groups[id]

	pos := slices.Index(g.handles, h)
	if !g.live || pos < 0 {
		return false, fatal(op, fmt.Errorf("%w: handle %d not held by its group", ErrCorruptForest, h))
	}

	g.handles = slices.Delete(g.handles, pos, pos+1)

	if len(g.handles) > 0 {
		a.observer.Released(false)

		return false, nil
	}

	removeErr := a.removeGroup(id)

	a.observer.Released(true)

	return true, fatal(op, removeErr)
}

// removeGroup destroys a group that lost its last handle. Its children take
// its place among its siblings. When the group was a physical root, each
// child that becomes a root gets a physical reservation of its own.
func (a *Allocator) removeGroup(id groupID) error {
	restore := a.suspendReordering()
	defer restore()

	wasRoot := a.groups[id].parent == noGroup
	low, high := a.groups[id].low, a.groups[id].high

	errs := []error{a.freeBlock(id)}

	children := a.spliceOut(id)

	if wasRoot {
		for _, child := range children {
			errs = append(errs, a.reserveBlock(child))
		}
	}

	a.dropGroup(id)

	a.logger.Debug("group removed", "low", low, "high", high, "promoted_children", len(children))

	return errors.Join(errs...)
}
