package vgroup

import (
	"errors"
	"fmt"
	"slices"
)

// Dissolve forcibly destroys the group of h together with its subtree.
//
// The forest is resynchronised first. If the group is nested, it is promoted:
// every ancestor up to its physical root is torn down, their handles are
// invalidated, and the other children of each torn ancestor become physical
// roots of their own. The group, now a root, is then destroyed with its
// subtree; all other handles on it or its descendants are invalidated.
//
// Dissolving an already invalidated handle, including any handle outstanding
// at Close, is a no-op. The handle is consumed.
func (a *Allocator) Dissolve(h Handle) error {
	const op = "dissolve"

	rec, ok := a.handles[h]
	if !ok {
		return fatal(op, fmt.Errorf("%w: %d", ErrUnknownHandle, h))
	}

	if rec.group == noGroup || !rec.cached.Valid() {
		delete(a.handles, h)
		a.observer.Dissolved(0)

		return nil
	}

	a.Resync()

	target := rec.group
	if !a.groups[target].live || !slices.Contains(a.groups[target].handles, h) {
		return fatal(op, fmt.Errorf("%w: handle %d not held by its group", ErrCorruptForest, h))
	}

	restore := a.suspendReordering()
	defer restore()

	promoted, promoteErr := a.promote(target, h)
	destroyed, destroyErr := a.destroySubtree(target, h)

	delete(a.handles, h)

	a.observer.Dissolved(promoted + destroyed)

	return fatal(op, errors.Join(promoteErr, destroyErr))
}

// promote turns id into a physical root. Each ancestor on the path from the
// root is torn down; siblings met on the way become roots. It returns the
// number of handles invalidated, not counting keep.
func (a *Allocator) promote(id groupID, keep Handle) (int, error) {
	path := a.pathFromRoot(id)
	if len(path) == 0 {
		return 0, nil
	}

	root := path[0]
	errs := []error{a.freeBlock(root)}

	a.detach(root)

	invalidated := 0

	for step, ancestor := range path {
		next := id
		if step+1 < len(path) {
			next = path[step+1]
		}

		invalidated += a.invalidate(ancestor, keep)

		for _, child := range a.groups[ancestor].children {
			if child == next {
				continue
			}

			a.insertSibling(noGroup, child)
			errs = append(errs, a.reserveBlock(child))
		}

		a.logger.Debug("ancestor torn down", "low", a.groups[ancestor].low, "high", a.groups[ancestor].high)

		a.dropGroup(ancestor)
	}

	a.insertSibling(noGroup, id)
	errs = append(errs, a.reserveBlock(id))

	a.logger.Debug("group promoted", "low", a.groups[id].low, "high", a.groups[id].high, "levels", len(path))

	return invalidated, errors.Join(errs...)
}

// destroySubtree removes id and its descendants from the forest and frees
// their reservations. It returns the number of handles invalidated, not
// counting keep.
func (a *Allocator) destroySubtree(id groupID, keep Handle) (int, error) {
	nodes := a.subtree(id)

	var errs []error

	a.detach(id)

	invalidated := 0

	for _, node := range nodes {
		errs = append(errs, a.freeBlock(node))
		invalidated += a.invalidate(node, keep)
		a.dropGroup(node)
	}

	return invalidated, errors.Join(errs...)
}
