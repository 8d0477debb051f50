package vgroup

import "slices"

// Resync recomputes every group's range from the current level of its low
// index and refreshes every handle's cached range. Each group is recomputed
// on its own, so a child may move differently from its parent; sibling lists
// are re-sorted when that changes their order. Calling Resync without an
// intervening reorder changes nothing.
func (a *Allocator) Resync() {
	if a.closed {
		return
	}

	moved := 0

	for _, id := range a.roots {
		moved += a.resyncGroup(id)
	}

	if a.sortSiblings(noGroup) || moved > 0 {
		a.rebuildRootIndex()
	}

	a.observer.Resynced(moved)

	if moved > 0 {
		a.logger.Debug("groups resynchronised", "moved", moved)
	}
}

// resyncGroup refreshes id and its subtree and returns how many groups moved.
func (a *Allocator) resyncGroup(id groupID) int {
	g := &a.groups[id]
	moved := 0

	newLow := a.pkg.LevelOfIndex(g.idxLow)
	if delta := newLow - g.low; delta != 0 {
		g.low += delta
		g.high += delta
		moved++
	}

	for _, h := range g.handles {
		if rec, ok := a.handles[h]; ok {
			rec.cached = g.bounds()
		}
	}

	for _, child := range g.children {
		moved += a.resyncGroup(child)
	}

	a.sortSiblings(id)

	return moved
}

// sortSiblings restores ascending order of parent's sibling list and reports
// whether it had to reorder anything.
func (a *Allocator) sortSiblings(parent groupID) bool {
	list := a.siblings(parent)

	byLow := func(x, y groupID) int { return a.groups[x].low - a.groups[y].low }
	if slices.IsSortedFunc(list, byLow) {
		return false
	}

	slices.SortFunc(list, byLow)

	return true
}
