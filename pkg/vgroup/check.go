package vgroup

import (
	"errors"
	"fmt"
	"slices"
)

// Check verifies the forest invariants and returns every violation found,
// each wrapping ErrCorruptForest:
//
//   - siblings are sorted by low level and do not overlap;
//   - a child lies within its parent and shares its chunk;
//   - every group holds at least one handle, sorted by id, each pointing back at it;
//   - every live handle caches its group's range;
//   - only roots own physical reservations, and the root index mirrors the roots.
func (a *Allocator) Check() error {
	if a.closed {
		return nil
	}

	var errs []error

	report := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrCorruptForest}, args...)...))
	}

	seen := make(map[groupID]bool)

	a.checkSiblings(noGroup, seen, report)

	for id := range a.groups {
		if a.groups[id].live && !seen[groupID(id)] {
			report("group %d is live but unreachable", id)
		}
	}

	if a.rootIndex.Len() != len(a.roots) {
		report("root index holds %d entries for %d roots", a.rootIndex.Len(), len(a.roots))
	}

	for h, rec := range a.handles {
		if rec.group == noGroup {
			if rec.cached != InvalidRange {
				report("orphan handle %d caches %v", h, rec.cached)
			}

			continue
		}

		if !seen[rec.group] || !slices.Contains(a.groups[rec.group].handles, h) {
			report("handle %d points at group %d which does not hold it", h, rec.group)
		}
	}

	return errors.Join(errs...)
}

func (a *Allocator) checkSiblings(parent groupID, seen map[groupID]bool, report func(string, ...any)) {
	prevHigh := -1

	for pos, id := range a.siblings(parent) {
		if seen[id] {
			report("group %d reachable twice", id)

			continue
		}

		seen[id] = true
		g := &a.groups[id]

		if !g.live {
			report("group %d in sibling list is not live", id)

			continue
		}

		if g.parent != parent {
			report("group %d has parent %d, listed under %d", id, g.parent, parent)
		}

		if pos > 0 && g.low <= prevHigh {
			report("group %d [%d,%d] overlaps or precedes its left sibling", id, g.low, g.high)
		}

		prevHigh = g.high

		a.checkGroup(id, report)
		a.checkSiblings(id, seen, report)
	}
}

func (a *Allocator) checkGroup(id groupID, report func(string, ...any)) {
	g := &a.groups[id]

	if g.low < 0 || g.high < g.low {
		report("group %d has bad range [%d,%d]", id, g.low, g.high)
	}

	if g.parent != noGroup {
		p := &a.groups[g.parent]

		if g.low < p.low || g.high > p.high {
			report("group %d [%d,%d] escapes parent [%d,%d]", id, g.low, g.high, p.low, p.high)
		}

		if g.chunk != p.chunk {
			report("group %d chunk %d differs from parent chunk %d", id, g.chunk, p.chunk)
		}

		if g.physical {
			report("nested group %d owns a physical reservation", id)
		}
	}

	if len(g.handles) == 0 {
		report("group %d has no handles", id)
	}

	if !slices.IsSorted(g.handles) {
		report("group %d handles not sorted", id)
	}

	for _, h := range g.handles {
		rec, ok := a.handles[h]

		switch {
		case !ok:
			report("group %d holds consumed handle %d", id, h)
		case rec.group != id:
			report("group %d holds handle %d owned by %d", id, h, rec.group)
		case rec.cached != g.bounds():
			report("handle %d caches %v, group %d is [%d,%d]", h, rec.cached, id, g.low, g.high)
		}
	}
}
