package vgroup

import (
	"slices"

	"github.com/Sumatoshi-tech/ddgroups/pkg/diagram"
)

// groupID addresses a group in the allocator's arena.
type groupID int32

// noGroup marks an absent parent or a handle whose group is gone.
const noGroup groupID = -1

// group is one node of the forest. Parent and child links are arena indices.
type group struct {
	low, high int
	idxLow    int
	chunk     int

	block    diagram.BlockID
	physical bool

	parent   groupID
	children []groupID
	handles  []Handle

	live bool
}

func (g *group) size() int {
	return g.high - g.low + 1
}

func (g *group) bounds() Range {
	return Range{Low: g.low, High: g.high}
}

// newGroup stores g in a free arena slot and returns its id. Pointers into the
// arena are invalidated by this call.
func (a *Allocator) newGroup(g group) groupID {
	g.live = true

	if n := len(a.freeSlots); n > 0 {
		id := a.freeSlots[n-1]
		a.freeSlots = a.freeSlots[:n-1]
		a.groups[id] = g

		a.observer.GroupsChanged(1)

		return id
	}

	a.groups = append(a.groups, g)

	a.observer.GroupsChanged(1)

	return groupID(len(a.groups) - 1)
}

// dropGroup returns a slot to the arena.
func (a *Allocator) dropGroup(id groupID) {
	a.groups[id] = group{parent: noGroup}
	a.freeSlots = append(a.freeSlots, id)

	a.observer.GroupsChanged(-1)
}

// siblings returns the sibling list that holds children of parent: the forest
// roots when parent is noGroup.
func (a *Allocator) siblings(parent groupID) []groupID {
	if parent == noGroup {
		return a.roots
	}

	return a.groups[parent].children
}

func (a *Allocator) setSiblings(parent groupID, list []groupID) {
	if parent == noGroup {
		a.roots = list

		return
	}

	a.groups[parent].children = list
}

// insertSibling adds id to parent's sibling list keeping it sorted by low.
func (a *Allocator) insertSibling(parent, id groupID) {
	list := a.siblings(parent)
	low := a.groups[id].low

	pos, _ := slices.BinarySearchFunc(list, low, func(sib groupID, target int) int {
		return a.groups[sib].low - target
	})

	a.setSiblings(parent, slices.Insert(list, pos, id))
	a.groups[id].parent = parent

	if parent == noGroup {
		a.rootIndex.Insert(a.groups[id].low, a.groups[id].high, id)
	}
}

// spliceOut removes id from its sibling list and puts its children in its
// place, preserving order. The children inherit id's parent.
func (a *Allocator) spliceOut(id groupID) []groupID {
	g := &a.groups[id]
	parent := g.parent
	children := slices.Clone(g.children)
	g.children = nil

	list := a.siblings(parent)

	pos := slices.Index(list, id)
	if pos < 0 {
		return nil
	}

	a.setSiblings(parent, slices.Replace(list, pos, pos+1, children...))

	if parent == noGroup {
		a.rootIndex.Delete(g.low, g.high, id)
	}

	for _, child := range children {
		a.groups[child].parent = parent

		if parent == noGroup {
			a.rootIndex.Insert(a.groups[child].low, a.groups[child].high, child)
		}
	}

	return children
}

// detach removes id and its whole subtree from its sibling list.
func (a *Allocator) detach(id groupID) {
	parent := a.groups[id].parent
	list := a.siblings(parent)

	pos := slices.Index(list, id)
	if pos < 0 {
		return
	}

	a.setSiblings(parent, slices.Delete(list, pos, pos+1))

	if parent == noGroup {
		a.rootIndex.Delete(a.groups[id].low, a.groups[id].high, id)
	}

	a.groups[id].parent = noGroup
}

// subtree returns id and all its descendants in pre-order.
func (a *Allocator) subtree(id groupID) []groupID {
	out := []groupID{id}

	for i := 0; i < len(out); i++ {
		out = append(out, a.groups[out[i]].children...)
	}

	return out
}

// pathFromRoot returns the ancestors of id, outermost first, excluding id.
func (a *Allocator) pathFromRoot(id groupID) []groupID {
	var path []groupID

	for parent := a.groups[id].parent; parent != noGroup; parent = a.groups[parent].parent {
		path = append(path, parent)
	}

	slices.Reverse(path)

	return path
}

// invalidate points every handle of id at InvalidRange and returns how many
// handles were affected, not counting keep.
func (a *Allocator) invalidate(id groupID, keep Handle) int {
	count := 0

	for _, h := range a.groups[id].handles {
		rec, ok := a.handles[h]
		if !ok {
			continue
		}

		rec.cached = InvalidRange
		rec.group = noGroup

		if h != keep {
			count++
		}
	}

	a.groups[id].handles = nil

	return count
}

// rebuildRootIndex re-creates the root interval index from the root list.
func (a *Allocator) rebuildRootIndex() {
	a.rootIndex.Clear()

	for _, id := range a.roots {
		a.rootIndex.Insert(a.groups[id].low, a.groups[id].high, id)
	}
}
