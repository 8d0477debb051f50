// Package interval provides an augmented interval tree for efficient
// range-overlap queries. It supports Insert, Delete, QueryOverlap, and
// QueryPoint operations with O(log N) insert/delete and O(log N + k)
// query time, where k is the number of overlapping intervals.
//
// The tree is backed by a red-black tree where each node stores the maximum
// right endpoint (maxHigh) in its subtree, enabling subtree pruning during
// overlap queries.
package interval

import "cmp"

// Interval represents a closed range [Low, High] with an associated Value.
type Interval[K cmp.Ordered, V comparable] struct {
	Low   K
	High  K
	Value V
}

// Tree is an augmented interval tree supporting overlap queries.
type Tree[K cmp.Ordered, V comparable] struct {
	root *node[K, V]
	size int
}

// node is an internal red-black tree node augmented with maxHigh.
type node[K cmp.Ordered, V comparable] struct {
	interval    Interval[K, V]
	maxHigh     K
	left, right *node[K, V]
	parent      *node[K, V]
	color       color
}

// color represents the red-black tree node color.
type color bool

// Red-black tree color constants.
const (
	red   color = false
	black color = true
)

// New creates an empty interval tree.
func New[K cmp.Ordered, V comparable]() *Tree[K, V] {
	return &Tree[K, V]{}
}

// Len returns the number of intervals in the tree.
func (t *Tree[K, V]) Len() int {
	return t.size
}

// Clear removes all intervals from the tree.
func (t *Tree[K, V]) Clear() {
	t.root = nil
	t.size = 0
}

// Insert adds an interval [low, high] with the given value to the tree.
func (t *Tree[K, V]) Insert(low, high K, value V) {
	n := &node[K, V]{
		interval: Interval[K, V]{Low: low, High: high, Value: value},
		maxHigh:  high,
		color:    red,
	}

	t.bstInsert(n)
	t.insertFixup(n)
	t.size++
}

// Delete removes one interval matching [low, high, value] from the tree.
// Returns true if the interval was found and removed, false otherwise.
func (t *Tree[K, V]) Delete(low, high K, value V) bool {
	n := t.findExact(t.root, Interval[K, V]{Low: low, High: high, Value: value})
	if n == nil {
		return false
	}

	t.deleteNode(n)
	t.size--

	return true
}

// QueryOverlap returns all intervals that overlap with the query range [low, high],
// ordered by Low. An interval [a, b] overlaps [low, high] when a <= high AND b >= low.
func (t *Tree[K, V]) QueryOverlap(low, high K) []Interval[K, V] {
	if t.root == nil {
		return nil
	}

	var results []Interval[K, V]

	t.collectOverlap(t.root, low, high, &results)

	return results
}

// QueryPoint returns all intervals containing the given point.
// Equivalent to QueryOverlap(point, point).
func (t *Tree[K, V]) QueryPoint(point K) []Interval[K, V] {
	return t.QueryOverlap(point, point)
}

// bstInsert performs standard BST insertion by Low (then High for ties).
func (t *Tree[K, V]) bstInsert(n *node[K, V]) {
	if t.root == nil {
		t.root = n

		return
	}

	current := t.root

	for {
		current.maxHigh = max(current.maxHigh, n.interval.High)

		left := compareIntervals(n.interval, current.interval) < 0

		next := childOf(current, left)
		if next == nil {
			setChild(current, n, left)
			n.parent = current

			return
		}

		current = next
	}
}

// findExact searches for an exact interval match in the subtree.
func (t *Tree[K, V]) findExact(n *node[K, V], target Interval[K, V]) *node[K, V] {
	if n == nil {
		return nil
	}

	order := compareIntervals(target, n.interval)

	switch {
	case order < 0:
		return t.findExact(n.left, target)
	case order > 0:
		return t.findExact(n.right, target)
	case n.interval.Value == target.Value:
		return n
	}

	// Equal bounds with a different value: duplicates may sit on either side.
	if found := t.findExact(n.left, target); found != nil {
		return found
	}

	return t.findExact(n.right, target)
}

// deleteNode removes a node using the textbook red-black deletion, tracking the
// parent and side of the replacement explicitly because it may be nil.
func (t *Tree[K, V]) deleteNode(z *node[K, V]) {
	var (
		x, xParent *node[K, V]
		xIsLeft    bool
	)

	removedColor := z.color

	switch {
	case z.left == nil || z.right == nil:
		x = z.left
		if x == nil {
			x = z.right
		}

		xParent = z.parent
		xIsLeft = xParent != nil && xParent.left == z

		t.transplant(z, x)
	default:
		y := minimum(z.right)
		removedColor = y.color
		x = y.right

		if y.parent == z {
			xParent = y
			xIsLeft = false
		} else {
			xParent = y.parent
			xIsLeft = true

			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}

		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	t.propagateMaxHigh(xParent)

	if removedColor == black {
		t.deleteFixup(x, xParent, xIsLeft)
	}
}

// transplant replaces node u with node v in the tree.
func (t *Tree[K, V]) transplant(u, v *node[K, V]) {
	switch {
	case u.parent == nil:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}

	if v != nil {
		v.parent = u.parent
	}
}

// insertFixup restores red-black properties after insertion.
func (t *Tree[K, V]) insertFixup(n *node[K, V]) {
	for n != t.root && nodeColor(n.parent) == red {
		parent := n.parent

		grandparent := parent.parent
		if grandparent == nil {
			break
		}

		n = t.insertFixupCase(n, parent, grandparent, parent == grandparent.left)
	}

	t.root.color = black
}

// insertFixupCase handles one side of the insert fixup.
// When leftCase is true, parent is grandparent.left; otherwise parent is grandparent.right.
func (t *Tree[K, V]) insertFixupCase(n, parent, grandparent *node[K, V], leftCase bool) *node[K, V] {
	uncle := childOf(grandparent, !leftCase)

	if nodeColor(uncle) == red {
		parent.color = black
		uncle.color = black
		grandparent.color = red

		return grandparent
	}

	// Inner child: rotate it to the outside first.
	if n == childOf(parent, !leftCase) {
		t.rotate(parent, leftCase)
		n, parent = parent, n
	}

	parent.color = black
	grandparent.color = red
	t.rotate(grandparent, !leftCase)

	return n
}

// deleteFixup restores red-black properties after removing a black node.
// x may be nil; xIsLeft tells which child slot of parent it occupies.
func (t *Tree[K, V]) deleteFixup(x, parent *node[K, V], xIsLeft bool) {
	for x != t.root && nodeColor(x) == black && parent != nil {
		sibling := childOf(parent, !xIsLeft)
		if sibling == nil {
			break
		}

		if sibling.color == red {
			sibling.color = black
			parent.color = red
			t.rotate(parent, xIsLeft)

			sibling = childOf(parent, !xIsLeft)
			if sibling == nil {
				break
			}
		}

		if nodeColor(sibling.left) == black && nodeColor(sibling.right) == black {
			sibling.color = red
			x = parent
			parent = x.parent

			if parent != nil {
				xIsLeft = x == parent.left
			}

			continue
		}

		if nodeColor(childOf(sibling, !xIsLeft)) == black {
			setBlack(childOf(sibling, xIsLeft))
			sibling.color = red
			t.rotate(sibling, !xIsLeft)

			sibling = childOf(parent, !xIsLeft)
		}

		sibling.color = parent.color
		parent.color = black
		setBlack(childOf(sibling, !xIsLeft))
		t.rotate(parent, xIsLeft)

		x = t.root
		parent = nil
	}

	setBlack(x)
}

// rotate performs a rotation at node n. When left is true, rotates left;
// otherwise rotates right. Maintains maxHigh augmentation.
func (t *Tree[K, V]) rotate(n *node[K, V], left bool) {
	pivot := childOf(n, !left)
	inner := childOf(pivot, left)

	setChild(n, inner, !left)

	if inner != nil {
		inner.parent = n
	}

	setChild(pivot, n, left)
	pivot.parent = n.parent

	switch {
	case n.parent == nil:
		t.root = pivot
	case n == n.parent.left:
		n.parent.left = pivot
	default:
		n.parent.right = pivot
	}

	n.parent = pivot

	// Recalculate maxHigh bottom-up: n first, then pivot.
	recalcMaxHigh(n)
	recalcMaxHigh(pivot)
}

// collectOverlap recursively collects intervals overlapping [low, high] in order.
func (t *Tree[K, V]) collectOverlap(n *node[K, V], low, high K, results *[]Interval[K, V]) {
	if n == nil || n.maxHigh < low {
		return
	}

	t.collectOverlap(n.left, low, high, results)

	if n.interval.Low <= high && n.interval.High >= low {
		*results = append(*results, n.interval)
	}

	// Nothing to the right can start before high.
	if n.interval.Low > high {
		return
	}

	t.collectOverlap(n.right, low, high, results)
}

// propagateMaxHigh recalculates maxHigh from the given node up to the root.
func (t *Tree[K, V]) propagateMaxHigh(n *node[K, V]) {
	for n != nil {
		recalcMaxHigh(n)
		n = n.parent
	}
}

// compareIntervals compares two intervals for BST ordering.
// Primary sort by Low, secondary by High.
func compareIntervals[K cmp.Ordered, V comparable](a, b Interval[K, V]) int {
	if order := cmp.Compare(a.Low, b.Low); order != 0 {
		return order
	}

	return cmp.Compare(a.High, b.High)
}

// nodeColor returns the color of a node, treating nil as black.
func nodeColor[K cmp.Ordered, V comparable](n *node[K, V]) color {
	if n == nil {
		return black
	}

	return n.color
}

// setBlack sets a node's color to black if it is non-nil.
func setBlack[K cmp.Ordered, V comparable](n *node[K, V]) {
	if n != nil {
		n.color = black
	}
}

// childOf returns the left or right child of a node.
// When left is true, returns n.left; otherwise n.right.
func childOf[K cmp.Ordered, V comparable](n *node[K, V], left bool) *node[K, V] {
	if n == nil {
		return nil
	}

	if left {
		return n.left
	}

	return n.right
}

// setChild stores child in the left or right slot of n.
func setChild[K cmp.Ordered, V comparable](n, child *node[K, V], left bool) {
	if left {
		n.left = child
	} else {
		n.right = child
	}
}

// recalcMaxHigh recalculates a node's maxHigh from its interval and children.
func recalcMaxHigh[K cmp.Ordered, V comparable](n *node[K, V]) {
	if n == nil {
		return
	}

	m := n.interval.High

	if n.left != nil {
		m = max(m, n.left.maxHigh)
	}

	if n.right != nil {
		m = max(m, n.right.maxHigh)
	}

	n.maxHigh = m
}

// minimum returns the leftmost node in the subtree rooted at n.
func minimum[K cmp.Ordered, V comparable](n *node[K, V]) *node[K, V] {
	for n.left != nil {
		n = n.left
	}

	return n
}
