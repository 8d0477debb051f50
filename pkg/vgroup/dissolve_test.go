package vgroup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ddgroups/pkg/diagram"
	"github.com/Sumatoshi-tech/ddgroups/pkg/vgroup"
)

func TestDissolve_NestedGroupPromotesSibling(t *testing.T) {
	t.Parallel()

	observer := newRecordingObserver()
	mem := diagram.NewMemory()
	alloc := vgroup.New(mem, vgroup.WithObserver(observer))

	parent, _ := mustReserve(t, alloc, 0, size4, chunkSingle, false)
	parentShare, _ := mustReserve(t, alloc, 0, size4, chunkSingle, true)
	left, _ := mustReserve(t, alloc, 0, size2, chunkSingle, true)
	right, _ := mustReserve(t, alloc, 2, size2, chunkSingle, true)

	require.NoError(t, alloc.Dissolve(left))
	require.NoError(t, alloc.Check())

	_, known := alloc.Range(left)
	assert.False(t, known, "dissolving consumes the handle")

	assert.Equal(t, vgroup.InvalidRange, rangeOf(t, alloc, parent))
	assert.Equal(t, vgroup.InvalidRange, rangeOf(t, alloc, parentShare))
	assert.Equal(t, vgroup.Range{Low: 2, High: 3}, rangeOf(t, alloc, right))

	roots := alloc.Roots()
	require.Len(t, roots, 1)
	assert.True(t, roots[0].Physical)
	assert.Equal(t, []vgroup.Handle{right}, roots[0].Handles)

	blocks := mem.Blocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, 2, blocks[0].Low)

	stats := mem.Stats()
	assert.Equal(t, 3, stats.BlocksReserved, "parent, promoted sibling, promoted target")
	assert.Equal(t, 2, stats.BlocksFreed, "parent, dissolved target")

	assert.Equal(t, 1, observer.dissolved)
	assert.Equal(t, 2, observer.invalidated)
}

func TestDissolve_DeepNestingTearsDownEveryAncestor(t *testing.T) {
	t.Parallel()

	alloc, mem := newFixture(t)

	outer, _ := mustReserve(t, alloc, 0, 8, chunkSingle, false)
	middle, _ := mustReserve(t, alloc, 0, size4, chunkSingle, true)
	inner, _ := mustReserve(t, alloc, 0, size2, chunkSingle, true)
	innerSibling, _ := mustReserve(t, alloc, 2, size2, chunkSingle, true)
	middleSibling, _ := mustReserve(t, alloc, 4, size2, chunkSingle, true)

	require.NoError(t, alloc.Dissolve(inner))
	require.NoError(t, alloc.Check())

	assert.Equal(t, vgroup.InvalidRange, rangeOf(t, alloc, outer))
	assert.Equal(t, vgroup.InvalidRange, rangeOf(t, alloc, middle))

	assert.Equal(t, []vgroup.Range{{Low: 2, High: 3}, {Low: 4, High: 5}}, rootRanges(alloc))
	assert.Equal(t, vgroup.Range{Low: 2, High: 3}, rangeOf(t, alloc, innerSibling))
	assert.Equal(t, vgroup.Range{Low: 4, High: 5}, rangeOf(t, alloc, middleSibling))

	for _, root := range alloc.Roots() {
		assert.True(t, root.Physical)
	}

	assert.Len(t, mem.Blocks(), 2)
}

func TestDissolve_RootDestroysSubtree(t *testing.T) {
	t.Parallel()

	alloc, mem := newFixture(t)

	parent, _ := mustReserve(t, alloc, 0, size4, chunkSingle, false)
	child, _ := mustReserve(t, alloc, 1, size2, chunkSingle, true)
	other, _ := mustReserve(t, alloc, anywhere, size2, chunkSingle, false)

	require.NoError(t, alloc.Dissolve(parent))
	require.NoError(t, alloc.Check())

	assert.Equal(t, vgroup.InvalidRange, rangeOf(t, alloc, child))
	assert.Equal(t, vgroup.Range{Low: 4, High: 5}, rangeOf(t, alloc, other))
	assert.Len(t, alloc.Roots(), 1)
	assert.Len(t, mem.Blocks(), 1)

	assert.False(t, mustRelease(t, alloc, child))
}

func TestDissolve_ResynchronisesFirst(t *testing.T) {
	t.Parallel()

	alloc, mem := newFixture(t)

	first, _ := mustReserve(t, alloc, 0, size4, chunkSingle, false)
	child, _ := mustReserve(t, alloc, 2, size2, chunkSingle, true)
	second, _ := mustReserve(t, alloc, 4, size2, chunkSingle, false)

	mem.Reorder(diagram.MethodReverse)

	require.NoError(t, alloc.Dissolve(child))
	require.NoError(t, alloc.Check())

	assert.Equal(t, vgroup.InvalidRange, rangeOf(t, alloc, first))
	assert.Equal(t, vgroup.Range{Low: 0, High: 1}, rangeOf(t, alloc, second))
	assert.Len(t, mem.Blocks(), 1)
}

func TestDissolve_InvalidatedHandleIsNoOp(t *testing.T) {
	t.Parallel()

	alloc, _ := newFixture(t)

	owner, _ := mustReserve(t, alloc, 0, size2, chunkSingle, false)
	other, _ := mustReserve(t, alloc, 0, size2, chunkSingle, true)

	require.NoError(t, alloc.Dissolve(owner))
	require.NoError(t, alloc.Dissolve(other))

	err := alloc.Dissolve(other)
	require.ErrorIs(t, err, vgroup.ErrUnknownHandle)
	assert.True(t, vgroup.IsFatal(err))

	assert.Empty(t, alloc.Roots())
}

func TestDissolve_KeepsReorderingState(t *testing.T) {
	t.Parallel()

	alloc, mem := newFixture(t, diagram.WithReordering(true, diagram.MethodReverse))

	mustReserve(t, alloc, 0, size4, chunkSingle, false)
	child, _ := mustReserve(t, alloc, 0, size2, chunkSingle, true)

	require.NoError(t, alloc.Dissolve(child))

	enabled, method := mem.ReorderingStatus()
	assert.True(t, enabled)
	assert.Equal(t, diagram.MethodReverse, method)
}
