package vgroup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ddgroups/pkg/diagram"
	"github.com/Sumatoshi-tech/ddgroups/pkg/vgroup"
)

func TestReserve_SharingSameGroup(t *testing.T) {
	t.Parallel()

	alloc, mem := newFixture(t)

	first, low1 := mustReserve(t, alloc, 4, size2, chunkSingle, true)
	second, low2 := mustReserve(t, alloc, 4, size2, chunkSingle, true)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 4, low1)
	assert.Equal(t, low1, low2)

	stats := alloc.Stats()
	assert.Equal(t, 1, stats.Groups)
	assert.Equal(t, 1, stats.Physical)
	assert.Equal(t, 2, stats.Handles)
	assert.Equal(t, 1, mem.Stats().BlocksReserved)

	roots := alloc.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, []vgroup.Handle{first, second}, roots[0].Handles)

	assert.False(t, mustRelease(t, alloc, first))
	assert.Equal(t, vgroup.Range{Low: 4, High: 5}, rangeOf(t, alloc, second))
	assert.Equal(t, 1, alloc.Stats().Groups)

	assert.True(t, mustRelease(t, alloc, second))
	assert.Equal(t, 0, alloc.Stats().Groups)
	assert.Empty(t, mem.Blocks())
}

func TestReserve_ConcreteScenario(t *testing.T) {
	t.Parallel()

	alloc, mem := newFixture(t)

	handleA, lowA := mustReserve(t, alloc, 0, size2, chunkPair, false)
	require.Equal(t, 0, lowA)

	roots := alloc.Roots()
	require.Len(t, roots, 1)
	assert.True(t, roots[0].Physical)

	handleB, lowB := mustReserve(t, alloc, 0, size2, chunkPair, true)
	assert.Equal(t, 0, lowB)
	assert.Equal(t, []vgroup.Handle{handleA, handleB}, alloc.Roots()[0].Handles)

	assert.False(t, mustRelease(t, alloc, handleA))
	assert.Len(t, alloc.Roots(), 1)

	assert.True(t, mustRelease(t, alloc, handleB))
	assert.Empty(t, alloc.Roots())
	assert.Empty(t, mem.Blocks())
}

func TestReserve_ChunkConflict(t *testing.T) {
	t.Parallel()

	observer := newRecordingObserver()
	mem := diagram.NewMemory()
	alloc := vgroup.New(mem, vgroup.WithObserver(observer))

	paired, _ := mustReserve(t, alloc, 10, size2, chunkPair, true)

	assert.False(t, alloc.CanShare(10, size2, chunkSingle))
	assert.True(t, alloc.CanShare(10, size2, chunkPair))

	single, low := mustReserve(t, alloc, 10, size2, chunkSingle, true)

	assert.Equal(t, 1, low)
	assert.Equal(t, 1, observer.conflicts)
	assert.Equal(t, []vgroup.Range{{Low: 1, High: 2}, {Low: 10, High: 11}}, rootRanges(alloc))
	assert.Equal(t, vgroup.Range{Low: 10, High: 11}, rangeOf(t, alloc, paired))
	assert.Equal(t, vgroup.Range{Low: 1, High: 2}, rangeOf(t, alloc, single))
}

func TestReserve_OverlapConflicts(t *testing.T) {
	t.Parallel()

	alloc, _ := newFixture(t)

	mustReserve(t, alloc, 2, size4, chunkSingle, false)

	assert.False(t, alloc.CanShare(4, size4, chunkSingle), "partial overlap")
	assert.False(t, alloc.CanShare(0, 8, chunkSingle), "request swallows a root")
	assert.False(t, alloc.CanShare(2, size2, chunkPair), "nested with wrong chunk")
	assert.True(t, alloc.CanShare(3, size2, chunkSingle), "nested")
	assert.True(t, alloc.CanShare(6, size2, chunkSingle), "disjoint")
	assert.True(t, alloc.CanShare(anywhere, size2, chunkSingle), "any level")
	assert.False(t, alloc.CanShare(-2, size2, chunkSingle), "bad level")

	_, low := mustReserve(t, alloc, 4, size4, chunkSingle, true)
	assert.Equal(t, 6, low)
}

func TestReserve_CanShareAnywhereOnEmptyForest(t *testing.T) {
	t.Parallel()

	alloc, mem := newFixture(t)

	assert.True(t, alloc.CanShare(anywhere, size2, chunkSingle))
	assert.False(t, alloc.CanShare(anywhere, 0, chunkSingle))
	assert.Equal(t, 0, mem.Stats().VariablesCreated)
}

func TestReserve_CanShareIsPure(t *testing.T) {
	t.Parallel()

	alloc, mem := newFixture(t)

	mustReserve(t, alloc, 0, size4, chunkSingle, false)

	before := alloc.DebugDump()
	created := mem.Stats().VariablesCreated

	assert.True(t, alloc.CanShare(0, size2, chunkSingle))
	assert.True(t, alloc.CanShare(20, size2, chunkSingle))

	assert.Equal(t, before, alloc.DebugDump())
	assert.Equal(t, created, mem.Stats().VariablesCreated)
}

func TestReserve_NestedTightestContainer(t *testing.T) {
	t.Parallel()

	alloc, mem := newFixture(t)

	outer, _ := mustReserve(t, alloc, 0, 8, chunkSingle, false)
	middle, _ := mustReserve(t, alloc, 0, size4, chunkSingle, true)
	inner, _ := mustReserve(t, alloc, 2, size2, chunkSingle, true)
	shared, _ := mustReserve(t, alloc, 2, size2, chunkSingle, true)

	roots := alloc.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, []vgroup.Handle{outer}, roots[0].Handles)
	assert.True(t, roots[0].Physical)

	require.Len(t, roots[0].Children, 1)
	mid := roots[0].Children[0]
	assert.Equal(t, []vgroup.Handle{middle}, mid.Handles)
	assert.False(t, mid.Physical)

	require.Len(t, mid.Children, 1)
	assert.Equal(t, []vgroup.Handle{inner, shared}, mid.Children[0].Handles)
	assert.Equal(t, vgroup.Range{Low: 2, High: 3}, mid.Children[0].Range)

	assert.Equal(t, 1, mem.Stats().BlocksReserved, "logical groups never register blocks")
}

func TestReserve_ChildrenKeptSorted(t *testing.T) {
	t.Parallel()

	alloc, _ := newFixture(t)

	mustReserve(t, alloc, 0, 8, chunkSingle, false)
	mustReserve(t, alloc, 6, size2, chunkSingle, true)
	mustReserve(t, alloc, 0, size2, chunkSingle, true)
	mustReserve(t, alloc, 3, size2, chunkSingle, true)

	children := alloc.Roots()[0].Children
	require.Len(t, children, 3)
	assert.Equal(t, 0, children[0].Range.Low)
	assert.Equal(t, 3, children[1].Range.Low)
	assert.Equal(t, 6, children[2].Range.Low)
}

func TestReserve_NoShareAllocatesElsewhere(t *testing.T) {
	t.Parallel()

	alloc, _ := newFixture(t)

	mustReserve(t, alloc, 0, size2, chunkSingle, false)
	_, low := mustReserve(t, alloc, 0, size2, chunkSingle, false)

	assert.Equal(t, 2, low)
	assert.Len(t, alloc.Roots(), 2)
}

func TestReserve_AnywhereSkipsLevelZeroAndFillsGaps(t *testing.T) {
	t.Parallel()

	alloc, mem := newFixture(t)

	_, low := mustReserve(t, alloc, anywhere, 3, chunkSingle, false)
	assert.Equal(t, 1, low)
	assert.Equal(t, 4, mem.Size())

	gap, _ := mustReserve(t, alloc, anywhere, size2, chunkSingle, false)
	tail, tailLow := mustReserve(t, alloc, anywhere, size2, chunkSingle, false)
	assert.Equal(t, 6, tailLow)

	mustRelease(t, alloc, gap)

	_, refill := mustReserve(t, alloc, anywhere, size2, chunkSingle, false)
	assert.Equal(t, 4, refill)
	assert.Equal(t, vgroup.Range{Low: 6, High: 7}, rangeOf(t, alloc, tail))
	assert.Equal(t, 8, mem.Size())
}

func TestReserve_SmallRootHasNoBlock(t *testing.T) {
	t.Parallel()

	mem := diagram.NewMemory()
	alloc := vgroup.New(mem, vgroup.WithMinBlockSize(3))

	mustReserve(t, alloc, 0, size2, chunkSingle, false)
	mustReserve(t, alloc, anywhere, 3, chunkSingle, false)

	roots := alloc.Roots()
	require.Len(t, roots, 2)
	assert.False(t, roots[0].Physical)
	assert.True(t, roots[1].Physical)
	assert.Len(t, mem.Blocks(), 1)
}

func TestReserve_InvalidArguments(t *testing.T) {
	t.Parallel()

	alloc, _ := newFixture(t)

	for _, args := range [][3]int{{0, 0, 1}, {0, 1, 0}, {-2, 1, 1}} {
		_, _, err := alloc.Reserve(args[0], args[1], args[2], true)
		require.ErrorIs(t, err, vgroup.ErrInvalidArgument)
		assert.True(t, vgroup.IsFatal(err))
	}

	assert.Empty(t, alloc.Roots())
}

func TestReserve_IndexExhaustionIsFatal(t *testing.T) {
	t.Parallel()

	alloc, mem := newFixture(t, diagram.WithMaxIndex(6))

	mustReserve(t, alloc, anywhere, size4, chunkSingle, false)
	before := alloc.DebugDump()

	_, _, err := alloc.Reserve(anywhere, size4, chunkSingle, false)
	require.ErrorIs(t, err, vgroup.ErrIndexExhausted)
	assert.True(t, vgroup.IsFatal(err))

	assert.Equal(t, before, alloc.DebugDump())
	assert.Equal(t, size4+1, mem.Size(), "no variables created for the failed request")
}

func TestReserve_SuspendsAndRestoresReordering(t *testing.T) {
	t.Parallel()

	alloc, mem := newFixture(t,
		diagram.WithReordering(true, diagram.MethodRotate),
		diagram.WithAutoReorder(1),
	)

	mustReserve(t, alloc, anywhere, size4, chunkSingle, false)

	assert.Equal(t, 0, mem.Stats().AutoReorders)

	enabled, method := mem.ReorderingStatus()
	assert.True(t, enabled)
	assert.Equal(t, diagram.MethodRotate, method)

	require.NoError(t, mem.CreateVarAtIndex(mem.Size()))
	assert.Equal(t, 1, mem.Stats().AutoReorders)
}

func TestReserve_KeepsReorderingDisabled(t *testing.T) {
	t.Parallel()

	alloc, mem := newFixture(t, diagram.WithReordering(false, diagram.MethodShuffle))

	mustReserve(t, alloc, anywhere, size4, chunkSingle, false)

	enabled, method := mem.ReorderingStatus()
	assert.False(t, enabled)
	assert.Equal(t, diagram.MethodShuffle, method)
}

func TestReserve_HandlesIncrease(t *testing.T) {
	t.Parallel()

	alloc, _ := newFixture(t)

	var last vgroup.Handle

	for range 5 {
		h, _ := mustReserve(t, alloc, anywhere, 1, chunkSingle, false)
		assert.Greater(t, h, last)

		last = h
	}
}
