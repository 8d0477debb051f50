package diagram_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ddgroups/pkg/diagram"
)

const (
	testVariables = 8
	testMaxIndex  = 4
	testBlockSize = 3
)

func TestNewMemory_IdentityOrder(t *testing.T) {
	t.Parallel()

	mem := diagram.NewMemory(diagram.WithVariables(testVariables))

	require.Equal(t, testVariables, mem.Size())

	for idx := range testVariables {
		assert.Equal(t, idx, mem.LevelOfIndex(idx))
		assert.Equal(t, idx, mem.IndexOfLevel(idx))
	}

	assert.Equal(t, -1, mem.LevelOfIndex(testVariables))
	assert.Equal(t, -1, mem.IndexOfLevel(-1))
}

func TestCreateVarAtIndex(t *testing.T) {
	t.Parallel()

	mem := diagram.NewMemory(diagram.WithMaxIndex(testMaxIndex))

	for idx := range testMaxIndex {
		require.NoError(t, mem.CreateVarAtIndex(idx))
	}

	assert.Equal(t, testMaxIndex, mem.Size())
	assert.Equal(t, testMaxIndex, mem.Stats().VariablesCreated)

	err := mem.CreateVarAtIndex(testMaxIndex)
	require.ErrorIs(t, err, diagram.ErrIndexExhausted)

	mem2 := diagram.NewMemory()
	require.ErrorIs(t, mem2.CreateVarAtIndex(2), diagram.ErrIndexOutOfOrder)
}

func TestReserveBlock_RangeAndOverlap(t *testing.T) {
	t.Parallel()

	mem := diagram.NewMemory(diagram.WithVariables(testVariables))

	id, err := mem.ReserveBlock(2, testBlockSize)
	require.NoError(t, err)

	_, err = mem.ReserveBlock(4, 2)
	require.ErrorIs(t, err, diagram.ErrBlockOverlap)

	_, err = mem.ReserveBlock(6, testBlockSize)
	require.ErrorIs(t, err, diagram.ErrBlockRange)

	assert.Equal(t, []diagram.Block{{ID: id, Low: 2, Size: testBlockSize}}, mem.Blocks())

	require.NoError(t, mem.FreeBlock(id))
	require.ErrorIs(t, mem.FreeBlock(id), diagram.ErrUnknownBlock)
	assert.Empty(t, mem.Blocks())
}

func TestReorder_KeepsBlocksContiguous(t *testing.T) {
	t.Parallel()

	for _, method := range []diagram.Method{diagram.MethodReverse, diagram.MethodRotate, diagram.MethodShuffle} {
		t.Run(method.String(), func(t *testing.T) {
			t.Parallel()

			mem := diagram.NewMemory(diagram.WithVariables(testVariables), diagram.WithSeed(7))

			_, err := mem.ReserveBlock(1, testBlockSize)
			require.NoError(t, err)

			mem.Reorder(method)

			blocks := mem.Blocks()
			require.Len(t, blocks, 1)

			for offset := range testBlockSize {
				assert.Equal(t, 1+offset, mem.IndexOfLevel(blocks[0].Low+offset))
			}

			for idx := range testVariables {
				assert.Equal(t, idx, mem.IndexOfLevel(mem.LevelOfIndex(idx)))
			}
		})
	}
}

func TestReorder_Reverse(t *testing.T) {
	t.Parallel()

	mem := diagram.NewMemory(diagram.WithVariables(4))

	_, err := mem.ReserveBlock(0, 2)
	require.NoError(t, err)

	mem.Reorder(diagram.MethodReverse)

	assert.Equal(t, []int{3, 2, 0, 1}, mem.Order())
	assert.Equal(t, 1, mem.Stats().Reorders)
}

func TestAutoReorder_OnlyWhenEnabled(t *testing.T) {
	t.Parallel()

	mem := diagram.NewMemory(
		diagram.WithReordering(true, diagram.MethodReverse),
		diagram.WithAutoReorder(2),
	)

	require.NoError(t, mem.CreateVarAtIndex(0))
	require.NoError(t, mem.CreateVarAtIndex(1))
	assert.Equal(t, 1, mem.Stats().AutoReorders)
	assert.Equal(t, []int{1, 0}, mem.Order())

	mem.DisableReordering()
	require.NoError(t, mem.CreateVarAtIndex(2))
	require.NoError(t, mem.CreateVarAtIndex(3))
	assert.Equal(t, 1, mem.Stats().AutoReorders)

	enabled, method := mem.ReorderingStatus()
	assert.False(t, enabled)
	assert.Equal(t, diagram.MethodReverse, method)
}

func TestPermute(t *testing.T) {
	t.Parallel()

	mem := diagram.NewMemory(diagram.WithVariables(6))

	_, err := mem.ReserveBlock(2, 2)
	require.NoError(t, err)

	require.ErrorIs(t, mem.Permute([]int{0, 1, 2}), diagram.ErrBadPermutation)
	require.ErrorIs(t, mem.Permute([]int{0, 0, 1, 2, 3, 4}), diagram.ErrBadPermutation)
	require.ErrorIs(t, mem.Permute([]int{2, 0, 1, 3, 4, 5}), diagram.ErrBlockSplit)

	require.NoError(t, mem.Permute([]int{2, 3, 1, 0, 4, 5}))
	assert.Equal(t, 0, mem.Blocks()[0].Low)
	assert.Equal(t, 0, mem.LevelOfIndex(2))
	assert.Equal(t, 1, mem.LevelOfIndex(3))
}

func TestPermute_KeepsBlockOrder(t *testing.T) {
	t.Parallel()

	mem := diagram.NewMemory(diagram.WithVariables(4))

	_, err := mem.ReserveBlock(0, 4)
	require.NoError(t, err)

	want := mem.Order()

	require.ErrorIs(t, mem.Permute([]int{3, 2, 1, 0}), diagram.ErrBlockSplit)
	require.ErrorIs(t, mem.Permute([]int{0, 2, 1, 3}), diagram.ErrBlockSplit)

	assert.Equal(t, want, mem.Order())
	assert.Equal(t, 0, mem.Stats().Reorders)
}

func TestSnapshotRestore(t *testing.T) {
	t.Parallel()

	const bigOrder = 512

	for _, size := range []int{3, bigOrder} {
		mem := diagram.NewMemory(diagram.WithVariables(size), diagram.WithSeed(3))
		want := mem.Order()

		snapshot, err := mem.Snapshot()
		require.NoError(t, err)

		mem.Reorder(diagram.MethodShuffle)
		mem.Reorder(diagram.MethodRotate)

		require.NoError(t, mem.Restore(snapshot))
		assert.Equal(t, want, mem.Order())
	}
}

func TestRestore_Malformed(t *testing.T) {
	t.Parallel()

	mem := diagram.NewMemory(diagram.WithVariables(2))

	require.ErrorIs(t, mem.Restore([]byte{0}), diagram.ErrBadSnapshot)
	require.ErrorIs(t, mem.Restore([]byte{9, 2, 0, 0, 0}), diagram.ErrBadSnapshot)
	require.ErrorIs(t, mem.Restore([]byte{0, 3, 0, 0, 0}), diagram.ErrBadSnapshot)
	require.ErrorIs(t, mem.Restore([]byte{0, 2, 0, 0, 0, 1}), diagram.ErrBadSnapshot)
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	method, err := diagram.ParseMethod(" Shuffle ")
	require.NoError(t, err)
	assert.Equal(t, diagram.MethodShuffle, method)

	_, err = diagram.ParseMethod("sift")
	require.ErrorIs(t, err, diagram.ErrUnknownMethod)

	assert.Equal(t, "method(42)", diagram.Method(42).String())
}
