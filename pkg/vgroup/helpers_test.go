package vgroup_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ddgroups/pkg/diagram"
	"github.com/Sumatoshi-tech/ddgroups/pkg/vgroup"
)

// Shared test constants.
const (
	chunkSingle = 1
	chunkPair   = 2
	size2       = 2
	size4       = 4
	anywhere    = -1
)

// newFixture builds an allocator over a fresh in-memory diagram package and
// asserts the forest invariants once the test finishes.
func newFixture(t *testing.T, opts ...diagram.Option) (*vgroup.Allocator, *diagram.Memory) {
	t.Helper()

	mem := diagram.NewMemory(opts...)
	alloc := vgroup.New(mem)

	t.Cleanup(func() {
		require.NoError(t, alloc.Check())
	})

	return alloc, mem
}

// mustReserve reserves and checks the forest invariants afterwards.
func mustReserve(t *testing.T, alloc *vgroup.Allocator, from, size, chunk int, share bool) (vgroup.Handle, int) {
	t.Helper()

	h, low, err := alloc.Reserve(from, size, chunk, share)
	require.NoError(t, err)
	require.NoError(t, alloc.Check())

	rng, ok := alloc.Range(h)
	require.True(t, ok)
	require.Equal(t, low, rng.Low)
	require.Equal(t, size, rng.Size())

	return h, low
}

// mustRelease releases and checks the forest invariants afterwards.
func mustRelease(t *testing.T, alloc *vgroup.Allocator, h vgroup.Handle) bool {
	t.Helper()

	destroyed, err := alloc.Release(h)
	require.NoError(t, err)
	require.NoError(t, alloc.Check())

	return destroyed
}

// rangeOf returns the cached range of a live handle.
func rangeOf(t *testing.T, alloc *vgroup.Allocator, h vgroup.Handle) vgroup.Range {
	t.Helper()

	rng, ok := alloc.Range(h)
	require.True(t, ok, "handle %d should still be known", h)

	return rng
}

// rootRanges lists the ranges of the forest roots.
func rootRanges(alloc *vgroup.Allocator) []vgroup.Range {
	roots := alloc.Roots()
	out := make([]vgroup.Range, 0, len(roots))

	for _, root := range roots {
		out = append(out, root.Range)
	}

	return out
}

// recordingObserver counts allocator events.
type recordingObserver struct {
	outcomes    map[vgroup.Outcome]int
	conflicts   int
	released    int
	destroyed   int
	dissolved   int
	invalidated int
	resyncs     int
	moved       int
	groups      int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{outcomes: make(map[vgroup.Outcome]int)}
}

func (o *recordingObserver) Reserved(outcome vgroup.Outcome, _ int) { o.outcomes[outcome]++ }

func (o *recordingObserver) Conflict() { o.conflicts++ }

func (o *recordingObserver) Released(destroyed bool) {
	o.released++

	if destroyed {
		o.destroyed++
	}
}

func (o *recordingObserver) Dissolved(invalidated int) {
	o.dissolved++
	o.invalidated += invalidated
}

func (o *recordingObserver) Resynced(moved int) {
	o.resyncs++
	o.moved += moved
}

func (o *recordingObserver) GroupsChanged(delta int) { o.groups += delta }
