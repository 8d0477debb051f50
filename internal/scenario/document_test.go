package scenario_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ddgroups/internal/scenario"
)

const (
	concreteFixture = "concrete.yaml"
	reorderFixture  = "reorder.yaml"
	invalidFixture  = "invalid.yaml"
)

func fixturePath(name string) string {
	return filepath.Join("testdata", name)
}

func TestDecode_Steps(t *testing.T) {
	t.Parallel()

	doc, err := scenario.Decode(strings.NewReader(`
name: inline
config:
  min_block_size: 3
steps:
  - op: reserve
    handle: x
    level: 4
    size: 2
    share: true
    expect: {low: 4}
  - op: permute
    levels: [1, 0]
`))
	require.NoError(t, err)

	assert.Equal(t, "inline", doc.Name)
	require.NotNil(t, doc.Config.MinBlockSize)
	assert.Equal(t, 3, *doc.Config.MinBlockSize)
	assert.Nil(t, doc.Config.MaxIndex)

	require.Len(t, doc.Steps, 2)

	reserve := doc.Steps[0]
	assert.Equal(t, scenario.OpReserve, reserve.Op)
	assert.Equal(t, "x", reserve.Handle)
	require.NotNil(t, reserve.Level)
	assert.Equal(t, 4, *reserve.Level)
	assert.True(t, reserve.Share)
	require.NotNil(t, reserve.Expect)
	require.NotNil(t, reserve.Expect.Low)
	assert.Equal(t, 4, *reserve.Expect.Low)
	assert.Nil(t, reserve.Expect.Conflict)

	assert.Equal(t, []int{1, 0}, doc.Steps[1].Levels)
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := scenario.Decode(strings.NewReader("steps:\n  - op: check\n    colour: red\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestDecode_Empty(t *testing.T) {
	t.Parallel()

	_, err := scenario.Decode(strings.NewReader(""))
	require.ErrorIs(t, err, scenario.ErrEmptyDocument)

	_, err = scenario.Decode(strings.NewReader("name: nothing\n"))
	require.ErrorIs(t, err, scenario.ErrEmptyDocument)
}

func TestLoad_Fixture(t *testing.T) {
	t.Parallel()

	doc, err := scenario.Load(fixturePath(concreteFixture))
	require.NoError(t, err)

	assert.Equal(t, "share-then-release", doc.Name)
	assert.Len(t, doc.Steps, 5)
}

func TestLoad_InvalidFixture(t *testing.T) {
	t.Parallel()

	_, err := scenario.Load(fixturePath(invalidFixture))
	require.ErrorIs(t, err, scenario.ErrSchema)
	assert.Contains(t, err.Error(), invalidFixture)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := scenario.Load(fixturePath("missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario")
}
