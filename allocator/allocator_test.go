package allocator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/ebpfcore/allocator"
)

func TestNewRejectsBadBlockSize(t *testing.T) {
	_, err := allocator.New(0, nil)
	require.Error(t, err)

	_, err = allocator.New(3, nil)
	require.Error(t, err)
}

func TestAllocReturnsDistinctBlocks(t *testing.T) {
	a, err := allocator.New(16, nil)
	require.NoError(t, err)

	b1, err := a.Alloc()
	require.NoError(t, err)
	b2, err := a.Alloc()
	require.NoError(t, err)

	require.Len(t, b1, 16)
	require.Len(t, b2, 16)

	b1[0] = 0xff
	assert.NotEqual(t, b1[0], b2[0])
}

func TestFreeListIsReused(t *testing.T) {
	a, err := allocator.New(16, nil)
	require.NoError(t, err)

	b1, err := a.Alloc()
	require.NoError(t, err)
	a.Free(b1)

	before := a.Stats()
	b2, err := a.Alloc()
	require.NoError(t, err)
	after := a.Stats()

	assert.Equal(t, before.SegmentCount, after.SegmentCount, "reusing a freed block must not carve a new segment")
	assert.Len(t, b2, 16)
}

func TestCarvesNewSegmentWhenFreeListEmpty(t *testing.T) {
	a, err := allocator.New(16, nil)
	require.NoError(t, err)

	stats := a.Stats()
	require.Equal(t, 0, stats.SegmentCount)

	_, err = a.Alloc()
	require.NoError(t, err)

	stats = a.Stats()
	assert.Equal(t, 1, stats.SegmentCount)
	assert.Greater(t, stats.BytesCarved, uint64(0))
}

func TestPreallocLeavesBlocksOnFreeList(t *testing.T) {
	a, err := allocator.New(16, nil)
	require.NoError(t, err)

	require.NoError(t, a.Prealloc(4))

	stats := a.Stats()
	assert.GreaterOrEqual(t, stats.FreeBlocks, 4)
}

func TestPreallocRejectsZero(t *testing.T) {
	a, err := allocator.New(16, nil)
	require.NoError(t, err)
	require.Error(t, a.Prealloc(0))
}

func TestBlockLargerThanPageGetsOwnSegment(t *testing.T) {
	a, err := allocator.New(1 << 20, nil) // 1 MiB, larger than a typical page
	require.NoError(t, err)

	b, err := a.Alloc()
	require.NoError(t, err)
	assert.Len(t, b, 1<<20)
}

func TestDeinitClearsSegments(t *testing.T) {
	a, err := allocator.New(16, nil)
	require.NoError(t, err)

	_, err = a.Alloc()
	require.NoError(t, err)
	require.Greater(t, a.Stats().SegmentCount, 0)

	a.Deinit()
	assert.Equal(t, 0, a.Stats().SegmentCount)
}
