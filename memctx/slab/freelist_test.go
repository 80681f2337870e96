package slab

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Test_MinFreeChunks_TracksFullestBlock verifies the cursor follows the
// fullest block with capacity through a fill cycle.
func Test_MinFreeChunks_TracksFullestBlock(t *testing.T) {
	s := newTestSlab(t, "cursor", 1024, 64)
	cpb := s.ChunksPerBlock()

	for i := 1; i <= cpb; i++ {
		_, err := s.Alloc(64)
		require.NoError(t, err)
		if i < cpb {
			require.Equal(t, cpb-i, s.minFreeChunks, "after alloc %d", i)
		} else {
			require.Equal(t, 0, s.minFreeChunks, "block full, no candidates")
		}
		validateInvariants(t, s)
	}
}

// Test_MinFreeChunks_ZeroWhenOnlyFullBlocks verifies the overloaded zero
// value while full blocks sit in bucket 0.
func Test_MinFreeChunks_ZeroWhenOnlyFullBlocks(t *testing.T) {
	s := newTestSlab(t, "fullonly", 1024, 64)
	cpb := s.ChunksPerBlock()

	allocN(t, s, 2*cpb)
	require.Equal(t, 2, s.nblocks)
	require.Equal(t, 0, s.minFreeChunks)
	require.False(t, s.freelist[0].empty(), "full blocks live in bucket 0")
	validateInvariants(t, s)
}

// Test_Alloc_PrefersFullestBlock verifies allocation draws from the block
// with the fewest free chunks, letting the emptier one drain.
func Test_Alloc_PrefersFullestBlock(t *testing.T) {
	s := newTestSlab(t, "fullest", 1024, 64)
	cpb := s.ChunksPerBlock()
	if cpb < 3 {
		t.Skip("block too small for this scenario")
	}

	// Two blocks: first full, second with one chunk used.
	first := allocN(t, s, cpb)
	second := allocN(t, s, 1)
	require.Equal(t, 2, s.nblocks)

	// Give the first block one free chunk; it is now the fullest block
	// with capacity, and must win over the second.
	require.NoError(t, Free(first[0]))
	require.Equal(t, 1, s.minFreeChunks)

	buf, err := s.Alloc(64)
	require.NoError(t, err)
	require.Equal(t, &first[0][0], &buf[0], "allocation did not come from the fullest block")

	_ = second
	validateInvariants(t, s)
}

// Test_Free_HeadInsertion verifies the most recently touched block within a
// bucket is examined first by the next allocation.
func Test_Free_HeadInsertion(t *testing.T) {
	s := newTestSlab(t, "headins", 1024, 64)
	cpb := s.ChunksPerBlock()

	one := allocN(t, s, cpb)
	two := allocN(t, s, cpb)
	require.Equal(t, 2, s.nblocks)

	// Free one chunk from each; both blocks land in bucket 1, block of
	// `two` last, so it sits at the head.
	require.NoError(t, Free(one[0]))
	require.NoError(t, Free(two[0]))

	buf, err := s.Alloc(64)
	require.NoError(t, err)
	require.Equal(t, &two[0][0], &buf[0], "expected the most recently freed block first")
	validateInvariants(t, s)
}

// Test_Free_BlockReleasedTheInstantEmpty verifies the no-hysteresis release
// policy and the memory attribution law: every transition moves attributed
// memory by exactly one block size or not at all.
func Test_Free_BlockReleasedTheInstantEmpty(t *testing.T) {
	s := newTestSlab(t, "release", 1024, 64)
	cpb := s.ChunksPerBlock()

	bufs := allocN(t, s, cpb+1)
	require.Equal(t, 2, s.nblocks)
	attributed := s.MemAllocated()

	for i, buf := range bufs {
		require.NoError(t, Free(buf))
		delta := attributed - s.MemAllocated()
		require.Contains(t, []int64{0, int64(s.BlockSize())}, delta,
			"free %d moved attribution by %d", i, delta)
		attributed = s.MemAllocated()
		validateInvariants(t, s)
	}
	require.True(t, s.IsEmpty())
	require.Zero(t, s.MemAllocated())
}

// Test_Free_MinFreeAdvancesPastEmptiedBucket verifies the cursor moves to
// old+1 when the freed block leaves its bucket empty but stays alive.
func Test_Free_MinFreeAdvancesPastEmptiedBucket(t *testing.T) {
	s := newTestSlab(t, "advance", 1024, 64)
	cpb := s.ChunksPerBlock()
	if cpb < 3 {
		t.Skip("block too small for this scenario")
	}

	bufs := allocN(t, s, cpb)
	require.NoError(t, Free(bufs[0]))
	require.Equal(t, 1, s.minFreeChunks)

	// The only block moves 1 -> 2; bucket 1 empties behind it.
	require.NoError(t, Free(bufs[1]))
	require.Equal(t, 2, s.minFreeChunks)
	validateInvariants(t, s)
}

// Test_Free_MinFreeHoldsWhileBucketOccupied verifies the cursor stays put
// when another block still has that many free chunks.
func Test_Free_MinFreeHoldsWhileBucketOccupied(t *testing.T) {
	s := newTestSlab(t, "hold", 1024, 64)
	cpb := s.ChunksPerBlock()
	if cpb < 3 {
		t.Skip("block too small for this scenario")
	}

	one := allocN(t, s, cpb)
	two := allocN(t, s, cpb)

	require.NoError(t, Free(one[0]))
	require.NoError(t, Free(two[0]))
	require.Equal(t, 1, s.minFreeChunks)

	// Block `two` moves 1 -> 2, but block `one` still occupies bucket 1.
	require.NoError(t, Free(two[1]))
	require.Equal(t, 1, s.minFreeChunks)
	validateInvariants(t, s)
}
