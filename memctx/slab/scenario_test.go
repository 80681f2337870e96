package slab

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memkit/memkit/memctx"
)

// The end-to-end scenarios use one block worth of 64-byte chunks from
// 1024-byte blocks; the chunk count per block is derived, not assumed.

// Test_Scenario_FillOneBlock fills a single block to the brim.
func Test_Scenario_FillOneBlock(t *testing.T) {
	s := newTestSlab(t, "fill", 1024, 64)
	cpb := s.ChunksPerBlock()

	allocN(t, s, cpb)
	require.Equal(t, 1, s.nblocks)
	require.False(t, s.freelist[0].empty(), "full block must sit in bucket 0")
	require.Equal(t, 0, s.minFreeChunks)
	validateInvariants(t, s)
}

// Test_Scenario_SpillIntoSecondBlock verifies the first allocation past a
// full block starts a second one.
func Test_Scenario_SpillIntoSecondBlock(t *testing.T) {
	s := newTestSlab(t, "spill", 1024, 64)
	cpb := s.ChunksPerBlock()

	allocN(t, s, cpb+1)
	require.Equal(t, 2, s.nblocks)
	require.Equal(t, cpb-1, s.minFreeChunks, "new block keeps cpb-1 free chunks")
	require.False(t, s.freelist[cpb-1].empty())
	validateInvariants(t, s)
}

// Test_Scenario_FreeFirstChunk verifies the freed slot heads the in-block
// chain and the block re-enters bucket 1.
func Test_Scenario_FreeFirstChunk(t *testing.T) {
	s := newTestSlab(t, "freefirst", 1024, 64)
	cpb := s.ChunksPerBlock()

	bufs := allocN(t, s, cpb)
	require.NoError(t, Free(bufs[0]))

	require.Equal(t, 1, s.nblocks)
	require.Equal(t, 1, s.minFreeChunks)
	b := s.freelist[1].head
	require.NotNil(t, b)
	require.Equal(t, int32(0), b.firstFree, "freed slot must head the chain")
	validateInvariants(t, s)
}

// Test_Scenario_DrainReleasesBlock verifies freeing everything releases the
// block and zeroes the accounting.
func Test_Scenario_DrainReleasesBlock(t *testing.T) {
	s := newTestSlab(t, "drain", 1024, 64)
	cpb := s.ChunksPerBlock()

	bufs := allocN(t, s, cpb)
	for i, buf := range bufs {
		require.NoError(t, Free(buf))
		if i < len(bufs)-1 {
			require.Equal(t, 1, s.nblocks, "block released early at free %d", i)
		}
	}
	require.Zero(t, s.nblocks)
	require.Equal(t, 0, s.minFreeChunks)
	require.Zero(t, s.MemAllocated())
	validateInvariants(t, s)
}

// Test_Scenario_ResetDropsEverything verifies reset empties the context no
// matter the freelist shape.
func Test_Scenario_ResetDropsEverything(t *testing.T) {
	s := newTestSlab(t, "resetall", 1024, 64)
	cpb := s.ChunksPerBlock()

	bufs := allocN(t, s, 2*cpb)
	// Rough up the freelist shape first.
	for i := 0; i < cpb; i += 2 {
		require.NoError(t, Free(bufs[i]))
	}

	s.Reset()
	require.Zero(t, s.nblocks)
	require.Zero(t, s.MemAllocated())
	for i := range s.freelist {
		require.True(t, s.freelist[i].empty(), "bucket %d survived reset", i)
	}
	validateInvariants(t, s)
}

// Test_Scenario_OversizeAllocLeavesStateIntact verifies a rejected size
// changes nothing observable.
func Test_Scenario_OversizeAllocLeavesStateIntact(t *testing.T) {
	s := newTestSlab(t, "oversize", 1024, 64)
	allocN(t, s, 3)

	var before memctx.Counters
	s.Stats(nil, &before)
	minBefore := s.minFreeChunks

	_, err := s.Alloc(64 + 1)
	require.ErrorIs(t, err, ErrChunkSize)

	var after memctx.Counters
	s.Stats(nil, &after)
	require.Equal(t, before, after)
	require.Equal(t, minBefore, s.minFreeChunks)
	validateInvariants(t, s)
}

// Test_Scenario_PairLeavesStatsUnchanged verifies the alloc/free round-trip
// law on a warm context.
func Test_Scenario_PairLeavesStatsUnchanged(t *testing.T) {
	s := newTestSlab(t, "pairlaw", 1024, 64)
	allocN(t, s, 3)

	var before memctx.Counters
	s.Stats(nil, &before)

	buf, err := s.Alloc(64)
	require.NoError(t, err)
	require.NoError(t, Free(buf))

	var after memctx.Counters
	s.Stats(nil, &after)
	require.Equal(t, before, after, "alloc/free pair must be invisible in stats")
}
