package slab

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// newTestSlab creates a context that is deleted when the test finishes.
// Delete is idempotent, so tests that delete explicitly are fine too.
func newTestSlab(t testing.TB, name string, blockSize, chunkSize int) *Slab {
	t.Helper()
	s, err := New(nil, name, blockSize, chunkSize)
	require.NoError(t, err)
	t.Cleanup(s.Delete)
	return s
}

// allocN performs n allocations of the context's chunk size.
func allocN(t testing.TB, s *Slab, n int) [][]byte {
	t.Helper()
	bufs := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		buf, err := s.Alloc(s.ChunkSize())
		require.NoError(t, err, "allocation %d", i)
		require.Len(t, buf, s.ChunkSize())
		bufs = append(bufs, buf)
	}
	return bufs
}

func unsafePointerOf(buf []byte) unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(buf))
}

// validateInvariants asserts everything that must hold between public
// operations: bucket membership, the minFreeChunks contract, in-block
// chain integrity, and memory attribution.
func validateInvariants(t testing.TB, s *Slab) {
	t.Helper()

	blocks := 0
	anyCapacity := false
	for i := 0; i <= s.chunksPerBlock; i++ {
		for b := s.freelist[i].head; b != nil; b = b.next {
			blocks++
			require.Equal(t, i, int(b.nfree),
				"block in bucket %d has nfree %d", i, b.nfree)

			// Walk the in-block chain: exactly nfree distinct slots, then
			// the terminator.
			seen := make(map[int]bool)
			idx := int(b.firstFree)
			for idx < s.chunksPerBlock {
				require.GreaterOrEqual(t, idx, 0, "negative chain index")
				require.False(t, seen[idx], "chain revisits slot %d", idx)
				seen[idx] = true
				idx = int(*(*int32)(s.payloadAt(b, idx)))
			}
			require.Equal(t, s.chunksPerBlock, idx, "chain terminator")
			require.Len(t, seen, int(b.nfree), "chain length vs nfree")
		}
		if i >= 1 && !s.freelist[i].empty() {
			anyCapacity = true
		}
	}

	require.True(t, s.freelist[s.chunksPerBlock].empty(),
		"completely free block survived at rest")
	require.Equal(t, blocks, s.nblocks, "bucket census vs nblocks")
	require.Equal(t, int64(s.nblocks)*int64(s.blockSize), s.MemAllocated(),
		"attributed memory")

	if s.minFreeChunks == 0 {
		require.False(t, anyCapacity,
			"minFreeChunks is 0 but a block has capacity")
	} else {
		require.False(t, s.freelist[s.minFreeChunks].empty(),
			"minFreeChunks names an empty bucket")
		for i := 1; i < s.minFreeChunks; i++ {
			require.True(t, s.freelist[i].empty(),
				"bucket %d below minFreeChunks %d is not empty", i, s.minFreeChunks)
		}
	}

	require.Zero(t, s.Check(), "consistency check found problems")
}
