package slab

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/memkit/memkit/internal/format"
	"github.com/memkit/memkit/internal/hostmem"
	"github.com/memkit/memkit/internal/memdebug"
	"github.com/memkit/memkit/memctx"
)

// Runtime flag for allocation tracing - controlled by MEMKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("MEMKIT_LOG_ALLOC") != ""

// minChunkSize is the smallest usable chunk size: a freed chunk's payload
// holds the int32 index of the next free slot.
const minChunkSize = int(unsafe.Sizeof(int32(0)))

// Slab is a memory context serving allocations of one fixed chunk size.
//
// Blocks of blockSize bytes are obtained from the host allocator and carved
// into chunksPerBlock slots. Free chunks within a block form a singly
// linked chain threaded through the chunks themselves: a free slot's first
// four payload bytes hold the index of the next free slot, with
// chunksPerBlock as the terminator. Blocks are bucketed by their number of
// free chunks in freelist, and minFreeChunks caches the lowest non-empty
// bucket index so allocation never scans. Reuse is biased toward the
// fullest block with capacity, letting emptier blocks drain and be
// returned to the host the instant their last chunk is freed.
type Slab struct {
	memctx.Base

	chunkSize      int // requested payload size, raised to minChunkSize
	fullChunkSize  int // chunk header plus aligned payload
	blockSize      int
	headerSize     int // context footprint: struct, buckets, scratch bitmap
	chunksPerBlock int

	minFreeChunks int // lowest non-empty bucket; 0 = no block has capacity
	nblocks       int

	// freelist[k] holds the blocks with exactly k free chunks. A block in
	// freelist[chunksPerBlock] is transient: it is released before the
	// operation returns.
	freelist []blockList

	// freechunks is the scratch bitmap Check uses to classify slots.
	freechunks []bool
}

func init() {
	memctx.RegisterTag(memctx.TagSlab, &memctx.Methods{
		Free:         Free,
		ChunkContext: ChunkContext,
		ChunkSpace:   ChunkSpace,
	})
}

// New creates a slab context serving chunks of exactly chunkSize bytes,
// carved from blocks of blockSize bytes, registered under parent. The
// block size must leave room for the block header plus at least one chunk.
func New(parent memctx.Context, name string, blockSize, chunkSize int) (*Slab, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d", ErrChunkSize, chunkSize)
	}
	// A freed chunk stores the next free slot index in its payload.
	if chunkSize < minChunkSize {
		chunkSize = minChunkSize
	}
	if format.Align8(chunkSize) > format.MaxChunkValue {
		return nil, fmt.Errorf("%w: chunk size %d exceeds header value range", ErrChunkSize, chunkSize)
	}
	if blockSize > format.MaxBlockOffset {
		return nil, fmt.Errorf("%w: block size %d exceeds header offset range", ErrBlockSize, blockSize)
	}

	fullChunkSize := format.ChunkHeaderSize + format.Align8(chunkSize)
	if blockSize < blockHeaderSize+fullChunkSize {
		return nil, fmt.Errorf("%w: block size %d too small for %d byte chunks",
			ErrBlockSize, blockSize, chunkSize)
	}
	chunksPerBlock := (blockSize - blockHeaderSize) / fullChunkSize

	s := &Slab{
		chunkSize:      chunkSize,
		fullChunkSize:  fullChunkSize,
		blockSize:      blockSize,
		chunksPerBlock: chunksPerBlock,
		freelist:       make([]blockList, chunksPerBlock+1),
		freechunks:     make([]bool, chunksPerBlock),
	}
	s.headerSize = int(unsafe.Sizeof(Slab{})) +
		(chunksPerBlock+1)*int(unsafe.Sizeof(blockList{})) +
		chunksPerBlock

	// Registration is last: nothing above can fail, so a failed New leaves
	// no trace in the framework.
	s.Init(s, memctx.TagSlab, parent, name)
	return s, nil
}

// ChunksPerBlock returns the number of chunk slots each block carries.
func (s *Slab) ChunksPerBlock() int { return s.chunksPerBlock }

// ChunkSize returns the payload size served by this context.
func (s *Slab) ChunkSize() int { return s.chunkSize }

// BlockSize returns the configured block size.
func (s *Slab) BlockSize() int { return s.blockSize }

// Alloc returns a payload of exactly the context's chunk size. Any other
// size fails with ErrChunkSize. Host allocator failure surfaces as a
// wrapped memctx.ErrNoMemory with the context left untouched.
func (s *Slab) Alloc(size int) ([]byte, error) {
	if size != s.chunkSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrChunkSize, size, s.chunkSize)
	}

	// No block has a free chunk: start a new one. It lands in the
	// all-free bucket with minFreeChunks pointing at it, so the pick
	// below needs no special case.
	if s.minFreeChunks == 0 {
		b, err := s.newBlock()
		if err != nil {
			return nil, err
		}
		s.freelist[s.chunksPerBlock].pushHead(b)
		s.minFreeChunks = s.chunksPerBlock
		s.nblocks++
		s.AddAllocated(int64(s.blockSize))
	}

	// The head of the lowest non-empty bucket is the fullest block with
	// capacity.
	b := s.freelist[s.minFreeChunks].head
	idx := int(b.firstFree)

	hdr := s.chunkAt(b, idx)
	payload := unsafe.Add(hdr, format.ChunkHeaderSize)

	// Pop the chunk: its payload holds the next free slot index.
	b.nfree--
	s.minFreeChunks = int(b.nfree)
	b.firstFree = *(*int32)(payload)

	// Move the block down one bucket.
	s.freelist[int(b.nfree)+1].remove(b)
	s.freelist[b.nfree].pushHead(b)

	// The block went full: find the new lowest non-empty bucket, if any.
	if s.minFreeChunks == 0 {
		for i := 1; i <= s.chunksPerBlock; i++ {
			if !s.freelist[i].empty() {
				s.minFreeChunks = i
				break
			}
		}
	}
	if s.minFreeChunks == s.chunksPerBlock {
		s.minFreeChunks = 0
	}

	off := uintptr(hdr) - uintptr(unsafe.Pointer(b))
	*(*uint64)(hdr) = format.PackChunkHeader(uint64(off),
		uint64(format.Align8(s.chunkSize)), uint8(memctx.TagSlab))

	buf := unsafe.Slice((*byte)(payload), s.chunkSize)
	if memdebug.Checking && s.hasSlack() {
		memdebug.SetSentinel(payload, s.chunkSize)
	}
	if memdebug.RandomizeAlloc {
		memdebug.Randomize(buf)
	}
	return buf, nil
}

func (s *Slab) newBlock() (*blockHeader, error) {
	mem, err := hostmem.Alloc(s.blockSize)
	if err != nil {
		return nil, fmt.Errorf("slab %q: %w (%v)", s.Name(), memctx.ErrNoMemory, err)
	}
	if logAlloc {
		memctx.Log().Debug("block allocated",
			"slab", s.Name(), "bytes", s.blockSize, "nblocks", s.nblocks+1)
	}

	b := (*blockHeader)(mem)
	b.nfree = int32(s.chunksPerBlock)
	b.firstFree = 0
	b.ctxID = s.ID()

	// Chain every slot to its successor; the final slot carries the
	// terminator.
	for idx := 0; idx < s.chunksPerBlock; idx++ {
		*(*int32)(s.payloadAt(b, idx)) = int32(idx + 1)
	}
	return b, nil
}

// hasSlack reports whether alignment left guard space between the payload
// and the next slot.
func (s *Slab) hasSlack() bool {
	return s.chunkSize < s.fullChunkSize-format.ChunkHeaderSize
}

// releaseBlock returns a fully free block to the host.
func (s *Slab) releaseBlock(b *blockHeader) {
	if memdebug.ClobberFreed {
		memdebug.Wipe(unsafe.Slice((*byte)(unsafe.Pointer(b)), s.blockSize))
	}
	if err := hostmem.Free(unsafe.Pointer(b), s.blockSize); err != nil {
		memctx.Log().Warn("block release failed", "slab", s.Name(), "error", err)
	}
	s.nblocks--
	s.AddAllocated(-int64(s.blockSize))
	if logAlloc {
		memctx.Log().Debug("block released",
			"slab", s.Name(), "bytes", s.blockSize, "nblocks", s.nblocks)
	}
}

// Reset releases every block, full or not, leaving the context usable and
// empty. Safe on an already-empty context.
func (s *Slab) Reset() {
	if memdebug.Checking {
		s.Check()
	}

	for i := 0; i <= s.chunksPerBlock; i++ {
		for b := s.freelist[i].head; b != nil; {
			next := b.next
			s.releaseBlock(b)
			b = next
		}
		s.freelist[i].head = nil
	}
	s.minFreeChunks = 0

	if s.nblocks != 0 || s.MemAllocated() != 0 {
		memctx.Log().Warn("slab accounting damaged after reset",
			"slab", s.Name(), "nblocks", s.nblocks, "bytes", s.MemAllocated())
	}
}

// Delete resets the context and retires it from the framework. Children
// are detached but not deleted; use memctx.Delete for subtree teardown.
func (s *Slab) Delete() {
	s.Reset()
	s.Release()
}

// IsEmpty reports whether the context holds no blocks.
func (s *Slab) IsEmpty() bool { return s.nblocks == 0 }

// Stats traverses the freelist buckets and reports memory consumption: a
// summary line through emit (if non-nil) and counter deltas into totals
// (if non-nil).
func (s *Slab) Stats(emit memctx.StatsEmitter, totals *memctx.Counters) {
	var nblocks, freechunks, freespace int64
	totalspace := int64(s.headerSize)

	for i := 0; i <= s.chunksPerBlock; i++ {
		for b := s.freelist[i].head; b != nil; b = b.next {
			nblocks++
			totalspace += int64(s.blockSize)
			freespace += int64(s.fullChunkSize) * int64(b.nfree)
			freechunks += int64(b.nfree)
		}
	}

	if emit != nil {
		emit(s, fmt.Sprintf("%d total in %d blocks; %d free (%d chunks); %d used",
			totalspace, nblocks, freespace, freechunks, totalspace-freespace))
	}
	if totals != nil {
		totals.NBlocks += nblocks
		totals.FreeChunks += freechunks
		totals.TotalSpace += totalspace
		totals.FreeSpace += freespace
	}
}
