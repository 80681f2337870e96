package slab

import (
	"fmt"
	"unsafe"

	"github.com/memkit/memkit/internal/format"
	"github.com/memkit/memkit/internal/memdebug"
	"github.com/memkit/memkit/memctx"
)

// resolve recovers the owning slab and block from a payload. The chunk
// header yields the block, the block header yields the context id, and the
// registry yields the context. Chunks never carry a context pointer
// directly.
func resolve(buf []byte) (*Slab, *blockHeader, unsafe.Pointer, error) {
	if len(buf) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: empty payload", memctx.ErrBadChunk)
	}
	payload := unsafe.Pointer(unsafe.SliceData(buf))
	hdrp := unsafe.Add(payload, -format.ChunkHeaderSize)
	hdr := *(*uint64)(hdrp)

	if memctx.Tag(format.UnpackTag(hdr)) != memctx.TagSlab {
		return nil, nil, nil, fmt.Errorf("%w: tag %d is not a slab chunk",
			memctx.ErrBadChunk, format.UnpackTag(hdr))
	}
	b := (*blockHeader)(unsafe.Add(hdrp, -int(format.UnpackBlockOffset(hdr))))

	ctx := memctx.ByID(b.ctxID)
	s, ok := ctx.(*Slab)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: stale context id %d", memctx.ErrBadChunk, b.ctxID)
	}
	if format.UnpackValue(hdr) != uint64(format.Align8(s.chunkSize)) {
		return nil, nil, nil, fmt.Errorf("%w: damaged chunk header", memctx.ErrBadChunk)
	}
	return s, b, hdrp, nil
}

// Free releases a payload previously returned by Alloc on any slab
// context. The owning context is recovered from the chunk header alone.
func Free(buf []byte) error {
	s, b, hdrp, err := resolve(buf)
	if err != nil {
		return err
	}
	payload := unsafe.Add(hdrp, format.ChunkHeaderSize)

	if memdebug.Checking && s.hasSlack() && !memdebug.SentinelOK(payload, s.chunkSize) {
		memctx.Log().Warn("detected write past chunk end",
			"slab", s.Name(), "chunk", fmt.Sprintf("%#x", uintptr(hdrp)))
	}

	idx := s.chunkIndex(b, hdrp)

	// Push the slot onto the block's chain; the payload now carries the
	// old head index.
	*(*int32)(payload) = b.firstFree
	b.firstFree = int32(idx)
	b.nfree++

	if memdebug.ClobberFreed {
		// Keep the first four bytes: they are the freelist link.
		wipeFrom := int(unsafe.Sizeof(int32(0)))
		memdebug.Wipe(unsafe.Slice((*byte)(payload), s.chunkSize)[wipeFrom:])
	}

	old := int(b.nfree) - 1
	s.freelist[old].remove(b)
	releasing := int(b.nfree) == s.chunksPerBlock

	// minFreeChunks stays the exact lowest non-empty candidate bucket.
	switch {
	case releasing:
		// The block is about to go away. It can only have been the last
		// candidate when it drained from the highest candidate bucket.
		if s.minFreeChunks == old && s.freelist[old].empty() {
			s.minFreeChunks = 0
		}
	case old == 0:
		// The block was full; it is now the fullest block with capacity.
		s.minFreeChunks = 1
	case s.minFreeChunks == old && s.freelist[old].empty():
		// The block drained out of the bucket the cursor names and is
		// still the fullest-with-capacity, one bucket up.
		s.minFreeChunks = old + 1
	}

	if releasing {
		s.releaseBlock(b)
	} else {
		s.freelist[b.nfree].pushHead(b)
	}
	return nil
}

// Free releases a payload produced by this context. It exists to satisfy
// memctx.Context; payloads from a different slab context are rejected.
func (s *Slab) Free(buf []byte) error {
	owner, _, _, err := resolve(buf)
	if err != nil {
		return err
	}
	if owner != s {
		return fmt.Errorf("%w: chunk belongs to slab %q", memctx.ErrBadChunk, owner.Name())
	}
	return Free(buf)
}

// Realloc returns buf unchanged when size equals the chunk size. Slab
// chunks never move or change size, so any other size fails with
// ErrRealloc.
func Realloc(buf []byte, size int) ([]byte, error) {
	s, _, _, err := resolve(buf)
	if err != nil {
		return nil, err
	}
	if size == s.chunkSize {
		return buf, nil
	}
	return nil, fmt.Errorf("%w: got %d, chunk size is %d", ErrRealloc, size, s.chunkSize)
}

// Realloc implements memctx.Context; payloads from a different slab
// context are rejected.
func (s *Slab) Realloc(buf []byte, size int) ([]byte, error) {
	owner, _, _, err := resolve(buf)
	if err != nil {
		return nil, err
	}
	if owner != s {
		return nil, fmt.Errorf("%w: chunk belongs to slab %q", memctx.ErrBadChunk, owner.Name())
	}
	return Realloc(buf, size)
}

// ChunkContext returns the context that produced the payload.
func ChunkContext(buf []byte) (memctx.Context, error) {
	s, _, _, err := resolve(buf)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ChunkSpace returns the total footprint of the payload's chunk: header
// plus aligned payload.
func ChunkSpace(buf []byte) (int, error) {
	s, _, _, err := resolve(buf)
	if err != nil {
		return 0, err
	}
	return s.fullChunkSize, nil
}
