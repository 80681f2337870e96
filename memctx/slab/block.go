package slab

import (
	"unsafe"

	"github.com/memkit/memkit/internal/format"
)

// blockHeader is the preamble of every block, overlaid on the start of the
// host-allocated region. The remainder of the region is carved into
// chunksPerBlock equally-sized slots.
//
// next/prev point at sibling block headers in the same freelist bucket.
// They live in host memory, outside the garbage collector's view, which is
// safe because they only ever reference host memory. The owning context is
// recorded as a registry id, not a pointer, for the same reason.
type blockHeader struct {
	next      *blockHeader
	prev      *blockHeader
	nfree     int32
	firstFree int32
	ctxID     uint32
	_         uint32
}

// blockHeaderSize is rounded up so slot 0 starts payload-aligned on every
// platform.
var blockHeaderSize = format.Align8(int(unsafe.Sizeof(blockHeader{})))

// blockList is one freelist bucket: the blocks holding exactly the same
// number of free chunks, linked through their headers. Push and unlink are
// O(1); the head is the most recently touched block.
type blockList struct {
	head *blockHeader
}

func (l *blockList) empty() bool { return l.head == nil }

func (l *blockList) pushHead(b *blockHeader) {
	b.prev = nil
	b.next = l.head
	if l.head != nil {
		l.head.prev = b
	}
	l.head = b
}

func (l *blockList) remove(b *blockHeader) {
	if b.prev != nil {
		b.prev.next = b.next
	} else {
		l.head = b.next
	}
	if b.next != nil {
		b.next.prev = b.prev
	}
	b.next = nil
	b.prev = nil
}

// chunkAt returns the address of slot idx's chunk header within b.
func (s *Slab) chunkAt(b *blockHeader, idx int) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(b), blockHeaderSize+idx*s.fullChunkSize)
}

// payloadAt returns the address of slot idx's payload within b.
func (s *Slab) payloadAt(b *blockHeader, idx int) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(b), blockHeaderSize+idx*s.fullChunkSize+format.ChunkHeaderSize)
}

// chunkIndex recovers the slot index of the chunk header at hdr within b.
func (s *Slab) chunkIndex(b *blockHeader, hdr unsafe.Pointer) int {
	return int(uintptr(hdr)-uintptr(unsafe.Pointer(b))-uintptr(blockHeaderSize)) / s.fullChunkSize
}
