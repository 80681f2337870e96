package memctx

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/memkit/memkit/internal/format"
)

// Tag identifies a context implementation. It is stored in the 3-bit tag
// field of every chunk header, so at most eight implementations can
// coexist.
type Tag uint8

const (
	// TagSlab is the identity tag of the slab allocator.
	TagSlab Tag = 1

	numTags = 1 << 3
)

// Methods is the operation table a context implementation installs for its
// tag. Each entry receives the payload the caller presented.
type Methods struct {
	Free         func(buf []byte) error
	ChunkContext func(buf []byte) (Context, error)
	ChunkSpace   func(buf []byte) (int, error)
}

var methodTable struct {
	sync.RWMutex
	m [numTags]*Methods
}

// RegisterTag installs the operation table for tag. Implementations call it
// from an init function.
func RegisterTag(tag Tag, m *Methods) {
	methodTable.Lock()
	defer methodTable.Unlock()
	methodTable.m[tag&(numTags-1)] = m
}

func methodsFor(buf []byte) (*Methods, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrBadChunk)
	}
	p := unsafe.Pointer(unsafe.SliceData(buf))
	hdr := *(*uint64)(unsafe.Add(p, -format.ChunkHeaderSize))
	tag := format.UnpackTag(hdr)

	methodTable.RLock()
	m := methodTable.m[tag]
	methodTable.RUnlock()
	if m == nil {
		return nil, fmt.Errorf("%w: unknown tag %d", ErrBadChunk, tag)
	}
	return m, nil
}

// Free releases a payload produced by any live context, routing by the
// identity tag in its chunk header.
func Free(buf []byte) error {
	m, err := methodsFor(buf)
	if err != nil {
		return err
	}
	return m.Free(buf)
}

// ChunkContext returns the context that produced the payload.
func ChunkContext(buf []byte) (Context, error) {
	m, err := methodsFor(buf)
	if err != nil {
		return nil, err
	}
	return m.ChunkContext(buf)
}

// ChunkSpace returns the total per-chunk footprint of the payload,
// including header and alignment overhead.
func ChunkSpace(buf []byte) (int, error) {
	m, err := methodsFor(buf)
	if err != nil {
		return 0, err
	}
	return m.ChunkSpace(buf)
}
