package memctx

import "errors"

var (
	// ErrNoMemory indicates the host allocator could not satisfy a block
	// request.
	ErrNoMemory = errors.New("memctx: out of memory")

	// ErrBadChunk indicates a payload pointer that was not produced by a
	// live context: wrong length, unknown identity tag, or a stale block
	// back-link.
	ErrBadChunk = errors.New("memctx: not a valid chunk pointer")
)
