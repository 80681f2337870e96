package slab

import "errors"

var (
	// ErrChunkSize indicates an allocation size other than the context's
	// configured chunk size, or a chunk size out of range at creation.
	ErrChunkSize = errors.New("slab: size does not match chunk size")

	// ErrBlockSize indicates a block size too small to hold a single
	// chunk, or out of range, at creation.
	ErrBlockSize = errors.New("slab: invalid block size")

	// ErrRealloc indicates a realloc to a size other than the chunk size;
	// slab chunks never change size.
	ErrRealloc = errors.New("slab: realloc to a different size is not supported")
)
