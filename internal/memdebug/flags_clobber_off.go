//go:build !clobberfreed

package memdebug

// ClobberFreed poisons the non-link bytes of freed chunks and the whole of
// released blocks.
const ClobberFreed = false
