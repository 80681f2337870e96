//go:build unix

// Package hostmem is the host allocator backing memory contexts. Blocks are
// obtained as anonymous private mappings so their addresses are stable, the
// memory is invisible to the garbage collector, and allocation failure is an
// observable error rather than a runtime abort.
package hostmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Alloc obtains a zeroed region of exactly size bytes from the host. The
// returned address is page-aligned.
func Alloc(size int) (unsafe.Pointer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("hostmem: invalid allocation size %d", size)
	}
	data, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("hostmem: mmap %d bytes: %w", size, err)
	}
	return unsafe.Pointer(unsafe.SliceData(data)), nil
}

// Free returns a region previously obtained from Alloc. The size must match
// the original request.
func Free(p unsafe.Pointer, size int) error {
	if p == nil {
		return nil
	}
	if err := unix.Munmap(unsafe.Slice((*byte)(p), size)); err != nil {
		return fmt.Errorf("hostmem: munmap %d bytes: %w", size, err)
	}
	return nil
}
