// Package slab implements a slab allocator as a memory context: a context
// serves allocations of exactly one configured chunk size, carved out of
// fixed-size blocks obtained from the host allocator.
//
// # Overview
//
// The constant allocation size allows significant simplification over a
// general-purpose allocator. Blocks are carved into chunks of exactly the
// right size plus alignment, wasting no memory, and free-chunk information
// is kept both per block and per context:
//
//   - Within a block, free chunks form a linked chain threaded through the
//     chunks themselves: a free chunk's payload holds the index of the
//     next free slot. Each block also counts its free chunks and remembers
//     the first free slot.
//   - Across blocks, the context buckets blocks by their number of free
//     chunks and caches the lowest non-empty bucket (minFreeChunks), so
//     allocation is a constant-time head pick with no freelist scan.
//
// Allocation always reuses the fullest block that still has capacity. Less
// full blocks are starved on purpose: they drain toward empty, and a block
// is returned to the host the instant its last chunk is freed. There is no
// keeper block and no hysteresis, which bounds steady-state memory at the
// cost of possible churn when an allocation pattern straddles a block
// boundary.
//
// # Usage Example
//
//	s, err := slab.New(nil, "tuples", 8192, 56)
//	if err != nil {
//	    return err
//	}
//	defer s.Delete()
//
//	buf, err := s.Alloc(56) // only the configured chunk size is valid
//	if err != nil {
//	    return err
//	}
//	// ...
//	if err := slab.Free(buf); err != nil { // context recovered from buf
//	    return err
//	}
//
// # Diagnostics
//
// Check verifies the full bookkeeping of a context and reports problems as
// warnings. Three build tags harden debug builds: memcheck adds sentinel
// bytes and write-past-end detection, clobberfreed poisons freed memory,
// and randomizealloc fills fresh payloads with garbage. See the
// internal/memdebug package.
//
// # Thread Safety
//
// A single context is not safe for concurrent use. Distinct contexts are
// independent and may be used from distinct goroutines.
package slab
