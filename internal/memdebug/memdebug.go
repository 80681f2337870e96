// Package memdebug holds the build-time debug toggles shared by memory
// context implementations, together with the poison and sentinel helpers
// they enable. Each toggle is a package constant driven by a build tag so
// release builds compile the guarded code away entirely:
//
//	memcheck       — sentinel bytes after payloads, write-past-end
//	                 detection on free, automatic consistency checks
//	clobberfreed   — poison freed chunks and released blocks
//	randomizealloc — fill fresh payloads with a pseudo-random pattern
package memdebug

import "unsafe"

const (
	// FreedPattern is written over freed memory under clobberfreed. It is
	// chosen to be an implausible pointer byte and an odd, out-of-range
	// index so stale reads fail fast.
	FreedPattern = 0x7F

	// SentinelByte guards the slack between a payload and the next slot
	// under memcheck.
	SentinelByte = 0x7E
)

// Wipe overwrites b with FreedPattern.
func Wipe(b []byte) {
	for i := range b {
		b[i] = FreedPattern
	}
}

// SetSentinel stamps the guard byte immediately after a payload of len
// size. The caller guarantees at least one slack byte exists there.
func SetSentinel(payload unsafe.Pointer, size int) {
	*(*byte)(unsafe.Add(payload, size)) = SentinelByte
}

// SentinelOK reports whether the guard byte after a payload of len size is
// intact.
func SentinelOK(payload unsafe.Pointer, size int) bool {
	return *(*byte)(unsafe.Add(payload, size)) == SentinelByte
}

// Randomize fills b with a pseudo-random pattern seeded from its address,
// so reads of uninitialized memory surface as garbage rather than zeroes.
// Address seeding keeps the helper free of shared state; contexts on
// distinct goroutines may allocate concurrently.
func Randomize(b []byte) {
	if len(b) == 0 {
		return
	}
	x := uint64(uintptr(unsafe.Pointer(unsafe.SliceData(b)))) | 1
	for i := range b {
		// xorshift64
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		b[i] = byte(x)
	}
}
