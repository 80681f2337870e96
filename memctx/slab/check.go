package slab

import (
	"fmt"
	"unsafe"

	"github.com/memkit/memkit/internal/format"
	"github.com/memkit/memkit/internal/memdebug"
	"github.com/memkit/memkit/memctx"
)

// Check walks every block and verifies the allocator's bookkeeping: bucket
// membership against free counts, block back-links, in-block freelist
// chains against a freshly built bitmap, and — in memcheck builds — the
// sentinel byte after every allocated payload. Each problem is reported as
// a warning through the package logger, never as an error: the reporting
// path must not allocate from the context under test. Returns the number
// of problems found.
func (s *Slab) Check() int {
	problems := 0
	warn := func(msg string, kvs ...interface{}) {
		problems++
		args := append([]interface{}{msg, "slab", s.Name()}, kvs...)
		memctx.Log().Warn(args...)
	}

	for i := 0; i <= s.chunksPerBlock; i++ {
		for b := s.freelist[i].head; b != nil; b = b.next {
			baddr := fmt.Sprintf("%#x", uintptr(unsafe.Pointer(b)))

			if int(b.nfree) != i {
				warn("free count does not match freelist bucket",
					"block", baddr, "nfree", int(b.nfree), "bucket", i)
			}
			if memctx.ByID(b.ctxID) != memctx.Context(s) {
				warn("bogus context link in block", "block", baddr)
			}

			// Rebuild the free-slot bitmap by walking the in-chunk chain.
			for j := range s.freechunks {
				s.freechunks[j] = false
			}
			nfree := 0
			for idx := int(b.firstFree); idx < s.chunksPerBlock; {
				if idx < 0 || s.freechunks[idx] {
					warn("damaged freelist chain in block", "block", baddr, "index", idx)
					break
				}
				nfree++
				s.freechunks[idx] = true
				idx = int(*(*int32)(s.payloadAt(b, idx)))
			}

			// Every slot off the bitmap is allocated: its header must
			// point back here, and its sentinel must be intact.
			for j := 0; j < s.chunksPerBlock; j++ {
				if s.freechunks[j] {
					continue
				}
				hdr := *(*uint64)(s.chunkAt(b, j))
				back := unsafe.Add(s.chunkAt(b, j), -int(format.UnpackBlockOffset(hdr)))
				if (*blockHeader)(back) != b {
					warn("bogus block link in chunk", "block", baddr, "slot", j)
				}
				if memdebug.Checking && s.hasSlack() &&
					!memdebug.SentinelOK(s.payloadAt(b, j), s.chunkSize) {
					warn("detected write past chunk end", "block", baddr, "slot", j)
				}
			}

			if nfree != int(b.nfree) {
				warn("free count does not match chain length",
					"block", baddr, "nfree", int(b.nfree), "chain", nfree)
			}
		}
	}

	if int64(s.nblocks)*int64(s.blockSize) != s.MemAllocated() {
		warn("attributed memory does not match block count",
			"nblocks", s.nblocks, "bytes", s.MemAllocated())
	}
	return problems
}
