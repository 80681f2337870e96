// Package memctx is a memory-context framework: a tree of named allocation
// contexts, each owned by a specific allocator implementation, with
// framework-level operations that work on any payload pointer regardless of
// which context produced it.
//
// # Overview
//
// Every payload handed out by a context is preceded by a fixed 8-byte
// header carrying a small identity tag. Framework operations such as Free,
// ChunkContext, and ChunkSpace decode the tag and route the call to the
// implementation that produced the payload, so callers can release memory
// without knowing, or carrying, its owning context.
//
// Contexts form a tree. Creating a context under a parent records it as a
// child; Delete tears down an entire subtree, children first. The tree is
// also the unit of diagnostics: PrintStats walks it recursively and prints
// one summary line per context plus a grand total.
//
// # Implementations
//
// Implementations embed Base, which carries the name, tag, parent/child
// links, and the attributed-memory counter, and finalize construction with
// Base.Init. The slab sub-package provides the one implementation in this
// module: a fixed-size-chunk allocator for large populations of
// equally-sized objects.
//
// # Usage Example
//
//	ctx, err := slab.New(nil, "decoder", 8192, 64)
//	if err != nil {
//	    return err
//	}
//	defer memctx.Delete(ctx)
//
//	buf, err := ctx.Alloc(64)
//	if err != nil {
//	    return err
//	}
//	// ... use buf ...
//	if err := memctx.Free(buf); err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// A single context is not safe for concurrent use; callers serialize all
// operations on it. Distinct contexts are independent and may be used
// concurrently: the process-wide pieces of the framework (the live-context
// registry and the method table) are internally synchronized.
package memctx
