package memctx

import "sync"

// The live-context registry maps small integer ids to contexts. Block
// headers reference their owning context by id, so recovering a context
// from a raw payload never dereferences a pointer stored in host memory.
// Creation and deletion may happen on distinct goroutines; lookups take the
// read lock only.
var registry struct {
	sync.RWMutex
	ctxs []Context
	free []uint32
}

func register(ctx Context) uint32 {
	registry.Lock()
	defer registry.Unlock()

	if n := len(registry.free); n > 0 {
		id := registry.free[n-1]
		registry.free = registry.free[:n-1]
		registry.ctxs[id] = ctx
		return id
	}
	registry.ctxs = append(registry.ctxs, ctx)
	return uint32(len(registry.ctxs) - 1)
}

func unregister(id uint32) {
	registry.Lock()
	defer registry.Unlock()

	if int(id) < len(registry.ctxs) {
		registry.ctxs[id] = nil
		registry.free = append(registry.free, id)
	}
}

// ByID returns the live context registered under id, or nil. Implementations
// use it to resolve the context id stored in a block header.
func ByID(id uint32) Context {
	registry.RLock()
	defer registry.RUnlock()

	if int(id) >= len(registry.ctxs) {
		return nil
	}
	return registry.ctxs[id]
}
