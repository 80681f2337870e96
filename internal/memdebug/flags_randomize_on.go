//go:build randomizealloc

package memdebug

// RandomizeAlloc fills freshly returned payloads with a pseudo-random
// pattern.
const RandomizeAlloc = true
