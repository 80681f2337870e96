//go:build memcheck

package memdebug

// Checking enables sentinel stamping, write-past-end detection on free,
// and automatic consistency checks on reset.
const Checking = true
