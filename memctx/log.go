package memctx

import (
	"src.userspace.com.au/logger"
)

// The package logger carries corruption warnings and optional allocation
// tracing. Consistency problems are logged, never raised: raising would
// re-enter the allocator from the reporting path.
var log = logger.New(&logger.Options{
	Name:  "memctx",
	Level: logger.Warn,
})

// SetLogger replaces the package logger. Allocation tracing from
// implementations is logged at debug level, and only when the
// MEMKIT_LOG_ALLOC environment variable is set.
func SetLogger(l logger.Logger) {
	if l != nil {
		log = l
	}
}

// Log returns the package logger for implementations to report through.
func Log() logger.Logger { return log }
