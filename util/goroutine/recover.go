package goroutine

import (
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"
)

// stackBufferSize is the buffer size for stack trace collection.
const stackBufferSize = 4096

// Recover recovers from panics in background goroutines and logs them.
// If logger is nil it falls back to stderr so the panic is never lost.
// Intended to be deferred at the top of every goroutine:
//
//	go func() {
//	    defer goroutine.Recover("scan-worker", logger)
//	    ...
//	}()
func Recover(name string, logger *zap.SugaredLogger) {
	if r := recover(); r != nil {
		buf := make([]byte, stackBufferSize)
		n := runtime.Stack(buf, false)

		if logger != nil {
			logger.Errorw("Goroutine panic recovered",
				"goroutine", name,
				"panic", r,
				"stack", string(buf[:n]))
		} else {
			fmt.Fprintf(os.Stderr, "PANIC in goroutine %s (no logger): %v\n%s\n",
				name, r, string(buf[:n]))
		}
	}
}
