package heap

import (
	"fmt"
	"os"
)

// traceEnabled is latched once at startup. Tracing goes straight to stderr
// rather than through a logger so it stays usable from contexts where no
// logging stack has been wired up yet.
var traceEnabled = os.Getenv("HEAP_LOG_ALLOC") != ""

func traceAlloc(name string, size, ptr uintptr) {
	if !traceEnabled {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: allocating %d bytes at %#x\n", name, size, ptr)
}

func traceFree(name string, size, ptr uintptr) {
	if !traceEnabled {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: deallocating %d bytes from %#x\n", name, size, ptr)
}
