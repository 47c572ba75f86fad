package layout

import (
	"sync/atomic"
	"unsafe"
)

// AtomicU64 returns an atomic view of the 8 bytes at off inside data.
//
// off must be a multiple of 8 and in bounds. Arena backing memory is page
// aligned and every header offset is a multiple of CellAlignment, so views
// produced through this helper are always correctly aligned for 64-bit
// atomic operations.
func AtomicU64(data []byte, off uint32) *atomic.Uint64 {
	return (*atomic.Uint64)(unsafe.Pointer(&data[off]))
}

// ReadU64 reads the uint64 at off with acquire semantics.
func ReadU64(data []byte, off uint32) uint64 {
	return AtomicU64(data, off).Load()
}

// WriteU64 writes v at off with release semantics.
func WriteU64(data []byte, off uint32, v uint64) {
	AtomicU64(data, off).Store(v)
}
