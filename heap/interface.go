package heap

import "github.com/osmem/heapkit/internal/layout"

// SubAllocator is the contract shared by every allocator in this package.
// All implementations are lock-free and safe for concurrent use.
type SubAllocator interface {
	// Alloc reserves at least size bytes aligned to align and returns the
	// address of the region, a byte view of the granted region, and an
	// error. The granted region may be longer than size; Free must be
	// called with the granted length len(payload).
	//
	// align must be a power of two and size must be nonzero. On failure
	// the returned error is, or wraps, ErrOutOfMemory.
	Alloc(size, align uintptr) (uintptr, []byte, error)

	// Free returns a previously granted region to the allocator. size is
	// the granted length from Alloc. Freeing a region twice or freeing a
	// pointer this allocator never returned is undefined behavior.
	Free(ptr, size uintptr) error

	// ArenaSize reports the total capacity of the managed arena in bytes.
	ArenaSize() uintptr

	// HeapAddr reports the base address of the managed arena.
	HeapAddr() uintptr
}

// StatsProvider is implemented by every allocator in this package and
// exposes a point-in-time snapshot of operation counters.
type StatsProvider interface {
	Stats() Stats
}

// checkRequest validates the (size, align) pair common to every Alloc.
func checkRequest(size, align uintptr) error {
	if size == 0 {
		return ErrSizeZero
	}
	if !layout.IsPow2(align) {
		return ErrBadAlign
	}
	return nil
}
