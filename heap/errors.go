package heap

import "errors"

// Sentinel errors returned by allocator operations. Callers should compare
// with errors.Is since operations may wrap these with context.
var (
	// ErrOutOfMemory is returned when no region of the arena can satisfy
	// the requested size and alignment. Fragmentation failures and truly
	// exhausted arenas are not distinguished.
	ErrOutOfMemory = errors.New("heap: out of memory")

	// ErrSizeZero is returned when Alloc is called with size 0.
	ErrSizeZero = errors.New("heap: zero-size allocation")

	// ErrBadAlign is returned when the requested alignment is not a power
	// of two.
	ErrBadAlign = errors.New("heap: alignment must be a power of two")

	// ErrBadRef is returned by Free when the pointer does not lie inside
	// the arena or does not address a region this allocator manages.
	ErrBadRef = errors.New("heap: pointer outside managed region")

	// ErrBadStrategy is returned by NewFreeList for an unknown
	// SearchStrategy value.
	ErrBadStrategy = errors.New("heap: unknown search strategy")

	// ErrArenaSize is returned by constructors when the arena cannot hold
	// the allocator's minimum bookkeeping.
	ErrArenaSize = errors.New("heap: arena too small for allocator")

	// errRetry signals that a CAS was lost to a concurrent caller and the
	// operation should restart against current state. Never escapes the
	// package.
	errRetry = errors.New("heap: lost update race")
)
