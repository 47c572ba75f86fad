// Package heap implements a family of interchangeable sub-allocators that
// carve a single fixed-size arena into live allocations, without locks and
// without ever growing the arena.
//
// # Overview
//
// Each allocator manages one arena (see the arena package) and stores its own
// bookkeeping inside that arena, in intrusive headers placed directly in front
// of the bytes it returns. All five implementations satisfy the same
// two-operation contract and are drop-in substitutable; a kernel or runtime
// picks one per subsystem based on the allocation pattern it expects.
//
// # Allocators
//
// BumpAllocator: monotonic bump-pointer allocation with single-slot hole
// reuse on free
//
//   - O(1) allocation, no per-allocation header
//   - frees record a hole marker; the next allocation may reuse it
//   - only one hole is tracked at a time (known fragmentation limitation)
//
// LeakAllocator: monotonic allocation, Free is a no-op
//
//   - for structures that live until shutdown (boot-time tables and similar)
//
// NodeAllocator: fixed-size slots tracked by a slot table outside the arena
//
//   - multi-slot spanning allocations via runs of adjacent slots
//   - fast, predictable, pays internal fragmentation inside each slot
//
// FreeListAllocator: intrusive singly linked free list
//
//   - four search strategies: first-fit, best-fit, worst-fit, next-fit
//   - splits oversized nodes, coalesces adjacent free ranges on free
//
// BuddyAllocator: binary split/merge tree embedded in the arena
//
//   - power-of-two blocks, waterfall coalescing on free
//   - lowest external fragmentation of the family
//
// # Contract
//
//	ptr, payload, err := a.Alloc(size, align) // ptr%align == 0, len(payload) >= size
//	err = a.Free(ptr, size)                   // size is the granted length
//
// The granted length is len(payload) from Alloc; buddy and free-list hand
// back whole block tails, so it can exceed the requested size. Free must be
// called with the granted length. Freeing a pointer the allocator never
// returned is undefined behavior and is not detected.
//
// # Concurrency
//
// Every allocator is lock-free: all state transitions are single CAS
// operations on packed {offset, generation} words, composed into optimistic
// retry loops. No operation blocks; Alloc either succeeds or fails with
// ErrOutOfMemory. A lost CAS means another caller changed the state first,
// and the operation restarts against the current state. Generation counters
// make every CAS comparison ABA-safe even though freed header addresses are
// reused.
//
// # Failure
//
// The single runtime failure mode is ErrOutOfMemory. No distinction is made
// between a truly full arena and one fragmented beyond use; both surface
// identically and neither is retried internally.
//
// # Tracing
//
// Setting the HEAP_LOG_ALLOC environment variable emits a trace line to
// stderr for every successful Alloc and Free. Tracing is observational only
// and never affects control flow.
package heap
