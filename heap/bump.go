package heap

import (
	"sync/atomic"

	"github.com/osmem/heapkit/arena"
	"github.com/osmem/heapkit/internal/layout"
)

// BumpAllocator allocates by advancing a single position through the arena.
// Allocation is one CAS; there is no per-allocation header and no free list.
//
// Free records the region as a hole: a BumpHole marker is written into the
// freed bytes and the bump position jumps back to the hole's start, with the
// prior position saved in the marker. The next allocation either serves out
// of the hole or discards it and restores the saved position. Only one hole
// is live at a time; a free arriving while a hole is pending abandons its
// bytes rather than track a second hole.
type BumpAllocator struct {
	ar *arena.Arena

	// next is the packed bump position. mark trails next: a hole is pending
	// exactly when mark's offset is above next's, in which case a BumpHole
	// sits at next's offset and its prev field holds the position to restore.
	next  atomic.Uint64
	mark  atomic.Uint64
	stats allocatorStats
}

var _ SubAllocator = (*BumpAllocator)(nil)
var _ StatsProvider = (*BumpAllocator)(nil)

// NewBump builds a bump allocator over ar.
func NewBump(ar *arena.Arena) (*BumpAllocator, error) {
	if ar.Size() < layout.BumpHoleSize {
		return nil, ErrArenaSize
	}
	b := &BumpAllocator{ar: ar}
	b.next.Store(layout.PackRef(0, 0))
	b.mark.Store(layout.PackRef(0, 0))
	return b, nil
}

func (b *BumpAllocator) Alloc(size, align uintptr) (uintptr, []byte, error) {
	if err := checkRequest(size, align); err != nil {
		return 0, nil, err
	}
	data := b.ar.Bytes()
	for {
		nw := b.next.Load()
		mw := b.mark.Load()
		nOff := uintptr(layout.RefOffset(nw))
		mOff := uintptr(layout.RefOffset(mw))

		if mOff > nOff {
			// A hole is pending at the bump position. Either serve the
			// request from it or discard it; both moves are a single CAS
			// on next, which also clears the pending state because next
			// lands back on the saved position mark already equals.
			holeSize := uintptr(layout.ReadU64(data, uint32(nOff)+layout.BumpHoleSizeField))
			holePrev := layout.ReadU64(data, uint32(nOff)+layout.BumpHolePrevField)
			start := layout.AlignUp(nOff, align)
			restored := layout.PackRef(layout.RefOffset(holePrev), layout.RefGen(nw)+1)
			if !b.next.CompareAndSwap(nw, restored) {
				b.stats.retries.Add(1)
				continue
			}
			if start+size <= nOff+holeSize {
				granted := nOff + holeSize - start
				return b.finish(data, start, size, granted)
			}
			// Hole too small for this request; it is gone for good.
			continue
		}

		start := layout.AlignUp(nOff, align)
		end := start + size
		if end > b.ar.Size() {
			b.stats.failures.Add(1)
			return 0, nil, ErrOutOfMemory
		}
		if !b.next.CompareAndSwap(nw, layout.PackRef(uint32(end), layout.RefGen(nw)+1)) {
			b.stats.retries.Add(1)
			continue
		}
		return b.finish(data, start, size, size)
	}
}

func (b *BumpAllocator) finish(data []byte, start, size, granted uintptr) (uintptr, []byte, error) {
	b.stats.recordAlloc(granted)
	ptr := b.ar.Base() + start
	traceAlloc("bump", size, ptr)
	return ptr, data[start : start+granted : start+granted], nil
}

// Free records the region as the pending hole. The mark CAS and the next CAS
// run in lock-step: mark is moved to the current bump position first, then
// next is dropped to the hole's start. A loss on either CAS restarts with
// fresh positions and a rewritten marker, so the saved position is always the
// one the winning next CAS displaced.
func (b *BumpAllocator) Free(ptr, size uintptr) error {
	if !b.ar.Contains(ptr, size) {
		return ErrBadRef
	}
	if size < layout.BumpHoleSize {
		// Too small to hold a hole marker; the bytes are abandoned.
		b.stats.recordFree(size)
		traceFree("bump", size, ptr)
		return nil
	}
	data := b.ar.Bytes()
	off := b.ar.Offset(ptr)
	for {
		nw := b.next.Load()
		mw := b.mark.Load()
		if uintptr(layout.RefOffset(mw)) > uintptr(layout.RefOffset(nw)) {
			// A hole is already pending, so next is not at the high-water
			// mark. Rolling it back again would let linear allocation run
			// across the gap into live regions; the bytes are abandoned
			// instead.
			b.stats.recordFree(size)
			traceFree("bump", size, ptr)
			return nil
		}
		layout.WriteU64(data, off+layout.BumpHoleSizeField, uint64(size))
		layout.WriteU64(data, off+layout.BumpHolePrevField, uint64(layout.RefOffset(nw)))
		if !b.mark.CompareAndSwap(mw, layout.PackRef(layout.RefOffset(nw), layout.RefGen(mw)+1)) {
			b.stats.retries.Add(1)
			continue
		}
		if !b.next.CompareAndSwap(nw, layout.PackRef(off, layout.RefGen(nw)+1)) {
			b.stats.retries.Add(1)
			continue
		}
		b.stats.recordFree(size)
		traceFree("bump", size, ptr)
		return nil
	}
}

func (b *BumpAllocator) ArenaSize() uintptr { return b.ar.Size() }
func (b *BumpAllocator) HeapAddr() uintptr  { return b.ar.Base() }

func (b *BumpAllocator) Stats() Stats { return b.stats.snapshot() }
