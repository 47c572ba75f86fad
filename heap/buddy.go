package heap

import (
	"github.com/osmem/heapkit/arena"
	"github.com/osmem/heapkit/internal/layout"
)

// BuddyAllocator manages the arena as a binary tree of halvable blocks. Every
// tree node is a BuddyHeader living inside the arena at the start of the
// range it governs: the root at offset 0, a left child directly behind its
// parent's header, a right child at the range midpoint. A node is FREE,
// BLOCKED (a leaf in use), or split with a LEFT/RIGHT hint naming the side
// the next search should try first.
//
// Allocation descends, splitting free nodes in half while a half can still
// serve the request, and blocks the deepest node that fits. Free unblocks the
// leaf owning the pointer and then merges upward: any ancestor whose children
// are both free collapses back into one free node, waterfalling toward the
// root.
//
// Splits and merges are gated through a transient SPLIT status so that the
// multi-word header rewrites they perform are never observable: searchers
// that encounter a gated or retired header simply restart from the root.
type BuddyAllocator struct {
	ar    *arena.Arena
	stats allocatorStats
}

var _ SubAllocator = (*BuddyAllocator)(nil)
var _ StatsProvider = (*BuddyAllocator)(nil)

// NewBuddy builds a buddy allocator over ar. The arena size must be a power
// of two of at least 64 bytes so every midpoint stays header-aligned.
func NewBuddy(ar *arena.Arena) (*BuddyAllocator, error) {
	if ar.Size() < 64 || !layout.IsPow2(ar.Size()) {
		return nil, ErrArenaSize
	}
	b := &BuddyAllocator{ar: ar}
	data := ar.Bytes()
	writeRef(data, layout.BuddyLeftField, layout.NilOffset)
	writeRef(data, layout.BuddyRightField, layout.NilOffset)
	layout.WriteU64(data, layout.BuddyStateField, layout.PackState(layout.StatusFree, 0))
	return b, nil
}

func (b *BuddyAllocator) Alloc(size, align uintptr) (uintptr, []byte, error) {
	if err := checkRequest(size, align); err != nil {
		return 0, nil, err
	}
	data := b.ar.Bytes()
	for {
		start, granted, err := b.search(data, 0, 0, b.ar.Size(), size, align)
		if err == errRetry {
			b.stats.retries.Add(1)
			continue
		}
		if err != nil {
			b.stats.failures.Add(1)
			return 0, nil, ErrOutOfMemory
		}
		b.stats.recordAlloc(granted)
		ptr := b.ar.Base() + start
		traceAlloc("buddy", size, ptr)
		return ptr, data[start : start+granted : start+granted], nil
	}
}

// search serves the request from the node at hdr governing [lo, hi). It
// returns the payload start and granted length, ErrOutOfMemory when nothing
// under this node fits, or errRetry when a gated header forces a restart.
func (b *BuddyAllocator) search(data []byte, hdr uint32, lo, hi, size, align uintptr) (uintptr, uintptr, error) {
	state := layout.AtomicU64(data, hdr+layout.BuddyStateField)
	for {
		sw := state.Load()
		switch layout.StateStatus(sw) {
		case layout.StatusSplit, layout.StatusDead:
			return 0, 0, errRetry

		case layout.StatusBlocked:
			return 0, 0, ErrOutOfMemory

		case layout.StatusFree:
			half := (hi - lo) / 2
			mid := lo + half
			if half > layout.BuddyHeaderSize {
				// Split while either half could hold the request
				// behind its own header.
				startL := layout.AlignUp(uintptr(hdr)+2*layout.BuddyHeaderSize, align)
				startR := layout.AlignUp(mid+layout.BuddyHeaderSize, align)
				if startL+size <= mid || startR+size <= hi {
					if !b.split(data, hdr, mid, sw) {
						return 0, 0, errRetry
					}
					continue
				}
			}
			start := layout.AlignUp(uintptr(hdr)+layout.BuddyHeaderSize, align)
			if start+size > hi {
				return 0, 0, ErrOutOfMemory
			}
			if !state.CompareAndSwap(sw, layout.PackState(layout.StatusBlocked, layout.StateGen(sw)+1)) {
				return 0, 0, errRetry
			}
			return start, hi - start, nil

		default: // StatusLeft, StatusRight
			mid := lo + (hi-lo)/2
			lh := layout.RefOffset(layout.ReadU64(data, hdr+layout.BuddyLeftField))
			rh := layout.RefOffset(layout.ReadU64(data, hdr+layout.BuddyRightField))
			leftFirst := layout.StateStatus(sw) == layout.StatusLeft

			start, granted, err := b.searchChild(data, leftFirst, lh, rh, lo, mid, hi, size, align)
			if err == ErrOutOfMemory {
				leftFirst = !leftFirst
				start, granted, err = b.searchChild(data, leftFirst, lh, rh, lo, mid, hi, size, align)
			}
			if err != nil {
				return 0, 0, err
			}
			// Point the next search at the other side. Best effort.
			hint := uint8(layout.StatusLeft)
			if leftFirst {
				hint = layout.StatusRight
			}
			state.CompareAndSwap(sw, layout.PackState(hint, layout.StateGen(sw)+1))
			return start, granted, nil
		}
	}
}

func (b *BuddyAllocator) searchChild(data []byte, left bool, lh, rh uint32, lo, mid, hi, size, align uintptr) (uintptr, uintptr, error) {
	if left {
		return b.search(data, lh, lo, mid, size, align)
	}
	return b.search(data, rh, mid, hi, size, align)
}

// split halves the free node at hdr. The state CAS to SPLIT takes exclusive
// ownership; the child headers are then written and the node is published as
// split with a left-first hint.
func (b *BuddyAllocator) split(data []byte, hdr uint32, mid uintptr, sw uint64) bool {
	state := layout.AtomicU64(data, hdr+layout.BuddyStateField)
	if !state.CompareAndSwap(sw, layout.PackState(layout.StatusSplit, layout.StateGen(sw)+1)) {
		return false
	}
	lh := hdr + layout.BuddyHeaderSize
	rh := uint32(mid)
	initNode(data, lh)
	initNode(data, rh)
	writeRef(data, hdr+layout.BuddyLeftField, lh)
	writeRef(data, hdr+layout.BuddyRightField, rh)
	state.Store(layout.PackState(layout.StatusLeft, layout.StateGen(sw)+2))
	b.stats.splits.Add(1)
	return true
}

// initNode writes a fresh free header at h. Generations continue from
// whatever bytes were there before, so stale words from a previous life of
// this offset can never win a CAS against the new header.
func initNode(data []byte, h uint32) {
	writeRef(data, h+layout.BuddyLeftField, layout.NilOffset)
	writeRef(data, h+layout.BuddyRightField, layout.NilOffset)
	old := layout.ReadU64(data, h+layout.BuddyStateField)
	layout.WriteU64(data, h+layout.BuddyStateField,
		layout.PackState(layout.StatusFree, layout.StateGen(old)+1))
}

func writeRef(data []byte, fieldOff, target uint32) {
	old := layout.ReadU64(data, fieldOff)
	layout.WriteU64(data, fieldOff, layout.PackRef(target, layout.RefGen(old)+1))
}

// Free unblocks the leaf owning ptr and merges ancestors whose subtrees have
// become entirely free. Freeing an already free block is a no-op.
func (b *BuddyAllocator) Free(ptr, size uintptr) error {
	if !b.ar.Contains(ptr, size) {
		return ErrBadRef
	}
	data := b.ar.Bytes()
	toff := uintptr(b.ar.Offset(ptr))
	var path [34]uint32

restart:
	for {
		depth := 0
		hdr := uint32(0)
		lo, hi := uintptr(0), b.ar.Size()
		for {
			state := layout.AtomicU64(data, hdr+layout.BuddyStateField)
			sw := state.Load()
			switch layout.StateStatus(sw) {
			case layout.StatusSplit, layout.StatusDead:
				continue restart

			case layout.StatusFree:
				return nil

			case layout.StatusBlocked:
				if toff < uintptr(hdr)+layout.BuddyHeaderSize || toff >= hi {
					return ErrBadRef
				}
				if !state.CompareAndSwap(sw, layout.PackState(layout.StatusFree, layout.StateGen(sw)+1)) {
					continue restart
				}
				for i := depth - 1; i >= 0; i-- {
					if !b.tryMerge(data, path[i]) {
						break
					}
				}
				b.stats.recordFree(size)
				traceFree("buddy", size, ptr)
				return nil

			default: // StatusLeft, StatusRight
				path[depth] = hdr
				depth++
				mid := lo + (hi-lo)/2
				if toff < mid {
					hi = mid
					hdr += layout.BuddyHeaderSize
				} else {
					lo = mid
					hdr = uint32(mid)
				}
			}
		}
	}
}

// tryMerge collapses the split node at hdr when both children are free. The
// node is first gated to SPLIT, then each child is retired with a CAS that
// invalidates any in-flight claim on it, and only then does the node become
// free. A child CAS loss means a racing allocation got there first; the gate
// and any retired sibling are rolled back and the merge is abandoned.
func (b *BuddyAllocator) tryMerge(data []byte, hdr uint32) bool {
	state := layout.AtomicU64(data, hdr+layout.BuddyStateField)
	sw := state.Load()
	st := layout.StateStatus(sw)
	if st != layout.StatusLeft && st != layout.StatusRight {
		return false
	}
	lh := layout.RefOffset(layout.ReadU64(data, hdr+layout.BuddyLeftField))
	rh := layout.RefOffset(layout.ReadU64(data, hdr+layout.BuddyRightField))
	lState := layout.AtomicU64(data, lh+layout.BuddyStateField)
	rState := layout.AtomicU64(data, rh+layout.BuddyStateField)
	lw := lState.Load()
	rw := rState.Load()
	if layout.StateStatus(lw) != layout.StatusFree || layout.StateStatus(rw) != layout.StatusFree {
		return false
	}
	if !state.CompareAndSwap(sw, layout.PackState(layout.StatusSplit, layout.StateGen(sw)+1)) {
		return false
	}
	if !lState.CompareAndSwap(lw, layout.PackState(layout.StatusDead, layout.StateGen(lw)+1)) {
		state.Store(layout.PackState(st, layout.StateGen(sw)+2))
		return false
	}
	if !rState.CompareAndSwap(rw, layout.PackState(layout.StatusDead, layout.StateGen(rw)+1)) {
		lState.Store(layout.PackState(layout.StatusFree, layout.StateGen(lw)+2))
		state.Store(layout.PackState(st, layout.StateGen(sw)+2))
		return false
	}
	state.Store(layout.PackState(layout.StatusFree, layout.StateGen(sw)+2))
	b.stats.merges.Add(1)
	return true
}

func (b *BuddyAllocator) ArenaSize() uintptr { return b.ar.Size() }
func (b *BuddyAllocator) HeapAddr() uintptr  { return b.ar.Base() }

func (b *BuddyAllocator) Stats() Stats { return b.stats.snapshot() }
