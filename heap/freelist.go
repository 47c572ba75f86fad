package heap

import (
	"sync/atomic"

	"github.com/osmem/heapkit/arena"
	"github.com/osmem/heapkit/internal/layout"
)

// FreeListAllocator tracks free ranges with an intrusive singly linked list.
// Each free range starts with a FreeNodeHeader holding the range size (header
// included) and a packed link to the next free range. Construction seeds the
// list with a single node spanning the whole arena.
//
// Allocation walks the list under the configured SearchStrategy, then claims
// the chosen node in two CAS steps: first the node's own link is marked,
// fencing off concurrent claimers, then the predecessor's link is swung past
// it. Oversized nodes are split and the remainder is relinked in the claimed
// node's place. Free pushes a new node at the head after absorbing any free
// range that starts exactly where the freed region ends, so adjacent frees
// coalesce instead of accumulating.
type FreeListAllocator struct {
	ar       *arena.Arena
	strategy SearchStrategy

	// head links to the first free range, or packs NilOffset when the
	// list is empty.
	head atomic.Uint64

	// cursor remembers where the last next-fit search stopped. A hint
	// only: it may point at a region that has since been claimed, and the
	// search falls back to the head when it does.
	cursor atomic.Uint64

	stats allocatorStats
}

var _ SubAllocator = (*FreeListAllocator)(nil)
var _ StatsProvider = (*FreeListAllocator)(nil)

// candidate is a node picked by a list walk, together with the link that
// pointed at it. The claim re-validates everything with CAS, so a stale
// candidate costs a retry, never correctness.
type candidate struct {
	predOff  uint32 // owner of the link; NilOffset means the list head
	predWord uint64 // link word observed during the walk
	off      uint32 // node being claimed
	size     uintptr
}

// NewFreeList builds a free-list allocator over ar using the given search
// strategy.
func NewFreeList(ar *arena.Arena, strategy SearchStrategy) (*FreeListAllocator, error) {
	switch strategy {
	case FirstFit, BestFit, WorstFit, NextFit:
	default:
		return nil, ErrBadStrategy
	}
	if ar.Size() < layout.FreeNodeSize+layout.FreeNodeMinPayload {
		return nil, ErrArenaSize
	}
	f := &FreeListAllocator{ar: ar, strategy: strategy}
	// Seed here, before the allocator is shared. Seeding from Alloc would
	// let a slow racer rewrite the header at offset zero after the node
	// there had already been recycled into a live list.
	data := ar.Bytes()
	layout.WriteU64(data, layout.FreeNodeSizeField, uint64(ar.Size()))
	layout.WriteU64(data, layout.FreeNodeNextField, layout.NilRef)
	f.head.Store(layout.PackRef(0, 1))
	f.cursor.Store(layout.NilRef)
	return f, nil
}

func (f *FreeListAllocator) Alloc(size, align uintptr) (uintptr, []byte, error) {
	if err := checkRequest(size, align); err != nil {
		return 0, nil, err
	}
	data := f.ar.Bytes()
	for {
		hw := f.head.Load()
		var c candidate
		var err error
		switch f.strategy {
		case BestFit, WorstFit:
			c, err = f.scanFit(data, size, align)
		case NextFit:
			c, err = f.nextFit(data, size, align)
		default:
			c, err = f.firstFit(data, layout.NilOffset, hw, size, align)
		}
		if err == errRetry {
			f.stats.retries.Add(1)
			continue
		}
		if err != nil {
			f.stats.failures.Add(1)
			return 0, nil, ErrOutOfMemory
		}
		ptr, payload, err := f.claim(data, c, size, align)
		if err != nil {
			f.stats.retries.Add(1)
			continue
		}
		if f.strategy == NextFit {
			cw := f.cursor.Load()
			f.cursor.Store(layout.PackRef(c.predOff, layout.RefGen(cw)+1))
		}
		return ptr, payload, nil
	}
}

// nodeSpan computes the aligned payload start and range end for a node.
func nodeSpan(off uint32, nsize, align uintptr) (start, end uintptr) {
	start = layout.AlignUp(uintptr(off)+layout.FreeNodeSize, align)
	end = uintptr(off) + nsize
	return start, end
}

// maxWalk bounds list walks. A healthy list can never be longer than this;
// exceeding it means the walk strayed through stale bytes.
func (f *FreeListAllocator) maxWalk() int {
	return int(f.ar.Size()/layout.FreeNodeSize) + 2
}

// validNode reports whether off can hold a node header inside the arena.
// Link words live in arena bytes that a caller is free to scribble over once
// the surrounding node has been granted, so a walker that lost a race may
// decode arbitrary bits here. Offsets are untrusted until this check passes.
func (f *FreeListAllocator) validNode(off uint32) bool {
	return off%layout.CellAlignment == 0 &&
		uintptr(off)+layout.FreeNodeSize <= f.ar.Size()
}

// firstFit walks the list from the given link and returns the first node
// large enough. A marked link means a claim is in flight somewhere in the
// walk and the caller should restart.
func (f *FreeListAllocator) firstFit(data []byte, predOff uint32, lw uint64, size, align uintptr) (candidate, error) {
	limit := f.maxWalk()
	for steps := 0; steps < limit; steps++ {
		off := layout.RefOffset(lw)
		if off == layout.NilOffset {
			return candidate{}, ErrOutOfMemory
		}
		if !f.validNode(off) {
			return candidate{}, errRetry
		}
		nsize := uintptr(layout.ReadU64(data, off+layout.FreeNodeSizeField))
		if start, end := nodeSpan(off, nsize, align); start+size <= end {
			return candidate{predOff: predOff, predWord: lw, off: off, size: nsize}, nil
		}
		nx := layout.ReadU64(data, off+layout.FreeNodeNextField)
		if layout.Marked(nx) {
			return candidate{}, errRetry
		}
		predOff, lw = off, nx
	}
	return candidate{}, errRetry
}

// scanFit walks the whole list and keeps the tightest (best-fit) or largest
// (worst-fit) node that can serve the request.
func (f *FreeListAllocator) scanFit(data []byte, size, align uintptr) (candidate, error) {
	var best candidate
	found := false
	predOff := layout.NilOffset
	lw := f.head.Load()
	limit := f.maxWalk()
	for steps := 0; steps < limit; steps++ {
		off := layout.RefOffset(lw)
		if off == layout.NilOffset {
			if !found {
				return candidate{}, ErrOutOfMemory
			}
			return best, nil
		}
		if !f.validNode(off) {
			return candidate{}, errRetry
		}
		nsize := uintptr(layout.ReadU64(data, off+layout.FreeNodeSizeField))
		if start, end := nodeSpan(off, nsize, align); start+size <= end {
			take := !found
			if !take && f.strategy == BestFit {
				take = nsize < best.size
			}
			if !take && f.strategy == WorstFit {
				take = nsize > best.size
			}
			if take {
				best = candidate{predOff: predOff, predWord: lw, off: off, size: nsize}
				found = true
			}
		}
		nx := layout.ReadU64(data, off+layout.FreeNodeNextField)
		if layout.Marked(nx) {
			return candidate{}, errRetry
		}
		predOff, lw = off, nx
	}
	return candidate{}, errRetry
}

// nextFit resumes a first-fit walk from the remembered cursor and wraps to
// the head when the tail has nothing suitable or the cursor hint has gone
// stale. The cursor may point into a region that was granted and overwritten
// since the hint was stored, so any trouble on the cursor path falls back to
// the head walk instead of propagating.
func (f *FreeListAllocator) nextFit(data []byte, size, align uintptr) (candidate, error) {
	cw := f.cursor.Load()
	if cOff := layout.RefOffset(cw); cOff != layout.NilOffset && f.validNode(cOff) {
		lw := layout.ReadU64(data, cOff+layout.FreeNodeNextField)
		if !layout.Marked(lw) {
			if c, err := f.firstFit(data, cOff, lw, size, align); err == nil {
				return c, nil
			}
		}
	}
	return f.firstFit(data, layout.NilOffset, f.head.Load(), size, align)
}

// casLink swings the link that points at a node: the list head when predOff
// is NilOffset, otherwise the next field of the predecessor node.
func (f *FreeListAllocator) casLink(data []byte, predOff uint32, old, new uint64) bool {
	if predOff == layout.NilOffset {
		return f.head.CompareAndSwap(old, new)
	}
	return layout.AtomicU64(data, predOff+layout.FreeNodeNextField).CompareAndSwap(old, new)
}

// claim takes the candidate node out of the list, splitting off a remainder
// node when enough of it would be left over. Marking the node's own link
// first means a predecessor-link race can only be lost, never produce two
// owners for one range.
func (f *FreeListAllocator) claim(data []byte, c candidate, size, align uintptr) (uintptr, []byte, error) {
	next := layout.AtomicU64(data, c.off+layout.FreeNodeNextField)
	xw := next.Load()
	if layout.Marked(xw) {
		return 0, nil, errRetry
	}
	marked := layout.PackRef(layout.RefOffset(xw), layout.RefGen(xw)+1) | layout.RefMark
	if !next.CompareAndSwap(xw, marked) {
		return 0, nil, errRetry
	}
	unmark := func() {
		next.Store(layout.PackRef(layout.RefOffset(xw), layout.RefGen(marked)+1))
	}

	nsize := uintptr(layout.ReadU64(data, c.off+layout.FreeNodeSizeField))
	if nsize < layout.FreeNodeSize || uintptr(c.off)+nsize > f.ar.Size() {
		// The size word has been overwritten since the walk; trusting it
		// would slice or split past the arena end.
		unmark()
		return 0, nil, errRetry
	}
	start, end := nodeSpan(c.off, nsize, align)
	if start+size > end {
		unmark()
		return 0, nil, errRetry
	}

	granted := end - start
	newLink := layout.PackRef(layout.RefOffset(xw), layout.RefGen(c.predWord)+1)
	split := false
	splitOff := layout.Align8(start + size)
	if end >= splitOff+layout.FreeNodeSize+layout.FreeNodeMinPayload {
		rem := uint32(splitOff)
		old := layout.ReadU64(data, rem+layout.FreeNodeNextField)
		layout.WriteU64(data, rem+layout.FreeNodeSizeField, uint64(end-splitOff))
		layout.WriteU64(data, rem+layout.FreeNodeNextField,
			layout.PackRef(layout.RefOffset(xw), layout.RefGen(old)+1))
		newLink = layout.PackRef(rem, layout.RefGen(c.predWord)+1)
		granted = splitOff - start
		split = true
	}

	if !f.casLink(data, c.predOff, c.predWord, newLink) {
		unmark()
		return 0, nil, errRetry
	}
	if split {
		f.stats.splits.Add(1)
	}
	f.stats.recordAlloc(granted)
	ptr := f.ar.Base() + start
	traceAlloc("freelist", size, ptr)
	return ptr, data[start : start+granted : start+granted], nil
}

// Free returns the region to the list. Adjacent free ranges directly after
// the region are absorbed first, while the new node is still private, then
// the node is pushed at the head with one CAS.
func (f *FreeListAllocator) Free(ptr, size uintptr) error {
	base := f.ar.Base()
	if ptr < base+layout.FreeNodeSize || !f.ar.Contains(ptr, size) {
		return ErrBadRef
	}
	data := f.ar.Bytes()
	hdr := f.ar.Offset(ptr) - layout.FreeNodeSize
	total := size + layout.FreeNodeSize

	for {
		absorbed, ok := f.absorbAfter(data, hdr, total)
		if !ok {
			break
		}
		total += absorbed
	}

	for {
		hw := f.head.Load()
		old := layout.ReadU64(data, hdr+layout.FreeNodeNextField)
		layout.WriteU64(data, hdr+layout.FreeNodeSizeField, uint64(total))
		layout.WriteU64(data, hdr+layout.FreeNodeNextField,
			layout.PackRef(layout.RefOffset(hw), layout.RefGen(old)+1))
		if f.head.CompareAndSwap(hw, layout.PackRef(hdr, layout.RefGen(hw)+1)) {
			break
		}
		f.stats.retries.Add(1)
	}
	f.stats.recordFree(size)
	traceFree("freelist", size, ptr)
	return nil
}

// absorbAfter looks for a free node starting exactly at hdr+total and, if one
// is linked, claims it whole so its bytes extend the node being built. Missed
// absorptions under contention are tolerated; they cost fragmentation, not
// correctness.
func (f *FreeListAllocator) absorbAfter(data []byte, hdr uint32, total uintptr) (uintptr, bool) {
	target := hdr + uint32(total)
	for {
		predOff := layout.NilOffset
		lw := f.head.Load()
		limit := f.maxWalk()
		found := false
		for steps := 0; steps < limit; steps++ {
			off := layout.RefOffset(lw)
			if off == layout.NilOffset || !f.validNode(off) {
				break
			}
			if off == target {
				found = true
				break
			}
			nx := layout.ReadU64(data, off+layout.FreeNodeNextField)
			if layout.Marked(nx) {
				break
			}
			predOff, lw = off, nx
		}
		if !found {
			return 0, false
		}

		next := layout.AtomicU64(data, target+layout.FreeNodeNextField)
		xw := next.Load()
		if layout.Marked(xw) {
			continue
		}
		marked := layout.PackRef(layout.RefOffset(xw), layout.RefGen(xw)+1) | layout.RefMark
		if !next.CompareAndSwap(xw, marked) {
			f.stats.retries.Add(1)
			continue
		}
		nsize := uintptr(layout.ReadU64(data, target+layout.FreeNodeSizeField))
		if nsize < layout.FreeNodeSize || uintptr(target)+nsize > f.ar.Size() {
			next.Store(layout.PackRef(layout.RefOffset(xw), layout.RefGen(marked)+1))
			return 0, false
		}
		if !f.casLink(data, predOff, lw, layout.PackRef(layout.RefOffset(xw), layout.RefGen(lw)+1)) {
			next.Store(layout.PackRef(layout.RefOffset(xw), layout.RefGen(marked)+1))
			f.stats.retries.Add(1)
			continue
		}
		f.stats.merges.Add(1)
		return nsize, true
	}
}

func (f *FreeListAllocator) ArenaSize() uintptr { return f.ar.Size() }
func (f *FreeListAllocator) HeapAddr() uintptr  { return f.ar.Base() }

// Strategy reports the configured search strategy.
func (f *FreeListAllocator) Strategy() SearchStrategy { return f.strategy }

func (f *FreeListAllocator) Stats() Stats { return f.stats.snapshot() }
