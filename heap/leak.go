package heap

import (
	"sync/atomic"

	"github.com/osmem/heapkit/arena"
	"github.com/osmem/heapkit/internal/layout"
)

// LeakAllocator hands out monotonically increasing regions and never reclaims
// anything: Free succeeds and does nothing. It exists for allocations that
// live until shutdown, where the bookkeeping of a real allocator is pure
// overhead.
type LeakAllocator struct {
	ar    *arena.Arena
	next  atomic.Uint64 // packed {offset, gen} bump position
	stats allocatorStats
}

var _ SubAllocator = (*LeakAllocator)(nil)
var _ StatsProvider = (*LeakAllocator)(nil)

// NewLeak builds a leaking allocator over ar.
func NewLeak(ar *arena.Arena) (*LeakAllocator, error) {
	l := &LeakAllocator{ar: ar}
	l.next.Store(layout.PackRef(0, 0))
	return l, nil
}

func (l *LeakAllocator) Alloc(size, align uintptr) (uintptr, []byte, error) {
	if err := checkRequest(size, align); err != nil {
		return 0, nil, err
	}
	data := l.ar.Bytes()
	for {
		word := l.next.Load()
		start := layout.AlignUp(uintptr(layout.RefOffset(word)), align)
		end := start + size
		if end > l.ar.Size() {
			l.stats.failures.Add(1)
			return 0, nil, ErrOutOfMemory
		}
		if !l.next.CompareAndSwap(word, layout.PackRef(uint32(end), layout.RefGen(word)+1)) {
			l.stats.retries.Add(1)
			continue
		}
		l.stats.recordAlloc(size)
		ptr := l.ar.Base() + start
		traceAlloc("leak", size, ptr)
		return ptr, data[start:end:end], nil
	}
}

// Free reclaims nothing; the region stays allocated for the life of the
// arena. The call is still counted and traced.
func (l *LeakAllocator) Free(ptr, size uintptr) error {
	if !l.ar.Contains(ptr, size) {
		return ErrBadRef
	}
	l.stats.frees.Add(1)
	traceFree("leak", size, ptr)
	return nil
}

func (l *LeakAllocator) ArenaSize() uintptr { return l.ar.Size() }
func (l *LeakAllocator) HeapAddr() uintptr  { return l.ar.Base() }

// Used reports the high-water mark in bytes.
func (l *LeakAllocator) Used() uintptr {
	return uintptr(layout.RefOffset(l.next.Load()))
}

func (l *LeakAllocator) Stats() Stats { return l.stats.snapshot() }
