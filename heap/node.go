package heap

import (
	"fmt"
	"sync/atomic"

	"github.com/osmem/heapkit/arena"
	"github.com/osmem/heapkit/internal/layout"
)

// NodeAllocator divides the arena into fixed-size slots and tracks each slot
// with one atomic flag. Requests larger than a slot claim a run of adjacent
// slots. The slot table lives outside the arena, so the arena itself carries
// no headers and every byte of a slot is payload.
//
// The scan walks slots from the top of the arena down, claiming each slot of
// a candidate run with its own CAS. Losing any CAS mid-run rolls the run back
// and restarts the whole scan.
type NodeAllocator struct {
	ar       *arena.Arena
	nodeSize uintptr
	slots    []atomic.Bool // true while the slot is claimed
	stats    allocatorStats
}

var _ SubAllocator = (*NodeAllocator)(nil)
var _ StatsProvider = (*NodeAllocator)(nil)

// NewNode builds a node allocator over ar with nodeSize-byte slots. nodeSize
// must be a nonzero multiple of 8 that divides the arena size evenly.
func NewNode(ar *arena.Arena, nodeSize uintptr) (*NodeAllocator, error) {
	if nodeSize == 0 || nodeSize%layout.CellAlignment != 0 {
		return nil, fmt.Errorf("heap: node size %d: %w", nodeSize, ErrBadAlign)
	}
	if ar.Size()%nodeSize != 0 {
		return nil, fmt.Errorf("heap: arena size %d not a multiple of node size %d: %w",
			ar.Size(), nodeSize, ErrArenaSize)
	}
	return &NodeAllocator{
		ar:       ar,
		nodeSize: nodeSize,
		slots:    make([]atomic.Bool, ar.Size()/nodeSize),
	}, nil
}

func (n *NodeAllocator) Alloc(size, align uintptr) (uintptr, []byte, error) {
	if err := checkRequest(size, align); err != nil {
		return 0, nil, err
	}
	run := int(layout.CeilDiv(size, n.nodeSize))
	if run > len(n.slots) {
		n.stats.failures.Add(1)
		return 0, nil, ErrOutOfMemory
	}
	data := n.ar.Bytes()
scan:
	for {
		for i := len(n.slots) - run; i >= 0; i-- {
			start := uintptr(i) * n.nodeSize
			if start%align != 0 {
				continue
			}
			if !n.runFree(i, run) {
				continue
			}
			for j := i; j < i+run; j++ {
				if !n.slots[j].CompareAndSwap(false, true) {
					for k := j - 1; k >= i; k-- {
						n.slots[k].Store(false)
					}
					n.stats.retries.Add(1)
					continue scan
				}
			}
			granted := uintptr(run) * n.nodeSize
			n.stats.recordAlloc(granted)
			ptr := n.ar.Base() + start
			traceAlloc("node", size, ptr)
			return ptr, data[start : start+granted : start+granted], nil
		}
		n.stats.failures.Add(1)
		return 0, nil, ErrOutOfMemory
	}
}

// runFree reports whether every slot in [i, i+run) looked free. A cheap
// pre-check only; the claim loop re-establishes it with CAS.
func (n *NodeAllocator) runFree(i, run int) bool {
	for j := i; j < i+run; j++ {
		if n.slots[j].Load() {
			return false
		}
	}
	return true
}

// Free releases the slot run holding the region. The release CAS is
// idempotent, so freeing an already free run is harmless.
func (n *NodeAllocator) Free(ptr, size uintptr) error {
	if !n.ar.Contains(ptr, size) {
		return ErrBadRef
	}
	off := uintptr(n.ar.Offset(ptr))
	if off%n.nodeSize != 0 {
		return ErrBadRef
	}
	first := int(off / n.nodeSize)
	run := int(layout.CeilDiv(size, n.nodeSize))
	if first+run > len(n.slots) {
		return ErrBadRef
	}
	for j := first; j < first+run; j++ {
		n.slots[j].CompareAndSwap(true, false)
	}
	n.stats.recordFree(uintptr(run) * n.nodeSize)
	traceFree("node", size, ptr)
	return nil
}

func (n *NodeAllocator) ArenaSize() uintptr { return n.ar.Size() }
func (n *NodeAllocator) HeapAddr() uintptr  { return n.ar.Base() }

// NodeSize reports the configured slot width in bytes.
func (n *NodeAllocator) NodeSize() uintptr { return n.nodeSize }

func (n *NodeAllocator) Stats() Stats { return n.stats.snapshot() }
