package heap

import "sync/atomic"

// allocatorStats holds the live operation counters embedded in every
// allocator. All fields are updated with atomic adds on the hot path.
type allocatorStats struct {
	allocs    atomic.Int64
	frees     atomic.Int64
	bytesOut  atomic.Int64
	bytesBack atomic.Int64
	retries   atomic.Int64
	splits    atomic.Int64
	merges    atomic.Int64
	failures  atomic.Int64
}

// Stats is a point-in-time snapshot of an allocator's counters. Counters are
// read independently, so a snapshot taken during concurrent operations may
// be internally skewed by in-flight updates.
type Stats struct {
	// Allocs and Frees count successful operations.
	Allocs int64
	Frees  int64

	// BytesAllocated and BytesFreed accumulate granted lengths, which may
	// exceed what callers requested.
	BytesAllocated int64
	BytesFreed     int64

	// Retries counts CAS losses that forced an operation to restart.
	Retries int64

	// Splits and Merges count free-list node splits and coalesces, or
	// buddy block splits and merges. Zero for allocators without them.
	Splits int64
	Merges int64

	// Failures counts allocations refused with ErrOutOfMemory.
	Failures int64
}

func (s *allocatorStats) snapshot() Stats {
	return Stats{
		Allocs:         s.allocs.Load(),
		Frees:          s.frees.Load(),
		BytesAllocated: s.bytesOut.Load(),
		BytesFreed:     s.bytesBack.Load(),
		Retries:        s.retries.Load(),
		Splits:         s.splits.Load(),
		Merges:         s.merges.Load(),
		Failures:       s.failures.Load(),
	}
}

func (s *allocatorStats) recordAlloc(granted uintptr) {
	s.allocs.Add(1)
	s.bytesOut.Add(int64(granted))
}

func (s *allocatorStats) recordFree(granted uintptr) {
	s.frees.Add(1)
	s.bytesBack.Add(int64(granted))
}
