package heap

import "fmt"

// SearchStrategy selects how FreeListAllocator walks its free list when
// looking for a node to serve an allocation.
type SearchStrategy int

const (
	// FirstFit takes the first node large enough. Fastest, fragments most.
	FirstFit SearchStrategy = iota

	// BestFit scans the whole list and takes the tightest fit, minimizing
	// the leftover remainder.
	BestFit

	// WorstFit scans the whole list and takes the largest node, keeping
	// remainders big enough to stay useful.
	WorstFit

	// NextFit behaves like FirstFit but resumes each search where the
	// previous one left off, wrapping to the head at the end of the list.
	NextFit
)

func (s SearchStrategy) String() string {
	switch s {
	case FirstFit:
		return "first-fit"
	case BestFit:
		return "best-fit"
	case WorstFit:
		return "worst-fit"
	case NextFit:
		return "next-fit"
	default:
		return fmt.Sprintf("SearchStrategy(%d)", int(s))
	}
}
