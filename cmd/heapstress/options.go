package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/osmem/heapkit/arena"
	"github.com/osmem/heapkit/heap"
)

// allocFlags holds the allocator selection flags shared by subcommands.
type allocFlags struct {
	kind      string
	arenaSize string
	strategy  string
	nodeSize  uint64
}

func (f *allocFlags) build() (*arena.Arena, heap.SubAllocator, error) {
	kind, err := heap.ParseKind(f.kind)
	if err != nil {
		return nil, nil, err
	}
	size, err := parseSize(f.arenaSize)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid arena size %q: %w", f.arenaSize, err)
	}
	strategy, err := parseStrategy(f.strategy)
	if err != nil {
		return nil, nil, err
	}
	ar, err := arena.New(size)
	if err != nil {
		return nil, nil, err
	}
	a, err := heap.New(heap.Config{
		Kind:     kind,
		Arena:    ar,
		Strategy: strategy,
		NodeSize: uintptr(f.nodeSize),
	})
	if err != nil {
		_ = ar.Close()
		return nil, nil, err
	}
	return ar, a, nil
}

// parseSize reads a byte count with an optional K, M or G suffix.
func parseSize(s string) (uintptr, error) {
	mult := uintptr(1)
	upper := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.HasSuffix(upper, "G"):
		mult, upper = 1<<30, strings.TrimSuffix(upper, "G")
	case strings.HasSuffix(upper, "M"):
		mult, upper = 1<<20, strings.TrimSuffix(upper, "M")
	case strings.HasSuffix(upper, "K"):
		mult, upper = 1<<10, strings.TrimSuffix(upper, "K")
	}
	n, err := strconv.ParseUint(upper, 10, 32)
	if err != nil {
		return 0, err
	}
	return uintptr(n) * mult, nil
}

func parseStrategy(s string) (heap.SearchStrategy, error) {
	switch s {
	case "first":
		return heap.FirstFit, nil
	case "best":
		return heap.BestFit, nil
	case "worst":
		return heap.WorstFit, nil
	case "next":
		return heap.NextFit, nil
	default:
		return 0, fmt.Errorf("unknown search strategy %q (first, best, worst, next)", s)
	}
}
