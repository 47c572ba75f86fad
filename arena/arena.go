// Package arena provides the fixed backing memory that the heap allocators
// carve up. An arena is a contiguous byte range whose bounds never change:
// it is mapped once at construction and only released as a whole.
package arena

import (
	"fmt"
	"unsafe"

	"github.com/osmem/heapkit/internal/layout"
)

// Arena is a fixed [base, base+size) byte range, backed by an anonymous
// private mapping on unix platforms or a plain byte slice elsewhere.
type Arena struct {
	data   []byte
	mapped bool
}

// New creates an arena of exactly size bytes.
//
// size must be a positive multiple of 8 and below layout.MaxArenaSize so
// that every in-arena offset fits a packed 32-bit reference.
func New(size uintptr) (*Arena, error) {
	if size == 0 || size%layout.CellAlignment != 0 {
		return nil, fmt.Errorf("arena: size must be a positive multiple of %d, got %d",
			layout.CellAlignment, size)
	}
	if size > layout.MaxArenaSize {
		return nil, fmt.Errorf("arena: size %d exceeds maximum %d", size, uintptr(layout.MaxArenaSize))
	}

	data, mapped, err := mapMemory(int(size))
	if err != nil {
		return nil, fmt.Errorf("arena: backing allocation failed: %w", err)
	}

	return &Arena{data: data, mapped: mapped}, nil
}

// Bytes returns the arena's backing bytes. The slice header is stable for
// the arena's lifetime; allocators index into it with their own offsets.
func (a *Arena) Bytes() []byte { return a.data }

// Size returns the arena size in bytes.
func (a *Arena) Size() uintptr { return uintptr(len(a.data)) }

// Base returns the address of the arena's first byte. Addresses handed out
// by allocators are Base() plus an in-arena offset.
func (a *Arena) Base() uintptr {
	return uintptr(unsafe.Pointer(&a.data[0]))
}

// Contains reports whether [ptr, ptr+size) lies entirely inside the arena.
func (a *Arena) Contains(ptr, size uintptr) bool {
	base := a.Base()
	return ptr >= base && ptr+size >= ptr && ptr+size <= base+a.Size()
}

// Offset translates an absolute address into an in-arena offset.
// ptr must satisfy Contains(ptr, 0).
func (a *Arena) Offset(ptr uintptr) uint32 {
	return uint32(ptr - a.Base())
}

// Close releases the backing mapping. The arena, and every address handed
// out from it, is invalid afterwards.
func (a *Arena) Close() error {
	if a.data == nil {
		return nil
	}
	err := unmapMemory(a.data, a.mapped)
	a.data = nil
	return err
}
