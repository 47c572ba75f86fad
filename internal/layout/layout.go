// Package layout defines the on-arena header layouts shared by the heap
// allocators, plus the alignment, byte-codec and packed-reference helpers
// they are built from.
//
// Every allocator stores its bookkeeping inside the arena it manages, directly
// in front of the bytes it hands out. The layouts here are fixed: changing a
// size or field offset changes the meaning of every arena built with it.
package layout

const (
	// CellAlignment is the minimum alignment of every in-arena header and of
	// every address an allocator hands out. All header offsets are multiples
	// of this, which also keeps them safe for 64-bit atomic access.
	CellAlignment = 8

	// CellAlignmentMask is CellAlignment - 1, for align-up bit twiddling.
	CellAlignmentMask = CellAlignment - 1

	// MaxArenaSize caps an arena at 4GB - 8 so that any in-arena offset fits
	// in 32 bits. Packed references rely on this (see PackRef).
	MaxArenaSize = 1<<32 - CellAlignment
)

// FreeNodeHeader: a free range in the free-list allocator.
//
//	+0  size  uint64  range size in bytes, header included
//	+8  next  uint64  packed reference to the next free range
const (
	FreeNodeSize       = 16
	FreeNodeSizeField  = 0
	FreeNodeNextField  = 8
	FreeNodeMinPayload = 8 // a split remainder smaller than this is absorbed
)

// BuddyHeader: one node of the buddy allocator's in-arena binary tree.
//
//	+0   left   uint64  packed reference to the left child header
//	+8   right  uint64  packed reference to the right child header
//	+16  state  uint64  packed status word (see PackState)
const (
	BuddyHeaderSize  = 24
	BuddyLeftField   = 0
	BuddyRightField  = 8
	BuddyStateField  = 16
)

// BumpHole: marker written into a freed bump-allocator slot.
//
//	+0  size  uint64  size of the freed region in bytes
//	+8  prev  uint64  bump position recorded at free time
const (
	BumpHoleSize      = 16
	BumpHoleSizeField = 0
	BumpHolePrevField = 8
)
