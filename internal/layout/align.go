package layout

// Alignment utilities. Allocators align both their header placement and the
// addresses they return; callers may additionally request any power-of-two
// alignment per allocation.

// Align8 returns n aligned up to the next 8-byte boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
func Align8(n uintptr) uintptr {
	return (n + CellAlignmentMask) &^ uintptr(CellAlignmentMask)
}

// AlignUp returns n aligned up to the next multiple of align.
// align must be a power of two.
func AlignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

// IsPow2 reports whether n is a power of two. Zero is not.
func IsPow2(n uintptr) bool {
	return n != 0 && n&(n-1) == 0
}

// CeilDiv returns n divided by d, rounded up. d must be non-zero.
func CeilDiv(n, d uintptr) uintptr {
	return (n + d - 1) / d
}
