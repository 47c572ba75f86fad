package layout

// Packed references.
//
// Every pointer-sized field an allocator CASes — free-list heads and next
// links, buddy children, bump positions — is stored as a single uint64 packing
// a 32-bit arena offset with a 32-bit generation counter. The generation is
// bumped on every successful CAS, so a stale reader that raced across a
// free/reallocate cycle at the same offset can never win a compare-and-swap
// against the recycled value (the classic ABA hazard of reusing header
// addresses).

// NilOffset marks the absence of a referenced header. Offset 0 is a valid
// arena position, so nil needs an out-of-band value; arenas are capped below
// 4GB, making the all-ones offset unreachable.
const NilOffset = ^uint32(0)

// NilRef is a packed reference to nothing, at generation zero.
const NilRef = uint64(NilOffset)

// PackRef packs an arena offset and a generation into one CAS-able word.
func PackRef(off, gen uint32) uint64 {
	return uint64(gen)<<32 | uint64(off)
}

// RefOffset extracts the arena offset half of a packed reference.
func RefOffset(ref uint64) uint32 {
	return uint32(ref)
}

// RefGen extracts the generation half of a packed reference. The topmost bit
// is the claim mark, not part of the counter.
func RefGen(ref uint64) uint32 {
	return uint32(ref>>32) &^ markBit32
}

// RefMark is set on a free node's own next link while a claimer is in the
// middle of unlinking that node. Walkers treat a marked link as contended
// state and restart from a known-good position.
const RefMark = uint64(markBit32) << 32

const markBit32 = uint32(1) << 31

// Marked reports whether a packed reference carries the claim mark.
func Marked(ref uint64) bool {
	return ref&RefMark != 0
}

// Buddy status values, stored in the low byte of a packed state word.
const (
	StatusFree    = 0 // unsplit, unallocated range
	StatusLeft    = 1 // split; search hint points left
	StatusRight   = 2 // split; search hint points right
	StatusBlocked = 3 // leaf in use
	StatusSplit   = 4 // split or merge in progress; node is gated
	StatusDead    = 5 // header retired by a merge of its parent
)

// PackState packs a buddy status and a generation into one CAS-able word.
// The generation occupies the upper 56 bits.
func PackState(status uint8, gen uint64) uint64 {
	return gen<<8 | uint64(status)
}

// StateStatus extracts the status byte of a packed state word.
func StateStatus(state uint64) uint8 {
	return uint8(state)
}

// StateGen extracts the generation of a packed state word.
func StateGen(state uint64) uint64 {
	return state >> 8
}
