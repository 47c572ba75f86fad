package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Align8(t *testing.T) {
	cases := []struct {
		in, want uintptr
	}{
		{0, 0},
		{1, 8},
		{7, 8},
		{8, 8},
		{9, 16},
		{16, 16},
		{1023, 1024},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Align8(c.in), "Align8(%d)", c.in)
	}
}

func Test_AlignUp(t *testing.T) {
	require.Equal(t, uintptr(0), AlignUp(0, 16))
	require.Equal(t, uintptr(16), AlignUp(1, 16))
	require.Equal(t, uintptr(16), AlignUp(16, 16))
	require.Equal(t, uintptr(4096), AlignUp(4001, 4096))
	// align=1 is the identity
	require.Equal(t, uintptr(37), AlignUp(37, 1))
}

func Test_IsPow2(t *testing.T) {
	for _, n := range []uintptr{1, 2, 4, 8, 1024, 1 << 30} {
		require.True(t, IsPow2(n), "IsPow2(%d)", n)
	}
	for _, n := range []uintptr{0, 3, 6, 7, 12, 1000} {
		require.False(t, IsPow2(n), "IsPow2(%d)", n)
	}
}

func Test_CeilDiv(t *testing.T) {
	require.Equal(t, uintptr(0), CeilDiv(0, 16))
	require.Equal(t, uintptr(1), CeilDiv(1, 16))
	require.Equal(t, uintptr(1), CeilDiv(16, 16))
	require.Equal(t, uintptr(2), CeilDiv(17, 16))
}

func Test_PackRef_RoundTrip(t *testing.T) {
	ref := PackRef(0xDEADBEE8, 42)
	require.Equal(t, uint32(0xDEADBEE8), RefOffset(ref))
	require.Equal(t, uint32(42), RefGen(ref))

	require.Equal(t, NilOffset, RefOffset(NilRef))
	require.Equal(t, uint32(0), RefGen(NilRef))
}

func Test_RefMark(t *testing.T) {
	ref := PackRef(1024, 7) | RefMark
	require.True(t, Marked(ref))
	require.Equal(t, uint32(1024), RefOffset(ref))
	require.Equal(t, uint32(7), RefGen(ref), "mark bit must not leak into the generation")
	require.False(t, Marked(PackRef(1024, 7)))
}

func Test_PackState_RoundTrip(t *testing.T) {
	for _, st := range []uint8{StatusFree, StatusLeft, StatusRight, StatusBlocked} {
		w := PackState(st, 99)
		require.Equal(t, st, StateStatus(w))
		require.Equal(t, uint64(99), StateGen(w))
	}
}

func Test_AtomicU64_View(t *testing.T) {
	buf := make([]byte, 64)

	WriteU64(buf, 8, 0x1122334455667788)
	require.Equal(t, uint64(0x1122334455667788), ReadU64(buf, 8))

	// CAS through the view must be visible through plain reads of the slice.
	ok := AtomicU64(buf, 8).CompareAndSwap(0x1122334455667788, 7)
	require.True(t, ok)
	require.Equal(t, uint64(7), ReadU64(buf, 8))

	// Losing CAS leaves the value untouched.
	ok = AtomicU64(buf, 8).CompareAndSwap(8, 9)
	require.False(t, ok)
	require.Equal(t, uint64(7), ReadU64(buf, 8))
}
