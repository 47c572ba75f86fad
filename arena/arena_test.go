package arena

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/osmem/heapkit/internal/layout"
)

func Test_New_Basic(t *testing.T) {
	a, err := New(64 * 1024)
	require.NoError(t, err)
	defer a.Close()

	require.Equal(t, uintptr(64*1024), a.Size())
	require.Len(t, a.Bytes(), 64*1024)
	require.NotZero(t, a.Base())

	// Base must be at least 8-aligned for in-arena atomics.
	require.Zero(t, a.Base()%layout.CellAlignment)
}

func Test_New_RejectsBadSizes(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)

	_, err = New(1001) // not a multiple of 8
	require.Error(t, err)
}

func Test_Contains(t *testing.T) {
	a, err := New(4096)
	require.NoError(t, err)
	defer a.Close()

	base := a.Base()
	require.True(t, a.Contains(base, 0))
	require.True(t, a.Contains(base, 4096))
	require.True(t, a.Contains(base+100, 100))
	require.False(t, a.Contains(base-1, 1))
	require.False(t, a.Contains(base+4096, 1))
	require.False(t, a.Contains(base+4000, 200))
}

func Test_Offset_RoundTrip(t *testing.T) {
	a, err := New(4096)
	require.NoError(t, err)
	defer a.Close()

	for _, off := range []uint32{0, 8, 1024, 4088} {
		require.Equal(t, off, a.Offset(a.Base()+uintptr(off)))
	}
}

func Test_Close_Idempotent(t *testing.T) {
	a, err := New(4096)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}

// Test_AlignSlice verifies the fallback backing path can place an arbitrary
// heap buffer on an address boundary. Allocators align offsets, so the base
// address must carry the alignment guarantee itself.
func Test_AlignSlice(t *testing.T) {
	for _, align := range []uintptr{8, 64, 4096} {
		buf := make([]byte, 256+align-1)
		s := alignSlice(buf, 256, align)
		require.Len(t, s, 256)
		require.Zero(t, uintptr(unsafe.Pointer(&s[0]))%align,
			"base must sit on a %d-byte boundary", align)
	}
}

func Test_Bytes_Writable(t *testing.T) {
	a, err := New(4096)
	require.NoError(t, err)
	defer a.Close()

	data := a.Bytes()
	for i := range data {
		data[i] = 0x5A
	}
	require.Equal(t, byte(0x5A), data[4095])
}
