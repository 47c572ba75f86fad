package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Test_LeakNeverReclaims verifies Free succeeds without making the bytes
// available again.
func Test_LeakNeverReclaims(t *testing.T) {
	ar := newArena(t, 256)
	l, err := NewLeak(ar)
	require.NoError(t, err)

	p1, d1, err := l.Alloc(100, 8)
	require.NoError(t, err)
	require.NoError(t, l.Free(p1, uintptr(len(d1))))

	p2, _, err := l.Alloc(100, 8)
	require.NoError(t, err)
	require.Greater(t, p2, p1, "freed region must not be reused")
	require.Equal(t, uintptr(200), l.Used())

	_, _, err = l.Alloc(100, 8)
	require.ErrorIs(t, err, ErrOutOfMemory)

	st := l.Stats()
	require.Equal(t, int64(2), st.Allocs)
	require.Equal(t, int64(1), st.Frees, "the no-op free is still counted")
	require.Equal(t, int64(0), st.BytesFreed)
}

// Test_LeakAlignment verifies alignment padding is applied.
func Test_LeakAlignment(t *testing.T) {
	ar := newArena(t, 1024)
	l, err := NewLeak(ar)
	require.NoError(t, err)

	_, _, err = l.Alloc(4, 1)
	require.NoError(t, err)
	p, _, err := l.Alloc(4, 32)
	require.NoError(t, err)
	require.Zero(t, p%32)
}
