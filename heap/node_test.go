package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Test_NodeSlots verifies single-slot allocation fills the table and refuses
// further requests.
func Test_NodeSlots(t *testing.T) {
	ar := newArena(t, 64)
	n, err := NewNode(ar, 16)
	require.NoError(t, err)

	ptrs := make([]uintptr, 0, 4)
	for i := 0; i < 4; i++ {
		p, d, err := n.Alloc(16, 8)
		require.NoError(t, err)
		require.Len(t, d, 16)
		ptrs = append(ptrs, p)
	}
	_, _, err = n.Alloc(16, 8)
	require.ErrorIs(t, err, ErrOutOfMemory)

	// Top-down scan hands out the highest slot first.
	require.Equal(t, ar.Base()+48, ptrs[0])
	require.Equal(t, ar.Base(), ptrs[3])

	require.NoError(t, n.Free(ptrs[1], 16))
	p, _, err := n.Alloc(16, 8)
	require.NoError(t, err)
	require.Equal(t, ptrs[1], p)
}

// Test_NodeSpanningRun verifies requests wider than one slot claim adjacent
// slots and are granted whole slots.
func Test_NodeSpanningRun(t *testing.T) {
	ar := newArena(t, 128)
	n, err := NewNode(ar, 16)
	require.NoError(t, err)

	p, d, err := n.Alloc(40, 8)
	require.NoError(t, err)
	require.Len(t, d, 48, "40 bytes should round up to three 16-byte slots")

	// Only five slots remain; a four-slot run still fits, a six-slot one
	// cannot even on an empty table.
	_, _, err = n.Alloc(64, 8)
	require.NoError(t, err)
	_, _, err = n.Alloc(96, 8)
	require.ErrorIs(t, err, ErrOutOfMemory)

	require.NoError(t, n.Free(p, uintptr(len(d))))
}

// Test_NodeFreeIdempotent verifies double free of a run is harmless.
func Test_NodeFreeIdempotent(t *testing.T) {
	ar := newArena(t, 64)
	n, err := NewNode(ar, 16)
	require.NoError(t, err)

	p, d, err := n.Alloc(32, 8)
	require.NoError(t, err)
	require.NoError(t, n.Free(p, uintptr(len(d))))
	require.NoError(t, n.Free(p, uintptr(len(d))))

	// All four slots usable again.
	for i := 0; i < 4; i++ {
		_, _, err := n.Alloc(16, 8)
		require.NoError(t, err)
	}
}

// Test_NodeConfig verifies slot-size validation and misaligned frees.
func Test_NodeConfig(t *testing.T) {
	ar := newArena(t, 64)

	_, err := NewNode(ar, 0)
	require.ErrorIs(t, err, ErrBadAlign)
	_, err = NewNode(ar, 12)
	require.ErrorIs(t, err, ErrBadAlign)
	_, err = NewNode(ar, 48)
	require.ErrorIs(t, err, ErrArenaSize)

	n, err := NewNode(ar, 16)
	require.NoError(t, err)
	require.Equal(t, uintptr(16), n.NodeSize())
	require.ErrorIs(t, n.Free(ar.Base()+4, 16), ErrBadRef)
}
