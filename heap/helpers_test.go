package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osmem/heapkit/arena"
)

// newArena builds a test arena and ties its lifetime to the test.
func newArena(t *testing.T, size uintptr) *arena.Arena {
	t.Helper()
	ar, err := arena.New(size)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ar.Close() })
	return ar
}

// fillCheck writes a marker pattern into payload and verifies it reads back.
func fillCheck(t *testing.T, payload []byte, marker byte) {
	t.Helper()
	for i := range payload {
		payload[i] = marker
	}
	for i := range payload {
		require.Equal(t, marker, payload[i], "payload byte %d corrupted", i)
	}
}

// requireDisjoint fails if the two granted regions overlap.
func requireDisjoint(t *testing.T, p1 uintptr, n1 int, p2 uintptr, n2 int) {
	t.Helper()
	require.True(t, p1+uintptr(n1) <= p2 || p2+uintptr(n2) <= p1,
		"regions [%#x,%#x) and [%#x,%#x) overlap", p1, p1+uintptr(n1), p2, p2+uintptr(n2))
}
