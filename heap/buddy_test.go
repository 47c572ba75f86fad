package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osmem/heapkit/arena"
)

// Test_BuddySplitAndBlock verifies allocation splits down to the smallest
// block that still fits and hands out disjoint regions.
func Test_BuddySplitAndBlock(t *testing.T) {
	ar := newArena(t, 1024)
	b, err := NewBuddy(ar)
	require.NoError(t, err)

	p1, d1, err := b.Alloc(100, 8)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(d1), 100)
	require.Zero(t, p1%8)

	p2, d2, err := b.Alloc(100, 8)
	require.NoError(t, err)
	requireDisjoint(t, p1, len(d1), p2, len(d2))

	fillCheck(t, d1, 0x55)
	fillCheck(t, d2, 0x66)
	for i := range d1 {
		require.Equal(t, byte(0x55), d1[i], "sibling allocation corrupted the block")
	}
	require.Positive(t, b.Stats().Splits)
}

// Test_BuddyMergeRestoresRoot verifies that freeing every block waterfalls
// merges all the way up, leaving the arena able to serve one maximal block
// again.
func Test_BuddyMergeRestoresRoot(t *testing.T) {
	ar := newArena(t, 1024)
	b, err := NewBuddy(ar)
	require.NoError(t, err)

	p1, d1, err := b.Alloc(100, 8)
	require.NoError(t, err)
	p2, d2, err := b.Alloc(100, 8)
	require.NoError(t, err)

	require.NoError(t, b.Free(p1, uintptr(len(d1))))
	require.NoError(t, b.Free(p2, uintptr(len(d2))))

	st := b.Stats()
	require.Equal(t, st.Splits, st.Merges, "every split should have merged back")

	// Only a fully merged root can serve this.
	p3, d3, err := b.Alloc(900, 8)
	require.NoError(t, err)
	require.Equal(t, ar.Base()+24, p3, "root block payload starts behind the root header")
	require.GreaterOrEqual(t, len(d3), 900)
}

// Test_BuddySpreadsSiblings verifies the left/right hint alternates sides so
// consecutive allocations land in different halves.
func Test_BuddySpreadsSiblings(t *testing.T) {
	ar := newArena(t, 1024)
	b, err := NewBuddy(ar)
	require.NoError(t, err)

	p1, _, err := b.Alloc(100, 8)
	require.NoError(t, err)
	p2, _, err := b.Alloc(100, 8)
	require.NoError(t, err)
	require.True(t, p1 < ar.Base()+512 && p2 >= ar.Base()+512,
		"second allocation should land in the other half")
}

// Test_BuddyDoubleFree verifies freeing an already free block is a no-op.
func Test_BuddyDoubleFree(t *testing.T) {
	ar := newArena(t, 1024)
	b, err := NewBuddy(ar)
	require.NoError(t, err)

	p, d, err := b.Alloc(100, 8)
	require.NoError(t, err)
	require.NoError(t, b.Free(p, uintptr(len(d))))
	require.NoError(t, b.Free(p, uintptr(len(d))))
	require.Equal(t, int64(1), b.Stats().Frees)
}

// Test_BuddyOutOfMemory verifies requests beyond the root block capacity and
// arena exhaustion both fail cleanly.
func Test_BuddyOutOfMemory(t *testing.T) {
	ar := newArena(t, 256)
	b, err := NewBuddy(ar)
	require.NoError(t, err)

	_, _, err = b.Alloc(250, 8)
	require.ErrorIs(t, err, ErrOutOfMemory)

	_, d, err := b.Alloc(200, 8)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(d), 200)
	_, _, err = b.Alloc(200, 8)
	require.ErrorIs(t, err, ErrOutOfMemory)
}

// Test_BuddyConstruction verifies the power-of-two arena requirement.
func Test_BuddyConstruction(t *testing.T) {
	odd, err := arena.New(768)
	require.NoError(t, err)
	defer odd.Close()
	_, err = NewBuddy(odd)
	require.ErrorIs(t, err, ErrArenaSize)

	tiny, err := arena.New(32)
	require.NoError(t, err)
	defer tiny.Close()
	_, err = NewBuddy(tiny)
	require.ErrorIs(t, err, ErrArenaSize)
}
