package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Test_NewByKind verifies the factory builds every allocator kind.
func Test_NewByKind(t *testing.T) {
	cases := []Config{
		{Kind: KindBump},
		{Kind: KindLeak},
		{Kind: KindNode, NodeSize: 64},
		{Kind: KindFreeList, Strategy: BestFit},
		{Kind: KindBuddy},
	}
	for _, cfg := range cases {
		t.Run(cfg.Kind.String(), func(t *testing.T) {
			cfg.Arena = newArena(t, 1024)
			a, err := New(cfg)
			require.NoError(t, err)
			require.Equal(t, uintptr(1024), a.ArenaSize())
			require.Equal(t, cfg.Arena.Base(), a.HeapAddr())

			p, d, err := a.Alloc(64, 8)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(d), 64)
			require.NoError(t, a.Free(p, uintptr(len(d))))

			_, ok := a.(StatsProvider)
			require.True(t, ok, "every allocator exposes stats")
		})
	}
}

// Test_NewValidation verifies factory error paths.
func Test_NewValidation(t *testing.T) {
	_, err := New(Config{Kind: KindBump})
	require.Error(t, err, "nil arena must be rejected")

	_, err = New(Config{Kind: Kind(42), Arena: newArena(t, 1024)})
	require.Error(t, err)
}

// Test_ParseKind verifies kind names round-trip.
func Test_ParseKind(t *testing.T) {
	for _, k := range []Kind{KindBump, KindLeak, KindNode, KindFreeList, KindBuddy} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, got)
	}
	_, err := ParseKind("slab")
	require.Error(t, err)
}
