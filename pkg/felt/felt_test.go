package felt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHexRoundTrip(t *testing.T) {
	f := FromUint64(0xdeadbeef)
	parsed, err := FromHex(f.Hex())
	require.NoError(t, err)
	require.True(t, f.Equal(parsed))
}

func TestDivMod(t *testing.T) {
	h := FromUint64(103)
	m := FromUint64(10)
	q, r := h.DivMod(m)
	require.Equal(t, uint64(10), q.Uint64())
	require.Equal(t, uint64(3), r.Uint64())
}

func TestDivModPanicsOnZeroModulus(t *testing.T) {
	require.Panics(t, func() {
		FromUint64(1).DivMod(Zero())
	})
}

func TestHashDeterministic(t *testing.T) {
	a := Hash(FromUint64(1000), FromUint64(1), FromUint64(0xdeadbeef))
	b := Hash(FromUint64(1000), FromUint64(1), FromUint64(0xdeadbeef))
	require.True(t, a.Equal(b))

	c := Hash(FromUint64(1001), FromUint64(1), FromUint64(0xdeadbeef))
	require.False(t, a.Equal(c))
}

func TestEqualAndZero(t *testing.T) {
	require.True(t, Zero().IsZero())
	require.False(t, FromUint64(1).IsZero())
	require.True(t, FromUint64(5).Equal(FromUint64(5)))
}
