package types

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFeltHex(t *testing.T) {
	v, err := ParseFelt("0x1a")
	require.NoError(t, err)
	require.Equal(t, int64(26), v.Int64())
}

func TestParseFeltDecimal(t *testing.T) {
	v, err := ParseFelt("1000")
	require.NoError(t, err)
	require.Equal(t, int64(1000), v.Int64())
}

func TestParseFeltReducesLargeValues(t *testing.T) {
	over := new(big.Int).Add(FeltPrime, big.NewInt(5))
	v, err := ParseFelt(over.String())
	require.NoError(t, err)
	require.Equal(t, int64(5), v.Int64())

	// Prime itself reduces to zero.
	v, err = ParseFelt("0x" + FeltPrime.Text(16))
	require.NoError(t, err)
	require.Zero(t, v.Sign())
}

func TestParseFeltMalformed(t *testing.T) {
	for _, in := range []string{"", "0x", "xyz", "0xzz", "12g4"} {
		_, err := ParseFelt(in)
		require.Error(t, err, "input %q", in)

		var parseErr *ParseFeltError
		require.True(t, errors.As(err, &parseErr), "input %q", in)
		require.Equal(t, in, parseErr.Value)
	}
}

func TestHexFeltRoundTrip(t *testing.T) {
	cases := []string{"0x0", "0x1", "0xdeadbeef", "0x7ffffffffffffffff"}
	for _, in := range cases {
		v, err := ParseFelt(in)
		require.NoError(t, err)
		require.Equal(t, in, HexFelt(v))

		// The canonical form round-trips through another parse.
		again, err := ParseFelt(HexFelt(v))
		require.NoError(t, err)
		require.Zero(t, v.Cmp(again))
	}
}

func TestHexFeltLowercaseUnpadded(t *testing.T) {
	v, err := ParseFelt("0x00ABCDEF")
	require.NoError(t, err)
	require.Equal(t, "0xabcdef", HexFelt(v))
}

func TestFeltFromSigned(t *testing.T) {
	p := big.NewInt(97)

	require.Equal(t, int64(5), FeltFromSigned(5, p).Int64())
	require.Equal(t, int64(0), FeltFromSigned(0, p).Int64())

	// -3 maps to p - 3.
	require.Equal(t, int64(94), FeltFromSigned(-3, p).Int64())

	// Round-trip under field addition: (p - 3) + 3 = 0 mod p.
	sum := new(big.Int).Add(FeltFromSigned(-3, p), big.NewInt(3))
	require.Zero(t, sum.Mod(sum, p).Sign())
}
