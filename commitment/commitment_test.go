package commitment

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SunsetLabs-Game/zylith-asp/crypto"
	"github.com/SunsetLabs-Game/zylith-asp/types"
)

const (
	testSecret    = "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef"
	testNullifier = "0xfedcba0987654321fedcba0987654321fedcba0987654321fedcba0987654321"
)

func TestNote(t *testing.T) {
	amount, _ := new(big.Int).SetString("1000000000000000000", 10) // 1 token, 18 decimals

	c, err := Note(testSecret, testNullifier, amount)
	require.NoError(t, err)
	require.Positive(t, c.Sign())
	require.Negative(t, c.Cmp(new(big.Int).Lsh(big.NewInt(1), 250)))

	// Deterministic, and sensitive to each input.
	again, err := Note(testSecret, testNullifier, amount)
	require.NoError(t, err)
	require.Zero(t, c.Cmp(again))

	other, err := Note(testSecret, testNullifier, big.NewInt(1))
	require.NoError(t, err)
	require.NotZero(t, c.Cmp(other))
}

func TestNoteDecimalInputsEquivalent(t *testing.T) {
	// Hex and decimal renderings of the same felt commit identically.
	s, err := types.ParseFelt(testSecret)
	require.NoError(t, err)
	n, err := types.ParseFelt(testNullifier)
	require.NoError(t, err)

	fromHex, err := Note(testSecret, testNullifier, big.NewInt(10))
	require.NoError(t, err)
	fromDec, err := Note(s.String(), n.String(), big.NewInt(10))
	require.NoError(t, err)
	require.Zero(t, fromHex.Cmp(fromDec))
}

func TestNoteTransportRoundTrip(t *testing.T) {
	c, err := Note(testSecret, testNullifier, big.NewInt(42))
	require.NoError(t, err)

	parsed, err := types.ParseFelt(types.HexFelt(c))
	require.NoError(t, err)
	require.Zero(t, c.Cmp(parsed))
}

func TestNoteRejectsBadInput(t *testing.T) {
	_, err := Note("0xzz", testNullifier, big.NewInt(1))
	require.Error(t, err)

	var parseErr *types.ParseFeltError
	require.ErrorAs(t, err, &parseErr)
}

func TestPositionNegativeTicksCancel(t *testing.T) {
	// tickLower + tickUpper = 0 either way, so the commitments agree.
	a, err := Position("0x1", -1000, 1000)
	require.NoError(t, err)
	b, err := Position("0x1", 0, 0)
	require.NoError(t, err)
	require.Zero(t, a.Cmp(b))
}

func TestPositionNegativeSum(t *testing.T) {
	// A negative sum embeds as P_BN - |sum|, not as a wrapped unsigned.
	c, err := Position("0x1", -2000, 500)
	require.NoError(t, err)

	s, err := types.ParseFelt("0x1")
	require.NoError(t, err)
	expected, err := crypto.MaskedHash(s, new(big.Int).Sub(crypto.BnPrime, big.NewInt(1500)))
	require.NoError(t, err)
	require.Zero(t, c.Cmp(expected))
}

func TestNewNote(t *testing.T) {
	secret, nullifier, err := NewNote()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(secret, "0x"))
	require.True(t, strings.HasPrefix(nullifier, "0x"))
	require.Len(t, secret, 66)
	require.Len(t, nullifier, 66)
	require.NotEqual(t, secret, nullifier)

	// Generated notes are usable as commitment inputs.
	_, err = Note(secret, nullifier, big.NewInt(1))
	require.NoError(t, err)
}
