package crypto

import (
	"math/big"
	"testing"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/stretchr/testify/require"
)

func TestMaskedHashMatchesCircomlibVector(t *testing.T) {
	// Poseidon(1, 2) from the circomlib test vectors, with the 250-bit
	// mask applied.
	raw, ok := new(big.Int).SetString(
		"7853200120776062878684798364095072458815029376092732009249414926327459813530", 10)
	require.True(t, ok)
	expected := new(big.Int).And(raw, Mask)

	h, err := MaskedHash(big.NewInt(1), big.NewInt(2))
	require.NoError(t, err)
	require.Zero(t, expected.Cmp(h))
}

func TestMaskedHashBound(t *testing.T) {
	limit := new(big.Int).Lsh(big.NewInt(1), 250)

	inputs := [][2]*big.Int{
		{big.NewInt(0), big.NewInt(0)},
		{big.NewInt(1), big.NewInt(2)},
		{new(big.Int).Sub(BnPrime, big.NewInt(1)), big.NewInt(7)},
		{new(big.Int).Lsh(big.NewInt(1), 251), new(big.Int).Lsh(big.NewInt(1), 200)},
	}
	for _, in := range inputs {
		h, err := MaskedHash(in[0], in[1])
		require.NoError(t, err)
		require.Negative(t, h.Cmp(limit), "hash of (%s, %s) exceeds 2^250", in[0], in[1])
	}
}

func TestMaskedHashDeterministic(t *testing.T) {
	a, b := big.NewInt(1234), big.NewInt(5678)

	h1, err := MaskedHash(a, b)
	require.NoError(t, err)
	h2, err := MaskedHash(a, b)
	require.NoError(t, err)
	require.Zero(t, h1.Cmp(h2))

	// Order matters.
	h3, err := MaskedHash(b, a)
	require.NoError(t, err)
	require.NotZero(t, h1.Cmp(h3))
}

func TestMaskedHashReducesInputs(t *testing.T) {
	// Inputs congruent mod P_BN hash identically.
	a := big.NewInt(42)
	shifted := new(big.Int).Add(a, BnPrime)

	h1, err := MaskedHash(a, big.NewInt(1))
	require.NoError(t, err)
	h2, err := MaskedHash(shifted, big.NewInt(1))
	require.NoError(t, err)
	require.Zero(t, h1.Cmp(h2))
}

func TestMaskedHashAgreesWithRawPoseidon(t *testing.T) {
	a, b := big.NewInt(3), big.NewInt(9)

	raw, err := poseidon.Hash([]*big.Int{a, b})
	require.NoError(t, err)
	expected := new(big.Int).And(raw, Mask)

	h, err := MaskedHash(a, b)
	require.NoError(t, err)
	require.Zero(t, expected.Cmp(h))
}

func TestStarknetKeccak(t *testing.T) {
	limit := new(big.Int).Lsh(big.NewInt(1), 250)

	dep := StarknetKeccak("Deposit")
	require.Positive(t, dep.Sign())
	require.Negative(t, dep.Cmp(limit))

	// Distinct names yield distinct selectors; same name is stable.
	require.NotZero(t, dep.Cmp(StarknetKeccak("Swap")))
	require.Zero(t, dep.Cmp(StarknetKeccak("Deposit")))
}
