package crypto

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

// ErrHashInit reports a Poseidon parameterization failure. Fatal at startup,
// impossible thereafter.
var ErrHashInit = errors.New("poseidon hasher init")

// Mask keeps the low 250 bits of a hash output. The on-chain verifier embeds
// the 254-bit Poseidon output into a 252-bit felt by masking; omitting it
// yields roots that look correct locally but fail on-chain verification.
var Mask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 250), big.NewInt(1))

// BnPrime is the BN254 scalar field modulus, the field Poseidon operates in.
var BnPrime = fr.Modulus()

// reduceBn maps v into the BN254 scalar field via the canonical 32-byte
// big-endian reinterpretation.
func reduceBn(v *big.Int) *big.Int {
	var e fr.Element
	e.SetBigInt(v)
	return e.BigInt(new(big.Int))
}

// MaskedHash is the accumulator's sole combiner:
// Poseidon_BN254(a, b) AND (2^250 - 1), circomlib arity-2 parameterization.
func MaskedHash(a, b *big.Int) (*big.Int, error) {
	h, err := poseidon.Hash([]*big.Int{reduceBn(a), reduceBn(b)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHashInit, err)
	}
	return h.And(h, Mask), nil
}

// StarknetKeccak derives an event selector: keccak256(name) AND (2^250 - 1).
func StarknetKeccak(name string) *big.Int {
	h := new(big.Int).SetBytes(ethcrypto.Keccak256([]byte(name)))
	return h.And(h, Mask)
}
