// Package commitment derives note and position commitments. The formulas must
// agree with both the circuit that generates proofs and the contract that
// verifies them; any drift silently invalidates every proof this service hands
// out.
package commitment

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/SunsetLabs-Game/zylith-asp/crypto"
	"github.com/SunsetLabs-Game/zylith-asp/types"
)

// Note derives a note commitment binding (secret, nullifier, amount):
// MaskedHash(MaskedHash(secret, nullifier), amount). Secret and nullifier are
// parsed as felts (hex or decimal), amount is a u128 embedded directly.
func Note(secret, nullifier string, amount *big.Int) (*big.Int, error) {
	s, err := types.ParseFelt(secret)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	n, err := types.ParseFelt(nullifier)
	if err != nil {
		return nil, fmt.Errorf("nullifier: %w", err)
	}

	inner, err := crypto.MaskedHash(s, n)
	if err != nil {
		return nil, err
	}
	return crypto.MaskedHash(inner, amount)
}

// Position derives an LP position commitment:
// MaskedHash(secret, tickLower + tickUpper). The tick sum is computed in
// signed 32-bit arithmetic first (it may be negative) and then embedded into
// the BN254 field as P - |sum| for negatives.
func Position(secret string, tickLower, tickUpper int32) (*big.Int, error) {
	s, err := types.ParseFelt(secret)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}

	tickSum := tickLower + tickUpper
	return crypto.MaskedHash(s, types.FeltFromSigned(int64(tickSum), crypto.BnPrime))
}

// NewNote generates a fresh (secret, nullifier) pair as 32 random bytes each,
// hex encoded. Values are reduced to the field on first use by ParseFelt.
func NewNote() (secret, nullifier string, err error) {
	buf := make([]byte, 64)
	if _, err = rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("read randomness: %w", err)
	}
	return "0x" + hex.EncodeToString(buf[:32]), "0x" + hex.EncodeToString(buf[32:]), nil
}
