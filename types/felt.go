package types

import (
	"fmt"
	"math/big"
	"strings"
)

// FeltPrime is the 252-bit prime of the host chain: 2^251 + 17*2^192 + 1.
// Every felt handled by this service is reduced modulo this value.
var FeltPrime, _ = new(big.Int).SetString(
	"800000000000011000000000000000000000000000000000000000000000001", 16)

// ParseFeltError reports a value that could not be parsed as a felt.
type ParseFeltError struct {
	Value string
}

func (e *ParseFeltError) Error() string {
	return fmt.Sprintf("parse felt %q", e.Value)
}

// ParseFelt parses a felt from its string form. A "0x" prefix selects hex,
// anything else is read as decimal. Values above the modulus are silently
// reduced; the empty string and malformed digits fail with ParseFeltError.
func ParseFelt(s string) (*big.Int, error) {
	str := strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		str = str[2:]
		base = 16
	}
	if str == "" {
		return nil, &ParseFeltError{Value: s}
	}

	v, ok := new(big.Int).SetString(str, base)
	if !ok {
		return nil, &ParseFeltError{Value: s}
	}
	return v.Mod(v, FeltPrime), nil
}

// HexFelt renders v in the canonical transport form: lowercase hex, no
// zero-padding, "0x" prefix. HexFelt and ParseFelt round-trip.
func HexFelt(v *big.Int) string {
	return "0x" + v.Text(16)
}

// FeltFromSigned embeds a signed integer into the field with modulus p.
// Negative values map to p - |v|, matching the circuit's convention.
func FeltFromSigned(v int64, p *big.Int) *big.Int {
	if v >= 0 {
		return big.NewInt(v)
	}
	return new(big.Int).Sub(p, big.NewInt(-v))
}
