package field

import (
	"fmt"
	"math/big"

	bls12377fr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	bls12381fr "github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	bn254fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Preset names a well-known scalar field, so --prime can take a short name
// instead of a 77-digit decimal literal.
type Preset string

// Recognised presets. BN254 is spec.md §6's default.
const (
	BN254    Preset = "bn254"
	BLS12377 Preset = "bls12-377"
	BLS12381 Preset = "bls12-381"
)

// Modulus returns the scalar-field modulus for a preset, sourced directly
// from gnark-crypto so it can never drift from the linked curve library.
func Modulus(p Preset) (*big.Int, error) {
	switch p {
	case BN254:
		return new(big.Int).Set(bn254fr.Modulus()), nil
	case BLS12377:
		return new(big.Int).Set(bls12377fr.Modulus()), nil
	case BLS12381:
		return new(big.Int).Set(bls12381fr.Modulus()), nil
	default:
		return nil, fmt.Errorf("field: unknown preset %q", p)
	}
}

// ParsePrime resolves --prime: either a preset name or a decimal literal.
// Defaults to BN254 when s is empty, matching spec.md §6.
func ParsePrime(s string) (*big.Int, error) {
	if s == "" {
		return Modulus(BN254)
	}
	if m, err := Modulus(Preset(s)); err == nil {
		return m, nil
	}
	p, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("field: %q is neither a known preset nor a decimal prime", s)
	}
	return p, nil
}
