package field_test

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/zkfuzz-go/zkfuzz/internal/field"
)

var testPrime = big.NewInt(21888242871839275222246405745257275088548364400416034343698204186575808495617)

// property 1: for all a, b, p with gcd(b, p) = 1, mod_div(a, b, p) * b ≡ a (mod p).
func TestDivInverseProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(params)

	properties.Property("div-then-mul round-trips", prop.ForAll(
		func(a int64, b int64) bool {
			if b == 0 {
				b = 1
			}
			ba := big.NewInt(a)
			bb := big.NewInt(b)
			q, err := field.Div(ba, bb, testPrime, field.Config{})
			require.NoError(t, err)
			got := field.Mul(q, bb, testPrime)
			want := field.Reduce(ba, testPrime)
			return got.Cmp(want) == 0
		},
		gen.Int64Range(-1_000_000, 1_000_000),
		gen.Int64Range(-1_000_000, 1_000_000),
	))

	properties.TestingRun(t)
}

func TestDivByZeroPolicy(t *testing.T) {
	r, err := field.Div(big.NewInt(5), big.NewInt(0), testPrime, field.Config{})
	require.NoError(t, err)
	require.Equal(t, int64(0), r.Int64())

	_, err = field.Div(big.NewInt(5), big.NewInt(0), testPrime, field.Config{StrictDivByZero: true})
	require.ErrorIs(t, err, field.ErrDivByZeroStrict)
}

// property 2: tonelli_shanks(n, p) returns Some(r) iff n is a quadratic
// residue, and then r*r ≡ n (mod p).
func TestTonelliShanksProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(params)

	properties.Property("tonelli-shanks matches Euler's criterion", prop.ForAll(
		func(n int64) bool {
			bn := big.NewInt(n)
			r, ok := field.TonelliShanks(bn, testPrime)
			isResidue := field.IsQuadraticResidue(bn, testPrime)
			if ok != isResidue {
				return false
			}
			if !ok {
				return true
			}
			sq := field.Mul(r, r, testPrime)
			return sq.Cmp(field.Reduce(bn, testPrime)) == 0
		},
		gen.Int64Range(0, 10000),
	))

	properties.TestingRun(t)
}

func TestTonelliShanksKnownValue(t *testing.T) {
	p := big.NewInt(41)
	n := big.NewInt(5)
	r, ok := field.TonelliShanks(n, p)
	require.True(t, ok)
	sq := new(big.Int).Mod(new(big.Int).Mul(r, r), p)
	require.Equal(t, int64(5), sq.Int64())
}

func TestSolveQuadratic(t *testing.T) {
	// x^2 - 5x + 6 = 0 => roots 2, 3 mod a small prime.
	p := big.NewInt(101)
	x, ok := field.SolveQuadratic(big.NewInt(6), big.NewInt(-5), big.NewInt(1), p, field.Config{})
	require.True(t, ok)
	zero := field.Add(field.Mul(x, x, p), field.Add(field.Mul(big.NewInt(-5), x, p), big.NewInt(6), p), p)
	require.Equal(t, int64(0), zero.Int64())
}

func TestParsePrimeDefaultsToBN254(t *testing.T) {
	p, err := field.ParsePrime("")
	require.NoError(t, err)
	bn254, err := field.Modulus(field.BN254)
	require.NoError(t, err)
	require.Equal(t, 0, p.Cmp(bn254))
}
