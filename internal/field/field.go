// Package field implements modular arithmetic over a process-wide prime,
// chosen at start-up and shared by every other package in this module.
//
// Unlike gnark's per-curve fr.Element types, the prime here is a runtime
// value (spec.md allows any odd prime, selected by --prime/config), so
// arithmetic is done with math/big rather than a fixed-width Montgomery
// representation.
package field

import (
	"errors"
	"math/big"
)

// ErrNotInvertible is returned by Inv when gcd(a, p) != 1.
var ErrNotInvertible = errors.New("field: element has no modular inverse")

// ErrDivByZeroStrict is returned by Div when dividing by zero under a
// Config with StrictDivByZero set.
var ErrDivByZeroStrict = errors.New("field: division by zero")

// Config parameterises the field's behaviour around the documented
// "convenient but bug-masking" zero policy (spec.md §9, Open Question).
type Config struct {
	// StrictDivByZero, when true, makes Div on a zero divisor return
	// ErrDivByZeroStrict instead of silently returning zero. Inv takes no
	// Config and always reports a zero input as ErrNotInvertible.
	StrictDivByZero bool
}

// Reduce canonicalises a to the range [0, p).
func Reduce(a *big.Int, p *big.Int) *big.Int {
	r := new(big.Int).Mod(a, p)
	if r.Sign() < 0 {
		r.Add(r, p)
	}
	return r
}

// Add returns (a + b) mod p, in [0, p).
func Add(a, b, p *big.Int) *big.Int {
	r := new(big.Int).Add(a, b)
	return Reduce(r, p)
}

// Sub returns (a - b) mod p, in [0, p).
func Sub(a, b, p *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	return Reduce(r, p)
}

// Mul returns (a * b) mod p, in [0, p).
func Mul(a, b, p *big.Int) *big.Int {
	r := new(big.Int).Mul(a, b)
	return Reduce(r, p)
}

// Pow returns (a ^ e) mod p, in [0, p). A negative e raises the inverse of a
// to -e, and yields 0 when a has no inverse.
func Pow(a, e, p *big.Int) *big.Int {
	base := Reduce(a, p)
	if e.Sign() < 0 {
		// a^-n = (a^-1)^n; fall back through Inv so the zero policy stays
		// consistent with Div.
		inv, err := Inv(base, p)
		if err != nil {
			return big.NewInt(0)
		}
		n := new(big.Int).Neg(e)
		return new(big.Int).Exp(inv, n, p)
	}
	return new(big.Int).Exp(base, e, p)
}

// ExtendedEuclid returns (gcd, x, y) such that a*x + b*y = gcd.
func ExtendedEuclid(a, b *big.Int) (gcd, x, y *big.Int) {
	r0, r1 := new(big.Int).Set(a), new(big.Int).Set(b)
	s0, s1 := big.NewInt(1), big.NewInt(0)
	t0, t1 := big.NewInt(0), big.NewInt(1)

	for r1.Sign() != 0 {
		q := new(big.Int)
		r := new(big.Int)
		q.DivMod(r0, r1, r)
		r0, r1 = r1, r

		newS := new(big.Int).Sub(s0, new(big.Int).Mul(q, s1))
		s0, s1 = s1, newS

		newT := new(big.Int).Sub(t0, new(big.Int).Mul(q, t1))
		t0, t1 = t1, newT
	}
	return r0, s0, t0
}

// Inv returns the modular inverse of a mod p via extended Euclid. It returns
// ErrNotInvertible if gcd(a, p) != 1 (in particular, if a ≡ 0).
func Inv(a, p *big.Int) (*big.Int, error) {
	ra := Reduce(a, p)
	gcd, x, _ := ExtendedEuclid(ra, p)
	if gcd.CmpAbs(big.NewInt(1)) != 0 {
		return nil, ErrNotInvertible
	}
	return Reduce(x, p), nil
}

// Div returns a / b mod p, computed as a * Inv(b). Per spec.md §4.1 this is
// a deliberate policy: division by zero returns zero rather than erroring,
// matching the trace language's semantics (the caller treats the zero as
// "no constraint gained"). Pass a Config with StrictDivByZero to get
// ErrDivByZeroStrict instead (spec.md §9 Open Question).
func Div(a, b, p *big.Int, cfg Config) (*big.Int, error) {
	rb := Reduce(b, p)
	if rb.Sign() == 0 {
		if cfg.StrictDivByZero {
			return nil, ErrDivByZeroStrict
		}
		return big.NewInt(0), nil
	}
	inv, err := Inv(rb, p)
	if err != nil {
		if cfg.StrictDivByZero {
			return nil, err
		}
		return big.NewInt(0), nil
	}
	return Mul(Reduce(a, p), inv, p), nil
}

// IntDiv returns the Euclidean quotient of a by b, reduced into the field.
// Unlike Div this is integer division on the canonical representatives, not
// a field division — it mirrors the trace language's "\" operator.
func IntDiv(a, b, p *big.Int) *big.Int {
	ra, rb := Reduce(a, p), Reduce(b, p)
	if rb.Sign() == 0 {
		return big.NewInt(0)
	}
	q := new(big.Int).Quo(ra, rb)
	return Reduce(q, p)
}

// Mod returns a mod b on the canonical representatives (the trace
// language's "%" operator, distinct from field reduction mod p).
func Mod(a, b, p *big.Int) *big.Int {
	ra, rb := Reduce(a, p), Reduce(b, p)
	if rb.Sign() == 0 {
		return big.NewInt(0)
	}
	r := new(big.Int).Rem(ra, rb)
	return Reduce(r, p)
}

// IsQuadraticResidue reports whether n is a quadratic residue mod p via
// Euler's criterion: n^((p-1)/2) ≡ 1 (mod p). Requires p an odd prime.
func IsQuadraticResidue(n, p *big.Int) bool {
	rn := Reduce(n, p)
	if rn.Sign() == 0 {
		return true
	}
	exp := new(big.Int).Rsh(new(big.Int).Sub(p, big.NewInt(1)), 1)
	return new(big.Int).Exp(rn, exp, p).Cmp(big.NewInt(1)) == 0
}

// TonelliShanks returns r such that r*r ≡ n (mod p), or (nil, false) if n is
// not a quadratic residue mod p. Requires p an odd prime; for n ≡ 0 returns
// (0, true).
func TonelliShanks(n, p *big.Int) (*big.Int, bool) {
	one := big.NewInt(1)
	two := big.NewInt(2)

	nn := Reduce(n, p)
	if nn.Sign() == 0 {
		return big.NewInt(0), true
	}
	if p.Cmp(two) == 0 {
		return new(big.Int).Mod(nn, p), true
	}

	exp := new(big.Int).Rsh(new(big.Int).Sub(p, one), 1)
	if new(big.Int).Exp(nn, exp, p).Cmp(one) != 0 {
		return nil, false
	}

	// Factor p-1 = q * 2^s with q odd.
	q := new(big.Int).Sub(p, one)
	s := 0
	for new(big.Int).And(q, one).Sign() == 0 {
		q.Rsh(q, 1)
		s++
	}

	// Find a quadratic non-residue z.
	z := big.NewInt(2)
	for new(big.Int).Exp(z, exp, p).Cmp(one) == 0 {
		z.Add(z, one)
	}

	m := s
	c := new(big.Int).Exp(z, q, p)
	t := new(big.Int).Exp(nn, q, p)
	rExp := new(big.Int).Rsh(new(big.Int).Add(q, one), 1)
	r := new(big.Int).Exp(nn, rExp, p)

	for t.Cmp(one) != 0 {
		i := 0
		temp := new(big.Int).Set(t)
		for temp.Cmp(one) != 0 {
			temp.Exp(temp, two, p)
			i++
			if i == m {
				return nil, false
			}
		}

		exponent := new(big.Int).Lsh(one, uint(m-i-1))
		b := new(big.Int).Exp(c, exponent, p)

		m = i
		c = new(big.Int).Exp(b, two, p)
		t = Reduce(new(big.Int).Mul(t, c), p)
		r = Reduce(new(big.Int).Mul(r, b), p)
	}
	return r, true
}

// SolveQuadratic returns one root x of c2*x^2 + c1*x + c0 ≡ 0 (mod p), when
// one exists. If c2 is zero the equation is linear (c1*x + c0 = 0).
func SolveQuadratic(c0, c1, c2, p *big.Int, cfg Config) (*big.Int, bool) {
	if c2.Sign() == 0 && c1.Sign() == 0 {
		return nil, false
	}
	if c2.Sign() == 0 {
		neg := new(big.Int).Neg(c0)
		x, err := Div(neg, c1, p, cfg)
		if err != nil {
			return nil, false
		}
		return x, true
	}
	// discriminant = c1^2 - 4*c2*c0
	d := Sub(Mul(c1, c1, p), Mul(big.NewInt(4), Mul(c2, c0, p), p), p)
	root, ok := TonelliShanks(d, p)
	if !ok {
		return nil, false
	}
	numerator := Add(new(big.Int).Neg(c1), root, p)
	denominator := Mul(big.NewInt(2), c2, p)
	x, err := Div(numerator, denominator, p, cfg)
	if err != nil {
		return nil, false
	}
	return x, true
}
