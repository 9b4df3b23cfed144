package mutation

import (
	"math/big"

	"github.com/zkfuzz-go/zkfuzz/internal/field"
	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
)

// ResidualError sums, over every side constraint, a graded distance from
// "satisfied": zero for a constraint that folds to true, a fixed penalty
// for one that folds to false, and the field-distance-from-zero for one
// that folds to a residual ConstInt (the common shape for constraints
// expressed as "lhs - rhs === 0"). This is the quantity the search
// minimises; fitness is Score of it, the negated bit length (spec.md §4.6).
func ResidualError(constraints []symbolic.Value, bindings symbolic.Binding, p *big.Int, cfg field.Config) *big.Int {
	total := new(big.Int)
	const boolPenalty = 1_000_000

	for _, c := range constraints {
		v, err := symbolic.Eval(c, bindings, p, cfg)
		if err != nil {
			total.Add(total, big.NewInt(boolPenalty))
			continue
		}
		switch t := v.(type) {
		case symbolic.ConstBool:
			if !t.V {
				total.Add(total, big.NewInt(boolPenalty))
			}
		case symbolic.ConstInt:
			total.Add(total, canonicalDistanceFromZero(t.V, p))
		default:
			// Still symbolic (an unbound input leaked through): treat as
			// maximally unsatisfied, since nothing anchors its truth.
			total.Add(total, big.NewInt(boolPenalty))
		}
	}
	return total
}

// canonicalDistanceFromZero returns min(v, p-v) on the canonical
// representative of v, so a value that wrapped around to just below p
// (e.g. -1 reduced to p-1) still scores as "nearly zero".
func canonicalDistanceFromZero(v, p *big.Int) *big.Int {
	r := field.Reduce(v, p)
	complement := new(big.Int).Sub(p, r)
	if complement.Cmp(r) < 0 {
		return complement
	}
	return r
}

// Score converts a residual error into a GA fitness value: higher is
// better, 0 is a fully-satisfying witness. bitLen is used instead of the
// exact magnitude because p-scale residuals routinely span hundreds of
// bits, which would blow out float64 precision long before two individuals
// could be meaningfully compared — what matters for selection pressure is
// "how many more orders of magnitude off" one individual is, not the exact
// remainder.
func Score(residual *big.Int) float64 {
	if residual.Sign() == 0 {
		return 0
	}
	return -float64(residual.BitLen())
}
