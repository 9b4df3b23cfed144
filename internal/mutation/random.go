package mutation

import (
	"math/big"
	"math/rand"

	"github.com/zkfuzz-go/zkfuzz/internal/field"
	"github.com/zkfuzz-go/zkfuzz/internal/trace"
)

// RandomFieldValue draws a candidate replacement constant using spec.md
// §4.6.6's discrete zone distribution: cfg.RandomValueRanges lists the
// zones (by default a small-integer neighbourhood of zero, a uniform draw
// over the whole field, and a neighbourhood of p-1, so the sampler explores
// edge cases — identity, generic coverage, and modular wrap-around — in
// roughly equal measure) and cfg.RandomValueProbs weights which zone gets
// picked. BinaryMode (or a BinaryModeProb coin flip) overrides the zone
// draw entirely and restricts to {0,1} or, with BinaryModeSearchLevel>0,
// small binary-weight constants.
func RandomFieldValue(rng *rand.Rand, p *big.Int, cfg Config) *big.Int {
	if cfg.BinaryMode || (cfg.BinaryModeProb > 0 && rng.Float64() < cfg.BinaryModeProb) {
		return binaryWeightValue(rng, cfg.BinaryModeSearchLevel)
	}

	ranges, probs := cfg.RandomValueRanges, cfg.RandomValueProbs
	if len(ranges) == 0 || len(ranges) != len(probs) {
		ranges = DefaultConfig().RandomValueRanges
		probs = DefaultConfig().RandomValueProbs
	}
	zone := ranges[drawDiscrete(rng, probs)]
	return zone.sample(rng, p)
}

// sample draws one field element from r, reduced mod p.
func (r RandomValueRange) sample(rng *rand.Rand, p *big.Int) *big.Int {
	if r.Uniform {
		return new(big.Int).Rand(rng, p)
	}
	lo, hi := r.Lo, r.Hi
	if hi < lo {
		lo, hi = hi, lo
	}
	span := hi - lo
	if span < 0 {
		span = 0
	}
	v := lo + rng.Int63n(span+1)
	return field.Reduce(big.NewInt(v), p)
}

// drawDiscrete picks an index into probs by its own weight, renormalising
// against their sum rather than assuming it's exactly 1 (a config file
// author's probabilities need not be perfectly precise).
func drawDiscrete(rng *rand.Rand, probs []float64) int {
	var total float64
	for _, w := range probs {
		total += w
	}
	if total <= 0 {
		return rng.Intn(len(probs))
	}
	target := rng.Float64() * total
	var cumulative float64
	for i, w := range probs {
		cumulative += w
		if target <= cumulative {
			return i
		}
	}
	return len(probs) - 1
}

// binaryWeightValue draws 0/1 when level<=0, or else uniformly among the
// level+1 values 0, 2^0, ..., 2^(level-1) (spec.md §6's binary_mode_search_level
// "extends this to small binary-weight constants").
func binaryWeightValue(rng *rand.Rand, level int) *big.Int {
	if level <= 0 {
		return big.NewInt(rng.Int63n(2))
	}
	k := rng.Intn(level + 1)
	if k == 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Lsh(big.NewInt(1), uint(k-1))
}

// RandomDirection picks a direction valid for the given RHS shape: Whole is
// always legal, Left/Right only apply when the RHS is a binary operation.
func RandomDirection(isBinOp bool, rng *rand.Rand) trace.Direction {
	if !isBinOp {
		return trace.DirWhole
	}
	switch rng.Intn(3) {
	case 0:
		return trace.DirLeft
	case 1:
		return trace.DirRight
	default:
		return trace.DirWhole
	}
}
