package mutation

import (
	"math/big"
	"math/rand"
	"sort"

	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
	"github.com/zkfuzz-go/zkfuzz/internal/trace"
)

// RandomInputs draws a fresh, independent random value for every declared
// input symbol.
func RandomInputs(inputs []symbolic.Symbol, rng *rand.Rand, p *big.Int, cfg Config) []trace.SeedAssignment {
	out := make([]trace.SeedAssignment, len(inputs))
	for i, sym := range inputs {
		out[i] = trace.SeedAssignment{Symbol: sym, Value: symbolic.ConstInt{V: RandomFieldValue(rng, p, cfg)}}
	}
	return out
}

// CoverageScore is anything that can grade how much of the circuit's
// branch structure a candidate input set exercises. internal/coverage's
// Tracker, wired up by the search loop around a full trace.Run, is the
// production implementation; tests can stub it directly.
type CoverageScore func(inputs []trace.SeedAssignment) int

// HillClimbInputs iterates up to cfg.InputGenerationMaxIteration rounds (or
// cfg.HillClimbIterations when that's unset) of candidate generation,
// keeping a candidate only when it strictly improves the coverage score
// (spec.md §4.6.7's "coverage-maximising" input-population updater). Each
// round builds a candidate via §4.6.8's random_crossover against a fresh
// random sample with probability cfg.InputGenerationCrossoverRate, else
// clones the current best; either way it may additionally apply a
// single-point perturbation, gated by
// cfg.InputGenerationMutationRate × cfg.InputGenerationSinglepointMutationRate.
// Unlike RandomInputs this needs a coverage oracle, since the whole point is
// to search for inputs that reach previously-unseen branches rather than
// just resampling uniformly.
func HillClimbInputs(current []trace.SeedAssignment, rng *rand.Rand, p *big.Int, cfg Config, score CoverageScore) []trace.SeedAssignment {
	if len(current) == 0 {
		return current
	}
	best := cloneInputs(current)
	bestScore := score(best)

	iterations := cfg.InputGenerationMaxIteration
	if iterations <= 0 {
		iterations = cfg.HillClimbIterations
	}

	for iter := 0; iter < iterations; iter++ {
		var candidate []trace.SeedAssignment
		if rng.Float64() < cfg.InputGenerationCrossoverRate {
			sample := randomInputsLike(best, rng, p, cfg)
			candidate = InputCrossover(best, sample, rng)
		} else {
			candidate = cloneInputs(best)
		}

		if rng.Float64() < cfg.InputGenerationMutationRate && rng.Float64() < cfg.InputGenerationSinglepointMutationRate {
			idx := rng.Intn(len(candidate))
			candidate[idx].Value = symbolic.ConstInt{V: RandomFieldValue(rng, p, cfg)}
		}

		candidateScore := score(candidate)
		if candidateScore > bestScore {
			best = candidate
			bestScore = candidateScore
		}
	}
	return best
}

// InputCrossover implements spec.md §4.6.8's random_crossover for input
// witnesses: walk a's symbols in sorted-key order and at each one flip a
// fair coin to take a's value or, if b assigns that same symbol, b's value
// instead; a symbol b has that a lacks is never inherited, and a missing
// key defaults to a's value.
func InputCrossover(a, b []trace.SeedAssignment, rng *rand.Rand) []trace.SeedAssignment {
	bVals := make(map[string]symbolic.Value, len(b))
	for _, s := range b {
		bVals[s.Symbol.Key()] = s.Value
	}

	sortedA := cloneInputs(a)
	sort.Slice(sortedA, func(i, j int) bool { return sortedA[i].Symbol.Key() < sortedA[j].Symbol.Key() })

	child := make([]trace.SeedAssignment, len(sortedA))
	for i, s := range sortedA {
		v := s.Value
		if rng.Float64() < 0.5 {
			if bv, ok := bVals[s.Symbol.Key()]; ok {
				v = bv
			}
		}
		child[i] = trace.SeedAssignment{Symbol: s.Symbol, Value: v}
	}
	return child
}

func randomInputsLike(existing []trace.SeedAssignment, rng *rand.Rand, p *big.Int, cfg Config) []trace.SeedAssignment {
	out := make([]trace.SeedAssignment, len(existing))
	for i, s := range existing {
		out[i] = trace.SeedAssignment{Symbol: s.Symbol, Value: symbolic.ConstInt{V: RandomFieldValue(rng, p, cfg)}}
	}
	return out
}

func cloneInputs(in []trace.SeedAssignment) []trace.SeedAssignment {
	out := make([]trace.SeedAssignment, len(in))
	copy(out, in)
	return out
}
