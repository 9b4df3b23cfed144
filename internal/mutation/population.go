package mutation

import (
	"math/big"
	"math/rand"
	"sort"

	"github.com/zkfuzz-go/zkfuzz/internal/trace"
)

// Individual is one trace mutant: its edits and its last-computed fitness.
type Individual struct {
	Gene  Gene
	Score float64
}

// Population is an ordered set of individuals; order is insertion order,
// not fitness order, so callers needing a ranking should Sort a copy.
type Population []Individual

// Sort returns a copy of p ordered best-first (highest Score first).
func (p Population) Sort() Population {
	sorted := make(Population, len(p))
	copy(sorted, p)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	return sorted
}

// Best returns the highest-scoring individual. Panics on an empty
// population — callers always seed at least one individual before calling.
func (p Population) Best() Individual {
	best := p[0]
	for _, ind := range p[1:] {
		if ind.Score > best.Score {
			best = ind
		}
	}
	return best
}

// RouletteSelect picks one individual weighted by fitness above the
// population's minimum score (so a population with a uniformly negative
// spread still produces proportional pressure rather than degenerating to
// uniform selection). Only a population whose scores all tie falls back to
// a uniform weight of 1 per individual. An empty population panics (it
// reads p[0]), so callers must not pass one.
func RouletteSelect(p Population, rng *rand.Rand) int {
	if len(p) == 1 {
		return 0
	}
	minScore := p[0].Score
	for _, ind := range p[1:] {
		if ind.Score < minScore {
			minScore = ind.Score
		}
	}

	weights := make([]float64, len(p))
	var total float64
	for i, ind := range p {
		w := ind.Score - minScore
		weights[i] = w
		total += w
	}
	if total <= 0 {
		// Every individual ties at the population minimum: no proportional
		// signal at all, so fall back to a uniform weight of one each
		// (spec.md §4.6.4), not per-individual whenever one happens to tie
		// the minimum.
		for i := range weights {
			weights[i] = 1
		}
		total = float64(len(p))
	}

	target := rng.Float64() * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if target <= cumulative {
			return i
		}
	}
	return 0
}

// Evolve produces the next generation from p by selecting two parents via
// roulette, crossing them over with probability cfg.CrossoverRate (else
// cloning the fitter parent), then mutating the child, for every one of
// len(pop) slots; finally cfg.NumEliminatedIndividuals of the resulting
// children's worst performers are replaced by the previous generation's
// elite survivors (spec.md §4.6.5). When NumEliminatedIndividuals is unset,
// cfg.EliteFraction of the population size is used instead.
func Evolve(strategy Strategy, program []trace.Step, positions []int, prime *big.Int, pop Population, rng *rand.Rand, cfg Config, scoreFn func(Gene) float64) Population {
	if len(pop) == 0 {
		return pop
	}
	ranked := pop.Sort()

	next := make(Population, 0, len(pop))
	for len(next) < len(pop) {
		a := ranked[RouletteSelect(ranked, rng)]
		b := ranked[RouletteSelect(ranked, rng)]

		var childGene Gene
		if rng.Float64() < cfg.CrossoverRate {
			childGene = Crossover(a.Gene, b.Gene, rng)
		} else if a.Score >= b.Score {
			childGene = cloneGene(a.Gene)
		} else {
			childGene = cloneGene(b.Gene)
		}

		childGene = Mutate(strategy, program, positions, childGene, rng, prime, cfg)
		next = append(next, Individual{Gene: childGene, Score: scoreFn(childGene)})
	}

	eliminated := cfg.NumEliminatedIndividuals
	if eliminated <= 0 {
		eliminated = int(float64(len(pop)) * cfg.EliteFraction)
	}
	if eliminated < 1 {
		eliminated = 1
	}
	if eliminated > len(pop) {
		eliminated = len(pop)
	}

	next = next.Sort()
	for i := 0; i < eliminated; i++ {
		next[len(next)-1-i] = ranked[i]
	}
	return next
}
