// Package mutation implements the coevolving genetic search (spec.md §4.6):
// a population of trace mutants (genes — sparse maps from flattened-program
// position to a replacement value) coevolves against a population of
// candidate inputs, scored by how little residual error the resulting
// witness leaves in the circuit's declared constraints.
package mutation

import (
	"math/big"
	"math/rand"
	"sort"

	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
	"github.com/zkfuzz-go/zkfuzz/internal/trace"
)

// Strategy names one of the four gene-mutation/initialisation policies.
// Every one of them mutates a position's value, and three of them can also
// touch the *operator* or the step's presence instead of just its operand
// constants.
type Strategy int

const (
	// StrategyConstant only ever replaces a position's value with a fresh
	// random field element.
	StrategyConstant Strategy = iota
	// StrategyOperatorOrConstant replaces a BinOp's operator with a related
	// one, or falls back to a constant replacement when the position isn't
	// a BinOp (or by chance).
	StrategyOperatorOrConstant
	// StrategyOperatorOrAddition either swaps the operator or adds a small
	// random offset on top of the position's own (re-evaluated) value.
	StrategyOperatorOrAddition
	// StrategyOperatorOrDeletion either swaps the operator or deletes the
	// step outright (it becomes a no-op; its target is never bound).
	StrategyOperatorOrDeletion
)

// Gene is an individual's set of trace edits.
type Gene = trace.Gene

func cloneGene(g Gene) Gene {
	next := make(Gene, len(g))
	for k, v := range g {
		next[k] = v
	}
	return next
}

func sortedGeneKeys(g Gene) []int {
	keys := make([]int, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// strategyFromConfig maps spec.md §6's trace_mutation_method string to the
// one Strategy spec.md §4.6.2 says the whole run uses ("one chosen by
// config", not rotated generation-to-generation). Unrecognised or empty
// values fall back to operator-or-const, matching DefaultConfig.
func strategyFromConfig(cfg Config) Strategy {
	switch cfg.TraceMutationMethod {
	case "constant":
		return StrategyConstant
	case "operator_or_addition":
		return StrategyOperatorOrAddition
	case "operator_or_deletion":
		return StrategyOperatorOrDeletion
	case "operator_or_const":
		return StrategyOperatorOrConstant
	default:
		return StrategyOperatorOrConstant
	}
}

// effectiveMaxPoints bounds a gene's edited-position count per spec.md
// §4.6.2/§4.6.5's max_num_mutation_points: unset (<=0) means no cap beyond
// the mutable-position count itself.
func effectiveMaxPoints(cfg Config, available int) int {
	if cfg.MaxNumMutationPoints <= 0 || cfg.MaxNumMutationPoints > available {
		return available
	}
	return cfg.MaxNumMutationPoints
}

// newValueAt builds the strategy-appropriate replacement for position pos
// whose current step is step.
func newValueAt(strategy Strategy, step trace.Step, rng *rand.Rand, p *big.Int, cfg Config) trace.GeneValue {
	bo, isBinOp := step.RHS.(symbolic.BinOp)

	operatorMutationRate := cfg.OperatorMutationRate
	if operatorMutationRate <= 0 {
		operatorMutationRate = 0.5
	}

	trySwapOperator := func() (trace.GeneValue, bool) {
		if !isBinOp {
			return trace.GeneValue{}, false
		}
		related := symbolic.RelatedOperators[bo.Op]
		if len(related) == 0 {
			return trace.GeneValue{}, false
		}
		newOp := related[rng.Intn(len(related))]
		return trace.GeneValue{Value: symbolic.BinOp{Op: newOp, LHS: bo.LHS, RHS: bo.RHS}, Dir: trace.DirWhole}, true
	}

	constantReplacement := func() trace.GeneValue {
		dir := RandomDirection(isBinOp, rng)
		if rng.Float64() < cfg.ZeroDivAttemptProb {
			// Forcing a zero is the one constant most likely to surface a
			// division-by-zero handling bug (spec.md §6's
			// zero_div_attempt_prob).
			return trace.GeneValue{Value: symbolic.ConstInt{V: big.NewInt(0)}, Dir: dir}
		}
		return trace.GeneValue{Value: symbolic.ConstInt{V: RandomFieldValue(rng, p, cfg)}, Dir: dir}
	}

	switch strategy {
	case StrategyConstant:
		return constantReplacement()

	case StrategyOperatorOrConstant:
		if rng.Float64() < operatorMutationRate {
			if gv, ok := trySwapOperator(); ok {
				return gv
			}
		}
		return constantReplacement()

	case StrategyOperatorOrAddition:
		if rng.Float64() < operatorMutationRate {
			if gv, ok := trySwapOperator(); ok {
				return gv
			}
		}
		addProb := cfg.AddRandomConstProb
		if addProb <= 0 {
			addProb = 1 // preserve the old unconditional-addition behaviour when unset
		}
		if rng.Float64() < addProb {
			noise := symbolic.ConstInt{V: RandomFieldValue(rng, p, cfg)}
			return trace.GeneValue{
				Value: symbolic.BinOp{Op: symbolic.OpAdd, LHS: step.RHS, RHS: noise},
				Dir:   trace.DirWhole,
			}
		}
		return constantReplacement()

	case StrategyOperatorOrDeletion:
		if rng.Float64() < operatorMutationRate {
			if gv, ok := trySwapOperator(); ok {
				return gv
			}
		}
		delProb := cfg.StatementDeletionProb
		if delProb <= 0 {
			delProb = 1 // preserve the old unconditional-deletion behaviour when unset
		}
		if rng.Float64() < delProb {
			return trace.GeneValue{Delete: true}
		}
		return constantReplacement()

	default:
		return constantReplacement()
	}
}

// InitGene builds a fresh gene by choosing a subset size uniformly in
// [1, min(|positions|, max_num_mutation_points)] (spec.md §4.6.2) and
// assigning a strategy-appropriate replacement to that many distinct,
// randomly chosen mutable positions.
func InitGene(strategy Strategy, program []trace.Step, positions []int, rng *rand.Rand, p *big.Int, cfg Config) Gene {
	gene := Gene{}
	if len(positions) == 0 {
		return gene
	}
	maxPoints := effectiveMaxPoints(cfg, len(positions))
	size := 1 + rng.Intn(maxPoints)

	shuffled := make([]int, len(positions))
	copy(shuffled, positions)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	for _, pos := range shuffled[:size] {
		gene[pos] = newValueAt(strategy, program[pos], rng, p, cfg)
	}
	return gene
}

// Mutate implements spec.md §4.6.5's evolution-step mutation: with
// probability cfg.MutationRate, resample one of the gene's existing edited
// keys (or, if the gene is empty, a freshly chosen mutable position) using
// the strategy's replacement policy, then with 50% probability either
// insert one more key (capped at max_num_mutation_points) or remove one
// (only if more than one remains).
func Mutate(strategy Strategy, program []trace.Step, positions []int, gene Gene, rng *rand.Rand, p *big.Int, cfg Config) Gene {
	next := cloneGene(gene)
	if len(positions) == 0 {
		return next
	}
	if rng.Float64() >= cfg.MutationRate {
		return next
	}

	var pos int
	if len(next) > 0 {
		keys := sortedGeneKeys(next)
		pos = keys[rng.Intn(len(keys))]
	} else {
		pos = positions[rng.Intn(len(positions))]
	}
	next[pos] = newValueAt(strategy, program[pos], rng, p, cfg)

	maxPoints := effectiveMaxPoints(cfg, len(positions))
	if rng.Float64() < 0.5 {
		if len(next) < maxPoints {
			candidate := positions[rng.Intn(len(positions))]
			if _, exists := next[candidate]; !exists {
				next[candidate] = newValueAt(strategy, program[candidate], rng, p, cfg)
			}
		}
	} else if len(next) > 1 {
		keys := sortedGeneKeys(next)
		delete(next, keys[rng.Intn(len(keys))])
	}
	return next
}

// Crossover recombines two genes by walking a's edited positions, sorted,
// and for each one flipping a fair coin: heads takes a's edit, tails takes
// b's edit at that position if b has one there, else falls back to a's
// (spec.md §4.6.5's "random crossover" — a per-key coin flip over parent₁'s
// keys, not a single split point). Positions b edits that a never touched
// are not inherited at all: parent₁'s own key set is what's walked.
func Crossover(a, b Gene, rng *rand.Rand) Gene {
	if len(a) == 0 {
		return Gene{}
	}
	child := Gene{}
	for _, k := range sortedGeneKeys(a) {
		if rng.Float64() < 0.5 {
			if v, ok := b[k]; ok {
				child[k] = v
				continue
			}
		}
		child[k] = a[k]
	}
	return child
}
