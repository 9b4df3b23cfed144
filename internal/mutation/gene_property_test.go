package mutation_test

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/zkfuzz-go/zkfuzz/internal/mutation"
	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
	"github.com/zkfuzz-go/zkfuzz/internal/trace"
)

// buildProgramAndPositions constructs an n-step assignment chain where every
// odd-indexed step is IsSafe (immutable) and every even-indexed one is
// ordinary, then returns the flattened program and its mutable set.
func buildProgramAndPositions(n int) ([]trace.Step, []int) {
	steps := make([]symbolic.Value, n)
	for i := 0; i < n; i++ {
		target := sym(string(rune('a' + i%26)))
		steps[i] = symbolic.Assign{
			Target: target,
			RHS:    symbolic.BinOp{Op: symbolic.OpAdd, LHS: symbolic.Int(int64(i)), RHS: symbolic.Int(1)},
			IsSafe: i%2 == 1,
		}
	}
	program, err := trace.Flatten(steps, nil)
	if err != nil {
		panic(err)
	}
	return program, trace.MutablePositions(program)
}

func containsAll(positions []int, gene mutation.Gene) bool {
	set := map[int]struct{}{}
	for _, p := range positions {
		set[p] = struct{}{}
	}
	for k := range gene {
		if _, ok := set[k]; !ok {
			return false
		}
	}
	return true
}

// property 5: every gene produced by initialisation or mutation targets
// only indices in the precomputed mutable set.
func TestGeneEditsStayWithinMutablePositions(t *testing.T) {
	params := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(params)

	properties.Property("InitGene and repeated Mutate never touch an immutable position", prop.ForAll(
		func(seed int64, rounds int) bool {
			program, positions := buildProgramAndPositions(10)
			rng := rand.New(rand.NewSource(seed))
			cfg := mutation.DefaultConfig()

			gene := mutation.InitGene(mutation.StrategyOperatorOrDeletion, program, positions, rng, testPrime, cfg)
			if !containsAll(positions, gene) {
				return false
			}
			for i := 0; i < rounds; i++ {
				gene = mutation.Mutate(mutation.StrategyOperatorOrDeletion, program, positions, gene, rng, testPrime, cfg)
				if !containsAll(positions, gene) {
					return false
				}
			}
			return true
		},
		gen.Int64Range(1, 1_000_000),
		gen.IntRange(0, 30),
	))

	properties.TestingRun(t)
}

func TestMutablePositionsExcludeSafeSteps(t *testing.T) {
	_, positions := buildProgramAndPositions(6)
	require.Equal(t, []int{0, 2, 4}, positions)
}
