package mutation_test

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz-go/zkfuzz/internal/field"
	"github.com/zkfuzz-go/zkfuzz/internal/mutation"
	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
	"github.com/zkfuzz-go/zkfuzz/internal/trace"
	"github.com/zkfuzz-go/zkfuzz/internal/verify"
)

var testPrime = big.NewInt(101)

func sym(name string) symbolic.Symbol { return symbolic.NewSymbol(nil, name) }

func TestRandomFieldValueRespectsBinaryMode(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cfg := mutation.DefaultConfig()
	cfg.BinaryMode = true
	for i := 0; i < 50; i++ {
		v := mutation.RandomFieldValue(rng, testPrime, cfg)
		require.True(t, v.Cmp(big.NewInt(0)) == 0 || v.Cmp(big.NewInt(1)) == 0)
	}
}

func TestMutateAddsOrRemovesOnePosition(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cfg := mutation.DefaultConfig()
	cfg.MutationRate = 1.0 // always mutate; from an empty gene that edits one position

	y := sym("y")
	program := []trace.Step{{Kind: trace.StepAssign, Target: y, RHS: symbolic.BinOp{Op: symbolic.OpAdd, LHS: symbolic.Int(1), RHS: symbolic.Int(2)}}}
	positions := trace.MutablePositions(program)
	require.Equal(t, []int{0}, positions)

	gene := mutation.Mutate(mutation.StrategyConstant, program, positions, mutation.Gene{}, rng, testPrime, cfg)
	require.Len(t, gene, 1)
}

func TestCrossoverProducesSubsetOfParentEdits(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := mutation.Gene{0: trace.GeneValue{Value: symbolic.Int(1), Dir: trace.DirWhole}}
	b := mutation.Gene{5: trace.GeneValue{Value: symbolic.Int(2), Dir: trace.DirWhole}}

	child := mutation.Crossover(a, b, rng)
	for pos := range child {
		require.True(t, pos == 0 || pos == 5)
	}
}

func TestRouletteSelectFavoursHigherScore(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pop := mutation.Population{
		{Score: -100},
		{Score: -1},
	}
	counts := map[int]int{}
	for i := 0; i < 500; i++ {
		counts[mutation.RouletteSelect(pop, rng)]++
	}
	require.Greater(t, counts[1], counts[0])
}

// property 6: selection with a constant fitness vector yields a uniform
// distribution over the population.
func TestRouletteSelectIsUniformOverConstantFitness(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	const n = 5
	pop := make(mutation.Population, n)
	for i := range pop {
		pop[i] = mutation.Individual{Score: -7}
	}

	const trials = 20000
	counts := make([]int, n)
	for i := 0; i < trials; i++ {
		counts[mutation.RouletteSelect(pop, rng)]++
	}

	want := float64(trials) / float64(n)
	for i, c := range counts {
		// Loose tolerance: this is a randomized-uniformity smoke check, not
		// a statistical test with a fixed significance level.
		require.InDeltaf(t, want, float64(c), want*0.25, "index %d got %d selections, want ~%.0f", i, c, want)
	}
}

func TestResidualErrorZeroWhenAllConstraintsHold(t *testing.T) {
	x := sym("x")
	bindings := symbolic.Binding{}
	bindings.Bind(x, symbolic.Int(5))
	constraints := []symbolic.Value{
		symbolic.BinOp{Op: symbolic.OpEq, LHS: symbolic.Var{Name: x}, RHS: symbolic.Int(5)},
	}
	residual := mutation.ResidualError(constraints, bindings, testPrime, field.Config{})
	require.Equal(t, 0, residual.Sign())
	require.Equal(t, float64(0), mutation.Score(residual))
}

// TestSearchFindsUnderConstrainedIsZero mirrors the canonical IsZero-style
// under-constrained circuit: the trace computes out = (in == 0), but the
// only declared constraint checks in*out == 0. For a nonzero `in` that
// constraint pins out to 0 (no zero divisors in a prime field), so only
// when the search's current population input happens to land on in=0 does
// a dishonest out=1 become a second satisfying witness — reachable, but not
// on every seed within a bounded generation budget, so this asserts no
// verdict: it checks that the search completes without error and logs the
// verdict it reaches; the next
// test below pins down NonDeterministic specifically against a circuit
// where the counterexample is reachable regardless of which input the
// search happens to pick.
func TestSearchFindsUnderConstrainedIsZero(t *testing.T) {
	in, out := sym("in"), sym("out")
	body := []trace.Step{
		{Kind: trace.StepAssign, Target: out, RHS: symbolic.BinOp{Op: symbolic.OpEq, LHS: symbolic.Var{Name: in}, RHS: symbolic.Int(0)}},
	}
	constraint := symbolic.BinOp{
		Op:  symbolic.OpEq,
		LHS: symbolic.BinOp{Op: symbolic.OpMul, LHS: symbolic.Var{Name: in}, RHS: symbolic.Var{Name: out}},
		RHS: symbolic.Int(0),
	}

	cfg := mutation.DefaultConfig()
	cfg.Seed = 99
	cfg.PopulationSize = 32
	cfg.MaxGenerations = 50
	cfg.InputUpdateInterval = 5

	searcher := &mutation.Searcher{
		Circuit: mutation.Circuit{
			Body:            body,
			Inputs:          []symbolic.Symbol{in},
			Outputs:         []symbolic.Symbol{out},
			SideConstraints: []symbolic.Value{constraint},
		},
		Prime:    testPrime,
		FieldCfg: field.Config{},
		Config:   cfg,
	}

	outcome, err := searcher.Run()
	require.NoError(t, err)
	t.Logf("verdict: %s, detail: %s", outcome.Verdict, outcome.Detail)
}

// TestSearchFindsNonDeterministicWhenOutputIsUnconstrained exercises the
// NonDeterministic verdict end-to-end through the search loop: out is
// computed but never appears in any side constraint, so every value a
// mutant assigns to it still satisfies every constraint — the honest
// reference and a mutant disagreeing on out are guaranteed to surface as
// soon as any individual's gene touches out's position, regardless of which
// random input the search is currently using.
func TestSearchFindsNonDeterministicWhenOutputIsUnconstrained(t *testing.T) {
	in, out := sym("in"), sym("out")
	body := []trace.Step{
		{Kind: trace.StepAssign, Target: out, RHS: symbolic.Var{Name: in}},
	}
	// A tautology that never touches out: the only declared constraint
	// holds for every witness, leaving out completely free.
	constraint := symbolic.BinOp{Op: symbolic.OpEq, LHS: symbolic.Var{Name: in}, RHS: symbolic.Var{Name: in}}

	cfg := mutation.DefaultConfig()
	cfg.Seed = 7
	cfg.PopulationSize = 32
	cfg.MaxGenerations = 20
	cfg.MutationRate = 0.9
	cfg.InputUpdateInterval = 0

	searcher := &mutation.Searcher{
		Circuit: mutation.Circuit{
			Body:            body,
			Inputs:          []symbolic.Symbol{in},
			Outputs:         []symbolic.Symbol{out},
			SideConstraints: []symbolic.Value{constraint},
		},
		Prime:    testPrime,
		FieldCfg: field.Config{},
		Config:   cfg,
	}

	outcome, err := searcher.Run()
	require.NoError(t, err)
	require.Equal(t, verify.UnderConstrainedNonDeterministic, outcome.Verdict, "detail: %s", outcome.Detail)
}
