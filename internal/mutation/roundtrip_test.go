package mutation_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz-go/zkfuzz/internal/field"
	"github.com/zkfuzz-go/zkfuzz/internal/mutation"
	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
	"github.com/zkfuzz-go/zkfuzz/internal/trace"
	"github.com/zkfuzz-go/zkfuzz/internal/verify"
)

// property 7: any counterexample returned by the search, when fed back
// into verification independently of the search loop, reproduces the same
// high-level verdict category (well-constrained vs. a vulnerability).
func TestCounterexampleRoundTripsThroughVerification(t *testing.T) {
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
	cfg.Seed = 4242
	cfg.PopulationSize = 32
	cfg.MaxGenerations = 100
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
	if outcome.Verdict == verify.WellConstrained {
		t.Skip("search exhausted its budget without a counterexample for this seed")
	}

	reference := runWitness(t, body, outcome.Inputs, nil)
	candidate := runWitness(t, body, outcome.Inputs, outcome.Gene)
	result := classifyLikeSearcher(reference, candidate, outcome.Gene, []symbolic.Symbol{in}, []symbolic.Symbol{out})

	require.Equal(t, outcome.Verdict.IsUnderConstrained(), result.Verdict.IsUnderConstrained())
	require.Equal(t, outcome.Verdict == verify.OverConstrained, result.Verdict == verify.OverConstrained)
}

// classifyLikeSearcher mirrors Searcher.classifyFitness's caller-side gating
// (spec.md §4.4 steps 1-2) so this round trip reconstructs a verdict the same
// way the search loop itself would, rather than calling verify.Classify
// directly on a witness it was never meant to handle (a failed trace or a
// constraint-violating candidate).
func classifyLikeSearcher(reference, candidate verify.Witness, gene mutation.Gene, inputs, outputs []symbolic.Symbol) verify.Result {
	if candidate.Failed {
		if candidate.SideConstraintsOK {
			return verify.Result{Verdict: verify.UnderConstrainedDeterministic}
		}
		return verify.Result{Verdict: verify.WellConstrained}
	}
	if !candidate.SideConstraintsOK {
		if len(gene) == 0 {
			return verify.Result{Verdict: verify.OverConstrained}
		}
		return verify.Result{Verdict: verify.WellConstrained}
	}
	return verify.Classify(reference, candidate, inputs, outputs)
}

func runWitness(t *testing.T, body []trace.Step, inputs []trace.SeedAssignment, gene mutation.Gene) verify.Witness {
	t.Helper()
	seeded := trace.Seed(inputs, body)
	st, err := trace.Run(seeded, gene, testPrime, field.Config{}, nil)
	require.NoError(t, err)
	ok, err := verify.EvaluateSideConstraints([]symbolic.Value{
		symbolic.BinOp{
			Op:  symbolic.OpEq,
			LHS: symbolic.BinOp{Op: symbolic.OpMul, LHS: symbolic.Var{Name: sym("in")}, RHS: symbolic.Var{Name: sym("out")}},
			RHS: symbolic.Int(0),
		},
	}, st.Bindings(), func(v symbolic.Value, b symbolic.Binding) (symbolic.Value, error) {
		return symbolic.Eval(v, b, testPrime, field.Config{})
	})
	require.NoError(t, err)
	return verify.Witness{
		Bindings:          st.Bindings(),
		Failed:            st.Failed(),
		FailureReason:     st.FailureReason(),
		SideConstraintsOK: ok,
	}
}
