package bruteforce_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz-go/zkfuzz/internal/bruteforce"
	"github.com/zkfuzz-go/zkfuzz/internal/field"
	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
	"github.com/zkfuzz-go/zkfuzz/internal/trace"
	"github.com/zkfuzz-go/zkfuzz/internal/verify"
)

var testPrime = big.NewInt(101)

func sym(name string) symbolic.Symbol { return symbolic.NewSymbol(nil, name) }

// A well-constrained circuit: out := in * in, constraint out == in*in
// (tautological by construction) plus out == 1 only when in == 1 or
// in == 100 (== -1 mod 101); quick mode covers exactly the interesting
// values {0, 1, p-1}, so this must report well-constrained for all of them.
func TestSearchWellConstrainedSquare(t *testing.T) {
	in, out := sym("in"), sym("out")
	body := []trace.Step{
		{Kind: trace.StepAssign, Target: out, RHS: symbolic.BinOp{Op: symbolic.OpMul, LHS: symbolic.Var{Name: in}, RHS: symbolic.Var{Name: in}}},
	}
	constraint := symbolic.BinOp{
		Op:  symbolic.OpEq,
		LHS: symbolic.Var{Name: out},
		RHS: symbolic.BinOp{Op: symbolic.OpMul, LHS: symbolic.Var{Name: in}, RHS: symbolic.Var{Name: in}},
	}

	c := bruteforce.Circuit{
		Body:            body,
		Inputs:          []symbolic.Symbol{in},
		Outputs:         []symbolic.Symbol{out},
		SideConstraints: []symbolic.Value{constraint},
	}
	opts := bruteforce.Options{
		Mode:            bruteforce.Quick,
		ReferenceInputs: []trace.SeedAssignment{{Symbol: in, Value: symbolic.Int(1)}},
	}

	res, _, err := bruteforce.Search(c, testPrime, field.Config{}, opts)
	require.NoError(t, err)
	require.Equal(t, verify.WellConstrained, res.Verdict)
}

func TestSearchFindsOverConstrainedContradiction(t *testing.T) {
	in := sym("in")
	body := []trace.Step{}
	// A constraint that's never satisfiable for the declared reference
	// input (in == 1) itself: in == 2.
	constraint := symbolic.BinOp{Op: symbolic.OpEq, LHS: symbolic.Var{Name: in}, RHS: symbolic.Int(2)}

	c := bruteforce.Circuit{
		Body:            body,
		Inputs:          []symbolic.Symbol{in},
		Outputs:         nil,
		SideConstraints: []symbolic.Value{constraint},
	}
	opts := bruteforce.Options{
		Mode:            bruteforce.Quick,
		ReferenceInputs: []trace.SeedAssignment{{Symbol: in, Value: symbolic.Int(1)}},
	}

	res, _, err := bruteforce.Search(c, testPrime, field.Config{}, opts)
	require.NoError(t, err)
	require.Equal(t, verify.OverConstrained, res.Verdict)
}
