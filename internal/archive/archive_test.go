package archive_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz-go/zkfuzz/internal/archive"
	"github.com/zkfuzz-go/zkfuzz/internal/field"
	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
)

var testPrime = big.NewInt(101)

func sym(name string) symbolic.Symbol { return symbolic.NewSymbol(nil, name) }

func TestRegisterAndResolveTemplate(t *testing.T) {
	inner := &archive.Template{
		Name:    "double",
		Params:  []string{"x"},
		Inputs:  []symbolic.Symbol{sym("x")},
		Outputs: []symbolic.Symbol{sym("y")},
		Body: []symbolic.Value{
			symbolic.Assign{Target: sym("y"), RHS: symbolic.BinOp{Op: symbolic.OpMul, LHS: symbolic.Var{Name: sym("x")}, RHS: symbolic.Int(2)}},
		},
	}

	a := archive.NewProgramArchive(symbolic.Call{ID: "double", Args: []symbolic.Value{symbolic.Int(5)}})
	a.AddTemplate(inner)

	got, ok := a.Template("double")
	require.True(t, ok)
	require.Equal(t, inner, got)

	lib := a.Library()
	steps, err := lib.Steps(symbolic.Call{ID: "double"})
	require.NoError(t, err)
	require.Equal(t, inner.Body, steps)
	require.Equal(t, 1, lib.CallCount("double"))

	_, err = lib.Steps(symbolic.Call{ID: "missing"})
	require.Error(t, err)
}

func TestExpandOutputsScalarPassesThrough(t *testing.T) {
	tpl := &archive.Template{
		Outputs: []symbolic.Symbol{sym("out")},
	}
	expanded, err := archive.ExpandOutputs(tpl, testPrime, field.Config{})
	require.NoError(t, err)
	require.Len(t, expanded, 1)
}

func TestExpandOutputsArrayIndexesEachElement(t *testing.T) {
	tpl := &archive.Template{
		Outputs:    []symbolic.Symbol{sym("out")},
		Dimensions: map[string]symbolic.Value{"out": symbolic.Int(3)},
	}
	expanded, err := archive.ExpandOutputs(tpl, testPrime, field.Config{})
	require.NoError(t, err)
	require.Len(t, expanded, 3)
	for i, s := range expanded {
		require.Equal(t, sym("out").Indexed(symbolic.Int(int64(i))).Key(), s.Key())
	}
}

func TestCheckCompatibleRejectsMajorMismatch(t *testing.T) {
	a := archive.NewProgramArchive(nil)
	require.NoError(t, archive.CheckCompatible(a, 1))
	require.Error(t, archive.CheckCompatible(a, 2))
}
