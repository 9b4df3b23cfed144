package verify_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
	"github.com/zkfuzz-go/zkfuzz/internal/verify"
)

func sym(name string) symbolic.Symbol { return symbolic.NewSymbol(nil, name) }

// Classify assumes its caller already confirmed candidate.Failed is false
// and candidate.SideConstraintsOK is true (spec.md §4.4 steps 1-2); every
// test here builds candidate that way.

func TestClassifyWellConstrainedWhenCandidateAgrees(t *testing.T) {
	in, out := sym("in"), sym("out")
	reference := verify.Witness{
		Bindings:          symbolic.Binding{in.Key(): symbolic.Int(3), out.Key(): symbolic.Int(9)},
		SideConstraintsOK: true,
	}
	candidate := verify.Witness{
		Bindings:          symbolic.Binding{in.Key(): symbolic.Int(3), out.Key(): symbolic.Int(9)},
		SideConstraintsOK: true,
	}
	res := verify.Classify(reference, candidate, []symbolic.Symbol{in}, []symbolic.Symbol{out})
	require.Equal(t, verify.WellConstrained, res.Verdict)
}

func TestClassifyOverConstrainedWhenReferenceViolatesConstraints(t *testing.T) {
	candidate := verify.Witness{SideConstraintsOK: true}
	reference := verify.Witness{SideConstraintsOK: false}
	res := verify.Classify(reference, candidate, nil, nil)
	require.Equal(t, verify.OverConstrained, res.Verdict)
}

func TestClassifyUnderConstrainedUnexpectedInputWhenReferenceTraceFails(t *testing.T) {
	in, out := sym("in"), sym("out")
	candidate := verify.Witness{
		Bindings:          symbolic.Binding{in.Key(): symbolic.Int(3), out.Key(): symbolic.Int(9)},
		SideConstraintsOK: true,
	}
	reference := verify.Witness{
		Bindings:      symbolic.Binding{in.Key(): symbolic.Int(3)},
		Failed:        true,
		FailureReason: "dead end replaying the honest trace",
	}
	res := verify.Classify(reference, candidate, []symbolic.Symbol{in}, []symbolic.Symbol{out})
	require.Equal(t, verify.UnderConstrainedUnexpectedInput, res.Verdict)
	require.True(t, res.Verdict.IsUnderConstrained())
}

func TestClassifyUnderConstrainedNonDeterministicWhenOutputsDisagree(t *testing.T) {
	in, out := sym("in"), sym("out")
	reference := verify.Witness{
		Bindings:          symbolic.Binding{in.Key(): symbolic.Int(3), out.Key(): symbolic.Int(9)},
		SideConstraintsOK: true,
	}
	candidate := verify.Witness{
		Bindings:          symbolic.Binding{in.Key(): symbolic.Int(3), out.Key(): symbolic.Int(999)},
		SideConstraintsOK: true,
	}
	res := verify.Classify(reference, candidate, []symbolic.Symbol{in}, []symbolic.Symbol{out})
	require.Equal(t, verify.UnderConstrainedNonDeterministic, res.Verdict)
	require.True(t, res.Verdict.IsUnderConstrained())
}

func TestClassifyUnusedOutput(t *testing.T) {
	in, out := sym("in"), sym("out")
	reference := verify.Witness{
		Bindings:          symbolic.Binding{in.Key(): symbolic.Int(3)},
		SideConstraintsOK: true,
	}
	candidate := verify.Witness{SideConstraintsOK: true}
	res := verify.Classify(reference, candidate, []symbolic.Symbol{in}, []symbolic.Symbol{out})
	require.Equal(t, verify.UnderConstrainedUnusedOutput, res.Verdict)
}
