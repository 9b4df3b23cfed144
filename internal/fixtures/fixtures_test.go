package fixtures_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz-go/zkfuzz/internal/field"
	"github.com/zkfuzz-go/zkfuzz/internal/fixtures"
	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
	"github.com/zkfuzz-go/zkfuzz/internal/trace"
	"github.com/zkfuzz-go/zkfuzz/internal/verify"
)

var testPrime = big.NewInt(101)

func TestLoadAllNamedFixtures(t *testing.T) {
	for _, name := range fixtures.Names() {
		f, err := fixtures.Load(name)
		require.NoError(t, err, name)
		require.NotEmpty(t, f.Body, name)
		require.NotEmpty(t, f.Inputs, name)
		require.NotEmpty(t, f.ReferenceInputs, name)
	}
}

func TestLoadUnknownFixtureErrors(t *testing.T) {
	_, err := fixtures.Load("nope")
	require.Error(t, err)
}

// TestReferenceWitnessSatisfiesItsOwnSideConstraints runs every fixture's
// honest reference inputs through its own trace and checks the resulting
// witness doesn't fail and (where the fixture declares any) satisfies its
// side constraints — a sanity check that the fixtures are internally
// consistent, independent of whether they're under- or well-constrained.
func TestReferenceWitnessSatisfiesItsOwnSideConstraints(t *testing.T) {
	for _, name := range fixtures.Names() {
		f, err := fixtures.Load(name)
		require.NoError(t, err, name)

		seeded := trace.Seed(f.ReferenceInputs, f.Body)
		st, err := trace.Run(seeded, nil, testPrime, field.Config{}, nil)
		require.NoError(t, err, name)
		require.False(t, st.Failed(), name)

		if len(f.SideConstraints) == 0 {
			continue
		}
		ok, err := verify.EvaluateSideConstraints(f.SideConstraints, st.Bindings(), func(v symbolic.Value, b symbolic.Binding) (symbolic.Value, error) {
			return symbolic.Eval(v, b, testPrime, field.Config{})
		})
		require.NoError(t, err, name)
		require.True(t, ok, name)
	}
}

func TestCoverageToyBranchIDsDistinguishesArms(t *testing.T) {
	f, err := fixtures.Load("coverageToy")
	require.NoError(t, err)
	require.NotNil(t, f.BranchIDs)

	runAndCollectBranches := func(in int64) []bool {
		seeded := trace.Seed([]trace.SeedAssignment{{Symbol: f.Inputs[0], Value: symbolic.Int(in)}}, f.Body)
		st, err := trace.Run(seeded, nil, testPrime, field.Config{}, nil)
		require.NoError(t, err)
		require.False(t, st.Failed())

		var taken []bool
		for _, step := range st.Trace() {
			if _, t, ok := f.BranchIDs(step); ok {
				taken = append(taken, t)
			}
		}
		return taken
	}

	even := runAndCollectBranches(4)
	odd := runAndCollectBranches(5)
	require.Equal(t, []bool{true}, even)
	require.Equal(t, []bool{false}, odd)
}

func TestArchiveWrapsDeclaredBoundary(t *testing.T) {
	a, err := fixtures.Archive("IsZero")
	require.NoError(t, err)
	tpl, ok := a.Template("IsZero")
	require.True(t, ok)
	require.Len(t, tpl.Inputs, 1)
	require.Len(t, tpl.Outputs, 1)
}
