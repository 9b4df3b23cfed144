// Package verify implements the verification primitive (spec.md §4.4, §7):
// given the honest reference witness for a circuit and a second,
// independently-produced candidate witness that still satisfies every
// declared constraint, classify what that pair demonstrates about the
// circuit — a genuine under-constrained bug, a self-contradictory
// (over-constrained) circuit, or nothing at all (well-constrained).
package verify

import (
	"fmt"

	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
)

// Verdict is the outcome of classifying a reference/candidate witness pair.
type Verdict int

const (
	// WellConstrained: no alternate satisfying witness was found, or the
	// candidate agrees with the reference on every declared output.
	WellConstrained Verdict = iota
	// OverConstrained: a witness that completes still violates a declared
	// constraint — the circuit rejects a computation its own trace accepts.
	OverConstrained
	// UnderConstrainedDeterministic: the trace fails to complete for a
	// witness whose already-available bindings satisfy every side
	// constraint that can be evaluated — the constraints accept a witness
	// the trace itself can't produce.
	UnderConstrainedDeterministic
	// UnderConstrainedNonDeterministic: the reference witness W' (the
	// original trace re-run from the same declared inputs with no prior
	// output bindings) and the candidate witness W both satisfy every
	// constraint but disagree on a declared output.
	UnderConstrainedNonDeterministic
	// UnderConstrainedUnusedOutput: a declared output is never assigned by
	// the reference trace at all, so no constraint can be pinning it down.
	UnderConstrainedUnusedOutput
	// UnderConstrainedUnexpectedInput: the original trace cannot complete
	// for an input shape that a satisfying candidate witness shows the
	// constraints otherwise accept.
	UnderConstrainedUnexpectedInput
)

func (v Verdict) String() string {
	switch v {
	case WellConstrained:
		return "well-constrained"
	case OverConstrained:
		return "over-constrained"
	case UnderConstrainedDeterministic:
		return "under-constrained (deterministic)"
	case UnderConstrainedNonDeterministic:
		return "under-constrained (non-deterministic)"
	case UnderConstrainedUnusedOutput:
		return "under-constrained (unused output)"
	case UnderConstrainedUnexpectedInput:
		return "under-constrained (unexpected input)"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// IsUnderConstrained reports whether v is any of the under-constrained
// sub-verdicts — a vulnerability was demonstrated.
func (v Verdict) IsUnderConstrained() bool {
	switch v {
	case UnderConstrainedDeterministic, UnderConstrainedNonDeterministic,
		UnderConstrainedUnusedOutput, UnderConstrainedUnexpectedInput:
		return true
	default:
		return false
	}
}

// Witness is one completed trace emulation, as produced by trace.Run plus a
// side-constraint evaluation pass: the final bindings, whether emulation
// reached a dead end, and whether every recorded side constraint held.
type Witness struct {
	Bindings          symbolic.Binding
	Failed            bool
	FailureReason     string
	SideConstraintsOK bool
}

// Result is the classification output, with enough detail to report a
// counterexample.
type Result struct {
	Verdict Verdict
	Detail  string
}

// Classify implements the third step of spec.md §4.4's verification
// primitive — the reference-vs-candidate output comparison — given a
// candidate witness W already known to have completed its own trace and
// satisfied every side constraint, and the reference witness W' (the
// *original*, unmutated trace re-run from W's own declared inputs with no
// prior output bindings).
//
// Steps 1 and 2 of §4.4 — did W's own trace complete, and does W satisfy
// every side constraint — are the caller's responsibility: what a trace
// failure or a constraint violation on W itself means depends on how W was
// produced (spec.md §4.6.3 for the mutation engine's gating,  §4.7 for
// brute force's). Callers must not call Classify unless candidate.Failed is
// false and candidate.SideConstraintsOK is true.
//
// outputs names the circuit's declared output symbols; inputs is carried
// for Detail messages only — reference and candidate are always built from
// the same declared inputs by construction.
func Classify(reference, candidate Witness, inputs, outputs []symbolic.Symbol) Result {
	if reference.Failed {
		return Result{
			Verdict: UnderConstrainedUnexpectedInput,
			Detail:  fmt.Sprintf("original trace cannot complete for %s even though a candidate witness with it satisfies every constraint: %s", describeInputs(reference, candidate, inputs), reference.FailureReason),
		}
	}
	if !reference.SideConstraintsOK {
		return Result{Verdict: OverConstrained, Detail: "reference witness itself violates a declared constraint"}
	}

	for _, out := range outputs {
		if _, ok := reference.Bindings.Lookup(out); !ok {
			return Result{
				Verdict: UnderConstrainedUnusedOutput,
				Detail:  fmt.Sprintf("output %s is never assigned by the reference trace", out.Key()),
			}
		}
	}

	for _, out := range outputs {
		refVal, _ := reference.Bindings.Lookup(out)
		candVal, candOK := candidate.Bindings.Lookup(out)
		if !candOK || !valuesEqual(refVal, candVal) {
			return Result{
				Verdict: UnderConstrainedNonDeterministic,
				Detail:  fmt.Sprintf("%s admits a second satisfying witness disagreeing on output %s", describeInputs(reference, candidate, inputs), out.Key()),
			}
		}
	}

	return Result{Verdict: WellConstrained, Detail: "candidate agrees with reference on all declared outputs"}
}

// describeInputs renders the declared input values the reference and
// candidate witnesses share, for Detail messages; falls back to a generic
// phrase when inputs is empty or one of the witnesses never bound them.
func describeInputs(reference, candidate Witness, inputs []symbolic.Symbol) string {
	if len(inputs) == 0 {
		return "these declared inputs"
	}
	desc := "inputs "
	for i, in := range inputs {
		if i > 0 {
			desc += ", "
		}
		if v, ok := reference.Bindings.Lookup(in); ok {
			desc += fmt.Sprintf("%s=%s", in.Key(), symbolic.Render(v))
			continue
		}
		if v, ok := candidate.Bindings.Lookup(in); ok {
			desc += fmt.Sprintf("%s=%s", in.Key(), symbolic.Render(v))
			continue
		}
		desc += fmt.Sprintf("%s=?", in.Key())
	}
	return desc
}

func valuesEqual(a, b symbolic.Value) bool {
	return symbolic.Render(a) == symbolic.Render(b)
}

// EvaluateSideConstraints folds every constraint against bindings and
// reports whether all of them hold. A constraint that fails to reduce to a
// ConstBool (still symbolic, or ill-typed) counts as not holding.
func EvaluateSideConstraints(constraints []symbolic.Value, bindings symbolic.Binding, eval func(symbolic.Value, symbolic.Binding) (symbolic.Value, error)) (bool, error) {
	for _, c := range constraints {
		v, err := eval(c, bindings)
		if err != nil {
			return false, err
		}
		b, ok := v.(symbolic.ConstBool)
		if !ok || !b.V {
			return false, nil
		}
	}
	return true, nil
}
