// Package fixtures hand-builds the six named end-to-end scenarios spec.md
// §8 exercises (IsZero, average, scholarshipCheck, rshift1, LessThan,
// coverageToy) as Fixture values holding flattened trace steps, since the
// core never parses a circuit language itself (spec.md Non-goal). These are
// consumed by cmd/zkfuzz's subcommands, by this package's own tests and by
// internal/mutation's coverage integration test.
package fixtures

import (
	"fmt"

	"github.com/zkfuzz-go/zkfuzz/internal/archive"
	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
	"github.com/zkfuzz-go/zkfuzz/internal/trace"
)

// Fixture is a fully flattened, ready-to-run circuit plus the main
// template's declared boundary, mirroring the shape both
// internal/mutation.Circuit and internal/bruteforce.Circuit expect.
type Fixture struct {
	Name            string
	Body            []trace.Step
	Inputs          []symbolic.Symbol
	Outputs         []symbolic.Symbol
	SideConstraints []symbolic.Value
	ReferenceInputs []trace.SeedAssignment
	// BranchIDs identifies coverage-relevant decision points for fixtures
	// that exercise internal/coverage; nil for fixtures that don't. It
	// inspects one entry of a *recorded* (post-evaluation) trace, per
	// mutation.Searcher.BranchIDs's contract.
	BranchIDs func(step symbolic.Value) (id uint64, taken bool, ok bool)
}

// Names lists every registered fixture, in the order spec.md §8 names them.
func Names() []string {
	return []string{"IsZero", "average", "scholarshipCheck", "rshift1", "LessThan", "coverageToy"}
}

// Load builds the named fixture, flattening its archive.Template body via
// trace.Flatten. None of these six fixtures use inlined calls, so a nil
// CallResolver is safe: Flatten never invokes it unless it encounters an
// AssignCall node.
func Load(name string) (*Fixture, error) {
	switch name {
	case "IsZero":
		return isZeroFixture()
	case "average":
		return averageFixture()
	case "scholarshipCheck":
		return scholarshipCheckFixture()
	case "rshift1":
		return rshift1Fixture()
	case "LessThan":
		return lessThanFixture()
	case "coverageToy":
		return coverageToyFixture()
	default:
		return nil, fmt.Errorf("fixtures: unknown fixture %q (known: %v)", name, Names())
	}
}

func sym(name string) symbolic.Symbol { return symbolic.NewSymbol(nil, name) }

func flatten(body []symbolic.Value) ([]trace.Step, error) {
	return trace.Flatten(body, nil)
}

// isZeroFixture is the canonical under-constrained circuit: the trace
// computes out := (in == 0) honestly, but the only declared constraint is
// in*out == 0, which a dishonest out also satisfies whenever in == 0 (any
// value of out passes) and pins out to 0 whenever in != 0 — so a mutant
// that forces in == 0 while keeping the reference's honest out == 1 is
// accepted by the constraint, exposing that out is not actually the
// boolean (in==0) predicate the circuit claims to compute.
func isZeroFixture() (*Fixture, error) {
	in, out := sym("in"), sym("out")
	body := []symbolic.Value{
		symbolic.Assign{Target: out, RHS: symbolic.BinOp{Op: symbolic.OpEq, LHS: symbolic.Var{Name: in}, RHS: symbolic.Int(0)}},
	}
	steps, err := flatten(body)
	if err != nil {
		return nil, err
	}
	constraint := symbolic.BinOp{
		Op:  symbolic.OpEq,
		LHS: symbolic.BinOp{Op: symbolic.OpMul, LHS: symbolic.Var{Name: in}, RHS: symbolic.Var{Name: out}},
		RHS: symbolic.Int(0),
	}
	return &Fixture{
		Name:            "IsZero",
		Body:            steps,
		Inputs:          []symbolic.Symbol{in},
		Outputs:         []symbolic.Symbol{out},
		SideConstraints: []symbolic.Value{constraint},
		ReferenceInputs: []trace.SeedAssignment{{Symbol: in, Value: symbolic.Int(0)}},
	}, nil
}

// averageFixture computes avg := (a+b)/2 using integer division, then
// checks only 2*avg <= a+b rather than the exact equality a round-trip
// would require — truncation hides a class of off-by-one bugs the weaker
// inequality never catches.
func averageFixture() (*Fixture, error) {
	a, b, avg := sym("a"), sym("b"), sym("avg")
	body := []symbolic.Value{
		symbolic.Assign{Target: avg, RHS: symbolic.BinOp{
			Op:  symbolic.OpIntDiv,
			LHS: symbolic.BinOp{Op: symbolic.OpAdd, LHS: symbolic.Var{Name: a}, RHS: symbolic.Var{Name: b}},
			RHS: symbolic.Int(2),
		}},
	}
	steps, err := flatten(body)
	if err != nil {
		return nil, err
	}
	constraint := symbolic.BinOp{
		Op:  symbolic.OpLe,
		LHS: symbolic.BinOp{Op: symbolic.OpMul, LHS: symbolic.Int(2), RHS: symbolic.Var{Name: avg}},
		RHS: symbolic.BinOp{Op: symbolic.OpAdd, LHS: symbolic.Var{Name: a}, RHS: symbolic.Var{Name: b}},
	}
	return &Fixture{
		Name:            "average",
		Body:            steps,
		Inputs:          []symbolic.Symbol{a, b},
		Outputs:         []symbolic.Symbol{avg},
		SideConstraints: []symbolic.Value{constraint},
		ReferenceInputs: []trace.SeedAssignment{{Symbol: a, Value: symbolic.Int(4)}, {Symbol: b, Value: symbolic.Int(6)}},
	}, nil
}

// scholarshipCheckFixture computes eligible honestly from two thresholds,
// but only constrains eligible to be boolean (eligible*(1-eligible)==0)
// rather than tying it back to the gpa/income comparisons themselves — a
// classic "computed right, constrained wrong" bug shape.
func scholarshipCheckFixture() (*Fixture, error) {
	gpa, income, eligible := sym("gpa"), sym("income"), sym("eligible")
	minGPA, maxIncome := symbolic.Int(300), symbolic.Int(50000)
	body := []symbolic.Value{
		symbolic.Assign{Target: eligible, RHS: symbolic.BinOp{
			Op: symbolic.OpBoolAnd,
			LHS: symbolic.BinOp{Op: symbolic.OpGe, LHS: symbolic.Var{Name: gpa}, RHS: minGPA},
			RHS: symbolic.BinOp{Op: symbolic.OpLe, LHS: symbolic.Var{Name: income}, RHS: maxIncome},
		}},
	}
	steps, err := flatten(body)
	if err != nil {
		return nil, err
	}
	constraint := symbolic.BinOp{
		Op:  symbolic.OpEq,
		LHS: symbolic.BinOp{Op: symbolic.OpMul, LHS: symbolic.Var{Name: eligible}, RHS: symbolic.BinOp{Op: symbolic.OpSub, LHS: symbolic.Int(1), RHS: symbolic.Var{Name: eligible}}},
		RHS: symbolic.Int(0),
	}
	return &Fixture{
		Name:            "scholarshipCheck",
		Body:            steps,
		Inputs:          []symbolic.Symbol{gpa, income},
		Outputs:         []symbolic.Symbol{eligible},
		SideConstraints: []symbolic.Value{constraint},
		ReferenceInputs: []trace.SeedAssignment{{Symbol: gpa, Value: symbolic.Int(350)}, {Symbol: income, Value: symbolic.Int(40000)}},
	}, nil
}

// rshift1Fixture computes out := in >> 1 honestly, but only constrains
// 2*out <= in, which loses the low bit's exact value — the classic
// circomlib right-shift under-constraint, where a dishonest out one unit
// away from the honest shift can still satisfy the inequality.
func rshift1Fixture() (*Fixture, error) {
	in, out := sym("in"), sym("out")
	body := []symbolic.Value{
		symbolic.Assign{Target: out, RHS: symbolic.BinOp{Op: symbolic.OpShr, LHS: symbolic.Var{Name: in}, RHS: symbolic.Int(1)}},
	}
	steps, err := flatten(body)
	if err != nil {
		return nil, err
	}
	constraint := symbolic.BinOp{
		Op:  symbolic.OpLe,
		LHS: symbolic.BinOp{Op: symbolic.OpMul, LHS: symbolic.Int(2), RHS: symbolic.Var{Name: out}},
		RHS: symbolic.Var{Name: in},
	}
	return &Fixture{
		Name:            "rshift1",
		Body:            steps,
		Inputs:          []symbolic.Symbol{in},
		Outputs:         []symbolic.Symbol{out},
		SideConstraints: []symbolic.Value{constraint},
		ReferenceInputs: []trace.SeedAssignment{{Symbol: in, Value: symbolic.Int(10)}},
	}, nil
}

// lessThanFixture computes out := (a < b) honestly, but the only declared
// constraint checks out is boolean, never tying it back to a and b — a
// constant out=0 or out=1 satisfies the constraint for any inputs.
func lessThanFixture() (*Fixture, error) {
	a, b, out := sym("a"), sym("b"), sym("out")
	body := []symbolic.Value{
		symbolic.Assign{Target: out, RHS: symbolic.BinOp{Op: symbolic.OpLt, LHS: symbolic.Var{Name: a}, RHS: symbolic.Var{Name: b}}},
	}
	steps, err := flatten(body)
	if err != nil {
		return nil, err
	}
	constraint := symbolic.BinOp{
		Op:  symbolic.OpEq,
		LHS: symbolic.BinOp{Op: symbolic.OpMul, LHS: symbolic.Var{Name: out}, RHS: symbolic.BinOp{Op: symbolic.OpSub, LHS: symbolic.Int(1), RHS: symbolic.Var{Name: out}}},
		RHS: symbolic.Int(0),
	}
	return &Fixture{
		Name:            "LessThan",
		Body:            steps,
		Inputs:          []symbolic.Symbol{a, b},
		Outputs:         []symbolic.Symbol{out},
		SideConstraints: []symbolic.Value{constraint},
		ReferenceInputs: []trace.SeedAssignment{{Symbol: a, Value: symbolic.Int(3)}, {Symbol: b, Value: symbolic.Int(7)}},
	}, nil
}

// coverageToyFixture is a small branch-heavy circuit (no under-constraint
// of its own — it is a coverage-tracker exercise, not a bug hunt) whose
// conditional bodies make good branch-coverage targets via BranchIDs: it
// picks one of two arms depending on whether in is even, assigning out to
// in/2 or 3*in+1 (a single Collatz step), so repeated runs over different
// inputs visit both arms and internal/coverage's distinct-path count can
// accumulate meaningfully.
func coverageToyFixture() (*Fixture, error) {
	in, out, isEven := sym("in"), sym("out"), sym("isEven")
	body := []symbolic.Value{
		symbolic.Assign{Target: isEven, RHS: symbolic.BinOp{
			Op:  symbolic.OpEq,
			LHS: symbolic.BinOp{Op: symbolic.OpMod, LHS: symbolic.Var{Name: in}, RHS: symbolic.Int(2)},
			RHS: symbolic.Int(0),
		}},
		symbolic.Assign{Target: out, RHS: symbolic.Conditional{
			Cond: symbolic.Var{Name: isEven},
			Then: symbolic.BinOp{Op: symbolic.OpIntDiv, LHS: symbolic.Var{Name: in}, RHS: symbolic.Int(2)},
			Else: symbolic.BinOp{Op: symbolic.OpAdd, LHS: symbolic.BinOp{Op: symbolic.OpMul, LHS: symbolic.Int(3), RHS: symbolic.Var{Name: in}}, RHS: symbolic.Int(1)},
		}},
	}
	steps, err := flatten(body)
	if err != nil {
		return nil, err
	}
	// The conditional itself evaluates all the way down to a plain ConstInt
	// (in/2 or 3*in+1), losing which arm was taken — so the branch decision
	// is read off isEven's own recorded (evaluated) value instead, which is
	// always a ConstBool by construction.
	branchIDs := func(step symbolic.Value) (uint64, bool, bool) {
		assign, ok := step.(symbolic.Assign)
		if !ok || assign.Target.Key() != isEven.Key() {
			return 0, false, false
		}
		b, ok := assign.RHS.(symbolic.ConstBool)
		if !ok {
			return 0, false, false
		}
		return 1, b.V, true
	}
	return &Fixture{
		Name:            "coverageToy",
		Body:            steps,
		Inputs:          []symbolic.Symbol{in},
		Outputs:         []symbolic.Symbol{out},
		SideConstraints: nil,
		ReferenceInputs: []trace.SeedAssignment{{Symbol: in, Value: symbolic.Int(4)}},
		BranchIDs:       branchIDs,
	}, nil
}

// Archive exposes a Fixture's declared name/input/output boundary wrapped
// in the archive.ProgramArchive contract shape (only this package's tests
// call it; cmd/zkfuzz works from Load's Fixture directly) — emulation itself
// always goes through the fixture's own already-flattened Body, since these
// fixtures are call-free and have no unflattened form to round-trip.
func Archive(name string) (*archive.ProgramArchive, error) {
	f, err := Load(name)
	if err != nil {
		return nil, err
	}
	tpl := &archive.Template{
		Name:    f.Name,
		Inputs:  f.Inputs,
		Outputs: f.Outputs,
	}
	a := archive.NewProgramArchive(symbolic.Call{ID: f.Name})
	a.AddTemplate(tpl)
	return a, nil
}
