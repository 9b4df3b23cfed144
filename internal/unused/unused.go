// Package unused implements the structural unused-output check (spec.md
// §4.8): a declared output that the trace and its side constraints never
// read (being assigned does not count) cannot possibly be pinned down by
// the constraint system, independent of any search. It is a cheap
// syntactic check; neither the mutation engine nor verify calls it.
package unused

import "github.com/zkfuzz-go/zkfuzz/internal/symbolic"

// Finding records one structurally unused output.
type Finding struct {
	Output symbolic.Symbol
}

// Check walks every step and every side constraint looking for references
// to each declared output. An output is reported whenever it is never read
// — as opposed to merely assigned — anywhere in the trace or its
// constraints: being written but never read means no constraint actually
// restricts its value, so a dishonest prover could substitute any value
// for it without tripping anything.
func Check(steps []symbolic.Value, sideConstraints []symbolic.Value, outputs []symbolic.Symbol) []Finding {
	read := map[string]bool{}

	var walkValue func(symbolic.Value)
	walkValue = func(v symbolic.Value) {
		switch n := v.(type) {
		case symbolic.Var:
			read[n.Name.Key()] = true
		case symbolic.BinOp:
			walkValue(n.LHS)
			walkValue(n.RHS)
		case symbolic.UnOp:
			walkValue(n.X)
		case symbolic.Conditional:
			walkValue(n.Cond)
			walkValue(n.Then)
			walkValue(n.Else)
		case symbolic.Array:
			for _, e := range n.Elems {
				walkValue(e)
			}
		case symbolic.Call:
			for _, a := range n.Args {
				walkValue(a)
			}
		case symbolic.Assign:
			walkValue(n.RHS)
		case symbolic.AssignCall:
			walkValue(n.Call)
		}
	}

	for _, s := range steps {
		walkValue(s)
	}
	for _, c := range sideConstraints {
		walkValue(c)
	}

	var findings []Finding
	for _, out := range outputs {
		if !read[out.Key()] {
			findings = append(findings, Finding{Output: out})
		}
	}
	return findings
}
