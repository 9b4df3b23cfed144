// Package bruteforce implements the exhaustive/heuristic baseline search
// (spec.md §4.7): instead of evolving trace mutants, it enumerates candidate
// input assignments directly and checks each one against the circuit's
// declared constraints, classifying any divergence from the honest witness
// the same way internal/verify does for the mutation engine.
package bruteforce

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/zkfuzz-go/zkfuzz/internal/field"
	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
	"github.com/zkfuzz-go/zkfuzz/internal/trace"
	"github.com/zkfuzz-go/zkfuzz/internal/verify"
)

// Mode selects which candidate values each input is enumerated over.
type Mode int

const (
	// Quick only tries {0, 1, p-1} per input — the three values most
	// arithmetic bugs hide behind (identity, unit, wraparound).
	Quick Mode = iota
	// Heuristic tries [-R, R] ∪ [p-R, p) per input, R configurable.
	Heuristic
	// Full enumerates every element of the field. Intractable for any
	// field used in practice; provided for tiny toy primes and tests.
	Full
)

// Circuit mirrors mutation.Circuit's shape; duplicated here rather than
// imported to keep bruteforce independent of the mutation package (the two
// engines share a search target, not an implementation).
type Circuit struct {
	Body            []trace.Step
	Inputs          []symbolic.Symbol
	Outputs         []symbolic.Symbol
	SideConstraints []symbolic.Value
}

// Options configures a brute-force run. ReferenceInputs must be a known-good
// input assignment (e.g. from a circuit's own test vectors) — brute force
// has no oracle of its own for which witness is "honest", unlike the
// mutation engine, which always has the very trace it started mutating
// from.
type Options struct {
	Mode            Mode
	HeuristicRadius int64
	ReferenceInputs []trace.SeedAssignment
	Progress        func(assignment []*big.Int)
	// Ctx, if set, is checked every ProgressInterval leaves (spec.md §5's
	// cooperative cancellation, aligned with §4.7's own progress_interval).
	Ctx              context.Context
	ProgressInterval int
}

func candidates(mode Mode, p *big.Int, radius int64) []*big.Int {
	switch mode {
	case Quick:
		return []*big.Int{
			big.NewInt(0),
			big.NewInt(1),
			new(big.Int).Sub(p, big.NewInt(1)),
		}
	case Heuristic:
		var out []*big.Int
		for i := int64(0); i <= radius; i++ {
			out = append(out, field.Reduce(big.NewInt(i), p))
			if i > 0 {
				out = append(out, field.Reduce(big.NewInt(-i), p))
			}
		}
		for i := int64(0); i < radius; i++ {
			out = append(out, field.Reduce(new(big.Int).Sub(p, big.NewInt(i)), p))
		}
		return out
	case Full:
		n := new(big.Int).Set(p)
		out := make([]*big.Int, 0, n.Int64())
		for i := big.NewInt(0); i.Cmp(p) < 0; i = new(big.Int).Add(i, big.NewInt(1)) {
			out = append(out, new(big.Int).Set(i))
		}
		return out
	default:
		return nil
	}
}

// Search performs a depth-first enumeration over every variable the trace
// and its side constraints reference (spec.md §4.7) — not just the
// declared inputs. At each fully-assigned leaf the enumerated tuple is
// split back into its declared-input sub-tuple (used to build the honest
// reference witness, as spec.md §4.4 requires) and treated whole as a
// forced candidate witness, then the two are run through the same
// verification primitive the mutation engine uses, terminating as soon as
// one leaf classifies as anything other than WellConstrained.
func Search(c Circuit, p *big.Int, cfg field.Config, opts Options) (verify.Result, []trace.SeedAssignment, error) {
	values := candidates(opts.Mode, p, opts.HeuristicRadius)
	if len(values) == 0 {
		return verify.Result{}, nil, fmt.Errorf("bruteforce: no candidate values for mode %d", opts.Mode)
	}

	// A sanity pre-check against the caller-supplied known-good witness,
	// independent of enumeration: if the circuit's own intended computation
	// already fails or contradicts its declared constraints, every leaf
	// below would otherwise have to rediscover the same standalone bug.
	known := witness(c, p, cfg, opts.ReferenceInputs)
	if known.Failed {
		return verify.Result{
			Verdict: verify.UnderConstrainedUnexpectedInput,
			Detail:  fmt.Sprintf("reference witness's own trace failed to complete: %s", known.FailureReason),
		}, opts.ReferenceInputs, nil
	}
	if !known.SideConstraintsOK {
		return verify.Result{Verdict: verify.OverConstrained, Detail: "reference witness violates a declared constraint"}, opts.ReferenceInputs, nil
	}

	vars := referencedSymbols(c)
	isInput := make(map[string]bool, len(c.Inputs))
	for _, in := range c.Inputs {
		isInput[in.Key()] = true
	}

	referenceCache := map[string]verify.Witness{}
	referenceFor := func(inputs []trace.SeedAssignment) verify.Witness {
		key := renderInputs(inputs)
		if w, ok := referenceCache[key]; ok {
			return w
		}
		w := witness(c, p, cfg, inputs)
		referenceCache[key] = w
		return w
	}

	assignment := make([]*big.Int, len(vars))
	var result verify.Result
	var winningInputs []trace.SeedAssignment
	found := false
	cancelled := false
	leaves := 0
	progressInterval := opts.ProgressInterval
	if progressInterval <= 0 {
		progressInterval = 1
	}

	var rec func(idx int) error
	rec = func(idx int) error {
		if found || cancelled {
			return nil
		}
		if idx == len(vars) {
			leaves++
			if opts.Ctx != nil && leaves%progressInterval == 0 {
				if err := opts.Ctx.Err(); err != nil {
					cancelled = true
					return nil
				}
			}
			if opts.Progress != nil {
				opts.Progress(assignment)
			}

			forced := symbolic.Binding{}
			var inputs []trace.SeedAssignment
			for i, s := range vars {
				v := symbolic.ConstInt{V: assignment[i]}
				forced[s.Key()] = v
				if isInput[s.Key()] {
					inputs = append(inputs, trace.SeedAssignment{Symbol: s, Value: v})
				}
			}

			candOK, evalErr := verify.EvaluateSideConstraints(c.SideConstraints, forced, func(v symbolic.Value, b symbolic.Binding) (symbolic.Value, error) {
				return symbolic.Eval(v, b, p, cfg)
			})
			if evalErr != nil {
				return evalErr
			}
			if !candOK {
				// This forced tuple isn't even a valid witness; it's not
				// evidence of anything, just a miss.
				return nil
			}
			candidate := verify.Witness{Bindings: forced, SideConstraintsOK: true}

			reference := referenceFor(inputs)
			res := verify.Classify(reference, candidate, c.Inputs, c.Outputs)
			if res.Verdict != verify.WellConstrained {
				result = res
				winningInputs = inputs
				found = true
			}
			return nil
		}
		for _, v := range values {
			assignment[idx] = v
			if err := rec(idx + 1); err != nil {
				return err
			}
			if found || cancelled {
				return nil
			}
		}
		return nil
	}

	if err := rec(0); err != nil {
		return verify.Result{}, nil, err
	}
	if cancelled {
		return verify.Result{Verdict: verify.WellConstrained, Detail: "brute-force search cancelled: " + opts.Ctx.Err().Error()}, nil, nil
	}
	if !found {
		return verify.Result{Verdict: verify.WellConstrained, Detail: "brute-force search exhausted its candidate set"}, nil, nil
	}
	return result, winningInputs, nil
}

// referencedSymbols collects every symbol read anywhere in c's body or side
// constraints, plus c's declared inputs and outputs (a declared input or
// output that's never read is still worth forcing directly, since that's
// itself the unused-output bug shape), sorted by key for determinism.
func referencedSymbols(c Circuit) []symbolic.Symbol {
	seen := map[string]symbolic.Symbol{}

	var walk func(symbolic.Value)
	walk = func(v symbolic.Value) {
		switch n := v.(type) {
		case symbolic.Var:
			seen[n.Name.Key()] = n.Name
		case symbolic.BinOp:
			walk(n.LHS)
			walk(n.RHS)
		case symbolic.UnOp:
			walk(n.X)
		case symbolic.Conditional:
			walk(n.Cond)
			walk(n.Then)
			walk(n.Else)
		case symbolic.Array:
			for _, e := range n.Elems {
				walk(e)
			}
		case symbolic.Call:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}

	for _, step := range c.Body {
		if step.Kind == trace.StepAssign {
			walk(step.RHS)
		}
	}
	for _, con := range c.SideConstraints {
		walk(con)
	}
	for _, s := range c.Inputs {
		seen[s.Key()] = s
	}
	for _, s := range c.Outputs {
		seen[s.Key()] = s
	}

	out := make([]symbolic.Symbol, 0, len(seen))
	for _, s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func renderInputs(inputs []trace.SeedAssignment) string {
	s := ""
	for _, in := range inputs {
		s += in.Symbol.Key() + "=" + symbolic.Render(in.Value) + ";"
	}
	return s
}

func witness(c Circuit, p *big.Int, cfg field.Config, inputs []trace.SeedAssignment) verify.Witness {
	seeded := trace.Seed(inputs, c.Body)
	st, err := trace.Run(seeded, nil, p, cfg, nil)
	if err != nil {
		return verify.Witness{Failed: true, FailureReason: err.Error()}
	}
	ok, evalErr := verify.EvaluateSideConstraints(c.SideConstraints, st.Bindings(), func(v symbolic.Value, b symbolic.Binding) (symbolic.Value, error) {
		return symbolic.Eval(v, b, p, cfg)
	})
	if evalErr != nil {
		return verify.Witness{Failed: true, FailureReason: evalErr.Error()}
	}
	return verify.Witness{Bindings: st.Bindings(), Failed: st.Failed(), FailureReason: st.FailureReason(), SideConstraintsOK: ok}
}
