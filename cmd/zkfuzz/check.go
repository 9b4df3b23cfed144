package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"

	"github.com/zkfuzz-go/zkfuzz/internal/field"
	"github.com/zkfuzz-go/zkfuzz/internal/fixtures"
	"github.com/zkfuzz-go/zkfuzz/internal/stats"
	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
	"github.com/zkfuzz-go/zkfuzz/internal/trace"
	"github.com/zkfuzz-go/zkfuzz/internal/verify"
)

// checkCmd runs the verification primitive once: a supplied witness
// (mapping each declared input's base name to a decimal value) is compared
// against the fixture's own honest reference witness.
var checkCmd = &cobra.Command{
	Use:   "check <circuit> <template> <witness.json>",
	Short: "Classify a supplied witness against a built-in fixture's declared constraints",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		circuitLabel, template, witnessPath := args[0], args[1], args[2]

		prime, err := resolvePrime(cmd)
		if err != nil {
			return err
		}
		strict, _ := cmd.Flags().GetBool("strict-div-by-zero")
		cfg := field.Config{StrictDivByZero: strict}

		f, err := fixtures.Load(template)
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(witnessPath)
		if err != nil {
			return fmt.Errorf("zkfuzz: reading witness %s: %w", witnessPath, err)
		}
		var values map[string]string
		if err := json.Unmarshal(raw, &values); err != nil {
			return fmt.Errorf("zkfuzz: parsing witness %s: %w", witnessPath, err)
		}

		candidateInputs := make([]trace.SeedAssignment, 0, len(f.Inputs))
		for _, in := range f.Inputs {
			raw, ok := values[in.Base]
			if !ok {
				return fmt.Errorf("zkfuzz: witness %s is missing declared input %q", witnessPath, in.Base)
			}
			n, ok := new(big.Int).SetString(raw, 10)
			if !ok {
				return fmt.Errorf("zkfuzz: witness %s: input %q is not a decimal integer: %q", witnessPath, in.Base, raw)
			}
			candidateInputs = append(candidateInputs, trace.SeedAssignment{Symbol: in, Value: symbolic.ConstInt{V: n}})
		}

		progress := stats.NewProgressPrinter(os.Stdout)
		progress.Printf("zkfuzz check: circuit=%s template=%s prime=%s", circuitLabel, template, prime)

		reference := runWitness(f.Body, f.ReferenceInputs, prime, cfg)
		candidate := runWitness(f.Body, candidateInputs, prime, cfg)

		refOK, err := verify.EvaluateSideConstraints(f.SideConstraints, reference.Bindings, evalFn(prime, cfg))
		if err != nil {
			return err
		}
		candOK, err := verify.EvaluateSideConstraints(f.SideConstraints, candidate.Bindings, evalFn(prime, cfg))
		if err != nil {
			return err
		}
		reference.SideConstraintsOK = refOK
		candidate.SideConstraintsOK = candOK

		result := classify(reference, candidate, f.Inputs, f.Outputs)
		progress.Printf("verdict: %s", result.Verdict)
		if result.Detail != "" {
			progress.Printf("detail: %s", result.Detail)
		}

		if result.Verdict != verify.WellConstrained {
			os.Exit(1)
		}
		return nil
	},
}

// classify applies spec.md §4.4's steps 1 and 2 — did the supplied witness's
// own trace complete, and does it satisfy every side constraint — before
// reaching for verify.Classify's reference comparison (step 3), mirroring
// the same caller-side gating the search engines use.
func classify(reference, candidate verify.Witness, inputs, outputs []symbolic.Symbol) verify.Result {
	if candidate.Failed {
		if candidate.SideConstraintsOK {
			return verify.Result{
				Verdict: verify.UnderConstrainedDeterministic,
				Detail:  fmt.Sprintf("trace failed to complete (%s) but the witness it produced already satisfies every evaluable side constraint", candidate.FailureReason),
			}
		}
		return verify.Result{Verdict: verify.WellConstrained, Detail: "witness trace failed and its constraints don't hold either"}
	}
	if !candidate.SideConstraintsOK {
		return verify.Result{Verdict: verify.OverConstrained, Detail: "witness completes but violates a declared constraint"}
	}
	return verify.Classify(reference, candidate, inputs, outputs)
}

func evalFn(prime *big.Int, cfg field.Config) func(symbolic.Value, symbolic.Binding) (symbolic.Value, error) {
	return func(v symbolic.Value, b symbolic.Binding) (symbolic.Value, error) {
		return symbolic.Eval(v, b, prime, cfg)
	}
}

func runWitness(body []trace.Step, inputs []trace.SeedAssignment, prime *big.Int, cfg field.Config) verify.Witness {
	seeded := trace.Seed(inputs, body)
	st, err := trace.Run(seeded, nil, prime, cfg, nil)
	if err != nil {
		return verify.Witness{Failed: true, FailureReason: err.Error()}
	}
	return verify.Witness{Bindings: st.Bindings(), Failed: st.Failed(), FailureReason: st.FailureReason()}
}

func init() {
	checkCmd.Flags().Bool("strict-div-by-zero", false, "treat division by zero as a hard error instead of returning 0")
	rootCmd.AddCommand(checkCmd)
}
