package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/zkfuzz-go/zkfuzz/internal/coverage"
	"github.com/zkfuzz-go/zkfuzz/internal/field"
	"github.com/zkfuzz-go/zkfuzz/internal/fixtures"
	"github.com/zkfuzz-go/zkfuzz/internal/mutation"
	"github.com/zkfuzz-go/zkfuzz/internal/stats"
	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
	"github.com/zkfuzz-go/zkfuzz/internal/trace"
	"github.com/zkfuzz-go/zkfuzz/internal/verify"
)

// searchCmd's <template> argument names one of internal/fixtures' built-in
// scenarios: the core has no parser to load an arbitrary <circuit> file
// from (Non-goal), so <circuit> is accepted for interface fidelity with
// spec.md §6 but only used as a descriptive label in progress output.
var searchCmd = &cobra.Command{
	Use:   "search <circuit> <template>",
	Short: "Run the coevolving mutation search against a built-in fixture",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		circuitLabel, template := args[0], args[1]

		prime, err := resolvePrime(cmd)
		if err != nil {
			return err
		}
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		logger := resolveLogger(cmd)

		f, err := fixtures.Load(template)
		if err != nil {
			return err
		}

		var cov *coverage.Tracker
		if f.BranchIDs != nil {
			cov = coverage.NewTracker()
		}

		searcher := &mutation.Searcher{
			Circuit: mutation.Circuit{
				Body:            f.Body,
				Inputs:          f.Inputs,
				Outputs:         f.Outputs,
				SideConstraints: f.SideConstraints,
			},
			Prime:     prime,
			FieldCfg:  field.Config{StrictDivByZero: cfg.StrictDivByZero},
			Config:    cfg,
			Log:       &logger,
			Coverage:  cov,
			BranchIDs: f.BranchIDs,
			Ctx:       cmd.Context(),
		}

		progress := stats.NewProgressPrinter(os.Stdout)
		progress.Printf("zkfuzz search: circuit=%s template=%s prime=%s", circuitLabel, template, prime)

		outcome, err := searcher.Run()
		if err != nil {
			return err
		}

		progress.Printf("verdict: %s (generation %d)", outcome.Verdict, outcome.Generation)
		if outcome.Detail != "" {
			progress.Printf("detail: %s", outcome.Detail)
		}
		printInputs(progress, outcome.Inputs)

		if outcome.Verdict != verify.WellConstrained {
			os.Exit(1)
		}
		return nil
	},
}

func printInputs(p *stats.ProgressPrinter, inputs []trace.SeedAssignment) {
	for _, in := range inputs {
		p.Printf("  %s = %s", in.Symbol.Key(), symbolic.Render(in.Value))
	}
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
