// Command zkfuzz is the CLI front-end for the under-constrained-circuit
// bug finder: a coevolving mutation search (search), an exhaustive/
// heuristic enumeration baseline (brute), a one-shot witness checker
// (check), and a small pprof-profile summariser (profile-summary).
//
// The core never parses a circuit language (see internal/fixtures's
// package doc): <template> names one of the built-in fixtures, and
// <circuit> is only a descriptive label, not a file that is read.
package main

import (
	"fmt"
	"math/big"
	"os"
	"runtime/pprof"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zkfuzz-go/zkfuzz/internal/field"
	"github.com/zkfuzz-go/zkfuzz/internal/mutation"
	"github.com/zkfuzz-go/zkfuzz/internal/stats"
)

var rootCmd = &cobra.Command{
	Use:           "zkfuzz",
	Short:         "Find under-constrained bugs in arithmetic circuits",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var cpuProfileFile *os.File

func init() {
	rootCmd.PersistentFlags().String("prime", "", "field modulus: a preset name (bn254, bls12-377, bls12-381) or a decimal literal (default bn254)")
	rootCmd.PersistentFlags().String("config", "", "path to a mutation-search JSON config (default: built-in defaults)")
	rootCmd.PersistentFlags().Int64("seed", 0, "override the config's RNG seed")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug-level logging")
	rootCmd.PersistentFlags().String("cpuprofile", "", "write a CPU profile to this path")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if path := getString(cmd, "cpuprofile"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("zkfuzz: creating cpu profile %s: %w", path, err)
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				_ = f.Close()
				return fmt.Errorf("zkfuzz: starting cpu profile: %w", err)
			}
			cpuProfileFile = f
		}
		return nil
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if cpuProfileFile != nil {
			pprof.StopCPUProfile()
			_ = cpuProfileFile.Close()
		}
	}
}

func getString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func getInt64(cmd *cobra.Command, name string) int64 {
	v, _ := cmd.Flags().GetInt64(name)
	return v
}

func getBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

func resolvePrime(cmd *cobra.Command) (*big.Int, error) {
	return field.ParsePrime(getString(cmd, "prime"))
}

func resolveConfig(cmd *cobra.Command) (mutation.Config, error) {
	cfg := mutation.DefaultConfig()
	if path := getString(cmd, "config"); path != "" {
		loaded, err := mutation.LoadConfig(path)
		if err != nil {
			return mutation.Config{}, err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = getInt64(cmd, "seed")
	}
	return cfg, nil
}

func resolveLogger(cmd *cobra.Command) zerolog.Logger {
	level := zerolog.InfoLevel
	if getBool(cmd, "verbose") {
		level = zerolog.DebugLevel
	}
	return stats.NewLogger(level)
}

// Execute runs the command tree, returning the process exit code per
// spec.md §7: 0 success, 1 a counterexample/failure result, 2 a usage or
// configuration error.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}
	return 0
}
