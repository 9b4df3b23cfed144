package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/google/pprof/profile"
	"github.com/spf13/cobra"

	"github.com/zkfuzz-go/zkfuzz/internal/stats"
)

// profileSummaryCmd prints the top self-time functions out of a CPU profile
// recorded via the --cpuprofile flag on another subcommand.
var profileSummaryCmd = &cobra.Command{
	Use:   "profile-summary <profile.pb.gz>",
	Short: "Summarize a pprof CPU profile's top functions by self time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("zkfuzz: opening profile %s: %w", path, err)
		}
		defer f.Close()

		p, err := profile.Parse(f)
		if err != nil {
			return fmt.Errorf("zkfuzz: parsing profile %s: %w", path, err)
		}

		top := getInt64(cmd, "top")
		if top <= 0 {
			top = 10
		}

		sampleIndex, err := cpuSampleIndex(p)
		if err != nil {
			return err
		}

		self := map[string]int64{}
		for _, s := range p.Sample {
			if len(s.Location) == 0 || len(s.Value) <= sampleIndex {
				continue
			}
			loc := s.Location[0]
			name := "(unknown)"
			if len(loc.Line) > 0 && loc.Line[0].Function != nil {
				name = loc.Line[0].Function.Name
			}
			self[name] += s.Value[sampleIndex]
		}

		type row struct {
			name string
			self int64
		}
		rows := make([]row, 0, len(self))
		for name, v := range self {
			rows = append(rows, row{name, v})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].self > rows[j].self })
		if int64(len(rows)) > top {
			rows = rows[:top]
		}

		out := stats.NewProgressPrinter(os.Stdout)
		out.Printf("top %d functions by self time in %s:", len(rows), path)
		for _, r := range rows {
			out.Printf("  %12d  %s", r.self, r.name)
		}
		return nil
	},
}

// cpuSampleIndex locates the profile's "cpu" (nanoseconds) sample type; most
// CPU profiles carry "samples" at index 0 and "cpu" at index 1.
func cpuSampleIndex(p *profile.Profile) (int, error) {
	for i, st := range p.SampleType {
		if st.Type == "cpu" {
			return i, nil
		}
	}
	if len(p.SampleType) > 0 {
		return 0, nil
	}
	return 0, fmt.Errorf("zkfuzz: profile has no sample types")
}

func init() {
	profileSummaryCmd.Flags().Int64("top", 10, "how many functions to list")
	rootCmd.AddCommand(profileSummaryCmd)
}
