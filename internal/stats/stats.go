// Package stats implements the two side-channels spec.md §6 names for
// observing a running search: an optional tab-separated per-generation
// fitness dump ("Persisted state") and the front-end's unbuffered progress
// print (spec.md §5: "no operation blocks on I/O except the front-end's
// progress print").
package stats

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// FitnessWriter appends one tab-separated row per generation to an
// underlying writer: (generation, best_score, mean_score), exactly the
// format spec.md §6 "Persisted state" specifies. mutation.Searcher does not
// use it: for save_fitness_scores it appends the rows to the file itself,
// without a header row.
type FitnessWriter struct {
	w      *bufio.Writer
	closer io.Closer
	wrote  bool
}

// NewFitnessWriter opens path for writing (truncating any existing file) and
// writes a header row.
func NewFitnessWriter(path string) (*FitnessWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("stats: opening fitness dump %s: %w", path, err)
	}
	fw := &FitnessWriter{w: bufio.NewWriter(f), closer: f}
	if _, err := fw.w.WriteString("generation\tbest_score\tmean_score\n"); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stats: writing fitness dump header: %w", err)
	}
	return fw, nil
}

// Record appends one generation's row.
func (fw *FitnessWriter) Record(generation int, best, mean float64) error {
	_, err := fmt.Fprintf(fw.w, "%d\t%g\t%g\n", generation, best, mean)
	if err == nil {
		fw.wrote = true
	}
	return err
}

// Close flushes buffered rows and closes the underlying file.
func (fw *FitnessWriter) Close() error {
	if err := fw.w.Flush(); err != nil {
		_ = fw.closer.Close()
		return fmt.Errorf("stats: flushing fitness dump: %w", err)
	}
	return fw.closer.Close()
}

// Mean is a small helper since the fitness dump records a generation's mean
// score alongside its best, and callers otherwise only track Population's
// per-individual scores.
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// ProgressPrinter is the CLI's own unbuffered progress line, kept
// deliberately separate from the structured zerolog logger: spec.md §5
// requires the front-end's progress print to be the one sanctioned
// blocking-on-I/O operation in the hot loop, explicitly flushed after every
// write rather than buffered like FitnessWriter's dump.
type ProgressPrinter struct {
	out io.Writer
}

// NewProgressPrinter wraps out (typically os.Stdout) for direct,
// unbuffered progress lines.
func NewProgressPrinter(out io.Writer) *ProgressPrinter {
	return &ProgressPrinter{out: out}
}

// Printf writes one progress line and flushes immediately if out supports
// it (an *os.File does, via Sync; anything else is unbuffered by
// construction).
func (p *ProgressPrinter) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
	if f, ok := p.out.(*os.File); ok {
		_ = f.Sync()
	}
}

// NewLogger builds the package-wide structured logger convention used
// throughout this module: a zerolog.Logger writing to stderr at the given
// level, so the unbuffered stdout progress print (ProgressPrinter) never
// interleaves with structured diagnostics.
func NewLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}
