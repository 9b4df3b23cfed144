package mutation

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zkfuzz-go/zkfuzz/internal/coverage"
	"github.com/zkfuzz-go/zkfuzz/internal/field"
	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
	"github.com/zkfuzz-go/zkfuzz/internal/trace"
	"github.com/zkfuzz-go/zkfuzz/internal/verify"
)

// Circuit bundles everything a Searcher needs to know about the program
// under test, independent of the search's own tunables.
type Circuit struct {
	Body            []trace.Step // flattened, unseeded
	Inputs          []symbolic.Symbol
	Outputs         []symbolic.Symbol
	SideConstraints []symbolic.Value
}

// Searcher runs the coevolving gene/input search described in spec.md §4.6
// against one Circuit.
type Searcher struct {
	Circuit   Circuit
	Prime     *big.Int
	FieldCfg  field.Config
	Config    Config
	Log      *zerolog.Logger
	Coverage *coverage.Tracker
	// BranchIDs inspects one recorded (post-evaluation) trace step and, if
	// it represents a branch decision, reports a stable branch id and
	// which way it went. It must run against the *recorded* trace
	// (state.State.Trace()), not the static flattened program: a
	// Conditional's condition is only resolved to a concrete ConstBool
	// after evaluation: the static program still holds the symbolic
	// condition expression.
	BranchIDs func(step symbolic.Value) (id uint64, taken bool, ok bool)
	// Ctx, if set, is checked between generations (spec.md §5's cooperative
	// cancellation): a cancelled or expired context stops the search at the
	// next generation boundary rather than mid-evaluation.
	Ctx context.Context
}

// Outcome is what a search run concludes with.
type Outcome struct {
	Verdict    verify.Verdict
	Detail     string
	Generation int
	Inputs     []trace.SeedAssignment
	Gene       Gene
}

// Run executes up to cfg.MaxGenerations generations, returning as soon as a
// candidate witness is classified anything other than WellConstrained.
func (s *Searcher) Run() (Outcome, error) {
	cfg := s.Config
	rng := rand.New(rand.NewSource(cfg.Seed))

	// Mutable positions are computed against a seeded program: every seeding
	// prepends exactly len(s.Circuit.Inputs) safe Assign steps regardless of
	// the actual input values, so the resulting indices stay valid for any
	// later Seed(otherInputs, s.Circuit.Body) call below.
	inputs := RandomInputs(s.Circuit.Inputs, rng, s.Prime, cfg)
	positions := trace.MutablePositions(trace.Seed(inputs, s.Circuit.Body))
	reference := s.witness(inputs, nil)

	// spec.md §4.6.2: one mutation strategy is chosen by config for the
	// whole run, not rotated generation-to-generation.
	strategy := strategyFromConfig(cfg)

	var fitnessLog *os.File
	if cfg.SaveFitnessScores != "" {
		f, err := os.OpenFile(cfg.SaveFitnessScores, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return Outcome{}, fmt.Errorf("mutation: opening fitness trace %s: %w", cfg.SaveFitnessScores, err)
		}
		fitnessLog = f
		defer f.Close()
	}

	scoreFn := func(g Gene) float64 {
		w := s.witness(inputs, g)
		residual := ResidualError(s.Circuit.SideConstraints, w.Bindings, s.Prime, s.FieldCfg)
		return Score(residual)
	}

	pop := make(Population, cfg.PopulationSize)
	for i := range pop {
		gene := InitGene(strategy, trace.Seed(inputs, s.Circuit.Body), positions, rng, s.Prime, cfg)
		pop[i] = Individual{Gene: gene, Score: scoreFn(gene)}
	}

	for gen := 0; gen < cfg.MaxGenerations; gen++ {
		if err := s.ctxErr(); err != nil {
			return Outcome{Verdict: verify.WellConstrained, Detail: "search cancelled: " + err.Error(), Generation: gen, Inputs: inputs}, nil
		}

		if cfg.ParallelFitness {
			if err := s.rescoreParallel(pop, scoreFn); err != nil {
				return Outcome{}, err
			}
		}

		best := pop.Best()
		candidate := s.witness(inputs, best.Gene)
		result := s.classifyFitness(candidate, reference, best.Gene)

		if result.Verdict != verify.WellConstrained {
			return Outcome{Verdict: result.Verdict, Detail: result.Detail, Generation: gen, Inputs: inputs, Gene: best.Gene}, nil
		}

		if s.logEnabled() {
			s.Log.Debug().Int("generation", gen).Float64("best_score", best.Score).Msg("mutation: generation scored")
		}

		if fitnessLog != nil {
			mean := meanScore(pop)
			fmt.Fprintf(fitnessLog, "%d\t%g\t%g\n", gen, best.Score, mean)
		}

		if cfg.InputUpdateInterval > 0 && gen > 0 && gen%cfg.InputUpdateInterval == 0 {
			inputs = s.updateInputs(inputs, rng)
			reference = s.witness(inputs, nil)
			for i := range pop {
				pop[i].Score = scoreFn(pop[i].Gene)
			}
		}

		genCfg := cfg
		if gen < cfg.BinaryModeWarmupRound {
			genCfg.BinaryModeProb = 0
		}
		pop = Evolve(strategy, trace.Seed(inputs, s.Circuit.Body), positions, s.Prime, pop, rng, genCfg, scoreFn)

		if cfg.CheckpointPath != "" && gen%cfg.InputUpdateInterval == 0 {
			distinct := s.distinctAlternateOutputs(pop, inputs, reference)
			if err := SaveCheckpoint(cfg.CheckpointPath, gen, cfg, pop, distinct); err != nil && s.logEnabled() {
				s.Log.Warn().Err(err).Msg("mutation: checkpoint failed")
			}
		}
	}

	return Outcome{Verdict: verify.WellConstrained, Detail: "exhausted max_generations without a counterexample", Generation: cfg.MaxGenerations, Inputs: inputs}, nil
}

func (s *Searcher) ctxErr() error {
	if s.Ctx == nil {
		return nil
	}
	return s.Ctx.Err()
}

func meanScore(pop Population) float64 {
	if len(pop) == 0 {
		return 0
	}
	var total float64
	for _, ind := range pop {
		total += ind.Score
	}
	return total / float64(len(pop))
}

// classifyFitness is the per-generation gate spec.md §4.6.3 describes
// ("evaluate_trace_fitness_by_error" in the original solver): whether a
// trace failure or a constraint violation on candidate is itself
// interesting depends on how candidate was produced — it only reaches the
// reference-comparison primitive (verify.Classify) once its own trace
// completed and its own constraints hold.
func (s *Searcher) classifyFitness(candidate, reference verify.Witness, gene Gene) verify.Result {
	if candidate.Failed {
		if candidate.SideConstraintsOK {
			return verify.Result{
				Verdict: verify.UnderConstrainedDeterministic,
				Detail:  fmt.Sprintf("trace failed to complete (%s) but the witness it produced already satisfies every evaluable side constraint", candidate.FailureReason),
			}
		}
		return verify.Result{Verdict: verify.WellConstrained, Detail: "candidate trace failed and its constraints don't hold either"}
	}

	if !candidate.SideConstraintsOK {
		if len(gene) == 0 {
			// The unmutated trace itself violates a declared constraint —
			// a self-contradictory circuit, independent of any mutation.
			return verify.Result{Verdict: verify.OverConstrained, Detail: "reference witness completes but violates a declared constraint"}
		}
		return verify.Result{Verdict: verify.WellConstrained, Detail: "no alternate satisfying witness found"}
	}

	return verify.Classify(reference, candidate, s.Circuit.Inputs, s.Circuit.Outputs)
}

func (s *Searcher) witness(inputs []trace.SeedAssignment, gene Gene) verify.Witness {
	seeded := trace.Seed(inputs, s.Circuit.Body)
	if s.Coverage != nil {
		s.Coverage.Clear()
	}
	st, err := trace.Run(seeded, gene, s.Prime, s.FieldCfg, s.Log)
	if err != nil {
		return verify.Witness{Failed: true, FailureReason: err.Error()}
	}
	if s.Coverage != nil {
		s.recordCoverage(st.Trace())
		s.Coverage.Finish()
	}
	ok, evalErr := verify.EvaluateSideConstraints(s.Circuit.SideConstraints, st.Bindings(), func(v symbolic.Value, b symbolic.Binding) (symbolic.Value, error) {
		return symbolic.Eval(v, b, s.Prime, s.FieldCfg)
	})
	if evalErr != nil {
		return verify.Witness{Failed: true, FailureReason: evalErr.Error()}
	}
	return verify.Witness{
		Bindings:          st.Bindings(),
		Failed:            st.Failed(),
		FailureReason:     st.FailureReason(),
		SideConstraintsOK: ok,
	}
}

func (s *Searcher) recordCoverage(recorded []symbolic.Value) {
	if s.BranchIDs == nil {
		return
	}
	for _, step := range recorded {
		if id, taken, ok := s.BranchIDs(step); ok {
			s.Coverage.Record(id, taken)
		}
	}
}

func (s *Searcher) updateInputs(current []trace.SeedAssignment, rng *rand.Rand) []trace.SeedAssignment {
	if s.Coverage == nil || s.Config.InputInitializationMethod != "coverage" {
		return RandomInputs(s.Circuit.Inputs, rng, s.Prime, s.Config)
	}
	score := func(candidate []trace.SeedAssignment) int {
		s.witness(candidate, nil)
		_, total := s.Coverage.Finish()
		return total
	}
	return HillClimbInputs(current, rng, s.Prime, s.Config, score)
}

func (s *Searcher) rescoreParallel(pop Population, scoreFn func(Gene) float64) error {
	var g errgroup.Group
	for i := range pop {
		i := i
		g.Go(func() error {
			pop[i].Score = scoreFn(pop[i].Gene)
			return nil
		})
	}
	return g.Wait()
}

func (s *Searcher) logEnabled() bool { return s.Log != nil }

// distinctAlternateOutputs is a diagnostic count, not a verdict input: how
// many distinct output renderings the current population's constraint-
// satisfying individuals disagree with the reference on. Purely informative
// for checkpoints — spec.md §4.4's NonDeterministic verdict is a property
// of one candidate witness against the reference, not of population spread.
func (s *Searcher) distinctAlternateOutputs(pop Population, inputs []trace.SeedAssignment, reference verify.Witness) int {
	refKey := renderOutputs(reference.Bindings, s.Circuit.Outputs)
	seen := map[string]struct{}{}
	for _, ind := range pop {
		w := s.witness(inputs, ind.Gene)
		if !w.SideConstraintsOK || w.Failed {
			continue
		}
		key := renderOutputs(w.Bindings, s.Circuit.Outputs)
		if key != refKey {
			seen[key] = struct{}{}
		}
	}
	return len(seen)
}

func renderOutputs(b symbolic.Binding, outputs []symbolic.Symbol) string {
	out := ""
	for _, sym := range outputs {
		v, ok := b.Lookup(sym)
		if !ok {
			out += fmt.Sprintf("%s=?;", sym.Key())
			continue
		}
		out += fmt.Sprintf("%s=%s;", sym.Key(), symbolic.Render(v))
	}
	return out
}
