package mutation

import (
	"encoding/json"
	"fmt"
	"os"
)

// RandomValueRange is one zone of spec.md §4.6.6's discrete sampling
// distribution: either a bounded interval of field-relative offsets (Lo/Hi,
// reduced mod p — negative values wrap to the top of the field, so a zone
// like {Lo: -8, Hi: -1} lands near p-1 rather than near 0) or, when Uniform
// is set, a draw uniform over the whole field (Lo/Hi ignored).
type RandomValueRange struct {
	Lo      int64 `json:"lo"`
	Hi      int64 `json:"hi"`
	Uniform bool  `json:"uniform"`
}

// Config holds every tunable of the coevolving search (spec.md §4.6, §6),
// JSON serialisable so it can be loaded via --config. Field names mirror
// the snake_case convention spec.md §6 recognises.
type Config struct {
	Seed int64 `json:"seed"`

	PopulationSize      int     `json:"program_population_size"`
	MaxGenerations      int     `json:"max_generations"`
	MutationRate        float64 `json:"mutation_rate"`
	CrossoverRate       float64 `json:"crossover_rate"`
	OperatorMutationRate float64 `json:"operator_mutation_rate"`
	RuntimeMutationRate  float64 `json:"runtime_mutation_rate"`

	// InputInitializationMethod selects §4.6.7's input-population updater:
	// "random" draws a fresh uniform sample every InputUpdateInterval
	// generations; "coverage" hill-climbs toward higher branch coverage
	// instead (HillClimbInputs). Anything else defaults to "random".
	InputInitializationMethod string `json:"input_initialization_method"`
	InputPopulationSize        int    `json:"input_population_size"`
	InputUpdateInterval        int    `json:"input_update_interval"`

	InputGenerationMaxIteration            int     `json:"input_generation_max_iteration"`
	InputGenerationCrossoverRate           float64 `json:"input_generation_crossover_rate"`
	InputGenerationMutationRate            float64 `json:"input_generation_mutation_rate"`
	InputGenerationSinglepointMutationRate float64 `json:"input_generation_singlepoint_mutation_rate"`

	// TraceMutationMethod selects the one gene-replacement policy spec.md
	// §4.6.2 says is "chosen by config": "constant", "operator_or_const",
	// "operator_or_addition" or "operator_or_deletion". Unrecognised or
	// empty falls back to "operator_or_const".
	TraceMutationMethod string `json:"trace_mutation_method"`
	// FitnessFunction names the residual-error scoring rule (spec.md §4.6.3).
	// "error" (sum of per-constraint residuals) is the only one implemented.
	FitnessFunction string `json:"fitness_function"`

	NumEliminatedIndividuals int `json:"num_eliminated_individuals"`
	MaxNumMutationPoints     int `json:"max_num_mutation_points"`

	StatementDeletionProb float64 `json:"statement_deletion_prob"`
	AddRandomConstProb    float64 `json:"add_random_const_prob"`
	ZeroDivAttemptProb    float64 `json:"zero_div_attempt_prob"`

	RandomValueRanges []RandomValueRange `json:"random_value_ranges"`
	RandomValueProbs  []float64          `json:"random_value_probs"`

	BinaryMode            bool `json:"binary_mode"`
	BinaryModeSearchLevel int  `json:"binary_mode_search_level"`
	BinaryModeWarmupRound int  `json:"binary_mode_warmup_round"`
	// BinaryModeProb probabilistically narrows a single draw to {0,1} (or,
	// with BinaryModeSearchLevel>0, small binary-weight constants) even when
	// BinaryMode itself is false. Ignored for generations before
	// BinaryModeWarmupRound — Searcher.Run zeroes it during warm-up.
	BinaryModeProb float64 `json:"binary_mode_prob"`

	// DisableRuntimeMutationForHashCheck and
	// DisableHeuristicForInvalidArraySubscript are recognised for config
	// round-tripping but currently have no effect: this repo's symbolic IR
	// has no hash-check template detection or array-subscript bounds
	// heuristic to gate (spec.md §6 lists them as heuristics specific to the
	// original solver's template library, which isn't modelled here).
	DisableRuntimeMutationForHashCheck      bool `json:"dissable_runtime_mutation_for_hash_check"`
	DisableHeuristicForInvalidArraySubscript bool `json:"dissable_heuristic_for_invalid_array_subscript"`

	// ParallelFitness evaluates a generation's fitness scores concurrently
	// via errgroup. Off by default: deterministic replay (a fixed seed
	// reproducing the exact same search) is only guaranteed when every
	// individual's fitness is evaluated independently of evaluation order,
	// which holds here, but operators who need byte-identical logs across
	// runs may prefer the sequential path.
	ParallelFitness bool `json:"parallel_fitness"`

	// CheckpointPath, when non-empty, writes a compressed population
	// snapshot every InputUpdateInterval generations.
	CheckpointPath string `json:"checkpoint_path"`
	// SaveFitnessScores, when non-empty, appends one tab-separated
	// (generation, best_score, mean_score) row per generation (spec.md §6's
	// "persisted state: optional fitness-trace dump").
	SaveFitnessScores string `json:"save_fitness_scores"`

	HillClimbIterations int     `json:"hill_climb_iterations"`
	StrictDivByZero     bool    `json:"strict_div_by_zero"`
	EliteFraction       float64 `json:"elite_fraction"`
}

// DefaultConfig returns the defaults used when no config file is supplied.
// program_population_size/input_population_size, max_generations,
// crossover_rate and mutation_rate must match spec.md §6 exactly: 30, 500,
// 0.5 and 0.3.
func DefaultConfig() Config {
	return Config{
		Seed:                 1,
		PopulationSize:       30,
		MaxGenerations:       500,
		MutationRate:         0.3,
		CrossoverRate:        0.5,
		OperatorMutationRate: 0.5,
		RuntimeMutationRate:  0.3,

		InputInitializationMethod: "random",
		InputPopulationSize:       30,
		InputUpdateInterval:       10,

		InputGenerationMaxIteration:            0,
		InputGenerationCrossoverRate:           0,
		InputGenerationMutationRate:            1,
		InputGenerationSinglepointMutationRate: 1,

		TraceMutationMethod: "operator_or_const",
		FitnessFunction:     "error",

		NumEliminatedIndividuals: 0,
		MaxNumMutationPoints:     0,

		StatementDeletionProb: 0.2,
		AddRandomConstProb:    0.3,
		ZeroDivAttemptProb:    0.05,

		RandomValueRanges: []RandomValueRange{
			{Lo: -8, Hi: 8},
			{Uniform: true},
			{Lo: -8, Hi: -1},
		},
		RandomValueProbs: []float64{1.0 / 3, 1.0 / 3, 1.0 / 3},

		BinaryMode:            false,
		BinaryModeSearchLevel: 0,
		BinaryModeWarmupRound: 0,
		BinaryModeProb:        0,

		ParallelFitness: false,
		CheckpointPath:  "",

		HillClimbIterations: 32,
		StrictDivByZero:     false,
		EliteFraction:       0.1,
	}
}

// LoadConfig reads a JSON config file, overlaying it onto DefaultConfig so
// a config that only sets a handful of fields leaves the rest at their
// documented defaults (spec.md §6: "Missing file -> defaults").
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("mutation: reading config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("mutation: parsing config %s: %w", path, err)
	}
	return cfg, nil
}
