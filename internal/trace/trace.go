// Package trace implements the symbolic trace emulator (spec.md §4.3): it
// flattens a recorded, possibly call-nested trace into a single sequential
// program, then replays that program to completion against a binding
// environment, optionally overriding individual "mutable positions" with
// gene-supplied replacement values — this is what lets the mutation engine
// probe whether a circuit's constraints actually pin down a witness, or
// merely describe how the reference prover happened to compute one.
package trace

import (
	"fmt"
	"math/big"

	"github.com/rs/zerolog"

	"github.com/zkfuzz-go/zkfuzz/internal/field"
	"github.com/zkfuzz-go/zkfuzz/internal/state"
	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
)

// Direction selects how a mutable position's gene value is applied.
// Left/Right rebind one operand of a BinOp while the other side keeps being
// evaluated normally against the current bindings; Whole replaces the
// entire right-hand side (or, at a call site, the call's bound result)
// outright.
type Direction int

const (
	DirLeft Direction = iota
	DirRight
	DirWhole
)

func (d Direction) String() string {
	switch d {
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	case DirWhole:
		return "whole"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// GeneValue is one mutable position's replacement. When Delete is true the
// position's step is skipped entirely (the step becomes a no-op and its
// target is never bound) rather than being assigned Value; Value and Dir
// are ignored in that case.
type GeneValue struct {
	Value  symbolic.Value
	Dir    Direction
	Delete bool
}

// Gene maps a flattened program position to its replacement. Positions not
// present in the map run unmodified.
type Gene map[int]GeneValue

// StepKind discriminates the cases of a flattened Step.
type StepKind int

const (
	StepNop StepKind = iota
	StepAssign
	StepEnterCall
	StepExitCall
)

// Step is one position of a flattened program. EnterCall/ExitCall pairs
// bracket an inlined callee's own steps, which appear between them in the
// flattened slice — this is what lets Run apply owner-scope Push/Pop at
// exactly the right points and lets a Whole-direction gene bypass an entire
// call body by skipping to its matching ExitCall.
type Step struct {
	Kind StepKind

	// StepAssign
	Target symbolic.Symbol
	RHS    symbolic.Value
	IsSafe bool

	// StepEnterCall / StepExitCall
	Call      symbolic.Call
	IsMutable bool
}

// CallResolver looks up the body of an inlined template invocation. It is
// asked only for the callee's own (unflattened) steps — argument binding is
// the caller's responsibility, performed by Run against the live state once
// EnterCall is reached.
type CallResolver interface {
	Steps(call symbolic.Call) ([]symbolic.Value, error)
}

// Flatten expands a trace that may contain AssignCall nodes into a single
// sequential program with explicit call boundaries. Nesting depth here is
// bounded by template-instantiation depth (not expression size), so plain
// recursion is appropriate, unlike symbolic.Eval's expression walk.
func Flatten(steps []symbolic.Value, resolver CallResolver) ([]Step, error) {
	var out []Step
	var walk func([]symbolic.Value) error
	walk = func(steps []symbolic.Value) error {
		for _, raw := range steps {
			switch s := raw.(type) {
			case symbolic.Nop:
				out = append(out, Step{Kind: StepNop})
			case symbolic.Assign:
				out = append(out, Step{Kind: StepAssign, Target: s.Target, RHS: s.RHS, IsSafe: s.IsSafe})
			case symbolic.AssignCall:
				call, ok := s.Call.(symbolic.Call)
				if !ok {
					return fmt.Errorf("trace: Flatten: AssignCall %s has unresolved call value %T", s.Target, s.Call)
				}
				out = append(out, Step{Kind: StepEnterCall, Target: s.Target, Call: call, IsMutable: s.IsMutable})
				if resolver != nil {
					body, err := resolver.Steps(call)
					if err != nil {
						return fmt.Errorf("trace: Flatten: resolving call %q: %w", call.ID, err)
					}
					if err := walk(body); err != nil {
						return err
					}
				}
				out = append(out, Step{Kind: StepExitCall, Target: s.Target})
			default:
				return fmt.Errorf("trace: Flatten: unexpected top-level trace value %T", raw)
			}
		}
		return nil
	}
	if err := walk(steps); err != nil {
		return nil, err
	}
	return out, nil
}

// MutablePositions returns the program indices a gene may legally target:
// every non-safe Assign and every mutable call-entry site.
func MutablePositions(program []Step) []int {
	var positions []int
	for i, step := range program {
		switch step.Kind {
		case StepAssign:
			if !step.IsSafe {
				positions = append(positions, i)
			}
		case StepEnterCall:
			if step.IsMutable {
				positions = append(positions, i)
			}
		}
	}
	return positions
}

// Run replays program to completion, applying gene at its targeted
// positions, and returns the resulting state. A field error (e.g. a strict
// division by zero) is not returned as a Go error: it marks the state
// Failed and stops emulation there, since the mutation engine treats a
// dead-end trace as a low-fitness outcome rather than a hard failure.
// log may be nil.
func Run(program []Step, gene Gene, p *big.Int, cfg field.Config, log *zerolog.Logger) (*state.State, error) {
	st := state.New()
	skipDepth := 0

	for i, step := range program {
		if skipDepth > 0 {
			switch step.Kind {
			case StepEnterCall:
				skipDepth++
			case StepExitCall:
				skipDepth--
			}
			continue
		}

		switch step.Kind {
		case StepNop:
			st.RecordStep(symbolic.Nop{})

		case StepAssign:
			rhs := step.RHS
			if gv, ok := gene[i]; ok {
				if step.IsSafe {
					return nil, fmt.Errorf("trace: Run: position %d is marked IsSafe and cannot be mutated", i)
				}
				if gv.Delete {
					st.RecordStep(symbolic.Nop{})
					logStep(log, i, step.Target, "step deleted by gene", nil)
					continue
				}
				var err error
				rhs, err = applyDirection(rhs, gv)
				if err != nil {
					return nil, fmt.Errorf("trace: Run: position %d: %w", i, err)
				}
			}
			val, err := symbolic.Eval(rhs, st.Bindings(), p, cfg)
			if err != nil {
				logStep(log, i, step.Target, "assign failed", err)
				st.Fail(err.Error())
				return st, nil
			}
			st.Bind(step.Target, val)
			st.RecordStep(symbolic.Assign{Target: step.Target, RHS: val, IsSafe: step.IsSafe})
			logStep(log, i, step.Target, "assign", nil)

		case StepEnterCall:
			if gv, ok := gene[i]; ok {
				if !step.IsMutable {
					return nil, fmt.Errorf("trace: Run: position %d (call %q) is not mutable", i, step.Call.ID)
				}
				if gv.Delete {
					st.RecordStep(symbolic.Nop{})
					logStep(log, i, step.Target, "call deleted by gene", nil)
					skipDepth = 1
					continue
				}
				if gv.Dir != DirWhole {
					return nil, fmt.Errorf("trace: Run: position %d (call %q) requires direction whole, got %s", i, step.Call.ID, gv.Dir)
				}
				val, err := symbolic.Eval(gv.Value, st.Bindings(), p, cfg)
				if err != nil {
					logStep(log, i, step.Target, "call bypass failed", err)
					st.Fail(err.Error())
					return st, nil
				}
				st.Bind(step.Target, val)
				st.RecordStep(symbolic.Assign{Target: step.Target, RHS: val, IsSafe: false})
				logStep(log, i, step.Target, "call bypassed by gene", nil)
				skipDepth = 1
				continue
			}
			st.Push(step.Call.ID)
			st.RecordStep(step.Call)

		case StepExitCall:
			st.Pop()
		}
	}
	return st, nil
}

// SeedAssignment binds a symbol before a program runs, recorded as an
// ordinary IsSafe Assign step so it flows through Run unchanged.
type SeedAssignment struct {
	Symbol symbolic.Symbol
	Value  symbolic.Value
}

// Seed returns a copy of program prefixed with one IsSafe Assign per entry
// of seed, in order. This is how callers (mutation, bruteforce, cmd/zkfuzz
// check) inject input
// values without Run needing a separate initial-bindings parameter —
// positions computed on the seeded slice (via MutablePositions) stay valid
// as long as Run is always called on that same seeded slice.
func Seed(seed []SeedAssignment, program []Step) []Step {
	out := make([]Step, 0, len(seed)+len(program))
	for _, s := range seed {
		out = append(out, Step{Kind: StepAssign, Target: s.Symbol, RHS: s.Value, IsSafe: true})
	}
	return append(out, program...)
}

func applyDirection(rhs symbolic.Value, gv GeneValue) (symbolic.Value, error) {
	switch gv.Dir {
	case DirWhole:
		return gv.Value, nil
	case DirLeft, DirRight:
		bo, ok := rhs.(symbolic.BinOp)
		if !ok {
			return nil, fmt.Errorf("direction %s requires a binary-operator position, got %T", gv.Dir, rhs)
		}
		if gv.Dir == DirLeft {
			return symbolic.BinOp{Op: bo.Op, LHS: gv.Value, RHS: bo.RHS}, nil
		}
		return symbolic.BinOp{Op: bo.Op, LHS: bo.LHS, RHS: gv.Value}, nil
	default:
		return nil, fmt.Errorf("unknown direction %v", gv.Dir)
	}
}

func logStep(log *zerolog.Logger, i int, target symbolic.Symbol, msg string, err error) {
	if log == nil {
		return
	}
	ev := log.Debug().Int("pos", i).Str("target", target.Key())
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg(msg)
}
