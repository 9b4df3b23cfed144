// Package state implements the symbolic execution state threaded through
// trace emulation: an owner-scoped binding environment, the accumulated
// trace of assignment/call steps, the side-constraints gathered along the
// way, a nesting-depth counter, and a failure flag (spec.md §3, "Symbolic
// state").
package state

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"

	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
)

// State is the mutable context a trace emulation step runs against.
type State struct {
	bindings         symbolic.Binding
	owner            []symbolic.OwnerFrame
	instanceCounters map[string]int

	trace           []symbolic.Value
	sideConstraints []symbolic.Value

	depth  int
	failed bool
	reason string
}

// New returns an empty root-scope state.
func New() *State {
	return &State{
		bindings:         symbolic.Binding{},
		instanceCounters: map[string]int{},
	}
}

// Push enters a new component instance of the given template, returning the
// owner frame so the caller can later Pop back out. Sibling invocations of
// the same template at the same nesting point get distinct Counter values,
// which is what keeps their symbols from colliding once inlined into a
// single flat trace.
func (s *State) Push(templateID string) symbolic.OwnerFrame {
	key := s.counterKey(templateID)
	n := s.instanceCounters[key]
	s.instanceCounters[key] = n + 1

	frame := symbolic.OwnerFrame{TemplateID: templateID, Counter: n}
	s.owner = append(s.owner, frame)
	s.depth++
	return frame
}

// Pop leaves the most recently entered component instance.
func (s *State) Pop() {
	if len(s.owner) == 0 {
		return
	}
	s.owner = s.owner[:len(s.owner)-1]
	s.depth--
}

func (s *State) counterKey(templateID string) string {
	key := templateID
	for _, f := range s.owner {
		key = f.String() + ">" + key
	}
	return key
}

// Depth reports the current owner-scope nesting depth.
func (s *State) Depth() int { return s.depth }

// Owner returns a copy of the current owner-scope path, suitable for
// building new symbolic.Symbol values at this scope.
func (s *State) Owner() []symbolic.OwnerFrame {
	out := make([]symbolic.OwnerFrame, len(s.owner))
	copy(out, s.owner)
	return out
}

// Symbol builds a symbol for base at the current owner scope.
func (s *State) Symbol(base string) symbolic.Symbol {
	return symbolic.NewSymbol(s.Owner(), base)
}

// Bind records sym = v.
func (s *State) Bind(sym symbolic.Symbol, v symbolic.Value) {
	s.bindings.Bind(sym, v)
}

// Lookup resolves sym in the current bindings.
func (s *State) Lookup(sym symbolic.Symbol) (symbolic.Value, bool) {
	return s.bindings.Lookup(sym)
}

// Bindings exposes the raw binding map for the evaluator.
func (s *State) Bindings() symbolic.Binding { return s.bindings }

// SortedBindingKeys returns the bound symbol keys in deterministic order,
// used anywhere output (logging, checkpointing, gene indexing) must not
// depend on Go's randomised map iteration.
func (s *State) SortedBindingKeys() []string {
	keys := maps.Keys(s.bindings)
	sort.Strings(keys)
	return keys
}

// RecordStep appends a step (Assign, Nop, or the Call an inlined call
// entered) to the trace.
func (s *State) RecordStep(step symbolic.Value) {
	s.trace = append(s.trace, step)
}

// Trace returns the recorded trace steps in execution order.
func (s *State) Trace() []symbolic.Value { return s.trace }

// RecordConstraint appends a side constraint (a boolean-valued symbolic
// expression the constraint system must separately satisfy).
func (s *State) RecordConstraint(c symbolic.Value) {
	s.sideConstraints = append(s.sideConstraints, c)
}

// SideConstraints returns the accumulated side constraints.
func (s *State) SideConstraints() []symbolic.Value { return s.sideConstraints }

// Fail marks the state as having hit a dead end (e.g. a strict
// division-by-zero) with a reason for diagnostics.
func (s *State) Fail(reason string) {
	s.failed = true
	s.reason = reason
}

// Failed reports whether Fail was ever called.
func (s *State) Failed() bool { return s.failed }

// FailureReason returns the last reason passed to Fail, or "" if not
// Failed().
func (s *State) FailureReason() string { return s.reason }

// Clone returns a deep-enough copy for independent forked evaluation: the
// binding map, trace and constraint slices are copied so mutating the clone
// never affects the original, while the symbolic.Value trees themselves are
// shared (they are immutable once built).
func (s *State) Clone() *State {
	clone := &State{
		bindings:         make(symbolic.Binding, len(s.bindings)),
		instanceCounters: make(map[string]int, len(s.instanceCounters)),
		owner:            s.Owner(),
		depth:            s.depth,
		failed:           s.failed,
		reason:           s.reason,
	}
	for k, v := range s.bindings {
		clone.bindings[k] = v
	}
	for k, v := range s.instanceCounters {
		clone.instanceCounters[k] = v
	}
	clone.trace = append([]symbolic.Value(nil), s.trace...)
	clone.sideConstraints = append([]symbolic.Value(nil), s.sideConstraints...)
	return clone
}

func (s *State) String() string {
	return fmt.Sprintf("state{depth=%d steps=%d constraints=%d failed=%v}",
		s.depth, len(s.trace), len(s.sideConstraints), s.failed)
}
