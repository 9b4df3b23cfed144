// Package archive defines the contract types spec.md §6 assigns to the
// parser/executor collaborator: a ProgramArchive of compiled templates plus
// the symbol-interning/template-lookup/call-counting library the trace
// emulator consults while inlining calls. The core never parses or compiles
// a circuit language itself (spec.md Non-goal) — it only consumes archives
// built by a caller or by a test fixture.
package archive

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/blang/semver/v4"

	"github.com/zkfuzz-go/zkfuzz/internal/field"
	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
)

// FormatVersion is the contract version embedded in every ProgramArchive.
// Bumping the minor component signals an additively-compatible change (a new
// optional Template field); bumping major signals a breaking one. Consumers
// should refuse an archive whose major component they don't recognise.
var FormatVersion = semver.MustParse("1.0.0")

// Template is one compiled template: parameters, its flattened-but-not-yet-
// inlined body, declared input and output symbols, and dimension
// expressions for any output whose size depends on the template's
// parameters (spec.md §4.2 index enumeration).
type Template struct {
	Name       string
	Params     []string
	Body       []symbolic.Value
	Inputs     []symbolic.Symbol
	Outputs    []symbolic.Symbol
	Dimensions map[string]symbolic.Value // output base name -> length expression
}

// CallSite identifies one inlining point during emulation: which template is
// being instantiated and with what argument values.
type CallSite struct {
	TemplateName string
	Args         []symbolic.Value
}

// ExpandOutputs evaluates each declared output's dimension expression (if
// any) and returns the fully-indexed set of output symbols a multi-
// dimensional signal actually occupies, per spec.md §4.2. An output absent
// from Dimensions is returned unchanged (scalar).
func ExpandOutputs(t *Template, p *big.Int, cfg field.Config) ([]symbolic.Symbol, error) {
	var out []symbolic.Symbol
	for _, base := range t.Outputs {
		dim, ok := t.Dimensions[base.Base]
		if !ok {
			out = append(out, base)
			continue
		}
		v, err := symbolic.Eval(dim, symbolic.Binding{}, p, cfg)
		if err != nil {
			return nil, fmt.Errorf("archive: evaluating dimension of %s: %w", base.Base, err)
		}
		n, ok := v.(symbolic.ConstInt)
		if !ok {
			return nil, fmt.Errorf("archive: dimension of %s did not fold to a constant", base.Base)
		}
		length := n.V.Int64()
		for i := int64(0); i < length; i++ {
			out = append(out, base.Indexed(symbolic.Int(i)))
		}
	}
	return out, nil
}

// SymbolLibrary is the interning/template-lookup/call-counter collaborator
// spec.md §6 names. Per spec.md §5 the reference design is single-threaded:
// the library is read-mostly and is only written to when the emulator
// inlines a callee it has not seen before, so no locking is needed as long
// as callers either run serially or pre-expand all inlinings before
// parallelising (internal/mutation's parallel_fitness path does the latter).
type SymbolLibrary struct {
	nameToID   map[string]int
	idToName   []string
	templates  map[string]*Template
	callCounts map[string]int
}

// NewSymbolLibrary returns an empty library.
func NewSymbolLibrary() *SymbolLibrary {
	return &SymbolLibrary{
		nameToID:   map[string]int{},
		templates:  map[string]*Template{},
		callCounts: map[string]int{},
	}
}

// Intern returns name's id, assigning a fresh one on first occurrence.
func (l *SymbolLibrary) Intern(name string) int {
	if id, ok := l.nameToID[name]; ok {
		return id
	}
	id := len(l.idToName)
	l.nameToID[name] = id
	l.idToName = append(l.idToName, name)
	return id
}

// Name resolves an id back to its interned string, if any.
func (l *SymbolLibrary) Name(id int) (string, bool) {
	if id < 0 || id >= len(l.idToName) {
		return "", false
	}
	return l.idToName[id], true
}

// RegisterTemplate adds (or replaces) a template in the library, keyed by
// name, and interns its name.
func (l *SymbolLibrary) RegisterTemplate(t *Template) {
	l.Intern(t.Name)
	l.templates[t.Name] = t
}

// TemplateByName looks up a previously registered template.
func (l *SymbolLibrary) TemplateByName(name string) (*Template, bool) {
	t, ok := l.templates[name]
	return t, ok
}

// CallCount returns how many times templateName has been inlined so far.
func (l *SymbolLibrary) CallCount(templateName string) int {
	return l.callCounts[templateName]
}

// NextCallCount increments and returns templateName's inlining counter, used
// to disambiguate sibling instantiations the same way internal/state's
// OwnerFrame counters do.
func (l *SymbolLibrary) NextCallCount(templateName string) int {
	l.callCounts[templateName]++
	return l.callCounts[templateName]
}

// Steps implements trace.CallResolver: resolving an inlined call to its
// callee's compiled body, and bumping that callee's call counter as a side
// effect of the lookup (mirroring the recorder's own bookkeeping, so a
// caller never has to remember to call NextCallCount itself).
func (l *SymbolLibrary) Steps(call symbolic.Call) ([]symbolic.Value, error) {
	t, ok := l.TemplateByName(call.ID)
	if !ok {
		return nil, fmt.Errorf("archive: unresolved call to template %q", call.ID)
	}
	l.NextCallCount(call.ID)
	return t.Body, nil
}

// ProgramArchive is the root contract object: a name-keyed set of compiled
// templates plus the call expression to begin emulation from.
// CheckCompatible tests FormatVersion's major component; no core package
// calls it.
type ProgramArchive struct {
	FormatVersion semver.Version
	Templates     map[string]*Template
	EntryCall     symbolic.Value
}

// NewProgramArchive returns an archive stamped with the current
// FormatVersion and an empty template set.
func NewProgramArchive(entryCall symbolic.Value) *ProgramArchive {
	return &ProgramArchive{
		FormatVersion: FormatVersion,
		Templates:     map[string]*Template{},
		EntryCall:     entryCall,
	}
}

// AddTemplate registers t under its own name, overwriting any prior
// template of the same name.
func (a *ProgramArchive) AddTemplate(t *Template) {
	a.Templates[t.Name] = t
}

// Template looks up a registered template by name.
func (a *ProgramArchive) Template(name string) (*Template, bool) {
	t, ok := a.Templates[name]
	return t, ok
}

// Library builds a SymbolLibrary pre-populated with every template in the
// archive, in sorted name order so interning ids are reproducible across
// runs of the same archive (spec.md §5 determinism requirement).
func (a *ProgramArchive) Library() *SymbolLibrary {
	lib := NewSymbolLibrary()
	for _, name := range a.sortedTemplateNames() {
		lib.RegisterTemplate(a.Templates[name])
	}
	return lib
}

// CheckCompatible reports an error if a's FormatVersion has a major
// component the caller does not expect, per the forward-compatibility
// contract FormatVersion exists to guard.
func CheckCompatible(a *ProgramArchive, expectedMajor uint64) error {
	if a.FormatVersion.Major != expectedMajor {
		return fmt.Errorf("archive: format version %s is incompatible with expected major version %d", a.FormatVersion, expectedMajor)
	}
	return nil
}

func (a *ProgramArchive) sortedTemplateNames() []string {
	names := make([]string, 0, len(a.Templates))
	for n := range a.Templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
