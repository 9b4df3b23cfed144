package symbolic

import (
	"fmt"
	"strings"
)

// OwnerFrame is one level of the owner-scope stack a symbol was declared
// under: a component instance identified by its template id and the
// invocation counter that disambiguates sibling instances of the same
// template (spec.md §3, "owner-scoped binding").
type OwnerFrame struct {
	TemplateID string
	Counter    int
}

func (f OwnerFrame) String() string {
	return fmt.Sprintf("%s#%d", f.TemplateID, f.Counter)
}

// Symbol is a fully-qualified variable name: an owner-scope path, a base
// identifier, and an optional index-access path (spec.md §3 allows constant
// or symbolic indices; symbolic indices are rendered through Value's
// canonical string form so two symbols with equal index *values* collide
// deliberately — this is what lets the trace emulator rebind "arr[i]" after
// i has been resolved to a constant).
//
// Symbol is intentionally not Go-comparable (it holds a slice of Value,
// which may itself hold slices): use Key() as the map key everywhere a
// Binding needs one, which is exactly what this package's Binding type
// does.
type Symbol struct {
	Owner []OwnerFrame
	Base  string
	Index []Value
}

// NewSymbol builds a bare (unindexed) symbol in the given owner scope.
func NewSymbol(owner []OwnerFrame, base string) Symbol {
	return Symbol{Owner: owner, Base: base}
}

// Indexed returns a copy of s with one more index-access component appended,
// used when walking into an Array value (spec.md §4.2, "array index-path
// depth-first walk").
func (s Symbol) Indexed(idx Value) Symbol {
	next := make([]Value, len(s.Index)+1)
	copy(next, s.Index)
	next[len(s.Index)] = idx
	return Symbol{Owner: s.Owner, Base: s.Base, Index: next}
}

// Key returns the canonical structural-equality key for s. Two symbols with
// equal owner path, base identifier and index values produce identical
// keys, regardless of how each Value in Index is represented in memory.
func (s Symbol) Key() string {
	var b strings.Builder
	for _, f := range s.Owner {
		b.WriteString(f.String())
		b.WriteByte('.')
	}
	b.WriteString(s.Base)
	for _, idx := range s.Index {
		b.WriteByte('[')
		b.WriteString(Render(idx))
		b.WriteByte(']')
	}
	return b.String()
}

func (s Symbol) String() string { return s.Key() }

// Render produces a deterministic, human-readable and canonical textual
// form of v, used both for debug logging and as the structural-equality
// encoding inside Symbol.Key.
func Render(v Value) string {
	switch t := v.(type) {
	case ConstInt:
		return t.V.String()
	case ConstBool:
		if t.V {
			return "true"
		}
		return "false"
	case Var:
		return t.Name.Key()
	case BinOp:
		return fmt.Sprintf("(%s %s %s)", Render(t.LHS), t.Op, Render(t.RHS))
	case UnOp:
		return fmt.Sprintf("(%s %s)", t.Op, Render(t.X))
	case Conditional:
		return fmt.Sprintf("(%s ? %s : %s)", Render(t.Cond), Render(t.Then), Render(t.Else))
	case Array:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = Render(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case Assign:
		return fmt.Sprintf("(%s := %s)", t.Target.Key(), Render(t.RHS))
	case AssignCall:
		return fmt.Sprintf("(%s := %s)", t.Target.Key(), Render(t.Call))
	case Nop:
		return "nop"
	case Call:
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = Render(a)
		}
		return t.ID + "(" + strings.Join(parts, ",") + ")"
	default:
		return fmt.Sprintf("<?%T>", v)
	}
}
