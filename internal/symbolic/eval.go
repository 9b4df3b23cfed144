package symbolic

import (
	"fmt"
	"math/big"

	"github.com/zkfuzz-go/zkfuzz/internal/field"
)

// Binding maps a symbol's canonical Key() to its current value. It is the
// partial-evaluator's substitution environment; package state builds on top
// of it with owner-scope bookkeeping.
type Binding map[string]Value

// Lookup resolves sym against b, reporting whether a binding exists.
func (b Binding) Lookup(sym Symbol) (Value, bool) {
	v, ok := b[sym.Key()]
	return v, ok
}

// Bind records sym = v in b.
func (b Binding) Bind(sym Symbol, v Value) {
	b[sym.Key()] = v
}

// evalFrame is one node's progress through Eval's iterative post-order walk.
// Every case below is a tiny state machine driven by state, so deeply
// nested expressions (spec.md §4.2's "recursive traversal depth" concern)
// never grow the Go call stack.
type evalFrame struct {
	node    Value
	state   int
	results []Value
}

// Eval partially evaluates v against bindings b in field p: constant
// sub-expressions fold to ConstInt/ConstBool, sub-expressions that still
// reference an unbound Var are returned unevaluated (but with their own
// evaluable children folded), matching spec.md §4.2's partial-evaluation
// contract. cfg controls the field's division-by-zero policy.
func Eval(v Value, b Binding, p *big.Int, cfg field.Config) (Value, error) {
	stack := []*evalFrame{{node: v}}

	for {
		top := stack[len(stack)-1]

		var (
			result Value
			done   bool
			err    error
		)

		switch n := top.node.(type) {
		case ConstInt:
			result, done = ConstInt{V: field.Reduce(n.V, p)}, true

		case ConstBool:
			result, done = n, true

		case Nop:
			result, done = n, true

		case Var:
			if val, ok := b.Lookup(n.Name); ok {
				result, done = val, true
			} else {
				result, done = n, true
			}

		case UnOp:
			if top.state == 0 {
				top.state = 1
				stack = append(stack, &evalFrame{node: n.X})
				continue
			}
			result, err = applyUnOp(n.Op, top.results[0], p, cfg)
			done = true

		case BinOp:
			switch top.state {
			case 0:
				top.state = 1
				stack = append(stack, &evalFrame{node: n.LHS})
				continue
			case 1:
				top.state = 2
				stack = append(stack, &evalFrame{node: n.RHS})
				continue
			default:
				result, err = applyBinOp(n.Op, top.results[0], top.results[1], p, cfg)
				done = true
			}

		case Conditional:
			switch top.state {
			case 0:
				top.state = 1
				stack = append(stack, &evalFrame{node: n.Cond})
				continue
			case 1:
				if cb, ok := top.results[0].(ConstBool); ok {
					if cb.V {
						top.state = 2 // decided-true: one more child (Then)
						stack = append(stack, &evalFrame{node: n.Then})
					} else {
						top.state = 3 // decided-false: one more child (Else)
						stack = append(stack, &evalFrame{node: n.Else})
					}
					continue
				}
				// Condition stays symbolic: fold both branches so the
				// result is still as simplified as possible.
				top.state = 4
				stack = append(stack, &evalFrame{node: n.Then})
				continue
			case 2, 3:
				result, done = top.results[1], true
			case 4:
				top.state = 5
				stack = append(stack, &evalFrame{node: n.Else})
				continue
			default:
				result = Conditional{Cond: top.results[0], Then: top.results[1], Else: top.results[2]}
				done = true
			}

		case Array:
			if top.state < len(n.Elems) {
				stack = append(stack, &evalFrame{node: n.Elems[top.state]})
				top.state++
				continue
			}
			elems := make([]Value, len(top.results))
			copy(elems, top.results)
			result, done = Array{Elems: elems}, true

		case Assign:
			if top.state == 0 {
				top.state = 1
				stack = append(stack, &evalFrame{node: n.RHS})
				continue
			}
			result, done = Assign{Target: n.Target, RHS: top.results[0], IsSafe: n.IsSafe}, true

		case AssignCall:
			if top.state == 0 {
				top.state = 1
				stack = append(stack, &evalFrame{node: n.Call})
				continue
			}
			result, done = AssignCall{Target: n.Target, Call: top.results[0], IsMutable: n.IsMutable}, true

		case Call:
			if top.state < len(n.Args) {
				stack = append(stack, &evalFrame{node: n.Args[top.state]})
				top.state++
				continue
			}
			args := make([]Value, len(top.results))
			copy(args, top.results)
			result, done = Call{ID: n.ID, Args: args}, true

		default:
			return nil, fmt.Errorf("symbolic: Eval: unhandled node type %T", n)
		}

		if err != nil {
			return nil, err
		}
		if !done {
			continue
		}

		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return result, nil
		}
		parent := stack[len(stack)-1]
		parent.results = append(parent.results, result)
	}
}

func applyUnOp(op UnOpcode, x Value, p *big.Int, cfg field.Config) (Value, error) {
	switch op {
	case OpNeg:
		if xi, ok := x.(ConstInt); ok {
			return ConstInt{V: field.Sub(big.NewInt(0), xi.V, p)}, nil
		}
		return UnOp{Op: op, X: x}, nil
	case OpNot:
		if xb, ok := x.(ConstBool); ok {
			return ConstBool{V: !xb.V}, nil
		}
		return UnOp{Op: op, X: x}, nil
	case OpBitNot:
		if xi, ok := x.(ConstInt); ok {
			pMinus1 := new(big.Int).Sub(p, big.NewInt(1))
			return ConstInt{V: field.Sub(pMinus1, xi.V, p)}, nil
		}
		return UnOp{Op: op, X: x}, nil
	default:
		return nil, fmt.Errorf("symbolic: unknown unary operator %q", op)
	}
}

func applyBinOp(op BinOpcode, l, r Value, p *big.Int, cfg field.Config) (Value, error) {
	li, lIsInt := l.(ConstInt)
	ri, rIsInt := r.(ConstInt)
	lb, lIsBool := l.(ConstBool)
	rb, rIsBool := r.(ConstBool)

	switch op {
	case OpBoolAnd:
		if lIsBool && rIsBool {
			return ConstBool{V: lb.V && rb.V}, nil
		}
		return BinOp{Op: op, LHS: l, RHS: r}, nil
	case OpBoolOr:
		if lIsBool && rIsBool {
			return ConstBool{V: lb.V || rb.V}, nil
		}
		return BinOp{Op: op, LHS: l, RHS: r}, nil
	case OpEq:
		if lIsInt && rIsInt {
			return ConstBool{V: field.Reduce(li.V, p).Cmp(field.Reduce(ri.V, p)) == 0}, nil
		}
		if lIsBool && rIsBool {
			return ConstBool{V: lb.V == rb.V}, nil
		}
		return BinOp{Op: op, LHS: l, RHS: r}, nil
	case OpNe:
		if lIsInt && rIsInt {
			return ConstBool{V: field.Reduce(li.V, p).Cmp(field.Reduce(ri.V, p)) != 0}, nil
		}
		if lIsBool && rIsBool {
			return ConstBool{V: lb.V != rb.V}, nil
		}
		return BinOp{Op: op, LHS: l, RHS: r}, nil
	}

	// A folded boolean takes part in arithmetic as the field element 1
	// (true) or 0 (false), so a comparison's result can feed a product.
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpIntDiv, OpMod, OpPow:
		if lIsBool {
			li, lIsInt = ConstInt{V: big.NewInt(0)}, true
			if lb.V {
				li.V = big.NewInt(1)
			}
		}
		if rIsBool {
			ri, rIsInt = ConstInt{V: big.NewInt(0)}, true
			if rb.V {
				ri.V = big.NewInt(1)
			}
		}
	}

	if !lIsInt || !rIsInt {
		return BinOp{Op: op, LHS: l, RHS: r}, nil
	}

	switch op {
	case OpAdd:
		return ConstInt{V: field.Add(li.V, ri.V, p)}, nil
	case OpSub:
		return ConstInt{V: field.Sub(li.V, ri.V, p)}, nil
	case OpMul:
		return ConstInt{V: field.Mul(li.V, ri.V, p)}, nil
	case OpDiv:
		q, err := field.Div(li.V, ri.V, p, cfg)
		if err != nil {
			return nil, err
		}
		return ConstInt{V: q}, nil
	case OpIntDiv:
		return ConstInt{V: field.IntDiv(li.V, ri.V, p)}, nil
	case OpMod:
		return ConstInt{V: field.Mod(li.V, ri.V, p)}, nil
	case OpPow:
		return ConstInt{V: field.Pow(li.V, ri.V, p)}, nil
	case OpShl:
		n := uint(field.Reduce(ri.V, p).Uint64())
		return ConstInt{V: field.Reduce(new(big.Int).Lsh(field.Reduce(li.V, p), n), p)}, nil
	case OpShr:
		n := uint(field.Reduce(ri.V, p).Uint64())
		return ConstInt{V: field.Reduce(new(big.Int).Rsh(field.Reduce(li.V, p), n), p)}, nil
	case OpBitAnd:
		return ConstInt{V: field.Reduce(new(big.Int).And(field.Reduce(li.V, p), field.Reduce(ri.V, p)), p)}, nil
	case OpBitOr:
		return ConstInt{V: field.Reduce(new(big.Int).Or(field.Reduce(li.V, p), field.Reduce(ri.V, p)), p)}, nil
	case OpBitXor:
		return ConstInt{V: field.Reduce(new(big.Int).Xor(field.Reduce(li.V, p), field.Reduce(ri.V, p)), p)}, nil
	case OpLt:
		return ConstBool{V: field.Reduce(li.V, p).Cmp(field.Reduce(ri.V, p)) < 0}, nil
	case OpLe:
		return ConstBool{V: field.Reduce(li.V, p).Cmp(field.Reduce(ri.V, p)) <= 0}, nil
	case OpGt:
		return ConstBool{V: field.Reduce(li.V, p).Cmp(field.Reduce(ri.V, p)) > 0}, nil
	case OpGe:
		return ConstBool{V: field.Reduce(li.V, p).Cmp(field.Reduce(ri.V, p)) >= 0}, nil
	default:
		return nil, fmt.Errorf("symbolic: unknown binary operator %q", op)
	}
}
