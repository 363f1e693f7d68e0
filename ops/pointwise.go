package ops

import (
	"math"

	"github.com/factorlab/factorexpr/ast"
)

// binaryEvaluator applies a two-argument pointwise function to its
// children's outputs on every tick. Its ready offset is the max of its
// children's, matching every other pointwise operator in the tree.
type binaryEvaluator struct {
	sticky
	left, right Evaluator
	fn          func(l, r float64) float64
}

func (b *binaryEvaluator) Next(row Row) float64 {
	l := b.left.Next(row)
	r := b.right.Next(row)
	if (math.IsNaN(l) && !b.left.Failed()) || (math.IsNaN(r) && !b.right.Failed()) {
		return nan()
	}
	return b.check(b.fn(l, r))
}

func (b *binaryEvaluator) ReadyOffset() int {
	return maxInt(b.left.ReadyOffset(), b.right.ReadyOffset())
}

// unaryEvaluator applies a one-argument pointwise function.
type unaryEvaluator struct {
	sticky
	child Evaluator
	fn    func(v float64) float64
}

func (u *unaryEvaluator) Next(row Row) float64 {
	v := u.child.Next(row)
	if math.IsNaN(v) && !u.child.Failed() {
		return nan()
	}
	return u.check(u.fn(v))
}

func (u *unaryEvaluator) ReadyOffset() int { return u.child.ReadyOffset() }

func buildArithmetic(tree *ast.Node) (Evaluator, error) {
	children, err := buildChildren(tree)
	if err != nil {
		return nil, err
	}
	var fn func(l, r float64) float64
	switch tree.Name {
	case "+":
		fn = func(l, r float64) float64 { return l + r }
	case "-":
		fn = func(l, r float64) float64 { return l - r }
	case "*":
		fn = func(l, r float64) float64 { return l * r }
	case "/":
		// Division by zero fails the factor rather than being fudged
		// toward an epsilon-scaled result: a zero denominator makes the
		// ratio meaningless, not merely large.
		fn = func(l, r float64) float64 {
			if r == 0 {
				return nan()
			}
			return l / r
		}
	}
	return &binaryEvaluator{left: children[0], right: children[1], fn: fn}, nil
}

// buildPow handles both "^" and "SPow": constant exponent (a non-negative
// integer for "^", checked by the parser), signed input. SPow preserves the sign of its base through an odd or fractional
// exponent (sign(x) * |x|^p), matching the reference's "signed power" used
// for shrinking or stretching factor magnitude without discarding sign.
func buildPow(tree *ast.Node) (Evaluator, error) {
	exponent := tree.Args[0].Value
	child, err := Build(tree.Args[1])
	if err != nil {
		return nil, err
	}
	var fn func(v float64) float64
	if tree.Name == "^" {
		fn = func(v float64) float64 { return math.Pow(v, exponent) }
	} else {
		fn = func(v float64) float64 {
			return math.Copysign(math.Pow(math.Abs(v), exponent), v)
		}
	}
	return &unaryEvaluator{child: child, fn: fn}, nil
}

func buildUnary(tree *ast.Node) (Evaluator, error) {
	child, err := Build(tree.Args[0])
	if err != nil {
		return nil, err
	}
	var fn func(v float64) float64
	switch tree.Name {
	case "Neg":
		fn = func(v float64) float64 { return -v }
	case "Abs":
		fn = math.Abs
	case "Sign":
		fn = func(v float64) float64 {
			switch {
			case v > 0:
				return 1
			case v < 0:
				return -1
			default:
				return 0
			}
		}
	case "LogAbs":
		// No epsilon fudge at zero: log(0) is -Inf, which the sticky
		// check below turns into a permanent failure, matching the
		// documented treatment of a literal zero as unrepresentable.
		fn = func(v float64) float64 { return math.Log(math.Abs(v)) }
	}
	return &unaryEvaluator{child: child, fn: fn}, nil
}

// ifEvaluator and the boolean operators below (And, Or, !) pass their
// children's values straight through without an extra sticky check of
// their own: a child that has already failed is already emitting NaN, and
// re-checking it here would be redundant, not more correct. Comparisons
// are built on binaryEvaluator and so do carry its sticky check.
type ifEvaluator struct {
	cond, then, els Evaluator
}

func (e *ifEvaluator) Next(row Row) float64 {
	c := e.cond.Next(row)
	t := e.then.Next(row)
	f := e.els.Next(row)
	if math.IsNaN(c) {
		return nan()
	}
	if c > 0 {
		return t
	}
	return f
}

func (e *ifEvaluator) ReadyOffset() int {
	return maxInt(e.cond.ReadyOffset(), maxInt(e.then.ReadyOffset(), e.els.ReadyOffset()))
}

// Failed reports whether any child has failed: If has no sticky state of
// its own, so it fails exactly when the branch(es) it read from did.
func (e *ifEvaluator) Failed() bool {
	return e.cond.Failed() || e.then.Failed() || e.els.Failed()
}

func buildIf(tree *ast.Node) (Evaluator, error) {
	children, err := buildChildren(tree)
	if err != nil {
		return nil, err
	}
	return &ifEvaluator{cond: children[0], then: children[1], els: children[2]}, nil
}

type boolEvaluator struct {
	left, right Evaluator
	fn          func(l, r bool) bool
}

func (b *boolEvaluator) Next(row Row) float64 {
	l := b.left.Next(row)
	r := b.right.Next(row)
	if math.IsNaN(l) || math.IsNaN(r) {
		return nan()
	}
	if b.fn(l > 0, r > 0) {
		return 1
	}
	return 0
}

func (b *boolEvaluator) ReadyOffset() int {
	return maxInt(b.left.ReadyOffset(), b.right.ReadyOffset())
}

func (b *boolEvaluator) Failed() bool { return b.left.Failed() || b.right.Failed() }

func buildBoolBinary(tree *ast.Node) (Evaluator, error) {
	children, err := buildChildren(tree)
	if err != nil {
		return nil, err
	}
	var fn func(l, r bool) bool
	if tree.Name == "And" {
		fn = func(l, r bool) bool { return l && r }
	} else {
		fn = func(l, r bool) bool { return l || r }
	}
	return &boolEvaluator{left: children[0], right: children[1], fn: fn}, nil
}

type notEvaluator struct {
	child Evaluator
}

func (n *notEvaluator) Next(row Row) float64 {
	v := n.child.Next(row)
	if math.IsNaN(v) {
		return nan()
	}
	if v > 0 {
		return 0
	}
	return 1
}

// Not adds no warm-up of its own; it inherits its child's, since a NaN
// input (still warming up) must stay NaN rather than turn into 1.
func (n *notEvaluator) ReadyOffset() int { return n.child.ReadyOffset() }

func (n *notEvaluator) Failed() bool { return n.child.Failed() }

func buildNot(tree *ast.Node) (Evaluator, error) {
	child, err := Build(tree.Args[0])
	if err != nil {
		return nil, err
	}
	return &notEvaluator{child: child}, nil
}

func buildComparison(tree *ast.Node) (Evaluator, error) {
	children, err := buildChildren(tree)
	if err != nil {
		return nil, err
	}
	var fn func(l, r float64) bool
	switch tree.Name {
	case "<":
		fn = func(l, r float64) bool { return l < r }
	case "<=":
		fn = func(l, r float64) bool { return l <= r }
	case ">":
		fn = func(l, r float64) bool { return l > r }
	case ">=":
		fn = func(l, r float64) bool { return l >= r }
	case "==":
		fn = func(l, r float64) bool { return l == r }
	}
	return &binaryEvaluator{left: children[0], right: children[1], fn: func(l, r float64) float64 {
		if math.IsNaN(l) || math.IsNaN(r) {
			return nan()
		}
		if fn(l, r) {
			return 1
		}
		return 0
	}}, nil
}
