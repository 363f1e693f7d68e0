// Package ops compiles an ast.Node operator tree into a graph of stateful,
// per-tick Evaluators. Each Evaluator consumes one input row at a time and
// produces one output value, carrying whatever window state its operator
// needs between ticks — this is what lets a factor be replayed over a
// stream of batches without ever re-reading rows it has already seen.
package ops

import (
	"fmt"
	"math"

	"github.com/factorlab/factorexpr/ast"
	"github.com/pkg/errors"
)

// Row is one tick's worth of named column values. Batches hand these to the
// compiled evaluator tree one at a time, in row order.
type Row interface {
	Get(column string) (float64, bool)
}

// Evaluator is a compiled operator node: it holds whatever state its
// operator needs (a window buffer, a monotonic deque, a running sum) and
// advances that state by exactly one row per Next call.
type Evaluator interface {
	// Next consumes one row and returns this node's value for it. Calls
	// during the warm-up period (before ReadyOffset ticks have been seen)
	// return NaN.
	Next(row Row) float64
	// ReadyOffset is the number of leading ticks whose output is always
	// NaN, regardless of input, purely because this node's state has not
	// filled yet.
	ReadyOffset() int
	// Failed reports whether this node has ever produced a non-finite
	// value outside its warm-up; the NaN it returns while warming up does
	// not count. Once true it stays true: every Next call from that point on
	// returns NaN regardless of input. Callers that need to know whether
	// a factor failed outright — not just warmed up — check the root
	// evaluator's Failed() after the last batch.
	Failed() bool
}

// sticky implements the once-failed-always-failed rule shared by every
// operator: the first non-finite value it is asked to check trips the
// evaluator permanently, and every value after that — no matter what the
// underlying computation produces — comes out as NaN.
type sticky struct {
	failed bool
}

func (s *sticky) check(v float64) float64 {
	if s.failed {
		return math.NaN()
	}
	if !isFinite(v) {
		s.failed = true
		return math.NaN()
	}
	return v
}

// Failed reports whether this node has ever tripped its sticky flag.
func (s *sticky) Failed() bool { return s.failed }

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Build compiles a parsed operator tree into an evaluator graph, wiring
// each ast.Node to the concrete Evaluator its operator name resolves to.
// Build assumes tree has already passed through parser.Parse and therefore
// carries only known operator names and correct arities.
func Build(tree *ast.Node) (Evaluator, error) {
	switch tree.Kind {
	case ast.Constant:
		return newConstantEvaluator(tree.Value), nil
	case ast.Column:
		return newColumnEvaluator(tree.Name), nil
	case ast.Call:
		return buildCall(tree)
	default:
		return nil, errors.Errorf("ops: unrecognized node kind %v", tree.Kind)
	}
}

func buildChildren(tree *ast.Node) ([]Evaluator, error) {
	children := make([]Evaluator, len(tree.Args))
	for i, a := range tree.Args {
		c, err := Build(a)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d of %s", i, tree.Name)
		}
		children[i] = c
	}
	return children, nil
}

func buildCall(tree *ast.Node) (Evaluator, error) {
	switch tree.Name {
	case "+", "-", "*", "/":
		return buildArithmetic(tree)
	case "^", "SPow":
		return buildPow(tree)
	case "Neg", "Abs", "Sign", "LogAbs":
		return buildUnary(tree)
	case "If":
		return buildIf(tree)
	case "And", "Or":
		return buildBoolBinary(tree)
	case "!":
		return buildNot(tree)
	case "<", "<=", ">", ">=", "==":
		return buildComparison(tree)
	case "TSSum", "TSMean":
		return buildRollingSum(tree)
	case "TSStd":
		return buildRollingStd(tree)
	case "TSSkew":
		return buildRollingSkew(tree)
	case "TSCorrelation":
		return buildRollingCorrelation(tree)
	case "TSMin", "TSMax", "TSArgMin", "TSArgMax":
		return buildMonotonic(tree)
	case "TSRank":
		return buildRank(tree)
	case "Delay":
		return buildDelay(tree)
	case "TSLogReturn":
		return buildLogReturn(tree)
	default:
		return nil, fmt.Errorf("ops: unknown operator %q", tree.Name)
	}
}

func windowArg(tree *ast.Node) int {
	return int(tree.Args[0].Value)
}
