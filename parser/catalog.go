package parser

import "fmt"

// argKind describes what shape one operator argument must take.
type argKind int

const (
	argExpr  argKind = iota // any sub-expression: column, constant, or call
	argConst                // a literal integer/float constant (a window size or exponent)
)

// opSpec is one entry in the operator catalog: fixed arity plus, for
// constant arguments, an optional validator over the parsed value.
type opSpec struct {
	args     []argKind
	validate func(pos int, v float64) error
}

func positiveInt(pos int, v float64) error {
	if v != float64(int64(v)) || v < 1 {
		return fmt.Errorf("argument %d must be a positive integer, got %v", pos, v)
	}
	return nil
}

func windowAtLeast(min int) func(pos int, v float64) error {
	return func(pos int, v float64) error {
		if err := positiveInt(pos, v); err != nil {
			return err
		}
		if int(v) < min {
			return fmt.Errorf("argument %d must be at least %d, got %v", pos, min, v)
		}
		return nil
	}
}

// catalog is the complete operator table, grounded on spec.md's §4.1 table
// and original_source/native/src/ops/parser.rs's exhaustive match arms.
var catalog = map[string]opSpec{
	// arithmetic, pointwise
	"+":   {args: []argKind{argExpr, argExpr}},
	"-":   {args: []argKind{argExpr, argExpr}},
	"*":   {args: []argKind{argExpr, argExpr}},
	"/":   {args: []argKind{argExpr, argExpr}},
	"^": {args: []argKind{argConst, argExpr}, validate: func(pos int, v float64) error {
		if v != float64(int64(v)) || v < 0 {
			return fmt.Errorf("argument %d must be a non-negative integer, got %v", pos, v)
		}
		return nil
	}},
	"SPow": {args: []argKind{argConst, argExpr}},
	"Neg":  {args: []argKind{argExpr}},
	"Abs":  {args: []argKind{argExpr}},
	"Sign": {args: []argKind{argExpr}},
	"LogAbs": {args: []argKind{argExpr}},

	// logic
	"If":  {args: []argKind{argExpr, argExpr, argExpr}},
	"And": {args: []argKind{argExpr, argExpr}},
	"Or":  {args: []argKind{argExpr, argExpr}},
	"!":   {args: []argKind{argExpr}},
	"<":   {args: []argKind{argExpr, argExpr}},
	"<=":  {args: []argKind{argExpr, argExpr}},
	">":   {args: []argKind{argExpr, argExpr}},
	">=":  {args: []argKind{argExpr, argExpr}},
	"==":  {args: []argKind{argExpr, argExpr}},

	// windows
	"TSSum":    {args: []argKind{argConst, argExpr}, validate: positiveInt},
	"TSMean":   {args: []argKind{argConst, argExpr}, validate: positiveInt},
	"TSMin":    {args: []argKind{argConst, argExpr}, validate: positiveInt},
	"TSMax":    {args: []argKind{argConst, argExpr}, validate: positiveInt},
	"TSArgMin": {args: []argKind{argConst, argExpr}, validate: positiveInt},
	"TSArgMax": {args: []argKind{argConst, argExpr}, validate: positiveInt},
	"TSStd":    {args: []argKind{argConst, argExpr}, validate: windowAtLeast(2)},
	"TSSkew":   {args: []argKind{argConst, argExpr}, validate: windowAtLeast(3)},
	"TSRank":   {args: []argKind{argConst, argExpr}, validate: positiveInt},
	"Delay":    {args: []argKind{argConst, argExpr}, validate: positiveInt},

	"TSLogReturn":   {args: []argKind{argConst, argExpr}, validate: positiveInt},
	"TSCorrelation": {args: []argKind{argConst, argExpr, argExpr}, validate: positiveInt},
}

// WindowOperators lists the operator names whose first argument is a
// constant: the window operators plus "^" and "SPow", whose constant is
// an exponent.
func WindowOperators() []string {
	names := make([]string, 0, len(catalog))
	for name, spec := range catalog {
		if len(spec.args) > 0 && spec.args[0] == argConst {
			names = append(names, name)
		}
	}
	return names
}
