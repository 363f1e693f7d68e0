// Package factor is the module's stable external surface: it wraps a
// parsed operator tree together with a ready offset and exposes the
// structural operations (subtree access, replace, cloning) that the
// mutation-driven callers of this module — search, optimization, whatever
// builds new factors out of old ones — need without reaching into ast or
// ops directly.
package factor

import (
	"github.com/pkg/errors"

	"github.com/factorlab/factorexpr/ast"
	"github.com/factorlab/factorexpr/ops"
	"github.com/factorlab/factorexpr/parser"
)

// Factor is a parsed, type-checked factor expression. Factor values are
// immutable; Replace returns a new Factor rather than editing this one.
type Factor struct {
	tree        *ast.Node
	readyOffset int
}

// Parse parses factor text into a Factor, validating operator names,
// arities and constant arguments as it goes.
func Parse(text string) (*Factor, error) {
	tree, err := parser.Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, "factor")
	}
	return fromTree(tree)
}

func fromTree(tree *ast.Node) (*Factor, error) {
	ev, err := ops.Build(tree)
	if err != nil {
		return nil, errors.Wrap(err, "factor")
	}
	return &Factor{tree: tree, readyOffset: ev.ReadyOffset()}, nil
}

// NewEvaluator compiles a fresh, independent evaluator graph for this
// factor. Callers that need to replay the same factor over more than one
// source concurrently call this once per source: evaluator state (window
// buffers, sticky failure flags) must never be shared across sources.
func (f *Factor) NewEvaluator() (ops.Evaluator, error) {
	return ops.Build(f.tree)
}

// ReadyOffset is the number of leading rows of any stream this factor is
// evaluated over that are always NaN, independent of the data.
func (f *Factor) ReadyOffset() int { return f.readyOffset }

// Len returns the number of nodes in the factor's operator tree.
func (f *Factor) Len() int { return f.tree.Len() }

// Depth returns the height of the factor's operator tree.
func (f *Factor) Depth() int { return f.tree.Depth() }

// ChildIndices returns the pre-order indices of the root's direct
// children.
func (f *Factor) ChildIndices() []int { return f.tree.ChildIndices() }

// Columns returns every column name the factor reads, in pre-order, with
// duplicates for columns read more than once.
func (f *Factor) Columns() []string { return f.tree.Columns() }

// Format renders the factor back to canonical S-expression text.
func (f *Factor) Format() string { return f.tree.Format() }

// Subtree returns the factor rooted at pre-order index i within this
// factor's tree.
func (f *Factor) Subtree(i int) (*Factor, error) {
	sub, err := f.tree.Subtree(i)
	if err != nil {
		return nil, errors.Wrap(err, "factor")
	}
	return fromTree(sub)
}

// Replace returns a new Factor with the subtree at pre-order index i
// swapped for other's tree. The receiver is left unchanged.
func (f *Factor) Replace(i int, other *Factor) (*Factor, error) {
	newTree, err := f.tree.Replace(i, other.tree)
	if err != nil {
		return nil, errors.Wrap(err, "factor")
	}
	return fromTree(newTree)
}

// Clone returns a deep, independent copy of the factor.
func (f *Factor) Clone() *Factor {
	return &Factor{tree: f.tree.Clone(), readyOffset: f.readyOffset}
}
