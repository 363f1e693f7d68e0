package parser

import (
	"testing"

	"github.com/factorlab/factorexpr/ast"
)

func TestParseArithmetic(t *testing.T) {
	tree, err := Parse("(+ :bid_price :ask_price)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := tree.Format(), "(+ :bid_price :ask_price)"; got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestParseBareColumn(t *testing.T) {
	tree, err := Parse(":bid_price")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Kind != ast.Column || tree.Name != "bid_price" {
		t.Errorf("got %+v", tree)
	}
}

func TestParseWindowOperator(t *testing.T) {
	tree, err := Parse("(TSMean 5 :x)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Name != "TSMean" || tree.Args[0].Value != 5 {
		t.Errorf("got %+v", tree)
	}
}

func TestParseTSCorrelation(t *testing.T) {
	tree, err := Parse("(TSCorrelation 10 :a :b)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Args) != 3 {
		t.Fatalf("got %d args, want 3", len(tree.Args))
	}
}

func TestParseNested(t *testing.T) {
	tree, err := Parse("(TSMean 5 (/ :bid_price :ask_price))")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Args[1].Name != "/" {
		t.Errorf("got %+v", tree.Args[1])
	}
}

func TestUnknownOperator(t *testing.T) {
	if _, err := Parse("(Frobnicate :x)"); err == nil {
		t.Errorf("expected error for unknown operator")
	}
}

func TestArityMismatch(t *testing.T) {
	if _, err := Parse("(+ :a)"); err == nil {
		t.Errorf("expected arity error")
	}
}

func TestWindowRequiresConstant(t *testing.T) {
	if _, err := Parse("(TSMean :y :x)"); err == nil {
		t.Errorf("expected error requiring a constant window size")
	}
}

func TestWindowRequiresPositiveInt(t *testing.T) {
	if _, err := Parse("(TSMean 0 :x)"); err == nil {
		t.Errorf("expected error for non-positive window size")
	}
	if _, err := Parse("(TSMean 2.5 :x)"); err == nil {
		t.Errorf("expected error for non-integer window size")
	}
}

func TestTSStdMinWindow(t *testing.T) {
	if _, err := Parse("(TSStd 1 :x)"); err == nil {
		t.Errorf("expected error: TSStd requires window >= 2")
	}
	if _, err := Parse("(TSStd 2 :x)"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTSSkewMinWindow(t *testing.T) {
	if _, err := Parse("(TSSkew 2 :x)"); err == nil {
		t.Errorf("expected error: TSSkew requires window >= 3")
	}
}

func TestFormatRoundTrip(t *testing.T) {
	cases := []string{
		"(+ :bid_price :ask_price)",
		"(TSMean 5 :x)",
		"(If (> :a :b) :a :b)",
		"(TSCorrelation 10 :a :b)",
		"(SPow 2 :x)",
	}
	for _, repr := range cases {
		tree, err := Parse(repr)
		if err != nil {
			t.Fatalf("Parse(%q): %v", repr, err)
		}
		reparsed, err := Parse(tree.Format())
		if err != nil {
			t.Fatalf("Parse(Format(%q)): %v", repr, err)
		}
		if !tree.Equal(reparsed) {
			t.Errorf("round trip mismatch for %q: got %q", repr, tree.Format())
		}
	}
}
