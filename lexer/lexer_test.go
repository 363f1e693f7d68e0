package lexer

import "testing"

func TestLexSimple(t *testing.T) {
	tokens, err := Lex("(+ :bid_price :ask_price)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Token{
		{TokenLParen, "(", 0},
		{TokenIdent, "+", 1},
		{TokenColumn, "bid_price", 3},
		{TokenColumn, "ask_price", 14},
		{TokenRParen, ")", 24},
		{TokenEOF, "", 25},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(want), tokens)
	}
	for i, tok := range tokens {
		if tok != want[i] {
			t.Errorf("token %d: got %v, want %v", i, tok, want[i])
		}
	}
}

func TestLexNumbers(t *testing.T) {
	tokens, err := Lex("(TSMean 5 :x)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens[2].Type != TokenInt || tokens[2].Val != "5" {
		t.Errorf("got %v, want INT(5)", tokens[2])
	}
}

func TestLexFloat(t *testing.T) {
	tokens, err := Lex("(SPow 1.5 :x)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens[2].Type != TokenFloat || tokens[2].Val != "1.5" {
		t.Errorf("got %v, want FLOAT(1.5)", tokens[2])
	}
}

func TestLexComparisonOperators(t *testing.T) {
	for _, name := range []string{"<", "<=", ">", ">=", "==", "!"} {
		tokens, err := Lex("(" + name + " :a :b)")
		if err != nil {
			t.Fatalf("lexing %q: %v", name, err)
		}
		if tokens[1].Type != TokenIdent || tokens[1].Val != name {
			t.Errorf("operator %q: got %v", name, tokens[1])
		}
	}
}

func TestLexEmptyColumnName(t *testing.T) {
	if _, err := Lex("(+ : :b)"); err == nil {
		t.Errorf("expected error for empty column name")
	}
}

func TestLexUnexpectedChar(t *testing.T) {
	if _, err := Lex("(+ :a $b)"); err == nil {
		t.Errorf("expected error for unexpected character")
	}
}
