// Package parser turns S-expression factor text into an ast.Node tree,
// validating operator names, arities, and constant-argument constraints
// against the operator catalog as it goes.
package parser

import (
	"fmt"
	"strconv"

	"github.com/factorlab/factorexpr/ast"
	"github.com/factorlab/factorexpr/lexer"
)

// ParseError reports a syntactic or catalog-validation failure, together
// with the token position it occurred at.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Msg)
}

// Parser holds a token stream and a read cursor over it.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// Parse lexes and parses a single factor expression, returning its
// operator tree.
func Parse(text string) (*ast.Node, error) {
	tokens, err := lexer.Lex(text)
	if err != nil {
		return nil, &ParseError{Pos: 0, Msg: err.Error()}
	}
	p := &Parser{tokens: tokens}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != lexer.TokenEOF {
		return nil, p.errorf("unexpected trailing input %q", p.peek().Val)
	}
	return node, nil
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) advance() lexer.Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if p.peek().Type != tt {
		return lexer.Token{}, p.errorf("expected %s, got %s %q", tt, p.peek().Type, p.peek().Val)
	}
	return p.advance(), nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Pos: p.peek().Pos, Msg: fmt.Sprintf(format, args...)}
}

// parseExpr parses one of: a column reference, a numeric constant, or a
// parenthesized operator call.
func (p *Parser) parseExpr() (*ast.Node, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.TokenColumn:
		p.advance()
		return ast.NewColumn(tok.Val), nil
	case lexer.TokenInt, lexer.TokenFloat:
		return p.parseConstant()
	case lexer.TokenLParen:
		return p.parseCall()
	default:
		return nil, p.errorf("expected an expression, got %s %q", tok.Type, tok.Val)
	}
}

func (p *Parser) parseConstant() (*ast.Node, error) {
	tok := p.advance()
	v, err := strconv.ParseFloat(tok.Val, 64)
	if err != nil {
		return nil, &ParseError{Pos: tok.Pos, Msg: fmt.Sprintf("invalid numeric literal %q", tok.Val)}
	}
	return ast.NewConstant(v), nil
}

func (p *Parser) parseCall() (*ast.Node, error) {
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}

	nameTok, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}

	spec, ok := catalog[nameTok.Val]
	if !ok {
		return nil, &ParseError{Pos: nameTok.Pos, Msg: fmt.Sprintf("unknown operator %q", nameTok.Val)}
	}

	args := make([]*ast.Node, 0, len(spec.args))
	for i, kind := range spec.args {
		var arg *ast.Node
		switch kind {
		case argConst:
			constTok := p.peek()
			arg, err = p.parseConstant()
			if err != nil {
				return nil, err
			}
			if kind == argConst && arg.Kind != ast.Constant {
				return nil, &ParseError{Pos: constTok.Pos, Msg: fmt.Sprintf("%s argument %d must be a constant", nameTok.Val, i+1)}
			}
			if spec.validate != nil {
				if verr := spec.validate(i+1, arg.Value); verr != nil {
					return nil, &ParseError{Pos: constTok.Pos, Msg: fmt.Sprintf("%s: %v", nameTok.Val, verr)}
				}
			}
		case argExpr:
			arg, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		args = append(args, arg)
	}

	if p.peek().Type != lexer.TokenRParen {
		return nil, p.errorf("%s expects %d argument(s), found trailing %q", nameTok.Val, len(spec.args), p.peek().Val)
	}
	p.advance()

	return &ast.Node{Kind: ast.Call, Name: nameTok.Val, Args: args}, nil
}
