// Package parser implements a recursive-descent reader over this system's
// parenthesized S-expression surface syntax, producing exactly the ast node
// shapes the compiler consumes.
//
// There is no precedence climbing here: an S-expression grammar has no
// infix operators to resolve, only nested parenthesized lists. A non-empty
// `(e1 e2 e3 ...)` always parses to a generic ast.SExpr{Operator: e1,
// Operands: [e2, e3, ...]}; it is the compiler, not the parser, that
// decides whether e1 is a special-form keyword, a primitive operator, or an
// ordinary callee. That genericity is also how a lambda's parameter list
// `(x y)` and a let's binding list `((n1 e1) (n2 e2))` fall out of the very
// same parse rule the compiler's extractNames/extractBindings helpers
// destructure. `()` parses as an empty ast.ListLiteral, the uniform
// empty-list shape.
package parser

import (
	"fmt"
	"strconv"

	"github.com/hawkw/seax/ast"
	"github.com/hawkw/seax/lexer"
	"github.com/hawkw/seax/token"
)

// Parser reads a token stream from a lexer.Lexer and builds an AST,
// accumulating errors rather than failing on the first one.
type Parser struct {
	l      *lexer.Lexer
	errors []string

	curToken  token.Token
	peekToken token.Token
}

// New creates a Parser over l and primes curToken/peekToken.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l, errors: []string{}}
	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns the parse errors accumulated so far.
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

// ParseProgram reads the whole input as a sequence of top-level expressions.
// Check Errors() afterward to see whether parsing was clean.
func (p *Parser) ParseProgram() *ast.Root {
	root := &ast.Root{}
	for p.curToken.Type != token.EOF {
		expr := p.parseExpr()
		if expr != nil {
			root.Exprs = append(root.Exprs, expr)
		}
		p.nextToken()
	}
	return root
}

// parseExpr reads one expression starting at curToken, leaving curToken on
// the expression's last token. Returns nil (and records an error) on a
// malformed or unexpected token.
func (p *Parser) parseExpr() ast.Node {
	switch p.curToken.Type {
	case token.LPAREN:
		return p.parseParenForm()
	case token.QUOTE:
		return p.parseQuote()
	case token.IDENT:
		return &ast.Name{Value: p.curToken.Literal}
	case token.SINT:
		return p.parseSInt()
	case token.UINT:
		return p.parseUInt()
	case token.FLOAT:
		return p.parseFloat()
	case token.CHAR:
		return &ast.CharLiteral{Value: []rune(p.curToken.Literal)[0]}
	case token.STRING:
		return &ast.StringLiteral{Value: p.curToken.Literal}
	case token.TRUE:
		return &ast.BoolLiteral{Value: true}
	case token.FALSE:
		return &ast.BoolLiteral{Value: false}
	case token.RPAREN:
		p.errorf("unexpected %q", token.RPAREN)
		return nil
	case token.EOF:
		p.errorf("unexpected end of input")
		return nil
	default:
		p.errorf("unexpected token %q (%s)", p.curToken.Literal, p.curToken.Type)
		return nil
	}
}

// parseParenForm reads a balanced `( ... )` form. An empty form is the
// uniform empty-list literal; a non-empty form is a generic SExpr whose
// operator is the first element and whose operands are the rest.
func (p *Parser) parseParenForm() ast.Node {
	if p.peekToken.Type == token.RPAREN {
		p.nextToken() // consume into RPAREN
		return &ast.ListLiteral{}
	}

	p.nextToken() // move onto the first element
	operator := p.parseExpr()
	if operator == nil {
		p.recoverToMatchingRParen()
		return nil
	}

	var operands []ast.Node
	for p.peekToken.Type != token.RPAREN {
		if p.peekToken.Type == token.EOF {
			p.errorf("unterminated list: missing %q", token.RPAREN)
			return nil
		}
		p.nextToken()
		operand := p.parseExpr()
		if operand == nil {
			p.recoverToMatchingRParen()
			return nil
		}
		operands = append(operands, operand)
	}
	p.nextToken() // consume into RPAREN

	return &ast.SExpr{Operator: operator, Operands: operands}
}

// recoverToMatchingRParen advances past tokens until the paren depth opened
// by the form currently being parsed closes, so one malformed sub-expression
// doesn't cascade into spurious errors for the rest of the input.
func (p *Parser) recoverToMatchingRParen() {
	depth := 1
	for depth > 0 && p.curToken.Type != token.EOF {
		if p.peekToken.Type == token.LPAREN {
			depth++
		} else if p.peekToken.Type == token.RPAREN {
			depth--
		}
		p.nextToken()
	}
}

// parseQuote reads the `'(...)` quoted-list-literal shorthand. This system
// supports quoting only a parenthesized list, matching the shorthand's sole
// documented use (building ast.ListLiteral nodes); quoting a bare atom is
// not part of this surface syntax.
func (p *Parser) parseQuote() ast.Node {
	if p.peekToken.Type != token.LPAREN {
		p.errorf("quote must be followed by a list, got %q", p.peekToken.Literal)
		return nil
	}
	p.nextToken() // move onto '('
	return p.parseQuotedList()
}

func (p *Parser) parseQuotedList() ast.Node {
	lit := &ast.ListLiteral{}
	if p.peekToken.Type == token.RPAREN {
		p.nextToken()
		return lit
	}
	for p.peekToken.Type != token.RPAREN {
		if p.peekToken.Type == token.EOF {
			p.errorf("unterminated quoted list: missing %q", token.RPAREN)
			return nil
		}
		p.nextToken()
		elem := p.parseExpr()
		if elem == nil {
			return nil
		}
		lit.Elements = append(lit.Elements, elem)
	}
	p.nextToken() // consume into RPAREN
	return lit
}

func (p *Parser) parseSInt() ast.Node {
	v, err := strconv.Atoi(p.curToken.Literal)
	if err != nil {
		p.errorf("could not parse %q as a signed integer", p.curToken.Literal)
		return nil
	}
	return &ast.SIntLiteral{Value: v}
}

func (p *Parser) parseUInt() ast.Node {
	v, err := strconv.ParseUint(p.curToken.Literal, 10, strconvBitSize)
	if err != nil {
		p.errorf("could not parse %q as an unsigned integer", p.curToken.Literal)
		return nil
	}
	return &ast.UIntLiteral{Value: uint(v)}
}

func (p *Parser) parseFloat() ast.Node {
	v, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf("could not parse %q as a float", p.curToken.Literal)
		return nil
	}
	return &ast.FloatLiteral{Value: v}
}

// strconvBitSize matches the machine word this system's UInt/SInt atoms are
// defined over.
const strconvBitSize = 64
