package lexer

import (
	"testing"

	"github.com/hawkw/seax/token"
)

func TestNextToken(t *testing.T) {
	input := `(+ 1 2)
(lambda (x y) (+ x y))
(let ((a 1) (b 2u)) (+ a b))
"foo bar"
#t #f
#\a
3.14
-5
`
	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.LPAREN, "("},
		{token.IDENT, "+"},
		{token.SINT, "1"},
		{token.SINT, "2"},
		{token.RPAREN, ")"},

		{token.LPAREN, "("},
		{token.IDENT, "lambda"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.IDENT, "y"},
		{token.RPAREN, ")"},
		{token.LPAREN, "("},
		{token.IDENT, "+"},
		{token.IDENT, "x"},
		{token.IDENT, "y"},
		{token.RPAREN, ")"},
		{token.RPAREN, ")"},

		{token.LPAREN, "("},
		{token.IDENT, "let"},
		{token.LPAREN, "("},
		{token.LPAREN, "("},
		{token.IDENT, "a"},
		{token.SINT, "1"},
		{token.RPAREN, ")"},
		{token.LPAREN, "("},
		{token.IDENT, "b"},
		{token.UINT, "2"},
		{token.RPAREN, ")"},
		{token.RPAREN, ")"},
		{token.LPAREN, "("},
		{token.IDENT, "+"},
		{token.IDENT, "a"},
		{token.IDENT, "b"},
		{token.RPAREN, ")"},
		{token.RPAREN, ")"},

		{token.STRING, "foo bar"},

		{token.TRUE, "#t"},
		{token.FALSE, "#f"},

		{token.CHAR, "a"},

		{token.FLOAT, "3.14"},
		{token.SINT, "-5"},

		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestComments(t *testing.T) {
	input := `(+ 1 2) ; add them up
; a full line comment
(- 3 1)`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.LPAREN, "("},
		{token.IDENT, "+"},
		{token.SINT, "1"},
		{token.SINT, "2"},
		{token.RPAREN, ")"},
		{token.LPAREN, "("},
		{token.IDENT, "-"},
		{token.SINT, "3"},
		{token.SINT, "1"},
		{token.RPAREN, ")"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	input := `"hello\nworld" "tab:\tend" "quote:\"inner\"" "backslash:\\"`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.STRING, "hello\nworld"},
		{token.STRING, "tab:\tend"},
		{token.STRING, "quote:\"inner\""},
		{token.STRING, "backslash:\\"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`"no end`)

	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL token for unterminated string, got %q", tok.Type)
	}
	if tok.Literal != "unterminated string" {
		t.Fatalf("expected literal 'unterminated string', got %q", tok.Literal)
	}
}

func TestNamedCharLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`#\space`, " "},
		{`#\newline`, "\n"},
		{`#\tab`, "\t"},
		{`#\x`, "x"},
	}
	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != token.CHAR {
			t.Fatalf("input %q: expected CHAR, got %q (%q)", tt.input, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expected {
			t.Fatalf("input %q: expected literal %q, got %q", tt.input, tt.expected, tok.Literal)
		}
	}
}

func TestQuoteAndPunctuatedSymbols(t *testing.T) {
	input := `'(1 2) nil? atom? <= >=`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.QUOTE, "'"},
		{token.LPAREN, "("},
		{token.SINT, "1"},
		{token.SINT, "2"},
		{token.RPAREN, ")"},
		{token.IDENT, "nil?"},
		{token.IDENT, "atom?"},
		{token.IDENT, "<="},
		{token.IDENT, ">="},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}
