package parser

import (
	"testing"

	"github.com/hawkw/seax/ast"
	"github.com/hawkw/seax/lexer"
)

func mustParse(t *testing.T, input string) *ast.Root {
	t.Helper()
	p := New(lexer.New(input))
	root := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors for %q: %v", input, errs)
	}
	return root
}

func TestParseLiterals(t *testing.T) {
	root := mustParse(t, `42 3u 2.5 #t #f "hi" #\x`)
	if len(root.Exprs) != 7 {
		t.Fatalf("expected 7 top-level expressions, got %d", len(root.Exprs))
	}
	if v, ok := root.Exprs[0].(*ast.SIntLiteral); !ok || v.Value != 42 {
		t.Errorf("expr 0: expected SIntLiteral(42), got %#v", root.Exprs[0])
	}
	if v, ok := root.Exprs[1].(*ast.UIntLiteral); !ok || v.Value != 3 {
		t.Errorf("expr 1: expected UIntLiteral(3), got %#v", root.Exprs[1])
	}
	if v, ok := root.Exprs[2].(*ast.FloatLiteral); !ok || v.Value != 2.5 {
		t.Errorf("expr 2: expected FloatLiteral(2.5), got %#v", root.Exprs[2])
	}
	if v, ok := root.Exprs[3].(*ast.BoolLiteral); !ok || !v.Value {
		t.Errorf("expr 3: expected BoolLiteral(true), got %#v", root.Exprs[3])
	}
	if v, ok := root.Exprs[4].(*ast.BoolLiteral); !ok || v.Value {
		t.Errorf("expr 4: expected BoolLiteral(false), got %#v", root.Exprs[4])
	}
	if v, ok := root.Exprs[5].(*ast.StringLiteral); !ok || v.Value != "hi" {
		t.Errorf("expr 5: expected StringLiteral(hi), got %#v", root.Exprs[5])
	}
	if v, ok := root.Exprs[6].(*ast.CharLiteral); !ok || v.Value != 'x' {
		t.Errorf("expr 6: expected CharLiteral(x), got %#v", root.Exprs[6])
	}
}

func TestParseSExpr(t *testing.T) {
	root := mustParse(t, `(+ 1 2 3)`)
	if len(root.Exprs) != 1 {
		t.Fatalf("expected 1 expression, got %d", len(root.Exprs))
	}
	se, ok := root.Exprs[0].(*ast.SExpr)
	if !ok {
		t.Fatalf("expected SExpr, got %#v", root.Exprs[0])
	}
	name, ok := se.Operator.(*ast.Name)
	if !ok || name.Value != "+" {
		t.Fatalf("expected operator Name(+), got %#v", se.Operator)
	}
	if len(se.Operands) != 3 {
		t.Fatalf("expected 3 operands, got %d", len(se.Operands))
	}
}

func TestParseEmptyList(t *testing.T) {
	root := mustParse(t, `()`)
	if len(root.Exprs) != 1 {
		t.Fatalf("expected 1 expression, got %d", len(root.Exprs))
	}
	lit, ok := root.Exprs[0].(*ast.ListLiteral)
	if !ok || len(lit.Elements) != 0 {
		t.Fatalf("expected empty ListLiteral, got %#v", root.Exprs[0])
	}
}

func TestParseLambda(t *testing.T) {
	root := mustParse(t, `(lambda (x y) (+ x y))`)
	se := root.Exprs[0].(*ast.SExpr)
	if name := se.Operator.(*ast.Name); name.Value != "lambda" {
		t.Fatalf("expected lambda keyword, got %q", name.Value)
	}
	if len(se.Operands) != 2 {
		t.Fatalf("expected 2 operands (params, body), got %d", len(se.Operands))
	}
	params := se.Operands[0].(*ast.SExpr)
	if len(params.Operands) != 1 {
		t.Fatalf("expected params SExpr with 1 trailing operand, got %d", len(params.Operands))
	}
}

func TestParseLet(t *testing.T) {
	root := mustParse(t, `(let ((a 1) (b 2)) (+ a b))`)
	se := root.Exprs[0].(*ast.SExpr)
	bindings := se.Operands[0].(*ast.SExpr)
	firstBinding := bindings.Operator.(*ast.SExpr)
	name := firstBinding.Operator.(*ast.Name)
	if name.Value != "a" {
		t.Fatalf("expected first binding name 'a', got %q", name.Value)
	}
	if len(bindings.Operands) != 1 {
		t.Fatalf("expected 1 trailing binding, got %d", len(bindings.Operands))
	}
}

func TestParseQuotedList(t *testing.T) {
	root := mustParse(t, `'(1 2 3)`)
	lit, ok := root.Exprs[0].(*ast.ListLiteral)
	if !ok {
		t.Fatalf("expected ListLiteral, got %#v", root.Exprs[0])
	}
	if len(lit.Elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(lit.Elements))
	}
}

func TestParseErrors(t *testing.T) {
	p := New(lexer.New(`(+ 1 2`))
	p.ParseProgram()
	if len(p.Errors()) == 0 {
		t.Fatal("expected a parse error for an unterminated list")
	}
}

func TestParseQuoteRequiresList(t *testing.T) {
	p := New(lexer.New(`'5`))
	p.ParseProgram()
	if len(p.Errors()) == 0 {
		t.Fatal("expected a parse error for quoting a bare atom")
	}
}
