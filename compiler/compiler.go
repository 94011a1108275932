// Package compiler translates abstract syntax tree (AST) nodes into the
// flat sequence of cells the interpreter's control register is built from.
//
// # Architecture
//
// The compiler walks the AST once, threading a [scope.Table] that maps
// lexically bound names to the (level, index) pairs the runtime environment
// addresses them by. It emits a flat []cell.Cell; conversion to the
// ConsList representation the interpreter consumes happens at the boundary,
// in [ToControl].
//
// # Special forms
//
// Three structural forms get dedicated treatment: if, lambda, and let. Every
// other application either reduces via a primitive opcode (cons, car, cdr,
// nil, nil?, atom?, and the arithmetic/comparison operators) or compiles as
// a closure application (NIL, reversed CONS-built argument list, operator
// code, AP).
package compiler

import (
	"fmt"

	"github.com/hawkw/seax/ast"
	"github.com/hawkw/seax/cell"
	"github.com/hawkw/seax/scope"
	"github.com/hawkw/seax/slist"
)

// Compiler compiles AST nodes into instruction-cell sequences. It carries no
// mutable state of its own; every compile starts from a fresh root scope.
type Compiler struct{}

// New creates a compiler.
func New() *Compiler {
	return &Compiler{}
}

// Compile translates a single AST expression node into a flat sequence of
// cells. Root and list-literal nodes compile to an "unimplemented" error at
// program scope, matching this system's intentionally partial support for
// top-level program sequencing: a driver compiles and runs one top-level
// expression at a time (see the ast.Root.Exprs loop in main's run).
func (c *Compiler) Compile(node ast.Node) ([]cell.Cell, error) {
	return compileNode(node, scope.New())
}

// ToControl converts a flat compiled instruction sequence into the ConsList
// the interpreter's control register is built from.
func ToControl(cells []cell.Cell) cell.List {
	return slist.Of(cells...)
}

var primitiveOps = map[string]cell.Op{
	"cons": cell.CONS,
	"car":  cell.CAR,
	"cdr":  cell.CDR,
	"nil":  cell.NIL,
	"nil?": cell.NULL,
	"atom?": cell.ATOM,
	"+":  cell.ADD,
	"-":  cell.SUB,
	"*":  cell.MUL,
	"/":  cell.DIV,
	"%":  cell.MOD,
	"=":  cell.EQ,
	"<":  cell.LT,
	"<=": cell.LTE,
	">":  cell.GT,
	">=": cell.GTE,
}

// unaryPrimitives take exactly one operand and always emit their opcode
// once, after that operand's code.
var unaryPrimitives = map[cell.Op]bool{
	cell.CAR: true, cell.CDR: true, cell.ATOM: true, cell.NULL: true,
}

func compileNode(node ast.Node, sc *scope.Table) ([]cell.Cell, error) {
	switch n := node.(type) {
	case *ast.Root:
		return nil, fmt.Errorf("compile: root node compilation at program scope is unimplemented")
	case *ast.ListLiteral:
		return nil, fmt.Errorf("compile: list literal compilation is unimplemented")
	case *ast.SIntLiteral:
		return []cell.Cell{cell.NewInstCell(cell.LDC), cell.NewAtomCell(cell.NewSInt(n.Value))}, nil
	case *ast.UIntLiteral:
		return []cell.Cell{cell.NewInstCell(cell.LDC), cell.NewAtomCell(cell.NewUInt(n.Value))}, nil
	case *ast.FloatLiteral:
		return []cell.Cell{cell.NewInstCell(cell.LDC), cell.NewAtomCell(cell.NewFloat(n.Value))}, nil
	case *ast.BoolLiteral:
		if n.Value {
			return []cell.Cell{cell.NewInstCell(cell.LDC), cell.NewAtomCell(cell.NewSInt(1))}, nil
		}
		return []cell.Cell{cell.NewInstCell(cell.NIL)}, nil
	case *ast.CharLiteral:
		// A standalone character expression still needs LDC to preserve the
		// "C's head is always an instruction" invariant; the no-LDC bare
		// form from the node table applies to characters nested inside a
		// compiled string's ListCell (see StringLiteral below), not to a
		// freestanding char expression.
		return []cell.Cell{cell.NewInstCell(cell.LDC), cell.NewAtomCell(cell.NewChar(n.Value))}, nil
	case *ast.StringLiteral:
		bytes := []byte(n.Value)
		chars := make([]cell.Cell, len(bytes))
		for i, b := range bytes {
			chars[i] = cell.NewAtomCell(cell.NewChar(rune(b)))
		}
		return []cell.Cell{cell.NewListCell(slist.Of(chars...))}, nil
	case *ast.Name:
		return compileName(n, sc)
	case *ast.SExpr:
		return compileSExpr(n, sc)
	default:
		return nil, fmt.Errorf("compile: unhandled AST node %T", node)
	}
}

func compileName(n *ast.Name, sc *scope.Table) ([]cell.Cell, error) {
	// A lexical binding always takes priority over a primitive of the same
	// name: shadowing a primitive (e.g. binding a parameter named "car")
	// must resolve to the bound variable, not the opcode.
	if pos, ok := sc.Lookup(n.Value); ok {
		return []cell.Cell{
			cell.NewInstCell(cell.LD),
			cell.NewListCell(slist.Of(
				cell.NewAtomCell(cell.NewUInt(pos.Level)),
				cell.NewAtomCell(cell.NewUInt(pos.Index)),
			)),
		}, nil
	}
	if op, ok := primitiveOps[n.Value]; ok {
		return []cell.Cell{cell.NewInstCell(op)}, nil
	}
	return nil, fmt.Errorf("compile: unknown identifier %q", n.Value)
}

func compileSExpr(n *ast.SExpr, sc *scope.Table) ([]cell.Cell, error) {
	if name, ok := n.Operator.(*ast.Name); ok && !sc.ChainContains(name.Value) {
		switch name.Value {
		case "if":
			return compileIf(n, sc)
		case "lambda":
			return compileLambda(n, sc)
		case "let":
			return compileLet(n, sc)
		}
		if op, ok := primitiveOps[name.Value]; ok {
			return compilePrimitiveApp(op, n.Operands, sc)
		}
	}
	return compileClosureApp(n, sc)
}

func compileIf(n *ast.SExpr, sc *scope.Table) ([]cell.Cell, error) {
	if len(n.Operands) != 3 {
		return nil, fmt.Errorf("compile: malformed if expression: expected (if cond then else)")
	}
	condCode, err := compileNode(n.Operands[0], sc)
	if err != nil {
		return nil, err
	}
	trueCode, err := compileNode(n.Operands[1], sc)
	if err != nil {
		return nil, err
	}
	falseCode, err := compileNode(n.Operands[2], sc)
	if err != nil {
		return nil, err
	}
	trueCode = append(trueCode, cell.NewInstCell(cell.JOIN))
	falseCode = append(falseCode, cell.NewInstCell(cell.JOIN))

	out := append([]cell.Cell{}, condCode...)
	out = append(out, cell.NewInstCell(cell.SEL))
	out = append(out, cell.NewListCell(slist.Of(trueCode...)))
	out = append(out, cell.NewListCell(slist.Of(falseCode...)))
	return out, nil
}

func compileLambda(n *ast.SExpr, sc *scope.Table) ([]cell.Cell, error) {
	if len(n.Operands) != 2 {
		return nil, fmt.Errorf("compile: malformed lambda expression: expected (lambda (params...) body)")
	}
	params, err := extractNames(n.Operands[0])
	if err != nil {
		return nil, fmt.Errorf("compile: malformed lambda expression: %w", err)
	}
	child := sc.Fork()
	for _, p := range params {
		child.Bind(p, 1)
	}
	bodyCode, err := compileNode(n.Operands[1], child)
	if err != nil {
		return nil, err
	}
	bodyCode = append(bodyCode, cell.NewInstCell(cell.RET))
	return []cell.Cell{
		cell.NewInstCell(cell.LDF),
		cell.NewListCell(slist.Of(bodyCode...)),
	}, nil
}

func compileLet(n *ast.SExpr, sc *scope.Table) ([]cell.Cell, error) {
	if len(n.Operands) != 2 {
		return nil, fmt.Errorf("compile: malformed let expression: expected (let ((n e)...) body)")
	}
	bindings, err := extractBindings(n.Operands[0])
	if err != nil {
		return nil, fmt.Errorf("compile: malformed let expression: %w", err)
	}
	child := sc.Fork()
	out := []cell.Cell{cell.NewInstCell(cell.NIL)}
	// Every binding (first or not) runs the same bind-then-compile step, in
	// binding order, so name k's index matches its position. Initializers
	// run before the let's frame exists, so each is compiled in the
	// enclosing scope sc: an initializer does not see the let's own names.
	initCodes := make([][]cell.Cell, len(bindings))
	for i, b := range bindings {
		name, ok := b.Operator.(*ast.Name)
		if !ok || len(b.Operands) != 1 {
			return nil, fmt.Errorf("compile: malformed let expression: each binding must be (name expr)")
		}
		child.Bind(name.Value, 1)
		initCode, err := compileNode(b.Operands[0], sc)
		if err != nil {
			return nil, err
		}
		initCodes[i] = initCode
	}
	// CONS prepends, so the initializers must be pushed last-to-first for
	// the built frame to land in the same order the binds above assigned:
	// binding 0's value at index 0, binding 1's at index 1, and so on.
	for i := len(initCodes) - 1; i >= 0; i-- {
		out = append(out, initCodes[i]...)
		out = append(out, cell.NewInstCell(cell.CONS))
	}
	bodyCode, err := compileNode(n.Operands[1], child)
	if err != nil {
		return nil, err
	}
	bodyCode = append(bodyCode, cell.NewInstCell(cell.RET))
	out = append(out, cell.NewInstCell(cell.LDF), cell.NewListCell(slist.Of(bodyCode...)), cell.NewInstCell(cell.AP))
	return out, nil
}

// extractNames reads a lambda parameter list. The parser has no dedicated
// node type for parameter lists; `(p1 p2 p3)` parses the same as any other
// parenthesized form, an SExpr whose operator is the first element and
// whose operands are the rest. `()` parses as an empty ListLiteral.
func extractNames(node ast.Node) ([]string, error) {
	switch v := node.(type) {
	case *ast.ListLiteral:
		if len(v.Elements) != 0 {
			return nil, fmt.Errorf("parameter list must be a plain name list")
		}
		return nil, nil
	case *ast.SExpr:
		first, ok := v.Operator.(*ast.Name)
		if !ok {
			return nil, fmt.Errorf("parameter list must contain only names")
		}
		names := []string{first.Value}
		for _, o := range v.Operands {
			nm, ok := o.(*ast.Name)
			if !ok {
				return nil, fmt.Errorf("parameter list must contain only names")
			}
			names = append(names, nm.Value)
		}
		return names, nil
	case *ast.Name:
		return []string{v.Value}, nil
	default:
		return nil, fmt.Errorf("unexpected parameter list shape %T", node)
	}
}

// extractBindings reads a let's binding list. Mirrors extractNames: the
// parser builds `((n1 e1) (n2 e2))` as a generic SExpr whose operator is
// the first binding and whose operands are the rest, each binding itself a
// 2-element SExpr of (name, init-expression).
func extractBindings(node ast.Node) ([]*ast.SExpr, error) {
	switch v := node.(type) {
	case *ast.ListLiteral:
		if len(v.Elements) != 0 {
			return nil, fmt.Errorf("binding list must contain only (name expr) pairs")
		}
		return nil, nil
	case *ast.SExpr:
		first, ok := v.Operator.(*ast.SExpr)
		if !ok {
			return nil, fmt.Errorf("binding list must contain only (name expr) pairs")
		}
		bindings := []*ast.SExpr{first}
		for _, o := range v.Operands {
			b, ok := o.(*ast.SExpr)
			if !ok {
				return nil, fmt.Errorf("binding list must contain only (name expr) pairs")
			}
			bindings = append(bindings, b)
		}
		return bindings, nil
	default:
		return nil, fmt.Errorf("unexpected binding list shape %T", node)
	}
}

func compilePrimitiveApp(op cell.Op, operands []ast.Node, sc *scope.Table) ([]cell.Cell, error) {
	if unaryPrimitives[op] {
		if len(operands) != 1 {
			return nil, fmt.Errorf("compile: %s takes exactly one argument", op)
		}
		code, err := compileNode(operands[0], sc)
		if err != nil {
			return nil, err
		}
		return append(code, cell.NewInstCell(op)), nil
	}
	if op == cell.NIL {
		if len(operands) != 0 {
			return nil, fmt.Errorf("compile: nil takes no arguments")
		}
		return []cell.Cell{cell.NewInstCell(cell.NIL)}, nil
	}
	if op == cell.CONS && len(operands) != 2 {
		return nil, fmt.Errorf("compile: cons takes exactly two arguments")
	}
	if len(operands) == 0 {
		return nil, fmt.Errorf("compile: %s requires at least one argument", op)
	}

	// Right-to-left reduction: the last operand's code starts the sequence;
	// each earlier operand's code is appended followed by the opcode,
	// walking right to left. A single operand is emitted with no opcode at
	// all, since there is no "successive pair" to fold.
	code, err := compileNode(operands[len(operands)-1], sc)
	if err != nil {
		return nil, err
	}
	for i := len(operands) - 2; i >= 0; i-- {
		next, err := compileNode(operands[i], sc)
		if err != nil {
			return nil, err
		}
		code = append(code, next...)
		code = append(code, cell.NewInstCell(op))
	}
	return code, nil
}

func compileClosureApp(n *ast.SExpr, sc *scope.Table) ([]cell.Cell, error) {
	opCode, err := compileNode(n.Operator, sc)
	if err != nil {
		return nil, err
	}
	out := []cell.Cell{cell.NewInstCell(cell.NIL)}
	for i := len(n.Operands) - 1; i >= 0; i-- {
		argCode, err := compileNode(n.Operands[i], sc)
		if err != nil {
			return nil, err
		}
		out = append(out, argCode...)
		out = append(out, cell.NewInstCell(cell.CONS))
	}
	out = append(out, opCode...)
	out = append(out, cell.NewInstCell(cell.AP))
	return out, nil
}
