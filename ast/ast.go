// Package ast defines the abstract syntax tree the compiler consumes: the
// shapes a parser must produce for this system's small Scheme-family
// surface syntax.
//
// Key components:
//   - [Node]: the base interface every AST node implements
//   - [Root]: the top-level sequence of expressions a program parses to
//   - [SExpr]: an operator applied to zero or more operand expressions
//   - [Name]: an identifier, either a primitive operator, a special form
//     keyword, or a bound variable reference
//   - the literal node kinds: [SIntLiteral], [UIntLiteral], [FloatLiteral],
//     [BoolLiteral], [CharLiteral], [StringLiteral], [ListLiteral]
package ast

import (
	"strconv"
	"strings"
)

// Node is the base interface for every AST node.
type Node interface {
	// String renders the node back as source text, for diagnostics.
	String() string
}

// Root is the top-level node: a sequence of expressions read from one
// program.
type Root struct {
	Exprs []Node
}

func (r *Root) String() string {
	parts := make([]string, len(r.Exprs))
	for i, e := range r.Exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, "\n")
}

// SExpr is an S-expression: an operator expression applied to operands.
// The operator is itself a Node, not restricted to Name, so that a literal
// lambda or let may appear in operator position (e.g. `((lambda (x) x) 1)`).
type SExpr struct {
	Operator Node
	Operands []Node
}

func (s *SExpr) String() string {
	parts := make([]string, len(s.Operands))
	for i, o := range s.Operands {
		parts[i] = o.String()
	}
	if len(parts) == 0 {
		return "(" + s.Operator.String() + ")"
	}
	return "(" + s.Operator.String() + " " + strings.Join(parts, " ") + ")"
}

// Name is an identifier: a primitive operator name, a special-form keyword,
// or a reference to a lexically bound variable. Which one it is is decided
// by the compiler, not by the parser.
type Name struct {
	Value string
}

func (n *Name) String() string { return n.Value }

// SIntLiteral is a signed integer literal.
type SIntLiteral struct {
	Value int
}

func (l *SIntLiteral) String() string { return strconv.Itoa(l.Value) }

// UIntLiteral is an unsigned integer literal (written with a trailing `u`
// in source, e.g. `42u`).
type UIntLiteral struct {
	Value uint
}

func (l *UIntLiteral) String() string { return strconv.FormatUint(uint64(l.Value), 10) + "u" }

// FloatLiteral is a floating-point literal.
type FloatLiteral struct {
	Value float64
}

func (l *FloatLiteral) String() string { return strconv.FormatFloat(l.Value, 'g', -1, 64) }

// BoolLiteral is `#t` or `#f`.
type BoolLiteral struct {
	Value bool
}

func (l *BoolLiteral) String() string {
	if l.Value {
		return "#t"
	}
	return "#f"
}

// CharLiteral is a single character literal, written `#\c` in source.
type CharLiteral struct {
	Value rune
}

func (l *CharLiteral) String() string { return "#\\" + string(l.Value) }

// StringLiteral is a double-quoted string literal.
type StringLiteral struct {
	Value string
}

func (l *StringLiteral) String() string { return strconv.Quote(l.Value) }

// ListLiteral is a quoted list literal, e.g. `'(1 2 3)`.
type ListLiteral struct {
	Elements []Node
}

func (l *ListLiteral) String() string {
	parts := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		parts[i] = e.String()
	}
	return "'(" + strings.Join(parts, " ") + ")"
}
