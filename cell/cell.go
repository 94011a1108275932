// Package cell defines the universal tagged value used by every register of
// the virtual machine: the operand stack, the environment, the control list,
// and the dump. A Cell is one of an Atom, a nested list of cells, or an
// instruction opcode.
//
// Key components:
//   - [Atom]: a primitive scalar (unsigned int, signed int, float, or char)
//   - [Cell]: the closed tagged-union type shared by every register
//   - [Op]: the opcode alphabet emitted by the compiler and dispatched by the VM
package cell

import (
	"fmt"
	"math"

	"github.com/hawkw/seax/slist"
)

// Op is an opcode understood by the interpreter.
type Op int

// The full opcode alphabet. The compiler emits only these; the interpreter's
// dispatch switch is total over this set.
const (
	NIL Op = iota
	LDC
	LD
	LDF
	JOIN
	AP
	RET
	DUM
	RAP
	SEL
	ADD
	SUB
	MUL
	DIV
	FDIV
	MOD
	EQ
	GT
	GTE
	LT
	LTE
	ATOM
	CAR
	CDR
	CONS
	NULL
	STOP
	READC
	WRITEC
)

var opNames = map[Op]string{
	NIL: "NIL", LDC: "LDC", LD: "LD", LDF: "LDF", JOIN: "JOIN",
	AP: "AP", RET: "RET", DUM: "DUM", RAP: "RAP", SEL: "SEL",
	ADD: "ADD", SUB: "SUB", MUL: "MUL", DIV: "DIV", FDIV: "FDIV", MOD: "MOD",
	EQ: "EQ", GT: "GT", GTE: "GTE", LT: "LT", LTE: "LTE",
	ATOM: "ATOM", CAR: "CAR", CDR: "CDR", CONS: "CONS", NULL: "NULL",
	STOP: "STOP", READC: "READC", WRITEC: "WRITEC",
}

// String renders the opcode's mnemonic, e.g. "ADD".
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// AtomKind distinguishes the four scalar variants an Atom may hold.
type AtomKind int

const (
	// UInt is an unsigned machine-word integer.
	UInt AtomKind = iota
	// SInt is a signed machine-word integer.
	SInt
	// Float is a 64-bit floating-point number.
	Float
	// CharKind is a single Unicode scalar value.
	CharKind
)

// Atom is a primitive scalar value: an unsigned int, a signed int, a float,
// or a character. Exactly one of the fields is meaningful, selected by Kind.
type Atom struct {
	Kind  AtomKind
	UVal  uint
	SVal  int
	FVal  float64
	CVal  rune
}

// NewUInt builds an unsigned-integer atom.
func NewUInt(v uint) Atom { return Atom{Kind: UInt, UVal: v} }

// NewSInt builds a signed-integer atom.
func NewSInt(v int) Atom { return Atom{Kind: SInt, SVal: v} }

// NewFloat builds a floating-point atom.
func NewFloat(v float64) Atom { return Atom{Kind: Float, FVal: v} }

// NewChar builds a character atom.
func NewChar(v rune) Atom { return Atom{Kind: CharKind, CVal: v} }

// AsFloat returns the atom's value widened to float64, regardless of kind.
func (a Atom) AsFloat() float64 {
	switch a.Kind {
	case UInt:
		return float64(a.UVal)
	case SInt:
		return float64(a.SVal)
	case Float:
		return a.FVal
	case CharKind:
		return float64(byte(a.CVal))
	}
	panic("cell: unreachable atom kind")
}

// AsSInt returns the atom's value widened to a signed integer. Only valid
// for UInt, SInt, and CharKind atoms; callers must not call this on Float.
func (a Atom) AsSInt() int {
	switch a.Kind {
	case UInt:
		return int(a.UVal)
	case SInt:
		return a.SVal
	case CharKind:
		return int(byte(a.CVal))
	}
	panic("cell: AsSInt called on a float atom")
}

// String renders the atom the way a user would read it back: plain decimal
// for integers, Go's default float formatting, and a quoted rune for chars.
func (a Atom) String() string {
	switch a.Kind {
	case UInt:
		return fmt.Sprintf("%d", a.UVal)
	case SInt:
		return fmt.Sprintf("%d", a.SVal)
	case Float:
		return formatFloat(a.FVal)
	case CharKind:
		return fmt.Sprintf("%q", a.CVal)
	}
	return "<bad atom>"
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%g", f)
}

// Equal reports strict atom equality: same kind and same value. Mixed-kind
// atoms are never equal, matching the spec's "equality compares variants
// strictly" rule.
func (a Atom) Equal(b Atom) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case UInt:
		return a.UVal == b.UVal
	case SInt:
		return a.SVal == b.SVal
	case Float:
		return a.FVal == b.FVal
	case CharKind:
		return a.CVal == b.CVal
	}
	return false
}

// coercionKind decides, per the priority-ordered coercion rules, which kind
// a binary arithmetic or comparison op between a and b should operate in.
func coercionKind(a, b Atom) AtomKind {
	if a.Kind == b.Kind {
		return a.Kind
	}
	if a.Kind == CharKind || b.Kind == CharKind {
		return CharKind
	}
	if a.Kind == Float || b.Kind == Float {
		return Float
	}
	// One unsigned, one signed (the only pairing left): widen to signed.
	return SInt
}

// Add implements +, applying the coercion priority: same-kind, then char
// (byte arithmetic cast back to char), then float, then uint/sint -> sint.
func (a Atom) Add(b Atom) Atom { return arith(a, b, func(x, y float64) float64 { return x + y }) }

// Sub implements -.
func (a Atom) Sub(b Atom) Atom { return arith(a, b, func(x, y float64) float64 { return x - y }) }

// Mul implements *.
func (a Atom) Mul(b Atom) Atom { return arith(a, b, func(x, y float64) float64 { return x * y }) }

// Div implements truncating /.
func (a Atom) Div(b Atom) Atom {
	switch coercionKind(a, b) {
	case Float:
		return NewFloat(a.AsFloat() / b.AsFloat())
	case CharKind:
		return NewChar(rune(byte(a.AsSInt()) / byte(b.AsSInt())))
	default:
		// integer variants: truncating division. A zero divisor panics
		// natively (Go integer division by zero); the interpreter recovers
		// this into the same fatal-diagnostic path as any other runtime fault.
		return intResult(a, b, a.AsSInt()/b.AsSInt())
	}
}

// FDiv implements the always-float divide: operands (including chars,
// promoted via byte->float) are widened to float64 unconditionally.
func (a Atom) FDiv(b Atom) Atom {
	return NewFloat(a.AsFloat() / b.AsFloat())
}

// Mod implements truncating %.
func (a Atom) Mod(b Atom) Atom {
	switch coercionKind(a, b) {
	case Float:
		return NewFloat(math.Mod(a.AsFloat(), b.AsFloat()))
	case CharKind:
		return NewChar(rune(byte(a.AsSInt()) % byte(b.AsSInt())))
	default:
		return intResult(a, b, a.AsSInt()%b.AsSInt())
	}
}

func arith(a, b Atom, f func(x, y float64) float64) Atom {
	switch coercionKind(a, b) {
	case Float:
		return NewFloat(f(a.AsFloat(), b.AsFloat()))
	case CharKind:
		return NewChar(rune(byte(int(f(float64(byte(a.AsSInt())), float64(byte(b.AsSInt())))))))
	default:
		return intResult(a, b, int(f(float64(a.AsSInt()), float64(b.AsSInt()))))
	}
}

// intResult produces a UInt result when both operands were UInt (same-kind
// case), SInt otherwise, covering both "same variant" and "one unsigned,
// one signed -> signed" coercion rules.
func intResult(a, b Atom, v int) Atom {
	if a.Kind == UInt && b.Kind == UInt {
		return NewUInt(uint(v))
	}
	return NewSInt(v)
}

// Compare returns -1, 0, or 1 per the spec's widen-to-float comparison rule
// for numeric atoms, or direct code-point order between two chars. Comparing
// across a char and a numeric atom, or against a non-atom, is not supported
// by this method; callers must check kinds first.
func (a Atom) Compare(b Atom) int {
	if a.Kind == CharKind && b.Kind == CharKind {
		switch {
		case a.CVal < b.CVal:
			return -1
		case a.CVal > b.CVal:
			return 1
		default:
			return 0
		}
	}
	x, y := a.AsFloat(), b.AsFloat()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// CellKind distinguishes the three Cell variants.
type CellKind int

const (
	// AtomCell wraps a scalar Atom.
	AtomCell CellKind = iota
	// ListCellKind wraps a nested list of cells.
	ListCellKind
	// InstCell wraps an opcode.
	InstCell
)

// List is a list of cells, the shape of the operand stack, environment,
// control, and dump registers, and of any compound value living on them.
type List = *slist.ConsList[Cell]

// Cell is the universal tagged value shared by every VM register.
type Cell struct {
	Kind CellKind
	A    Atom
	L    List
	I    Op
}

// NewAtomCell wraps an atom as a cell.
func NewAtomCell(a Atom) Cell { return Cell{Kind: AtomCell, A: a} }

// NewListCell wraps a list as a cell.
func NewListCell(l List) Cell { return Cell{Kind: ListCellKind, L: l} }

// NewInstCell wraps an opcode as a cell.
func NewInstCell(op Op) Cell { return Cell{Kind: InstCell, I: op} }

// IsAtom reports whether the cell holds a scalar atom.
func (c Cell) IsAtom() bool { return c.Kind == AtomCell }

// IsList reports whether the cell holds a nested list.
func (c Cell) IsList() bool { return c.Kind == ListCellKind }

// IsInst reports whether the cell holds an opcode.
func (c Cell) IsInst() bool { return c.Kind == InstCell }

// String renders the cell for diagnostics: the atom's display form, the
// opcode mnemonic, or the nested list's own String.
func (c Cell) String() string {
	switch c.Kind {
	case AtomCell:
		return c.A.String()
	case InstCell:
		return c.I.String()
	case ListCellKind:
		if c.L.IsNil() {
			return "()"
		}
		return c.L.String()
	}
	return "<bad cell>"
}
