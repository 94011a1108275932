package vm

import (
	"strings"
	"testing"

	"github.com/hawkw/seax/cell"
	"github.com/hawkw/seax/compiler"
	"github.com/hawkw/seax/lexer"
	"github.com/hawkw/seax/parser"
	"github.com/hawkw/seax/slist"
)

// compileSrc parses and compiles the first top-level expression in src,
// mirroring the "a driver compiles and runs one top-level expression at a
// time" convention documented on compiler.Compiler.Compile.
func compileSrc(t *testing.T, src string) []cell.Cell {
	t.Helper()
	p := parser.New(lexer.New(src))
	root := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parse errors for %q: %v", src, errs)
	}
	if len(root.Exprs) != 1 {
		t.Fatalf("expected exactly one top-level expression in %q, got %d", src, len(root.Exprs))
	}
	out, err := compiler.New().Compile(root.Exprs[0])
	if err != nil {
		t.Fatalf("compile %q: unexpected error: %v", src, err)
	}
	return out
}

// topOf runs src to completion and returns the final stack's top cell.
func topOf(t *testing.T, src string) cell.Cell {
	t.Helper()
	program := compiler.ToControl(compileSrc(t, src))
	stack, err := Run(program, false, nil, nil)
	if err != nil {
		t.Fatalf("run %q: unexpected fault: %v", src, err)
	}
	top, ok := stack.Peek()
	if !ok {
		t.Fatalf("run %q: final stack is empty", src)
	}
	return top
}

func wantSInt(t *testing.T, src string, want int) {
	t.Helper()
	top := topOf(t, src)
	if !top.IsAtom() || top.A.Kind != cell.SInt || top.A.SVal != want {
		t.Fatalf("%q: expected SInt(%d), got %v", src, want, top)
	}
}

func wantTruthy(t *testing.T, src string) {
	t.Helper()
	top := topOf(t, src)
	if top.IsList() && top.L.IsNil() {
		t.Fatalf("%q: expected a truthy value, got the empty list", src)
	}
}

func TestEndToEndScenarios(t *testing.T) {
	t.Run("cons builds a list", func(t *testing.T) {
		top := topOf(t, `(cons 10 (cons 20 nil))`)
		if !top.IsList() {
			t.Fatalf("expected a list, got %v", top)
		}
		elems := top.L.Iter()
		if len(elems) != 2 || elems[0].A.SVal != 10 || elems[1].A.SVal != 20 {
			t.Fatalf("expected (10, 20), got %v", top)
		}
	})

	t.Run("car of a cons", func(t *testing.T) {
		wantSInt(t, `(car (cons 20 (cons 10 nil)))`, 20)
	})

	t.Run("cdr of a cons", func(t *testing.T) {
		top := topOf(t, `(cdr (cons 20 (cons 10 nil)))`)
		if !top.IsList() {
			t.Fatalf("expected a list, got %v", top)
		}
		elems := top.L.Iter()
		if len(elems) != 1 || elems[0].A.SVal != 10 {
			t.Fatalf("expected (10), got %v", top)
		}
	})

	t.Run("addition", func(t *testing.T) {
		wantSInt(t, `(+ 10 10)`, 20)
	})

	t.Run("nested subtraction", func(t *testing.T) {
		wantSInt(t, `(- 20 (+ 5 5))`, 10)
	})

	t.Run("if with an equality condition", func(t *testing.T) {
		wantTruthy(t, `(if (= 0 (- 1 1)) #t #f)`)
	})

	t.Run("if with nil? condition", func(t *testing.T) {
		wantSInt(t, `(+ 10 (if (nil? nil) 10 20))`, 20)
	})

	t.Run("single-level lambda application", func(t *testing.T) {
		wantSInt(t, `((lambda (x y) (+ x y)) 2 3)`, 5)
	})

	t.Run("nested lambda capturing an enclosing parameter", func(t *testing.T) {
		wantSInt(t, `((lambda (z) ((lambda (x y) (+ (- x y) z)) 3 5)) 6)`, 4)
	})
}

// TestBytecodeShape pins down scenario 6's compiled instruction sequence
// against a literal reference, per the bytecode-shape testable property.
func TestBytecodeShape(t *testing.T) {
	out := compileSrc(t, `(if (= 0 (- 1 1)) #t #f)`)

	want := []cell.Op{cell.LDC, cell.LDC, cell.SUB, cell.LDC, cell.EQ, cell.SEL}
	var got []cell.Op
	for _, c := range out {
		if c.IsInst() {
			got = append(got, c.I)
			if len(got) == len(want) {
				break
			}
		}
	}
	if len(got) != len(want) {
		t.Fatalf("too few instructions: got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("instruction %d: want %s, got %s (full: %v)", i, want[i], got[i], out)
		}
	}

	// SEL's two operand cells are the true/false branches, each a list
	// ending in JOIN, as the format rule requires.
	var selIdx int
	for i, c := range out {
		if c.IsInst() && c.I == cell.SEL {
			selIdx = i
			break
		}
	}
	if selIdx+2 >= len(out) {
		t.Fatalf("SEL has no room for its two operand cells: %v", out)
	}
	trueBranch, falseBranch := out[selIdx+1], out[selIdx+2]
	if !trueBranch.IsList() || !falseBranch.IsList() {
		t.Fatalf("SEL operands must be lists, got %v and %v", trueBranch, falseBranch)
	}
	lastOf := func(l cell.List) cell.Cell {
		elems := l.Iter()
		return elems[len(elems)-1]
	}
	if tail := lastOf(trueBranch.L); !tail.IsInst() || tail.I != cell.JOIN {
		t.Fatalf("true branch must end in JOIN, got %v", tail)
	}
	if tail := lastOf(falseBranch.L); !tail.IsInst() || tail.I != cell.JOIN {
		t.Fatalf("false branch must end in JOIN, got %v", tail)
	}
}

func TestRunHaltsOnExplicitSTOP(t *testing.T) {
	program := slist.Of(
		cell.NewInstCell(cell.LDC), cell.NewAtomCell(cell.NewSInt(1)),
		cell.NewInstCell(cell.STOP),
		cell.NewInstCell(cell.LDC), cell.NewAtomCell(cell.NewSInt(2)),
	)
	stack, err := Run(program, false, nil, nil)
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	top, ok := stack.Peek()
	if !ok || top.A.SVal != 1 {
		t.Fatalf("expected STOP to halt before the second LDC, got %v", stack)
	}
}

func TestFaults(t *testing.T) {
	t.Run("LD with an empty environment", func(t *testing.T) {
		program := slist.Of(
			cell.NewInstCell(cell.LD),
			cell.NewListCell(slist.Of(
				cell.NewAtomCell(cell.NewUInt(1)),
				cell.NewAtomCell(cell.NewUInt(0)),
			)),
		)
		if _, err := Run(program, true, nil, nil); err == nil {
			t.Fatal("expected a fault for LD against an empty environment")
		} else if !strings.Contains(err.Error(), "out of range") {
			t.Fatalf("expected an out-of-range diagnostic, got: %v", err)
		}
	})

	t.Run("CAR on the empty list", func(t *testing.T) {
		program := slist.Of(
			cell.NewInstCell(cell.NIL),
			cell.NewInstCell(cell.CAR),
		)
		if _, err := Run(program, true, nil, nil); err == nil {
			t.Fatal("expected a fault for CAR on the empty list")
		} else if !strings.Contains(err.Error(), "car of the empty list") {
			t.Fatalf("expected a car-of-empty-list diagnostic, got: %v", err)
		}
	})

	t.Run("arithmetic with a non-atom operand", func(t *testing.T) {
		program := slist.Of(
			cell.NewInstCell(cell.NIL),
			cell.NewInstCell(cell.LDC), cell.NewAtomCell(cell.NewSInt(1)),
			cell.NewInstCell(cell.ADD),
		)
		if _, err := Run(program, true, nil, nil); err == nil {
			t.Fatal("expected a fault for ADD against a non-atom operand")
		} else if !strings.Contains(err.Error(), "type mismatch") {
			t.Fatalf("expected a type-mismatch diagnostic, got: %v", err)
		}
	})

	t.Run("FDIV with a non-atom operand", func(t *testing.T) {
		program := slist.Of(
			cell.NewInstCell(cell.NIL),
			cell.NewInstCell(cell.LDC), cell.NewAtomCell(cell.NewFloat(2)),
			cell.NewInstCell(cell.FDIV),
		)
		if _, err := Run(program, true, nil, nil); err == nil {
			t.Fatal("expected a fault for FDIV against a non-atom operand")
		} else if !strings.Contains(err.Error(), "type mismatch") {
			t.Fatalf("expected a type-mismatch diagnostic, got: %v", err)
		}
	})

	t.Run("debug mode attaches the pre-fault state", func(t *testing.T) {
		program := slist.Of(cell.NewInstCell(cell.CAR))
		_, err := Run(program, true, nil, nil)
		f, ok := err.(*Fault)
		if !ok {
			t.Fatalf("expected a *Fault, got %T", err)
		}
		if f.Before == nil {
			t.Fatal("expected debug mode to populate Fault.Before")
		}
	})

	t.Run("non-debug mode omits the pre-fault state", func(t *testing.T) {
		program := slist.Of(cell.NewInstCell(cell.CAR))
		_, err := Run(program, false, nil, nil)
		f, ok := err.(*Fault)
		if !ok {
			t.Fatalf("expected a *Fault, got %T", err)
		}
		if f.Before != nil {
			t.Fatal("expected non-debug mode to leave Fault.Before nil")
		}
	})
}

func TestIntegerDivisionByZeroIsAFaultNotAPanic(t *testing.T) {
	program := slist.Of(
		cell.NewInstCell(cell.LDC), cell.NewAtomCell(cell.NewSInt(0)),
		cell.NewInstCell(cell.LDC), cell.NewAtomCell(cell.NewSInt(10)),
		cell.NewInstCell(cell.DIV),
	)
	if _, err := Run(program, false, nil, nil); err == nil {
		t.Fatal("expected a fault for division by zero")
	}
}

func TestCallThroughDUMAndRAP(t *testing.T) {
	// A hand-built letrec-shaped call: DUM installs a placeholder frame,
	// LDF captures it, and RAP discards the placeholder when saving the
	// caller's state, per §4.5/§4.6. This exercises DUM/RAP directly since
	// the compiler itself never emits them (no letrec special form).
	body := []cell.Cell{
		cell.NewInstCell(cell.LDC), cell.NewAtomCell(cell.NewSInt(7)),
		cell.NewInstCell(cell.RET),
	}
	program := slist.Of(
		cell.NewInstCell(cell.DUM),
		cell.NewInstCell(cell.NIL), // empty argument list
		cell.NewInstCell(cell.LDF), cell.NewListCell(slist.Of(body...)),
		cell.NewInstCell(cell.RAP),
	)
	stack, err := Run(program, false, nil, nil)
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	top, ok := stack.Peek()
	if !ok || top.A.SVal != 7 {
		t.Fatalf("expected SInt(7), got %v", stack)
	}
}

func TestReadcWritecRoundTrip(t *testing.T) {
	in := strings.NewReader("A")
	var out strings.Builder
	program := slist.Of(
		cell.NewInstCell(cell.READC),
		cell.NewInstCell(cell.WRITEC),
	)
	if _, err := Run(program, false, in, &out); err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if out.String() != "A" {
		t.Fatalf("expected the byte to round-trip, got %q", out.String())
	}
}
