// Package vm implements the SECD interpreter: the four-register machine
// (Stack, Environment, Control, Dump) that runs the instruction cells the
// compiler package emits.
//
// Runtime faults are *Fault values, a Frame tracks the currently active
// call for debug-mode diagnostics, and a single dispatch loop steps the
// machine one instruction at a time.
package vm

import (
	"errors"
	"fmt"
	"io"

	"github.com/hawkw/seax/cell"
	"github.com/hawkw/seax/slist"
)

// State is the interpreter's four registers. Step is a pure function from
// one State to the next; Run drives it to completion. The debug-mode
// closure registry is the one piece of mutable bookkeeping that rides
// alongside State without being part of it, used only to make a Fault's
// diagnostic more useful, never to influence what Step computes.
type State struct {
	S cell.List
	E cell.List
	C cell.List
	D cell.List
}

// Fault is a fatal runtime diagnostic. This interpreter never recovers from
// one: a fault halts the machine, and Run returns it alongside whatever the
// stack held at the moment of failure.
type Fault struct {
	// Op is the opcode that was executing when the fault occurred.
	Op cell.Op
	// Reason describes what went wrong.
	Reason string
	// Closure names the innermost active call's debug identity, populated
	// only when the machine is run with debug enabled.
	Closure *Frame
	// Before is the state immediately preceding the faulting step,
	// populated only when the machine is run with debug enabled.
	Before *State
}

func (f *Fault) Error() string {
	if f.Closure != nil {
		return fmt.Sprintf("vm: fatal fault in %s (closure %s): %s", f.Op, f.Closure.ID(), f.Reason)
	}
	return fmt.Sprintf("vm: fatal fault in %s: %s", f.Op, f.Reason)
}

func fault(op cell.Op, format string, args ...any) error {
	return &Fault{Op: op, Reason: fmt.Sprintf(format, args...)}
}

func emptyList() cell.List { return slist.Nil[cell.Cell]() }

// truthyCell and falsyCell are this machine's two boolean representations:
// a single-element list (anything non-nil is truthy) and the empty list.
func truthyCell() cell.Cell {
	return cell.NewListCell(slist.Of(cell.NewAtomCell(cell.NewSInt(1))))
}

func falsyCell() cell.Cell { return cell.NewListCell(emptyList()) }

func boolCell(v bool) cell.Cell {
	if v {
		return truthyCell()
	}
	return falsyCell()
}

func isTruthy(c cell.Cell) bool { return !(c.IsList() && c.L.IsNil()) }

func popCell(l cell.List, op cell.Op, what string) (cell.Cell, cell.List, error) {
	h, t, ok := l.Pop()
	if !ok {
		return cell.Cell{}, l, fault(op, "stack underflow: missing %s", what)
	}
	return h, t, nil
}

func popAtom(l cell.List, op cell.Op, what string) (cell.Atom, cell.List, error) {
	c, t, err := popCell(l, op, what)
	if err != nil {
		return cell.Atom{}, l, err
	}
	if !c.IsAtom() {
		return cell.Atom{}, l, fault(op, "type mismatch: %s is not an atom", what)
	}
	return c.A, t, nil
}

func popList(l cell.List, op cell.Op, what string) (cell.List, cell.List, error) {
	c, t, err := popCell(l, op, what)
	if err != nil {
		return nil, l, err
	}
	if !c.IsList() {
		return nil, l, fault(op, "type mismatch: %s is not a list", what)
	}
	return c.L, t, nil
}

// Step executes a single instruction at the head of s.C, returning the
// resulting state. reg may be nil; when non-nil it is updated to reflect
// any closure built (LDF) or call entered/left (AP, RAP, RET), purely for
// diagnostic purposes. in and out back READC and WRITEC; either may be nil
// if the program never uses them.
//
// An arithmetic panic (integer division or modulo by a zero divisor, from
// [cell.Atom.Div] or [cell.Atom.Mod]) is recovered into the same fatal Fault
// path as any other runtime violation, rather than propagating as a Go
// panic.
func Step(s State, reg *Registry, in io.Reader, out io.Writer) (next State, err error) {
	head, cRest, ok := s.C.Pop()
	if !ok {
		return s, errors.New("vm: Step called with an empty control register")
	}
	if !head.IsInst() {
		return s, fault(cell.STOP, "control register's head %v is not an instruction", head)
	}
	op := head.I

	defer func() {
		if r := recover(); r != nil {
			next = State{}
			err = fault(op, "arithmetic panic: %v", r)
		}
	}()

	switch op {
	case cell.NIL:
		return State{S: s.S.Push(cell.NewListCell(emptyList())), E: s.E, C: cRest, D: s.D}, nil

	case cell.LDC:
		v, rest, ok := cRest.Pop()
		if !ok || !v.IsAtom() {
			return s, fault(op, "malformed LDC operand structure")
		}
		return State{S: s.S.Push(v), E: s.E, C: rest, D: s.D}, nil

	case cell.LD:
		return stepLD(s, op, cRest)

	case cell.LDF:
		bodyCell, rest, ok := cRest.Pop()
		if !ok || !bodyCell.IsList() {
			return s, fault(op, "malformed LDF operand structure")
		}
		closure := cell.NewListCell(slist.Of(bodyCell, cell.NewListCell(s.E)))
		if reg != nil {
			reg.Tag(bodyCell.L)
		}
		return State{S: s.S.Push(closure), E: s.E, C: rest, D: s.D}, nil

	case cell.JOIN:
		entry, dRest, ok := s.D.Pop()
		if !ok || !entry.IsList() {
			return s, fault(op, "dump underflow or malformed JOIN entry")
		}
		return State{S: s.S, E: s.E, C: entry.L, D: dRest}, nil

	case cell.AP:
		return stepApply(op, s, cRest, reg, false)

	case cell.RAP:
		return stepApply(op, s, cRest, reg, true)

	case cell.RET:
		return stepRET(s, op, cRest, reg)

	case cell.DUM:
		return State{S: s.S, E: s.E.Push(cell.NewListCell(emptyList())), C: cRest, D: s.D}, nil

	case cell.SEL:
		return stepSEL(s, op, cRest)

	case cell.ADD, cell.SUB, cell.MUL, cell.DIV, cell.FDIV, cell.MOD:
		return stepArith(s, op, cRest)

	case cell.EQ, cell.GT, cell.GTE, cell.LT, cell.LTE:
		return stepCompare(s, op, cRest)

	case cell.ATOM:
		v, rest, err := popCell(s.S, op, "operand")
		if err != nil {
			return s, err
		}
		return State{S: rest.Push(boolCell(v.IsAtom())), E: s.E, C: cRest, D: s.D}, nil

	case cell.NULL:
		v, rest, err := popCell(s.S, op, "operand")
		if err != nil {
			return s, err
		}
		return State{S: rest.Push(boolCell(v.IsList() && v.L.IsNil())), E: s.E, C: cRest, D: s.D}, nil

	case cell.CAR:
		l, rest, err := popList(s.S, op, "operand")
		if err != nil {
			return s, err
		}
		if l.IsNil() {
			return s, fault(op, "car of the empty list")
		}
		h, _, _ := l.Pop()
		return State{S: rest.Push(h), E: s.E, C: cRest, D: s.D}, nil

	case cell.CDR:
		l, rest, err := popList(s.S, op, "operand")
		if err != nil {
			return s, err
		}
		if l.IsNil() {
			return s, fault(op, "cdr of the empty list")
		}
		_, tail, _ := l.Pop()
		return State{S: rest.Push(cell.NewListCell(tail)), E: s.E, C: cRest, D: s.D}, nil

	case cell.CONS:
		x, rest1, err := popCell(s.S, op, "item")
		if err != nil {
			return s, err
		}
		l, rest2, err := popList(rest1, op, "list")
		if err != nil {
			return s, err
		}
		return State{S: rest2.Push(cell.NewListCell(l.Push(x))), E: s.E, C: cRest, D: s.D}, nil

	case cell.READC:
		return stepREADC(s, op, cRest, in)

	case cell.WRITEC:
		return stepWRITEC(s, op, cRest, out)

	case cell.STOP:
		// Run never calls Step once C's head is STOP; reaching this case
		// directly just leaves the state untouched.
		return s, nil

	default:
		return s, fault(op, "unhandled opcode")
	}
}

func stepLD(s State, op cell.Op, cRest cell.List) (State, error) {
	operand, rest, ok := cRest.Pop()
	if !ok || !operand.IsList() {
		return s, fault(op, "malformed LD operand structure")
	}
	lvlCell, ok := operand.L.Index(0)
	if !ok || !lvlCell.IsAtom() {
		return s, fault(op, "malformed LD operand structure")
	}
	idxCell, ok := operand.L.Index(1)
	if !ok || !idxCell.IsAtom() {
		return s, fault(op, "malformed LD operand structure")
	}
	if lvlCell.A.Kind == cell.Float || idxCell.A.Kind == cell.Float {
		return s, fault(op, "malformed LD operand structure")
	}
	lvl := lvlCell.A.AsSInt()
	idx := idxCell.A.AsSInt()
	frameCell, ok := s.E.Index(lvl - 1)
	if !ok {
		return s, fault(op, "environment lookup out of range: level %d", lvl)
	}
	if !frameCell.IsList() {
		return s, fault(op, "environment frame at level %d is not a list", lvl)
	}
	val, ok := frameCell.L.Index(idx)
	if !ok {
		return s, fault(op, "environment lookup out of range: index %d at level %d", idx, lvl)
	}
	return State{S: s.S.Push(val), E: s.E, C: rest, D: s.D}, nil
}

func stepSEL(s State, op cell.Op, cRest cell.List) (State, error) {
	val, sRest, err := popCell(s.S, op, "select condition")
	if err != nil {
		return s, err
	}
	tCell, rest1, ok := cRest.Pop()
	if !ok || !tCell.IsList() {
		return s, fault(op, "malformed SEL operand structure")
	}
	fCell, rest2, ok := rest1.Pop()
	if !ok || !fCell.IsList() {
		return s, fault(op, "malformed SEL operand structure")
	}
	branch := fCell.L
	if isTruthy(val) {
		branch = tCell.L
	}
	return State{S: sRest, E: s.E, C: branch, D: s.D.Push(cell.NewListCell(rest2))}, nil
}

func stepArith(s State, op cell.Op, cRest cell.List) (State, error) {
	x, rest1, err := popAtom(s.S, op, "left operand")
	if err != nil {
		return s, err
	}
	y, rest2, err := popAtom(rest1, op, "right operand")
	if err != nil {
		return s, err
	}
	var result cell.Atom
	switch op {
	case cell.ADD:
		result = x.Add(y)
	case cell.SUB:
		result = x.Sub(y)
	case cell.MUL:
		result = x.Mul(y)
	case cell.DIV:
		result = x.Div(y)
	case cell.FDIV:
		result = x.FDiv(y)
	case cell.MOD:
		result = x.Mod(y)
	}
	return State{S: rest2.Push(cell.NewAtomCell(result)), E: s.E, C: cRest, D: s.D}, nil
}

func stepCompare(s State, op cell.Op, cRest cell.List) (State, error) {
	x, rest1, err := popAtom(s.S, op, "left operand")
	if err != nil {
		return s, err
	}
	y, rest2, err := popAtom(rest1, op, "right operand")
	if err != nil {
		return s, err
	}
	var truth bool
	if op == cell.EQ {
		truth = x.Equal(y)
	} else {
		if (x.Kind == cell.CharKind) != (y.Kind == cell.CharKind) {
			return s, fault(op, "cannot compare %v and %v across kinds", x, y)
		}
		c := x.Compare(y)
		switch op {
		case cell.GT:
			truth = c > 0
		case cell.GTE:
			truth = c >= 0
		case cell.LT:
			truth = c < 0
		case cell.LTE:
			truth = c <= 0
		}
	}
	return State{S: rest2.Push(boolCell(truth)), E: s.E, C: cRest, D: s.D}, nil
}

// stepApply implements both AP and RAP: pop the closure and the argument
// list off S, build the new frame by prepending the (possibly singleton-
// wrapped) argument list to the closure's captured environment, and save
// (S, E, C) onto D so RET can restore the caller. For RAP, the top frame of
// the current E (the dummy DUM installed) is discarded before being saved,
// so the eventual restore lands on the environment that existed before the
// recursive binding's placeholder went in. RAP does not fill the dummy
// frame with the argument list: a closure that captured it still sees an
// empty frame at that level.
func stepApply(op cell.Op, s State, cRest cell.List, reg *Registry, recursive bool) (State, error) {
	closureCell, rest1, err := popCell(s.S, op, "closure")
	if err != nil {
		return s, err
	}
	if !closureCell.IsList() {
		return s, fault(op, "type mismatch: closure is not a list")
	}
	bodyCell, ok := closureCell.L.Index(0)
	if !ok || !bodyCell.IsList() {
		return s, fault(op, "malformed closure structure")
	}
	envCell, ok := closureCell.L.Index(1)
	if !ok || !envCell.IsList() {
		return s, fault(op, "malformed closure structure")
	}

	argsCell, rest2, err := popCell(rest1, op, "argument list")
	if err != nil {
		return s, err
	}
	frame := slist.Of(argsCell)
	if argsCell.IsList() {
		frame = argsCell.L
	}

	savedE := s.E
	if recursive {
		_, tail, ok := s.E.Pop()
		if !ok {
			return s, fault(op, "recursive apply with no dummy frame to discard")
		}
		savedE = tail
	}
	dumpEntry := cell.NewListCell(slist.Of(
		cell.NewListCell(rest2),
		cell.NewListCell(savedE),
		cell.NewListCell(cRest),
	))

	newE := envCell.L.Push(cell.NewListCell(frame))
	if reg != nil {
		reg.Push(bodyCell.L)
	}
	return State{
		S: emptyList(),
		E: newE,
		C: bodyCell.L,
		D: s.D.Push(dumpEntry),
	}, nil
}

// stepRET's next control always comes from the saved dump entry, never from
// what remains of C after the RET instruction itself; a RET discards
// whatever trailing cells follow it, hence the unused cRest parameter.
func stepRET(s State, op cell.Op, _ cell.List, reg *Registry) (State, error) {
	val, _, err := popCell(s.S, op, "return value")
	if err != nil {
		return s, err
	}
	entry, dRest, ok := s.D.Pop()
	if !ok || !entry.IsList() {
		return s, fault(op, "dump underflow or malformed RET entry")
	}
	sCell, ok := entry.L.Index(0)
	if !ok || !sCell.IsList() {
		return s, fault(op, "malformed RET dump entry")
	}
	eCell, ok := entry.L.Index(1)
	if !ok || !eCell.IsList() {
		return s, fault(op, "malformed RET dump entry")
	}
	cCell, ok := entry.L.Index(2)
	if !ok || !cCell.IsList() {
		return s, fault(op, "malformed RET dump entry")
	}
	if reg != nil {
		reg.Pop()
	}
	return State{S: sCell.L.Push(val), E: eCell.L, C: cCell.L, D: dRest}, nil
}

func stepREADC(s State, op cell.Op, cRest cell.List, in io.Reader) (State, error) {
	if in == nil {
		return s, fault(op, "no input stream configured")
	}
	var buf [1]byte
	n, rerr := in.Read(buf[:])
	if n == 0 {
		if rerr == nil {
			rerr = io.EOF
		}
		return s, fault(op, "read failed: %v", rerr)
	}
	return State{S: s.S.Push(cell.NewAtomCell(cell.NewChar(rune(buf[0])))), E: s.E, C: cRest, D: s.D}, nil
}

func stepWRITEC(s State, op cell.Op, cRest cell.List, out io.Writer) (State, error) {
	ch, rest, err := popAtom(s.S, op, "character")
	if err != nil {
		return s, err
	}
	if ch.Kind != cell.CharKind {
		return s, fault(op, "type mismatch: WRITEC operand is not a char")
	}
	if out == nil {
		return s, fault(op, "no output stream configured")
	}
	if _, werr := out.Write([]byte{byte(ch.CVal)}); werr != nil {
		return s, fault(op, "write failed: %v", werr)
	}
	return State{S: rest, E: s.E, C: cRest, D: s.D}, nil
}

// Run drives Step to completion from an empty stack, environment, and dump,
// seeded with program in the control register. It halts cleanly when C runs
// out or its head is STOP, and returns the final operand stack. debug turns
// on the closure registry; a Fault returned while debug is set carries the
// state immediately before the fault and, when available, the identity of
// the closure that was running.
func Run(program cell.List, debug bool, in io.Reader, out io.Writer) (cell.List, error) {
	var reg *Registry
	if debug {
		reg = NewRegistry()
	}
	st := State{S: emptyList(), E: emptyList(), C: program, D: emptyList()}
	for {
		head, ok := st.C.Peek()
		if !ok {
			break
		}
		if head.IsInst() && head.I == cell.STOP {
			break
		}

		var before *State
		if debug {
			snap := st
			before = &snap
		}

		next, err := Step(st, reg, in, out)
		if err != nil {
			if f, ok := err.(*Fault); ok {
				f.Before = before
				if reg != nil {
					f.Closure = reg.Current()
				}
			}
			return st.S, err
		}
		st = next
	}
	return st.S, nil
}
