// Package slist implements the immutable singly-linked cons list used as the
// backing representation for every register of the virtual machine: the
// operand stack, the environment, the control list, and the dump.
//
// A ConsList is either Nil (the empty list, also doubling as the VM's sole
// falsy value) or a Cons cell holding a head and a shared tail. Lists are
// never mutated after construction; "modification" always returns a new
// list that shares tail structure with the one it was built from.
package slist

import (
	"fmt"
	"strings"
)

// ConsList is an immutable singly-linked list of T. The zero value is Nil,
// the empty list.
type ConsList[T any] struct {
	head   T
	tail   *ConsList[T]
	isNode bool // false for Nil, true for a Cons node
}

// Nil returns the empty list.
func Nil[T any]() *ConsList[T] {
	return &ConsList[T]{}
}

// IsNil reports whether the list is empty.
func (l *ConsList[T]) IsNil() bool {
	return l == nil || !l.isNode
}

// Push prepends x to the list, returning a new list; O(1), and the
// receiver's structure is left untouched (Cons(x, l)).
func (l *ConsList[T]) Push(x T) *ConsList[T] {
	return &ConsList[T]{head: x, tail: l, isNode: true}
}

// Pop removes the head, returning it alongside the remaining tail and true;
// returns the zero value, Nil, and false when the list is empty.
func (l *ConsList[T]) Pop() (head T, tail *ConsList[T], ok bool) {
	if l.IsNil() {
		return head, Nil[T](), false
	}
	return l.head, l.tail, true
}

// Peek returns the head without removing it, and true; the zero value and
// false when the list is empty.
func (l *ConsList[T]) Peek() (head T, ok bool) {
	if l.IsNil() {
		return head, false
	}
	return l.head, true
}

// Length walks the list and counts its elements; O(n).
func (l *ConsList[T]) Length() int {
	n := 0
	for cur := l; !cur.IsNil(); cur = cur.tail {
		n++
	}
	return n
}

// Index returns the i-th element (0-based) and true, or the zero value and
// false when i is out of range. O(i).
func (l *ConsList[T]) Index(i int) (v T, ok bool) {
	if i < 0 {
		return v, false
	}
	cur := l
	for ; i > 0 && !cur.IsNil(); i-- {
		cur = cur.tail
	}
	if cur.IsNil() {
		return v, false
	}
	return cur.head, true
}

// Iter returns the list's elements, head to tail, as a slice; the finite,
// eager analogue of the spec's lazy iterator, sufficient for a list bound by
// program size.
func (l *ConsList[T]) Iter() []T {
	out := make([]T, 0, l.Length())
	for cur := l; !cur.IsNil(); cur = cur.tail {
		out = append(out, cur.head)
	}
	return out
}

// Of builds a list from a variadic argument list: Of(a, b, c) produces
// Cons(a, Cons(b, Cons(c, Nil))), the list constructor macro of the spec.
func Of[T any](items ...T) *ConsList[T] {
	l := Nil[T]()
	for i := len(items) - 1; i >= 0; i-- {
		l = l.Push(items[i])
	}
	return l
}

// String renders the list as "(head, head, ...)", or "nil" when empty,
// matching the cons-cell display convention the rest of the VM's
// diagnostics rely on.
func (l *ConsList[T]) String() string {
	if l.IsNil() {
		return "nil"
	}
	var b strings.Builder
	b.WriteByte('(')
	for cur, first := l, true; !cur.IsNil(); cur, first = cur.tail, false {
		if !first {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v", cur.head)
	}
	b.WriteByte(')')
	return b.String()
}
