// Package scope implements the compiler's compile-time symbol table: a
// chained map from identifier to the (level, index) pair the runtime
// environment addresses it by.
//
// A Table is either a root (no parent) or a child produced by Fork. Each
// level owns its own local bindings and a set of shadowed names that
// suppress lookup of the same name in an ancestor. The table is read-only
// during a compile except for the table being extended itself: Bind never
// reaches back to mutate a parent, so sibling tables forked from the same
// parent never observe each other's bindings.
package scope

// Position is the (level, index) pair a bound name resolves to.
type Position struct {
	Level uint
	Index uint
}

// Table is a single level of the compile-time symbol table.
type Table struct {
	parent    *Table
	bindings  map[string]Position
	shadowed  map[string]bool
	nextIndex uint
}

// New creates a root table with no parent.
func New() *Table {
	return &Table{
		bindings: make(map[string]Position),
		shadowed: make(map[string]bool),
	}
}

// Fork creates an empty child table whose parent is t. The caller (t) is
// not mutated; the child is free to bind names that shadow t's without
// affecting t or any other table forked from it.
func (t *Table) Fork() *Table {
	return &Table{
		parent:   t,
		bindings: make(map[string]Position),
		shadowed: make(map[string]bool),
	}
}

// Bind allocates the next free index at level for name in this table,
// un-shadowing it first if Shadow had marked it in this table.
func (t *Table) Bind(name string, level uint) Position {
	delete(t.shadowed, name)
	pos := Position{Level: level, Index: t.nextIndex}
	t.bindings[name] = pos
	t.nextIndex++
	return pos
}

// Lookup returns the nearest enclosing binding for name, walking from t to
// the root, or false if no table (including t) binds it before a table
// that shadows it is reached. The returned
// level is the level the name was bound with, plus one for every Fork hop
// between t and the table owning the binding, so a reference from deep
// inside nested lambdas correctly counts every intervening frame, while a
// reference from the same table Bind was called on returns exactly the
// level passed to Bind.
func (t *Table) Lookup(name string) (Position, bool) {
	hops := uint(0)
	for cur := t; cur != nil; cur = cur.parent {
		if pos, ok := cur.bindings[name]; ok {
			return Position{Level: pos.Level + hops, Index: pos.Index}, true
		}
		if cur.shadowed[name] {
			return Position{}, false
		}
		hops++
	}
	return Position{}, false
}

// ChainContains reports whether Lookup(name) would succeed anywhere in the
// chain rooted at t.
func (t *Table) ChainContains(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}

// Shadow marks name as shadowed at this level, so that a Lookup walking
// through this table stops here instead of reaching an ancestor's binding
// of it; a binding of name in this table itself is still found. Bind
// automatically clears a shadow for the name it binds.
func (t *Table) Shadow(name string) {
	t.shadowed[name] = true
}
