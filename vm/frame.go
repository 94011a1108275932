package vm

import (
	"github.com/google/uuid"

	"github.com/hawkw/seax/cell"
)

// Frame is a debug-mode record of one closure's identity: the uuid it was
// tagged with when LDF built it, and the body list that identity names.
// It is the one piece of bookkeeping this machine's register-swap call
// convention needs for diagnostics: which closure is running right now.
type Frame struct {
	id   uuid.UUID
	body cell.List
}

// ID returns the frame's registry identity.
func (f *Frame) ID() uuid.UUID { return f.id }

// Registry tags every closure body LDF builds with a uuid, active only in
// debug mode, and tracks which tagged body is the innermost active call so a
// Fault can report which closure's invocation was running when it occurred.
type Registry struct {
	frames    map[cell.List]*Frame
	callStack []cell.List
}

// NewRegistry creates an empty debug closure registry.
func NewRegistry() *Registry {
	return &Registry{frames: make(map[cell.List]*Frame)}
}

// Tag assigns body a uuid the first time LDF builds a closure over it,
// returning the existing Frame on any later LDF over the same body (a
// closure built inside a loop or a recursive call shares one identity).
func (r *Registry) Tag(body cell.List) *Frame {
	if f, ok := r.frames[body]; ok {
		return f
	}
	f := &Frame{id: uuid.New(), body: body}
	r.frames[body] = f
	return f
}

// Push marks body as the innermost active call, after AP or RAP dispatches
// into it.
func (r *Registry) Push(body cell.List) {
	r.callStack = append(r.callStack, body)
}

// Pop discards the innermost active call, on RET.
func (r *Registry) Pop() {
	if n := len(r.callStack); n > 0 {
		r.callStack = r.callStack[:n-1]
	}
}

// Current returns the Frame of the innermost active call, or nil at
// toplevel (no call active), or for a call whose body no LDF tagged.
func (r *Registry) Current() *Frame {
	if len(r.callStack) == 0 {
		return nil
	}
	return r.frames[r.callStack[len(r.callStack)-1]]
}
