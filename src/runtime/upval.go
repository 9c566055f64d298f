package runtime

import "fmt"

// UpValue is a variable captured by one or more closures. While open it
// aliases a register on the stack of the thread that owns it, so every closure
// sharing it sees writes immediately. Closing it copies the register into the
// upvalue itself and it never reopens.
type UpValue struct {
	thread        *Thread
	val           Value
	registerIndex int
	closed        bool
}

// OpenUpValue creates an upvalue aliasing a register of thread.
func OpenUpValue(thread *Thread, registerIndex int) *UpValue {
	return &UpValue{
		thread:        thread,
		registerIndex: registerIndex,
	}
}

// ClosedUpValue creates an upvalue that already owns its value.
func ClosedUpValue(thread *Thread, val Value) *UpValue {
	return &UpValue{
		thread:        thread,
		val:           val,
		registerIndex: -1,
		closed:        true,
	}
}

// Thread is the thread whose stack the upvalue aliases while open.
func (u *UpValue) Thread() *Thread { return u.thread }

// RegisterIndex is the absolute stack index the upvalue aliases while open.
func (u *UpValue) RegisterIndex() int { return u.registerIndex }

// IsClosed reports if the upvalue owns its value.
func (u *UpValue) IsClosed() bool { return u.closed }

// GetValue reads the value regardless of state.
func (u *UpValue) GetValue() Value {
	if u.closed {
		return u.val
	}
	return u.thread.stack.Get(u.registerIndex)
}

// SetValue writes the value regardless of state.
func (u *UpValue) SetValue(val Value) {
	if u.closed {
		u.val = val
		return
	}
	_ = u.thread.stack.Set(u.registerIndex, val)
}

// Close snapshots the aliased register. Closing twice keeps the first snapshot.
func (u *UpValue) Close() {
	if u.closed {
		return
	}
	u.val = u.thread.stack.Get(u.registerIndex)
	u.closed = true
}

func (u *UpValue) String() string {
	return fmt.Sprintf("<-id: %v closed: %v->", u.registerIndex, u.closed)
}
