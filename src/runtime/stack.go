package runtime

import "fmt"

// Stack is the value stack of a thread. Registers are addressed by absolute
// index so that references to a slot stay valid when the stack grows.
type Stack struct {
	values  []Value
	top     int
	maxSize int
}

func newStack(size, maxSize int) *Stack {
	return &Stack{
		values:  make([]Value, size),
		maxSize: maxSize,
	}
}

// Top is the index of the first free slot.
func (s *Stack) Top() int { return s.top }

// SetTop moves the top of the stack, growing it if needed. Slots that are
// freed keep their values until they are written again.
func (s *Stack) SetTop(top int) error {
	if err := s.ensureSize(top); err != nil {
		return err
	}
	s.top = top
	return nil
}

// Push adds a value at the top of the stack.
func (s *Stack) Push(vals ...Value) error {
	if err := s.ensureSize(s.top + len(vals)); err != nil {
		return err
	}
	s.top += copy(s.values[s.top:], vals)
	return nil
}

// Get reads a slot, slots that were never allocated are nil.
func (s *Stack) Get(idx int) Value {
	if idx < 0 || idx >= len(s.values) {
		return Nil
	}
	return s.values[idx]
}

// Set writes a slot, growing the stack if needed.
func (s *Stack) Set(idx int, val Value) error {
	if idx < 0 {
		return fmt.Errorf("cannot address negatively in the stack")
	} else if err := s.ensureSize(idx + 1); err != nil {
		return err
	}
	s.values[idx] = val
	return nil
}

// Slice returns a copy of the values between from and to.
func (s *Stack) Slice(from, to int) []Value {
	if to > len(s.values) {
		to = len(s.values)
	}
	if from >= to {
		return []Value{}
	}
	out := make([]Value, to-from)
	copy(out, s.values[from:to])
	return out
}

// ensures that index size-1 can be addressed.
func (s *Stack) ensureSize(size int) error {
	sliceLen := len(s.values)
	if size <= sliceLen {
		return nil
	} else if size > s.maxSize {
		return fmt.Errorf("stack overflow %v", size)
	}
	newLen := min(max(size, sliceLen*2), s.maxSize)
	newSlice := make([]Value, newLen)
	copy(newSlice, s.values)
	s.values = newSlice
	return nil
}

func (s *Stack) reset() {
	clear(s.values)
	s.top = 0
}
