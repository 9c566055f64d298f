package runtime

import (
	"fmt"
	"strings"
)

// Traceback is a snapshot of the call stacks of the running threads. RootFunc
// is the script function at the bottom of the main thread, its frame is not
// part of StackFrames.
type Traceback struct {
	RootFunc    *Closure
	StackFrames []CallStackFrame
	root        *CallStackFrame
}

// GetTraceback collects the frames of the main thread and of every resumed
// coroutine, in resume order. The bottom frame of each thread and frames
// pushed by hooks are left out.
func (s *State) GetTraceback() *Traceback {
	tb := &Traceback{}
	for _, thread := range s.threadStack {
		tb.StackFrames = appendFrames(tb.StackFrames, thread)
	}
	tb.setRoot(s.mainThread)
	return tb
}

// threadTraceback collects the frames of one thread. The root is the bottom
// frame of thread when it is a script closure, else the main thread root.
func (s *State) threadTraceback(thread *Thread) *Traceback {
	tb := &Traceback{StackFrames: appendFrames(nil, thread)}
	if thread == s.mainThread || !tb.setRoot(thread) {
		tb.setRoot(s.mainThread)
	}
	return tb
}

func appendFrames(frames []CallStackFrame, thread *Thread) []CallStackFrame {
	for i := 1; i < len(thread.callStack); i++ {
		if !thread.callStack[i].IsHook {
			frames = append(frames, thread.callStack[i])
		}
	}
	return frames
}

func (tb *Traceback) setRoot(thread *Thread) bool {
	if len(thread.callStack) == 0 {
		return false
	}
	cls, ok := thread.callStack[0].Function.(*Closure)
	if !ok {
		return false
	}
	frame := thread.callStack[0]
	tb.RootFunc, tb.root = cls, &frame
	return true
}

// Lines formats the frames most recent first, ending with the root function.
func (tb *Traceback) Lines() []string {
	lines := make([]string, 0, len(tb.StackFrames)+1)
	for i := len(tb.StackFrames) - 1; i >= 0; i-- {
		frame := tb.StackFrames[i]
		switch fn := frame.Function.(type) {
		case *Closure:
			linfo := fn.val.LineAt(frame.pc)
			lines = append(lines, fmt.Sprintf("\t%v:%v: in function <%v>", fn.val.Filename, linfo.Line, fn.Name()))
		case *GoFunc:
			lines = append(lines, fmt.Sprintf("\t[Go]: in function '%v'", fn.Name()))
		}
	}
	if tb.RootFunc != nil {
		var pc int64
		if tb.root != nil {
			pc = tb.root.pc
		}
		linfo := tb.RootFunc.val.LineAt(pc)
		lines = append(lines, fmt.Sprintf("\t%v:%v: in main chunk", tb.RootFunc.val.Filename, linfo.Line))
	}
	return lines
}

func (tb *Traceback) String() string {
	return "stack traceback:\n" + strings.Join(tb.Lines(), "\n")
}
