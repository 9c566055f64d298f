package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/tanema/luacore/src/lerrors"
)

// wrapError attaches the position of the innermost script frame and the
// traceback to err. Errors that are already wrapped pass through untouched so
// that the traceback reflects the point of failure.
func (s *State) wrapError(thread *Thread, err error) error {
	var lerr *lerrors.Error
	if errors.As(err, &lerr) {
		return err
	}
	wrapped := &lerrors.Error{
		Kind:      lerrors.RuntimeErr,
		Err:       err,
		Traceback: s.GetTraceback().Lines(),
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		wrapped.Kind = lerrors.CancelledErr
	}
	if cls, pc, ok := thread.currentClosureFrame(0); ok {
		linfo := cls.val.LineAt(pc)
		wrapped.Filename = cls.val.Filename
		wrapped.Line = linfo.Line
		wrapped.Column = linfo.Column
	}
	return wrapped
}

// newUserErr builds the error raised by the error builtin. level 1 points at
// the script function that called error, level 0 adds no position.
func newUserErr(call *CallContext, val Value, level int64) error {
	msg := val.String()
	if val.typ == TypeString && level > 0 {
		if cls, pc, ok := call.Thread.currentClosureFrame(int(level)); ok {
			msg = fmt.Sprintf("%v:%v: %v", cls.val.Filename, cls.val.LineAt(pc).Line, msg)
			val = StringValue(msg)
		}
	}
	return &lerrors.Error{
		Kind:      lerrors.UserErr,
		Err:       errors.New(msg),
		Value:     val,
		Traceback: call.State.GetTraceback().Lines(),
	}
}

// errorValue converts a failure back into the value a protected call reports.
func errorValue(err error) Value {
	var lerr *lerrors.Error
	if !errors.As(err, &lerr) {
		return StringValue(err.Error())
	}
	switch lerr.Kind {
	case lerrors.UserErr:
		if val, isVal := lerr.Value.(Value); isVal {
			return val
		}
		return StringValue(lerr.Err.Error())
	case lerrors.RuntimeErr:
		if lerr.Filename != "" {
			return StringValue(fmt.Sprintf("%v:%v: %v", lerr.Filename, lerr.Line, lerr.Err))
		}
		return StringValue(lerr.Err.Error())
	default:
		return StringValue(lerr.Error())
	}
}

// isCancelled reports failures that protected calls must not swallow.
func isCancelled(err error) bool {
	var lerr *lerrors.Error
	if errors.As(err, &lerr) && lerr.Kind == lerrors.CancelledErr {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
