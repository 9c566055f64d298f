// Package lerrors are a unified errors package for the luacore runtime so that
// they can be formatted in a unified way and handled in a unified way.
package lerrors

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ErrorKind is an enum to describe where the error originates from.
	ErrorKind int
	// Error captures all errors in the luacore runtime. It distinguishes between
	// runtime, user and cancellation errors and will format them accordingly. The
	// traceback is captured at the point of failure, before any frame unwinds.
	Error struct {
		Line      int64
		Column    int64
		Kind      ErrorKind
		Err       error
		Filename  string
		Traceback []string
		// Value is the original payload given to error() for user errors.
		Value any
	}
)

const (
	// RuntimeErr is an error that originates from the runtime.
	RuntimeErr ErrorKind = iota
	// UserErr is an error raised from user code by the user.
	UserErr
	// CancelledErr is raised when the context of a run was cancelled.
	CancelledErr
)

// ErrStateRunning is returned when a state is asked to run while a previous
// run has not completed.
var ErrStateRunning = errors.New("the lua state is currently running")

func (err *Error) Error() string {
	switch err.Kind {
	case RuntimeErr:
		if len(err.Traceback) == 0 {
			return fmt.Sprintf("lua:%v:%v: %v", err.Filename, err.Line, err.Err)
		}
		return fmt.Sprintf(
			"lua:%v:%v: %v\nstack traceback:\n%v",
			err.Filename,
			err.Line,
			err.Err,
			strings.Join(err.Traceback, "\n"),
		)
	case CancelledErr:
		return fmt.Sprintf("lua: execution interrupted: %v", err.Err)
	default:
		return err.Err.Error()
	}
}

func (err *Error) Unwrap() error {
	return err.Err
}
