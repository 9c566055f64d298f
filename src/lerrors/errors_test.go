package lerrors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		desc string
		err  *Error
		msg  string
	}{
		{
			desc: "runtime with traceback",
			err: &Error{
				Kind:      RuntimeErr,
				Filename:  "main",
				Line:      3,
				Err:       errors.New("attempt to call a nil value"),
				Traceback: []string{"\tmain:3: in function <main>"},
			},
			msg: "lua:main:3: attempt to call a nil value\nstack traceback:\n\tmain:3: in function <main>",
		},
		{
			desc: "runtime without traceback",
			err:  &Error{Kind: RuntimeErr, Filename: "main", Line: 1, Err: errors.New("boom")},
			msg:  "lua:main:1: boom",
		},
		{
			desc: "user",
			err:  &Error{Kind: UserErr, Err: errors.New("custom"), Value: "custom"},
			msg:  "custom",
		},
		{
			desc: "cancelled",
			err:  &Error{Kind: CancelledErr, Err: context.Canceled},
			msg:  "lua: execution interrupted: context canceled",
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.msg, tc.err.Error())
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()
	err := error(&Error{Kind: CancelledErr, Err: context.DeadlineExceeded})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var luaErr *Error
	assert.ErrorAs(t, err, &luaErr)
	assert.Equal(t, CancelledErr, luaErr.Kind)
}
