package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/chzyer/readline"
)

var errQuit = errors.New("quit")

const consoleHelp = `commands:
  globals                 list the names defined in the environment
  get <name[.field...]>   print a value from the environment
  call <name> [args...]   call a global function, args are numbers or strings
  traceback               print the traceback of the last failure
  help                    print this message
  quit                    leave the console`

// Console starts an interactive session to inspect and call into the state.
func (s *State) Console(ctx context.Context) error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	var lastErr error
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		} else if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}
		err = s.evalConsoleLine(ctx, line, rl.Stdout(), lastErr)
		if errors.Is(err, errQuit) {
			return nil
		} else if err != nil {
			lastErr = err
			fmt.Fprintln(rl.Stderr(), err)
		}
	}
}

func (s *State) evalConsoleLine(ctx context.Context, line string, out io.Writer, lastErr error) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "help":
		fmt.Fprintln(out, consoleHelp)
	case "quit", "exit":
		return errQuit
	case "globals":
		names := []string{}
		key, _, err := s.environment.Next(Nil)
		for ; err == nil && !key.IsNil(); key, _, err = s.environment.Next(key) {
			names = append(names, key.String())
		}
		if err != nil {
			return err
		}
		slices.Sort(names)
		fmt.Fprintln(out, strings.Join(names, "\n"))
	case "get":
		if len(fields) != 2 {
			return errors.New("usage: get <name[.field...]>")
		}
		val, err := s.lookupPath(ctx, fields[1])
		if err != nil {
			return err
		}
		str, err := s.toString(ctx, s.CurrentThread(), val)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, str)
	case "call":
		if len(fields) < 2 {
			return errors.New("usage: call <name> [args...]")
		}
		fn, err := s.lookupPath(ctx, fields[1])
		if err != nil {
			return err
		}
		args := make([]Value, len(fields)-2)
		for i, field := range fields[2:] {
			if n, ok := parseNumber(field); ok {
				args[i] = NumberValue(n)
			} else {
				args[i] = StringValue(field)
			}
		}
		res, err := s.Call(ctx, fn, args...)
		if err != nil {
			return err
		}
		parts := make([]string, len(res))
		for i, val := range res {
			if parts[i], err = s.toString(ctx, s.CurrentThread(), val); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, strings.Join(parts, "\t"))
	case "traceback":
		if lastErr == nil {
			fmt.Fprintln(out, "no failure recorded")
		} else {
			fmt.Fprintln(out, lastErr)
		}
	default:
		return fmt.Errorf("unknown command %q, try help", fields[0])
	}
	return nil
}

// lookupPath resolves a dotted name starting at the environment.
func (s *State) lookupPath(ctx context.Context, path string) (Value, error) {
	val := TableValue(s.environment)
	for _, part := range strings.Split(path, ".") {
		var err error
		if val, err = s.index(ctx, s.CurrentThread(), val, StringValue(part)); err != nil {
			return Nil, err
		}
	}
	return val, nil
}
