package lstring

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
)

const (
	flagLeftJust = 1 << iota
	flagShowSign
	flagSpace
	flagHash
	flagZero
	flagHasWidth
	flagHasPrec
)

// directive is one parsed %[flags][width][.precision]verb sequence.
type directive struct {
	prefix []rune
	verb   rune
	flags  uint32
}

// Format fills a printf style template. Arguments are expected to be plain go
// values: nil, bool, int64, float64, string or a fmt.Stringer.
//
// Supported verbs are d i u c o x X for integers, a A e E f g G for floats,
// s q for strings, p for pointers and %% for a literal percent.
func Format(tmpl string, args ...any) (string, error) {
	var buf strings.Builder
	runes := []rune(tmpl)
	argIndex := 0
	for i := 0; i < len(runes); i++ {
		if runes[i] != '%' {
			buf.WriteRune(runes[i])
			continue
		} else if i+1 < len(runes) && runes[i+1] == '%' {
			buf.WriteRune('%')
			i++
			continue
		}

		dir, next, err := parseDirective(runes, i)
		if err != nil {
			return "", err
		}
		i = next
		if argIndex >= len(args) {
			return "", fmt.Errorf("bad argument #%v to 'format' (no value)", argIndex+2)
		}
		str, err := dir.format(args[argIndex])
		if err != nil {
			return "", fmt.Errorf("bad argument #%v to 'format' (%w)", argIndex+2, err)
		}
		argIndex++
		buf.WriteString(str)
	}
	return buf.String(), nil
}

func parseDirective(runes []rune, start int) (directive, int, error) {
	dir := directive{}
	i := start + 1
	at := func(idx int) rune {
		if idx < len(runes) {
			return runes[idx]
		}
		return 0
	}
flags:
	for {
		switch at(i) {
		case '-':
			dir.flags |= flagLeftJust
		case '+':
			dir.flags |= flagShowSign
		case ' ':
			dir.flags |= flagSpace
		case '#':
			dir.flags |= flagHash
		case '0':
			dir.flags |= flagZero
		default:
			break flags
		}
		i++
	}
	if unicode.IsDigit(at(i)) {
		dir.flags |= flagHasWidth
		for unicode.IsDigit(at(i)) {
			i++
		}
	}
	if at(i) == '.' {
		dir.flags |= flagHasPrec
		i++
		for unicode.IsDigit(at(i)) {
			i++
		}
	}
	if i >= len(runes) {
		return dir, i, errors.New("invalid conversion to format string")
	}
	dir.prefix = runes[start:i]
	dir.verb = runes[i]
	return dir, i, nil
}

func (dir directive) format(arg any) (string, error) {
	prefix := string(dir.prefix)
	switch dir.verb {
	case 'd', 'i', 'c', 'o', 'x', 'X':
		ival, err := intArg(arg)
		if err != nil {
			return "", err
		}
		verb := dir.verb
		if verb == 'i' {
			verb = 'd'
		}
		return fmt.Sprintf(prefix+string(verb), ival), nil
	case 'u':
		ival, err := intArg(arg)
		if err != nil {
			return "", err
		}
		if idx := strings.Index(prefix, "."); idx >= 0 {
			prefix = prefix[:idx]
		}
		return fmt.Sprintf(prefix+"d", uint64(ival)), nil
	case 'a', 'A', 'e', 'E', 'f', 'F', 'g', 'G':
		fval, ok := toFloat(arg)
		if !ok {
			return "", fmt.Errorf("number expected, got %v", typeName(arg))
		}
		verb := dir.verb
		switch verb {
		case 'a':
			verb = 'x'
		case 'A':
			verb = 'X'
		case 'f', 'F':
			if dir.flags&flagHasPrec == 0 {
				prefix += ".6"
			}
		}
		return fmt.Sprintf(prefix+string(verb), fval), nil
	case 'q':
		switch targ := arg.(type) {
		case string:
			return fmt.Sprintf(prefix+"q", targ), nil
		case nil:
			return fmt.Sprintf(prefix+"s", "nil"), nil
		case bool, int64, float64:
			return fmt.Sprintf(prefix+"s", fmt.Sprint(targ)), nil
		default:
			return "", errors.New("value has no literal form")
		}
	case 's':
		return fmt.Sprintf(prefix+"s", toString(arg)), nil
	case 'p':
		return fmt.Sprintf(prefix+"p", arg), nil
	default:
		return "", fmt.Errorf("invalid conversion '%%%c' to 'format'", dir.verb)
	}
}

func intArg(val any) (int64, error) {
	if ival, ok := toInt(val); ok {
		return ival, nil
	} else if _, isNum := toFloat(val); isNum {
		return 0, errors.New("number has no integer representation")
	}
	return 0, fmt.Errorf("number expected, got %v", typeName(val))
}

func toInt(val any) (int64, bool) {
	switch tval := val.(type) {
	case int:
		return int64(tval), true
	case int64:
		return tval, true
	case float64:
		if math.Trunc(tval) != tval || math.IsInf(tval, 0) {
			return 0, false
		}
		return int64(tval), true
	default:
		return 0, false
	}
}

func toFloat(val any) (float64, bool) {
	switch tval := val.(type) {
	case int:
		return float64(tval), true
	case int64:
		return float64(tval), true
	case float64:
		return tval, true
	default:
		return 0, false
	}
}

func toString(val any) string {
	switch tval := val.(type) {
	case nil:
		return "nil"
	case string:
		return tval
	case fmt.Stringer:
		return tval.String()
	default:
		return fmt.Sprint(tval)
	}
}

func typeName(val any) string {
	switch val.(type) {
	case nil:
		return "no value"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", val)
	}
}
