package runtime

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
)

var startTime = time.Now()

func createOSLib(*State) *Table {
	lib := NewTable(nil, nil)
	for name, fn := range map[string]NativeFunc{
		"clock":    stdOSClock,
		"date":     stdOSDate,
		"difftime": stdOSDifftime,
		"getenv":   stdOSGetenv,
		"time":     stdOSTime,
	} {
		lib.SetString(name, FunctionValue(Fn("os."+name, fn)))
	}
	return lib
}

func stdOSClock(_ context.Context, _ *CallContext, results []Value) (int, error) {
	return Return(results, NumberValue(time.Since(startTime).Seconds())), nil
}

func stdOSGetenv(_ context.Context, call *CallContext, results []Value) (int, error) {
	name, err := call.CheckString(0)
	if err != nil {
		return 0, err
	}
	if val, ok := os.LookupEnv(name); ok {
		return Return(results, StringValue(val)), nil
	}
	return Return(results, Nil), nil
}

func stdOSDifftime(_ context.Context, call *CallContext, results []Value) (int, error) {
	end, err := call.CheckNumber(0)
	if err != nil {
		return 0, err
	}
	start, err := call.OptNumber(1, 0)
	if err != nil {
		return 0, err
	}
	return Return(results, NumberValue(end-start)), nil
}

func stdOSTime(_ context.Context, call *CallContext, results []Value) (int, error) {
	if call.Arg(0).IsNil() {
		return Return(results, NumberValue(float64(time.Now().Unix()))), nil
	}
	tbl, err := call.CheckTable(0)
	if err != nil {
		return 0, err
	}
	field := func(name string, def int64, required bool) (int, error) {
		val := tbl.GetString(name)
		if val.IsNil() {
			if required {
				return 0, fmt.Errorf("field '%v' missing in date table", name)
			}
			return int(def), nil
		}
		n, ok := val.ToInteger()
		if !ok {
			return 0, fmt.Errorf("field '%v' is not an integer", name)
		}
		return int(n), nil
	}
	var parts [6]int
	for i, fld := range []struct {
		name     string
		def      int64
		required bool
	}{
		{"year", 0, true},
		{"month", 0, true},
		{"day", 0, true},
		{"hour", 12, false},
		{"min", 0, false},
		{"sec", 0, false},
	} {
		if parts[i], err = field(fld.name, fld.def, fld.required); err != nil {
			return 0, err
		}
	}
	stamp := time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, time.Local)
	return Return(results, NumberValue(float64(stamp.Unix()))), nil
}

func stdOSDate(_ context.Context, call *CallContext, results []Value) (int, error) {
	format, err := call.OptString(0, "%c")
	if err != nil {
		return 0, err
	}
	stamp, err := call.OptInteger(1, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	fmtTime := time.Unix(stamp, 0)
	if strings.HasPrefix(format, "!") {
		fmtTime = fmtTime.UTC()
		format = format[1:]
	}
	if strings.TrimSpace(format) == "*t" {
		tbl := NewTable(nil, nil)
		tbl.SetString("year", NumberValue(float64(fmtTime.Year())))
		tbl.SetString("month", NumberValue(float64(fmtTime.Month())))
		tbl.SetString("day", NumberValue(float64(fmtTime.Day())))
		tbl.SetString("hour", NumberValue(float64(fmtTime.Hour())))
		tbl.SetString("min", NumberValue(float64(fmtTime.Minute())))
		tbl.SetString("sec", NumberValue(float64(fmtTime.Second())))
		tbl.SetString("wday", NumberValue(float64(fmtTime.Weekday()+1)))
		tbl.SetString("yday", NumberValue(float64(fmtTime.YearDay())))
		tbl.SetString("isdst", BoolValue(fmtTime.IsDST()))
		return Return(results, TableValue(tbl)), nil
	}
	strf, err := strftime.New(format)
	if err != nil {
		return 0, fmt.Errorf("invalid time format '%v'", format)
	}
	return Return(results, StringValue(strf.FormatString(fmtTime))), nil
}
