// Package chunk describes the loadable unit the runtime executes. A chunk is a
// compiled function prototype: bytecode, constants, nested prototypes and the
// description of which upvalues a closure of it captures. Chunks are produced
// by a compiler front-end and can be dumped to and undumped from a binary form.
package chunk

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/tanema/luacore/src/bytecode"
	"github.com/tanema/luacore/src/conf"
)

type (
	// LineInfo is a shared struct that is used for tracking where the behviour
	// originated from in the sourcecode.
	LineInfo struct {
		Line   int64 `cbor:"line"`
		Column int64 `cbor:"column"`
	}
	// UpIndex describes where a closure finds an upvalue when it is created.
	// FromStack means the value is a register of the enclosing function, else it
	// is one of the upvalues of the enclosing closure.
	UpIndex struct {
		Name      string `cbor:"name"`
		FromStack bool   `cbor:"from_stack"`
		Index     uint8  `cbor:"index"`
	}
	// Chunk is a construct that captures a function scope that can be called.
	// it is not always a function, even the main scope of a file outside of a function
	// is a Chunk.
	Chunk struct {
		Name         string     `cbor:"name"`
		Filename     string     `cbor:"filename"`
		Constants    []any      `cbor:"constants"` // nil, bool, float64 or string
		UpIndexes    []UpIndex  `cbor:"upindexes"`
		ByteCodes    []uint32   `cbor:"bytecodes"`
		FnTable      []*Chunk   `cbor:"fntable"`
		LineTrace    []LineInfo `cbor:"linetrace"`
		LineInfo     `cbor:"lineinfo"`
		Arity        int64 `cbor:"arity"` // parameter count
		MaxStackSize int64 `cbor:"max_stack_size"`
		Varargs      bool  `cbor:"varargs"`
	}
)

const chunkTemplate = `{{.Name}} <{{.Filename}}:{{.Line}}> ({{.ByteCodes | len}} instructions)
{{.Arity}}{{if .Varargs}}+{{end}} params, {{.UpIndexes | len}} upvalues, {{.MaxStackSize}} slots, {{.Constants | len}} constants, {{.FnTable | len}} functions
{{- range $i, $code := .ByteCodes}}
	{{$i}}	[{{lineAt $ $i}}]	{{$code | codeMeta}}
{{- end}}
{{range .FnTable}}
{{. -}}
{{end}}`

var chunkTmpl = template.Must(template.New("chunk").Funcs(template.FuncMap{
	"codeMeta": bytecode.ToString,
	"lineAt": func(c *Chunk, pc int) int64 {
		return c.LineAt(int64(pc)).Line
	},
}).Parse(chunkTemplate))

// New creates an empty chunk with a name, the file it came from and its parameter count.
func New(filename, name string, arity int64, varargs bool) *Chunk {
	if name == "" {
		name = conf.DefaultChunkName
	}
	return &Chunk{
		Filename: filename,
		Name:     name,
		Arity:    arity,
		Varargs:  varargs,
	}
}

// NewMain creates the main chunk of a file, which is a vararg function with
// _ENV as its only upvalue.
func NewMain(filename string) *Chunk {
	main := New(filename, "<main>", 0, true)
	main.UpIndexes = []UpIndex{{Name: "_ENV", FromStack: true, Index: 0}}
	return main
}

// GetConst returns the constant at idx, nil if out of range.
func (c *Chunk) GetConst(idx int64) any {
	if idx < 0 || idx >= int64(len(c.Constants)) {
		return nil
	}
	return c.Constants[idx]
}

// AddConst adds a constant to the chunk reusing an existing entry when
// possible and returns its index.
func (c *Chunk) AddConst(val any) (uint16, error) {
	switch tval := val.(type) {
	case int:
		val = float64(tval)
	case int64:
		val = float64(tval)
	case nil, bool, float64, string:
	default:
		return 0, fmt.Errorf("cannot store a %T as a constant", val)
	}
	for i, k := range c.Constants {
		if k == val {
			return uint16(i), nil
		}
	}
	if len(c.Constants) >= int(^uint16(0)) {
		return 0, fmt.Errorf("too many constants in %v", c.Name)
	}
	c.Constants = append(c.Constants, val)
	return uint16(len(c.Constants) - 1), nil
}

// AddFn adds a nested function prototype and returns its index for CLOSURE.
func (c *Chunk) AddFn(fn *Chunk) uint16 {
	c.FnTable = append(c.FnTable, fn)
	return uint16(len(c.FnTable) - 1)
}

// Code appends an instruction and returns its program counter.
func (c *Chunk) Code(op uint32, linfo LineInfo) int {
	c.ByteCodes = append(c.ByteCodes, op)
	c.LineTrace = append(c.LineTrace, linfo)
	return len(c.ByteCodes) - 1
}

// LineAt returns the source position of the instruction at pc. Chunks without
// line traces report their own definition line.
func (c *Chunk) LineAt(pc int64) LineInfo {
	if pc >= 0 && pc < int64(len(c.LineTrace)) {
		return c.LineTrace[pc]
	}
	return c.LineInfo
}

// StackSize is the amount of registers a call of this chunk needs.
func (c *Chunk) StackSize() int64 {
	return max(c.MaxStackSize, c.Arity)
}

func (c *Chunk) String() string {
	var buf bytes.Buffer
	if err := chunkTmpl.Execute(&buf, c); err != nil {
		return fmt.Sprintf("<%s: %v>", c.Name, err)
	}
	return strings.TrimRight(buf.String(), "\n")
}
