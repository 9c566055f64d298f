package chunk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/tanema/luacore/src/conf"
)

type dumpEnvelope struct {
	Format  int    `cbor:"format"`
	Version string `cbor:"version"`
	Main    *Chunk `cbor:"main"`
}

// ErrNotBinary is returned by Undump when the data does not start with the
// binary chunk signature.
var ErrNotBinary = errors.New("not a binary chunk")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("chunk: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Dump serializes the chunk and all of its nested functions. The output starts
// with conf.LUASIGNATURE so that it can be detected as binary data. If strip is
// true, line traces are left out.
func (c *Chunk) Dump(strip bool) ([]byte, error) {
	main := c
	if strip {
		main = c.stripped()
	}
	data, err := cborEncMode.Marshal(dumpEnvelope{
		Format:  conf.LUAFORMAT,
		Version: conf.LUAVERSION,
		Main:    main,
	})
	if err != nil {
		return nil, fmt.Errorf("chunk: marshal %v: %w", c.Name, err)
	}
	return append([]byte(conf.LUASIGNATURE), data...), nil
}

// IsBinary reports if data starts with the binary chunk signature.
func IsBinary(data []byte) bool {
	return bytes.HasPrefix(data, []byte(conf.LUASIGNATURE))
}

// Undump deserializes a chunk previously created with Dump.
func Undump(data []byte) (*Chunk, error) {
	if !IsBinary(data) {
		return nil, ErrNotBinary
	}
	var env dumpEnvelope
	if err := cbor.Unmarshal(data[len(conf.LUASIGNATURE):], &env); err != nil {
		return nil, fmt.Errorf("chunk: unmarshal: %w", err)
	}
	if env.Format != conf.LUAFORMAT {
		return nil, fmt.Errorf("chunk: format mismatch, expected %v but found %v", conf.LUAFORMAT, env.Format)
	} else if env.Main == nil {
		return nil, errors.New("chunk: missing main function")
	}
	if err := env.Main.normalize(); err != nil {
		return nil, err
	}
	return env.Main, nil
}

// Read undumps a chunk from a reader.
func Read(src io.Reader) (*Chunk, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("chunk: read: %w", err)
	}
	return Undump(data)
}

// File undumps a chunk from a file on disk.
func File(path string) (*Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	fn, err := Undump(data)
	if err != nil {
		return nil, fmt.Errorf("chunk: %v: %w", path, err)
	}
	return fn, nil
}

// cbor decodes whole numbers into integer types, constants are always floats.
func (c *Chunk) normalize() error {
	for i, k := range c.Constants {
		switch tk := k.(type) {
		case nil, bool, float64, string:
		case int64:
			c.Constants[i] = float64(tk)
		case uint64:
			c.Constants[i] = float64(tk)
		case float32:
			c.Constants[i] = float64(tk)
		default:
			return fmt.Errorf("chunk: %v has invalid constant of type %T", c.Name, k)
		}
	}
	for i, fn := range c.FnTable {
		if fn == nil {
			return fmt.Errorf("chunk: %v has a nil function at %v", c.Name, i)
		} else if err := fn.normalize(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chunk) stripped() *Chunk {
	cp := *c
	cp.LineTrace = nil
	cp.FnTable = make([]*Chunk, len(c.FnTable))
	for i, fn := range c.FnTable {
		if fn != nil {
			cp.FnTable[i] = fn.stripped()
		}
	}
	return &cp
}
