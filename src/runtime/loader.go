package runtime

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tanema/luacore/src/chunk"
)

const (
	// PkgPathSeparator replaces dots in module names when searching.
	PkgPathSeparator = "/"
	// PkgTemplateSeparator separates search templates in package.path.
	PkgTemplateSeparator = ";"
	// PkgSubstitutionPoint is replaced by the module name in a template.
	PkgSubstitutionPoint = "?"
)

// ModuleLoader resolves module names for require.
type ModuleLoader interface {
	Exists(name string) bool
	Load(ctx context.Context, name string) (*chunk.Chunk, error)
}

// FileModuleLoader loads dumped chunks from disk, trying each template of
// Path in order.
type FileModuleLoader struct {
	Path []string
}

// SearchPath returns the first existing file for the module name.
func (l *FileModuleLoader) SearchPath(name string) (string, bool) {
	fileName := strings.ReplaceAll(name, ".", PkgPathSeparator)
	for _, tmpl := range l.Path {
		path := strings.ReplaceAll(tmpl, PkgSubstitutionPoint, fileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Exists reports if any template resolves to a file.
func (l *FileModuleLoader) Exists(name string) bool {
	_, found := l.SearchPath(name)
	return found
}

// Load reads and undumps the module chunk.
func (l *FileModuleLoader) Load(_ context.Context, name string) (*chunk.Chunk, error) {
	path, found := l.SearchPath(name)
	if !found {
		return nil, fmt.Errorf("module '%v' not found:\n\t%v", name, strings.Join(l.Path, "\n\t"))
	}
	return chunk.File(path)
}

func createPackageLib(s *State) *Table {
	lib := NewTable(nil, nil)
	lib.SetString("loaded", TableValue(s.packages))
	lib.SetString("config", StringValue(strings.Join([]string{
		PkgPathSeparator,
		PkgTemplateSeparator,
		PkgSubstitutionPoint,
	}, "\n")))
	lib.SetString("path", StringValue(strings.Join(s.config.Modules.Path, PkgTemplateSeparator)))
	lib.SetString("searchpath", FunctionValue(Fn("package.searchpath", stdPkgSearchPath)))
	return lib
}

func stdPkgSearchPath(_ context.Context, call *CallContext, results []Value) (int, error) {
	name, err := call.CheckString(0)
	if err != nil {
		return 0, err
	}
	path, err := call.CheckString(1)
	if err != nil {
		return 0, err
	}
	loader := &FileModuleLoader{Path: strings.Split(path, PkgTemplateSeparator)}
	if found, ok := loader.SearchPath(name); ok {
		return Return(results, StringValue(found)), nil
	}
	return Return(results, Nil, StringValue(fmt.Sprintf("module '%v' not found", name))), nil
}

func stdRequire(ctx context.Context, call *CallContext, results []Value) (int, error) {
	name, err := call.CheckString(0)
	if err != nil {
		return 0, err
	}
	loaded := call.State.packages
	if mod := loaded.GetString(name); !mod.IsNil() {
		return Return(results, mod), nil
	}
	loader := call.State.ModuleLoader
	if loader == nil || !loader.Exists(name) {
		return 0, fmt.Errorf("module '%v' not found", name)
	}
	fn, err := loader.Load(ctx, name)
	if err != nil {
		return 0, err
	}
	call.State.logger.Debug("require module", "name", name, "file", fn.Filename)
	res, err := call.State.call(ctx, call.Thread, FunctionValue(NewClosure(call.State, fn)), []Value{StringValue(name)}, 1)
	if err != nil {
		return 0, err
	}
	mod := res[0]
	if mod.IsNil() {
		mod = BoolValue(true)
	}
	loaded.SetString(name, mod)
	return Return(results, mod), nil
}
