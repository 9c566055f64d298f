// Package runtime is the execution engine. It runs compiled chunks on a
// register machine and exposes the value model, coroutines and the host
// surface used to embed scripts.
package runtime

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/tanema/luacore/src/chunk"
	"github.com/tanema/luacore/src/conf"
	"github.com/tanema/luacore/src/lerrors"
	"github.com/tanema/luacore/src/logs"
)

const envName = "_ENV"

// State is the root object of the engine. It owns the main thread, the
// environment, the registry, loaded modules and every open upvalue. A State is
// single threaded, only one Run may be active at a time.
type State struct {
	// ModuleLoader resolves require calls, nil disables loading new modules.
	ModuleLoader ModuleLoader
	// Stdout is where print and the console write.
	Stdout io.Writer

	config       conf.Config
	logger       *slog.Logger
	mainThread   *Thread
	threadStack  []*Thread
	coroutines   map[*Thread]struct{}
	openUpValues []*UpValue
	environment  *Table
	registry     *Table
	packages     *Table
	envUpValue   *UpValue
	metatables   [typeCount]*Table
	constCache   map[*chunk.Chunk][]Value
	isRunning    atomic.Bool
}

// New creates a state without any libraries loaded. Call OpenLibs to register
// the builtin functions. Unset fields of cfg fall back to conf.Default.
func New(cfg conf.Config) *State {
	cfg = cfg.WithDefaults()
	state := &State{
		Stdout:      os.Stdout,
		config:      cfg,
		logger:      logs.Discard(),
		coroutines:  map[*Thread]struct{}{},
		environment: NewTable(nil, nil),
		registry:    NewTable(nil, nil),
		packages:    NewTable(nil, nil),
		constCache:  map[*chunk.Chunk][]Value{},
	}
	state.ModuleLoader = &FileModuleLoader{Path: cfg.Modules.Path}
	state.mainThread = newThread(state, nil, true)
	state.threadStack = []*Thread{state.mainThread}
	state.envUpValue = ClosedUpValue(state.mainThread, TableValue(state.environment))
	state.environment.SetString("_G", TableValue(state.environment))
	state.registry.SetString("_LOADED", TableValue(state.packages))
	return state
}

// SetLogger replaces the logger used for engine events and warnings.
func (s *State) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logs.Discard()
	}
	s.logger = logger
}

// Logger returns the engine logger.
func (s *State) Logger() *slog.Logger { return s.logger }

// Config returns the configuration the state was created with.
func (s *State) Config() conf.Config { return s.config }

// Environment is the global table scripts see as _ENV.
func (s *State) Environment() *Table { return s.environment }

// Registry is a table reserved for the host.
func (s *State) Registry() *Table { return s.registry }

// LoadedModules is the cache of required modules by name.
func (s *State) LoadedModules() *Table { return s.packages }

// MainThread returns the thread that always exists.
func (s *State) MainThread() *Thread { return s.mainThread }

// CurrentThread returns the innermost running thread.
func (s *State) CurrentThread() *Thread { return s.threadStack[len(s.threadStack)-1] }

// IsRunning reports if a Run is in progress.
func (s *State) IsRunning() bool { return s.isRunning.Load() }

// Push pushes a value on the stack of the current thread.
func (s *State) Push(val Value) error {
	return s.CurrentThread().stack.Push(val)
}

// SetGlobal sets a value in the environment.
func (s *State) SetGlobal(name string, val Value) {
	s.environment.SetString(name, val)
}

// GetGlobal reads a value from the environment.
func (s *State) GetGlobal(name string) Value {
	return s.environment.GetString(name)
}

// Run executes a top level chunk on the current thread. results receives the
// values returned by the chunk and the amount written is returned. Run fails
// with lerrors.ErrStateRunning without touching the state if another Run is
// active.
func (s *State) Run(ctx context.Context, fn *chunk.Chunk, results []Value) (int, error) {
	if !s.isRunning.CompareAndSwap(false, true) {
		return 0, lerrors.ErrStateRunning
	}
	defer s.isRunning.Store(false)

	thread := s.CurrentThread()
	defer func() { _ = thread.stack.SetTop(0) }()
	s.logger.Debug("run chunk", "name", fn.Name, "file", fn.Filename)
	n, err := Invoke(ctx, NewClosure(s, fn), &CallContext{
		State:         s,
		Thread:        thread,
		ChunkName:     fn.Name,
		RootChunkName: fn.Name,
	}, results)
	if err != nil {
		s.logger.Debug("chunk failed", "name", fn.Name, "err", err)
		return 0, err
	}
	return n, nil
}

// Call calls fn with args on the current thread and returns every result.
func (s *State) Call(ctx context.Context, fn Value, args ...Value) ([]Value, error) {
	return s.call(ctx, s.CurrentThread(), fn, args, -1)
}

// call pushes fn and args above the live part of the stack of thread and
// invokes it. nresults < 0 returns every result, otherwise exactly nresults
// values padded with nil.
func (s *State) call(ctx context.Context, thread *Thread, fn Value, args []Value, nresults int) ([]Value, error) {
	base := thread.stack.Top()
	defer func() { _ = thread.stack.SetTop(base) }()
	if err := thread.stack.Push(fn); err != nil {
		return nil, err
	} else if err := thread.stack.Push(args...); err != nil {
		return nil, err
	}
	callee, nargs, err := s.resolveCallable(thread, base, len(args))
	if err != nil {
		return nil, s.wrapError(thread, err)
	} else if err := thread.stack.SetTop(base + 1 + nargs); err != nil {
		return nil, err
	}

	size := nresults
	if nresults < 0 {
		size = conf.MAXRESULTS
	}
	buf := thread.rentBuffer(size)
	defer thread.returnBuffer(buf)
	n, err := Invoke(ctx, callee, &CallContext{
		State:         s,
		Thread:        thread,
		ArgumentCount: nargs,
		FrameBase:     base + 1,
		ChunkName:     callee.Name(),
	}, buf)
	if err != nil {
		return nil, err
	}
	if nresults >= 0 {
		n = nresults
	}
	out := make([]Value, n)
	copy(out, buf[:n])
	return out, nil
}

// getOrAddUpValue returns the open upvalue aliasing the register of thread so
// that closures capturing the same variable share it.
func (s *State) getOrAddUpValue(thread *Thread, registerIndex int) *UpValue {
	for _, upval := range s.openUpValues {
		if upval.thread == thread && upval.registerIndex == registerIndex {
			return upval
		}
	}
	upval := OpenUpValue(thread, registerIndex)
	s.openUpValues = append(s.openUpValues, upval)
	return upval
}

// closeUpValues closes every open upvalue of thread at or above base.
func (s *State) closeUpValues(thread *Thread, base int) {
	for i := 0; i < len(s.openUpValues); {
		upval := s.openUpValues[i]
		if upval.thread != thread || upval.registerIndex < base {
			i++
			continue
		}
		upval.Close()
		last := len(s.openUpValues) - 1
		s.openUpValues[i] = s.openUpValues[last]
		s.openUpValues[last] = nil
		s.openUpValues = s.openUpValues[:last]
	}
}

// constantsOf converts the constants of fn once per state.
func (s *State) constantsOf(fn *chunk.Chunk) []Value {
	if consts, ok := s.constCache[fn]; ok {
		return consts
	}
	consts := make([]Value, len(fn.Constants))
	for i, c := range fn.Constants {
		consts[i] = ValueOf(c)
	}
	s.constCache[fn] = consts
	return consts
}

// Close kills every suspended coroutine so that their goroutines exit and
// their upvalues are closed.
func (s *State) Close() error {
	for thread := range s.coroutines {
		if thread.status == ThreadSuspended {
			if err := thread.Close(); err != nil {
				return err
			}
		}
	}
	s.closeUpValues(s.mainThread, 0)
	s.mainThread.stack.reset()
	return nil
}
