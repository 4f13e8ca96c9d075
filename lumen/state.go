package lumen

import (
	"fmt"
	"log"
	"os"
)

// PrimFn implements a special form: it receives the argument list
// unevaluated and the calling environment, and decides for itself what (if
// anything) to evaluate.
type PrimFn func(s *State, args Value, env *Frame) Value

// NativeBuiltin implements an eagerly-evaluated native builtin.
type NativeBuiltin func(s *State, args []Value, env *Frame) Value

type primEntry struct {
	name string
	fn   PrimFn
}

type nativeEntry struct {
	name string
	fn   NativeBuiltin
}

// Profiler observes user-function application; JIT compilation attempts are
// not reported to it. It is never part of the evaluator's correctness path;
// a nil Runtime.Profiler means "no profiler installed" and Start is then
// never called.
type Profiler interface {
	Start(fn Value) func()
}

// Runtime is lumen's ambient configuration/logging surface: an embedded
// *log.Logger (matching the teacher's Runtime.Stdout/Stderr pattern in
// elps/lisp), separate Stdout/Stderr writers for print/error output, and an
// optional Profiler hook.
type Runtime struct {
	Logger   *log.Logger
	Stdout   *os.File
	Stderr   *os.File
	Profiler Profiler
}

func NewRuntime() *Runtime {
	return &Runtime{
		Logger: log.New(os.Stderr, "", 0),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// State is the interpreter: the object arena, the global environment, the
// symbol interner, the loader cache, and the source-location/call-chain
// diagnostics maps, all scoped to one single-threaded session. A process
// never runs two States on the same goroutine concurrently (spec's
// single-threaded non-goal); JIT reentrancy around the active-state slot is
// handled in package jit.
type State struct {
	Runtime *Runtime

	heap     []cell
	freeList []uint32

	symbols *interner
	Global  *Frame

	prims   []primEntry
	natives []nativeEntry

	loadedModules map[string]Value

	srcMap          map[Value]SourceLoc
	srcCallChainMap map[Value][]ChainEntry
	sources         map[string]string
	currentExpr     Value

	trueSym Value
	jit     JITTier
}

func NewState(rt *Runtime) *State {
	if rt == nil {
		rt = NewRuntime()
	}
	s := &State{
		Runtime:         rt,
		symbols:         newInterner(),
		loadedModules:   make(map[string]Value),
		srcMap:          make(map[Value]SourceLoc),
		srcCallChainMap: make(map[Value][]ChainEntry),
		sources:         make(map[string]string),
	}
	s.Global = s.NewFrame(nil)
	registerCore(s)
	s.trueSym = s.Intern("#t")
	s.Global.Bind("#t", s.trueSym)
	return s
}

// registerPrim installs a special form, returning the Value that names it.
func (s *State) registerPrim(name string, fn PrimFn) Value {
	idx := len(s.prims)
	s.prims = append(s.prims, primEntry{name: name, fn: fn})
	v := makeTagged(TagPrim, uint64(idx))
	s.Global.Bind(name, v)
	return v
}

// registerNative installs a native builtin, returning the Value that names it.
func (s *State) registerNative(name string, fn NativeBuiltin) Value {
	idx := len(s.natives)
	s.natives = append(s.natives, nativeEntry{name: name, fn: fn})
	v := makeTagged(TagNative, uint64(idx))
	s.Global.Bind(name, v)
	return v
}

func (s *State) primAt(v Value) primEntry {
	return s.prims[v.payload()]
}

func (s *State) nativeAt(v Value) nativeEntry {
	return s.natives[v.payload()]
}

// ToString renders v the way `print`/`str` do: nil prints as the literal
// "nil", everything else defers to Render.
func (s *State) ToString(v Value) string {
	if v.IsNil() {
		return "nil"
	}
	return s.Render(v)
}

func (s *State) errorf(culprit Value, format string, args ...interface{}) *LumenError {
	return s.newError(culprit, fmt.Sprintf(format, args...))
}
