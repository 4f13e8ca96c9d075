//go:build amd64

package jit

import (
	"math"
	"unsafe"

	"github.com/lumenlisp/lumen/lumen"
)

// activeState is the process-wide "active state" slot: the single *State
// whose interpreter native machine code is allowed to call back into via
// the bridge functions below. It must be saved and restored around every
// native invocation so that nested JIT -> interpreter -> JIT reentrancy
// (an uncompiled callee calling back through callFromJIT, which itself
// evaluates interpreter code that may invoke another compiled function)
// always resolves free variables and dispatches against the right State.
// This mirrors the original's vdlisp::jit_active_state global exactly,
// carried over unchanged in spirit: a single mutable slot rather than a
// per-call parameter, because the machine code ABI has no room to pass it.
var activeState *lumen.State
var activeEnv *lumen.Frame

// withActiveState saves/restores the active-state slot around fn, which
// performs one native invocation (directly or transitively through bridge
// calls).
func withActiveState(s *lumen.State, env *lumen.Frame, fn func() float64) float64 {
	prevState, prevEnv := activeState, activeEnv
	activeState, activeEnv = s, env
	defer func() { activeState, activeEnv = prevState, prevEnv }()
	return fn()
}

// bridgeCallFromJIT is called by compiled machine code when it needs to
// invoke a callee that has no compiled code of its own (or whose compiled
// pointer isn't known at emission time). calleeBits identifies the
// target lumen.Value (a TagFunction Value, passed as its raw uint64 bits);
// args/argc describe the native argument array. It falls back to the
// interpreter's Apply, and returns a quiet NaN if the callee cannot be
// invoked at all (the same sentinel an ordinary deopt returns).
//
//go:nosplit
func bridgeCallFromJIT(calleeBits uint64, args *float64, argc int32) float64 {
	s := activeState
	if s == nil {
		return math.NaN()
	}
	callee := lumen.Value(calleeBits)
	slice := unsafe.Slice(args, int(argc))
	vals := make([]lumen.Value, argc)
	for i, f := range slice {
		vals[i] = lumen.NumberValue(f)
	}
	result := s.Apply(callee, vals, activeEnv, lumen.Nil)
	if !result.IsNumber() {
		return math.NaN()
	}
	return result.Number()
}

// bridgeLookupNumber resolves a free variable by its (already interned)
// symbol Value against a compile-time-captured environment pointer, for
// code emitted outside of any param/local binding. Both the environment
// pointer and the symbol Value are baked into the generated code as
// constants when the function is compiled (the environment is the
// function's own closure environment, held alive independently by
// funcObj.Env for exactly as long as the compiled code can run, so baking
// its address as a raw immediate the Go collector can't see is safe: a
// real, GC-visible pointer to the same Frame keeps it alive the whole
// time).
//
//go:nosplit
func bridgeLookupNumber(envPtr uintptr, symBits uint64) float64 {
	env := (*lumen.Frame)(unsafe.Pointer(envPtr))
	sym := lumen.Value(symBits)
	v, ok := env.Lookup(activeState.SymbolName(sym))
	if !ok || !v.IsNumber() {
		return math.NaN()
	}
	return v.Number()
}

func funcPointer(fn interface{}) uint64 {
	// Obtaining a callable Go function's entry address this way only works
	// for package-level, non-generic functions with no captured closure
	// state, which bridgeCallFromJIT/bridgeLookupNumber are by
	// construction (go:nosplit, no closure). This is the same "raw
	// function pointer in a register" idiom the corpus's own bridge ABI
	// documents, carried over unchanged: fragile, not correctness-bearing,
	// and confined entirely to this file.
	type iface struct {
		typ  unsafe.Pointer
		data unsafe.Pointer
	}
	return uint64(uintptr((*iface)(unsafe.Pointer(&fn)).data))
}

// callFromJITTrampoline and lookupNumberTrampoline are hand-written
// assembly shims (trampoline_amd64.s) that take the stack-laid-out
// arguments our own emitter passes and re-issue them as a call against
// bridgeCallFromJIT and bridgeLookupNumber using Go's ABI0 convention. Compiled code
// calls these trampolines, never the Go functions directly.
func callFromJITTrampoline(calleeBits uint64, args *float64, argc int32) float64
func lookupNumberTrampoline(envPtr uintptr, symBits uint64) float64

func callFromJITAddr() uint64  { return funcPointer(callFromJITTrampoline) }
func lookupNumberAddr() uint64 { return funcPointer(lookupNumberTrampoline) }
