//go:build amd64

package jit

import (
	"github.com/lumenlisp/lumen/lumen"
)

// Compiler implements lumen.JITTier using the x86-64 backend in this
// package. It is stateless across functions except for a cache mapping an
// already-compiled function Value to its Module, so a function compiled
// once as someone else's callee is reused rather than recompiled.
type Compiler struct {
	compiled map[lumen.Value]*Module
}

func NewCompiler() *Compiler {
	return &Compiler{compiled: make(map[lumen.Value]*Module)}
}

var _ lumen.JITTier = (*Compiler)(nil)

// Compile attempts to compile fn, first recursively attempting every
// statically-resolvable callee it calls in head position (the
// precompilation walk), so that a direct native-to-native call can be
// emitted wherever the callee is already compiled by the time fn's own
// body is emitted. Returns nil on any failure, which the caller (lumen's
// Apply) treats as a permanent jit_failed.
func (c *Compiler) Compile(s *lumen.State, fn lumen.Value) lumen.NativeFunc {
	if mod, ok := c.compiled[fn]; ok {
		return mod.entry
	}
	for _, callee := range collectCalledFuncs(s, fn) {
		if callee == fn {
			continue
		}
		if s.FuncCompiled(callee) != nil || s.FuncJITFailed(callee) {
			continue
		}
		c.Compile(s, callee) // best-effort; an uncompiled callee just goes through the bridge
	}

	mod, ok := compileFunction(s, fn, c)
	if !ok {
		return nil
	}
	// Every entry into the native code sets the active-state slot the
	// bridge functions read, and restores the previous one on return.
	raw, env := mod.entry, s.FuncClosureEnv(fn)
	mod.entry = func(args []float64) float64 {
		return withActiveState(s, env, func() float64 { return raw(args) })
	}
	c.compiled[fn] = mod
	s.SetCompiled(fn, mod.entry, mod)
	return mod.entry
}

// collectCalledFuncs walks fn's full body (not just top-level calls) and
// resolves every head-position symbol that can be statically found through
// fn's own closure environment chain to a TagFunction Value, exactly as
// the original's collect_called_funcs does.
func collectCalledFuncs(s *lumen.State, fn lumen.Value) []lumen.Value {
	env := s.FuncClosureEnv(fn)
	seen := make(map[lumen.Value]bool)
	var out []lumen.Value
	var walk func(expr lumen.Value)
	walk = func(expr lumen.Value) {
		if expr.IsNil() || expr.IsNumber() || expr.Type() != lumen.TagPair {
			return
		}
		head := s.Car(expr)
		if !head.IsNumber() && head.Type() == lumen.TagSymbol {
			if v, ok := env.Lookup(s.SymbolName(head)); ok {
				if !v.IsNumber() && v.Type() == lumen.TagFunction && !seen[v] {
					seen[v] = true
					out = append(out, v)
				}
			}
		}
		walk(s.Car(expr))
		walk(s.Cdr(expr))
	}
	walk(s.FuncBody(fn))
	return out
}
