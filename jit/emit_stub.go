//go:build !amd64

package jit

import "github.com/lumenlisp/lumen/lumen"

// Compiler on a non-amd64 GOARCH never compiles anything: every call to
// Compile reports failure, which lumen's Apply treats as a permanent
// jit_failed for that function. This keeps the interpreter itself fully
// portable while confining the machine-code backend to amd64, matching
// spec's framing of the JIT as a non-correctness-bearing fast path that any
// platform may simply not have.
type Compiler struct{}

func NewCompiler() *Compiler { return &Compiler{} }

var _ lumen.JITTier = (*Compiler)(nil)

func (c *Compiler) Compile(s *lumen.State, fn lumen.Value) lumen.NativeFunc {
	return nil
}
