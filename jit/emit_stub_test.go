//go:build !amd64

package jit

import (
	"testing"

	"github.com/lumenlisp/lumen/lumen"
	"github.com/stretchr/testify/assert"
)

func TestStubCompilerAlwaysFails(t *testing.T) {
	s := lumen.NewState(nil)
	defer s.Shutdown()

	_, lerr := s.RunSource(`(set f (fn (x) (* x x)))`, "<test>", s.Global)
	assert.Nil(t, lerr)

	fn, ok := s.Global.Lookup("f")
	assert.True(t, ok)

	c := NewCompiler()
	native := c.Compile(s, fn)
	assert.Nil(t, native, "non-amd64 stub must never produce a compiled function")
}

func TestStubCompilerSatisfiesJITTierOnNonAMD64(t *testing.T) {
	var tier lumen.JITTier = NewCompiler()
	assert.NotNil(t, tier)
}
