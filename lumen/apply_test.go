package lumen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingTier is a fake JITTier that records every Compile call and lets a
// test control whether compilation "succeeds" and what the resulting
// native function computes, without touching the real amd64 backend.
type countingTier struct {
	calls   int
	compile func(s *State, fn Value) NativeFunc
}

func (c *countingTier) Compile(s *State, fn Value) NativeFunc {
	c.calls++
	if c.compile == nil {
		return nil
	}
	return c.compile(s, fn)
}

func TestJITCompilesOnlyAfterThreshold(t *testing.T) {
	s := NewState(nil)
	defer s.Shutdown()

	tier := &countingTier{compile: func(s *State, fn Value) NativeFunc {
		return func(args []float64) float64 { return args[0] * 2 }
	}}
	s.SetJITTier(tier)

	_, lerr := s.RunSource(`(set double (fn (x) (* x 2)))`, "<test>", s.Global)
	require.Nil(t, lerr)

	for i := 0; i < jitThreshold-1; i++ {
		_, lerr := s.RunSource(`(double 1)`, "<test>", s.Global)
		require.Nil(t, lerr)
		assert.Equal(t, 0, tier.calls, "should not compile before threshold calls")
	}

	v, lerr := s.RunSource(`(double 21)`, "<test>", s.Global)
	require.Nil(t, lerr)
	assert.Equal(t, 1, tier.calls, "should compile exactly once, at the threshold call")
	assert.Equal(t, float64(42), v.Number())
}

func TestJITCompileFailureIsSticky(t *testing.T) {
	s := NewState(nil)
	defer s.Shutdown()

	tier := &countingTier{compile: func(s *State, fn Value) NativeFunc { return nil }}
	s.SetJITTier(tier)

	_, lerr := s.RunSource(`(set f (fn (x) (* x 2)))`, "<test>", s.Global)
	require.Nil(t, lerr)

	for i := 0; i < jitThreshold+5; i++ {
		_, lerr := s.RunSource(`(f 1)`, "<test>", s.Global)
		require.Nil(t, lerr)
	}

	// Compile should be attempted exactly once: after that single failed
	// attempt JITFailed is set and no further attempts happen, even though
	// the function keeps being called.
	assert.Equal(t, 1, tier.calls)
}

func TestJITTransientNaNFallsBackWithoutDisabling(t *testing.T) {
	s := NewState(nil)
	defer s.Shutdown()

	callNative := 0
	tier := &countingTier{compile: func(s *State, fn Value) NativeFunc {
		return func(args []float64) float64 {
			callNative++
			return math.NaN() // transient deopt signal, not a panic
		}
	}}
	s.SetJITTier(tier)

	_, lerr := s.RunSource(`(set f (fn (x) (+ x 1)))`, "<test>", s.Global)
	require.Nil(t, lerr)

	for i := 0; i < jitThreshold; i++ {
		_, lerr := s.RunSource(`(f 1)`, "<test>", s.Global)
		require.Nil(t, lerr)
	}

	v, lerr := s.RunSource(`(f 9)`, "<test>", s.Global)
	require.Nil(t, lerr)
	assert.Equal(t, float64(10), v.Number(), "interpreter fallback must still produce the right answer")
	assert.Equal(t, 1, tier.calls, "compiler stays armed across a transient NaN deopt")
}

func TestJITNativePanicDisablesCompiledPath(t *testing.T) {
	s := NewState(nil)
	defer s.Shutdown()

	tier := &countingTier{compile: func(s *State, fn Value) NativeFunc {
		return func(args []float64) float64 { panic("boom") }
	}}
	s.SetJITTier(tier)

	_, lerr := s.RunSource(`(set f (fn (x) (+ x 1)))`, "<test>", s.Global)
	require.Nil(t, lerr)

	for i := 0; i < jitThreshold+2; i++ {
		v, lerr := s.RunSource(`(f 1)`, "<test>", s.Global)
		require.Nil(t, lerr)
		assert.Equal(t, float64(2), v.Number())
	}
	assert.Equal(t, 1, tier.calls, "a panicking native call disables JIT, so compile is attempted only once")
}

func TestNonNumericCallsNeverTriggerCompilation(t *testing.T) {
	s := NewState(nil)
	defer s.Shutdown()

	tier := &countingTier{}
	s.SetJITTier(tier)

	_, lerr := s.RunSource(`(set f (fn (x) x))`, "<test>", s.Global)
	require.Nil(t, lerr)

	for i := 0; i < jitThreshold+5; i++ {
		_, lerr := s.RunSource(`(f "hello")`, "<test>", s.Global)
		require.Nil(t, lerr)
	}
	assert.Equal(t, 0, tier.calls, "non-numeric call sites are never JIT-eligible")
}
