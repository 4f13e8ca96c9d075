package lumen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumberValueRoundTrip(t *testing.T) {
	for _, f := range []float64{0, 1, -1, 3.5, -3.5, 1e300, -1e300} {
		v := NumberValue(f)
		assert.True(t, v.IsNumber())
		assert.Equal(t, f, v.Number())
	}
}

func TestNumberValueClampsInfAndNaN(t *testing.T) {
	for _, f := range []float64{
		math.Inf(1),
		math.Inf(-1),
		math.NaN(),
		math.Copysign(math.NaN(), -1),
	} {
		v := NumberValue(f)
		assert.True(t, v.IsNil(), "expected %v to clamp to nil", f)
	}
}

func TestIsNumberRejectsAllExponentAllOnesPatterns(t *testing.T) {
	// Every bit pattern with all eleven exponent bits set -- regardless of
	// sign or mantissa -- must be classified as NOT a number, matching the
	// original's kNaNMask test (which only inspects those bits and ignores
	// sign). This covers +Inf, -Inf, and both positive and negative NaNs.
	patterns := []uint64{
		nanMask,                    // +Inf / Nil
		nanMask | (1 << 63),        // -Inf
		nanMask | 1,                // a quiet-ish NaN variant
		nanMask | (1 << 63) | 1,    // negative NaN variant
		nanMask | tagMask,          // a tagged value with tag bits set
	}
	for _, bits := range patterns {
		v := Value(bits)
		assert.False(t, v.IsNumber(), "bits %x should not be a number", bits)
	}
}

func TestNilIsNotTruthy(t *testing.T) {
	assert.False(t, Nil.Truthy())
	assert.True(t, Nil.IsNil())
}

func TestTaggedValueRoundTrip(t *testing.T) {
	v := makeTagged(TagSymbol, 42)
	assert.False(t, v.IsNumber())
	assert.Equal(t, TagSymbol, v.Type())
	assert.Equal(t, uint64(42), v.payload())
}

func TestOrdinaryNumbersAreNotHeapTagged(t *testing.T) {
	assert.False(t, NumberValue(1.5).isHeapTag())
	assert.True(t, makeTagged(TagPair, 0).isHeapTag())
	assert.False(t, makeTagged(TagPrim, 0).isHeapTag())
}
