package lumen

import (
	"strconv"
	"strings"
)

// Render renders v as lumen source text: numbers via Go's shortest
// round-trip formatting, strings and symbols literally (no escaping on
// output, matching the original printer), pairs as `(a b . c)` lists, and
// function/macro/special-form/native Values as `#<kind>` opaque tokens.
func (s *State) Render(v Value) string {
	if v.IsNil() {
		return "nil"
	}
	if v.IsNumber() {
		return strconv.FormatFloat(v.Number(), 'g', -1, 64)
	}
	switch v.Type() {
	case TagString:
		return s.StringValue(v)
	case TagSymbol:
		return s.SymbolName(v)
	case TagPair:
		return s.renderPair(v)
	case TagFunction:
		fd := s.funcAt(v)
		if fd.Compiled != nil {
			return "#<jit_func>"
		}
		return "#<function>"
	case TagMacro:
		return "#<macro>"
	case TagPrim:
		return "#<special-form " + s.primAt(v).name + ">"
	case TagNative:
		return "#<native " + s.nativeAt(v).name + ">"
	default:
		return "#<unknown>"
	}
}

func (s *State) renderPair(v Value) string {
	var b strings.Builder
	b.WriteByte('(')
	first := true
	for {
		if v.IsNil() {
			break
		}
		if v.IsNumber() || v.Type() != TagPair {
			b.WriteString(" . ")
			b.WriteString(s.Render(v))
			break
		}
		p := s.pairAt(v)
		if !first {
			b.WriteByte(' ')
		}
		first = false
		b.WriteString(s.Render(p.Car))
		v = p.Cdr
	}
	b.WriteByte(')')
	return b.String()
}

// TypeName returns the symbol name the `type` builtin reports for v.
func (s *State) TypeName(v Value) string {
	if v.IsNil() {
		return "nil"
	}
	if v.IsNumber() {
		return "number"
	}
	return v.Type().String()
}
