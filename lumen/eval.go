package lumen

// JITTier is the pluggable compilation backend for numeric-hot functions
// (spec §4.4). lumen never imports the jit package directly — doing so
// would create an import cycle, since the compiler needs lumen.State and
// lumen.Frame to resolve free variables and fall back to the interpreter.
// Instead package jit implements this interface and a caller (cmd/lumen,
// or a test) wires it in with SetJITTier.
type JITTier interface {
	// Compile attempts to compile fn (a TagFunction Value) to native code.
	// It returns nil if compilation failed for any reason, which the
	// caller treats as a permanent, sticky "jit_failed" for that function.
	Compile(s *State, fn Value) NativeFunc
}

func (s *State) SetJITTier(t JITTier) {
	s.jit = t
}

// Eval evaluates expr in env, dispatching on tag exactly as the original
// interpreter's eval: nil and self-evaluating atoms pass through, symbols
// resolve through the frame chain (distinguishing unbound from bound-to-nil
// and raising a located error for the former), pairs whose head is a
// special form invoke it directly with unevaluated args, pairs whose head
// is a macro go through macro expansion, and everything else evaluates its
// operator and operands and applies.
func (s *State) Eval(expr Value, env *Frame) Value {
	prevExpr := s.currentExpr
	s.currentExpr = expr
	committed := false
	commit := func() { committed = true }
	defer func() {
		if !committed {
			s.currentExpr = prevExpr
		}
	}()

	if expr.IsNil() {
		commit()
		return Nil
	}
	if expr.IsNumber() {
		commit()
		return expr
	}
	switch expr.Type() {
	case TagSymbol:
		name := s.SymbolName(expr)
		v, ok := env.Lookup(name)
		if !ok {
			panic(s.errorf(expr, "unbound symbol: %s", name))
		}
		commit()
		return v
	case TagPair:
		p := s.pairAt(expr)
		fn := s.Eval(p.Car, env)
		if fn.IsNil() {
			panic(s.errorf(expr, "attempt to call nil"))
		}
		if !fn.IsNumber() && fn.Type() == TagPrim {
			res := s.primAt(fn).fn(s, p.Cdr, env)
			commit()
			return res
		}
		if !fn.IsNumber() && fn.Type() == TagMacro {
			res := s.expandMacro(expr, fn, p.Cdr, env)
			commit()
			return s.Eval(res, env)
		}
		args := s.evalArgs(p.Cdr, env)
		res := s.Apply(fn, args, env, expr)
		commit()
		return res
	default:
		commit()
		return expr
	}
}

func (s *State) evalArgs(list Value, env *Frame) []Value {
	var out []Value
	for !list.IsNil() {
		p := s.pairAt(list)
		out = append(out, s.Eval(p.Car, env))
		list = p.Cdr
	}
	return out
}

// DoList evaluates each element of a proper list sequentially in env and
// returns the last result, or nil for an empty list. This is the body
// semantics shared by `let`, `while`'s loop body, `cond` clause bodies, and
// top-level file loading.
func (s *State) DoList(body Value, env *Frame) Value {
	res := Nil
	for !body.IsNil() {
		p := s.pairAt(body)
		res = s.Eval(p.Car, env)
		body = p.Cdr
	}
	return res
}
