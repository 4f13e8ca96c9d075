package lumen

import "math"

// jitThreshold is the numeric-call-count that triggers a compilation
// attempt for a purely-numeric call site (spec §4.4).
const jitThreshold = 3

// bindParams binds params (a lambda-list: nested pairs of symbols, or a
// bare trailing symbol for a rest-arg) against args into env. In function
// mode (fillMissing=false) params beyond the supplied args are left
// unbound ("truncation"); in macro mode (fillMissing=true) missing args
// are bound to nil, matching the original's bind_params_to_env.
func (s *State) bindParams(params Value, args []Value, env *Frame, fillMissing bool) {
	i := 0
	for {
		if params.IsNil() {
			return
		}
		if !params.IsNumber() && params.Type() == TagSymbol {
			env.Bind(s.SymbolName(params), s.ListOf(args[i:]...))
			return
		}
		p := s.pairAt(params)
		if i >= len(args) {
			if !fillMissing {
				return
			}
			if !p.Car.IsNumber() && p.Car.Type() == TagSymbol {
				env.Bind(s.SymbolName(p.Car), Nil)
			}
			params = p.Cdr
			continue
		}
		if !p.Car.IsNumber() && p.Car.Type() == TagSymbol {
			env.Bind(s.SymbolName(p.Car), args[i])
		}
		i++
		params = p.Cdr
	}
}

func locOf(s *State, v Value) SourceLoc {
	loc, _ := s.GetSourceLoc(v)
	return loc
}

// Apply invokes fn with already-evaluated args. callExpr, when non-nil, is
// the original call-site pair and is used only to stamp a "fn" call-chain
// entry for diagnostics.
func (s *State) Apply(fn Value, args []Value, env *Frame, callExpr Value) Value {
	if fn.IsNumber() {
		panic(s.errorf(callExpr, "not a function"))
	}
	switch fn.Type() {
	case TagNative:
		return s.nativeAt(fn).fn(s, args, env)
	case TagFunction:
		return s.applyFunction(fn, args, callExpr)
	default:
		panic(s.errorf(callExpr, "not a function"))
	}
}

func (s *State) applyFunction(fn Value, args []Value, callExpr Value) Value {
	if s.Runtime.Profiler != nil {
		stop := s.Runtime.Profiler.Start(fn)
		defer stop()
	}

	fd := s.funcAt(fn)

	allNumeric := true
	nums := make([]float64, len(args))
	for i, a := range args {
		if !a.IsNumber() {
			allNumeric = false
			break
		}
		nums[i] = a.Number()
	}
	if allNumeric {
		fd.NumCallCount++
	}
	fd.CallCount++

	if fd.Compiled == nil && !fd.JITFailed && allNumeric && fd.NumCallCount >= jitThreshold && s.jit != nil {
		if compiled := s.jit.Compile(s, fn); compiled != nil {
			fd.Compiled = compiled
		} else {
			fd.JITFailed = true
		}
	}

	if fd.Compiled != nil && allNumeric {
		result, threw := s.invokeNative(fd, nums)
		switch {
		case threw:
			fd.JITFailed = true
			fd.Compiled = nil
			// JIT stays off for this function; re-run this call in the interpreter
		case !math.IsNaN(result):
			return NumberValue(result)
		default:
			// transient deopt: retry once in the interpreter, JIT stays armed
		}
	}

	return s.interpretCall(fd, args, callExpr)
}

func (s *State) invokeNative(fd *funcObj, nums []float64) (result float64, threw bool) {
	defer func() {
		if r := recover(); r != nil {
			threw = true
			result = math.NaN()
		}
	}()
	result = fd.Compiled(nums)
	return
}

func (s *State) interpretCall(fd *funcObj, args []Value, callExpr Value) Value {
	callEnv := s.NewFrame(fd.Env)
	s.bindParams(fd.Params, args, callEnv, false)
	entry := ChainEntry{Label: "fn", Loc: locOf(s, callExpr)}

	res := func() (res Value) {
		defer func() {
			if r := recover(); r != nil {
				if e, ok := isLumenError(r); ok {
					panic(e.WithChain(entry))
				}
				panic(r)
			}
		}()
		return s.DoList(fd.Body, callEnv)
	}()
	callEnv.release()
	return res
}
