package lumen

import (
	"fmt"
	"os"
)

func registerBuiltins(s *State) {
	s.registerNative("+", nativeArith("+", func(a, b float64) float64 { return a + b }))
	s.registerNative("-", nativeArith("-", func(a, b float64) float64 { return a - b }))
	s.registerNative("*", nativeArith("*", func(a, b float64) float64 { return a * b }))
	s.registerNative("/", nativeDivide)

	s.registerNative("<", nativeCompare("<", func(a, b float64) bool { return a < b }))
	s.registerNative(">", nativeCompare(">", func(a, b float64) bool { return a > b }))
	s.registerNative("<=", nativeCompare("<=", func(a, b float64) bool { return a <= b }))
	s.registerNative(">=", nativeCompare(">=", func(a, b float64) bool { return a >= b }))

	s.registerNative("=", nativeEqual)
	s.registerNative("print", nativePrint)
	s.registerNative("str", nativeStr)
	s.registerNative("list", nativeList)
	s.registerNative("type", nativeType)
	s.registerNative("parse", nativeParse)
	s.registerNative("error", nativeError)
	s.registerNative("eval", nativeEval)

	s.registerNative("cons", nativeCons)
	s.registerNative("car", nativeCar)
	s.registerNative("cdr", nativeCdr)
	s.registerNative("setcar", nativeSetcar)
	s.registerNative("setcdr", nativeSetcdr)
	s.registerNative("exit", nativeExit)

	s.registerNative("not", nativeNot)
	s.registerNative("list?", typePredicate(TagPair, true))
	s.registerNative("pair?", typePredicate(TagPair, false))
	s.registerNative("nil?", nativeNilP)
	s.registerNative("symbol?", typePredicate(TagSymbol, false))
	s.registerNative("string?", typePredicate(TagString, false))
	s.registerNative("number?", nativeNumberP)
	s.registerNative("function?", nativeFunctionP)
}

func requireNumber(s *State, v Value, name string) float64 {
	if !v.IsNumber() {
		panic(s.errorf(v, "%s requires a number argument", name))
	}
	return v.Number()
}

func nativeArith(name string, op func(a, b float64) float64) NativeBuiltin {
	return func(s *State, args []Value, env *Frame) Value {
		if len(args) != 2 {
			panic(s.runtimeError("%s requires exactly two arguments", name))
		}
		a := requireNumber(s, args[0], name)
		b := requireNumber(s, args[1], name)
		return NumberValue(op(a, b))
	}
}

func nativeDivide(s *State, args []Value, env *Frame) Value {
	if len(args) != 2 {
		panic(s.runtimeError("/ requires exactly two arguments"))
	}
	a := requireNumber(s, args[0], "/")
	b := requireNumber(s, args[1], "/")
	if b == 0 {
		panic(s.runtimeError("division by zero"))
	}
	return NumberValue(a / b)
}

func nativeCompare(name string, op func(a, b float64) bool) NativeBuiltin {
	return func(s *State, args []Value, env *Frame) Value {
		if len(args) != 2 {
			panic(s.runtimeError("%s requires exactly two arguments", name))
		}
		a := requireNumber(s, args[0], name)
		b := requireNumber(s, args[1], name)
		if op(a, b) {
			return s.trueSym
		}
		return Nil
	}
}

func nativeEqual(s *State, args []Value, env *Frame) Value {
	if len(args) != 2 {
		panic(s.runtimeError("= requires exactly two arguments"))
	}
	if s.ValueEqual(args[0], args[1]) {
		return s.trueSym
	}
	return Nil
}

func nativePrint(s *State, args []Value, env *Frame) Value {
	w := s.Runtime.Stdout
	last := Nil
	for i, a := range args {
		if i > 0 {
			fmt.Fprint(w, " ")
		}
		fmt.Fprint(w, s.ToString(a))
		last = a
	}
	fmt.Fprintln(w)
	return last
}

func nativeStr(s *State, args []Value, env *Frame) Value {
	var b []byte
	for i, a := range args {
		if i > 0 {
			b = append(b, ' ')
		}
		b = append(b, s.ToString(a)...)
	}
	return s.MakeString(string(b))
}

func nativeList(s *State, args []Value, env *Frame) Value {
	return s.ListOf(args...)
}

func nativeType(s *State, args []Value, env *Frame) Value {
	if len(args) != 1 {
		panic(s.runtimeError("type requires exactly one argument"))
	}
	return s.Intern(s.TypeName(args[0]))
}

func nativeParse(s *State, args []Value, env *Frame) Value {
	if len(args) != 1 || args[0].IsNumber() || args[0].Type() != TagString {
		panic(s.runtimeError("parse requires a string argument"))
	}
	return s.Parse(s.StringValue(args[0]), "<parse>")
}

func nativeError(s *State, args []Value, env *Frame) Value {
	msg := "error"
	if len(args) > 0 {
		msg = s.ToString(args[0])
	}
	panic(s.runtimeError("%s", msg))
}

func nativeEval(s *State, args []Value, env *Frame) Value {
	if len(args) != 1 {
		panic(s.runtimeError("eval requires exactly one argument"))
	}
	return s.Eval(args[0], env)
}

func requirePair(s *State, v Value, name string) {
	if !v.IsNil() && (v.IsNumber() || v.Type() != TagPair) {
		panic(s.errorf(v, "%s: not a pair", name))
	}
}

func nativeCons(s *State, args []Value, env *Frame) Value {
	if len(args) != 2 {
		panic(s.runtimeError("cons requires exactly two arguments"))
	}
	return s.Cons(args[0], args[1])
}

func nativeCar(s *State, args []Value, env *Frame) Value {
	if len(args) != 1 {
		panic(s.runtimeError("car requires exactly one argument"))
	}
	requirePair(s, args[0], "car")
	return s.Car(args[0])
}

func nativeCdr(s *State, args []Value, env *Frame) Value {
	if len(args) != 1 {
		panic(s.runtimeError("cdr requires exactly one argument"))
	}
	requirePair(s, args[0], "cdr")
	return s.Cdr(args[0])
}

func nativeSetcar(s *State, args []Value, env *Frame) Value {
	if len(args) != 2 {
		panic(s.runtimeError("setcar requires exactly two arguments"))
	}
	s.SetCar(args[0], args[1])
	return args[1]
}

func nativeSetcdr(s *State, args []Value, env *Frame) Value {
	if len(args) != 2 {
		panic(s.runtimeError("setcdr requires exactly two arguments"))
	}
	s.SetCdr(args[0], args[1])
	return args[1]
}

func nativeExit(s *State, args []Value, env *Frame) Value {
	code := 0
	if len(args) > 0 {
		code = int(requireNumber(s, args[0], "exit"))
	}
	s.Shutdown()
	os.Exit(code)
	return Nil
}

func nativeNot(s *State, args []Value, env *Frame) Value {
	if len(args) != 1 {
		panic(s.runtimeError("not requires exactly one argument"))
	}
	if args[0].Truthy() {
		return Nil
	}
	return s.trueSym
}

func typePredicate(tag Tag, allowImproperPair bool) NativeBuiltin {
	return func(s *State, args []Value, env *Frame) Value {
		if len(args) != 1 {
			panic(s.runtimeError("type predicate requires exactly one argument"))
		}
		v := args[0]
		ok := false
		switch tag {
		case TagPair:
			if allowImproperPair {
				// list? also accepts nil (the empty list)
				ok = v.IsNil() || (!v.IsNumber() && v.Type() == TagPair)
			} else {
				ok = !v.IsNumber() && !v.IsNil() && v.Type() == TagPair
			}
		default:
			ok = !v.IsNil() && !v.IsNumber() && v.Type() == tag
		}
		if ok {
			return s.trueSym
		}
		return Nil
	}
}

func nativeNilP(s *State, args []Value, env *Frame) Value {
	if len(args) != 1 {
		panic(s.runtimeError("nil? requires exactly one argument"))
	}
	if args[0].IsNil() {
		return s.trueSym
	}
	return Nil
}

func nativeNumberP(s *State, args []Value, env *Frame) Value {
	if len(args) != 1 {
		panic(s.runtimeError("number? requires exactly one argument"))
	}
	if args[0].IsNumber() {
		return s.trueSym
	}
	return Nil
}

func nativeFunctionP(s *State, args []Value, env *Frame) Value {
	if len(args) != 1 {
		panic(s.runtimeError("function? requires exactly one argument"))
	}
	v := args[0]
	if !v.IsNil() && !v.IsNumber() && (v.Type() == TagFunction || v.Type() == TagNative || v.Type() == TagPrim) {
		return s.trueSym
	}
	return Nil
}
