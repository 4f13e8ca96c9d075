package lumen

func registerCore(s *State) {
	registerSpecialForms(s)
	registerBuiltins(s)
	registerRequire(s)
}

func registerSpecialForms(s *State) {
	s.registerPrim("quote", primQuote)
	s.registerPrim("unquote", primUnquote)
	s.registerPrim("quasiquote", primQuasiquote)
	s.registerPrim("set", primSet)
	s.registerPrim("fn", primFn)
	s.registerPrim("macro", primMacro)
	s.registerPrim("let", primLet)
	s.registerPrim("while", primWhile)
	s.registerPrim("cond", primCond)
	s.registerPrim("apply", primApply)
}

func primQuote(s *State, args Value, env *Frame) Value {
	return s.Car(args)
}

func primUnquote(s *State, args Value, env *Frame) Value {
	if args.IsNil() {
		return Nil
	}
	return s.Eval(s.Car(args), env)
}

func primQuasiquote(s *State, args Value, env *Frame) Value {
	return s.qqExpand(s.Car(args), 1, env)
}

// qqExpand implements nested quasiquote/unquote depth tracking: a depth-1
// unquote evaluates immediately; a deeper one decrements depth and rebuilds
// itself as a fresh (unquote ...) pair; a nested quasiquote increments
// depth; everything else is rebuilt recursively as fresh pairs.
func (s *State) qqExpand(expr Value, depth int, env *Frame) Value {
	if expr.IsNil() || expr.IsNumber() || expr.Type() != TagPair {
		return expr
	}
	head := s.Car(expr)
	if !head.IsNumber() && head.Type() == TagSymbol {
		name := s.SymbolName(head)
		if name == "unquote" {
			inner := s.Car(s.Cdr(expr))
			if depth == 1 {
				return s.Eval(inner, env)
			}
			return s.ListOf(head, s.qqExpand(inner, depth-1, env))
		}
		if name == "quasiquote" {
			inner := s.Car(s.Cdr(expr))
			return s.ListOf(head, s.qqExpand(inner, depth+1, env))
		}
	}
	car := s.qqExpand(s.Car(expr), depth, env)
	cdr := s.qqExpand(s.Cdr(expr), depth, env)
	return s.Cons(car, cdr)
}

func primSet(s *State, args Value, env *Frame) Value {
	sym := s.Car(args)
	val := s.Eval(s.Car(s.Cdr(args)), env)
	if sym.IsNumber() || sym.Type() != TagSymbol {
		panic(s.errorf(args, "set: first argument must be a symbol"))
	}
	env.Set(s.SymbolName(sym), val)
	return val
}

func primFn(s *State, args Value, env *Frame) Value {
	params := s.Car(args)
	body := s.Cdr(args)
	env.retain()
	return s.alloc(TagFunction, &funcObj{Params: params, Body: body, Env: env})
}

func primMacro(s *State, args Value, env *Frame) Value {
	params := s.Car(args)
	body := s.Cdr(args)
	env.retain()
	return s.alloc(TagMacro, &macroObj{Params: params, Body: body, Env: env})
}

// primLet implements the flat-binding-list form: (let (a 1 b 2) body...).
// A single child frame is created up front and later bindings can see
// earlier ones, since each value expression is evaluated in that same
// frame as it is bound.
func primLet(s *State, args Value, env *Frame) Value {
	bindings := s.Car(args)
	body := s.Cdr(args)
	child := s.NewFrame(env)
	items := s.ListToSlice(bindings)
	for i := 0; i+1 < len(items); i += 2 {
		name := items[i]
		if name.IsNumber() || name.Type() != TagSymbol {
			panic(s.errorf(bindings, "let: binding name must be a symbol"))
		}
		val := s.Eval(items[i+1], child)
		child.Bind(s.SymbolName(name), val)
	}
	res := s.DoList(body, child)
	child.release()
	return res
}

func primWhile(s *State, args Value, env *Frame) Value {
	cond := s.Car(args)
	body := s.Cdr(args)
	res := Nil
	for s.Eval(cond, env).Truthy() {
		res = s.DoList(body, env)
	}
	return res
}

// primCond walks its clauses in order; the first clause whose test
// evaluates truthy has its body evaluated and returned. If that clause's
// body is empty, the test's own value is returned. No match yields nil.
func primCond(s *State, args Value, env *Frame) Value {
	clauses := s.ListToSlice(args)
	for _, clause := range clauses {
		if clause.IsNil() {
			continue
		}
		test := s.Car(clause)
		body := s.Cdr(clause)
		val := s.Eval(test, env)
		if val.Truthy() {
			if body.IsNil() {
				return val
			}
			return s.DoList(body, env)
		}
	}
	return Nil
}

func primApply(s *State, args Value, env *Frame) Value {
	fnExpr := s.Car(args)
	listExpr := s.Car(s.Cdr(args))
	fn := s.Eval(fnExpr, env)
	list := s.Eval(listExpr, env)
	callArgs := s.ListToSlice(list)
	return s.Apply(fn, callArgs, env, args)
}
