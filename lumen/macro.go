package lumen

// expandMacro implements the macro-expansion protocol: bind the call's
// unevaluated arguments to the macro's params (missing params filled with
// nil), evaluate the macro body in a fresh frame parented by the macro's
// captured environment, then re-stamp every node of the resulting
// expansion tree with the call site's source location and merge the call
// chain (call-site, then macro-def-site if resolvable) into each node's
// recorded chain. The caller (Eval) evaluates the returned expansion in its
// own environment, not the macro's.
func (s *State) expandMacro(callExpr, macroVal, argsList Value, callerEnv *Frame) Value {
	md := s.macroAt(macroVal)
	childEnv := s.NewFrame(md.Env)

	params := s.ListToSlice(argsList)
	s.bindParams(md.Params, params, childEnv, true)

	callLoc := locOf(s, callExpr)
	label := "macro"
	if !callExpr.IsNumber() && callExpr.Type() == TagPair {
		head := s.pairAt(callExpr).Car
		if !head.IsNumber() && head.Type() == TagSymbol {
			label = "macro " + s.SymbolName(head)
		}
	}
	chain := []ChainEntry{{Label: label, Loc: callLoc}}
	if defLoc, ok := s.GetSourceLoc(md.Body); ok {
		chain = append(chain, ChainEntry{Label: "macro-def", Loc: defLoc})
	}
	s.mergeChain(callExpr, chain)

	var result Value
	func() {
		defer func() {
			if r := recover(); r != nil {
				if e, ok := isLumenError(r); ok {
					panic(e.WithChain(chain...))
				}
				panic(r)
			}
		}()
		result = s.DoList(md.Body, childEnv)
	}()
	childEnv.release()

	s.propagateExpansion(result, callLoc, chain, make(map[Value]bool))
	return result
}

func (s *State) propagateExpansion(v Value, loc SourceLoc, chain []ChainEntry, seen map[Value]bool) {
	if v.IsNil() || v.IsNumber() || seen[v] {
		return
	}
	seen[v] = true
	s.SetSourceLoc(v, loc)
	s.mergeChain(v, chain)
	if v.Type() == TagPair {
		p := s.pairAt(v)
		s.propagateExpansion(p.Car, loc, chain, seen)
		s.propagateExpansion(p.Cdr, loc, chain, seen)
	}
}
