package lumen

// EvalTopLevel evaluates expr in env and recovers any *LumenError raised
// during evaluation, returning it as a Go error instead of letting it
// unwind past the interpreter. This is the boundary the REPL and the CLI's
// run command use; it is the only place a LumenError is expected to stop
// propagating as a panic.
func (s *State) EvalTopLevel(expr Value, env *Frame) (result Value, err *LumenError) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := isLumenError(r); ok {
				err = e
				return
			}
			panic(r)
		}
	}()
	result = s.Eval(expr, env)
	return result, nil
}

// RunSource parses src in full and evaluates each form in order in env,
// stopping at (and returning) the first error.
func (s *State) RunSource(src, name string, env *Frame) (Value, *LumenError) {
	forms := s.ParseAll(src, name)
	result := Nil
	for !forms.IsNil() {
		p := s.pairAt(forms)
		var err *LumenError
		result, err = s.EvalTopLevel(p.Car, env)
		if err != nil {
			return Nil, err
		}
		forms = p.Cdr
	}
	return result, nil
}
