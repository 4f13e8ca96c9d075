package lumen

// Shutdown is lumen's only collection pass: reference counting frees
// acyclic structure as it goes, but a function whose closure environment
// transitively holds a binding back to that same function forms a cycle
// that ordinary refcounting can never reach zero on. Shutdown breaks every
// such cycle in one purge, exactly at process exit, rather than running a
// cycle collector during normal operation (spec's explicit non-goal).
//
// The approach: walk every frame reachable from the global frame (through
// parent links and through any function/macro closures bound in scope),
// and for each one, sever every function/macro value's closure_env link
// before releasing its other bindings. Once every closure link is cut, the
// ordinary refcounting destructors in heap.go finish the job.
func (s *State) Shutdown() {
	visited := make(map[*Frame]bool)
	var worklist []*Frame
	enqueue := func(f *Frame) {
		if f == nil || visited[f] {
			return
		}
		visited[f] = true
		f.retain()
		worklist = append(worklist, f)
	}
	enqueue(s.Global)
	for i := 0; i < len(worklist); i++ {
		f := worklist[i]
		for _, v := range f.Scope {
			if v.IsNumber() || v.IsNil() {
				continue
			}
			switch v.Type() {
			case TagFunction:
				fd := s.funcAt(v)
				enqueue(fd.Env)
			case TagMacro:
				md := s.macroAt(v)
				enqueue(md.Env)
			}
		}
		enqueue(f.Parent)
	}

	for _, f := range worklist {
		for _, v := range f.Scope {
			s.clearClosureEnv(v)
		}
	}
	for _, f := range worklist {
		for name, v := range f.Scope {
			s.Release(v)
			delete(f.Scope, name)
		}
	}
	for _, f := range worklist {
		f.Parent.release()
		f.Parent = nil
	}
	for _, f := range worklist {
		f.release()
	}
	s.Global = nil

	for _, v := range s.symbols.byName {
		s.Release(v)
	}
	s.symbols.byName = make(map[string]Value)

	s.loadedModules = make(map[string]Value)
	s.sources = make(map[string]string)
	s.srcMap = make(map[Value]SourceLoc)
	s.srcCallChainMap = make(map[Value][]ChainEntry)
	s.currentExpr = Nil
}

func (s *State) clearClosureEnv(v Value) {
	if v.IsNumber() || v.IsNil() {
		return
	}
	switch v.Type() {
	case TagFunction:
		fd := s.funcAt(v)
		if fd.Env != nil {
			fd.Env.release()
			fd.Env = nil
		}
	case TagMacro:
		md := s.macroAt(v)
		if md.Env != nil {
			md.Env.release()
			md.Env = nil
		}
	}
}
