package lumen

// Frame is an environment: a scope of name -> Value bindings, parented to
// an enclosing Frame. Frames are reference counted directly as Go pointers
// (not stored in the object arena, since they are never themselves a
// Value) exactly as the original's Env/retain_env/release_env pair.
type Frame struct {
	state  *State
	refs   uint32
	Scope  map[string]Value
	Parent *Frame
}

func (s *State) NewFrame(parent *Frame) *Frame {
	if parent != nil {
		parent.retain()
	}
	return &Frame{state: s, refs: 1, Scope: make(map[string]Value, 8), Parent: parent}
}

func (f *Frame) retain() {
	if f != nil {
		f.refs++
	}
}

func (f *Frame) release() {
	if f == nil {
		return
	}
	if f.refs == 0 {
		return
	}
	f.refs--
	if f.refs > 0 {
		return
	}
	for _, v := range f.Scope {
		f.state.Release(v)
	}
	f.Scope = nil
	f.Parent.release()
	f.Parent = nil
}

// Bind creates or overwrites a binding in this frame only.
func (f *Frame) Bind(name string, v Value) {
	f.state.Retain(v)
	if old, ok := f.Scope[name]; ok {
		f.state.Release(old)
	}
	f.Scope[name] = v
}

// Set walks the frame chain looking for an existing binding to overwrite in
// place; if none exists anywhere in the chain it falls back to binding in
// the frame `set` was called from, matching the original's `set` builtin.
func (f *Frame) Set(name string, v Value) {
	for e := f; e != nil; e = e.Parent {
		if _, ok := e.Scope[name]; ok {
			e.Bind(name, v)
			return
		}
	}
	f.Bind(name, v)
}

// Lookup walks the frame chain and distinguishes "bound to nil" from
// "unbound", which the global `#t` / shadowing rules depend on.
func (f *Frame) Lookup(name string) (Value, bool) {
	for e := f; e != nil; e = e.Parent {
		if v, ok := e.Scope[name]; ok {
			return v, true
		}
	}
	return Nil, false
}

// GetBound returns the bound value for name or nil if unbound, used by
// builtins that only need "give me #t" semantics and don't care to
// distinguish unbound from bound-to-nil.
func (f *Frame) GetBound(name string) Value {
	v, _ := f.Lookup(name)
	return v
}
