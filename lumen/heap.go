package lumen

import "strconv"

// heapObject is the payload stored behind a handle for every refcounted
// tag (pair, string, symbol, function, macro).
type heapObject interface {
	tag() Tag
}

type pairObj struct {
	Car, Cdr Value
}

func (*pairObj) tag() Tag { return TagPair }

type stringObj struct {
	S string
}

func (*stringObj) tag() Tag { return TagString }

type symbolObj struct {
	Name string
}

func (*symbolObj) tag() Tag { return TagSymbol }

// funcObj is the data behind a TagFunction Value: params/body AST, the
// captured environment, and the JIT tiering bookkeeping from spec §4.4.
type funcObj struct {
	Params, Body Value
	Env          *Frame

	CallCount    uint64
	NumCallCount uint64
	Compiled     NativeFunc
	JITFailed    bool
	jitModule    interface{} // owning *jit.Module, opaque here to avoid an import cycle
}

func (*funcObj) tag() Tag { return TagFunction }

type macroObj struct {
	Params, Body Value
	Env          *Frame
}

func (*macroObj) tag() Tag { return TagMacro }

// NativeFunc is the narrow ABI the JIT tier compiles to and the interpreter
// invokes through: an argument array plus its length, a double result (or a
// NaN sentinel meaning "deoptimize, fall back to the interpreter").
type NativeFunc func(args []float64) float64

// cell is one slot of a State's object arena: a refcount plus the object it
// owns. Refcounts are managed manually (Retain/Release below), mirroring
// the original's RcBase; there is no tracing collector beyond State.Shutdown.
type cell struct {
	refs uint32
	obj  heapObject
}

// moduleReleaseHook lets package jit register a cleanup callback invoked
// when a funcObj carrying compiled native code is destroyed, so the
// executable pages backing it can be unmapped. lumen never imports jit
// (that would be a cycle); jit registers this hook via SetModuleReleaseHook
// during its own init.
var moduleReleaseHook func(interface{})

// SetModuleReleaseHook installs the callback package jit uses to release
// the executable pages owned by a compiled function's module once that
// function is destroyed.
func SetModuleReleaseHook(fn func(interface{})) {
	moduleReleaseHook = fn
}

// alloc stores obj in the first free slot (reusing a released index when
// available) and returns a fresh Value with refcount 1.
func (s *State) alloc(tag Tag, obj heapObject) Value {
	var idx int
	if n := len(s.freeList); n > 0 {
		idx = int(s.freeList[n-1])
		s.freeList = s.freeList[:n-1]
		s.heap[idx] = cell{refs: 1, obj: obj}
	} else {
		idx = len(s.heap)
		s.heap = append(s.heap, cell{refs: 1, obj: obj})
	}
	return makeTagged(tag, uint64(idx))
}

func (s *State) cellAt(v Value) *cell {
	return &s.heap[v.payload()]
}

func (s *State) pairAt(v Value) *pairObj {
	return s.cellAt(v).obj.(*pairObj)
}

func (s *State) stringAt(v Value) *stringObj {
	return s.cellAt(v).obj.(*stringObj)
}

func (s *State) symbolAt(v Value) *symbolObj {
	return s.cellAt(v).obj.(*symbolObj)
}

func (s *State) funcAt(v Value) *funcObj {
	return s.cellAt(v).obj.(*funcObj)
}

func (s *State) macroAt(v Value) *macroObj {
	return s.cellAt(v).obj.(*macroObj)
}

// SetCompiled attaches a compiled native implementation and its owning
// module (an opaque *jit.Module, passed through as interface{} to avoid an
// import cycle) to a TagFunction Value. Called by a JITTier implementation
// once it has successfully compiled fn.
func (s *State) SetCompiled(fn Value, native NativeFunc, module interface{}) {
	fd := s.funcAt(fn)
	fd.Compiled = native
	fd.jitModule = module
}

// Params/Body/ClosureEnv expose a function's AST and captured environment
// to a JITTier implementation, which needs them to walk the body and
// resolve free variables and callees without lumen importing jit.
func (s *State) FuncParams(fn Value) Value   { return s.funcAt(fn).Params }
func (s *State) FuncBody(fn Value) Value     { return s.funcAt(fn).Body }
func (s *State) FuncClosureEnv(fn Value) *Frame { return s.funcAt(fn).Env }
func (s *State) FuncCompiled(fn Value) NativeFunc { return s.funcAt(fn).Compiled }
func (s *State) FuncJITFailed(fn Value) bool { return s.funcAt(fn).JITFailed }

// FuncLabel returns a best-effort human-readable label for fn, for use by a
// Profiler: lumen functions carry no name of their own (a function is just a
// value, possibly bound under several names), so the label falls back to the
// function's definition-site location, matching the original's "no-source"
// fallback when nothing better is available.
func (s *State) FuncLabel(fn Value) string {
	if loc, ok := s.GetSourceLoc(s.FuncBody(fn)); ok {
		return loc.File + ":" + strconv.Itoa(loc.Line)
	}
	return "#<function>"
}

// Retain increments the refcount of a heap-backed Value. Non-heap Values
// (numbers, nil, special-forms, native builtins) are no-ops, same as the
// original's is_refcounted table.
func (s *State) Retain(v Value) Value {
	if v.isHeapTag() {
		s.cellAt(v).refs++
	}
	return v
}

// Release decrements the refcount of a heap-backed Value, destroying it and
// cascading to any Values it holds once the count reaches zero.
func (s *State) Release(v Value) {
	if !v.isHeapTag() {
		return
	}
	c := s.cellAt(v)
	if c.refs == 0 {
		return
	}
	c.refs--
	if c.refs > 0 {
		return
	}
	s.destroy(v, c)
}

func (s *State) destroy(v Value, c *cell) {
	switch obj := c.obj.(type) {
	case *pairObj:
		s.Release(obj.Car)
		s.Release(obj.Cdr)
	case *stringObj:
		// no nested Values
	case *symbolObj:
		// no nested Values; interner holds its own reference separately
	case *funcObj:
		if obj.Env != nil {
			obj.Env.release()
			obj.Env = nil
		}
		if obj.jitModule != nil && moduleReleaseHook != nil {
			moduleReleaseHook(obj.jitModule)
			obj.jitModule = nil
		}
	case *macroObj:
		if obj.Env != nil {
			obj.Env.release()
			obj.Env = nil
		}
	}
	c.obj = nil
	s.freeList = append(s.freeList, uint32(v.payload()))
}

// refCount reports the live refcount of a heap-backed Value; used by tests
// and diagnostics only.
func (s *State) refCount(v Value) uint32 {
	if !v.isHeapTag() {
		return 0
	}
	return s.cellAt(v).refs
}
