//go:build amd64

package jit

import (
	"math"
	"unsafe"

	"github.com/lumenlisp/lumen/lumen"
)

// ctx carries the state threaded through one function's compilation: the
// instruction buffer, the closure environment this function's free
// variables resolve against, the param/local slot tables, and the
// precompile-aware Compiler so direct calls can target already-compiled
// callees.
type ctx struct {
	s          *lumen.State
	asm        *Asm
	compiler   *Compiler
	env        *lumen.Frame
	envBits    uint64
	selfFn     lumen.Value
	paramIndex map[string]int
	locals     map[string]int32 // name -> offset below RBP (slot is at RBP-offset)
	frameSize  int32
}

// compileFunction is the entry point: it lays out params and locals, emits
// the prologue, the body, the epilogue, and finalizes the result into
// executable memory. Any unsupported construct anywhere in the body aborts
// the whole compilation (ok=false), matching the original's nullptr
// propagation through every caller.
func compileFunction(s *lumen.State, fn lumen.Value, compiler *Compiler) (*Module, bool) {
	params := s.FuncParams(fn)
	paramIndex, ok := buildParamIndex(s, params)
	if !ok {
		return nil, false
	}
	body := s.FuncBody(fn)
	locals := collectLocalNames(s, body)

	env := s.FuncClosureEnv(fn)
	c := &ctx{
		s:          s,
		asm:        NewAsm(),
		compiler:   compiler,
		env:        env,
		envBits:    envBits(env),
		selfFn:     fn,
		paramIndex: paramIndex,
		locals:     make(map[string]int32, len(locals)),
	}
	for i, name := range locals {
		c.frameSize += 8
		c.locals[name] = int32(8 * (i + 1))
	}
	// 16-byte stack alignment at the call boundary (SysV requirement).
	if c.frameSize%16 != 0 {
		c.frameSize += 8
	}

	c.emitPrologue()
	if !c.emitBody(body) {
		return nil, false
	}
	c.emitEpilogue()

	mod, err := finalize(c.asm)
	if err != nil {
		return nil, false
	}
	return mod, true
}

func envBits(env *lumen.Frame) uint64 {
	return uint64(uintptr(unsafe.Pointer(env)))
}

// buildParamIndex only supports a fixed (non-rest) list of symbol params:
// the JIT tier only ever sees purely-numeric call sites, and a rest-arg
// collects an arbitrary-length list, which has no fixed stack shape.
func buildParamIndex(s *lumen.State, params lumen.Value) (map[string]int, bool) {
	out := make(map[string]int)
	i := 0
	for !params.IsNil() {
		if !params.IsNumber() && params.Type() == lumen.TagSymbol {
			return nil, false // rest-arg: unsupported by the JIT tier
		}
		if params.IsNumber() || params.Type() != lumen.TagPair {
			return nil, false
		}
		name := s.Car(params)
		if name.IsNumber() || name.Type() != lumen.TagSymbol {
			return nil, false
		}
		out[s.SymbolName(name)] = i
		i++
		params = s.Cdr(params)
	}
	return out, true
}

// collectLocalNames walks every `let` form in body and returns every bound
// name in first-seen order, so each gets a fixed stack slot sized once at
// function entry instead of growing/shrinking the frame as lets nest.
func collectLocalNames(s *lumen.State, body lumen.Value) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	var walk func(lumen.Value)
	walk = func(expr lumen.Value) {
		if expr.IsNil() || expr.IsNumber() || expr.Type() != lumen.TagPair {
			return
		}
		head := s.Car(expr)
		if !head.IsNumber() && head.Type() == lumen.TagSymbol && s.SymbolName(head) == "let" {
			bindings := s.ListToSlice(s.Car(s.Cdr(expr)))
			for i := 0; i+1 < len(bindings); i += 2 {
				if !bindings[i].IsNumber() && bindings[i].Type() == lumen.TagSymbol {
					add(s.SymbolName(bindings[i]))
				}
			}
		}
		walk(s.Car(expr))
		walk(s.Cdr(expr))
	}
	walk(body)
	return names
}

func (c *ctx) emitPrologue() {
	c.asm.Push(RegRBP)
	c.asm.MovRegReg(RegRBP, RegRSP)
	c.asm.Push(RegRBX)
	c.asm.MovRegReg(RegRBX, RegRDI) // args* kept in callee-saved RBX
	if c.frameSize > 0 {
		c.asm.SubRSPImm32(c.frameSize)
	}
}

func (c *ctx) emitEpilogue() {
	if c.frameSize > 0 {
		c.asm.AddRSPImm32(c.frameSize)
	}
	c.asm.Pop(RegRBX)
	c.asm.Pop(RegRBP)
	c.asm.Ret()
}

// emitBody evaluates each top-level form of a body list in turn; only the
// last one's XMM0 result matters, matching DoList's "return the last
// value" semantics for the forms the JIT subset supports.
func (c *ctx) emitBody(body lumen.Value) bool {
	if body.IsNil() {
		c.asm.XorpdSelf(RegX0)
		return true
	}
	for !body.IsNil() {
		expr := c.s.Car(body)
		if !c.emitExpr(expr) {
			return false
		}
		body = c.s.Cdr(body)
	}
	return true
}

func (c *ctx) pushXMM0() {
	c.asm.SubRSPImm32(8)
	c.asm.StoreMemSD(RegRSP, 0, RegX0)
}

func (c *ctx) popToXMM1() {
	c.asm.LoadMemSD(RegX1, RegRSP, 0)
	c.asm.AddRSPImm32(8)
}

// emitExpr compiles expr with its result left in XMM0; ok=false means an
// unsupported construct was reached anywhere in the tree, which aborts the
// entire compilation for this function.
func (c *ctx) emitExpr(expr lumen.Value) bool {
	if expr.IsNil() {
		c.asm.XorpdSelf(RegX0)
		return true
	}
	if expr.IsNumber() {
		bits := math.Float64bits(expr.Number())
		c.asm.MovRegImm64(RegRAX, bits)
		c.asm.MovQGPRToXMM(RegX0, RegRAX)
		return true
	}
	switch expr.Type() {
	case lumen.TagSymbol:
		return c.emitSymbol(expr)
	case lumen.TagPair:
		return c.emitForm(expr)
	default:
		return false
	}
}

func (c *ctx) emitSymbol(sym lumen.Value) bool {
	name := c.s.SymbolName(sym)
	if name == "#t" {
		c.asm.MovRegImm64(RegRAX, math.Float64bits(1.0))
		c.asm.MovQGPRToXMM(RegX0, RegRAX)
		return true
	}
	if idx, ok := c.paramIndex[name]; ok {
		c.asm.LoadMemSD(RegX0, RegRBX, int32(idx*8))
		return true
	}
	if off, ok := c.locals[name]; ok {
		c.asm.LoadMemSD(RegX0, RegRBP, -off)
		return true
	}
	// Free variable: bridge back into the interpreter, looking it up
	// against this function's own captured closure environment. The call
	// crosses into real Go code, so its arguments are laid out on the
	// stack in the order lookupNumberTrampoline's Go declaration expects
	// (envPtr, symBits, then its float64 result), not passed in registers.
	c.asm.SubRSPImm32(24)
	c.asm.MovRegImm64(RegRAX, c.envBits)
	c.asm.StoreMemReg64(RegRSP, RegRAX, 0)
	c.asm.MovRegImm64(RegRAX, uint64(sym))
	c.asm.StoreMemReg64(RegRSP, RegRAX, 8)
	c.asm.Call(lookupNumberAddr())
	c.asm.LoadMemSD(RegX0, RegRSP, 16)
	c.asm.AddRSPImm32(24)
	return true
}

var binaryArith = map[string]byte{"+": 0, "-": 1, "*": 2, "/": 3}
var comparisons = map[string]CC{"<": CcL, ">": CcG, "<=": CcLE, ">=": CcGE, "=": CcE}

func (c *ctx) emitForm(expr lumen.Value) bool {
	head := c.s.Car(expr)
	rest := c.s.Cdr(expr)
	if !head.IsNumber() && head.Type() == lumen.TagSymbol {
		name := c.s.SymbolName(head)
		switch name {
		case "cond":
			return c.emitCond(rest)
		case "while":
			return c.emitWhile(rest)
		case "let":
			return c.emitLet(rest)
		}
		if op, ok := binaryArith[name]; ok {
			return c.emitArith(op, rest)
		}
		if cc, ok := comparisons[name]; ok {
			return c.emitCompare(cc, rest)
		}
		return c.emitCall(name, rest)
	}
	return false
}

func (c *ctx) emitArith(op byte, rest lumen.Value) bool {
	args := c.s.ListToSlice(rest)
	if len(args) != 2 {
		return false
	}
	if !c.emitExpr(args[0]) {
		return false
	}
	c.pushXMM0()
	if !c.emitExpr(args[1]) {
		return false
	}
	c.popToXMM1() // lhs -> XMM1
	// swap so XMM0=lhs, XMM1=rhs (popToXMM1 loaded lhs into X1, X0 still rhs)
	c.asm.MovSD(RegX2, RegX0) // rhs -> X2
	c.asm.MovSD(RegX0, RegX1) // lhs -> X0
	c.asm.MovSD(RegX1, RegX2) // rhs -> X1
	switch op {
	case 0:
		c.asm.AddSD(RegX0, RegX1)
	case 1:
		c.asm.SubSD(RegX0, RegX1)
	case 2:
		c.asm.MulSD(RegX0, RegX1)
	case 3:
		c.asm.DivSD(RegX0, RegX1)
	}
	return true
}

func (c *ctx) emitCompare(cc CC, rest lumen.Value) bool {
	args := c.s.ListToSlice(rest)
	if len(args) != 2 {
		return false
	}
	if !c.emitExpr(args[0]) {
		return false
	}
	c.pushXMM0()
	if !c.emitExpr(args[1]) {
		return false
	}
	c.popToXMM1()
	c.asm.MovSD(RegX2, RegX0)
	c.asm.MovSD(RegX0, RegX1)
	c.asm.MovSD(RegX1, RegX2)
	c.asm.UcomiSD(RegX0, RegX1)

	trueLbl := c.asm.NewLabel()
	endLbl := c.asm.NewLabel()
	c.asm.Jcc(cc, trueLbl)
	c.asm.XorpdSelf(RegX0)
	c.asm.Jmp(endLbl)
	c.asm.BindLabel(trueLbl)
	c.asm.MovRegImm64(RegRAX, math.Float64bits(1.0))
	c.asm.MovQGPRToXMM(RegX0, RegRAX)
	c.asm.BindLabel(endLbl)
	return true
}

// emitCond emits a chain of test/body blocks with a shared join point; a
// clause with no matching test falls through to 0.0, the documented
// default for "no clause matched" in this lowering.
func (c *ctx) emitCond(clauses lumen.Value) bool {
	items := c.s.ListToSlice(clauses)
	endLbl := c.asm.NewLabel()
	for _, clause := range items {
		if clause.IsNil() {
			continue
		}
		test := c.s.Car(clause)
		body := c.s.Cdr(clause)
		if !c.emitExpr(test) {
			return false
		}
		c.asm.XorpdSelf(RegX1)
		c.asm.UcomiSD(RegX0, RegX1)
		nextLbl := c.asm.NewLabel()
		c.asm.Jcc(CcE, nextLbl) // test == 0.0 (nil/false) -> next clause
		if body.IsNil() {
			// clause's own test value is the result (already in XMM0)
		} else if !c.emitBody(body) {
			return false
		}
		c.asm.Jmp(endLbl)
		c.asm.BindLabel(nextLbl)
	}
	c.asm.XorpdSelf(RegX0)
	c.asm.BindLabel(endLbl)
	return true
}

func (c *ctx) emitWhile(rest lumen.Value) bool {
	cond := c.s.Car(rest)
	body := c.s.Cdr(rest)
	headLbl := c.asm.NewLabel()
	endLbl := c.asm.NewLabel()

	c.asm.XorpdSelf(RegX0)
	c.pushXMM0() // result accumulator, starts at 0.0 (empty-loop default)

	c.asm.BindLabel(headLbl)
	if !c.emitExpr(cond) {
		return false
	}
	c.asm.XorpdSelf(RegX1)
	c.asm.UcomiSD(RegX0, RegX1)
	c.asm.Jcc(CcE, endLbl)
	if !c.emitBody(body) {
		return false
	}
	c.asm.AddRSPImm32(8) // drop stale accumulator
	c.pushXMM0()
	c.asm.Jmp(headLbl)

	c.asm.BindLabel(endLbl)
	c.popToXMM1()
	c.asm.MovSD(RegX0, RegX1)
	return true
}

// emitLet evaluates each binding's value expression into its fixed stack
// slot (later bindings can read earlier ones, since each is stored before
// the next is evaluated), then the body.
func (c *ctx) emitLet(rest lumen.Value) bool {
	bindings := c.s.ListToSlice(c.s.Car(rest))
	body := c.s.Cdr(rest)
	for i := 0; i+1 < len(bindings); i += 2 {
		name := bindings[i]
		if name.IsNumber() || name.Type() != lumen.TagSymbol {
			return false
		}
		if !c.emitExpr(bindings[i+1]) {
			return false
		}
		off := c.locals[c.s.SymbolName(name)]
		c.asm.StoreMemSD(RegRBP, -off, RegX0)
	}
	return c.emitBody(body)
}

// emitCall compiles a call to another (statically resolved) function: a
// direct native call if the callee is already compiled, otherwise a call
// through the interpreter bridge. An operator that doesn't resolve to any
// function aborts compilation, matching the original's behavior exactly.
//
// A direct call targets another function this same backend generated, so
// it uses this package's own internal convention (args array pointer in
// RDI, count in RSI, result in XMM0 -- the same shape compileFunction's
// prologue expects) rather than Go's calling convention. Only the bridge
// call crosses into real Go code and needs its arguments laid out on the
// stack the way callFromJITTrampoline's Go declaration expects.
func (c *ctx) emitCall(name string, rest lumen.Value) bool {
	callee, ok := c.env.Lookup(name)
	if !ok || callee.IsNumber() || callee.Type() != lumen.TagFunction {
		return false
	}
	args := c.s.ListToSlice(rest)
	n := int32(len(args))

	if n > 0 {
		c.asm.SubRSPImm32(n * 8)
		for i, a := range args {
			if !c.emitExpr(a) {
				return false
			}
			c.asm.StoreMemSD(RegRSP, int32(i)*8, RegX0)
		}
	}
	c.asm.Lea(RegRAX, RegRSP, 0) // RAX = address of the argument array (or RSP itself if n==0)

	if addr := c.compiler.compiledAddr(callee); addr != 0 {
		c.asm.MovRegReg(RegRDI, RegRAX)
		c.asm.MovRegImm64(RegRSI, uint64(n))
		c.asm.Call(addr)
	} else {
		c.asm.SubRSPImm32(32)
		c.asm.MovRegImm64(RegRCX, uint64(callee))
		c.asm.StoreMemReg64(RegRSP, RegRCX, 0)
		c.asm.StoreMemReg64(RegRSP, RegRAX, 8)
		c.asm.MovRegImm64(RegRCX, uint64(n))
		c.asm.StoreMemReg64(RegRSP, RegRCX, 16)
		c.asm.Call(callFromJITAddr())
		c.asm.LoadMemSD(RegX0, RegRSP, 24)
		c.asm.AddRSPImm32(32)
	}
	if n > 0 {
		c.asm.AddRSPImm32(n * 8)
	}
	return true
}

func (c *Compiler) compiledAddr(fn lumen.Value) uint64 {
	mod, ok := c.compiled[fn]
	if !ok || mod.pg == nil || len(mod.pg.mem) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&mod.pg.mem[0])))
}
