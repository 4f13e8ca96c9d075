//go:build amd64

package jit

import (
	"fmt"

	"github.com/lumenlisp/lumen/lumen"
)

// Module owns one mmap'd executable page and the NativeFunc entry point
// into it. ReleaseFunctionCode's original behavior ("find the owning
// module, remove it, purge every map entry pointing at it") becomes, in
// Go, simply unmapping the page once nothing references the Module value
// anymore; lumen calls back into Release via SetModuleReleaseHook when the
// owning funcObj is destroyed.
type Module struct {
	pg    *page
	entry lumen.NativeFunc
}

func (m *Module) Release() {
	if m == nil || m.pg == nil {
		return
	}
	m.pg.free()
	m.pg = nil
	m.entry = nil
}

func init() {
	registerReleaseHook()
}

func registerReleaseHook() {
	setModuleReleaseHook(func(v interface{}) {
		if mod, ok := v.(*Module); ok {
			mod.Release()
		}
	})
}

// finalize writes asm's machine code into a fresh executable page and
// wraps it in the fixed (*float64, int32) -> float64 ABI.
func finalize(asm *Asm) (*Module, error) {
	asm.Link()
	pg, err := allocPage(len(asm.code))
	if err != nil {
		return nil, fmt.Errorf("jit: alloc page: %w", err)
	}
	copy(pg.mem, asm.code)
	if err := pg.makeExecutable(); err != nil {
		pg.free()
		return nil, err
	}
	entry := makeNativeFunc(&pg.mem[0])
	return &Module{pg: pg, entry: entry}, nil
}
