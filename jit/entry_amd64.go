//go:build amd64

package jit

import (
	"unsafe"

	"github.com/lumenlisp/lumen/lumen"
)

func setModuleReleaseHook(fn func(interface{})) {
	lumen.SetModuleReleaseHook(fn)
}

// makeNativeFunc wraps a raw machine-code entry point at codeAddr in a
// lumen.NativeFunc, using the same unsafe function-pointer cast idiom the
// retrieved corpus uses to invoke mmap'd executable memory: the generated
// code follows the fixed (double*, int32) -> double ABI, so a cast through
// unsafe.Pointer to a matching Go func type is enough to call it directly
// without cgo.
func makeNativeFunc(codeAddr *byte) lumen.NativeFunc {
	fn := *(*func(*float64, int32) float64)(unsafe.Pointer(&codeAddr))
	return func(args []float64) float64 {
		if len(args) == 0 {
			return fn(nil, 0)
		}
		return fn(&args[0], int32(len(args)))
	}
}
