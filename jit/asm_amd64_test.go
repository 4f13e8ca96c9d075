//go:build amd64

package jit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMovRegImm64Encoding(t *testing.T) {
	a := NewAsm()
	a.MovRegImm64(RegRAX, 0x1122334455667788)
	// REX.W (0x48) + 0xB8 (mov rax, imm64) + 8 little-endian immediate bytes.
	assert.Equal(t, []byte{
		0x48, 0xB8,
		0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11,
	}, a.code)
}

func TestMovRegImm64ExtendedRegisterSetsRexB(t *testing.T) {
	a := NewAsm()
	a.MovRegImm64(RegR8, 1)
	// REX.WB (0x49) + 0xB8|0 (low3 of R8 is 0).
	assert.Equal(t, byte(0x49), a.code[0])
	assert.Equal(t, byte(0xB8), a.code[1])
}

func TestRetEncoding(t *testing.T) {
	a := NewAsm()
	a.Ret()
	assert.Equal(t, []byte{0xC3}, a.code)
}

func TestPushPopLowRegisterNoRexPrefix(t *testing.T) {
	a := NewAsm()
	a.Push(RegRBP)
	assert.Equal(t, []byte{0x55}, a.code) // 0x50 + RBP(5), no REX needed
}

func TestPushExtendedRegisterAddsRexB(t *testing.T) {
	a := NewAsm()
	a.Push(RegR12)
	assert.Equal(t, []byte{0x41, 0x54}, a.code) // REX.B, 0x50 + low3(R12=4)
}

func TestLabelFixupPatchesForwardJump(t *testing.T) {
	a := NewAsm()
	lbl := a.NewLabel()
	a.Jmp(lbl) // 5 bytes: 0xE9 + rel32 placeholder
	a.emitByte(0x90) // nop, one filler instruction between the jmp and its target
	a.BindLabel(lbl)
	a.Link()

	assert.Equal(t, byte(0xE9), a.code[0])
	rel := int32(a.code[1]) | int32(a.code[2])<<8 | int32(a.code[3])<<16 | int32(a.code[4])<<24
	// The jmp is 5 bytes; its target sits 1 byte past the end of it (past
	// the intervening nop), so the patched rel32 must be exactly 1.
	assert.Equal(t, int32(1), rel)
}

func TestLinkPanicsOnUnboundLabel(t *testing.T) {
	a := NewAsm()
	lbl := a.NewLabel()
	a.Jmp(lbl)
	assert.Panics(t, func() { a.Link() })
}

func TestAddSDEncodesSSEPrefixAndOpcode(t *testing.T) {
	a := NewAsm()
	a.AddSD(RegX0, RegX1)
	// F2 prefix, 0F opcode escape, 0x58 (ADDSD), ModRM mod=11.
	assert.Equal(t, byte(0xF2), a.code[0])
	assert.Equal(t, byte(0x0F), a.code[1])
	assert.Equal(t, byte(0x58), a.code[2])
	assert.Equal(t, byte(0xC0|(1)), a.code[3]) // mod=3, reg=X0(0), rm=X1(1)
}

func TestSubRSPAndAddRSPAreInverses(t *testing.T) {
	down := NewAsm()
	down.SubRSPImm32(32)
	up := NewAsm()
	up.AddRSPImm32(32)

	// SubRSPImm32(n) must encode as AddRegImm32(RSP, -n): same opcode bytes,
	// immediate differs only in sign.
	assert.Equal(t, down.code[:3], up.code[:3])
	assert.NotEqual(t, down.code[3:], up.code[3:])
}
