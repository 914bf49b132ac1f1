package hook

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// Errors surfaced by hook installation. All of them disable the dependent
// fix; none abort the host process.
var (
	// ErrInstall wraps any failure to install a hook.
	ErrInstall = errors.New("hook: install failed")
	// ErrRelativeInsn means an instruction in the patch window carries a
	// short relative displacement that cannot be re-encoded in place, so it
	// cannot be replayed from the trampoline. rel32 forms are relocated
	// instead and never hit this.
	ErrRelativeInsn = errors.New("hook: relative instruction in patch window")
)

// Offsets into the context frame the stub builds on the intercepted stack.
// Must match the Context struct layout.
const (
	ctxEax    = 0
	ctxEcx    = 4
	ctxEdx    = 8
	ctxEbx    = 12
	ctxEsp    = 16
	ctxEbp    = 20
	ctxEsi    = 24
	ctxEdi    = 28
	ctxEflags = 32
	ctxXmm0   = 48
	frameSize = ctxXmm0 + 8*16
)

// redirectLen is the size of the jmp rel32 written over the hook site.
const redirectLen = 5

// maxPatchScan bounds how many bytes of the target we decode when looking
// for an instruction boundary past the redirect.
const maxPatchScan = 32

// x86 register numbers as encoded in ModRM reg fields.
const (
	regEax = 0
	regEcx = 1
	regEdx = 2
	regEbx = 3
	regEsp = 4
	regEbp = 5
	regEsi = 6
	regEdi = 7
)

// ctxOff maps a GP register number to its slot in the context frame.
func ctxOff(reg int) uint32 {
	return uint32(reg * 4)
}

type asm struct {
	b []byte
}

func (a *asm) bytes(bs ...byte) {
	a.b = append(a.b, bs...)
}

func (a *asm) u32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	a.b = append(a.b, tmp[:]...)
}

// modRM for [esp+disp32] addressing: mod=10, rm=100 (SIB), SIB base=esp.
func espDisp(reg int) (byte, byte) {
	return byte(0x84 | reg<<3), 0x24
}

func (a *asm) pushfd() { a.bytes(0x9C) }
func (a *asm) popfd()  { a.bytes(0x9D) }

func (a *asm) subESP(n uint32) {
	a.bytes(0x81, 0xEC)
	a.u32(n)
}

func (a *asm) addESP(n uint32) {
	a.bytes(0x81, 0xC4)
	a.u32(n)
}

// mov [esp+disp], reg
func (a *asm) storeReg(reg int, disp uint32) {
	m, s := espDisp(reg)
	a.bytes(0x89, m, s)
	a.u32(disp)
}

// mov reg, [esp+disp]
func (a *asm) loadReg(reg int, disp uint32) {
	m, s := espDisp(reg)
	a.bytes(0x8B, m, s)
	a.u32(disp)
}

// lea reg, [esp+disp]
func (a *asm) leaESP(reg int, disp uint32) {
	m, s := espDisp(reg)
	a.bytes(0x8D, m, s)
	a.u32(disp)
}

// movups [esp+disp], xmmN
func (a *asm) storeXmm(n int, disp uint32) {
	m, s := espDisp(n)
	a.bytes(0x0F, 0x11, m, s)
	a.u32(disp)
}

// movups xmmN, [esp+disp]
func (a *asm) loadXmm(n int, disp uint32) {
	m, s := espDisp(n)
	a.bytes(0x0F, 0x10, m, s)
	a.u32(disp)
}

func (a *asm) pushESP() { a.bytes(0x54) }

func (a *asm) movEaxImm(v uint32) {
	a.bytes(0xB8)
	a.u32(v)
}

func (a *asm) callEax() { a.bytes(0xFF, 0xD0) }

// jmp rel32 from `from` to `to`. Both are full virtual addresses.
func (a *asm) jmp(from, to uint32) {
	a.bytes(0xE9)
	a.u32(to - (from + redirectLen))
}

// EmitRedirect produces the patch written over the hook site: a jmp rel32
// to the stub, NOP-padded to cover the displaced instructions completely.
func EmitRedirect(site, stub uint32, patchLen int) []byte {
	var a asm
	a.jmp(site, stub)
	for len(a.b) < patchLen {
		a.bytes(0x90)
	}
	return a.b
}

// EmitMidStub builds the trampoline for a mid-function hook at stubAddr:
// capture flags, GP and XMM registers into a frame on the intercepted
// thread's stack, call the callback (stdcall, one pointer argument) with the
// frame address, load the possibly modified state back, replay the displaced
// instructions and jump to the first instruction after the patched region.
//
// The frame lives on the host thread's stack, so concurrent and reentrant
// hits never share a context.
func EmitMidStub(stubAddr, callback uint32, displaced []byte, returnTo uint32) []byte {
	var a asm

	// EFLAGS first: pushfd leaves it just above the frame.
	a.pushfd()
	a.subESP(frameSize)

	for _, r := range []int{regEax, regEcx, regEdx, regEbx, regEbp, regEsi, regEdi} {
		a.storeReg(r, ctxOff(r))
	}
	// Original esp: current + frame + the pushfd dword.
	a.leaESP(regEax, frameSize+4)
	a.storeReg(regEax, ctxEsp)
	// Copy the saved EFLAGS into its context slot.
	a.loadReg(regEax, frameSize)
	a.storeReg(regEax, ctxEflags)
	for i := 0; i < 8; i++ {
		a.storeXmm(i, uint32(ctxXmm0+i*16))
	}

	a.pushESP()
	a.movEaxImm(callback)
	a.callEax() // stdcall callee pops the frame pointer argument

	for i := 0; i < 8; i++ {
		a.loadXmm(i, uint32(ctxXmm0+i*16))
	}
	// EFLAGS writes propagate through the pushfd slot consumed by popfd.
	a.loadReg(regEax, ctxEflags)
	a.storeReg(regEax, frameSize)
	for _, r := range []int{regEcx, regEdx, regEbx, regEbp, regEsi, regEdi} {
		a.loadReg(r, ctxOff(r))
	}
	a.loadReg(regEax, ctxEax)
	a.addESP(frameSize)
	a.popfd()

	// Replay the displaced instructions with rel32 targets re-aimed for the
	// stub position.
	site := returnTo - uint32(len(displaced))
	a.b = append(a.b, relocate(displaced, site, stubAddr+uint32(len(a.b)))...)
	end := stubAddr + uint32(len(a.b))
	a.jmp(end, returnTo)
	return a.b
}

// EmitProcTrampoline builds the pass-through trampoline for a function hook:
// the displaced prologue instructions followed by a jump into the original
// body. Calling the trampoline invokes the unhooked semantics.
func EmitProcTrampoline(trampAddr uint32, displaced []byte, resumeAt uint32) []byte {
	var a asm
	site := resumeAt - uint32(len(displaced))
	a.b = append(a.b, relocate(displaced, site, trampAddr)...)
	a.jmp(trampAddr+uint32(len(displaced)), resumeAt)
	return a.b
}

// PatchLen returns how many bytes of whole instructions at the start of
// code must be displaced to fit the 5-byte redirect. Instructions with a
// rel32 displacement (call, jmp, jcc near) are accepted; relocate rewrites
// their displacement for the stub address. Short-displacement forms
// (rel8 jumps, loop) cannot be re-encoded in place and fail with
// ErrRelativeInsn.
func PatchLen(code []byte) (int, error) {
	n := 0
	for n < redirectLen {
		inst, err := x86asm.Decode(code[n:], 32)
		if err != nil {
			return 0, fmt.Errorf("%w: decode at +%d: %v", ErrInstall, n, err)
		}
		if inst.PCRel != 0 && inst.PCRel != 4 {
			return 0, fmt.Errorf("%w: %s at +%d", ErrRelativeInsn, inst.Op, n)
		}
		n += inst.Len
	}
	return n, nil
}

// relocate re-encodes displaced instructions for execution at a new
// address: every rel32 displacement is rewritten so the instruction keeps
// its absolute target. PatchLen has already rejected anything it cannot
// handle, so undecodable input here is a programming error and is returned
// unchanged.
func relocate(displaced []byte, from, to uint32) []byte {
	out := append([]byte(nil), displaced...)
	for pos := 0; pos < len(out); {
		inst, err := x86asm.Decode(out[pos:], 32)
		if err != nil {
			return out
		}
		if inst.PCRel == 4 {
			off := pos + inst.PCRelOff
			end := uint32(pos + inst.Len)
			rel := binary.LittleEndian.Uint32(out[off : off+4])
			target := from + end + rel
			binary.LittleEndian.PutUint32(out[off:off+4], target-(to+end))
		}
		pos += inst.Len
	}
	return out
}
