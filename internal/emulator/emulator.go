// Package emulator provides x86-32 emulation using Unicorn Engine. The scan
// tool uses it to execute hook stubs off-target and verify the register
// capture and restore sequence before anything touches a live process.
package emulator

import (
	"encoding/binary"
	"fmt"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"
)

// Memory layout constants
const (
	CodeBase  = 0x00400000
	CodeSize  = 0x00100000 // 1MB for stub and scaffolding code
	StackBase = 0x00200000
	StackSize = 0x00010000 // 64KB stack
)

// Emulator wraps Unicorn for x86-32 emulation.
type Emulator struct {
	mu uc.Unicorn
}

// New creates an x86-32 emulator with code and stack regions mapped and
// ESP parked in the middle of the stack.
func New() (*Emulator, error) {
	mu, err := uc.NewUnicorn(uc.ARCH_X86, uc.MODE_32)
	if err != nil {
		return nil, fmt.Errorf("create unicorn: %w", err)
	}
	e := &Emulator{mu: mu}

	if err := mu.MemMap(CodeBase, CodeSize); err != nil {
		e.Close()
		return nil, fmt.Errorf("map code: %w", err)
	}
	if err := mu.MemMap(StackBase, StackSize); err != nil {
		e.Close()
		return nil, fmt.Errorf("map stack: %w", err)
	}
	if err := mu.RegWrite(uc.X86_REG_ESP, StackBase+StackSize/2); err != nil {
		e.Close()
		return nil, fmt.Errorf("init esp: %w", err)
	}
	return e, nil
}

// Close releases the unicorn instance.
func (e *Emulator) Close() error {
	return e.mu.Close()
}

// MemWrite writes bytes to memory.
func (e *Emulator) MemWrite(addr uint64, data []byte) error {
	return e.mu.MemWrite(addr, data)
}

// MemRead reads bytes from memory.
func (e *Emulator) MemRead(addr, size uint64) ([]byte, error) {
	return e.mu.MemRead(addr, size)
}

// MemReadU32 reads a little-endian uint32.
func (e *Emulator) MemReadU32(addr uint64) (uint32, error) {
	data, err := e.mu.MemRead(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// RegRead reads a register by unicorn register id.
func (e *Emulator) RegRead(reg int) (uint64, error) {
	return e.mu.RegRead(reg)
}

// RegWrite writes a register by unicorn register id.
func (e *Emulator) RegWrite(reg int, val uint64) error {
	return e.mu.RegWrite(reg, val)
}

// gpIDs is the general-purpose register file in ModRM encoding order:
// eax, ecx, edx, ebx, esp, ebp, esi, edi.
var gpIDs = []int{
	uc.X86_REG_EAX, uc.X86_REG_ECX, uc.X86_REG_EDX, uc.X86_REG_EBX,
	uc.X86_REG_ESP, uc.X86_REG_EBP, uc.X86_REG_ESI, uc.X86_REG_EDI,
}

// GP returns the general-purpose register file in ModRM encoding order.
func (e *Emulator) GP() ([8]uint32, error) {
	var out [8]uint32
	for i, id := range gpIDs {
		v, err := e.mu.RegRead(id)
		if err != nil {
			return out, err
		}
		out[i] = uint32(v)
	}
	return out, nil
}

// SetGP loads the general-purpose register file, skipping esp.
func (e *Emulator) SetGP(regs [8]uint32) error {
	for i, id := range gpIDs {
		if id == uc.X86_REG_ESP {
			continue
		}
		if err := e.mu.RegWrite(id, uint64(regs[i])); err != nil {
			return err
		}
	}
	return nil
}

// Run executes from start until the instruction pointer reaches end.
func (e *Emulator) Run(start, end uint64) error {
	return e.mu.Start(start, end)
}
