//go:build windows

// Package winmem resolves the host process's primary module and provides
// the raw memory primitives hook installation needs.
package winmem

import (
	"errors"
	"fmt"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ErrExportNotFound reports a required exported function or module that
// could not be located.
var ErrExportNotFound = errors.New("winmem: export not found")

// Module is the base address and bounds of a loaded image. Immutable after
// resolution; the engine owns it for its entire lifetime.
type Module struct {
	Base uintptr
	Size uint32
	Name string
	Path string
}

// Current resolves the host process's primary executable module.
func Current() (Module, error) {
	var handle windows.Handle
	// GetModuleHandleEx with nil name returns the process image handle and
	// pins nothing extra; the image never unloads before us anyway.
	if err := windows.GetModuleHandleEx(0, nil, &handle); err != nil {
		return Module{}, fmt.Errorf("winmem: module handle: %w", err)
	}

	var info windows.ModuleInfo
	process := windows.CurrentProcess()
	if err := windows.GetModuleInformation(process, handle, &info, uint32(unsafe.Sizeof(info))); err != nil {
		return Module{}, fmt.Errorf("winmem: module information: %w", err)
	}

	var pathBuf [windows.MAX_PATH]uint16
	n, err := windows.GetModuleFileName(handle, &pathBuf[0], uint32(len(pathBuf)))
	if err != nil {
		return Module{}, fmt.Errorf("winmem: module file name: %w", err)
	}
	path := windows.UTF16ToString(pathBuf[:n])

	return Module{
		Base: info.BaseOfDll,
		Size: info.SizeOfImage,
		Name: filepath.Base(path),
		Path: path,
	}, nil
}

// Bytes exposes the live module image for scanning. The image stays mapped
// for the process lifetime, so the slice never dangles.
func (m Module) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(m.Base)), int(m.Size))
}

// Contains reports whether addr falls inside the module image.
func (m Module) Contains(addr uintptr) bool {
	return addr >= m.Base && addr < m.Base+uintptr(m.Size)
}

// ReadCode copies n bytes of live code at addr.
func ReadCode(addr uintptr, n int) []byte {
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(addr)), n))
	return out
}

// WriteCode overwrites live code, flipping page protection around the write
// and flushing the instruction cache so every core sees the patch.
func WriteCode(addr uintptr, data []byte) error {
	var old uint32
	if err := windows.VirtualProtect(addr, uintptr(len(data)), windows.PAGE_EXECUTE_READWRITE, &old); err != nil {
		return fmt.Errorf("winmem: unprotect %#x: %w", addr, err)
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(data)), data)
	if err := windows.VirtualProtect(addr, uintptr(len(data)), old, &old); err != nil {
		return fmt.Errorf("winmem: reprotect %#x: %w", addr, err)
	}
	process := windows.CurrentProcess()
	if err := windows.FlushInstructionCache(process, addr, uintptr(len(data))); err != nil {
		return fmt.Errorf("winmem: flush icache: %w", err)
	}
	return nil
}

// AllocExec reserves executable memory for a trampoline stub. Stubs live
// for the process lifetime; there is no release path in normal operation.
func AllocExec(n int) (uintptr, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(n),
		windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_EXECUTE_READWRITE)
	if err != nil {
		return 0, fmt.Errorf("winmem: alloc %d bytes: %w", n, err)
	}
	return addr, nil
}

// FreeExec releases a trampoline allocation. Only the error paths of hook
// installation exercise it.
func FreeExec(addr uintptr) error {
	return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}

// ResolveExport locates an exported function in an already-loaded system
// DLL, e.g. ReadFile in KernelBase.dll.
func ResolveExport(dll, proc string) (uintptr, error) {
	lazy := windows.NewLazySystemDLL(dll)
	if err := lazy.Load(); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrExportNotFound, dll, err)
	}
	p := lazy.NewProc(proc)
	if err := p.Find(); err != nil {
		return 0, fmt.Errorf("%w: %s!%s: %v", ErrExportNotFound, dll, proc, err)
	}
	return p.Addr(), nil
}
