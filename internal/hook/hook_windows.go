//go:build windows

package hook

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/PolarWizard/GodEater1-2Fix/internal/winmem"
)

// MidHook is an installed mid-function hook. One per patched site; owned by
// the installer and never copied. It persists until process teardown.
type MidHook struct {
	target uintptr
	stub   uintptr
	saved  []byte
	cb     Callback // keeps the callback (and its NewCallback stub) alive
}

// InstallMid redirects execution at addr through a trampoline that hands the
// live register context to cb before the original instructions resume. Once
// installed, every execution reaching addr triggers cb first; register
// writes made by cb are consumed by the resumed instruction stream.
func InstallMid(addr uintptr, cb Callback) (*MidHook, error) {
	if addr == 0 || cb == nil {
		return nil, fmt.Errorf("%w: nil target or callback", ErrInstall)
	}

	window := winmem.ReadCode(addr, maxPatchScan)
	n, err := PatchLen(window)
	if err != nil {
		return nil, err
	}
	displaced := window[:n]

	cbPtr := syscall.NewCallback(func(frame uintptr) uintptr {
		cb((*Context)(unsafe.Pointer(frame)))
		return 0
	})

	// Emit once at address zero to size the stub, then place it for real.
	size := len(EmitMidStub(0, uint32(cbPtr), displaced, 0))
	stub, err := winmem.AllocExec(size)
	if err != nil {
		return nil, fmt.Errorf("%w: trampoline: %v", ErrInstall, err)
	}
	body := EmitMidStub(uint32(stub), uint32(cbPtr), displaced, uint32(addr)+uint32(n))
	if err := winmem.WriteCode(stub, body); err != nil {
		winmem.FreeExec(stub)
		return nil, fmt.Errorf("%w: write stub: %v", ErrInstall, err)
	}

	patch := EmitRedirect(uint32(addr), uint32(stub), n)
	if err := patchSite(addr, patch); err != nil {
		winmem.FreeExec(stub)
		return nil, err
	}

	return &MidHook{target: addr, stub: stub, saved: displaced, cb: cb}, nil
}

// Target returns the patched address.
func (h *MidHook) Target() uintptr {
	return h.target
}

// ProcHook is an installed function hook with a pass-through to the
// original semantics.
type ProcHook struct {
	target uintptr
	tramp  uintptr
	saved  []byte
}

// InstallProc redirects the externally-callable function at addr. The
// replacement pointer (stdcall-compatible, typically from
// syscall.NewCallback) is produced by makeReplacement, which receives the
// handle before the site is patched so the replacement can forward to the
// original without a window where the hook is live but the handle is not.
func InstallProc(addr uintptr, makeReplacement func(orig *ProcHook) uintptr) (*ProcHook, error) {
	if addr == 0 || makeReplacement == nil {
		return nil, fmt.Errorf("%w: nil target or replacement", ErrInstall)
	}

	window := winmem.ReadCode(addr, maxPatchScan)
	n, err := PatchLen(window)
	if err != nil {
		return nil, err
	}
	displaced := window[:n]

	tramp, err := winmem.AllocExec(n + redirectLen)
	if err != nil {
		return nil, fmt.Errorf("%w: trampoline: %v", ErrInstall, err)
	}
	body := EmitProcTrampoline(uint32(tramp), displaced, uint32(addr)+uint32(n))
	if err := winmem.WriteCode(tramp, body); err != nil {
		winmem.FreeExec(tramp)
		return nil, fmt.Errorf("%w: write trampoline: %v", ErrInstall, err)
	}

	h := &ProcHook{target: addr, tramp: tramp, saved: displaced}
	replacement := makeReplacement(h)
	if replacement == 0 {
		winmem.FreeExec(tramp)
		return nil, fmt.Errorf("%w: nil replacement", ErrInstall)
	}

	patch := EmitRedirect(uint32(addr), uint32(replacement), n)
	if err := patchSite(addr, patch); err != nil {
		winmem.FreeExec(tramp)
		return nil, err
	}

	return h, nil
}

// patchSite writes the redirect over live code with every other thread
// suspended, so no thread can decode a half-written instruction. Suspension
// parks threads at instruction boundaries; a thread parked on a boundary
// inside the patch window resumes into the NOP padding and falls through to
// the first unpatched instruction.
func patchSite(addr uintptr, patch []byte) error {
	resume, err := winmem.FreezeThreads()
	if err != nil {
		return fmt.Errorf("%w: freeze threads: %v", ErrInstall, err)
	}
	werr := winmem.WriteCode(addr, patch)
	resume()
	if werr != nil {
		return fmt.Errorf("%w: patch site %#x: %v", ErrInstall, addr, werr)
	}
	return nil
}

// Call invokes the original function through the trampoline with the
// stdcall convention, returning its exact result and error state.
func (h *ProcHook) Call(args ...uintptr) (uintptr, syscall.Errno) {
	r1, _, errno := syscall.SyscallN(h.tramp, args...)
	return r1, errno
}

// Target returns the patched address.
func (h *ProcHook) Target() uintptr {
	return h.target
}
