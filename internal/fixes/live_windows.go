//go:build windows

package fixes

import (
	"strings"
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/PolarWizard/GodEater1-2Fix/internal/hook"
	"github.com/PolarWizard/GodEater1-2Fix/internal/winmem"
)

// The read primitive worth intercepting lives in KernelBase.dll: the media
// stack (quartz.dll) bottoms out there, bypassing kernel32's forwarder.
const (
	readFileDLL  = "KernelBase.dll"
	readFileProc = "ReadFile"
)

var (
	kernel32         = windows.NewLazySystemDLL("kernel32.dll")
	procSetLastError = kernel32.NewProc("SetLastError")
)

// LiveInstaller installs hooks in the running host process.
type LiveInstaller struct {
	mids []*hook.MidHook
	proc *hook.ProcHook
}

// Mid implements Installer against the live image.
func (li *LiveInstaller) Mid(addr uintptr, cb hook.Callback) (uintptr, error) {
	h, err := hook.InstallMid(addr, cb)
	if err != nil {
		return 0, err
	}
	li.mids = append(li.mids, h)
	return h.Target(), nil
}

// ReadFileIntercept hooks KernelBase!ReadFile. The replacement resolves the
// handle to its final path, reports it to observe, then forwards every
// argument unchanged to the original and returns its exact result; the I/O
// operation itself is never mutated.
func (li *LiveInstaller) ReadFileIntercept(observe func(path string)) (uintptr, error) {
	addr, err := winmem.ResolveExport(readFileDLL, readFileProc)
	if err != nil {
		return 0, err
	}

	h, err := hook.InstallProc(addr, func(orig *hook.ProcHook) uintptr {
		return syscall.NewCallback(func(hFile, buf, toRead, read, overlapped uintptr) uintptr {
			if path, perr := finalPathByHandle(windows.Handle(hFile)); perr == nil {
				observe(path)
			}
			r1, errno := orig.Call(hFile, buf, toRead, read, overlapped)
			// SyscallN captures the callee's last error; put it back so the
			// host observes the identical error state after the detour,
			// success paths included (overlapped reads set ERROR_IO_PENDING
			// that callers probe).
			restoreLastError(errno)
			return r1
		})
	})
	if err != nil {
		return 0, err
	}
	li.proc = h
	return h.Target(), nil
}

// restoreLastError reinstates a captured last-error value on the current
// thread.
func restoreLastError(errno syscall.Errno) {
	procSetLastError.Call(uintptr(errno))
}

// finalPathByHandle resolves an open handle to its normalized path,
// stripping the \\?\ prefix Windows prepends.
func finalPathByHandle(h windows.Handle) (string, error) {
	var buf [windows.MAX_PATH + 4]uint16
	n, err := windows.GetFinalPathNameByHandle(h, &buf[0], uint32(len(buf)), windows.FILE_NAME_NORMALIZED)
	if err != nil {
		return "", err
	}
	if n > uint32(len(buf)) {
		big := make([]uint16, n)
		if n, err = windows.GetFinalPathNameByHandle(h, &big[0], n, windows.FILE_NAME_NORMALIZED); err != nil {
			return "", err
		}
		return strings.TrimPrefix(windows.UTF16ToString(big[:n]), `\\?\`), nil
	}
	return strings.TrimPrefix(windows.UTF16ToString(buf[:n]), `\\?\`), nil
}
