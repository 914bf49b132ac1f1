//go:build windows

package winmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// FreezeThreads suspends every other thread in the process and returns a
// function that resumes them. Rewriting live code is only safe while no
// other thread can execute through the bytes being replaced; a thread that
// decodes a half-written patch executes garbage.
//
// The caller must keep the frozen window minimal and must not allocate or
// block between freeze and resume.
func FreezeThreads() (resume func(), err error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPTHREAD, 0)
	if err != nil {
		return nil, fmt.Errorf("winmem: thread snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	pid := windows.GetCurrentProcessId()
	self := windows.GetCurrentThreadId()

	var frozen []windows.Handle
	var entry windows.ThreadEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	for err := windows.Thread32First(snap, &entry); err == nil; err = windows.Thread32Next(snap, &entry) {
		if entry.OwnerProcessID != pid || entry.ThreadID == self {
			continue
		}
		h, err := windows.OpenThread(windows.THREAD_SUSPEND_RESUME, false, entry.ThreadID)
		if err != nil {
			// Thread exited between snapshot and open.
			continue
		}
		if _, err := windows.SuspendThread(h); err != nil {
			windows.CloseHandle(h)
			continue
		}
		frozen = append(frozen, h)
	}

	return func() {
		for _, h := range frozen {
			windows.ResumeThread(h)
			windows.CloseHandle(h)
		}
	}, nil
}
