// Package hook installs inline hooks in the host process's own image and
// exposes the intercepted CPU state to Go callbacks.
package hook

// Vec128 is one XMM register as four 32-bit float lanes.
type Vec128 [4]float32

// Context is the CPU state at the moment of interception. The stub saves it
// into a frame on the intercepted thread's stack, so concurrent hits of the
// same hook each get their own context; it is only valid for the duration of
// one callback invocation.
//
// Every field except Esp is loaded back into the CPU before the displaced
// instructions resume, so in-place writes are the patch mechanism. Esp is
// captured for reading (the value before interception) but never restored.
//
// The field order mirrors the save layout emitted by the stub; keep the
// ctx* frame offsets in stub.go in sync with any change here.
type Context struct {
	Eax uint32
	Ecx uint32
	Edx uint32
	Ebx uint32
	Esp uint32
	Ebp uint32
	Esi uint32
	Edi uint32

	Eflags uint32
	_      [12]byte // keep the XMM block at a fixed, SIB-friendly offset

	Xmm0 Vec128
	Xmm1 Vec128
	Xmm2 Vec128
	Xmm3 Vec128
	Xmm4 Vec128
	Xmm5 Vec128
	Xmm6 Vec128
	Xmm7 Vec128
}

// Callback runs synchronously on whatever host thread reaches the hooked
// instruction. It must not block and must tolerate concurrent invocations.
type Callback func(*Context)
